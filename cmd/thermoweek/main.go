package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/lmoroni/thermoweek/internal/assist"
	"github.com/lmoroni/thermoweek/internal/config"
	"github.com/lmoroni/thermoweek/internal/export"
	"github.com/lmoroni/thermoweek/internal/moneta"
	"github.com/lmoroni/thermoweek/internal/notify"
	"github.com/lmoroni/thermoweek/internal/schedule"
	"github.com/lmoroni/thermoweek/internal/session"
	"github.com/lmoroni/thermoweek/internal/store"
	"github.com/lmoroni/thermoweek/internal/tui"
	"github.com/spf13/cobra"
	naturaldate "github.com/tj/go-naturaldate"
)

var rootCmd = &cobra.Command{
	Use:   "thermoweek",
	Short: "Weekly occupancy schedules for Moneta thermostats",
	Long:  "thermoweek edits the weekly present/absent schedule of a Planet Smart City (Moneta) thermostat from the terminal, with offline snapshots, calendar export, and AI-drafted schedules.",
}

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit the weekly schedule interactively",
	RunE:  runEdit,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current weekly schedule",
	RunE:  runShow,
}

var zonesCmd = &cobra.Command{
	Use:   "zones",
	Short: "List thermostat zones",
	RunE:  runZones,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show thermostat state",
	RunE:  runStatus,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the weekly schedule as an iCalendar file",
	RunE:  runExport,
}

var suggestCmd = &cobra.Command{
	Use:   "suggest [description]",
	Short: "Draft a weekly schedule from a plain-English description",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSuggest,
}

var holdCmd = &cobra.Command{
	Use:       "hold {party|manual|off|frost|auto}",
	Short:     "Override the schedule with a hold mode",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"party", "manual", "off", "frost", "auto"},
	RunE:      runHold,
}

var setTempCmd = &cobra.Command{
	Use:   "set-temp [temperature]",
	Short: "Set zone temperatures",
	Long:  "With a bare temperature, holds the zone in manual mode at that temperature. With --present/--absent, updates the setpoints the weekly schedule switches between.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSetTemp,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Open config file in your editor",
	RunE:  runConfig,
}

func init() {
	showCmd.Flags().IntP("history", "n", 0, "Also list the last N schedule snapshots")
	exportCmd.Flags().StringP("output", "o", "thermoweek.ics", "Output file path")
	suggestCmd.Flags().Bool("apply", false, "Push the drafted schedule to the thermostat")
	holdCmd.Flags().String("until", "", "When the hold should expire, e.g. 'tomorrow at 6am' (party only)")
	setTempCmd.Flags().Float64("present", 0, "New present (occupied) setpoint temperature")
	setTempCmd.Flags().Float64("absent", 0, "New absent (away) setpoint temperature")
	setTempCmd.Flags().String("zone", "", "Zone to update (default: configured zone)")
	rootCmd.PersistentFlags().Bool("verbose", false, "Log API traffic to stderr")

	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(zonesCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(suggestCmd)
	rootCmd.AddCommand(holdCmd)
	rootCmd.AddCommand(setTempCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if cfg.Moneta.AccessToken == "" {
		return nil, fmt.Errorf("moneta access token not configured — run 'thermoweek config' to set it up")
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose")
	if !verbose {
		return nil
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

func newMonetaClient(cmd *cobra.Command, cfg *config.Config) *moneta.Client {
	ttl := time.Duration(cfg.Moneta.CacheTTLMinutes) * time.Minute
	return moneta.NewClient(cfg.Moneta.AccessToken, cfg.Moneta.BaseURL, ttl, newLogger(cmd))
}

// currentWeek resolves the schedule to show or edit: the thermostat's
// canonical calendar when the cloud is reachable, otherwise the latest
// local snapshot.
func currentWeek(ctx context.Context, client *moneta.Client, db *store.DB, cfg *config.Config) (schedule.WeekSchedule, int, bool, error) {
	state, err := client.GetState(ctx)
	if err == nil {
		if cal := state.CanonicalCalendar(); cal != nil {
			week := cal.Schedule.Normalize()
			step := cal.Step
			if step != 15 && step != 30 {
				step = cfg.Schedule.StepMinutes
			}
			if _, serr := db.InsertSnapshot(cfg.Moneta.ZoneID, step, store.SourceFetch, week); serr != nil {
				fmt.Printf("Warning: could not snapshot schedule: %v\n", serr)
			}
			return week, step, false, nil
		}
		return schedule.NewWeek(), cfg.Schedule.StepMinutes, false, nil
	}

	snap, serr := db.LatestSnapshot(cfg.Moneta.ZoneID)
	if serr != nil || snap == nil {
		return nil, 0, false, fmt.Errorf("fetching thermostat state: %w", err)
	}
	fmt.Printf("Warning: cloud unreachable (%v), using snapshot from %s\n",
		err, snap.CreatedAt.Local().Format("2006-01-02 15:04"))
	return snap.Schedule, snap.Step, true, nil
}

// scheduleSaver pushes a saved week to the cloud and records a local
// snapshot of what was submitted.
type scheduleSaver struct {
	client *moneta.Client
	db     *store.DB
	notify bool
}

func (s *scheduleSaver) SetSchedule(ctx context.Context, zoneID string, step int, week schedule.WeekSchedule) error {
	if err := s.client.SetSchedule(ctx, zoneID, step, week); err != nil {
		return err
	}
	if _, err := s.db.InsertSnapshot(zoneID, step, store.SourceSave, week); err != nil {
		fmt.Printf("Warning: could not snapshot schedule: %v\n", err)
	}
	if err := s.db.SetState("last_save", time.Now().Format(time.RFC3339)); err != nil {
		fmt.Printf("Warning: could not record save time: %v\n", err)
	}
	if s.notify {
		if err := notify.Send("thermoweek", "Weekly schedule saved"); err != nil {
			fmt.Printf("Warning: notification failed: %v\n", err)
		}
	}
	return nil
}

func runEdit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := store.Open()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	client := newMonetaClient(cmd, cfg)
	ctx := context.Background()

	week, step, offline, err := currentWeek(ctx, client, db, cfg)
	if err != nil {
		return err
	}
	if offline {
		return fmt.Errorf("cannot edit while offline: saving needs the cloud")
	}

	sess := session.New(week, cfg.Moneta.ZoneID, step)
	saver := &scheduleSaver{client: client, db: db, notify: cfg.Notifications.Enabled}

	app := tui.NewApp(sess, saver)
	p := tea.NewProgram(app)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := store.Open()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	client := newMonetaClient(cmd, cfg)
	week, step, _, err := currentWeek(context.Background(), client, db, cfg)
	if err != nil {
		return err
	}

	summary := schedule.FormatWeek(week)
	if summary == "" {
		summary = "no schedule"
	}
	fmt.Printf("Schedule (%d min step): %s\n\n", step, summary)

	for _, day := range week {
		if len(day.Bands) == 0 {
			fmt.Printf("  %s  —\n", day.Day)
			continue
		}
		parts := make([]string, 0, len(day.Bands))
		for _, b := range schedule.SortBands(day.Bands) {
			parts = append(parts, fmt.Sprintf("%s %s", b.Range(), b.SetpointType))
		}
		fmt.Printf("  %s  %s\n", day.Day, strings.Join(parts, ", "))
	}

	history, _ := cmd.Flags().GetInt("history")
	if history > 0 {
		if err := printHistory(db, cfg.Moneta.ZoneID, history); err != nil {
			return err
		}
	}
	return nil
}

func printHistory(db *store.DB, zoneID string, limit int) error {
	snapshots, err := db.ListSnapshots(zoneID, limit)
	if err != nil {
		return fmt.Errorf("listing snapshots: %w", err)
	}
	if len(snapshots) == 0 {
		fmt.Println("\nNo snapshots recorded yet.")
		return nil
	}

	fmt.Println("\nRecent snapshots:")
	for _, snap := range snapshots {
		summary := schedule.FormatWeek(snap.Schedule)
		if summary == "" {
			summary = "no schedule"
		}
		fmt.Printf("  %s  %-5s  %s\n",
			snap.CreatedAt.Local().Format("2006-01-02 15:04"), snap.Source, summary)
	}

	if lastSave, err := db.GetState("last_save"); err == nil && lastSave != "" {
		if t, perr := time.Parse(time.RFC3339, lastSave); perr == nil {
			fmt.Printf("\nLast save: %s\n", t.Local().Format("2006-01-02 15:04"))
		}
	}
	return nil
}

func runZones(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client := newMonetaClient(cmd, cfg)
	state, err := client.GetState(context.Background())
	if err != nil {
		return fmt.Errorf("fetching thermostat state: %w", err)
	}

	if len(state.Zones) == 0 {
		fmt.Println("No zones found.")
		return nil
	}

	fmt.Printf("Found %d zones:\n\n", len(state.Zones))
	for _, z := range state.Zones {
		home := "away"
		if z.AtHome {
			home = "home"
		}
		fmt.Printf("  %s  %.1f° (target %.1f°)  %-7s  %s\n",
			z.ID, z.Temperature, z.EffectiveSetpoint, z.Mode, home)
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client := newMonetaClient(cmd, cfg)
	state, err := client.GetState(context.Background())
	if err != nil {
		return fmt.Errorf("fetching thermostat state: %w", err)
	}

	fmt.Printf("Unit %s (%s), outside %.1f°%s\n",
		state.UnitCode, state.Category, state.ExternalTemperature, state.MeasureUnit)

	zone := state.Zone(cfg.Moneta.ZoneID)
	if zone == nil && len(state.Zones) > 0 {
		zone = &state.Zones[0]
	}
	if zone != nil {
		fmt.Printf("Zone %s: %.1f° / %.0f%% humidity, target %.1f°, mode %s\n",
			zone.ID, zone.Temperature, zone.Humidity, zone.EffectiveSetpoint, zone.Mode)
		for _, sp := range zone.Setpoints {
			fmt.Printf("  %-9s %.1f°\n", sp.Type, sp.Temperature)
		}
	}

	if cal := state.CanonicalCalendar(); cal != nil {
		if summary := schedule.FormatWeek(cal.Schedule); summary != "" {
			fmt.Printf("Schedule: %s\n", summary)
		}
	}
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := store.Open()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	client := newMonetaClient(cmd, cfg)
	week, _, _, err := currentWeek(context.Background(), client, db, cfg)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := export.WriteWeek(&buf, week, export.WeekStart(time.Now())); err != nil {
		if errors.Is(err, export.ErrEmptyWeek) {
			fmt.Println("Nothing to export: the schedule is empty.")
			return nil
		}
		return fmt.Errorf("writing calendar: %w", err)
	}

	if err := os.WriteFile(output, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}

	fmt.Printf("Exported weekly schedule to %s\n", output)
	return nil
}

func runSuggest(cmd *cobra.Command, args []string) error {
	apply, _ := cmd.Flags().GetBool("apply")
	description := strings.Join(args, " ")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.OpenAI.APIKey == "" {
		return fmt.Errorf("openai API key not configured — run 'thermoweek config' to set it up")
	}

	provider := assist.NewOpenAI(cfg.OpenAI.APIKey, cfg.OpenAI.Model, "", newLogger(cmd))
	step := cfg.Schedule.StepMinutes

	ctx := context.Background()
	suggestion, err := provider.SuggestWeek(ctx, description, step)
	if err != nil {
		return fmt.Errorf("drafting schedule: %w", err)
	}
	if suggestion.Clarification != "" {
		fmt.Printf("Need more detail: %s\n", suggestion.Clarification)
		return nil
	}

	week, err := suggestion.Week(step)
	if err != nil {
		return fmt.Errorf("drafted schedule is invalid: %w", err)
	}

	summary := schedule.FormatWeek(week)
	if summary == "" {
		summary = "no schedule"
	}
	fmt.Printf("Draft: %s\n", summary)

	if !apply {
		fmt.Println("\nRun again with --apply to push it to the thermostat.")
		return nil
	}

	client := newMonetaClient(cmd, cfg)
	if err := client.SetSchedule(ctx, cfg.Moneta.ZoneID, step, week); err != nil {
		return fmt.Errorf("pushing schedule: %w", err)
	}

	db, err := store.Open()
	if err == nil {
		defer db.Close()
		if _, serr := db.InsertSnapshot(cfg.Moneta.ZoneID, step, store.SourceSave, week); serr != nil {
			fmt.Printf("Warning: could not snapshot schedule: %v\n", serr)
		}
	}

	fmt.Println("Schedule applied.")
	return nil
}

func runHold(cmd *cobra.Command, args []string) error {
	until, _ := cmd.Flags().GetString("until")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client := newMonetaClient(cmd, cfg)
	ctx := context.Background()

	switch args[0] {
	case "party":
		hours := 8
		if until != "" {
			expiry, err := naturaldate.Parse(until, time.Now(), naturaldate.WithDirection(naturaldate.Future))
			if err != nil {
				return fmt.Errorf("parsing --until %q: %w", until, err)
			}
			hours = int(math.Ceil(time.Until(expiry).Hours()))
			if hours < 1 {
				hours = 1
			}
		}
		if err := client.SetParty(ctx, hours); err != nil {
			return fmt.Errorf("setting party mode: %w", err)
		}
		fmt.Printf("Party mode on for %d hours.\n", hours)

	case "manual":
		if err := client.SetHeatCool(ctx); err != nil {
			return fmt.Errorf("setting manual mode: %w", err)
		}
		fmt.Println("All zones held at their present setpoint.")

	case "off":
		if err := client.SetOff(ctx); err != nil {
			return fmt.Errorf("turning zones off: %w", err)
		}
		fmt.Println("All zones off.")

	case "frost":
		if err := client.SetFrostProtection(ctx); err != nil {
			return fmt.Errorf("setting frost protection: %w", err)
		}
		fmt.Println("Frost protection on.")

	case "auto":
		if err := client.SetAuto(ctx); err != nil {
			return fmt.Errorf("resuming schedule: %w", err)
		}
		fmt.Println("Back on the weekly schedule.")

	default:
		return fmt.Errorf("unknown hold mode %q", args[0])
	}
	return nil
}

func runSetTemp(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	zoneID, _ := cmd.Flags().GetString("zone")
	if zoneID == "" {
		zoneID = cfg.Moneta.ZoneID
	}

	client := newMonetaClient(cmd, cfg)
	ctx := context.Background()

	var present, absent *float64
	if cmd.Flags().Changed("present") {
		v, _ := cmd.Flags().GetFloat64("present")
		present = &v
	}
	if cmd.Flags().Changed("absent") {
		v, _ := cmd.Flags().GetFloat64("absent")
		absent = &v
	}

	if present != nil || absent != nil {
		if len(args) > 0 {
			return fmt.Errorf("give either a bare temperature or --present/--absent, not both")
		}
		if err := client.SetPresentAbsentTemperature(ctx, zoneID, present, absent); err != nil {
			return fmt.Errorf("updating setpoints: %w", err)
		}
		fmt.Printf("Setpoints updated for zone %s.\n", zoneID)
		return nil
	}

	if len(args) == 0 {
		return fmt.Errorf("temperature required: 'thermoweek set-temp 21.5' or --present/--absent")
	}
	temp, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("parsing temperature %q: %w", args[0], err)
	}
	if err := client.SetManualTemperature(ctx, zoneID, temp); err != nil {
		return fmt.Errorf("setting manual temperature: %w", err)
	}
	fmt.Printf("Zone %s held at %.1f°.\n", zoneID, temp)
	return nil
}

func runConfig(cmd *cobra.Command, args []string) error {
	if err := config.EnsureConfigDir(); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath, err := config.ConfigPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		// Create default config file
		cfg := config.DefaultConfig()
		data := fmt.Sprintf(`[moneta]
access_token = "%s"
base_url = "%s"
zone_id = "%s"
cache_ttl_minutes = %d

[schedule]
step_minutes = %d

[openai]
api_key = "%s"
model = "%s"

[notifications]
enabled = %t
`,
			cfg.Moneta.AccessToken,
			cfg.Moneta.BaseURL,
			cfg.Moneta.ZoneID,
			cfg.Moneta.CacheTTLMinutes,
			cfg.Schedule.StepMinutes,
			cfg.OpenAI.APIKey,
			cfg.OpenAI.Model,
			cfg.Notifications.Enabled,
		)
		if err := os.WriteFile(configPath, []byte(data), 0644); err != nil {
			return fmt.Errorf("writing default config: %w", err)
		}
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}
	editorPath, err := exec.LookPath(editor)
	if err != nil {
		fmt.Printf("Could not find %s. Config file is at: %s\n", editor, configPath)
		return nil
	}

	fmt.Printf("Opening %s with %s...\n", configPath, editor)

	proc := os.ProcAttr{
		Files: []*os.File{os.Stdin, os.Stdout, os.Stderr},
	}
	process, err := os.StartProcess(editorPath, []string{editor, configPath}, &proc)
	if err != nil {
		// If editor fails, just print the path
		fmt.Printf("Could not open editor. Config file is at: %s\n", configPath)
		return nil
	}
	_, err = process.Wait()
	return err
}
