package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/lmoroni/thermoweek/internal/schedule"
	"github.com/lmoroni/thermoweek/internal/session"
)

// Saver submits a full-week schedule to the backing store, usually the
// thermostat cloud.
type Saver interface {
	SetSchedule(ctx context.Context, zoneID string, step int, week schedule.WeekSchedule) error
}

type saveResultMsg struct {
	submitted schedule.WeekSchedule
	err       error
}

type clearConfirmMsg struct{}

// confirmDelay is how long the "saved" confirmation stays visible.
const confirmDelay = 3 * time.Second

const defaultBarWidth = 48

// App is the bubbletea model for the week editor. All schedule state
// lives in the session; App only holds view concerns.
type App struct {
	session *session.Session
	saver   Saver

	spinner     spinner.Model
	timeInput   textinput.Model
	editingTime bool

	dayCursor  int // index into schedule.Weekdays
	bandCursor int

	bars     [7]string // cached timeline bars, one per weekday
	barWidth int
	confirm  bool
	notice   string
}

func NewApp(sess *session.Session, saver Saver) *App {
	s := spinner.New()
	s.Spinner = spinner.Dot

	ti := textinput.New()
	ti.CharLimit = 11
	ti.Width = 14
	ti.Placeholder = "HH:MM-HH:MM"

	a := &App{
		session:   sess,
		saver:     saver,
		spinner:   s,
		timeInput: ti,
		barWidth:  defaultBarWidth,
	}
	a.refreshAll()
	return a
}

func (a *App) Init() tea.Cmd {
	return a.spinner.Tick
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		width := msg.Width - 12
		if width < 24 {
			width = 24
		}
		if width > 96 {
			width = 96
		}
		a.barWidth = width
		a.refreshAll()
		return a, nil

	case saveResultMsg:
		a.session.CompleteSave(msg.submitted, msg.err)
		a.refreshAll()
		if msg.err == nil {
			a.confirm = true
			return a, tea.Tick(confirmDelay, func(time.Time) tea.Msg { return clearConfirmMsg{} })
		}
		return a, nil

	case clearConfirmMsg:
		a.confirm = false
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if a.editingTime {
			return a.updateTimeInput(msg)
		}
		return a.updateKeys(msg)
	}

	return a, nil
}

func (a *App) updateTimeInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		start, end := parseRange(a.timeInput.Value())
		if err := a.session.RetimeBand(a.bandCursor, start, end); err != nil {
			a.notice = err.Error()
		}
		a.editingTime = false
		a.timeInput.Blur()
		// Bar-only redraw: only the open day's segments changed.
		a.refreshOpenBar()
		return a, nil
	case "esc":
		a.editingTime = false
		a.timeInput.Blur()
		return a, nil
	}

	var cmd tea.Cmd
	a.timeInput, cmd = a.timeInput.Update(msg)
	return a, cmd
}

func (a *App) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a.notice = ""
	editing := a.session.State() == session.StateEditing || a.session.State() == session.StateError

	switch msg.String() {
	case "q":
		if a.session.State() == session.StateIdle {
			return a, tea.Quit
		}

	case "up", "k":
		if editing {
			if a.bandCursor > 0 {
				a.bandCursor--
			}
		} else if a.dayCursor > 0 {
			a.dayCursor--
		}

	case "down", "j":
		if editing {
			if a.bandCursor < len(a.session.Bands())-1 {
				a.bandCursor++
			}
		} else if a.dayCursor < len(schedule.Weekdays)-1 {
			a.dayCursor++
		}

	case "enter":
		a.session.OpenDay(schedule.Weekdays[a.dayCursor])
		a.bandCursor = 0
		a.refreshAll()

	case "esc":
		a.session.Cancel()
		a.refreshAll()

	case "a":
		start, end := a.nextBandSlot()
		if err := a.session.AddBand(schedule.SetpointPresent, start, end); err != nil {
			a.notice = err.Error()
			break
		}
		a.bandCursor = len(a.session.Bands()) - 1
		a.refreshOpenBar()

	case "d":
		if err := a.session.RemoveBand(a.bandCursor); err != nil {
			a.notice = err.Error()
			break
		}
		if n := len(a.session.Bands()); a.bandCursor >= n && n > 0 {
			a.bandCursor = n - 1
		}
		a.refreshOpenBar()

	case "t":
		if err := a.session.ToggleBand(a.bandCursor); err != nil {
			a.notice = err.Error()
			break
		}
		a.refreshOpenBar()

	case "e":
		bands := a.session.Bands()
		if !editing || a.bandCursor >= len(bands) {
			break
		}
		a.editingTime = true
		a.timeInput.SetValue(bands[a.bandCursor].Range())
		return a, a.timeInput.Focus()

	case "s":
		payload, err := a.session.Save()
		if err != nil {
			a.refreshAll()
			return a, nil
		}
		if payload != nil {
			return a, tea.Batch(a.spinner.Tick, a.saveCmd(payload))
		}
	}

	return a, nil
}

// nextBandSlot picks a default range for a new band: two hours starting
// where the last band ends, or 07:00-09:00 on an empty day.
func (a *App) nextBandSlot() (int, int) {
	start := 7 * 60
	for _, b := range a.session.Bands() {
		if b.EndMinutes() > start {
			start = b.EndMinutes()
		}
	}
	if start > schedule.DayMinutes-a.session.Step() {
		start = schedule.DayMinutes - a.session.Step()
	}
	end := start + 2*60
	if end > schedule.DayMinutes {
		end = schedule.DayMinutes
	}
	return start, end
}

func (a *App) saveCmd(payload *session.Payload) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		err := a.saver.SetSchedule(ctx, payload.ZoneID, payload.Step, payload.Schedule)
		return saveResultMsg{submitted: payload.Schedule, err: err}
	}
}

// refreshAll rebuilds every day's timeline bar: the structural redraw
// used when the open day, an error, or the save state changes.
func (a *App) refreshAll() {
	for i, d := range schedule.Weekdays {
		if a.session.Day() == d && a.session.State() != session.StateIdle {
			a.bars[i] = RenderBar(a.session.Segments(), a.barWidth)
		} else {
			a.bars[i] = RenderBar(schedule.BuildSegments(a.session.Persisted().Day(d)), a.barWidth)
		}
	}
}

// refreshOpenBar recomputes only the open day's bar after a band edit,
// leaving the other rows (and any focused input) untouched. Both redraw
// paths produce identical bars for identical buffer contents.
func (a *App) refreshOpenBar() {
	day := a.session.Day()
	if day == "" {
		return
	}
	for i, d := range schedule.Weekdays {
		if d == day {
			a.bars[i] = RenderBar(a.session.Segments(), a.barWidth)
			return
		}
	}
}

func (a *App) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render(fmt.Sprintf("thermoweek — zone %s (%d min step)",
		a.session.ZoneID(), a.session.Step())))
	sb.WriteString("\n")

	summary := schedule.FormatWeek(a.session.Persisted())
	if summary == "" {
		summary = "no schedule"
	}
	sb.WriteString(subtitleStyle.Render(summary))
	sb.WriteString("\n\n")

	openDay := a.session.Day()
	editing := a.session.State() != session.StateIdle

	for i, d := range schedule.Weekdays {
		prefix := "  "
		if i == a.dayCursor {
			prefix = "> "
		}
		label := string(d)
		if editing && d == openDay {
			label = selectedDayStyle.Render(label)
		} else if i == a.dayCursor {
			label = highlightStyle.Render(label)
		}
		sb.WriteString(fmt.Sprintf("%s%s  %s\n", prefix, label, a.bars[i]))

		if editing && d == openDay {
			sb.WriteString(a.viewBands())
		}
	}
	sb.WriteString(fmt.Sprintf("        %s\n", RenderScale(a.barWidth)))

	switch a.session.State() {
	case session.StateSaving:
		sb.WriteString("\n" + a.spinner.View() + " Saving schedule...\n")
	case session.StateError:
		if err := a.session.Err(); err != nil {
			sb.WriteString("\n" + errorStyle.Render("Error: ") + err.Error() + "\n")
		}
	}
	if a.confirm {
		sb.WriteString("\n" + successStyle.Render("Schedule saved") + "\n")
	}
	if a.notice != "" {
		sb.WriteString("\n" + dimStyle.Render(a.notice) + "\n")
	}

	sb.WriteString(a.viewHelp())
	return boxStyle.Render(sb.String())
}

func (a *App) viewBands() string {
	var sb strings.Builder
	bands := a.session.Bands()
	if len(bands) == 0 {
		sb.WriteString(dimStyle.Render("      (no bands — absent all day)") + "\n")
		return sb.String()
	}
	for i, b := range bands {
		marker := "    "
		if i == a.bandCursor {
			marker = "  > "
		}
		line := fmt.Sprintf("%s%-8s %s", marker, b.SetpointType, b.Range())
		if i == a.bandCursor {
			if a.editingTime {
				line = fmt.Sprintf("%s%-8s %s", marker, b.SetpointType, a.timeInput.View())
			} else {
				line = highlightStyle.Render(line)
			}
		}
		sb.WriteString(line + "\n")
	}
	return sb.String()
}

func (a *App) viewHelp() string {
	if a.editingTime {
		return helpStyle.Render("Enter: apply • Esc: cancel")
	}
	switch a.session.State() {
	case session.StateIdle:
		return helpStyle.Render("j/k: day • Enter: edit day • q: quit")
	case session.StateSaving:
		return helpStyle.Render("waiting for the cloud...")
	default:
		return helpStyle.Render("j/k: band • a: add • d: delete • t: toggle • e: retime • s: save • Enter/Esc: close")
	}
}

// parseRange splits "HH:MM-HH:MM" into start/end minutes, parsing each
// side permissively: a malformed side reads as 00:00.
func parseRange(s string) (int, int) {
	startStr, endStr, _ := strings.Cut(strings.TrimSpace(s), "-")
	return schedule.ParseClock(strings.TrimSpace(startStr)).Minutes(),
		schedule.ParseClock(strings.TrimSpace(endStr)).Minutes()
}
