// Package moneta is the HTTP client for the Planet Smart City thermostat
// cloud. The API is a single POST endpoint that multiplexes reads and
// writes on a request_type field.
package moneta

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/lmoroni/thermoweek/internal/schedule"
)

const (
	defaultBaseURL = "https://portal.planetsmartcity.com/api/v3"
	endpoint       = "/sensors_data_request"

	requestTypeFull     = "full_bo"
	requestTypeSetpoint = "post_bo_setpoint"
)

type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	cache      *stateCache
	logger     *slog.Logger
}

func NewClient(token, baseURL string, cacheTTL time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		token:   token,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		cache:  newStateCache(cacheTTL),
		logger: logger,
	}
}

// apiError is the error shape the cloud embeds in an otherwise 200
// response: the first array element carries an "error" field.
type apiError struct {
	Error string `json:"error"`
}

func (c *Client) doRequest(ctx context.Context, payload any) ([]json.RawMessage, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling request body: %w", err)
	}

	url := c.baseURL + endpoint

	c.logger.Debug("moneta API request", "bytes", len(data))

	var resp *http.Response
	maxRetries := 3
	requestStart := time.Now()
	for attempt := 0; attempt <= maxRetries; attempt++ {
		// Fresh request each attempt: the body reader is consumed by Do.
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("x-planet-source", "mobile")
		req.Header.Set("timezone-offset", "-60")
		req.Header.Set("Content-Type", "application/json")

		resp, err = c.httpClient.Do(req)
		if err != nil {
			if attempt == maxRetries {
				c.logger.Error("API request transport error", "error", err, "elapsed", time.Since(requestStart))
				return nil, fmt.Errorf("sending request: %w", err)
			}
			c.logger.Debug("API request transport error, retrying", "attempt", attempt+1, "error", err)
			time.Sleep(backoff(attempt))
			continue
		}

		if resp.StatusCode == 429 || resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == maxRetries {
				c.logger.Error("API request failed after retries", "status", resp.StatusCode, "attempts", maxRetries+1)
				return nil, fmt.Errorf("API returned status %d after %d retries", resp.StatusCode, maxRetries)
			}
			c.logger.Debug("API request retryable error", "status", resp.StatusCode, "attempt", attempt+1)
			time.Sleep(backoff(attempt))
			continue
		}
		break
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	c.logger.Debug("moneta API response", "status", resp.StatusCode, "bytes", len(respBody), "elapsed", time.Since(requestStart))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("API request failed", "status", resp.StatusCode, "response", truncate(string(respBody), 200))
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(respBody, &elements); err != nil {
		return nil, fmt.Errorf("parsing response array: %w", err)
	}
	if len(elements) == 0 {
		return nil, fmt.Errorf("empty API response")
	}

	var apiErr apiError
	if err := json.Unmarshal(elements[0], &apiErr); err == nil && apiErr.Error != "" {
		c.logger.Error("API rejected request", "error", apiErr.Error)
		return nil, fmt.Errorf("API error: %s", apiErr.Error)
	}

	return elements, nil
}

func backoff(attempt int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempt))) * time.Second
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// GetState fetches the full thermostat state, serving from the TTL cache
// when it is still warm.
func (c *Client) GetState(ctx context.Context) (*Thermostat, error) {
	if cached := c.cache.Get(); cached != nil {
		return cached, nil
	}

	elements, err := c.doRequest(ctx, map[string]any{"request_type": requestTypeFull})
	if err != nil {
		return nil, fmt.Errorf("getting thermostat state: %w", err)
	}

	var state Thermostat
	if err := json.Unmarshal(elements[0], &state); err != nil {
		return nil, fmt.Errorf("parsing thermostat state: %w", err)
	}

	c.cache.Set(&state)
	return &state, nil
}

// setRequest sends a post_bo_setpoint write and invalidates the state
// cache on success so the next read sees the change.
func (c *Client) setRequest(ctx context.Context, state *Thermostat, zones []map[string]any) error {
	payload := map[string]any{
		"request_type": requestTypeSetpoint,
		"unitCode":     state.UnitCode,
		"category":     state.Category,
		"zones":        zones,
	}
	if _, err := c.doRequest(ctx, payload); err != nil {
		return err
	}
	c.cache.Invalidate()
	return nil
}

// SetSchedule pushes a full seven-day schedule to one zone. The whole
// week is always sent, even when only one day changed.
func (c *Client) SetSchedule(ctx context.Context, zoneID string, step int, week schedule.WeekSchedule) error {
	if step != 15 && step != 30 {
		return fmt.Errorf("invalid schedule step %d: must be 15 or 30", step)
	}
	state, err := c.GetState(ctx)
	if err != nil {
		return err
	}

	zones := []map[string]any{{
		"id": zoneID,
		"calendar": Calendar{
			Step:     step,
			Schedule: week.Normalize(),
		},
	}}
	if err := c.setRequest(ctx, state, zones); err != nil {
		return fmt.Errorf("setting schedule for zone %s: %w", zoneID, err)
	}

	c.logger.Info("schedule updated", "zone", zoneID, "step", step)
	return nil
}

// SetAuto restores automatic (scheduled) operation on all zones.
func (c *Client) SetAuto(ctx context.Context) error {
	state, err := c.GetState(ctx)
	if err != nil {
		return err
	}
	zones := make([]map[string]any, 0, len(state.Zones))
	for _, z := range state.Zones {
		zones = append(zones, map[string]any{"id": z.ID, "mode": ModeAuto, "expiration": 0})
	}
	if err := c.setRequest(ctx, state, zones); err != nil {
		return fmt.Errorf("setting auto mode: %w", err)
	}
	return nil
}

// SetParty holds every zone at its present setpoint regardless of the
// schedule, for expirationHours hours.
func (c *Client) SetParty(ctx context.Context, expirationHours int) error {
	state, err := c.GetState(ctx)
	if err != nil {
		return err
	}
	zones := make([]map[string]any, 0, len(state.Zones))
	for _, z := range state.Zones {
		temp, ok := z.SetpointTemperature(SetpointPresent)
		if !ok {
			temp = 21.0
		}
		zones = append(zones, map[string]any{
			"id":                       z.ID,
			"mode":                     ModeParty,
			"expiration":               expirationHours,
			"currentManualTemperature": temp,
			"setpoints": []Setpoint{
				{Type: SetpointEffective, Temperature: temp},
			},
		})
	}
	if err := c.setRequest(ctx, state, zones); err != nil {
		return fmt.Errorf("setting party mode: %w", err)
	}
	return nil
}

// SetOff turns every zone off. The cloud wants an effective setpoint just
// above the current temperature so the valve actually closes.
func (c *Client) SetOff(ctx context.Context) error {
	state, err := c.GetState(ctx)
	if err != nil {
		return err
	}
	zones := make([]map[string]any, 0, len(state.Zones))
	for _, z := range state.Zones {
		zones = append(zones, map[string]any{
			"id":         z.ID,
			"mode":       ModeOff,
			"expiration": 0,
			"setpoints": []Setpoint{
				{Type: SetpointEffective, Temperature: z.Temperature + 1},
			},
		})
	}
	if err := c.setRequest(ctx, state, zones); err != nil {
		return fmt.Errorf("setting off mode: %w", err)
	}
	return nil
}

// SetFrostProtection holds every zone at its absent setpoint with mode
// off: minimal energy use while keeping pipes from freezing.
func (c *Client) SetFrostProtection(ctx context.Context) error {
	state, err := c.GetState(ctx)
	if err != nil {
		return err
	}
	zones := make([]map[string]any, 0, len(state.Zones))
	for _, z := range state.Zones {
		temp, ok := z.SetpointTemperature(SetpointAbsent)
		if !ok {
			temp = 7.0
		}
		zones = append(zones, map[string]any{
			"id":         z.ID,
			"mode":       ModeOff,
			"expiration": 0,
			"setpoints": []Setpoint{
				{Type: SetpointEffective, Temperature: temp},
			},
		})
	}
	if err := c.setRequest(ctx, state, zones); err != nil {
		return fmt.Errorf("setting frost protection: %w", err)
	}
	return nil
}

// SetManualTemperature holds one zone in manual mode at the given
// temperature.
func (c *Client) SetManualTemperature(ctx context.Context, zoneID string, temperature float64) error {
	state, err := c.GetState(ctx)
	if err != nil {
		return err
	}
	zones := []map[string]any{{
		"id":                       zoneID,
		"mode":                     ModeManual,
		"currentManualTemperature": temperature,
	}}
	if err := c.setRequest(ctx, state, zones); err != nil {
		return fmt.Errorf("setting manual temperature for zone %s: %w", zoneID, err)
	}
	c.logger.Info("manual temperature set", "zone", zoneID, "temperature", temperature)
	return nil
}

// SetPresentAbsentTemperature updates a zone's present and/or absent
// setpoints, the temperatures the weekly schedule switches between. A nil
// value leaves that setpoint alone; a value equal to the current one is
// dropped, and when nothing would change no write goes out at all.
func (c *Client) SetPresentAbsentTemperature(ctx context.Context, zoneID string, present, absent *float64) error {
	state, err := c.GetState(ctx)
	if err != nil {
		return err
	}
	zone := state.Zone(zoneID)
	if zone == nil {
		return fmt.Errorf("unknown zone %s", zoneID)
	}

	var setpoints []Setpoint
	if present != nil {
		if cur, ok := zone.SetpointTemperature(SetpointPresent); !ok || cur != *present {
			setpoints = append(setpoints, Setpoint{Type: SetpointPresent, Temperature: *present})
		}
	}
	if absent != nil {
		if cur, ok := zone.SetpointTemperature(SetpointAbsent); !ok || cur != *absent {
			setpoints = append(setpoints, Setpoint{Type: SetpointAbsent, Temperature: *absent})
		}
	}
	if len(setpoints) == 0 {
		c.logger.Debug("setpoints already current, skipping write", "zone", zoneID)
		return nil
	}

	zones := []map[string]any{{"id": zoneID, "setpoints": setpoints}}
	if err := c.setRequest(ctx, state, zones); err != nil {
		return fmt.Errorf("setting setpoints for zone %s: %w", zoneID, err)
	}
	return nil
}

// SetHeatCool holds every zone in manual mode at its present setpoint.
func (c *Client) SetHeatCool(ctx context.Context) error {
	state, err := c.GetState(ctx)
	if err != nil {
		return err
	}
	zones := make([]map[string]any, 0, len(state.Zones))
	for _, z := range state.Zones {
		temp, ok := z.SetpointTemperature(SetpointPresent)
		if !ok {
			temp = 21.0
		}
		zones = append(zones, map[string]any{
			"id":                       z.ID,
			"mode":                     ModeManual,
			"currentManualTemperature": temp,
			"setpoints": []Setpoint{
				{Type: SetpointEffective, Temperature: temp},
			},
		})
	}
	if err := c.setRequest(ctx, state, zones); err != nil {
		return fmt.Errorf("setting manual mode: %w", err)
	}
	return nil
}

// InvalidateCache drops the cached state so the next read refetches.
func (c *Client) InvalidateCache() {
	c.cache.Invalidate()
}
