package moneta

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lmoroni/thermoweek/internal/schedule"
)

const stateJSON = `[{
	"provider": "planet",
	"unitCode": "UNIT-42",
	"measureUnit": "C",
	"externalTemperature": 11.5,
	"category": "heating",
	"season": {"id": "winter"},
	"zones": [
		{
			"id": "1",
			"temperature": 20.4,
			"humidity": 41,
			"atHome": true,
			"atHomeForScheduler": true,
			"effectiveSetpoint": 21,
			"mode": "auto",
			"setpointSelected": "present",
			"setpoints": [
				{"type": "present", "temperature": 21},
				{"type": "absent", "temperature": 17}
			],
			"calendar": {
				"step": 30,
				"schedule": [
					{"day": "MON", "bands": [
						{"id": 1, "setpointType": "present",
						 "start": {"hour": 7, "min": 0},
						 "end": {"hour": 22, "min": 30}}
					]},
					{"day": "TUE", "bands": []},
					{"day": "WED", "bands": []},
					{"day": "THU", "bands": []},
					{"day": "FRI", "bands": []},
					{"day": "SAT", "bands": []},
					{"day": "SUN", "bands": []}
				]
			}
		},
		{"id": "2", "temperature": 18.0, "mode": "auto", "setpoints": []}
	]
}]`

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient("test-token", srv.URL, time.Minute, nil)
	return client, srv
}

func TestGetState(t *testing.T) {
	var gotAuth, gotSource string
	var gotPayload map[string]any

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotSource = r.Header.Get("x-planet-source")
		json.NewDecoder(r.Body).Decode(&gotPayload)
		w.Write([]byte(stateJSON))
	})

	state, err := client.GetState(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if gotAuth != "Bearer test-token" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotSource != "mobile" {
		t.Errorf("x-planet-source = %q", gotSource)
	}
	if gotPayload["request_type"] != "full_bo" {
		t.Errorf("request_type = %v", gotPayload["request_type"])
	}

	if state.UnitCode != "UNIT-42" || state.Category != "heating" {
		t.Errorf("state = %+v", state)
	}
	if len(state.Zones) != 2 {
		t.Fatalf("got %d zones", len(state.Zones))
	}
	if temp, ok := state.Zones[0].SetpointTemperature(SetpointAbsent); !ok || temp != 17 {
		t.Errorf("absent setpoint = %v, %v", temp, ok)
	}

	cal := state.CanonicalCalendar()
	if cal == nil {
		t.Fatal("no canonical calendar")
	}
	if cal.Step != 30 {
		t.Errorf("step = %d", cal.Step)
	}
	monday := cal.Schedule.Day(schedule.Monday)
	if len(monday) != 1 || monday[0].Start.String() != "07:00" {
		t.Errorf("monday bands = %+v", monday)
	}
}

func TestGetStateUsesCache(t *testing.T) {
	calls := 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(stateJSON))
	})

	ctx := context.Background()
	if _, err := client.GetState(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := client.GetState(ctx); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Fatalf("server hit %d times, want 1 (cache miss)", calls)
	}

	client.InvalidateCache()
	if _, err := client.GetState(ctx); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Fatalf("server hit %d times after invalidation, want 2", calls)
	}
}

func TestSetSchedulePayload(t *testing.T) {
	var payloads []map[string]any
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var p map[string]any
		json.NewDecoder(r.Body).Decode(&p)
		payloads = append(payloads, p)
		w.Write([]byte(stateJSON))
	})

	week := schedule.NewWeek().WithDay(schedule.Friday, []schedule.Band{
		{ID: 1, SetpointType: schedule.SetpointPresent,
			Start: schedule.Clock{Hour: 6}, End: schedule.Clock{Hour: 9, Min: 30}},
	})

	if err := client.SetSchedule(context.Background(), "1", 30, week); err != nil {
		t.Fatal(err)
	}

	// First call fetches state, second pushes the schedule.
	if len(payloads) != 2 {
		t.Fatalf("server saw %d requests, want 2", len(payloads))
	}
	set := payloads[1]
	if set["request_type"] != "post_bo_setpoint" {
		t.Errorf("request_type = %v", set["request_type"])
	}
	if set["unitCode"] != "UNIT-42" || set["category"] != "heating" {
		t.Errorf("unitCode/category = %v/%v", set["unitCode"], set["category"])
	}

	zones := set["zones"].([]any)
	if len(zones) != 1 {
		t.Fatalf("zones = %v", zones)
	}
	zone := zones[0].(map[string]any)
	if zone["id"] != "1" {
		t.Errorf("zone id = %v", zone["id"])
	}
	cal := zone["calendar"].(map[string]any)
	if cal["step"] != float64(30) {
		t.Errorf("step = %v", cal["step"])
	}
	days := cal["schedule"].([]any)
	if len(days) != 7 {
		t.Fatalf("schedule has %d days, want 7", len(days))
	}
	// Empty days must encode bands as [], not null.
	tue := days[1].(map[string]any)
	if bands, ok := tue["bands"].([]any); !ok || len(bands) != 0 {
		t.Errorf("TUE bands = %v (%T)", tue["bands"], tue["bands"])
	}
}

func TestSetScheduleRejectsBadStep(t *testing.T) {
	client := NewClient("t", "http://localhost:0", time.Minute, nil)
	err := client.SetSchedule(context.Background(), "1", 20, schedule.NewWeek())
	if err == nil {
		t.Fatal("step 20 accepted, want error")
	}
}

func TestSetScheduleInvalidatesCache(t *testing.T) {
	calls := 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(stateJSON))
	})

	ctx := context.Background()
	if err := client.SetSchedule(ctx, "1", 30, schedule.NewWeek()); err != nil {
		t.Fatal(err)
	}
	if _, err := client.GetState(ctx); err != nil {
		t.Fatal(err)
	}
	// fetch + write + post-write refetch
	if calls != 3 {
		t.Fatalf("server hit %d times, want 3 (write must invalidate cache)", calls)
	}
}

func TestAPIEmbeddedError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"error": "invalid token"}]`))
	})

	_, err := client.GetState(context.Background())
	if err == nil {
		t.Fatal("embedded error not surfaced")
	}
}

func TestRetryOnServerError(t *testing.T) {
	calls := 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(stateJSON))
	})

	if _, err := client.GetState(context.Background()); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Fatalf("server hit %d times, want 2 (one retry)", calls)
	}
}

func TestSetPartyPayload(t *testing.T) {
	var payloads []map[string]any
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var p map[string]any
		json.NewDecoder(r.Body).Decode(&p)
		payloads = append(payloads, p)
		w.Write([]byte(stateJSON))
	})

	if err := client.SetParty(context.Background(), 2); err != nil {
		t.Fatal(err)
	}

	set := payloads[1]
	zones := set["zones"].([]any)
	if len(zones) != 2 {
		t.Fatalf("party must target all zones, got %d", len(zones))
	}
	first := zones[0].(map[string]any)
	if first["mode"] != "party" || first["expiration"] != float64(2) {
		t.Errorf("zone payload = %v", first)
	}
	if first["currentManualTemperature"] != float64(21) {
		t.Errorf("manual temperature = %v, want present setpoint 21", first["currentManualTemperature"])
	}
}

func TestSetManualTemperaturePayload(t *testing.T) {
	var payloads []map[string]any
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var p map[string]any
		json.NewDecoder(r.Body).Decode(&p)
		payloads = append(payloads, p)
		w.Write([]byte(stateJSON))
	})

	if err := client.SetManualTemperature(context.Background(), "1", 22.5); err != nil {
		t.Fatal(err)
	}

	set := payloads[1]
	if set["request_type"] != "post_bo_setpoint" || set["unitCode"] != "UNIT-42" {
		t.Errorf("payload = %v", set)
	}
	zones := set["zones"].([]any)
	if len(zones) != 1 {
		t.Fatalf("manual hold targets one zone, got %d", len(zones))
	}
	zone := zones[0].(map[string]any)
	if zone["id"] != "1" || zone["mode"] != "manual" {
		t.Errorf("zone payload = %v", zone)
	}
	if zone["currentManualTemperature"] != float64(22.5) {
		t.Errorf("manual temperature = %v", zone["currentManualTemperature"])
	}
}

func TestSetPresentAbsentTemperaturePayload(t *testing.T) {
	var payloads []map[string]any
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var p map[string]any
		json.NewDecoder(r.Body).Decode(&p)
		payloads = append(payloads, p)
		w.Write([]byte(stateJSON))
	})

	present, absent := 22.0, 16.0
	if err := client.SetPresentAbsentTemperature(context.Background(), "1", &present, &absent); err != nil {
		t.Fatal(err)
	}

	set := payloads[1]
	zones := set["zones"].([]any)
	zone := zones[0].(map[string]any)
	setpoints := zone["setpoints"].([]any)
	if len(setpoints) != 2 {
		t.Fatalf("got %d setpoints, want 2", len(setpoints))
	}
	first := setpoints[0].(map[string]any)
	if first["type"] != "present" || first["temperature"] != float64(22) {
		t.Errorf("present setpoint = %v", first)
	}
	if _, ok := zone["mode"]; ok {
		t.Error("setpoint update must not change the zone mode")
	}
}

func TestSetPresentAbsentTemperatureSkipsUnchanged(t *testing.T) {
	calls := 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(stateJSON))
	})

	// Zone 1 already has present=21 and absent=17.
	present, absent := 21.0, 17.0
	if err := client.SetPresentAbsentTemperature(context.Background(), "1", &present, &absent); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Fatalf("server hit %d times, want 1 (state fetch only, no write)", calls)
	}

	// One changed value still goes out, carrying just that setpoint.
	var payloads []map[string]any
	client2, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var p map[string]any
		json.NewDecoder(r.Body).Decode(&p)
		payloads = append(payloads, p)
		w.Write([]byte(stateJSON))
	})
	absent2 := 15.0
	if err := client2.SetPresentAbsentTemperature(context.Background(), "1", &present, &absent2); err != nil {
		t.Fatal(err)
	}
	zone := payloads[1]["zones"].([]any)[0].(map[string]any)
	setpoints := zone["setpoints"].([]any)
	if len(setpoints) != 1 {
		t.Fatalf("got %d setpoints, want only the changed one", len(setpoints))
	}
	sp := setpoints[0].(map[string]any)
	if sp["type"] != "absent" || sp["temperature"] != float64(15) {
		t.Errorf("setpoint = %v", sp)
	}
}

func TestSetPresentAbsentTemperatureUnknownZone(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(stateJSON))
	})

	present := 22.0
	if err := client.SetPresentAbsentTemperature(context.Background(), "99", &present, nil); err == nil {
		t.Fatal("expected an error for an unknown zone")
	}
}

func TestSetHeatCoolPayload(t *testing.T) {
	var payloads []map[string]any
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var p map[string]any
		json.NewDecoder(r.Body).Decode(&p)
		payloads = append(payloads, p)
		w.Write([]byte(stateJSON))
	})

	if err := client.SetHeatCool(context.Background()); err != nil {
		t.Fatal(err)
	}

	set := payloads[1]
	zones := set["zones"].([]any)
	if len(zones) != 2 {
		t.Fatalf("manual mode targets all zones, got %d", len(zones))
	}
	first := zones[0].(map[string]any)
	if first["mode"] != "manual" || first["currentManualTemperature"] != float64(21) {
		t.Errorf("zone payload = %v", first)
	}
	// Zone 2 has no present setpoint; the default applies.
	second := zones[1].(map[string]any)
	if second["currentManualTemperature"] != float64(21) {
		t.Errorf("fallback temperature = %v, want 21", second["currentManualTemperature"])
	}
}
