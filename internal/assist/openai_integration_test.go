//go:build integration

package assist_test

import (
	"context"
	"testing"
	"time"

	"github.com/lmoroni/thermoweek/internal/assist"
	"github.com/lmoroni/thermoweek/internal/schedule"

	"log/slog"
	"os"
)

func skipIfNoAPIKey(t *testing.T) string {
	t.Helper()
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		t.Skip("OPENAI_API_KEY not set, skipping integration test")
	}
	return key
}

// testLogger creates a verbose slog.Logger that writes to stderr
func testLogger(t *testing.T) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

func TestOpenAI_SuggestWeek_Simple(t *testing.T) {
	key := skipIfNoAPIKey(t)

	provider := assist.NewOpenAI(key, "gpt-4o-mini", "", testLogger(t))
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	description := "I work from the office Monday to Friday 9 to 5, home evenings until 11pm, and home all weekend"
	t.Logf("Starting SuggestWeek with description: %q", description)
	t.Logf("Step: 30 minutes")

	suggestion, err := provider.SuggestWeek(ctx, description, 30)
	if err != nil {
		t.Fatalf("SuggestWeek failed: %v", err)
	}

	t.Logf("Raw suggestion: %+v", suggestion)
	t.Logf("Days count: %d", len(suggestion.Days))
	t.Logf("Clarification: %q", suggestion.Clarification)

	if suggestion.Clarification != "" {
		t.Fatalf("expected a schedule, got a clarification: %s", suggestion.Clarification)
	}

	week, err := suggestion.Week(30)
	if err != nil {
		t.Fatalf("converting suggestion: %v", err)
	}

	t.Logf("Formatted week: %s", schedule.FormatWeek(week))

	weekdayBands := week.Day(schedule.Monday)
	if len(weekdayBands) == 0 {
		t.Error("expected at least one band on Monday")
	}
	for _, b := range weekdayBands {
		t.Logf("MON band: %s %s", b.SetpointType, b.Range())
		if b.StartMinutes()%30 != 0 || b.EndMinutes()%30 != 0 {
			t.Errorf("band %s not aligned to 30-minute step", b.Range())
		}
	}

	if len(week.Day(schedule.Saturday)) == 0 {
		t.Error("expected at least one band on Saturday")
	}
}

func TestOpenAI_SuggestWeek_Ambiguous(t *testing.T) {
	key := skipIfNoAPIKey(t)

	provider := assist.NewOpenAI(key, "gpt-4o-mini", "", testLogger(t))
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	t.Log("Starting SuggestWeek with an ambiguous description")

	suggestion, err := provider.SuggestWeek(ctx, "sometimes I'm around", 30)
	if err != nil {
		t.Fatalf("SuggestWeek failed: %v", err)
	}

	t.Logf("Clarification: %q", suggestion.Clarification)
	t.Logf("Days count: %d", len(suggestion.Days))

	// The model should either ask for detail or make a reasonable guess;
	// both are acceptable, but the answer must be one or the other.
	if suggestion.Clarification == "" && len(suggestion.Days) == 0 {
		t.Error("expected either a clarification or a drafted schedule")
	}
}
