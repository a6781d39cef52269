package tui

import (
	"strings"
	"testing"

	"github.com/lmoroni/thermoweek/internal/schedule"
)

func stripANSI(s string) string {
	var sb strings.Builder
	inEscape := false
	for _, r := range s {
		switch {
		case inEscape:
			if r == 'm' {
				inEscape = false
			}
		case r == '\x1b':
			inEscape = true
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func TestRenderBarWidth(t *testing.T) {
	segments := schedule.BuildSegments([]schedule.Band{
		{ID: 1, SetpointType: schedule.SetpointPresent,
			Start: schedule.Clock{Hour: 7}, End: schedule.Clock{Hour: 22, Min: 30}},
	})

	for _, width := range []int{24, 48, 96} {
		bar := stripANSI(RenderBar(segments, width))
		if got := len([]rune(bar)); got != width {
			t.Errorf("width %d: bar has %d cells", width, got)
		}
	}
}

func TestRenderBarMarksPresence(t *testing.T) {
	// Present 06:00-18:00, the middle half of the day.
	segments := schedule.BuildSegments([]schedule.Band{
		{ID: 1, SetpointType: schedule.SetpointPresent,
			Start: schedule.Clock{Hour: 6}, End: schedule.Clock{Hour: 18}},
	})
	bar := []rune(stripANSI(RenderBar(segments, 48)))

	if bar[0] != absentRune || bar[47] != absentRune {
		t.Errorf("day edges should be absent: %q", string(bar))
	}
	if bar[24] != presentRune {
		t.Errorf("midday should be present: %q", string(bar))
	}
}

func TestRenderBarEmptyDay(t *testing.T) {
	bar := stripANSI(RenderBar(schedule.BuildSegments(nil), 30))
	if bar != strings.Repeat(string(absentRune), 30) {
		t.Errorf("empty day should render all absent: %q", bar)
	}
}

func TestRenderScale(t *testing.T) {
	scale := RenderScale(48)
	for _, tick := range []string{"0", "6", "12", "18", "24"} {
		if !strings.Contains(scale, tick) {
			t.Errorf("scale missing tick %s: %q", tick, scale)
		}
	}
}
