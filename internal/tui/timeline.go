package tui

import (
	"strings"

	"github.com/lmoroni/thermoweek/internal/schedule"
)

const (
	presentRune = '█'
	absentRune  = '░'
)

// RenderBar draws a day's segments as a fixed-width bar, one rune per
// slice of the day. Every cell is colored by the segment covering the
// cell's midpoint minute.
func RenderBar(segments []schedule.Segment, width int) string {
	if width <= 0 {
		return ""
	}

	var run strings.Builder
	var out strings.Builder
	flush := func(present bool) {
		if run.Len() == 0 {
			return
		}
		if present {
			out.WriteString(presentStyle.Render(run.String()))
		} else {
			out.WriteString(absentStyle.Render(run.String()))
		}
		run.Reset()
	}

	lastPresent := false
	for cell := 0; cell < width; cell++ {
		midpoint := (2*cell + 1) * schedule.DayMinutes / (2 * width)
		isPresent := typeAt(segments, midpoint) == schedule.SetpointPresent
		if cell > 0 && isPresent != lastPresent {
			flush(lastPresent)
		}
		if isPresent {
			run.WriteRune(presentRune)
		} else {
			run.WriteRune(absentRune)
		}
		lastPresent = isPresent
	}
	flush(lastPresent)

	return out.String()
}

// RenderScale draws hour tick labels aligned under a bar of the given
// width, e.g. "0    6    12   18   24".
func RenderScale(width int) string {
	if width < 8 {
		return ""
	}
	ticks := []struct {
		hour  int
		label string
	}{
		{0, "0"}, {6, "6"}, {12, "12"}, {18, "18"},
	}
	line := make([]byte, width)
	for i := range line {
		line[i] = ' '
	}
	for _, t := range ticks {
		pos := t.hour * width / 24
		for j := 0; j < len(t.label) && pos+j < width; j++ {
			line[pos+j] = t.label[j]
		}
	}
	return dimStyle.Render(strings.TrimRight(string(line), " ") + " 24")
}

func typeAt(segments []schedule.Segment, minute int) schedule.SetpointType {
	for _, s := range segments {
		if minute >= s.Start && minute < s.End {
			return s.Type
		}
	}
	return schedule.SetpointAbsent
}
