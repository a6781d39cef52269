package schedule

import (
	"fmt"
	"strconv"
)

// DayMinutes is the length of a schedule day.
const DayMinutes = 24 * 60

// Clock is a wall-clock time of day as it appears on the wire.
type Clock struct {
	Hour int `json:"hour"`
	Min  int `json:"min"`
}

// Minutes returns the clock time as minutes since midnight.
func (c Clock) Minutes() int {
	return c.Hour*60 + c.Min
}

// String formats the clock time as "HH:MM".
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Min)
}

// ClockFromMinutes converts minutes since midnight back to a Clock.
// The caller guarantees 0 <= total < DayMinutes.
func ClockFromMinutes(total int) Clock {
	return Clock{Hour: total / 60, Min: total % 60}
}

// FormatMinutes renders minutes since midnight as "HH:MM".
func FormatMinutes(total int) string {
	return ClockFromMinutes(total).String()
}

// Snap rounds total to the nearest multiple of step, halves rounding up.
// All values here are non-negative so half-away-from-zero and half-up agree.
func Snap(total, step int) int {
	if step <= 0 {
		return total
	}
	return ((total + step/2) / step) * step
}

// Clamp bounds a snapped value into [0, DayMinutes-step] so a band edge
// can never sit on the exact end of the day.
func Clamp(total, step int) int {
	if total < 0 {
		return 0
	}
	if max := DayMinutes - step; total > max {
		return max
	}
	return total
}

// SnapClamp is the snap-then-clamp composition used by band edits.
func SnapClamp(total, step int) int {
	return Clamp(Snap(total, step), step)
}

// ParseClock parses "HH:MM" permissively: anything malformed or out of
// range yields midnight. The editor echoes the parsed value straight back,
// so the substitution is visible to the user rather than silently kept.
func ParseClock(s string) Clock {
	c, err := ParseClockStrict(s)
	if err != nil {
		return Clock{}
	}
	return c
}

// ParseClockStrict parses "HH:MM" with hour in [0,23] and minute in [0,59].
func ParseClockStrict(s string) (Clock, error) {
	if len(s) != 5 || s[2] != ':' {
		return Clock{}, fmt.Errorf("invalid clock time %q: want HH:MM", s)
	}
	h, err := strconv.Atoi(s[:2])
	if err != nil {
		return Clock{}, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	m, err := strconv.Atoi(s[3:])
	if err != nil {
		return Clock{}, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return Clock{}, fmt.Errorf("clock time %q out of range", s)
	}
	return Clock{Hour: h, Min: m}, nil
}
