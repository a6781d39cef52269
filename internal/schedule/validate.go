package schedule

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidBandOrder reports a band whose end is not after its start.
	ErrInvalidBandOrder = errors.New("band end must be after its start")

	// ErrOverlappingBands reports two bands in the same day that intersect.
	ErrOverlappingBands = errors.New("bands overlap")
)

// ValidateDay checks a candidate day's bands before they may be persisted.
// Checks run in order and the first failure wins: ordering first, then
// overlap. Back-to-back bands (earlier end == later start) are valid. An
// empty list is valid and means absent all day.
func ValidateDay(bands []Band) error {
	for _, b := range bands {
		if b.StartMinutes() >= b.EndMinutes() {
			return fmt.Errorf("band %s: %w", b.Range(), ErrInvalidBandOrder)
		}
	}

	sorted := SortBands(bands)
	for i := 1; i < len(sorted); i++ {
		prev, next := sorted[i-1], sorted[i]
		if prev.EndMinutes() > next.StartMinutes() {
			return fmt.Errorf("bands %s and %s: %w", prev.Range(), next.Range(), ErrOverlappingBands)
		}
	}
	return nil
}

// ValidateWeek validates every day of a week, reporting the first
// offending day.
func ValidateWeek(week WeekSchedule) error {
	for _, ds := range week {
		if err := ValidateDay(ds.Bands); err != nil {
			return fmt.Errorf("%s: %w", ds.Day, err)
		}
	}
	return nil
}
