package assist

import (
	"fmt"

	"github.com/lmoroni/thermoweek/internal/schedule"
)

// Suggestion is the structured answer the model returns: a plan for each
// day it wants to be active, or a clarification request when the
// description is too vague to schedule.
type Suggestion struct {
	Days          []DayPlan `json:"days"`
	Clarification string    `json:"clarification,omitempty"`
}

type DayPlan struct {
	Day   string     `json:"day"` // MON..SUN
	Bands []BandPlan `json:"bands"`
}

type BandPlan struct {
	Start        string `json:"start"`         // HH:MM
	End          string `json:"end"`           // HH:MM
	SetpointType string `json:"setpoint_type"` // present | absent
}

// Week converts the suggestion into a full week schedule: strict clock
// parsing, edges snapped to the step, fresh band IDs per day, and every
// day validated before the result is handed back.
func (s *Suggestion) Week(step int) (schedule.WeekSchedule, error) {
	week := schedule.NewWeek()
	for _, plan := range s.Days {
		day := schedule.Weekday(plan.Day)
		if !validWeekday(day) {
			return nil, fmt.Errorf("unknown day tag %q", plan.Day)
		}
		bands := make([]schedule.Band, 0, len(plan.Bands))
		for i, bp := range plan.Bands {
			start, err := schedule.ParseClockStrict(bp.Start)
			if err != nil {
				return nil, fmt.Errorf("%s band %d: %w", day, i+1, err)
			}
			end, err := schedule.ParseClockStrict(bp.End)
			if err != nil {
				return nil, fmt.Errorf("%s band %d: %w", day, i+1, err)
			}
			t := schedule.SetpointAbsent
			if bp.SetpointType == string(schedule.SetpointPresent) {
				t = schedule.SetpointPresent
			}
			bands = append(bands, schedule.Band{
				ID:           i + 1,
				SetpointType: t,
				Start:        schedule.ClockFromMinutes(schedule.SnapClamp(start.Minutes(), step)),
				End:          schedule.ClockFromMinutes(schedule.SnapClamp(end.Minutes(), step)),
			})
		}
		if err := schedule.ValidateDay(bands); err != nil {
			return nil, fmt.Errorf("%s: %w", day, err)
		}
		week = week.WithDay(day, bands)
	}
	return week, nil
}

func validWeekday(d schedule.Weekday) bool {
	for _, w := range schedule.Weekdays {
		if w == d {
			return true
		}
	}
	return false
}
