// Package export renders a week schedule as an iCalendar feed: one
// weekly-recurring event per band, so the thermostat's occupancy plan can
// be overlaid on a normal calendar app.
package export

import (
	"errors"
	"fmt"
	"io"
	"time"

	ical "github.com/emersion/go-ical"

	"github.com/lmoroni/thermoweek/internal/schedule"
)

// ErrEmptyWeek reports a week with no bands. An event-less VCALENDAR is
// not encodable, so there is nothing to write.
var ErrEmptyWeek = errors.New("week has no bands to export")

// byDayCodes maps weekday tags to RRULE BYDAY codes.
var byDayCodes = map[schedule.Weekday]string{
	schedule.Monday:    "MO",
	schedule.Tuesday:   "TU",
	schedule.Wednesday: "WE",
	schedule.Thursday:  "TH",
	schedule.Friday:    "FR",
	schedule.Saturday:  "SA",
	schedule.Sunday:    "SU",
}

// WeekStart returns the most recent Monday midnight at or before t, the
// anchor date for the recurring events.
func WeekStart(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	offset := (int(day.Weekday()) + 6) % 7 // Monday=0 .. Sunday=6
	return day.AddDate(0, 0, -offset)
}

// WriteWeek encodes the week schedule as a VCALENDAR. weekStart anchors
// the first occurrence of each event; every event repeats weekly on its
// day.
func WriteWeek(w io.Writer, week schedule.WeekSchedule, weekStart time.Time) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//thermoweek//weekly schedule//EN")

	now := time.Now().UTC()
	for i, ds := range week.Normalize() {
		date := weekStart.AddDate(0, 0, i)
		for _, b := range schedule.SortBands(ds.Bands) {
			event := ical.NewEvent()
			event.Props.SetText(ical.PropUID,
				fmt.Sprintf("%s-%s@thermoweek", ds.Day, b.Range()))
			event.Props.SetDateTime(ical.PropDateTimeStamp, now)
			event.Props.SetDateTime(ical.PropDateTimeStart, clockOn(date, b.Start))
			event.Props.SetDateTime(ical.PropDateTimeEnd, clockOn(date, b.End))
			event.Props.SetText(ical.PropSummary, summary(b.SetpointType))

			// Raw prop: SetText would escape the semicolons RRULE needs.
			rrule := ical.NewProp(ical.PropRecurrenceRule)
			rrule.Value = "FREQ=WEEKLY;BYDAY=" + byDayCodes[ds.Day]
			event.Props.Set(rrule)

			cal.Children = append(cal.Children, event.Component)
		}
	}

	if len(cal.Children) == 0 {
		return ErrEmptyWeek
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("encoding calendar: %w", err)
	}
	return nil
}

func clockOn(date time.Time, c schedule.Clock) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), c.Hour, c.Min, 0, 0, date.Location())
}

func summary(t schedule.SetpointType) string {
	if t == schedule.SetpointPresent {
		return "Heating: present"
	}
	return "Heating: absent"
}
