package moneta

import "github.com/lmoroni/thermoweek/internal/schedule"

// Zone modes as the cloud reports and accepts them.
const (
	ModeAuto    = "auto"
	ModeOff     = "off"
	ModeManual  = "manual"
	ModeParty   = "party"
	ModeHoliday = "holiday"
)

// Setpoint types on the wire. Effective is read-only state; the schedule
// engine only ever writes present/absent.
const (
	SetpointPresent   = "present"
	SetpointAbsent    = "absent"
	SetpointEffective = "effective"
)

type Setpoint struct {
	Type        string  `json:"type"`
	Temperature float64 `json:"temperature"`
}

// Calendar is a zone's weekly schedule: the band step granularity in
// minutes (15 or 30) and the seven-day schedule.
type Calendar struct {
	Step     int                   `json:"step"`
	Schedule schedule.WeekSchedule `json:"schedule"`
}

type Zone struct {
	ID                 string     `json:"id"`
	Temperature        float64    `json:"temperature"`
	Humidity           float64    `json:"humidity"`
	AtHome             bool       `json:"atHome"`
	AtHomeForScheduler bool       `json:"atHomeForScheduler"`
	EffectiveSetpoint  float64    `json:"effectiveSetpoint"`
	Setpoints          []Setpoint `json:"setpoints"`
	Mode               string     `json:"mode"`
	SetpointSelected   string     `json:"setpointSelected"`
	Calendar           *Calendar  `json:"calendar,omitempty"`
}

// SetpointTemperature returns the temperature for a setpoint type, or
// false when the zone has no such setpoint.
func (z Zone) SetpointTemperature(setpointType string) (float64, bool) {
	for _, sp := range z.Setpoints {
		if sp.Type == setpointType {
			return sp.Temperature, true
		}
	}
	return 0, false
}

type Season struct {
	ID string `json:"id"`
}

// Thermostat is the full state the cloud returns for one unit.
type Thermostat struct {
	Provider            string  `json:"provider"`
	UnitCode            string  `json:"unitCode"`
	MeasureUnit         string  `json:"measureUnit"`
	ExternalTemperature float64 `json:"externalTemperature"`
	Category            string  `json:"category"` // heating | cooling | off
	Season              Season  `json:"season"`
	Zones               []Zone  `json:"zones"`
}

// Zone returns a zone by ID, or nil.
func (t *Thermostat) Zone(id string) *Zone {
	for i := range t.Zones {
		if t.Zones[i].ID == id {
			return &t.Zones[i]
		}
	}
	return nil
}

// CanonicalCalendar returns the calendar of the first zone that has one
// with a non-empty schedule. All zones share the weekly schedule, so the
// first populated calendar is the canonical source for display and edits.
func (t *Thermostat) CanonicalCalendar() *Calendar {
	for i := range t.Zones {
		cal := t.Zones[i].Calendar
		if cal != nil && len(cal.Schedule) > 0 {
			return cal
		}
	}
	return nil
}
