package schedule

import (
	"fmt"
	"sort"
)

// SetpointType labels a band (and a derived segment) as occupied or not.
type SetpointType string

const (
	SetpointPresent SetpointType = "present"
	SetpointAbsent  SetpointType = "absent"
)

// Toggle flips present <-> absent. Anything unrecognized becomes present,
// matching the defensive mapping the segment builder applies in reverse.
func (t SetpointType) Toggle() SetpointType {
	if t == SetpointPresent {
		return SetpointAbsent
	}
	return SetpointPresent
}

// Band is one occupancy interval within a day. The ID is a UI identity
// only; ordering and persistence never depend on it.
type Band struct {
	ID           int          `json:"id"`
	SetpointType SetpointType `json:"setpointType"`
	Start        Clock        `json:"start"`
	End          Clock        `json:"end"`
}

func (b Band) StartMinutes() int { return b.Start.Minutes() }
func (b Band) EndMinutes() int   { return b.End.Minutes() }

// Range formats the band's time range as "HH:MM-HH:MM".
func (b Band) Range() string {
	return fmt.Sprintf("%s-%s", b.Start, b.End)
}

// Weekday is the fixed three-letter day tag used on the wire.
type Weekday string

const (
	Monday    Weekday = "MON"
	Tuesday   Weekday = "TUE"
	Wednesday Weekday = "WED"
	Thursday  Weekday = "THU"
	Friday    Weekday = "FRI"
	Saturday  Weekday = "SAT"
	Sunday    Weekday = "SUN"
)

// Weekdays is the fixed week order.
var Weekdays = [7]Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// DaySchedule pairs a weekday tag with its bands. Band order is not
// significant; the engine sorts by start wherever order matters.
type DaySchedule struct {
	Day   Weekday `json:"day"`
	Bands []Band  `json:"bands"`
}

// WeekSchedule is seven DaySchedules, one per weekday, in week order.
// It is the unit of persistence: a single-day edit still submits the
// whole week.
type WeekSchedule []DaySchedule

// NewWeek returns an empty week: all seven days, no bands.
func NewWeek() WeekSchedule {
	week := make(WeekSchedule, 0, len(Weekdays))
	for _, d := range Weekdays {
		week = append(week, DaySchedule{Day: d, Bands: []Band{}})
	}
	return week
}

// Normalize returns a week with all seven day tags present exactly once,
// in fixed order, keeping the bands of any recognized day in w. Unknown
// tags are dropped, missing days come back empty.
func (w WeekSchedule) Normalize() WeekSchedule {
	byDay := make(map[Weekday][]Band, len(w))
	for _, ds := range w {
		byDay[ds.Day] = ds.Bands
	}
	week := make(WeekSchedule, 0, len(Weekdays))
	for _, d := range Weekdays {
		week = append(week, DaySchedule{Day: d, Bands: CloneBands(byDay[d])})
	}
	return week
}

// Day returns the bands for a weekday. Missing days read as empty.
func (w WeekSchedule) Day(d Weekday) []Band {
	for _, ds := range w {
		if ds.Day == d {
			return ds.Bands
		}
	}
	return nil
}

// WithDay returns a deep copy of the week with one day's bands replaced.
// The other six days are copied unchanged.
func (w WeekSchedule) WithDay(d Weekday, bands []Band) WeekSchedule {
	week := make(WeekSchedule, 0, len(w))
	for _, ds := range w {
		if ds.Day == d {
			week = append(week, DaySchedule{Day: d, Bands: CloneBands(bands)})
		} else {
			week = append(week, DaySchedule{Day: ds.Day, Bands: CloneBands(ds.Bands)})
		}
	}
	return week
}

// Clone deep-copies the week.
func (w WeekSchedule) Clone() WeekSchedule {
	week := make(WeekSchedule, 0, len(w))
	for _, ds := range w {
		week = append(week, DaySchedule{Day: ds.Day, Bands: CloneBands(ds.Bands)})
	}
	return week
}

// CloneBands deep-copies a band list. A nil input yields an empty,
// non-nil slice so JSON encodes it as [] rather than null.
func CloneBands(bands []Band) []Band {
	out := make([]Band, len(bands))
	copy(out, bands)
	return out
}

// SortBands returns a copy of bands ordered by start time.
func SortBands(bands []Band) []Band {
	out := CloneBands(bands)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartMinutes() < out[j].StartMinutes()
	})
	return out
}
