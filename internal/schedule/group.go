package schedule

import (
	"fmt"
	"strings"
)

// Group is a run of contiguous days sharing an identical band set, used
// for the compact weekly summary.
type Group struct {
	First Weekday
	Last  Weekday
	Bands []Band // sorted by start
}

// String renders a group as "MON 07:00-22:30" or "SAT-SUN 09:00-23:00".
// Only the time ranges appear; setpoint types are not part of the summary.
func (g Group) String() string {
	ranges := make([]string, len(g.Bands))
	for i, b := range g.Bands {
		ranges[i] = b.Range()
	}
	days := string(g.First)
	if g.First != g.Last {
		days = fmt.Sprintf("%s-%s", g.First, g.Last)
	}
	return days + " " + strings.Join(ranges, ", ")
}

// GroupWeek collapses a week into contiguous-day groups. Days with no
// bands are skipped entirely, and they break runs: equal band sets on
// either side of an empty day form two separate groups. Two days merge
// only when their sorted band lists match pairwise on both start and end.
func GroupWeek(week WeekSchedule) []Group {
	normalized := week.Normalize()

	var groups []Group
	open := false
	for _, ds := range normalized {
		if len(ds.Bands) == 0 {
			open = false
			continue
		}
		sorted := SortBands(ds.Bands)
		if open && sameRanges(groups[len(groups)-1].Bands, sorted) {
			groups[len(groups)-1].Last = ds.Day
			continue
		}
		groups = append(groups, Group{First: ds.Day, Last: ds.Day, Bands: sorted})
		open = true
	}
	return groups
}

// FormatWeek renders the whole week summary, groups joined by " | ".
// A week with no active days renders as the empty string.
func FormatWeek(week WeekSchedule) string {
	groups := GroupWeek(week)
	parts := make([]string, len(groups))
	for i, g := range groups {
		parts[i] = g.String()
	}
	return strings.Join(parts, " | ")
}

// sameRanges reports whether two sorted band lists cover identical time
// ranges. Setpoint type is deliberately not compared: the summary shows
// ranges only.
func sameRanges(a, b []Band) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].StartMinutes() != b[i].StartMinutes() || a[i].EndMinutes() != b[i].EndMinutes() {
			return false
		}
	}
	return true
}
