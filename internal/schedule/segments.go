package schedule

// Segment is a derived half-open minute interval [Start, End) used only
// for rendering. Segments are never persisted; they are recomputed from a
// day's bands whenever needed.
type Segment struct {
	Start int
	End   int
	Type  SetpointType
}

// Len returns the segment length in minutes.
func (s Segment) Len() int { return s.End - s.Start }

// BuildSegments turns a day's bands into an ordered partition of the full
// day: every minute of [0, DayMinutes) is covered exactly once, with
// absent filler inserted wherever no band applies. Any setpoint type other
// than "present" maps to absent, so unknown types never leak into the
// output.
//
// The input is assumed to satisfy the non-overlap invariant; overlap
// detection is the validator's job. Handed overlapping bands, the output
// is garbage in the same way the input was.
func BuildSegments(bands []Band) []Segment {
	sorted := SortBands(bands)
	segments := make([]Segment, 0, 2*len(sorted)+1)

	cursor := 0
	for _, b := range sorted {
		start, end := b.StartMinutes(), b.EndMinutes()
		if start > cursor {
			segments = append(segments, Segment{Start: cursor, End: start, Type: SetpointAbsent})
		}
		t := SetpointAbsent
		if b.SetpointType == SetpointPresent {
			t = SetpointPresent
		}
		segments = append(segments, Segment{Start: start, End: end, Type: t})
		cursor = end
	}
	if cursor < DayMinutes {
		segments = append(segments, Segment{Start: cursor, End: DayMinutes, Type: SetpointAbsent})
	}
	return segments
}
