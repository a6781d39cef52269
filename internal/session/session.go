// Package session implements the edit protocol for one day of a weekly
// thermostat schedule: load a day into a private buffer, mutate it with
// live segment previews, validate on save, and hand the caller a
// full-week payload to submit.
package session

import (
	"errors"
	"fmt"

	"github.com/lmoroni/thermoweek/internal/schedule"
)

// State is the edit session state.
type State int

const (
	// StateIdle means no day is open for editing.
	StateIdle State = iota
	// StateEditing means one day's buffer is open with unsaved changes.
	StateEditing
	// StateSaving means a save is in flight; mutations are rejected.
	StateSaving
	// StateError means the last save attempt failed; the buffer is still
	// open and editable so the user can correct and retry.
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEditing:
		return "editing"
	case StateSaving:
		return "saving"
	case StateError:
		return "error"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

var (
	// ErrNotEditing is returned by buffer operations when no day is open.
	ErrNotEditing = errors.New("no day open for editing")

	// ErrSaveInFlight is returned by buffer operations while a save is in
	// flight. A later edit could otherwise be silently dropped by a save
	// that already captured the prior buffer snapshot.
	ErrSaveInFlight = errors.New("save in flight")

	// ErrBandIndex is returned for an out-of-range band position. Band
	// positions are not stable identities; they must be re-read after
	// every mutation.
	ErrBandIndex = errors.New("band index out of range")
)

// Payload is the outbound persistence command: the full seven-day
// schedule is always sent, even though only one day changed.
type Payload struct {
	ZoneID   string
	Step     int
	Schedule schedule.WeekSchedule
}

// Session owns the single edit buffer for a week schedule. At most one
// day is open and at most one save is in flight at any time. A Session is
// not safe for concurrent use; it is driven by one event loop.
type Session struct {
	state     State
	day       schedule.Weekday
	buffer    []schedule.Band
	persisted schedule.WeekSchedule
	zoneID    string
	step      int
	err       error
	nextID    int
}

// New creates an idle session over the last known persisted week.
func New(persisted schedule.WeekSchedule, zoneID string, step int) *Session {
	return &Session{
		state:     StateIdle,
		persisted: persisted.Normalize(),
		zoneID:    zoneID,
		step:      step,
	}
}

func (s *Session) State() State          { return s.state }
func (s *Session) Day() schedule.Weekday { return s.day }
func (s *Session) Err() error            { return s.err }
func (s *Session) Step() int             { return s.step }
func (s *Session) ZoneID() string        { return s.zoneID }

// Persisted returns the last known persisted week.
func (s *Session) Persisted() schedule.WeekSchedule { return s.persisted }

// Bands returns a copy of the open buffer. Empty when idle.
func (s *Session) Bands() []schedule.Band {
	return schedule.CloneBands(s.buffer)
}

// Segments rebuilds the live preview partition for the open day.
func (s *Session) Segments() []schedule.Segment {
	return schedule.BuildSegments(s.buffer)
}

// OpenDay opens a day for editing. Opening the already-open day closes
// the session instead (a toggle), discarding the buffer. Opening a
// different day while one is open discards the old buffer and starts
// fresh from the persisted bands.
func (s *Session) OpenDay(d schedule.Weekday) {
	if s.state == StateSaving {
		return
	}
	if s.state != StateIdle && s.day == d {
		s.close()
		return
	}
	s.state = StateEditing
	s.day = d
	s.buffer = schedule.CloneBands(s.persisted.Day(d))
	s.err = nil
	s.nextID = maxBandID(s.buffer) + 1
}

// Cancel discards the buffer and clears any error.
func (s *Session) Cancel() {
	if s.state == StateSaving {
		return
	}
	s.close()
}

func (s *Session) close() {
	s.state = StateIdle
	s.day = ""
	s.buffer = nil
	s.err = nil
}

// AddBand appends a new band to the buffer. Times are snapped and clamped
// to the session step. No validation happens until save.
func (s *Session) AddBand(t schedule.SetpointType, startMin, endMin int) error {
	if err := s.mutable(); err != nil {
		return err
	}
	b := schedule.Band{
		ID:           s.nextID,
		SetpointType: t,
		Start:        schedule.ClockFromMinutes(schedule.SnapClamp(startMin, s.step)),
		End:          schedule.ClockFromMinutes(schedule.SnapClamp(endMin, s.step)),
	}
	s.nextID++
	s.buffer = append(s.buffer, b)
	s.state = StateEditing
	s.err = nil
	return nil
}

// RemoveBand deletes the band at position i. Later positions reflow.
func (s *Session) RemoveBand(i int) error {
	if err := s.mutable(); err != nil {
		return err
	}
	if i < 0 || i >= len(s.buffer) {
		return ErrBandIndex
	}
	s.buffer = append(s.buffer[:i], s.buffer[i+1:]...)
	s.state = StateEditing
	s.err = nil
	return nil
}

// ToggleBand flips the setpoint type of the band at position i.
func (s *Session) ToggleBand(i int) error {
	if err := s.mutable(); err != nil {
		return err
	}
	if i < 0 || i >= len(s.buffer) {
		return ErrBandIndex
	}
	s.buffer[i].SetpointType = s.buffer[i].SetpointType.Toggle()
	s.state = StateEditing
	s.err = nil
	return nil
}

// RetimeBand rewrites the start and end of the band at position i,
// snapping both edges to the session step.
func (s *Session) RetimeBand(i, startMin, endMin int) error {
	if err := s.mutable(); err != nil {
		return err
	}
	if i < 0 || i >= len(s.buffer) {
		return ErrBandIndex
	}
	s.buffer[i].Start = schedule.ClockFromMinutes(schedule.SnapClamp(startMin, s.step))
	s.buffer[i].End = schedule.ClockFromMinutes(schedule.SnapClamp(endMin, s.step))
	s.state = StateEditing
	s.err = nil
	return nil
}

func (s *Session) mutable() error {
	switch s.state {
	case StateEditing, StateError:
		return nil
	case StateSaving:
		return ErrSaveInFlight
	default:
		return ErrNotEditing
	}
}

// Save validates the buffer and, on success, moves to StateSaving and
// returns the full-week payload to submit: the persisted week with
// exactly the open day's bands replaced. The other six days are copied
// untouched and never revalidated. On validation failure the session
// moves to StateError with the error attached and no payload is issued.
// Save is a no-op while already saving or when idle.
func (s *Session) Save() (*Payload, error) {
	switch s.state {
	case StateSaving, StateIdle:
		return nil, nil
	}

	if err := schedule.ValidateDay(s.buffer); err != nil {
		s.state = StateError
		s.err = err
		return nil, err
	}

	s.state = StateSaving
	s.err = nil
	return &Payload{
		ZoneID:   s.zoneID,
		Step:     s.step,
		Schedule: s.persisted.WithDay(s.day, s.buffer),
	}, nil
}

// CompleteSave reports the outcome of the in-flight save. On success the
// submitted week becomes the persisted week and the session returns to
// idle with the buffer cleared. On failure the buffer survives and the
// session moves to StateError with a wrapped reason.
func (s *Session) CompleteSave(submitted schedule.WeekSchedule, err error) {
	if s.state != StateSaving {
		return
	}
	if err != nil {
		s.state = StateError
		s.err = fmt.Errorf("save failed: %w", err)
		return
	}
	s.persisted = submitted.Normalize()
	s.close()
}

func maxBandID(bands []schedule.Band) int {
	max := 0
	for _, b := range bands {
		if b.ID > max {
			max = b.ID
		}
	}
	return max
}
