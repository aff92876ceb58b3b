// Package series holds the time dimension of a power-flow study: the
// ordered timestamp sequence, per-element P/Q setpoint series, and the
// ordered result set the solve loop appends into.
package series

import (
	"fmt"
)

// Timestamp identifies one operating snapshot. It is an opaque label; the
// study order is the order timestamps were registered, not a numeric or
// lexicographic order, and no value is reserved as a sentinel.
type Timestamp string

// ErrMissingTimestamp is returned when a series has no entry for a
// requested timestamp.
var ErrMissingTimestamp = fmt.Errorf("no setpoint for timestamp")

// Setpoint is one P/Q operating point of a generator or load.
type Setpoint struct {
	P float64 // active power
	Q float64 // reactive power
}

// Series maps timestamps to P/Q setpoints for a single grid element.
type Series struct {
	points map[Timestamp]Setpoint
}

// NewSeries creates an empty setpoint series.
func NewSeries() *Series {
	return &Series{points: make(map[Timestamp]Setpoint)}
}

// Set records the setpoint for a timestamp, replacing any previous value.
func (s *Series) Set(ts Timestamp, p, q float64) {
	s.points[ts] = Setpoint{P: p, Q: q}
}

// At returns the setpoint for a timestamp.
func (s *Series) At(ts Timestamp) (Setpoint, error) {
	sp, ok := s.points[ts]
	if !ok {
		return Setpoint{}, fmt.Errorf("%w: %q", ErrMissingTimestamp, ts)
	}
	return sp, nil
}

// Len returns the number of recorded setpoints.
func (s *Series) Len() int {
	return len(s.points)
}

// Covers reports whether the series has an entry for every timestamp in ts.
func (s *Series) Covers(ts []Timestamp) bool {
	for _, t := range ts {
		if _, ok := s.points[t]; !ok {
			return false
		}
	}
	return true
}

// Sequence is an ordered, duplicate-free timestamp sequence. Order is
// insertion order.
type Sequence struct {
	order []Timestamp
	seen  map[Timestamp]struct{}
}

// NewSequence creates an empty timestamp sequence.
func NewSequence() *Sequence {
	return &Sequence{seen: make(map[Timestamp]struct{})}
}

// Add appends a timestamp unless it is already present.
func (q *Sequence) Add(ts Timestamp) {
	if _, ok := q.seen[ts]; ok {
		return
	}
	q.seen[ts] = struct{}{}
	q.order = append(q.order, ts)
}

// Timestamps returns the sequence in insertion order. The returned slice
// is a copy.
func (q *Sequence) Timestamps() []Timestamp {
	out := make([]Timestamp, len(q.order))
	copy(out, q.order)
	return out
}

// Len returns the number of timestamps in the sequence.
func (q *Sequence) Len() int {
	return len(q.order)
}

// Contains reports whether ts is part of the sequence.
func (q *Sequence) Contains(ts Timestamp) bool {
	_, ok := q.seen[ts]
	return ok
}
