package series

import (
	"fmt"
	"sync"

	"github.com/voltlab/gridflow/pkg/powerflow"
)

// ErrNoResult is returned when a timestamp has no recorded result.
var ErrNoResult = fmt.Errorf("no result recorded for timestamp")

// Result is the solved state of one timestamp.
type Result struct {
	Timestamp Timestamp
	Nodes     powerflow.NodeResults
	Lines     powerflow.LineResults
}

// ResultSet stores per-timestamp solve results in an explicit order: the
// order of the study's timestamp sequence, independent of completion
// order. It is safe for concurrent writers, so a parallel solve loop can
// record timestamps as they finish.
type ResultSet struct {
	mu      sync.RWMutex
	order   []Timestamp
	member  map[Timestamp]struct{}
	results map[Timestamp]Result
}

// NewResultSet creates a result store over the study's timestamp
// sequence. Only timestamps from the sequence can be recorded, and
// iteration yields them in sequence order.
func NewResultSet(seq []Timestamp) *ResultSet {
	rs := &ResultSet{
		order:   append([]Timestamp(nil), seq...),
		member:  make(map[Timestamp]struct{}, len(seq)),
		results: make(map[Timestamp]Result, len(seq)),
	}
	for _, ts := range rs.order {
		rs.member[ts] = struct{}{}
	}
	return rs
}

// Put records the result for a timestamp. Unknown timestamps are
// rejected so the store's ordering stays the study ordering.
func (rs *ResultSet) Put(res Result) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if _, ok := rs.member[res.Timestamp]; !ok {
		return fmt.Errorf("timestamp %q not part of the study sequence", res.Timestamp)
	}
	rs.results[res.Timestamp] = res
	return nil
}

// Get returns the result recorded for a timestamp. The second form of
// absence, a timestamp outside the sequence, reports the same error as a
// solved-but-failed timestamp: no result.
func (rs *ResultSet) Get(ts Timestamp) (Result, error) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	res, ok := rs.results[ts]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrNoResult, ts)
	}
	return res, nil
}

// Timestamps returns the timestamps that hold a recorded result, in
// study order.
func (rs *ResultSet) Timestamps() []Timestamp {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	out := make([]Timestamp, 0, len(rs.results))
	for _, ts := range rs.order {
		if _, ok := rs.results[ts]; ok {
			out = append(out, ts)
		}
	}
	return out
}

// Len returns the number of recorded results.
func (rs *ResultSet) Len() int {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return len(rs.results)
}

// Each calls fn for every recorded result in study order. Mutating the
// store from fn deadlocks; record first, iterate after.
func (rs *ResultSet) Each(fn func(Result)) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	for _, ts := range rs.order {
		if res, ok := rs.results[ts]; ok {
			fn(res)
		}
	}
}
