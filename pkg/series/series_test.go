package series

import (
	"errors"
	"fmt"
	"testing"
)

func TestSequenceKeepsInsertionOrder(t *testing.T) {
	seq := NewSequence()
	seq.Add("T3")
	seq.Add("T1")
	seq.Add("T2")

	got := seq.Timestamps()
	want := []Timestamp{"T3", "T1", "T2"}
	if len(got) != len(want) {
		t.Fatalf("Expected %d timestamps, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Position %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestSequenceIgnoresDuplicates(t *testing.T) {
	seq := NewSequence()
	seq.Add("T1")
	seq.Add("T2")
	seq.Add("T1")

	if seq.Len() != 2 {
		t.Errorf("Expected 2 timestamps after duplicate add, got %d", seq.Len())
	}
	got := seq.Timestamps()
	if got[0] != "T1" || got[1] != "T2" {
		t.Errorf("Duplicate add must not move the first registration, got %v", got)
	}
}

func TestSequenceContains(t *testing.T) {
	seq := NewSequence()
	seq.Add("T1")

	if !seq.Contains("T1") {
		t.Error("Expected Contains(T1) to be true")
	}
	if seq.Contains("T9") {
		t.Error("Expected Contains(T9) to be false")
	}
}

func TestSequenceTimestampsIsACopy(t *testing.T) {
	seq := NewSequence()
	seq.Add("T1")
	seq.Add("T2")

	got := seq.Timestamps()
	got[0] = "mutated"

	if seq.Timestamps()[0] != "T1" {
		t.Error("Mutating the returned slice must not affect the sequence")
	}
}

func TestSeriesSetAndAt(t *testing.T) {
	s := NewSeries()
	s.Set("T1", 5.0, -2.0)
	s.Set("T1", 6.0, -3.0) // replaces

	sp, err := s.At("T1")
	if err != nil {
		t.Fatalf("At(T1) failed: %v", err)
	}
	if sp.P != 6.0 || sp.Q != -3.0 {
		t.Errorf("Expected replaced setpoint (6, -3), got (%g, %g)", sp.P, sp.Q)
	}
	if s.Len() != 1 {
		t.Errorf("Expected 1 setpoint after replace, got %d", s.Len())
	}
}

func TestSeriesAtMissing(t *testing.T) {
	s := NewSeries()

	_, err := s.At("T1")
	if !errors.Is(err, ErrMissingTimestamp) {
		t.Errorf("Expected ErrMissingTimestamp, got %v", err)
	}
}

func TestSeriesCovers(t *testing.T) {
	s := NewSeries()
	s.Set("T1", 1, 0)
	s.Set("T2", 2, 0)

	if !s.Covers([]Timestamp{"T1", "T2"}) {
		t.Error("Expected series to cover T1, T2")
	}
	if s.Covers([]Timestamp{"T1", "T2", "T3"}) {
		t.Error("Expected coverage to fail on T3")
	}
	if !s.Covers(nil) {
		t.Error("Expected empty requirement to be covered")
	}
}

func TestResultSetIteratesInStudyOrder(t *testing.T) {
	rs := NewResultSet([]Timestamp{"T1", "T2", "T3"})

	// Record out of order, as a parallel run would.
	for _, ts := range []Timestamp{"T3", "T1", "T2"} {
		if err := rs.Put(Result{Timestamp: ts}); err != nil {
			t.Fatalf("Put(%s) failed: %v", ts, err)
		}
	}

	var got []Timestamp
	rs.Each(func(res Result) {
		got = append(got, res.Timestamp)
	})

	want := []Timestamp{"T1", "T2", "T3"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected study order %v, got %v", want, got)
		}
	}
}

func TestResultSetSkipsUnrecordedTimestamps(t *testing.T) {
	rs := NewResultSet([]Timestamp{"T1", "T2", "T3"})
	if err := rs.Put(Result{Timestamp: "T2"}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got := rs.Timestamps()
	if len(got) != 1 || got[0] != "T2" {
		t.Errorf("Expected only T2 recorded, got %v", got)
	}
	if rs.Len() != 1 {
		t.Errorf("Expected Len 1, got %d", rs.Len())
	}
}

func TestResultSetRejectsUnknownTimestamp(t *testing.T) {
	rs := NewResultSet([]Timestamp{"T1"})

	if err := rs.Put(Result{Timestamp: "T9"}); err == nil {
		t.Error("Expected error recording a timestamp outside the sequence")
	}
}

func TestResultSetGetMissing(t *testing.T) {
	rs := NewResultSet([]Timestamp{"T1"})

	_, err := rs.Get("T1")
	if !errors.Is(err, ErrNoResult) {
		t.Errorf("Expected ErrNoResult for unrecorded timestamp, got %v", err)
	}
}

func TestResultSetConcurrentPut(t *testing.T) {
	const n = 64
	seq := make([]Timestamp, n)
	for i := range seq {
		seq[i] = Timestamp(fmt.Sprintf("T%02d", i))
	}
	rs := NewResultSet(seq)

	done := make(chan error, n)
	for _, ts := range seq {
		go func(ts Timestamp) {
			done <- rs.Put(Result{Timestamp: ts})
		}(ts)
	}
	for i := 0; i < n; i++ {
		if err := <-done; err != nil {
			t.Fatalf("Concurrent Put failed: %v", err)
		}
	}

	if rs.Len() != n {
		t.Errorf("Expected %d recorded results, got %d", n, rs.Len())
	}
}
