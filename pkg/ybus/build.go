package ybus

import (
	"fmt"
)

// Branch is one series element between two buses, as seen by the matrix
// builder: a line or a transformer. YShunt is the transverse admittance
// attached at each end (the per-end value, not the line total), zero for
// transformers.
type Branch struct {
	From    string
	To      string
	YSeries complex128
	YShunt  complex128
}

// ErrDuplicateBus is returned when the bus name list repeats a name.
var ErrDuplicateBus = fmt.Errorf("duplicate bus name")

// Build assembles the bus admittance matrix from the bus names in
// registration order and the branch list. For every branch the series
// admittance is subtracted from both off-diagonal entries and added,
// together with the per-end shunt admittance, to both diagonal entries.
// A bus no branch touches keeps a zero diagonal. Build is a pure
// function; admittances must already be normalized by the caller.
func Build(busNames []string, branches []Branch) (*Matrix, error) {
	m := newMatrix(busNames)
	if len(m.index) != len(busNames) {
		return nil, fmt.Errorf("%w in %v", ErrDuplicateBus, busNames)
	}

	for _, br := range branches {
		i, err := m.IndexOf(br.From)
		if err != nil {
			return nil, fmt.Errorf("branch %s-%s: %w", br.From, br.To, err)
		}
		j, err := m.IndexOf(br.To)
		if err != nil {
			return nil, fmt.Errorf("branch %s-%s: %w", br.From, br.To, err)
		}

		m.add(i, j, -br.YSeries)
		m.add(j, i, -br.YSeries)
		m.add(i, i, br.YSeries+br.YShunt)
		m.add(j, j, br.YSeries+br.YShunt)
	}

	return m, nil
}
