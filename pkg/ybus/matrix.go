// Package ybus builds and holds the bus admittance matrix of a power
// grid. The matrix is square over the bus set and complex valued; row and
// column positions are resolved through an explicit name index rather
// than positional convention.
package ybus

import (
	"fmt"
	"strings"
)

// Matrix is the bus admittance matrix together with the bus-name index
// that fixes its row/column ordering. The ordering is the bus registration
// order of the grid it was built from.
type Matrix struct {
	names []string
	index map[string]int
	data  []complex128 // row-major, len = n*n
}

// ErrUnknownBus is returned when a bus name has no row in the matrix.
var ErrUnknownBus = fmt.Errorf("bus not in admittance matrix")

// newMatrix allocates an n-by-n zero matrix over the given bus names.
func newMatrix(names []string) *Matrix {
	n := len(names)
	m := &Matrix{
		names: append([]string(nil), names...),
		index: make(map[string]int, n),
		data:  make([]complex128, n*n),
	}
	for i, name := range names {
		m.index[name] = i
	}
	return m
}

// Size returns the bus count n of the n-by-n matrix.
func (m *Matrix) Size() int {
	return len(m.names)
}

// Names returns the bus names in matrix row order. The returned slice is
// a copy.
func (m *Matrix) Names() []string {
	return append([]string(nil), m.names...)
}

// IndexOf resolves a bus name to its row/column position.
func (m *Matrix) IndexOf(name string) (int, error) {
	i, ok := m.index[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownBus, name)
	}
	return i, nil
}

// At returns the matrix entry at row i, column j.
func (m *Matrix) At(i, j int) complex128 {
	return m.data[i*len(m.names)+j]
}

// AtName returns the matrix entry addressed by bus names.
func (m *Matrix) AtName(rowBus, colBus string) (complex128, error) {
	i, err := m.IndexOf(rowBus)
	if err != nil {
		return 0, err
	}
	j, err := m.IndexOf(colBus)
	if err != nil {
		return 0, err
	}
	return m.At(i, j), nil
}

// add accumulates y into the entry at row i, column j.
func (m *Matrix) add(i, j int, y complex128) {
	m.data[i*len(m.names)+j] += y
}

// formatWidth is the column width of the console rendering.
const formatWidth = 50

// Format renders the matrix for console inspection. Entries print as
// "re + j(im)", "re - j(im)" or "0", centered in fixed-width columns, one
// matrix row per line.
func (m *Matrix) Format() string {
	var b strings.Builder
	n := len(m.names)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			b.WriteString(center(formatEntry(m.At(i, j)), formatWidth))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// formatEntry renders a single complex admittance.
func formatEntry(y complex128) string {
	re, im := real(y), imag(y)
	switch {
	case re == 0 && im == 0:
		return "0"
	case im < 0:
		return fmt.Sprintf("%g - j(%g)", re, -im)
	default:
		return fmt.Sprintf("%g + j(%g)", re, im)
	}
}

// center pads s with spaces to width w, keeping it centered. Strings
// longer than w are returned unchanged.
func center(s string, w int) string {
	gap := w - len(s)
	if gap <= 0 {
		return s
	}
	left := gap / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", gap-left)
}
