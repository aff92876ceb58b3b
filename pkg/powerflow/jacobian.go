package powerflow

import (
	"fmt"
	"math"

	"github.com/voltlab/gridflow/pkg/ybus"
)

// Jacobian assembles the polar-form power-flow Jacobian for one snapshot.
// The unknown vector is [angle corrections for every non-slack bus,
// magnitude corrections for every PQ bus]; the equation vector pairs
// active mismatches with the angle rows and reactive mismatches with the
// magnitude rows. The bus slice must be in matrix row order.
type Jacobian struct {
	buses    []Bus
	m        *ybus.Matrix
	angleIdx []int // matrix positions with an angle unknown (non-slack)
	magIdx   []int // matrix positions with a magnitude unknown (PQ)
}

// NewJacobian prepares a Jacobian builder from the classified buses of
// one timestamp. all is every bus in matrix row order; voltage is the
// fixed-voltage subset (slack and PV) and fixes the expected dimensions.
func NewJacobian(all, voltage []Bus, m *ybus.Matrix) (*Jacobian, error) {
	if len(all) != m.Size() {
		return nil, fmt.Errorf("bus count %d does not match matrix size %d", len(all), m.Size())
	}
	j := &Jacobian{buses: all, m: m}
	for i, b := range all {
		if b.Kind != Slack {
			j.angleIdx = append(j.angleIdx, i)
		}
		if b.Kind == PQ {
			j.magIdx = append(j.magIdx, i)
		}
	}
	// The fixed-voltage subset and the magnitude unknowns partition the
	// bus set.
	if len(voltage)+len(j.magIdx) != len(all) {
		return nil, fmt.Errorf("voltage subset size %d inconsistent with %d PQ of %d buses",
			len(voltage), len(j.magIdx), len(all))
	}
	return j, nil
}

// Dimension returns the order of the assembled square matrix.
func (j *Jacobian) Dimension() int {
	return len(j.angleIdx) + len(j.magIdx)
}

// Assemble evaluates the Jacobian at the given state. V and theta are
// indexed by matrix position; pCalc and qCalc are the injections computed
// at that state. The result is dense row-major, ready for factorization.
func (j *Jacobian) Assemble(v, theta, pCalc, qCalc []float64) []float64 {
	na, nm := len(j.angleIdx), len(j.magIdx)
	dim := na + nm
	out := make([]float64, dim*dim)

	g := func(i, k int) float64 { return real(j.m.At(i, k)) }
	b := func(i, k int) float64 { return imag(j.m.At(i, k)) }

	// H: dP/dtheta over (non-slack, non-slack).
	for r, i := range j.angleIdx {
		for c, k := range j.angleIdx {
			if i == k {
				out[r*dim+c] = -qCalc[i] - b(i, i)*v[i]*v[i]
				continue
			}
			d := theta[i] - theta[k]
			out[r*dim+c] = v[i] * v[k] * (g(i, k)*math.Sin(d) - b(i, k)*math.Cos(d))
		}
	}

	// N: dP/dV over (non-slack, PQ).
	for r, i := range j.angleIdx {
		for c, k := range j.magIdx {
			col := na + c
			if i == k {
				out[r*dim+col] = pCalc[i]/v[i] + g(i, i)*v[i]
				continue
			}
			d := theta[i] - theta[k]
			out[r*dim+col] = v[i] * (g(i, k)*math.Cos(d) + b(i, k)*math.Sin(d))
		}
	}

	// M: dQ/dtheta over (PQ, non-slack).
	for r, i := range j.magIdx {
		row := na + r
		for c, k := range j.angleIdx {
			if i == k {
				out[row*dim+c] = pCalc[i] - g(i, i)*v[i]*v[i]
				continue
			}
			d := theta[i] - theta[k]
			out[row*dim+c] = -v[i] * v[k] * (g(i, k)*math.Cos(d) + b(i, k)*math.Sin(d))
		}
	}

	// L: dQ/dV over (PQ, PQ).
	for r, i := range j.magIdx {
		row := na + r
		for c, k := range j.magIdx {
			col := na + c
			if i == k {
				out[row*dim+col] = qCalc[i]/v[i] - b(i, i)*v[i]
				continue
			}
			d := theta[i] - theta[k]
			out[row*dim+col] = v[i] * (g(i, k)*math.Sin(d) - b(i, k)*math.Cos(d))
		}
	}

	return out
}
