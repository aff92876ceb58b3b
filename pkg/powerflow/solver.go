package powerflow

import (
	"context"
	"fmt"
	"math"

	"github.com/voltlab/gridflow/pkg/ybus"
)

// ErrDiverged is returned when the iteration exhausts its budget without
// meeting the mismatch tolerance, or leaves the numeric domain.
var ErrDiverged = fmt.Errorf("power flow diverged")

// Options tune the Newton-Raphson iteration.
type Options struct {
	// Tolerance is the largest acceptable absolute power mismatch, in
	// per-unit, for convergence.
	Tolerance float64
	// MaxIterations bounds the Newton steps before giving up.
	MaxIterations int
}

// DefaultOptions returns the solver settings used when the caller does
// not override them.
func DefaultOptions() Options {
	return Options{
		Tolerance:     1e-8,
		MaxIterations: 50,
	}
}

// Solve runs Newton-Raphson over one snapshot and returns per-bus
// voltages and per-branch flows. buses must be in matrix row order;
// branches carry the same admittances the matrix was built from. The
// context is consulted every iteration, so a cancelled or timed-out solve
// returns promptly with the context error.
func Solve(ctx context.Context, opts Options, m *ybus.Matrix, jac *Jacobian, buses []Bus, branches []ybus.Branch) (NodeResults, LineResults, error) {
	nodes, lines, _, err := SolveWithStats(ctx, opts, m, jac, buses, branches)
	return nodes, lines, err
}

// SolveWithStats is Solve plus iteration statistics for instrumentation.
func SolveWithStats(ctx context.Context, opts Options, m *ybus.Matrix, jac *Jacobian, buses []Bus, branches []ybus.Branch) (NodeResults, LineResults, Stats, error) {
	n := len(buses)
	if n == 0 {
		return nil, nil, Stats{}, fmt.Errorf("no buses to solve")
	}
	if n != m.Size() {
		return nil, nil, Stats{}, fmt.Errorf("bus count %d does not match matrix size %d", n, m.Size())
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultOptions().Tolerance
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultOptions().MaxIterations
	}

	// State vectors, seeded from the classified buses.
	v := make([]float64, n)
	theta := make([]float64, n)
	for i, b := range buses {
		v[i] = b.VMag
		theta[i] = b.VAngle
		if v[i] == 0 {
			v[i] = 1 // flat start for buses without a magnitude seed
		}
	}

	var stats Stats
	pCalc := make([]float64, n)
	qCalc := make([]float64, n)

	for {
		if err := ctx.Err(); err != nil {
			return nil, nil, stats, err
		}

		injections(m, v, theta, pCalc, qCalc)
		mismatch, worst := mismatches(jac, buses, pCalc, qCalc)
		stats.MaxMismatch = worst

		if math.IsNaN(worst) || math.IsInf(worst, 0) {
			return nil, nil, stats, fmt.Errorf("%w: mismatch left numeric domain after %d iterations", ErrDiverged, stats.Iterations)
		}
		if worst < opts.Tolerance {
			break
		}
		if stats.Iterations >= opts.MaxIterations {
			return nil, nil, stats, fmt.Errorf("%w: mismatch %.3e after %d iterations", ErrDiverged, worst, stats.Iterations)
		}

		jm := jac.Assemble(v, theta, pCalc, qCalc)
		factors, err := factorize(jm, jac.Dimension())
		if err != nil {
			return nil, nil, stats, err
		}
		dx := factors.solve(mismatch)

		na := len(jac.angleIdx)
		for r, i := range jac.angleIdx {
			theta[i] += dx[r]
		}
		for r, i := range jac.magIdx {
			v[i] += dx[na+r]
		}
		stats.Iterations++
	}

	nodes := nodeResults(buses, v, theta, pCalc, qCalc)
	lines := lineResults(m, branches, v, theta)
	return nodes, lines, stats, nil
}

// injections evaluates the active and reactive injection at every bus for
// the given state, writing into pOut and qOut.
func injections(m *ybus.Matrix, v, theta, pOut, qOut []float64) {
	n := len(v)
	for i := 0; i < n; i++ {
		var p, q float64
		for k := 0; k < n; k++ {
			y := m.At(i, k)
			g, b := real(y), imag(y)
			if g == 0 && b == 0 {
				continue
			}
			d := theta[i] - theta[k]
			p += v[i] * v[k] * (g*math.Cos(d) + b*math.Sin(d))
			q += v[i] * v[k] * (g*math.Sin(d) - b*math.Cos(d))
		}
		pOut[i] = p
		qOut[i] = q
	}
}

// mismatches builds the right-hand side [dP for angle rows, dQ for
// magnitude rows] and reports the largest absolute entry.
func mismatches(jac *Jacobian, buses []Bus, pCalc, qCalc []float64) ([]float64, float64) {
	na := len(jac.angleIdx)
	rhs := make([]float64, na+len(jac.magIdx))
	worst := 0.0

	for r, i := range jac.angleIdx {
		rhs[r] = buses[i].PNet() - pCalc[i]
		if a := math.Abs(rhs[r]); a > worst {
			worst = a
		}
	}
	for r, i := range jac.magIdx {
		rhs[na+r] = buses[i].QNet() - qCalc[i]
		if a := math.Abs(rhs[na+r]); a > worst {
			worst = a
		}
	}
	return rhs, worst
}

// nodeResults captures the solved state per bus. Injections are the
// computed values at the solution, which for the slack bus and the
// reactive side of PV buses is where their balancing power shows up.
func nodeResults(buses []Bus, v, theta, pCalc, qCalc []float64) NodeResults {
	out := make(NodeResults, len(buses))
	for i, b := range buses {
		out[i] = NodeResult{
			Name:      b.Name,
			Kind:      b.Kind,
			VMag:      v[i],
			VAngleDeg: theta[i] * 180 / math.Pi,
			P:         pCalc[i],
			Q:         qCalc[i],
		}
	}
	return out
}
