package powerflow

import (
	"fmt"
	"math"
)

// ErrSingular is returned when the Jacobian cannot be factorized, which
// happens on degenerate systems (an isolated bus, a collapsed voltage).
var ErrSingular = fmt.Errorf("singular jacobian")

// pivotEpsilon is the smallest pivot magnitude accepted during
// factorization.
const pivotEpsilon = 1e-16

// luFactors holds an in-place LU factorization with partial pivoting of a
// dense n-by-n row-major matrix. L has an implicit unit diagonal.
type luFactors struct {
	n    int
	lu   []float64
	perm []int
}

// factorize decomposes a (row-major, n-by-n, overwritten in place) into
// LU form with row pivoting.
func factorize(a []float64, n int) (*luFactors, error) {
	f := &luFactors{n: n, lu: a, perm: make([]int, n)}
	for i := range f.perm {
		f.perm[i] = i
	}

	for col := 0; col < n; col++ {
		// Partial pivot: largest magnitude in the remaining column.
		pivotRow := col
		pivotVal := math.Abs(a[col*n+col])
		for r := col + 1; r < n; r++ {
			if v := math.Abs(a[r*n+col]); v > pivotVal {
				pivotRow, pivotVal = r, v
			}
		}
		if pivotVal < pivotEpsilon {
			return nil, fmt.Errorf("%w: pivot %d", ErrSingular, col)
		}
		if pivotRow != col {
			swapRows(a, n, col, pivotRow)
			f.perm[col], f.perm[pivotRow] = f.perm[pivotRow], f.perm[col]
		}

		// Eliminate below the pivot, storing multipliers in place.
		pivot := a[col*n+col]
		for r := col + 1; r < n; r++ {
			mult := a[r*n+col] / pivot
			a[r*n+col] = mult
			if mult == 0 {
				continue
			}
			for c := col + 1; c < n; c++ {
				a[r*n+c] -= mult * a[col*n+c]
			}
		}
	}
	return f, nil
}

// solve computes x for LUx = Pb by forward then backward substitution.
func (f *luFactors) solve(b []float64) []float64 {
	n := f.n
	x := make([]float64, n)

	// Forward: Ly = Pb with unit diagonal.
	for i := 0; i < n; i++ {
		sum := b[f.perm[i]]
		for j := 0; j < i; j++ {
			sum -= f.lu[i*n+j] * x[j]
		}
		x[i] = sum
	}

	// Backward: Ux = y.
	for i := n - 1; i >= 0; i-- {
		sum := x[i]
		for j := i + 1; j < n; j++ {
			sum -= f.lu[i*n+j] * x[j]
		}
		x[i] = sum / f.lu[i*n+i]
	}
	return x
}

func swapRows(a []float64, n, r1, r2 int) {
	for c := 0; c < n; c++ {
		a[r1*n+c], a[r2*n+c] = a[r2*n+c], a[r1*n+c]
	}
}
