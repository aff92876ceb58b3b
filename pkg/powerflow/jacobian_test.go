package powerflow

import (
	"math"
	"testing"

	"github.com/voltlab/gridflow/pkg/ybus"
)

func threeBusMatrix(t *testing.T) *ybus.Matrix {
	t.Helper()
	m, err := ybus.Build([]string{"a", "b", "c"}, []ybus.Branch{
		{From: "a", To: "b", YSeries: complex(4, -12)},
		{From: "b", To: "c", YSeries: complex(2, -8)},
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return m
}

func TestNewJacobianDimension(t *testing.T) {
	m := threeBusMatrix(t)
	all := []Bus{
		{Name: "a", Kind: Slack, VMag: 1},
		{Name: "b", Kind: PV, VMag: 1},
		{Name: "c", Kind: PQ, VMag: 1},
	}
	voltage := []Bus{all[0], all[1]}

	jac, err := NewJacobian(all, voltage, m)
	if err != nil {
		t.Fatalf("NewJacobian failed: %v", err)
	}

	// Two angle unknowns (b, c) plus one magnitude unknown (c).
	if got := jac.Dimension(); got != 3 {
		t.Errorf("Dimension = %d, want 3", got)
	}
}

func TestNewJacobianBusCountMismatch(t *testing.T) {
	m := threeBusMatrix(t)
	all := []Bus{
		{Name: "a", Kind: Slack, VMag: 1},
		{Name: "b", Kind: PQ, VMag: 1},
	}

	if _, err := NewJacobian(all, all[:1], m); err == nil {
		t.Error("Expected error when bus count does not match matrix size")
	}
}

func TestNewJacobianPartitionMismatch(t *testing.T) {
	m := threeBusMatrix(t)
	all := []Bus{
		{Name: "a", Kind: Slack, VMag: 1},
		{Name: "b", Kind: PV, VMag: 1},
		{Name: "c", Kind: PQ, VMag: 1},
	}
	// Voltage subset pretends PV bus b is not fixed.
	voltage := []Bus{all[0]}

	if _, err := NewJacobian(all, voltage, m); err == nil {
		t.Error("Expected error when voltage subset does not complete the PQ partition")
	}
}

func TestAssembleFlatStartTwoBus(t *testing.T) {
	g, b := 2.0, -6.0
	m, err := ybus.Build([]string{"s", "d"}, []ybus.Branch{
		{From: "s", To: "d", YSeries: complex(g, b)},
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	all := []Bus{
		{Name: "s", Kind: Slack, VMag: 1},
		{Name: "d", Kind: PQ, VMag: 1},
	}
	jac, err := NewJacobian(all, all[:1], m)
	if err != nil {
		t.Fatalf("NewJacobian failed: %v", err)
	}

	// Flat start: unit magnitudes, zero angles, zero computed injections.
	v := []float64{1, 1}
	theta := []float64{0, 0}
	pCalc := []float64{0, 0}
	qCalc := []float64{0, 0}

	out := jac.Assemble(v, theta, pCalc, qCalc)
	if len(out) != 4 {
		t.Fatalf("Expected 2x2 Jacobian, got %d entries", len(out))
	}

	// At flat start the blocks reduce to the diagonal admittance terms:
	// H = -B, N = G, M = -G, L = -B for the single PQ bus.
	want := []float64{-b, g, -g, -b}
	for i, w := range want {
		if math.Abs(out[i]-w) > 1e-15 {
			t.Errorf("Entry %d = %g, want %g", i, out[i], w)
		}
	}
}
