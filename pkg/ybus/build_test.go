package ybus

import (
	"errors"
	"testing"
)

func TestBuildTwoBusAssembly(t *testing.T) {
	ySeries := complex(2.0, -4.0)
	yShunt := complex(0.0, 0.1)

	m, err := Build([]string{"a", "b"}, []Branch{
		{From: "a", To: "b", YSeries: ySeries, YShunt: yShunt},
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if got := m.At(0, 0); got != ySeries+yShunt {
		t.Errorf("Diagonal (a,a) = %v, want %v", got, ySeries+yShunt)
	}
	if got := m.At(1, 1); got != ySeries+yShunt {
		t.Errorf("Diagonal (b,b) = %v, want %v", got, ySeries+yShunt)
	}
	if got := m.At(0, 1); got != -ySeries {
		t.Errorf("Off-diagonal (a,b) = %v, want %v", got, -ySeries)
	}
	if got := m.At(1, 0); got != -ySeries {
		t.Errorf("Off-diagonal (b,a) = %v, want %v", got, -ySeries)
	}
}

func TestBuildIsolatedBusKeepsZeroRow(t *testing.T) {
	m, err := Build([]string{"a", "b", "island"}, []Branch{
		{From: "a", To: "b", YSeries: complex(1, -3)},
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	for j := 0; j < m.Size(); j++ {
		if m.At(2, j) != 0 {
			t.Errorf("Expected zero entry at (island, %d), got %v", j, m.At(2, j))
		}
		if m.At(j, 2) != 0 {
			t.Errorf("Expected zero entry at (%d, island), got %v", j, m.At(j, 2))
		}
	}
}

func TestBuildParallelBranchesAccumulate(t *testing.T) {
	y := complex(1.0, -2.0)
	m, err := Build([]string{"a", "b"}, []Branch{
		{From: "a", To: "b", YSeries: y},
		{From: "a", To: "b", YSeries: y},
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if got := m.At(0, 1); got != -2*y {
		t.Errorf("Parallel branches must accumulate: (a,b) = %v, want %v", got, -2*y)
	}
	if got := m.At(0, 0); got != 2*y {
		t.Errorf("Parallel branches must accumulate: (a,a) = %v, want %v", got, 2*y)
	}
}

func TestBuildDuplicateBusName(t *testing.T) {
	_, err := Build([]string{"a", "a"}, nil)
	if !errors.Is(err, ErrDuplicateBus) {
		t.Errorf("Expected ErrDuplicateBus, got %v", err)
	}
}

func TestBuildUnknownEndpoint(t *testing.T) {
	_, err := Build([]string{"a", "b"}, []Branch{
		{From: "a", To: "ghost", YSeries: complex(1, 0)},
	})
	if !errors.Is(err, ErrUnknownBus) {
		t.Errorf("Expected ErrUnknownBus, got %v", err)
	}
}

func TestBuildEmptyBranchList(t *testing.T) {
	m, err := Build([]string{"a"}, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if m.Size() != 1 || m.At(0, 0) != 0 {
		t.Errorf("Expected 1x1 zero matrix, got size %d entry %v", m.Size(), m.At(0, 0))
	}
}
