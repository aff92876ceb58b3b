package parallel

import (
	"math"
	"testing"

	"github.com/voltlab/gridflow/pkg/logging"
)

func TestPoolOverflow(t *testing.T) {
	// Extremely large worker counts are rejected with an error
	_, err := NewPool(math.MaxInt, logging.NewNopLogger())
	if err == nil {
		t.Error("Expected error for too many workers")
	}
}

func TestPoolReasonableSize(t *testing.T) {
	testCases := []int{1, 10, 100, 1000}

	for _, workers := range testCases {
		pool, err := NewPool(workers, logging.NewNopLogger())
		if err != nil {
			t.Fatalf("NewPool(%d): %v", workers, err)
		}
		if pool.workers != workers {
			t.Errorf("Expected %d workers, got %d", workers, pool.workers)
		}
		pool.Close()
	}
}

func TestPoolZeroWorkers(t *testing.T) {
	// Zero workers should default to 1
	pool, err := NewPool(0, logging.NewNopLogger())
	if err != nil {
		t.Fatal(err)
	}
	if pool.workers != 1 {
		t.Errorf("Expected 1 worker for zero input, got %d", pool.workers)
	}
	pool.Close()
}

func TestPoolNegativeWorkers(t *testing.T) {
	// Negative workers should default to 1
	pool, err := NewPool(-5, logging.NewNopLogger())
	if err != nil {
		t.Fatal(err)
	}
	if pool.workers != 1 {
		t.Errorf("Expected 1 worker for negative input, got %d", pool.workers)
	}
	pool.Close()
}

func TestPoolNilLogger(t *testing.T) {
	// A nil logger must not break panic recovery
	pool, err := NewPool(2, nil)
	if err != nil {
		t.Fatal(err)
	}
	pool.Submit(func() {
		panic("contained")
	})
	done := false
	pool.Submit(func() {
		done = true
	})
	pool.Wait()
	if !done {
		t.Error("task after panic did not run")
	}
}
