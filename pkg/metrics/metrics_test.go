package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry() returned nil")
	}

	// Verify all metrics are initialized
	if r.TimestampsSolvedTotal == nil {
		t.Error("TimestampsSolvedTotal not initialized")
	}
	if r.SolveDuration == nil {
		t.Error("SolveDuration not initialized")
	}
	if r.RunsTotal == nil {
		t.Error("RunsTotal not initialized")
	}
	if r.ExportsTotal == nil {
		t.Error("ExportsTotal not initialized")
	}
	if r.registry == nil {
		t.Error("Prometheus registry not initialized")
	}
}

func TestDefaultRegistry(t *testing.T) {
	// Should return the same instance
	r1 := DefaultRegistry()
	r2 := DefaultRegistry()

	if r1 != r2 {
		t.Error("DefaultRegistry() should return the same instance")
	}
}

func TestObserveSolve(t *testing.T) {
	r := NewRegistry()

	r.ObserveSolve(SolveOK, 20*time.Millisecond, 4)
	r.ObserveSolve(SolveOK, 35*time.Millisecond, 5)
	r.ObserveSolve(SolveFailed, 400*time.Millisecond, 0)

	counter, err := r.TimestampsSolvedTotal.GetMetricWithLabelValues(string(SolveOK))
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}

	var metric dto.Metric
	if err := counter.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if got := metric.GetCounter().GetValue(); got != 2 {
		t.Errorf("Expected 2 solved timestamps, got %v", got)
	}

	failed, err := r.TimestampsSolvedTotal.GetMetricWithLabelValues(string(SolveFailed))
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}
	metric.Reset()
	if err := failed.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if got := metric.GetCounter().GetValue(); got != 1 {
		t.Errorf("Expected 1 failed timestamp, got %v", got)
	}
}

func TestRecordRun(t *testing.T) {
	tests := []struct {
		name   string
		solved int
		failed int
		status string
	}{
		{"all solved", 24, 0, "complete"},
		{"some failed", 20, 4, "partial"},
		{"none solved", 0, 24, "failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			r.RecordRun(tt.solved, tt.failed, time.Second)

			counter, err := r.RunsTotal.GetMetricWithLabelValues(tt.status)
			if err != nil {
				t.Fatalf("Failed to get metric: %v", err)
			}

			var metric dto.Metric
			if err := counter.Write(&metric); err != nil {
				t.Fatalf("Failed to write metric: %v", err)
			}
			if got := metric.GetCounter().GetValue(); got != 1 {
				t.Errorf("Expected runs_total{status=%q} = 1, got %v", tt.status, got)
			}
		})
	}
}

func TestSetWorstCase(t *testing.T) {
	r := NewRegistry()
	r.SetWorstCase(0.91, 1.04)

	var metric dto.Metric
	if err := r.WorstCaseMinVoltage.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if got := metric.GetGauge().GetValue(); got != 0.91 {
		t.Errorf("Expected min voltage 0.91, got %v", got)
	}

	metric.Reset()
	if err := r.WorstCaseMaxVoltage.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if got := metric.GetGauge().GetValue(); got != 1.04 {
		t.Errorf("Expected max voltage 1.04, got %v", got)
	}
}

func TestRecordExport(t *testing.T) {
	r := NewRegistry()
	r.RecordExport("csv", "ok", 5*time.Millisecond)
	r.RecordExport("csv", "ok", 7*time.Millisecond)
	r.RecordExport("postgres", "error", 120*time.Millisecond)

	counter, err := r.ExportsTotal.GetMetricWithLabelValues("csv", "ok")
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}

	var metric dto.Metric
	if err := counter.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if got := metric.GetCounter().GetValue(); got != 2 {
		t.Errorf("Expected 2 csv exports, got %v", got)
	}
}

func TestUpdateSystemMetrics(t *testing.T) {
	r := NewRegistry()
	r.UpdateSystemMetrics(90 * time.Second)

	var metric dto.Metric
	if err := r.UptimeSeconds.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if got := metric.GetGauge().GetValue(); got != 90 {
		t.Errorf("Expected uptime 90s, got %v", got)
	}

	metric.Reset()
	if err := r.GoRoutines.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.GetGauge().GetValue() <= 0 {
		t.Error("Expected at least one goroutine")
	}
}

func TestMetricPrefix(t *testing.T) {
	r := NewRegistry()

	// Touch a couple of metrics so vectors materialize
	r.ObserveSolve(SolveOK, time.Millisecond, 3)
	r.RecordExport("csv", "ok", time.Millisecond)
	r.RecordJournalAppend("solved", 256)

	metrics, err := r.registry.Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}

	// Verify all metrics have the gridflow_ prefix
	for _, m := range metrics {
		name := m.GetName()
		if !strings.HasPrefix(name, "gridflow_") {
			t.Errorf("Metric %s does not have gridflow_ prefix", name)
		}
	}
}

func TestHandler(t *testing.T) {
	r := NewRegistry()
	r.ObserveSolve(SolveOK, time.Millisecond, 2)

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("Failed to scrape metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
}

func BenchmarkObserveSolve(b *testing.B) {
	r := NewRegistry()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.ObserveSolve(SolveOK, 10*time.Millisecond, 5)
	}
}
