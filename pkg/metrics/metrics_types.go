package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the study engine
type Registry struct {
	// Solve Metrics (per timestamp)
	TimestampsSolvedTotal *prometheus.CounterVec
	SolveDuration         *prometheus.HistogramVec
	SolveIterations       prometheus.Histogram

	// Run Metrics (per study)
	RunsTotal           *prometheus.CounterVec
	RunDuration         prometheus.Histogram
	RunTimestampsTotal  prometheus.Gauge
	WorstCaseMinVoltage prometheus.Gauge
	WorstCaseMaxVoltage prometheus.Gauge

	// Export Metrics (reporting sinks and journal)
	ExportsTotal        *prometheus.CounterVec
	ExportDuration      *prometheus.HistogramVec
	JournalEntriesTotal *prometheus.CounterVec
	JournalBytesTotal   prometheus.Counter

	// System Metrics
	UptimeSeconds    prometheus.Gauge
	GoRoutines       prometheus.Gauge
	MemoryAllocBytes prometheus.Gauge
	MemorySysBytes   prometheus.Gauge

	registry *prometheus.Registry
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	// Initialize all metrics
	r.initSolveMetrics()
	r.initRunMetrics()
	r.initExportMetrics()
	r.initSystemMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
