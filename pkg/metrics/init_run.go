package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initRunMetrics() {
	r.RunsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridflow_runs_total",
			Help: "Total number of study runs by outcome",
		},
		[]string{"status"},
	)

	r.RunDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gridflow_run_duration_seconds",
			Help:    "Wall time of a full study run in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 900, 3600},
		},
	)

	r.RunTimestampsTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "gridflow_run_timestamps",
			Help: "Number of timestamps in the most recent run",
		},
	)

	r.WorstCaseMinVoltage = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "gridflow_worstcase_voltage_min_pu",
			Help: "Lowest bus voltage magnitude of the most recent run, per-unit",
		},
	)

	r.WorstCaseMaxVoltage = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "gridflow_worstcase_voltage_max_pu",
			Help: "Highest bus voltage magnitude of the most recent run, per-unit",
		},
	)
}
