package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initSolveMetrics() {
	r.TimestampsSolvedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridflow_timestamps_solved_total",
			Help: "Total number of timestamp solves by outcome",
		},
		[]string{"status"},
	)

	r.SolveDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gridflow_solve_duration_seconds",
			Help:    "Wall time of a single timestamp solve in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)

	r.SolveIterations = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gridflow_solve_iterations",
			Help:    "Newton-Raphson iterations needed to converge a timestamp",
			Buckets: []float64{1, 2, 3, 4, 5, 7, 10, 15, 25, 50},
		},
	)
}
