package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initExportMetrics() {
	r.ExportsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridflow_exports_total",
			Help: "Total number of sink exports by sink and outcome",
		},
		[]string{"sink", "status"},
	)

	r.ExportDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gridflow_export_duration_seconds",
			Help:    "Wall time of a sink export in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"sink"},
	)

	r.JournalEntriesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridflow_journal_entries_total",
			Help: "Total number of journal entries appended by record status",
		},
		[]string{"status"},
	)

	r.JournalBytesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "gridflow_journal_bytes_total",
			Help: "Total compressed bytes appended to the run journal",
		},
	)
}
