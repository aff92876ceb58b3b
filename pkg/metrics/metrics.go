// Package metrics instruments the study engine with Prometheus metrics:
// per-timestamp solve outcomes, run summaries, worst-case voltages, sink
// exports and journal writes.
package metrics

import (
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SolveStatus labels the outcome of one timestamp solve.
type SolveStatus string

const (
	// SolveOK marks a converged timestamp.
	SolveOK SolveStatus = "solved"
	// SolveFailed marks a timestamp the run could not solve.
	SolveFailed SolveStatus = "failed"
)

// ObserveSolve records the outcome of one timestamp solve. Iterations are
// only meaningful for converged solves and are ignored otherwise.
func (r *Registry) ObserveSolve(status SolveStatus, duration time.Duration, iterations int) {
	r.TimestampsSolvedTotal.WithLabelValues(string(status)).Inc()
	r.SolveDuration.WithLabelValues(string(status)).Observe(duration.Seconds())
	if status == SolveOK {
		r.SolveIterations.Observe(float64(iterations))
	}
}

// RecordRun records a finished study run. The run status is "complete"
// when every timestamp solved, "partial" when some failed, "failed" when
// none solved.
func (r *Registry) RecordRun(solved, failed int, duration time.Duration) {
	status := "complete"
	switch {
	case solved == 0:
		status = "failed"
	case failed > 0:
		status = "partial"
	}
	r.RunsTotal.WithLabelValues(status).Inc()
	r.RunDuration.Observe(duration.Seconds())
	r.RunTimestampsTotal.Set(float64(solved + failed))
}

// SetWorstCase publishes the voltage extremes of the most recent run.
func (r *Registry) SetWorstCase(minVoltage, maxVoltage float64) {
	r.WorstCaseMinVoltage.Set(minVoltage)
	r.WorstCaseMaxVoltage.Set(maxVoltage)
}

// RecordExport records one sink export with its duration.
func (r *Registry) RecordExport(sink, status string, duration time.Duration) {
	r.ExportsTotal.WithLabelValues(sink, status).Inc()
	r.ExportDuration.WithLabelValues(sink).Observe(duration.Seconds())
}

// RecordJournalAppend records one journal entry and its compressed size.
func (r *Registry) RecordJournalAppend(status string, compressedBytes int) {
	r.JournalEntriesTotal.WithLabelValues(status).Inc()
	r.JournalBytesTotal.Add(float64(compressedBytes))
}

// UpdateSystemMetrics refreshes the runtime gauges. Callers decide the
// cadence; the engine refreshes once per run and on metrics scrapes.
func (r *Registry) UpdateSystemMetrics(uptime time.Duration) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	r.UptimeSeconds.Set(uptime.Seconds())
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))
	r.MemoryAllocBytes.Set(float64(mem.Alloc))
	r.MemorySysBytes.Set(float64(mem.Sys))
}

// Handler returns an HTTP handler exposing the registry in Prometheus
// text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
