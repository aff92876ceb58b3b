// Package export delivers finished study results to reporting sinks:
// CSV files on disk, a Postgres results table, an S3 artifact archive and
// a progress event publisher. Sinks are pure consumers; none of them
// feeds back into the solve, and a failing sink never erases results
// another sink already wrote.
package export

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/voltlab/gridflow/pkg/grid"
	"github.com/voltlab/gridflow/pkg/logging"
	"github.com/voltlab/gridflow/pkg/metrics"
	"github.com/voltlab/gridflow/pkg/series"
)

// Report is everything a reporting sink may consume from a finished run.
type Report struct {
	RunID      string
	Settings   grid.Settings
	Timestamps []series.Timestamp // full study sequence, failed timestamps included
	Results    *series.ResultSet
	// WorstCase is nil when extraction failed (no recorded voltages);
	// sinks skip their worst-case output in that case.
	WorstCase *grid.WorstCase
}

// Sink consumes a report.
type Sink interface {
	// Name identifies the sink in logs and metrics.
	Name() string
	// Export delivers the report. Implementations must not retain the
	// report after returning.
	Export(ctx context.Context, rep *Report) error
}

// Run delivers the report to every sink in order. A sink failure is
// logged and recorded, then the next sink still runs; the joined errors
// come back to the caller. A nil registry disables instrumentation.
func Run(ctx context.Context, rep *Report, logger logging.Logger, reg *metrics.Registry, sinks ...Sink) error {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	var errs []error
	for _, sink := range sinks {
		started := time.Now()
		err := sink.Export(ctx, rep)
		elapsed := time.Since(started)

		status := "ok"
		if err != nil {
			status = "failed"
			errs = append(errs, fmt.Errorf("sink %s: %w", sink.Name(), err))
			logger.Error("export sink failed",
				logging.String("sink", sink.Name()),
				logging.Error(err))
		} else {
			logger.Info("export sink finished",
				logging.String("sink", sink.Name()),
				logging.Duration("elapsed", elapsed))
		}
		if reg != nil {
			reg.RecordExport(sink.Name(), status, elapsed)
		}
	}
	return errors.Join(errs...)
}
