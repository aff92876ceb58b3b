package grid

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voltlab/gridflow/pkg/logging"
	"github.com/voltlab/gridflow/pkg/metrics"
	"github.com/voltlab/gridflow/pkg/parallel"
	"github.com/voltlab/gridflow/pkg/powerflow"
	"github.com/voltlab/gridflow/pkg/series"
	"github.com/voltlab/gridflow/pkg/ybus"
)

// EventKind labels the progress events a run emits.
type EventKind int

const (
	// RunStarted fires once before the first timestamp.
	RunStarted EventKind = iota
	// TimestampSolved fires after a timestamp converges.
	TimestampSolved
	// TimestampFailed fires after a timestamp's solve fails; the run
	// continues with the next timestamp.
	TimestampFailed
	// RunCompleted fires once after the last timestamp, whether or not
	// every timestamp solved.
	RunCompleted
)

// String returns the event kind's wire label.
func (k EventKind) String() string {
	switch k {
	case RunStarted:
		return "run_started"
	case TimestampSolved:
		return "timestamp_solved"
	case TimestampFailed:
		return "timestamp_failed"
	case RunCompleted:
		return "run_completed"
	default:
		return "unknown"
	}
}

// Event is one progress notification of a run. Solved events carry the
// timestamp's results; failed events carry the error.
type Event struct {
	Kind      EventKind
	RunID     string
	Timestamp series.Timestamp
	Nodes     powerflow.NodeResults
	Lines     powerflow.LineResults
	Stats     powerflow.Stats
	Err       error
	Elapsed   time.Duration
}

// RunOptions tune one study run.
type RunOptions struct {
	// RunID tags logs, events and exports. Empty generates one.
	RunID string
	// Workers sets the solve parallelism. Values below 2 run the
	// timestamp loop sequentially.
	Workers int
	// SolveTimeout bounds each timestamp's solve. Zero means no bound.
	// A timestamp that hits the bound is recorded as failed; the run
	// continues.
	SolveTimeout time.Duration
	// Solver overrides the Newton-Raphson settings.
	Solver powerflow.Options
	// Observer, when set, receives progress events. Calls are
	// serialized.
	Observer func(Event)
	// Metrics, when set, receives solve instrumentation.
	Metrics *metrics.Registry
}

// SolveFailure records one timestamp the run could not solve.
type SolveFailure struct {
	Timestamp series.Timestamp
	Err       error
}

// RunSummary describes a finished run.
type RunSummary struct {
	RunID    string
	Total    int
	Solved   int
	Failures []SolveFailure
	Elapsed  time.Duration
	Results  *series.ResultSet
}

// RunPowerFlow solves every timestamp of the study sequence in order.
// Failures are isolated per timestamp: a timestamp that cannot be
// classified or does not converge is recorded in the summary and the run
// moves on. The context is honored between timestamps and inside each
// solve; cancelling it ends the run with the results gathered so far and
// the context error.
func (g *Grid) RunPowerFlow(ctx context.Context, opts RunOptions) (*RunSummary, error) {
	if g.seq.Len() == 0 {
		return nil, ErrNoTimestamps
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}

	matrix, err := g.BuildMatrix()
	if err != nil {
		return nil, err
	}

	timestamps := g.seq.Timestamps()
	run := &runState{
		grid:    g,
		opts:    opts,
		matrix:  matrix,
		results: series.NewResultSet(timestamps),
		logger:  g.logger.With(logging.RunID(opts.RunID)),
	}

	summary := &RunSummary{
		RunID:   opts.RunID,
		Total:   len(timestamps),
		Results: run.results,
	}

	run.logger.Info("power flow run started",
		logging.Int("timestamps", len(timestamps)),
		logging.Int("workers", opts.Workers))
	run.emit(Event{Kind: RunStarted, RunID: opts.RunID})

	started := time.Now()
	if opts.Workers > 1 {
		err = run.solveParallel(ctx, timestamps)
	} else {
		err = run.solveSequential(ctx, timestamps)
	}
	summary.Elapsed = time.Since(started)

	summary.Failures = run.failures
	summary.Solved = run.results.Len()
	g.results = run.results

	run.emit(Event{Kind: RunCompleted, RunID: opts.RunID, Elapsed: summary.Elapsed})
	run.logger.Info("power flow run finished",
		logging.Int("solved", summary.Solved),
		logging.Int("failed", len(summary.Failures)),
		logging.Duration("elapsed", summary.Elapsed))

	if err != nil {
		return summary, fmt.Errorf("run aborted: %w", err)
	}
	return summary, nil
}

// Results returns the result set of the most recent run.
func (g *Grid) Results() (*series.ResultSet, error) {
	if g.results == nil {
		return nil, ErrNoVoltageResults
	}
	return g.results, nil
}

// runState carries the shared state of one run across solve goroutines.
type runState struct {
	grid    *Grid
	opts    RunOptions
	matrix  *ybus.Matrix
	results *series.ResultSet
	logger  logging.Logger

	mu       sync.Mutex
	failures []SolveFailure
	emitMu   sync.Mutex
}

func (r *runState) solveSequential(ctx context.Context, timestamps []series.Timestamp) error {
	for _, ts := range timestamps {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.solveOne(ctx, ts)
	}
	return nil
}

func (r *runState) solveParallel(ctx context.Context, timestamps []series.Timestamp) error {
	pool, err := parallel.NewPool(r.opts.Workers, r.logger)
	if err != nil {
		return err
	}

	for _, ts := range timestamps {
		if ctx.Err() != nil {
			break
		}
		pool.Submit(func() {
			if ctx.Err() != nil {
				return
			}
			r.solveOne(ctx, ts)
		})
	}
	pool.Wait()

	return ctx.Err()
}

// solveOne classifies and solves a single timestamp, recording either
// the result or the failure. Panics from the numeric path are converted
// to failures so one bad timestamp cannot take the run down.
func (r *runState) solveOne(ctx context.Context, ts series.Timestamp) {
	defer func() {
		if rec := recover(); rec != nil {
			r.fail(ts, 0, fmt.Errorf("solve panic: %v", rec))
		}
	}()

	started := time.Now()

	all, voltage, err := r.grid.Classify(ts)
	if err != nil {
		r.fail(ts, time.Since(started), err)
		return
	}

	jac, err := powerflow.NewJacobian(all, voltage, r.matrix)
	if err != nil {
		r.fail(ts, time.Since(started), solveError(ts, err))
		return
	}

	solveCtx := ctx
	cancel := func() {}
	if r.opts.SolveTimeout > 0 {
		solveCtx, cancel = context.WithTimeout(ctx, r.opts.SolveTimeout)
	}
	nodes, lines, stats, err := powerflow.SolveWithStats(solveCtx, r.opts.Solver, r.matrix, jac, all, r.grid.branches())
	cancel()
	elapsed := time.Since(started)

	if err != nil {
		// Parent cancellation aborts the run upstream; everything else,
		// including a per-timestamp timeout, is this timestamp's own
		// failure.
		if ctx.Err() != nil {
			return
		}
		r.fail(ts, elapsed, solveError(ts, err))
		return
	}

	if putErr := r.results.Put(series.Result{Timestamp: ts, Nodes: nodes, Lines: lines}); putErr != nil {
		r.fail(ts, elapsed, solveError(ts, putErr))
		return
	}

	if r.opts.Metrics != nil {
		r.opts.Metrics.ObserveSolve(metrics.SolveOK, elapsed, stats.Iterations)
	}
	r.logger.Debug("timestamp solved",
		logging.Timestamp(string(ts)),
		logging.Iterations(stats.Iterations),
		logging.Duration("elapsed", elapsed))
	r.emit(Event{
		Kind:      TimestampSolved,
		RunID:     r.opts.RunID,
		Timestamp: ts,
		Nodes:     nodes,
		Lines:     lines,
		Stats:     stats,
		Elapsed:   elapsed,
	})
}

// fail records a failed timestamp and emits the matching event.
func (r *runState) fail(ts series.Timestamp, elapsed time.Duration, err error) {
	r.mu.Lock()
	r.failures = append(r.failures, SolveFailure{Timestamp: ts, Err: err})
	r.mu.Unlock()

	if r.opts.Metrics != nil {
		r.opts.Metrics.ObserveSolve(metrics.SolveFailed, elapsed, 0)
	}
	r.logger.Warn("timestamp failed",
		logging.Timestamp(string(ts)),
		logging.Error(err))
	r.emit(Event{
		Kind:      TimestampFailed,
		RunID:     r.opts.RunID,
		Timestamp: ts,
		Err:       err,
		Elapsed:   elapsed,
	})
}

// emit delivers an event to the observer, serialized across goroutines.
func (r *runState) emit(ev Event) {
	if r.opts.Observer == nil {
		return
	}
	r.emitMu.Lock()
	defer r.emitMu.Unlock()
	r.opts.Observer(ev)
}
