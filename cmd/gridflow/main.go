// Command gridflow runs a complete power-flow study: import a network
// from CSV, solve every timestamp, extract the worst-case voltage
// scenarios and deliver the results to the configured reporting sinks.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/voltlab/gridflow/pkg/config"
	"github.com/voltlab/gridflow/pkg/export"
	"github.com/voltlab/gridflow/pkg/grid"
	"github.com/voltlab/gridflow/pkg/importer"
	"github.com/voltlab/gridflow/pkg/logging"
	"github.com/voltlab/gridflow/pkg/metrics"
	"github.com/voltlab/gridflow/pkg/powerflow"
	"github.com/voltlab/gridflow/pkg/runlog"
	"github.com/voltlab/gridflow/pkg/server"
)

func main() {
	configPath := flag.String("config", "", "Engine config file (yaml); defaults apply when empty")
	networkDir := flag.String("network", "", "Network CSV directory (overrides config)")
	outDir := flag.String("out", "", "Results directory (overrides config)")
	workers := flag.Int("workers", 0, "Solve parallelism (overrides config)")
	journalPath := flag.String("journal", "", "Run journal path (overrides config)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			logging.NewDefaultLogger().Error("failed to load config", logging.Error(err))
			os.Exit(1)
		}
		cfg = loaded
	}
	if *networkDir != "" {
		cfg.NetworkDir = *networkDir
	}
	if *outDir != "" {
		cfg.Export.Dir = *outDir
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}
	if *journalPath != "" {
		cfg.Journal = *journalPath
	}

	logger := logging.NewJSONLogger(os.Stdout, logging.ParseLevel(cfg.LogLevel))
	logger.Info("gridflow starting",
		logging.Path(cfg.NetworkDir),
		logging.Int("workers", cfg.Workers))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := metrics.NewRegistry()
	if cfg.MetricsAddr != "" {
		diag := server.NewDiagnostics(cfg.MetricsAddr, reg.Handler(), logger)
		if err := diag.Start(); err != nil {
			logger.Warn("diagnostics listener unavailable", logging.Error(err))
		} else {
			defer diag.Shutdown(5 * time.Second)
		}
	}

	started := time.Now()
	if err := run(ctx, cfg, logger, reg); err != nil {
		logger.Error("study failed", logging.Error(err))
		os.Exit(1)
	}
	reg.UpdateSystemMetrics(time.Since(started))
	logger.Info("gridflow finished", logging.Duration("elapsed", time.Since(started)))
}

func run(ctx context.Context, cfg config.Config, logger logging.Logger, reg *metrics.Registry) error {
	g, err := importer.Load(cfg.NetworkDir, logger)
	if err != nil {
		return err
	}

	// Observers: journal writer and progress publisher, both optional.
	var journal *runlog.Writer
	if cfg.Journal != "" {
		journal, err = runlog.Create(cfg.Journal)
		if err != nil {
			return err
		}
		defer journal.Close()
	}

	var publisher *export.Publisher
	if cfg.Export.PublishAddr != "" {
		publisher, err = export.NewPublisher(cfg.Export.PublishAddr, logger)
		if err != nil {
			return err
		}
		if err := publisher.Start(); err != nil {
			return err
		}
		defer publisher.Stop()
	}

	opts := grid.RunOptions{
		Workers:      cfg.Workers,
		SolveTimeout: cfg.Solver.Timeout.AsDuration(),
		Solver: powerflow.Options{
			Tolerance:     cfg.Solver.Tolerance,
			MaxIterations: cfg.Solver.MaxIterations,
		},
		Metrics:  reg,
		Observer: observe(journal, publisher, reg, logger),
	}

	summary, err := g.RunPowerFlow(ctx, opts)
	if err != nil {
		return err
	}
	reg.RecordRun(summary.Solved, len(summary.Failures), summary.Elapsed)
	for _, f := range summary.Failures {
		logger.Warn("timestamp not solved",
			logging.Timestamp(string(f.Timestamp)),
			logging.Error(f.Err))
	}
	if summary.Solved == 0 {
		return errors.New("no timestamp solved")
	}

	report := &export.Report{
		RunID:      summary.RunID,
		Settings:   g.Settings(),
		Timestamps: g.Timestamps(),
		Results:    summary.Results,
	}
	wc, err := g.WorstCase()
	if err != nil {
		logger.Warn("worst-case extraction failed", logging.Error(err))
	} else {
		report.WorstCase = wc
		reg.SetWorstCase(wc.Min.VMag, wc.Max.VMag)
		logger.Info("worst case",
			logging.String("min_timestamp", string(wc.Min.Timestamp)),
			logging.Float64("min_v", wc.Min.VMag),
			logging.String("max_timestamp", string(wc.Max.Timestamp)),
			logging.Float64("max_v", wc.Max.VMag))
	}

	return deliver(ctx, cfg, report, logger, reg)
}

// observe fans one run event out to the journal, the publisher and the
// journal metrics. Event delivery is already serialized by the run loop.
func observe(journal *runlog.Writer, publisher *export.Publisher, reg *metrics.Registry, logger logging.Logger) func(grid.Event) {
	if journal == nil && publisher == nil {
		return nil
	}
	return func(ev grid.Event) {
		if journal != nil {
			var rec runlog.Record
			switch ev.Kind {
			case grid.TimestampSolved:
				rec = runlog.Solved(ev.RunID, ev.Timestamp, ev.Nodes, ev.Lines, ev.Stats.Iterations, ev.Elapsed)
			case grid.TimestampFailed:
				rec = runlog.Failed(ev.RunID, ev.Timestamp, ev.Err, ev.Elapsed)
			default:
				rec = runlog.Record{}
			}
			if rec.Timestamp != "" {
				n, err := journal.Append(rec)
				status := "ok"
				if err != nil {
					status = "failed"
					logger.Warn("journal append failed", logging.Error(err))
				}
				reg.RecordJournalAppend(status, n)
			}
		}
		if publisher != nil {
			if err := publisher.Publish(export.FromRunEvent(ev)); err != nil {
				logger.Warn("progress publish failed", logging.Error(err))
			}
		}
	}
}

// deliver sends the report to every configured sink. The CSV exporter is
// always on; Postgres and S3 activate through config.
func deliver(ctx context.Context, cfg config.Config, report *export.Report, logger logging.Logger, reg *metrics.Registry) error {
	csvExporter := export.NewCSVExporter(cfg.Export.Dir, logger)
	sinks := []export.Sink{csvExporter}

	if cfg.Export.PostgresDSN != "" {
		pg, err := export.NewPGSink(ctx, cfg.Export.PostgresDSN)
		if err != nil {
			logger.Error("postgres sink unavailable", logging.Error(err))
		} else {
			defer pg.Close()
			sinks = append(sinks, pg)
		}
	}

	if cfg.Export.S3.Bucket != "" {
		archive, err := export.NewS3Archive(ctx, export.S3Options{
			Bucket:          cfg.Export.S3.Bucket,
			Prefix:          cfg.Export.S3.Prefix,
			Region:          cfg.Export.S3.Region,
			AccessKeyID:     cfg.Export.S3.AccessKeyID,
			SecretAccessKey: cfg.Export.S3.SecretAccessKey,
		}, csvExporter.Files())
		if err != nil {
			logger.Error("s3 archive unavailable", logging.Error(err))
		} else {
			sinks = append(sinks, archive)
		}
	}

	return export.Run(ctx, report, logger, reg, sinks...)
}
