// Command gridflow-inspect prints diagnostic views without running a
// study: the admittance matrix and element inventory of a network
// directory, or the contents of a run journal.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/voltlab/gridflow/pkg/importer"
	"github.com/voltlab/gridflow/pkg/logging"
	"github.com/voltlab/gridflow/pkg/runlog"
	"github.com/voltlab/gridflow/pkg/series"
)

func main() {
	networkDir := flag.String("network", "", "Network CSV directory to inspect")
	journalPath := flag.String("journal", "", "Run journal to inspect")
	timestamp := flag.String("timestamp", "", "Show one journal timestamp in full")
	flag.Parse()

	if *networkDir == "" && *journalPath == "" {
		fmt.Println("Usage: gridflow-inspect --network ./network | --journal run.gfrl [--timestamp T1]")
		os.Exit(1)
	}

	// Diagnostics go to stdout; the log channel stays on stderr so the
	// dumps remain pipeable.
	logger := logging.NewJSONLogger(os.Stderr, logging.WarnLevel)

	if *networkDir != "" {
		inspectNetwork(*networkDir, logger)
	}
	if *journalPath != "" {
		inspectJournal(*journalPath, series.Timestamp(*timestamp), logger)
	}
}

func inspectNetwork(dir string, logger logging.Logger) {
	g, err := importer.Load(dir, logger)
	if err != nil {
		logger.Error("import failed", logging.Error(err))
		os.Exit(1)
	}
	if _, err := g.BuildMatrix(); err != nil {
		logger.Error("matrix assembly failed", logging.Error(err))
		os.Exit(1)
	}

	rendered, err := g.FormatMatrix()
	if err != nil {
		logger.Error("matrix rendering failed", logging.Error(err))
		os.Exit(1)
	}
	fmt.Println("admittance matrix:")
	fmt.Print(rendered)
	fmt.Println()
	g.DumpBuses(os.Stdout)
	g.DumpLines(os.Stdout)
	fmt.Printf("timestamps: %d\n", len(g.Timestamps()))
}

func inspectJournal(path string, ts series.Timestamp, logger logging.Logger) {
	if ts != "" {
		showJournalEntry(path, ts, logger)
		return
	}

	records, err := runlog.ReadAll(path)
	if err != nil {
		logger.Error("journal read failed", logging.Error(err), logging.Path(path))
		os.Exit(1)
	}

	fmt.Printf("journal %s: %d entries\n", path, len(records))
	for _, rec := range records {
		if rec.Solved {
			fmt.Printf("  %s solved in %d iterations (%d ms), %d nodes, %d lines\n",
				rec.Timestamp, rec.Iterations, rec.ElapsedMS, len(rec.Nodes), len(rec.Lines))
			continue
		}
		fmt.Printf("  %s FAILED after %d ms: %s\n", rec.Timestamp, rec.ElapsedMS, rec.Error)
	}
}

// showJournalEntry resolves one timestamp through the journal index,
// falling back to a sequential scan for journals whose writer never
// closed.
func showJournalEntry(path string, ts series.Timestamp, logger logging.Logger) {
	rec, err := lookupRecord(path, ts)
	if err != nil {
		logger.Error("journal lookup failed", logging.Error(err), logging.Timestamp(string(ts)))
		os.Exit(1)
	}

	fmt.Printf("run %s, timestamp %s\n", rec.RunID, rec.Timestamp)
	if !rec.Solved {
		fmt.Printf("  failed after %d ms: %s\n", rec.ElapsedMS, rec.Error)
		return
	}
	fmt.Printf("  solved in %d iterations (%d ms)\n", rec.Iterations, rec.ElapsedMS)
	for _, n := range rec.Nodes {
		fmt.Printf("  node %s (%s): |V|=%.6f angle=%.4f° P=%.6f Q=%.6f\n",
			n.Name, n.Kind, n.VMag, n.VAngleDeg, n.P, n.Q)
	}
	for _, l := range rec.Lines {
		fmt.Printf("  line %s-%s: |I|=%.6f P_loss=%.6f Q_loss=%.6f\n",
			l.From, l.To, l.IMag, l.PLoss, l.QLoss)
	}
}

func lookupRecord(path string, ts series.Timestamp) (runlog.Record, error) {
	mapped, err := runlog.OpenMapped(path)
	if err == nil {
		defer mapped.Close()
		return mapped.Lookup(ts)
	}

	records, err := runlog.ReadAll(path)
	if err != nil {
		return runlog.Record{}, err
	}
	for _, rec := range records {
		if rec.Timestamp == ts {
			return rec, nil
		}
	}
	return runlog.Record{}, runlog.ErrNotInJournal
}
