package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/voltlab/gridflow/pkg/grid"
	"github.com/voltlab/gridflow/pkg/logging"
	"github.com/voltlab/gridflow/pkg/powerflow"
	"github.com/voltlab/gridflow/pkg/series"
)

// reportableBuses is the bus count above which time-series reports get
// hard to read; crossing it only produces an advisory.
const reportableBuses = 10

// CSVExporter writes the run's results as CSV files into a directory:
// node_results.csv and line_results.csv with one row per timestamp and
// element, plus worstcase_nodes.csv and worstcase_lines.csv holding the
// min/max voltage scenarios.
type CSVExporter struct {
	dir    string
	logger logging.Logger
}

// NewCSVExporter creates the exporter. A nil logger disables logging.
func NewCSVExporter(dir string, logger logging.Logger) *CSVExporter {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &CSVExporter{dir: dir, logger: logger}
}

// Name implements Sink.
func (e *CSVExporter) Name() string {
	return "csv"
}

// Export implements Sink. Files are written in study order so repeated
// exports of the same run are byte-identical.
func (e *CSVExporter) Export(ctx context.Context, rep *Report) error {
	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}

	var busCount int
	rep.Results.Each(func(res series.Result) {
		if len(res.Nodes) > busCount {
			busCount = len(res.Nodes)
		}
	})
	if busCount > reportableBuses {
		e.logger.Warn("bus count is high, time-series reports may be hard to read",
			logging.Int("buses", busCount))
	}

	if err := e.writeNodeResults(rep); err != nil {
		return err
	}
	if err := e.writeLineResults(rep); err != nil {
		return err
	}
	if rep.WorstCase != nil {
		if err := e.writeWorstCaseNodes(rep.WorstCase); err != nil {
			return err
		}
		if err := e.writeWorstCaseLines(rep.WorstCase); err != nil {
			return err
		}
	}
	return ctx.Err()
}

// Files returns the paths Export writes, for callers that archive them.
func (e *CSVExporter) Files() []string {
	names := []string{"node_results.csv", "line_results.csv", "worstcase_nodes.csv", "worstcase_lines.csv"}
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = filepath.Join(e.dir, n)
	}
	return out
}

func (e *CSVExporter) writeNodeResults(rep *Report) error {
	return e.writeFile("node_results.csv", func(w *csv.Writer) error {
		if err := w.Write([]string{"timestamp", "bus", "kind", "v_magnitude", "v_angle_deg", "p", "q"}); err != nil {
			return err
		}
		var werr error
		rep.Results.Each(func(res series.Result) {
			if werr != nil {
				return
			}
			for _, n := range res.Nodes {
				werr = w.Write(nodeRow(res.Timestamp, n))
				if werr != nil {
					return
				}
			}
		})
		return werr
	})
}

func (e *CSVExporter) writeLineResults(rep *Report) error {
	return e.writeFile("line_results.csv", func(w *csv.Writer) error {
		if err := w.Write([]string{"timestamp", "from", "to", "i_magnitude", "p_from", "q_from", "p_to", "q_to", "p_loss", "q_loss"}); err != nil {
			return err
		}
		var werr error
		rep.Results.Each(func(res series.Result) {
			if werr != nil {
				return
			}
			for _, l := range res.Lines {
				werr = w.Write(lineRow(res.Timestamp, l))
				if werr != nil {
					return
				}
			}
		})
		return werr
	})
}

func (e *CSVExporter) writeWorstCaseNodes(wc *grid.WorstCase) error {
	return e.writeFile("worstcase_nodes.csv", func(w *csv.Writer) error {
		if err := w.Write([]string{"scenario", "timestamp", "bus", "kind", "v_magnitude", "v_angle_deg", "p", "q"}); err != nil {
			return err
		}
		for _, sc := range []struct {
			label string
			ex    grid.Extreme
		}{{"min", wc.Min}, {"max", wc.Max}} {
			for _, n := range sc.ex.Nodes {
				row := append([]string{sc.label}, nodeRow(sc.ex.Timestamp, n)...)
				if err := w.Write(row); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (e *CSVExporter) writeWorstCaseLines(wc *grid.WorstCase) error {
	return e.writeFile("worstcase_lines.csv", func(w *csv.Writer) error {
		if err := w.Write([]string{"scenario", "timestamp", "from", "to", "i_magnitude", "p_from", "q_from", "p_to", "q_to", "p_loss", "q_loss"}); err != nil {
			return err
		}
		for _, sc := range []struct {
			label string
			ex    grid.Extreme
		}{{"min", wc.Min}, {"max", wc.Max}} {
			for _, l := range sc.ex.Lines {
				row := append([]string{sc.label}, lineRow(sc.ex.Timestamp, l)...)
				if err := w.Write(row); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// writeFile writes one CSV file through fn, flushing before close.
func (e *CSVExporter) writeFile(name string, fn func(*csv.Writer) error) (retErr error) {
	f, err := os.Create(filepath.Join(e.dir, name))
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && retErr == nil {
			retErr = cerr
		}
	}()

	w := csv.NewWriter(f)
	defer func() {
		w.Flush()
		if err := w.Error(); err != nil && retErr == nil {
			retErr = fmt.Errorf("write %s: %w", name, err)
		}
	}()

	if err := fn(w); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func nodeRow(ts series.Timestamp, n powerflow.NodeResult) []string {
	return []string{
		string(ts),
		n.Name,
		n.Kind.String(),
		formatFloat(n.VMag),
		formatFloat(n.VAngleDeg),
		formatFloat(n.P),
		formatFloat(n.Q),
	}
}

func lineRow(ts series.Timestamp, l powerflow.LineResult) []string {
	return []string{
		string(ts),
		l.From,
		l.To,
		formatFloat(l.IMag),
		formatFloat(l.PFrom),
		formatFloat(l.QFrom),
		formatFloat(l.PTo),
		formatFloat(l.QTo),
		formatFloat(l.PLoss),
		formatFloat(l.QLoss),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
