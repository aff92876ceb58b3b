package grid

import (
	"fmt"
	"io"
)

// FormatMatrix renders the cached admittance matrix for the console:
// entries as "re + j(im)", "re - j(im)" or "0" in centered fixed-width
// columns, one matrix row per line.
func (g *Grid) FormatMatrix() (string, error) {
	m, err := g.Matrix()
	if err != nil {
		return "", err
	}
	return m.Format(), nil
}

// DumpBuses writes a line per bus with its attached element counts. An
// empty grid writes an explicit marker instead of nothing.
func (g *Grid) DumpBuses(w io.Writer) {
	if len(g.buses) == 0 {
		fmt.Fprintln(w, "no buses in list")
		return
	}
	for _, b := range g.buses {
		fmt.Fprintf(w, "bus %s: %d generators, %d loads\n", b.Name, len(b.Generators), len(b.Loads))
	}
}

// DumpLines writes a line per branch with its admittances.
func (g *Grid) DumpLines(w io.Writer) {
	if len(g.lines) == 0 && len(g.transformers) == 0 {
		fmt.Fprintln(w, "no lines in list")
		return
	}
	for _, l := range g.lines {
		unit := "import units"
		if l.perUnit {
			unit = "per-unit"
		}
		fmt.Fprintf(w, "line %s-%s: y_series=%v y_shunt=%v (%s)\n", l.From, l.To, l.YSeries, l.YShunt, unit)
	}
	for _, t := range g.transformers {
		fmt.Fprintf(w, "transformer %s-%s: y_series=%v (per-unit)\n", t.From, t.To, t.YSeries)
	}
}
