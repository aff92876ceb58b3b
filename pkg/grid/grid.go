// Package grid is the study orchestrator: it owns the network model
// (buses, lines, transformers, settings, timestamps), normalizes
// admittances to per-unit, classifies buses for each timestamp, drives
// the per-timestamp power-flow solves, and extracts the worst-case
// voltage scenarios from the accumulated results.
package grid

import (
	"fmt"
	"math/cmplx"

	"github.com/voltlab/gridflow/pkg/logging"
	"github.com/voltlab/gridflow/pkg/series"
	"github.com/voltlab/gridflow/pkg/ybus"
)

// Grid holds one study's network model and accumulates its results.
// Topology and settings are fixed before a run; RunPowerFlow never
// mutates them, so a built Grid can be solved repeatedly.
type Grid struct {
	settings     Settings
	buses        []*Bus
	busIndex     map[string]*Bus
	lines        []*Line
	transformers []*Transformer
	seq          *series.Sequence
	matrix       *ybus.Matrix
	results      *series.ResultSet
	logger       logging.Logger
}

// New creates an empty grid with validated settings. A nil logger
// disables logging.
func New(settings Settings, logger logging.Logger) (*Grid, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Grid{
		settings: settings,
		busIndex: make(map[string]*Bus),
		seq:      series.NewSequence(),
		logger:   logger,
	}, nil
}

// Settings returns the study settings.
func (g *Grid) Settings() Settings {
	return g.settings
}

// AddBus registers a bus. Names must be unique and non-empty; the
// registration order fixes the matrix row order for the whole study.
func (g *Grid) AddBus(name string) (*Bus, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrUnknownBus)
	}
	if _, ok := g.busIndex[name]; ok {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateBus, name)
	}
	bus := &Bus{Name: name}
	g.buses = append(g.buses, bus)
	g.busIndex[name] = bus
	g.matrix = nil
	return bus, nil
}

// AddGenerator attaches a generator to a bus.
func (g *Grid) AddGenerator(busName string, gen *Generator) error {
	bus, ok := g.busIndex[busName]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownBus, busName)
	}
	bus.Generators = append(bus.Generators, gen)
	return nil
}

// AddLoad attaches a load to a bus.
func (g *Grid) AddLoad(busName string, load *Load) error {
	bus, ok := g.busIndex[busName]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownBus, busName)
	}
	bus.Loads = append(bus.Loads, load)
	return nil
}

// AddLine registers a line between two existing buses. ySeries is the
// series admittance, yShunt the transverse admittance per end, in the
// import's units.
func (g *Grid) AddLine(from, to string, ySeries, yShunt complex128) (*Line, error) {
	if err := g.checkEndpoints(from, to); err != nil {
		return nil, err
	}
	if !finite(ySeries) || !finite(yShunt) {
		return nil, fmt.Errorf("%w: line %s-%s", ErrInvalidAdmittance, from, to)
	}
	line := &Line{From: from, To: to, YSeries: ySeries, YShunt: yShunt}
	g.lines = append(g.lines, line)
	g.matrix = nil
	return line, nil
}

// AddTransformer registers a transformer between two existing buses.
// The series admittance is per-unit by convention.
func (g *Grid) AddTransformer(from, to string, ySeries complex128) (*Transformer, error) {
	if err := g.checkEndpoints(from, to); err != nil {
		return nil, err
	}
	if !finite(ySeries) {
		return nil, fmt.Errorf("%w: transformer %s-%s", ErrInvalidAdmittance, from, to)
	}
	tr := &Transformer{From: from, To: to, YSeries: ySeries}
	g.transformers = append(g.transformers, tr)
	g.matrix = nil
	return tr, nil
}

func (g *Grid) checkEndpoints(from, to string) error {
	if _, ok := g.busIndex[from]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownBus, from)
	}
	if _, ok := g.busIndex[to]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownBus, to)
	}
	return nil
}

// AddTimestamp appends a timestamp to the study sequence. Duplicates are
// ignored; the first registration fixes the position.
func (g *Grid) AddTimestamp(ts series.Timestamp) {
	g.seq.Add(ts)
}

// Timestamps returns the study's timestamp sequence in order.
func (g *Grid) Timestamps() []series.Timestamp {
	return g.seq.Timestamps()
}

// Buses returns the buses in registration order. The slice is a copy;
// the pointed-to buses are shared.
func (g *Grid) Buses() []*Bus {
	return append([]*Bus(nil), g.buses...)
}

// Lines returns the lines in registration order.
func (g *Grid) Lines() []*Line {
	return append([]*Line(nil), g.lines...)
}

// Transformers returns the transformers in registration order.
func (g *Grid) Transformers() []*Transformer {
	return append([]*Transformer(nil), g.transformers...)
}

// NormalizeAdmittances brings every line's admittances to per-unit by
// dividing by the admittance base YNom. Lines already normalized are
// left alone, so calling this any number of times scales exactly once.
// When the import is flagged resistance-per-unit there is nothing to do.
func (g *Grid) NormalizeAdmittances() {
	if g.settings.ResistanceIsPerUnit {
		return
	}
	yNom := complex(g.settings.YNom(), 0)
	for _, line := range g.lines {
		if line.perUnit {
			continue
		}
		line.YSeries /= yNom
		line.YShunt /= yNom
		line.perUnit = true
	}
}

// RescaleAdmittances is the inverse of NormalizeAdmittances: normalized
// lines are multiplied back to the import's units and unflagged.
func (g *Grid) RescaleAdmittances() {
	if g.settings.ResistanceIsPerUnit {
		return
	}
	yNom := complex(g.settings.YNom(), 0)
	for _, line := range g.lines {
		if !line.perUnit {
			continue
		}
		line.YSeries *= yNom
		line.YShunt *= yNom
		line.perUnit = false
	}
}

// BuildMatrix normalizes admittances and assembles the bus admittance
// matrix. The matrix is cached; topology changes invalidate it.
func (g *Grid) BuildMatrix() (*ybus.Matrix, error) {
	if g.matrix != nil {
		return g.matrix, nil
	}
	if len(g.buses) == 0 {
		return nil, ErrEmptyGrid
	}

	g.NormalizeAdmittances()

	names := make([]string, len(g.buses))
	for i, b := range g.buses {
		names[i] = b.Name
	}
	m, err := ybus.Build(names, g.branches())
	if err != nil {
		return nil, fmt.Errorf("build admittance matrix: %w", err)
	}
	g.matrix = m
	g.logger.Debug("admittance matrix built",
		logging.Int("buses", len(names)),
		logging.Int("branches", len(g.lines)+len(g.transformers)))
	return m, nil
}

// Matrix returns the cached admittance matrix.
func (g *Grid) Matrix() (*ybus.Matrix, error) {
	if g.matrix == nil {
		return nil, ErrMatrixNotBuilt
	}
	return g.matrix, nil
}

// InvalidateMatrix drops the cached matrix so the next BuildMatrix
// reassembles it.
func (g *Grid) InvalidateMatrix() {
	g.matrix = nil
}

// branches flattens lines and transformers into the matrix builder's
// branch form.
func (g *Grid) branches() []ybus.Branch {
	out := make([]ybus.Branch, 0, len(g.lines)+len(g.transformers))
	for _, l := range g.lines {
		out = append(out, ybus.Branch{From: l.From, To: l.To, YSeries: l.YSeries, YShunt: l.YShunt})
	}
	for _, t := range g.transformers {
		out = append(out, ybus.Branch{From: t.From, To: t.To, YSeries: t.YSeries})
	}
	return out
}

func finite(y complex128) bool {
	return !cmplx.IsNaN(y) && !cmplx.IsInf(y)
}
