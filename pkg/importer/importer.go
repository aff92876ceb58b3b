// Package importer loads a study network from a directory of CSV files
// and returns a fully populated grid: settings, buses, branches,
// generators, loads and the ordered timestamp sequence.
//
// Expected files, all with a header row:
//
//	settings.csv      v_nom,s_nom,slack,is_import_pu,is_resistance_pu
//	buses.csv         name                        (file order = matrix order)
//	lines.csv         from,to,g_series,b_series,g_shunt,b_shunt
//	transformers.csv  from,to,g_series,b_series   (optional)
//	generators.csv    name,bus,p_min,p_max,q_min,q_max
//	loads.csv         name,bus
//	series.csv        timestamp,element,p,q
//
// Element names bind series rows to generators and loads and must be
// unique across both. The study's timestamp order is the order of first
// appearance in series.csv; every generator and load must carry a
// setpoint for every timestamp.
package importer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/voltlab/gridflow/pkg/grid"
	"github.com/voltlab/gridflow/pkg/logging"
	"github.com/voltlab/gridflow/pkg/series"
)

// Import errors. Everything detected here is a configuration or data
// error surfaced before any solve starts.
var (
	ErrNotADirectory    = errors.New("import path is not a directory")
	ErrMissingFile      = errors.New("required import file missing")
	ErrNoTimestamps     = errors.New("series.csv has no data rows")
	ErrDuplicateElement = errors.New("duplicate element name")
	ErrUnknownElement   = errors.New("series references unknown element")
)

// Load reads the network under dir and returns the populated grid. The
// grid is complete and validated: the timestamp sequence is registered
// and every generator and load covers it. A nil logger disables logging.
func Load(dir string, logger logging.Logger) (*grid.Grid, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrNotADirectory, dir)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %q", ErrNotADirectory, dir)
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	settings, err := loadSettings(filepath.Join(dir, "settings.csv"))
	if err != nil {
		return nil, err
	}

	g, err := grid.New(settings, logger)
	if err != nil {
		return nil, err
	}

	if err := loadBuses(g, filepath.Join(dir, "buses.csv")); err != nil {
		return nil, err
	}

	// elements binds series rows to generator and load setpoints.
	elements := make(map[string]*series.Series)

	if err := loadGenerators(g, elements, filepath.Join(dir, "generators.csv")); err != nil {
		return nil, err
	}
	if err := loadLoads(g, elements, filepath.Join(dir, "loads.csv")); err != nil {
		return nil, err
	}
	if err := loadLines(g, filepath.Join(dir, "lines.csv")); err != nil {
		return nil, err
	}
	if err := loadTransformers(g, filepath.Join(dir, "transformers.csv")); err != nil {
		return nil, err
	}
	if err := loadSeries(g, elements, filepath.Join(dir, "series.csv")); err != nil {
		return nil, err
	}
	if err := checkCoverage(g); err != nil {
		return nil, err
	}

	logger.Info("network imported",
		logging.Path(dir),
		logging.Int("buses", len(g.Buses())),
		logging.Int("lines", len(g.Lines())),
		logging.Int("transformers", len(g.Transformers())),
		logging.Int("timestamps", len(g.Timestamps())))
	return g, nil
}

func loadSettings(path string) (grid.Settings, error) {
	t, err := readTable(path)
	if err != nil {
		return grid.Settings{}, err
	}
	if err := t.require("v_nom", "s_nom", "slack"); err != nil {
		return grid.Settings{}, err
	}
	if len(t.rows) != 1 {
		return grid.Settings{}, fmt.Errorf("%s: expected exactly one settings row, got %d", path, len(t.rows))
	}

	row := t.rows[0]
	vNom, err := t.floatField(row, "v_nom", 0)
	if err != nil {
		return grid.Settings{}, err
	}
	sNom, err := t.floatField(row, "s_nom", 0)
	if err != nil {
		return grid.Settings{}, err
	}
	importPU, err := t.boolField(row, "is_import_pu", 0)
	if err != nil {
		return grid.Settings{}, err
	}
	resistancePU, err := t.boolField(row, "is_resistance_pu", 0)
	if err != nil {
		return grid.Settings{}, err
	}

	return grid.Settings{
		VNom:                vNom,
		SNom:                sNom,
		SlackBus:            t.field(row, "slack"),
		ImportIsPerUnit:     importPU,
		ResistanceIsPerUnit: resistancePU,
	}, nil
}

func loadBuses(g *grid.Grid, path string) error {
	t, err := readTable(path)
	if err != nil {
		return err
	}
	if err := t.require("name"); err != nil {
		return err
	}

	for i, row := range t.rows {
		if _, err := g.AddBus(t.field(row, "name")); err != nil {
			return t.rowError(i, err)
		}
	}
	return nil
}

func loadGenerators(g *grid.Grid, elements map[string]*series.Series, path string) error {
	t, err := readTable(path)
	if err != nil {
		return err
	}
	if err := t.require("name", "bus", "p_min", "p_max", "q_min", "q_max"); err != nil {
		return err
	}

	for i, row := range t.rows {
		name := t.field(row, "name")
		if _, dup := elements[name]; dup {
			return t.rowError(i, fmt.Errorf("%w: %q", ErrDuplicateElement, name))
		}

		pMin, err := t.floatField(row, "p_min", i)
		if err != nil {
			return err
		}
		pMax, err := t.floatField(row, "p_max", i)
		if err != nil {
			return err
		}
		qMin, err := t.floatField(row, "q_min", i)
		if err != nil {
			return err
		}
		qMax, err := t.floatField(row, "q_max", i)
		if err != nil {
			return err
		}

		gen := grid.NewGenerator(name, pMin, pMax, qMin, qMax)
		if err := g.AddGenerator(t.field(row, "bus"), gen); err != nil {
			return t.rowError(i, err)
		}
		elements[name] = gen.Setpoints
	}
	return nil
}

func loadLoads(g *grid.Grid, elements map[string]*series.Series, path string) error {
	t, err := readTable(path)
	if err != nil {
		return err
	}
	if err := t.require("name", "bus"); err != nil {
		return err
	}

	for i, row := range t.rows {
		name := t.field(row, "name")
		if _, dup := elements[name]; dup {
			return t.rowError(i, fmt.Errorf("%w: %q", ErrDuplicateElement, name))
		}

		load := grid.NewLoad(name)
		if err := g.AddLoad(t.field(row, "bus"), load); err != nil {
			return t.rowError(i, err)
		}
		elements[name] = load.Setpoints
	}
	return nil
}

func loadLines(g *grid.Grid, path string) error {
	t, err := readTable(path)
	if err != nil {
		return err
	}
	if err := t.require("from", "to", "g_series", "b_series", "g_shunt", "b_shunt"); err != nil {
		return err
	}

	for i, row := range t.rows {
		ySeries, err := t.complexField(row, "g_series", "b_series", i)
		if err != nil {
			return err
		}
		yShunt, err := t.complexField(row, "g_shunt", "b_shunt", i)
		if err != nil {
			return err
		}
		if _, err := g.AddLine(t.field(row, "from"), t.field(row, "to"), ySeries, yShunt); err != nil {
			return t.rowError(i, err)
		}
	}
	return nil
}

// loadTransformers is optional: a network without transformers simply
// omits the file.
func loadTransformers(g *grid.Grid, path string) error {
	t, err := readTable(path)
	if errors.Is(err, ErrMissingFile) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := t.require("from", "to", "g_series", "b_series"); err != nil {
		return err
	}

	for i, row := range t.rows {
		ySeries, err := t.complexField(row, "g_series", "b_series", i)
		if err != nil {
			return err
		}
		if _, err := g.AddTransformer(t.field(row, "from"), t.field(row, "to"), ySeries); err != nil {
			return t.rowError(i, err)
		}
	}
	return nil
}

func loadSeries(g *grid.Grid, elements map[string]*series.Series, path string) error {
	t, err := readTable(path)
	if err != nil {
		return err
	}
	if err := t.require("timestamp", "element", "p", "q"); err != nil {
		return err
	}
	if len(t.rows) == 0 {
		return fmt.Errorf("%w (%s)", ErrNoTimestamps, path)
	}

	for i, row := range t.rows {
		name := t.field(row, "element")
		setpoints, ok := elements[name]
		if !ok {
			return t.rowError(i, fmt.Errorf("%w: %q", ErrUnknownElement, name))
		}

		p, err := t.floatField(row, "p", i)
		if err != nil {
			return err
		}
		q, err := t.floatField(row, "q", i)
		if err != nil {
			return err
		}

		ts := series.Timestamp(t.field(row, "timestamp"))
		setpoints.Set(ts, p, q)
		g.AddTimestamp(ts)
	}
	return nil
}

// checkCoverage verifies that every generator and load has a setpoint
// for every study timestamp, so classification can never hit a missing
// series entry for an imported network.
func checkCoverage(g *grid.Grid) error {
	timestamps := g.Timestamps()
	for _, bus := range g.Buses() {
		for _, gen := range bus.Generators {
			if !gen.Setpoints.Covers(timestamps) {
				return fmt.Errorf("generator %q on bus %q: %w", gen.Name, bus.Name, grid.ErrSeriesNotCovering)
			}
		}
		for _, load := range bus.Loads {
			if !load.Setpoints.Covers(timestamps) {
				return fmt.Errorf("load %q on bus %q: %w", load.Name, bus.Name, grid.ErrSeriesNotCovering)
			}
		}
	}
	return nil
}
