package grid

import (
	"github.com/voltlab/gridflow/pkg/series"
)

// Bus is a persistent grid node: a name, plus the generators and loads
// attached to it. Per-timestamp electrical state never lives here; each
// solve derives its own classified view.
type Bus struct {
	Name       string
	Generators []*Generator
	Loads      []*Load
}

// Generator is a generation unit attached to a bus. Limits are static;
// the operating point comes from the setpoint series, which must cover
// every study timestamp. Units follow the import convention: physical
// units unless the import is flagged per-unit.
type Generator struct {
	Name      string
	PMin      float64
	PMax      float64
	QMin      float64
	QMax      float64
	Setpoints *series.Series
}

// NewGenerator creates a generator with the given active and reactive
// limits and an empty setpoint series.
func NewGenerator(name string, pMin, pMax, qMin, qMax float64) *Generator {
	return &Generator{
		Name:      name,
		PMin:      pMin,
		PMax:      pMax,
		QMin:      qMin,
		QMax:      qMax,
		Setpoints: series.NewSeries(),
	}
}

// Load is a consumption unit attached to a bus, described entirely by its
// setpoint series.
type Load struct {
	Name      string
	Setpoints *series.Series
}

// NewLoad creates a load with an empty setpoint series.
func NewLoad(name string) *Load {
	return &Load{Name: name, Setpoints: series.NewSeries()}
}

// Line is a branch between two buses. YSeries is the series admittance,
// YShunt the transverse admittance attached at each end. Both are in the
// import's physical units until normalization; the perUnit flag records
// that normalization happened so it can never be applied twice.
type Line struct {
	From    string
	To      string
	YSeries complex128
	YShunt  complex128

	perUnit bool
}

// IsPerUnit reports whether the line's admittances have been normalized.
func (l *Line) IsPerUnit() bool {
	return l.perUnit
}

// Transformer is a branch with a per-unit series admittance. Transformer
// parameters are per-unit by convention and are never rescaled.
type Transformer struct {
	From    string
	To      string
	YSeries complex128
}
