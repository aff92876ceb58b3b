package grid

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/voltlab/gridflow/pkg/powerflow"
)

// propertyGrid builds a two-bus grid with one line carrying the given
// admittance components under the given bases.
func propertyGrid(vNom, sNom, gSeries, bSeries float64) (*Grid, *Line, error) {
	g, err := New(Settings{VNom: vNom, SNom: sNom, SlackBus: "a"}, nil)
	if err != nil {
		return nil, nil, err
	}
	if _, err := g.AddBus("a"); err != nil {
		return nil, nil, err
	}
	if _, err := g.AddBus("b"); err != nil {
		return nil, nil, err
	}
	line, err := g.AddLine("a", "b", complex(gSeries, bSeries), complex(0, bSeries/10))
	if err != nil {
		return nil, nil, err
	}
	return g, line, nil
}

// TestNormalizationInvariants verifies the per-unit conversion properties
// that must hold for any admittance values and any valid bases.
func TestNormalizationInvariants(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	// Property 1: normalizing any number of times scales exactly once
	properties.Property("normalization is idempotent", prop.ForAll(
		func(vNom, sNom, gs, bs float64, extra int) bool {
			g, line, err := propertyGrid(vNom, sNom, gs, bs)
			if err != nil {
				return true // Skip invalid bases
			}

			g.NormalizeAdmittances()
			once := line.YSeries
			onceShunt := line.YShunt

			for i := 0; i < extra; i++ {
				g.NormalizeAdmittances()
			}

			return line.YSeries == once && line.YShunt == onceShunt
		},
		gen.Float64Range(0.1, 1e6),
		gen.Float64Range(0.1, 1e9),
		gen.Float64Range(-100, 100),
		gen.Float64Range(-100, 100),
		gen.IntRange(1, 5),
	))

	// Property 2: rescale undoes normalize to within float rounding
	properties.Property("normalize then rescale restores the import", prop.ForAll(
		func(vNom, sNom, gs, bs float64) bool {
			g, line, err := propertyGrid(vNom, sNom, gs, bs)
			if err != nil {
				return true
			}
			orig := line.YSeries

			g.NormalizeAdmittances()
			g.RescaleAdmittances()

			diff := line.YSeries - orig
			scale := math.Max(math.Abs(real(orig)), math.Abs(imag(orig)))
			if scale == 0 {
				return line.YSeries == orig
			}
			return math.Abs(real(diff))/scale < 1e-12 && math.Abs(imag(diff))/scale < 1e-12
		},
		gen.Float64Range(0.1, 1e6),
		gen.Float64Range(0.1, 1e9),
		gen.Float64Range(-100, 100),
		gen.Float64Range(-100, 100),
	))

	// Property 3: a per-unit import is never touched
	properties.Property("per-unit imports pass through unscaled", prop.ForAll(
		func(vNom, sNom, gs, bs float64) bool {
			g, err := New(Settings{VNom: vNom, SNom: sNom, SlackBus: "a", ResistanceIsPerUnit: true}, nil)
			if err != nil {
				return true
			}
			g.AddBus("a")
			g.AddBus("b")
			line, err := g.AddLine("a", "b", complex(gs, bs), 0)
			if err != nil {
				return true
			}

			g.NormalizeAdmittances()
			return line.YSeries == complex(gs, bs) && !line.IsPerUnit()
		},
		gen.Float64Range(0.1, 1e6),
		gen.Float64Range(0.1, 1e9),
		gen.Float64Range(-100, 100),
		gen.Float64Range(-100, 100),
	))

	// Property 4: unit bases make normalization the identity
	properties.Property("unit bases preserve admittances exactly", prop.ForAll(
		func(gs, bs float64) bool {
			g, line, err := propertyGrid(1, 1, gs, bs)
			if err != nil {
				return true
			}

			g.NormalizeAdmittances()
			return line.YSeries == complex(gs, bs)
		},
		gen.Float64Range(-100, 100),
		gen.Float64Range(-100, 100),
	))

	properties.TestingRun(t)
}

// TestClassificationInvariants verifies the structural guarantees of bus
// classification for arbitrary bus populations.
func TestClassificationInvariants(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	// buildPopulation creates numBuses buses named b0..bN with b0 as
	// slack, attaching a generator to every bus whose index is in genAt.
	buildPopulation := func(numBuses int, genAt []int, pGen float64) (*Grid, error) {
		g, err := New(Settings{VNom: 1, SNom: 1, SlackBus: "b0"}, nil)
		if err != nil {
			return nil, err
		}
		names := make([]string, numBuses)
		for i := 0; i < numBuses; i++ {
			names[i] = "b" + string(rune('0'+i))
			if _, err := g.AddBus(names[i]); err != nil {
				return nil, err
			}
		}
		for _, idx := range genAt {
			if idx < 0 || idx >= numBuses {
				continue
			}
			unit := NewGenerator("g"+names[idx], 0, 100, -50, 50)
			unit.Setpoints.Set("T", pGen, 0)
			if err := g.AddGenerator(names[idx], unit); err != nil {
				return nil, err
			}
		}
		return g, nil
	}

	// Property 1: every bus classifies, in registration order
	properties.Property("classification covers every bus in matrix order", prop.ForAll(
		func(numBuses int, genAt []int, pGen float64) bool {
			g, err := buildPopulation(numBuses, genAt, pGen)
			if err != nil {
				return true
			}

			all, _, err := g.Classify("T")
			if err != nil {
				return false
			}
			if len(all) != numBuses {
				return false
			}
			for i, b := range all {
				if b.Name != g.buses[i].Name {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 9),
		gen.SliceOf(gen.IntRange(0, 8)),
		gen.Float64Range(0.1, 10),
	))

	// Property 2: exactly one slack, and it is the configured bus
	properties.Property("exactly one slack bus", prop.ForAll(
		func(numBuses int, genAt []int, pGen float64) bool {
			g, err := buildPopulation(numBuses, genAt, pGen)
			if err != nil {
				return true
			}

			all, _, err := g.Classify("T")
			if err != nil {
				return false
			}
			slacks := 0
			for _, b := range all {
				if b.Kind == powerflow.Slack {
					slacks++
					if b.Name != "b0" || b.VMag != 1 || b.VAngle != 0 {
						return false
					}
				}
			}
			return slacks == 1
		},
		gen.IntRange(1, 9),
		gen.SliceOf(gen.IntRange(0, 8)),
		gen.Float64Range(0.1, 10),
	))

	// Property 3: the voltage-controlled subset is the non-PQ buses in
	// the same relative order as the full list
	properties.Property("voltage subset preserves relative order", prop.ForAll(
		func(numBuses int, genAt []int, pGen float64) bool {
			g, err := buildPopulation(numBuses, genAt, pGen)
			if err != nil {
				return true
			}

			all, voltage, err := g.Classify("T")
			if err != nil {
				return false
			}
			want := make([]string, 0, len(all))
			for _, b := range all {
				if b.Kind != powerflow.PQ {
					want = append(want, b.Name)
				}
			}
			if len(voltage) != len(want) {
				return false
			}
			for i, b := range voltage {
				if b.Name != want[i] {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 9),
		gen.SliceOf(gen.IntRange(0, 8)),
		gen.Float64Range(0.1, 10),
	))

	// Property 4: load setpoints are divided by the power base
	properties.Property("loads scale by the power base", prop.ForAll(
		func(sNom, pLoad, qLoad float64) bool {
			g, err := New(Settings{VNom: 1, SNom: sNom, SlackBus: "a"}, nil)
			if err != nil {
				return true
			}
			g.AddBus("a")
			g.AddBus("b")
			load := NewLoad("l1")
			load.Setpoints.Set("T", pLoad, qLoad)
			g.AddLoad("b", load)

			all, _, err := g.Classify("T")
			if err != nil {
				return false
			}
			return all[1].PLoad == pLoad/sNom && all[1].QLoad == qLoad/sNom
		},
		gen.Float64Range(0.5, 1e9),
		gen.Float64Range(-1e6, 1e6),
		gen.Float64Range(-1e6, 1e6),
	))

	properties.TestingRun(t)
}
