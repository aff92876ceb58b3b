package grid

import (
	"fmt"

	"github.com/voltlab/gridflow/pkg/powerflow"
	"github.com/voltlab/gridflow/pkg/series"
)

// Classify derives the per-timestamp solve view of every bus: generation
// and load setpoints are aggregated per bus, brought to per-unit, and
// each bus is assigned its role. The configured slack bus is always
// slack; any other bus with nonzero aggregate active generation is PV;
// everything else is PQ, including buses with neither generation nor
// load. The first return slice holds every bus in registration order
// (which is also matrix row order), the second the fixed-voltage subset
// (slack and PV) in the same relative order.
//
// Classify is pure with respect to the grid: it never writes back into
// the persistent buses, so concurrent calls for different timestamps are
// safe.
func (g *Grid) Classify(ts series.Timestamp) (all, voltage []powerflow.Bus, err error) {
	_, sNom := g.settings.Divisors()

	slackSeen := false
	all = make([]powerflow.Bus, 0, len(g.buses))

	for _, bus := range g.buses {
		var pMax, pMin, qMax, qMin float64
		var pGen, qGen float64
		var pLoad, qLoad float64

		for _, gen := range bus.Generators {
			pMax += gen.PMax
			pMin += gen.PMin
			qMax += gen.QMax
			qMin += gen.QMin
			sp, err := gen.Setpoints.At(ts)
			if err != nil {
				return nil, nil, classifyError(ts, bus.Name, fmt.Errorf("generator %q: %w", gen.Name, err))
			}
			pGen += sp.P
			qGen += sp.Q
		}
		for _, load := range bus.Loads {
			sp, err := load.Setpoints.At(ts)
			if err != nil {
				return nil, nil, classifyError(ts, bus.Name, fmt.Errorf("load %q: %w", load.Name, err))
			}
			pLoad += sp.P
			qLoad += sp.Q
		}

		pLoadPU := pLoad / sNom
		qLoadPU := qLoad / sNom

		switch {
		case bus.Name == g.settings.SlackBus:
			slackSeen = true
			sb := powerflow.Bus{
				Name:   bus.Name,
				Kind:   powerflow.Slack,
				VMag:   1.0,
				VAngle: 0.0,
				PLoad:  pLoadPU,
				QLoad:  qLoadPU,
				PMax:   pMax / sNom,
				PMin:   pMin / sNom,
			}
			all = append(all, sb)
			voltage = append(voltage, sb)

		case pGen != 0:
			// Reactive setpoints of PV generators are dropped: reactive
			// injection is a solve unknown on a PV bus.
			sb := powerflow.Bus{
				Name:  bus.Name,
				Kind:  powerflow.PV,
				VMag:  1.0,
				PGen:  pGen / sNom,
				PLoad: pLoadPU,
				QLoad: qLoadPU,
				PMax:  pMax / sNom,
				PMin:  pMin / sNom,
				QMax:  qMax / sNom,
				QMin:  qMin / sNom,
			}
			all = append(all, sb)
			voltage = append(voltage, sb)

		default:
			all = append(all, powerflow.Bus{
				Name:  bus.Name,
				Kind:  powerflow.PQ,
				VMag:  1.0,
				PLoad: pLoadPU,
				QLoad: qLoadPU,
			})
		}
	}

	if !slackSeen {
		return nil, nil, classifyError(ts, g.settings.SlackBus, ErrUnknownSlack)
	}
	return all, voltage, nil
}
