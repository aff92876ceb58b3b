package grid

import (
	"github.com/voltlab/gridflow/pkg/powerflow"
	"github.com/voltlab/gridflow/pkg/series"
)

// minSentinel seeds the running minimum; any real voltage magnitude
// improves on it.
const minSentinel = 1e20

// Extreme is one worst-case scenario: the timestamp where a voltage
// extreme occurred, the extreme magnitude, and the timestamp's complete
// node and line records.
type Extreme struct {
	Timestamp series.Timestamp
	VMag      float64
	Nodes     powerflow.NodeResults
	Lines     powerflow.LineResults
}

// WorstCase pairs the lowest-voltage and highest-voltage scenarios of a
// run.
type WorstCase struct {
	Min Extreme
	Max Extreme
}

// WorstCase scans the recorded results in study order and returns the
// timestamps holding the lowest and highest bus voltage magnitude. Ties
// keep the earliest timestamp. If no run has recorded any voltage
// result, or an extreme never resolved, it returns ErrNoVoltageResults
// rather than pointing at an arbitrary timestamp.
func (g *Grid) WorstCase() (*WorstCase, error) {
	if g.results == nil || g.results.Len() == 0 {
		return nil, ErrNoVoltageResults
	}

	minV, maxV := float64(minSentinel), 0.0
	var minTS, maxTS series.Timestamp
	minFound, maxFound := false, false

	g.results.Each(func(res series.Result) {
		for _, node := range res.Nodes {
			if node.VMag < minV {
				minV = node.VMag
				minTS = res.Timestamp
				minFound = true
			}
			if node.VMag > maxV {
				maxV = node.VMag
				maxTS = res.Timestamp
				maxFound = true
			}
		}
	})

	if !minFound || !maxFound {
		return nil, ErrNoVoltageResults
	}

	minRes, err := g.results.Get(minTS)
	if err != nil {
		return nil, err
	}
	maxRes, err := g.results.Get(maxTS)
	if err != nil {
		return nil, err
	}

	return &WorstCase{
		Min: Extreme{Timestamp: minTS, VMag: minV, Nodes: minRes.Nodes, Lines: minRes.Lines},
		Max: Extreme{Timestamp: maxTS, VMag: maxV, Nodes: maxRes.Nodes, Lines: maxRes.Lines},
	}, nil
}
