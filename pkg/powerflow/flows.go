package powerflow

import (
	"math/cmplx"

	"github.com/voltlab/gridflow/pkg/ybus"
)

// lineResults computes branch currents and power flows from the solved
// voltages. The current at each end combines the series current with the
// end's own shunt contribution; losses are the sum of the power entering
// at both ends.
func lineResults(m *ybus.Matrix, branches []ybus.Branch, v, theta []float64) LineResults {
	out := make(LineResults, 0, len(branches))
	for _, br := range branches {
		i, err := m.IndexOf(br.From)
		if err != nil {
			continue
		}
		j, err := m.IndexOf(br.To)
		if err != nil {
			continue
		}

		vi := cmplx.Rect(v[i], theta[i])
		vj := cmplx.Rect(v[j], theta[j])

		iFrom := br.YSeries*(vi-vj) + br.YShunt*vi
		iTo := br.YSeries*(vj-vi) + br.YShunt*vj

		sFrom := vi * cmplx.Conj(iFrom)
		sTo := vj * cmplx.Conj(iTo)

		out = append(out, LineResult{
			From:  br.From,
			To:    br.To,
			IMag:  cmplx.Abs(iFrom),
			PFrom: real(sFrom),
			QFrom: imag(sFrom),
			PTo:   real(sTo),
			QTo:   imag(sTo),
			PLoss: real(sFrom) + real(sTo),
			QLoss: imag(sFrom) + imag(sTo),
		})
	}
	return out
}
