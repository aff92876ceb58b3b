// Package powerflow solves the AC power-flow equations for one operating
// snapshot with the Newton-Raphson method in polar form. Inputs are the
// per-timestamp bus records produced by the grid classifier and the bus
// admittance matrix; outputs are per-bus voltages and per-branch flows.
package powerflow

// Kind tags the role a bus plays in one snapshot's equation system.
type Kind int

const (
	// Slack is the reference bus: fixed magnitude and angle, balances
	// the system's active and reactive power.
	Slack Kind = iota
	// PV is a generator bus: fixed magnitude and active injection,
	// unknown angle and reactive injection.
	PV
	// PQ is a load bus: fixed active and reactive injection, unknown
	// magnitude and angle.
	PQ
)

// String returns the conventional label of the bus kind.
func (k Kind) String() string {
	switch k {
	case Slack:
		return "slack"
	case PV:
		return "PV"
	case PQ:
		return "PQ"
	default:
		return "unknown"
	}
}

// Bus is the per-timestamp view of a grid bus, classified and aggregated
// for one solve. Values are per-unit. A Bus is immutable once built; the
// solver works on its own state vectors and never writes back.
type Bus struct {
	Name string
	Kind Kind

	// VMag and VAngle seed the solver state. For slack and PV buses the
	// magnitude is held fixed through the iteration.
	VMag   float64
	VAngle float64

	// Aggregate generation and load setpoints across the bus's
	// generators and loads at this timestamp.
	PGen  float64
	QGen  float64
	PLoad float64
	QLoad float64

	// Aggregate generation limits. Informational for PQ buses.
	PMin float64
	PMax float64
	QMin float64
	QMax float64
}

// PNet returns the scheduled net active injection (generation minus load).
func (b Bus) PNet() float64 {
	return b.PGen - b.PLoad
}

// QNet returns the scheduled net reactive injection.
func (b Bus) QNet() float64 {
	return b.QGen - b.QLoad
}
