package powerflow

// NodeResult is the solved operating point of one bus.
type NodeResult struct {
	Name      string
	Kind      Kind
	VMag      float64 // voltage magnitude, per-unit
	VAngleDeg float64 // voltage angle, degrees
	P         float64 // net active injection at the solution, per-unit
	Q         float64 // net reactive injection at the solution, per-unit
}

// NodeResults holds one NodeResult per bus, in matrix row order.
type NodeResults []NodeResult

// LineResult is the solved flow over one branch.
type LineResult struct {
	From  string
	To    string
	IMag  float64 // series current magnitude, per-unit
	PFrom float64 // active power entering at the from end, per-unit
	QFrom float64
	PTo   float64 // active power entering at the to end, per-unit
	QTo   float64
	PLoss float64 // PFrom + PTo
	QLoss float64
}

// LineResults holds one LineResult per branch, in input branch order.
type LineResults []LineResult

// Stats describes how a solve went.
type Stats struct {
	Iterations  int
	MaxMismatch float64 // largest power mismatch at exit, per-unit
}
