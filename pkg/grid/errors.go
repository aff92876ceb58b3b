package grid

import (
	"errors"
	"fmt"

	"github.com/voltlab/gridflow/pkg/series"
)

// Common sentinel errors
var (
	ErrDuplicateBus      = errors.New("bus already exists")
	ErrUnknownBus        = errors.New("bus not found")
	ErrUnknownSlack      = errors.New("slack bus not found in grid")
	ErrEmptyGrid         = errors.New("grid has no buses")
	ErrNoTimestamps      = errors.New("grid has no timestamps")
	ErrNoVoltageResults  = errors.New("no voltage results recorded")
	ErrMatrixNotBuilt    = errors.New("admittance matrix not built")
	ErrInvalidAdmittance = errors.New("invalid admittance")
	ErrSeriesNotCovering = errors.New("series does not cover study timestamps")
)

// SolveError wraps a failure of one timestamp's solve with its context.
// The run loop records it and moves on; it never aborts the study.
type SolveError struct {
	Op        string           // stage that failed, e.g. "classify", "solve"
	Timestamp series.Timestamp // timestamp being solved
	Bus       string           // bus being processed, when applicable
	Cause     error
}

// Error implements the error interface.
func (e *SolveError) Error() string {
	if e.Bus != "" {
		return fmt.Sprintf("%s %q (bus %s): %v", e.Op, e.Timestamp, e.Bus, e.Cause)
	}
	return fmt.Sprintf("%s %q: %v", e.Op, e.Timestamp, e.Cause)
}

// Unwrap returns the underlying cause for error chain support.
func (e *SolveError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's cause.
func (e *SolveError) Is(target error) bool {
	if target == nil {
		return false
	}
	return errors.Is(e.Cause, target)
}

// classifyError wraps a classification failure for one timestamp.
func classifyError(ts series.Timestamp, bus string, cause error) error {
	return &SolveError{Op: "classify", Timestamp: ts, Bus: bus, Cause: cause}
}

// solveError wraps a solver failure for one timestamp.
func solveError(ts series.Timestamp, cause error) error {
	return &SolveError{Op: "solve", Timestamp: ts, Cause: cause}
}

// IsDataError reports whether the error came from inconsistent study
// data rather than from the numeric solve.
func IsDataError(err error) bool {
	return errors.Is(err, series.ErrMissingTimestamp) || errors.Is(err, ErrUnknownSlack)
}
