package latency

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-auditory/stats/regression"
)

// Errors returned by latency functions.
var (
	ErrNumericalDomain = errors.New("latency: model evaluated outside its domain")
	ErrFitFailure      = errors.New("latency: fit did not converge")
	ErrLengthMismatch  = errors.New("latency: series lengths differ")
	ErrEmptyInput      = errors.New("latency: input series is empty")
	ErrTooFewPoints    = errors.New("latency: fewer data points than parameters")
	ErrInvalidInput    = errors.New("latency: input contains non-finite values")
	ErrInvalidWeight   = errors.New("latency: weights must be positive and finite")

	// ErrStatistics is returned by FitQuality for degenerate input.
	ErrStatistics = regression.ErrStatistics
)

// DomainReason tells which model precondition failed.
type DomainReason int

const (
	// ReasonLogArgument means x - x0 <= 0.
	ReasonLogArgument DomainReason = iota + 1
	// ReasonZeroDenominator means ln(x - x0) + S == 0.
	ReasonZeroDenominator
	// ReasonNonFinite means the model value overflowed or is NaN.
	ReasonNonFinite
)

func (r DomainReason) String() string {
	switch r {
	case ReasonLogArgument:
		return "non-positive log argument"
	case ReasonZeroDenominator:
		return "zero denominator"
	case ReasonNonFinite:
		return "non-finite value"
	default:
		return "unknown"
	}
}

// DomainError reports the first stimulus value at which the model could not
// be evaluated.
type DomainError struct {
	Index  int
	X      float64
	Params Params
	Reason DomainReason
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("latency: %s at x[%d] = %g (x0 = %g, S = %g)",
		e.Reason, e.Index, e.X, e.Params.X0, e.Params.S)
}

// Unwrap returns ErrNumericalDomain.
func (e *DomainError) Unwrap() error { return ErrNumericalDomain }

// FitError is returned when the solver exhausts its evaluation budget or
// otherwise fails to converge.
// Params holds the best parameters reached.
type FitError struct {
	Method      Method
	Evaluations int
	Iterations  int
	Cost        float64
	Params      Params

	// Cause is the last domain violation met by a rejected trial point, or the
	// error reported by the underlying optimizer.
	Cause error
}

func (e *FitError) Error() string {
	msg := fmt.Sprintf("latency: %s fit did not converge after %d evaluations (cost %g)",
		e.Method, e.Evaluations, e.Cost)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}

	return msg
}

// Unwrap returns ErrFitFailure and, when present, the domain violation.
func (e *FitError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrFitFailure}
	}

	return []error{ErrFitFailure, e.Cause}
}
