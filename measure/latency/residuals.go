package latency

import (
	"math"

	vecmath "github.com/cwbudde/algo-vecmath"
)

// Residuals returns observed[i] - L(x[i]) for the model at p.
// Domain violations of the model are returned as *DomainError.
func Residuals(p Params, observed, x []float64) ([]float64, error) {
	return WeightedResiduals(p, observed, x, nil)
}

// WeightedResiduals returns (observed[i] - L(x[i])) / sigma[i], the residuals
// scaled by per-point uncertainty. A nil sigma leaves them unweighted.
func WeightedResiduals(p Params, observed, x, sigma []float64) ([]float64, error) {
	if len(observed) != len(x) {
		return nil, ErrLengthMismatch
	}

	invSigma, err := inverseWeights(sigma, len(x))
	if err != nil {
		return nil, err
	}

	out := make([]float64, len(x))
	if err := residualsInto(out, x, observed, invSigma, p); err != nil {
		return nil, err
	}

	return out, nil
}

// residualsInto writes the (optionally weighted) residuals into dst.
func residualsInto(dst, x, observed, invSigma []float64, p Params) error {
	if err := evaluateInto(dst, x, p); err != nil {
		return err
	}

	for i := range dst {
		dst[i] = observed[i] - dst[i]
	}

	if invSigma != nil {
		vecmath.MulBlockInPlace(dst, invSigma)
	}

	return nil
}

// inverseWeights validates sigma and returns 1/sigma, or nil for unweighted
// fitting.
func inverseWeights(sigma []float64, n int) ([]float64, error) {
	if sigma == nil {
		return nil, nil
	}

	if len(sigma) != n {
		return nil, ErrLengthMismatch
	}

	inv := make([]float64, n)
	for i, s := range sigma {
		if !(s > 0) || math.IsInf(s, 0) {
			return nil, ErrInvalidWeight
		}

		inv[i] = 1 / s
	}

	return inv, nil
}
