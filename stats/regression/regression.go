// Package regression provides ordinary least-squares line fitting with the
// summary statistics used to judge a fit: slope, intercept, Pearson
// correlation, two-sided p-value of the slope and its standard error.
package regression

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Errors returned by regression functions.
var (
	ErrStatistics = errors.New("regression: degenerate input")
)

// tiny keeps the t statistic finite when |r| == 1.
const tiny = 1e-20

// Result holds the statistics of a simple linear regression y = Intercept + Slope*x.
type Result struct {
	N         int
	Slope     float64
	Intercept float64
	R         float64 // Pearson correlation coefficient
	PValue    float64 // two-sided, null hypothesis slope == 0
	StdErr    float64 // standard error of the slope
}

// Linear fits y against x by ordinary least squares.
//
// Both series must have the same length, at least two points, and non-zero
// variance; otherwise the returned error wraps ErrStatistics.
func Linear(x, y []float64) (Result, error) {
	if len(x) != len(y) {
		return Result{}, fmt.Errorf("%w: length mismatch %d vs %d", ErrStatistics, len(x), len(y))
	}

	n := len(x)
	if n < 2 {
		return Result{}, fmt.Errorf("%w: need at least 2 points, got %d", ErrStatistics, n)
	}

	for i := range x {
		if !isFinite(x[i]) || !isFinite(y[i]) {
			return Result{}, fmt.Errorf("%w: non-finite value at index %d", ErrStatistics, i)
		}
	}

	_, varX := stat.MeanVariance(x, nil)
	_, varY := stat.MeanVariance(y, nil)

	if varX <= 0 {
		return Result{}, fmt.Errorf("%w: x has zero variance", ErrStatistics)
	}

	if varY <= 0 {
		return Result{}, fmt.Errorf("%w: y has zero variance", ErrStatistics)
	}

	intercept, slope := stat.LinearRegression(x, y, nil, false)

	r := stat.Correlation(x, y, nil)
	// Rounding can push |r| marginally above one.
	r = math.Max(-1, math.Min(1, r))

	res := Result{
		N:         n,
		Slope:     slope,
		Intercept: intercept,
		R:         r,
	}

	if n == 2 {
		res.PValue = 0
		res.StdErr = 0

		return res, nil
	}

	df := float64(n - 2)
	t := r * math.Sqrt(df/((1-r+tiny)*(1+r+tiny)))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	res.PValue = 2 * dist.Survival(math.Abs(t))
	res.StdErr = math.Sqrt((1 - r*r) * varY / varX / df)

	return res, nil
}

// Correlation returns only the Pearson r of x and y, with the same input
// requirements as Linear.
func Correlation(x, y []float64) (float64, error) {
	res, err := Linear(x, y)
	if err != nil {
		return 0, err
	}

	return res.R, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
