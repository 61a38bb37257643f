package latency

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-auditory/internal/testutil"
)

func requireParamsNear(t *testing.T, got, want Params, tol float64) {
	t.Helper()
	testutil.RequireSliceNearlyEqual(t, got.Vector(), want.Vector(), tol)
}

func TestFitExactRecovery(t *testing.T) {
	x := []float64{2, 3, 4, 5}
	observed, err := Evaluate(x, trueParams)
	require.NoError(t, err)

	res, err := Fit(x, Params{Lmin: 10, S: 0.5, X0: 0.4, A: 13}, observed, nil)
	require.NoError(t, err)

	requireParamsNear(t, res.Params, trueParams, 1e-3)
	testutil.RequireSliceNearlyEqual(t, res.Predictions, observed, 1e-6)
	assert.Equal(t, MethodLevenbergMarquardt, res.Method)
	assert.Less(t, res.Cost, 1e-12)
	assert.Positive(t, res.Iterations)
	assert.GreaterOrEqual(t, res.Evaluations, res.Iterations)
	assert.NotEmpty(t, res.Reason)

	r, err := FitQuality(res.Predictions, observed)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, r, 1e-9)
}

func TestFitFromDistantGuess(t *testing.T) {
	x := StimulusGrid(2, 6, 0.1)
	observed, err := Evaluate(x, trueParams)
	require.NoError(t, err)

	res, err := Fit(x, Params{Lmin: 20, S: 1, X0: -3, A: 13.3}, observed, nil)
	require.NoError(t, err)

	requireParamsNear(t, res.Params, trueParams, 1e-3)
}

func TestFitNumericJacobian(t *testing.T) {
	x := StimulusGrid(2, 6, 0.1)
	observed, err := Evaluate(x, trueParams)
	require.NoError(t, err)

	res, err := Fit(x, Params{Lmin: 11, S: 0.6, X0: 0.3, A: 12}, observed, nil, WithNumericJacobian())
	require.NoError(t, err)

	requireParamsNear(t, res.Params, trueParams, 1e-3)
}

func TestFitUniformWeightsMatchUnweighted(t *testing.T) {
	x := StimulusGrid(2, 6, 0.1)
	model, err := Evaluate(x, trueParams)
	require.NoError(t, err)

	observed := make([]float64, len(x))
	for i, xi := range x {
		observed[i] = model[i] + 0.05*math.Sin(7*xi)
	}

	guess := Params{Lmin: 10, S: 0.5, X0: 0.4, A: 13}

	plain, err := Fit(x, guess, observed, nil)
	require.NoError(t, err)

	weighted, err := Fit(x, guess, observed, testutil.Constant(2, len(x)))
	require.NoError(t, err)

	requireParamsNear(t, weighted.Params, plain.Params, 1e-6)
	assert.InDelta(t, plain.Cost/4, weighted.Cost, 1e-9)

	r, err := FitQuality(plain.Predictions, observed)
	require.NoError(t, err)
	assert.Greater(t, r, 0.999)
}

func TestFitAlternativeMethods(t *testing.T) {
	x := StimulusGrid(2, 6, 0.1)
	observed, err := Evaluate(x, trueParams)
	require.NoError(t, err)

	for _, m := range []Method{MethodNelderMead, MethodLBFGS} {
		t.Run(m.String(), func(t *testing.T) {
			res, err := Fit(x, Params{Lmin: 10.5, S: 0.55, X0: 0.45, A: 13}, observed, nil,
				WithMethod(m), WithMaxIterations(50000))
			require.NoError(t, err)

			assert.Equal(t, m, res.Method)
			assert.Contains(t, []StopReason{ReasonMethod, ReasonStalled}, res.Reason)
			requireParamsNear(t, res.Params, trueParams, 0.05)

			r, err := FitQuality(res.Predictions, observed)
			require.NoError(t, err)
			assert.Greater(t, r, 0.9999)
		})
	}
}

func TestFitInitialGuessOutsideDomain(t *testing.T) {
	x := StimulusGrid(2, 6, 0.1)
	observed, err := Evaluate(x, trueParams)
	require.NoError(t, err)

	for _, m := range []Method{MethodLevenbergMarquardt, MethodNelderMead} {
		_, err = Fit(x, Params{Lmin: 10, S: 0.5, X0: 3, A: 13}, observed, nil, WithMethod(m))
		require.ErrorIs(t, err, ErrNumericalDomain)
		assert.NotErrorIs(t, err, ErrFitFailure)
	}
}

func TestFitEvaluationBudget(t *testing.T) {
	x := StimulusGrid(2, 6, 0.1)
	observed, err := Evaluate(x, trueParams)
	require.NoError(t, err)

	_, err = Fit(x, Params{Lmin: 20, S: 1, X0: -3, A: 13.3}, observed, nil, WithMaxIterations(3))
	require.ErrorIs(t, err, ErrFitFailure)

	var fe *FitError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, MethodLevenbergMarquardt, fe.Method)
	assert.LessOrEqual(t, fe.Evaluations, 3)
	assert.NotEmpty(t, fe.Error())
}

// Random latencies carry no relation to the stimulus: the fit must either
// fail outright or end with a poor correlation.
func TestFitUnrelatedData(t *testing.T) {
	x := StimulusGrid(2, 6, 0.1)
	observed := testutil.DeterministicUniform(42, 0, 50, len(x))

	res, err := Fit(x, Params{Lmin: 20, S: 1, X0: -3, A: 13.3}, observed, nil)
	if err != nil {
		assert.True(t, errors.Is(err, ErrFitFailure) || errors.Is(err, ErrNumericalDomain),
			"unexpected error: %v", err)
		return
	}

	r, err := FitQuality(res.Predictions, observed)
	if err != nil {
		require.ErrorIs(t, err, ErrStatistics)
		return
	}

	assert.Less(t, math.Abs(r), 0.8)
}

func TestFitInputValidation(t *testing.T) {
	x := []float64{2, 3, 4, 5}
	y := []float64{30, 13, 11, 11}

	tests := []struct {
		name     string
		x        []float64
		observed []float64
		weights  []float64
		want     error
	}{
		{name: "empty", x: nil, observed: nil, want: ErrEmptyInput},
		{name: "length mismatch", x: x, observed: y[:3], want: ErrLengthMismatch},
		{name: "too few points", x: x[:3], observed: y[:3], want: ErrTooFewPoints},
		{name: "nan observation", x: x, observed: []float64{30, math.NaN(), 11, 11}, want: ErrInvalidInput},
		{name: "infinite stimulus", x: []float64{2, 3, math.Inf(1), 5}, observed: y, want: ErrInvalidInput},
		{name: "weight length", x: x, observed: y, weights: []float64{1, 1}, want: ErrLengthMismatch},
		{name: "zero weight", x: x, observed: y, weights: []float64{1, 0, 1, 1}, want: ErrInvalidWeight},
		{name: "infinite weight", x: x, observed: y, weights: []float64{1, math.Inf(1), 1, 1}, want: ErrInvalidWeight},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Fit(tt.x, trueParams, tt.observed, tt.weights)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestFitDoesNotAliasInputs(t *testing.T) {
	x := []float64{2, 3, 4, 5}
	observed, err := Evaluate(x, trueParams)
	require.NoError(t, err)

	xCopy := append([]float64(nil), x...)
	obsCopy := append([]float64(nil), observed...)
	guess := Params{Lmin: 10, S: 0.5, X0: 0.4, A: 13}

	res, err := Fit(x, guess, observed, nil)
	require.NoError(t, err)

	assert.Equal(t, xCopy, x)
	assert.Equal(t, obsCopy, observed)
	assert.Equal(t, Params{Lmin: 10, S: 0.5, X0: 0.4, A: 13}, guess)

	res.Predictions[0] = -1
	assert.Equal(t, obsCopy[0], observed[0])
}

func TestParseMethod(t *testing.T) {
	for _, m := range []Method{MethodLevenbergMarquardt, MethodNelderMead, MethodLBFGS} {
		got, err := ParseMethod(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}

	got, err := ParseMethod(" LM ")
	require.NoError(t, err)
	assert.Equal(t, MethodLevenbergMarquardt, got)

	_, err = ParseMethod("simulated-annealing")
	require.Error(t, err)

	assert.Equal(t, "Method(42)", Method(42).String())
}
