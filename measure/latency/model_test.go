package latency

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/algo-auditory/internal/testutil"
)

var trueParams = Params{Lmin: 10, S: 0.5, X0: 0.5, A: 13.3}

func TestEvaluateKnownValues(t *testing.T) {
	x := []float64{2, 3, 4, 5}

	got, err := Evaluate(x, trueParams)
	require.NoError(t, err)

	want := make([]float64, len(x))
	for i, xi := range x {
		u := math.Log(xi-0.5) + 0.5
		want[i] = 10 + 13.3/math.Pow(u, 4)
	}

	testutil.RequireSliceNearlyEqual(t, got, want, 1e-12)

	// Latency decreases towards Lmin as the stimulus grows.
	for i := 1; i < len(got); i++ {
		assert.Less(t, got[i], got[i-1])
		assert.Greater(t, got[i], trueParams.Lmin)
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	x := StimulusGrid(2, 6, 0.1)
	orig := append([]float64(nil), x...)

	a, err := Evaluate(x, trueParams)
	require.NoError(t, err)

	b, err := Evaluate(x, trueParams)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, orig, x, "input must not be modified")
}

func TestEvaluateDomainViolation(t *testing.T) {
	tests := []struct {
		name   string
		x      []float64
		p      Params
		index  int
		reason DomainReason
	}{
		{
			name:   "stimulus below x0",
			x:      []float64{0.1},
			p:      trueParams,
			index:  0,
			reason: ReasonLogArgument,
		},
		{
			name:   "stimulus equal to x0",
			x:      []float64{2, 3, 0.5},
			p:      trueParams,
			index:  2,
			reason: ReasonLogArgument,
		},
		{
			name:   "zero denominator",
			x:      []float64{3, 1.5},
			p:      Params{Lmin: 10, S: 0, X0: 0.5, A: 13.3},
			index:  1,
			reason: ReasonZeroDenominator,
		},
		{
			name:   "non-finite amplitude",
			x:      []float64{2},
			p:      Params{Lmin: 10, S: 0.5, X0: 0.5, A: math.Inf(1)},
			index:  0,
			reason: ReasonNonFinite,
		},
		{
			name:   "nan offset",
			x:      []float64{2},
			p:      Params{Lmin: 10, S: 0.5, X0: math.NaN(), A: 13.3},
			index:  0,
			reason: ReasonLogArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Evaluate(tt.x, tt.p)
			require.ErrorIs(t, err, ErrNumericalDomain)
			assert.Nil(t, out)

			var de *DomainError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, tt.index, de.Index)
			assert.Equal(t, tt.reason, de.Reason)
			assert.NotEmpty(t, de.Error())
		})
	}
}

func TestParamsAt(t *testing.T) {
	v, err := trueParams.At(3)
	require.NoError(t, err)

	all, err := Evaluate([]float64{3}, trueParams)
	require.NoError(t, err)
	assert.Equal(t, all[0], v)

	_, err = trueParams.At(0.2)
	require.ErrorIs(t, err, ErrNumericalDomain)
}

func TestParamsVectorRoundTrip(t *testing.T) {
	p := Params{Lmin: 1, S: 2, X0: 3, A: 4}
	assert.Equal(t, []float64{1, 2, 3, 4}, p.Vector())
	assert.Equal(t, p, ParamsFromVector(p.Vector()))
}

func TestJacobianMatchesFiniteDifferences(t *testing.T) {
	x := StimulusGrid(2, 6, 0.5)
	observed, err := Evaluate(x, trueParams)
	require.NoError(t, err)

	sigma := make([]float64, len(x))
	for i := range sigma {
		sigma[i] = 0.5 + 0.1*float64(i)
	}

	invSigma, err := inverseWeights(sigma, len(x))
	require.NoError(t, err)

	p := Params{Lmin: 11, S: 0.7, X0: 0.2, A: 9}

	analytic := mat.NewDense(len(x), NumParams, nil)
	jacobianInto(analytic, x, invSigma, p)

	numeric := mat.NewDense(len(x), NumParams, nil)
	fd.Jacobian(numeric, func(y, v []float64) {
		if err := residualsInto(y, x, observed, invSigma, ParamsFromVector(v)); err != nil {
			t.Fatalf("residuals: %v", err)
		}
	}, p.Vector(), &fd.JacobianSettings{Formula: fd.Central})

	for i := 0; i < len(x); i++ {
		for j := 0; j < NumParams; j++ {
			a, n := analytic.At(i, j), numeric.At(i, j)
			tol := 1e-5 * math.Max(1, math.Abs(a))
			if math.Abs(a-n) > tol {
				t.Fatalf("J[%d][%d]: analytic %v, numeric %v", i, j, a, n)
			}
		}
	}
}

func TestStimulusGrid(t *testing.T) {
	g := StimulusGrid(2, 6, 0.1)
	require.Len(t, g, 40)
	assert.Equal(t, 2.0, g[0])
	assert.InDelta(t, 5.9, g[len(g)-1], 1e-12)

	assert.Len(t, StimulusGrid(0, 1, 0.25), 4)
	assert.Nil(t, StimulusGrid(1, 1, 0.1))
	assert.Nil(t, StimulusGrid(0, 1, 0))
	assert.Nil(t, StimulusGrid(0, 1, -1))
}
