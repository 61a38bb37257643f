package latency

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// NumParams is the number of free model parameters.
const NumParams = 4

// Params are the MAPP latency model parameters.
type Params struct {
	Lmin float64 // latency floor
	S    float64 // shape offset
	X0   float64 // horizontal singularity offset
	A    float64 // amplitude
}

// Vector returns the parameters in solver order (Lmin, S, x0, a).
func (p Params) Vector() []float64 {
	return []float64{p.Lmin, p.S, p.X0, p.A}
}

// ParamsFromVector is the inverse of Params.Vector. v must have NumParams
// elements.
func ParamsFromVector(v []float64) Params {
	return Params{Lmin: v[0], S: v[1], X0: v[2], A: v[3]}
}

// At evaluates the model at a single stimulus value.
func (p Params) At(x float64) (float64, error) {
	v, reason := p.eval(x)
	if reason != 0 {
		return 0, &DomainError{Index: 0, X: x, Params: p, Reason: reason}
	}

	return v, nil
}

// eval returns the model value at x, or the reason it is undefined.
func (p Params) eval(x float64) (float64, DomainReason) {
	d := x - p.X0
	if !(d > 0) {
		return 0, ReasonLogArgument
	}

	u := math.Log(d) + p.S
	if u == 0 {
		return 0, ReasonZeroDenominator
	}

	u2 := u * u
	v := p.Lmin + p.A/(u2*u2)

	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ReasonNonFinite
	}

	return v, 0
}

// Evaluate computes Lmin + a / (ln(x[i] - x0) + S)^4 for every stimulus
// value. It fails with a *DomainError at the first x[i] where the model is
// undefined. x is not modified.
func Evaluate(x []float64, p Params) ([]float64, error) {
	out := make([]float64, len(x))
	if err := evaluateInto(out, x, p); err != nil {
		return nil, err
	}

	return out, nil
}

// evaluateInto writes model values into dst, which must have len(x) elements.
func evaluateInto(dst, x []float64, p Params) error {
	for i, xi := range x {
		v, reason := p.eval(xi)
		if reason != 0 {
			return &DomainError{Index: i, X: xi, Params: p, Reason: reason}
		}

		dst[i] = v
	}

	return nil
}

// jacobianInto fills dst (len(x) x NumParams) with the partial derivatives of
// the residuals observed - model with respect to (Lmin, S, x0, a), scaled
// row-wise by invSigma when it is non-nil. p must lie inside the domain for
// every x[i].
//
//	dr/dLmin = -1
//	dr/dS    =  4a / u^5
//	dr/dx0   = -4a / (u^5 (x - x0))
//	dr/da    = -1 / u^4
//
// with u = ln(x - x0) + S.
func jacobianInto(dst *mat.Dense, x, invSigma []float64, p Params) {
	for i, xi := range x {
		d := xi - p.X0
		u := math.Log(d) + p.S
		u4 := u * u * u * u
		u5 := u4 * u

		w := 1.0
		if invSigma != nil {
			w = invSigma[i]
		}

		dst.Set(i, 0, -w)
		dst.Set(i, 1, w*4*p.A/u5)
		dst.Set(i, 2, -w*4*p.A/(u5*d))
		dst.Set(i, 3, -w/u4)
	}
}

// StimulusGrid returns evenly spaced stimulus values in [start, stop) with
// the given step, the sampling used by the example driver.
func StimulusGrid(start, stop, step float64) []float64 {
	if !(step > 0) || !(stop > start) {
		return nil
	}

	n := int((stop - start) / step)
	// Guard against (stop-start)/step rounding just below an integer.
	if start+float64(n)*step < stop-step*1e-9 {
		n++
	}

	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}

	return out
}
