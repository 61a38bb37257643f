// Package latency fits the Maximum Acceleration of Peak Pressure (MAPP)
// model of first-spike latency to measured neural data.
//
// The model, after Heil (J Neurophysiol 1997, 77:2616-2642), relates the
// MAPP of a stimulus x to the latency of the first spike:
//
//	L(x) = Lmin + a / (ln(x - x0) + S)^4
//
// with four free parameters:
//
//   - Lmin: latency floor reached for very intense stimuli
//   - S:    shape offset inside the logarithm
//   - x0:   horizontal offset; the model is undefined for x <= x0
//   - a:    amplitude of the intensity-dependent term
//
// The package provides the closed-form model (Evaluate), observed-minus-model
// residuals (Residuals, WeightedResiduals), a nonlinear least-squares fitter
// (Fit) and the goodness-of-fit statistic (FitQuality).
//
// Evaluating the model outside its domain never yields a silent NaN: a
// stimulus at or below x0, a zero denominator or a non-finite result is
// reported as a *DomainError.
//
// # Usage
//
//	x := latency.StimulusGrid(2, 6, 0.1)
//	res, err := latency.Fit(x, latency.Params{Lmin: 20, S: 1, X0: -3, A: 13.3}, measured, nil)
//	if err != nil {
//		return err
//	}
//	r, err := latency.FitQuality(res.Predictions, measured)
//	fmt.Printf("Lmin=%.2f S=%.2f x0=%.2f a=%.2f r=%.3f\n",
//		res.Params.Lmin, res.Params.S, res.Params.X0, res.Params.A, r)
package latency
