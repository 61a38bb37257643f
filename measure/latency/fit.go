package latency

import (
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// maxDamping is the damping ceiling; beyond it no step can lower the cost
// and the solver stops at the current point.
const maxDamping = 1e16

// StopReason describes why the solver stopped.
type StopReason string

const (
	ReasonCostConvergence StopReason = "cost converged"
	ReasonStepConvergence StopReason = "step converged"
	ReasonGradient        StopReason = "gradient below threshold"
	ReasonExactFit        StopReason = "zero residual"
	ReasonStalled         StopReason = "no further reduction possible"
	ReasonMethod          StopReason = "method converged"
)

// Result is a converged fit.
type Result struct {
	Params      Params
	Predictions []float64 // model at Params over the stimulus values
	Cost        float64   // 0.5 * sum of squared (weighted) residuals
	Iterations  int       // accepted steps
	Evaluations int       // residual evaluations
	Reason      StopReason
	Method      Method
}

// problem binds the data of a single fit.
type problem struct {
	x        []float64
	observed []float64
	invSigma []float64
}

// Fit estimates the model parameters that minimise the sum of squared
// residuals between observed and the model over x, starting from initial.
//
// weights, when non-nil, are per-point uncertainties: each residual is
// divided by its weight before squaring. Neither x, observed nor weights is
// modified.
//
// Fit returns a *DomainError if the initial guess is outside the model domain
// for any x, and a *FitError if the solver does not converge within its
// evaluation budget.
func Fit(x []float64, initial Params, observed, weights []float64, opts ...Option) (Result, error) {
	cfg := applyOptions(opts...)

	pr, err := newProblem(x, observed, weights)
	if err != nil {
		return Result{}, err
	}

	var res Result
	if cfg.method == MethodLevenbergMarquardt {
		res, err = pr.levenbergMarquardt(initial, cfg)
	} else {
		res, err = pr.minimize(initial, cfg)
	}

	if err != nil {
		return Result{}, err
	}

	res.Method = cfg.method

	res.Predictions, err = Evaluate(x, res.Params)
	if err != nil {
		return Result{}, err
	}

	return res, nil
}

func newProblem(x, observed, weights []float64) (*problem, error) {
	if len(x) == 0 {
		return nil, ErrEmptyInput
	}

	if len(observed) != len(x) {
		return nil, ErrLengthMismatch
	}

	if len(x) < NumParams {
		return nil, ErrTooFewPoints
	}

	for i := range x {
		if !finite(x[i]) || !finite(observed[i]) {
			return nil, ErrInvalidInput
		}
	}

	invSigma, err := inverseWeights(weights, len(x))
	if err != nil {
		return nil, err
	}

	return &problem{x: x, observed: observed, invSigma: invSigma}, nil
}

func (pr *problem) residuals(dst []float64, p Params) error {
	return residualsInto(dst, pr.x, pr.observed, pr.invSigma, p)
}

// jacobian fills dst at p. r must hold the residuals at p.
func (pr *problem) jacobian(dst *mat.Dense, p Params, r []float64, numeric bool) (int, error) {
	if !numeric {
		jacobianInto(dst, pr.x, pr.invSigma, p)
		return 0, nil
	}

	var (
		evals   int
		probeEr error
	)

	fd.Jacobian(dst, func(y, v []float64) {
		evals++
		if err := pr.residuals(y, ParamsFromVector(v)); err != nil {
			if probeEr == nil {
				probeEr = err
			}
			for i := range y {
				y[i] = math.NaN()
			}
		}
	}, p.Vector(), &fd.JacobianSettings{
		Formula:     fd.Forward,
		OriginValue: r,
	})

	return evals, probeEr
}

// levenbergMarquardt minimises 0.5*|r|^2 with Marquardt's diagonal scaling
// and Nielsen's damping update.
//
//nolint:funlen,cyclop
func (pr *problem) levenbergMarquardt(initial Params, cfg config) (Result, error) {
	m := len(pr.x)
	log := cfg.logger

	p := initial.Vector()
	r := make([]float64, m)

	if err := pr.residuals(r, initial); err != nil {
		return Result{}, err
	}

	evals := 1
	cost := 0.5 * floats.Dot(r, r)

	jac := mat.NewDense(m, NumParams, nil)
	normal := mat.NewSymDense(NumParams, nil)
	damped := mat.NewSymDense(NumParams, nil)
	grad := mat.NewVecDense(NumParams, nil)
	delta := mat.NewVecDense(NumParams, nil)
	scale := make([]float64, NumParams)
	step := make([]float64, NumParams)
	trial := make([]float64, NumParams)
	trialR := make([]float64, m)

	var chol mat.Cholesky

	// linearize refreshes the Jacobian, J^T J, J^T r and the diagonal scale at p.
	linearize := func() error {
		n, err := pr.jacobian(jac, ParamsFromVector(p), r, cfg.numericJacobian)
		evals += n
		if err != nil {
			return err
		}

		normal.SymOuterK(1, jac.T())
		grad.MulVec(jac.T(), mat.NewVecDense(m, r))

		for j := range scale {
			scale[j] = math.Max(scale[j], normal.At(j, j))
			if scale[j] == 0 {
				scale[j] = 1
			}
		}

		return nil
	}

	if err := linearize(); err != nil {
		return Result{}, err
	}

	lambda := cfg.initialDamping
	nu := 2.0
	iterations := 0

	var lastDomain error

	result := func(reason StopReason) Result {
		return Result{
			Params:      ParamsFromVector(p),
			Cost:        cost,
			Iterations:  iterations,
			Evaluations: evals,
			Reason:      reason,
		}
	}

	for evals < cfg.maxEvaluations {
		if cost == 0 {
			return result(ReasonExactFit), nil
		}

		if cfg.gtol > 0 && mat.Norm(grad, math.Inf(1)) <= cfg.gtol {
			return result(ReasonGradient), nil
		}

		if lambda > maxDamping {
			return result(ReasonStalled), nil
		}

		damped.CopySym(normal)
		for j := range scale {
			damped.SetSym(j, j, normal.At(j, j)+lambda*scale[j])
		}

		if ok := chol.Factorize(damped); !ok {
			lambda *= nu
			nu *= 2

			continue
		}

		if err := chol.SolveVecTo(delta, grad); err != nil {
			lambda *= nu
			nu *= 2

			continue
		}

		for j := range step {
			step[j] = -delta.AtVec(j)
			trial[j] = p[j] + step[j]
		}

		evals++

		if err := pr.residuals(trialR, ParamsFromVector(trial)); err != nil {
			lastDomain = err
			lambda *= nu
			nu *= 2

			log.Debug().Float64("lambda", lambda).Err(err).Msg("latency: trial step left model domain")

			continue
		}

		trialCost := 0.5 * floats.Dot(trialR, trialR)

		// Predicted reduction of the local quadratic model:
		// 0.5 * step^T (lambda*D*step - g).
		var predicted float64
		for j := range step {
			predicted += step[j] * (lambda*scale[j]*step[j] - grad.AtVec(j))
		}
		predicted *= 0.5

		actual := cost - trialCost

		rho := -1.0
		if predicted > 0 {
			rho = actual / predicted
		}

		if rho <= 0 {
			lambda *= nu
			nu *= 2

			continue
		}

		stepNorm := floats.Norm(step, 2)
		paramNorm := floats.Norm(p, 2)
		prevCost := cost

		copy(p, trial)
		r, trialR = trialR, r
		cost = trialCost
		iterations++

		lambda *= math.Max(1.0/3, 1-math.Pow(2*rho-1, 3))
		nu = 2

		log.Debug().
			Int("iteration", iterations).
			Float64("cost", cost).
			Float64("lambda", lambda).
			Floats64("params", p).
			Msg("latency: step accepted")

		if cost == 0 {
			return result(ReasonExactFit), nil
		}

		if actual <= cfg.ftol*prevCost && predicted <= cfg.ftol*prevCost {
			return result(ReasonCostConvergence), nil
		}

		if stepNorm <= cfg.xtol*(paramNorm+cfg.xtol) {
			return result(ReasonStepConvergence), nil
		}

		if err := linearize(); err != nil {
			return Result{}, err
		}
	}

	return Result{}, &FitError{
		Method:      MethodLevenbergMarquardt,
		Evaluations: evals,
		Iterations:  iterations,
		Cost:        cost,
		Params:      ParamsFromVector(p),
		Cause:       lastDomain,
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
