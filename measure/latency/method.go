package latency

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// minGradientThreshold stops the gonum methods once the cost gradient is
// at the level of rounding noise in the residuals.
const minGradientThreshold = 1e-10

// Method identifies a minimisation algorithm.
type Method int

const (
	// MethodLevenbergMarquardt is the default damped Gauss-Newton solver.
	MethodLevenbergMarquardt Method = iota
	// MethodNelderMead is the derivative-free simplex method.
	MethodNelderMead
	// MethodLBFGS is limited-memory BFGS on the cost gradient.
	MethodLBFGS
)

var methodNames = map[Method]string{
	MethodLevenbergMarquardt: "levenberg-marquardt",
	MethodNelderMead:         "nelder-mead",
	MethodLBFGS:              "lbfgs",
}

func (m Method) String() string {
	if name, ok := methodNames[m]; ok {
		return name
	}

	return fmt.Sprintf("Method(%d)", int(m))
}

// ParseMethod resolves a method name as printed by Method.String. "lm" is
// accepted for Levenberg-Marquardt.
func ParseMethod(name string) (Method, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "lm" {
		return MethodLevenbergMarquardt, nil
	}

	for m, n := range methodNames {
		if n == name {
			return m, nil
		}
	}

	return 0, fmt.Errorf("latency: unknown method %q", name)
}

func (m Method) optimizer() optimize.Method {
	switch m {
	case MethodNelderMead:
		return &optimize.NelderMead{}
	case MethodLBFGS:
		return &optimize.LBFGS{}
	default:
		return nil
	}
}

// minimize runs one of the gonum/optimize methods on the cost 0.5*|r|^2.
// Points outside the model domain have infinite cost.
func (pr *problem) minimize(initial Params, cfg config) (Result, error) {
	m := len(pr.x)
	r := make([]float64, m)

	if err := pr.residuals(r, initial); err != nil {
		return Result{}, err
	}

	jac := mat.NewDense(m, NumParams, nil)

	var lastDomain error

	objective := optimize.Problem{
		Func: func(v []float64) float64 {
			if err := pr.residuals(r, ParamsFromVector(v)); err != nil {
				lastDomain = err
				return math.Inf(1)
			}

			return 0.5 * floats.Dot(r, r)
		},
		Grad: func(grad, v []float64) {
			p := ParamsFromVector(v)
			if err := pr.residuals(r, p); err != nil {
				lastDomain = err
				for j := range grad {
					grad[j] = 0
				}

				return
			}

			jacobianInto(jac, pr.x, pr.invSigma, p)
			dst := mat.NewVecDense(NumParams, grad)
			dst.MulVec(jac.T(), mat.NewVecDense(m, r))
		},
	}

	settings := &optimize.Settings{
		FuncEvaluations:   cfg.maxEvaluations,
		GradientThreshold: math.Max(cfg.gtol, minGradientThreshold),
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-14,
			Relative:   cfg.ftol,
			Iterations: 50,
		},
	}

	res, err := optimize.Minimize(objective, initial.Vector(), settings, cfg.method.optimizer())
	if res == nil {
		return Result{}, &FitError{Method: cfg.method, Params: initial, Cause: err}
	}

	best := ParamsFromVector(res.X)
	reason := ReasonMethod

	// A line search that can no longer move has reached the precision floor.
	if (errors.Is(err, optimize.ErrNoProgress) || errors.Is(err, optimize.ErrLinesearcherFailure)) && finite(res.F) {
		err = nil
		reason = ReasonStalled
	} else if failed(res.Status) {
		reason = ""
	}

	if err != nil || reason == "" || !finite(res.F) {
		cause := err
		if cause == nil {
			cause = lastDomain
		}

		return Result{}, &FitError{
			Method:      cfg.method,
			Evaluations: res.FuncEvaluations,
			Iterations:  res.MajorIterations,
			Cost:        res.F,
			Params:      best,
			Cause:       cause,
		}
	}

	cfg.logger.Debug().
		Str("method", cfg.method.String()).
		Str("status", res.Status.String()).
		Int("evaluations", res.FuncEvaluations).
		Float64("cost", res.F).
		Msg("latency: minimisation finished")

	return Result{
		Params:      best,
		Cost:        res.F,
		Iterations:  res.MajorIterations,
		Evaluations: res.FuncEvaluations,
		Reason:      reason,
	}, nil
}

func failed(s optimize.Status) bool {
	switch s {
	case optimize.NotTerminated,
		optimize.Failure,
		optimize.IterationLimit,
		optimize.RuntimeLimit,
		optimize.FunctionEvaluationLimit,
		optimize.GradientEvaluationLimit,
		optimize.HessianEvaluationLimit:
		return true
	default:
		return false
	}
}
