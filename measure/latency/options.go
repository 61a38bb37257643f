package latency

import "github.com/rs/zerolog"

// defaultTolerance matches the customary MINPACK default, sqrt(machine epsilon).
const defaultTolerance = 1.49012e-8

// config holds solver settings.
type config struct {
	method          Method
	maxEvaluations  int
	ftol            float64
	xtol            float64
	gtol            float64
	initialDamping  float64
	numericJacobian bool
	logger          zerolog.Logger
}

// Option mutates the fitter configuration.
type Option func(*config)

func defaultConfig() config {
	return config{
		method:         MethodLevenbergMarquardt,
		maxEvaluations: 200 * (NumParams + 1),
		ftol:           defaultTolerance,
		xtol:           defaultTolerance,
		gtol:           0,
		initialDamping: 1e-3,
		logger:         zerolog.Nop(),
	}
}

func applyOptions(opts ...Option) config {
	cfg := defaultConfig()

	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return cfg
}

// WithMethod selects the minimisation algorithm.
func WithMethod(m Method) Option {
	return func(cfg *config) {
		cfg.method = m
	}
}

// WithMaxIterations caps the number of residual evaluations the solver may
// spend before giving up with a *FitError.
func WithMaxIterations(n int) Option {
	return func(cfg *config) {
		if n > 0 {
			cfg.maxEvaluations = n
		}
	}
}

// WithTolerances sets the relative cost-change (ftol), relative step (xtol)
// and gradient max-norm (gtol) convergence thresholds. Negative values are
// ignored.
func WithTolerances(ftol, xtol, gtol float64) Option {
	return func(cfg *config) {
		if ftol >= 0 {
			cfg.ftol = ftol
		}
		if xtol >= 0 {
			cfg.xtol = xtol
		}
		if gtol >= 0 {
			cfg.gtol = gtol
		}
	}
}

// WithInitialDamping sets the starting Levenberg-Marquardt damping factor.
func WithInitialDamping(lambda float64) Option {
	return func(cfg *config) {
		if lambda > 0 {
			cfg.initialDamping = lambda
		}
	}
}

// WithNumericJacobian replaces the analytic Jacobian with forward finite
// differences.
func WithNumericJacobian() Option {
	return func(cfg *config) {
		cfg.numericJacobian = true
	}
}

// WithLogger traces solver iterations at debug level.
func WithLogger(logger zerolog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}
