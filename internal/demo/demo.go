// Package demo simulates first-spike latency data from the MAPP model, fits
// it and collects everything needed to report the fit.
package demo

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/cwbudde/algo-auditory/measure/latency"
)

// ErrEmptyGrid is returned when the configured stimulus grid has no points.
var ErrEmptyGrid = errors.New("demo: stimulus grid is empty")

// Config describes one simulation.
type Config struct {
	GridStart float64
	GridStop  float64 // exclusive
	GridStep  float64

	True    latency.Params // parameters the data are drawn from
	Initial latency.Params // starting point of the fit

	NoiseSigma float64 // standard deviation of additive latency noise
	UseWeights bool    // fit with the simulated per-point errors as sigma
	Method     latency.Method
}

// DefaultConfig returns the reference simulation: stimuli 2..6 in steps of
// 0.1, S=0.5, Lmin=10, x0=0.5, a=13.3, unit noise and a deliberately
// distant initial guess.
func DefaultConfig() Config {
	return Config{
		GridStart:  2,
		GridStop:   6,
		GridStep:   0.1,
		True:       latency.Params{Lmin: 10, S: 0.5, X0: 0.5, A: 13.3},
		Initial:    latency.Params{Lmin: 20, S: 1, X0: -3, A: 13.3},
		NoiseSigma: 1,
		Method:     latency.MethodLevenbergMarquardt,
	}
}

// Report is the outcome of a simulation run.
type Report struct {
	Config      Config
	Stimulus    []float64
	TrueLatency []float64
	Observed    []float64
	SimErrors   []float64
	Fit         latency.Result
	R           float64 // correlation of fitted predictions with observations
}

// Run simulates noisy latencies with rng, fits the model and scores the fit.
// Extra options are passed to latency.Fit after the configured method.
func Run(cfg Config, rng *rand.Rand, opts ...latency.Option) (Report, error) {
	x := latency.StimulusGrid(cfg.GridStart, cfg.GridStop, cfg.GridStep)
	if len(x) == 0 {
		return Report{}, ErrEmptyGrid
	}

	yTrue, err := latency.Evaluate(x, cfg.True)
	if err != nil {
		return Report{}, fmt.Errorf("demo: true curve: %w", err)
	}

	// Per-point errors grow with the sample index; the floor keeps them
	// usable as uncertainties.
	simErrors := make([]float64, len(x))
	for i := range simErrors {
		simErrors[i] = math.Max(0.01, math.Abs(10*rng.NormFloat64()*float64(i)/50))
	}

	observed := make([]float64, len(x))
	for i := range observed {
		observed[i] = yTrue[i] + cfg.NoiseSigma*rng.NormFloat64()
	}

	var weights []float64
	if cfg.UseWeights {
		weights = simErrors
	}

	fitOpts := append([]latency.Option{latency.WithMethod(cfg.Method)}, opts...)

	res, err := latency.Fit(x, cfg.Initial, observed, weights, fitOpts...)
	if err != nil {
		return Report{}, fmt.Errorf("demo: fit: %w", err)
	}

	r, err := latency.FitQuality(res.Predictions, observed)
	if err != nil {
		return Report{}, fmt.Errorf("demo: fit quality: %w", err)
	}

	return Report{
		Config:      cfg,
		Stimulus:    x,
		TrueLatency: yTrue,
		Observed:    observed,
		SimErrors:   simErrors,
		Fit:         res,
		R:           r,
	}, nil
}
