package latency

import "github.com/cwbudde/algo-auditory/stats/regression"

// FitQuality returns the Pearson correlation coefficient r (not r²) between
// predicted and observed values, taken from their linear regression.
//
// The error wraps ErrStatistics when the series differ in length, have fewer
// than two points, or either has zero variance.
func FitQuality(predicted, observed []float64) (float64, error) {
	return regression.Correlation(predicted, observed)
}
