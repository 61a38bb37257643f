package spl

import (
	"errors"
	"fmt"
	"math"
)

// ReferencePressure is the sound pressure at 0 dB, in Pascals.
const ReferencePressure = 2.0 / 1e5

// ErrConversionDomain is returned when a pressure cannot be expressed in
// decibels (zero, negative or NaN).
var ErrConversionDomain = errors.New("spl: pressure must be positive")

// ConversionError reports the first offending element of a conversion.
type ConversionError struct {
	Index int
	Value float64
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("spl: pressure[%d] = %v is not positive", e.Index, e.Value)
}

// Unwrap returns ErrConversionDomain.
func (e *ConversionError) Unwrap() error { return ErrConversionDomain }

// DecibelToPascal converts a single level in dB to Pascals.
func DecibelToPascal(db float64) float64 {
	return math.Exp(db/20) * 2 / 1e5
}

// PascalToDecibel converts a single pressure in Pascals to dB.
// Returns NaN for pressures that are not strictly positive.
func PascalToDecibel(pa float64) float64 {
	if !(pa > 0) {
		return math.NaN()
	}

	return 20 * math.Log(pa*1e5/2)
}

// DecibelsToPascals converts every element of values from dB to Pascals.
// The input is not modified.
func DecibelsToPascals(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = DecibelToPascal(v)
	}

	return out
}

// PascalsToDecibels converts every element of values from Pascals to dB.
// It fails on the first element that is not strictly positive.
func PascalsToDecibels(values []float64) ([]float64, error) {
	out := make([]float64, len(values))
	for i, p := range values {
		if !(p > 0) {
			return nil, &ConversionError{Index: i, Value: p}
		}

		out[i] = 20 * math.Log(p*1e5/2)
	}

	return out, nil
}

// RateDetector returns the first difference of stimulus with an implicit
// leading zero, so out[0] equals stimulus[0].
func RateDetector(stimulus []float64) []float64 {
	out := make([]float64, len(stimulus))

	prev := 0.0
	for i, v := range stimulus {
		out[i] = v - prev
		prev = v
	}

	return out
}
