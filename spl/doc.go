// Package spl converts between sound pressure levels in decibels and
// sound pressure in Pascals.
//
// The conversions use the natural-exponent convention of the latency
// toolkit:
//
//	p  = exp(L/20) * 2e-5
//	L  = 20 * ln(p / 2e-5)
//
// so that 0 dB maps to the reference pressure of 20 µPa and the two
// functions are exact inverses of each other.
//
// # Usage
//
//	pa := spl.DecibelsToPascals([]float64{0, 20, 40})
//	db, err := spl.PascalsToDecibels(pa)
package spl
