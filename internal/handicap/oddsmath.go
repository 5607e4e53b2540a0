// Package handicap reconstructs Asian-handicap line pairs for fixtures
// whose export omits them, and settles handicap bets against final
// scores.
package handicap

import (
	"gonum.org/v1/gonum/floats"
)

// ImpliedProbabilities converts decimal odds into probabilities
// normalized for the bookmaker margin, so the result sums to 1.
// Non-positive odds contribute zero before normalization.
func ImpliedProbabilities(odds ...float64) []float64 {
	raw := make([]float64, len(odds))
	for i, o := range odds {
		if o > 0 {
			raw[i] = 1 / o
		}
	}

	total := floats.Sum(raw)
	if total <= 0 {
		return raw
	}
	floats.Scale(1/total, raw)
	return raw
}

// Overround is the bookmaker margin embedded in a set of decimal odds:
// the amount by which raw implied probabilities exceed 1.
func Overround(odds ...float64) float64 {
	raw := make([]float64, len(odds))
	for i, o := range odds {
		if o > 0 {
			raw[i] = 1 / o
		}
	}
	return floats.Sum(raw) - 1
}
