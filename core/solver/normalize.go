package solver

import "math"

// SanityBound is the largest magnitude accepted from a power or voltage read.
const SanityBound = 1e6

// Normalize applies the single numeric guard used for every power and
// voltage read: NaN, infinities and magnitudes above SanityBound become 0.
func Normalize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > SanityBound {
		return 0
	}
	return v
}

// sumPhases adds the real-power terms P of up to three phases from an
// interleaved [P1, Q1, P2, Q2, P3, Q3, ...] slice.
func sumPhases(powers []float64) float64 {
	total := 0.0
	for i := 0; i < len(powers) && i < 6; i += 2 {
		total += powers[i]
	}
	return total
}
