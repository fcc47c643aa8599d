package biquad

import "math"

// AllPass designs a second-order all-pass section centered at freqHz with
// quality factor q (RBJ cookbook). The magnitude response is exactly 1; the
// phase passes through -pi at freqHz. Invalid inputs yield Identity.
func AllPass(sampleRate, freqHz, q float64) Coefficients {
	if sampleRate <= 0 || freqHz <= 0 || freqHz >= sampleRate/2 || q <= 0 {
		return Identity
	}

	w0 := 2 * math.Pi * freqHz / sampleRate
	cosW := math.Cos(w0)
	alpha := math.Sin(w0) / (2 * q)

	a0 := 1 + alpha
	inv := 1 / a0

	// Numerator is the reversed denominator: b0 = a2, b1 = a1, b2 = a0.
	a1 := -2 * cosW * inv
	a2 := (1 - alpha) * inv

	return Coefficients{
		B0: a2,
		B1: a1,
		B2: 1,
		A1: a1,
		A2: a2,
	}
}
