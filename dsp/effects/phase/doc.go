// Package phase implements a phase rotator: a long cascade of second-order
// all-pass filters whose center frequencies are spread around a base
// frequency. The magnitude response stays flat while the phase, and with it
// the shape of transients, is smeared across the spectrum.
//
// Frequency, resonance and spread are smoothed. Coefficients are recomputed
// through a recompute.Gate so fast automation costs at most one update every
// few hundred samples, as set by the automation precision.
package phase
