// Package biquad provides biquad (second-order IIR) filter runtime primitives.
//
// A [Section] implements Direct Form II Transposed processing for a single
// second-order section defined by [Coefficients]. A [StereoSection] shares
// one set of coefficients between two lanes and advances both recurrences
// together, which is how the all-pass cascade processes channel pairs.
//
// Block kernels are selected once per process from a registry keyed by the
// CPU's SIMD level.
package biquad
