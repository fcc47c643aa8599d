// Package dynamics provides the STFT spectral compressor and the per-bin
// compressor bank it drives.
//
// SpectralCompressor runs an overlap-add STFT over every channel, hands each
// frame's half spectrum to a CompressorBank, applies a low-frequency policy
// and output gain, and mixes the latency-aligned dry signal back in. An
// optional sidechain bus is analyzed ahead of the main signal so the bank
// can read sidechain bin levels while shaping the matching main bins.
//
// SoftKneeBank is the default bank: an upward and downward soft-knee
// compressor per bin with a sloped threshold curve, computed in the log2
// domain. Building with the fastmath tag routes its log2/exp2 evaluations
// through algo-approx.
package dynamics
