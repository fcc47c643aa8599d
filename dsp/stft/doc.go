// Package stft provides the short-time Fourier transform plumbing shared by
// spectral effects: a cache of pre-planned transforms, one per supported
// power-of-two window size, and a streaming overlap-add driver that windows
// incoming audio, hands each frame's half spectrum to a FrameProcessor and
// resynthesizes the result with a fixed latency.
//
// All buffers are reserved at construction. Changing the window size or
// overlap only resizes them within that capacity, so steady-state processing
// and reconfiguration never allocate.
package stft
