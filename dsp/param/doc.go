// Package param holds the parameter plumbing shared by the real-time
// engines: the Smoothed interface the engines consume, a linear/logarithmic
// Smoother that satisfies it, lock-free scalar cells, and the TopologyFlag
// used to signal discrete configuration changes to the audio thread.
//
// Setters are safe to call from any goroutine. NextStep, IsSmoothing and
// TopologyFlag.Clear belong to the audio thread.
package param
