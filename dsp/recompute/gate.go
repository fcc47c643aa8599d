// Package recompute throttles coefficient recomputation for engines whose
// parameters are smoothed per sample but whose coefficients are expensive
// to derive.
package recompute

import "math"

const (
	// MinStep is the finest recompute interval in samples.
	MinStep = 1
	// MaxStep is the coarsest recompute interval in samples.
	MaxStep = 512
	// DefaultStep is the interval the default automation precision maps to.
	DefaultStep = 128
)

// UnnormalizeAutomationPrecision maps a precision in [0, 1] to a recompute
// interval: 1 yields MinStep, 0 yields MaxStep.
func UnnormalizeAutomationPrecision(precision float64) int {
	if math.IsNaN(precision) {
		precision = 0
	}
	precision = math.Max(0, math.Min(1, precision))

	return MaxStep - int(math.Round(precision*float64(MaxStep-MinStep)))
}

// NormalizeAutomationPrecision is the inverse of UnnormalizeAutomationPrecision.
func NormalizeAutomationPrecision(step int) float64 {
	step = max(MinStep, min(MaxStep, step))
	return float64(MaxStep-step) / float64(MaxStep-MinStep)
}

// DefaultAutomationPrecision is the precision that maps to DefaultStep.
func DefaultAutomationPrecision() float64 {
	return NormalizeAutomationPrecision(DefaultStep)
}

// Gate decides when coefficients must be recomputed. A topology change fires
// immediately; otherwise, while any driving parameter is still smoothing, it
// fires once every interval samples. When nothing is smoothing it never
// fires.
//
// The zero value is ready to use with an interval of 1.
type Gate struct {
	interval  int
	countdown int
}

// NewGate returns a Gate that recomputes every interval samples.
func NewGate(interval int) *Gate {
	g := &Gate{}
	g.SetInterval(interval)
	return g
}

// SetInterval changes the throttle interval. Values below 1 mean "every
// sample". Takes effect at the next recompute.
func (g *Gate) SetInterval(interval int) {
	g.interval = max(interval, 1)
}

// Interval returns the effective throttle interval.
func (g *Gate) Interval() int {
	return max(g.interval, 1)
}

// ShouldRecompute evaluates the gate for one sample. On true the countdown
// restarts at the interval; on false it decrements.
func (g *Gate) ShouldRecompute(topologyDirty, anySmoothing bool) bool {
	if topologyDirty || (anySmoothing && g.countdown <= 1) {
		g.countdown = g.Interval()
		return true
	}

	// Any countdown <= 1 behaves the same; the floor keeps long idle runs bounded.
	g.countdown = max(g.countdown-1, 0)

	return false
}

// Hold returns how many samples, starting with the one just evaluated by
// ShouldRecompute and capped at limit, can share the current coefficients,
// and advances the countdown past them. Calling ShouldRecompute then Hold
// repeatedly over a block is sample-for-sample equivalent to calling
// ShouldRecompute on every sample.
func (g *Gate) Hold(anySmoothing bool, limit int) int {
	if limit <= 1 {
		return max(limit, 0)
	}

	if !anySmoothing {
		g.countdown = max(g.countdown-(limit-1), 0)
		return limit
	}

	// The sample that fires next is the one evaluated with countdown <= 1.
	span := min(max(g.countdown, 1), limit)
	g.countdown -= span - 1

	return span
}

// Reset clears the countdown so the next smoothing sample fires.
func (g *Gate) Reset() {
	g.countdown = 0
}
