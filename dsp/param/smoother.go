package param

import (
	"math"
	"sync/atomic"
)

// Smoothed is a parameter that approaches its target over time.
type Smoothed interface {
	// NextStep advances the value by n samples and returns it.
	NextStep(n int) float64
	// IsSmoothing reports whether the value is still moving towards its target.
	IsSmoothing() bool
}

// Style selects the interpolation curve of a Smoother.
type Style int

const (
	// Linear moves by a constant amount per sample.
	Linear Style = iota
	// Logarithmic moves by a constant ratio per sample. Values must be > 0.
	Logarithmic
)

const logFloor = 1e-9

// Smoother interpolates from its current value to a target over a fixed
// time. The target may be set from any goroutine; the ramp itself is
// advanced only by the audio thread through NextStep.
type Smoother struct {
	style  Style
	timeMs float64

	target atomic.Uint64

	rampLen   int
	current   float64
	armed     float64
	step      float64
	remaining int
}

// NewSmoother returns a smoother resting at initial. timeMs is the length of
// every ramp; it takes effect once SetSampleRate is called.
func NewSmoother(style Style, timeMs, initial float64) *Smoother {
	s := &Smoother{style: style, timeMs: math.Max(timeMs, 0)}
	s.Reset(initial)
	return s
}

// SetSampleRate recomputes the ramp length. Call before processing.
func (s *Smoother) SetSampleRate(sampleRate float64) {
	s.rampLen = int(math.Round(s.timeMs * 0.001 * sampleRate))
}

// SetTarget schedules a new target. Safe from any goroutine.
func (s *Smoother) SetTarget(v float64) {
	s.target.Store(math.Float64bits(s.sanitize(v)))
}

// Target returns the most recently scheduled target.
func (s *Smoother) Target() float64 {
	return math.Float64frombits(s.target.Load())
}

// Reset jumps to v without a ramp. Audio thread only.
func (s *Smoother) Reset(v float64) {
	v = s.sanitize(v)
	s.target.Store(math.Float64bits(v))
	s.current = v
	s.armed = v
	s.remaining = 0
}

// Value returns the current value without advancing.
func (s *Smoother) Value() float64 {
	return s.current
}

// IsSmoothing reports whether a ramp is in progress or a new target is
// pending.
func (s *Smoother) IsSmoothing() bool {
	return s.remaining > 0 || s.Target() != s.armed
}

// NextStep advances n samples along the ramp and returns the new value.
func (s *Smoother) NextStep(n int) float64 {
	s.arm()

	if s.remaining == 0 || n <= 0 {
		return s.current
	}

	if n >= s.remaining {
		s.current = s.armed
		s.remaining = 0
		return s.current
	}

	switch s.style {
	case Logarithmic:
		s.current *= math.Pow(s.step, float64(n))
	default:
		s.current += s.step * float64(n)
	}
	s.remaining -= n

	return s.current
}

// Next advances one sample.
func (s *Smoother) Next() float64 {
	return s.NextStep(1)
}

func (s *Smoother) arm() {
	target := s.Target()
	if target == s.armed {
		return
	}

	s.armed = target
	if s.rampLen <= 0 || s.current == target {
		s.current = target
		s.remaining = 0
		return
	}

	s.remaining = s.rampLen
	switch s.style {
	case Logarithmic:
		s.step = math.Pow(target/s.current, 1/float64(s.rampLen))
	default:
		s.step = (target - s.current) / float64(s.rampLen)
	}
}

func (s *Smoother) sanitize(v float64) float64 {
	if math.IsNaN(v) {
		v = 0
	}
	if s.style == Logarithmic && v < logFloor {
		v = logFloor
	}
	return v
}
