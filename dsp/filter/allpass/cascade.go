// Package allpass implements a reconfigurable cascade of second-order
// all-pass filters whose center frequencies fan out around a base frequency.
// Cascading many stages gives a strongly frequency-dependent group delay
// while leaving the magnitude response flat.
package allpass

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/cwbudde/algo-rtfx/dsp/filter/biquad"
)

const (
	// MaxStages is the stage capacity reserved by every Cascade.
	MaxStages = 512
	// MinFrequencyHz is the lowest stage frequency.
	MinFrequencyHz = 5.0
	// MinResonance is the smallest accepted Q.
	MinResonance = 0.01

	nyquistDivisor = 2.05
)

// ErrInvalidChannels is returned when a cascade is built for no channels.
var ErrInvalidChannels = errors.New("allpass: channel count must be > 0")

// Config describes the cascade topology and stage parameters.
type Config struct {
	Stages      int
	FrequencyHz float64
	Resonance   float64
	Spread      float64
	Style       SpreadStyle
	SampleRate  float64
}

type pairStages [MaxStages]biquad.StereoSection

type monoStages [MaxStages]biquad.Section

// Cascade is a fixed-capacity all-pass filter bank. Channel pairs share
// coefficients and advance together; a trailing odd channel runs on its
// own mono sections. All storage is reserved by New.
type Cascade struct {
	channels int
	pairs    []*pairStages
	odd      *monoStages
	active   int
}

// New reserves MaxStages stages for the given channel count. All stages
// start as pass-through with zero state.
func New(channels int) (*Cascade, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChannels, channels)
	}

	c := &Cascade{
		channels: channels,
		pairs:    make([]*pairStages, channels/2),
	}
	for i := range c.pairs {
		c.pairs[i] = new(pairStages)
		for s := range c.pairs[i] {
			c.pairs[i][s].Coefficients = biquad.Identity
		}
	}
	if channels%2 == 1 {
		c.odd = new(monoStages)
		for s := range c.odd {
			c.odd[s].Coefficients = biquad.Identity
		}
	}

	return c, nil
}

// Channels returns the channel count the cascade was built for.
func (c *Cascade) Channels() int {
	return c.channels
}

// ActiveStages returns the number of stages applied by Process calls.
func (c *Cascade) ActiveStages() int {
	return c.active
}

// Reconfigure recomputes coefficients for the first cfg.Stages stages and
// makes them active. With reset, those stages' filter state is zeroed, which
// is what a topology change needs to avoid feeding stale state through
// different coefficients. Out-of-range values are clamped.
func (c *Cascade) Reconfigure(cfg Config, reset bool) {
	cfg.Stages = max(0, min(MaxStages, cfg.Stages))
	cfg.Resonance = max(cfg.Resonance, MinResonance)

	for i := 0; i < cfg.Stages; i++ {
		coeffs := biquad.AllPass(cfg.SampleRate, StageFrequency(cfg, i), cfg.Resonance)

		for _, p := range c.pairs {
			p[i].Coefficients = coeffs
			if reset {
				p[i].Reset()
			}
		}
		if c.odd != nil {
			c.odd[i].Coefficients = coeffs
			if reset {
				c.odd[i].Reset()
			}
		}
	}

	c.active = cfg.Stages
}

// Reset zeroes the state of every stage, active or not.
func (c *Cascade) Reset() {
	for _, p := range c.pairs {
		for i := range p {
			p[i].Reset()
		}
	}
	if c.odd != nil {
		for i := range c.odd {
			c.odd[i].Reset()
		}
	}
}

// ProcessStereo runs one frame of the first channel pair through the active
// stages.
func (c *Cascade) ProcessStereo(l, r float64) (float64, float64) {
	if len(c.pairs) == 0 {
		return l, r
	}

	p := c.pairs[0]
	for i := 0; i < c.active; i++ {
		l, r = p[i].ProcessSample(l, r)
	}

	return l, r
}

// ProcessBlock filters a planar block in place. Extra channels beyond the
// configured count are left untouched; channels are processed over their
// common length. Zero-alloc.
func (c *Cascade) ProcessBlock(block [][]float64) {
	n := len(block)
	if n > c.channels {
		n = c.channels
	}

	for k, p := range c.pairs {
		if 2*k+1 >= n {
			break
		}
		left, right := block[2*k], block[2*k+1]
		for i := 0; i < c.active; i++ {
			p[i].ProcessBlock(left, right)
		}
	}

	if c.odd != nil && n == c.channels {
		buf := block[c.channels-1]
		for i := 0; i < c.active; i++ {
			c.odd[i].ProcessBlock(buf)
		}
	}
}

// Coefficients returns the coefficients of stage i.
func (c *Cascade) Coefficients(i int) biquad.Coefficients {
	if len(c.pairs) > 0 {
		return c.pairs[0][i].Coefficients
	}
	return c.odd[i].Coefficients
}

// Response returns the complex frequency response of the active stages.
func (c *Cascade) Response(freqHz, sampleRate float64) complex128 {
	h := complex(1, 0)
	for i := 0; i < c.active; i++ {
		coeffs := c.Coefficients(i)
		h *= coeffs.Response(freqHz, sampleRate)
	}
	return h
}

// MagnitudeDB returns the active cascade's magnitude response in dB.
func (c *Cascade) MagnitudeDB(freqHz, sampleRate float64) float64 {
	return 20 * math.Log10(cmplx.Abs(c.Response(freqHz, sampleRate)))
}

// GroupDelay returns the active cascade's group delay in samples.
func (c *Cascade) GroupDelay(freqHz, sampleRate float64) float64 {
	d := 0.0
	for i := 0; i < c.active; i++ {
		d += c.Coefficients(i).GroupDelay(freqHz, sampleRate)
	}
	return d
}
