package phase

import (
	"github.com/cwbudde/algo-rtfx/dsp/core"
	"github.com/cwbudde/algo-rtfx/dsp/filter/allpass"
	"github.com/cwbudde/algo-rtfx/dsp/param"
	"github.com/cwbudde/algo-rtfx/dsp/recompute"
)

const (
	// DefaultFrequencyHz is the initial center frequency.
	DefaultFrequencyHz = 200.0
	// MaxFrequencyHz is the highest settable center frequency.
	MaxFrequencyHz = 20000.0
	// DefaultResonance is slightly below the Butterworth Q, which rings less.
	DefaultResonance = 0.5
	// MaxResonance is the highest settable Q.
	MaxResonance = 30.0
	// MaxSpreadOctaves bounds the spread in both directions.
	MaxSpreadOctaves = 5.0

	smoothingMs = 100.0
)

// Params holds the rotator's parameters. Setters are safe from any
// goroutine; discrete changes mark the topology dirty so the cascade state
// is cleared on the next processed sample.
type Params struct {
	topology *param.TopologyFlag

	stages    *param.Int
	style     *param.Int
	precision *param.Float

	frequency *param.Smoother
	resonance *param.Smoother
	spread    *param.Smoother
}

func newParams(topology *param.TopologyFlag) *Params {
	return &Params{
		topology:  topology,
		stages:    param.NewInt(0),
		style:     param.NewInt(int(allpass.Octaves)),
		precision: param.NewFloat(recompute.DefaultAutomationPrecision()),
		frequency: param.NewSmoother(param.Logarithmic, smoothingMs, DefaultFrequencyHz),
		resonance: param.NewSmoother(param.Logarithmic, smoothingMs, DefaultResonance),
		spread:    param.NewSmoother(param.Linear, smoothingMs, 0),
	}
}

// SetStages sets the number of active all-pass stages in
// [0, allpass.MaxStages].
func (p *Params) SetStages(n int) {
	p.stages.Store(core.ClampInt(n, 0, allpass.MaxStages))
	p.topology.Set()
}

// Stages returns the active stage count.
func (p *Params) Stages() int {
	return p.stages.Load()
}

// SetStyle selects how the spread is distributed over the stages.
func (p *Params) SetStyle(style allpass.SpreadStyle) {
	switch style {
	case allpass.Octaves, allpass.Linear:
	default:
		return
	}
	p.style.Store(int(style))
	p.topology.Set()
}

// Style returns the spread style.
func (p *Params) Style() allpass.SpreadStyle {
	return allpass.SpreadStyle(p.style.Load())
}

// SetFrequencyHz sets the target center frequency.
func (p *Params) SetFrequencyHz(hz float64) {
	if !core.IsFinite(hz) {
		return
	}
	p.frequency.SetTarget(core.Clamp(hz, allpass.MinFrequencyHz, MaxFrequencyHz))
}

// FrequencyHz returns the target center frequency.
func (p *Params) FrequencyHz() float64 {
	return p.frequency.Target()
}

// SetResonance sets the target Q of every stage.
func (p *Params) SetResonance(q float64) {
	if !core.IsFinite(q) {
		return
	}
	p.resonance.SetTarget(core.Clamp(q, allpass.MinResonance, MaxResonance))
}

// SetSpreadOctaves sets the target spread. The first stage sits this many
// octaves below the center frequency and the last one as far above it.
func (p *Params) SetSpreadOctaves(octaves float64) {
	if !core.IsFinite(octaves) {
		return
	}
	p.spread.SetTarget(core.Clamp(octaves, -MaxSpreadOctaves, MaxSpreadOctaves))
}

// SetAutomationPrecision sets how often coefficients follow smoothed
// parameters, from 0 (every 512 samples) to 1 (every sample).
func (p *Params) SetAutomationPrecision(precision float64) {
	if !core.IsFinite(precision) {
		return
	}
	p.precision.Store(core.Clamp(precision, 0, 1))
}

// AutomationPrecision returns the automation precision in [0, 1].
func (p *Params) AutomationPrecision() float64 {
	return p.precision.Load()
}

func (p *Params) setSampleRate(sampleRate float64) {
	p.frequency.SetSampleRate(sampleRate)
	p.resonance.SetSampleRate(sampleRate)
	p.spread.SetSampleRate(sampleRate)
}

// snap ends all ramps at their targets.
func (p *Params) snap() {
	p.frequency.Reset(p.frequency.Target())
	p.resonance.Reset(p.resonance.Target())
	p.spread.Reset(p.spread.Target())
}

func (p *Params) smoothing() bool {
	return p.frequency.IsSmoothing() || p.resonance.IsSmoothing() || p.spread.IsSmoothing()
}
