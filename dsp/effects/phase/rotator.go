package phase

import (
	"errors"
	"fmt"
	"io"

	"github.com/cwbudde/algo-rtfx/dsp/core"
	"github.com/cwbudde/algo-rtfx/dsp/filter/allpass"
	"github.com/cwbudde/algo-rtfx/dsp/param"
	"github.com/cwbudde/algo-rtfx/dsp/recompute"
	"github.com/cwbudde/algo-rtfx/dsp/spectrum"
	"github.com/sirupsen/logrus"
)

// ErrUnsupportedLayout is returned by Initialize for anything but stereo.
var ErrUnsupportedLayout = errors.New("phase: only stereo layouts are supported")

// RotatorOption mutates rotator construction parameters.
type RotatorOption func(*rotatorConfig) error

type rotatorConfig struct {
	logger   logrus.FieldLogger
	analyzer *spectrum.Analyzer
}

// WithLogger sets the logger used by Initialize.
func WithLogger(logger logrus.FieldLogger) RotatorOption {
	return func(cfg *rotatorConfig) error {
		if logger == nil {
			return errors.New("phase: logger must not be nil")
		}

		cfg.logger = logger

		return nil
	}
}

// WithAnalyzer attaches an analyzer that receives every processed block.
// It only does work while its publisher is active.
func WithAnalyzer(a *spectrum.Analyzer) RotatorOption {
	return func(cfg *rotatorConfig) error {
		if a == nil {
			return errors.New("phase: analyzer must not be nil")
		}

		cfg.analyzer = a

		return nil
	}
}

// Rotator is a stereo phase rotator. Params may be changed from any
// goroutine; Initialize, Reset and Process belong to the audio thread and
// Process never allocates.
type Rotator struct {
	log      logrus.FieldLogger
	analyzer *spectrum.Analyzer

	topology param.TopologyFlag
	params   *Params

	sampleRate float64
	gate       recompute.Gate
	cascade    *allpass.Cascade
	view       [][]float64
	ready      bool
}

// NewRotator creates a rotator with zero stages. It passes audio through
// unchanged until stages are added.
func NewRotator(opts ...RotatorOption) (*Rotator, error) {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	cfg := rotatorConfig{logger: discard}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	r := &Rotator{
		log:      cfg.logger,
		analyzer: cfg.analyzer,
	}
	r.params = newParams(&r.topology)

	return r, nil
}

// Params returns the rotator's parameters.
func (r *Rotator) Params() *Params {
	return r.params
}

// Initialize prepares the rotator for host's layout. Smoothed parameters
// jump to their targets and the cascade is rebuilt on the next sample.
func (r *Rotator) Initialize(host core.HostConfig) error {
	if err := host.Validate(); err != nil {
		return fmt.Errorf("phase: %w", err)
	}
	if host.Channels != 2 {
		r.log.WithField("channels", host.Channels).Error("rejecting bus layout")
		return fmt.Errorf("%w: %d channels", ErrUnsupportedLayout, host.Channels)
	}

	if r.cascade == nil || r.cascade.Channels() != host.Channels {
		cascade, err := allpass.New(host.Channels)
		if err != nil {
			return fmt.Errorf("phase: %w", err)
		}
		r.cascade = cascade
		r.view = make([][]float64, host.Channels)
	}

	r.sampleRate = host.SampleRate
	r.params.setSampleRate(host.SampleRate)
	r.ready = true
	r.Reset()

	r.log.WithFields(logrus.Fields{
		"sample_rate":    host.SampleRate,
		"max_block_size": host.MaxBlockSize,
		"stages":         r.params.Stages(),
		"max_stages":     allpass.MaxStages,
	}).Info("phase rotator initialized")

	return nil
}

// Reset ends parameter ramps and schedules a cascade rebuild with cleared
// filter state.
func (r *Rotator) Reset() {
	r.params.snap()
	r.gate.Reset()
	r.topology.Set()
	if r.analyzer != nil {
		r.analyzer.Reset()
	}
}

// ActiveStages returns the number of stages the cascade is running.
func (r *Rotator) ActiveStages() int {
	if r.cascade == nil {
		return 0
	}
	return r.cascade.ActiveStages()
}

// GroupDelay returns the cascade's current group delay at freqHz in
// samples. Call it from the audio thread or while processing is stopped.
func (r *Rotator) GroupDelay(freqHz float64) float64 {
	if r.cascade == nil {
		return 0
	}
	return r.cascade.GroupDelay(freqHz, r.sampleRate)
}

// Process rotates block in place. Coefficients are recomputed at the
// samples where the gate fires; the samples in between run through the
// block kernels with fixed coefficients.
func (r *Rotator) Process(block [][]float64) {
	if !r.ready || len(block) == 0 {
		return
	}

	channels := min(len(block), r.cascade.Channels())
	n := core.BlockLen(block[:channels])

	interval := recompute.UnnormalizeAutomationPrecision(r.params.AutomationPrecision())
	r.gate.SetInterval(interval)

	for pos := 0; pos < n; {
		dirty := r.topology.Clear()
		if r.gate.ShouldRecompute(dirty, r.params.smoothing()) {
			r.updateCascade(interval, dirty)
		}

		span := r.gate.Hold(r.params.smoothing(), n-pos)
		for ch := range channels {
			r.view[ch] = block[ch][pos : pos+span]
		}
		r.cascade.ProcessBlock(r.view[:channels])
		pos += span
	}

	if r.analyzer != nil {
		r.analyzer.Add(block[:channels])
	}
}

func (r *Rotator) updateCascade(interval int, reset bool) {
	p := r.params
	r.cascade.Reconfigure(allpass.Config{
		Stages:      p.Stages(),
		FrequencyHz: p.frequency.NextStep(interval),
		Resonance:   p.resonance.NextStep(interval),
		Spread:      p.spread.NextStep(interval),
		Style:       p.Style(),
		SampleRate:  r.sampleRate,
	}, reset)
}
