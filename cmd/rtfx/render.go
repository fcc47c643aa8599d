package main

import (
	"fmt"

	"github.com/cwbudde/algo-rtfx/dsp/core"
	"github.com/cwbudde/algo-rtfx/dsp/effects/dynamics"
	"github.com/cwbudde/algo-rtfx/dsp/effects/phase"
	"github.com/cwbudde/algo-rtfx/dsp/filter/allpass"
	"github.com/sirupsen/logrus"
)

// processor is one effect driven block by block, the way a host would.
type processor interface {
	process(main, side [][]float64)
	// stats describes the processor's state after a render.
	stats() logrus.Fields
}

type rotatorProcessor struct {
	r *phase.Rotator
}

func (p rotatorProcessor) process(main, _ [][]float64) {
	p.r.Process(main)
}

func (p rotatorProcessor) stats() logrus.Fields {
	f := p.r.Params().FrequencyHz()
	return logrus.Fields{
		"active_stages":       p.r.ActiveStages(),
		"group_delay_samples": p.r.GroupDelay(f),
	}
}

type compressorProcessor struct {
	c *dynamics.SpectralCompressor
}

func (p compressorProcessor) process(main, side [][]float64) {
	p.c.Process(main, side)
}

func (p compressorProcessor) stats() logrus.Fields {
	return logrus.Fields{
		"window_size":      p.c.WindowSize(),
		"first_non_dc_bin": p.c.FirstNonDCBin(),
		"mode":             p.c.ThresholdMode().String(),
	}
}

func newRotator(cfg config, host core.HostConfig, log logrus.FieldLogger) (processor, error) {
	style, err := allpass.ParseSpreadStyle(cfg.style)
	if err != nil {
		return nil, err
	}

	r, err := phase.NewRotator(phase.WithLogger(log))
	if err != nil {
		return nil, err
	}

	p := r.Params()
	p.SetStages(cfg.stages)
	p.SetFrequencyHz(cfg.frequencyHz)
	p.SetResonance(cfg.resonance)
	p.SetSpreadOctaves(cfg.spread)
	p.SetStyle(style)
	if cfg.precision >= 0 {
		p.SetAutomationPrecision(cfg.precision)
	}

	if err := r.Initialize(host); err != nil {
		return nil, err
	}

	return rotatorProcessor{r: r}, nil
}

func newCompressor(cfg config, host core.HostConfig, sideChannels int, log logrus.FieldLogger,
	reporter core.LatencyReporter,
) (processor, error) {
	mode, err := dynamics.ParseThresholdMode(cfg.mode)
	if err != nil {
		return nil, err
	}

	opts := []dynamics.SpectralOption{
		dynamics.WithLogger(log),
		dynamics.WithWindowOrder(cfg.windowOrder),
		dynamics.WithOverlapOrder(cfg.overlapOrder),
	}
	if sideChannels > 0 {
		opts = append(opts, dynamics.WithSidechainChannels(sideChannels))
	}

	c, err := dynamics.NewSpectralCompressor(opts...)
	if err != nil {
		return nil, err
	}

	if mode.UsesSidechain() && sideChannels == 0 {
		log.WithField("mode", mode.String()).Warn("sidechain mode selected without a sidechain input")
	}

	c.SetThresholdMode(mode)
	c.SetOutputGainDB(cfg.gainDB)
	c.SetDryWet(cfg.mix)
	c.SetDCFilter(cfg.dcFilter)

	if err := c.Initialize(host, reporter); err != nil {
		return nil, err
	}

	b := c.Bank()
	b.SetThresholdDB(cfg.thresholdDB)
	b.SetDownwardRatio(cfg.ratio)
	b.SetUpwardRatio(cfg.upwardRatio)
	b.SetKneeDB(cfg.kneeDB)
	b.SetAttackMs(cfg.attackMs)
	b.SetReleaseMs(cfg.releaseMs)
	// The mix ramps from its initial value; start at the requested one.
	c.Reset()

	return compressorProcessor{c: c}, nil
}

// render runs in (and the optional sidechain) through the configured effect
// in cfg.blockSize chunks. With cfg.compensate the reported latency is
// removed, so the output lines up with the input.
func render(cfg config, in, side *clip, log logrus.FieldLogger) (*clip, error) {
	host := core.ApplyHostOptions(
		core.WithSampleRate(float64(in.sampleRate)),
		core.WithMaxBlockSize(cfg.blockSize),
		core.WithChannels(len(in.channels)),
	)

	latency := 0
	reporter := core.LatencyFunc(func(n int) { latency = n })

	var (
		proc processor
		err  error
	)

	switch cfg.fx {
	case "phase":
		if in, err = in.withChannels(2); err != nil {
			return nil, fmt.Errorf("phase rotator: %w", err)
		}
		host.Channels = 2
		proc, err = newRotator(cfg, host, log)
	case "spectral":
		sideChannels := 0
		if side != nil {
			if side.sampleRate != in.sampleRate {
				return nil, fmt.Errorf("sidechain sample rate %d does not match input %d", side.sampleRate, in.sampleRate)
			}
			if mapped, mapErr := side.withChannels(len(in.channels)); mapErr == nil {
				side = mapped
			}
			sideChannels = len(side.channels)
		}
		proc, err = newCompressor(cfg, host, sideChannels, log, reporter)
	default:
		err = fmt.Errorf("unknown effect %q", cfg.fx)
	}
	if err != nil {
		return nil, err
	}

	skip := 0
	if cfg.compensate {
		skip = latency
	}

	total := in.frames() + skip
	main := padded(in.channels, total)
	var sideBuf [][]float64
	if side != nil {
		sideBuf = padded(side.channels, total)
	}

	log.WithFields(logrus.Fields{
		"fx":         cfg.fx,
		"frames":     in.frames(),
		"channels":   len(main),
		"block_size": cfg.blockSize,
		"latency":    latency,
	}).Debug("rendering")

	mainView := make([][]float64, len(main))
	sideView := make([][]float64, len(sideBuf))
	for pos := 0; pos < total; pos += cfg.blockSize {
		end := min(pos+cfg.blockSize, total)
		for ch := range main {
			mainView[ch] = main[ch][pos:end]
		}
		var s [][]float64
		if sideBuf != nil {
			for ch := range sideBuf {
				sideView[ch] = sideBuf[ch][pos:end]
			}
			s = sideView
		}
		proc.process(mainView, s)
	}

	log.WithFields(proc.stats()).Debug("effect state")

	out := &clip{sampleRate: in.sampleRate, channels: make([][]float64, len(main))}
	for ch := range main {
		out.channels[ch] = main[ch][skip:]
	}

	return out, nil
}

// padded copies channels into buffers of length n, zero-filling the tail.
func padded(channels [][]float64, n int) [][]float64 {
	out := make([][]float64, len(channels))
	for ch, src := range channels {
		out[ch] = make([]float64, n)
		copy(out[ch], src)
	}
	return out
}
