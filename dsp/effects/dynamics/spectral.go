package dynamics

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sync/atomic"

	"github.com/cwbudde/algo-rtfx/dsp/core"
	"github.com/cwbudde/algo-rtfx/dsp/mixer"
	"github.com/cwbudde/algo-rtfx/dsp/param"
	"github.com/cwbudde/algo-rtfx/dsp/stft"
	"github.com/sirupsen/logrus"
)

const (
	// MinOutputGainDB and MaxOutputGainDB bound the makeup gain.
	MinOutputGainDB = -50.0
	MaxOutputGainDB = 50.0

	dcCutoffHz        = 20.0
	dryWetSmoothingMs = 15.0
)

// ErrSidechainLayout is returned when the sidechain bus channel count does
// not match the main bus.
var ErrSidechainLayout = errors.New("dynamics: sidechain channels must match main channels")

// SpectralOption mutates spectral compressor construction parameters.
type SpectralOption func(*spectralConfig) error

type spectralConfig struct {
	logger            logrus.FieldLogger
	bank              CompressorBank
	windowOrder       int
	overlapOrder      int
	sidechainChannels int
}

func defaultSpectralConfig() spectralConfig {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	return spectralConfig{
		logger:            discard,
		windowOrder:       stft.DefaultWindowOrder,
		overlapOrder:      stft.DefaultOverlapOrder,
		sidechainChannels: -1,
	}
}

// WithLogger sets the logger used for initialization and layout messages.
// Nothing is logged from Process.
func WithLogger(logger logrus.FieldLogger) SpectralOption {
	return func(cfg *spectralConfig) error {
		if logger == nil {
			return errors.New("dynamics: logger must not be nil")
		}

		cfg.logger = logger

		return nil
	}
}

// WithCompressorBank replaces the default SoftKneeBank. The bank must hold
// state for the host's channel count and windows of up to
// 2^stft.MaxWindowOrder samples.
func WithCompressorBank(bank CompressorBank) SpectralOption {
	return func(cfg *spectralConfig) error {
		if bank == nil {
			return errors.New("dynamics: compressor bank must not be nil")
		}

		cfg.bank = bank

		return nil
	}
}

// WithWindowOrder sets the initial window size order in
// [stft.MinWindowOrder, stft.MaxWindowOrder].
func WithWindowOrder(order int) SpectralOption {
	return func(cfg *spectralConfig) error {
		if order < stft.MinWindowOrder || order > stft.MaxWindowOrder {
			return fmt.Errorf("dynamics: window order must be in [%d, %d]: %d",
				stft.MinWindowOrder, stft.MaxWindowOrder, order)
		}

		cfg.windowOrder = order

		return nil
	}
}

// WithOverlapOrder sets the initial overlap order in
// [stft.MinOverlapOrder, stft.MaxOverlapOrder].
func WithOverlapOrder(order int) SpectralOption {
	return func(cfg *spectralConfig) error {
		if order < stft.MinOverlapOrder || order > stft.MaxOverlapOrder {
			return fmt.Errorf("dynamics: overlap order must be in [%d, %d]: %d",
				stft.MinOverlapOrder, stft.MaxOverlapOrder, order)
		}

		cfg.overlapOrder = order

		return nil
	}
}

// WithSidechainChannels declares the sidechain bus width. Initialize fails
// with ErrSidechainLayout unless it equals the main channel count. Without
// this option the sidechain is assumed to match the main bus.
func WithSidechainChannels(channels int) SpectralOption {
	return func(cfg *spectralConfig) error {
		if channels < 0 {
			return fmt.Errorf("dynamics: sidechain channels must be >= 0: %d", channels)
		}

		cfg.sidechainChannels = channels

		return nil
	}
}

// SpectralCompressor is an STFT-based per-bin compressor with optional
// sidechain analysis and latency-compensated dry/wet mixing.
//
// Parameter setters and Reconfigure are safe from any goroutine. Initialize,
// Reset and Process belong to the audio thread; Process never allocates or
// blocks.
type SpectralCompressor struct {
	log logrus.FieldLogger
	cfg spectralConfig

	host       core.HostConfig
	reporter   core.LatencyReporter
	plans      *stft.PlanCache
	ola        *stft.OverlapAdd
	dry        *mixer.DryWet
	bank       CompressorBank
	softKnee   *SoftKneeBank
	ready      bool

	windowOrder  param.Int
	overlapOrder param.Int
	reconfigure  param.TopologyFlag
	outputGain   param.Float
	dcFilter     atomic.Bool
	mode         atomic.Int32
	dryWet       *param.Smoother

	activeOrder   int
	activeOverlap int
	firstNonDC    int
	block         BlockInfo
	invUserGain   float64
	stage         spectralStage
}

// NewSpectralCompressor creates a compressor with practical defaults. It is
// unusable until Initialize is called.
func NewSpectralCompressor(opts ...SpectralOption) (*SpectralCompressor, error) {
	cfg := defaultSpectralConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	c := &SpectralCompressor{
		log:    cfg.logger,
		cfg:    cfg,
		bank:   cfg.bank,
		dryWet: param.NewSmoother(param.Linear, dryWetSmoothingMs, 1),
	}
	c.stage.c = c
	c.windowOrder.Store(cfg.windowOrder)
	c.overlapOrder.Store(cfg.overlapOrder)
	c.outputGain.Store(1)

	return c, nil
}

// Initialize prepares the compressor for host's layout and reports the
// initial latency. All buffers are reserved here; FFT plans for every
// supported window order are built on the first call only.
func (c *SpectralCompressor) Initialize(host core.HostConfig, reporter core.LatencyReporter) error {
	if err := host.Validate(); err != nil {
		return fmt.Errorf("dynamics: %w", err)
	}

	if c.cfg.sidechainChannels >= 0 && c.cfg.sidechainChannels != host.Channels {
		c.log.WithFields(logrus.Fields{
			"main_channels":      host.Channels,
			"sidechain_channels": c.cfg.sidechainChannels,
		}).Error("rejecting bus layout")

		return fmt.Errorf("%w: main=%d sidechain=%d", ErrSidechainLayout, host.Channels, c.cfg.sidechainChannels)
	}

	if c.plans == nil {
		plans, err := stft.NewPlanCache(stft.MinWindowOrder, stft.MaxWindowOrder)
		if err != nil {
			return fmt.Errorf("dynamics: %w", err)
		}
		c.plans = plans
	}

	if c.ola == nil || c.ola.Channels() != host.Channels {
		ola, err := stft.NewOverlapAdd(host.Channels, c.plans.MaxSize(), true)
		if err != nil {
			return fmt.Errorf("dynamics: %w", err)
		}
		c.ola = ola
	}

	dry, err := mixer.New(host.Channels, host.MaxBlockSize, c.plans.MaxSize())
	if err != nil {
		return fmt.Errorf("dynamics: %w", err)
	}
	c.dry = dry

	if c.cfg.bank == nil && (c.softKnee == nil || c.host.Channels != host.Channels) {
		bank, err := NewSoftKneeBank(host.Channels, c.plans.MaxSize())
		if err != nil {
			return fmt.Errorf("dynamics: %w", err)
		}
		c.softKnee = bank
		c.bank = bank
	}

	c.host = host
	c.reporter = reporter
	c.dryWet.SetSampleRate(host.SampleRate)
	c.ready = true

	c.applyWindow(c.windowOrder.Load(), c.overlapOrder.Load())

	c.log.WithFields(logrus.Fields{
		"sample_rate":     host.SampleRate,
		"channels":        host.Channels,
		"max_block_size":  host.MaxBlockSize,
		"window_size":     c.ola.WindowSize(),
		"overlap":         c.ola.Overlap(),
		"latency_samples": c.ola.LatencySamples(),
		"plans":           c.plans.MaxOrder() - c.plans.MinOrder() + 1,
	}).Info("spectral compressor initialized")

	return nil
}

// Bank returns the default SoftKneeBank, or nil when a custom bank was
// supplied or Initialize has not run.
func (c *SpectralCompressor) Bank() *SoftKneeBank {
	return c.softKnee
}

// Reconfigure schedules a new window size and overlap order. Values are
// clamped to their supported ranges. The change is applied, and the new
// latency reported, at the start of the next Process call. A change of the
// overlap alone keeps the audio running and the latency unchanged.
func (c *SpectralCompressor) Reconfigure(windowOrder, overlapOrder int) {
	c.windowOrder.Store(core.ClampInt(windowOrder, stft.MinWindowOrder, stft.MaxWindowOrder))
	c.overlapOrder.Store(core.ClampInt(overlapOrder, stft.MinOverlapOrder, stft.MaxOverlapOrder))
	c.reconfigure.Set()
}

// SetOutputGainDB sets the makeup gain, clamped to
// [MinOutputGainDB, MaxOutputGainDB].
func (c *SpectralCompressor) SetOutputGainDB(db float64) {
	if !core.IsFinite(db) {
		return
	}
	c.outputGain.Store(core.DBToLinear(core.Clamp(db, MinOutputGainDB, MaxOutputGainDB)))
}

// SetDryWet sets the wet amount in [0, 1]. Changes are smoothed.
func (c *SpectralCompressor) SetDryWet(mix float64) {
	if !core.IsFinite(mix) {
		return
	}
	c.dryWet.SetTarget(core.Clamp(mix, 0, 1))
}

// SetDCFilter selects the low-frequency policy. Enabled, bins below 20 Hz
// are discarded; disabled, they bypass the output gain.
func (c *SpectralCompressor) SetDCFilter(enabled bool) {
	c.dcFilter.Store(enabled)
}

// SetThresholdMode selects the detector source.
func (c *SpectralCompressor) SetThresholdMode(mode ThresholdMode) {
	switch mode {
	case Internal, SidechainMatch, SidechainCompress:
		c.mode.Store(int32(mode))
	}
}

// ThresholdMode returns the selected detector source.
func (c *SpectralCompressor) ThresholdMode() ThresholdMode {
	return ThresholdMode(c.mode.Load())
}

// LatencySamples returns the latency of the active configuration.
func (c *SpectralCompressor) LatencySamples() int {
	if c.ola == nil {
		return 0
	}
	return c.ola.LatencySamples()
}

// WindowSize returns the active window size.
func (c *SpectralCompressor) WindowSize() int {
	if c.ola == nil {
		return 0
	}
	return c.ola.WindowSize()
}

// FirstNonDCBin returns the first bin above the low-frequency cutoff for
// the active configuration.
func (c *SpectralCompressor) FirstNonDCBin() int {
	return c.firstNonDC
}

// Reset clears the STFT rings, the dry history and the bank state.
func (c *SpectralCompressor) Reset() {
	if !c.ready {
		return
	}
	c.ola.Reset()
	c.dry.Reset()
	c.bank.Reset()
	c.dryWet.Reset(c.dryWet.Target())
}

// Process compresses main in place. side is the sidechain bus; it is read
// only in the sidechain threshold modes, where a nil side or missing
// sidechain samples count as silence. Blocks must not exceed the host's
// maximum block size.
func (c *SpectralCompressor) Process(main, side [][]float64) {
	if !c.ready || len(main) == 0 {
		return
	}

	if c.reconfigure.Clear() {
		order, overlap := c.windowOrder.Load(), c.overlapOrder.Load()
		switch {
		case order != c.activeOrder:
			c.applyWindow(order, overlap)
		case overlap != c.activeOverlap:
			c.applyOverlap(overlap)
		}
	}

	userGain := c.outputGain.Load()
	sqrtGain := math.Sqrt(stft.CompensationGain(c.ola.WindowSize(), c.ola.Overlap()))
	c.ola.SetGains(sqrtGain, userGain*sqrtGain)
	c.invUserGain = 1 / userGain

	mode := c.ThresholdMode()
	c.block = BlockInfo{
		Mode:          mode,
		Overlap:       c.ola.Overlap(),
		FirstNonDCBin: c.firstNonDC,
		DCFilter:      c.dcFilter.Load(),
	}

	c.dry.WriteDry(main)

	switch mode {
	case SidechainMatch, SidechainCompress:
		c.ola.ProcessWithSidechain(main, side, &c.stage)
	default:
		c.ola.Process(main, &c.stage)
	}

	mix := c.dryWet.NextStep(core.BlockLen(main))
	c.dry.MixInDry(main, mix, mixer.Linear, c.ola.LatencySamples())
}

// applyWindow switches to the cached plan for order, resizes every
// window-sized buffer in place, clears the rings, resets the bank and
// reports the new latency.
func (c *SpectralCompressor) applyWindow(order, overlap int) {
	plan := c.plans.ForOrder(order)
	c.ola.SetPlan(plan, overlap)
	c.ola.Reset()
	c.bank.Resize(c.host.SampleRate, plan.Size())

	c.activeOrder = order
	c.activeOverlap = overlap
	c.firstNonDC = firstNonDCBin(c.host.SampleRate, c.ola.NumBins())

	if c.reporter != nil {
		c.reporter.SetLatencySamples(c.ola.LatencySamples())
	}
}

// applyOverlap changes the hop of the running window. The rings, the bank
// state and the latency are kept; the bank picks up the new frame rate from
// BlockInfo.Overlap.
func (c *SpectralCompressor) applyOverlap(overlap int) {
	c.ola.SetPlan(c.plans.ForOrder(c.activeOrder), overlap)
	c.activeOverlap = overlap
}

// firstNonDCBin returns the index of the first bin above dcCutoffHz for a
// half spectrum of numBins bins.
func firstNonDCBin(sampleRate float64, numBins int) int {
	binHz := (sampleRate / 2) / float64(numBins)
	return min(int(math.Floor(dcCutoffHz/binHz))+1, numBins)
}

// spectralStage adapts the compressor to stft.FrameProcessor without
// exporting the frame callbacks.
type spectralStage struct {
	c *SpectralCompressor
}

func (s *spectralStage) ProcessSidechainFrame(channel int, bins []complex128) {
	s.c.bank.ProcessSidechain(bins, channel)
}

func (s *spectralStage) ProcessFrame(channel int, bins []complex128) {
	c := s.c
	c.bank.Process(bins, channel, c.block)

	low := bins[:min(c.firstNonDC, len(bins))]
	if c.block.DCFilter {
		clear(low)
		return
	}

	g := complex(c.invUserGain, 0)
	for k := range low {
		low[k] *= g
	}
}
