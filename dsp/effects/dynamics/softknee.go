package dynamics

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/cwbudde/algo-rtfx/dsp/core"
	"github.com/cwbudde/algo-rtfx/dsp/param"
)

// Defaults and accepted ranges of the SoftKneeBank controls.
const (
	DefaultThresholdDB     = -12.0
	DefaultCurveCenterHz   = 500.0
	DefaultKneeDB          = 6.0
	DefaultDownwardRatio   = 2.0
	DefaultUpwardRatio     = 1.0
	DefaultMaxUpwardGainDB = 24.0
	DefaultAttackMs        = 150.0
	DefaultReleaseMs       = 300.0

	MinRatio           = 1.0
	MaxRatio           = 100.0
	MaxKneeDB          = 36.0
	MaxTimeMs          = 10000.0
	MinCurveCenterHz   = 20.0
	MaxCurveCenterHz   = 20000.0
	MaxCurveSlopeDB    = 36.0
	MaxThresholdDB     = 20.0
	MinThresholdDB     = -100.0
	MaxSidechainOffset = 24.0
)

const (
	// log2Of10Div20 converts decibels to the log2 domain: log2(10) / 20.
	log2Of10Div20 = 0.166096404744

	// Sidechain levels below this are treated as this level when they are
	// used as a threshold.
	minSidechainLevel = 1e-12
)

// ErrInvalidBank is returned for non-positive bank dimensions.
var ErrInvalidBank = errors.New("dynamics: invalid compressor bank size")

// SoftKneeBank is the default CompressorBank: per bin and channel, an
// envelope follower drives a downward compressor above the threshold and an
// upward compressor below it, both with a shared soft knee.
//
// The threshold follows a curve across frequency,
// thresholdDB + slopeDB*log2(f/centerHz). Setters may be called from any
// goroutine; they publish new values and mark the curves dirty, and the bank
// recomputes them on the audio thread at the start of the next frame.
type SoftKneeBank struct {
	thresholdDB       param.Float
	curveSlopeDB      param.Float
	curveCenterHz     param.Float
	kneeDB            param.Float
	downwardRatio     param.Float
	upwardRatio       param.Float
	maxUpwardGainDB   param.Float
	attackMs          param.Float
	releaseMs         param.Float
	sidechainOffsetDB param.Float
	curvesDirty       param.TopologyFlag

	channels int
	capacity int

	sampleRate float64
	windowSize int
	numBins    int
	overlap    int

	thresholdLog2    []float64
	kneeWidthLog2    float64
	invKneeWidthLog2 float64
	downFactor       float64
	upFactor         float64
	maxUpwardLog2    float64
	offsetLog2       float64
	attackCoeff      float64
	releaseCoeff     float64

	envelopes  [][]float64
	sideLevels [][]float64
	gains      [][]float64
}

// NewSoftKneeBank reserves per-bin state for channels and windows of up to
// maxWindowSize samples.
func NewSoftKneeBank(channels, maxWindowSize int) (*SoftKneeBank, error) {
	if channels <= 0 || maxWindowSize < 2 {
		return nil, fmt.Errorf("%w: channels=%d maxWindowSize=%d", ErrInvalidBank, channels, maxWindowSize)
	}

	capacity := maxWindowSize/2 + 1
	b := &SoftKneeBank{
		channels:      channels,
		capacity:      capacity,
		thresholdLog2: make([]float64, capacity),
		envelopes:     make([][]float64, channels),
		sideLevels:    make([][]float64, channels),
		gains:         make([][]float64, channels),
	}
	for ch := range channels {
		b.envelopes[ch] = make([]float64, capacity)
		b.sideLevels[ch] = make([]float64, capacity)
		b.gains[ch] = make([]float64, capacity)
	}

	b.thresholdDB.Store(DefaultThresholdDB)
	b.curveCenterHz.Store(DefaultCurveCenterHz)
	b.kneeDB.Store(DefaultKneeDB)
	b.downwardRatio.Store(DefaultDownwardRatio)
	b.upwardRatio.Store(DefaultUpwardRatio)
	b.maxUpwardGainDB.Store(DefaultMaxUpwardGainDB)
	b.attackMs.Store(DefaultAttackMs)
	b.releaseMs.Store(DefaultReleaseMs)

	b.Resize(48000, maxWindowSize)

	return b, nil
}

// SetThresholdDB sets the threshold at the curve center.
func (b *SoftKneeBank) SetThresholdDB(db float64) {
	b.store(&b.thresholdDB, db, MinThresholdDB, MaxThresholdDB)
}

// SetCurveSlopeDB sets how many dB the threshold rises per octave above the
// curve center.
func (b *SoftKneeBank) SetCurveSlopeDB(db float64) {
	b.store(&b.curveSlopeDB, db, -MaxCurveSlopeDB, MaxCurveSlopeDB)
}

// SetCurveCenterHz sets the frequency at which the threshold curve equals
// the threshold.
func (b *SoftKneeBank) SetCurveCenterHz(hz float64) {
	b.store(&b.curveCenterHz, hz, MinCurveCenterHz, MaxCurveCenterHz)
}

// SetKneeDB sets the soft-knee width. Zero gives a hard knee.
func (b *SoftKneeBank) SetKneeDB(db float64) {
	b.store(&b.kneeDB, db, 0, MaxKneeDB)
}

// SetDownwardRatio sets the ratio above threshold. 1 disables downward
// compression.
func (b *SoftKneeBank) SetDownwardRatio(ratio float64) {
	b.store(&b.downwardRatio, ratio, MinRatio, MaxRatio)
}

// SetUpwardRatio sets the ratio below threshold. 1 disables upward
// compression.
func (b *SoftKneeBank) SetUpwardRatio(ratio float64) {
	b.store(&b.upwardRatio, ratio, MinRatio, MaxRatio)
}

// SetMaxUpwardGainDB limits the boost applied by upward compression.
func (b *SoftKneeBank) SetMaxUpwardGainDB(db float64) {
	b.store(&b.maxUpwardGainDB, db, 0, 100)
}

// SetAttackMs sets the envelope attack time. Zero follows level increases
// immediately.
func (b *SoftKneeBank) SetAttackMs(ms float64) {
	b.store(&b.attackMs, ms, 0, MaxTimeMs)
}

// SetReleaseMs sets the envelope release time. Zero follows level decreases
// immediately.
func (b *SoftKneeBank) SetReleaseMs(ms float64) {
	b.store(&b.releaseMs, ms, 0, MaxTimeMs)
}

// SetSidechainOffsetDB offsets sidechain levels used as thresholds in
// SidechainMatch mode.
func (b *SoftKneeBank) SetSidechainOffsetDB(db float64) {
	b.store(&b.sidechainOffsetDB, db, -MaxSidechainOffset, MaxSidechainOffset)
}

func (b *SoftKneeBank) store(f *param.Float, v, lo, hi float64) {
	if !core.IsFinite(v) {
		return
	}
	f.Store(core.Clamp(v, lo, hi))
	b.curvesDirty.Set()
}

// Resize prepares the bank for windowSize-sample frames at sampleRate.
// Windows larger than the reserved capacity are truncated to it.
func (b *SoftKneeBank) Resize(sampleRate float64, windowSize int) {
	b.sampleRate = sampleRate
	b.windowSize = windowSize
	b.numBins = min(windowSize/2+1, b.capacity)
	b.overlap = 0
	b.curvesDirty.Set()
	b.Reset()
}

// Reset clears envelopes and sidechain levels and sets all gains to unity.
func (b *SoftKneeBank) Reset() {
	for ch := range b.channels {
		clear(b.envelopes[ch])
		clear(b.sideLevels[ch])
		gains := b.gains[ch]
		for i := range gains {
			gains[i] = 1
		}
	}
}

// NumBins returns the number of bins processed per frame.
func (b *SoftKneeBank) NumBins() int {
	return b.numBins
}

// Gains returns the gains applied to channel's bins by the last frame. The
// slice is owned by the bank and overwritten on the next frame.
func (b *SoftKneeBank) Gains(channel int) []float64 {
	return b.gains[channel][:b.numBins]
}

// ProcessSidechain records the bin magnitudes of a sidechain frame.
func (b *SoftKneeBank) ProcessSidechain(bins []complex128, channel int) {
	if channel < 0 || channel >= b.channels {
		return
	}
	levels := b.sideLevels[channel]
	n := min(len(bins), b.numBins)
	for k := range n {
		levels[k] = cmplx.Abs(bins[k])
	}
}

// Process applies per-bin gains to one main frame.
func (b *SoftKneeBank) Process(bins []complex128, channel int, block BlockInfo) {
	if channel < 0 || channel >= b.channels {
		return
	}
	if b.curvesDirty.Clear() || block.Overlap != b.overlap {
		b.updateCurves(block.Overlap)
	}

	n := min(len(bins), b.numBins)
	start := 0
	if block.DCFilter {
		start = min(max(block.FirstNonDCBin, 0), n)
	}

	env := b.envelopes[channel][:n]
	side := b.sideLevels[channel][:n]
	gains := b.gains[channel][:n]
	bins = bins[:n]

	switch block.Mode {
	case SidechainCompress:
		for k := start; k < n; k++ {
			level := b.follow(&env[k], side[k])
			gains[k] = b.gainFor(level, b.thresholdLog2[k])
			bins[k] *= complex(gains[k], 0)
		}
	case SidechainMatch:
		for k := start; k < n; k++ {
			level := b.follow(&env[k], cmplx.Abs(bins[k]))
			threshold := mathLog2(max(side[k], minSidechainLevel)) + b.offsetLog2
			gains[k] = b.gainFor(level, threshold)
			bins[k] *= complex(gains[k], 0)
		}
	default:
		for k := start; k < n; k++ {
			level := b.follow(&env[k], cmplx.Abs(bins[k]))
			gains[k] = b.gainFor(level, b.thresholdLog2[k])
			bins[k] *= complex(gains[k], 0)
		}
	}
}

func (b *SoftKneeBank) follow(env *float64, x float64) float64 {
	if x > *env {
		*env += (x - *env) * b.attackCoeff
	} else {
		*env = x + (*env-x)*b.releaseCoeff
	}
	return *env
}

// gainFor returns the linear gain for a detector level against a threshold
// given in the log2 domain.
func (b *SoftKneeBank) gainFor(level, thresholdLog2 float64) float64 {
	if level <= 0 {
		return 1
	}

	overshoot := mathLog2(level) - thresholdLog2
	gainLog2 := 0.0

	if b.downFactor > 0 {
		gainLog2 -= b.knee(overshoot) * b.downFactor
	}
	if b.upFactor > 0 {
		gainLog2 += min(b.knee(-overshoot)*b.upFactor, b.maxUpwardLog2)
	}

	if gainLog2 == 0 {
		return 1
	}
	return mathPower2(gainLog2)
}

// knee maps an overshoot to its effective overshoot: zero well below the
// knee, quadratic inside it, identity above it.
func (b *SoftKneeBank) knee(overshoot float64) float64 {
	if b.kneeWidthLog2 <= 0 {
		return max(overshoot, 0)
	}

	halfWidth := b.kneeWidthLog2 * 0.5
	switch {
	case overshoot < -halfWidth:
		return 0
	case overshoot > halfWidth:
		return overshoot
	default:
		scratch := overshoot + halfWidth
		return scratch * scratch * 0.5 * b.invKneeWidthLog2
	}
}

func (b *SoftKneeBank) updateCurves(overlap int) {
	b.overlap = overlap

	thresholdDB := b.thresholdDB.Load()
	slopeDB := b.curveSlopeDB.Load()
	centerHz := b.curveCenterHz.Load()

	binHz := 0.0
	if b.windowSize > 0 {
		binHz = b.sampleRate / float64(b.windowSize)
	}
	for k := range b.numBins {
		db := thresholdDB
		if slopeDB != 0 {
			f := max(float64(k)*binHz, binHz*0.5, 1)
			db += slopeDB * math.Log2(f/centerHz)
		}
		b.thresholdLog2[k] = db * log2Of10Div20
	}

	b.kneeWidthLog2 = b.kneeDB.Load() * log2Of10Div20
	b.invKneeWidthLog2 = 0
	if b.kneeWidthLog2 > 0 {
		b.invKneeWidthLog2 = 1 / b.kneeWidthLog2
	}

	b.downFactor = 1 - 1/b.downwardRatio.Load()
	b.upFactor = 1 - 1/b.upwardRatio.Load()
	b.maxUpwardLog2 = b.maxUpwardGainDB.Load() * log2Of10Div20
	b.offsetLog2 = b.sidechainOffsetDB.Load() * log2Of10Div20

	frameRate := 0.0
	if b.windowSize > 0 {
		frameRate = b.sampleRate * float64(max(overlap, 1)) / float64(b.windowSize)
	}
	b.attackCoeff = attackCoefficient(b.attackMs.Load(), frameRate)
	b.releaseCoeff = releaseCoefficient(b.releaseMs.Load(), frameRate)
}

func attackCoefficient(ms, rate float64) float64 {
	if ms <= 0 || rate <= 0 {
		return 1
	}
	return 1 - math.Exp(-math.Ln2/(ms*0.001*rate))
}

func releaseCoefficient(ms, rate float64) float64 {
	if ms <= 0 || rate <= 0 {
		return 0
	}
	return math.Exp(-math.Ln2 / (ms * 0.001 * rate))
}
