// Package mixer blends a processed (wet) signal with the unprocessed (dry)
// input, delaying the dry path so both line up when the processor reports
// latency.
package mixer

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-rtfx/dsp/delay"
)

// ErrInvalidConfig is returned for non-positive channel counts or block
// sizes, or a negative latency capacity.
var ErrInvalidConfig = errors.New("mixer: invalid configuration")

// MixingStyle selects the cross-fade curve.
type MixingStyle int

const (
	// Linear cross-fades amplitudes. Use it when dry and wet are in phase.
	Linear MixingStyle = iota
	// EqualPower cross-fades on a quarter sine so uncorrelated signals keep
	// constant power.
	EqualPower
)

// String returns the style name.
func (s MixingStyle) String() string {
	switch s {
	case Linear:
		return "linear"
	case EqualPower:
		return "equal-power"
	default:
		return fmt.Sprintf("MixingStyle(%d)", int(s))
	}
}

// DryWet holds one dry delay line per channel, sized for the largest block
// plus the largest latency. Not safe for concurrent use.
type DryWet struct {
	lines        []*delay.Line
	scratch      []float64
	maxBlockSize int
	maxLatency   int
}

// New reserves dry storage for channels of up to maxBlockSize samples per
// block and latencies of up to maxLatency samples.
func New(channels, maxBlockSize, maxLatency int) (*DryWet, error) {
	m := &DryWet{}
	if err := m.Resize(channels, maxBlockSize, maxLatency); err != nil {
		return nil, err
	}
	return m, nil
}

// Resize reallocates the dry storage. It allocates and must not be called
// from the audio thread.
func (m *DryWet) Resize(channels, maxBlockSize, maxLatency int) error {
	if channels <= 0 || maxBlockSize <= 0 || maxLatency < 0 {
		return fmt.Errorf("%w: channels=%d maxBlockSize=%d maxLatency=%d",
			ErrInvalidConfig, channels, maxBlockSize, maxLatency)
	}

	lines := make([]*delay.Line, channels)
	for i := range lines {
		line, err := delay.New(maxBlockSize + maxLatency)
		if err != nil {
			return fmt.Errorf("mixer: %w", err)
		}
		lines[i] = line
	}

	m.lines = lines
	m.scratch = make([]float64, maxBlockSize)
	m.maxBlockSize = maxBlockSize
	m.maxLatency = maxLatency

	return nil
}

// Channels returns the channel count.
func (m *DryWet) Channels() int { return len(m.lines) }

// MaxBlockSize returns the largest block the mixer accepts.
func (m *DryWet) MaxBlockSize() int { return m.maxBlockSize }

// MaxLatency returns the largest supported latency.
func (m *DryWet) MaxLatency() int { return m.maxLatency }

// WriteDry stores a copy of the unprocessed block. Call it once per block
// before the block is processed in place. Channels beyond Channels() are
// ignored and at most MaxBlockSize samples are taken.
func (m *DryWet) WriteDry(block [][]float64) {
	for ch, line := range m.lines {
		if ch >= len(block) {
			break
		}
		buf := block[ch]
		if len(buf) > m.maxBlockSize {
			buf = buf[:m.maxBlockSize]
		}
		line.WriteBlock(buf)
	}
}

// MixInDry blends the wet block in place with the dry signal written by the
// matching WriteDry call, delayed by latency samples. mix is the wet amount
// in [0, 1]; at 1 the block is left untouched.
func (m *DryWet) MixInDry(block [][]float64, mix float64, style MixingStyle, latency int) {
	mix = min(max(mix, 0), 1)
	if mix == 1 {
		return
	}

	latency = min(max(latency, 0), m.maxLatency)

	wetGain, dryGain := mix, 1-mix
	if style == EqualPower {
		wetGain = math.Sin(mix * math.Pi / 2)
		dryGain = math.Cos(mix * math.Pi / 2)
	}

	for ch, line := range m.lines {
		if ch >= len(block) {
			break
		}
		buf := block[ch]
		if len(buf) > m.maxBlockSize {
			buf = buf[:m.maxBlockSize]
		}

		dry := m.scratch[:len(buf)]
		line.ReadBlock(dry, latency)

		for i := range buf {
			buf[i] = buf[i]*wetGain + dry[i]*dryGain
		}
	}
}

// Reset zeroes the dry history.
func (m *DryWet) Reset() {
	for _, line := range m.lines {
		line.Reset()
	}
}
