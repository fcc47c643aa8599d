package allpass

import (
	"fmt"
	"math"
)

// SpreadStyle selects how stage frequencies fan out around the center.
type SpreadStyle int

const (
	// Octaves spreads stages by a constant ratio: f * 2^(spread*p).
	Octaves SpreadStyle = iota
	// Linear spreads stages by a constant offset whose extremes match the
	// octave spread's excursion on the same side.
	Linear
)

// String returns the style name.
func (s SpreadStyle) String() string {
	switch s {
	case Octaves:
		return "octaves"
	case Linear:
		return "linear"
	default:
		return fmt.Sprintf("SpreadStyle(%d)", int(s))
	}
}

// ParseSpreadStyle parses "octaves" or "linear".
func ParseSpreadStyle(name string) (SpreadStyle, error) {
	switch name {
	case "octaves":
		return Octaves, nil
	case "linear":
		return Linear, nil
	default:
		return Octaves, fmt.Errorf("allpass: unknown spread style %q", name)
	}
}

// StageFrequency returns the center frequency of stage i (0-based) for cfg.
// Stage indices are mapped to p = i/stages*2 - 1 in [-1, 1); the result is
// clamped to [MinFrequencyHz, sampleRate/2.05].
func StageFrequency(cfg Config, i int) float64 {
	f := cfg.FrequencyHz
	if cfg.Stages > 0 && cfg.Spread != 0 {
		p := float64(i)/float64(cfg.Stages)*2 - 1

		switch cfg.Style {
		case Linear:
			f += maxOctaveSpread(f, cfg.Spread) * p
		default:
			f *= math.Exp2(cfg.Spread * p)
		}
	}

	return clampFrequency(f, cfg.SampleRate)
}

// maxOctaveSpread is the linear offset at p = +/-1 that matches the octave
// spread's excursion: below the center for positive spread, above it for
// negative spread.
func maxOctaveSpread(f, spread float64) float64 {
	if spread >= 0 {
		return f - f*math.Exp2(-spread)
	}
	return f*math.Exp2(spread) - f
}

func clampFrequency(f, sampleRate float64) float64 {
	hi := sampleRate / nyquistDivisor
	if math.IsNaN(f) || f < MinFrequencyHz {
		f = MinFrequencyHz
	}
	if f > hi {
		f = hi
	}
	return f
}
