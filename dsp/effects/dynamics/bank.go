package dynamics

import "fmt"

// ThresholdMode selects where the compressor bank takes its detector level
// and threshold from. It is stable for the duration of a block.
type ThresholdMode int32

const (
	// Internal detects each bin from the main signal against the threshold
	// curve.
	Internal ThresholdMode = iota
	// SidechainMatch detects from the main signal and uses the sidechain bin
	// level, offset by a fixed amount, as that bin's threshold. The main
	// spectrum is pulled toward the sidechain's spectral shape.
	SidechainMatch
	// SidechainCompress detects each bin from the sidechain signal against
	// the threshold curve and applies the resulting gain to the main signal.
	SidechainCompress
)

// String returns the mode name.
func (m ThresholdMode) String() string {
	switch m {
	case Internal:
		return "internal"
	case SidechainMatch:
		return "sidechain-match"
	case SidechainCompress:
		return "sidechain-compress"
	default:
		return fmt.Sprintf("ThresholdMode(%d)", int(m))
	}
}

// UsesSidechain reports whether the mode reads the sidechain spectrum.
func (m ThresholdMode) UsesSidechain() bool {
	return m == SidechainMatch || m == SidechainCompress
}

// ParseThresholdMode parses a mode name as returned by String.
func ParseThresholdMode(name string) (ThresholdMode, error) {
	for _, m := range []ThresholdMode{Internal, SidechainMatch, SidechainCompress} {
		if m.String() == name {
			return m, nil
		}
	}
	return Internal, fmt.Errorf("dynamics: unknown threshold mode %q", name)
}

// BlockInfo is the block-stable state a CompressorBank needs for each frame.
type BlockInfo struct {
	Mode ThresholdMode
	// Overlap is the STFT overlap factor; the bank runs its envelopes at
	// sampleRate*Overlap/windowSize frames per second.
	Overlap int
	// FirstNonDCBin is the first bin above the low-frequency cutoff.
	FirstNonDCBin int
	// DCFilter reports that bins below FirstNonDCBin will be discarded.
	DCFilter bool
}

// CompressorBank computes and applies per-bin gains to STFT frames.
//
// All methods are called from the audio thread. Resize and Reset must not
// allocate beyond the capacity reserved by the bank's constructor.
type CompressorBank interface {
	// Resize prepares the bank for a new window size.
	Resize(sampleRate float64, windowSize int)
	// Reset clears envelopes and stored sidechain levels.
	Reset()
	// ProcessSidechain records the sidechain bin levels for channel. It is
	// called for every sidechain channel before Process runs for the same
	// hop.
	ProcessSidechain(bins []complex128, channel int)
	// Process applies gains to the main bins of channel in place.
	Process(bins []complex128, channel int, block BlockInfo)
}
