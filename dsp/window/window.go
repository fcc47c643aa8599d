package window

import (
	"errors"
	"math"
)

// ErrEmpty is returned when gain measurements are asked of an empty window.
var ErrEmpty = errors.New("window: coefficients must not be empty")

// Type identifies a window function.
type Type int

const (
	TypeRectangular Type = iota
	TypeHann
	TypeHamming
	TypeBlackman
)

// Metadata holds the spectral gains of a periodic window.
type Metadata struct {
	Name string
	// CoherentGain is the mean coefficient, the gain applied to a
	// bin-centered sinusoid.
	CoherentGain float64
	// PowerGain is the mean squared coefficient. Squared frames hopped by
	// N/O sum to O*PowerGain.
	PowerGain float64
}

var metadataByType = map[Type]Metadata{
	TypeRectangular: {Name: "Rectangular", CoherentGain: 1, PowerGain: 1},
	TypeHann:        {Name: "Hann", CoherentGain: 0.5, PowerGain: 0.375},
	TypeHamming:     {Name: "Hamming", CoherentGain: 0.54, PowerGain: 0.3974},
	TypeBlackman:    {Name: "Blackman", CoherentGain: 0.42, PowerGain: 0.3046},
}

var cosineTerms = map[Type][]float64{
	TypeHann:     {0.5, -0.5},
	TypeHamming:  {0.54, -0.46},
	TypeBlackman: {0.42, -0.5, 0.08},
}

// String returns the window name.
func (t Type) String() string {
	if m, ok := metadataByType[t]; ok {
		return m.Name
	}

	return "Unknown"
}

// Info returns static metadata for a window type. Unknown types report a
// zero Metadata.
func Info(t Type) Metadata {
	return metadataByType[t]
}

// Periodic returns the periodic form of t with the given length.
func Periodic(t Type, length int) []float64 {
	if length <= 0 {
		return nil
	}

	out := make([]float64, length)
	FillPeriodic(out, t)

	return out
}

// FillPeriodic overwrites dst with the periodic form of t, the form whose
// overlap-added frames sum to a constant. It never allocates, so it may be
// used on the audio thread to regenerate a window after an in-place resize.
func FillPeriodic(dst []float64, t Type) {
	terms, ok := cosineTerms[t]
	if !ok {
		for i := range dst {
			dst[i] = 1
		}

		return
	}

	step := 2 * math.Pi / float64(max(len(dst), 1))
	for i := range dst {
		phase := step * float64(i)

		sum := 0.0
		for k, c := range terms {
			sum += c * math.Cos(float64(k)*phase)
		}

		dst[i] = sum
	}
}

// CoherentGain returns sum(w[n]) / N.
func CoherentGain(coeffs []float64) (float64, error) {
	if len(coeffs) == 0 {
		return 0, ErrEmpty
	}

	sum := 0.0
	for _, c := range coeffs {
		sum += c
	}

	return sum / float64(len(coeffs)), nil
}

// PowerGain returns sum(w[n]^2) / N.
func PowerGain(coeffs []float64) (float64, error) {
	if len(coeffs) == 0 {
		return 0, ErrEmpty
	}

	sum := 0.0
	for _, c := range coeffs {
		sum += c * c
	}

	return sum / float64(len(coeffs)), nil
}
