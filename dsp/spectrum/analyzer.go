package spectrum

import (
	"fmt"

	"github.com/cwbudde/algo-rtfx/dsp/stft"
	"github.com/cwbudde/algo-rtfx/dsp/window"
	"github.com/cwbudde/algo-vecmath"
)

// Analyzer turns processed output into magnitude snapshots. Frames overlap
// by half a window. All buffers are allocated by NewAnalyzer.
type Analyzer struct {
	plan       *stft.Plan
	pub        *Publisher
	sampleRate float64

	size   int
	hop    int
	filled int
	norm   float64

	window []float64
	ring   []float64
	frame  []complex128
	bins   []complex128
	re, im []float64
	mags   []float64
}

// NewAnalyzer creates an analyzer with 2^order sample windows that publishes
// to pub. The publisher's frames should hold at least NumBins magnitudes.
func NewAnalyzer(order int, sampleRate float64, pub *Publisher) (*Analyzer, error) {
	if pub == nil {
		return nil, fmt.Errorf("spectrum: publisher must not be nil")
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("spectrum: sample rate must be > 0: %v", sampleRate)
	}

	plan, err := stft.NewPlan(order)
	if err != nil {
		return nil, fmt.Errorf("spectrum: %w", err)
	}

	size := plan.Size()
	numBins := size/2 + 1
	a := &Analyzer{
		plan:       plan,
		pub:        pub,
		sampleRate: sampleRate,
		size:       size,
		hop:        size / 2,
		window:     make([]float64, size),
		ring:       make([]float64, size),
		frame:      make([]complex128, size),
		bins:       make([]complex128, size),
		re:         make([]float64, numBins),
		im:         make([]float64, numBins),
		mags:       make([]float64, numBins),
	}
	window.FillPeriodic(a.window, window.TypeHann)

	// A bin-centered unit sine peaks at size*coherentGain/2.
	a.norm = 2 / (float64(size) * window.Info(window.TypeHann).CoherentGain)

	return a, nil
}

// Size returns the analysis window length.
func (a *Analyzer) Size() int { return a.size }

// NumBins returns the number of magnitudes per snapshot.
func (a *Analyzer) NumBins() int { return len(a.mags) }

// Reset discards buffered samples.
func (a *Analyzer) Reset() {
	clear(a.ring)
	a.filled = 0
}

// Add accumulates the mono downmix of block and publishes a snapshot for
// every completed window. Nothing is analyzed while the publisher is
// inactive.
func (a *Analyzer) Add(block [][]float64) {
	if len(block) == 0 {
		return
	}
	if !a.pub.Active() {
		a.Reset()
		return
	}

	n := len(block[0])
	for _, ch := range block[1:] {
		n = min(n, len(ch))
	}
	scale := 1 / float64(len(block))

	for i := range n {
		sum := 0.0
		for _, ch := range block {
			sum += ch[i]
		}
		a.ring[a.filled] = sum * scale
		a.filled++

		if a.filled == a.size {
			a.analyze()
			copy(a.ring, a.ring[a.hop:])
			a.filled = a.size - a.hop
		}
	}
}

func (a *Analyzer) analyze() {
	for i, x := range a.ring {
		a.frame[i] = complex(x*a.window[i], 0)
	}
	if err := a.plan.Forward(a.bins, a.frame); err != nil {
		return
	}

	for k := range a.re {
		a.re[k] = real(a.bins[k])
		a.im[k] = imag(a.bins[k])
	}
	vecmath.Magnitude(a.mags, a.re, a.im)
	vecmath.ScaleBlockInPlace(a.mags, a.norm)

	a.pub.Publish(a.mags, a.sampleRate, a.size)
}
