package stft

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-rtfx/dsp/buffer"
	"github.com/cwbudde/algo-rtfx/dsp/window"
	"github.com/cwbudde/algo-vecmath"
)

const (
	// MinOverlapOrder is the smallest overlap order (4x overlap).
	MinOverlapOrder = 2
	// MaxOverlapOrder is the largest overlap order (32x overlap).
	MaxOverlapOrder = 5
	// DefaultOverlapOrder selects 8x overlap.
	DefaultOverlapOrder = 3
)

// ErrInvalidLayout is returned for non-positive channel counts or capacities.
var ErrInvalidLayout = errors.New("stft: invalid channel layout")

// FrameProcessor shapes one channel's half spectrum (bins 0..N/2) in place.
//
// When a sidechain is present, ProcessSidechainFrame is called for every
// sidechain channel of a hop before ProcessFrame is called for any main
// channel of that hop.
type FrameProcessor interface {
	ProcessSidechainFrame(channel int, bins []complex128)
	ProcessFrame(channel int, bins []complex128)
}

// OverlapAdd is a streaming Hann-windowed STFT driver with a fixed latency
// of one window. Input samples are buffered until a hop boundary, analyzed,
// passed to a FrameProcessor, resynthesized and overlap-added into an output
// ring that is read back one window later.
//
// Not safe for concurrent use.
type OverlapAdd struct {
	channels int
	capacity int

	plan    *Plan
	size    int
	overlap int
	hop     int
	pos     int

	inputGain  float64
	outputGain float64

	in   *buffer.Planar[float64]
	out  *buffer.Planar[float64]
	side *buffer.Planar[float64]

	win      *buffer.Buffer[float64]
	synth    *buffer.Buffer[float64]
	frame    *buffer.Buffer[complex128]
	spectrum *buffer.Buffer[complex128]

	skipped int
}

// NewOverlapAdd reserves buffers for channels of up to capacity samples per
// window. With sidechain, an equally sized auxiliary input ring is reserved
// per channel. The driver is unusable until SetPlan is called.
func NewOverlapAdd(channels, capacity int, sidechain bool) (*OverlapAdd, error) {
	if channels <= 0 || capacity <= 0 {
		return nil, fmt.Errorf("%w: channels=%d capacity=%d", ErrInvalidLayout, channels, capacity)
	}

	o := &OverlapAdd{
		channels:   channels,
		capacity:   capacity,
		inputGain:  1,
		outputGain: 1,
		in:         buffer.NewPlanar[float64](channels, capacity),
		out:        buffer.NewPlanar[float64](channels, capacity),
		win:        buffer.New[float64](capacity),
		synth:      buffer.New[float64](capacity),
		frame:      buffer.New[complex128](capacity),
		spectrum:   buffer.New[complex128](capacity),
	}
	if sidechain {
		o.side = buffer.NewPlanar[float64](channels, capacity)
	}

	return o, nil
}

// SetPlan selects the transform and overlap for the next frames. A change
// of window size resizes every window-sized buffer in place, clears the
// rings and rewinds the hop position, so the output is silent for one
// window afterwards. With the window size unchanged only the hop changes:
// the rings keep playing and the next frame is analyzed at the next
// multiple of the new hop. A plan larger than the reserved capacity is
// ignored.
func (o *OverlapAdd) SetPlan(p *Plan, overlapOrder int) {
	if p == nil || p.Size() > o.capacity {
		return
	}

	overlapOrder = min(max(overlapOrder, MinOverlapOrder), MaxOverlapOrder)
	sameSize := o.plan != nil && p.Size() == o.size

	o.plan = p
	o.size = p.Size()
	o.overlap = 1 << overlapOrder
	o.hop = max(o.size/o.overlap, 1)

	if sameSize {
		return
	}

	o.win.Resize(o.size)
	window.FillPeriodic(o.win.Samples(), window.TypeHann)
	o.synth.Resize(o.size)
	o.frame.Resize(o.size)
	o.spectrum.Resize(o.size)
	o.in.Resize(o.size)
	o.out.Resize(o.size)
	if o.side != nil {
		o.side.Resize(o.size)
	}

	o.Reset()
}

// SetGains sets the linear gains applied with the analysis and synthesis
// windows.
func (o *OverlapAdd) SetGains(input, output float64) {
	o.inputGain = input
	o.outputGain = output
}

// Reset clears all rings and rewinds the hop position.
func (o *OverlapAdd) Reset() {
	o.in.Zero()
	o.out.Zero()
	if o.side != nil {
		o.side.Zero()
	}
	o.pos = 0
}

// Channels returns the channel count.
func (o *OverlapAdd) Channels() int { return o.channels }

// Capacity returns the largest window size the driver can hold.
func (o *OverlapAdd) Capacity() int { return o.capacity }

// WindowSize returns the active window size.
func (o *OverlapAdd) WindowSize() int { return o.size }

// Overlap returns the active overlap factor.
func (o *OverlapAdd) Overlap() int { return o.overlap }

// Hop returns the number of samples between successive frames.
func (o *OverlapAdd) Hop() int { return o.hop }

// NumBins returns the number of bins handed to a FrameProcessor.
func (o *OverlapAdd) NumBins() int { return o.size/2 + 1 }

// LatencySamples returns the delay between input and resynthesized output.
func (o *OverlapAdd) LatencySamples() int { return o.size }

// SkippedFrames returns how many frames were dropped because a transform
// failed. A non-zero value indicates a sizing bug.
func (o *OverlapAdd) SkippedFrames() int { return o.skipped }

// Process runs main through the STFT in place. Channels beyond the reserved
// count are left untouched; all channels are processed over their common
// length.
func (o *OverlapAdd) Process(main [][]float64, p FrameProcessor) {
	o.process(main, nil, false, p)
}

// ProcessWithSidechain is Process with an auxiliary input whose frames are
// analyzed before the main frames of the same hop. side is not modified.
// Missing sidechain channels and samples, including a nil side, are read
// as silence, so the sidechain ring always advances with main. Without a
// reserved sidechain ring this behaves like Process.
func (o *OverlapAdd) ProcessWithSidechain(main, side [][]float64, p FrameProcessor) {
	o.process(main, side, o.side != nil, p)
}

func (o *OverlapAdd) process(main, side [][]float64, withSidechain bool, p FrameProcessor) {
	if o.plan == nil {
		return
	}

	channels := min(len(main), o.channels)
	if channels == 0 {
		return
	}

	n := len(main[0])
	for ch := 1; ch < channels; ch++ {
		n = min(n, len(main[ch]))
	}

	for done := 0; done < n; {
		chunk := min(o.hop-o.pos%o.hop, n-done)

		for ch := range channels {
			buf := main[ch][done : done+chunk]
			in := o.in.Channel(ch)[o.pos : o.pos+chunk]
			out := o.out.Channel(ch)[o.pos : o.pos+chunk]

			copy(in, buf)
			copy(buf, out)
			clear(out)

			if withSidechain {
				o.writeSidechain(ch, side, done, chunk)
			}
		}

		done += chunk
		o.pos += chunk
		if o.pos == o.size {
			o.pos = 0
		}

		if o.pos%o.hop == 0 {
			o.hopFrames(channels, withSidechain, p)
		}
	}
}

// writeSidechain copies side[ch][done:done+chunk] into the sidechain ring at
// o.pos, zero-filling whatever side does not provide.
func (o *OverlapAdd) writeSidechain(ch int, side [][]float64, done, chunk int) {
	dst := o.side.Channel(ch)[o.pos : o.pos+chunk]

	var src []float64
	if ch < len(side) && done < len(side[ch]) {
		src = side[ch][done:min(done+chunk, len(side[ch]))]
	}

	copied := copy(dst, src)
	clear(dst[copied:])
}

// hopFrames analyzes, processes and resynthesizes one frame per channel.
// o.pos is the oldest sample of the frame in every ring.
func (o *OverlapAdd) hopFrames(channels int, withSidechain bool, p FrameProcessor) {
	if withSidechain {
		for ch := range channels {
			if o.analyze(o.side.Channel(ch)) {
				p.ProcessSidechainFrame(ch, o.spectrum.Samples()[:o.NumBins()])
			}
		}
	}

	for ch := range channels {
		if !o.analyze(o.in.Channel(ch)) {
			continue
		}
		p.ProcessFrame(ch, o.spectrum.Samples()[:o.NumBins()])
		o.synthesize(o.out.Channel(ch))
	}
}

// analyze unwraps ring into the frame, applies window and input gain, and
// leaves the forward transform in o.spectrum.
func (o *OverlapAdd) analyze(ring []float64) bool {
	synth := o.synth.Samples()
	tail := o.size - o.pos
	copy(synth, ring[o.pos:])
	copy(synth[tail:], ring[:o.pos])
	vecmath.MulBlockInPlace(synth, o.win.Samples())

	frame := o.frame.Samples()
	for i, v := range synth {
		frame[i] = complex(v*o.inputGain, 0)
	}

	if err := o.plan.Forward(o.spectrum.Samples(), frame); err != nil {
		o.skipped++
		return false
	}

	return true
}

// synthesize restores conjugate symmetry, inverse transforms, applies window
// and output gain, and accumulates into ring starting at o.pos.
func (o *OverlapAdd) synthesize(ring []float64) {
	spec := o.spectrum.Samples()
	half := o.size / 2

	spec[0] = complex(real(spec[0]), 0)
	spec[half] = complex(real(spec[half]), 0)
	for k := 1; k < half; k++ {
		v := spec[k]
		spec[o.size-k] = complex(real(v), -imag(v))
	}

	frame := o.frame.Samples()
	if err := o.plan.Inverse(frame, spec); err != nil {
		o.skipped++
		return
	}

	synth := o.synth.Samples()
	for i, v := range frame {
		synth[i] = real(v)
	}
	vecmath.MulBlockInPlace(synth, o.win.Samples())
	vecmath.ScaleBlockInPlace(synth, o.outputGain)

	tail := o.size - o.pos
	vecmath.AddBlockInPlace(ring[o.pos:], synth[:tail])
	vecmath.AddBlockInPlace(ring[:o.pos], synth[tail:])
}

// CompensationGain returns the overlap-add normalization for a periodic Hann
// window applied at both analysis and synthesis: 1 / (W * O * 3/8).
// Splitting its square root between input and output keeps spectral
// magnitudes independent of the window and overlap. Exact for O >= 4.
func CompensationGain(windowSize, overlap int) float64 {
	return 1 / (float64(windowSize) * float64(overlap) * window.Info(window.TypeHann).PowerGain)
}
