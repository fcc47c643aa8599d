// Package delay provides a fixed-size circular delay line with sample and
// block access.
package delay

import (
	"errors"
	"fmt"
)

// ErrInvalidSize is returned for non-positive delay line sizes.
var ErrInvalidSize = errors.New("delay: size must be > 0")

// Line is a circular delay line. Delays are counted in writes: Read(1)
// returns the most recently written sample.
type Line struct {
	buffer   []float64
	writePos int
}

// New returns a delay line of fixed size.
func New(size int) (*Line, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	return &Line{buffer: make([]float64, size)}, nil
}

// Len returns internal buffer size.
func (d *Line) Len() int {
	return len(d.buffer)
}

// Write writes one sample.
func (d *Line) Write(sample float64) {
	d.buffer[d.writePos] = sample
	d.writePos++
	if d.writePos >= len(d.buffer) {
		d.writePos = 0
	}
}

// WriteBlock writes src in order. Only the last Len() samples are kept.
func (d *Line) WriteBlock(src []float64) {
	size := len(d.buffer)
	if len(src) > size {
		src = src[len(src)-size:]
	}

	n := copy(d.buffer[d.writePos:], src)
	copy(d.buffer, src[n:])

	d.writePos = (d.writePos + len(src)) % size
}

// Read reads an integer delay in samples.
func (d *Line) Read(delay int) float64 {
	size := len(d.buffer)
	readPos := ((d.writePos-delay)%size + size) % size
	return d.buffer[readPos]
}

// ReadBlock fills dst with the len(dst) consecutive samples that end delay
// writes before the write head, oldest first. With delay 0, dst receives the
// most recently written samples. delay is clamped so that delay+len(dst)
// does not exceed Len().
func (d *Line) ReadBlock(dst []float64, delay int) {
	size := len(d.buffer)
	if len(dst) > size {
		dst = dst[len(dst)-size:]
	}
	delay = max(0, min(delay, size-len(dst)))

	start := ((d.writePos-delay-len(dst))%size + size) % size
	n := copy(dst, d.buffer[start:])
	copy(dst[n:], d.buffer)
}

// Reset clears line state.
func (d *Line) Reset() {
	clear(d.buffer)
	d.writePos = 0
}
