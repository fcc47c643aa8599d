package spectrum

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
)

// ErrInvalidPublisher is returned for a non-positive queue depth or bin count.
var ErrInvalidPublisher = errors.New("spectrum: queue depth and bin count must be > 0")

// Frame is one published magnitude snapshot. Frames are owned by the
// Publisher; a consumer must Release every frame it receives.
type Frame struct {
	Magnitudes []float64
	SampleRate float64
	WindowSize int
	Seq        uint64
}

// Publisher is a bounded single-producer queue of preallocated frames.
//
// Publish never blocks or allocates. Frames are only published while a
// consumer is attached and the editor is open.
type Publisher struct {
	free  chan *Frame
	queue chan *Frame

	attached   atomic.Bool
	editorOpen atomic.Bool
	dropped    atomic.Uint64

	seq uint64
}

// NewPublisher preallocates depth frames of up to bins magnitudes each.
func NewPublisher(depth, bins int) (*Publisher, error) {
	if depth <= 0 || bins <= 0 {
		return nil, fmt.Errorf("%w: depth=%d bins=%d", ErrInvalidPublisher, depth, bins)
	}

	p := &Publisher{
		free:  make(chan *Frame, depth),
		queue: make(chan *Frame, depth),
	}
	for range depth {
		p.free <- &Frame{Magnitudes: make([]float64, 0, bins)}
	}

	return p, nil
}

// Attach marks a consumer as present.
func (p *Publisher) Attach() {
	p.attached.Store(true)
}

// Detach marks the consumer as gone and recycles all queued frames.
func (p *Publisher) Detach() {
	p.attached.Store(false)
	for {
		select {
		case f := <-p.queue:
			p.Release(f)
		default:
			return
		}
	}
}

// SetEditorOpen forwards the host's editor visibility.
func (p *Publisher) SetEditorOpen(open bool) {
	p.editorOpen.Store(open)
}

// Active reports whether Publish would currently deliver frames.
func (p *Publisher) Active() bool {
	return p.attached.Load() && p.editorOpen.Load()
}

// Dropped returns how many snapshots were discarded because the consumer
// fell behind.
func (p *Publisher) Dropped() uint64 {
	return p.dropped.Load()
}

// Publish copies magnitudes into a free frame and queues it. When no frame
// is free the oldest queued frame is overwritten. It reports whether the
// snapshot was queued.
func (p *Publisher) Publish(magnitudes []float64, sampleRate float64, windowSize int) bool {
	if !p.Active() {
		return false
	}

	var f *Frame
	select {
	case f = <-p.free:
	default:
		select {
		case f = <-p.queue:
			p.dropped.Add(1)
		default:
			// The consumer holds every frame.
			p.dropped.Add(1)
			return false
		}
	}

	n := min(len(magnitudes), cap(f.Magnitudes))
	f.Magnitudes = f.Magnitudes[:n]
	copy(f.Magnitudes, magnitudes)
	f.SampleRate = sampleRate
	f.WindowSize = windowSize
	p.seq++
	f.Seq = p.seq

	select {
	case p.queue <- f:
		return true
	default:
		p.Release(f)
		return false
	}
}

// Receive blocks until a frame is available or ctx is done.
func (p *Publisher) Receive(ctx context.Context) (*Frame, error) {
	select {
	case f := <-p.queue:
		return f, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Latest returns the newest queued frame, releasing any older ones, or nil
// when the queue is empty.
func (p *Publisher) Latest() *Frame {
	var latest *Frame
	for {
		select {
		case f := <-p.queue:
			if latest != nil {
				p.Release(latest)
			}
			latest = f
		default:
			return latest
		}
	}
}

// Release returns f to the free list. Releasing nil is a no-op.
func (p *Publisher) Release(f *Frame) {
	if f == nil {
		return
	}
	select {
	case p.free <- f:
	default:
	}
}
