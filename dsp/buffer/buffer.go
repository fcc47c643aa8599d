package buffer

// Sample is the element type a Buffer can hold: real time-domain samples or
// complex spectrum bins.
type Sample interface {
	~float64 | ~complex128
}

// Buffer is a preallocated arena with a separate active length.
type Buffer[T Sample] struct {
	samples []T
}

// New returns a zero-filled Buffer whose capacity and active length are both
// capacity.
func New[T Sample](capacity int) *Buffer[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &Buffer[T]{samples: make([]T, capacity)}
}

// NewWithLen reserves capacity and exposes only the first length samples.
func NewWithLen[T Sample](length, capacity int) *Buffer[T] {
	b := New[T](capacity)
	b.Resize(length)
	return b
}

// Samples returns the active region.
func (b *Buffer[T]) Samples() []T {
	return b.samples
}

// Len returns the active length.
func (b *Buffer[T]) Len() int {
	return len(b.samples)
}

// Cap returns the reserved capacity.
func (b *Buffer[T]) Cap() int {
	return cap(b.samples)
}

// Resize sets the active length to n, clamped to [0, Cap()], and returns the
// resulting length. Newly exposed elements are zeroed. Never allocates.
func (b *Buffer[T]) Resize(n int) int {
	if n < 0 {
		n = 0
	}
	if n > cap(b.samples) {
		n = cap(b.samples)
	}

	oldLen := len(b.samples)
	b.samples = b.samples[:n]

	// The backing array may hold stale data from a previous, larger length.
	for i := oldLen; i < n; i++ {
		b.samples[i] = 0
	}

	return n
}

// Zero sets all active samples to 0.
func (b *Buffer[T]) Zero() {
	for i := range b.samples {
		b.samples[i] = 0
	}
}

// ZeroRange sets samples in [start, end) to 0.
// Indices are clamped to valid bounds.
func (b *Buffer[T]) ZeroRange(start, end int) {
	if start < 0 {
		start = 0
	}
	if end > len(b.samples) {
		end = len(b.samples)
	}
	for i := start; i < end; i++ {
		b.samples[i] = 0
	}
}

// Planar is one Buffer per channel, all sharing the same active length.
type Planar[T Sample] struct {
	channels []*Buffer[T]
}

// NewPlanar reserves capacity samples for each of channels buffers.
func NewPlanar[T Sample](channels, capacity int) *Planar[T] {
	if channels < 0 {
		channels = 0
	}
	p := &Planar[T]{channels: make([]*Buffer[T], channels)}
	for i := range p.channels {
		p.channels[i] = New[T](capacity)
	}
	return p
}

// Channels returns the channel count.
func (p *Planar[T]) Channels() int {
	return len(p.channels)
}

// Channel returns the active region of channel ch.
func (p *Planar[T]) Channel(ch int) []T {
	return p.channels[ch].Samples()
}

// Len returns the shared active length.
func (p *Planar[T]) Len() int {
	if len(p.channels) == 0 {
		return 0
	}
	return p.channels[0].Len()
}

// Resize resizes every channel in place and returns the resulting length.
func (p *Planar[T]) Resize(n int) int {
	for _, b := range p.channels {
		n = b.Resize(n)
	}
	return n
}

// Zero zeroes every channel's active region.
func (p *Planar[T]) Zero() {
	for _, b := range p.channels {
		b.Zero()
	}
}
