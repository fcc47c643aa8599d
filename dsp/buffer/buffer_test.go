package buffer

import "testing"

func TestNewZeroFilled(t *testing.T) {
	b := New[float64](8)
	if b.Len() != 8 {
		t.Fatalf("Len() = %d, want 8", b.Len())
	}
	for i, v := range b.Samples() {
		if v != 0 {
			t.Fatalf("Samples()[%d] = %v, want 0", i, v)
		}
	}
}

func TestNewNegativeCapacity(t *testing.T) {
	b := New[float64](-1)
	if b.Len() != 0 || b.Cap() != 0 {
		t.Fatalf("Len/Cap = %d/%d, want 0/0 for negative input", b.Len(), b.Cap())
	}
}

func TestResizeWithinCapacity(t *testing.T) {
	b := NewWithLen[float64](2, 8)
	if b.Len() != 2 || b.Cap() != 8 {
		t.Fatalf("Len/Cap = %d/%d, want 2/8", b.Len(), b.Cap())
	}

	if got := b.Resize(6); got != 6 {
		t.Fatalf("Resize(6) = %d, want 6", got)
	}
	if b.Cap() != 8 {
		t.Fatalf("Cap() changed to %d", b.Cap())
	}
}

func TestResizeClampsToCapacity(t *testing.T) {
	b := New[complex128](4)
	before := &b.Samples()[0]

	if got := b.Resize(100); got != 4 {
		t.Fatalf("Resize(100) = %d, want 4", got)
	}
	if &b.Samples()[0] != before {
		t.Fatal("Resize reallocated the backing array")
	}
}

func TestResizeZeroesStaleData(t *testing.T) {
	b := New[float64](4)
	copy(b.Samples(), []float64{1, 2, 3, 4})

	b.Resize(1)
	b.Resize(4)

	want := []float64{1, 0, 0, 0}
	for i, v := range b.Samples() {
		if v != want[i] {
			t.Fatalf("Samples()[%d] = %v, want %v", i, v, want[i])
		}
	}
}

func TestResizeDoesNotAllocate(t *testing.T) {
	b := New[float64](4096)
	allocs := testing.AllocsPerRun(100, func() {
		b.Resize(64)
		b.Resize(4096)
	})
	if allocs != 0 {
		t.Fatalf("Resize allocated %.0f times, want 0", allocs)
	}
}

func TestZeroRangeClamps(t *testing.T) {
	b := New[float64](4)
	copy(b.Samples(), []float64{1, 2, 3, 4})
	b.ZeroRange(-3, 2)
	b.ZeroRange(3, 10)

	want := []float64{0, 0, 3, 0}
	for i, v := range b.Samples() {
		if v != want[i] {
			t.Fatalf("Samples()[%d] = %v, want %v", i, v, want[i])
		}
	}
}

func TestPlanar(t *testing.T) {
	p := NewPlanar[float64](2, 16)
	if p.Channels() != 2 || p.Len() != 16 {
		t.Fatalf("Channels/Len = %d/%d, want 2/16", p.Channels(), p.Len())
	}

	p.Channel(1)[3] = 5
	if got := p.Resize(8); got != 8 {
		t.Fatalf("Resize(8) = %d", got)
	}
	if len(p.Channel(0)) != 8 || len(p.Channel(1)) != 8 {
		t.Fatal("channels not resized together")
	}
	if p.Channel(1)[3] != 5 {
		t.Fatal("shrinking lost data inside the active region")
	}

	p.Zero()
	if p.Channel(1)[3] != 0 {
		t.Fatal("Zero() left data")
	}
}
