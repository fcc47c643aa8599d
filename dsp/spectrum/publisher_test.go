package spectrum

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func newActivePublisher(t *testing.T, depth, bins int) *Publisher {
	t.Helper()

	p, err := NewPublisher(depth, bins)
	if err != nil {
		t.Fatal(err)
	}
	p.Attach()
	p.SetEditorOpen(true)

	return p
}

func TestNewPublisherValidation(t *testing.T) {
	for _, tt := range []struct{ depth, bins int }{{0, 4}, {4, 0}, {-1, 4}} {
		if _, err := NewPublisher(tt.depth, tt.bins); !errors.Is(err, ErrInvalidPublisher) {
			t.Fatalf("NewPublisher(%d, %d) error = %v", tt.depth, tt.bins, err)
		}
	}
}

func TestPublishRequiresConsumerAndEditor(t *testing.T) {
	tests := []struct {
		name     string
		attached bool
		open     bool
		want     bool
	}{
		{name: "nobody listening"},
		{name: "detached editor open", open: true},
		{name: "attached editor closed", attached: true},
		{name: "attached editor open", attached: true, open: true, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := NewPublisher(2, 4)
			if tt.attached {
				p.Attach()
			}
			p.SetEditorOpen(tt.open)

			if got := p.Publish([]float64{1, 2}, 48000, 8); got != tt.want {
				t.Fatalf("Publish() = %v, want %v", got, tt.want)
			}
			if got := p.Latest() != nil; got != tt.want {
				t.Fatalf("frame queued = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPublishDropsOldest(t *testing.T) {
	p := newActivePublisher(t, 3, 1)

	for i := 1; i <= 5; i++ {
		if !p.Publish([]float64{float64(i)}, 48000, 2) {
			t.Fatalf("Publish(%d) failed", i)
		}
	}

	if p.Dropped() != 2 {
		t.Fatalf("Dropped() = %d, want 2", p.Dropped())
	}

	ctx := context.Background()
	for _, want := range []float64{3, 4, 5} {
		f, err := p.Receive(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if f.Magnitudes[0] != want || f.Seq != uint64(want) {
			t.Fatalf("received value %v seq %d, want %v", f.Magnitudes[0], f.Seq, want)
		}
		p.Release(f)
	}
}

func TestPublishSkipsWhenConsumerHoldsAllFrames(t *testing.T) {
	p := newActivePublisher(t, 2, 1)
	p.Publish([]float64{1}, 48000, 2)
	p.Publish([]float64{2}, 48000, 2)

	ctx := context.Background()
	a, _ := p.Receive(ctx)
	b, _ := p.Receive(ctx)
	if a == nil || b == nil {
		t.Fatal("expected two queued frames")
	}

	if p.Publish([]float64{3}, 48000, 2) {
		t.Fatal("Publish succeeded with no frame available")
	}

	p.Release(a)
	if !p.Publish([]float64{4}, 48000, 2) {
		t.Fatal("Publish failed after a release")
	}
}

func TestLatestReleasesOlderFrames(t *testing.T) {
	p := newActivePublisher(t, 4, 2)
	for i := range 4 {
		p.Publish([]float64{float64(i), 0}, 48000, 2)
	}

	f := p.Latest()
	if f == nil || f.Magnitudes[0] != 3 {
		t.Fatalf("Latest() = %+v, want newest frame", f)
	}
	p.Release(f)

	// Every frame is free again, so four more publishes need no drops.
	for i := range 4 {
		p.Publish([]float64{float64(i), 0}, 48000, 2)
	}
	if p.Dropped() != 0 {
		t.Fatalf("Dropped() = %d, want 0", p.Dropped())
	}
}

func TestPublishTruncatesToFrameCapacity(t *testing.T) {
	p := newActivePublisher(t, 1, 2)
	p.Publish([]float64{1, 2, 3}, 44100, 4)

	f := p.Latest()
	if len(f.Magnitudes) != 2 || f.SampleRate != 44100 || f.WindowSize != 4 {
		t.Fatalf("frame = %+v", f)
	}
}

func TestDetachRecyclesQueuedFrames(t *testing.T) {
	p := newActivePublisher(t, 2, 1)
	p.Publish([]float64{1}, 48000, 2)
	p.Publish([]float64{2}, 48000, 2)

	p.Detach()
	if p.Latest() != nil {
		t.Fatal("frames survived Detach")
	}

	p.Attach()
	p.Publish([]float64{3}, 48000, 2)
	p.Publish([]float64{4}, 48000, 2)
	if p.Dropped() != 0 {
		t.Fatalf("Dropped() = %d, want 0", p.Dropped())
	}
}

func TestReceiveHonorsContext(t *testing.T) {
	p := newActivePublisher(t, 1, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := p.Receive(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Receive() error = %v, want DeadlineExceeded", err)
	}
}

func TestPublishConcurrentConsumer(t *testing.T) {
	p := newActivePublisher(t, 4, 8)
	mags := make([]float64, 8)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	var last uint64

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			f, err := p.Receive(ctx)
			if err != nil {
				return
			}
			if f.Seq <= last {
				t.Errorf("sequence went backwards: %d after %d", f.Seq, last)
			}
			last = f.Seq
			p.Release(f)
		}
	}()

	for i := range 10000 {
		mags[0] = float64(i)
		p.Publish(mags, 48000, 14)
	}

	cancel()
	wg.Wait()
}

func TestPublishZeroAlloc(t *testing.T) {
	p := newActivePublisher(t, 2, 64)
	mags := make([]float64, 64)

	allocs := testing.AllocsPerRun(100, func() {
		p.Publish(mags, 48000, 126)
	})
	if allocs != 0 {
		t.Fatalf("Publish allocated %.0f times, want 0", allocs)
	}
}
