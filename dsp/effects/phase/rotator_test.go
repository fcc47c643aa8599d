package phase

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-rtfx/dsp/core"
	"github.com/cwbudde/algo-rtfx/dsp/filter/allpass"
	"github.com/cwbudde/algo-rtfx/dsp/param"
	"github.com/cwbudde/algo-rtfx/dsp/recompute"
	"github.com/cwbudde/algo-rtfx/dsp/spectrum"
	"github.com/cwbudde/algo-rtfx/internal/testutil"
)

const testSampleRate = 48000.0

func stereoHost() core.HostConfig {
	return core.HostConfig{SampleRate: testSampleRate, MaxBlockSize: 512, Channels: 2}
}

func newTestRotator(t *testing.T, stages int, opts ...RotatorOption) *Rotator {
	t.Helper()

	r, err := NewRotator(opts...)
	if err != nil {
		t.Fatal(err)
	}

	p := r.Params()
	p.SetStages(stages)
	p.SetFrequencyHz(1000)
	p.SetSpreadOctaves(3)

	if err := r.Initialize(stereoHost()); err != nil {
		t.Fatal(err)
	}

	return r
}

func processInBlocks(r *Rotator, left, right []float64, sizes ...int) {
	pos := 0
	for _, n := range testutil.Blocks(len(left), sizes...) {
		r.Process([][]float64{left[pos : pos+n], right[pos : pos+n]})
		pos += n
	}
}

func TestInitializeRejectsNonStereo(t *testing.T) {
	for _, channels := range []int{1, 3, 6} {
		r, _ := NewRotator()
		host := stereoHost()
		host.Channels = channels

		if err := r.Initialize(host); !errors.Is(err, ErrUnsupportedLayout) {
			t.Fatalf("Initialize(%d channels) error = %v, want ErrUnsupportedLayout", channels, err)
		}
	}
}

func TestInitializeRejectsInvalidHost(t *testing.T) {
	r, _ := NewRotator()
	err := r.Initialize(core.HostConfig{SampleRate: -1, MaxBlockSize: 64, Channels: 2})
	if !errors.Is(err, core.ErrInvalidSampleRate) {
		t.Fatalf("Initialize() error = %v, want ErrInvalidSampleRate", err)
	}
}

func TestProcessBeforeInitializeIsNoop(t *testing.T) {
	r, _ := NewRotator()
	left := []float64{1, 2, 3}
	r.Process([][]float64{left, {4, 5, 6}})

	if left[0] != 1 || left[2] != 3 {
		t.Fatalf("uninitialized rotator modified input: %v", left)
	}
}

func TestZeroStagesPassThrough(t *testing.T) {
	r := newTestRotator(t, 0)

	left := testutil.DeterministicNoise(1, 0.8, 2000)
	right := testutil.DeterministicNoise(2, 0.8, 2000)
	wantL := append([]float64(nil), left...)
	wantR := append([]float64(nil), right...)

	processInBlocks(r, left, right, 512, 33)

	testutil.RequireSliceNearlyEqual(t, left, wantL, 0)
	testutil.RequireSliceNearlyEqual(t, right, wantR, 0)
}

func TestGroupDelayFollowsStages(t *testing.T) {
	r, _ := NewRotator()
	if d := r.GroupDelay(1000); d != 0 {
		t.Fatalf("GroupDelay before Initialize = %v, want 0", d)
	}

	r = newTestRotator(t, 16)
	left := make([]float64, 256)
	right := make([]float64, 256)
	r.Process([][]float64{left, right})
	few := r.GroupDelay(1000)

	r.Params().SetStages(64)
	r.Process([][]float64{left, right})
	many := r.GroupDelay(1000)

	if few <= 0 || many <= few {
		t.Fatalf("group delay 16 stages=%v, 64 stages=%v", few, many)
	}
}

// Steady-state sines keep their level through a long cascade while their
// phase is rotated.
func TestMagnitudeStaysFlat(t *testing.T) {
	const (
		warmup = 1 << 15
		window = 1024
	)

	for _, freq := range []float64{750, 3000, 12000} {
		r := newTestRotator(t, 128)

		in := testutil.DeterministicSine(freq, testSampleRate, 0.5, warmup+window)
		left := append([]float64(nil), in...)
		right := append([]float64(nil), in...)
		processInBlocks(r, left, right, 512)

		got, err := spectrum.GoertzelMagnitude(left[warmup:], freq, testSampleRate)
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(got-0.5) > 1e-4 {
			t.Errorf("%v Hz: amplitude = %v, want 0.5", freq, got)
		}

		if diff, _ := testutil.MaxAbsDiff(left, in); diff < 0.1 {
			t.Errorf("%v Hz: output matches input (max diff %v)", freq, diff)
		}
	}
}

// After a stage count change the cascade restarts from cleared state, so
// the output continues exactly like a freshly initialized rotator would.
func TestStageChangeClearsState(t *testing.T) {
	const (
		amplitude = 0.5
		before    = 6000
		after     = 1500
	)

	sine := testutil.DeterministicSine(220, testSampleRate, amplitude, before+after)
	left := append([]float64(nil), sine...)
	right := append([]float64(nil), sine...)

	r := newTestRotator(t, 32)
	processInBlocks(r, left[:before], right[:before], 256)
	r.Params().SetStages(64)
	processInBlocks(r, left[before:], right[before:], 256)

	if r.ActiveStages() != 64 {
		t.Fatalf("ActiveStages() = %d, want 64", r.ActiveStages())
	}

	fresh := newTestRotator(t, 64)
	wantL := append([]float64(nil), sine[before:]...)
	wantR := append([]float64(nil), sine[before:]...)
	processInBlocks(fresh, wantL, wantR, 256)

	testutil.RequireSliceNearlyEqual(t, left[before:], wantL, 1e-12)
	testutil.RequireSliceNearlyEqual(t, right[before:], wantR, 1e-12)

	// Cleared state bounds the jump at the switch by the input peak on
	// either side of it.
	if jump := testutil.MaxJump(left[before-1 : before+1]); jump > 2*amplitude {
		t.Fatalf("jump at stage change = %v, bound %v", jump, 2*amplitude)
	}
	testutil.RequireFinite(t, left)
}

func TestResetClearsState(t *testing.T) {
	r := newTestRotator(t, 16)
	noise := testutil.DeterministicNoise(3, 0.5, 1024)
	processInBlocks(r, append([]float64(nil), noise...), append([]float64(nil), noise...), 512)

	r.Reset()

	imp := testutil.Impulse(512, 0)
	left := append([]float64(nil), imp...)
	right := append([]float64(nil), imp...)
	r.Process([][]float64{left, right})

	fresh := newTestRotator(t, 16)
	want := append([]float64(nil), imp...)
	fresh.Process([][]float64{want, append([]float64(nil), imp...)})

	testutil.RequireSliceNearlyEqual(t, left, want, 1e-12)
}

func TestAutomationPrecisionThrottlesRecompute(t *testing.T) {
	tests := []struct {
		name      string
		precision float64
		interval  int
		fires     int
	}{
		{name: "coarsest", precision: 0, interval: 512, fires: 2},
		{name: "default", precision: recompute.DefaultAutomationPrecision(), interval: 128, fires: 5},
		{name: "finest", precision: 1, interval: 1, fires: 600},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRotator(t, 4)
			r.Params().SetAutomationPrecision(tt.precision)
			r.Params().SetFrequencyHz(4000)

			block := make([]float64, 600)
			r.Process([][]float64{block, make([]float64, 600)})

			ref := param.NewSmoother(param.Logarithmic, smoothingMs, 1000)
			ref.SetSampleRate(testSampleRate)
			ref.SetTarget(4000)
			for range tt.fires {
				ref.NextStep(tt.interval)
			}

			if got := r.params.frequency.Value(); got != ref.Value() {
				t.Fatalf("frequency = %v, want %v", got, ref.Value())
			}
		})
	}
}

func TestParamsClampAndMarkTopology(t *testing.T) {
	r, _ := NewRotator()
	p := r.Params()
	r.topology.Clear()

	p.SetStages(10000)
	if p.Stages() != allpass.MaxStages {
		t.Fatalf("Stages() = %d, want %d", p.Stages(), allpass.MaxStages)
	}
	if !r.topology.Clear() {
		t.Fatal("SetStages did not mark the topology dirty")
	}

	p.SetStyle(allpass.Linear)
	if p.Style() != allpass.Linear || !r.topology.Clear() {
		t.Fatal("SetStyle did not apply")
	}
	p.SetStyle(allpass.SpreadStyle(42))
	if p.Style() != allpass.Linear || r.topology.Pending() {
		t.Fatal("invalid style was accepted")
	}

	p.SetFrequencyHz(1)
	p.SetResonance(100)
	p.SetSpreadOctaves(-9)
	p.SetAutomationPrecision(math.NaN())

	if got := p.FrequencyHz(); got != allpass.MinFrequencyHz {
		t.Fatalf("frequency target = %v, want %v", got, allpass.MinFrequencyHz)
	}
	if got := p.resonance.Target(); got != MaxResonance {
		t.Fatalf("resonance target = %v, want %v", got, MaxResonance)
	}
	if got := p.spread.Target(); got != -MaxSpreadOctaves {
		t.Fatalf("spread target = %v, want %v", got, -MaxSpreadOctaves)
	}
	if got := p.AutomationPrecision(); got != recompute.DefaultAutomationPrecision() {
		t.Fatalf("precision = %v, want default", got)
	}
}

func TestAnalyzerFollowsEditor(t *testing.T) {
	pub, err := spectrum.NewPublisher(2, 129)
	if err != nil {
		t.Fatal(err)
	}
	analyzer, err := spectrum.NewAnalyzer(8, testSampleRate, pub)
	if err != nil {
		t.Fatal(err)
	}

	r := newTestRotator(t, 8, WithAnalyzer(analyzer))
	pub.Attach()

	left := testutil.DeterministicNoise(4, 0.5, 512)
	right := testutil.DeterministicNoise(5, 0.5, 512)
	r.Process([][]float64{left, right})
	if pub.Latest() != nil {
		t.Fatal("snapshot published with the editor closed")
	}

	pub.SetEditorOpen(true)
	r.Process([][]float64{left, right})
	f := pub.Latest()
	if f == nil {
		t.Fatal("no snapshot with the editor open")
	}
	pub.Release(f)
}

func TestProcessZeroAlloc(t *testing.T) {
	r := newTestRotator(t, 64)
	r.Params().SetAutomationPrecision(0.9)

	left := testutil.DeterministicNoise(6, 0.5, 512)
	right := testutil.DeterministicNoise(7, 0.5, 512)
	block := [][]float64{left, right}

	stages := 64
	freq := 500.0
	allocs := testing.AllocsPerRun(20, func() {
		r.Process(block)
		stages = 96 - stages
		freq = 2500 - freq
		r.Params().SetStages(stages)
		r.Params().SetFrequencyHz(freq)
	})
	if allocs != 0 {
		t.Fatalf("Process allocated %.0f times, want 0", allocs)
	}
}
