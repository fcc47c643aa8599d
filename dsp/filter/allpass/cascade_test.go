package allpass

import (
	"errors"
	"math"
	"math/cmplx"
	"testing"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-rtfx/internal/testutil"
)

const sampleRate = 48000.0

func neutralConfig(stages int) Config {
	return Config{
		Stages:      stages,
		FrequencyHz: 1000,
		Resonance:   0.5,
		Spread:      0,
		Style:       Octaves,
		SampleRate:  sampleRate,
	}
}

func TestNewRejectsNoChannels(t *testing.T) {
	_, err := New(0)
	if !errors.Is(err, ErrInvalidChannels) {
		t.Fatalf("New(0) error = %v, want ErrInvalidChannels", err)
	}
}

func TestStageFrequency(t *testing.T) {
	tests := []struct {
		name  string
		cfg   Config
		stage int
		want  float64
	}{
		{
			name: "zero spread is the base frequency",
			cfg:  Config{Stages: 8, FrequencyHz: 440, Spread: 0, Style: Octaves, SampleRate: sampleRate},
			want: 440, stage: 5,
		},
		{
			name: "octaves first stage is one spread below",
			cfg:  Config{Stages: 4, FrequencyHz: 1000, Spread: 1, Style: Octaves, SampleRate: sampleRate},
			want: 500, stage: 0,
		},
		{
			name: "octaves middle stage is the center",
			cfg:  Config{Stages: 4, FrequencyHz: 1000, Spread: 1, Style: Octaves, SampleRate: sampleRate},
			want: 1000, stage: 2,
		},
		{
			name: "linear first stage matches octave excursion",
			cfg:  Config{Stages: 4, FrequencyHz: 1000, Spread: 1, Style: Linear, SampleRate: sampleRate},
			want: 500, stage: 0,
		},
		{
			name: "linear is evenly spaced",
			cfg:  Config{Stages: 4, FrequencyHz: 1000, Spread: 1, Style: Linear, SampleRate: sampleRate},
			want: 1250, stage: 3,
		},
		{
			name: "linear negative spread",
			cfg:  Config{Stages: 2, FrequencyHz: 1000, Spread: -1, Style: Linear, SampleRate: sampleRate},
			want: 1500, stage: 0,
		},
		{
			name: "clamped to floor",
			cfg:  Config{Stages: 2, FrequencyHz: 5, Spread: 5, Style: Octaves, SampleRate: sampleRate},
			want: MinFrequencyHz, stage: 0,
		},
		{
			name: "clamped below nyquist",
			cfg:  Config{Stages: 1, FrequencyHz: 20000, Spread: 0, SampleRate: 32000},
			want: 32000 / 2.05, stage: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StageFrequency(tt.cfg, tt.stage)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("StageFrequency = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestZeroStagesIsPassThrough(t *testing.T) {
	c, err := New(3)
	if err != nil {
		t.Fatal(err)
	}
	c.Reconfigure(neutralConfig(0), true)

	in := testutil.DeterministicNoise(1, 1, 256)
	block := [][]float64{append([]float64(nil), in...), append([]float64(nil), in...), append([]float64(nil), in...)}
	c.ProcessBlock(block)

	for ch := range block {
		testutil.RequireSliceNearlyEqual(t, block[ch], in, 0)
	}
}

func TestZeroSpreadGivesIdenticalCoefficients(t *testing.T) {
	c, _ := New(2)
	cfg := neutralConfig(64)
	cfg.Style = Linear
	c.Reconfigure(cfg, true)

	first := c.Coefficients(0)
	for i := 1; i < 64; i++ {
		if c.Coefficients(i) != first {
			t.Fatalf("stage %d coefficients differ with zero spread", i)
		}
	}
}

// Every stage count up to capacity must keep the magnitude flat while the
// phase still varies with frequency.
func TestResponseIsAllPassForEveryStageCount(t *testing.T) {
	c, _ := New(2)
	freqs := []float64{20, 200, 1000, 5000, 15000}

	for stages := 0; stages <= MaxStages; stages++ {
		c.Reconfigure(neutralConfig(stages), true)

		for _, f := range freqs {
			db := c.MagnitudeDB(f, sampleRate)
			if math.Abs(db) > 1e-6 {
				t.Fatalf("stages=%d f=%v: magnitude %v dB, want 0", stages, f, db)
			}
		}

		if stages > 0 {
			p1 := cmplx.Phase(c.Response(200, sampleRate))
			p2 := cmplx.Phase(c.Response(5000, sampleRate))
			if math.Abs(p1-p2) < 1e-6 {
				t.Fatalf("stages=%d: phase does not vary with frequency", stages)
			}
		}
	}
}

func TestImpulseResponseIsFlat(t *testing.T) {
	const n = 1 << 16

	plan, err := algofft.NewPlan64(n)
	if err != nil {
		t.Fatal(err)
	}

	spec := make([]complex128, n)
	src := make([]complex128, n)

	for _, stages := range []int{0, 1, 2, 3, 16, 127, MaxStages} {
		c, _ := New(2)
		c.Reconfigure(neutralConfig(stages), true)

		left := testutil.Impulse(n, 0)
		right := testutil.Impulse(n, 0)
		c.ProcessBlock([][]float64{left, right})

		for i, v := range left {
			src[i] = complex(v, 0)
		}
		if err := plan.Forward(spec, src); err != nil {
			t.Fatal(err)
		}

		for k := 1; k < n/2; k += 97 {
			db := 20 * math.Log10(cmplx.Abs(spec[k]))
			if math.Abs(db) > 1e-2 {
				t.Fatalf("stages=%d bin=%d: %v dB, want 0", stages, k, db)
			}
		}

		testutil.RequireSliceNearlyEqual(t, right, left, 0)
	}
}

func TestProcessBlockMatchesProcessStereo(t *testing.T) {
	cfg := Config{Stages: 24, FrequencyHz: 300, Resonance: 2, Spread: 2, Style: Octaves, SampleRate: sampleRate}

	blockCascade, _ := New(2)
	sampleCascade, _ := New(2)
	blockCascade.Reconfigure(cfg, true)
	sampleCascade.Reconfigure(cfg, true)

	left := testutil.DeterministicNoise(3, 1, 300)
	right := testutil.DeterministicSine(440, sampleRate, 1, 300)

	wantL := make([]float64, len(left))
	wantR := make([]float64, len(right))
	for i := range left {
		wantL[i], wantR[i] = sampleCascade.ProcessStereo(left[i], right[i])
	}

	pos := 0
	for _, n := range testutil.Blocks(len(left), 64, 7, 129) {
		blockCascade.ProcessBlock([][]float64{left[pos : pos+n], right[pos : pos+n]})
		pos += n
	}

	testutil.RequireSliceNearlyEqual(t, left, wantL, 1e-9)
	testutil.RequireSliceNearlyEqual(t, right, wantR, 1e-9)
}

func TestOddChannelMatchesPairedChannel(t *testing.T) {
	c, _ := New(3)
	c.Reconfigure(Config{Stages: 10, FrequencyHz: 800, Resonance: 0.7, Spread: -1.5, Style: Linear, SampleRate: sampleRate}, true)

	in := testutil.DeterministicNoise(9, 0.5, 512)
	block := [][]float64{
		append([]float64(nil), in...),
		make([]float64, len(in)),
		append([]float64(nil), in...),
	}
	c.ProcessBlock(block)

	testutil.RequireSliceNearlyEqual(t, block[2], block[0], 1e-9)
}

// A topology change must not feed stale state from previously active
// stages into the output.
func TestReconfigureResetClearsStaleState(t *testing.T) {
	c, _ := New(2)
	c.Reconfigure(neutralConfig(MaxStages), true)

	noise := testutil.DeterministicNoise(5, 1, 4096)
	c.ProcessBlock([][]float64{append([]float64(nil), noise...), append([]float64(nil), noise...)})

	c.Reconfigure(neutralConfig(8), true)
	c.Reconfigure(neutralConfig(MaxStages), true)

	left := make([]float64, 1024)
	right := make([]float64, 1024)
	c.ProcessBlock([][]float64{left, right})

	if m := testutil.MaxAbs(left); m != 0 {
		t.Fatalf("silent input after reset produced %v", m)
	}

	// Without reset the same sequence leaks the old state.
	c.ProcessBlock([][]float64{append([]float64(nil), noise...), append([]float64(nil), noise...)})
	c.Reconfigure(neutralConfig(MaxStages), false)
	c.ProcessBlock([][]float64{left, right})

	if testutil.MaxAbs(left) == 0 {
		t.Fatal("expected ringing without reset")
	}
}

func TestProcessBlockZeroAlloc(t *testing.T) {
	c, _ := New(2)
	c.Reconfigure(neutralConfig(64), true)
	block := [][]float64{make([]float64, 256), make([]float64, 256)}
	cfg := neutralConfig(64)

	allocs := testing.AllocsPerRun(50, func() {
		c.Reconfigure(cfg, false)
		c.ProcessBlock(block)
	})
	if allocs != 0 {
		t.Fatalf("Reconfigure+ProcessBlock allocated %.0f times, want 0", allocs)
	}
}

func TestParseSpreadStyle(t *testing.T) {
	for _, s := range []SpreadStyle{Octaves, Linear} {
		got, err := ParseSpreadStyle(s.String())
		if err != nil || got != s {
			t.Fatalf("ParseSpreadStyle(%q) = %v, %v", s.String(), got, err)
		}
	}
	if _, err := ParseSpreadStyle("log"); err == nil {
		t.Fatal("expected error for unknown style")
	}
}

func TestGroupDelayScalesWithStages(t *testing.T) {
	c, _ := New(2)
	c.Reconfigure(neutralConfig(1), true)
	single := c.GroupDelay(1000, sampleRate)
	if single <= 0 {
		t.Fatalf("single stage group delay = %v, want > 0", single)
	}

	for _, stages := range []int{0, 8, 128} {
		c.Reconfigure(neutralConfig(stages), true)
		want := float64(stages) * single
		if got := c.GroupDelay(1000, sampleRate); math.Abs(got-want) > 1e-9*max(want, 1) {
			t.Fatalf("stages=%d: group delay=%v, want %v", stages, got, want)
		}
	}
}
