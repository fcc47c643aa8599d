package phase_test

import (
	"fmt"

	"github.com/cwbudde/algo-rtfx/dsp/core"
	"github.com/cwbudde/algo-rtfx/dsp/effects/phase"
	"github.com/cwbudde/algo-rtfx/dsp/filter/allpass"
	"github.com/cwbudde/algo-rtfx/internal/testutil"
)

func ExampleRotator() {
	r, err := phase.NewRotator()
	if err != nil {
		panic(err)
	}

	p := r.Params()
	p.SetStages(64)
	p.SetFrequencyHz(800)
	p.SetSpreadOctaves(2)
	p.SetStyle(allpass.Octaves)

	if err := r.Initialize(core.HostConfig{SampleRate: 48000, MaxBlockSize: 256, Channels: 2}); err != nil {
		panic(err)
	}

	left := testutil.Impulse(256, 0)
	right := testutil.Impulse(256, 0)
	r.Process([][]float64{left, right})

	fmt.Println("active stages:", r.ActiveStages())
	fmt.Println("channels match:", left[100] == right[100])
	// Output:
	// active stages: 64
	// channels match: true
}
