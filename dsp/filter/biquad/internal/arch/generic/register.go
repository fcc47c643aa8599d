package generic

import (
	"github.com/cwbudde/algo-rtfx/dsp/filter/biquad/internal/arch/registry"
	"github.com/cwbudde/algo-vecmath/cpu"
)

func init() {
	registry.Global.Register(registry.OpEntry{
		Name:               "generic",
		SIMDLevel:          cpu.SIMDNone,
		Priority:           0,
		ProcessBlock:       processBlock,
		ProcessStereoBlock: processStereoBlock,
	})
}

func processBlock(c registry.Coefficients, d0, d1 float64, buf []float64) (newD0, newD1 float64) {
	b0, b1, b2 := c.B0, c.B1, c.B2
	a1, a2 := c.A1, c.A2

	for i, x := range buf {
		y := b0*x + d0
		d0 = b1*x - a1*y + d1
		d1 = b2*x - a2*y
		buf[i] = y
	}

	return d0, d1
}

func processStereoBlock(c registry.Coefficients, d0, d1 *[2]float64, left, right []float64) {
	b0, b1, b2 := c.B0, c.B1, c.B2
	a1, a2 := c.A1, c.A2

	l0, l1 := d0[0], d1[0]
	r0, r1 := d0[1], d1[1]

	right = right[:len(left)]
	for i := range left {
		xl := left[i]
		xr := right[i]

		yl := b0*xl + l0
		yr := b0*xr + r0

		l0 = b1*xl - a1*yl + l1
		r0 = b1*xr - a1*yr + r1
		l1 = b2*xl - a2*yl
		r1 = b2*xr - a2*yr

		left[i] = yl
		right[i] = yr
	}

	d0[0], d1[0] = l0, l1
	d0[1], d1[1] = r0, r1
}
