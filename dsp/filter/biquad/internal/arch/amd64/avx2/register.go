//go:build amd64 && !purego

package avx2

import (
	"github.com/cwbudde/algo-rtfx/dsp/filter/biquad/internal/arch/registry"
	"github.com/cwbudde/algo-vecmath/cpu"
)

func init() {
	registry.Global.Register(registry.OpEntry{
		Name:               "avx2",
		SIMDLevel:          cpu.SIMDAVX2,
		Priority:           20,
		ProcessBlock:       processBlock,
		ProcessStereoBlock: processStereoBlock,
	})
}

// processBlock is a 2x-unrolled scalar kernel selected for AVX2-capable CPUs.
func processBlock(c registry.Coefficients, d0, d1 float64, buf []float64) (newD0, newD1 float64) {
	b0, b1, b2 := c.B0, c.B1, c.B2
	a1, a2 := c.A1, c.A2

	i := 0
	n := len(buf)
	for ; i+1 < n; i += 2 {
		x0 := buf[i]
		y0 := b0*x0 + d0
		d0n := b1*x0 - a1*y0 + d1
		d1n := b2*x0 - a2*y0

		x1 := buf[i+1]
		y1 := b0*x1 + d0n
		d0 = b1*x1 - a1*y1 + d1n
		d1 = b2*x1 - a2*y1

		buf[i] = y0
		buf[i+1] = y1
	}

	if i < n {
		x := buf[i]
		y := b0*x + d0
		d0 = b1*x - a1*y + d1
		d1 = b2*x - a2*y
		buf[i] = y
	}

	return d0, d1
}

// processStereoBlock runs both lanes through a 2x-unrolled loop so the two
// independent recurrences interleave in the pipeline.
// TODO: replace with an explicit AVX2 asm kernel packing both lanes in one register.
func processStereoBlock(c registry.Coefficients, d0, d1 *[2]float64, left, right []float64) {
	b0, b1, b2 := c.B0, c.B1, c.B2
	a1, a2 := c.A1, c.A2

	l0, l1 := d0[0], d1[0]
	r0, r1 := d0[1], d1[1]

	n := len(left)
	right = right[:n]

	i := 0
	for ; i+1 < n; i += 2 {
		xl0, xr0 := left[i], right[i]
		yl0 := b0*xl0 + l0
		yr0 := b0*xr0 + r0
		l0n := b1*xl0 - a1*yl0 + l1
		r0n := b1*xr0 - a1*yr0 + r1
		l1n := b2*xl0 - a2*yl0
		r1n := b2*xr0 - a2*yr0

		xl1, xr1 := left[i+1], right[i+1]
		yl1 := b0*xl1 + l0n
		yr1 := b0*xr1 + r0n
		l0 = b1*xl1 - a1*yl1 + l1n
		r0 = b1*xr1 - a1*yr1 + r1n
		l1 = b2*xl1 - a2*yl1
		r1 = b2*xr1 - a2*yr1

		left[i], left[i+1] = yl0, yl1
		right[i], right[i+1] = yr0, yr1
	}

	if i < n {
		xl, xr := left[i], right[i]
		yl := b0*xl + l0
		yr := b0*xr + r0
		l0 = b1*xl - a1*yl + l1
		r0 = b1*xr - a1*yr + r1
		l1 = b2*xl - a2*yl
		r1 = b2*xr - a2*yr
		left[i], right[i] = yl, yr
	}

	d0[0], d1[0] = l0, l1
	d0[1], d1[1] = r0, r1
}
