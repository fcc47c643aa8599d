package stft

import (
	"errors"
	"fmt"

	algofft "github.com/MeKo-Christian/algo-fft"
)

const (
	// MinWindowOrder is the smallest supported window size order (64).
	MinWindowOrder = 6
	// MaxWindowOrder is the largest supported window size order (32768).
	MaxWindowOrder = 15
	// DefaultWindowOrder selects 4096-sample windows.
	DefaultWindowOrder = 12
)

var (
	// ErrPlanCount is returned when a plan cache does not hold exactly one
	// plan per supported window order.
	ErrPlanCount = errors.New("stft: plan count does not match supported window orders")
	// ErrOrderRange is returned for window orders outside the supported range.
	ErrOrderRange = errors.New("stft: window order out of range")
)

// Plan is an immutable forward/inverse transform pair for one window size.
// It is safe to share across channels.
type Plan struct {
	size  int
	scale complex128
	fft   *algofft.Plan[complex128]
}

// NewPlan builds the transform pair for 2^order samples.
func NewPlan(order int) (*Plan, error) {
	if order < 1 || order > 30 {
		return nil, fmt.Errorf("%w: %d", ErrOrderRange, order)
	}

	size := 1 << order

	fft, err := algofft.NewPlan64(size)
	if err != nil {
		return nil, fmt.Errorf("stft: failed to create FFT plan for %d samples: %w", size, err)
	}

	return &Plan{size: size, scale: complex(float64(size), 0), fft: fft}, nil
}

// Size returns the transform length.
func (p *Plan) Size() int {
	return p.size
}

// Forward computes the unnormalized forward transform of src into dst.
func (p *Plan) Forward(dst, src []complex128) error {
	return p.fft.Forward(dst, src)
}

// Inverse computes the unnormalized inverse transform of src into dst, so a
// Forward followed by Inverse scales the signal by Size().
func (p *Plan) Inverse(dst, src []complex128) error {
	err := p.fft.Inverse(dst, src)
	if err != nil {
		return err
	}

	for i := range dst {
		dst[i] *= p.scale
	}

	return nil
}

// PlanCache holds one Plan per window order in [MinOrder, MaxOrder]. It is
// built once at initialization; selecting a plan never re-plans.
type PlanCache struct {
	minOrder int
	plans    []*Plan
}

// NewPlanCache plans every order in [minOrder, maxOrder].
func NewPlanCache(minOrder, maxOrder int) (*PlanCache, error) {
	if minOrder < 1 || maxOrder < minOrder {
		return nil, fmt.Errorf("%w: [%d, %d]", ErrOrderRange, minOrder, maxOrder)
	}

	plans := make([]*Plan, 0, maxOrder-minOrder+1)
	for order := minOrder; order <= maxOrder; order++ {
		p, err := NewPlan(order)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}

	return newPlanCache(minOrder, maxOrder, plans)
}

func newPlanCache(minOrder, maxOrder int, plans []*Plan) (*PlanCache, error) {
	if len(plans) != maxOrder-minOrder+1 {
		return nil, fmt.Errorf("%w: have %d plans for orders [%d, %d]",
			ErrPlanCount, len(plans), minOrder, maxOrder)
	}

	for i, p := range plans {
		if p == nil || p.Size() != 1<<(minOrder+i) {
			return nil, fmt.Errorf("%w: plan %d does not match order %d",
				ErrPlanCount, i, minOrder+i)
		}
	}

	return &PlanCache{minOrder: minOrder, plans: plans}, nil
}

// MinOrder returns the smallest cached order.
func (c *PlanCache) MinOrder() int {
	return c.minOrder
}

// MaxOrder returns the largest cached order.
func (c *PlanCache) MaxOrder() int {
	return c.minOrder + len(c.plans) - 1
}

// MaxSize returns the largest cached transform length.
func (c *PlanCache) MaxSize() int {
	return 1 << c.MaxOrder()
}

// ForOrder returns the cached plan for order, clamped to the cached range.
func (c *PlanCache) ForOrder(order int) *Plan {
	order = min(max(order, c.minOrder), c.MaxOrder())
	return c.plans[order-c.minOrder]
}
