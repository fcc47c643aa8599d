// Package registry holds the biquad block kernels available to this
// process, ordered by preference.
package registry

import (
	"slices"
	"sync"

	"github.com/cwbudde/algo-vecmath/cpu"
)

// Coefficients are biquad transfer coefficients (a0 normalized to 1).
type Coefficients struct {
	B0, B1, B2 float64
	A1, A2     float64
}

// ProcessBlockFn runs buf in place through one section starting from state
// (d0, d1) and returns the final state.
type ProcessBlockFn func(c Coefficients, d0, d1 float64, buf []float64) (newD0, newD1 float64)

// ProcessStereoBlockFn runs two equally long lanes in place through one
// section with shared coefficients. d0 and d1 hold per-lane state and are
// updated in place.
type ProcessStereoBlockFn func(c Coefficients, d0, d1 *[2]float64, left, right []float64)

// OpEntry is one registered kernel.
type OpEntry struct {
	Name               string
	SIMDLevel          cpu.SIMDLevel
	Priority           int
	ProcessBlock       ProcessBlockFn
	ProcessStereoBlock ProcessStereoBlockFn
}

// OpRegistry keeps entries sorted by descending priority. Entries with equal
// priority keep registration order.
type OpRegistry struct {
	mu      sync.RWMutex
	entries []OpEntry
}

// Global is the registry kernels add themselves to from init.
var Global = &OpRegistry{}

// Register adds entry.
func (r *OpRegistry) Register(entry OpEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, _ := slices.BinarySearchFunc(r.entries, entry.Priority, func(e OpEntry, p int) int {
		// Descending order; ties sort after existing entries.
		if e.Priority >= p {
			return -1
		}
		return 1
	})
	r.entries = slices.Insert(r.entries, i, entry)
}

// Lookup returns the preferred entry runnable with features, or nil.
func (r *OpRegistry) Lookup(features cpu.Features) *OpEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := range r.entries {
		if supports(features, r.entries[i].SIMDLevel) {
			return &r.entries[i]
		}
	}

	return nil
}

// Names lists the registered kernels in preference order.
func (r *OpRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.entries))
	for i, e := range r.entries {
		names[i] = e.Name
	}
	return names
}

func supports(features cpu.Features, level cpu.SIMDLevel) bool {
	switch {
	case level == cpu.SIMDNone:
		return true
	case features.ForceGeneric:
		return false
	case level == cpu.SIMDSSE2:
		return features.HasSSE2
	case level == cpu.SIMDAVX2:
		return features.HasAVX2
	case level == cpu.SIMDNEON:
		return features.HasNEON
	default:
		return false
	}
}
