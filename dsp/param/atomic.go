package param

import (
	"math"
	"sync/atomic"
)

// Float is a lock-free float64 cell for unsmoothed parameters.
type Float struct {
	bits atomic.Uint64
}

// NewFloat returns a cell holding v.
func NewFloat(v float64) *Float {
	f := &Float{}
	f.Store(v)
	return f
}

// Load returns the stored value.
func (f *Float) Load() float64 {
	return math.Float64frombits(f.bits.Load())
}

// Store replaces the stored value.
func (f *Float) Store(v float64) {
	f.bits.Store(math.Float64bits(v))
}

// TopologyFlag signals a discrete configuration change (stage count, spread
// style, window size) from a control goroutine to the audio thread.
//
// Ordering contract: Set has release semantics and a successful Clear has
// acquire semantics, so every write the control side made before Set is
// visible to the audio thread once its Clear returns true, and a Set that
// races with Clear is either observed by that Clear or left pending for the
// next one. Go's sync/atomic operations are sequentially consistent, which
// is stronger than required.
type TopologyFlag struct {
	dirty atomic.Bool
}

// Set marks the topology as changed. Safe from any goroutine.
func (f *TopologyFlag) Set() {
	f.dirty.Store(true)
}

// Clear consumes a pending change and reports whether there was one.
// Audio thread only.
func (f *TopologyFlag) Clear() bool {
	return f.dirty.CompareAndSwap(true, false)
}

// Pending reports whether a change is waiting without consuming it.
func (f *TopologyFlag) Pending() bool {
	return f.dirty.Load()
}

// Int is a lock-free int cell for discrete parameters such as stage counts.
type Int struct {
	v atomic.Int64
}

// NewInt returns a cell holding v.
func NewInt(v int) *Int {
	i := &Int{}
	i.Store(v)
	return i
}

// Load returns the stored value.
func (i *Int) Load() int {
	return int(i.v.Load())
}

// Store replaces the stored value.
func (i *Int) Store(v int) {
	i.v.Store(int64(v))
}

// Swap stores v and returns the previous value.
func (i *Int) Swap(v int) int {
	return int(i.v.Swap(int64(v)))
}
