package atomic_float

import (
	"math"
	"sync/atomic"
)

// AtomicFloat64 encapsulates a float64 for non-locking atomic operations. The value
// is stored as its IEEE-754 bit pattern so that plain uint64 atomics apply.
// Used for aggregates accumulated by many environments at once, e.g. the sum of
// episode returns across parallel workers.
type AtomicFloat64 struct {
	bits atomic.Uint64
}

// NewAtomicFloat64 encapsulates a float64 for atomic operations.
func NewAtomicFloat64(val float64) *AtomicFloat64 {
	af := &AtomicFloat64{}
	af.bits.Store(math.Float64bits(val))
	return af
}

// Atomically read the float64.
func (af *AtomicFloat64) AtomicRead() (value float64) {
	return math.Float64frombits(af.bits.Load())
}

// Atomically add to the float64, once.
// If the value changes between the read and the swap the add is not applied, and
// the caller decides whether to retry, drop the update, or recalculate.
func (af *AtomicFloat64) AtomicAdd(addend float64) (newVal float64, succeeded bool) {
	old := af.bits.Load()
	newVal = math.Float64frombits(old) + addend
	succeeded = af.bits.CompareAndSwap(old, math.Float64bits(newVal))
	return
}

// Add retries AtomicAdd until it lands, for callers that must not lose updates.
func (af *AtomicFloat64) Add(addend float64) float64 {
	for {
		if newVal, ok := af.AtomicAdd(addend); ok {
			return newVal
		}
	}
}

// AtomicSet sets the float64, returns true on success.
func (af *AtomicFloat64) AtomicSet(newVal float64) (succeeded bool) {
	old := af.bits.Load()
	return af.bits.CompareAndSwap(old, math.Float64bits(newVal))
}
