// internal/vol/ring.go
package vol

import (
	"github.com/rovshanmuradov/solana-vault/internal/fp"
)

const (
	// NReturns is the fixed capacity of the returns ring buffer.
	NReturns = 32

	// MaxReturnAbsFp clamps a single sample to ±25% (scaled 1e6) to
	// suppress outliers before they reach any estimator.
	MaxReturnAbsFp = 250_000

	// MaxVarFp2 caps the variance accumulator (fp² units).
	MaxVarFp2 = 10_000_000_000_000_000
)

// Ring is a fixed-capacity circular buffer of signed fixed-point returns with
// explicit wraparound arithmetic. The zero value is ready to use.
type Ring struct {
	Returns          [NReturns]int32
	Idx              uint8
	NonzeroSamples   uint16
	LastRecordedSlot uint64
}

// ReturnFp computes the scaled percentage return of price vs prev, clamped to
// ±MaxReturnAbsFp. prev must be positive.
func ReturnFp(priceFp, prevPriceFp int64) int32 {
	if prevPriceFp <= 0 {
		return 0
	}
	ret := fp.MulDivI64(priceFp-prevPriceFp, fp.Scale, prevPriceFp)
	ret = fp.ClampI64(ret, -MaxReturnAbsFp, MaxReturnAbsFp)
	return int32(ret)
}

// Accepts reports whether a sample at slot passes the anti-gaming spacing
// gate. The first sample (LastRecordedSlot == 0) always passes.
func (r *Ring) Accepts(slot, minSpacingSlots uint64) bool {
	if r.LastRecordedSlot == 0 {
		return true
	}
	if slot < r.LastRecordedSlot {
		return false
	}
	return slot-r.LastRecordedSlot >= minSpacingSlots
}

// Record pushes a return into the ring, overwriting the oldest entry past
// capacity, and advances the spacing anchor. It returns the written index.
func (r *Ring) Record(slot uint64, retFp int32) int {
	idx := int(r.Idx) % NReturns
	prev := r.Returns[idx]
	r.Returns[idx] = retFp

	if prev == 0 && retFp != 0 {
		r.NonzeroSamples++
	} else if prev != 0 && retFp == 0 {
		r.NonzeroSamples--
	}

	r.Idx++
	if int(r.Idx) >= NReturns {
		r.Idx = 0
	}
	r.LastRecordedSlot = slot
	return idx
}
