// internal/vol/ring_test.go
package vol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReturnFp(t *testing.T) {
	// +1% move at 1e6 scale.
	assert.Equal(t, int32(10_000), ReturnFp(1_010_000, 1_000_000))
	// -1% move.
	assert.Equal(t, int32(-10_000), ReturnFp(990_000, 1_000_000))
	// Non-positive basis yields zero.
	assert.Equal(t, int32(0), ReturnFp(1_000_000, 0))

	// A 10x move clamps at +-25%.
	assert.Equal(t, int32(MaxReturnAbsFp), ReturnFp(10_000_000, 1_000_000))
	assert.Equal(t, int32(-MaxReturnAbsFp), ReturnFp(1, 1_000_000))
}

func TestRingAccepts(t *testing.T) {
	var r Ring

	assert.True(t, r.Accepts(100, 25), "first sample always passes")

	r.Record(100, 500)
	assert.False(t, r.Accepts(110, 25), "too close to the last sample")
	assert.True(t, r.Accepts(125, 25), "exactly at the spacing boundary")
	assert.False(t, r.Accepts(50, 25), "slots moving backwards never pass")
}

func TestRingRecordWraparound(t *testing.T) {
	var r Ring

	slot := uint64(100)
	for i := 0; i < NReturns; i++ {
		r.Record(slot, int32(i+1))
		slot += 30
	}
	assert.Equal(t, uint8(0), r.Idx, "index wraps after capacity")
	assert.Equal(t, uint16(NReturns), r.NonzeroSamples)

	// Overwriting a nonzero slot with zero decrements the counter.
	r.Record(slot, 0)
	assert.Equal(t, uint16(NReturns-1), r.NonzeroSamples)
	assert.Equal(t, int32(0), r.Returns[0])

	// And writing nonzero over zero restores it.
	slot += 30
	r.Record(slot, 7)
	assert.Equal(t, uint16(NReturns), r.NonzeroSamples)
	assert.Equal(t, int32(7), r.Returns[1])
}

func TestRingZeroReturnsDoNotCount(t *testing.T) {
	var r Ring
	r.Record(100, 0)
	r.Record(130, 0)
	assert.Equal(t, uint16(0), r.NonzeroSamples)
	assert.Equal(t, uint64(130), r.LastRecordedSlot)
}
