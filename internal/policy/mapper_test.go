// internal/policy/mapper_test.go
package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapBandBps(t *testing.T) {
	assert.Equal(t, uint16(50), MapBandBps(0, 50, 400), "zero score maps to the floor")
	assert.Equal(t, uint16(400), MapBandBps(10_000, 50, 400), "full score maps to the ceiling")
	assert.Equal(t, uint16(225), MapBandBps(5000, 50, 400), "midpoint interpolation")
	assert.Equal(t, uint16(50), MapBandBps(5000, 50, 50), "degenerate range returns the floor")
}

func TestMapIntervalSlots(t *testing.T) {
	// Inverse mapping: calm markets hedge rarely, volatile ones often.
	assert.Equal(t, uint64(9000), MapIntervalSlots(0, 150, 9000))
	assert.Equal(t, uint64(150), MapIntervalSlots(10_000, 150, 9000))
	assert.Equal(t, uint64(4575), MapIntervalSlots(5000, 150, 9000))
	assert.Equal(t, uint64(150), MapIntervalSlots(5000, 150, 150))
}

func TestHysteresisPass(t *testing.T) {
	assert.True(t, HysteresisPass(3800, 3600, 100))
	assert.True(t, HysteresisPass(3600, 3800, 100), "delta is symmetric")
	assert.False(t, HysteresisPass(3650, 3600, 100))
	assert.True(t, HysteresisPass(3700, 3600, 100), "boundary delta passes")
	assert.True(t, HysteresisPass(3800, 3600, 0), "zero hysteresis always passes")
}

func TestSlewBandBps(t *testing.T) {
	assert.Equal(t, uint16(300), SlewBandBps(200, 400, 100), "step capped upward")
	assert.Equal(t, uint16(100), SlewBandBps(200, 50, 100), "step capped downward")
	assert.Equal(t, uint16(250), SlewBandBps(200, 250, 100), "within slew reaches target")
	assert.Equal(t, uint16(400), SlewBandBps(0, 400, 100), "zero current adopts target")
	assert.Equal(t, uint16(200), SlewBandBps(200, 200, 100))
}

func TestSlewIntervalSlots(t *testing.T) {
	// Proportional step: 10% of current.
	assert.Equal(t, uint64(1100), SlewIntervalSlots(1000, 5000, 1000))
	assert.Equal(t, uint64(900), SlewIntervalSlots(1000, 150, 1000))
	assert.Equal(t, uint64(1050), SlewIntervalSlots(1000, 1050, 1000), "within slew reaches target")
	assert.Equal(t, uint64(5000), SlewIntervalSlots(0, 5000, 1000), "zero current adopts target")

	// Step never rounds down to zero: progress is always possible.
	assert.Equal(t, uint64(4), SlewIntervalSlots(3, 9000, 1000))
}

func TestCarryBiasBps(t *testing.T) {
	band, interval := CarryBiasBps(80)
	assert.Equal(t, int16(200), band)
	assert.Equal(t, int16(200), interval)

	band, interval = CarryBiasBps(-80)
	assert.Equal(t, int16(-200), band)
	assert.Equal(t, int16(-200), interval)

	band, interval = CarryBiasBps(49)
	assert.Equal(t, int16(0), band)
	assert.Equal(t, int16(0), interval)

	band, _ = CarryBiasBps(50)
	assert.Equal(t, int16(200), band, "threshold is inclusive")
}

func TestApplyBias(t *testing.T) {
	assert.Equal(t, uint16(204), ApplyBiasU16(200, 200))
	assert.Equal(t, uint16(196), ApplyBiasU16(200, -200))
	assert.Equal(t, uint16(200), ApplyBiasU16(200, 0))

	assert.Equal(t, uint64(10_200), ApplyBiasU64(10_000, 200))
	assert.Equal(t, uint64(9800), ApplyBiasU64(10_000, -200))
}
