// internal/policy/mapper.go
// Package policy maps a blended volatility score into the hedging band and
// minimum hedge interval, with the stability controls that keep the outputs
// from thrashing: hysteresis on the driving score, slew limiting on the
// outputs, and a small carry-aware bias.
package policy

import (
	"github.com/rovshanmuradov/solana-vault/internal/fp"
)

// MapBandBps interpolates the band linearly across [minBand, maxBand] by
// score/10000.
func MapBandBps(scoreBps, minBand, maxBand uint16) uint16 {
	if minBand >= maxBand {
		return minBand
	}
	span := uint32(maxBand - minBand)
	add := uint32(scoreBps) * span / fp.BpsDenom
	return minBand + uint16(add)
}

// MapIntervalSlots interpolates the minimum hedge interval inversely: a
// higher score yields a shorter interval (more responsive hedging).
func MapIntervalSlots(scoreBps uint16, minSlots, maxSlots uint64) uint64 {
	if minSlots >= maxSlots {
		return minSlots
	}
	sub := fp.MulDivU64(maxSlots-minSlots, uint64(scoreBps), fp.BpsDenom)
	return maxSlots - sub
}

// HysteresisPass reports whether the score moved enough from the last applied
// score to justify a policy change.
func HysteresisPass(scoreBps, lastScoreBps, hysteresisBps uint16) bool {
	var delta uint16
	if scoreBps >= lastScoreBps {
		delta = scoreBps - lastScoreBps
	} else {
		delta = lastScoreBps - scoreBps
	}
	return delta >= hysteresisBps
}

// SlewBandBps moves current toward target, clamping the step magnitude to
// maxSlewBps. A zero current adopts the target directly (first update).
func SlewBandBps(current, target, maxSlewBps uint16) uint16 {
	if current == target || current == 0 {
		return target
	}
	if target > current {
		step := target - current
		if step > maxSlewBps {
			step = maxSlewBps
		}
		return current + step
	}
	step := current - target
	if step > maxSlewBps {
		step = maxSlewBps
	}
	return current - step
}

// SlewIntervalSlots moves current toward target with a per-update step of at
// most current·maxSlewBps/10000 slots (proportional; never less than one
// slot). A zero current adopts the target directly.
func SlewIntervalSlots(current, target uint64, maxSlewBps uint16) uint64 {
	if current == target || current == 0 {
		return target
	}
	maxStep := fp.MulDivU64(current, uint64(maxSlewBps), fp.BpsDenom)
	if maxStep == 0 {
		maxStep = 1
	}
	if target > current {
		v := current + maxStep
		if v > target {
			return target
		}
		return v
	}
	step := maxStep
	if step > current {
		step = current
	}
	v := current - step
	if v < target {
		return target
	}
	return v
}

// Carry bias: favorable expected carry widens outputs slightly, adverse
// carry tightens them. Thresholds and magnitude follow the vault's
// deterministic ±2% rule at ±50 bps/day.
const (
	carryBiasThresholdBps = 50
	carryBiasBps          = 200
)

// CarryBiasBps returns the (band, interval) bias in bps for an expected
// carry, each in {-200, 0, +200}.
func CarryBiasBps(expectedCarryBps int32) (int16, int16) {
	if expectedCarryBps >= carryBiasThresholdBps {
		return carryBiasBps, carryBiasBps
	}
	if expectedCarryBps <= -carryBiasThresholdBps {
		return -carryBiasBps, -carryBiasBps
	}
	return 0, 0
}

// ApplyBiasU16 scales v by (1 + biasBps/10000), clamped to uint16.
func ApplyBiasU16(v uint16, biasBps int16) uint16 {
	if biasBps == 0 {
		return v
	}
	adj := fp.MulDivI64(int64(v), int64(biasBps), fp.BpsDenom)
	out := int64(v) + adj
	if out < 0 {
		return 0
	}
	if out > int64(^uint16(0)) {
		return ^uint16(0)
	}
	return uint16(out)
}

// ApplyBiasU64 scales v by (1 + biasBps/10000), floored at zero.
func ApplyBiasU64(v uint64, biasBps int16) uint64 {
	if biasBps == 0 {
		return v
	}
	adj := fp.MulDivU64(v, uint64(abs16(biasBps)), fp.BpsDenom)
	if biasBps > 0 {
		return v + adj
	}
	if adj > v {
		return 0
	}
	return v - adj
}

func abs16(x int16) int16 {
	if x < 0 {
		return -x
	}
	return x
}

// ClampU16 bounds v to [lo, hi].
func ClampU16(v, lo, hi uint16) uint16 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampU64 bounds v to [lo, hi].
func ClampU64(v, lo, hi uint64) uint64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
