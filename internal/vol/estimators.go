// internal/vol/estimators.go
// Package vol computes realized volatility from a bounded ring of spaced
// price returns under one of three estimators (population stdev, EWMA
// variance, scaled MAD) and blends realized with implied volatility into a
// single score. Everything is deterministic integer math.
package vol

import (
	"sort"

	"github.com/rovshanmuradov/solana-vault/internal/fp"
)

// Mode is the closed set of realized-volatility estimators.
type Mode uint8

const (
	ModeStdev Mode = 0
	ModeEwma  Mode = 1
	ModeMad   Mode = 2
)

// Valid reports whether m is one of the three defined modes.
func (m Mode) Valid() bool {
	return m == ModeStdev || m == ModeEwma || m == ModeMad
}

func (m Mode) String() string {
	switch m {
	case ModeStdev:
		return "stdev"
	case ModeEwma:
		return "ewma"
	case ModeMad:
		return "mad"
	default:
		return "unknown"
	}
}

// madScaleBps makes the median absolute deviation comparable to a standard
// deviation for normal data (1.4826, in bps).
const madScaleBps = 14_826

// RealizedVolBps dispatches on mode with a uniform contract: dispersion of
// the recorded returns, converted to basis points and clamped to [0, 10000].
func RealizedVolBps(mode Mode, ring *Ring, ewmaVarFp2 uint64) uint16 {
	switch mode {
	case ModeEwma:
		return EwmaVolBps(ewmaVarFp2)
	case ModeMad:
		return MadVolBps(&ring.Returns)
	default:
		return StdevVolBps(&ring.Returns)
	}
}

// dispersionToBps converts a fixed-point dispersion estimate into bps.
func dispersionToBps(stdFp uint64) uint16 {
	bps := fp.MulDivU64(stdFp, fp.BpsDenom, fp.Scale)
	if bps > fp.MaxVolBps {
		return fp.MaxVolBps
	}
	return uint16(bps)
}

// StdevVolBps is the population standard deviation of the full ring.
func StdevVolBps(returns *[NReturns]int32) uint16 {
	var sum int64
	for _, r := range returns {
		sum += int64(r)
	}
	mean := sum / NReturns

	var varAcc uint64
	for _, r := range returns {
		dev := int64(r) - mean
		if dev < 0 {
			dev = -dev
		}
		varAcc += uint64(dev) * uint64(dev)
	}
	variance := varAcc / NReturns
	if variance > MaxVarFp2 {
		variance = MaxVarFp2
	}
	return dispersionToBps(fp.SqrtU64(variance))
}

// MadVolBps is the median absolute deviation from the median, scaled by
// ~1.4826 to approximate a standard deviation. Robust to single outliers.
func MadVolBps(returns *[NReturns]int32) uint16 {
	med := median(*returns)

	var devs [NReturns]int32
	for i, r := range returns {
		d := int64(r) - int64(med)
		if d < 0 {
			d = -d
		}
		devs[i] = int32(d)
	}
	mad := uint64(median(devs))
	scaled := fp.MulDivU64(mad, madScaleBps, fp.BpsDenom)
	return dispersionToBps(scaled)
}

func median(arr [NReturns]int32) int32 {
	sort.Slice(arr[:], func(i, j int) bool { return arr[i] < arr[j] })
	a := int64(arr[NReturns/2-1])
	b := int64(arr[NReturns/2])
	return int32((a + b) / 2)
}

// EwmaVarUpdate folds one accepted return into the EWMA variance
// accumulator: var ← alpha·r² + (1−alpha)·var, alpha = alphaBps/10000.
func EwmaVarUpdate(prevVarFp2 uint64, retFp int32, alphaBps uint16) uint64 {
	r := int64(retFp)
	if r < 0 {
		r = -r
	}
	r2 := uint64(r) * uint64(r)
	if r2 > MaxVarFp2 {
		r2 = MaxVarFp2
	}
	left := fp.MulDivU64(prevVarFp2, uint64(fp.BpsDenom-uint64(alphaBps)), fp.BpsDenom)
	right := fp.MulDivU64(r2, uint64(alphaBps), fp.BpsDenom)
	v := left + right
	if v > MaxVarFp2 {
		v = MaxVarFp2
	}
	return v
}

// EwmaVolBps is sqrt of the EWMA variance accumulator, in bps.
func EwmaVolBps(varFp2 uint64) uint16 {
	if varFp2 > MaxVarFp2 {
		varFp2 = MaxVarFp2
	}
	return dispersionToBps(fp.SqrtU64(varFp2))
}

// BlendScoreBps combines realized and implied volatility under weights that
// sum to 10000, clamping the result to [0, 10000].
func BlendScoreBps(realizedBps, impliedBps, wRealizedBps, wImpliedBps uint16) uint16 {
	sum := uint64(wRealizedBps)*uint64(realizedBps) + uint64(wImpliedBps)*uint64(impliedBps)
	score := sum / fp.BpsDenom
	if score > fp.MaxVolBps {
		return fp.MaxVolBps
	}
	return uint16(score)
}
