// internal/fp/fp.go
// Package fp holds the fixed-point and basis-point arithmetic shared by the
// oracle, volatility and policy packages. All engine math is integer math:
// prices and returns are scaled by 1e6, ratios are expressed in basis points.
package fp

import (
	"math"
	"math/bits"
)

const (
	// Scale is the fixed-point scale for prices and returns (1e6).
	Scale = 1_000_000

	// BpsDenom is the basis-point denominator.
	BpsDenom = 10_000

	// MaxVolBps caps every volatility/score output.
	MaxVolBps = 10_000

	// MaxPriceFp is the sanity ceiling for any fixed-point price
	// (10,000,000 USD scaled by 1e6).
	MaxPriceFp = 10_000_000_000_000
)

// AbsI64 returns |x|. math.MinInt64 maps to math.MaxInt64 to stay defined.
func AbsI64(x int64) int64 {
	if x == math.MinInt64 {
		return math.MaxInt64
	}
	if x < 0 {
		return -x
	}
	return x
}

// ClampI64 bounds x to [lo, hi].
func ClampI64(x, lo, hi int64) int64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// MulDivU64 returns floor(a*b/d) using a 128-bit intermediate product,
// saturating at MaxUint64. d == 0 yields 0.
func MulDivU64(a, b, d uint64) uint64 {
	if d == 0 {
		return 0
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= d {
		return math.MaxUint64
	}
	q, _ := bits.Div64(hi, lo, d)
	return q
}

// MulDivI64 returns trunc(a*b/d) with a 128-bit intermediate, saturating at
// the int64 range. d must be positive; d <= 0 yields 0.
func MulDivI64(a, b, d int64) int64 {
	if d <= 0 {
		return 0
	}
	neg := false
	ua, ub := uint64(a), uint64(b)
	if a < 0 {
		neg = !neg
		ua = uint64(-a)
	}
	if b < 0 {
		neg = !neg
		ub = uint64(-b)
	}
	q := MulDivU64(ua, ub, uint64(d))
	if neg {
		if q > uint64(math.MaxInt64) {
			return math.MinInt64 + 1
		}
		return -int64(q)
	}
	if q > uint64(math.MaxInt64) {
		return math.MaxInt64
	}
	return int64(q)
}

// SqrtU64 returns the integer square root of n (Newton's method, rounding down).
func SqrtU64(n uint64) uint64 {
	if n == 0 {
		return 0
	}
	x0 := n
	x1 := (x0 + 1) >> 1
	for x1 < x0 {
		x0 = x1
		x1 = (x1 + n/x1) >> 1
	}
	return x0
}
