// internal/fp/fp_test.go
package fp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAbsI64(t *testing.T) {
	assert.Equal(t, int64(5), AbsI64(5))
	assert.Equal(t, int64(5), AbsI64(-5))
	assert.Equal(t, int64(0), AbsI64(0))
	// MinInt64 has no positive counterpart; saturate instead of overflowing.
	assert.Equal(t, int64(math.MaxInt64), AbsI64(math.MinInt64))
}

func TestClampI64(t *testing.T) {
	assert.Equal(t, int64(10), ClampI64(15, -10, 10))
	assert.Equal(t, int64(-10), ClampI64(-15, -10, 10))
	assert.Equal(t, int64(3), ClampI64(3, -10, 10))
}

func TestMulDivU64(t *testing.T) {
	assert.Equal(t, uint64(50), MulDivU64(100, 5000, BpsDenom))
	assert.Equal(t, uint64(0), MulDivU64(100, 5000, 0), "zero denominator yields zero")

	// 128-bit intermediate: (2^63)*4/8 = 2^62 without overflow.
	big := uint64(1) << 63
	assert.Equal(t, uint64(1)<<62, MulDivU64(big, 4, 8))

	// Saturates when the quotient exceeds 64 bits.
	assert.Equal(t, uint64(math.MaxUint64), MulDivU64(math.MaxUint64, 1000, 1))
}

func TestMulDivI64(t *testing.T) {
	assert.Equal(t, int64(-50), MulDivI64(-100, 5000, BpsDenom))
	assert.Equal(t, int64(50), MulDivI64(-100, -5000, BpsDenom))
	assert.Equal(t, int64(0), MulDivI64(100, 5000, 0))

	// Return computation shape: (p1-p0)*Scale/p0.
	assert.Equal(t, int64(10_000), MulDivI64(1_010_000-1_000_000, Scale, 1_000_000))
}

func TestSqrtU64(t *testing.T) {
	assert.Equal(t, uint64(0), SqrtU64(0))
	assert.Equal(t, uint64(1), SqrtU64(1))
	assert.Equal(t, uint64(2), SqrtU64(4))
	assert.Equal(t, uint64(2), SqrtU64(8), "floor of sqrt")
	assert.Equal(t, uint64(1_000_000), SqrtU64(1_000_000_000_000))
	assert.Equal(t, uint64(4294967295), SqrtU64(math.MaxUint64))
}
