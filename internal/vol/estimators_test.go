// internal/vol/estimators_test.go
package vol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStdevVolBps(t *testing.T) {
	var returns [NReturns]int32
	assert.Equal(t, uint16(0), StdevVolBps(&returns), "empty ring has zero dispersion")

	// Symmetric +-1000 fp returns: mean 0, stdev 1000 fp = 10 bps.
	for i := range returns {
		if i%2 == 0 {
			returns[i] = 1000
		} else {
			returns[i] = -1000
		}
	}
	assert.Equal(t, uint16(10), StdevVolBps(&returns))

	// Constant returns have zero dispersion regardless of level.
	for i := range returns {
		returns[i] = 50_000
	}
	assert.Equal(t, uint16(0), StdevVolBps(&returns))
}

func TestMadVolBpsRobustToOutlier(t *testing.T) {
	var returns [NReturns]int32
	returns[0] = 200_000 // single outlier

	assert.Equal(t, uint16(0), MadVolBps(&returns), "MAD ignores a single outlier")

	// Stdev does not.
	assert.Greater(t, StdevVolBps(&returns), uint16(0))
}

func TestMadVolBpsSymmetric(t *testing.T) {
	var returns [NReturns]int32
	for i := range returns {
		if i%2 == 0 {
			returns[i] = 1000
		} else {
			returns[i] = -1000
		}
	}
	// Median 0, all deviations 1000 fp, scaled by 1.4826: 1482 fp = 14 bps.
	assert.Equal(t, uint16(14), MadVolBps(&returns))
}

func TestEwmaVarUpdate(t *testing.T) {
	// Seed from zero: var = alpha * r^2.
	v := EwmaVarUpdate(0, 100_000, 2000)
	assert.Equal(t, uint64(2_000_000_000), v)

	// Decay with a zero return: var = (1-alpha) * var.
	v = EwmaVarUpdate(v, 0, 2000)
	assert.Equal(t, uint64(1_600_000_000), v)

	// Accumulator saturates at the variance cap.
	v = EwmaVarUpdate(MaxVarFp2, MaxReturnAbsFp, 10_000)
	assert.LessOrEqual(t, v, uint64(MaxVarFp2))
}

func TestEwmaVolBps(t *testing.T) {
	assert.Equal(t, uint16(0), EwmaVolBps(0))
	// sqrt(2e9) = 44721 fp = 447 bps.
	assert.Equal(t, uint16(447), EwmaVolBps(2_000_000_000))
}

func TestRealizedVolBpsDispatch(t *testing.T) {
	var r Ring
	for i := 0; i < NReturns; i++ {
		ret := int32(1000)
		if i%2 == 1 {
			ret = -1000
		}
		r.Record(uint64(100+30*i), ret)
	}

	assert.Equal(t, uint16(10), RealizedVolBps(ModeStdev, &r, 0))
	assert.Equal(t, uint16(14), RealizedVolBps(ModeMad, &r, 0))
	assert.Equal(t, uint16(447), RealizedVolBps(ModeEwma, &r, 2_000_000_000))
}

func TestBlendScoreBps(t *testing.T) {
	// 60/40 blend of realized 6000 and implied 500.
	assert.Equal(t, uint16(3800), BlendScoreBps(6000, 500, 6000, 4000))

	// All weight on one side passes it through.
	assert.Equal(t, uint16(500), BlendScoreBps(6000, 500, 0, 10_000))

	// Clamped to the score ceiling.
	assert.Equal(t, uint16(10_000), BlendScoreBps(10_000, 10_000, 10_000, 10_000))
}

func TestModeValid(t *testing.T) {
	assert.True(t, ModeStdev.Valid())
	assert.True(t, ModeEwma.Valid())
	assert.True(t, ModeMad.Valid())
	assert.False(t, Mode(3).Valid())
}
