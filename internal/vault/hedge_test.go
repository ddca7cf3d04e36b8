// internal/vault/hedge_test.go
package vault

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/solana-vault/internal/fp"
)

// newHedgeVault stakes 1000 SOL behind a 100 SOL reserve and feeds a first
// price of 150 USD, leaving the vault ready to hedge.
func newHedgeVault(t *testing.T) *State {
	t.Helper()
	s := newTestVault(t)
	clk := Clock{Slot: 100, Unix: 1_700_000_000}
	depositor := solana.NewWallet().PublicKey()

	require.NoError(t, s.DepositReserve(depositor, 100*lamportsPerSol, clk))
	require.NoError(t, s.DepositAndStake(depositor, 1000*lamportsPerSol, clk))
	feedPrice(t, s, 150*fp.Scale, clk)
	return s
}

func TestRequestHedgeFirstPass(t *testing.T) {
	s := newHedgeVault(t)

	out, err := s.RequestHedge(testAuthority(), Clock{Slot: 300, Unix: 1_700_000_000})
	require.NoError(t, err)

	assert.Equal(t, uint64(1), out.RequestID)
	assert.Equal(t, uint16(fp.MaxVolBps), out.DriftBps, "no anchor yet saturates drift")
	assert.False(t, out.ExtremeDrift, "a first hedge is not an anomaly")

	// Full delta target at beta 1.0: short the whole staked book.
	// 1000 SOL * 150 USD = 150000 USD.
	assert.Equal(t, int64(-150_000), out.TargetHedgeNotionalUsd)
	assert.Equal(t, int64(-150_000), out.DeltaGapUsd)

	assert.True(t, s.RequestOutstanding)
	assert.Equal(t, uint64(300), s.RequestSlot)
	assert.Equal(t, int64(150*fp.Scale), s.RequestSpotPriceFp)
	assert.Equal(t, uint64(300), s.LastHedgeSlot)
	assert.Equal(t, s.EmaPriceFp, s.LastHedgeEmaPriceFp)
}

func TestRequestHedgeGating(t *testing.T) {
	s := newHedgeVault(t)
	now := int64(1_700_000_000)

	// Interval not met: seeded interval is 150 slots and LastHedgeSlot is 0,
	// so slot 100 is too soon.
	_, err := s.RequestHedge(testAuthority(), Clock{Slot: 100, Unix: now})
	assert.ErrorIs(t, err, ErrHedgeTooSoon)

	_, err = s.RequestHedge(testAuthority(), Clock{Slot: 300, Unix: now})
	require.NoError(t, err)

	// Immediately after a request the interval gate holds again.
	_, err = s.RequestHedge(testAuthority(), Clock{Slot: 310, Unix: now})
	assert.ErrorIs(t, err, ErrHedgeTooSoon)

	// Past the interval but with an unchanged EMA the drift gate holds.
	_, err = s.RequestHedge(testAuthority(), Clock{Slot: 500, Unix: now})
	assert.ErrorIs(t, err, ErrDriftNotMet)
}

func TestRequestHedgeRequiresOracle(t *testing.T) {
	s := newTestVault(t)
	_, err := s.RequestHedge(testAuthority(), Clock{Slot: 300, Unix: 1_700_000_000})
	assert.ErrorIs(t, err, ErrOracleNotReady)
}

func TestConfirmHedgeHappyPath(t *testing.T) {
	s := newHedgeVault(t)
	now := int64(1_700_000_000)

	req, err := s.RequestHedge(testAuthority(), Clock{Slot: 300, Unix: now})
	require.NoError(t, err)

	fill, err := s.ConfirmHedge(testAuthority(), req.RequestID, 150*fp.Scale, -150_000, Clock{Slot: 320, Unix: now})
	require.NoError(t, err)

	assert.Equal(t, uint16(0), fill.SlippageBps, "filled at the request spot price")
	assert.Equal(t, int64(-150_000), s.HedgeNotionalUsd)
	assert.False(t, s.RequestOutstanding)
	assert.Equal(t, uint64(1), s.HedgeFillCount)
	assert.Equal(t, uint64(320), s.LastFillSlot)

	// A second confirm has nothing to consume.
	_, err = s.ConfirmHedge(testAuthority(), req.RequestID, 150*fp.Scale, 0, Clock{Slot: 330, Unix: now})
	assert.ErrorIs(t, err, ErrNoOutstandingRequest)
}

func TestConfirmHedgeSlippageAverage(t *testing.T) {
	s := newHedgeVault(t)
	now := int64(1_700_000_000)

	req, err := s.RequestHedge(testAuthority(), Clock{Slot: 300, Unix: now})
	require.NoError(t, err)

	// Fill 1% away from the request spot: 100 bps slippage.
	fill, err := s.ConfirmHedge(testAuthority(), req.RequestID, 1515*fp.Scale/10, -150_000, Clock{Slot: 310, Unix: now})
	require.NoError(t, err)
	assert.Equal(t, uint16(100), fill.SlippageBps)
	assert.Equal(t, uint16(100), s.AvgFillSlippageBps)

	// Second round trip at zero slippage halves the average.
	s.LastHedgeEmaPriceFp = 100 * fp.Scale // force drift past the band
	req, err = s.RequestHedge(testAuthority(), Clock{Slot: 600, Unix: now})
	require.NoError(t, err)
	fill, err = s.ConfirmHedge(testAuthority(), req.RequestID, s.RequestSpotPriceFp, 0, Clock{Slot: 610, Unix: now})
	require.NoError(t, err)
	assert.Equal(t, uint16(0), fill.SlippageBps)
	assert.Equal(t, uint16(50), s.AvgFillSlippageBps)
	assert.Equal(t, uint64(2), s.HedgeFillCount)
}

func TestConfirmHedgeWrongRequestID(t *testing.T) {
	s := newHedgeVault(t)
	now := int64(1_700_000_000)

	req, err := s.RequestHedge(testAuthority(), Clock{Slot: 300, Unix: now})
	require.NoError(t, err)

	_, err = s.ConfirmHedge(testAuthority(), req.RequestID+1, 150*fp.Scale, -150_000, Clock{Slot: 310, Unix: now})
	assert.ErrorIs(t, err, ErrWrongRequestID)
	assert.True(t, s.RequestOutstanding, "a mismatched confirm consumes nothing")
}

func TestConfirmHedgeExpiry(t *testing.T) {
	s := newHedgeVault(t)
	now := int64(1_700_000_000)

	req, err := s.RequestHedge(testAuthority(), Clock{Slot: 300, Unix: now})
	require.NoError(t, err)

	// Window is 300 slots; slot 601 is one past the boundary.
	_, err = s.ConfirmHedge(testAuthority(), req.RequestID, 150*fp.Scale, -150_000, Clock{Slot: 601, Unix: now})
	assert.ErrorIs(t, err, ErrConfirmExpired)
	assert.False(t, s.RequestOutstanding, "the expired request is consumed")
	assert.Equal(t, uint32(1), s.MissedConfirms)
	assert.Equal(t, int64(0), s.HedgeNotionalUsd, "no fill was applied")

	// Exactly at the boundary would still have confirmed.
	s.LastHedgeEmaPriceFp = 100 * fp.Scale // force drift past the band
	req2, err := s.RequestHedge(testAuthority(), Clock{Slot: 800, Unix: now})
	require.NoError(t, err)
	_, err = s.ConfirmHedge(testAuthority(), req2.RequestID, 150*fp.Scale, -150_000, Clock{Slot: 1100, Unix: now})
	assert.NoError(t, err)
}

func TestRequestHedgeLazyExpiry(t *testing.T) {
	s := newHedgeVault(t)
	now := int64(1_700_000_000)

	req1, err := s.RequestHedge(testAuthority(), Clock{Slot: 300, Unix: now})
	require.NoError(t, err)

	// Force drift so the next request passes the band gate.
	s.LastHedgeEmaPriceFp = 100 * fp.Scale

	out, err := s.RequestHedge(testAuthority(), Clock{Slot: 700, Unix: now})
	require.NoError(t, err)
	assert.Equal(t, req1.RequestID, out.ExpiredRequestID, "stale request expired in passing")
	assert.Equal(t, uint32(1), out.MissedConfirms)
	assert.Equal(t, req1.RequestID+1, out.RequestID)
	assert.True(t, s.RequestOutstanding)

	// The superseded id can no longer confirm.
	_, err = s.ConfirmHedge(testAuthority(), req1.RequestID, 150*fp.Scale, 0, Clock{Slot: 710, Unix: now})
	assert.ErrorIs(t, err, ErrWrongRequestID)
}

func TestRequestHedgeCapClamp(t *testing.T) {
	s := newHedgeVault(t)
	now := int64(1_700_000_000)

	require.NoError(t, s.SetRiskCaps(testAuthority(), s.MaxStakedSol, 100_000, 500*fp.Scale, 500))

	out, err := s.RequestHedge(testAuthority(), Clock{Slot: 300, Unix: now})
	require.NoError(t, err)
	assert.Equal(t, int64(-100_000), out.TargetHedgeNotionalUsd, "target clamped to the notional cap")
}

func TestRequestHedgeLeverageReject(t *testing.T) {
	s := newHedgeVault(t)
	now := int64(1_700_000_000)

	// Ceiling of 100 USD/SOL supports at most 100000 USD against the target
	// of 150000.
	require.NoError(t, s.SetRiskCaps(testAuthority(), s.MaxStakedSol, 50_000_000, 100*fp.Scale, 500))

	_, err := s.RequestHedge(testAuthority(), Clock{Slot: 300, Unix: now})
	assert.ErrorIs(t, err, ErrLeverageExceeded)
}

func TestRequestHedgeLeverageRejectLeavesStateIntact(t *testing.T) {
	s := newHedgeVault(t)
	now := int64(1_700_000_000)

	_, err := s.RequestHedge(testAuthority(), Clock{Slot: 300, Unix: now})
	require.NoError(t, err)

	// Tighten the leverage ceiling under the 150000 USD target and force an
	// extreme drift, so every mutating branch of the request path is armed.
	require.NoError(t, s.SetRiskCaps(testAuthority(), s.MaxStakedSol, 50_000_000, 100*fp.Scale, 500))
	s.LastHedgeEmaPriceFp = 100 * fp.Scale

	_, err = s.RequestHedge(testAuthority(), Clock{Slot: 700, Unix: now})
	assert.ErrorIs(t, err, ErrLeverageExceeded)

	// The rejection left nothing behind: the stale request was not expired
	// and no anomaly was recorded.
	assert.True(t, s.RequestOutstanding)
	assert.Equal(t, uint32(0), s.MissedConfirms)
	assert.Equal(t, uint64(0), s.ExtremeEventCount)
	assert.Equal(t, uint64(1), s.LastHedgeRequestID)
}

func TestConfirmHedgeCapAndLeverage(t *testing.T) {
	s := newHedgeVault(t)
	now := int64(1_700_000_000)

	req, err := s.RequestHedge(testAuthority(), Clock{Slot: 300, Unix: now})
	require.NoError(t, err)

	// A fill delta past the absolute cap is rejected outright.
	_, err = s.ConfirmHedge(testAuthority(), req.RequestID, 150*fp.Scale, -60_000_000, Clock{Slot: 310, Unix: now})
	assert.ErrorIs(t, err, ErrCapExceeded)
	assert.True(t, s.RequestOutstanding, "rejected fill leaves the request open")

	// A fill past the leverage ceiling is rejected too: 1000 SOL at
	// 500 USD/SOL supports 500000 USD.
	_, err = s.ConfirmHedge(testAuthority(), req.RequestID, 150*fp.Scale, -600_000, Clock{Slot: 310, Unix: now})
	assert.ErrorIs(t, err, ErrLeverageExceeded)

	// The request survives the rejections and an in-bounds fill still lands.
	_, err = s.ConfirmHedge(testAuthority(), req.RequestID, 150*fp.Scale, -150_000, Clock{Slot: 310, Unix: now})
	assert.NoError(t, err)
}

func TestExtremeDriftFlag(t *testing.T) {
	s := newHedgeVault(t)
	now := int64(1_700_000_000)

	_, err := s.RequestHedge(testAuthority(), Clock{Slot: 300, Unix: now})
	require.NoError(t, err)

	// 150 vs 100 anchor is a 50% move, past the 20% breaker.
	s.LastHedgeEmaPriceFp = 100 * fp.Scale

	out, err := s.RequestHedge(testAuthority(), Clock{Slot: 700, Unix: now})
	require.NoError(t, err, "flag mode lets the request proceed")
	assert.True(t, out.ExtremeDrift)
	assert.Equal(t, uint64(1), s.ExtremeEventCount)
	assert.False(t, s.ExtremeEventPending)
}

func TestExtremeDriftHalt(t *testing.T) {
	s := newHedgeVault(t)
	now := int64(1_700_000_000)

	require.NoError(t, s.SetHedgeSizing(testAuthority(), 10_000, fp.Scale, 2000, DriftActionHalt))

	_, err := s.RequestHedge(testAuthority(), Clock{Slot: 300, Unix: now})
	require.NoError(t, err)
	s.LastHedgeEmaPriceFp = 100 * fp.Scale

	_, err = s.RequestHedge(testAuthority(), Clock{Slot: 700, Unix: now})
	assert.ErrorIs(t, err, ErrExtremeDriftHalted)
	assert.True(t, s.ExtremeEventPending)

	// The latch blocks further requests until acknowledged.
	_, err = s.RequestHedge(testAuthority(), Clock{Slot: 900, Unix: now})
	assert.ErrorIs(t, err, ErrExtremeDriftHalted)

	assert.ErrorIs(t, s.AcknowledgeExtremeEvent(solana.NewWallet().PublicKey()), ErrUnauthorized)
	require.NoError(t, s.AcknowledgeExtremeEvent(testAuthority()))
	assert.False(t, s.ExtremeEventPending)

	// A drift inside the breaker but past the band hedges normally again.
	s.LastHedgeEmaPriceFp = 149 * fp.Scale
	_, err = s.RequestHedge(testAuthority(), Clock{Slot: 1100, Unix: now})
	assert.NoError(t, err, "hedging resumes after acknowledgement")
}
