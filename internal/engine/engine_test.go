// internal/engine/engine_test.go
package engine

import (
	"context"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-vault/internal/events"
	"github.com/rovshanmuradov/solana-vault/internal/feed"
	"github.com/rovshanmuradov/solana-vault/internal/fp"
	"github.com/rovshanmuradov/solana-vault/internal/metrics"
	"github.com/rovshanmuradov/solana-vault/internal/oracle"
	"github.com/rovshanmuradov/solana-vault/internal/vault"
	"github.com/rovshanmuradov/solana-vault/internal/vol"
)

const lamportsPerSol = 1_000_000_000

func engineParams() vault.InitializeParams {
	return vault.InitializeParams{
		VolWeightRealizedBps: 6000,
		VolWeightImpliedBps:  4000,

		MinBandBps:       50,
		MaxBandBps:       400,
		MinIntervalSlots: 150,
		MaxIntervalSlots: 9000,

		PolicyUpdateMinSlots: 75,
		MaxPolicySlewBps:     1000,
		HysteresisBps:        100,

		OracleFeedChoice: oracle.ChoiceAutoPreferUsdThenUsdc,
		MaxPriceAgeSec:   30,
		MaxConfidenceBps: 100,
		MaxPriceJumpBps:  500,

		ExtremeDriftBps:    2000,
		ExtremeDriftAction: vault.DriftActionFlag,

		TargetDeltaBps: 10_000,
		LstBetaFp:      fp.Scale,

		VolMode:               vol.ModeStdev,
		EwmaAlphaBps:          2000,
		MinSamples:            4,
		MinReturnSpacingSlots: 25,

		MaxStakedSol:           1_000_000_000_000_000,
		MaxAbsHedgeNotionalUsd: 50_000_000,
		MaxHedgePerSolUsdFp:    500 * fp.Scale,
		MinReserveBps:          500,

		MaxUpdatesPerEpoch:         120,
		KeeperBondRequiredLamports: 0,

		MaxConfirmDelaySlots: 300,
	}
}

func newTestEngine(t *testing.T) (*Engine, *events.Bus, *ManualClock) {
	t.Helper()
	clock := NewManualClock(100, 1_700_000_000)
	bus := events.NewBus(zap.NewNop(), 64)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = bus.Shutdown(ctx)
	})
	collector := metrics.NewCollector(prometheus.NewRegistry())
	return New(clock, bus, collector, nil, zap.NewNop()), bus, clock
}

func usdObs(priceFp, now int64) feed.Observations {
	return feed.Observations{
		Usd: &oracle.Observation{
			PriceFp:      priceFp,
			ConfidenceFp: priceFp / 10_000,
			PublishTime:  now,
			Feed:         oracle.FeedUsd,
		},
	}
}

func TestInitializeVault(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	id := solana.NewWallet().PublicKey()
	authority := solana.NewWallet().PublicKey()

	require.NoError(t, eng.InitializeVault(id, authority, engineParams()))

	state, err := eng.GetState(id)
	require.NoError(t, err)
	assert.Equal(t, authority, state.Authority)
	assert.Equal(t, uint64(1), state.ConfigVersion)

	// The id is taken.
	err = eng.InitializeVault(id, authority, engineParams())
	assert.ErrorIs(t, err, vault.ErrInvalidParams)

	// Bad params never register the vault.
	bad := engineParams()
	bad.LstBetaFp = 0
	other := solana.NewWallet().PublicKey()
	require.Error(t, eng.InitializeVault(other, authority, bad))
	_, err = eng.GetState(other)
	assert.ErrorIs(t, err, ErrVaultNotFound)
}

func TestUnknownVault(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	id := solana.NewWallet().PublicKey()
	caller := solana.NewWallet().PublicKey()

	_, err := eng.GetState(id)
	assert.ErrorIs(t, err, ErrVaultNotFound)
	assert.ErrorIs(t, eng.DepositReserve(id, caller, 1), ErrVaultNotFound)
	_, err = eng.RequestHedge(id, caller)
	assert.ErrorIs(t, err, ErrVaultNotFound)
	assert.ErrorIs(t, eng.SetPaused(id, caller, true), ErrVaultNotFound)
}

func TestGetStateReturnsCopy(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	id := solana.NewWallet().PublicKey()
	authority := solana.NewWallet().PublicKey()
	require.NoError(t, eng.InitializeVault(id, authority, engineParams()))

	state, err := eng.GetState(id)
	require.NoError(t, err)
	state.Paused = true

	fresh, err := eng.GetState(id)
	require.NoError(t, err)
	assert.False(t, fresh.Paused, "mutating the copy leaves the engine untouched")
}

// TestHedgeLifecycle drives one vault from initialization through a confirmed
// hedge, advancing the manual clock between transitions.
func TestHedgeLifecycle(t *testing.T) {
	eng, bus, clock := newTestEngine(t)
	ctx := context.Background()
	id := solana.NewWallet().PublicKey()
	authority := solana.NewWallet().PublicKey()
	depositor := solana.NewWallet().PublicKey()

	confirmed := make(chan events.HedgeConfirmedEvent, 1)
	sub := bus.SubscribeFunc(events.HedgeConfirmed, func(_ context.Context, ev events.Event) error {
		confirmed <- ev.(events.HedgeConfirmedEvent)
		return nil
	})
	defer sub.Unsubscribe()

	require.NoError(t, eng.InitializeVault(id, authority, engineParams()))
	require.NoError(t, eng.DepositReserve(id, depositor, 100*lamportsPerSol))
	require.NoError(t, eng.DepositAndStake(id, depositor, 1000*lamportsPerSol))

	out, err := eng.UpdateOraclePrice(id, authority, usdObs(150*fp.Scale, clock.Now().Unix))
	require.NoError(t, err)
	require.True(t, out.Accepted)

	require.NoError(t, eng.UpdateImpliedVol(id, authority, 500))
	require.NoError(t, eng.UpdateCarryInputs(id, authority, 10, 5, 20))

	// Past the policy cooldown and the seeded hedge interval.
	clock.Advance(200, 80)

	policy, err := eng.UpdateEpochAndPolicy(ctx, id, authority)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), policy.Epoch)
	assert.False(t, policy.Frozen)
	assert.Equal(t, uint16(200), policy.VolScoreBps, "0.4 * implied 500 with no realized estimate")
	assert.Greater(t, policy.NavUsd, int64(0))

	req, err := eng.RequestHedge(id, authority)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), req.RequestID)
	assert.Equal(t, int64(-150_000), req.TargetHedgeNotionalUsd)

	clock.Advance(10, 4)
	fill, err := eng.ConfirmHedge(ctx, id, authority, req.RequestID, 150*fp.Scale, req.TargetHedgeNotionalUsd)
	require.NoError(t, err)
	assert.Equal(t, uint16(0), fill.SlippageBps)
	assert.Equal(t, int64(-150_000), fill.HedgeNotionalUsd)

	select {
	case ev := <-confirmed:
		assert.Equal(t, id, ev.Vault)
		assert.Equal(t, req.RequestID, ev.RequestID)
	case <-time.After(2 * time.Second):
		t.Fatal("hedge confirmed event not delivered")
	}

	state, err := eng.GetState(id)
	require.NoError(t, err)
	assert.Equal(t, int64(-150_000), state.HedgeNotionalUsd)
	assert.False(t, state.RequestOutstanding)
}

func TestOracleRejectionIsVerdict(t *testing.T) {
	eng, _, clock := newTestEngine(t)
	id := solana.NewWallet().PublicKey()
	authority := solana.NewWallet().PublicKey()
	require.NoError(t, eng.InitializeVault(id, authority, engineParams()))

	stale := usdObs(150*fp.Scale, clock.Now().Unix-120)
	out, err := eng.UpdateOraclePrice(id, authority, stale)
	require.NoError(t, err, "gate rejection is not a transition error")
	assert.False(t, out.Accepted)
	assert.Equal(t, oracle.ReasonStale, out.Reason)

	state, err := eng.GetState(id)
	require.NoError(t, err)
	assert.True(t, state.OracleDegraded)
}

func TestAdminThroughEngine(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	id := solana.NewWallet().PublicKey()
	authority := solana.NewWallet().PublicKey()
	depositor := solana.NewWallet().PublicKey()
	require.NoError(t, eng.InitializeVault(id, authority, engineParams()))

	require.NoError(t, eng.SetPaused(id, authority, true))
	assert.ErrorIs(t, eng.DepositReserve(id, depositor, lamportsPerSol), vault.ErrPaused)
	require.NoError(t, eng.SetPaused(id, authority, false))
	require.NoError(t, eng.DepositReserve(id, depositor, lamportsPerSol))

	// Keeper registration flows through governance, feeding does not.
	keeper := solana.NewWallet().PublicKey()
	require.NoError(t, eng.AddKeeper(id, authority, keeper))
	require.NoError(t, eng.UpdateImpliedVol(id, keeper, 700))
	assert.ErrorIs(t, eng.AddKeeper(id, keeper, depositor), vault.ErrUnauthorized)
	require.NoError(t, eng.RemoveKeeper(id, authority, keeper))
	assert.ErrorIs(t, eng.UpdateImpliedVol(id, keeper, 700), vault.ErrUnauthorized)

	state, err := eng.GetState(id)
	require.NoError(t, err)
	assert.Equal(t, uint16(700), state.ImpliedVolBps)
	assert.Greater(t, state.ConfigVersion, uint64(4), "each governance change bumps the version")
}
