// internal/keeper/runner.go
// Package keeper runs the off-chain crank: periodic oracle updates, policy
// ticks and the request/confirm hedge cycle against one vault.
package keeper

import (
	"context"
	"errors"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/solana-vault/internal/engine"
	"github.com/rovshanmuradov/solana-vault/internal/feed"
	"github.com/rovshanmuradov/solana-vault/internal/vault"
)

// Config sets the crank cadence.
type Config struct {
	OracleInterval time.Duration
	PolicyInterval time.Duration
	HedgeInterval  time.Duration
}

// Runner drives one vault with one keeper identity.
type Runner struct {
	engine *engine.Engine
	source feed.Source
	vault  solana.PublicKey
	keeper solana.PublicKey
	cfg    Config
	logger *zap.Logger
}

// NewRunner wires a crank for the given vault and keeper key.
func NewRunner(eng *engine.Engine, source feed.Source, vaultID, keeperKey solana.PublicKey, cfg Config, logger *zap.Logger) *Runner {
	if cfg.OracleInterval <= 0 {
		cfg.OracleInterval = 2 * time.Second
	}
	if cfg.PolicyInterval <= 0 {
		cfg.PolicyInterval = 30 * time.Second
	}
	if cfg.HedgeInterval <= 0 {
		cfg.HedgeInterval = 5 * time.Second
	}
	return &Runner{
		engine: eng,
		source: source,
		vault:  vaultID,
		keeper: keeperKey,
		cfg:    cfg,
		logger: logger.Named("keeper"),
	}
}

// benign reports errors that are part of normal crank operation: the vault
// told us to wait or that no action is needed.
func benign(err error) bool {
	return errors.Is(err, vault.ErrDriftNotMet) ||
		errors.Is(err, vault.ErrHedgeTooSoon) ||
		errors.Is(err, vault.ErrPolicyCooldown) ||
		errors.Is(err, vault.ErrKeeperRateLimited) ||
		errors.Is(err, vault.ErrOracleNotReady)
}

// Run blocks until ctx is cancelled, driving the three crank loops. Loop
// errors are logged, never fatal: a keeper must survive degraded oracles and
// rejected transitions.
func (r *Runner) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return r.loop(ctx, r.cfg.OracleInterval, r.oracleTick) })
	g.Go(func() error { return r.loop(ctx, r.cfg.PolicyInterval, r.policyTick) })
	g.Go(func() error { return r.loop(ctx, r.cfg.HedgeInterval, r.hedgeTick) })

	return g.Wait()
}

func (r *Runner) loop(ctx context.Context, interval time.Duration, tick func(ctx context.Context)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			tick(ctx)
		}
	}
}

func (r *Runner) oracleTick(ctx context.Context) {
	obs, err := r.source.Fetch(ctx)
	if err != nil {
		r.logger.Warn("Feed fetch failed", zap.Error(err))
		return
	}
	out, err := r.engine.UpdateOraclePrice(r.vault, r.keeper, obs)
	if err != nil {
		if !benign(err) {
			r.logger.Warn("Oracle update rejected", zap.Error(err))
		}
		return
	}
	if !out.Accepted {
		r.logger.Debug("Oracle observation rejected by gate",
			zap.String("reason", out.Reason.String()))
	}
}

func (r *Runner) policyTick(ctx context.Context) {
	out, err := r.engine.UpdateEpochAndPolicy(ctx, r.vault, r.keeper)
	if err != nil {
		if !benign(err) {
			r.logger.Warn("Policy tick rejected", zap.Error(err))
		}
		return
	}
	r.logger.Info("Policy tick",
		zap.Uint64("epoch", out.Epoch),
		zap.Bool("frozen", out.Frozen),
		zap.Uint16("vol_score_bps", out.VolScoreBps),
		zap.Uint16("band_bps", out.BandBps),
		zap.Uint64("min_hedge_interval_slots", out.MinHedgeIntervalSlots))
}

// hedgeTick opens a request when drift warrants it and immediately fills it
// at the current spot price. A real deployment would route the fill through
// an execution venue; the simulated fill keeps the protocol loop honest.
func (r *Runner) hedgeTick(ctx context.Context) {
	req, err := r.engine.RequestHedge(r.vault, r.keeper)
	if err != nil {
		if !benign(err) {
			r.logger.Warn("Hedge request rejected", zap.Error(err))
		}
		return
	}
	r.logger.Info("Hedge requested",
		zap.Uint64("request_id", req.RequestID),
		zap.Uint16("drift_bps", req.DriftBps),
		zap.Int64("target_usd", req.TargetHedgeNotionalUsd))

	state, err := r.engine.GetState(r.vault)
	if err != nil {
		r.logger.Warn("State read failed", zap.Error(err))
		return
	}
	delta := req.TargetHedgeNotionalUsd - state.HedgeNotionalUsd

	fill, err := r.engine.ConfirmHedge(ctx, r.vault, r.keeper, req.RequestID, state.SpotPriceFp, delta)
	if err != nil {
		if !benign(err) {
			r.logger.Warn("Hedge confirm rejected", zap.Error(err))
		}
		return
	}
	r.logger.Info("Hedge confirmed",
		zap.Uint64("request_id", fill.RequestID),
		zap.Uint16("slippage_bps", fill.SlippageBps),
		zap.Int64("hedge_notional_usd", fill.HedgeNotionalUsd))
}
