// internal/engine/engine.go
// Package engine hosts vault state machines behind a concurrency-safe API and
// wires their outcomes into the event bus, metrics and optional persistence.
// All ordering guarantees come from the per-vault mutex: transitions on one
// vault are strictly serialized, different vaults proceed in parallel.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-vault/internal/events"
	"github.com/rovshanmuradov/solana-vault/internal/feed"
	"github.com/rovshanmuradov/solana-vault/internal/metrics"
	"github.com/rovshanmuradov/solana-vault/internal/oracle"
	"github.com/rovshanmuradov/solana-vault/internal/storage"
	"github.com/rovshanmuradov/solana-vault/internal/storage/models"
	"github.com/rovshanmuradov/solana-vault/internal/vault"
	"github.com/rovshanmuradov/solana-vault/internal/vol"
)

// instance pairs a vault with its serialization lock.
type instance struct {
	mu    sync.Mutex
	state *vault.State
}

// Engine manages a set of vaults.
type Engine struct {
	mu     sync.RWMutex
	vaults map[solana.PublicKey]*instance

	clock   ClockSource
	bus     *events.Bus
	metrics *metrics.Collector
	store   storage.Storage // optional, may be nil
	logger  *zap.Logger
}

// New builds an engine. store may be nil to disable persistence.
func New(clock ClockSource, bus *events.Bus, collector *metrics.Collector, store storage.Storage, logger *zap.Logger) *Engine {
	return &Engine{
		vaults:  make(map[solana.PublicKey]*instance),
		clock:   clock,
		bus:     bus,
		metrics: collector,
		store:   store,
		logger:  logger.Named("engine"),
	}
}

// base stamps the common event fields.
func (e *Engine) base(typ events.EventType, id solana.PublicKey, slot uint64) events.BaseEvent {
	return events.BaseEvent{
		EventType: typ,
		EventTime: time.Now(),
		Vault:     id,
		Slot:      slot,
	}
}

func (e *Engine) publish(ev events.Event) {
	if err := e.bus.Publish(ev); err != nil {
		e.logger.Warn("Failed to publish event",
			zap.String("event_type", string(ev.Type())), zap.Error(err))
	}
}

// InitializeVault creates a vault under id. Re-initializing an id is an
// error; ids are caller-chosen identities, typically the vault's PDA.
func (e *Engine) InitializeVault(id, authority solana.PublicKey, params vault.InitializeParams) error {
	state, err := vault.New(authority, params)
	if err != nil {
		e.metrics.RecordOperation("initialize_vault", err)
		return err
	}

	e.mu.Lock()
	if _, exists := e.vaults[id]; exists {
		e.mu.Unlock()
		err := fmt.Errorf("vault %s: %w", id, vault.ErrInvalidParams)
		e.metrics.RecordOperation("initialize_vault", err)
		return err
	}
	e.vaults[id] = &instance{state: state}
	e.mu.Unlock()

	clk := e.clock.Now()
	e.metrics.RecordOperation("initialize_vault", nil)
	e.publish(events.VaultInitializedEvent{
		BaseEvent:     e.base(events.VaultInitialized, id, clk.Slot),
		Authority:     authority,
		ConfigVersion: state.ConfigVersion,
		ConfigHash:    state.ConfigHash,
	})
	e.logger.Info("Vault initialized",
		zap.String("vault", id.String()),
		zap.String("authority", authority.String()),
		zap.Uint64("config_version", state.ConfigVersion))
	return nil
}

// get resolves a vault instance.
func (e *Engine) get(id solana.PublicKey) (*instance, error) {
	e.mu.RLock()
	inst, ok := e.vaults[id]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("vault %s: %w", id, ErrVaultNotFound)
	}
	return inst, nil
}

// GetState returns a copy of the vault state for reads.
func (e *Engine) GetState(id solana.PublicKey) (vault.State, error) {
	inst, err := e.get(id)
	if err != nil {
		return vault.State{}, err
	}
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return *inst.state, nil
}

// DepositAndStake stakes lamports into a vault.
func (e *Engine) DepositAndStake(id, caller solana.PublicKey, lamports uint64) error {
	inst, err := e.get(id)
	if err != nil {
		return err
	}
	clk := e.clock.Now()

	inst.mu.Lock()
	err = inst.state.DepositAndStake(caller, lamports, clk)
	staked, reserve := inst.state.StakedSol, inst.state.ReserveSol
	inst.mu.Unlock()

	e.metrics.RecordOperation("deposit_and_stake", err)
	if err != nil {
		return err
	}
	e.publish(events.DepositMadeEvent{
		BaseEvent:  e.base(events.DepositMade, id, clk.Slot),
		Depositor:  caller,
		Lamports:   lamports,
		ToReserve:  false,
		StakedSol:  staked,
		ReserveSol: reserve,
	})
	return nil
}

// DepositReserve adds lamports to the reserve buffer.
func (e *Engine) DepositReserve(id, caller solana.PublicKey, lamports uint64) error {
	inst, err := e.get(id)
	if err != nil {
		return err
	}
	clk := e.clock.Now()

	inst.mu.Lock()
	err = inst.state.DepositReserve(caller, lamports, clk)
	staked, reserve := inst.state.StakedSol, inst.state.ReserveSol
	inst.mu.Unlock()

	e.metrics.RecordOperation("deposit_reserve", err)
	if err != nil {
		return err
	}
	e.publish(events.DepositMadeEvent{
		BaseEvent:  e.base(events.DepositMade, id, clk.Slot),
		Depositor:  caller,
		Lamports:   lamports,
		ToReserve:  true,
		StakedSol:  staked,
		ReserveSol: reserve,
	})
	return nil
}

// UpdateOraclePrice feeds one fetch result through the gate.
func (e *Engine) UpdateOraclePrice(id, caller solana.PublicKey, obs feed.Observations) (vault.OracleOutcome, error) {
	inst, err := e.get(id)
	if err != nil {
		return vault.OracleOutcome{}, err
	}
	clk := e.clock.Now()

	inst.mu.Lock()
	out, err := inst.state.UpdateOraclePrice(caller, obs.Usd, obs.Usdc, clk)
	inst.mu.Unlock()

	e.metrics.RecordOperation("update_oracle_price", err)
	if err != nil {
		return out, err
	}
	e.metrics.RecordOracleUpdate(out.Accepted, out.Reason.String())

	if !out.Accepted {
		e.publish(events.OracleDegradedEvent{
			BaseEvent: e.base(events.OracleDegraded, id, clk.Slot),
			Feed:      out.Feed.String(),
			Reason:    out.Reason.String(),
		})
		return out, nil
	}

	e.publish(events.OraclePriceUpdatedEvent{
		BaseEvent:    e.base(events.OraclePriceUpdated, id, clk.Slot),
		Feed:         out.Feed.String(),
		PriceFp:      out.PriceFp,
		EmaPriceFp:   out.EmaPriceFp,
		ConfidenceFp: out.ConfidenceFp,
		PublishTime:  out.PublishTime,
	})
	if out.ReturnRecorded {
		e.publish(events.OracleReturnRecordedEvent{
			BaseEvent:      e.base(events.OracleReturnRecorded, id, clk.Slot),
			ReturnFp:       out.ReturnFp,
			Index:          out.ReturnIndex,
			NonzeroSamples: out.NonzeroSamples,
		})
	}
	return out, nil
}

// UpdateImpliedVol stores an implied vol quote.
func (e *Engine) UpdateImpliedVol(id, caller solana.PublicKey, impliedVolBps uint16) error {
	inst, err := e.get(id)
	if err != nil {
		return err
	}
	clk := e.clock.Now()

	inst.mu.Lock()
	err = inst.state.UpdateImpliedVol(caller, impliedVolBps, clk)
	inst.mu.Unlock()

	e.metrics.RecordOperation("update_implied_vol", err)
	return err
}

// UpdateCarryInputs stores the carry legs.
func (e *Engine) UpdateCarryInputs(id, caller solana.PublicKey, fundingBpsPerDay, borrowBpsPerDay, stakingBpsPerDay int32) error {
	inst, err := e.get(id)
	if err != nil {
		return err
	}
	clk := e.clock.Now()

	inst.mu.Lock()
	err = inst.state.UpdateCarryInputs(caller, fundingBpsPerDay, borrowBpsPerDay, stakingBpsPerDay, clk)
	inst.mu.Unlock()

	e.metrics.RecordOperation("update_carry_inputs", err)
	return err
}

// UpdateEpochAndPolicy runs one policy tick and persists the snapshot.
func (e *Engine) UpdateEpochAndPolicy(ctx context.Context, id, caller solana.PublicKey) (vault.PolicyOutcome, error) {
	inst, err := e.get(id)
	if err != nil {
		return vault.PolicyOutcome{}, err
	}
	clk := e.clock.Now()

	inst.mu.Lock()
	out, err := inst.state.UpdateEpochAndPolicy(caller, clk)
	impliedVolBps := inst.state.ImpliedVolBps
	hedgeUsd := inst.state.HedgeNotionalUsd
	inst.mu.Unlock()

	e.metrics.RecordOperation("update_epoch_and_policy", err)
	if err != nil {
		return out, err
	}

	e.publish(events.EpochUpdatedEvent{
		BaseEvent: e.base(events.EpochUpdated, id, clk.Slot),
		Epoch:     out.Epoch,
		Frozen:    out.Frozen,
	})

	if out.Frozen {
		e.publish(events.PolicyFrozenEvent{
			BaseEvent: e.base(events.PolicyFrozen, id, clk.Slot),
			Epoch:     out.Epoch,
		})
		return out, nil
	}

	e.metrics.RecordPolicy(out.Epoch, out.VolScoreBps, out.RealizedVolBps, out.BandBps, out.MinHedgeIntervalSlots, out.NavUsd)
	e.publish(events.PolicyUpdatedEvent{
		BaseEvent:             e.base(events.PolicyUpdated, id, clk.Slot),
		Epoch:                 out.Epoch,
		RealizedVolBps:        out.RealizedVolBps,
		VolScoreBps:           out.VolScoreBps,
		ExpectedCarryBps:      out.ExpectedCarryBps,
		BandBps:               out.BandBps,
		MinHedgeIntervalSlots: out.MinHedgeIntervalSlots,
	})
	e.publish(events.NavSnapshotEvent{
		BaseEvent:       e.base(events.NavSnapshot, id, clk.Slot),
		Epoch:           out.Epoch,
		StakedValueUsd:  out.StakedValueUsd,
		ReserveValueUsd: out.ReserveValueUsd,
		HedgeUsd:        hedgeUsd,
		NavUsd:          out.NavUsd,
	})

	if e.store != nil {
		snap := &models.VaultSnapshot{
			Vault:                 id.String(),
			Epoch:                 out.Epoch,
			Slot:                  clk.Slot,
			Frozen:                out.Frozen,
			RealizedVolBps:        out.RealizedVolBps,
			ImpliedVolBps:         impliedVolBps,
			VolScoreBps:           out.VolScoreBps,
			BandBps:               out.BandBps,
			MinHedgeIntervalSlots: out.MinHedgeIntervalSlots,
			ExpectedCarryBps:      out.ExpectedCarryBps,
			StakedValueUsd:        out.StakedValueUsd,
			ReserveValueUsd:       out.ReserveValueUsd,
			HedgeNotionalUsd:      hedgeUsd,
			NavUsd:                out.NavUsd,
		}
		if err := e.store.SaveVaultSnapshot(ctx, snap); err != nil {
			e.logger.Warn("Failed to persist vault snapshot",
				zap.String("vault", id.String()), zap.Uint64("epoch", out.Epoch), zap.Error(err))
		}
	}
	return out, nil
}

// RequestHedge attempts to open a hedge request.
func (e *Engine) RequestHedge(id, caller solana.PublicKey) (vault.HedgeRequestOutcome, error) {
	inst, err := e.get(id)
	if err != nil {
		return vault.HedgeRequestOutcome{}, err
	}
	clk := e.clock.Now()

	inst.mu.Lock()
	out, err := inst.state.RequestHedge(caller, clk)
	hedgeUsd := inst.state.HedgeNotionalUsd
	inst.mu.Unlock()

	e.metrics.RecordOperation("request_hedge", err)

	if out.ExtremeDrift {
		e.publish(events.ExtremeDriftSeenEvent{
			BaseEvent: e.base(events.ExtremeDriftSeen, id, clk.Slot),
			DriftBps:  out.DriftBps,
			Halted:    errors.Is(err, vault.ErrExtremeDriftHalted),
		})
	}
	if out.ExpiredRequestID != 0 {
		e.metrics.RecordMissedConfirm()
		e.publish(events.HedgeConfirmMissedEvent{
			BaseEvent:      e.base(events.HedgeConfirmMissed, id, clk.Slot),
			RequestID:      out.ExpiredRequestID,
			MissedConfirms: out.MissedConfirms,
		})
	}
	if err != nil {
		return out, err
	}

	e.publish(events.HedgeRequestedEvent{
		BaseEvent:              e.base(events.HedgeRequested, id, clk.Slot),
		RequestID:              out.RequestID,
		DriftBps:               out.DriftBps,
		TargetHedgeNotionalUsd: out.TargetHedgeNotionalUsd,
		DeltaGapUsd:            out.TargetHedgeNotionalUsd - hedgeUsd,
	})
	return out, nil
}

// ConfirmHedge applies a fill against the outstanding request and persists it.
func (e *Engine) ConfirmHedge(ctx context.Context, id, caller solana.PublicKey, requestID uint64, fillPriceFp, hedgeDeltaUsd int64) (vault.HedgeConfirmOutcome, error) {
	inst, err := e.get(id)
	if err != nil {
		return vault.HedgeConfirmOutcome{}, err
	}
	clk := e.clock.Now()

	inst.mu.Lock()
	requestSlot := inst.state.RequestSlot
	requestSpotFp := inst.state.RequestSpotPriceFp
	out, err := inst.state.ConfirmHedge(caller, requestID, fillPriceFp, hedgeDeltaUsd, clk)
	missed := inst.state.MissedConfirms
	inst.mu.Unlock()

	e.metrics.RecordOperation("confirm_hedge", err)
	if err != nil {
		if errors.Is(err, vault.ErrConfirmExpired) {
			e.metrics.RecordMissedConfirm()
			e.publish(events.HedgeConfirmMissedEvent{
				BaseEvent:      e.base(events.HedgeConfirmMissed, id, clk.Slot),
				RequestID:      requestID,
				MissedConfirms: missed,
			})
		}
		return out, err
	}

	e.metrics.RecordHedgeFill(out.HedgeNotionalUsd, out.AvgFillSlippageBps)
	e.publish(events.HedgeConfirmedEvent{
		BaseEvent:          e.base(events.HedgeConfirmed, id, clk.Slot),
		RequestID:          out.RequestID,
		FillPriceFp:        out.FillPriceFp,
		SlippageBps:        out.SlippageBps,
		AvgFillSlippageBps: out.AvgFillSlippageBps,
		HedgeNotionalUsd:   out.HedgeNotionalUsd,
	})

	if e.store != nil {
		fill := &models.HedgeFill{
			Vault:              id.String(),
			RequestID:          out.RequestID,
			RequestSlot:        requestSlot,
			FillSlot:           clk.Slot,
			RequestSpotPriceFp: requestSpotFp,
			FillPriceFp:        out.FillPriceFp,
			SlippageBps:        out.SlippageBps,
			HedgeDeltaUsd:      hedgeDeltaUsd,
			HedgeNotionalUsd:   out.HedgeNotionalUsd,
		}
		if err := e.store.SaveHedgeFill(ctx, fill); err != nil {
			e.logger.Warn("Failed to persist hedge fill",
				zap.String("vault", id.String()), zap.Uint64("request_id", out.RequestID), zap.Error(err))
		}
	}
	return out, nil
}

// admin runs a governance mutation and publishes the config-updated event.
func (e *Engine) admin(id solana.PublicKey, operation string, fn func(s *vault.State) error) error {
	inst, err := e.get(id)
	if err != nil {
		return err
	}
	clk := e.clock.Now()

	inst.mu.Lock()
	err = fn(inst.state)
	version, hash := inst.state.ConfigVersion, inst.state.ConfigHash
	inst.mu.Unlock()

	e.metrics.RecordOperation(operation, err)
	if err != nil {
		return err
	}
	e.publish(events.ConfigUpdatedEvent{
		BaseEvent:     e.base(events.ConfigUpdated, id, clk.Slot),
		Operation:     operation,
		ConfigVersion: version,
		ConfigHash:    hash,
	})
	return nil
}

// SetPaused flips the pause switch.
func (e *Engine) SetPaused(id, caller solana.PublicKey, paused bool) error {
	err := e.admin(id, "set_paused", func(s *vault.State) error {
		return s.SetPaused(caller, paused)
	})
	if err != nil {
		return err
	}
	e.publish(events.VaultPausedSetEvent{
		BaseEvent: e.base(events.VaultPausedSet, id, e.clock.Now().Slot),
		Paused:    paused,
	})
	return nil
}

// SetEmergencyWithdrawEnabled arms the escape hatch.
func (e *Engine) SetEmergencyWithdrawEnabled(id, caller solana.PublicKey, enabled bool) error {
	return e.admin(id, "set_emergency_withdraw", func(s *vault.State) error {
		return s.SetEmergencyWithdrawEnabled(caller, enabled)
	})
}

// SetPendingAuthority starts a two-step authority transfer.
func (e *Engine) SetPendingAuthority(id, caller, pending solana.PublicKey) error {
	return e.admin(id, "set_pending_authority", func(s *vault.State) error {
		return s.SetPendingAuthority(caller, pending)
	})
}

// AcceptAuthority completes a pending transfer.
func (e *Engine) AcceptAuthority(id, caller solana.PublicKey) error {
	var oldAuthority solana.PublicKey
	err := e.admin(id, "accept_authority", func(s *vault.State) error {
		oldAuthority = s.Authority
		return s.AcceptAuthority(caller)
	})
	if err != nil {
		return err
	}
	e.publish(events.AuthorityChangedEvent{
		BaseEvent:    e.base(events.AuthorityChanged, id, e.clock.Now().Slot),
		OldAuthority: oldAuthority,
		NewAuthority: caller,
	})
	return nil
}

// SetKeeperAdmin hands over keeper registry control.
func (e *Engine) SetKeeperAdmin(id, caller, admin solana.PublicKey) error {
	return e.admin(id, "set_keeper_admin", func(s *vault.State) error {
		return s.SetKeeperAdmin(caller, admin)
	})
}

// SetPolicyBounds replaces the band/interval bounds.
func (e *Engine) SetPolicyBounds(id, caller solana.PublicKey, minBandBps, maxBandBps uint16, minIntervalSlots, maxIntervalSlots uint64) error {
	return e.admin(id, "set_policy_bounds", func(s *vault.State) error {
		return s.SetPolicyBounds(caller, minBandBps, maxBandBps, minIntervalSlots, maxIntervalSlots)
	})
}

// SetPolicyStability replaces cooldown, slew and hysteresis.
func (e *Engine) SetPolicyStability(id, caller solana.PublicKey, policyUpdateMinSlots uint64, maxPolicySlewBps, hysteresisBps uint16) error {
	return e.admin(id, "set_policy_stability", func(s *vault.State) error {
		return s.SetPolicyStability(caller, policyUpdateMinSlots, maxPolicySlewBps, hysteresisBps)
	})
}

// SetVolModel replaces the estimator configuration.
func (e *Engine) SetVolModel(id, caller solana.PublicKey, mode vol.Mode, ewmaAlphaBps, wRealizedBps, wImpliedBps uint16, minSamples uint8, minReturnSpacingSlots uint64) error {
	return e.admin(id, "set_vol_model", func(s *vault.State) error {
		return s.SetVolModel(caller, mode, ewmaAlphaBps, wRealizedBps, wImpliedBps, minSamples, minReturnSpacingSlots)
	})
}

// SetOracleConfig replaces the gate thresholds.
func (e *Engine) SetOracleConfig(id, caller solana.PublicKey, cfg oracle.Config) error {
	return e.admin(id, "set_oracle_config", func(s *vault.State) error {
		return s.SetOracleConfig(caller, cfg)
	})
}

// SetHedgeSizing replaces delta target, beta and the drift breaker.
func (e *Engine) SetHedgeSizing(id, caller solana.PublicKey, targetDeltaBps uint16, lstBetaFp int64, extremeDriftBps uint16, action vault.ExtremeDriftAction) error {
	return e.admin(id, "set_hedge_sizing", func(s *vault.State) error {
		return s.SetHedgeSizing(caller, targetDeltaBps, lstBetaFp, extremeDriftBps, action)
	})
}

// SetRiskCaps replaces the exposure caps.
func (e *Engine) SetRiskCaps(id, caller solana.PublicKey, maxStakedSol uint64, maxAbsHedgeNotionalUsd, maxHedgePerSolUsdFp int64, minReserveBps uint16) error {
	return e.admin(id, "set_risk_caps", func(s *vault.State) error {
		return s.SetRiskCaps(caller, maxStakedSol, maxAbsHedgeNotionalUsd, maxHedgePerSolUsdFp, minReserveBps)
	})
}

// SetKeeperControls replaces the rate limit and bond requirement.
func (e *Engine) SetKeeperControls(id, caller solana.PublicKey, maxUpdatesPerEpoch uint16, keeperBondRequiredLamports uint64) error {
	return e.admin(id, "set_keeper_controls", func(s *vault.State) error {
		return s.SetKeeperControls(caller, maxUpdatesPerEpoch, keeperBondRequiredLamports)
	})
}

// SetConfirmConfig replaces the confirm window.
func (e *Engine) SetConfirmConfig(id, caller solana.PublicKey, maxConfirmDelaySlots uint64) error {
	return e.admin(id, "set_confirm_config", func(s *vault.State) error {
		return s.SetConfirmConfig(caller, maxConfirmDelaySlots)
	})
}

// AcknowledgeExtremeEvent clears the drift halt latch.
func (e *Engine) AcknowledgeExtremeEvent(id, caller solana.PublicKey) error {
	inst, err := e.get(id)
	if err != nil {
		return err
	}
	inst.mu.Lock()
	err = inst.state.AcknowledgeExtremeEvent(caller)
	inst.mu.Unlock()
	e.metrics.RecordOperation("acknowledge_extreme_event", err)
	return err
}

// AddKeeper registers a keeper.
func (e *Engine) AddKeeper(id, caller, keeper solana.PublicKey) error {
	var count uint8
	err := e.admin(id, "add_keeper", func(s *vault.State) error {
		if err := s.AddKeeper(caller, keeper); err != nil {
			return err
		}
		count = s.KeeperCount
		return nil
	})
	if err != nil {
		return err
	}
	e.publish(events.KeeperSetEvent{
		BaseEvent:   e.base(events.KeeperSet, id, e.clock.Now().Slot),
		Keeper:      keeper,
		Added:       true,
		KeeperCount: count,
	})
	return nil
}

// RemoveKeeper unregisters a keeper.
func (e *Engine) RemoveKeeper(id, caller, keeper solana.PublicKey) error {
	var count uint8
	err := e.admin(id, "remove_keeper", func(s *vault.State) error {
		if err := s.RemoveKeeper(caller, keeper); err != nil {
			return err
		}
		count = s.KeeperCount
		return nil
	})
	if err != nil {
		return err
	}
	e.publish(events.KeeperSetEvent{
		BaseEvent:   e.base(events.KeeperSet, id, e.clock.Now().Slot),
		Keeper:      keeper,
		Added:       false,
		KeeperCount: count,
	})
	return nil
}

// DepositKeeperBond credits a keeper's bond.
func (e *Engine) DepositKeeperBond(id, caller solana.PublicKey, lamports uint64) error {
	inst, err := e.get(id)
	if err != nil {
		return err
	}
	clk := e.clock.Now()

	inst.mu.Lock()
	err = inst.state.DepositKeeperBond(caller, lamports)
	var bond uint64
	if err == nil {
		for i := 0; i < int(inst.state.KeeperCount); i++ {
			if inst.state.Keepers[i].Equals(caller) {
				bond = inst.state.KeeperBondLamports[i]
				break
			}
		}
	}
	inst.mu.Unlock()

	e.metrics.RecordOperation("deposit_keeper_bond", err)
	if err != nil {
		return err
	}
	e.publish(events.KeeperBondUpdatedEvent{
		BaseEvent:    e.base(events.KeeperBondUpdated, id, clk.Slot),
		Keeper:       caller,
		BondLamports: bond,
	})
	return nil
}
