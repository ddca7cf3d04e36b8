// internal/vault/admin.go
package vault

import (
	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/solana-vault/internal/fp"
	"github.com/rovshanmuradov/solana-vault/internal/oracle"
	"github.com/rovshanmuradov/solana-vault/internal/policy"
	"github.com/rovshanmuradov/solana-vault/internal/vol"
)

// SetPaused flips the global pause switch. Pausing is always allowed, even
// while paused, so the authority can never lock itself out.
func (s *State) SetPaused(caller solana.PublicKey, paused bool) error {
	if err := s.requireAuthority(caller); err != nil {
		return err
	}
	s.Paused = paused
	s.bumpConfig()
	return nil
}

// SetEmergencyWithdrawEnabled arms or disarms the emergency escape hatch.
func (s *State) SetEmergencyWithdrawEnabled(caller solana.PublicKey, enabled bool) error {
	if err := s.requireAuthority(caller); err != nil {
		return err
	}
	s.EmergencyWithdrawEnabled = enabled
	s.bumpConfig()
	return nil
}

// SetPendingAuthority starts a two-step authority transfer. Passing the zero
// key cancels a pending transfer.
func (s *State) SetPendingAuthority(caller, pending solana.PublicKey) error {
	if err := s.requireAuthority(caller); err != nil {
		return err
	}
	if pending.Equals(s.Authority) {
		return ErrInvalidParams
	}
	s.PendingAuthority = pending
	s.bumpConfig()
	return nil
}

// AcceptAuthority completes the transfer; only the pending key may call it.
func (s *State) AcceptAuthority(caller solana.PublicKey) error {
	if s.PendingAuthority.IsZero() || !caller.Equals(s.PendingAuthority) {
		return ErrUnauthorized
	}
	s.Authority = s.PendingAuthority
	s.PendingAuthority = solana.PublicKey{}
	// The keeper admin role follows the authority by default; the new
	// authority can delegate it again with SetKeeperAdmin.
	s.KeeperAdmin = s.Authority
	s.bumpConfig()
	return nil
}

// SetKeeperAdmin hands keeper registry control to a new key.
func (s *State) SetKeeperAdmin(caller, admin solana.PublicKey) error {
	if err := s.requireAuthority(caller); err != nil {
		return err
	}
	if admin.IsZero() {
		return ErrInvalidParams
	}
	s.KeeperAdmin = admin
	s.bumpConfig()
	return nil
}

// SetPolicyBounds replaces the band/interval bounds and immediately re-clamps
// the live outputs into the new range so the invariants hold without waiting
// for the next policy tick.
func (s *State) SetPolicyBounds(caller solana.PublicKey, minBandBps, maxBandBps uint16, minIntervalSlots, maxIntervalSlots uint64) error {
	if err := s.requireAuthority(caller); err != nil {
		return err
	}
	if minBandBps > maxBandBps || maxBandBps > fp.MaxVolBps {
		return ErrInvalidParams
	}
	if minIntervalSlots == 0 || minIntervalSlots > maxIntervalSlots {
		return ErrInvalidParams
	}
	s.MinBandBps = minBandBps
	s.MaxBandBps = maxBandBps
	s.MinIntervalSlots = minIntervalSlots
	s.MaxIntervalSlots = maxIntervalSlots
	s.BandBps = policy.ClampU16(s.BandBps, minBandBps, maxBandBps)
	s.MinHedgeIntervalSlots = policy.ClampU64(s.MinHedgeIntervalSlots, minIntervalSlots, maxIntervalSlots)
	s.bumpConfig()
	return nil
}

// SetPolicyStability replaces the cooldown, slew and hysteresis knobs.
func (s *State) SetPolicyStability(caller solana.PublicKey, policyUpdateMinSlots uint64, maxPolicySlewBps, hysteresisBps uint16) error {
	if err := s.requireAuthority(caller); err != nil {
		return err
	}
	if policyUpdateMinSlots == 0 {
		return ErrInvalidParams
	}
	if maxPolicySlewBps == 0 || maxPolicySlewBps > fp.BpsDenom {
		return ErrInvalidParams
	}
	if hysteresisBps > fp.BpsDenom {
		return ErrInvalidParams
	}
	s.PolicyUpdateMinSlots = policyUpdateMinSlots
	s.MaxPolicySlewBps = maxPolicySlewBps
	s.HysteresisBps = hysteresisBps
	s.bumpConfig()
	return nil
}

// SetVolModel replaces the estimator and blend weights. Switching estimators
// resets the EWMA accumulator so a stale variance cannot leak across modes.
func (s *State) SetVolModel(caller solana.PublicKey, mode vol.Mode, ewmaAlphaBps, wRealizedBps, wImpliedBps uint16, minSamples uint8, minReturnSpacingSlots uint64) error {
	if err := s.requireAuthority(caller); err != nil {
		return err
	}
	if !mode.Valid() {
		return ErrInvalidParams
	}
	if ewmaAlphaBps == 0 || ewmaAlphaBps > fp.BpsDenom {
		return ErrInvalidParams
	}
	if uint32(wRealizedBps)+uint32(wImpliedBps) != fp.BpsDenom {
		return ErrInvalidParams
	}
	if minSamples == 0 || int(minSamples) > vol.NReturns {
		return ErrInvalidParams
	}
	if mode != s.VolMode {
		s.EwmaVarFp2 = 0
	}
	s.VolMode = mode
	s.EwmaAlphaBps = ewmaAlphaBps
	s.VolWeightRealizedBps = wRealizedBps
	s.VolWeightImpliedBps = wImpliedBps
	s.MinSamples = minSamples
	s.MinReturnSpacingSlots = minReturnSpacingSlots
	s.bumpConfig()
	return nil
}

// SetOracleConfig replaces the gating thresholds.
func (s *State) SetOracleConfig(caller solana.PublicKey, cfg oracle.Config) error {
	if err := s.requireAuthority(caller); err != nil {
		return err
	}
	if !cfg.Choice.Valid() || cfg.MaxPriceAgeSec == 0 {
		return ErrInvalidParams
	}
	if cfg.MaxConfidenceBps == 0 || cfg.MaxConfidenceBps > fp.BpsDenom {
		return ErrInvalidParams
	}
	if cfg.MaxPriceJumpBps == 0 || cfg.MaxPriceJumpBps > fp.BpsDenom {
		return ErrInvalidParams
	}
	s.Oracle = cfg
	s.bumpConfig()
	return nil
}

// SetHedgeSizing replaces the delta target, beta and drift circuit breaker.
func (s *State) SetHedgeSizing(caller solana.PublicKey, targetDeltaBps uint16, lstBetaFp int64, extremeDriftBps uint16, action ExtremeDriftAction) error {
	if err := s.requireAuthority(caller); err != nil {
		return err
	}
	if targetDeltaBps > fp.BpsDenom || lstBetaFp <= 0 {
		return ErrInvalidParams
	}
	if extremeDriftBps == 0 || extremeDriftBps > fp.BpsDenom {
		return ErrInvalidParams
	}
	if !action.Valid() {
		return ErrInvalidParams
	}
	s.TargetDeltaBps = targetDeltaBps
	s.LstBetaFp = lstBetaFp
	s.ExtremeDriftBps = extremeDriftBps
	s.ExtremeDriftAction = action
	s.bumpConfig()
	return nil
}

// SetRiskCaps replaces the exposure caps. Caps may only tighten past current
// exposure if the exposure still satisfies them, so the vault never enters a
// silently violated state.
func (s *State) SetRiskCaps(caller solana.PublicKey, maxStakedSol uint64, maxAbsHedgeNotionalUsd, maxHedgePerSolUsdFp int64, minReserveBps uint16) error {
	if err := s.requireAuthority(caller); err != nil {
		return err
	}
	if maxStakedSol == 0 || maxAbsHedgeNotionalUsd <= 0 || maxHedgePerSolUsdFp <= 0 {
		return ErrInvalidParams
	}
	if minReserveBps > fp.BpsDenom {
		return ErrInvalidParams
	}
	if s.StakedSol > maxStakedSol {
		return ErrCapExceeded
	}
	if fp.AbsI64(s.HedgeNotionalUsd) > maxAbsHedgeNotionalUsd {
		return ErrCapExceeded
	}
	s.MaxStakedSol = maxStakedSol
	s.MaxAbsHedgeNotionalUsd = maxAbsHedgeNotionalUsd
	s.MaxHedgePerSolUsdFp = maxHedgePerSolUsdFp
	s.MinReserveBps = minReserveBps
	s.bumpConfig()
	return nil
}

// SetKeeperControls replaces the rate limit and bond requirement.
func (s *State) SetKeeperControls(caller solana.PublicKey, maxUpdatesPerEpoch uint16, keeperBondRequiredLamports uint64) error {
	if err := s.requireAuthority(caller); err != nil {
		return err
	}
	if maxUpdatesPerEpoch == 0 {
		return ErrInvalidParams
	}
	s.MaxUpdatesPerEpoch = maxUpdatesPerEpoch
	s.KeeperBondRequiredLamports = keeperBondRequiredLamports
	s.bumpConfig()
	return nil
}

// SetConfirmConfig replaces the confirm window.
func (s *State) SetConfirmConfig(caller solana.PublicKey, maxConfirmDelaySlots uint64) error {
	if err := s.requireAuthority(caller); err != nil {
		return err
	}
	if maxConfirmDelaySlots == 0 {
		return ErrInvalidParams
	}
	s.MaxConfirmDelaySlots = maxConfirmDelaySlots
	s.bumpConfig()
	return nil
}

// AcknowledgeExtremeEvent clears the halt latch set by an extreme drift under
// DriftActionHalt, re-enabling hedge requests.
func (s *State) AcknowledgeExtremeEvent(caller solana.PublicKey) error {
	if err := s.requireAuthority(caller); err != nil {
		return err
	}
	if !s.ExtremeEventPending {
		return ErrInvalidParams
	}
	s.ExtremeEventPending = false
	return nil
}
