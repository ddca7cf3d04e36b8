// internal/vault/policy.go
package vault

import (
	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/solana-vault/internal/policy"
	"github.com/rovshanmuradov/solana-vault/internal/vol"
)

// PolicyOutcome reports what one epoch tick did, for events and metrics.
type PolicyOutcome struct {
	Epoch  uint64
	Frozen bool // oracle degraded: counters reset, outputs untouched

	RealizedRecomputed bool
	RealizedVolBps     uint16
	VolScoreBps        uint16
	HysteresisPassed   bool
	ExpectedCarryBps   int32

	BandBps               uint16
	MinHedgeIntervalSlots uint64

	NavUsd          int64
	StakedValueUsd  int64
	ReserveValueUsd int64
}

// UpdateEpochAndPolicy advances the epoch and re-derives the policy outputs
// from the blended volatility score. While the oracle is degraded the epoch
// still advances and keeper counters still reset, but band and interval stay
// frozen and the cooldown anchor is not consumed, so a healthy tick can run
// as soon as the oracle recovers.
func (s *State) UpdateEpochAndPolicy(caller solana.PublicKey, clk Clock) (PolicyOutcome, error) {
	if err := s.requireNotPaused(); err != nil {
		return PolicyOutcome{}, err
	}
	if err := s.requireFeeder(caller); err != nil {
		return PolicyOutcome{}, err
	}
	if err := s.checkKeeperGate(caller); err != nil {
		return PolicyOutcome{}, err
	}
	// The cooldown only applies once a tick has run; a fresh vault may tick
	// immediately.
	if s.LastPolicyUpdateSlot != 0 &&
		(clk.Slot < s.LastPolicyUpdateSlot || clk.Slot-s.LastPolicyUpdateSlot < s.PolicyUpdateMinSlots) {
		return PolicyOutcome{}, ErrPolicyCooldown
	}

	s.Epoch++
	for i := range s.KeeperUpdatesThisEpoch {
		s.KeeperUpdatesThisEpoch[i] = 0
	}

	out := PolicyOutcome{
		Epoch:                 s.Epoch,
		RealizedVolBps:        s.RealizedVolBps,
		VolScoreBps:           s.VolScoreBps,
		BandBps:               s.BandBps,
		MinHedgeIntervalSlots: s.MinHedgeIntervalSlots,
		ExpectedCarryBps:      s.ExpectedCarryBps(),
	}

	if s.OracleDegraded || !s.OracleOk {
		out.Frozen = true
		s.bumpKeeperActivity(caller, clk)
		return out, nil
	}

	if s.Ring.NonzeroSamples >= uint16(s.MinSamples) {
		s.RealizedVolBps = vol.RealizedVolBps(s.VolMode, &s.Ring, s.EwmaVarFp2)
		out.RealizedRecomputed = true
		out.RealizedVolBps = s.RealizedVolBps
	}

	score := vol.BlendScoreBps(s.RealizedVolBps, s.ImpliedVolBps, s.VolWeightRealizedBps, s.VolWeightImpliedBps)
	s.VolScoreBps = score
	out.VolScoreBps = score

	firstPass := s.LastVolScoreUsedForPolicy == 0
	if firstPass || policy.HysteresisPass(score, s.LastVolScoreUsedForPolicy, s.HysteresisBps) {
		out.HysteresisPassed = true

		targetBand := policy.MapBandBps(score, s.MinBandBps, s.MaxBandBps)
		targetInterval := policy.MapIntervalSlots(score, s.MinIntervalSlots, s.MaxIntervalSlots)

		bandBias, intervalBias := policy.CarryBiasBps(out.ExpectedCarryBps)
		targetBand = policy.ClampU16(policy.ApplyBiasU16(targetBand, bandBias), s.MinBandBps, s.MaxBandBps)
		targetInterval = policy.ClampU64(policy.ApplyBiasU64(targetInterval, intervalBias), s.MinIntervalSlots, s.MaxIntervalSlots)

		s.BandBps = policy.SlewBandBps(s.BandBps, targetBand, s.MaxPolicySlewBps)
		s.MinHedgeIntervalSlots = policy.SlewIntervalSlots(s.MinHedgeIntervalSlots, targetInterval, s.MaxPolicySlewBps)
		s.LastVolScoreUsedForPolicy = score

		out.BandBps = s.BandBps
		out.MinHedgeIntervalSlots = s.MinHedgeIntervalSlots
	}

	s.LastPolicyUpdateSlot = clk.Slot

	out.StakedValueUsd = s.StakedValueUsd()
	out.ReserveValueUsd = s.ReserveValueUsd()
	out.NavUsd = s.NavUsd()

	s.bumpKeeperActivity(caller, clk)
	return out, nil
}
