// internal/vault/oracle.go
package vault

import (
	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/solana-vault/internal/oracle"
	"github.com/rovshanmuradov/solana-vault/internal/vol"
)

// OracleOutcome reports what one update attempt did, for events and metrics.
type OracleOutcome struct {
	Accepted bool
	Feed     oracle.Feed
	Reason   oracle.RejectReason

	PriceFp      int64
	EmaPriceFp   int64
	ConfidenceFp int64
	PublishTime  int64

	ReturnRecorded bool
	ReturnFp       int32
	ReturnIndex    int
	NonzeroSamples uint16
}

// UpdateOraclePrice runs the gate over the supplied observations and, on
// acceptance, refreshes the price snapshot, advances the EMA and feeds the
// returns ring. A rejected update only flips the ok/degraded flags; the last
// accepted snapshot stays untouched so downstream reads keep a usable price.
// Rejection is not an error: the vault degrades instead of failing the call.
func (s *State) UpdateOraclePrice(caller solana.PublicKey, usd, usdc *oracle.Observation, clk Clock) (OracleOutcome, error) {
	if err := s.requireNotPaused(); err != nil {
		return OracleOutcome{}, err
	}
	if err := s.requireFeeder(caller); err != nil {
		return OracleOutcome{}, err
	}
	if err := s.checkKeeperGate(caller); err != nil {
		return OracleOutcome{}, err
	}

	res := oracle.Evaluate(s.Oracle, usd, usdc, clk.Unix, s.LastAcceptedPriceFp)
	out := OracleOutcome{
		Accepted:     res.OK,
		Feed:         res.Feed,
		Reason:       res.Reason,
		PriceFp:      res.PriceFp,
		ConfidenceFp: res.ConfidenceFp,
		PublishTime:  res.PublishTime,
	}

	if !res.OK {
		s.OracleOk = false
		s.OracleDegraded = true
		s.bumpKeeperActivity(caller, clk)
		return out, nil
	}

	s.OracleOk = true
	s.OracleDegraded = false
	s.SpotPriceFp = res.PriceFp
	s.ConfidenceFp = res.ConfidenceFp
	s.PublishTimeSec = res.PublishTime
	s.EmaPriceFp = oracle.NextEma(s.EmaPriceFp, res.PriceFp)
	s.LastAcceptedPriceFp = res.PriceFp
	out.EmaPriceFp = s.EmaPriceFp

	s.recordReturn(res.PriceFp, clk, &out)
	s.bumpKeeperActivity(caller, clk)
	return out, nil
}

// recordReturn pushes a spaced return into the ring. The first accepted price
// only seeds the basis; returns are computed against the last recorded price,
// not the last accepted one, so rejected updates cannot skew sampling.
func (s *State) recordReturn(priceFp int64, clk Clock, out *OracleOutcome) {
	if !s.Ring.Accepts(clk.Slot, s.MinReturnSpacingSlots) {
		return
	}
	if s.LastReturnPriceFp <= 0 {
		s.LastReturnPriceFp = priceFp
		s.Ring.LastRecordedSlot = clk.Slot
		return
	}
	ret := vol.ReturnFp(priceFp, s.LastReturnPriceFp)
	idx := s.Ring.Record(clk.Slot, ret)
	s.LastReturnPriceFp = priceFp
	if s.VolMode == vol.ModeEwma {
		s.EwmaVarFp2 = vol.EwmaVarUpdate(s.EwmaVarFp2, ret, s.EwmaAlphaBps)
	}
	out.ReturnRecorded = true
	out.ReturnFp = ret
	out.ReturnIndex = idx
	out.NonzeroSamples = s.Ring.NonzeroSamples
}
