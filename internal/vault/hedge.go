// internal/vault/hedge.go
package vault

import (
	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/solana-vault/internal/fp"
	"github.com/rovshanmuradov/solana-vault/internal/oracle"
)

// HedgeRequestOutcome reports what one request attempt produced.
type HedgeRequestOutcome struct {
	RequestID              uint64
	DriftBps               uint16
	TargetHedgeNotionalUsd int64
	DeltaGapUsd            int64

	ExtremeDrift bool

	// Set when a stale outstanding request was lazily expired on the way in.
	ExpiredRequestID uint64
	MissedConfirms   uint32
}

// HedgeConfirmOutcome reports an accepted fill.
type HedgeConfirmOutcome struct {
	RequestID          uint64
	FillPriceFp        int64
	SlippageBps        uint16
	AvgFillSlippageBps uint16
	HedgeNotionalUsd   int64
	HedgeFillCount     uint64
}

// targetHedgeNotional sizes the short that neutralizes targetDeltaBps of the
// staked exposure, scaled by the LST beta:
//
//	-(staked_usd · targetDelta/10000 · beta/1e6)
func (s *State) targetHedgeNotional() int64 {
	stakedUsd := solValueUsd(s.StakedSol, s.SpotPriceFp)
	n := fp.MulDivI64(stakedUsd, int64(s.TargetDeltaBps), fp.BpsDenom)
	n = fp.MulDivI64(n, s.LstBetaFp, fp.Scale)
	return -n
}

// RequestHedge opens (or supersedes) a hedge request when the EMA price has
// drifted past the policy band since the last hedge and the minimum interval
// has elapsed. A stale outstanding request is expired here rather than by a
// timer, counting a missed confirm. All rejecting checks run before any
// mutation; the halt latch is the one error path that records state, because
// the latch itself is the circuit breaker.
func (s *State) RequestHedge(caller solana.PublicKey, clk Clock) (HedgeRequestOutcome, error) {
	if err := s.requireNotPaused(); err != nil {
		return HedgeRequestOutcome{}, err
	}
	if err := s.requireFeeder(caller); err != nil {
		return HedgeRequestOutcome{}, err
	}
	if err := s.checkKeeperGate(caller); err != nil {
		return HedgeRequestOutcome{}, err
	}
	if s.ExtremeEventPending {
		return HedgeRequestOutcome{}, ErrExtremeDriftHalted
	}
	if !s.OracleOk || s.EmaPriceFp <= 0 {
		return HedgeRequestOutcome{}, ErrOracleNotReady
	}
	if clk.Slot < s.LastHedgeSlot || clk.Slot-s.LastHedgeSlot < s.MinHedgeIntervalSlots {
		return HedgeRequestOutcome{}, ErrHedgeTooSoon
	}

	drift := oracle.DriftBps(s.EmaPriceFp, s.LastHedgeEmaPriceFp)
	if drift < s.BandBps {
		return HedgeRequestOutcome{}, ErrDriftNotMet
	}

	out := HedgeRequestOutcome{DriftBps: drift}

	target := s.targetHedgeNotional()
	if !s.leverageOk(target) {
		return out, ErrLeverageExceeded
	}
	target = s.clampHedgeNotional(target)

	// No anchor yet means the sentinel 10000 drift; that is a first hedge,
	// not an anomaly.
	if s.LastHedgeEmaPriceFp > 0 && drift >= s.ExtremeDriftBps {
		out.ExtremeDrift = true
		s.ExtremeEventCount++
		if s.ExtremeDriftAction == DriftActionHalt {
			s.ExtremeEventPending = true
			return out, ErrExtremeDriftHalted
		}
	}

	// Expire a stale outstanding request in passing.
	if s.RequestOutstanding && clk.Slot-s.RequestSlot > s.MaxConfirmDelaySlots {
		s.RequestOutstanding = false
		s.MissedConfirms++
		out.ExpiredRequestID = s.LastHedgeRequestID
		out.MissedConfirms = s.MissedConfirms
	}

	s.LastHedgeRequestID++
	s.RequestOutstanding = true
	s.RequestSlot = clk.Slot
	s.RequestSpotPriceFp = s.SpotPriceFp
	s.TargetHedgeNotionalUsd = target
	s.LastHedgeSlot = clk.Slot
	s.LastHedgeEmaPriceFp = s.EmaPriceFp

	out.RequestID = s.LastHedgeRequestID
	out.TargetHedgeNotionalUsd = target
	out.DeltaGapUsd = target - s.HedgeNotionalUsd

	s.bumpKeeperActivity(caller, clk)
	return out, nil
}

// ConfirmHedge applies a fill against the outstanding request. The confirm
// window is enforced here too: an expired confirm consumes the request and
// counts a missed confirm while still returning an error, so the keeper
// learns the fill was lost.
func (s *State) ConfirmHedge(caller solana.PublicKey, requestID uint64, fillPriceFp int64, hedgeDeltaUsd int64, clk Clock) (HedgeConfirmOutcome, error) {
	if err := s.requireNotPaused(); err != nil {
		return HedgeConfirmOutcome{}, err
	}
	if err := s.requireFeeder(caller); err != nil {
		return HedgeConfirmOutcome{}, err
	}
	if err := s.checkKeeperGate(caller); err != nil {
		return HedgeConfirmOutcome{}, err
	}
	if fillPriceFp <= 0 || fillPriceFp > fp.MaxPriceFp {
		return HedgeConfirmOutcome{}, ErrInvalidParams
	}
	if !s.RequestOutstanding {
		return HedgeConfirmOutcome{}, ErrNoOutstandingRequest
	}
	if requestID != s.LastHedgeRequestID {
		return HedgeConfirmOutcome{}, ErrWrongRequestID
	}
	if clk.Slot < s.RequestSlot || clk.Slot-s.RequestSlot > s.MaxConfirmDelaySlots {
		s.RequestOutstanding = false
		s.MissedConfirms++
		return HedgeConfirmOutcome{}, ErrConfirmExpired
	}

	newNotional := s.HedgeNotionalUsd + hedgeDeltaUsd
	if fp.AbsI64(newNotional) > s.MaxAbsHedgeNotionalUsd {
		return HedgeConfirmOutcome{}, ErrCapExceeded
	}
	if !s.leverageOk(newNotional) {
		return HedgeConfirmOutcome{}, ErrLeverageExceeded
	}

	slippage := oracle.DriftBps(fillPriceFp, s.RequestSpotPriceFp)

	s.HedgeNotionalUsd = newNotional
	s.RequestOutstanding = false
	s.LastFillSlot = clk.Slot

	// Incremental mean keeps the average exact without storing fills.
	total := uint64(s.AvgFillSlippageBps)*s.HedgeFillCount + uint64(slippage)
	s.HedgeFillCount++
	s.AvgFillSlippageBps = uint16(total / s.HedgeFillCount)

	s.bumpKeeperActivity(caller, clk)
	return HedgeConfirmOutcome{
		RequestID:          requestID,
		FillPriceFp:        fillPriceFp,
		SlippageBps:        slippage,
		AvgFillSlippageBps: s.AvgFillSlippageBps,
		HedgeNotionalUsd:   newNotional,
		HedgeFillCount:     s.HedgeFillCount,
	}, nil
}
