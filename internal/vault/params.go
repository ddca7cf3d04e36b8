// internal/vault/params.go
package vault

import (
	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/solana-vault/internal/fp"
	"github.com/rovshanmuradov/solana-vault/internal/oracle"
	"github.com/rovshanmuradov/solana-vault/internal/vol"
)

// InitializeParams carries every configurable knob of a new vault.
type InitializeParams struct {
	// Blend weights, must sum to 10000.
	VolWeightRealizedBps uint16
	VolWeightImpliedBps  uint16

	// Policy bounds.
	MinBandBps       uint16
	MaxBandBps       uint16
	MinIntervalSlots uint64
	MaxIntervalSlots uint64

	// Policy stability.
	PolicyUpdateMinSlots uint64
	MaxPolicySlewBps     uint16
	HysteresisBps        uint16

	// Oracle gating.
	OracleFeedChoice oracle.FeedChoice
	MaxPriceAgeSec   uint64
	MaxConfidenceBps uint16
	MaxPriceJumpBps  uint16

	// Circuit breaker.
	ExtremeDriftBps    uint16
	ExtremeDriftAction ExtremeDriftAction

	// Hedge sizing.
	TargetDeltaBps uint16
	LstBetaFp      int64

	// Volatility model.
	VolMode               vol.Mode
	EwmaAlphaBps          uint16
	MinSamples            uint8
	MinReturnSpacingSlots uint64

	// Risk caps.
	MaxStakedSol           uint64
	MaxAbsHedgeNotionalUsd int64
	MaxHedgePerSolUsdFp    int64
	MinReserveBps          uint16

	// Keeper controls.
	MaxUpdatesPerEpoch         uint16
	KeeperBondRequiredLamports uint64

	// Confirm window.
	MaxConfirmDelaySlots uint64
}

// Validate rejects any parameter set that could not hold the vault's
// invariants. Checks run in a fixed order so failures are reproducible.
func (p *InitializeParams) Validate() error {
	if uint32(p.VolWeightRealizedBps)+uint32(p.VolWeightImpliedBps) != fp.BpsDenom {
		return ErrInvalidParams
	}
	if p.MinBandBps > p.MaxBandBps || p.MaxBandBps > fp.MaxVolBps {
		return ErrInvalidParams
	}
	if p.MinIntervalSlots == 0 || p.MinIntervalSlots > p.MaxIntervalSlots {
		return ErrInvalidParams
	}
	if p.PolicyUpdateMinSlots == 0 {
		return ErrInvalidParams
	}
	if p.MaxPolicySlewBps == 0 || p.MaxPolicySlewBps > fp.BpsDenom {
		return ErrInvalidParams
	}
	if p.HysteresisBps > fp.BpsDenom {
		return ErrInvalidParams
	}
	if !p.OracleFeedChoice.Valid() {
		return ErrInvalidParams
	}
	if p.MaxPriceAgeSec == 0 {
		return ErrInvalidParams
	}
	if p.MaxConfidenceBps == 0 || p.MaxConfidenceBps > fp.BpsDenom {
		return ErrInvalidParams
	}
	if p.MaxPriceJumpBps == 0 || p.MaxPriceJumpBps > fp.BpsDenom {
		return ErrInvalidParams
	}
	if p.ExtremeDriftBps == 0 || p.ExtremeDriftBps > fp.BpsDenom {
		return ErrInvalidParams
	}
	if !p.ExtremeDriftAction.Valid() {
		return ErrInvalidParams
	}
	if p.TargetDeltaBps > fp.BpsDenom {
		return ErrInvalidParams
	}
	if p.LstBetaFp <= 0 {
		return ErrInvalidParams
	}
	if !p.VolMode.Valid() {
		return ErrInvalidParams
	}
	if p.EwmaAlphaBps == 0 || p.EwmaAlphaBps > fp.BpsDenom {
		return ErrInvalidParams
	}
	if p.MinSamples == 0 || int(p.MinSamples) > vol.NReturns {
		return ErrInvalidParams
	}
	if p.MaxStakedSol == 0 {
		return ErrInvalidParams
	}
	if p.MaxAbsHedgeNotionalUsd <= 0 {
		return ErrInvalidParams
	}
	if p.MaxHedgePerSolUsdFp <= 0 {
		return ErrInvalidParams
	}
	if p.MinReserveBps > fp.BpsDenom {
		return ErrInvalidParams
	}
	if p.MaxUpdatesPerEpoch == 0 {
		return ErrInvalidParams
	}
	if p.MaxConfirmDelaySlots == 0 {
		return ErrInvalidParams
	}
	return nil
}

// New builds an initialized vault. The authority also starts as the keeper
// admin; policy outputs seed at the conservative edge of their bounds.
func New(authority solana.PublicKey, p InitializeParams) (*State, error) {
	if authority.IsZero() {
		return nil, ErrInvalidParams
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	s := &State{
		Authority:   authority,
		KeeperAdmin: authority,

		VolWeightRealizedBps: p.VolWeightRealizedBps,
		VolWeightImpliedBps:  p.VolWeightImpliedBps,

		MinBandBps:       p.MinBandBps,
		MaxBandBps:       p.MaxBandBps,
		MinIntervalSlots: p.MinIntervalSlots,
		MaxIntervalSlots: p.MaxIntervalSlots,

		PolicyUpdateMinSlots: p.PolicyUpdateMinSlots,
		MaxPolicySlewBps:     p.MaxPolicySlewBps,
		HysteresisBps:        p.HysteresisBps,

		Oracle: oracle.Config{
			Choice:           p.OracleFeedChoice,
			MaxPriceAgeSec:   p.MaxPriceAgeSec,
			MaxConfidenceBps: p.MaxConfidenceBps,
			MaxPriceJumpBps:  p.MaxPriceJumpBps,
		},

		ExtremeDriftBps:    p.ExtremeDriftBps,
		ExtremeDriftAction: p.ExtremeDriftAction,

		TargetDeltaBps: p.TargetDeltaBps,
		LstBetaFp:      p.LstBetaFp,

		VolMode:               p.VolMode,
		EwmaAlphaBps:          p.EwmaAlphaBps,
		MinSamples:            p.MinSamples,
		MinReturnSpacingSlots: p.MinReturnSpacingSlots,

		MaxStakedSol:           p.MaxStakedSol,
		MaxAbsHedgeNotionalUsd: p.MaxAbsHedgeNotionalUsd,
		MaxHedgePerSolUsdFp:    p.MaxHedgePerSolUsdFp,
		MinReserveBps:          p.MinReserveBps,

		MaxUpdatesPerEpoch:         p.MaxUpdatesPerEpoch,
		KeeperBondRequiredLamports: p.KeeperBondRequiredLamports,

		MaxConfirmDelaySlots: p.MaxConfirmDelaySlots,

		// Seed outputs at the calm edge; the first policy tick re-maps them.
		BandBps:               p.MinBandBps,
		MinHedgeIntervalSlots: p.MinIntervalSlots,
	}
	s.bumpConfig()
	return s, nil
}
