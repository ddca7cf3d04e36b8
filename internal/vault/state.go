// internal/vault/state.go
// Package vault holds the deterministic state machine of the
// volatility-weighted hedge vault: oracle snapshot, returns ring, blended
// volatility score, policy outputs, hedge request/confirm protocol, risk
// guardrails and the bonded keeper registry. All transitions are pure
// functions of (state, inputs, clock); nothing in this package touches the
// network or the wall clock.
package vault

import (
	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/solana-vault/internal/oracle"
	"github.com/rovshanmuradov/solana-vault/internal/vol"
)

// MaxKeepers is the fixed capacity of the keeper registry.
const MaxKeepers = 8

// ExtremeDriftAction selects what an extreme price drift does to hedging.
type ExtremeDriftAction uint8

const (
	// DriftActionFlag records the anomaly and lets the request proceed.
	DriftActionFlag ExtremeDriftAction = 0
	// DriftActionHalt rejects the request and freezes hedging until the
	// authority acknowledges the event.
	DriftActionHalt ExtremeDriftAction = 1
)

func (a ExtremeDriftAction) Valid() bool {
	return a == DriftActionFlag || a == DriftActionHalt
}

func (a ExtremeDriftAction) String() string {
	switch a {
	case DriftActionFlag:
		return "flag"
	case DriftActionHalt:
		return "halt"
	default:
		return "unknown"
	}
}

// State is the full vault account. Field widths mirror the on-chain layout:
// bps values are uint16, slot counts uint64, fixed-point prices int64 (1e6),
// notionals signed int64 USD.
type State struct {
	// Roles.
	Authority        solana.PublicKey
	PendingAuthority solana.PublicKey
	KeeperAdmin      solana.PublicKey

	// Config identity, bumped on every parameter change.
	ConfigVersion uint64
	ConfigHash    [32]byte

	// Epoch and policy cooldown.
	Epoch                uint64
	LastPolicyUpdateSlot uint64

	// Exposures.
	StakedSol         uint64 // lamports
	ReserveSol        uint64 // lamports
	HedgeNotionalUsd  int64  // signed; shorts are negative
	DepositCount      uint64
	TotalDepositedSol uint64

	// Risk caps.
	MaxStakedSol           uint64
	MaxAbsHedgeNotionalUsd int64
	MaxHedgePerSolUsdFp    int64 // fixed-point 1e6 USD per SOL
	MinReserveBps          uint16

	// Returns ring and sampling controls.
	Ring                  vol.Ring
	MinSamples            uint8
	MinReturnSpacingSlots uint64

	// Volatility model.
	VolMode      vol.Mode
	EwmaAlphaBps uint16
	EwmaVarFp2   uint64

	// Volatility outputs.
	RealizedVolBps            uint16
	ImpliedVolBps             uint16
	VolScoreBps               uint16
	LastVolScoreUsedForPolicy uint16

	// Blend weights (sum to 10000).
	VolWeightRealizedBps uint16
	VolWeightImpliedBps  uint16

	// Policy bounds.
	MinBandBps       uint16
	MaxBandBps       uint16
	MinIntervalSlots uint64
	MaxIntervalSlots uint64

	// Policy outputs.
	BandBps               uint16
	MinHedgeIntervalSlots uint64

	// Policy stability controls.
	PolicyUpdateMinSlots uint64
	MaxPolicySlewBps     uint16
	HysteresisBps        uint16

	// Oracle gating config and latest accepted snapshot.
	Oracle              oracle.Config
	SpotPriceFp         int64
	EmaPriceFp          int64
	ConfidenceFp        int64
	PublishTimeSec      int64
	OracleOk            bool
	OracleDegraded      bool
	LastAcceptedPriceFp int64 // jump-bound anchor
	LastReturnPriceFp   int64 // basis for the next recorded return

	// Circuit breaker.
	ExtremeDriftBps     uint16
	ExtremeDriftAction  ExtremeDriftAction
	ExtremeEventPending bool
	ExtremeEventCount   uint64

	// Hedge sizing.
	TargetDeltaBps uint16
	LstBetaFp      int64 // fixed-point 1e6

	// Carry inputs, bps per day.
	FundingBpsPerDay int32
	BorrowBpsPerDay  int32
	StakingBpsPerDay int32

	// Hedge anchors.
	LastHedgeSlot       uint64
	LastHedgeEmaPriceFp int64

	// Two-phase hedge protocol.
	RequestOutstanding     bool
	LastHedgeRequestID     uint64
	RequestSlot            uint64
	RequestSpotPriceFp     int64
	TargetHedgeNotionalUsd int64
	MaxConfirmDelaySlots   uint64

	// Fill statistics.
	LastFillSlot       uint64
	HedgeFillCount     uint64
	AvgFillSlippageBps uint16
	MissedConfirms     uint32

	// Lifecycle.
	Paused                   bool
	EmergencyWithdrawEnabled bool

	// Keeper registry.
	Keepers                    [MaxKeepers]solana.PublicKey
	KeeperCount                uint8
	KeeperHeartbeatSlot        [MaxKeepers]uint64
	KeeperUpdatesThisEpoch     [MaxKeepers]uint16
	KeeperBondLamports         [MaxKeepers]uint64
	MaxUpdatesPerEpoch         uint16
	KeeperBondRequiredLamports uint64
}

// requireNotPaused gates every non-admin mutation.
func (s *State) requireNotPaused() error {
	if s.Paused {
		return ErrPaused
	}
	return nil
}

// requireAuthority gates governance operations.
func (s *State) requireAuthority(caller solana.PublicKey) error {
	if !caller.Equals(s.Authority) {
		return ErrUnauthorized
	}
	return nil
}
