// internal/events/types.go
package events

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// EventType represents the type of event.
type EventType string

const (
	// Vault lifecycle
	VaultInitialized EventType = "vault.initialized"
	VaultPausedSet   EventType = "vault.paused_set"
	ConfigUpdated    EventType = "vault.config_updated"
	AuthorityChanged EventType = "vault.authority_changed"

	// Deposits
	DepositMade EventType = "vault.deposit"

	// Oracle events
	OraclePriceUpdated   EventType = "oracle.price_updated"
	OracleDegraded       EventType = "oracle.degraded"
	OracleReturnRecorded EventType = "oracle.return_recorded"

	// Policy events
	EpochUpdated  EventType = "policy.epoch_updated"
	PolicyUpdated EventType = "policy.updated"
	PolicyFrozen  EventType = "policy.frozen"
	NavSnapshot   EventType = "policy.nav_snapshot"

	// Hedge events
	HedgeRequested     EventType = "hedge.requested"
	HedgeConfirmed     EventType = "hedge.confirmed"
	HedgeConfirmMissed EventType = "hedge.confirm_missed"
	ExtremeDriftSeen   EventType = "hedge.extreme_drift"

	// Keeper events
	KeeperSet         EventType = "keeper.set"
	KeeperBondUpdated EventType = "keeper.bond_updated"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
	Origin() (vault solana.PublicKey, slot uint64)
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
	Vault     solana.PublicKey
	Slot      uint64
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// Origin identifies the vault the event concerns and the slot it was stamped
// at, for log correlation.
func (e BaseEvent) Origin() (solana.PublicKey, uint64) {
	return e.Vault, e.Slot
}

// VaultInitializedEvent is emitted once per vault.
type VaultInitializedEvent struct {
	BaseEvent
	Authority     solana.PublicKey
	ConfigVersion uint64
	ConfigHash    [32]byte
}

// VaultPausedSetEvent is emitted when the pause switch flips.
type VaultPausedSetEvent struct {
	BaseEvent
	Paused bool
}

// ConfigUpdatedEvent is emitted after every governance change.
type ConfigUpdatedEvent struct {
	BaseEvent
	Operation     string
	ConfigVersion uint64
	ConfigHash    [32]byte
}

// AuthorityChangedEvent is emitted when an authority transfer completes.
type AuthorityChangedEvent struct {
	BaseEvent
	OldAuthority solana.PublicKey
	NewAuthority solana.PublicKey
}

// DepositMadeEvent is emitted for staked and reserve deposits.
type DepositMadeEvent struct {
	BaseEvent
	Depositor  solana.PublicKey
	Lamports   uint64
	ToReserve  bool
	StakedSol  uint64
	ReserveSol uint64
}

// OraclePriceUpdatedEvent is emitted when a price passes the gate.
type OraclePriceUpdatedEvent struct {
	BaseEvent
	Feed         string
	PriceFp      int64
	EmaPriceFp   int64
	ConfidenceFp int64
	PublishTime  int64
}

// OracleDegradedEvent is emitted when a price fails the gate.
type OracleDegradedEvent struct {
	BaseEvent
	Feed   string
	Reason string
}

// OracleReturnRecordedEvent is emitted when a spaced return enters the ring.
type OracleReturnRecordedEvent struct {
	BaseEvent
	ReturnFp       int32
	Index          int
	NonzeroSamples uint16
}

// EpochUpdatedEvent is emitted on every policy tick, frozen or not.
type EpochUpdatedEvent struct {
	BaseEvent
	Epoch  uint64
	Frozen bool
}

// PolicyUpdatedEvent is emitted when a tick changed the policy outputs.
type PolicyUpdatedEvent struct {
	BaseEvent
	Epoch                 uint64
	RealizedVolBps        uint16
	VolScoreBps           uint16
	ExpectedCarryBps      int32
	BandBps               uint16
	MinHedgeIntervalSlots uint64
}

// PolicyFrozenEvent is emitted when a tick ran with a degraded oracle.
type PolicyFrozenEvent struct {
	BaseEvent
	Epoch uint64
}

// NavSnapshotEvent is emitted on healthy policy ticks.
type NavSnapshotEvent struct {
	BaseEvent
	Epoch           uint64
	StakedValueUsd  int64
	ReserveValueUsd int64
	HedgeUsd        int64
	NavUsd          int64
}

// HedgeRequestedEvent is emitted when a hedge request opens.
type HedgeRequestedEvent struct {
	BaseEvent
	RequestID              uint64
	DriftBps               uint16
	TargetHedgeNotionalUsd int64
	DeltaGapUsd            int64
}

// HedgeConfirmedEvent is emitted when a fill is applied.
type HedgeConfirmedEvent struct {
	BaseEvent
	RequestID          uint64
	FillPriceFp        int64
	SlippageBps        uint16
	AvgFillSlippageBps uint16
	HedgeNotionalUsd   int64
}

// HedgeConfirmMissedEvent is emitted when a request expires unfilled.
type HedgeConfirmMissedEvent struct {
	BaseEvent
	RequestID      uint64
	MissedConfirms uint32
}

// ExtremeDriftSeenEvent is emitted when drift crosses the circuit breaker.
type ExtremeDriftSeenEvent struct {
	BaseEvent
	DriftBps uint16
	Halted   bool
}

// KeeperSetEvent is emitted when the registry changes.
type KeeperSetEvent struct {
	BaseEvent
	Keeper      solana.PublicKey
	Added       bool
	KeeperCount uint8
}

// KeeperBondUpdatedEvent is emitted when a keeper funds its bond.
type KeeperBondUpdatedEvent struct {
	BaseEvent
	Keeper       solana.PublicKey
	BondLamports uint64
}
