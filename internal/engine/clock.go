// internal/engine/clock.go
package engine

import (
	"sync/atomic"
	"time"

	"github.com/rovshanmuradov/solana-vault/internal/vault"
)

// ClockSource supplies the (slot, unix) pair stamped on every transition.
type ClockSource interface {
	Now() vault.Clock
}

// WallClock derives slots from wall time at a fixed slot duration, anchored
// at a start instant. Good enough for a simulated chain.
type WallClock struct {
	Start   time.Time
	SlotDur time.Duration
}

// NewWallClock anchors at now with the given slot duration (default 400ms,
// the mainnet target).
func NewWallClock(slotDur time.Duration) *WallClock {
	if slotDur <= 0 {
		slotDur = 400 * time.Millisecond
	}
	return &WallClock{Start: time.Now(), SlotDur: slotDur}
}

func (w *WallClock) Now() vault.Clock {
	now := time.Now()
	elapsed := now.Sub(w.Start)
	slot := uint64(elapsed / w.SlotDur)
	return vault.Clock{Slot: slot + 1, Unix: now.Unix()}
}

// ManualClock is a hand-advanced clock for tests.
type ManualClock struct {
	slot atomic.Uint64
	unix atomic.Int64
}

// NewManualClock starts at the given slot and unix time.
func NewManualClock(slot uint64, unix int64) *ManualClock {
	c := &ManualClock{}
	c.slot.Store(slot)
	c.unix.Store(unix)
	return c
}

func (m *ManualClock) Now() vault.Clock {
	return vault.Clock{Slot: m.slot.Load(), Unix: m.unix.Load()}
}

// Advance moves the clock forward by slots and seconds.
func (m *ManualClock) Advance(slots uint64, seconds int64) {
	m.slot.Add(slots)
	m.unix.Add(seconds)
}
