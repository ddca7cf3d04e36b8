// internal/vault/clock.go
package vault

// Clock is the explicit time input every transition receives. Passing it in
// rather than reading wall time keeps every operation replayable.
type Clock struct {
	Slot uint64 // monotonic slot counter
	Unix int64  // unix seconds, used only for oracle staleness
}
