// internal/feed/feed.go
// Package feed supplies oracle observations to the keeper loop. Sources are
// pluggable; the daemon ships with a deterministic random-walk simulator and
// a retrying decorator for flaky transports.
package feed

import (
	"context"

	"github.com/rovshanmuradov/solana-vault/internal/oracle"
)

// Observations is one fetch result: either feed may be absent.
type Observations struct {
	Usd  *oracle.Observation
	Usdc *oracle.Observation
}

// Source produces price observations for the gate. Fetch must be safe for
// concurrent use.
type Source interface {
	Fetch(ctx context.Context) (Observations, error)
}
