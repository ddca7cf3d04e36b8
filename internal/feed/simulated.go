// internal/feed/simulated.go
package feed

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/rovshanmuradov/solana-vault/internal/fp"
	"github.com/rovshanmuradov/solana-vault/internal/oracle"
)

// SimulatedSource is a seeded geometric random walk over both feeds, used for
// local runs and integration tests. The same seed replays the same path.
type SimulatedSource struct {
	mu  sync.Mutex
	rng *rand.Rand

	priceFp       int64
	stepBps       int64
	confidenceBps int64
	now           func() int64
}

// NewSimulatedSource starts a walk at startPriceFp with ±stepBps moves per
// fetch and the given quoted confidence width.
func NewSimulatedSource(seed int64, startPriceFp int64, stepBps, confidenceBps int64) *SimulatedSource {
	if startPriceFp <= 0 {
		startPriceFp = 150 * fp.Scale
	}
	if stepBps <= 0 {
		stepBps = 20
	}
	return &SimulatedSource{
		rng:           rand.New(rand.NewSource(seed)),
		priceFp:       startPriceFp,
		stepBps:       stepBps,
		confidenceBps: confidenceBps,
		now:           func() int64 { return time.Now().Unix() },
	}
}

// Fetch advances the walk one step and quotes both feeds. The USDC feed is
// quoted a hair wider, mirroring the real secondary market.
func (s *SimulatedSource) Fetch(ctx context.Context) (Observations, error) {
	if err := ctx.Err(); err != nil {
		return Observations{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	move := s.rng.Int63n(2*s.stepBps+1) - s.stepBps
	s.priceFp += fp.MulDivI64(s.priceFp, move, fp.BpsDenom)
	if s.priceFp < 1 {
		s.priceFp = 1
	}

	nowUnix := s.now()
	conf := fp.MulDivI64(s.priceFp, s.confidenceBps, fp.BpsDenom)

	usd := &oracle.Observation{
		PriceFp:      s.priceFp,
		ConfidenceFp: conf,
		PublishTime:  nowUnix,
		Feed:         oracle.FeedUsd,
	}
	usdc := &oracle.Observation{
		PriceFp:      s.priceFp + s.priceFp/fp.BpsDenom,
		ConfidenceFp: conf + conf/10,
		PublishTime:  nowUnix,
		Feed:         oracle.FeedUsdc,
	}
	return Observations{Usd: usd, Usdc: usdc}, nil
}
