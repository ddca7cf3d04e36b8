// internal/vault/vol.go
package vault

import (
	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/solana-vault/internal/fp"
)

// UpdateImpliedVol stores an externally sourced implied volatility quote.
// The blend into the policy score happens at the next epoch tick.
func (s *State) UpdateImpliedVol(caller solana.PublicKey, impliedVolBps uint16, clk Clock) error {
	if err := s.requireNotPaused(); err != nil {
		return err
	}
	if err := s.requireFeeder(caller); err != nil {
		return err
	}
	if err := s.checkKeeperGate(caller); err != nil {
		return err
	}
	if impliedVolBps > fp.MaxVolBps {
		return ErrVolOutOfRange
	}
	s.ImpliedVolBps = impliedVolBps
	s.bumpKeeperActivity(caller, clk)
	return nil
}

// UpdateCarryInputs stores the daily carry legs. Each leg is bounded to
// ±10000 bps/day; the sanity bound is generous because funding can spike.
func (s *State) UpdateCarryInputs(caller solana.PublicKey, fundingBpsPerDay, borrowBpsPerDay, stakingBpsPerDay int32, clk Clock) error {
	if err := s.requireNotPaused(); err != nil {
		return err
	}
	if err := s.requireFeeder(caller); err != nil {
		return err
	}
	if err := s.checkKeeperGate(caller); err != nil {
		return err
	}
	for _, v := range []int32{fundingBpsPerDay, borrowBpsPerDay, stakingBpsPerDay} {
		if v > fp.BpsDenom || v < -fp.BpsDenom {
			return ErrInvalidParams
		}
	}
	s.FundingBpsPerDay = fundingBpsPerDay
	s.BorrowBpsPerDay = borrowBpsPerDay
	s.StakingBpsPerDay = stakingBpsPerDay
	s.bumpKeeperActivity(caller, clk)
	return nil
}

// ExpectedCarryBps is the net daily carry of the hedged position: staking
// yield plus funding received minus borrow paid.
func (s *State) ExpectedCarryBps() int32 {
	return s.StakingBpsPerDay + s.FundingBpsPerDay - s.BorrowBpsPerDay
}
