// internal/vault/risk.go
package vault

import (
	"math/bits"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/solana-vault/internal/fp"
)

// reserveRatioOk checks reserve/staked >= minReserveBps/10000 with a 128-bit
// cross-multiply so the comparison never overflows or truncates.
func reserveRatioOk(stakedSol, reserveSol uint64, minReserveBps uint16) bool {
	if minReserveBps == 0 {
		return true
	}
	// reserve * 10000 >= staked * minReserveBps
	lhi, llo := bits.Mul64(reserveSol, fp.BpsDenom)
	rhi, rlo := bits.Mul64(stakedSol, uint64(minReserveBps))
	if lhi != rhi {
		return lhi > rhi
	}
	return llo >= rlo
}

// leverageOk bounds |hedge notional| by staked exposure times the per-SOL
// notional ceiling. StakedSol is lamports, the ceiling is 1e6-scaled USD/SOL.
func (s *State) leverageOk(hedgeNotionalUsd int64) bool {
	limit := fp.MulDivI64(int64(s.StakedSol), s.MaxHedgePerSolUsdFp, fp.Scale*lamportsPerSol)
	return fp.AbsI64(hedgeNotionalUsd) <= limit
}

// clampHedgeNotional bounds a target to the absolute notional cap. Caps use
// clamp semantics at request time; leverage uses reject semantics.
func (s *State) clampHedgeNotional(target int64) int64 {
	return fp.ClampI64(target, -s.MaxAbsHedgeNotionalUsd, s.MaxAbsHedgeNotionalUsd)
}

// DepositAndStake moves lamports into the staked balance. Validates the
// staked cap and the prospective reserve ratio before mutating.
func (s *State) DepositAndStake(caller solana.PublicKey, lamports uint64, clk Clock) error {
	if err := s.requireNotPaused(); err != nil {
		return err
	}
	if lamports == 0 {
		return ErrInvalidParams
	}
	newStaked := s.StakedSol + lamports
	if newStaked < s.StakedSol || newStaked > s.MaxStakedSol {
		return ErrCapExceeded
	}
	if !reserveRatioOk(newStaked, s.ReserveSol, s.MinReserveBps) {
		return ErrReserveTooLow
	}
	s.StakedSol = newStaked
	s.TotalDepositedSol += lamports
	s.DepositCount++
	return nil
}

// DepositReserve moves lamports into the reserve balance. A reserve deposit
// only improves the ratio, so no ratio check is needed.
func (s *State) DepositReserve(caller solana.PublicKey, lamports uint64, clk Clock) error {
	if err := s.requireNotPaused(); err != nil {
		return err
	}
	if lamports == 0 {
		return ErrInvalidParams
	}
	newReserve := s.ReserveSol + lamports
	if newReserve < s.ReserveSol {
		return ErrCapExceeded
	}
	s.ReserveSol = newReserve
	s.TotalDepositedSol += lamports
	s.DepositCount++
	return nil
}
