// internal/vault/nav.go
package vault

import (
	"github.com/rovshanmuradov/solana-vault/internal/fp"
)

// lamportsPerSol converts lamport balances to whole-SOL fixed point.
const lamportsPerSol = 1_000_000_000

// solValueUsd prices a lamport balance with a 1e6-scaled USD price, returning
// whole USD. Accuracy is bookkeeping-grade; risk checks use their own math.
func solValueUsd(lamports uint64, priceFp int64) int64 {
	if priceFp <= 0 {
		return 0
	}
	sol := fp.MulDivU64(lamports, fp.Scale, lamportsPerSol) // SOL in 1e6 fp
	return fp.MulDivI64(int64(sol), priceFp, fp.Scale*fp.Scale)
}

// StakedValueUsd is the USD value of the staked balance at the last accepted
// spot price, zero until the oracle is ready.
func (s *State) StakedValueUsd() int64 {
	if !s.OracleOk {
		return 0
	}
	return solValueUsd(s.StakedSol, s.SpotPriceFp)
}

// ReserveValueUsd is the USD value of the reserve balance.
func (s *State) ReserveValueUsd() int64 {
	if !s.OracleOk {
		return 0
	}
	return solValueUsd(s.ReserveSol, s.SpotPriceFp)
}

// NavUsd is the snapshot net asset value: staked plus reserve plus the signed
// hedge notional. Zero while the oracle is not ready.
func (s *State) NavUsd() int64 {
	if !s.OracleOk {
		return 0
	}
	return s.StakedValueUsd() + s.ReserveValueUsd() + s.HedgeNotionalUsd
}
