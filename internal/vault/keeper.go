// internal/vault/keeper.go
package vault

import (
	"github.com/gagliardetto/solana-go"
)

// keeperIndex finds a registered keeper, returning (-1, false) when absent.
func (s *State) keeperIndex(pk solana.PublicKey) (int, bool) {
	for i := 0; i < int(s.KeeperCount); i++ {
		if s.Keepers[i].Equals(pk) {
			return i, true
		}
	}
	return -1, false
}

// IsKeeper reports whether pk is in the registry.
func (s *State) IsKeeper(pk solana.PublicKey) bool {
	_, ok := s.keeperIndex(pk)
	return ok
}

// requireFeeder allows registered keepers plus the authority and keeper
// admin to push oracle, volatility and hedge updates.
func (s *State) requireFeeder(caller solana.PublicKey) error {
	if caller.Equals(s.Authority) || caller.Equals(s.KeeperAdmin) {
		return nil
	}
	if s.IsKeeper(caller) {
		return nil
	}
	return ErrUnauthorized
}

// checkKeeperGate enforces the bond and per-epoch rate limit. Only registered
// keepers are gated; authority and admin calls bypass both checks.
func (s *State) checkKeeperGate(caller solana.PublicKey) error {
	idx, ok := s.keeperIndex(caller)
	if !ok {
		return nil
	}
	if s.KeeperBondRequiredLamports > 0 && s.KeeperBondLamports[idx] < s.KeeperBondRequiredLamports {
		return ErrKeeperBondInsufficient
	}
	if s.KeeperUpdatesThisEpoch[idx] >= s.MaxUpdatesPerEpoch {
		return ErrKeeperRateLimited
	}
	return nil
}

// bumpKeeperActivity records a successful gated call: heartbeat plus the
// epoch counter, saturating rather than wrapping.
func (s *State) bumpKeeperActivity(caller solana.PublicKey, clk Clock) {
	idx, ok := s.keeperIndex(caller)
	if !ok {
		return
	}
	s.KeeperHeartbeatSlot[idx] = clk.Slot
	if s.KeeperUpdatesThisEpoch[idx] < ^uint16(0) {
		s.KeeperUpdatesThisEpoch[idx]++
	}
}

// AddKeeper registers a keeper. Idempotent for an already registered key;
// rejects the zero key and a full registry. Keeper-admin only.
func (s *State) AddKeeper(caller, keeper solana.PublicKey) error {
	if !caller.Equals(s.KeeperAdmin) {
		return ErrUnauthorized
	}
	if keeper.IsZero() {
		return ErrInvalidParams
	}
	if s.IsKeeper(keeper) {
		return nil
	}
	if int(s.KeeperCount) >= MaxKeepers {
		return ErrInvalidParams
	}
	i := int(s.KeeperCount)
	s.Keepers[i] = keeper
	s.KeeperHeartbeatSlot[i] = 0
	s.KeeperUpdatesThisEpoch[i] = 0
	s.KeeperBondLamports[i] = 0
	s.KeeperCount++
	s.bumpConfig()
	return nil
}

// RemoveKeeper unregisters a keeper by swapping the last entry into its slot.
// Keeper-admin only; removing an unknown key is an error.
func (s *State) RemoveKeeper(caller, keeper solana.PublicKey) error {
	if !caller.Equals(s.KeeperAdmin) {
		return ErrUnauthorized
	}
	idx, ok := s.keeperIndex(keeper)
	if !ok {
		return ErrInvalidParams
	}
	last := int(s.KeeperCount) - 1
	s.Keepers[idx] = s.Keepers[last]
	s.KeeperHeartbeatSlot[idx] = s.KeeperHeartbeatSlot[last]
	s.KeeperUpdatesThisEpoch[idx] = s.KeeperUpdatesThisEpoch[last]
	s.KeeperBondLamports[idx] = s.KeeperBondLamports[last]

	s.Keepers[last] = solana.PublicKey{}
	s.KeeperHeartbeatSlot[last] = 0
	s.KeeperUpdatesThisEpoch[last] = 0
	s.KeeperBondLamports[last] = 0
	s.KeeperCount--
	s.bumpConfig()
	return nil
}

// DepositKeeperBond credits bond lamports to the calling keeper. The caller
// must itself be a registered keeper.
func (s *State) DepositKeeperBond(caller solana.PublicKey, lamports uint64) error {
	if err := s.requireNotPaused(); err != nil {
		return err
	}
	if lamports == 0 {
		return ErrInvalidParams
	}
	idx, ok := s.keeperIndex(caller)
	if !ok {
		return ErrUnauthorized
	}
	s.KeeperBondLamports[idx] += lamports
	return nil
}
