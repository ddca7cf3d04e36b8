// internal/vault/confighash.go
package vault

import (
	"crypto/sha256"
	"encoding/binary"
)

// configHashPrefix versions the hash layout itself; changing the encoded
// field set requires bumping it.
const configHashPrefix = "vault-config-v1"

// bumpConfig increments the config version and recomputes the config hash
// over every governance-settable field, little-endian, in declaration order.
// Every Set* operation and the keeper registry mutations call it.
func (s *State) bumpConfig() {
	s.ConfigVersion++

	h := sha256.New()
	h.Write([]byte(configHashPrefix))

	var buf [8]byte
	u16 := func(v uint16) {
		binary.LittleEndian.PutUint16(buf[:2], v)
		h.Write(buf[:2])
	}
	u64 := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:8], v)
		h.Write(buf[:8])
	}
	i64 := func(v int64) { u64(uint64(v)) }
	u8 := func(v uint8) { h.Write([]byte{v}) }

	u64(s.ConfigVersion)

	h.Write(s.Authority[:])
	h.Write(s.KeeperAdmin[:])

	u16(s.VolWeightRealizedBps)
	u16(s.VolWeightImpliedBps)

	u16(s.MinBandBps)
	u16(s.MaxBandBps)
	u64(s.MinIntervalSlots)
	u64(s.MaxIntervalSlots)

	u64(s.PolicyUpdateMinSlots)
	u16(s.MaxPolicySlewBps)
	u16(s.HysteresisBps)

	u8(uint8(s.Oracle.Choice))
	u64(s.Oracle.MaxPriceAgeSec)
	u16(s.Oracle.MaxConfidenceBps)
	u16(s.Oracle.MaxPriceJumpBps)

	u16(s.ExtremeDriftBps)
	u8(uint8(s.ExtremeDriftAction))

	u16(s.TargetDeltaBps)
	i64(s.LstBetaFp)

	u8(uint8(s.VolMode))
	u16(s.EwmaAlphaBps)
	u8(s.MinSamples)
	u64(s.MinReturnSpacingSlots)

	u64(s.MaxStakedSol)
	i64(s.MaxAbsHedgeNotionalUsd)
	i64(s.MaxHedgePerSolUsdFp)
	u16(s.MinReserveBps)

	u16(s.MaxUpdatesPerEpoch)
	u64(s.KeeperBondRequiredLamports)
	u64(s.MaxConfirmDelaySlots)

	u8(s.KeeperCount)
	for i := 0; i < int(s.KeeperCount); i++ {
		h.Write(s.Keepers[i][:])
	}

	copy(s.ConfigHash[:], h.Sum(nil))
}
