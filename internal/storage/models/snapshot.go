// internal/storage/models/snapshot.go
package models

// VaultSnapshot is one row per policy tick: the derived volatility and policy
// outputs plus the NAV decomposition at that epoch.
type VaultSnapshot struct {
	BaseModel
	Vault string `gorm:"index;not null;type:varchar(44)"`
	Epoch uint64 `gorm:"index;not null"`
	Slot  uint64 `gorm:"not null"`

	Frozen bool `gorm:"not null"`

	RealizedVolBps uint16 `gorm:"not null"`
	ImpliedVolBps  uint16 `gorm:"not null"`
	VolScoreBps    uint16 `gorm:"not null"`

	BandBps               uint16 `gorm:"not null"`
	MinHedgeIntervalSlots uint64 `gorm:"not null"`
	ExpectedCarryBps      int32  `gorm:"not null"`

	StakedValueUsd   int64 `gorm:"not null"`
	ReserveValueUsd  int64 `gorm:"not null"`
	HedgeNotionalUsd int64 `gorm:"not null"`
	NavUsd           int64 `gorm:"not null"`
}
