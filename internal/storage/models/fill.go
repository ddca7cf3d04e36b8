// internal/storage/models/fill.go
package models

// HedgeFill is one confirmed hedge execution.
type HedgeFill struct {
	BaseModel
	Vault     string `gorm:"index;not null;type:varchar(44)"`
	RequestID uint64 `gorm:"index;not null"`

	RequestSlot uint64 `gorm:"not null"`
	FillSlot    uint64 `gorm:"not null"`

	RequestSpotPriceFp int64  `gorm:"not null"`
	FillPriceFp        int64  `gorm:"not null"`
	SlippageBps        uint16 `gorm:"not null"`

	HedgeDeltaUsd    int64 `gorm:"not null"`
	HedgeNotionalUsd int64 `gorm:"not null"`
}
