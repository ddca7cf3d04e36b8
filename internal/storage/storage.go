// internal/storage/storage.go
package storage

import (
	"context"

	"github.com/rovshanmuradov/solana-vault/internal/storage/models"
)

// Storage persists vault telemetry: per-epoch snapshots and hedge fills.
// It is optional wiring; the state machine itself never touches it.
type Storage interface {
	// Snapshots
	SaveVaultSnapshot(ctx context.Context, snap *models.VaultSnapshot) error
	GetLatestVaultSnapshot(ctx context.Context, vault string) (*models.VaultSnapshot, error)
	ListVaultSnapshots(ctx context.Context, vault string, limit, offset int) ([]*models.VaultSnapshot, error)

	// Hedge fills
	SaveHedgeFill(ctx context.Context, fill *models.HedgeFill) error
	ListHedgeFills(ctx context.Context, vault string, limit, offset int) ([]*models.HedgeFill, error)

	// Migrations
	RunMigrations() error

	Close() error
}
