// =================================
// File: internal/config/config_test.go
// =================================
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/solana-vault/internal/vault"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 400*time.Millisecond, cfg.SlotDuration())
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.Empty(t, cfg.PostgresURL, "persistence is opt-in")

	// The defaults must form a vault the state machine actually accepts.
	_, err = vault.New(solana.NewWallet().PublicKey(), cfg.InitializeParams())
	require.NoError(t, err)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vaultd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
slot_duration_ms: 200
vault:
  min_band_bps: 75
  max_confirm_delay_slots: 600
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 200*time.Millisecond, cfg.SlotDuration())
	assert.Equal(t, uint16(75), cfg.Vault.MinBandBps)
	assert.Equal(t, uint64(600), cfg.Vault.MaxConfirmDelaySlots)

	// Untouched keys keep their defaults.
	assert.Equal(t, uint16(400), cfg.Vault.MaxBandBps)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad log level", "log_level: chatty\n"},
		{"zero slot duration", "slot_duration_ms: 0\n"},
		{"zero crank interval", "oracle_interval_ms: 0\n"},
		{"bad feed choice", "vault:\n  oracle_feed_choice: 9\n"},
		{"bad vol mode", "vault:\n  vol_mode: 9\n"},
		{"bad drift action", "vault:\n  extreme_drift_action: 9\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "vaultd.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o644))
			_, err := LoadConfig(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
