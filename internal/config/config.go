// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/rovshanmuradov/solana-vault/internal/fp"
	"github.com/rovshanmuradov/solana-vault/internal/oracle"
	"github.com/rovshanmuradov/solana-vault/internal/vault"
	"github.com/rovshanmuradov/solana-vault/internal/vol"
)

// Config is the daemon configuration: runtime wiring plus the initial vault
// parameters. Every key can be overridden with a VAULTD_-prefixed env var.
type Config struct {
	// Runtime
	LogLevel    string `mapstructure:"log_level"`
	LogFile     string `mapstructure:"log_file"`
	PostgresURL string `mapstructure:"postgres_url"`
	MetricsAddr string `mapstructure:"metrics_addr"`

	// Clock
	SlotDurationMs int `mapstructure:"slot_duration_ms"`

	// Feed simulator
	FeedSeed          int64 `mapstructure:"feed_seed"`
	FeedStartPriceFp  int64 `mapstructure:"feed_start_price_fp"`
	FeedStepBps       int64 `mapstructure:"feed_step_bps"`
	FeedConfidenceBps int64 `mapstructure:"feed_confidence_bps"`
	FeedRetries       int   `mapstructure:"feed_retries"`

	// Crank cadence, milliseconds
	OracleIntervalMs int `mapstructure:"oracle_interval_ms"`
	PolicyIntervalMs int `mapstructure:"policy_interval_ms"`
	HedgeIntervalMs  int `mapstructure:"hedge_interval_ms"`

	// Seed balances for the simulated vault
	InitialStakeLamports   uint64 `mapstructure:"initial_stake_lamports"`
	InitialReserveLamports uint64 `mapstructure:"initial_reserve_lamports"`

	Vault VaultConfig `mapstructure:"vault"`
}

// VaultConfig holds the initialization parameters in config-file form.
type VaultConfig struct {
	VolWeightRealizedBps uint16 `mapstructure:"vol_weight_realized_bps"`
	VolWeightImpliedBps  uint16 `mapstructure:"vol_weight_implied_bps"`

	MinBandBps       uint16 `mapstructure:"min_band_bps"`
	MaxBandBps       uint16 `mapstructure:"max_band_bps"`
	MinIntervalSlots uint64 `mapstructure:"min_interval_slots"`
	MaxIntervalSlots uint64 `mapstructure:"max_interval_slots"`

	PolicyUpdateMinSlots uint64 `mapstructure:"policy_update_min_slots"`
	MaxPolicySlewBps     uint16 `mapstructure:"max_policy_slew_bps"`
	HysteresisBps        uint16 `mapstructure:"hysteresis_bps"`

	OracleFeedChoice uint8  `mapstructure:"oracle_feed_choice"`
	MaxPriceAgeSec   uint64 `mapstructure:"max_price_age_sec"`
	MaxConfidenceBps uint16 `mapstructure:"max_confidence_bps"`
	MaxPriceJumpBps  uint16 `mapstructure:"max_price_jump_bps"`

	ExtremeDriftBps    uint16 `mapstructure:"extreme_drift_bps"`
	ExtremeDriftAction uint8  `mapstructure:"extreme_drift_action"`

	TargetDeltaBps uint16 `mapstructure:"target_delta_bps"`
	LstBetaFp      int64  `mapstructure:"lst_beta_fp"`

	VolMode               uint8  `mapstructure:"vol_mode"`
	EwmaAlphaBps          uint16 `mapstructure:"ewma_alpha_bps"`
	MinSamples            uint8  `mapstructure:"min_samples"`
	MinReturnSpacingSlots uint64 `mapstructure:"min_return_spacing_slots"`

	MaxStakedSol           uint64 `mapstructure:"max_staked_sol"`
	MaxAbsHedgeNotionalUsd int64  `mapstructure:"max_abs_hedge_notional_usd"`
	MaxHedgePerSolUsdFp    int64  `mapstructure:"max_hedge_per_sol_usd_fp"`
	MinReserveBps          uint16 `mapstructure:"min_reserve_bps"`

	MaxUpdatesPerEpoch         uint16 `mapstructure:"max_updates_per_epoch"`
	KeeperBondRequiredLamports uint64 `mapstructure:"keeper_bond_required_lamports"`

	MaxConfirmDelaySlots uint64 `mapstructure:"max_confirm_delay_slots"`
}

// LoadConfig reads the config file at path and applies env overrides.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	defaults := map[string]interface{}{
		"log_level":        "info",
		"metrics_addr":     ":9090",
		"slot_duration_ms": 400,

		"feed_seed":           1,
		"feed_start_price_fp": 150 * fp.Scale,
		"feed_step_bps":       20,
		"feed_confidence_bps": 10,
		"feed_retries":        3,

		"oracle_interval_ms": 2000,
		"policy_interval_ms": 30000,
		"hedge_interval_ms":  5000,

		"initial_stake_lamports":   10_000_000_000_000,
		"initial_reserve_lamports": 1_000_000_000_000,

		"vault.vol_weight_realized_bps": 6000,
		"vault.vol_weight_implied_bps":  4000,
		"vault.min_band_bps":            50,
		"vault.max_band_bps":            400,
		"vault.min_interval_slots":      150,
		"vault.max_interval_slots":      9000,
		"vault.policy_update_min_slots": 75,
		"vault.max_policy_slew_bps":     1000,
		"vault.hysteresis_bps":          100,

		"vault.oracle_feed_choice":   uint8(oracle.ChoiceAutoPreferUsdThenUsdc),
		"vault.max_price_age_sec":    30,
		"vault.max_confidence_bps":   100,
		"vault.max_price_jump_bps":   500,
		"vault.extreme_drift_bps":    2000,
		"vault.extreme_drift_action": uint8(vault.DriftActionFlag),

		"vault.target_delta_bps": 10000,
		"vault.lst_beta_fp":      fp.Scale,

		"vault.vol_mode":                 uint8(vol.ModeStdev),
		"vault.ewma_alpha_bps":           2000,
		"vault.min_samples":              8,
		"vault.min_return_spacing_slots": 25,

		"vault.max_staked_sol":             1_000_000_000_000_000,
		"vault.max_abs_hedge_notional_usd": 50_000_000,
		"vault.max_hedge_per_sol_usd_fp":   500 * fp.Scale,
		"vault.min_reserve_bps":            500,

		"vault.max_updates_per_epoch":         120,
		"vault.keeper_bond_required_lamports": 1_000_000,

		"vault.max_confirm_delay_slots": 300,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("VAULTD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// An empty path runs entirely on defaults and env overrides.
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return errors.New("invalid log_level")
	}
	if cfg.SlotDurationMs <= 0 {
		return errors.New("invalid slot_duration_ms")
	}
	if cfg.OracleIntervalMs <= 0 || cfg.PolicyIntervalMs <= 0 || cfg.HedgeIntervalMs <= 0 {
		return errors.New("invalid crank interval")
	}
	if cfg.FeedStartPriceFp <= 0 {
		return errors.New("invalid feed_start_price_fp")
	}
	// The vault parameters get their full validation in vault.New; only the
	// config-file representation is checked here.
	if !oracle.FeedChoice(cfg.Vault.OracleFeedChoice).Valid() {
		return errors.New("invalid vault.oracle_feed_choice")
	}
	if !vol.Mode(cfg.Vault.VolMode).Valid() {
		return errors.New("invalid vault.vol_mode")
	}
	if !vault.ExtremeDriftAction(cfg.Vault.ExtremeDriftAction).Valid() {
		return errors.New("invalid vault.extreme_drift_action")
	}
	return nil
}

// SlotDuration returns the configured slot length.
func (c *Config) SlotDuration() time.Duration {
	return time.Duration(c.SlotDurationMs) * time.Millisecond
}

// InitializeParams maps the config-file form to the vault parameter set.
func (c *Config) InitializeParams() vault.InitializeParams {
	vc := c.Vault
	return vault.InitializeParams{
		VolWeightRealizedBps: vc.VolWeightRealizedBps,
		VolWeightImpliedBps:  vc.VolWeightImpliedBps,

		MinBandBps:       vc.MinBandBps,
		MaxBandBps:       vc.MaxBandBps,
		MinIntervalSlots: vc.MinIntervalSlots,
		MaxIntervalSlots: vc.MaxIntervalSlots,

		PolicyUpdateMinSlots: vc.PolicyUpdateMinSlots,
		MaxPolicySlewBps:     vc.MaxPolicySlewBps,
		HysteresisBps:        vc.HysteresisBps,

		OracleFeedChoice: oracle.FeedChoice(vc.OracleFeedChoice),
		MaxPriceAgeSec:   vc.MaxPriceAgeSec,
		MaxConfidenceBps: vc.MaxConfidenceBps,
		MaxPriceJumpBps:  vc.MaxPriceJumpBps,

		ExtremeDriftBps:    vc.ExtremeDriftBps,
		ExtremeDriftAction: vault.ExtremeDriftAction(vc.ExtremeDriftAction),

		TargetDeltaBps: vc.TargetDeltaBps,
		LstBetaFp:      vc.LstBetaFp,

		VolMode:               vol.Mode(vc.VolMode),
		EwmaAlphaBps:          vc.EwmaAlphaBps,
		MinSamples:            vc.MinSamples,
		MinReturnSpacingSlots: vc.MinReturnSpacingSlots,

		MaxStakedSol:           vc.MaxStakedSol,
		MaxAbsHedgeNotionalUsd: vc.MaxAbsHedgeNotionalUsd,
		MaxHedgePerSolUsdFp:    vc.MaxHedgePerSolUsdFp,
		MinReserveBps:          vc.MinReserveBps,

		MaxUpdatesPerEpoch:         vc.MaxUpdatesPerEpoch,
		KeeperBondRequiredLamports: vc.KeeperBondRequiredLamports,

		MaxConfirmDelaySlots: vc.MaxConfirmDelaySlots,
	}
}
