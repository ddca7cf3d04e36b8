// internal/daemon/daemon.go
// Package daemon wires the vault engine, feed, keeper crank, metrics endpoint
// and persistence into one runnable process.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/solana-vault/internal/config"
	"github.com/rovshanmuradov/solana-vault/internal/engine"
	"github.com/rovshanmuradov/solana-vault/internal/events"
	"github.com/rovshanmuradov/solana-vault/internal/feed"
	"github.com/rovshanmuradov/solana-vault/internal/keeper"
	"github.com/rovshanmuradov/solana-vault/internal/metrics"
	"github.com/rovshanmuradov/solana-vault/internal/storage"
	"github.com/rovshanmuradov/solana-vault/internal/storage/postgres"
)

// eventBusBuffer bounds the async event queue.
const eventBusBuffer = 1024

// Runner owns the daemon lifecycle.
type Runner struct {
	cfg    *config.Config
	logger *zap.Logger

	bus      *events.Bus
	engine   *engine.Engine
	store    storage.Storage
	shutdown *ShutdownHandler

	vaultID   solana.PublicKey
	authority solana.PublicKey
	keeperKey solana.PublicKey
}

// NewRunner builds a runner from a loaded config.
func NewRunner(cfg *config.Config, logger *zap.Logger) *Runner {
	return &Runner{
		cfg:      cfg,
		logger:   logger,
		shutdown: NewShutdownHandler(logger, 30*time.Second),
	}
}

// Initialize wires all components and seeds the vault.
func (r *Runner) Initialize(ctx context.Context) error {
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	r.bus = events.NewBus(r.logger, eventBusBuffer)
	r.shutdown.AddFunc("event_bus", func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return r.bus.Shutdown(shutdownCtx)
	})

	if r.cfg.PostgresURL != "" {
		store, err := postgres.NewStorage(r.cfg.PostgresURL, r.logger)
		if err != nil {
			return fmt.Errorf("failed to open storage: %w", err)
		}
		if err := store.RunMigrations(); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		r.store = store
		r.shutdown.AddFunc("storage", store.Close)
	}

	clock := engine.NewWallClock(r.cfg.SlotDuration())
	r.engine = engine.New(clock, r.bus, collector, r.store, r.logger)

	// The simulated chain mints fresh identities on every start.
	r.vaultID = solana.NewWallet().PublicKey()
	r.authority = solana.NewWallet().PublicKey()
	r.keeperKey = solana.NewWallet().PublicKey()

	if err := r.engine.InitializeVault(r.vaultID, r.authority, r.cfg.InitializeParams()); err != nil {
		return fmt.Errorf("failed to initialize vault: %w", err)
	}
	if err := r.engine.AddKeeper(r.vaultID, r.authority, r.keeperKey); err != nil {
		return fmt.Errorf("failed to register keeper: %w", err)
	}
	if bond := r.cfg.Vault.KeeperBondRequiredLamports; bond > 0 {
		if err := r.engine.DepositKeeperBond(r.vaultID, r.keeperKey, bond); err != nil {
			return fmt.Errorf("failed to fund keeper bond: %w", err)
		}
	}
	if r.cfg.InitialReserveLamports > 0 {
		if err := r.engine.DepositReserve(r.vaultID, r.authority, r.cfg.InitialReserveLamports); err != nil {
			return fmt.Errorf("failed to seed reserve: %w", err)
		}
	}
	if r.cfg.InitialStakeLamports > 0 {
		if err := r.engine.DepositAndStake(r.vaultID, r.authority, r.cfg.InitialStakeLamports); err != nil {
			return fmt.Errorf("failed to seed stake: %w", err)
		}
	}

	r.startMetricsServer(registry)

	r.logger.Info("Daemon initialized",
		zap.String("vault", r.vaultID.String()),
		zap.String("authority", r.authority.String()),
		zap.String("keeper", r.keeperKey.String()),
		zap.Bool("persistence", r.store != nil))
	return nil
}

func (r *Runner) startMetricsServer(registry *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              r.cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.logger.Error("Metrics server failed", zap.Error(err))
		}
	}()
	r.shutdown.AddFunc("metrics_server", func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

// Run drives the keeper crank until a signal or a fatal error.
func (r *Runner) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			r.logger.Info("Signal received", zap.String("signal", sig.String()))
			cancel()
		case <-runCtx.Done():
		}
	}()

	source := feed.NewRetryingSource(
		feed.NewSimulatedSource(r.cfg.FeedSeed, r.cfg.FeedStartPriceFp, r.cfg.FeedStepBps, r.cfg.FeedConfidenceBps),
		r.cfg.FeedRetries,
		200*time.Millisecond,
		r.logger,
	)

	crank := keeper.NewRunner(r.engine, source, r.vaultID, r.keeperKey, keeper.Config{
		OracleInterval: time.Duration(r.cfg.OracleIntervalMs) * time.Millisecond,
		PolicyInterval: time.Duration(r.cfg.PolicyIntervalMs) * time.Millisecond,
		HedgeInterval:  time.Duration(r.cfg.HedgeIntervalMs) * time.Millisecond,
	}, r.logger)

	g, gCtx := errgroup.WithContext(runCtx)
	g.Go(func() error { return crank.Run(gCtx) })

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		r.logger.Error("Crank stopped with error", zap.Error(err))
	}

	if shutdownErr := r.shutdown.Shutdown(); shutdownErr != nil {
		r.logger.Error("Shutdown errors", zap.Error(shutdownErr))
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// VaultID exposes the vault identity for tooling.
func (r *Runner) VaultID() solana.PublicKey { return r.vaultID }

// Engine exposes the engine for tooling and tests.
func (r *Runner) Engine() *engine.Engine { return r.engine }

// Authority exposes the governance key of the simulated vault.
func (r *Runner) Authority() solana.PublicKey { return r.authority }
