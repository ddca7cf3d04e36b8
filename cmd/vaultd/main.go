// ====================================
// File: cmd/vaultd/main.go
// ====================================
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-vault/internal/config"
	"github.com/rovshanmuradov/solana-vault/internal/daemon"
	"github.com/rovshanmuradov/solana-vault/internal/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file (empty runs on defaults)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.LogLevel,
		LogFile:    cfg.LogFile,
		MaxSize:    100,
		MaxAge:     7,
		MaxBackups: 3,
		Compress:   true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting vault daemon")

	ctx := context.Background()
	runner := daemon.NewRunner(cfg, log.Logger)
	if err := runner.Initialize(ctx); err != nil {
		log.Fatal("Failed to initialize daemon", zap.Error(err))
	}

	if err := runner.Run(ctx); err != nil {
		log.Fatal("Daemon execution error", zap.Error(err))
	}
}
