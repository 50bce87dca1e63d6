// Package main provides the PvP server binary: the gRPC combat service, the
// optional HTTP read gateway and the matchmaking sweeper.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/pvp/internal/config"
	"github.com/cory-johannsen/pvp/internal/observability"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging, "pvpserver")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting pvp server",
		zap.String("grpc_addr", cfg.GRPC.Addr()),
		zap.String("storage", cfg.Storage.Driver),
	)

	app, cleanup, err := initializeApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("initializing server", zap.Error(err))
	}
	defer cleanup()

	logger.Info("pvp server initialized", zap.Duration("startup", time.Since(start)))

	if err := app.Run(ctx); err != nil {
		logger.Error("server error", zap.Error(err))
	}
}
