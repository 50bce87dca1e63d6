//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"go.uber.org/zap"

	"github.com/cory-johannsen/pvp/internal/config"
)

func initializeApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, func(), error) {
	wire.Build(
		provideBackend,
		provideStore,
		provideTracing,
		provideDice,
		provideEffects,
		provideResolver,
		provideEngine,
		provideUpdater,
		provideNotifier,
		provideStarter,
		provideBroker,
		provideQueue,
		provideService,
		provideSweeper,
		provideGRPCServer,
		provideRouter,
		newApp,
	)
	return nil, nil, nil
}
