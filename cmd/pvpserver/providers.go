package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/cory-johannsen/pvp/internal/config"
	"github.com/cory-johannsen/pvp/internal/game/challenge"
	"github.com/cory-johannsen/pvp/internal/game/combat"
	"github.com/cory-johannsen/pvp/internal/game/dice"
	"github.com/cory-johannsen/pvp/internal/game/effect"
	"github.com/cory-johannsen/pvp/internal/game/matchmaking"
	"github.com/cory-johannsen/pvp/internal/game/rating"
	"github.com/cory-johannsen/pvp/internal/gameserver"
	"github.com/cory-johannsen/pvp/internal/httpapi"
	"github.com/cory-johannsen/pvp/internal/observability"
	"github.com/cory-johannsen/pvp/internal/scripting"
	"github.com/cory-johannsen/pvp/internal/storage"
	"github.com/cory-johannsen/pvp/internal/storage/postgres"
	"github.com/cory-johannsen/pvp/internal/storage/sqlite"
)

// Backend is the opened persistence layer and its health probe.
type Backend struct {
	Store  storage.Store
	Health httpapi.HealthFunc
}

// TracingShutdown flushes and stops the tracer provider.
type TracingShutdown func(context.Context) error

func provideBackend(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Backend, func(), error) {
	dbStart := time.Now()
	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		store, err := sqlite.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		logger.Info("sqlite store opened",
			zap.String("path", cfg.Storage.SQLitePath),
			zap.Duration("elapsed", time.Since(dbStart)),
		)
		cleanup := func() {
			if err := store.Close(); err != nil {
				logger.Warn("closing sqlite store", zap.Error(err))
			}
		}
		return &Backend{Store: store}, cleanup, nil
	default:
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to database: %w", err)
		}
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Duration("elapsed", time.Since(dbStart)),
		)
		store := postgres.NewStore(pool)
		health := func(ctx context.Context) error { return pool.Health(ctx, 5*time.Second) }
		cleanup := func() { _ = store.Close() }
		return &Backend{Store: store, Health: health}, cleanup, nil
	}
}

func provideStore(b *Backend) storage.Store { return b.Store }

func provideTracing(ctx context.Context, cfg config.Config, logger *zap.Logger) (TracingShutdown, error) {
	shutdown, err := observability.SetupTracing(ctx, cfg.Tracing, logger)
	if err != nil {
		return nil, fmt.Errorf("setting up tracing: %w", err)
	}
	return shutdown, nil
}

func provideDice(cfg config.Config, logger *zap.Logger) dice.Source {
	var src dice.Source
	if cfg.Combat.Seed != 0 {
		src = dice.NewSeededSource(cfg.Combat.Seed)
		logger.Info("using seeded dice", zap.Uint64("seed", cfg.Combat.Seed))
	} else {
		src = dice.NewCryptoSource()
	}
	if cfg.Combat.LogRolls {
		return dice.NewLoggedSource(src, logger)
	}
	return src
}

func provideEffects(cfg config.Config, logger *zap.Logger) (*effect.Registry, error) {
	reg, err := effect.LoadDirectory(cfg.Content.EffectsDir)
	if err != nil {
		return nil, fmt.Errorf("loading effects: %w", err)
	}
	logger.Info("loaded effects", zap.Int("count", len(reg.All())))
	return reg, nil
}

func provideResolver(cfg config.Config, effects *effect.Registry, src dice.Source, logger *zap.Logger) (*scripting.Resolver, func(), error) {
	r := scripting.NewResolver(effects, src, logger)
	if err := r.LoadDir(cfg.Content.ScriptsDir, cfg.Content.InstructionLimit); err != nil {
		return nil, nil, err
	}
	return r, r.Close, nil
}

func provideEngine(cfg config.Config, store storage.Store, src dice.Source, effects *effect.Registry, resolver *scripting.Resolver, logger *zap.Logger) *combat.Engine {
	limits := make(map[combat.BattleType]time.Duration)
	for name, d := range cfg.Combat.TurnLimits.ByType() {
		limits[combat.BattleType(name)] = d
	}
	return combat.NewEngine(combat.Config{
		MaxActionPoints: cfg.Combat.MaxActionPoints,
		TurnTimeLimits:  limits,
		TimeoutPolicy:   combat.TimeoutPolicy(cfg.Combat.TimeoutPolicy),
	}, store, src, effects, resolver, logger)
}

func provideUpdater(cfg config.Config, store storage.Store, logger *zap.Logger) *rating.Updater {
	return rating.NewUpdater(store, rating.Config{
		KFactor:       cfg.Rating.KFactor,
		DefaultRating: cfg.Rating.DefaultRating,
		FleePenalty:   cfg.Rating.FleePenalty,
	}, logger)
}

func provideNotifier(logger *zap.Logger) *gameserver.Notifier {
	return gameserver.NewNotifier(gameserver.DefaultSubscriberBuffer, logger)
}

func provideStarter(store storage.Store, engine *combat.Engine, resolver *scripting.Resolver, logger *zap.Logger) *gameserver.BattleStarter {
	return gameserver.NewBattleStarter(store, engine, resolver, logger)
}

func provideBroker(cfg config.Config, store storage.Store, engine *combat.Engine, starter *gameserver.BattleStarter, logger *zap.Logger) *challenge.Broker {
	return challenge.NewBroker(store, store, engine, starter, cfg.Challenge.TTL, logger)
}

func provideQueue(cfg config.Config, starter *gameserver.BattleStarter, engine *combat.Engine, src dice.Source, logger *zap.Logger) *matchmaking.Queue {
	q := matchmaking.NewQueue(matchmaking.Config{
		RatingWindow: cfg.Matchmaking.RatingWindow,
		MaxWait:      cfg.Matchmaking.MaxWait,
		BattleType:   combat.BattleType(cfg.Matchmaking.BattleType),
	}, starter, src, logger)
	q.SetBattleChecker(engine)
	return q
}

// provideService builds the facade and attaches the settlement listener to the engine.
func provideService(
	engine *combat.Engine,
	broker *challenge.Broker,
	queue *matchmaking.Queue,
	updater *rating.Updater,
	store storage.Store,
	notifier *gameserver.Notifier,
	logger *zap.Logger,
) *gameserver.Service {
	engine.SetListener(gameserver.NewBattleEvents(notifier, updater, engine, logger))
	return gameserver.NewService(engine, broker, queue, updater, store, notifier, logger)
}

func provideSweeper(cfg config.Config, queue *matchmaking.Queue, svc *gameserver.Service, logger *zap.Logger) *matchmaking.Sweeper {
	return matchmaking.NewSweeper(queue, cfg.Matchmaking.SweepInterval, svc.AnnounceMatch, logger)
}

func provideGRPCServer(svc *gameserver.Service, logger *zap.Logger) *grpc.Server {
	s := grpc.NewServer()
	gameserver.RegisterPvPServiceServer(s, gameserver.NewGRPCServer(svc, logger))
	return s
}

func provideRouter(svc *gameserver.Service, backend *Backend, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	return httpapi.NewRouter(svc, backend.Health, logger)
}
