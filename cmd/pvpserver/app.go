package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/cory-johannsen/pvp/internal/config"
	"github.com/cory-johannsen/pvp/internal/game/combat"
	"github.com/cory-johannsen/pvp/internal/game/matchmaking"
	"github.com/cory-johannsen/pvp/internal/httpapi"
	"github.com/cory-johannsen/pvp/internal/server"
)

// App holds the assembled server.
type App struct {
	cfg     config.Config
	logger  *zap.Logger
	engine  *combat.Engine
	sweeper *matchmaking.Sweeper
	grpc    *grpc.Server
	router  *gin.Engine
	tracing TracingShutdown
}

func newApp(
	cfg config.Config,
	logger *zap.Logger,
	engine *combat.Engine,
	sweeper *matchmaking.Sweeper,
	grpcServer *grpc.Server,
	router *gin.Engine,
	tracing TracingShutdown,
) *App {
	return &App{
		cfg:     cfg,
		logger:  logger,
		engine:  engine,
		sweeper: sweeper,
		grpc:    grpcServer,
		router:  router,
		tracing: tracing,
	}
}

// Run reloads persisted battles and serves until a signal arrives or a service fails.
func (a *App) Run(ctx context.Context) error {
	recoverStart := time.Now()
	n, err := a.engine.Recover(ctx)
	if err != nil {
		return fmt.Errorf("recovering active battles: %w", err)
	}
	a.logger.Info("active battles recovered",
		zap.Int("count", n),
		zap.Duration("elapsed", time.Since(recoverStart)),
	)

	lifecycle := server.NewLifecycle(a.logger)

	lifecycle.Add("grpc", &server.FuncService{
		StartFn: func() error {
			lis, err := net.Listen("tcp", a.cfg.GRPC.Addr())
			if err != nil {
				return fmt.Errorf("listening on %s: %w", a.cfg.GRPC.Addr(), err)
			}
			a.logger.Info("gRPC server listening", zap.String("addr", lis.Addr().String()))
			return a.grpc.Serve(lis)
		},
		StopFn: a.grpc.GracefulStop,
	})

	if a.cfg.HTTP.Enabled {
		srv := httpapi.NewServer(a.cfg.HTTP.Addr(), a.router)
		lifecycle.Add("http", &server.FuncService{
			StartFn: func() error {
				a.logger.Info("HTTP gateway listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			},
			StopFn: func() {
				stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := srv.Shutdown(stopCtx); err != nil {
					a.logger.Warn("http shutdown", zap.Error(err))
				}
			},
		})
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	lifecycle.Add("matchmaking", &server.FuncService{
		StartFn: func() error {
			a.sweeper.Start(sweepCtx)
			<-sweepCtx.Done()
			return nil
		},
		StopFn: stopSweep,
	})

	lifecycle.OnShutdown("tracing", a.tracing)

	return lifecycle.Run(ctx)
}
