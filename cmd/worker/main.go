// Package main runs the background worker: cancelled-event cleanup and the elapsed-event sweep.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/eventflow/eventflow/config"
	"github.com/eventflow/eventflow/internal/events"
	"github.com/eventflow/eventflow/internal/realtime"
	"github.com/eventflow/eventflow/internal/registrations"
	"github.com/eventflow/eventflow/internal/worker"
	"github.com/eventflow/eventflow/pkg/database"
	"github.com/eventflow/eventflow/pkg/queue"
	"github.com/eventflow/eventflow/pkg/redis"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, cfg.Redis, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	// Publishing goes through Redis; the API servers deliver to their feed clients.
	changes := realtime.NewHub(logger, realtime.NewRedisPubSub(rdb, logger))
	jobQueue := queue.NewQueue(rdb, logger)

	processor := worker.NewEventProcessor(registrations.NewRepository(pool), jobQueue, changes, logger)
	sweeper := worker.NewSweeper(events.NewRepository(pool), changes, cfg.Worker.SweepInterval, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		processor.Run(gctx)
		return nil
	})
	g.Go(func() error {
		sweeper.Run(gctx)
		return nil
	})
	logger.Info("worker started", zap.Duration("sweep_interval", cfg.Worker.SweepInterval))

	_ = g.Wait()
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
