// Package main runs the EventFlow API server with the realtime change feed and graceful shutdown.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eventflow/eventflow/config"
	"github.com/eventflow/eventflow/internal/analytics"
	"github.com/eventflow/eventflow/internal/auth"
	"github.com/eventflow/eventflow/internal/clubs"
	"github.com/eventflow/eventflow/internal/events"
	"github.com/eventflow/eventflow/internal/middleware"
	"github.com/eventflow/eventflow/internal/profiles"
	"github.com/eventflow/eventflow/internal/realtime"
	"github.com/eventflow/eventflow/internal/registrations"
	"github.com/eventflow/eventflow/internal/worker"
	"github.com/eventflow/eventflow/pkg/database"
	"github.com/eventflow/eventflow/pkg/queue"
	"github.com/eventflow/eventflow/pkg/redis"
	"github.com/eventflow/eventflow/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var media *storage.S3
	if cfg.AWS.Region != "" {
		media, err = storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			MediaBucket:          cfg.AWS.MediaBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
			media = nil
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	revoker := auth.NewRedisRevoker(rdb)

	hub := realtime.NewHub(logger, realtime.NewRedisPubSub(rdb, logger))
	hubCtx, hubCancel := context.WithCancel(context.Background())
	defer hubCancel()
	if err := hub.Start(hubCtx); err != nil {
		logger.Fatal("realtime", zap.Error(err))
	}
	defer hub.Stop()

	jobQueue := queue.NewQueue(rdb, logger)

	profileRepo := profiles.NewRepository(pool)
	eventRepo := events.NewRepository(pool)
	registrationRepo := registrations.NewRepository(pool)

	h := handlers{
		auth:          auth.NewHandler(auth.NewRepository(pool), jwtService, revoker, logger),
		profiles:      profiles.NewHandler(profileRepo, media, logger),
		clubs:         clubs.NewHandler(clubs.NewRepository(pool), media, hub, logger),
		events:        events.NewHandler(eventRepo, jobQueue, hub, logger),
		registrations: registrations.NewHandler(registrationRepo, hub, logger),
		analytics:     analytics.NewHandler(analytics.NewRepository(pool), logger),
	}

	wsValidate := func(token string) (uuid.UUID, error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return uuid.Nil, err
		}
		revoked, err := revoker.IsRevoked(context.Background(), claims.ID)
		if err != nil {
			return uuid.Nil, err
		}
		if revoked {
			return uuid.Nil, errors.New("token revoked")
		}
		return claims.UserID, nil
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))
	registerRoutes(router, h,
		auth.RequireSession(jwtService, revoker, logger),
		middleware.ResolveRole(profileRepo, logger),
	)
	router.GET("/ws", realtime.ServeWs(hub, logger, wsValidate))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Background jobs can also run in cmd/worker; WORKER_INLINE runs them here.
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	if cfg.Worker.Inline {
		go worker.NewEventProcessor(registrationRepo, jobQueue, hub, logger).Run(workerCtx)
		go worker.NewSweeper(eventRepo, hub, cfg.Worker.SweepInterval, logger).Run(workerCtx)
		logger.Info("inline worker started")
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
