package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/cache"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/config"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/database"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/handlers"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/jobs"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/log"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/realtime"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/server"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/service"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/storage"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, "api")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, closeStores, err := database.OpenStores(ctx, cfg.Database, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("failed to open database")
	}
	if cfg.Database.Seed {
		if err := database.Seed(ctx, stores, logger); err != nil {
			logger.Error().Err(err).Msg("seed failed")
		}
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}

	var objectStore *storage.ObjectStore
	if cfg.Storage.Endpoint != "" {
		objectStore, err = storage.NewObjectStore(cfg.Storage)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init object store")
		}
		if err := objectStore.EnsureBuckets(ctx); err != nil {
			logger.Warn().Err(err).Msg("ensure buckets failed")
		}
	}

	hub := realtime.NewHub(logger, realtime.Options{
		SendBuffer:   cfg.Realtime.SendBuffer,
		WriteTimeout: cfg.Realtime.WriteTimeout,
		PingInterval: cfg.Realtime.PingInterval,
	})
	go hub.Run(ctx)

	var publisher realtime.Publisher = hub
	if redisClient != nil && cfg.Realtime.RedisChannel != "" {
		relay := realtime.NewRedisRelay(redisClient, cfg.Realtime.RedisChannel, hub, logger)
		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("realtime relay stopped")
			}
		}()
		publisher = relay
	}

	handlerSet := handlers.NewHandlerSet(handlers.Dependencies{
		Log:       logger,
		Config:    cfg,
		Stores:    stores,
		Cache:     redisClient,
		Objects:   objectStore,
		Hub:       hub,
		Publisher: publisher,
	})
	httpServer, err := server.NewHTTPServer(cfg, logger, handlerSet)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build http server")
	}

	processor := tasks.NewProcessor(logger, service.NewMaintenanceService(stores, cfg, logger))
	scheduler := jobs.NewScheduler(redisClient, cfg.Worker.Stream, processor, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	waitForShutdown(logger, httpServer, scheduler, closeStores, redisClient)
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, closeStores func(), redisClient *redis.Client) {
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	scheduler.Stop(5 * time.Second)
	closeStores()

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("redis close error")
		}
	}

	logger.Info().Msg("server exited cleanly")
}
