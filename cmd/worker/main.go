package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/cache"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/config"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/database"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/log"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/queue"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/service"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, "worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	if client == nil {
		logger.Fatal().Msg("redis.addr is required for the worker")
	}
	defer client.Close()

	stores, closeStores, err := database.OpenStores(ctx, cfg.Database, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open database")
	}
	defer closeStores()

	processor := tasks.NewProcessor(logger, service.NewMaintenanceService(stores, cfg, logger))
	consumer := queue.NewConsumer(
		client,
		cfg.Worker.Stream,
		cfg.Worker.Group,
		cfg.Worker.Consumer,
		cfg.Worker.ClaimInterval,
		logger,
		processor,
	)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("consumer stopped unexpectedly")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		logger.Warn().Msg("consumer did not stop in time")
	}
}
