package main

import (
	"context"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/cache"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/config"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/database"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/log"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/mqttingest"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/realtime"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, "ingestor")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, closeStores, err := database.OpenStores(ctx, cfg.Database, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open database")
	}
	defer closeStores()

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}

	// Without Redis, dashboards only learn about MQTT readings on their next poll.
	var publisher realtime.Publisher = realtime.Discard{}
	if redisClient != nil {
		defer redisClient.Close()
		if cfg.Realtime.RedisChannel != "" {
			publisher = realtime.NewRedisRelay(redisClient, cfg.Realtime.RedisChannel, nil, logger)
		}
	}

	snapshot := cache.NewSnapshot(redisClient, cache.CurrentValuesKey, cache.CurrentValuesTTL)
	ingestion := service.NewIngestionService(stores, snapshot, publisher, cfg.Ingestion, logger)

	client := mqtt.NewClient(mqttingest.NewClientOptions(cfg.MQTT))
	subscriber := mqttingest.NewSubscriber(client, cfg.MQTT, ingestion, cfg.Ingestion.DefaultLocation, logger)

	logger.Info().Str("broker", cfg.MQTT.Broker).Msg("ingestor starting")
	if err := subscriber.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ingestor failed")
	}
	logger.Info().Msg("ingestor stopped")
}
