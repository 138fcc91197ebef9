package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/config"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/log"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/mqttingest"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/simulator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, "simulator")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var sender simulator.Sender
	switch cfg.Simulator.Mode {
	case "mqtt":
		opts := mqttingest.NewClientOptions(cfg.MQTT)
		opts.SetClientID(cfg.MQTT.ClientID + "-simulator")
		client := mqtt.NewClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			logger.Fatal().Err(token.Error()).Msg("mqtt connect failed")
		}
		defer client.Disconnect(250)
		sender = simulator.NewMQTTSender(client, cfg.Simulator.Target, cfg.MQTT.QoS)
	default:
		sender = simulator.NewHTTPSender(nil, cfg.Simulator.Target, cfg.Webhook.APIKey, cfg.Webhook.SignatureSecret)
	}

	gen := simulator.NewGenerator(time.Now().UnixNano(), cfg.Simulator.Location)
	logger.Info().
		Str("mode", cfg.Simulator.Mode).
		Str("target", cfg.Simulator.Target).
		Dur("interval", cfg.Simulator.Interval).
		Msg("simulator starting")

	if err := simulator.Run(ctx, gen, sender, cfg.Simulator.Interval, cfg.Simulator.Count, logger); err != nil {
		logger.Error().Err(err).Msg("simulator stopped")
	}
}
