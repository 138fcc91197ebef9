// Package mqttingest feeds device payloads published over MQTT into the ingestion service.
package mqttingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/config"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/service"
)

type Ingestor interface {
	IngestSubmission(ctx context.Context, sub service.Submission, meta service.IngestMeta) (service.BatchResult, error)
}

type Subscriber struct {
	client          mqtt.Client
	topic           string
	qos             byte
	ingest          Ingestor
	defaultLocation string
	log             zerolog.Logger
}

func NewClientOptions(cfg config.MQTTConfig) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetCleanSession(false)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username).SetPassword(cfg.Password)
	}
	return opts
}

func NewSubscriber(client mqtt.Client, cfg config.MQTTConfig, ingest Ingestor, defaultLocation string, log zerolog.Logger) *Subscriber {
	return &Subscriber{
		client:          client,
		topic:           cfg.Topic,
		qos:             cfg.QoS,
		ingest:          ingest,
		defaultLocation: defaultLocation,
		log:             log.With().Str("component", "mqtt").Str("topic", cfg.Topic).Logger(),
	}
}

// Run subscribes and blocks until ctx is cancelled.
func (s *Subscriber) Run(ctx context.Context) error {
	if token := s.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt connect: %w", token.Error())
	}
	defer s.client.Disconnect(250)

	handler := NewHandler(ctx, s.ingest, s.defaultLocation, s.log)
	if token := s.client.Subscribe(s.topic, s.qos, handler); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt subscribe %s: %w", s.topic, token.Error())
	}
	s.log.Info().Msg("ingestor subscribed")

	<-ctx.Done()
	if token := s.client.Unsubscribe(s.topic); token.WaitTimeout(2*time.Second) && token.Error() != nil {
		s.log.Warn().Err(token.Error()).Msg("unsubscribe failed")
	}
	return nil
}

// NewHandler decodes each message as a submission. A payload without a
// location takes it from the topic (home/<location>/sensors).
func NewHandler(ctx context.Context, ingest Ingestor, defaultLocation string, log zerolog.Logger) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		location := locationFromTopic(msg.Topic(), defaultLocation)
		sub, err := service.DecodeSubmission(msg.Payload(), location)
		if err != nil {
			log.Warn().Err(err).Str("topic", msg.Topic()).Msg("discarding undecodable payload")
			return
		}
		for i := range sub.Items {
			if sub.Items[i].Location == "" && sub.Items[i].SensorID == 0 {
				sub.Items[i].Location = location
			}
		}

		result, err := ingest.IngestSubmission(ctx, sub, service.IngestMeta{Source: service.SourceMQTT})
		if err != nil {
			log.Error().Err(err).Str("topic", msg.Topic()).Msg("ingest failed")
			return
		}
		if result.Failed > 0 {
			log.Warn().Int("failed", result.Failed).Interface("errors", result.Errors).Msg("some readings rejected")
		}
	}
}

func locationFromTopic(topic, fallback string) string {
	parts := strings.Split(topic, "/")
	if len(parts) >= 3 && parts[1] != "" && parts[1] != "+" {
		return parts[1]
	}
	return fallback
}
