// Package simulator produces ESP32-style readings for exercising the ingestion paths.
package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/ids"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/security"
)

const UserAgent = "ESP32-SmartHome-Sensor"

// Payload mirrors what the ESP32 firmware posts.
type Payload struct {
	LightIntensity float64 `json:"light_intensity"`
	Temperature    float64 `json:"temperature"`
	Humidity       float64 `json:"humidity"`
	Current        float64 `json:"current"`
	Power          float64 `json:"power"`
	Energy         float64 `json:"energy"`
	Location       string  `json:"location,omitempty"`
	Timestamp      int64   `json:"timestamp"`
}

// Generator walks plausible values with a daily temperature and light cycle.
type Generator struct {
	rng      *rand.Rand
	location string
	energy   float64
	last     time.Time
}

func NewGenerator(seed int64, location string) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed)), location: location}
}

func (g *Generator) Next(now time.Time) Payload {
	hour := float64(now.Hour()) + float64(now.Minute())/60
	daylight := math.Max(0, math.Sin((hour-6)/12*math.Pi))

	current := 0.5 + g.rng.Float64()*4.5
	power := current * 230
	if !g.last.IsZero() {
		g.energy += power * now.Sub(g.last).Hours() / 1000
	}
	g.last = now

	return Payload{
		LightIntensity: round(daylight*800+g.rng.Float64()*50, 2),
		Temperature:    round(20+4*daylight+g.rng.NormFloat64()*0.5, 2),
		Humidity:       round(55-10*daylight+g.rng.NormFloat64()*2, 2),
		Current:        round(current, 3),
		Power:          round(power, 2),
		Energy:         round(g.energy, 4),
		Location:       g.location,
		Timestamp:      now.UnixMilli(),
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

type Sender interface {
	Send(ctx context.Context, p Payload) error
}

// HTTPSender posts payloads the way the firmware does.
type HTTPSender struct {
	client *http.Client
	url    string
	apiKey string
	secret string
	now    func() time.Time
}

// NewHTTPSender signs requests when secret is set.
func NewHTTPSender(client *http.Client, url, apiKey, secret string) *HTTPSender {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPSender{client: client, url: url, apiKey: apiKey, secret: secret, now: time.Now}
}

func (s *HTTPSender) Send(ctx context.Context, p Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", UserAgent)
	if s.apiKey != "" {
		req.Header.Set(security.HeaderAPIKey, s.apiKey)
	}
	if s.secret != "" {
		date := s.now().UTC().Format(time.RFC3339)
		nonce := ids.New()
		req.Header.Set(security.HeaderDate, date)
		req.Header.Set(security.HeaderNonce, nonce)
		req.Header.Set(security.HeaderSignature, security.ComputeSignature(
			s.secret, req.Method, req.URL.Path, security.ComputeBodyHash(body), date, nonce,
		))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("server answered %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	return nil
}

type MQTTSender struct {
	client mqtt.Client
	topic  string
	qos    byte
}

func NewMQTTSender(client mqtt.Client, topic string, qos byte) *MQTTSender {
	return &MQTTSender{client: client, topic: topic, qos: qos}
}

func (s *MQTTSender) Send(ctx context.Context, p Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return err
	}
	token := s.client.Publish(s.topic, s.qos, false, body)
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run sends count payloads (0 means until ctx ends) spaced by interval.
func Run(ctx context.Context, gen *Generator, sender Sender, interval time.Duration, count int, log zerolog.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for sent := 0; count == 0 || sent < count; sent++ {
		p := gen.Next(time.Now())
		if err := sender.Send(ctx, p); err != nil {
			log.Warn().Err(err).Msg("send failed")
		} else {
			log.Debug().Float64("temperature", p.Temperature).Float64("power", p.Power).Msg("reading sent")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
	return nil
}
