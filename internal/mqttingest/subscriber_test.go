package mqttingest

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/config"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/models"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/service"
)

type message struct {
	topic   string
	payload []byte
}

func (m message) Duplicate() bool   { return false }
func (m message) Qos() byte         { return 1 }
func (m message) Retained() bool    { return false }
func (m message) Topic() string     { return m.topic }
func (m message) MessageID() uint16 { return 1 }
func (m message) Payload() []byte   { return m.payload }
func (m message) Ack()              {}

type captureIngestor struct {
	subs  []service.Submission
	metas []service.IngestMeta
	err   error
}

func (c *captureIngestor) IngestSubmission(_ context.Context, sub service.Submission, meta service.IngestMeta) (service.BatchResult, error) {
	c.subs = append(c.subs, sub)
	c.metas = append(c.metas, meta)
	return service.BatchResult{Total: len(sub.Items), Success: len(sub.Items)}, c.err
}

func TestHandlerUsesTopicLocation(t *testing.T) {
	ingest := &captureIngestor{}
	handler := NewHandler(context.Background(), ingest, "Home", zerolog.Nop())

	handler(nil, message{topic: "home/kitchen/sensors", payload: []byte(`{"temperature":22.5,"humidity":40}`)})

	require.Len(t, ingest.subs, 1)
	sub := ingest.subs[0]
	assert.Equal(t, service.ShapeLegacy, sub.Shape)
	require.Len(t, sub.Items, 2)
	for _, item := range sub.Items {
		assert.Equal(t, "kitchen", item.Location)
	}
	assert.Equal(t, service.SourceMQTT, ingest.metas[0].Source)
}

func TestHandlerFillsMissingLocationOnTypedReadings(t *testing.T) {
	ingest := &captureIngestor{}
	handler := NewHandler(context.Background(), ingest, "Home", zerolog.Nop())

	handler(nil, message{topic: "home/garage/sensors", payload: []byte(`{"readings":[
		{"sensorType":"current","value":3.2},
		{"sensorType":"voltage","value":229,"location":"Panel"},
		{"sensorId":4,"value":1}
	]}`)})

	require.Len(t, ingest.subs, 1)
	items := ingest.subs[0].Items
	require.Len(t, items, 3)
	assert.Equal(t, "garage", items[0].Location)
	assert.Equal(t, "Panel", items[1].Location)
	assert.Empty(t, items[2].Location, "readings addressed by id keep the sensor's own location")
	assert.Equal(t, models.SensorVoltage, items[1].SensorType)
}

func TestHandlerSkipsUndecodablePayload(t *testing.T) {
	ingest := &captureIngestor{}
	handler := NewHandler(context.Background(), ingest, "Home", zerolog.Nop())

	handler(nil, message{topic: "home/attic/sensors", payload: []byte(`garbage`)})
	assert.Empty(t, ingest.subs)
}

func TestHandlerSurvivesIngestFailure(t *testing.T) {
	ingest := &captureIngestor{err: errors.New("database down")}
	handler := NewHandler(context.Background(), ingest, "Home", zerolog.Nop())

	assert.NotPanics(t, func() {
		handler(nil, message{topic: "home/attic/sensors", payload: []byte(`{"light":12}`)})
	})
	assert.Len(t, ingest.subs, 1)
}

func TestLocationFromTopic(t *testing.T) {
	assert.Equal(t, "bedroom", locationFromTopic("home/bedroom/sensors", "Home"))
	assert.Equal(t, "Home", locationFromTopic("sensors", "Home"))
	assert.Equal(t, "Home", locationFromTopic("home/+/sensors", "Home"))
	assert.Equal(t, "Home", locationFromTopic("home//sensors", "Home"))
}

func TestNewClientOptions(t *testing.T) {
	opts := NewClientOptions(config.MQTTConfig{
		Broker:   "tcp://broker:1883",
		ClientID: "ingestor-1",
		Username: "svc",
		Password: "pw",
	})
	require.Len(t, opts.Servers, 1)
	assert.Equal(t, "broker:1883", opts.Servers[0].Host)
	assert.Equal(t, "ingestor-1", opts.ClientID)
	assert.Equal(t, "svc", opts.Username)
	assert.True(t, opts.AutoReconnect)
}
