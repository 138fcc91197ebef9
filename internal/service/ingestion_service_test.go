package service_test

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/apperr"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/config"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/models"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/realtime"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/repository"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/service"
)

func TestIngestClassifiesQuality(t *testing.T) {
	ctx := context.Background()
	stores := newStores(t)
	ingestion := newIngestion(t, stores, nil)

	hot, err := ingestion.Ingest(ctx, service.ReadingInput{
		SensorType: models.SensorTemperature,
		Value:      ptr(150.0),
		Location:   "Kitchen",
	}, service.IngestMeta{Source: service.SourceAPI})
	require.NoError(t, err)
	assert.Equal(t, models.QualityQuestionable, hot.Quality)

	normal, err := ingestion.Ingest(ctx, service.ReadingInput{
		SensorType: models.SensorTemperature,
		Value:      ptr(22.5),
		Location:   "Kitchen",
	}, service.IngestMeta{Source: service.SourceAPI})
	require.NoError(t, err)
	assert.Equal(t, models.QualityGood, normal.Quality)
	assert.Equal(t, hot.SensorID, normal.SensorID, "second reading reuses the auto-registered sensor")
	assert.Equal(t, "°C", normal.Unit)
}

func TestIngestAutoRegistersSensor(t *testing.T) {
	ctx := context.Background()
	stores := newStores(t)
	ingestion := newIngestion(t, stores, nil)

	reading, err := ingestion.Ingest(ctx, service.ReadingInput{
		SensorType: models.SensorHumidity,
		Value:      ptr(48.0),
		Location:   "Bedroom",
	}, service.IngestMeta{Source: service.SourceSensor})
	require.NoError(t, err)

	sensor, err := stores.Sensors.GetByID(ctx, reading.SensorID)
	require.NoError(t, err)
	assert.Equal(t, "humidity Sensor - Bedroom", sensor.Name)
	assert.Equal(t, models.SensorStatusActive, sensor.Status)
	require.NotNil(t, sensor.LastValue)
	assert.InDelta(t, 48.0, *sensor.LastValue, 1e-9)
}

func TestIngestAppliesCalibration(t *testing.T) {
	ctx := context.Background()
	stores := newStores(t)
	sensor := models.Sensor{
		Name:              "Panel",
		Type:              models.SensorCurrent,
		Location:          "Garage",
		Unit:              "A",
		CalibrationFactor: 2,
		Status:            models.SensorStatusActive,
	}
	require.NoError(t, stores.Sensors.Create(ctx, &sensor))

	reading, err := newIngestion(t, stores, nil).Ingest(ctx, service.ReadingInput{
		SensorID: sensor.ID,
		Value:    ptr(1.5),
	}, service.IngestMeta{Source: service.SourceAPI})
	require.NoError(t, err)
	assert.InDelta(t, 3.0, reading.Value, 1e-9)
	assert.Equal(t, "Garage", reading.Location)
}

func TestIngestRejectsMismatchedType(t *testing.T) {
	ctx := context.Background()
	stores := newStores(t)
	sensor := models.Sensor{Name: "Temp", Type: models.SensorTemperature, Location: "Hall", Unit: "°C", CalibrationFactor: 1, Status: models.SensorStatusActive}
	require.NoError(t, stores.Sensors.Create(ctx, &sensor))

	_, err := newIngestion(t, stores, nil).Ingest(ctx, service.ReadingInput{
		SensorID:   sensor.ID,
		SensorType: models.SensorHumidity,
		Value:      ptr(40.0),
	}, service.IngestMeta{})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestIngestUnknownSensor(t *testing.T) {
	_, err := newIngestion(t, newStores(t), nil).Ingest(context.Background(), service.ReadingInput{
		SensorID: 4242,
		Value:    ptr(1.0),
	}, service.IngestMeta{})
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Equal(t, "Sensor not found", apperr.From(err).Message)
}

func TestIngestValidation(t *testing.T) {
	ingestion := newIngestion(t, newStores(t), nil)

	cases := map[string]service.ReadingInput{
		"missing value":    {SensorType: models.SensorLight, Location: "Hall"},
		"missing location": {SensorType: models.SensorLight, Value: ptr(10.0)},
		"unknown type":     {SensorType: "pressure", Value: ptr(10.0), Location: "Hall"},
		"bad quality":      {SensorType: models.SensorLight, Value: ptr(10.0), Location: "Hall", Quality: "MEH"},
		"future timestamp": {SensorType: models.SensorLight, Value: ptr(10.0), Location: "Hall", Timestamp: ptr(time.Now().Add(time.Hour))},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ingestion.Ingest(context.Background(), in, service.IngestMeta{})
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		})
	}
}

func TestIngestKeepsExplicitBadQuality(t *testing.T) {
	reading, err := newIngestion(t, newStores(t), nil).Ingest(context.Background(), service.ReadingInput{
		SensorType: models.SensorTemperature,
		Value:      ptr(21.0),
		Location:   "Office",
		Quality:    models.QualityBad,
	}, service.IngestMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.QualityBad, reading.Quality)
}

func TestIngestBatchPartialFailure(t *testing.T) {
	ctx := context.Background()
	stores := newStores(t)
	events := &recorder{}
	ingestion := newIngestion(t, stores, events)

	body := []byte(`{"readings":[
		{"sensorType":"temperature","value":21.5,"location":"Office"},
		{"sensorType":"temperature","value":"warm","location":"Office"},
		{"sensorType":"humidity","value":"55.5","location":"Office"},
		{"sensorType":"laser","value":1,"location":"Office"},
		{"sensorType":"light","value":300,"location":"Office","timestamp":"2024-05-01T10:00:00Z"}
	]}`)
	items, err := service.DecodeBatch(body)
	require.NoError(t, err)
	require.Len(t, items, 5)

	result, err := ingestion.IngestBatch(ctx, items, service.IngestMeta{Source: service.SourceAPI})
	require.NoError(t, err)
	assert.Equal(t, 5, result.Total)
	assert.Equal(t, 3, result.Success)
	assert.Equal(t, 2, result.Failed)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, 1, result.Errors[0].Index)
	assert.Equal(t, 3, result.Errors[1].Index)

	stored, err := stores.Readings.Range(ctx, repository.ReadingQuery{})
	require.NoError(t, err)
	assert.Len(t, stored, 3)

	assert.Equal(t, []string{
		realtime.EventSensorUpdate,
		realtime.EventSensorUpdate,
		realtime.EventSensorUpdate,
		realtime.EventSensorBatch,
	}, events.names())
}

func TestIngestBatchRejectsEmpty(t *testing.T) {
	_, err := newIngestion(t, newStores(t), nil).IngestBatch(context.Background(), nil, service.IngestMeta{})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestIngestSubmissionLegacyPayload(t *testing.T) {
	ctx := context.Background()
	stores := newStores(t)

	sub, err := service.DecodeSubmission([]byte(`{"light_intensity":420,"temperature":23.1,"humidity":51,"current":1.2,"power":276,"timestamp":123456}`), "Home")
	require.NoError(t, err)
	assert.Equal(t, service.ShapeLegacy, sub.Shape)

	result, err := newIngestion(t, stores, nil).IngestSubmission(ctx, sub, service.IngestMeta{Source: service.SourceESP32})
	require.NoError(t, err)
	assert.Equal(t, 5, result.Success)
	assert.Zero(t, result.Failed)

	latest, err := stores.Readings.LatestByType(ctx, models.SensorLight)
	require.NoError(t, err)
	assert.InDelta(t, 420.0, latest.Value, 1e-9)
	assert.Equal(t, "Home", latest.Location)
	assert.Equal(t, service.SourceESP32, latest.Source)
	assert.WithinDuration(t, time.Now(), latest.Timestamp, time.Minute, "uptime millis fall back to server time")
}

func TestIngestHonoursClockSkewAllowance(t *testing.T) {
	ctx := context.Background()
	ingestion := service.NewIngestionService(newStores(t), nil, nil, config.IngestionConfig{MaxClockSkew: 5 * time.Minute}, zerolog.Nop())

	soon := time.Now().Add(2 * time.Minute)
	_, err := ingestion.Ingest(ctx, service.ReadingInput{SensorType: models.SensorLight, Value: ptr(10.0), Location: "Hall", Timestamp: &soon}, service.IngestMeta{})
	require.NoError(t, err)

	late := time.Now().Add(10 * time.Minute)
	_, err = ingestion.Ingest(ctx, service.ReadingInput{SensorType: models.SensorLight, Value: ptr(10.0), Location: "Hall", Timestamp: &late}, service.IngestMeta{})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Equal(t, "timestamp", apperr.From(err).Details[0].Field)
}

func TestLegacyReadingsTakeSensorUnit(t *testing.T) {
	ctx := context.Background()
	stores := newStores(t)
	sensor := models.Sensor{Name: "Kitchen Temp", Type: models.SensorTemperature, Location: "Kitchen", Unit: "C", CalibrationFactor: 1, Status: models.SensorStatusActive}
	require.NoError(t, stores.Sensors.Create(ctx, &sensor))

	sub, err := service.DecodeSubmission([]byte(`{"temperature":21.5,"humidity":40,"location":"Kitchen"}`), "Home")
	require.NoError(t, err)
	result, err := newIngestion(t, stores, nil).IngestSubmission(ctx, sub, service.IngestMeta{Source: service.SourceESP32})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Success)
	assert.Empty(t, result.Errors)
	require.Len(t, result.Readings, 2)
	assert.Equal(t, sensor.ID, result.Readings[0].SensorID)
	assert.Equal(t, "C", result.Readings[0].Unit)
	assert.Equal(t, "%", result.Readings[1].Unit, "auto-registered sensors get the default unit")
}

func TestIngestRejectsOverlongFields(t *testing.T) {
	ctx := context.Background()
	ingestion := newIngestion(t, newStores(t), nil)

	cases := map[string]struct {
		in    service.ReadingInput
		field string
	}{
		"location": {service.ReadingInput{SensorType: models.SensorLight, Value: ptr(1.0), Location: strings.Repeat("r", models.MaxLocationLen+1)}, "location"},
		"unit":     {service.ReadingInput{SensorType: models.SensorLight, Value: ptr(1.0), Location: "Hall", Unit: strings.Repeat("u", models.MaxUnitLen+1)}, "unit"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ingestion.Ingest(ctx, tc.in, service.IngestMeta{})
			require.Error(t, err)
			appErr := apperr.From(err)
			assert.Equal(t, apperr.KindValidation, appErr.Kind)
			require.Len(t, appErr.Details, 1)
			assert.Equal(t, tc.field, appErr.Details[0].Field)
		})
	}
}

func TestAutoRegisteredNameFitsColumn(t *testing.T) {
	ctx := context.Background()
	stores := newStores(t)
	location := strings.Repeat("é", models.MaxLocationLen)

	reading, err := newIngestion(t, stores, nil).Ingest(ctx, service.ReadingInput{SensorType: models.SensorTemperature, Value: ptr(20.0), Location: location}, service.IngestMeta{})
	require.NoError(t, err)

	sensor, err := stores.Sensors.GetByID(ctx, reading.SensorID)
	require.NoError(t, err)
	assert.Equal(t, models.MaxSensorNameLen, utf8.RuneCountInString(sensor.Name))
	assert.Equal(t, location, sensor.Location)
}
