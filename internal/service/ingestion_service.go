package service

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/apperr"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/cache"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/config"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/models"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/realtime"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/repository"
)

const (
	SourceAPI     = "api"
	SourceSensor  = "sensor"
	SourceWebhook = "webhook"
	SourceESP32   = "esp32"
	SourceMQTT    = "mqtt"
)

// IngestMeta describes where a submission came from.
type IngestMeta struct {
	Source string
	UserID *int64
}

type ItemError struct {
	Index   int                 `json:"index"`
	Message string              `json:"message"`
	Details []apperr.FieldError `json:"details,omitempty"`
}

type BatchResult struct {
	Total    int                    `json:"total"`
	Success  int                    `json:"success"`
	Failed   int                    `json:"failed"`
	Readings []models.SensorReading `json:"readings"`
	Errors   []ItemError            `json:"errors"`
}

// BatchSummary is the payload of the sensor-batch event.
type BatchSummary struct {
	Source    string    `json:"source"`
	Total     int       `json:"total"`
	Success   int       `json:"success"`
	Failed    int       `json:"failed"`
	Timestamp time.Time `json:"timestamp"`
}

type IngestionService struct {
	sensors   repository.SensorStore
	readings  repository.ReadingStore
	snapshot  *cache.Snapshot
	publisher realtime.Publisher
	ranges    Ranges
	maxSkew   time.Duration
	log       zerolog.Logger
	now       func() time.Time
}

func NewIngestionService(
	stores repository.Stores,
	snapshot *cache.Snapshot,
	publisher realtime.Publisher,
	cfg config.IngestionConfig,
	log zerolog.Logger,
) *IngestionService {
	if publisher == nil {
		publisher = realtime.Discard{}
	}
	return &IngestionService{
		sensors:   stores.Sensors,
		readings:  stores.Readings,
		snapshot:  snapshot,
		publisher: publisher,
		ranges:    RangesFromConfig(cfg),
		maxSkew:   cfg.MaxClockSkew,
		log:       log.With().Str("component", "ingestion").Logger(),
		now:       time.Now,
	}
}

// Ingest stores one reading. The write and its broadcast complete even if ctx is cancelled.
func (s *IngestionService) Ingest(ctx context.Context, in ReadingInput, meta IngestMeta) (models.SensorReading, error) {
	ctx = context.WithoutCancel(ctx)

	reading, err := s.store(ctx, in, meta)
	if err != nil {
		return models.SensorReading{}, err
	}
	s.afterWrite(ctx, []models.SensorReading{reading})
	return reading, nil
}

// IngestBatch stores each item independently; failures are reported per index.
func (s *IngestionService) IngestBatch(ctx context.Context, items []ReadingInput, meta IngestMeta) (BatchResult, error) {
	if len(items) == 0 {
		return BatchResult{}, apperr.Validation("readings array is required and must not be empty",
			apperr.FieldError{Field: "readings", Message: "must not be empty"})
	}
	ctx = context.WithoutCancel(ctx)

	result := BatchResult{
		Total:    len(items),
		Readings: make([]models.SensorReading, 0, len(items)),
		Errors:   []ItemError{},
	}
	for i, in := range items {
		reading, err := s.store(ctx, in, meta)
		if err != nil {
			appErr := apperr.From(err)
			if appErr.Kind == apperr.KindInternal {
				s.log.Error().Err(err).Int("index", i).Msg("store batch reading")
			}
			result.Errors = append(result.Errors, ItemError{Index: i, Message: appErr.Message, Details: appErr.Details})
			continue
		}
		result.Readings = append(result.Readings, reading)
	}
	result.Success = len(result.Readings)
	result.Failed = len(result.Errors)

	s.afterWrite(ctx, result.Readings)
	s.publisher.Publish(ctx, realtime.Event{
		Name: realtime.EventSensorBatch,
		Data: BatchSummary{
			Source:    meta.Source,
			Total:     result.Total,
			Success:   result.Success,
			Failed:    result.Failed,
			Timestamp: s.now().UTC(),
		},
	})
	return result, nil
}

// IngestSubmission routes a decoded submission to the single or batch path.
func (s *IngestionService) IngestSubmission(ctx context.Context, sub Submission, meta IngestMeta) (BatchResult, error) {
	if sub.Shape == ShapeSingle && len(sub.Items) == 1 {
		reading, err := s.Ingest(ctx, sub.Items[0], meta)
		if err != nil {
			return BatchResult{}, err
		}
		return BatchResult{Total: 1, Success: 1, Readings: []models.SensorReading{reading}, Errors: []ItemError{}}, nil
	}
	return s.IngestBatch(ctx, sub.Items, meta)
}

func (s *IngestionService) store(ctx context.Context, in ReadingInput, meta IngestMeta) (models.SensorReading, error) {
	problems := append([]apperr.FieldError(nil), in.Problems...)
	if in.SensorType != "" && !in.SensorType.Valid() {
		problems = append(problems, apperr.FieldError{Field: "sensorType", Message: "must be one of current, voltage, temperature, humidity, light, power, energy"})
	}
	if in.SensorID == 0 {
		if in.SensorType == "" {
			problems = append(problems, apperr.FieldError{Field: "sensorType", Message: "is required"})
		}
		if in.Location == "" {
			problems = append(problems, apperr.FieldError{Field: "location", Message: "is required when sensorId is absent"})
		}
	}
	if in.Value == nil && len(in.Problems) == 0 {
		problems = append(problems, apperr.FieldError{Field: "value", Message: "is required"})
	}
	if in.Quality != "" && !in.Quality.Valid() {
		problems = append(problems, apperr.FieldError{Field: "quality", Message: "must be GOOD, QUESTIONABLE or BAD"})
	}
	if utf8.RuneCountInString(in.Location) > models.MaxLocationLen {
		problems = append(problems, apperr.FieldError{Field: "location", Message: fmt.Sprintf("must be at most %d characters", models.MaxLocationLen)})
	}
	if utf8.RuneCountInString(in.Unit) > models.MaxUnitLen {
		problems = append(problems, apperr.FieldError{Field: "unit", Message: fmt.Sprintf("must be at most %d characters", models.MaxUnitLen)})
	}

	now := s.now().UTC()
	at := now
	if in.Timestamp != nil {
		at = in.Timestamp.UTC()
		if at.After(now.Add(s.maxSkew)) {
			problems = append(problems, apperr.FieldError{Field: "timestamp", Message: "must not be in the future"})
		}
	}
	if len(problems) > 0 {
		return models.SensorReading{}, apperr.Validation("Invalid sensor reading", problems...)
	}

	sensor, err := s.resolveSensor(ctx, in, meta)
	if err != nil {
		return models.SensorReading{}, err
	}

	if in.SensorType != "" && in.SensorType != sensor.Type {
		return models.SensorReading{}, apperr.Validation("Invalid sensor reading",
			apperr.FieldError{Field: "sensorType", Message: fmt.Sprintf("sensor %d measures %s", sensor.ID, sensor.Type)})
	}
	if in.Unit != "" && in.Unit != sensor.Unit {
		return models.SensorReading{}, apperr.Validation("Invalid sensor reading",
			apperr.FieldError{Field: "unit", Message: fmt.Sprintf("sensor %d reports in %s", sensor.ID, sensor.Unit)})
	}

	factor := sensor.CalibrationFactor
	if factor == 0 {
		factor = 1
	}
	value := *in.Value * factor

	quality := s.ranges.Classify(sensor.Type, value)
	if in.Quality == models.QualityBad {
		quality = models.QualityBad
	}

	reading := models.SensorReading{
		SensorID:  sensor.ID,
		Type:      sensor.Type,
		Value:     value,
		Unit:      sensor.Unit,
		Location:  sensor.Location,
		Timestamp: at.Truncate(time.Millisecond),
		Quality:   quality,
		Source:    meta.Source,
	}
	if err := s.readings.Insert(ctx, &reading); err != nil {
		if errors.Is(err, repository.ErrReference) {
			return models.SensorReading{}, apperr.NotFound("Sensor not found")
		}
		return models.SensorReading{}, apperr.Internal(fmt.Errorf("insert reading: %w", err))
	}

	if err := s.sensors.RecordLastReading(ctx, sensor.ID, value, reading.Timestamp); err != nil {
		s.log.Warn().Err(err).Int64("sensor_id", sensor.ID).Msg("update sensor last reading")
	}
	return reading, nil
}

func (s *IngestionService) resolveSensor(ctx context.Context, in ReadingInput, meta IngestMeta) (models.Sensor, error) {
	if in.SensorID != 0 {
		sensor, err := s.sensors.GetByID(ctx, in.SensorID)
		if errors.Is(err, repository.ErrSensorNotFound) {
			return models.Sensor{}, apperr.NotFound("Sensor not found")
		}
		if err != nil {
			return models.Sensor{}, apperr.Internal(fmt.Errorf("load sensor: %w", err))
		}
		return sensor, nil
	}

	sensor, err := s.sensors.FindByTypeLocation(ctx, in.SensorType, in.Location)
	if err == nil {
		return sensor, nil
	}
	if !errors.Is(err, repository.ErrSensorNotFound) {
		return models.Sensor{}, apperr.Internal(fmt.Errorf("find sensor: %w", err))
	}

	unit := in.Unit
	if unit == "" {
		unit = in.SensorType.DefaultUnit()
	}
	sensor = models.Sensor{
		Name:              truncateRunes(fmt.Sprintf("%s Sensor - %s", in.SensorType, in.Location), models.MaxSensorNameLen),
		Type:              in.SensorType,
		Location:          in.Location,
		Unit:              unit,
		CalibrationFactor: 1,
		Status:            models.SensorStatusActive,
		UserID:            meta.UserID,
	}
	if err := s.sensors.Create(ctx, &sensor); err != nil {
		return models.Sensor{}, apperr.Internal(fmt.Errorf("create sensor: %w", err))
	}
	s.log.Info().Int64("sensor_id", sensor.ID).Str("type", string(sensor.Type)).Str("location", sensor.Location).Msg("sensor auto-registered")
	return sensor, nil
}

func (s *IngestionService) afterWrite(ctx context.Context, readings []models.SensorReading) {
	if len(readings) == 0 {
		return
	}
	if err := s.snapshot.Invalidate(ctx); err != nil {
		s.log.Warn().Err(err).Msg("invalidate current values")
	}
	for _, reading := range readings {
		s.publisher.Publish(ctx, realtime.Event{Name: realtime.EventSensorUpdate, Data: reading})
	}
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
