package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/apperr"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/models"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/repository"
)

const (
	DefaultWindowHours = 24
	MaxWindowHours     = 720
	DefaultDataLimit   = 1000
	MaxDataLimit       = 10000
	recentReadings     = 10
)

type SensorInput struct {
	Name              string
	Type              string
	Location          string
	Unit              string
	CalibrationFactor *float64
	Status            string
	DeviceID          *int64
	UserID            *int64
}

type SensorPatch struct {
	Name              *string
	Location          *string
	Unit              *string
	CalibrationFactor *float64
	Status            *string
	DeviceID          *int64
}

type SensorDetail struct {
	models.Sensor
	RecentReadings []models.SensorReading `json:"recentReadings"`
}

// DataQuery selects a window either by trailing Hours or by explicit From/To.
type DataQuery struct {
	Hours int
	From  *time.Time
	To    *time.Time
	Limit int
}

type ReadingStats struct {
	Count   int     `json:"count"`
	Average float64 `json:"average"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

type SensorData struct {
	Sensor     models.Sensor          `json:"sensor"`
	Readings   []models.SensorReading `json:"readings"`
	Statistics ReadingStats           `json:"statistics"`
}

type SensorService struct {
	sensors  repository.SensorStore
	readings repository.ReadingStore
	reports  repository.ReportStore
	log      zerolog.Logger
	now      func() time.Time
}

func NewSensorService(stores repository.Stores, log zerolog.Logger) *SensorService {
	return &SensorService{
		sensors:  stores.Sensors,
		readings: stores.Readings,
		reports:  stores.Reports,
		log:      log.With().Str("component", "sensors").Logger(),
		now:      time.Now,
	}
}

func (s *SensorService) List(ctx context.Context, filter repository.SensorFilter) ([]models.Sensor, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, invalidSensorType()
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, invalidSensorStatus()
	}
	sensors, err := s.sensors.List(ctx, filter)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("list sensors: %w", err))
	}
	return sensors, nil
}

func (s *SensorService) Get(ctx context.Context, id int64) (SensorDetail, error) {
	sensor, err := s.sensors.GetByID(ctx, id)
	if err != nil {
		return SensorDetail{}, sensorError(err)
	}
	recent, err := s.readings.LatestBySensor(ctx, id, recentReadings)
	if err != nil {
		return SensorDetail{}, apperr.Internal(fmt.Errorf("recent readings: %w", err))
	}
	return SensorDetail{Sensor: sensor, RecentReadings: recent}, nil
}

func (s *SensorService) Create(ctx context.Context, in SensorInput) (models.Sensor, error) {
	sensor := models.Sensor{
		Name:              strings.TrimSpace(in.Name),
		Type:              models.SensorType(strings.ToLower(strings.TrimSpace(in.Type))),
		Location:          strings.TrimSpace(in.Location),
		Unit:              strings.TrimSpace(in.Unit),
		CalibrationFactor: 1,
		Status:            models.SensorStatusActive,
		DeviceID:          in.DeviceID,
		UserID:            in.UserID,
	}
	if in.CalibrationFactor != nil {
		sensor.CalibrationFactor = *in.CalibrationFactor
	}
	if in.Status != "" {
		sensor.Status = models.SensorStatus(strings.ToUpper(in.Status))
	}
	if err := validateSensor(sensor); err != nil {
		return models.Sensor{}, err
	}
	if err := s.sensors.Create(ctx, &sensor); err != nil {
		return models.Sensor{}, sensorError(err)
	}
	s.log.Info().Int64("sensor_id", sensor.ID).Str("type", string(sensor.Type)).Msg("sensor created")
	return sensor, nil
}

// Update applies a partial change. The sensor type is fixed at creation.
func (s *SensorService) Update(ctx context.Context, id int64, patch SensorPatch) (models.Sensor, error) {
	sensor, err := s.sensors.GetByID(ctx, id)
	if err != nil {
		return models.Sensor{}, sensorError(err)
	}
	if patch.Name != nil {
		sensor.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Location != nil {
		sensor.Location = strings.TrimSpace(*patch.Location)
	}
	if patch.Unit != nil {
		sensor.Unit = strings.TrimSpace(*patch.Unit)
	}
	if patch.CalibrationFactor != nil {
		sensor.CalibrationFactor = *patch.CalibrationFactor
	}
	if patch.Status != nil {
		sensor.Status = models.SensorStatus(strings.ToUpper(*patch.Status))
	}
	if patch.DeviceID != nil {
		sensor.DeviceID = patch.DeviceID
	}
	if err := validateSensor(sensor); err != nil {
		return models.Sensor{}, err
	}
	if err := s.sensors.Update(ctx, &sensor); err != nil {
		return models.Sensor{}, sensorError(err)
	}
	return sensor, nil
}

func (s *SensorService) Delete(ctx context.Context, id int64) error {
	if err := s.sensors.Delete(ctx, id); err != nil {
		return sensorError(err)
	}
	s.log.Info().Int64("sensor_id", id).Msg("sensor deleted")
	return nil
}

func (s *SensorService) SetStatus(ctx context.Context, id int64, status string) (models.Sensor, error) {
	parsed := models.SensorStatus(strings.ToUpper(strings.TrimSpace(status)))
	if !parsed.Valid() {
		return models.Sensor{}, invalidSensorStatus()
	}
	sensor, err := s.sensors.SetStatus(ctx, id, parsed)
	if err != nil {
		return models.Sensor{}, sensorError(err)
	}
	return sensor, nil
}

// Data returns readings of one sensor in ascending time order with summary statistics.
func (s *SensorService) Data(ctx context.Context, id int64, q DataQuery) (SensorData, error) {
	if q.Hours == 0 {
		q.Hours = DefaultWindowHours
	}
	if q.Limit == 0 {
		q.Limit = DefaultDataLimit
	}
	var problems []apperr.FieldError
	if q.Hours < 1 || q.Hours > MaxWindowHours {
		problems = append(problems, apperr.FieldError{Field: "hours", Message: fmt.Sprintf("must be between 1 and %d", MaxWindowHours)})
	}
	if q.Limit < 1 || q.Limit > MaxDataLimit {
		problems = append(problems, apperr.FieldError{Field: "limit", Message: fmt.Sprintf("must be between 1 and %d", MaxDataLimit)})
	}
	if q.From != nil && q.To != nil && q.To.Before(*q.From) {
		problems = append(problems, apperr.FieldError{Field: "endDate", Message: "must not be before startDate"})
	}
	if len(problems) > 0 {
		return SensorData{}, apperr.Validation("Invalid query parameters", problems...)
	}

	sensor, err := s.sensors.GetByID(ctx, id)
	if err != nil {
		return SensorData{}, sensorError(err)
	}

	query := repository.ReadingQuery{SensorID: id, Limit: q.Limit}
	switch {
	case q.From != nil || q.To != nil:
		if q.From != nil {
			query.From = q.From.UTC()
		}
		if q.To != nil {
			query.To = q.To.UTC()
		}
	default:
		query.From = s.now().UTC().Add(-time.Duration(q.Hours) * time.Hour)
	}

	readings, err := s.readings.Range(ctx, query)
	if err != nil {
		return SensorData{}, apperr.Internal(fmt.Errorf("sensor readings: %w", err))
	}
	return SensorData{Sensor: sensor, Readings: readings, Statistics: summarize(readings)}, nil
}

// Summary lists active sensors with their cached last reading.
func (s *SensorService) Summary(ctx context.Context) ([]models.Sensor, error) {
	return s.List(ctx, repository.SensorFilter{Status: models.SensorStatusActive})
}

func (s *SensorService) TypeCounts(ctx context.Context) ([]repository.TypeCount, error) {
	counts, err := s.reports.SensorTypeCounts(ctx)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("sensor type counts: %w", err))
	}
	return counts, nil
}

func (s *SensorService) ByType(ctx context.Context, sensorType string) ([]models.Sensor, error) {
	t := models.SensorType(strings.ToLower(sensorType))
	if !t.Valid() {
		return nil, invalidSensorType()
	}
	return s.List(ctx, repository.SensorFilter{Type: t})
}

func summarize(readings []models.SensorReading) ReadingStats {
	if len(readings) == 0 {
		return ReadingStats{}
	}
	stats := ReadingStats{Count: len(readings), Min: math.Inf(1), Max: math.Inf(-1)}
	var sum float64
	for _, r := range readings {
		sum += r.Value
		stats.Min = math.Min(stats.Min, r.Value)
		stats.Max = math.Max(stats.Max, r.Value)
	}
	stats.Average = round2(sum / float64(len(readings)))
	return stats
}

func validateSensor(sensor models.Sensor) error {
	var problems []apperr.FieldError
	if sensor.Name == "" || utf8.RuneCountInString(sensor.Name) > models.MaxSensorNameLen {
		problems = append(problems, apperr.FieldError{Field: "name", Message: fmt.Sprintf("must be 1 to %d characters", models.MaxSensorNameLen)})
	}
	if !sensor.Type.Valid() {
		problems = append(problems, apperr.FieldError{Field: "type", Message: "must be one of current, voltage, temperature, humidity, light, power, energy"})
	}
	if sensor.Location == "" || utf8.RuneCountInString(sensor.Location) > models.MaxLocationLen {
		problems = append(problems, apperr.FieldError{Field: "location", Message: fmt.Sprintf("must be 1 to %d characters", models.MaxLocationLen)})
	}
	if sensor.Unit == "" || utf8.RuneCountInString(sensor.Unit) > models.MaxUnitLen {
		problems = append(problems, apperr.FieldError{Field: "unit", Message: fmt.Sprintf("must be 1 to %d characters", models.MaxUnitLen)})
	}
	if sensor.CalibrationFactor <= 0 {
		problems = append(problems, apperr.FieldError{Field: "calibrationFactor", Message: "must be greater than 0"})
	}
	if !sensor.Status.Valid() {
		problems = append(problems, apperr.FieldError{Field: "status", Message: "must be ACTIVE, INACTIVE or MAINTENANCE"})
	}
	if len(problems) > 0 {
		return apperr.Validation("Invalid sensor", problems...)
	}
	return nil
}

func invalidSensorType() error {
	return apperr.Validation("Invalid sensor type",
		apperr.FieldError{Field: "type", Message: "must be one of current, voltage, temperature, humidity, light, power, energy"})
}

func invalidSensorStatus() error {
	return apperr.Validation("Invalid sensor status",
		apperr.FieldError{Field: "status", Message: "must be ACTIVE, INACTIVE or MAINTENANCE"})
}

func sensorError(err error) error {
	switch {
	case errors.Is(err, repository.ErrSensorNotFound):
		return apperr.NotFound("Sensor not found")
	case errors.Is(err, repository.ErrReference):
		return apperr.Validation("Referenced device or user does not exist")
	case errors.Is(err, repository.ErrDuplicate):
		return apperr.Conflict("Sensor already exists")
	}
	return apperr.Internal(err)
}
