package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/apperr"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/models"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/repository"
)

// Series is chart-ready: Labels[i] is the HH:MM of Data[i].
type Series struct {
	Labels []string  `json:"labels"`
	Data   []float64 `json:"data"`
}

type EnergyService struct {
	readings repository.ReadingStore
	energy   repository.EnergyStore
	loc      *time.Location
	now      func() time.Time
}

func NewEnergyService(stores repository.Stores, loc *time.Location) *EnergyService {
	if loc == nil {
		loc = time.UTC
	}
	return &EnergyService{
		readings: stores.Readings,
		energy:   stores.Energy,
		loc:      loc,
		now:      time.Now,
	}
}

// Series returns energy readings of the trailing window in ascending order.
func (s *EnergyService) Series(ctx context.Context, hours int) (Series, error) {
	return s.SeriesFor(ctx, models.SensorEnergy, hours)
}

func (s *EnergyService) SeriesFor(ctx context.Context, t models.SensorType, hours int) (Series, error) {
	if err := validateHours(hours); err != nil {
		return Series{}, err
	}
	readings, err := s.readings.Range(ctx, repository.ReadingQuery{
		Type: t,
		From: s.now().UTC().Add(-time.Duration(hours) * time.Hour),
	})
	if err != nil {
		return Series{}, apperr.Internal(fmt.Errorf("%s series: %w", t, err))
	}

	series := Series{Labels: make([]string, 0, len(readings)), Data: make([]float64, 0, len(readings))}
	for _, r := range readings {
		series.Labels = append(series.Labels, r.Timestamp.In(s.loc).Format("15:04"))
		series.Data = append(series.Data, r.Value)
	}
	return series, nil
}

// Usage lists rollup rows, newest first. deviceID 0 means all devices.
func (s *EnergyService) Usage(ctx context.Context, deviceID int64, hours int) ([]models.EnergyUsage, error) {
	if err := validateHours(hours); err != nil {
		return nil, err
	}
	rows, err := s.energy.List(ctx, repository.EnergyQuery{
		DeviceID: deviceID,
		From:     s.now().UTC().Add(-time.Duration(hours) * time.Hour),
		Limit:    MaxDataLimit,
	})
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("list energy usage: %w", err))
	}
	return rows, nil
}

func validateHours(hours int) error {
	if hours < 1 || hours > MaxWindowHours {
		return apperr.Validation("Invalid query parameters",
			apperr.FieldError{Field: "hours", Message: fmt.Sprintf("must be between 1 and %d", MaxWindowHours)})
	}
	return nil
}
