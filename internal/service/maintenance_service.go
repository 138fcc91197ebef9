package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/config"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/models"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/repository"
)

// MaintenanceService runs the periodic housekeeping tasks.
type MaintenanceService struct {
	devices   repository.DeviceStore
	readings  repository.ReadingStore
	energy    repository.EnergyStore
	retention time.Duration
	tariff    float64
	interval  time.Duration
	log       zerolog.Logger
	now       func() time.Time
}

func NewMaintenanceService(stores repository.Stores, cfg *config.AppConfig, log zerolog.Logger) *MaintenanceService {
	interval := cfg.Energy.RollupInterval
	if interval <= 0 {
		interval = time.Hour
	}
	return &MaintenanceService{
		devices:   stores.Devices,
		readings:  stores.Readings,
		energy:    stores.Energy,
		retention: cfg.Retention.Readings,
		tariff:    cfg.Energy.TariffPerKWh,
		interval:  interval,
		log:       log.With().Str("component", "maintenance").Logger(),
		now:       time.Now,
	}
}

// PurgeReadings deletes readings older than the retention window. A zero window disables it.
func (s *MaintenanceService) PurgeReadings(ctx context.Context) (int64, error) {
	if s.retention <= 0 {
		return 0, nil
	}
	cutoff := s.now().UTC().Add(-s.retention)
	deleted, err := s.readings.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge readings: %w", err)
	}
	s.log.Info().Int64("deleted", deleted).Time("cutoff", cutoff).Msg("retention sweep finished")
	return deleted, nil
}

// RollupEnergy records one EnergyUsage row per device that is ON and has a parseable rating.
func (s *MaintenanceService) RollupEnergy(ctx context.Context) (int, error) {
	devices, err := s.devices.ListByStatus(ctx, models.DeviceStatusOn)
	if err != nil {
		return 0, fmt.Errorf("list running devices: %w", err)
	}
	if len(devices) == 0 {
		return 0, nil
	}

	voltage := s.latestValue(ctx, models.SensorVoltage)
	current := s.latestValue(ctx, models.SensorCurrent)
	now := s.now().UTC()
	hours := s.interval.Hours()

	recorded := 0
	for _, device := range devices {
		watts, ok := ParseWatts(device.Power)
		if !ok {
			s.log.Debug().Int64("device_id", device.ID).Str("power", device.Power).Msg("skip device without wattage")
			continue
		}
		kwh := watts * hours / 1000
		usage := models.EnergyUsage{
			DeviceID:        device.ID,
			UserID:          device.UserID,
			PowerConsumed:   kwh,
			Voltage:         voltage,
			Current:         current,
			Cost:            kwh * s.tariff,
			Location:        device.Location,
			Timestamp:       now,
			DurationMinutes: int(s.interval.Minutes()),
		}
		if err := s.energy.Insert(ctx, &usage); err != nil {
			if errors.Is(err, repository.ErrDeviceNotFound) || errors.Is(err, repository.ErrReference) {
				continue
			}
			return recorded, fmt.Errorf("insert energy usage for device %d: %w", device.ID, err)
		}
		recorded++
	}
	s.log.Info().Int("devices", recorded).Msg("energy rollup finished")
	return recorded, nil
}

func (s *MaintenanceService) latestValue(ctx context.Context, t models.SensorType) *float64 {
	reading, err := s.readings.LatestByType(ctx, t)
	if err != nil {
		if !errors.Is(err, repository.ErrReadingNotFound) {
			s.log.Warn().Err(err).Str("type", string(t)).Msg("latest reading for rollup")
		}
		return nil
	}
	v := reading.Value
	return &v
}
