package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/config"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/models"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/repository"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/service"
)

func maintenanceConfig() *config.AppConfig {
	return &config.AppConfig{
		Retention: config.RetentionConfig{Readings: 24 * time.Hour},
		Energy:    config.EnergyConfig{TariffPerKWh: 0.2, RollupInterval: time.Hour},
	}
}

func TestRollupEnergyRecordsRunningDevices(t *testing.T) {
	ctx := context.Background()
	stores := newStores(t)
	devices := service.NewDeviceService(stores, nil, zerolog.Nop())
	heater, err := devices.Create(ctx, service.DeviceInput{Name: "Heater", Model: "H2", Location: "Bathroom", Power: "1500W", Icon: "fas fa-fire", Status: "ON"})
	require.NoError(t, err)
	_, err = devices.Create(ctx, service.DeviceInput{Name: "Fan", Model: "F2", Location: "Bedroom", Power: "40W", Icon: "fas fa-fan"})
	require.NoError(t, err)

	maintenance := service.NewMaintenanceService(stores, maintenanceConfig(), zerolog.Nop())
	recorded, err := maintenance.RollupEnergy(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, recorded)

	usage, err := stores.Energy.List(ctx, repository.EnergyQuery{DeviceID: heater.ID})
	require.NoError(t, err)
	require.Len(t, usage, 1)
	assert.InDelta(t, 1.5, usage[0].PowerConsumed, 1e-9)
	assert.InDelta(t, 0.3, usage[0].Cost, 1e-9)
	assert.Equal(t, 60, usage[0].DurationMinutes)

	stats, err := devices.Stats(ctx, heater.ID)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, stats.TotalEnergy, 1e-9)
	assert.InDelta(t, 1.5, stats.AverageDaily, 1e-9)
	assert.EqualValues(t, 1, stats.Samples)
}

func TestPurgeReadingsHonoursRetention(t *testing.T) {
	ctx := context.Background()
	stores := newStores(t)
	ingestion := newIngestion(t, stores, nil)

	old := time.Now().Add(-72 * time.Hour)
	for _, ts := range []*time.Time{&old, nil} {
		_, err := ingestion.Ingest(ctx, service.ReadingInput{
			SensorType: models.SensorHumidity,
			Value:      ptr(50.0),
			Location:   "Cellar",
			Timestamp:  ts,
		}, service.IngestMeta{})
		require.NoError(t, err)
	}

	deleted, err := service.NewMaintenanceService(stores, maintenanceConfig(), zerolog.Nop()).PurgeReadings(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	cfg := maintenanceConfig()
	cfg.Retention.Readings = 0
	deleted, err = service.NewMaintenanceService(stores, cfg, zerolog.Nop()).PurgeReadings(ctx)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}
