package service_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/apperr"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/cache"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/config"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/models"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/service"
)

func TestCurrentValuesFallbackOnEmptyDatabase(t *testing.T) {
	stores := newStores(t)
	dashboard := service.NewDashboardService(stores, nil, service.NewEnergyService(stores, time.UTC), zerolog.Nop())

	values := dashboard.CurrentValues(context.Background())
	for name, v := range map[string]service.CurrentValue{
		"current":     values.Current,
		"temperature": values.Temperature,
		"humidity":    values.Humidity,
		"light":       values.Light,
		"energy":      values.Energy,
	} {
		assert.True(t, v.Fallback, name)
		assert.Zero(t, v.Value, name)
		assert.Nil(t, v.Timestamp, name)
	}
	assert.Equal(t, "°C", values.Temperature.Unit)
	assert.Equal(t, "0.0°C", values.Temperature.Display)
	assert.Equal(t, "0.00 kWh", values.Energy.Display)

	raw, err := json.Marshal(values)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Len(t, doc, 5)
}

func TestCurrentValuesUsesLatestReading(t *testing.T) {
	ctx := context.Background()
	stores := newStores(t)
	ingestion := newIngestion(t, stores, nil)
	for _, v := range []float64{19.5, 21.25} {
		_, err := ingestion.Ingest(ctx, service.ReadingInput{
			SensorType: models.SensorTemperature,
			Value:      ptr(v),
			Location:   "Lounge",
		}, service.IngestMeta{Source: service.SourceAPI})
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	dashboard := service.NewDashboardService(stores, nil, service.NewEnergyService(stores, time.UTC), zerolog.Nop())
	values := dashboard.CurrentValues(ctx)
	assert.False(t, values.Temperature.Fallback)
	assert.InDelta(t, 21.25, values.Temperature.Value, 1e-9)
	assert.Equal(t, "Lounge", values.Temperature.Location)
	assert.True(t, values.Humidity.Fallback)
}

func TestDashboardViewPlaceholderUser(t *testing.T) {
	stores := newStores(t)
	dashboard := service.NewDashboardService(stores, nil, service.NewEnergyService(stores, time.UTC), zerolog.Nop())

	view := dashboard.View(context.Background(), nil)
	assert.Equal(t, service.PlaceholderUserName, view.User.Name)
	assert.NotNil(t, view.Devices)
	assert.Empty(t, view.Devices)
}

func TestLightingAndAppliancePages(t *testing.T) {
	ctx := context.Background()
	stores := newStores(t)
	devices := service.NewDeviceService(stores, nil, zerolog.Nop())
	_, err := devices.Create(ctx, service.DeviceInput{Name: "Hall Light", Model: "H1", Location: "Hall", Power: "9W", Icon: "fas fa-lightbulb", Status: "ON"})
	require.NoError(t, err)
	_, err = devices.Create(ctx, service.DeviceInput{Name: "Fridge", Model: "F1", Location: "Kitchen", Power: "200W", Icon: "fas fa-refrigerator"})
	require.NoError(t, err)
	_, err = devices.Create(ctx, service.DeviceInput{Name: "Heater", Model: "H2", Location: "Bathroom", Power: "1200W", Icon: "fas fa-fire"})
	require.NoError(t, err)

	dashboard := service.NewDashboardService(stores, nil, service.NewEnergyService(stores, time.UTC), zerolog.Nop())

	lighting := dashboard.LightingPage(ctx, nil)
	require.Len(t, lighting.Lights, 1)
	assert.Equal(t, 1, lighting.LightsOn)

	appliances := dashboard.AppliancesPage(ctx, nil)
	require.Len(t, appliances.Rooms, 2)
	assert.Equal(t, "Bathroom", appliances.Rooms[0].Location)
	assert.Equal(t, "Kitchen", appliances.Rooms[1].Location)
}

func TestEnergySeriesEmpty(t *testing.T) {
	energy := service.NewEnergyService(newStores(t), time.UTC)

	series, err := energy.Series(context.Background(), 24)
	require.NoError(t, err)

	raw, err := json.Marshal(series)
	require.NoError(t, err)
	assert.JSONEq(t, `{"labels":[],"data":[]}`, string(raw))
}

func TestEnergySeriesOrdersAscending(t *testing.T) {
	ctx := context.Background()
	stores := newStores(t)
	ingestion := newIngestion(t, stores, nil)
	now := time.Now().UTC()
	for i, v := range []float64{3.5, 1.25, 2.0} {
		ts := now.Add(-time.Duration(3-i) * time.Hour)
		_, err := ingestion.Ingest(ctx, service.ReadingInput{
			SensorType: models.SensorEnergy,
			Value:      ptr(v),
			Location:   "Main Supply",
			Timestamp:  &ts,
		}, service.IngestMeta{})
		require.NoError(t, err)
	}
	old := now.Add(-48 * time.Hour)
	_, err := ingestion.Ingest(ctx, service.ReadingInput{SensorType: models.SensorEnergy, Value: ptr(9.0), Location: "Main Supply", Timestamp: &old}, service.IngestMeta{})
	require.NoError(t, err)

	series, err := service.NewEnergyService(stores, time.UTC).Series(ctx, 24)
	require.NoError(t, err)
	assert.Equal(t, []float64{3.5, 1.25, 2.0}, series.Data)
	require.Len(t, series.Labels, 3)
	assert.Equal(t, now.Add(-3*time.Hour).Format("15:04"), series.Labels[0])
}

func TestEnergySeriesRejectsWindow(t *testing.T) {
	energy := service.NewEnergyService(newStores(t), time.UTC)
	for _, hours := range []int{0, 721} {
		_, err := energy.Series(context.Background(), hours)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err), "hours=%d", hours)
	}
}

func TestCurrentValuesSnapshotFollowsIngest(t *testing.T) {
	ctx := context.Background()
	stores := newStores(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	snapshot := cache.NewSnapshot(client, cache.CurrentValuesKey, cache.CurrentValuesTTL)
	dashboard := service.NewDashboardService(stores, snapshot, service.NewEnergyService(stores, time.UTC), zerolog.Nop())
	ingestion := service.NewIngestionService(stores, snapshot, nil, config.IngestionConfig{}, zerolog.Nop())

	assert.True(t, dashboard.CurrentValues(ctx).Temperature.Fallback)
	assert.True(t, mr.Exists(cache.CurrentValuesKey), "first read fills the snapshot")

	_, err := ingestion.Ingest(ctx, service.ReadingInput{SensorType: models.SensorTemperature, Value: ptr(23.0), Location: "Hall"}, service.IngestMeta{})
	require.NoError(t, err)
	assert.False(t, mr.Exists(cache.CurrentValuesKey))

	values := dashboard.CurrentValues(ctx)
	assert.False(t, values.Temperature.Fallback)
	assert.InDelta(t, 23.0, values.Temperature.Value, 1e-9)
}
