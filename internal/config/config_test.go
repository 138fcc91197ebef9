package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SMARTHOME_DATABASE_DRIVER", "sqlite")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 3000, cfg.HTTP.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Security.JWTTTL)
	assert.Equal(t, "token", cfg.Security.CookieName)
	assert.NotEmpty(t, cfg.Security.JWTSecret, "development falls back to a built-in secret")
	assert.Equal(t, "Home", cfg.Ingestion.DefaultLocation)
	assert.Equal(t, 90*24*time.Hour, cfg.Retention.Readings)
	assert.Equal(t, "home/+/sensors", cfg.MQTT.Topic)
	assert.EqualValues(t, 1, cfg.MQTT.QoS)

	temp, ok := cfg.Ingestion.Ranges["temperature"]
	require.True(t, ok)
	assert.Equal(t, -40.0, temp.Min)
	assert.Equal(t, 100.0, temp.Max)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("SMARTHOME_DATABASE_DRIVER", "sqlite")
	t.Setenv("SMARTHOME_HTTP_PORT", "8081")
	t.Setenv("SMARTHOME_ENERGY_TARIFFPERKWH", "0.31")
	t.Setenv("SMARTHOME_SIMULATOR_INTERVAL", "250ms")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 8081, cfg.HTTP.Port)
	assert.InDelta(t, 0.31, cfg.Energy.TariffPerKWh, 1e-9)
	assert.Equal(t, 250*time.Millisecond, cfg.Simulator.Interval)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Run("postgres without dsn", func(t *testing.T) {
		t.Setenv("SMARTHOME_DATABASE_DRIVER", "postgres")
		_, err := config.Load()
		assert.Error(t, err)
	})
	t.Run("unknown driver", func(t *testing.T) {
		t.Setenv("SMARTHOME_DATABASE_DRIVER", "oracle")
		_, err := config.Load()
		assert.Error(t, err)
	})
	t.Run("production without secret", func(t *testing.T) {
		t.Setenv("SMARTHOME_DATABASE_DRIVER", "sqlite")
		t.Setenv("SMARTHOME_ENVIRONMENT", "production")
		_, err := config.Load()
		assert.Error(t, err)
	})
	t.Run("inverted range", func(t *testing.T) {
		t.Setenv("SMARTHOME_DATABASE_DRIVER", "sqlite")
		t.Setenv("SMARTHOME_INGESTION_RANGES_HUMIDITY_MIN", "120")
		_, err := config.Load()
		assert.Error(t, err)
	})
	t.Run("bad timezone", func(t *testing.T) {
		t.Setenv("SMARTHOME_DATABASE_DRIVER", "sqlite")
		t.Setenv("SMARTHOME_DASHBOARD_TIMEZONE", "Mars/Olympus")
		_, err := config.Load()
		assert.Error(t, err)
	})
}
