package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/models"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/repository"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/security"
)

const (
	seedAdminEmail    = "admin@smarthome.com"
	seedAdminPassword = "admin123"
)

var seedDevices = []models.Device{
	{Name: "Living Room Light", Model: "Philips Hue", Location: "Living Room", Power: "9W", Status: models.DeviceStatusOff, Icon: "fas fa-lightbulb"},
	{Name: "Air Conditioner", Model: "AC-3000", Location: "Bedroom", Power: "1500W", Status: models.DeviceStatusOff, Icon: "fas fa-snowflake"},
	{Name: "Refrigerator", Model: "CoolMaster 500", Location: "Kitchen", Power: "200W", Status: models.DeviceStatusOn, Icon: "fas fa-refrigerator"},
	{Name: "TV", Model: "SmartTV 4K", Location: "Living Room", Power: "120W", Status: models.DeviceStatusOff, Icon: "fas fa-tv"},
}

var seedSensors = []models.Sensor{
	{Name: "Main Current Sensor", Type: models.SensorCurrent, Location: "Electrical Panel", Unit: "A"},
	{Name: "Living Room Temp", Type: models.SensorTemperature, Location: "Living Room", Unit: "°C"},
	{Name: "Living Room Humidity", Type: models.SensorHumidity, Location: "Living Room", Unit: "%"},
	{Name: "Ambient Light Sensor", Type: models.SensorLight, Location: "Living Room", Unit: "lux"},
	{Name: "Energy Monitor", Type: models.SensorEnergy, Location: "Main Supply", Unit: "kWh"},
}

// Seed inserts the development fixtures that are missing. Existing rows are left untouched.
func Seed(ctx context.Context, stores repository.Stores, log zerolog.Logger) error {
	admin, err := stores.Users.FindByEmail(ctx, seedAdminEmail)
	if errors.Is(err, repository.ErrUserNotFound) {
		hash, err := security.HashPassword(seedAdminPassword)
		if err != nil {
			return err
		}
		admin = models.User{
			Name:         "Admin User",
			Email:        seedAdminEmail,
			PasswordHash: hash,
			Role:         models.UserRoleAdmin,
		}
		if err := stores.Users.Create(ctx, &admin); err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
		log.Info().Str("email", admin.Email).Msg("seeded admin user")
	} else if err != nil {
		return err
	}

	for _, device := range seedDevices {
		if _, err := stores.Devices.FindByName(ctx, device.Name); err == nil {
			continue
		} else if !errors.Is(err, repository.ErrDeviceNotFound) {
			return err
		}
		device.UserID = &admin.ID
		if err := stores.Devices.Create(ctx, &device); err != nil {
			return fmt.Errorf("seed device %s: %w", device.Name, err)
		}
	}

	for _, sensor := range seedSensors {
		if _, err := stores.Sensors.FindByTypeLocation(ctx, sensor.Type, sensor.Location); err == nil {
			continue
		} else if !errors.Is(err, repository.ErrSensorNotFound) {
			return err
		}
		sensor.CalibrationFactor = 1.0
		sensor.Status = models.SensorStatusActive
		sensor.UserID = &admin.ID
		if err := stores.Sensors.Create(ctx, &sensor); err != nil {
			return fmt.Errorf("seed sensor %s: %w", sensor.Name, err)
		}
	}

	log.Info().Msg("seed data ensured")
	return nil
}
