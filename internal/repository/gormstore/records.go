package gormstore

import (
	"time"

	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/models"
)

type userRecord struct {
	ID           int64  `gorm:"primaryKey"`
	Name         string `gorm:"size:50;not null"`
	Email        string `gorm:"size:255;not null;uniqueIndex"`
	PasswordHash []byte `gorm:"not null"`
	Role         string `gorm:"size:10;not null;default:user"`
	Image        *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (userRecord) TableName() string { return "users" }

func (r userRecord) model() models.User {
	return models.User{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Role:         models.UserRole(r.Role),
		ImageURL:     r.Image,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type sessionRecord struct {
	ID         string `gorm:"primaryKey;size:27"`
	UserID     int64  `gorm:"not null;index"`
	IPAddress  string `gorm:"size:64"`
	UserAgent  string
	CreatedAt  time.Time
	LastSeenAt time.Time
	ExpiresAt  time.Time
}

func (sessionRecord) TableName() string { return "user_sessions" }

func (r sessionRecord) model() models.Session {
	return models.Session{
		ID:         r.ID,
		UserID:     r.UserID,
		IPAddress:  r.IPAddress,
		UserAgent:  r.UserAgent,
		CreatedAt:  r.CreatedAt,
		LastSeenAt: r.LastSeenAt,
		ExpiresAt:  r.ExpiresAt,
	}
}

type deviceRecord struct {
	ID          int64  `gorm:"primaryKey"`
	Name        string `gorm:"size:50;not null;uniqueIndex"`
	Model       string `gorm:"size:100"`
	Location    string `gorm:"size:100"`
	Power       string `gorm:"size:20"`
	Status      string `gorm:"size:3;not null;default:OFF"`
	Icon        string `gorm:"size:50"`
	UserID      *int64 `gorm:"index"`
	LastUpdated time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (deviceRecord) TableName() string { return "devices" }

func (r deviceRecord) model() models.Device {
	return models.Device{
		ID:          r.ID,
		Name:        r.Name,
		Model:       r.Model,
		Location:    r.Location,
		Power:       r.Power,
		Status:      models.DeviceStatus(r.Status),
		Icon:        r.Icon,
		UserID:      r.UserID,
		LastUpdated: r.LastUpdated,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func deviceFromModel(d models.Device) deviceRecord {
	return deviceRecord{
		ID:          d.ID,
		Name:        d.Name,
		Model:       d.Model,
		Location:    d.Location,
		Power:       d.Power,
		Status:      string(d.Status),
		Icon:        d.Icon,
		UserID:      d.UserID,
		LastUpdated: d.LastUpdated,
	}
}

type sensorRecord struct {
	ID                int64   `gorm:"primaryKey"`
	Name              string  `gorm:"size:100;not null"`
	Type              string  `gorm:"size:20;not null;index:idx_sensors_type_location"`
	Location          string  `gorm:"size:100;not null;index:idx_sensors_type_location"`
	Unit              string  `gorm:"size:10;not null"`
	CalibrationFactor float64 `gorm:"not null;default:1"`
	Status            string  `gorm:"size:12;not null;default:ACTIVE"`
	DeviceID          *int64
	UserID            *int64
	LastValue         *float64
	LastReadingAt     *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (sensorRecord) TableName() string { return "sensors" }

func (r sensorRecord) model() models.Sensor {
	return models.Sensor{
		ID:                r.ID,
		Name:              r.Name,
		Type:              models.SensorType(r.Type),
		Location:          r.Location,
		Unit:              r.Unit,
		CalibrationFactor: r.CalibrationFactor,
		Status:            models.SensorStatus(r.Status),
		DeviceID:          r.DeviceID,
		UserID:            r.UserID,
		LastValue:         r.LastValue,
		LastReadingAt:     r.LastReadingAt,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

func sensorFromModel(s models.Sensor) sensorRecord {
	return sensorRecord{
		ID:                s.ID,
		Name:              s.Name,
		Type:              string(s.Type),
		Location:          s.Location,
		Unit:              s.Unit,
		CalibrationFactor: s.CalibrationFactor,
		Status:            string(s.Status),
		DeviceID:          s.DeviceID,
		UserID:            s.UserID,
	}
}

// readingRecord keeps the timestamp as epoch milliseconds, matching the Postgres schema.
type readingRecord struct {
	ID        int64   `gorm:"primaryKey"`
	SensorID  int64   `gorm:"not null;index:idx_readings_sensor_ts"`
	Type      string  `gorm:"size:20;not null;index:idx_readings_type_ts"`
	Value     float64 `gorm:"not null"`
	Unit      string  `gorm:"size:10;not null"`
	Location  string  `gorm:"size:100"`
	Timestamp int64   `gorm:"not null;index:idx_readings_sensor_ts;index:idx_readings_type_ts;index"`
	Quality   string  `gorm:"size:12;not null;default:GOOD"`
	Source    string  `gorm:"size:20;not null;default:sensor"`
	CreatedAt time.Time
}

func (readingRecord) TableName() string { return "sensor_readings" }

func (r readingRecord) model() models.SensorReading {
	return models.SensorReading{
		ID:        r.ID,
		SensorID:  r.SensorID,
		Type:      models.SensorType(r.Type),
		Value:     r.Value,
		Unit:      r.Unit,
		Location:  r.Location,
		Timestamp: time.UnixMilli(r.Timestamp).UTC(),
		Quality:   models.Quality(r.Quality),
		Source:    r.Source,
		CreatedAt: r.CreatedAt,
	}
}

type energyRecord struct {
	ID              int64 `gorm:"primaryKey"`
	DeviceID        int64 `gorm:"not null;index:idx_energy_device_ts"`
	UserID          *int64
	PowerConsumed   float64 `gorm:"not null"`
	Voltage         *float64
	Current         *float64
	Cost            float64
	Location        string    `gorm:"size:100"`
	Timestamp       time.Time `gorm:"not null;index:idx_energy_device_ts"`
	DurationMinutes int
	CreatedAt       time.Time
}

func (energyRecord) TableName() string { return "energy_usage" }

func (r energyRecord) model() models.EnergyUsage {
	return models.EnergyUsage{
		ID:              r.ID,
		DeviceID:        r.DeviceID,
		UserID:          r.UserID,
		PowerConsumed:   r.PowerConsumed,
		Voltage:         r.Voltage,
		Current:         r.Current,
		Cost:            r.Cost,
		Location:        r.Location,
		Timestamp:       r.Timestamp,
		DurationMinutes: r.DurationMinutes,
		CreatedAt:       r.CreatedAt,
	}
}
