package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/models"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrDeviceNotFound  = errors.New("device not found")
	ErrSensorNotFound  = errors.New("sensor not found")
	ErrReadingNotFound = errors.New("reading not found")

	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("duplicate record")
	// ErrReference is returned when a foreign key rejects a write.
	ErrReference = errors.New("referenced record does not exist")
)

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	First(ctx context.Context) (models.User, error)
	List(ctx context.Context, limit, offset int) ([]models.User, error)
	Count(ctx context.Context) (int64, error)
	UpdatePassword(ctx context.Context, id int64, hash []byte) error
	UpdateImage(ctx context.Context, id int64, url string) error
}

type SessionStore interface {
	Create(ctx context.Context, session models.Session) error
	GetByID(ctx context.Context, id string) (models.Session, error)
	Touch(ctx context.Context, id string, ip string, userAgent string) error
	DeleteByID(ctx context.Context, id string) error
	DeleteOthers(ctx context.Context, userID int64, keepID string) error
	CountByUser(ctx context.Context, userID int64) (int, error)
	DeleteOldestSessions(ctx context.Context, userID int64, keepLatest int) error
}

type DeviceStore interface {
	List(ctx context.Context) ([]models.Device, error)
	ListByStatus(ctx context.Context, status models.DeviceStatus) ([]models.Device, error)
	GetByID(ctx context.Context, id int64) (models.Device, error)
	FindByName(ctx context.Context, name string) (models.Device, error)
	Create(ctx context.Context, device *models.Device) error
	Update(ctx context.Context, device *models.Device) error
	SetStatus(ctx context.Context, id int64, status models.DeviceStatus, at time.Time) (models.Device, error)
	Delete(ctx context.Context, id int64) error
}

type SensorFilter struct {
	Type   models.SensorType
	Status models.SensorStatus
}

type SensorStore interface {
	List(ctx context.Context, filter SensorFilter) ([]models.Sensor, error)
	GetByID(ctx context.Context, id int64) (models.Sensor, error)
	FindByTypeLocation(ctx context.Context, sensorType models.SensorType, location string) (models.Sensor, error)
	Create(ctx context.Context, sensor *models.Sensor) error
	Update(ctx context.Context, sensor *models.Sensor) error
	SetStatus(ctx context.Context, id int64, status models.SensorStatus) (models.Sensor, error)
	RecordLastReading(ctx context.Context, id int64, value float64, at time.Time) error
	Delete(ctx context.Context, id int64) error
}

// ReadingQuery selects readings in [From, To]; zero bounds are open.
type ReadingQuery struct {
	SensorID int64
	Type     models.SensorType
	From     time.Time
	To       time.Time
	Limit    int
}

type ReadingStore interface {
	Insert(ctx context.Context, reading *models.SensorReading) error
	LatestByType(ctx context.Context, sensorType models.SensorType) (models.SensorReading, error)
	LatestBySensor(ctx context.Context, sensorID int64, limit int) ([]models.SensorReading, error)
	// Range returns matching readings in ascending time order.
	Range(ctx context.Context, q ReadingQuery) ([]models.SensorReading, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type EnergyQuery struct {
	DeviceID int64
	From     time.Time
	Limit    int
}

type EnergyStore interface {
	Insert(ctx context.Context, usage *models.EnergyUsage) error
	List(ctx context.Context, q EnergyQuery) ([]models.EnergyUsage, error)
}

type TypeCount struct {
	Type  models.SensorType `db:"type" json:"type"`
	Count int64             `db:"count" json:"count"`
}

type EnergyTotals struct {
	TotalKWh  float64    `db:"total_kwh"`
	TotalCost float64    `db:"total_cost"`
	Samples   int64      `db:"samples"`
	First     *time.Time `db:"first_at"`
	Last      *time.Time `db:"last_at"`
}

type Overview struct {
	Users         int64 `db:"users" json:"users"`
	Devices       int64 `db:"devices" json:"devices"`
	DevicesOn     int64 `db:"devices_on" json:"devicesOn"`
	Sensors       int64 `db:"sensors" json:"sensors"`
	ActiveSensors int64 `db:"active_sensors" json:"activeSensors"`
	Readings      int64 `db:"readings" json:"readings"`
}

// ReportStore serves the aggregate queries behind stats endpoints.
type ReportStore interface {
	SensorTypeCounts(ctx context.Context) ([]TypeCount, error)
	DeviceEnergyTotals(ctx context.Context, deviceID int64) (EnergyTotals, error)
	Overview(ctx context.Context) (Overview, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Stores bundles one backend's implementations.
type Stores struct {
	Users    UserStore
	Sessions SessionStore
	Devices  DeviceStore
	Sensors  SensorStore
	Readings ReadingStore
	Energy   EnergyStore
	Reports  ReportStore
	DB       Pinger
}
