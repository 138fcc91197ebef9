package models

import "time"

type SensorType string

const (
	SensorCurrent     SensorType = "current"
	SensorVoltage     SensorType = "voltage"
	SensorTemperature SensorType = "temperature"
	SensorHumidity    SensorType = "humidity"
	SensorLight       SensorType = "light"
	SensorPower       SensorType = "power"
	SensorEnergy      SensorType = "energy"
)

var SensorTypes = []SensorType{
	SensorCurrent,
	SensorVoltage,
	SensorTemperature,
	SensorHumidity,
	SensorLight,
	SensorPower,
	SensorEnergy,
}

var defaultUnits = map[SensorType]string{
	SensorCurrent:     "A",
	SensorVoltage:     "V",
	SensorTemperature: "°C",
	SensorHumidity:    "%",
	SensorLight:       "lux",
	SensorPower:       "W",
	SensorEnergy:      "kWh",
}

func (t SensorType) Valid() bool {
	_, ok := defaultUnits[t]
	return ok
}

// DefaultUnit is the unit assumed when a reading of this type arrives without one.
func (t SensorType) DefaultUnit() string {
	return defaultUnits[t]
}

// Column widths of the sensors table; longer values are rejected before they reach a store.
const (
	MaxSensorNameLen = 100
	MaxLocationLen   = 100
	MaxUnitLen       = 10
)

type SensorStatus string

const (
	SensorStatusActive      SensorStatus = "ACTIVE"
	SensorStatusInactive    SensorStatus = "INACTIVE"
	SensorStatusMaintenance SensorStatus = "MAINTENANCE"
)

func (s SensorStatus) Valid() bool {
	switch s {
	case SensorStatusActive, SensorStatusInactive, SensorStatusMaintenance:
		return true
	}
	return false
}

type Sensor struct {
	ID                int64        `json:"id"`
	Name              string       `json:"name"`
	Type              SensorType   `json:"type"`
	Location          string       `json:"location"`
	Unit              string       `json:"unit"`
	CalibrationFactor float64      `json:"calibrationFactor"`
	Status            SensorStatus `json:"status"`
	DeviceID          *int64       `json:"deviceId,omitempty"`
	UserID            *int64       `json:"userId,omitempty"`
	LastValue         *float64     `json:"lastValue,omitempty"`
	LastReadingAt     *time.Time   `json:"lastReadingAt,omitempty"`
	CreatedAt         time.Time    `json:"createdAt"`
	UpdatedAt         time.Time    `json:"updatedAt"`
}
