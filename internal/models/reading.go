package models

import "time"

type Quality string

const (
	QualityGood         Quality = "GOOD"
	QualityQuestionable Quality = "QUESTIONABLE"
	QualityBad          Quality = "BAD"
)

func (q Quality) Valid() bool {
	switch q {
	case QualityGood, QualityQuestionable, QualityBad:
		return true
	}
	return false
}

// SensorReading is immutable once stored. Timestamp is persisted as UTC epoch milliseconds.
type SensorReading struct {
	ID        int64      `json:"id"`
	SensorID  int64      `json:"sensorId"`
	Type      SensorType `json:"sensorType"`
	Value     float64    `json:"value"`
	Unit      string     `json:"unit"`
	Location  string     `json:"location"`
	Timestamp time.Time  `json:"timestamp"`
	Quality   Quality    `json:"quality"`
	Source    string     `json:"source"`
	CreatedAt time.Time  `json:"createdAt"`
}

type EnergyUsage struct {
	ID              int64     `json:"id"`
	DeviceID        int64     `json:"deviceId"`
	UserID          *int64    `json:"userId,omitempty"`
	PowerConsumed   float64   `json:"powerConsumed"`
	Voltage         *float64  `json:"voltage,omitempty"`
	Current         *float64  `json:"current,omitempty"`
	Cost            float64   `json:"cost"`
	Location        string    `json:"location"`
	Timestamp       time.Time `json:"timestamp"`
	DurationMinutes int       `json:"durationMinutes"`
	CreatedAt       time.Time `json:"createdAt"`
}
