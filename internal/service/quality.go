package service

import (
	"math"

	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/config"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/models"
)

// Range is the inclusive plausible interval for one sensor type.
type Range struct {
	Min float64
	Max float64
}

func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

type Ranges map[models.SensorType]Range

func DefaultRanges() Ranges {
	return Ranges{
		models.SensorTemperature: {Min: -40, Max: 100},
		models.SensorHumidity:    {Min: 0, Max: 100},
		models.SensorCurrent:     {Min: 0, Max: 100},
		models.SensorLight:       {Min: 0, Max: 10000},
		models.SensorEnergy:      {Min: 0, Max: 1000},
		models.SensorVoltage:     {Min: 0, Max: 300},
		models.SensorPower:       {Min: 0, Max: 10000},
	}
}

// RangesFromConfig overlays configured bounds on the defaults. Unknown type names are ignored.
func RangesFromConfig(cfg config.IngestionConfig) Ranges {
	ranges := DefaultRanges()
	for name, r := range cfg.Ranges {
		t := models.SensorType(name)
		if !t.Valid() {
			continue
		}
		ranges[t] = Range{Min: r.Min, Max: r.Max}
	}
	return ranges
}

// Classify grades a calibrated value. Types without a configured range are always GOOD.
func (r Ranges) Classify(t models.SensorType, value float64) models.Quality {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return models.QualityBad
	}
	bounds, ok := r[t]
	if !ok || bounds.Contains(value) {
		return models.QualityGood
	}
	return models.QualityQuestionable
}
