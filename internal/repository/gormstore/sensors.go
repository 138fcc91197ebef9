package gormstore

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/models"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/repository"
)

type Sensors struct {
	db *gorm.DB
}

func (s *Sensors) List(ctx context.Context, filter repository.SensorFilter) ([]models.Sensor, error) {
	query := s.db.WithContext(ctx).Order("name")
	if filter.Type != "" {
		query = query.Where("type = ?", string(filter.Type))
	}
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}

	var recs []sensorRecord
	if err := query.Find(&recs).Error; err != nil {
		return nil, err
	}
	sensors := make([]models.Sensor, 0, len(recs))
	for _, rec := range recs {
		sensors = append(sensors, rec.model())
	}
	return sensors, nil
}

func (s *Sensors) GetByID(ctx context.Context, id int64) (models.Sensor, error) {
	var rec sensorRecord
	err := s.db.WithContext(ctx).First(&rec, id).Error
	return rec.model(), translate(err, repository.ErrSensorNotFound)
}

func (s *Sensors) FindByTypeLocation(ctx context.Context, sensorType models.SensorType, location string) (models.Sensor, error) {
	var rec sensorRecord
	err := s.db.WithContext(ctx).
		Where("type = ? AND location = ?", string(sensorType), location).
		Order("id").
		First(&rec).Error
	return rec.model(), translate(err, repository.ErrSensorNotFound)
}

func (s *Sensors) Create(ctx context.Context, sensor *models.Sensor) error {
	rec := sensorFromModel(*sensor)
	rec.ID = 0
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return translate(err, repository.ErrSensorNotFound)
	}
	*sensor = rec.model()
	return nil
}

func (s *Sensors) Update(ctx context.Context, sensor *models.Sensor) error {
	now := time.Now()
	res := s.db.WithContext(ctx).Model(&sensorRecord{}).Where("id = ?", sensor.ID).Updates(map[string]any{
		"name":               sensor.Name,
		"type":               string(sensor.Type),
		"location":           sensor.Location,
		"unit":               sensor.Unit,
		"calibration_factor": sensor.CalibrationFactor,
		"status":             string(sensor.Status),
		"device_id":          sensor.DeviceID,
		"updated_at":         now,
	})
	if res.Error != nil {
		return translate(res.Error, repository.ErrSensorNotFound)
	}
	if res.RowsAffected == 0 {
		return repository.ErrSensorNotFound
	}
	sensor.UpdatedAt = now
	return nil
}

func (s *Sensors) SetStatus(ctx context.Context, id int64, status models.SensorStatus) (models.Sensor, error) {
	res := s.db.WithContext(ctx).Model(&sensorRecord{}).Where("id = ?", id).Updates(map[string]any{
		"status":     string(status),
		"updated_at": time.Now(),
	})
	if res.Error != nil {
		return models.Sensor{}, res.Error
	}
	if res.RowsAffected == 0 {
		return models.Sensor{}, repository.ErrSensorNotFound
	}
	return s.GetByID(ctx, id)
}

func (s *Sensors) RecordLastReading(ctx context.Context, id int64, value float64, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&sensorRecord{}).Where("id = ?", id).Updates(map[string]any{
		"last_value":      value,
		"last_reading_at": at,
		"updated_at":      time.Now(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrSensorNotFound
	}
	return nil
}

// Delete removes the sensor together with its readings.
func (s *Sensors) Delete(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("sensor_id = ?", id).Delete(&readingRecord{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&sensorRecord{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return repository.ErrSensorNotFound
		}
		return nil
	})
}
