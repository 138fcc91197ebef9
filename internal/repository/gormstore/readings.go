package gormstore

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/models"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/repository"
)

type Readings struct {
	db *gorm.DB
}

func (s *Readings) Insert(ctx context.Context, reading *models.SensorReading) error {
	rec := readingRecord{
		SensorID:  reading.SensorID,
		Type:      string(reading.Type),
		Value:     reading.Value,
		Unit:      reading.Unit,
		Location:  reading.Location,
		Timestamp: reading.Timestamp.UnixMilli(),
		Quality:   string(reading.Quality),
		Source:    reading.Source,
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return translate(err, repository.ErrReadingNotFound)
	}
	reading.ID = rec.ID
	reading.CreatedAt = rec.CreatedAt
	return nil
}

func (s *Readings) LatestByType(ctx context.Context, sensorType models.SensorType) (models.SensorReading, error) {
	var rec readingRecord
	err := s.db.WithContext(ctx).
		Where("type = ?", string(sensorType)).
		Order("timestamp DESC, id DESC").
		First(&rec).Error
	return rec.model(), translate(err, repository.ErrReadingNotFound)
}

func (s *Readings) LatestBySensor(ctx context.Context, sensorID int64, limit int) ([]models.SensorReading, error) {
	return s.find(s.db.WithContext(ctx).
		Where("sensor_id = ?", sensorID).
		Order("timestamp DESC, id DESC").
		Limit(limit))
}

func (s *Readings) Range(ctx context.Context, q repository.ReadingQuery) ([]models.SensorReading, error) {
	query := s.db.WithContext(ctx).Order("timestamp ASC, id ASC")
	if q.SensorID != 0 {
		query = query.Where("sensor_id = ?", q.SensorID)
	}
	if q.Type != "" {
		query = query.Where("type = ?", string(q.Type))
	}
	if !q.From.IsZero() {
		query = query.Where("timestamp >= ?", q.From.UnixMilli())
	}
	if !q.To.IsZero() {
		query = query.Where("timestamp <= ?", q.To.UnixMilli())
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}
	return s.find(query)
}

func (s *Readings) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("timestamp < ?", cutoff.UnixMilli()).Delete(&readingRecord{})
	return res.RowsAffected, res.Error
}

func (s *Readings) find(query *gorm.DB) ([]models.SensorReading, error) {
	var recs []readingRecord
	if err := query.Find(&recs).Error; err != nil {
		return nil, err
	}
	readings := make([]models.SensorReading, 0, len(recs))
	for _, rec := range recs {
		readings = append(readings, rec.model())
	}
	return readings, nil
}

type Energy struct {
	db *gorm.DB
}

func (s *Energy) Insert(ctx context.Context, usage *models.EnergyUsage) error {
	rec := energyRecord{
		DeviceID:        usage.DeviceID,
		UserID:          usage.UserID,
		PowerConsumed:   usage.PowerConsumed,
		Voltage:         usage.Voltage,
		Current:         usage.Current,
		Cost:            usage.Cost,
		Location:        usage.Location,
		Timestamp:       usage.Timestamp,
		DurationMinutes: usage.DurationMinutes,
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return translate(err, repository.ErrDeviceNotFound)
	}
	usage.ID = rec.ID
	usage.CreatedAt = rec.CreatedAt
	return nil
}

func (s *Energy) List(ctx context.Context, q repository.EnergyQuery) ([]models.EnergyUsage, error) {
	query := s.db.WithContext(ctx).Order("timestamp DESC")
	if q.DeviceID != 0 {
		query = query.Where("device_id = ?", q.DeviceID)
	}
	if !q.From.IsZero() {
		query = query.Where("timestamp >= ?", q.From)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	var recs []energyRecord
	if err := query.Find(&recs).Error; err != nil {
		return nil, err
	}
	usages := make([]models.EnergyUsage, 0, len(recs))
	for _, rec := range recs {
		usages = append(usages, rec.model())
	}
	return usages, nil
}
