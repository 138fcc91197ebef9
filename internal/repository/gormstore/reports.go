package gormstore

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/models"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/repository"
)

type Reports struct {
	db *gorm.DB
}

func (s *Reports) SensorTypeCounts(ctx context.Context) ([]repository.TypeCount, error) {
	var rows []struct {
		Type  string
		Count int64
	}
	if err := s.db.WithContext(ctx).Model(&sensorRecord{}).
		Select("type, COUNT(*) AS count").
		Group("type").
		Order("type").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make([]repository.TypeCount, 0, len(rows))
	for _, row := range rows {
		counts = append(counts, repository.TypeCount{Type: models.SensorType(row.Type), Count: row.Count})
	}
	return counts, nil
}

func (s *Reports) DeviceEnergyTotals(ctx context.Context, deviceID int64) (repository.EnergyTotals, error) {
	var sums struct {
		TotalKWh  float64 `gorm:"column:total_kwh"`
		TotalCost float64 `gorm:"column:total_cost"`
		Samples   int64   `gorm:"column:samples"`
	}
	db := s.db.WithContext(ctx)
	if err := db.Model(&energyRecord{}).
		Select("COALESCE(SUM(power_consumed), 0) AS total_kwh, COALESCE(SUM(cost), 0) AS total_cost, COUNT(*) AS samples").
		Where("device_id = ?", deviceID).
		Scan(&sums).Error; err != nil {
		return repository.EnergyTotals{}, err
	}

	totals := repository.EnergyTotals{
		TotalKWh:  sums.TotalKWh,
		TotalCost: sums.TotalCost,
		Samples:   sums.Samples,
	}
	if totals.Samples == 0 {
		return totals, nil
	}

	// Aggregates lose SQLite's datetime column type, so the bounds are read as rows.
	var first, last energyRecord
	if err := db.Where("device_id = ?", deviceID).Order("timestamp ASC").First(&first).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return repository.EnergyTotals{}, err
	}
	if err := db.Where("device_id = ?", deviceID).Order("timestamp DESC").First(&last).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return repository.EnergyTotals{}, err
	}
	totals.First = &first.Timestamp
	totals.Last = &last.Timestamp
	return totals, nil
}

func (s *Reports) Overview(ctx context.Context) (repository.Overview, error) {
	var overview repository.Overview
	db := s.db.WithContext(ctx)
	counts := []struct {
		dest  *int64
		query *gorm.DB
	}{
		{&overview.Users, db.Model(&userRecord{})},
		{&overview.Devices, db.Model(&deviceRecord{})},
		{&overview.DevicesOn, db.Model(&deviceRecord{}).Where("status = ?", string(models.DeviceStatusOn))},
		{&overview.Sensors, db.Model(&sensorRecord{})},
		{&overview.ActiveSensors, db.Model(&sensorRecord{}).Where("status = ?", string(models.SensorStatusActive))},
		{&overview.Readings, db.Model(&readingRecord{})},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dest).Error; err != nil {
			return repository.Overview{}, err
		}
	}
	return overview, nil
}
