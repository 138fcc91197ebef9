package gormstore

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/models"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/repository"
)

type Devices struct {
	db *gorm.DB
}

func (s *Devices) List(ctx context.Context) ([]models.Device, error) {
	return s.find(s.db.WithContext(ctx).Order("name"))
}

func (s *Devices) ListByStatus(ctx context.Context, status models.DeviceStatus) ([]models.Device, error) {
	return s.find(s.db.WithContext(ctx).Where("status = ?", string(status)).Order("name"))
}

func (s *Devices) GetByID(ctx context.Context, id int64) (models.Device, error) {
	var rec deviceRecord
	err := s.db.WithContext(ctx).First(&rec, id).Error
	return rec.model(), translate(err, repository.ErrDeviceNotFound)
}

func (s *Devices) FindByName(ctx context.Context, name string) (models.Device, error) {
	var rec deviceRecord
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&rec).Error
	return rec.model(), translate(err, repository.ErrDeviceNotFound)
}

func (s *Devices) Create(ctx context.Context, device *models.Device) error {
	rec := deviceFromModel(*device)
	rec.ID = 0
	rec.LastUpdated = time.Now()
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return translate(err, repository.ErrDeviceNotFound)
	}
	*device = rec.model()
	return nil
}

func (s *Devices) Update(ctx context.Context, device *models.Device) error {
	now := time.Now()
	res := s.db.WithContext(ctx).Model(&deviceRecord{}).Where("id = ?", device.ID).Updates(map[string]any{
		"name":         device.Name,
		"model":        device.Model,
		"location":     device.Location,
		"power":        device.Power,
		"status":       string(device.Status),
		"icon":         device.Icon,
		"last_updated": device.LastUpdated,
		"updated_at":   now,
	})
	if res.Error != nil {
		return translate(res.Error, repository.ErrDeviceNotFound)
	}
	if res.RowsAffected == 0 {
		return repository.ErrDeviceNotFound
	}
	device.UpdatedAt = now
	return nil
}

func (s *Devices) SetStatus(ctx context.Context, id int64, status models.DeviceStatus, at time.Time) (models.Device, error) {
	res := s.db.WithContext(ctx).Model(&deviceRecord{}).Where("id = ?", id).Updates(map[string]any{
		"status":       string(status),
		"last_updated": at,
		"updated_at":   time.Now(),
	})
	if res.Error != nil {
		return models.Device{}, res.Error
	}
	if res.RowsAffected == 0 {
		return models.Device{}, repository.ErrDeviceNotFound
	}
	return s.GetByID(ctx, id)
}

// Delete removes the device with its usage history and detaches its sensors.
func (s *Devices) Delete(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("device_id = ?", id).Delete(&energyRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&sensorRecord{}).Where("device_id = ?", id).Update("device_id", nil).Error; err != nil {
			return err
		}
		res := tx.Delete(&deviceRecord{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return repository.ErrDeviceNotFound
		}
		return nil
	})
}

func (s *Devices) find(query *gorm.DB) ([]models.Device, error) {
	var recs []deviceRecord
	if err := query.Find(&recs).Error; err != nil {
		return nil, err
	}
	devices := make([]models.Device, 0, len(recs))
	for _, rec := range recs {
		devices = append(devices, rec.model())
	}
	return devices, nil
}
