package gormstore

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/models"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/repository"
)

type Users struct {
	db *gorm.DB
}

func (s *Users) Create(ctx context.Context, user *models.User) error {
	rec := userRecord{
		Name:         user.Name,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		Role:         string(user.Role),
		Image:        user.ImageURL,
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return translate(err, repository.ErrUserNotFound)
	}
	*user = rec.model()
	return nil
}

func (s *Users) GetByID(ctx context.Context, id int64) (models.User, error) {
	var rec userRecord
	err := s.db.WithContext(ctx).First(&rec, id).Error
	return rec.model(), translate(err, repository.ErrUserNotFound)
}

func (s *Users) FindByEmail(ctx context.Context, email string) (models.User, error) {
	var rec userRecord
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&rec).Error
	return rec.model(), translate(err, repository.ErrUserNotFound)
}

func (s *Users) First(ctx context.Context) (models.User, error) {
	var rec userRecord
	err := s.db.WithContext(ctx).Order("id").First(&rec).Error
	return rec.model(), translate(err, repository.ErrUserNotFound)
}

func (s *Users) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	var recs []userRecord
	if err := s.db.WithContext(ctx).Order("id").Limit(limit).Offset(offset).Find(&recs).Error; err != nil {
		return nil, err
	}
	users := make([]models.User, 0, len(recs))
	for _, rec := range recs {
		users = append(users, rec.model())
	}
	return users, nil
}

func (s *Users) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&userRecord{}).Count(&count).Error
	return count, err
}

func (s *Users) UpdatePassword(ctx context.Context, id int64, hash []byte) error {
	return s.update(ctx, id, map[string]any{"password_hash": hash})
}

func (s *Users) UpdateImage(ctx context.Context, id int64, url string) error {
	return s.update(ctx, id, map[string]any{"image": url})
}

func (s *Users) update(ctx context.Context, id int64, fields map[string]any) error {
	fields["updated_at"] = time.Now()
	res := s.db.WithContext(ctx).Model(&userRecord{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrUserNotFound
	}
	return nil
}

type Sessions struct {
	db *gorm.DB
}

func (s *Sessions) Create(ctx context.Context, session models.Session) error {
	now := time.Now()
	rec := sessionRecord{
		ID:         session.ID,
		UserID:     session.UserID,
		IPAddress:  session.IPAddress,
		UserAgent:  session.UserAgent,
		CreatedAt:  now,
		LastSeenAt: now,
		ExpiresAt:  session.ExpiresAt,
	}
	return translate(s.db.WithContext(ctx).Create(&rec).Error, repository.ErrSessionNotFound)
}

func (s *Sessions) GetByID(ctx context.Context, id string) (models.Session, error) {
	var rec sessionRecord
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	return rec.model(), translate(err, repository.ErrSessionNotFound)
}

func (s *Sessions) Touch(ctx context.Context, id string, ip string, userAgent string) error {
	fields := map[string]any{"last_seen_at": time.Now()}
	if ip != "" {
		fields["ip_address"] = ip
	}
	if userAgent != "" {
		fields["user_agent"] = userAgent
	}
	return s.db.WithContext(ctx).Model(&sessionRecord{}).Where("id = ?", id).Updates(fields).Error
}

func (s *Sessions) DeleteByID(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&sessionRecord{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrSessionNotFound
	}
	return nil
}

func (s *Sessions) DeleteOthers(ctx context.Context, userID int64, keepID string) error {
	return s.db.WithContext(ctx).Where("user_id = ? AND id <> ?", userID, keepID).Delete(&sessionRecord{}).Error
}

func (s *Sessions) CountByUser(ctx context.Context, userID int64) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&sessionRecord{}).Where("user_id = ?", userID).Count(&count).Error
	return int(count), err
}

func (s *Sessions) DeleteOldestSessions(ctx context.Context, userID int64, keepLatest int) error {
	var stale []string
	if err := s.db.WithContext(ctx).Model(&sessionRecord{}).
		Where("user_id = ?", userID).
		Order("last_seen_at DESC").
		Offset(keepLatest).
		Pluck("id", &stale).Error; err != nil {
		return err
	}
	if len(stale) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Where("id IN ?", stale).Delete(&sessionRecord{}).Error
}
