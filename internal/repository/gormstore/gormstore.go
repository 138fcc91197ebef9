// Package gormstore implements the repository stores on gorm, backed by SQLite.
// It serves single-node deployments and the test suites.
package gormstore

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/repository"
)

// Open connects to the SQLite database at path (":memory:" for a throwaway one) and migrates it.
func Open(path string) (*gorm.DB, error) {
	dsn := path + "?_foreign_keys=on"
	if path == ":memory:" {
		dsn = "file::memory:?_foreign_keys=on"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer; one connection also keeps an in-memory database alive.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, err
	}
	if err := AutoMigrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&userRecord{},
		&sessionRecord{},
		&deviceRecord{},
		&sensorRecord{},
		&readingRecord{},
		&energyRecord{},
	)
}

func NewStores(db *gorm.DB) repository.Stores {
	return repository.Stores{
		Users:    &Users{db: db},
		Sessions: &Sessions{db: db},
		Devices:  &Devices{db: db},
		Sensors:  &Sensors{db: db},
		Readings: &Readings{db: db},
		Energy:   &Energy{db: db},
		Reports:  &Reports{db: db},
		DB:       pinger{db: db},
	}
}

type pinger struct {
	db *gorm.DB
}

func (p pinger) Ping(ctx context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// translate maps gorm errors onto repository sentinels; notFound replaces gorm.ErrRecordNotFound.
func translate(err error, notFound error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return notFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return repository.ErrDuplicate
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return repository.ErrReference
	}
	return err
}
