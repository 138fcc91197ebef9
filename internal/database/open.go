package database

import (
	"context"
	"fmt"

	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/config"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/repository"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/repository/gormstore"
)

// OpenStores connects the configured backend, applies its schema and returns
// the stores with a function that releases the connections.
func OpenStores(ctx context.Context, cfg config.DatabaseConfig, pg config.PostgresConfig) (repository.Stores, func(), error) {
	switch cfg.Driver {
	case "sqlite":
		db, err := gormstore.Open(cfg.SQLitePath)
		if err != nil {
			return repository.Stores{}, nil, err
		}
		closeFn := func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		return gormstore.NewStores(db), closeFn, nil
	case "postgres":
		pool, err := NewPostgresPool(ctx, pg)
		if err != nil {
			return repository.Stores{}, nil, err
		}
		if err := Migrate(ctx, pool); err != nil {
			pool.Close()
			return repository.Stores{}, nil, fmt.Errorf("migrate: %w", err)
		}
		reports := NewSQLX(pool)
		closeFn := func() {
			_ = reports.Close()
			pool.Close()
		}
		return repository.NewPostgresStores(pool, reports), closeFn, nil
	}
	return repository.Stores{}, nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}
