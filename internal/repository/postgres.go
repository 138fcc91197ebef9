package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
)

// NewPostgresStores wires every store onto one pool; reports go through the sqlx handle sharing it.
func NewPostgresStores(pool *pgxpool.Pool, reports *sqlx.DB) Stores {
	return Stores{
		Users:    NewUserRepository(pool),
		Sessions: NewSessionRepository(pool),
		Devices:  NewDeviceRepository(pool),
		Sensors:  NewSensorRepository(pool),
		Readings: NewReadingRepository(pool),
		Energy:   NewEnergyRepository(pool),
		Reports:  NewReportRepository(reports),
		DB:       pool,
	}
}
