package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// ReportRepository runs aggregate queries through sqlx so results bind straight into tagged structs.
type ReportRepository struct {
	db *sqlx.DB
}

func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) SensorTypeCounts(ctx context.Context) ([]TypeCount, error) {
	counts := make([]TypeCount, 0)
	err := r.db.SelectContext(ctx, &counts,
		`SELECT type, COUNT(*) AS count FROM sensors GROUP BY type ORDER BY type`)
	return counts, err
}

func (r *ReportRepository) DeviceEnergyTotals(ctx context.Context, deviceID int64) (EnergyTotals, error) {
	var totals EnergyTotals
	err := r.db.GetContext(ctx, &totals, `
		SELECT COALESCE(SUM(power_consumed), 0) AS total_kwh,
		       COALESCE(SUM(cost), 0) AS total_cost,
		       COUNT(*) AS samples,
		       MIN(timestamp) AS first_at,
		       MAX(timestamp) AS last_at
		FROM energy_usage
		WHERE device_id = $1`, deviceID)
	return totals, err
}

func (r *ReportRepository) Overview(ctx context.Context) (Overview, error) {
	var overview Overview
	err := r.db.GetContext(ctx, &overview, `
		SELECT (SELECT COUNT(*) FROM users) AS users,
		       (SELECT COUNT(*) FROM devices) AS devices,
		       (SELECT COUNT(*) FROM devices WHERE status = 'ON') AS devices_on,
		       (SELECT COUNT(*) FROM sensors) AS sensors,
		       (SELECT COUNT(*) FROM sensors WHERE status = 'ACTIVE') AS active_sensors,
		       (SELECT COUNT(*) FROM sensor_readings) AS readings`)
	return overview, err
}
