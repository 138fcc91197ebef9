package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/models"
)

type EnergyRepository struct {
	pool *pgxpool.Pool
}

func NewEnergyRepository(pool *pgxpool.Pool) *EnergyRepository {
	return &EnergyRepository{pool: pool}
}

func (r *EnergyRepository) Insert(ctx context.Context, usage *models.EnergyUsage) error {
	const query = `
		INSERT INTO energy_usage (device_id, user_id, power_consumed, voltage, current, cost, location, timestamp, duration_minutes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		RETURNING id, created_at
	`
	err := r.pool.QueryRow(ctx, query,
		usage.DeviceID,
		usage.UserID,
		usage.PowerConsumed,
		usage.Voltage,
		usage.Current,
		usage.Cost,
		usage.Location,
		usage.Timestamp,
		usage.DurationMinutes,
	).Scan(&usage.ID, &usage.CreatedAt)
	return translate(err)
}

func (r *EnergyRepository) List(ctx context.Context, q EnergyQuery) ([]models.EnergyUsage, error) {
	var (
		conditions []string
		args       []any
	)
	if q.DeviceID != 0 {
		args = append(args, q.DeviceID)
		conditions = append(conditions, fmt.Sprintf("device_id = $%d", len(args)))
	}
	if !q.From.IsZero() {
		args = append(args, q.From)
		conditions = append(conditions, fmt.Sprintf("timestamp >= $%d", len(args)))
	}

	query := `
		SELECT id, device_id, user_id, power_consumed, voltage, current, cost, location, timestamp, duration_minutes, created_at
		FROM energy_usage`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY timestamp DESC"
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	usages := make([]models.EnergyUsage, 0)
	for rows.Next() {
		var usage models.EnergyUsage
		if err := rows.Scan(
			&usage.ID,
			&usage.DeviceID,
			&usage.UserID,
			&usage.PowerConsumed,
			&usage.Voltage,
			&usage.Current,
			&usage.Cost,
			&usage.Location,
			&usage.Timestamp,
			&usage.DurationMinutes,
			&usage.CreatedAt,
		); err != nil {
			return nil, err
		}
		usages = append(usages, usage)
	}
	return usages, rows.Err()
}
