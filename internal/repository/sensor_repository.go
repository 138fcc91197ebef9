package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/models"
)

const sensorColumns = `id, name, type, location, unit, calibration_factor, status, device_id, user_id,
	last_value, last_reading_at, created_at, updated_at`

type SensorRepository struct {
	pool *pgxpool.Pool
}

func NewSensorRepository(pool *pgxpool.Pool) *SensorRepository {
	return &SensorRepository{pool: pool}
}

func (r *SensorRepository) List(ctx context.Context, filter SensorFilter) ([]models.Sensor, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.Type != "" {
		args = append(args, filter.Type)
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + sensorColumns + ` FROM sensors`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY name"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sensors := make([]models.Sensor, 0)
	for rows.Next() {
		sensor, err := scanSensor(rows)
		if err != nil {
			return nil, err
		}
		sensors = append(sensors, sensor)
	}
	return sensors, rows.Err()
}

func (r *SensorRepository) GetByID(ctx context.Context, id int64) (models.Sensor, error) {
	return scanSensorRow(r.pool.QueryRow(ctx, `SELECT `+sensorColumns+` FROM sensors WHERE id = $1`, id))
}

func (r *SensorRepository) FindByTypeLocation(ctx context.Context, sensorType models.SensorType, location string) (models.Sensor, error) {
	query := `SELECT ` + sensorColumns + ` FROM sensors WHERE type = $1 AND location = $2 ORDER BY id LIMIT 1`
	return scanSensorRow(r.pool.QueryRow(ctx, query, sensorType, location))
}

func (r *SensorRepository) Create(ctx context.Context, sensor *models.Sensor) error {
	const query = `
		INSERT INTO sensors (name, type, location, unit, calibration_factor, status, device_id, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		sensor.Name,
		sensor.Type,
		sensor.Location,
		sensor.Unit,
		sensor.CalibrationFactor,
		sensor.Status,
		sensor.DeviceID,
		sensor.UserID,
	).Scan(&sensor.ID, &sensor.CreatedAt, &sensor.UpdatedAt)
	return translate(err)
}

func (r *SensorRepository) Update(ctx context.Context, sensor *models.Sensor) error {
	const query = `
		UPDATE sensors
		SET name = $2, type = $3, location = $4, unit = $5, calibration_factor = $6,
		    status = $7, device_id = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		sensor.ID,
		sensor.Name,
		sensor.Type,
		sensor.Location,
		sensor.Unit,
		sensor.CalibrationFactor,
		sensor.Status,
		sensor.DeviceID,
	).Scan(&sensor.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrSensorNotFound
	}
	return translate(err)
}

func (r *SensorRepository) SetStatus(ctx context.Context, id int64, status models.SensorStatus) (models.Sensor, error) {
	query := `UPDATE sensors SET status = $2, updated_at = NOW() WHERE id = $1 RETURNING ` + sensorColumns
	return scanSensorRow(r.pool.QueryRow(ctx, query, id, status))
}

// RecordLastReading caches the most recent value on the sensor row. Concurrent writers race; the last one wins.
func (r *SensorRepository) RecordLastReading(ctx context.Context, id int64, value float64, at time.Time) error {
	const query = `UPDATE sensors SET last_value = $2, last_reading_at = $3, updated_at = NOW() WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id, value, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrSensorNotFound
	}
	return nil
}

func (r *SensorRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM sensors WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrSensorNotFound
	}
	return nil
}

func scanSensorRow(row pgx.Row) (models.Sensor, error) {
	sensor, err := scanSensor(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Sensor{}, ErrSensorNotFound
		}
		return models.Sensor{}, err
	}
	return sensor, nil
}

func scanSensor(row pgx.Row) (models.Sensor, error) {
	var sensor models.Sensor
	err := row.Scan(
		&sensor.ID,
		&sensor.Name,
		&sensor.Type,
		&sensor.Location,
		&sensor.Unit,
		&sensor.CalibrationFactor,
		&sensor.Status,
		&sensor.DeviceID,
		&sensor.UserID,
		&sensor.LastValue,
		&sensor.LastReadingAt,
		&sensor.CreatedAt,
		&sensor.UpdatedAt,
	)
	return sensor, err
}
