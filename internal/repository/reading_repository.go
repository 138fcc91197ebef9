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

const readingColumns = `id, sensor_id, type, value, unit, location, timestamp, quality, source, created_at`

type ReadingRepository struct {
	pool *pgxpool.Pool
}

func NewReadingRepository(pool *pgxpool.Pool) *ReadingRepository {
	return &ReadingRepository{pool: pool}
}

func (r *ReadingRepository) Insert(ctx context.Context, reading *models.SensorReading) error {
	const query = `
		INSERT INTO sensor_readings (sensor_id, type, value, unit, location, timestamp, quality, source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING id, created_at
	`
	err := r.pool.QueryRow(ctx, query,
		reading.SensorID,
		reading.Type,
		reading.Value,
		reading.Unit,
		reading.Location,
		reading.Timestamp.UnixMilli(),
		reading.Quality,
		reading.Source,
	).Scan(&reading.ID, &reading.CreatedAt)
	return translate(err)
}

func (r *ReadingRepository) LatestByType(ctx context.Context, sensorType models.SensorType) (models.SensorReading, error) {
	query := `SELECT ` + readingColumns + ` FROM sensor_readings WHERE type = $1 ORDER BY timestamp DESC, id DESC LIMIT 1`
	reading, err := scanReading(r.pool.QueryRow(ctx, query, sensorType))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.SensorReading{}, ErrReadingNotFound
		}
		return models.SensorReading{}, err
	}
	return reading, nil
}

func (r *ReadingRepository) LatestBySensor(ctx context.Context, sensorID int64, limit int) ([]models.SensorReading, error) {
	query := `SELECT ` + readingColumns + ` FROM sensor_readings WHERE sensor_id = $1 ORDER BY timestamp DESC, id DESC LIMIT $2`
	return r.query(ctx, query, sensorID, limit)
}

func (r *ReadingRepository) Range(ctx context.Context, q ReadingQuery) ([]models.SensorReading, error) {
	var (
		conditions []string
		args       []any
	)
	if q.SensorID != 0 {
		args = append(args, q.SensorID)
		conditions = append(conditions, fmt.Sprintf("sensor_id = $%d", len(args)))
	}
	if q.Type != "" {
		args = append(args, q.Type)
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)))
	}
	if !q.From.IsZero() {
		args = append(args, q.From.UnixMilli())
		conditions = append(conditions, fmt.Sprintf("timestamp >= $%d", len(args)))
	}
	if !q.To.IsZero() {
		args = append(args, q.To.UnixMilli())
		conditions = append(conditions, fmt.Sprintf("timestamp <= $%d", len(args)))
	}

	query := `SELECT ` + readingColumns + ` FROM sensor_readings`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY timestamp ASC, id ASC"
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	return r.query(ctx, query, args...)
}

func (r *ReadingRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM sensor_readings WHERE timestamp < $1`, cutoff.UnixMilli())
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *ReadingRepository) query(ctx context.Context, query string, args ...any) ([]models.SensorReading, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	readings := make([]models.SensorReading, 0)
	for rows.Next() {
		reading, err := scanReading(rows)
		if err != nil {
			return nil, err
		}
		readings = append(readings, reading)
	}
	return readings, rows.Err()
}

func scanReading(row pgx.Row) (models.SensorReading, error) {
	var (
		reading models.SensorReading
		millis  int64
	)
	err := row.Scan(
		&reading.ID,
		&reading.SensorID,
		&reading.Type,
		&reading.Value,
		&reading.Unit,
		&reading.Location,
		&millis,
		&reading.Quality,
		&reading.Source,
		&reading.CreatedAt,
	)
	reading.Timestamp = time.UnixMilli(millis).UTC()
	return reading, err
}
