package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/models"
)

const deviceColumns = `id, name, model, location, power, status, icon, user_id, last_updated, created_at, updated_at`

type DeviceRepository struct {
	pool *pgxpool.Pool
}

func NewDeviceRepository(pool *pgxpool.Pool) *DeviceRepository {
	return &DeviceRepository{pool: pool}
}

func (r *DeviceRepository) List(ctx context.Context) ([]models.Device, error) {
	return r.query(ctx, `SELECT `+deviceColumns+` FROM devices ORDER BY name`)
}

func (r *DeviceRepository) ListByStatus(ctx context.Context, status models.DeviceStatus) ([]models.Device, error) {
	return r.query(ctx, `SELECT `+deviceColumns+` FROM devices WHERE status = $1 ORDER BY name`, status)
}

func (r *DeviceRepository) GetByID(ctx context.Context, id int64) (models.Device, error) {
	return scanDeviceRow(r.pool.QueryRow(ctx, `SELECT `+deviceColumns+` FROM devices WHERE id = $1`, id))
}

func (r *DeviceRepository) FindByName(ctx context.Context, name string) (models.Device, error) {
	return scanDeviceRow(r.pool.QueryRow(ctx, `SELECT `+deviceColumns+` FROM devices WHERE name = $1`, name))
}

func (r *DeviceRepository) Create(ctx context.Context, device *models.Device) error {
	const query = `
		INSERT INTO devices (name, model, location, power, status, icon, user_id, last_updated, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW(), NOW())
		RETURNING id, last_updated, created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		device.Name,
		device.Model,
		device.Location,
		device.Power,
		device.Status,
		device.Icon,
		device.UserID,
	).Scan(&device.ID, &device.LastUpdated, &device.CreatedAt, &device.UpdatedAt)
	return translate(err)
}

func (r *DeviceRepository) Update(ctx context.Context, device *models.Device) error {
	const query = `
		UPDATE devices
		SET name = $2, model = $3, location = $4, power = $5, status = $6, icon = $7,
		    last_updated = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		device.ID,
		device.Name,
		device.Model,
		device.Location,
		device.Power,
		device.Status,
		device.Icon,
		device.LastUpdated,
	).Scan(&device.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrDeviceNotFound
	}
	return translate(err)
}

func (r *DeviceRepository) SetStatus(ctx context.Context, id int64, status models.DeviceStatus, at time.Time) (models.Device, error) {
	query := `
		UPDATE devices SET status = $2, last_updated = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + deviceColumns
	return scanDeviceRow(r.pool.QueryRow(ctx, query, id, status, at))
}

func (r *DeviceRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM devices WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

func (r *DeviceRepository) query(ctx context.Context, query string, args ...any) ([]models.Device, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	devices := make([]models.Device, 0)
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, device)
	}
	return devices, rows.Err()
}

func scanDeviceRow(row pgx.Row) (models.Device, error) {
	device, err := scanDevice(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Device{}, ErrDeviceNotFound
		}
		return models.Device{}, err
	}
	return device, nil
}

func scanDevice(row pgx.Row) (models.Device, error) {
	var device models.Device
	err := row.Scan(
		&device.ID,
		&device.Name,
		&device.Model,
		&device.Location,
		&device.Power,
		&device.Status,
		&device.Icon,
		&device.UserID,
		&device.LastUpdated,
		&device.CreatedAt,
		&device.UpdatedAt,
	)
	return device, err
}
