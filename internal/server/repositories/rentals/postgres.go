// Package rentals provides the PostgreSQL-backed repository for the
// rented-device registry.
package rentals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/p2pvps/marketd/internal/common"
	"github.com/p2pvps/marketd/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// uniqueViolation is the PostgreSQL error code for duplicate keys.
const uniqueViolation = "23505"

func (r *PostgresRepository) Add(ctx context.Context, deviceID string, addedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO rented_devices (device_id, added_at) VALUES ($1, $2)`,
		deviceID, addedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return common.ErrConflict
		}
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT device_id FROM rented_devices ORDER BY added_at, device_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select rented devices: %w", err)
	}
	defer rows.Close()

	// Always return a non-nil slice so an empty registry serializes as [].
	result := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		result = append(result, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) Exists(ctx context.Context, deviceID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM rented_devices WHERE device_id = $1)`,
		deviceID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error performing sql request: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) Remove(ctx context.Context, deviceID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM rented_devices WHERE device_id = $1`, deviceID)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}
