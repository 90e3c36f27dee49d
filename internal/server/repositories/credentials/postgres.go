// Package credentials provides the PostgreSQL-backed repository for private
// device credential records.
package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/p2pvps/marketd/internal/common"
	"github.com/p2pvps/marketd/internal/dbx"
	"github.com/p2pvps/marketd/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const credentialColumns = `id, owner_user, device_id, renter_user, username, password,
	assigned_port, money_pending, money_owed`

func scanCredential(row interface{ Scan(...any) error }) (*models.DeviceCredential, error) {
	c := &models.DeviceCredential{}
	err := row.Scan(
		&c.ID, &c.OwnerUser, &c.DeviceID, &c.RenterUser, &c.Username, &c.Password,
		&c.AssignedPort, &c.MoneyPending, &c.MoneyOwed,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *PostgresRepository) Create(ctx context.Context, c *models.DeviceCredential) error {
	query := `
		INSERT INTO device_credentials (id, owner_user, device_id, renter_user,
			username, password, assigned_port, money_pending, money_owed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.OwnerUser, c.DeviceID, c.RenterUser,
		c.Username, c.Password, c.AssignedPort, c.MoneyPending, c.MoneyOwed)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.DeviceCredential, error) {
	query := `SELECT ` + credentialColumns + ` FROM device_credentials WHERE id = $1`

	c, err := scanCredential(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) GetByDeviceID(ctx context.Context, deviceID string) (*models.DeviceCredential, error) {
	query := `SELECT ` + credentialColumns + ` FROM device_credentials WHERE device_id = $1`

	c, err := scanCredential(r.db.QueryRowContext(ctx, query, deviceID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) Update(ctx context.Context, c *models.DeviceCredential) error {
	query := `
		UPDATE device_credentials SET owner_user=$2, device_id=$3, renter_user=$4,
			username=$5, password=$6, assigned_port=$7, money_pending=$8, money_owed=$9
		WHERE id=$1
	`
	res, err := r.db.ExecContext(ctx, query,
		c.ID, c.OwnerUser, c.DeviceID, c.RenterUser,
		c.Username, c.Password, c.AssignedPort, c.MoneyPending, c.MoneyOwed)
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

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM device_credentials WHERE id = $1`, id)
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
