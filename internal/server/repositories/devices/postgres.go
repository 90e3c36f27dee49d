// Package devices provides the PostgreSQL-backed repository for public
// device records.
package devices

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/p2pvps/marketd/internal/common"
	"github.com/p2pvps/marketd/internal/dbx"
	"github.com/p2pvps/marketd/internal/server/models"
)

// PostgresRepository implements device storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const deviceColumns = `id, owner_user, renter_user, credential_id, listing_id,
	COALESCE(rent_start_date, 'epoch'::timestamptz),
	COALESCE(expiration, 'epoch'::timestamptz),
	COALESCE(checkin_timestamp, 'epoch'::timestamptz),
	device_name, device_desc, rent_hourly_rate, subdomain, http_port, ssh_port,
	memory, disk_space, processor, internet_speed, image_key`

func scanDevice(row interface{ Scan(...any) error }) (*models.Device, error) {
	d := &models.Device{}
	err := row.Scan(
		&d.ID, &d.OwnerUser, &d.RenterUser, &d.Credential, &d.ListingID,
		&d.RentStartDate, &d.Expiration, &d.CheckinTimeStamp,
		&d.DeviceName, &d.DeviceDesc, &d.RentHourlyRate, &d.Subdomain,
		&d.HTTPPort, &d.SSHPort,
		&d.Memory, &d.DiskSpace, &d.Processor, &d.InternetSpeed, &d.ImageKey,
	)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (r *PostgresRepository) Create(ctx context.Context, d *models.Device) error {
	query := `
		INSERT INTO devices (id, owner_user, renter_user, credential_id, listing_id,
			rent_start_date, expiration, checkin_timestamp,
			device_name, device_desc, rent_hourly_rate, subdomain, http_port, ssh_port,
			memory, disk_space, processor, internet_speed, image_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`
	_, err := r.db.ExecContext(ctx, query,
		d.ID, d.OwnerUser, d.RenterUser, d.Credential, d.ListingID,
		d.RentStartDate, d.Expiration, d.CheckinTimeStamp,
		d.DeviceName, d.DeviceDesc, d.RentHourlyRate, d.Subdomain, d.HTTPPort, d.SSHPort,
		d.Memory, d.DiskSpace, d.Processor, d.InternetSpeed, d.ImageKey)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE id = $1`

	d, err := scanDevice(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	return d, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.Device, error) {
	return r.selectDevices(ctx, `SELECT `+deviceColumns+` FROM devices ORDER BY id`)
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerUser string) ([]*models.Device, error) {
	return r.selectDevices(ctx, `SELECT `+deviceColumns+` FROM devices WHERE owner_user = $1 ORDER BY id`, ownerUser)
}

func (r *PostgresRepository) selectDevices(ctx context.Context, query string, args ...any) ([]*models.Device, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select devices: %w", err)
	}
	defer rows.Close()

	var result []*models.Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) Update(ctx context.Context, d *models.Device) error {
	query := `
		UPDATE devices SET owner_user=$2, renter_user=$3, credential_id=$4, listing_id=$5,
			rent_start_date=$6, expiration=$7, checkin_timestamp=$8,
			device_name=$9, device_desc=$10, rent_hourly_rate=$11, subdomain=$12,
			http_port=$13, ssh_port=$14,
			memory=$15, disk_space=$16, processor=$17, internet_speed=$18, image_key=$19
		WHERE id=$1
	`
	res, err := r.db.ExecContext(ctx, query,
		d.ID, d.OwnerUser, d.RenterUser, d.Credential, d.ListingID,
		d.RentStartDate, d.Expiration, d.CheckinTimeStamp,
		d.DeviceName, d.DeviceDesc, d.RentHourlyRate, d.Subdomain, d.HTTPPort, d.SSHPort,
		d.Memory, d.DiskSpace, d.Processor, d.InternetSpeed, d.ImageKey)
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
	res, err := r.db.ExecContext(ctx, `DELETE FROM devices WHERE id = $1`, id)
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
