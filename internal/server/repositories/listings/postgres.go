// Package listings provides the PostgreSQL-backed repository for marketplace
// listing records.
package listings

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

const listingColumns = `id, device_id, owner_user, renter_user, price,
	COALESCE(expiration, 'epoch'::timestamptz),
	title, description, listing_slug, image_hash, listing_state, created_at, updated_at`

func scanListing(row interface{ Scan(...any) error }) (*models.Listing, error) {
	l := &models.Listing{}
	err := row.Scan(
		&l.ID, &l.DeviceID, &l.OwnerUser, &l.RenterUser, &l.Price,
		&l.Expiration, &l.Title, &l.Description, &l.ListingSlug, &l.ImageHash,
		&l.ListingState, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (r *PostgresRepository) Create(ctx context.Context, l *models.Listing) error {
	query := `
		INSERT INTO listings (id, device_id, owner_user, renter_user, price, expiration,
			title, description, listing_slug, image_hash, listing_state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.db.ExecContext(ctx, query,
		l.ID, l.DeviceID, l.OwnerUser, l.RenterUser, l.Price, l.Expiration,
		l.Title, l.Description, l.ListingSlug, l.ImageHash, l.ListingState,
		l.CreatedAt, l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE id = $1`

	l, err := scanListing(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	return l, nil
}

func (r *PostgresRepository) GetByDeviceID(ctx context.Context, deviceID string) (*models.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE device_id = $1 ORDER BY created_at DESC LIMIT 1`

	l, err := scanListing(r.db.QueryRowContext(ctx, query, deviceID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	return l, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.Listing, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+listingColumns+` FROM listings ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to select listings: %w", err)
	}
	defer rows.Close()

	var result []*models.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) Update(ctx context.Context, l *models.Listing) error {
	query := `
		UPDATE listings SET device_id=$2, owner_user=$3, renter_user=$4, price=$5,
			expiration=$6, title=$7, description=$8, listing_slug=$9, image_hash=$10,
			listing_state=$11, updated_at=$12
		WHERE id=$1
	`
	res, err := r.db.ExecContext(ctx, query,
		l.ID, l.DeviceID, l.OwnerUser, l.RenterUser, l.Price,
		l.Expiration, l.Title, l.Description, l.ListingSlug, l.ImageHash,
		l.ListingState, l.UpdatedAt)
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
	res, err := r.db.ExecContext(ctx, `DELETE FROM listings WHERE id = $1`, id)
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
