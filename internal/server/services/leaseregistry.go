package services

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/p2pvps/marketd/internal/dbx"
	"github.com/p2pvps/marketd/internal/logging"
	"github.com/p2pvps/marketd/internal/server/repositories/repomanager"
)

// LeaseRegistry tracks the device ids currently considered rented. It is an
// auxiliary list maintained by operations tooling; per-device expiry lives on
// the Listing, not here.
type LeaseRegistry struct {
	mu     sync.Mutex
	db     *sql.DB
	repos  repomanager.RepositoryManager
	logger logging.Logger
}

func NewLeaseRegistry(db *sql.DB, repos repomanager.RepositoryManager, logger logging.Logger) *LeaseRegistry {
	return &LeaseRegistry{
		db:     db,
		repos:  repos,
		logger: logger.With("component", "leaseregistry"),
	}
}

// Add registers a device id. The device must exist in the catalog
// (common.ErrNotFound otherwise) and must not already be registered
// (common.ErrConflict).
func (r *LeaseRegistry) Add(ctx context.Context, deviceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Validate the reference before inserting; the registry must never hold
	// ids that are not in the device catalog.
	if _, err := r.repos.Devices(r.db).GetByID(ctx, deviceID); err != nil {
		return err
	}

	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return r.repos.Rentals(tx).Add(ctx, deviceID, time.Now())
	})
	if err != nil {
		return err
	}

	r.logger.Info(ctx, "device added to rented list", "device", deviceID)
	return nil
}

// List returns the registered device ids in insertion order. An empty
// registry yields an empty slice.
func (r *LeaseRegistry) List(ctx context.Context) ([]string, error) {
	return r.repos.Rentals(r.db).List(ctx)
}

// Contains reports whether the device id is currently registered.
func (r *LeaseRegistry) Contains(ctx context.Context, deviceID string) (bool, error) {
	return r.repos.Rentals(r.db).Exists(ctx, deviceID)
}

// Remove drops a device id from the registry, failing with
// common.ErrNotFound when it is absent.
func (r *LeaseRegistry) Remove(ctx context.Context, deviceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return r.repos.Rentals(tx).Remove(ctx, deviceID)
	})
	if err != nil {
		return err
	}

	r.logger.Info(ctx, "device removed from rented list", "device", deviceID)
	return nil
}
