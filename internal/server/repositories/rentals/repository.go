package rentals

import (
	"context"
	"time"
)

type Repository interface {
	// Add inserts a device id into the registry. Returns common.ErrConflict
	// when the id is already present.
	Add(ctx context.Context, deviceID string, addedAt time.Time) error

	// List returns all registered device ids in insertion order.
	List(ctx context.Context) ([]string, error)

	// Exists reports whether the device id is present in the registry.
	Exists(ctx context.Context, deviceID string) (bool, error)

	// Remove deletes a device id from the registry. Returns common.ErrNotFound
	// when the id is absent.
	Remove(ctx context.Context, deviceID string) error
}
