// Package marketplace wraps the external peer-to-peer marketplace server
// (OpenBazaar-style REST API) behind a small interface. The rest of the
// system only depends on the three operations below.
package marketplace

import (
	"context"
	"time"
)

// ListingData is the marketplace-facing description of a device listing.
type ListingData struct {
	DeviceID    string
	Title       string
	Description string
	Price       float64
	Expiration  time.Time
	ImageURL    string
}

// Refund describes a refund payment sent through the marketplace wallet.
type Refund struct {
	Address string
	Amount  float64
	Memo    string
}

// Marketplace is the contract the lease subsystem depends on.
//
// RemoveListing treats a listing that is already gone on the marketplace
// side as successfully removed, so callers get idempotent delete semantics.
// Any other failure is reported as common.ErrMarketplaceUnavailable.
type Marketplace interface {
	CreateListing(ctx context.Context, data ListingData) (slug string, err error)
	RemoveListing(ctx context.Context, slug string) error
	SendRefund(ctx context.Context, refund Refund) error
}
