package models

import "time"

// Listing mirrors a marketplace advertisement for a device. A device has at
// most one active Listing; replacing it removes the old external listing
// before creating the new one.
type Listing struct {
	ID         string
	DeviceID   string
	OwnerUser  string
	RenterUser string

	Price float64
	// Expiration is the expiration of the listing, not of the rental contract.
	Expiration  time.Time
	Title       string
	Description string

	// ListingSlug is the marketplace-assigned identifier of the external
	// listing. ImageHash points at the listing image known to the marketplace.
	ListingSlug  string
	ImageHash    string
	ListingState string

	CreatedAt time.Time
	UpdatedAt time.Time
}
