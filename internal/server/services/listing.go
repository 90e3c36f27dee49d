package services

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/p2pvps/marketd/internal/common"
	"github.com/p2pvps/marketd/internal/logging"
	"github.com/p2pvps/marketd/internal/server/config"
	"github.com/p2pvps/marketd/internal/server/marketplace"
	"github.com/p2pvps/marketd/internal/server/models"
	"github.com/p2pvps/marketd/internal/server/repositories/repomanager"
)

// ImageURLProvider resolves a stored image key to a URL the marketplace can
// fetch. Implemented by the S3-backed ImageStore; nil-able for deployments
// without an image store.
type ImageURLProvider interface {
	PresignedGetURL(ctx context.Context, key string) (string, error)
}

// ListingManager owns the marketplace listing lifecycle for devices:
// publishing (replace-then-create), renewal and expiration sweeps.
type ListingManager struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	market marketplace.Marketplace
	images ImageURLProvider
	lease  time.Duration
	logger logging.Logger
}

func NewListingManager(db *sql.DB, repos repomanager.RepositoryManager, market marketplace.Marketplace, images ImageURLProvider, cfg *config.Config, logger logging.Logger) *ListingManager {
	return &ListingManager{
		db:     db,
		repos:  repos,
		market: market,
		images: images,
		lease:  cfg.LeaseDuration,
		logger: logger.With("component", "listings"),
	}
}

// Publish replaces the device's marketplace listing with a fresh one built
// from the device's current fields. Any existing listing is torn down first;
// a listing that already vanished on the marketplace side counts as removed.
//
// On success the new listing id is written onto device.ListingID, but the
// device record itself is NOT persisted here. The caller commits the device
// update after Publish returns, so a failed publish never leaves a device
// pointing at a listing that was not created.
func (m *ListingManager) Publish(ctx context.Context, device *models.Device) (*models.Listing, error) {
	repo := m.repos.Listings(m.db)

	if device.ListingID != "" {
		if err := m.removeListing(ctx, device.ListingID); err != nil {
			return nil, err
		}
	}

	price, _ := strconv.ParseFloat(device.RentHourlyRate, 64)

	imageURL := ""
	if m.images != nil && device.ImageKey != "" {
		url, err := m.images.PresignedGetURL(ctx, device.ImageKey)
		if err != nil {
			// The listing is still valid without an image.
			m.logger.Warn(ctx, "failed to resolve listing image", "device", device.ID, "error", err)
		} else {
			imageURL = url
		}
	}

	now := time.Now()
	expiration := now.Add(m.lease)

	slug, err := m.market.CreateListing(ctx, marketplace.ListingData{
		DeviceID:    device.ID,
		Title:       device.DeviceName,
		Description: device.DeviceDesc,
		Price:       price,
		Expiration:  expiration,
		ImageURL:    imageURL,
	})
	if err != nil {
		return nil, err
	}

	listing := &models.Listing{
		ID:           uuid.NewString(),
		DeviceID:     device.ID,
		OwnerUser:    device.OwnerUser,
		RenterUser:   device.RenterUser,
		Price:        price,
		Expiration:   expiration,
		Title:        device.DeviceName,
		Description:  device.DeviceDesc,
		ListingSlug:  slug,
		ListingState: "active",
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := repo.Create(ctx, listing); err != nil {
		return nil, err
	}

	device.ListingID = listing.ID

	m.logger.Info(ctx, "published listing", "device", device.ID, "listing", listing.ID, "slug", slug)
	return listing, nil
}

// SweepExpiration tears down the device's listing when the device's lease has
// run out. It reports whether the device was expired; clearing the device's
// listing reference is up to the caller.
func (m *ListingManager) SweepExpiration(ctx context.Context, device *models.Device) (bool, error) {
	if device.Expiration.IsZero() || device.Expiration.After(time.Now()) {
		return false, nil
	}

	if device.ListingID != "" {
		if err := m.removeListing(ctx, device.ListingID); err != nil {
			return true, err
		}
	}

	m.logger.Info(ctx, "swept expired listing", "device", device.ID)
	return true, nil
}

// removeListing deletes the listing row and its external marketplace
// counterpart. A missing row or a 404 from the marketplace both count as
// already-removed.
func (m *ListingManager) removeListing(ctx context.Context, listingID string) error {
	repo := m.repos.Listings(m.db)

	listing, err := repo.GetByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil
		}
		return err
	}

	if listing.ListingSlug != "" {
		if err := m.market.RemoveListing(ctx, listing.ListingSlug); err != nil {
			return err
		}
	}

	if err := repo.Delete(ctx, listingID); err != nil && !errors.Is(err, common.ErrNotFound) {
		return err
	}
	return nil
}

// Get returns a listing by id. Malformed ids fail with
// common.ErrUnprocessable before touching storage.
func (m *ListingManager) Get(ctx context.Context, id string) (*models.Listing, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, common.ErrUnprocessable
	}
	return m.repos.Listings(m.db).GetByID(ctx, id)
}

// List returns all listings.
func (m *ListingManager) List(ctx context.Context) ([]*models.Listing, error) {
	return m.repos.Listings(m.db).List(ctx)
}
