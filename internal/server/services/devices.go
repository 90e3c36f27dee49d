package services

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/p2pvps/marketd/internal/common"
	"github.com/p2pvps/marketd/internal/dbx"
	"github.com/p2pvps/marketd/internal/logging"
	"github.com/p2pvps/marketd/internal/server/models"
	"github.com/p2pvps/marketd/internal/server/repositories/repomanager"
)

// DeviceCatalog manages the public device records and their paired private
// credential records.
type DeviceCatalog struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	logger logging.Logger
}

func NewDeviceCatalog(db *sql.DB, repos repomanager.RepositoryManager, logger logging.Logger) *DeviceCatalog {
	return &DeviceCatalog{
		db:     db,
		repos:  repos,
		logger: logger.With("component", "devices"),
	}
}

// Create inserts a new device owned by the caller, together with its paired
// credential record. The two rows are written in one transaction so a device
// can never exist without a credential to rotate onto.
func (s *DeviceCatalog) Create(ctx context.Context, device *models.Device, callerID string) error {
	device.ID = uuid.NewString()
	device.OwnerUser = callerID
	device.ListingID = ""

	cred := &models.DeviceCredential{
		ID:        uuid.NewString(),
		OwnerUser: callerID,
		DeviceID:  device.ID,
	}
	device.Credential = cred.ID

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repos.Devices(tx).Create(ctx, device); err != nil {
			return err
		}
		return s.repos.Credentials(tx).Create(ctx, cred)
	})
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "device created", "device", device.ID, "owner", callerID)
	return nil
}

// Get returns a device by id. Malformed ids fail with common.ErrUnprocessable
// before touching storage.
func (s *DeviceCatalog) Get(ctx context.Context, id string) (*models.Device, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, common.ErrUnprocessable
	}
	return s.repos.Devices(s.db).GetByID(ctx, id)
}

// List returns all devices.
func (s *DeviceCatalog) List(ctx context.Context) ([]*models.Device, error) {
	return s.repos.Devices(s.db).List(ctx)
}

// ListByOwner returns the devices owned by the given user.
func (s *DeviceCatalog) ListByOwner(ctx context.Context, ownerUser string) ([]*models.Device, error) {
	return s.repos.Devices(s.db).ListByOwner(ctx, ownerUser)
}

// Update overwrites a device's mutable fields. Only the owner or an admin may
// update it, and the owner, credential and listing references are preserved
// from the stored record so callers cannot re-point them.
func (s *DeviceCatalog) Update(ctx context.Context, device *models.Device, callerID, callerRole string) error {
	repo := s.repos.Devices(s.db)

	stored, err := repo.GetByID(ctx, device.ID)
	if err != nil {
		return err
	}
	if stored.OwnerUser != callerID && callerRole != models.RoleAdmin {
		return common.ErrUnauthorized
	}

	device.OwnerUser = stored.OwnerUser
	device.Credential = stored.Credential
	device.ListingID = stored.ListingID

	if err := repo.Update(ctx, device); err != nil {
		return err
	}

	s.logger.Info(ctx, "device updated", "device", device.ID)
	return nil
}

// GetCredential returns a credential record by its id. Access control is the
// caller's concern; handlers restrict this to admins and device clients.
func (s *DeviceCatalog) GetCredential(ctx context.Context, id string) (*models.DeviceCredential, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, common.ErrUnprocessable
	}
	return s.repos.Credentials(s.db).GetByID(ctx, id)
}

// UpdateCredential overwrites a credential's renter and money fields. The
// login fields and port assignment are preserved from the stored record;
// those only change through rotation.
func (s *DeviceCatalog) UpdateCredential(ctx context.Context, cred *models.DeviceCredential) error {
	repo := s.repos.Credentials(s.db)

	stored, err := repo.GetByID(ctx, cred.ID)
	if err != nil {
		return err
	}

	cred.OwnerUser = stored.OwnerUser
	cred.DeviceID = stored.DeviceID
	cred.Username = stored.Username
	cred.Password = stored.Password
	cred.AssignedPort = stored.AssignedPort

	return repo.Update(ctx, cred)
}
