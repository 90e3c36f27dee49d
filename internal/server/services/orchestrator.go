package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/p2pvps/marketd/internal/common"
	"github.com/p2pvps/marketd/internal/logging"
	"github.com/p2pvps/marketd/internal/server/config"
	"github.com/p2pvps/marketd/internal/server/models"
	"github.com/p2pvps/marketd/internal/server/repositories/repomanager"
)

// RegistrationResult is what a device receives back from a successful
// registration: its updated catalog record plus the fresh SSH login.
type RegistrationResult struct {
	Device   *models.Device
	Username string
	Password string
	Port     int
}

// ExpirationResult reports a device's lease expiration and whether the
// expiration sweep tore down its listing during the check.
type ExpirationResult struct {
	Expiration time.Time
	Expired    bool
}

// LeaseOrchestrator drives the device lease lifecycle end to end:
// registration, check-in heartbeats, expiration checks, renewals and
// deletion. It composes the port pool, the credential rotator, the listing
// manager and the rented-device registry.
type LeaseOrchestrator struct {
	db       *sql.DB
	repos    repomanager.RepositoryManager
	pool     *PortPool
	rotator  *CredentialRotator
	listings *ListingManager
	registry *LeaseRegistry
	lease    time.Duration
	logger   logging.Logger
}

func NewLeaseOrchestrator(db *sql.DB, repos repomanager.RepositoryManager, pool *PortPool, rotator *CredentialRotator, listings *ListingManager, registry *LeaseRegistry, cfg *config.Config, logger logging.Logger) *LeaseOrchestrator {
	return &LeaseOrchestrator{
		db:       db,
		repos:    repos,
		pool:     pool,
		rotator:  rotator,
		listings: listings,
		registry: registry,
		lease:    cfg.LeaseDuration,
		logger:   logger.With("component", "orchestrator"),
	}
}

// Register handles a device coming online: it stamps a fresh lease window,
// merges the caller-reported hardware stats, rotates the SSH credentials onto
// a newly allocated port and republishes the marketplace listing.
//
// The lease expiration is always computed server-side as now plus the
// configured lease duration; anything the caller supplies is ignored. The
// previously assigned port (if any) is released only after the new credential
// has been persisted, and a failed release is logged rather than failing the
// registration, since the replacement credentials are already live.
func (o *LeaseOrchestrator) Register(ctx context.Context, deviceID string, stats models.DeviceStats) (*RegistrationResult, error) {
	deviceRepo := o.repos.Devices(o.db)

	device, err := deviceRepo.GetByID(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	device.Expiration = now.Add(o.lease)
	device.CheckinTimeStamp = now
	mergeStats(device, stats)

	if err := deviceRepo.Update(ctx, device); err != nil {
		return nil, err
	}

	if device.Credential == "" {
		return nil, common.ErrNotFound
	}
	cred, err := o.repos.Credentials(o.db).GetByID(ctx, device.Credential)
	if err != nil {
		return nil, err
	}
	previousPort := cred.AssignedPort

	cred, err = o.rotator.Rotate(ctx, device.ID)
	if err != nil {
		return nil, err
	}

	if previousPort != 0 {
		if err := o.pool.Release(ctx, previousPort); err != nil {
			// The new port is already persisted; a stale pool entry is
			// recoverable by the operations tooling.
			o.logger.Warn(ctx, "failed to release previous port", "device", device.ID, "port", previousPort, "error", err)
		}
	}

	if _, err := o.listings.Publish(ctx, device); err != nil {
		return nil, err
	}

	if err := deviceRepo.Update(ctx, device); err != nil {
		return nil, err
	}

	o.logger.Info(ctx, "device registered", "device", device.ID, "port", cred.AssignedPort, "expiration", device.Expiration)
	return &RegistrationResult{
		Device:   device,
		Username: cred.Username,
		Password: cred.Password,
		Port:     cred.AssignedPort,
	}, nil
}

// CheckIn records a heartbeat from the device without touching its lease.
func (o *LeaseOrchestrator) CheckIn(ctx context.Context, deviceID string) error {
	repo := o.repos.Devices(o.db)

	device, err := repo.GetByID(ctx, deviceID)
	if err != nil {
		return err
	}

	device.CheckinTimeStamp = time.Now()
	if err := repo.Update(ctx, device); err != nil {
		return err
	}

	o.logger.Debug(ctx, "device checked in", "device", deviceID)
	return nil
}

// GetExpiration returns the device's lease expiration, sweeping its listing
// down first when the lease has already run out. Sweep failures are logged
// and do not hide the expiration from the caller.
func (o *LeaseOrchestrator) GetExpiration(ctx context.Context, deviceID string) (*ExpirationResult, error) {
	repo := o.repos.Devices(o.db)

	device, err := repo.GetByID(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	expired, err := o.listings.SweepExpiration(ctx, device)
	if err != nil {
		o.logger.Warn(ctx, "expiration sweep failed", "device", deviceID, "error", err)
	} else if expired && device.ListingID != "" {
		device.ListingID = ""
		if err := repo.Update(ctx, device); err != nil {
			o.logger.Warn(ctx, "failed to clear listing reference", "device", deviceID, "error", err)
		}
	}

	return &ExpirationResult{Expiration: device.Expiration, Expired: expired}, nil
}

// Renew republishes the listing of a device from the rented-device registry,
// extending its marketplace presence without rotating credentials. A device
// that is not in the registry fails with common.ErrUnprocessable.
func (o *LeaseOrchestrator) Renew(ctx context.Context, deviceID string) (listingID string, err error) {
	registered, err := o.registry.Contains(ctx, deviceID)
	if err != nil {
		return "", err
	}
	if !registered {
		return "", common.ErrUnprocessable
	}

	repo := o.repos.Devices(o.db)
	device, err := repo.GetByID(ctx, deviceID)
	if err != nil {
		return "", err
	}

	listing, err := o.listings.Publish(ctx, device)
	if err != nil {
		return "", err
	}

	if err := repo.Update(ctx, device); err != nil {
		return "", err
	}

	o.logger.Info(ctx, "device listing renewed", "device", deviceID, "listing", listing.ID)
	return listing.ID, nil
}

// DeleteDevice removes a device and its credential record, returning its
// SSH port to the pool. Only the device's owner may delete it. Cleanup of the
// marketplace listing and the rented-device registry is best effort: the
// device record itself is already gone when those run, so failures are
// logged, not returned.
func (o *LeaseOrchestrator) DeleteDevice(ctx context.Context, deviceID, callerID string) error {
	deviceRepo := o.repos.Devices(o.db)

	device, err := deviceRepo.GetByID(ctx, deviceID)
	if err != nil {
		return err
	}
	if device.OwnerUser != callerID {
		return common.ErrUnauthorized
	}

	if device.Credential == "" {
		return common.ErrNotFound
	}
	credRepo := o.repos.Credentials(o.db)
	cred, err := credRepo.GetByID(ctx, device.Credential)
	if err != nil {
		return err
	}

	if cred.AssignedPort != 0 {
		if err := o.pool.Release(ctx, cred.AssignedPort); err != nil && !errors.Is(err, common.ErrNotFound) {
			return err
		}
	}

	if err := deviceRepo.Delete(ctx, deviceID); err != nil {
		return err
	}
	if err := credRepo.Delete(ctx, cred.ID); err != nil {
		return err
	}

	if device.ListingID != "" {
		if err := o.listings.removeListing(ctx, device.ListingID); err != nil {
			o.logger.Warn(ctx, "failed to remove listing of deleted device", "device", deviceID, "error", err)
		}
	}
	if err := o.registry.Remove(ctx, deviceID); err != nil && !errors.Is(err, common.ErrNotFound) {
		o.logger.Warn(ctx, "failed to deregister deleted device", "device", deviceID, "error", err)
	}

	o.logger.Info(ctx, "device deleted", "device", deviceID)
	return nil
}

// mergeStats copies the non-empty caller-reported hardware fields onto the
// device record.
func mergeStats(device *models.Device, stats models.DeviceStats) {
	if stats.Memory != "" {
		device.Memory = stats.Memory
	}
	if stats.DiskSpace != "" {
		device.DiskSpace = stats.DiskSpace
	}
	if stats.Processor != "" {
		device.Processor = stats.Processor
	}
	if stats.InternetSpeed != "" {
		device.InternetSpeed = stats.InternetSpeed
	}
}
