package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/p2pvps/marketd/internal/common"
	"github.com/p2pvps/marketd/internal/logging"
	"github.com/p2pvps/marketd/internal/server/models"
	"github.com/p2pvps/marketd/internal/server/repositories/repomanager"
)

// credentialLength is the length of generated SSH usernames and passwords.
const credentialLength = 10

// NewThrowawayLogin returns a random username/password pair of the same shape
// Rotate issues, for callers that hand out a port without a device credential
// record to persist it onto.
func NewThrowawayLogin() (username, password string, err error) {
	username, err = common.MakeRandAlnumString(credentialLength)
	if err != nil {
		return "", "", fmt.Errorf("generate username: %w", err)
	}
	password, err = common.MakeRandAlnumString(credentialLength)
	if err != nil {
		return "", "", fmt.Errorf("generate password: %w", err)
	}
	return username, password, nil
}

// CredentialRotator issues fresh SSH credentials bound to a newly allocated
// port on every registration or renewal.
type CredentialRotator struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	pool   *PortPool
	logger logging.Logger
}

func NewCredentialRotator(db *sql.DB, repos repomanager.RepositoryManager, pool *PortPool, logger logging.Logger) *CredentialRotator {
	return &CredentialRotator{
		db:     db,
		repos:  repos,
		pool:   pool,
		logger: logger.With("component", "rotator"),
	}
}

// Rotate generates a new random username/password pair, allocates a new port
// and persists all three onto the device's credential record. The previous
// port is NOT released here: the new allocation must be safely persisted
// before the old one goes away, so releasing is the caller's step, performed
// only after Rotate returns successfully.
func (r *CredentialRotator) Rotate(ctx context.Context, deviceID string) (*models.DeviceCredential, error) {
	repo := r.repos.Credentials(r.db)

	cred, err := repo.GetByDeviceID(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	username, password, err := NewThrowawayLogin()
	if err != nil {
		return nil, err
	}

	port, err := r.pool.Allocate(ctx)
	if err != nil {
		return nil, err
	}

	cred.Username = username
	cred.Password = password
	cred.AssignedPort = port

	if err := repo.Update(ctx, cred); err != nil {
		return nil, err
	}

	r.logger.Info(ctx, "rotated device credentials", "device", deviceID, "port", port)
	return cred, nil
}
