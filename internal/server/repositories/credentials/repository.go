package credentials

import (
	"context"

	"github.com/p2pvps/marketd/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, credential *models.DeviceCredential) error
	GetByID(ctx context.Context, id string) (*models.DeviceCredential, error)
	GetByDeviceID(ctx context.Context, deviceID string) (*models.DeviceCredential, error)
	Update(ctx context.Context, credential *models.DeviceCredential) error
	Delete(ctx context.Context, id string) error
}
