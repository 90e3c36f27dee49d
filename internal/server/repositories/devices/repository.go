package devices

import (
	"context"

	"github.com/p2pvps/marketd/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, device *models.Device) error
	GetByID(ctx context.Context, id string) (*models.Device, error)
	List(ctx context.Context) ([]*models.Device, error)
	ListByOwner(ctx context.Context, ownerUser string) ([]*models.Device, error)
	Update(ctx context.Context, device *models.Device) error
	Delete(ctx context.Context, id string) error
}
