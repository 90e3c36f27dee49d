package listings

import (
	"context"

	"github.com/p2pvps/marketd/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, listing *models.Listing) error
	GetByID(ctx context.Context, id string) (*models.Listing, error)
	GetByDeviceID(ctx context.Context, deviceID string) (*models.Listing, error)
	List(ctx context.Context) ([]*models.Listing, error)
	Update(ctx context.Context, listing *models.Listing) error
	Delete(ctx context.Context, id string) error
}
