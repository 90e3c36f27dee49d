package users

import (
	"context"

	"github.com/p2pvps/marketd/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) error
	GetByLogin(ctx context.Context, userName string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	Delete(ctx context.Context, id string) error
}
