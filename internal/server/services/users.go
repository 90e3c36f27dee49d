package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/p2pvps/marketd/internal/common"
	"github.com/p2pvps/marketd/internal/logging"
	"github.com/p2pvps/marketd/internal/server/auth"
	"github.com/p2pvps/marketd/internal/server/config"
	"github.com/p2pvps/marketd/internal/server/models"
	"github.com/p2pvps/marketd/internal/server/repositories/repomanager"
)

// UserService handles account registration and login.
type UserService struct {
	db            *sql.DB
	repos         repomanager.RepositoryManager
	secretKey     []byte
	tokenValidity time.Duration
	logger        logging.Logger
}

func NewUserService(db *sql.DB, repos repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger) *UserService {
	return &UserService{
		db:            db,
		repos:         repos,
		secretKey:     []byte(cfg.SecretKey),
		tokenValidity: cfg.AccessTokenValidityDuration,
		logger:        logger.With("component", "users"),
	}
}

// Register creates a new account with the default user role. A taken
// username fails with common.ErrConflict.
func (s *UserService) Register(ctx context.Context, userName, password string) (*models.User, error) {
	if userName == "" || password == "" {
		return nil, common.ErrUnprocessable
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:           uuid.NewString(),
		UserName:     userName,
		PasswordHash: hash,
		Role:         models.RoleUser,
		CreatedAt:    time.Now(),
	}

	if err := s.repos.Users(s.db).Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user registered", "user", user.ID)
	return user, nil
}

// Login verifies the credentials and returns a signed access token. Both an
// unknown username and a wrong password fail with common.ErrUnauthorized so
// callers cannot probe for accounts.
func (s *UserService) Login(ctx context.Context, userName, password string) (token string, user *models.User, err error) {
	user, err = s.repos.Users(s.db).GetByLogin(ctx, userName)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", nil, common.ErrUnauthorized
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return "", nil, common.ErrUnauthorized
	}

	token, err = auth.GenerateToken(user.ID, user.Role, s.secretKey, s.tokenValidity)
	if err != nil {
		return "", nil, err
	}

	return token, user, nil
}
