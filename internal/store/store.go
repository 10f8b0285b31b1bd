// Package store persists users and API keys. The rest of the system only
// sees the Store interface; uniqueness constraints are enforced here.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/authgate/authgate/internal/models"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

type Store interface {
	CreateUser(ctx context.Context, u *models.User) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	CreateAPIKey(ctx context.Context, k *models.APIKey) (*models.APIKey, error)
	GetAPIKeyByHash(ctx context.Context, hash string) (*models.APIKey, error)
	ListAPIKeysByUser(ctx context.Context, userID uuid.UUID) ([]*models.APIKey, error)
	TouchAPIKey(ctx context.Context, id uuid.UUID, usedAt time.Time) error
	// DeactivateAPIKey and DeleteAPIKey report false both when the key does
	// not exist and when it belongs to another user, so callers cannot
	// distinguish the two.
	DeactivateAPIKey(ctx context.Context, id, userID uuid.UUID) (bool, error)
	DeleteAPIKey(ctx context.Context, id, userID uuid.UUID) (bool, error)
	DeactivateExpiredAPIKeys(ctx context.Context, now time.Time) (int64, error)

	Close()
}
