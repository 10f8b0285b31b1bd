package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/authgate/authgate/internal/models"
)

// Memory is a mutex-guarded in-memory Store. It backs tests and lets the
// server run without a database.
type Memory struct {
	mu      sync.RWMutex
	users   map[uuid.UUID]*models.User
	apiKeys map[uuid.UUID]*models.APIKey
}

func NewMemory() *Memory {
	return &Memory{
		users:   make(map[uuid.UUID]*models.User),
		apiKeys: make(map[uuid.UUID]*models.APIKey),
	}
}

func (s *Memory) Close() {}

func (s *Memory) CreateUser(_ context.Context, u *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Username == u.Username {
			return nil, ErrDuplicate
		}
		if u.Email != "" && existing.Email == u.Email {
			return nil, ErrDuplicate
		}
	}

	now := time.Now().UTC()
	out := *u
	out.ID = uuid.New()
	out.CreatedAt = now
	out.UpdatedAt = now
	s.users[out.ID] = &out

	cp := out
	return &cp, nil
}

func (s *Memory) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (s *Memory) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *Memory) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email != "" && u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *Memory) CreateAPIKey(_ context.Context, k *models.APIKey) (*models.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.apiKeys {
		if existing.APIKey == k.APIKey || existing.KeyHash == k.KeyHash {
			return nil, ErrDuplicate
		}
	}

	out := *k
	out.ID = uuid.New()
	out.IsActive = true
	out.CreatedAt = time.Now().UTC()
	s.apiKeys[out.ID] = &out

	cp := out
	return &cp, nil
}

func (s *Memory) GetAPIKeyByHash(_ context.Context, hash string) (*models.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, k := range s.apiKeys {
		if k.KeyHash == hash {
			cp := *k
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *Memory) ListAPIKeysByUser(_ context.Context, userID uuid.UUID) ([]*models.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []*models.APIKey
	for _, k := range s.apiKeys {
		if k.UserID == userID {
			cp := *k
			keys = append(keys, &cp)
		}
	}
	return keys, nil
}

func (s *Memory) TouchAPIKey(_ context.Context, id uuid.UUID, usedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if k, ok := s.apiKeys[id]; ok {
		t := usedAt
		k.LastUsedAt = &t
	}
	return nil
}

func (s *Memory) DeactivateAPIKey(_ context.Context, id, userID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.apiKeys[id]
	if !ok || k.UserID != userID {
		return false, nil
	}
	k.IsActive = false
	return true, nil
}

func (s *Memory) DeleteAPIKey(_ context.Context, id, userID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.apiKeys[id]
	if !ok || k.UserID != userID {
		return false, nil
	}
	delete(s.apiKeys, id)
	return true, nil
}

func (s *Memory) DeactivateExpiredAPIKeys(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, k := range s.apiKeys {
		if k.IsActive && k.ExpiresAt != nil && k.ExpiresAt.Before(now) {
			k.IsActive = false
			n++
		}
	}
	return n, nil
}
