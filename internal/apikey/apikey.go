// Package apikey manages long-lived revocable API credentials, distinct from
// session tokens. Keys are verified by HMAC lookup, never by comparing
// plaintext.
package apikey

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/authgate/authgate/internal/models"
	"github.com/authgate/authgate/internal/store"
)

// Prefix marks live keys. It doubles as the disambiguator that lets an API
// key share the Authorization header with session tokens.
const Prefix = "ak_live_"

const keyDigestLen = 48

var (
	ErrNoKey        = errors.New("no API key provided")
	ErrKeyInvalid   = errors.New("invalid API key")
	ErrKeyInactive  = errors.New("API key is inactive")
	ErrKeyExpired   = errors.New("API key has expired")
	ErrUserNotFound = errors.New("user not found")
)

type Service struct {
	secret []byte
	store  store.Store
}

func NewService(secret string, st store.Store) *Service {
	return &Service{secret: []byte(secret), store: st}
}

// GenerateKeyString builds a new key from the user id, the current time, and
// 32 random bytes, HMAC'd under the server secret and truncated to 48 hex
// characters. No uniqueness check happens here; the storage constraint on
// the column enforces it, and the random input makes collisions negligible.
func (s *Service) GenerateKeyString(userID string) (string, error) {
	random := make([]byte, 32)
	if _, err := rand.Read(random); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	combined := fmt.Sprintf("%s-%d-%s", userID, time.Now().UnixMilli(), hex.EncodeToString(random))

	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(combined))
	digest := hex.EncodeToString(mac.Sum(nil))

	return Prefix + digest[:keyDigestLen], nil
}

// HashKey returns the HMAC-SHA256 hex digest of the full key string. This is
// the value stored for verification lookups; it is not reversible.
func (s *Service) HashKey(key string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

// Create issues and persists a new key for the user. The returned record
// carries the plaintext key; this is the only time callers should surface
// it in full.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, name string, expiresAt *time.Time) (*models.APIKey, error) {
	key, err := s.GenerateKeyString(userID.String())
	if err != nil {
		return nil, err
	}

	rec, err := s.store.CreateAPIKey(ctx, &models.APIKey{
		UserID:    userID,
		KeyName:   name,
		APIKey:    key,
		KeyHash:   s.HashKey(key),
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return nil, fmt.Errorf("store api key: %w", err)
	}
	return rec, nil
}

// Verify resolves a key to its owning user. Missing, unknown, inactive, and
// expired keys fail with distinct reasons; expired-but-still-active keys are
// rejected the same as invalid ones. On success last_used_at is updated as a
// side effect and the owner's public projection returned.
func (s *Service) Verify(ctx context.Context, key string) (*models.PublicUser, error) {
	if key == "" {
		return nil, ErrNoKey
	}

	full := key
	if !strings.HasPrefix(full, Prefix) {
		full = Prefix + full
	}

	rec, err := s.store.GetAPIKeyByHash(ctx, s.HashKey(full))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrKeyInvalid
		}
		return nil, fmt.Errorf("lookup api key: %w", err)
	}

	if !rec.IsActive {
		return nil, ErrKeyInactive
	}
	if rec.ExpiresAt != nil && rec.ExpiresAt.Before(time.Now()) {
		return nil, ErrKeyExpired
	}

	if err := s.store.TouchAPIKey(ctx, rec.ID, time.Now().UTC()); err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByID(ctx, rec.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("fetch key owner: %w", err)
	}
	return user.Public(), nil
}

// ExtractFromRequest pulls an API key from the request, checking in order
// the X-API-Key header, the Authorization header (only when the bearer value
// carries the live-key prefix), and the api-key header.
func ExtractFromRequest(r *http.Request) string {
	if k := r.Header.Get("X-API-Key"); k != "" {
		return k
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		bearer := strings.TrimPrefix(auth, "Bearer ")
		if strings.HasPrefix(bearer, Prefix) {
			return bearer
		}
	}
	if k := r.Header.Get("api-key"); k != "" {
		return k
	}
	return ""
}

// VerifyFromRequest composes extraction and verification.
func (s *Service) VerifyFromRequest(ctx context.Context, r *http.Request) (*models.PublicUser, error) {
	key := ExtractFromRequest(r)
	if key == "" {
		return nil, ErrNoKey
	}
	return s.Verify(ctx, key)
}

// ListForUser returns all keys owned by the user, newest first.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.APIKey, error) {
	return s.store.ListAPIKeysByUser(ctx, userID)
}

// Deactivate soft-revokes a key. It returns false both for unknown keys and
// keys owned by someone else.
func (s *Service) Deactivate(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	return s.store.DeactivateAPIKey(ctx, id, userID)
}

// Delete removes a key permanently, with the same owner semantics as
// Deactivate.
func (s *Service) Delete(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	return s.store.DeleteAPIKey(ctx, id, userID)
}
