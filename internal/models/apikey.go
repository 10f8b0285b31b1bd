package models

import (
	"time"

	"github.com/google/uuid"
)

// APIKey is a long-lived revocable credential tied to one user. The plaintext
// key is retained alongside its HMAC so list responses can show a masked
// preview; see the design notes for the trade-off this carries.
type APIKey struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	UserID     uuid.UUID  `json:"user_id" db:"user_id"`
	KeyName    string     `json:"key_name,omitempty" db:"key_name"`
	APIKey     string     `json:"api_key" db:"api_key"`
	KeyHash    string     `json:"-" db:"key_hash"`
	IsActive   bool       `json:"is_active" db:"is_active"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty" db:"last_used_at"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty" db:"expires_at"`
}

// MaskedAPIKey is the list-view shape: the key value is reduced to its first
// 12 and last 4 characters.
type MaskedAPIKey struct {
	ID         uuid.UUID  `json:"id"`
	KeyName    string     `json:"key_name,omitempty"`
	APIKey     string     `json:"api_key"`
	IsActive   bool       `json:"is_active"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

func (k *APIKey) Masked() *MaskedAPIKey {
	masked := ""
	if len(k.APIKey) >= 16 {
		masked = k.APIKey[:12] + "..." + k.APIKey[len(k.APIKey)-4:]
	}
	return &MaskedAPIKey{
		ID:         k.ID,
		KeyName:    k.KeyName,
		APIKey:     masked,
		IsActive:   k.IsActive,
		LastUsedAt: k.LastUsedAt,
		CreatedAt:  k.CreatedAt,
		ExpiresAt:  k.ExpiresAt,
	}
}
