package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, time.Hour, cfg.Worker.SweepInterval)
	assert.Equal(t, defaultJWTSecret, cfg.Auth.JWTSecret)

	// With no JWT_SECRET set, the encryption key falls back to its own
	// default rather than the JWT default.
	assert.Equal(t, defaultEncryptionKey, cfg.Auth.EncryptionKey)
	assert.Equal(t, defaultJWTSecret, cfg.Auth.APIKeySecret)
}

func TestLoadSecretInheritance(t *testing.T) {
	t.Setenv("JWT_SECRET", "configured-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "configured-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, "configured-secret", cfg.Auth.EncryptionKey)
	assert.Equal(t, "configured-secret", cfg.Auth.APIKeySecret)
}

func TestLoadExplicitSecretsWin(t *testing.T) {
	t.Setenv("JWT_SECRET", "jwt-secret")
	t.Setenv("ENCRYPTION_KEY", "enc-key")
	t.Setenv("API_KEY_SECRET", "ak-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "jwt-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, "enc-key", cfg.Auth.EncryptionKey)
	assert.Equal(t, "ak-secret", cfg.Auth.APIKeySecret)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9999")
	t.Setenv("TOKEN_TTL", "15m")
	t.Setenv("APIKEY_SWEEP_INTERVAL", "30m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 15*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, 30*time.Minute, cfg.Worker.SweepInterval)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-number")
	_, err := Load()
	assert.Error(t, err)
}
