package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIKeyMasked(t *testing.T) {
	k := &APIKey{
		KeyName: "ci",
		APIKey:  "ak_live_0123456789abcdef0123456789abcdef",
	}
	m := k.Masked()
	assert.Equal(t, "ak_live_0123...cdef", m.APIKey)
	assert.Equal(t, "ci", m.KeyName)
}

func TestAPIKeyMaskedShortValue(t *testing.T) {
	k := &APIKey{APIKey: "ak_live_short"}
	assert.Empty(t, k.Masked().APIKey)
}

func TestAPIKeyHashNeverSerialized(t *testing.T) {
	k := &APIKey{APIKey: "ak_live_x", KeyHash: "super-secret-hash"}
	data, err := json.Marshal(k)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "super-secret-hash")
}

func TestUserPasswordHashNeverSerialized(t *testing.T) {
	u := &User{Username: "alice", PasswordHash: "$2a$10$hash"}
	data, err := json.Marshal(u)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "$2a$10$hash")
	assert.NotContains(t, string(data), "password_hash")
}
