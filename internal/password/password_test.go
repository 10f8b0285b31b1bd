package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCompare(t *testing.T) {
	hash, err := Hash("s3cret-pw")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$2a$10$"))
	assert.NotEqual(t, "s3cret-pw", hash)

	ok, err := Compare("s3cret-pw", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Compare("wrong-pw", hash)
	require.NoError(t, err)
	assert.False(t, ok, "a mismatch is not an error")
}

func TestHashIsSalted(t *testing.T) {
	h1, err := Hash("same-password")
	require.NoError(t, err)
	h2, err := Hash("same-password")
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestCompareMalformedHash(t *testing.T) {
	_, err := Compare("anything", "not-a-bcrypt-hash")
	assert.ErrorIs(t, err, ErrComparison)
}

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		valid    bool
		err      string
	}{
		{"empty", "", false, "Username is required"},
		{"too short", "ab", false, "Username must be at least 3 characters"},
		{"minimum length", "abc", true, ""},
		{"maximum length", strings.Repeat("a", 30), true, ""},
		{"too long", strings.Repeat("a", 31), false, "Username must be less than 30 characters"},
		{"space", "a b", false, "Username can only contain letters, numbers, and underscores"},
		{"hyphen", "a-b-c", false, "Username can only contain letters, numbers, and underscores"},
		{"underscore and digits", "user_42", true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ValidateUsername(tt.username)
			assert.Equal(t, tt.valid, v.Valid)
			assert.Equal(t, tt.err, v.Err)
		})
	}
}

func TestValidateEmail(t *testing.T) {
	assert.True(t, ValidateEmail("user@example.com").Valid)
	assert.True(t, ValidateEmail("a.b+c@sub.example.org").Valid)

	for _, email := range []string{"plainaddress", "no@tld", "spaces in@example.com", "@example.com"} {
		v := ValidateEmail(email)
		assert.False(t, v.Valid, email)
		assert.Equal(t, "Invalid email format", v.Err)
	}

	v := ValidateEmail("")
	assert.False(t, v.Valid)
	assert.Equal(t, "Email is required", v.Err)
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		valid    bool
		err      string
	}{
		{"empty", "", false, "Password is required"},
		{"too short", "12345", false, "Password must be at least 6 characters"},
		{"minimum length", "123456", true, ""},
		{"maximum length", strings.Repeat("p", 100), true, ""},
		{"too long", strings.Repeat("p", 101), false, "Password must be less than 100 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ValidatePassword(tt.password)
			assert.Equal(t, tt.valid, v.Valid)
			assert.Equal(t, tt.err, v.Err)
		})
	}
}
