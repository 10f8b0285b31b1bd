package apikey

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authgate/authgate/internal/models"
	"github.com/authgate/authgate/internal/store"
)

const testSecret = "apikey-test-secret"

func newTestService(t *testing.T) (*Service, *store.Memory, *models.User) {
	t.Helper()
	mem := store.NewMemory()
	u, err := mem.CreateUser(context.Background(), &models.User{
		Username:     "alice",
		PasswordHash: "irrelevant",
		Role:         "user",
	})
	require.NoError(t, err)
	return NewService(testSecret, mem), mem, u
}

func TestGenerateKeyStringFormat(t *testing.T) {
	svc, _, _ := newTestService(t)

	key, err := svc.GenerateKeyString("u-1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, Prefix))
	assert.Len(t, key, len(Prefix)+keyDigestLen)

	// Hex digest only after the prefix.
	for _, c := range key[len(Prefix):] {
		assert.Contains(t, "0123456789abcdef", string(c))
	}

	other, err := svc.GenerateKeyString("u-1")
	require.NoError(t, err)
	assert.NotEqual(t, key, other)
}

func TestCreateAndVerify(t *testing.T) {
	svc, _, u := newTestService(t)
	ctx := context.Background()

	rec, err := svc.Create(ctx, u.ID, "ci key", nil)
	require.NoError(t, err)
	assert.Equal(t, u.ID, rec.UserID)
	assert.Equal(t, "ci key", rec.KeyName)
	assert.True(t, rec.IsActive)
	assert.Equal(t, svc.HashKey(rec.APIKey), rec.KeyHash)

	owner, err := svc.Verify(ctx, rec.APIKey)
	require.NoError(t, err)
	assert.Equal(t, u.ID, owner.ID)
	assert.Equal(t, "alice", owner.Username)
}

func TestVerifyUpdatesLastUsed(t *testing.T) {
	svc, mem, u := newTestService(t)
	ctx := context.Background()

	rec, err := svc.Create(ctx, u.ID, "", nil)
	require.NoError(t, err)
	assert.Nil(t, rec.LastUsedAt)

	before := time.Now().Add(-time.Second)
	_, err = svc.Verify(ctx, rec.APIKey)
	require.NoError(t, err)

	stored, err := mem.GetAPIKeyByHash(ctx, rec.KeyHash)
	require.NoError(t, err)
	require.NotNil(t, stored.LastUsedAt)
	assert.True(t, stored.LastUsedAt.After(before))
}

func TestVerifyNormalizesPrefix(t *testing.T) {
	svc, _, u := newTestService(t)
	ctx := context.Background()

	rec, err := svc.Create(ctx, u.ID, "", nil)
	require.NoError(t, err)

	bare := strings.TrimPrefix(rec.APIKey, Prefix)
	owner, err := svc.Verify(ctx, bare)
	require.NoError(t, err)
	assert.Equal(t, u.ID, owner.ID)
}

func TestVerifyFailures(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Verify(ctx, "")
	assert.ErrorIs(t, err, ErrNoKey)

	_, err = svc.Verify(ctx, Prefix+strings.Repeat("0", keyDigestLen))
	assert.ErrorIs(t, err, ErrKeyInvalid)
}

func TestVerifyDeactivatedKey(t *testing.T) {
	svc, _, u := newTestService(t)
	ctx := context.Background()

	rec, err := svc.Create(ctx, u.ID, "", nil)
	require.NoError(t, err)

	ok, err := svc.Deactivate(ctx, rec.ID, u.ID)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = svc.Verify(ctx, rec.APIKey)
	assert.ErrorIs(t, err, ErrKeyInactive)
}

func TestVerifyDeletedKey(t *testing.T) {
	svc, _, u := newTestService(t)
	ctx := context.Background()

	rec, err := svc.Create(ctx, u.ID, "", nil)
	require.NoError(t, err)

	ok, err := svc.Delete(ctx, rec.ID, u.ID)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = svc.Verify(ctx, rec.APIKey)
	assert.ErrorIs(t, err, ErrKeyInvalid)
}

func TestVerifyExpiredKey(t *testing.T) {
	svc, _, u := newTestService(t)
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)
	rec, err := svc.Create(ctx, u.ID, "", &past)
	require.NoError(t, err)

	_, err = svc.Verify(ctx, rec.APIKey)
	assert.ErrorIs(t, err, ErrKeyExpired)
}

func TestMutationsAreOwnerScoped(t *testing.T) {
	svc, mem, u := newTestService(t)
	ctx := context.Background()

	stranger, err := mem.CreateUser(ctx, &models.User{
		Username:     "bob",
		PasswordHash: "irrelevant",
		Role:         "user",
	})
	require.NoError(t, err)

	rec, err := svc.Create(ctx, u.ID, "", nil)
	require.NoError(t, err)

	ok, err := svc.Deactivate(ctx, rec.ID, stranger.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.Delete(ctx, rec.ID, stranger.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	// The key still verifies for its real owner.
	owner, err := svc.Verify(ctx, rec.APIKey)
	require.NoError(t, err)
	assert.Equal(t, u.ID, owner.ID)
}

func TestListForUser(t *testing.T) {
	svc, _, u := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, u.ID, "first", nil)
	require.NoError(t, err)
	_, err = svc.Create(ctx, u.ID, "second", nil)
	require.NoError(t, err)

	keys, err := svc.ListForUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, keys, 2)
}

func TestExtractFromRequestOrdering(t *testing.T) {
	newReq := func() *http.Request {
		return httptest.NewRequest(http.MethodGet, "/", nil)
	}

	r := newReq()
	assert.Empty(t, ExtractFromRequest(r))

	r = newReq()
	r.Header.Set("api-key", "from-api-key-header")
	assert.Equal(t, "from-api-key-header", ExtractFromRequest(r))

	// Bearer only wins when the value carries the live-key prefix.
	r = newReq()
	r.Header.Set("Authorization", "Bearer some.jwt.token")
	r.Header.Set("api-key", "from-api-key-header")
	assert.Equal(t, "from-api-key-header", ExtractFromRequest(r))

	r = newReq()
	r.Header.Set("Authorization", "Bearer "+Prefix+"abc123")
	r.Header.Set("api-key", "from-api-key-header")
	assert.Equal(t, Prefix+"abc123", ExtractFromRequest(r))

	r = newReq()
	r.Header.Set("X-API-Key", "from-x-api-key")
	r.Header.Set("Authorization", "Bearer "+Prefix+"abc123")
	r.Header.Set("api-key", "from-api-key-header")
	assert.Equal(t, "from-x-api-key", ExtractFromRequest(r))
}
