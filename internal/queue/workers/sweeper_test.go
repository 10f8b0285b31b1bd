package workers

import (
	"context"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authgate/authgate/internal/models"
	"github.com/authgate/authgate/internal/queue"
	"github.com/authgate/authgate/internal/store"
)

func TestSweeperDeactivatesExpiredKeys(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	u, err := mem.CreateUser(ctx, &models.User{Username: "alice"})
	require.NoError(t, err)

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)
	expired, err := mem.CreateAPIKey(ctx, &models.APIKey{UserID: u.ID, APIKey: "k1", KeyHash: "h1", ExpiresAt: &past})
	require.NoError(t, err)
	live, err := mem.CreateAPIKey(ctx, &models.APIKey{UserID: u.ID, APIKey: "k2", KeyHash: "h2", ExpiresAt: &future})
	require.NoError(t, err)

	task, err := queue.NewAPIKeySweepTask()
	require.NoError(t, err)

	w := NewSweeperWorker(mem, nil)
	require.NoError(t, w.ProcessTask(ctx, task))

	k, err := mem.GetAPIKeyByHash(ctx, expired.KeyHash)
	require.NoError(t, err)
	assert.False(t, k.IsActive)

	k, err = mem.GetAPIKeyByHash(ctx, live.KeyHash)
	require.NoError(t, err)
	assert.True(t, k.IsActive)
}

func TestSweeperIdempotent(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	w := NewSweeperWorker(mem, nil)
	task := asynq.NewTask(queue.TypeAPIKeySweep, nil)

	require.NoError(t, w.ProcessTask(ctx, task))
	require.NoError(t, w.ProcessTask(ctx, task))
}
