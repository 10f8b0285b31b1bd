package workers

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/authgate/authgate/internal/cache"
	"github.com/authgate/authgate/internal/store"
)

const sweepLockKey = "authgate:apikey:sweep:lock"

// SweeperWorker deactivates API keys whose expiry has passed. Verification
// already fails closed on expiry, so the sweep is housekeeping: it keeps the
// stored is_active flag in line with reality for list views and reporting.
type SweeperWorker struct {
	store store.Store
	cache *cache.Cache
}

func NewSweeperWorker(st store.Store, c *cache.Cache) *SweeperWorker {
	return &SweeperWorker{store: st, cache: c}
}

func (w *SweeperWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	if w.cache != nil {
		ok, err := w.cache.AcquireLock(ctx, sweepLockKey, time.Minute)
		if err != nil {
			slog.Warn("sweep lock unavailable, proceeding unlocked", "error", err)
		} else if !ok {
			slog.Info("sweep already running elsewhere, skipping")
			return nil
		} else {
			defer w.cache.ReleaseLock(ctx, sweepLockKey)
		}
	}

	n, err := w.store.DeactivateExpiredAPIKeys(ctx, time.Now().UTC())
	if err != nil {
		return err
	}
	if n > 0 {
		slog.Info("deactivated expired api keys", "count", n)
	}
	return nil
}
