package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/authgate/authgate/internal/cache"
	"github.com/authgate/authgate/internal/config"
	"github.com/authgate/authgate/internal/database"
	"github.com/authgate/authgate/internal/queue"
	"github.com/authgate/authgate/internal/queue/workers"
	"github.com/authgate/authgate/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		slog.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	st := store.NewPostgres(db)

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: cfg.Worker.Concurrency,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	registry := queue.NewHandlersRegistry()

	sweeper := workers.NewSweeperWorker(st, cache.NewCache(rdb))
	registry.Register(queue.TypeAPIKeySweep, asynq.HandlerFunc(sweeper.ProcessTask))

	// Enqueue a sweep on a fixed interval; the redis lock in the worker
	// keeps overlapping deployments from double-sweeping.
	client := queue.NewClient(cfg.Redis)
	defer client.Close()
	go func() {
		ticker := time.NewTicker(cfg.Worker.SweepInterval)
		defer ticker.Stop()
		for range ticker.C {
			if err := client.EnqueueAPIKeySweep(queue.APIKeySweepPayload{RequestedAt: time.Now().Unix()}); err != nil {
				slog.Error("enqueue sweep failed", "error", err)
			}
		}
	}()

	slog.Info("starting worker", "concurrency", cfg.Worker.Concurrency, "sweep_interval", cfg.Worker.SweepInterval.String())
	if err := srv.Run(registry.Mux()); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}
