package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/npspulse/backend/internal/cache"
	"github.com/npspulse/backend/internal/channel"
	"github.com/npspulse/backend/internal/config"
	"github.com/npspulse/backend/internal/database"
	"github.com/npspulse/backend/internal/metrics"
	"github.com/npspulse/backend/internal/models"
	"github.com/npspulse/backend/internal/queue"
	"github.com/npspulse/backend/internal/queue/workers"
	"github.com/npspulse/backend/internal/store"
	"github.com/npspulse/backend/internal/survey"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	metrics.InitWorkerMetrics()

	ctx := context.Background()

	db, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		slog.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Error("redis unavailable", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()

	entities := store.NewPostgres(db)
	surveySvc := survey.NewService(entities)
	queueClient := queue.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	defer queueClient.Close()

	adapters := map[string]channel.Adapter{
		models.ChannelEmail:    channel.NewEmailAdapter(cfg.Email, cfg.App.BaseURL),
		models.ChannelWhatsApp: channel.NewWhatsAppAdapter(cfg.WhatsApp, cfg.App.BaseURL),
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: cfg.Worker.Concurrency,
			Queues: map[string]int{
				queue.QueueCritical: 6,
				queue.QueueDefault:  3,
				queue.QueueLow:      1,
			},
		},
	)

	registry := queue.NewHandlersRegistry()

	// Register workers
	sendWorker := workers.NewSendWorker(entities, surveySvc, queueClient, adapters, cache.NewCache(rdb))
	registry.Register(queue.TypeSurveySend, asynq.HandlerFunc(sendWorker.ProcessTask))

	// Worker metrics endpoint
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		addr := ":9090"
		slog.Info("starting worker metrics server", "addr", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			slog.Error("metrics server error", "error", err)
		}
	}()

	slog.Info("starting worker", "concurrency", cfg.Worker.Concurrency)
	if err := srv.Run(registry.Mux()); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}
