package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"courtdesk/internal/handler/middleware"
	"courtdesk/internal/infra/db"
	"courtdesk/internal/infra/mq"
	"courtdesk/internal/pkg/config"
)

// The notifier drains the transactional outbox into RabbitMQ. It runs
// as its own process so a broker outage never slows the API down.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	middleware.NewLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, cleanup, err := db.Connect(ctx, cfg.DB)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	publisher, err := mq.NewPublisher(cfg.MQ.URL, cfg.MQ.Exchange)
	if err != nil {
		slog.Error("failed to connect to broker", "error", err)
		os.Exit(1)
	}
	defer func() { _ = publisher.Close() }()

	relay := mq.NewRelay(pool, publisher, cfg.MQ.PollInterval, int32(cfg.MQ.BatchSize))

	slog.Info("notifier started",
		"exchange", cfg.MQ.Exchange,
		"poll_interval", cfg.MQ.PollInterval,
		"batch_size", cfg.MQ.BatchSize)

	if err := relay.Run(ctx); err != nil && !isShutdown(ctx, err) {
		slog.Error("relay stopped", "error", err)
		os.Exit(1)
	}

	slog.Info("notifier stopped")
}

func isShutdown(ctx context.Context, err error) bool {
	return ctx.Err() != nil && err == ctx.Err()
}
