package mq

import (
	"context"
	"log/slog"
	"time"

	"courtdesk/internal/infra/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Relay drains the transactional outbox into RabbitMQ. Events are
// claimed and marked inside one transaction so a crashed relay leaves
// them pending for the next pass; delivery is therefore at-least-once.
type Relay struct {
	pool      *pgxpool.Pool
	outbox    *repository.OutboxRepository
	publisher *Publisher
	interval  time.Duration
	batchSize int32
}

func NewRelay(pool *pgxpool.Pool, publisher *Publisher, interval time.Duration, batchSize int32) *Relay {
	return &Relay{
		pool:      pool,
		outbox:    repository.NewOutboxRepository(pool),
		publisher: publisher,
		interval:  interval,
		batchSize: batchSize,
	}
}

func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.drainOnce(ctx); err != nil {
				slog.Error("outbox drain failed", "error", err.Error())
			}
		}
	}
}

func (r *Relay) drainOnce(ctx context.Context) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	events, err := r.outbox.ClaimBatch(ctx, tx, r.batchSize)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	published := make([]uuid.UUID, 0, len(events))
	for _, ev := range events {
		if err := r.publisher.Publish(ctx, ev.Topic, ev.Payload); err != nil {
			// Stop at the first broker failure; unpublished events stay
			// locked only until this transaction rolls back.
			slog.Warn("publish failed, leaving event pending",
				"event_id", ev.ID, "topic", ev.Topic, "error", err.Error())
			break
		}
		published = append(published, ev.ID)
	}
	if len(published) == 0 {
		return nil
	}

	if err := r.outbox.MarkPublished(ctx, tx, published); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	slog.Debug("outbox drained", "published", len(published), "claimed", len(events))
	return nil
}
