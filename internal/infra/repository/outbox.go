package repository

import (
	"context"
	"time"

	"courtdesk/internal/infra"
	"courtdesk/internal/infra/pg"

	"github.com/google/uuid"
)

// OutboxEvent is a pending notification written in the same transaction
// as the state change it describes. The notifier relay drains them.
type OutboxEvent struct {
	ID        uuid.UUID
	Topic     string
	Payload   []byte
	CreatedAt time.Time
}

type OutboxRepository struct {
	db pg.DBTX
}

func NewOutboxRepository(db pg.DBTX) *OutboxRepository {
	return &OutboxRepository{db: db}
}

func (r *OutboxRepository) Enqueue(ctx context.Context, db pg.DBTX, topic string, payload []byte) error {
	const query = `
		INSERT INTO outbox_events (topic, payload)
		VALUES ($1, $2)`

	if _, err := db.Exec(ctx, query, topic, payload); err != nil {
		return infra.WrapRepoErr("failed to enqueue outbox event", err)
	}
	return nil
}

// ClaimBatch locks up to limit pending events for this relay instance.
// SKIP LOCKED lets concurrent relays drain disjoint batches.
func (r *OutboxRepository) ClaimBatch(ctx context.Context, db pg.DBTX, limit int32) ([]OutboxEvent, error) {
	const query = `
		SELECT id, topic, payload, created_at
		FROM outbox_events
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED`

	rows, err := db.Query(ctx, query, limit)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to claim outbox batch", err)
	}
	defer rows.Close()

	var events []OutboxEvent
	for rows.Next() {
		var ev OutboxEvent
		if err := rows.Scan(&ev.ID, &ev.Topic, &ev.Payload, &ev.CreatedAt); err != nil {
			return nil, infra.WrapRepoErr("failed to scan outbox event", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to read outbox batch", err)
	}
	return events, nil
}

func (r *OutboxRepository) MarkPublished(ctx context.Context, db pg.DBTX, ids []uuid.UUID) error {
	const query = `
		UPDATE outbox_events
		SET published_at = now()
		WHERE id = ANY($1)`

	if _, err := db.Exec(ctx, query, ids); err != nil {
		return infra.WrapRepoErr("failed to mark outbox events published", err)
	}
	return nil
}
