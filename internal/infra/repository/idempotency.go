package repository

import (
	"context"
	"time"

	"courtdesk/internal/infra"
	"courtdesk/internal/infra/pg"

	"github.com/google/uuid"
)

type IdempotencyRepository struct {
	db pg.DBTX
}

func NewIdempotencyRepository(db pg.DBTX) *IdempotencyRepository {
	return &IdempotencyRepository{db: db}
}

// TryInsert claims the key for this request. ON CONFLICT DO NOTHING
// keeps the existing row intact so a replayed request can read it back;
// the returned flag reports whether this call inserted the row.
func (r *IdempotencyRepository) TryInsert(ctx context.Context, db pg.DBTX, key, userID uuid.UUID, endpoint, requestHash string, expiresAt time.Time) (bool, error) {
	const query = `
		INSERT INTO idempotency_keys (key, user_id, endpoint, request_hash, status, expires_at)
		VALUES ($1, $2, $3, $4, 'processing', $5)
		ON CONFLICT (key) DO NOTHING`

	tag, err := db.Exec(ctx, query, key, userID, endpoint, requestHash, expiresAt)
	if err != nil {
		return false, infra.WrapRepoErr("failed to try insert idempotency key", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *IdempotencyRepository) MarkCompleted(ctx context.Context, db pg.DBTX, key, userID uuid.UUID, resultReservationID, resultGroupID *uuid.UUID) error {
	const query = `
		UPDATE idempotency_keys
		SET status = 'completed', result_reservation_id = $3, result_group_id = $4
		WHERE key = $1 AND user_id = $2`

	tag, err := db.Exec(ctx, query, key, userID, resultReservationID, resultGroupID)
	if err != nil {
		return infra.WrapRepoErr("failed to mark idempotency key completed", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.NewRepoErr("idempotency key not found", infra.KindNotFound)
	}
	return nil
}

func (r *IdempotencyRepository) DeleteExpired(ctx context.Context) (int64, error) {
	const query = `DELETE FROM idempotency_keys WHERE expires_at < now()`

	tag, err := r.db.Exec(ctx, query)
	if err != nil {
		return 0, infra.WrapRepoErr("failed to delete expired idempotency keys", err)
	}
	return tag.RowsAffected(), nil
}
