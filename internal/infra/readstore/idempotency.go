package readstore

import (
	"context"

	"courtdesk/internal/infra"
	"courtdesk/internal/infra/pg"
	"courtdesk/internal/usecase/shared"

	"github.com/google/uuid"
)

type IdempotencyReadStore struct {
	db pg.DBTX
}

func NewIdempotencyReadStore(db pg.DBTX) *IdempotencyReadStore {
	return &IdempotencyReadStore{db: db}
}

func (s *IdempotencyReadStore) FindByKey(ctx context.Context, key, userID uuid.UUID) (*shared.IdempotencyRecord, error) {
	const query = `
		SELECT key, user_id, status, request_hash, result_reservation_id, result_group_id, expires_at
		FROM idempotency_keys
		WHERE key = $1 AND user_id = $2 AND expires_at > now()`

	var rec shared.IdempotencyRecord
	err := s.db.QueryRow(ctx, query, key, userID).Scan(
		&rec.Key, &rec.UserID, &rec.Status, &rec.RequestHash,
		&rec.ResultReservationID, &rec.ResultGroupID, &rec.ExpiresAt,
	)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to find idempotency key", err)
	}
	return &rec, nil
}
