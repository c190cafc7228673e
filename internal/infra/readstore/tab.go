package readstore

import (
	"context"

	"courtdesk/internal/infra"
	"courtdesk/internal/infra/pg"

	"github.com/google/uuid"
)

type TabReadStore struct {
	db pg.DBTX
}

func NewTabReadStore(db pg.DBTX) *TabReadStore {
	return &TabReadStore{db: db}
}

// HasOpen reports whether a point-of-sale tab still references the
// reservation; settlement must happen before cancellation.
func (s *TabReadStore) HasOpen(ctx context.Context, reservationID uuid.UUID) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM tabs
			WHERE reservation_id = $1 AND status = 'open'
		)`

	var exists bool
	if err := s.db.QueryRow(ctx, query, reservationID).Scan(&exists); err != nil {
		return false, infra.WrapRepoErr("failed to check open tab", err)
	}
	return exists, nil
}
