package readstore

import (
	"context"

	"courtdesk/internal/infra"
	"courtdesk/internal/infra/pg"
	"courtdesk/internal/usecase/shared"

	"github.com/google/uuid"
)

type CourtReadStore struct {
	db pg.DBTX
}

func NewCourtReadStore(db pg.DBTX) *CourtReadStore {
	return &CourtReadStore{db: db}
}

func (s *CourtReadStore) FindByID(ctx context.Context, id uuid.UUID) (*shared.CourtSnapshot, error) {
	const query = `
		SELECT id, complex_id, name, status
		FROM courts
		WHERE id = $1`

	var snap shared.CourtSnapshot
	err := s.db.QueryRow(ctx, query, id).Scan(&snap.ID, &snap.ComplexID, &snap.Name, &snap.Status)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to find court", err)
	}
	return &snap, nil
}
