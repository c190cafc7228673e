package readstore

import (
	"context"

	"courtdesk/internal/infra"
	"courtdesk/internal/infra/pg"
	"courtdesk/internal/usecase/shared"

	"github.com/google/uuid"
)

type ClientReadStore struct {
	db pg.DBTX
}

func NewClientReadStore(db pg.DBTX) *ClientReadStore {
	return &ClientReadStore{db: db}
}

func (s *ClientReadStore) FindByID(ctx context.Context, id uuid.UUID) (*shared.ClientSnapshot, error) {
	const query = `
		SELECT id, complex_id, name
		FROM clients
		WHERE id = $1`

	var snap shared.ClientSnapshot
	err := s.db.QueryRow(ctx, query, id).Scan(&snap.ID, &snap.ComplexID, &snap.Name)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to find client", err)
	}
	return &snap, nil
}
