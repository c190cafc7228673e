package repository

import (
	"context"

	"courtdesk/internal/domain/schedule"
	"courtdesk/internal/infra"
	"courtdesk/internal/infra/pg"

	"github.com/google/uuid"
)

type RecurringGroupRepository struct {
	db pg.DBTX
}

func NewRecurringGroupRepository(db pg.DBTX) *RecurringGroupRepository {
	return &RecurringGroupRepository{db: db}
}

func (r *RecurringGroupRepository) Create(ctx context.Context, db pg.DBTX, group *schedule.RecurringGroup) (uuid.UUID, error) {
	const query = `
		INSERT INTO recurring_groups (id, court_id, client_id, frequency, series_start, series_end)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	var id uuid.UUID
	err := db.QueryRow(ctx, query,
		group.ID(),
		group.CourtID(),
		group.ClientID(),
		string(group.Frequency()),
		group.SeriesStart(),
		group.SeriesEnd(),
	).Scan(&id)
	if err != nil {
		return uuid.Nil, infra.WrapRepoErr("failed to create recurring group", err)
	}
	return id, nil
}
