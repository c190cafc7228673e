package repository

import (
	"context"
	"time"

	"courtdesk/internal/domain/schedule"
	"courtdesk/internal/infra"
	"courtdesk/internal/infra/pg"

	"github.com/google/uuid"
)

type ReservationRepository struct {
	db pg.DBTX
}

func NewReservationRepository(db pg.DBTX) *ReservationRepository {
	return &ReservationRepository{db: db}
}

func (r *ReservationRepository) Create(ctx context.Context, db pg.DBTX, res *schedule.Reservation) (uuid.UUID, error) {
	const query = `
		INSERT INTO reservations (id, court_id, client_id, group_id, status, is_recurring, starts_at, ends_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	var id uuid.UUID
	err := db.QueryRow(ctx, query,
		res.ID(),
		res.CourtID(),
		res.ClientID(),
		res.GroupID(),
		string(res.Status()),
		res.IsRecurring(),
		res.Interval().Start(),
		res.Interval().End(),
	).Scan(&id)
	if err != nil {
		return uuid.Nil, infra.WrapRepoErr("failed to create reservation", err)
	}
	return id, nil
}

func (r *ReservationRepository) UpdateStatus(ctx context.Context, db pg.DBTX, id uuid.UUID, status schedule.Status) error {
	const query = `
		UPDATE reservations
		SET status = $2, updated_at = now()
		WHERE id = $1`

	tag, err := db.Exec(ctx, query, id, string(status))
	if err != nil {
		return infra.WrapRepoErr("failed to update reservation status", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.NewRepoErr("reservation not found", infra.KindNotFound)
	}
	return nil
}

func (r *ReservationRepository) UpdateInterval(ctx context.Context, db pg.DBTX, id uuid.UUID, iv schedule.Interval) error {
	const query = `
		UPDATE reservations
		SET starts_at = $2, ends_at = $3, updated_at = now()
		WHERE id = $1`

	tag, err := db.Exec(ctx, query, id, iv.Start(), iv.End())
	if err != nil {
		return infra.WrapRepoErr("failed to update reservation interval", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.NewRepoErr("reservation not found", infra.KindNotFound)
	}
	return nil
}

func (r *ReservationRepository) CancelGroupFrom(ctx context.Context, db pg.DBTX, groupID uuid.UUID, from time.Time) (int64, error) {
	const query = `
		UPDATE reservations
		SET status = 'cancelled', updated_at = now()
		WHERE group_id = $1
		  AND status = 'confirmed'
		  AND starts_at >= $2`

	tag, err := db.Exec(ctx, query, groupID, from)
	if err != nil {
		return 0, infra.WrapRepoErr("failed to cancel group members", err)
	}
	return tag.RowsAffected(), nil
}
