package readstore

import (
	"context"
	"errors"
	"time"

	"courtdesk/internal/domain/schedule"
	"courtdesk/internal/infra"
	"courtdesk/internal/infra/pg"
	"courtdesk/internal/usecase/queries"
	"courtdesk/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ReservationReadStore serves both the query side (hydrated views) and
// the command side (lean snapshots and the conflict ledger).
type ReservationReadStore struct {
	db pg.DBTX
}

func NewReservationReadStore(db pg.DBTX) *ReservationReadStore {
	return &ReservationReadStore{db: db}
}

func (s *ReservationReadStore) FindByID(ctx context.Context, complexID, id uuid.UUID) (*queries.BookingView, error) {
	const query = `
		SELECT r.id, r.court_id, c.name, r.client_id, cl.name,
		       r.starts_at, r.ends_at, r.status, r.is_recurring, r.group_id,
		       r.created_at, r.updated_at
		FROM reservations r
		JOIN courts c ON c.id = r.court_id
		JOIN clients cl ON cl.id = r.client_id
		WHERE r.id = $1 AND c.complex_id = $2`

	var v queries.BookingView
	err := s.db.QueryRow(ctx, query, id, complexID).Scan(
		&v.ID, &v.CourtID, &v.CourtName, &v.ClientID, &v.ClientName,
		&v.StartsAt, &v.EndsAt, &v.Status, &v.IsRecurring, &v.GroupID,
		&v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to find reservation", err)
	}
	return &v, nil
}

func (s *ReservationReadStore) FindByCourtBetween(ctx context.Context, complexID, courtID uuid.UUID, from, to time.Time) ([]*queries.BookingListItem, error) {
	const query = `
		SELECT r.id, r.court_id, cl.name, r.starts_at, r.ends_at, r.status
		FROM reservations r
		JOIN courts c ON c.id = r.court_id
		JOIN clients cl ON cl.id = r.client_id
		WHERE r.court_id = $1 AND c.complex_id = $2
		  AND r.starts_at < $4 AND r.ends_at > $3
		ORDER BY r.starts_at`

	rows, err := s.db.Query(ctx, query, courtID, complexID, from, to)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list reservations", err)
	}
	defer rows.Close()

	var items []*queries.BookingListItem
	for rows.Next() {
		var it queries.BookingListItem
		if err := rows.Scan(&it.ID, &it.CourtID, &it.ClientName, &it.StartsAt, &it.EndsAt, &it.Status); err != nil {
			return nil, infra.WrapRepoErr("failed to scan reservation row", err)
		}
		items = append(items, &it)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to read reservation rows", err)
	}
	return items, nil
}

func (s *ReservationReadStore) FindGroup(ctx context.Context, complexID, groupID uuid.UUID) (*queries.GroupView, error) {
	const query = `
		SELECT g.id, g.court_id, g.client_id, g.frequency, g.series_start, g.series_end,
		       (SELECT count(*) FROM reservations r
		        WHERE r.group_id = g.id AND r.status <> 'cancelled')
		FROM recurring_groups g
		JOIN courts c ON c.id = g.court_id
		WHERE g.id = $1 AND c.complex_id = $2`

	var v queries.GroupView
	err := s.db.QueryRow(ctx, query, groupID, complexID).Scan(
		&v.ID, &v.CourtID, &v.ClientID, &v.Frequency, &v.SeriesStart, &v.SeriesEnd, &v.MemberCount,
	)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to find recurring group", err)
	}
	return &v, nil
}

func (s *ReservationReadStore) CourtInComplex(ctx context.Context, complexID, courtID uuid.UUID) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM courts WHERE id = $1 AND complex_id = $2)`

	var ok bool
	if err := s.db.QueryRow(ctx, query, courtID, complexID).Scan(&ok); err != nil {
		return false, infra.WrapRepoErr("failed to check court scope", err)
	}
	return ok, nil
}

// FirstOverlapping is the conflict ledger probe: the earliest live
// reservation intersecting the half-open window, or nil when free. The
// predicate mirrors the reservations_no_overlap exclusion constraint.
func (s *ReservationReadStore) FirstOverlapping(ctx context.Context, courtID uuid.UUID, iv schedule.Interval, excludeID *uuid.UUID) (*queries.ConflictingSlot, error) {
	const query = `
		SELECT r.id, cl.name, r.starts_at, r.ends_at
		FROM reservations r
		JOIN clients cl ON cl.id = r.client_id
		WHERE r.court_id = $1
		  AND r.status <> 'cancelled'
		  AND r.starts_at < $3 AND r.ends_at > $2
		  AND ($4::uuid IS NULL OR r.id <> $4)
		ORDER BY r.starts_at
		LIMIT 1`

	var slot queries.ConflictingSlot
	err := s.db.QueryRow(ctx, query, courtID, iv.Start(), iv.End(), excludeID).Scan(
		&slot.ReservationID, &slot.ClientName, &slot.StartsAt, &slot.EndsAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, infra.WrapRepoErr("failed to probe for overlap", err)
	}
	return &slot, nil
}

func (s *ReservationReadStore) SnapshotByID(ctx context.Context, id uuid.UUID) (*shared.ReservationSnapshot, error) {
	const query = `
		SELECT id, court_id, client_id, group_id, status, is_recurring, starts_at, ends_at
		FROM reservations
		WHERE id = $1`

	var snap shared.ReservationSnapshot
	err := s.db.QueryRow(ctx, query, id).Scan(
		&snap.ID, &snap.CourtID, &snap.ClientID, &snap.GroupID,
		&snap.Status, &snap.IsRecurring, &snap.StartsAt, &snap.EndsAt,
	)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to snapshot reservation", err)
	}
	return &snap, nil
}

func (s *ReservationReadStore) GroupSnapshotByID(ctx context.Context, id uuid.UUID) (*shared.GroupSnapshot, error) {
	const query = `
		SELECT id, court_id, client_id, frequency, series_start, series_end
		FROM recurring_groups
		WHERE id = $1`

	var snap shared.GroupSnapshot
	err := s.db.QueryRow(ctx, query, id).Scan(
		&snap.ID, &snap.CourtID, &snap.ClientID, &snap.Frequency, &snap.SeriesStart, &snap.SeriesEnd,
	)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to snapshot recurring group", err)
	}
	return &snap, nil
}
