// Package fakeuow is an in-memory stand-in for the Postgres unit of
// work. Within serializes on a mutex and Create enforces the same
// no-overlap rule as the reservations_no_overlap constraint, so
// orchestrator behavior under contention can be tested without a
// database.
package fakeuow

import (
	"context"
	"sort"
	"sync"
	"time"

	"courtdesk/internal/domain/schedule"
	"courtdesk/internal/infra"
	"courtdesk/internal/infra/pg"
	"courtdesk/internal/usecase/queries"
	"courtdesk/internal/usecase/shared"

	"github.com/google/uuid"
)

type ReservationRow struct {
	ID          uuid.UUID
	CourtID     uuid.UUID
	ClientID    uuid.UUID
	GroupID     *uuid.UUID
	Status      string
	IsRecurring bool
	StartsAt    time.Time
	EndsAt      time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type OutboxRow struct {
	Topic   string
	Payload []byte
}

type Store struct {
	mu sync.Mutex

	Courts       map[uuid.UUID]shared.CourtSnapshot
	Clients      map[uuid.UUID]shared.ClientSnapshot
	Reservations map[uuid.UUID]*ReservationRow
	Groups       map[uuid.UUID]shared.GroupSnapshot
	Idempotency  map[uuid.UUID]*shared.IdempotencyRecord
	OpenTabs     map[uuid.UUID]bool
	Outbox       []OutboxRow

	// FailCreates makes the next N reservation inserts fail, for
	// exercising the skip-on-store-failure policy. FailGroupCreates does
	// the same for recurring group rows.
	FailCreates      int
	FailGroupCreates int
}

func NewStore() *Store {
	return &Store{
		Courts:       make(map[uuid.UUID]shared.CourtSnapshot),
		Clients:      make(map[uuid.UUID]shared.ClientSnapshot),
		Reservations: make(map[uuid.UUID]*ReservationRow),
		Groups:       make(map[uuid.UUID]shared.GroupSnapshot),
		Idempotency:  make(map[uuid.UUID]*shared.IdempotencyRecord),
		OpenTabs:     make(map[uuid.UUID]bool),
	}
}

func (s *Store) AddCourt(complexID uuid.UUID, name, status string) uuid.UUID {
	id := uuid.New()
	s.Courts[id] = shared.CourtSnapshot{ID: id, ComplexID: complexID, Name: name, Status: status}
	return id
}

func (s *Store) AddClient(complexID uuid.UUID, name string) uuid.UUID {
	id := uuid.New()
	s.Clients[id] = shared.ClientSnapshot{ID: id, ComplexID: complexID, Name: name}
	return id
}

// SeedReservation inserts a confirmed booking directly, bypassing the
// orchestrator.
func (s *Store) SeedReservation(courtID, clientID uuid.UUID, startsAt, endsAt time.Time) uuid.UUID {
	id := uuid.New()
	s.Reservations[id] = &ReservationRow{
		ID: id, CourtID: courtID, ClientID: clientID,
		Status: "confirmed", StartsAt: startsAt, EndsAt: endsAt,
	}
	return id
}

func (s *Store) ConfirmedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, row := range s.Reservations {
		if row.Status == "confirmed" {
			n++
		}
	}
	return n
}

func (s *Store) Topics() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.Outbox))
	for i, ev := range s.Outbox {
		out[i] = ev.Topic
	}
	return out
}

// UnitOfWork

type UnitOfWork struct {
	store *Store
}

func New(store *Store) *UnitOfWork {
	return &UnitOfWork{store: store}
}

func (u *UnitOfWork) Within(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	return fn(ctx, &fakeTx{store: u.store})
}

func (u *UnitOfWork) WithDB(ctx context.Context, fn func(ctx context.Context, db pg.DBTX) error) error {
	return fn(ctx, nil)
}

func (u *UnitOfWork) CommandReads() shared.CommandReads {
	return &fakeReads{store: u.store, locked: false}
}

type fakeTx struct {
	store *Store
}

func (t *fakeTx) Reservations() shared.ReservationRepository { return &fakeReservations{t.store} }
func (t *fakeTx) Groups() shared.RecurringGroupRepository    { return &fakeGroups{t.store} }
func (t *fakeTx) Idempotency() shared.IdempotencyRepository  { return &fakeIdempotency{t.store} }
func (t *fakeTx) Outbox() shared.OutboxRepository            { return &fakeOutbox{t.store} }
func (t *fakeTx) Reads() shared.CommandReads                 { return &fakeReads{store: t.store, locked: true} }
func (t *fakeTx) DB() pg.DBTX                                { return nil }

// Repositories

type fakeReservations struct{ store *Store }

func (r *fakeReservations) Create(_ context.Context, _ pg.DBTX, res *schedule.Reservation) (uuid.UUID, error) {
	s := r.store
	if s.FailCreates > 0 {
		s.FailCreates--
		return uuid.Nil, infra.NewRepoErr("simulated store failure", infra.KindDBFailure)
	}
	iv := res.Interval()
	for _, row := range s.Reservations {
		if row.CourtID == res.CourtID() && row.Status != "cancelled" &&
			row.StartsAt.Before(iv.End()) && iv.Start().Before(row.EndsAt) {
			return uuid.Nil, infra.NewRepoErr("no-overlap constraint violated", infra.KindConflict)
		}
	}
	s.Reservations[res.ID()] = &ReservationRow{
		ID:          res.ID(),
		CourtID:     res.CourtID(),
		ClientID:    res.ClientID(),
		GroupID:     res.GroupID(),
		Status:      string(res.Status()),
		IsRecurring: res.IsRecurring(),
		StartsAt:    iv.Start(),
		EndsAt:      iv.End(),
	}
	return res.ID(), nil
}

func (r *fakeReservations) UpdateStatus(_ context.Context, _ pg.DBTX, id uuid.UUID, status schedule.Status) error {
	row, ok := r.store.Reservations[id]
	if !ok {
		return infra.NewRepoErr("reservation not found", infra.KindNotFound)
	}
	row.Status = string(status)
	return nil
}

func (r *fakeReservations) UpdateInterval(_ context.Context, _ pg.DBTX, id uuid.UUID, iv schedule.Interval) error {
	row, ok := r.store.Reservations[id]
	if !ok {
		return infra.NewRepoErr("reservation not found", infra.KindNotFound)
	}
	for _, other := range r.store.Reservations {
		if other.ID != id && other.CourtID == row.CourtID && other.Status != "cancelled" &&
			other.StartsAt.Before(iv.End()) && iv.Start().Before(other.EndsAt) {
			return infra.NewRepoErr("no-overlap constraint violated", infra.KindConflict)
		}
	}
	row.StartsAt, row.EndsAt = iv.Start(), iv.End()
	return nil
}

func (r *fakeReservations) CancelGroupFrom(_ context.Context, _ pg.DBTX, groupID uuid.UUID, from time.Time) (int64, error) {
	var count int64
	for _, row := range r.store.Reservations {
		if row.GroupID != nil && *row.GroupID == groupID &&
			row.Status == "confirmed" && !row.StartsAt.Before(from) {
			row.Status = "cancelled"
			count++
		}
	}
	return count, nil
}

type fakeGroups struct{ store *Store }

func (g *fakeGroups) Create(_ context.Context, _ pg.DBTX, group *schedule.RecurringGroup) (uuid.UUID, error) {
	if g.store.FailGroupCreates > 0 {
		g.store.FailGroupCreates--
		return uuid.Nil, infra.NewRepoErr("simulated store failure", infra.KindDBFailure)
	}
	g.store.Groups[group.ID()] = shared.GroupSnapshot{
		ID:          group.ID(),
		CourtID:     group.CourtID(),
		ClientID:    group.ClientID(),
		Frequency:   string(group.Frequency()),
		SeriesStart: group.SeriesStart(),
		SeriesEnd:   group.SeriesEnd(),
	}
	return group.ID(), nil
}

type fakeIdempotency struct{ store *Store }

func (i *fakeIdempotency) TryInsert(_ context.Context, _ pg.DBTX, key, userID uuid.UUID, endpoint, requestHash string, expiresAt time.Time) (bool, error) {
	if _, exists := i.store.Idempotency[key]; exists {
		return false, nil
	}
	i.store.Idempotency[key] = &shared.IdempotencyRecord{
		Key: key, UserID: userID, Status: "processing",
		RequestHash: requestHash, ExpiresAt: expiresAt,
	}
	return true, nil
}

func (i *fakeIdempotency) MarkCompleted(_ context.Context, _ pg.DBTX, key, userID uuid.UUID, resultReservationID, resultGroupID *uuid.UUID) error {
	rec, ok := i.store.Idempotency[key]
	if !ok {
		return infra.NewRepoErr("idempotency key not found", infra.KindNotFound)
	}
	rec.Status = "completed"
	rec.ResultReservationID = resultReservationID
	rec.ResultGroupID = resultGroupID
	return nil
}

type fakeOutbox struct{ store *Store }

func (o *fakeOutbox) Enqueue(_ context.Context, _ pg.DBTX, topic string, payload []byte) error {
	o.store.Outbox = append(o.store.Outbox, OutboxRow{Topic: topic, Payload: payload})
	return nil
}

// CommandReads; locked reports whether the caller already holds the
// store mutex (readers obtained from a Tx).

type fakeReads struct {
	store  *Store
	locked bool
}

func (r *fakeReads) lock() func() {
	if r.locked {
		return func() {}
	}
	r.store.mu.Lock()
	return r.store.mu.Unlock
}

func (r *fakeReads) CourtByID(_ context.Context, id uuid.UUID) (*shared.CourtSnapshot, error) {
	defer r.lock()()
	snap, ok := r.store.Courts[id]
	if !ok {
		return nil, infra.NewRepoErr("court not found", infra.KindNotFound)
	}
	return &snap, nil
}

func (r *fakeReads) ClientByID(_ context.Context, id uuid.UUID) (*shared.ClientSnapshot, error) {
	defer r.lock()()
	snap, ok := r.store.Clients[id]
	if !ok {
		return nil, infra.NewRepoErr("client not found", infra.KindNotFound)
	}
	return &snap, nil
}

func (r *fakeReads) ReservationByID(_ context.Context, id uuid.UUID) (*shared.ReservationSnapshot, error) {
	defer r.lock()()
	row, ok := r.store.Reservations[id]
	if !ok {
		return nil, infra.NewRepoErr("reservation not found", infra.KindNotFound)
	}
	return &shared.ReservationSnapshot{
		ID: row.ID, CourtID: row.CourtID, ClientID: row.ClientID,
		GroupID: row.GroupID, Status: row.Status, IsRecurring: row.IsRecurring,
		StartsAt: row.StartsAt, EndsAt: row.EndsAt,
	}, nil
}

func (r *fakeReads) GroupByID(_ context.Context, id uuid.UUID) (*shared.GroupSnapshot, error) {
	defer r.lock()()
	snap, ok := r.store.Groups[id]
	if !ok {
		return nil, infra.NewRepoErr("group not found", infra.KindNotFound)
	}
	return &snap, nil
}

func (r *fakeReads) FirstOverlapping(_ context.Context, courtID uuid.UUID, iv schedule.Interval, excludeID *uuid.UUID) (*shared.OverlapSnapshot, error) {
	defer r.lock()()
	row := r.store.firstOverlapping(courtID, iv.Start(), iv.End(), excludeID)
	if row == nil {
		return nil, nil
	}
	return &shared.OverlapSnapshot{
		ID:         row.ID,
		ClientName: r.store.clientName(row.ClientID),
		StartsAt:   row.StartsAt,
		EndsAt:     row.EndsAt,
	}, nil
}

func (r *fakeReads) HasOpenTab(_ context.Context, reservationID uuid.UUID) (bool, error) {
	defer r.lock()()
	return r.store.OpenTabs[reservationID], nil
}

func (r *fakeReads) IdempotencyByKey(_ context.Context, key, userID uuid.UUID) (*shared.IdempotencyRecord, error) {
	defer r.lock()()
	rec, ok := r.store.Idempotency[key]
	if !ok || rec.UserID != userID {
		return nil, infra.NewRepoErr("idempotency key not found", infra.KindNotFound)
	}
	cp := *rec
	return &cp, nil
}

func (s *Store) firstOverlapping(courtID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) *ReservationRow {
	var candidates []*ReservationRow
	for _, row := range s.Reservations {
		if excludeID != nil && row.ID == *excludeID {
			continue
		}
		if row.CourtID == courtID && row.Status != "cancelled" &&
			row.StartsAt.Before(end) && start.Before(row.EndsAt) {
			candidates = append(candidates, row)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].StartsAt.Before(candidates[j].StartsAt)
	})
	return candidates[0]
}

func (s *Store) clientName(id uuid.UUID) string {
	if c, ok := s.Clients[id]; ok {
		return c.Name
	}
	return ""
}

// ReadStore adapts the fake store to the query side so BookingQueries
// can run against it in tests.

type ReadStore struct {
	store *Store
}

func NewReadStore(store *Store) *ReadStore {
	return &ReadStore{store: store}
}

func (r *ReadStore) FindByID(_ context.Context, complexID, id uuid.UUID) (*queries.BookingView, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.Reservations[id]
	if !ok {
		return nil, infra.NewRepoErr("reservation not found", infra.KindNotFound)
	}
	court, ok := s.Courts[row.CourtID]
	if !ok || court.ComplexID != complexID {
		return nil, infra.NewRepoErr("reservation not found", infra.KindNotFound)
	}
	return &queries.BookingView{
		ID: row.ID, CourtID: row.CourtID, CourtName: court.Name,
		ClientID: row.ClientID, ClientName: s.clientName(row.ClientID),
		StartsAt: row.StartsAt, EndsAt: row.EndsAt,
		Status: row.Status, IsRecurring: row.IsRecurring, GroupID: row.GroupID,
		CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt,
	}, nil
}

func (r *ReadStore) FindByCourtBetween(_ context.Context, complexID, courtID uuid.UUID, from, to time.Time) ([]*queries.BookingListItem, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []*queries.BookingListItem
	for _, row := range s.Reservations {
		if row.CourtID != courtID || !row.StartsAt.Before(to) || !from.Before(row.EndsAt) {
			continue
		}
		items = append(items, &queries.BookingListItem{
			ID: row.ID, CourtID: row.CourtID, ClientName: s.clientName(row.ClientID),
			StartsAt: row.StartsAt, EndsAt: row.EndsAt, Status: row.Status,
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].StartsAt.Before(items[j].StartsAt) })
	return items, nil
}

func (r *ReadStore) FindGroup(_ context.Context, complexID, groupID uuid.UUID) (*queries.GroupView, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.Groups[groupID]
	if !ok {
		return nil, infra.NewRepoErr("group not found", infra.KindNotFound)
	}
	members := 0
	for _, row := range s.Reservations {
		if row.GroupID != nil && *row.GroupID == groupID && row.Status != "cancelled" {
			members++
		}
	}
	return &queries.GroupView{
		ID: snap.ID, CourtID: snap.CourtID, ClientID: snap.ClientID,
		Frequency: snap.Frequency, SeriesStart: snap.SeriesStart, SeriesEnd: snap.SeriesEnd,
		MemberCount: members,
	}, nil
}

func (r *ReadStore) CourtInComplex(_ context.Context, complexID, courtID uuid.UUID) (bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	court, ok := s.Courts[courtID]
	return ok && court.ComplexID == complexID, nil
}

func (r *ReadStore) FirstOverlapping(_ context.Context, courtID uuid.UUID, iv schedule.Interval, excludeID *uuid.UUID) (*queries.ConflictingSlot, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.firstOverlapping(courtID, iv.Start(), iv.End(), excludeID)
	if row == nil {
		return nil, nil
	}
	return &queries.ConflictingSlot{
		ReservationID: row.ID,
		ClientName:    s.clientName(row.ClientID),
		StartsAt:      row.StartsAt,
		EndsAt:        row.EndsAt,
	}, nil
}
