package queries

import (
	"context"
	"time"

	"courtdesk/internal/domain/schedule"
	"courtdesk/internal/infra"
	"courtdesk/internal/pkg/errs"

	"github.com/google/uuid"
)

var (
	ErrBookingNotFound = errs.New("booking not found")
	ErrGroupNotFound   = errs.New("recurring group not found")
	ErrCourtNotFound   = errs.New("court not found")
)

// Read models (DTO for read side)
type BookingView struct {
	ID          uuid.UUID  `json:"id"`
	CourtID     uuid.UUID  `json:"court_id"`
	CourtName   string     `json:"court_name"`
	ClientID    uuid.UUID  `json:"client_id"`
	ClientName  string     `json:"client_name"`
	StartsAt    time.Time  `json:"starts_at"`
	EndsAt      time.Time  `json:"ends_at"`
	Status      string     `json:"status"`
	IsRecurring bool       `json:"is_recurring"`
	GroupID     *uuid.UUID `json:"group_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type BookingListItem struct {
	ID         uuid.UUID `json:"id"`
	CourtID    uuid.UUID `json:"court_id"`
	ClientName string    `json:"client_name"`
	StartsAt   time.Time `json:"starts_at"`
	EndsAt     time.Time `json:"ends_at"`
	Status     string    `json:"status"`
}

type GroupView struct {
	ID          uuid.UUID `json:"id"`
	CourtID     uuid.UUID `json:"court_id"`
	ClientID    uuid.UUID `json:"client_id"`
	Frequency   string    `json:"frequency"`
	SeriesStart time.Time `json:"series_start"`
	SeriesEnd   time.Time `json:"series_end"`
	MemberCount int       `json:"member_count"`
}

// ConflictView answers the conflict-probe endpoint: whether a window is
// taken and, if so, by whom.
type ConflictView struct {
	Conflict bool             `json:"conflict"`
	With     *ConflictingSlot `json:"with,omitempty"`
}

type ConflictingSlot struct {
	ReservationID uuid.UUID `json:"reservation_id"`
	ClientName    string    `json:"client_name"`
	StartsAt      time.Time `json:"starts_at"`
	EndsAt        time.Time `json:"ends_at"`
}

type BookingQueries interface {
	GetByID(ctx context.Context, complexID, id uuid.UUID) (*BookingView, error)
	ListByCourtDay(ctx context.Context, complexID, courtID uuid.UUID, day time.Time) ([]*BookingListItem, error)
	GetGroup(ctx context.Context, complexID, groupID uuid.UUID) (*GroupView, error)
	CheckConflict(ctx context.Context, complexID, courtID uuid.UUID, iv schedule.Interval, excludeID *uuid.UUID) (*ConflictView, error)
}

type BookingReadStore interface {
	FindByID(ctx context.Context, complexID, id uuid.UUID) (*BookingView, error)
	FindByCourtBetween(ctx context.Context, complexID, courtID uuid.UUID, from, to time.Time) ([]*BookingListItem, error)
	FindGroup(ctx context.Context, complexID, groupID uuid.UUID) (*GroupView, error)
	CourtInComplex(ctx context.Context, complexID, courtID uuid.UUID) (bool, error)
	FirstOverlapping(ctx context.Context, courtID uuid.UUID, iv schedule.Interval, excludeID *uuid.UUID) (*ConflictingSlot, error)
}

type bookingQueriesImpl struct {
	store BookingReadStore
}

func NewBookingQueries(store BookingReadStore) BookingQueries {
	return &bookingQueriesImpl{store: store}
}

func (q *bookingQueriesImpl) GetByID(ctx context.Context, complexID, id uuid.UUID) (*BookingView, error) {
	view, err := q.store.FindByID(ctx, complexID, id)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return view, nil
}

func (q *bookingQueriesImpl) ListByCourtDay(ctx context.Context, complexID, courtID uuid.UUID, day time.Time) ([]*BookingListItem, error) {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return q.store.FindByCourtBetween(ctx, complexID, courtID, from, from.AddDate(0, 0, 1))
}

func (q *bookingQueriesImpl) GetGroup(ctx context.Context, complexID, groupID uuid.UUID) (*GroupView, error) {
	view, err := q.store.FindGroup(ctx, complexID, groupID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}
	return view, nil
}

func (q *bookingQueriesImpl) CheckConflict(ctx context.Context, complexID, courtID uuid.UUID, iv schedule.Interval, excludeID *uuid.UUID) (*ConflictView, error) {
	// Courts of other complexes read as not found; the probe must not
	// reveal who holds their slots.
	inScope, err := q.store.CourtInComplex(ctx, complexID, courtID)
	if err != nil {
		return nil, err
	}
	if !inScope {
		return nil, ErrCourtNotFound
	}

	slot, err := q.store.FirstOverlapping(ctx, courtID, iv, excludeID)
	if err != nil {
		return nil, err
	}
	if slot == nil {
		return &ConflictView{Conflict: false}, nil
	}
	return &ConflictView{Conflict: true, With: slot}, nil
}
