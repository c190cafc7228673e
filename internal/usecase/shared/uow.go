package shared

import (
	"context"
	"time"

	"courtdesk/internal/domain/schedule"
	"courtdesk/internal/infra/pg"

	"github.com/google/uuid"
)

type UnitOfWork interface {
	// Within: full transaction for write operations with retry logic.
	// The conflict check and the subsequent write of one occurrence must
	// share a single Within call so they commit or roll back together.
	Within(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// WithDB: single query operations using implicit transactions
	WithDB(ctx context.Context, fn func(ctx context.Context, db pg.DBTX) error) error
	// CommandReads: direct access to command reads for validation outside transactions
	CommandReads() CommandReads
}

type Tx interface {
	Reservations() ReservationRepository
	Groups() RecurringGroupRepository
	Idempotency() IdempotencyRepository
	Outbox() OutboxRepository
	Reads() CommandReads
	DB() pg.DBTX
}

// CommandReads is the read surface the commands need: existence/scope
// lookups, the conflict ledger, and the dependent-state guard. When
// obtained from a Tx it runs on the transaction's connection.
type CommandReads interface {
	CourtByID(ctx context.Context, id uuid.UUID) (*CourtSnapshot, error)
	ClientByID(ctx context.Context, id uuid.UUID) (*ClientSnapshot, error)
	ReservationByID(ctx context.Context, id uuid.UUID) (*ReservationSnapshot, error)
	GroupByID(ctx context.Context, id uuid.UUID) (*GroupSnapshot, error)
	// FirstOverlapping returns the earliest non-cancelled reservation on
	// the court overlapping iv, or nil if the window is free. excludeID
	// skips the reservation being edited.
	FirstOverlapping(ctx context.Context, courtID uuid.UUID, iv schedule.Interval, excludeID *uuid.UUID) (*OverlapSnapshot, error)
	// HasOpenTab reports whether an open point-of-sale tab references the
	// reservation, which blocks cancellation.
	HasOpenTab(ctx context.Context, reservationID uuid.UUID) (bool, error)
	IdempotencyByKey(ctx context.Context, key, userID uuid.UUID) (*IdempotencyRecord, error)
}

type ReservationRepository interface {
	Create(ctx context.Context, db pg.DBTX, res *schedule.Reservation) (uuid.UUID, error)
	UpdateStatus(ctx context.Context, db pg.DBTX, id uuid.UUID, status schedule.Status) error
	UpdateInterval(ctx context.Context, db pg.DBTX, id uuid.UUID, iv schedule.Interval) error
	// CancelGroupFrom cancels every confirmed member of the group whose
	// start is at or after from, returning the number transitioned.
	CancelGroupFrom(ctx context.Context, db pg.DBTX, groupID uuid.UUID, from time.Time) (int64, error)
}

type RecurringGroupRepository interface {
	Create(ctx context.Context, db pg.DBTX, group *schedule.RecurringGroup) (uuid.UUID, error)
}

type IdempotencyRepository interface {
	// TryInsert claims the key for this request. Returns false when the
	// key row already exists, leaving the existing row intact.
	TryInsert(ctx context.Context, db pg.DBTX, key, userID uuid.UUID, endpoint, requestHash string, expiresAt time.Time) (bool, error)
	MarkCompleted(ctx context.Context, db pg.DBTX, key, userID uuid.UUID, resultReservationID, resultGroupID *uuid.UUID) error
}

type OutboxRepository interface {
	Enqueue(ctx context.Context, db pg.DBTX, topic string, payload []byte) error
}
