package schedule

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAlreadyCancelled = errors.New("reservation is already cancelled")
	ErrRetroactiveStart = errors.New("reservation cannot start in the past")
	ErrEditCancelled    = errors.New("cannot edit a cancelled reservation")
	ErrInvalidStatus    = errors.New("invalid reservation status")
)

// Reservation is one booked time window on a court. Cancellation is a
// status transition; reservations are never deleted.
type Reservation struct {
	id          uuid.UUID
	courtID     uuid.UUID
	clientID    uuid.UUID
	interval    Interval
	status      Status
	isRecurring bool
	groupID     *uuid.UUID
	createdAt   time.Time
	updatedAt   time.Time
}

// NewReservation validates that the interval does not start before now.
// Conflict checking against other reservations is the ledger's job, not
// the entity's.
func NewReservation(courtID, clientID uuid.UUID, iv Interval, now time.Time) (*Reservation, error) {
	if iv.Start().Before(now) {
		return nil, ErrRetroactiveStart
	}
	return &Reservation{
		id:       uuid.New(),
		courtID:  courtID,
		clientID: clientID,
		interval: iv,
		status:   StatusConfirmed,
	}, nil
}

// NewOccurrence builds one member reservation of a recurring group.
// Unlike NewReservation it allows any start instant: the retroactive
// check applies to the series' first occurrence only.
func NewOccurrence(courtID, clientID, groupID uuid.UUID, iv Interval) *Reservation {
	gid := groupID
	return &Reservation{
		id:          uuid.New(),
		courtID:     courtID,
		clientID:    clientID,
		interval:    iv,
		status:      StatusConfirmed,
		isRecurring: true,
		groupID:     &gid,
	}
}

func ReconstructReservation(
	id, courtID, clientID uuid.UUID,
	iv Interval,
	status Status,
	isRecurring bool,
	groupID *uuid.UUID,
	createdAt, updatedAt time.Time,
) *Reservation {
	return &Reservation{
		id:          id,
		courtID:     courtID,
		clientID:    clientID,
		interval:    iv,
		status:      status,
		isRecurring: isRecurring,
		groupID:     groupID,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

// Cancel transitions the reservation to cancelled. Cancelling twice is
// rejected, not silently accepted.
func (r *Reservation) Cancel() error {
	if r.status == StatusCancelled {
		return ErrAlreadyCancelled
	}
	r.status = StatusCancelled
	return nil
}

// Reschedule moves the reservation to a new interval. The caller must
// re-run the conflict check (excluding this reservation) before
// persisting the change.
func (r *Reservation) Reschedule(iv Interval) error {
	if r.status == StatusCancelled {
		return ErrEditCancelled
	}
	r.interval = iv
	return nil
}

func (r *Reservation) IsActive() bool {
	return r.status == StatusConfirmed
}

func (r *Reservation) IsCancelled() bool {
	return r.status == StatusCancelled
}

func (r *Reservation) HasStarted(now time.Time) bool {
	return !now.Before(r.interval.Start())
}

func (r *Reservation) ID() uuid.UUID        { return r.id }
func (r *Reservation) CourtID() uuid.UUID   { return r.courtID }
func (r *Reservation) ClientID() uuid.UUID  { return r.clientID }
func (r *Reservation) Interval() Interval   { return r.interval }
func (r *Reservation) Status() Status       { return r.status }
func (r *Reservation) IsRecurring() bool    { return r.isRecurring }
func (r *Reservation) GroupID() *uuid.UUID  { return r.groupID }
func (r *Reservation) CreatedAt() time.Time { return r.createdAt }
func (r *Reservation) UpdatedAt() time.Time { return r.updatedAt }
