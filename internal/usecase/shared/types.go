package shared

import (
	"time"

	"github.com/google/uuid"
)

// Scope identifies the caller: the staff user and the complex whose
// courts and clients the request may touch. Commands take it explicitly
// instead of reading ambient request state.
type Scope struct {
	UserID    uuid.UUID
	ComplexID uuid.UUID
}

type CourtSnapshot struct {
	ID        uuid.UUID
	ComplexID uuid.UUID
	Name      string
	Status    string
}

type ClientSnapshot struct {
	ID        uuid.UUID
	ComplexID uuid.UUID
	Name      string
}

type ReservationSnapshot struct {
	ID          uuid.UUID
	CourtID     uuid.UUID
	ClientID    uuid.UUID
	GroupID     *uuid.UUID
	Status      string
	IsRecurring bool
	StartsAt    time.Time
	EndsAt      time.Time
}

type GroupSnapshot struct {
	ID          uuid.UUID
	CourtID     uuid.UUID
	ClientID    uuid.UUID
	Frequency   string
	SeriesStart time.Time
	SeriesEnd   time.Time
}

// OverlapSnapshot identifies a colliding reservation with enough detail
// for the caller to render a precise conflict message.
type OverlapSnapshot struct {
	ID         uuid.UUID
	ClientName string
	StartsAt   time.Time
	EndsAt     time.Time
}

type IdempotencyRecord struct {
	Key                 uuid.UUID
	UserID              uuid.UUID
	Status              string
	RequestHash         string
	ResultReservationID *uuid.UUID
	ResultGroupID       *uuid.UUID
	ExpiresAt           time.Time
}
