package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"courtdesk/internal/domain/court"
	"courtdesk/internal/domain/schedule"
	"courtdesk/internal/infra"
	"courtdesk/internal/pkg/clock"
	"courtdesk/internal/pkg/errs"
	"courtdesk/internal/usecase/queries"
	"courtdesk/internal/usecase/shared"

	"github.com/google/uuid"
)

var (
	ErrCourtNotFound           = errs.New("court not found")
	ErrClientNotFound          = errs.New("client not found")
	ErrCourtUnavailable        = errs.New("court not open for booking")
	ErrInvalidDuration         = errs.New("invalid booking duration")
	ErrRetroactiveStart        = errs.New("booking cannot start in the past")
	ErrInvalidRecurrence       = errs.New("invalid recurrence")
	ErrBookingConflict         = errs.New("booking conflict")
	ErrNoAvailability          = errs.New("no bookable occurrence in series")
	ErrBookingNotFound         = errs.New("booking not found")
	ErrGroupNotFound           = errs.New("recurring group not found")
	ErrAlreadyCancelled        = errs.New("booking already cancelled")
	ErrBookingCancelled        = errs.New("booking is cancelled")
	ErrBlockedByOpenTab        = errs.New("booking has an open tab")
	ErrDuplicateRequest        = errs.New("duplicate booking request")
	ErrIdempotencyInProgress   = errs.New("booking request in progress")
	ErrIdempotencyCheckFailed  = errs.New("idempotency check failed")
	ErrDatabaseOperationFailed = errs.New("database operation failed")
)

// ConflictError carries the identity of the reservation that owns the
// contested window. Retrieve it with errors.As; errors.Is against
// ErrBookingConflict also matches.
type ConflictError struct {
	With shared.OverlapSnapshot
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("slot taken by %s from %s to %s",
		e.With.ClientName,
		e.With.StartsAt.Format(time.RFC3339),
		e.With.EndsAt.Format(time.RFC3339))
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrBookingConflict
}

type CreateBookingRequest struct {
	CourtID    uuid.UUID
	ClientID   uuid.UUID
	StartsAt   time.Time
	Duration   time.Duration
	Recurrence *RecurrenceSpec
}

type RecurrenceSpec struct {
	Frequency     schedule.Frequency
	SeriesEnd     time.Time
	AnchorWeekday *time.Weekday
}

type UpdateBookingRequest struct {
	StartsAt *time.Time
	Duration *time.Duration
}

type CreateBookingResult struct {
	// Booking is set on the single-occurrence path, Series on the
	// recurring path; exactly one of the two is non-nil.
	Booking    *queries.BookingView
	Series     *SeriesResult
	IsReplayed bool
}

type SeriesResult struct {
	GroupID       uuid.UUID
	CreatedCount  int
	SkippedCount  int
	SkippedStarts []time.Time
}

type BookingCommands interface {
	CreateBooking(ctx context.Context, scope shared.Scope, req CreateBookingRequest, idempotencyKey uuid.UUID) (*CreateBookingResult, error)
	UpdateBooking(ctx context.Context, scope shared.Scope, id uuid.UUID, req UpdateBookingRequest) (*queries.BookingView, error)
	CancelBooking(ctx context.Context, scope shared.Scope, id uuid.UUID) error
	CancelRecurringGroup(ctx context.Context, scope shared.Scope, groupID uuid.UUID) (int64, error)
}

type bookingCommandsImpl struct {
	uow     shared.UnitOfWork
	queries queries.BookingQueries
	clock   clock.Clock
}

func NewBookingCommands(uow shared.UnitOfWork, q queries.BookingQueries, clk clock.Clock) BookingCommands {
	return &bookingCommandsImpl{uow: uow, queries: q, clock: clk}
}

func (c *bookingCommandsImpl) CreateBooking(
	ctx context.Context,
	scope shared.Scope,
	req CreateBookingRequest,
	idempotencyKey uuid.UUID,
) (*CreateBookingResult, error) {
	requestHash := calculateRequestHash(req)

	replayed, err := c.handleIdempotency(ctx, idempotencyKey, scope, requestHash)
	if err != nil {
		return nil, err
	}
	if replayed != nil {
		replayed.IsReplayed = true
		return replayed, nil
	}

	iv, err := c.validateWindow(req)
	if err != nil {
		return nil, err
	}

	courtSnap, clientSnap, err := c.resolveScope(ctx, scope, req.CourtID, req.ClientID)
	if err != nil {
		return nil, err
	}

	if req.Recurrence != nil {
		return c.createSeries(ctx, scope, req, iv, courtSnap, clientSnap, idempotencyKey)
	}
	return c.createSingle(ctx, scope, req, iv, idempotencyKey)
}

// validateWindow performs the cheap local checks that must reject a
// request before any ledger access.
func (c *bookingCommandsImpl) validateWindow(req CreateBookingRequest) (schedule.Interval, error) {
	iv, err := schedule.NewInterval(req.StartsAt, req.Duration)
	if err != nil {
		return schedule.Interval{}, errs.Wrap(ErrInvalidDuration, err.Error())
	}
	if iv.Start().Before(c.clock.Now()) {
		return schedule.Interval{}, ErrRetroactiveStart
	}
	if req.Recurrence != nil {
		rec := schedule.Recurrence{
			Frequency:     req.Recurrence.Frequency,
			SeriesEnd:     req.Recurrence.SeriesEnd,
			AnchorWeekday: req.Recurrence.AnchorWeekday,
		}
		if err := rec.Validate(iv); err != nil {
			return schedule.Interval{}, errs.Wrap(ErrInvalidRecurrence, err.Error())
		}
	}
	return iv, nil
}

// resolveScope confirms court and client exist and belong to the
// caller's complex. Out-of-scope records read as not found.
func (c *bookingCommandsImpl) resolveScope(
	ctx context.Context,
	scope shared.Scope,
	courtID, clientID uuid.UUID,
) (*shared.CourtSnapshot, *shared.ClientSnapshot, error) {
	reads := c.uow.CommandReads()

	courtSnap, err := reads.CourtByID(ctx, courtID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, nil, ErrCourtNotFound
		}
		return nil, nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	crt, err := court.NewCourt(courtSnap.ID, courtSnap.ComplexID, courtSnap.Name, court.Status(courtSnap.Status))
	if err != nil {
		return nil, nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	if crt.ComplexID() != scope.ComplexID {
		return nil, nil, ErrCourtNotFound
	}
	if err := crt.Bookable(); err != nil {
		return nil, nil, errs.Wrap(ErrCourtUnavailable, err.Error())
	}

	clientSnap, err := reads.ClientByID(ctx, clientID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, nil, ErrClientNotFound
		}
		return nil, nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	if clientSnap.ComplexID != scope.ComplexID {
		return nil, nil, ErrClientNotFound
	}

	return courtSnap, clientSnap, nil
}

func (c *bookingCommandsImpl) createSingle(
	ctx context.Context,
	scope shared.Scope,
	req CreateBookingRequest,
	iv schedule.Interval,
	idempotencyKey uuid.UUID,
) (*CreateBookingResult, error) {
	var reservationID uuid.UUID

	err := c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		overlap, err := tx.Reads().FirstOverlapping(ctx, req.CourtID, iv, nil)
		if err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		if overlap != nil {
			return &ConflictError{With: *overlap}
		}

		res, err := schedule.NewReservation(req.CourtID, req.ClientID, iv, c.clock.Now())
		if err != nil {
			return err
		}

		id, err := tx.Reservations().Create(ctx, tx.DB(), res)
		if err != nil {
			return err
		}
		reservationID = id

		if err := enqueueBookingEvent(ctx, tx, "booking.created", id, req.CourtID, iv); err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		return tx.Idempotency().MarkCompleted(ctx, tx.DB(), idempotencyKey, scope.UserID, &id, nil)
	})
	if err != nil {
		// A concurrent writer can slip past the in-transaction check and
		// win at the exclusion constraint; surface who holds the slot.
		if infra.IsKind(err, infra.KindConflict) {
			return nil, c.conflictWithDetail(ctx, req.CourtID, iv, nil)
		}
		return nil, err
	}

	view, err := c.queries.GetByID(ctx, scope.ComplexID, reservationID)
	if err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	return &CreateBookingResult{Booking: view}, nil
}

func (c *bookingCommandsImpl) createSeries(
	ctx context.Context,
	scope shared.Scope,
	req CreateBookingRequest,
	iv schedule.Interval,
	courtSnap *shared.CourtSnapshot,
	clientSnap *shared.ClientSnapshot,
	idempotencyKey uuid.UUID,
) (*CreateBookingResult, error) {
	// The group row goes in first so every accepted occurrence can
	// reference it even if the caller cancels mid-series.
	var groupID uuid.UUID
	err := c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		group, err := schedule.NewRecurringGroup(
			req.CourtID, req.ClientID,
			req.Recurrence.Frequency, iv.Start(), req.Recurrence.SeriesEnd,
		)
		if err != nil {
			return errs.Wrap(ErrInvalidRecurrence, err.Error())
		}
		groupID, err = tx.Groups().Create(ctx, tx.DB(), group)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrInvalidRecurrence) {
			return nil, err
		}
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}

	result := &SeriesResult{GroupID: groupID}
	for _, candidate := range schedule.Expand(iv, req.Recurrence.Frequency, req.Recurrence.SeriesEnd) {
		created, err := c.createOccurrence(ctx, req, groupID, candidate)
		switch {
		case err == nil && created:
			result.CreatedCount++
		case err == nil:
			result.SkippedCount++
			result.SkippedStarts = append(result.SkippedStarts, candidate.Start())
		default:
			// A store failure on one occurrence skips that occurrence
			// only; the rest of the series still gets its chance.
			slog.Warn("skipping series occurrence after store failure",
				"group_id", groupID, "starts_at", candidate.Start(), "error", err.Error())
			result.SkippedCount++
			result.SkippedStarts = append(result.SkippedStarts, candidate.Start())
		}
	}

	if result.CreatedCount == 0 {
		// The group row is retained as a record of the rejected series.
		return nil, ErrNoAvailability
	}

	err = c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		payload, merr := json.Marshal(map[string]any{
			"group_id":      groupID,
			"court_id":      req.CourtID,
			"court_name":    courtSnap.Name,
			"client_name":   clientSnap.Name,
			"created_count": result.CreatedCount,
			"skipped_count": result.SkippedCount,
		})
		if merr != nil {
			return merr
		}
		if err := tx.Outbox().Enqueue(ctx, tx.DB(), "series.created", payload); err != nil {
			return err
		}
		return tx.Idempotency().MarkCompleted(ctx, tx.DB(), idempotencyKey, scope.UserID, nil, &groupID)
	})
	if err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}

	return &CreateBookingResult{Series: result}, nil
}

// createOccurrence runs one atomic check-and-write step of a series.
// Returns (false, nil) when the occurrence lost to an existing booking.
func (c *bookingCommandsImpl) createOccurrence(
	ctx context.Context,
	req CreateBookingRequest,
	groupID uuid.UUID,
	candidate schedule.Interval,
) (bool, error) {
	conflicted := false
	err := c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		overlap, err := tx.Reads().FirstOverlapping(ctx, req.CourtID, candidate, nil)
		if err != nil {
			return err
		}
		if overlap != nil {
			conflicted = true
			return nil
		}

		res := schedule.NewOccurrence(req.CourtID, req.ClientID, groupID, candidate)
		id, err := tx.Reservations().Create(ctx, tx.DB(), res)
		if err != nil {
			return err
		}
		return enqueueBookingEvent(ctx, tx, "booking.created", id, req.CourtID, candidate)
	})
	if err != nil {
		if infra.IsKind(err, infra.KindConflict) {
			// Lost the constraint race; same outcome as the ledger check.
			return false, nil
		}
		return false, err
	}
	return !conflicted, nil
}

func (c *bookingCommandsImpl) conflictWithDetail(ctx context.Context, courtID uuid.UUID, iv schedule.Interval, excludeID *uuid.UUID) error {
	overlap, err := c.uow.CommandReads().FirstOverlapping(ctx, courtID, iv, excludeID)
	if err != nil || overlap == nil {
		return ErrBookingConflict
	}
	return &ConflictError{With: *overlap}
}

func (c *bookingCommandsImpl) handleIdempotency(
	ctx context.Context,
	key uuid.UUID,
	scope shared.Scope,
	requestHash string,
) (*CreateBookingResult, error) {
	expiresAt := c.clock.Now().Add(24 * time.Hour)

	inserted, err := c.tryInsertKey(ctx, key, scope.UserID, requestHash, expiresAt)
	if err != nil {
		return nil, errs.Mark(err, ErrIdempotencyCheckFailed)
	}
	if inserted {
		// Fresh key, this request owns it.
		return nil, nil
	}

	record, err := c.uow.CommandReads().IdempotencyByKey(ctx, key, scope.UserID)
	if err != nil {
		// The key row exists but is expired or belongs to another user;
		// either way this caller cannot claim it.
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrDuplicateRequest
		}
		return nil, errs.Mark(err, ErrIdempotencyCheckFailed)
	}

	switch record.Status {
	case "completed":
		if record.RequestHash != requestHash {
			return nil, ErrDuplicateRequest
		}
		return c.replayResult(ctx, scope, record)
	case "processing":
		if record.RequestHash != requestHash {
			return nil, ErrDuplicateRequest
		}
		return nil, ErrIdempotencyInProgress
	default:
		return nil, errs.New("invalid idempotency key status")
	}
}

func (c *bookingCommandsImpl) tryInsertKey(ctx context.Context, key, userID uuid.UUID, requestHash string, expiresAt time.Time) (bool, error) {
	var inserted bool
	err := c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		ok, err := tx.Idempotency().TryInsert(ctx, tx.DB(), key, userID, "POST /bookings", requestHash, expiresAt)
		inserted = ok
		return err
	})
	return inserted, err
}

func (c *bookingCommandsImpl) replayResult(ctx context.Context, scope shared.Scope, record *shared.IdempotencyRecord) (*CreateBookingResult, error) {
	switch {
	case record.ResultReservationID != nil:
		view, err := c.queries.GetByID(ctx, scope.ComplexID, *record.ResultReservationID)
		if err != nil {
			return nil, errs.Mark(err, ErrIdempotencyCheckFailed)
		}
		return &CreateBookingResult{Booking: view}, nil
	case record.ResultGroupID != nil:
		group, err := c.queries.GetGroup(ctx, scope.ComplexID, *record.ResultGroupID)
		if err != nil {
			return nil, errs.Mark(err, ErrIdempotencyCheckFailed)
		}
		return &CreateBookingResult{Series: &SeriesResult{
			GroupID:      group.ID,
			CreatedCount: group.MemberCount,
		}}, nil
	default:
		return nil, errs.New("completed request missing result reference")
	}
}

func enqueueBookingEvent(ctx context.Context, tx shared.Tx, topic string, reservationID, courtID uuid.UUID, iv schedule.Interval) error {
	payload, err := json.Marshal(map[string]any{
		"reservation_id": reservationID,
		"court_id":       courtID,
		"starts_at":      iv.Start(),
		"ends_at":        iv.End(),
	})
	if err != nil {
		return err
	}
	return tx.Outbox().Enqueue(ctx, tx.DB(), topic, payload)
}

func calculateRequestHash(req CreateBookingRequest) string {
	data, _ := json.Marshal(map[string]any{
		"court_id":   req.CourtID,
		"client_id":  req.ClientID,
		"starts_at":  req.StartsAt,
		"duration":   req.Duration.String(),
		"recurrence": req.Recurrence,
	})
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
