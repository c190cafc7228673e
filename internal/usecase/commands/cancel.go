package commands

import (
	"context"
	"encoding/json"

	"courtdesk/internal/domain/schedule"
	"courtdesk/internal/infra"
	"courtdesk/internal/pkg/errs"
	"courtdesk/internal/pkg/patch"
	"courtdesk/internal/usecase/queries"
	"courtdesk/internal/usecase/shared"

	"github.com/google/uuid"
)

func (c *bookingCommandsImpl) CancelBooking(ctx context.Context, scope shared.Scope, id uuid.UUID) error {
	return c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		snap, err := c.reservationInScope(ctx, tx.Reads(), scope, id)
		if err != nil {
			return err
		}
		if snap.Status == string(schedule.StatusCancelled) {
			return ErrAlreadyCancelled
		}

		blocked, err := tx.Reads().HasOpenTab(ctx, id)
		if err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		if blocked {
			return ErrBlockedByOpenTab
		}

		if err := tx.Reservations().UpdateStatus(ctx, tx.DB(), id, schedule.StatusCancelled); err != nil {
			return err
		}

		payload, err := json.Marshal(map[string]any{
			"reservation_id": id,
			"court_id":       snap.CourtID,
			"starts_at":      snap.StartsAt,
		})
		if err != nil {
			return err
		}
		return tx.Outbox().Enqueue(ctx, tx.DB(), "booking.cancelled", payload)
	})
}

// CancelRecurringGroup cancels every member of the group that has not
// yet started. Past members keep their status; they already happened.
func (c *bookingCommandsImpl) CancelRecurringGroup(ctx context.Context, scope shared.Scope, groupID uuid.UUID) (int64, error) {
	var count int64
	err := c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		group, err := tx.Reads().GroupByID(ctx, groupID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return ErrGroupNotFound
			}
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		if err := c.courtInScope(ctx, tx.Reads(), scope, group.CourtID, ErrGroupNotFound); err != nil {
			return err
		}

		count, err = tx.Reservations().CancelGroupFrom(ctx, tx.DB(), groupID, c.clock.Now())
		if err != nil {
			return err
		}
		if count == 0 {
			return ErrAlreadyCancelled
		}

		payload, err := json.Marshal(map[string]any{
			"group_id":        groupID,
			"cancelled_count": count,
		})
		if err != nil {
			return err
		}
		return tx.Outbox().Enqueue(ctx, tx.DB(), "series.cancelled", payload)
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (c *bookingCommandsImpl) UpdateBooking(
	ctx context.Context,
	scope shared.Scope,
	id uuid.UUID,
	req UpdateBookingRequest,
) (*queries.BookingView, error) {
	var courtID uuid.UUID
	var window schedule.Interval

	err := c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		snap, err := c.reservationInScope(ctx, tx.Reads(), scope, id)
		if err != nil {
			return err
		}
		if snap.Status == string(schedule.StatusCancelled) {
			return ErrBookingCancelled
		}

		newStart := patch.Coalesce(req.StartsAt, snap.StartsAt)
		newDuration := patch.Coalesce(req.Duration, snap.EndsAt.Sub(snap.StartsAt))

		iv, err := schedule.NewInterval(newStart, newDuration)
		if err != nil {
			return errs.Wrap(ErrInvalidDuration, err.Error())
		}
		if req.StartsAt != nil && iv.Start().Before(c.clock.Now()) {
			return ErrRetroactiveStart
		}
		courtID, window = snap.CourtID, iv

		// The edited reservation must not count against itself.
		overlap, err := tx.Reads().FirstOverlapping(ctx, snap.CourtID, iv, &id)
		if err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		if overlap != nil {
			return &ConflictError{With: *overlap}
		}

		if err := tx.Reservations().UpdateInterval(ctx, tx.DB(), id, iv); err != nil {
			return err
		}
		return enqueueBookingEvent(ctx, tx, "booking.rescheduled", id, snap.CourtID, iv)
	})
	if err != nil {
		if infra.IsKind(err, infra.KindConflict) {
			return nil, c.conflictWithDetail(ctx, courtID, window, &id)
		}
		return nil, err
	}

	view, err := c.queries.GetByID(ctx, scope.ComplexID, id)
	if err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	return view, nil
}

func (c *bookingCommandsImpl) reservationInScope(
	ctx context.Context,
	reads shared.CommandReads,
	scope shared.Scope,
	id uuid.UUID,
) (*shared.ReservationSnapshot, error) {
	snap, err := reads.ReservationByID(ctx, id)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	if err := c.courtInScope(ctx, reads, scope, snap.CourtID, ErrBookingNotFound); err != nil {
		return nil, err
	}
	return snap, nil
}

// courtInScope hides records of other complexes behind notFound so the
// API never confirms their existence.
func (c *bookingCommandsImpl) courtInScope(
	ctx context.Context,
	reads shared.CommandReads,
	scope shared.Scope,
	courtID uuid.UUID,
	notFound error,
) error {
	court, err := reads.CourtByID(ctx, courtID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return notFound
		}
		return errs.Mark(err, ErrDatabaseOperationFailed)
	}
	if court.ComplexID != scope.ComplexID {
		return notFound
	}
	return nil
}
