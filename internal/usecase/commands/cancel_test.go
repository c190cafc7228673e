//go:build unit

package commands_test

import (
	"context"
	"testing"
	"time"

	"courtdesk/internal/domain/schedule"
	"courtdesk/internal/usecase/commands"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCancelBooking(t *testing.T) {
	start := now.Add(24 * time.Hour)

	t.Run("cancels a confirmed booking", func(t *testing.T) {
		f := newFixture(t)
		id := f.store.SeedReservation(f.courtID, f.clientID, start, start.Add(time.Hour))

		require.NoError(t, f.commands.CancelBooking(context.Background(), f.scope, id))
		assert.Equal(t, "cancelled", f.store.Reservations[id].Status)
		assert.Contains(t, f.store.Topics(), "booking.cancelled")
	})

	t.Run("cancelled slot frees the window", func(t *testing.T) {
		f := newFixture(t)
		id := f.store.SeedReservation(f.courtID, f.clientID, start, start.Add(time.Hour))
		require.NoError(t, f.commands.CancelBooking(context.Background(), f.scope, id))

		_, err := f.commands.CreateBooking(context.Background(), f.scope, f.request(start, time.Hour), uuid.New())
		require.NoError(t, err)
	})

	t.Run("second cancellation rejected", func(t *testing.T) {
		f := newFixture(t)
		id := f.store.SeedReservation(f.courtID, f.clientID, start, start.Add(time.Hour))
		require.NoError(t, f.commands.CancelBooking(context.Background(), f.scope, id))

		err := f.commands.CancelBooking(context.Background(), f.scope, id)
		assert.ErrorIs(t, err, commands.ErrAlreadyCancelled)
	})

	t.Run("open tab blocks cancellation", func(t *testing.T) {
		f := newFixture(t)
		id := f.store.SeedReservation(f.courtID, f.clientID, start, start.Add(time.Hour))
		f.store.OpenTabs[id] = true

		err := f.commands.CancelBooking(context.Background(), f.scope, id)
		assert.ErrorIs(t, err, commands.ErrBlockedByOpenTab)
		assert.Equal(t, "confirmed", f.store.Reservations[id].Status)
	})

	t.Run("unknown booking", func(t *testing.T) {
		f := newFixture(t)
		err := f.commands.CancelBooking(context.Background(), f.scope, uuid.New())
		assert.ErrorIs(t, err, commands.ErrBookingNotFound)
	})

	t.Run("booking of another complex reads as not found", func(t *testing.T) {
		f := newFixture(t)
		foreignCourt := f.store.AddCourt(uuid.New(), "Foreign Court", "active")
		id := f.store.SeedReservation(foreignCourt, f.clientID, start, start.Add(time.Hour))

		err := f.commands.CancelBooking(context.Background(), f.scope, id)
		assert.ErrorIs(t, err, commands.ErrBookingNotFound)
	})
}

func TestCancelRecurringGroup(t *testing.T) {
	// Seed a weekly group with two past and three future members
	seedGroup := func(f *fixture) uuid.UUID {
		req := f.request(now.Add(24*time.Hour), time.Hour)
		req.Recurrence = &commands.RecurrenceSpec{
			Frequency: schedule.FrequencyWeekly,
			SeriesEnd: now.Add(24 * time.Hour).Add(4 * 7 * 24 * time.Hour),
		}
		result, err := f.commands.CreateBooking(context.Background(), f.scope, req, uuid.New())
		require.NoError(t, err)
		require.Equal(t, 5, result.Series.CreatedCount)
		return result.Series.GroupID
	}

	t.Run("cancels only future members", func(t *testing.T) {
		f := newFixture(t)
		groupID := seedGroup(f)

		// Two occurrences are now in the past
		f.clock.Add(15 * 24 * time.Hour)

		count, err := f.commands.CancelRecurringGroup(context.Background(), f.scope, groupID)
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
		assert.Equal(t, 2, f.store.ConfirmedCount(), "past members keep their status")
		assert.Contains(t, f.store.Topics(), "series.cancelled")
	})

	t.Run("second group cancellation rejected", func(t *testing.T) {
		f := newFixture(t)
		groupID := seedGroup(f)

		_, err := f.commands.CancelRecurringGroup(context.Background(), f.scope, groupID)
		require.NoError(t, err)

		_, err = f.commands.CancelRecurringGroup(context.Background(), f.scope, groupID)
		assert.ErrorIs(t, err, commands.ErrAlreadyCancelled)
	})

	t.Run("unknown group", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.commands.CancelRecurringGroup(context.Background(), f.scope, uuid.New())
		assert.ErrorIs(t, err, commands.ErrGroupNotFound)
	})
}

func TestUpdateBooking(t *testing.T) {
	start := now.Add(24 * time.Hour)

	t.Run("moves to a free window", func(t *testing.T) {
		f := newFixture(t)
		id := f.store.SeedReservation(f.courtID, f.clientID, start, start.Add(time.Hour))

		newStart := start.Add(3 * time.Hour)
		view, err := f.commands.UpdateBooking(context.Background(), f.scope, id, commands.UpdateBookingRequest{
			StartsAt: &newStart,
		})
		require.NoError(t, err)
		assert.Equal(t, newStart, view.StartsAt)
		assert.Equal(t, newStart.Add(time.Hour), view.EndsAt, "duration preserved")
		assert.Contains(t, f.store.Topics(), "booking.rescheduled")
	})

	t.Run("duration-only change keeps the start", func(t *testing.T) {
		f := newFixture(t)
		id := f.store.SeedReservation(f.courtID, f.clientID, start, start.Add(time.Hour))

		d := 2 * time.Hour
		view, err := f.commands.UpdateBooking(context.Background(), f.scope, id, commands.UpdateBookingRequest{
			Duration: &d,
		})
		require.NoError(t, err)
		assert.Equal(t, start, view.StartsAt)
		assert.Equal(t, start.Add(2*time.Hour), view.EndsAt)
	})

	t.Run("does not conflict with itself", func(t *testing.T) {
		f := newFixture(t)
		id := f.store.SeedReservation(f.courtID, f.clientID, start, start.Add(2*time.Hour))

		// Shrink within the original window: overlaps the old self
		d := time.Hour
		_, err := f.commands.UpdateBooking(context.Background(), f.scope, id, commands.UpdateBookingRequest{
			Duration: &d,
		})
		require.NoError(t, err)
	})

	t.Run("conflict with another booking rejected", func(t *testing.T) {
		f := newFixture(t)
		id := f.store.SeedReservation(f.courtID, f.clientID, start, start.Add(time.Hour))
		other := f.store.SeedReservation(f.courtID, f.clientID, start.Add(2*time.Hour), start.Add(3*time.Hour))

		newStart := start.Add(2 * time.Hour)
		_, err := f.commands.UpdateBooking(context.Background(), f.scope, id, commands.UpdateBookingRequest{
			StartsAt: &newStart,
		})
		require.ErrorIs(t, err, commands.ErrBookingConflict)

		var conflictErr *commands.ConflictError
		require.ErrorAs(t, err, &conflictErr)
		assert.Equal(t, other, conflictErr.With.ID)
	})

	t.Run("cancelled booking cannot be edited", func(t *testing.T) {
		f := newFixture(t)
		id := f.store.SeedReservation(f.courtID, f.clientID, start, start.Add(time.Hour))
		require.NoError(t, f.commands.CancelBooking(context.Background(), f.scope, id))

		newStart := start.Add(3 * time.Hour)
		_, err := f.commands.UpdateBooking(context.Background(), f.scope, id, commands.UpdateBookingRequest{
			StartsAt: &newStart,
		})
		assert.ErrorIs(t, err, commands.ErrBookingCancelled)
	})

	t.Run("move into the past rejected", func(t *testing.T) {
		f := newFixture(t)
		id := f.store.SeedReservation(f.courtID, f.clientID, start, start.Add(time.Hour))

		past := now.Add(-time.Hour)
		_, err := f.commands.UpdateBooking(context.Background(), f.scope, id, commands.UpdateBookingRequest{
			StartsAt: &past,
		})
		assert.ErrorIs(t, err, commands.ErrRetroactiveStart)
	})
}
