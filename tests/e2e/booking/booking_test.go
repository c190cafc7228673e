//go:build e2e

package booking_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"testing"
	"time"

	resdto "courtdesk/internal/handler/dto/response"
	"courtdesk/tests/common/authtest"
	"courtdesk/tests/common/builder"
	"courtdesk/tests/common/dbtest"
	"courtdesk/tests/common/httptest"
	"courtdesk/tests/e2e"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const (
	bookingsURL      = "/api/bookings"
	bookingGroupsURL = "/api/booking-groups"
	courtConflictURL = "/api/courts/%s/conflict?start=%s&duration_minutes=%d"
)

type BookingSuite struct {
	e2e.SharedSuite
}

func (s *BookingSuite) SetupSubTest() {
	s.SharedSuite.SetupSubTest()
}

func TestBookingSuite(t *testing.T) {
	t.Parallel()
	suite.Run(t, new(BookingSuite))
}

type fixtures struct {
	token    string
	courtID  uuid.UUID
	clientID uuid.UUID
}

func (s *BookingSuite) prepare(t *testing.T) fixtures {
	t.Helper()

	userID := dbtest.CreateTestUser(t, s.DB, "staff@example.com")
	complexID := dbtest.DefaultComplexID(t, s.DB)
	courtID := dbtest.CreateTestCourt(t, s.DB, "Court 1", "active")
	clientID := dbtest.CreateTestClient(t, s.DB, "Maria Santos")

	token := authtest.NewJWTHelper(s.Config.JWT).GenerateToken(t, userID, complexID)
	return fixtures{token: token, courtID: courtID, clientID: clientID}
}

func (s *BookingSuite) post(t *testing.T, body any, token string, key uuid.UUID) *resdto.BookingResponse {
	t.Helper()

	rec := httptest.PerformRequestWithHeaders(t, s.Router, http.MethodPost, bookingsURL, body, map[string]string{
		"Authorization":   "Bearer " + token,
		"Idempotency-Key": key.String(),
	})
	var response resdto.BookingResponse
	httptest.AssertSuccessResponse(t, rec, http.StatusCreated, &response)
	return &response
}

func (s *BookingSuite) reservationStatus(t *testing.T, id uuid.UUID) string {
	t.Helper()

	var status string
	err := s.DB.QueryRow(context.Background(),
		"SELECT status FROM reservations WHERE id = $1", id).Scan(&status)
	require.NoError(t, err)
	return status
}

func futureStart() time.Time {
	return time.Now().UTC().Add(48 * time.Hour).Truncate(time.Hour)
}

func (s *BookingSuite) TestCreateBooking() {
	s.Run("Normal case: staff can book a free slot", func() {
		t := s.T()
		f := s.prepare(t)

		b := builder.NewBookingBuilder()
		b.CourtID, b.ClientID, b.StartsAt = f.courtID, f.clientID, futureStart()

		response := s.post(t, b.BuildCreateRequestDTO(), f.token, uuid.New())
		s.Equal(f.courtID, response.CourtID)
		s.Equal("Maria Santos", response.ClientName)
		s.Equal("confirmed", response.Status)
		s.True(response.StartsAt.Equal(b.StartsAt))
		s.True(response.EndsAt.Equal(b.StartsAt.Add(90 * time.Minute)))
	})

	s.Run("Normal case: back-to-back slots do not collide", func() {
		t := s.T()
		f := s.prepare(t)
		start := futureStart()

		b := builder.NewBookingBuilder()
		b.CourtID, b.ClientID, b.StartsAt = f.courtID, f.clientID, start
		s.post(t, b.BuildCreateRequestDTO(), f.token, uuid.New())

		b.StartsAt = start.Add(90 * time.Minute)
		s.post(t, b.BuildCreateRequestDTO(), f.token, uuid.New())
	})

	s.Run("Error case: overlapping window is rejected at the database", func() {
		t := s.T()
		f := s.prepare(t)
		start := futureStart()

		b := builder.NewBookingBuilder()
		b.CourtID, b.ClientID, b.StartsAt = f.courtID, f.clientID, start
		first := s.post(t, b.BuildCreateRequestDTO(), f.token, uuid.New())

		b.StartsAt = start.Add(30 * time.Minute)
		rec := httptest.PerformRequestWithHeaders(t, s.Router, http.MethodPost, bookingsURL,
			b.BuildCreateRequestDTO(), map[string]string{
				"Authorization":   "Bearer " + f.token,
				"Idempotency-Key": uuid.NewString(),
			})
		httptest.AssertErrorResponse(t, rec, http.StatusConflict, "CONFLICT")

		var body struct {
			Detail struct {
				ReservationID uuid.UUID `json:"reservation_id"`
			} `json:"detail"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		s.Equal(first.ID, body.Detail.ReservationID)
	})

	s.Run("Error case: simultaneous requests for the same slot admit exactly one", func() {
		t := s.T()
		f := s.prepare(t)

		b := builder.NewBookingBuilder()
		b.CourtID, b.ClientID, b.StartsAt = f.courtID, f.clientID, futureStart()
		body := b.BuildCreateRequestDTO()

		// Both requests race past the handler at the same time; the
		// exclusion constraint decides the winner at commit.
		codes := make(chan int, 2)
		var wg sync.WaitGroup
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				rec := httptest.PerformRequestWithHeaders(t, s.Router, http.MethodPost, bookingsURL,
					body, map[string]string{
						"Authorization":   "Bearer " + f.token,
						"Idempotency-Key": uuid.NewString(),
					})
				codes <- rec.Code
			}()
		}
		wg.Wait()
		close(codes)

		var got []int
		for code := range codes {
			got = append(got, code)
		}
		sort.Ints(got)
		s.Equal([]int{http.StatusCreated, http.StatusConflict}, got)

		var count int
		err := s.DB.QueryRow(context.Background(),
			"SELECT count(*) FROM reservations WHERE court_id = $1 AND status <> 'cancelled'",
			f.courtID).Scan(&count)
		require.NoError(t, err)
		s.Equal(1, count)
	})

	s.Run("Normal case: replaying the same key returns the original booking", func() {
		t := s.T()
		f := s.prepare(t)
		key := uuid.New()

		b := builder.NewBookingBuilder()
		b.CourtID, b.ClientID, b.StartsAt = f.courtID, f.clientID, futureStart()
		body := b.BuildCreateRequestDTO()

		first := s.post(t, body, f.token, key)

		rec := httptest.PerformRequestWithHeaders(t, s.Router, http.MethodPost, bookingsURL, body, map[string]string{
			"Authorization":   "Bearer " + f.token,
			"Idempotency-Key": key.String(),
		})
		var replay resdto.BookingResponse
		httptest.AssertSuccessResponse(t, rec, http.StatusOK, &replay)
		s.Equal(first.ID, replay.ID)

		var count int
		err := s.DB.QueryRow(context.Background(),
			"SELECT count(*) FROM reservations WHERE court_id = $1", f.courtID).Scan(&count)
		require.NoError(t, err)
		s.Equal(1, count)
	})

	s.Run("Error case: request without a token is rejected", func() {
		t := s.T()
		f := s.prepare(t)

		b := builder.NewBookingBuilder()
		b.CourtID, b.ClientID, b.StartsAt = f.courtID, f.clientID, futureStart()

		rec := httptest.PerformRequestWithHeaders(t, s.Router, http.MethodPost, bookingsURL,
			b.BuildCreateRequestDTO(), map[string]string{"Idempotency-Key": uuid.NewString()})
		s.Equal(http.StatusUnauthorized, rec.Code)
	})
}

func (s *BookingSuite) TestRecurringBooking() {
	s.Run("Normal case: weekly series books every free occurrence", func() {
		t := s.T()
		f := s.prepare(t)
		start := futureStart()

		b := builder.NewBookingBuilder()
		b.CourtID, b.ClientID, b.StartsAt = f.courtID, f.clientID, start

		rec := httptest.PerformRequestWithHeaders(t, s.Router, http.MethodPost, bookingsURL,
			b.BuildRecurringRequestDTO("weekly", start.AddDate(0, 0, 21)), map[string]string{
				"Authorization":   "Bearer " + f.token,
				"Idempotency-Key": uuid.NewString(),
			})
		var series resdto.SeriesResponse
		httptest.AssertSuccessResponse(t, rec, http.StatusCreated, &series)
		s.Equal(4, series.CreatedCount)
		s.Equal(0, series.SkippedCount)

		var count int
		err := s.DB.QueryRow(context.Background(),
			"SELECT count(*) FROM reservations WHERE group_id = $1", series.GroupID).Scan(&count)
		require.NoError(t, err)
		s.Equal(4, count)
	})

	s.Run("Normal case: blocked occurrences are skipped, the rest are booked", func() {
		t := s.T()
		f := s.prepare(t)
		start := futureStart()

		// Take the second weekly occurrence before creating the series
		blocker := builder.NewBookingBuilder()
		blocker.CourtID, blocker.ClientID, blocker.StartsAt = f.courtID, f.clientID, start.AddDate(0, 0, 7)
		s.post(t, blocker.BuildCreateRequestDTO(), f.token, uuid.New())

		b := builder.NewBookingBuilder()
		b.CourtID, b.ClientID, b.StartsAt = f.courtID, f.clientID, start

		rec := httptest.PerformRequestWithHeaders(t, s.Router, http.MethodPost, bookingsURL,
			b.BuildRecurringRequestDTO("weekly", start.AddDate(0, 0, 14)), map[string]string{
				"Authorization":   "Bearer " + f.token,
				"Idempotency-Key": uuid.NewString(),
			})
		var series resdto.SeriesResponse
		httptest.AssertSuccessResponse(t, rec, http.StatusCreated, &series)
		s.Equal(2, series.CreatedCount)
		s.Equal(1, series.SkippedCount)
	})

	s.Run("Normal case: cancelling the group skips members that already started", func() {
		t := s.T()
		f := s.prepare(t)
		start := futureStart()

		b := builder.NewBookingBuilder()
		b.CourtID, b.ClientID, b.StartsAt = f.courtID, f.clientID, start

		rec := httptest.PerformRequestWithHeaders(t, s.Router, http.MethodPost, bookingsURL,
			b.BuildRecurringRequestDTO("weekly", start.AddDate(0, 0, 21)), map[string]string{
				"Authorization":   "Bearer " + f.token,
				"Idempotency-Key": uuid.NewString(),
			})
		var series resdto.SeriesResponse
		httptest.AssertSuccessResponse(t, rec, http.StatusCreated, &series)

		cancelRec := httptest.PerformRequestWithHeaders(t, s.Router, http.MethodDelete,
			bookingGroupsURL+"/"+series.GroupID.String(), nil,
			map[string]string{"Authorization": "Bearer " + f.token})
		var cancelled resdto.CancelGroupResponse
		httptest.AssertSuccessResponse(t, cancelRec, http.StatusOK, &cancelled)
		s.Equal(int64(4), cancelled.CancelledCount)

		var remaining int
		err := s.DB.QueryRow(context.Background(),
			"SELECT count(*) FROM reservations WHERE group_id = $1 AND status = 'confirmed'",
			series.GroupID).Scan(&remaining)
		require.NoError(t, err)
		s.Equal(0, remaining)
	})
}

func (s *BookingSuite) TestCancelBooking() {
	s.Run("Normal case: cancellation frees the window for rebooking", func() {
		t := s.T()
		f := s.prepare(t)
		start := futureStart()

		b := builder.NewBookingBuilder()
		b.CourtID, b.ClientID, b.StartsAt = f.courtID, f.clientID, start
		created := s.post(t, b.BuildCreateRequestDTO(), f.token, uuid.New())

		rec := httptest.PerformRequestWithHeaders(t, s.Router, http.MethodDelete,
			bookingsURL+"/"+created.ID.String(), nil,
			map[string]string{"Authorization": "Bearer " + f.token})
		s.Equal(http.StatusNoContent, rec.Code)
		s.Equal("cancelled", s.reservationStatus(t, created.ID))

		// The freed window can be taken again
		s.post(t, b.BuildCreateRequestDTO(), f.token, uuid.New())
	})

	s.Run("Error case: cancelling twice is rejected", func() {
		t := s.T()
		f := s.prepare(t)

		b := builder.NewBookingBuilder()
		b.CourtID, b.ClientID, b.StartsAt = f.courtID, f.clientID, futureStart()
		created := s.post(t, b.BuildCreateRequestDTO(), f.token, uuid.New())

		url := bookingsURL + "/" + created.ID.String()
		auth := map[string]string{"Authorization": "Bearer " + f.token}

		rec := httptest.PerformRequestWithHeaders(t, s.Router, http.MethodDelete, url, nil, auth)
		s.Equal(http.StatusNoContent, rec.Code)

		rec = httptest.PerformRequestWithHeaders(t, s.Router, http.MethodDelete, url, nil, auth)
		httptest.AssertErrorResponse(t, rec, http.StatusConflict, "ALREADY_CANCELLED")
	})

	s.Run("Error case: an open tab blocks cancellation", func() {
		t := s.T()
		f := s.prepare(t)

		b := builder.NewBookingBuilder()
		b.CourtID, b.ClientID, b.StartsAt = f.courtID, f.clientID, futureStart()
		created := s.post(t, b.BuildCreateRequestDTO(), f.token, uuid.New())

		dbtest.OpenTab(t, s.DB, created.ID)

		rec := httptest.PerformRequestWithHeaders(t, s.Router, http.MethodDelete,
			bookingsURL+"/"+created.ID.String(), nil,
			map[string]string{"Authorization": "Bearer " + f.token})
		httptest.AssertErrorResponse(t, rec, http.StatusConflict, "BLOCKED_BY_DEPENDENT_STATE")
		s.Equal("confirmed", s.reservationStatus(t, created.ID))
	})
}

func (s *BookingSuite) TestConflictProbe() {
	s.Run("Normal case: probe names the booking holding the window", func() {
		t := s.T()
		f := s.prepare(t)
		start := futureStart()

		b := builder.NewBookingBuilder()
		b.CourtID, b.ClientID, b.StartsAt = f.courtID, f.clientID, start
		created := s.post(t, b.BuildCreateRequestDTO(), f.token, uuid.New())

		url := fmt.Sprintf(courtConflictURL, f.courtID,
			start.Add(30*time.Minute).Format(time.RFC3339), 60)
		rec := httptest.PerformRequestWithHeaders(t, s.Router, http.MethodGet, url, nil,
			map[string]string{"Authorization": "Bearer " + f.token})

		var probe resdto.ConflictCheckResponse
		httptest.AssertSuccessResponse(t, rec, http.StatusOK, &probe)
		s.True(probe.Conflict)
		require.NotNil(t, probe.With)
		s.Equal(created.ID, probe.With.ReservationID)

		// The slot right after the booking ends is free
		url = fmt.Sprintf(courtConflictURL, f.courtID,
			start.Add(90*time.Minute).Format(time.RFC3339), 60)
		rec = httptest.PerformRequestWithHeaders(t, s.Router, http.MethodGet, url, nil,
			map[string]string{"Authorization": "Bearer " + f.token})
		httptest.AssertSuccessResponse(t, rec, http.StatusOK, &probe)
		s.False(probe.Conflict)
	})
}
