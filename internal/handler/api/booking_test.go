//go:build unit

package api_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"courtdesk/internal/handler/api"
	resdto "courtdesk/internal/handler/dto/response"
	"courtdesk/internal/usecase/commands"
	"courtdesk/internal/usecase/queries"
	"courtdesk/internal/usecase/shared"
	"courtdesk/tests/common/builder"
	"courtdesk/tests/common/httptest"
	"courtdesk/tests/common/testutil"
	commandsmock "courtdesk/tests/mock/commands"
	queriesmock "courtdesk/tests/mock/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type BookingHandlerTestSuite struct {
	suite.Suite
	router       *gin.Engine
	mockCtrl     *gomock.Controller
	mockCommands *commandsmock.MockBookingCommands
	mockQueries  *queriesmock.MockBookingQueries
	handler      *api.BookingHandler
	scope        shared.Scope
}

func (s *BookingHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.router = gin.New()

	s.mockCtrl = gomock.NewController(s.T())
	s.mockCommands = commandsmock.NewMockBookingCommands(s.mockCtrl)
	s.mockQueries = queriesmock.NewMockBookingQueries(s.mockCtrl)
	s.handler = api.NewBookingHandler(s.mockCommands, s.mockQueries)
	s.scope = shared.Scope{UserID: uuid.New(), ComplexID: uuid.New()}

	// Mock middleware behavior: inject the authenticated scope
	withScope := func(c *gin.Context) {
		c.Set("user_id", s.scope.UserID)
		c.Set("complex_id", s.scope.ComplexID)
	}

	s.router.POST("/bookings", withScope, s.handler.CreateBooking)
	s.router.GET("/bookings/:id", withScope, s.handler.GetBooking)
	s.router.PATCH("/bookings/:id", withScope, s.handler.UpdateBooking)
	s.router.DELETE("/bookings/:id", withScope, s.handler.CancelBooking)
	s.router.GET("/booking-groups/:id", withScope, s.handler.GetGroup)
	s.router.DELETE("/booking-groups/:id", withScope, s.handler.CancelGroup)
	s.router.GET("/courts/:id/bookings", withScope, s.handler.ListCourtDay)
	s.router.GET("/courts/:id/conflict", withScope, s.handler.CheckConflict)
}

func (s *BookingHandlerTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func TestBookingHandlerSuite(t *testing.T) {
	suite.Run(t, new(BookingHandlerTestSuite))
}

func idempotencyHeaders(key uuid.UUID) map[string]string {
	return map[string]string{"Idempotency-Key": key.String()}
}

type testCaseBooking struct {
	name       string
	mutate     func(m map[string]any)
	expectCode int
}

func (s *BookingHandlerTestSuite) TestCreateBooking() {
	url := "/bookings"

	s.Run("success: returns 201 Created for a single booking", func() {
		b := builder.NewBookingBuilder()
		view := b.BuildView()
		key := uuid.New()

		s.mockCommands.EXPECT().CreateBooking(gomock.Any(), s.scope, gomock.Any(), key).
			Return(&commands.CreateBookingResult{Booking: view}, nil).Times(1)

		rec := httptest.PerformRequestWithHeaders(s.T(), s.router, http.MethodPost, url,
			b.BuildCreateRequestDTO(), idempotencyHeaders(key))

		var response resdto.BookingResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusCreated, &response)
		s.Equal(view.ID, response.ID)
		s.Equal(view.ClientName, response.ClientName)
	})

	s.Run("success: returns 200 OK when the request is a replay", func() {
		b := builder.NewBookingBuilder()
		key := uuid.New()

		s.mockCommands.EXPECT().CreateBooking(gomock.Any(), s.scope, gomock.Any(), key).
			Return(&commands.CreateBookingResult{Booking: b.BuildView(), IsReplayed: true}, nil).Times(1)

		rec := httptest.PerformRequestWithHeaders(s.T(), s.router, http.MethodPost, url,
			b.BuildCreateRequestDTO(), idempotencyHeaders(key))

		var response resdto.BookingResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &response)
	})

	s.Run("success: returns the series summary for a recurring booking", func() {
		b := builder.NewBookingBuilder()
		key := uuid.New()
		groupID := uuid.New()
		skipped := b.StartsAt.AddDate(0, 0, 7)

		s.mockCommands.EXPECT().CreateBooking(gomock.Any(), s.scope, gomock.Any(), key).
			Return(&commands.CreateBookingResult{Series: &commands.SeriesResult{
				GroupID:       groupID,
				CreatedCount:  3,
				SkippedCount:  1,
				SkippedStarts: []time.Time{skipped},
			}}, nil).Times(1)

		rec := httptest.PerformRequestWithHeaders(s.T(), s.router, http.MethodPost, url,
			b.BuildRecurringRequestDTO("weekly", b.StartsAt.AddDate(0, 1, 0)), idempotencyHeaders(key))

		var response resdto.SeriesResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusCreated, &response)
		s.Equal(groupID, response.GroupID)
		s.Equal(3, response.CreatedCount)
		s.Equal(1, response.SkippedCount)
	})

	s.Run("error: 400 Bad Request when Idempotency-Key is missing", func() {
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url,
			builder.NewBookingBuilder().BuildCreateRequestDTO(), "")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusBadRequest, "VALIDATION")
	})

	s.Run("error: 400 Bad Request when Idempotency-Key is not a UUID", func() {
		rec := httptest.PerformRequestWithHeaders(s.T(), s.router, http.MethodPost, url,
			builder.NewBookingBuilder().BuildCreateRequestDTO(),
			map[string]string{"Idempotency-Key": "not-a-uuid"})
		httptest.AssertErrorResponse(s.T(), rec, http.StatusBadRequest, "VALIDATION")
	})

	s.Run("error: 400 Bad Request on validation errors", func() {
		cases := []testCaseBooking{
			{name: "missing field: court_id", mutate: testutil.Field("court_id", nil), expectCode: http.StatusBadRequest},
			{name: "missing field: client_id", mutate: testutil.Field("client_id", nil), expectCode: http.StatusBadRequest},
			{name: "missing field: start_time", mutate: testutil.Field("start_time", nil), expectCode: http.StatusBadRequest},
			{name: "duration below minimum", mutate: testutil.Field("duration_minutes", 0), expectCode: http.StatusBadRequest},
			{name: "unknown recurrence frequency", mutate: testutil.Field("recurrence", map[string]any{
				"frequency": "daily",
				"end_date":  time.Now().AddDate(0, 1, 0).Format(time.RFC3339),
			}), expectCode: http.StatusBadRequest},
			{name: "unknown anchor weekday", mutate: testutil.Field("recurrence", map[string]any{
				"frequency":      "weekly",
				"end_date":       time.Now().AddDate(0, 1, 0).Format(time.RFC3339),
				"anchor_weekday": "someday",
			}), expectCode: http.StatusBadRequest},
		}

		for _, tc := range cases {
			s.Run(tc.name, func() {
				body := testutil.DtoMap(s.T(), builder.NewBookingBuilder().BuildCreateRequestDTO(), tc.mutate)
				rec := httptest.PerformRequestWithHeaders(s.T(), s.router, http.MethodPost, url,
					body, idempotencyHeaders(uuid.New()))
				httptest.AssertErrorResponse(s.T(), rec, tc.expectCode, "VALIDATION")
			})
		}
	})

	s.Run("error: 409 Conflict carries the colliding slot as detail", func() {
		b := builder.NewBookingBuilder()
		key := uuid.New()
		holder := shared.OverlapSnapshot{
			ID:         uuid.New(),
			ClientName: "Joao Pereira",
			StartsAt:   b.StartsAt,
			EndsAt:     b.StartsAt.Add(90 * time.Minute),
		}
		conflictErr := &commands.ConflictError{With: holder}

		s.mockCommands.EXPECT().CreateBooking(gomock.Any(), s.scope, gomock.Any(), key).
			Return(nil, conflictErr).Times(1)

		rec := httptest.PerformRequestWithHeaders(s.T(), s.router, http.MethodPost, url,
			b.BuildCreateRequestDTO(), idempotencyHeaders(key))
		httptest.AssertErrorResponse(s.T(), rec, http.StatusConflict, "CONFLICT")

		var body struct {
			Detail struct {
				ReservationID uuid.UUID `json:"reservation_id"`
				ClientName    string    `json:"client_name"`
			} `json:"detail"`
		}
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
		s.Equal(holder.ID, body.Detail.ReservationID)
		s.Equal(holder.ClientName, body.Detail.ClientName)
	})

	s.Run("error: 422 Unprocessable Entity when no series occurrence fits", func() {
		key := uuid.New()
		s.mockCommands.EXPECT().CreateBooking(gomock.Any(), s.scope, gomock.Any(), key).
			Return(nil, commands.ErrNoAvailability).Times(1)

		b := builder.NewBookingBuilder()
		rec := httptest.PerformRequestWithHeaders(s.T(), s.router, http.MethodPost, url,
			b.BuildRecurringRequestDTO("weekly", b.StartsAt.AddDate(0, 1, 0)), idempotencyHeaders(key))
		httptest.AssertErrorResponse(s.T(), rec, http.StatusUnprocessableEntity, "NO_AVAILABILITY")
	})

	s.Run("error: 404 Not Found for an unknown court", func() {
		key := uuid.New()
		s.mockCommands.EXPECT().CreateBooking(gomock.Any(), s.scope, gomock.Any(), key).
			Return(nil, commands.ErrCourtNotFound).Times(1)

		rec := httptest.PerformRequestWithHeaders(s.T(), s.router, http.MethodPost, url,
			builder.NewBookingBuilder().BuildCreateRequestDTO(), idempotencyHeaders(key))
		httptest.AssertErrorResponse(s.T(), rec, http.StatusNotFound, "NOT_FOUND")
	})

	s.Run("error: 409 Conflict for a reused key with different parameters", func() {
		key := uuid.New()
		s.mockCommands.EXPECT().CreateBooking(gomock.Any(), s.scope, gomock.Any(), key).
			Return(nil, commands.ErrDuplicateRequest).Times(1)

		rec := httptest.PerformRequestWithHeaders(s.T(), s.router, http.MethodPost, url,
			builder.NewBookingBuilder().BuildCreateRequestDTO(), idempotencyHeaders(key))
		httptest.AssertErrorResponse(s.T(), rec, http.StatusConflict, "CONFLICT")
	})
}

func (s *BookingHandlerTestSuite) TestGetBooking() {
	s.Run("success: returns 200 OK with the booking", func() {
		view := builder.NewBookingBuilder().BuildView()
		s.mockQueries.EXPECT().GetByID(gomock.Any(), s.scope.ComplexID, view.ID).
			Return(view, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/bookings/"+view.ID.String(), nil, "")

		var response resdto.BookingResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &response)
		s.Equal(view.CourtName, response.CourtName)
	})

	s.Run("error: 404 Not Found for an unknown booking", func() {
		id := uuid.New()
		s.mockQueries.EXPECT().GetByID(gomock.Any(), s.scope.ComplexID, id).
			Return(nil, queries.ErrBookingNotFound).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/bookings/"+id.String(), nil, "")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusNotFound, "NOT_FOUND")
	})

	s.Run("error: 400 Bad Request for a malformed ID", func() {
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/bookings/not-a-uuid", nil, "")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusBadRequest, "VALIDATION")
	})
}

func (s *BookingHandlerTestSuite) TestUpdateBooking() {
	s.Run("success: returns 200 OK with the rescheduled booking", func() {
		b := builder.NewBookingBuilder()
		view := b.BuildView()
		s.mockCommands.EXPECT().UpdateBooking(gomock.Any(), s.scope, view.ID, gomock.Any()).
			Return(view, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPatch, "/bookings/"+view.ID.String(),
			b.BuildUpdateRequestDTO(), "")

		var response resdto.BookingResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &response)
		s.Equal(view.ID, response.ID)
	})

	s.Run("error: 400 Bad Request when no fields are provided", func() {
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPatch, "/bookings/"+uuid.NewString(),
			map[string]any{}, "")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusBadRequest, "VALIDATION")
	})

	s.Run("error: 409 Conflict when the booking is already cancelled", func() {
		id := uuid.New()
		s.mockCommands.EXPECT().UpdateBooking(gomock.Any(), s.scope, id, gomock.Any()).
			Return(nil, commands.ErrBookingCancelled).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPatch, "/bookings/"+id.String(),
			builder.NewBookingBuilder().BuildUpdateRequestDTO(), "")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusConflict, "ALREADY_CANCELLED")
	})

	s.Run("error: 409 Conflict when the target window is taken", func() {
		id := uuid.New()
		holder := shared.OverlapSnapshot{ID: uuid.New(), ClientName: "Ana Costa"}
		s.mockCommands.EXPECT().UpdateBooking(gomock.Any(), s.scope, id, gomock.Any()).
			Return(nil, &commands.ConflictError{With: holder}).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPatch, "/bookings/"+id.String(),
			builder.NewBookingBuilder().BuildUpdateRequestDTO(), "")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusConflict, "CONFLICT")
	})
}

func (s *BookingHandlerTestSuite) TestCancelBooking() {
	s.Run("success: returns 204 No Content", func() {
		id := uuid.New()
		s.mockCommands.EXPECT().CancelBooking(gomock.Any(), s.scope, id).
			Return(nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodDelete, "/bookings/"+id.String(), nil, "")
		s.Equal(http.StatusNoContent, rec.Code)
		s.Empty(rec.Body.String())
	})

	s.Run("error: 409 Conflict when the booking is already cancelled", func() {
		id := uuid.New()
		s.mockCommands.EXPECT().CancelBooking(gomock.Any(), s.scope, id).
			Return(commands.ErrAlreadyCancelled).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodDelete, "/bookings/"+id.String(), nil, "")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusConflict, "ALREADY_CANCELLED")
	})

	s.Run("error: 409 Conflict when an open tab blocks the cancellation", func() {
		id := uuid.New()
		s.mockCommands.EXPECT().CancelBooking(gomock.Any(), s.scope, id).
			Return(commands.ErrBlockedByOpenTab).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodDelete, "/bookings/"+id.String(), nil, "")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusConflict, "BLOCKED_BY_DEPENDENT_STATE")
	})

	s.Run("error: 404 Not Found for an unknown booking", func() {
		id := uuid.New()
		s.mockCommands.EXPECT().CancelBooking(gomock.Any(), s.scope, id).
			Return(commands.ErrBookingNotFound).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodDelete, "/bookings/"+id.String(), nil, "")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusNotFound, "NOT_FOUND")
	})
}

func (s *BookingHandlerTestSuite) TestGetGroup() {
	s.Run("success: returns 200 OK with the group summary", func() {
		view := builder.NewBookingBuilder().BuildGroupView("weekly", 8)
		s.mockQueries.EXPECT().GetGroup(gomock.Any(), s.scope.ComplexID, view.ID).
			Return(view, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/booking-groups/"+view.ID.String(), nil, "")

		var response resdto.GroupResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &response)
		s.Equal("weekly", response.Frequency)
		s.Equal(8, response.MemberCount)
	})

	s.Run("error: 404 Not Found for an unknown group", func() {
		id := uuid.New()
		s.mockQueries.EXPECT().GetGroup(gomock.Any(), s.scope.ComplexID, id).
			Return(nil, queries.ErrGroupNotFound).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/booking-groups/"+id.String(), nil, "")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusNotFound, "NOT_FOUND")
	})
}

func (s *BookingHandlerTestSuite) TestCancelGroup() {
	s.Run("success: returns 200 OK with the cancelled count", func() {
		id := uuid.New()
		s.mockCommands.EXPECT().CancelRecurringGroup(gomock.Any(), s.scope, id).
			Return(int64(5), nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodDelete, "/booking-groups/"+id.String(), nil, "")

		var response resdto.CancelGroupResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &response)
		s.Equal(id, response.GroupID)
		s.Equal(int64(5), response.CancelledCount)
	})

	s.Run("error: 409 Conflict when nothing remains to cancel", func() {
		id := uuid.New()
		s.mockCommands.EXPECT().CancelRecurringGroup(gomock.Any(), s.scope, id).
			Return(int64(0), commands.ErrAlreadyCancelled).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodDelete, "/booking-groups/"+id.String(), nil, "")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusConflict, "ALREADY_CANCELLED")
	})

	s.Run("error: 404 Not Found for an unknown group", func() {
		id := uuid.New()
		s.mockCommands.EXPECT().CancelRecurringGroup(gomock.Any(), s.scope, id).
			Return(int64(0), commands.ErrGroupNotFound).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodDelete, "/booking-groups/"+id.String(), nil, "")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusNotFound, "NOT_FOUND")
	})
}

func (s *BookingHandlerTestSuite) TestListCourtDay() {
	s.Run("success: returns 200 OK with the day schedule", func() {
		b := builder.NewBookingBuilder()
		items := []*queries.BookingListItem{b.BuildListItem()}
		day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

		s.mockQueries.EXPECT().ListByCourtDay(gomock.Any(), s.scope.ComplexID, b.CourtID, gomock.Any()).
			Return(items, nil).Times(1)

		url := fmt.Sprintf("/courts/%s/bookings?date=%s", b.CourtID, day.Format("2006-01-02"))
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, url, nil, "")

		var response []*resdto.BookingListResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &response)
		s.Len(response, 1)
		s.Equal(b.ClientName, response[0].ClientName)
	})

	s.Run("error: 400 Bad Request for a malformed date", func() {
		url := fmt.Sprintf("/courts/%s/bookings?date=02-03-2026", uuid.New())
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, url, nil, "")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusBadRequest, "VALIDATION")
	})
}

func (s *BookingHandlerTestSuite) TestCheckConflict() {
	s.Run("success: reports the slot holding the window", func() {
		b := builder.NewBookingBuilder()
		slot := b.BuildConflictingSlot()

		s.mockQueries.EXPECT().CheckConflict(gomock.Any(), s.scope.ComplexID, b.CourtID, gomock.Any(), gomock.Nil()).
			Return(&queries.ConflictView{Conflict: true, With: slot}, nil).Times(1)

		url := fmt.Sprintf("/courts/%s/conflict?start=%s&duration_minutes=90",
			b.CourtID, b.StartsAt.UTC().Format(time.RFC3339))
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, url, nil, "")

		var response resdto.ConflictCheckResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &response)
		s.True(response.Conflict)
		s.Require().NotNil(response.With)
		s.Equal(slot.ReservationID, response.With.ReservationID)
	})

	s.Run("success: reports a free window", func() {
		courtID := uuid.New()
		s.mockQueries.EXPECT().CheckConflict(gomock.Any(), s.scope.ComplexID, courtID, gomock.Any(), gomock.Nil()).
			Return(&queries.ConflictView{Conflict: false}, nil).Times(1)

		url := fmt.Sprintf("/courts/%s/conflict?start=%s&duration_minutes=60",
			courtID, time.Now().UTC().Format(time.RFC3339))
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, url, nil, "")

		var response resdto.ConflictCheckResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &response)
		s.False(response.Conflict)
		s.Nil(response.With)
	})

	s.Run("error: 404 Not Found for a court of another complex", func() {
		courtID := uuid.New()
		s.mockQueries.EXPECT().CheckConflict(gomock.Any(), s.scope.ComplexID, courtID, gomock.Any(), gomock.Nil()).
			Return(nil, queries.ErrCourtNotFound).Times(1)

		url := fmt.Sprintf("/courts/%s/conflict?start=%s&duration_minutes=60",
			courtID, time.Now().UTC().Format(time.RFC3339))
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, url, nil, "")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusNotFound, "NOT_FOUND")
	})

	s.Run("error: 400 Bad Request when the window is shorter than the minimum", func() {
		url := fmt.Sprintf("/courts/%s/conflict?start=%s&duration_minutes=15",
			uuid.New(), time.Now().UTC().Format(time.RFC3339))
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, url, nil, "")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusBadRequest, "VALIDATION")
	})

	s.Run("error: 400 Bad Request for a malformed start", func() {
		url := fmt.Sprintf("/courts/%s/conflict?start=yesterday&duration_minutes=60", uuid.New())
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, url, nil, "")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusBadRequest, "VALIDATION")
	})
}
