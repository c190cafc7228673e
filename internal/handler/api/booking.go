package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"courtdesk/internal/domain/schedule"
	reqdto "courtdesk/internal/handler/dto/request"
	resdto "courtdesk/internal/handler/dto/response"
	"courtdesk/internal/handler/httperr"
	"courtdesk/internal/handler/middleware"
	"courtdesk/internal/usecase/commands"
	"courtdesk/internal/usecase/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type BookingHandler struct {
	commands commands.BookingCommands
	queries  queries.BookingQueries
}

func NewBookingHandler(cmds commands.BookingCommands, q queries.BookingQueries) *BookingHandler {
	return &BookingHandler{commands: cmds, queries: q}
}

// @Summary Create booking
// @Description Book a court slot, optionally as a weekly or monthly recurring series
// @Tags bookings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string true "Idempotency key for duplicate prevention"
// @Param request body reqdto.CreateBookingRequest true "Booking request"
// @Success 201 {object} resdto.BookingResponse
// @Failure 400 {object} httperr.Response
// @Failure 401 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Failure 422 {object} httperr.Response
// @Router /bookings [post]
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	scope, ok := middleware.GetScope(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	idempotencyKey, err := getIdempotencyKey(c)
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, httperr.CodeValidation, err, err.Error(), nil)
		return
	}

	var req reqdto.CreateBookingRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, httperr.CodeValidation, bindErr, "Invalid request format", nil)
		return
	}

	cmd, err := req.ToCommand()
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, httperr.CodeValidation, err, err.Error(), nil)
		return
	}

	result, err := h.commands.CreateBooking(c.Request.Context(), scope, cmd, idempotencyKey)
	if err != nil {
		h.abortBookingError(c, err)
		return
	}

	status := http.StatusCreated
	if result.IsReplayed {
		status = http.StatusOK
	}
	if result.Series != nil {
		c.JSON(status, resdto.FromSeriesResult(result.Series))
		return
	}
	c.JSON(status, resdto.FromBookingView(result.Booking))
}

// @Summary Get booking
// @Tags bookings
// @Produce json
// @Security BearerAuth
// @Param id path string true "Booking ID"
// @Success 200 {object} resdto.BookingResponse
// @Failure 404 {object} httperr.Response
// @Router /bookings/{id} [get]
func (h *BookingHandler) GetBooking(c *gin.Context) {
	scope, ok := middleware.GetScope(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, httperr.CodeValidation, err, "Invalid booking ID format", nil)
		return
	}

	view, err := h.queries.GetByID(c.Request.Context(), scope.ComplexID, id)
	if err != nil {
		h.abortBookingError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromBookingView(view))
}

// @Summary Reschedule booking
// @Description Move a booking to a new start time and/or duration
// @Tags bookings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Booking ID"
// @Param request body reqdto.UpdateBookingRequest true "Fields to change"
// @Success 200 {object} resdto.BookingResponse
// @Failure 400 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Router /bookings/{id} [patch]
func (h *BookingHandler) UpdateBooking(c *gin.Context) {
	scope, ok := middleware.GetScope(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, httperr.CodeValidation, err, "Invalid booking ID format", nil)
		return
	}

	var req reqdto.UpdateBookingRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, httperr.CodeValidation, bindErr, "Invalid request format", nil)
		return
	}

	cmd, err := req.ToCommand()
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, httperr.CodeValidation, err, err.Error(), nil)
		return
	}

	view, err := h.commands.UpdateBooking(c.Request.Context(), scope, id, cmd)
	if err != nil {
		h.abortBookingError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromBookingView(view))
}

// @Summary Cancel booking
// @Tags bookings
// @Security BearerAuth
// @Param id path string true "Booking ID"
// @Success 204
// @Failure 404 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Router /bookings/{id} [delete]
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	scope, ok := middleware.GetScope(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, httperr.CodeValidation, err, "Invalid booking ID format", nil)
		return
	}

	if err := h.commands.CancelBooking(c.Request.Context(), scope, id); err != nil {
		h.abortBookingError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary Get recurring group
// @Tags booking-groups
// @Produce json
// @Security BearerAuth
// @Param id path string true "Group ID"
// @Success 200 {object} resdto.GroupResponse
// @Failure 404 {object} httperr.Response
// @Router /booking-groups/{id} [get]
func (h *BookingHandler) GetGroup(c *gin.Context) {
	scope, ok := middleware.GetScope(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, httperr.CodeValidation, err, "Invalid group ID format", nil)
		return
	}

	view, err := h.queries.GetGroup(c.Request.Context(), scope.ComplexID, id)
	if err != nil {
		h.abortBookingError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromGroupView(view))
}

// @Summary Cancel recurring group
// @Description Cancel all future members of a recurring series; past members are untouched
// @Tags booking-groups
// @Produce json
// @Security BearerAuth
// @Param id path string true "Group ID"
// @Success 200 {object} resdto.CancelGroupResponse
// @Failure 404 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Router /booking-groups/{id} [delete]
func (h *BookingHandler) CancelGroup(c *gin.Context) {
	scope, ok := middleware.GetScope(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, httperr.CodeValidation, err, "Invalid group ID format", nil)
		return
	}

	count, err := h.commands.CancelRecurringGroup(c.Request.Context(), scope, id)
	if err != nil {
		h.abortBookingError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.CancelGroupResponse{GroupID: id, CancelledCount: count})
}

// @Summary List court bookings for a day
// @Tags courts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Court ID"
// @Param date query string true "Day (YYYY-MM-DD)"
// @Success 200 {array} resdto.BookingListResponse
// @Failure 400 {object} httperr.Response
// @Router /courts/{id}/bookings [get]
func (h *BookingHandler) ListCourtDay(c *gin.Context) {
	scope, ok := middleware.GetScope(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	courtID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, httperr.CodeValidation, err, "Invalid court ID format", nil)
		return
	}

	day, err := time.Parse("2006-01-02", c.Query("date"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, httperr.CodeValidation, err, "Invalid date, expected YYYY-MM-DD", nil)
		return
	}

	items, err := h.queries.ListByCourtDay(c.Request.Context(), scope.ComplexID, courtID, day)
	if err != nil {
		h.abortBookingError(c, err)
		return
	}

	response := make([]*resdto.BookingListResponse, len(items))
	for i, item := range items {
		response[i] = resdto.FromBookingListItem(item)
	}
	c.JSON(http.StatusOK, response)
}

// @Summary Probe a window for conflicts
// @Description Report whether a court window is taken without creating anything
// @Tags courts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Court ID"
// @Param start query string true "Window start (RFC3339)"
// @Param duration_minutes query int true "Window length in minutes"
// @Param exclude query string false "Reservation ID to ignore"
// @Success 200 {object} resdto.ConflictCheckResponse
// @Failure 400 {object} httperr.Response
// @Router /courts/{id}/conflict [get]
func (h *BookingHandler) CheckConflict(c *gin.Context) {
	scope, ok := middleware.GetScope(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	courtID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, httperr.CodeValidation, err, "Invalid court ID format", nil)
		return
	}

	start, err := time.Parse(time.RFC3339, c.Query("start"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, httperr.CodeValidation, err, "Invalid start, expected RFC3339", nil)
		return
	}

	minutes, err := strconv.Atoi(c.Query("duration_minutes"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, httperr.CodeValidation, err, "Invalid duration_minutes", nil)
		return
	}

	iv, err := schedule.NewInterval(start, time.Duration(minutes)*time.Minute)
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, httperr.CodeValidation, err, "Invalid window", nil)
		return
	}

	var excludeID *uuid.UUID
	if exclude := c.Query("exclude"); exclude != "" {
		id, perr := uuid.Parse(exclude)
		if perr != nil {
			httperr.AbortWithError(c, http.StatusBadRequest, httperr.CodeValidation, perr, "Invalid exclude ID", nil)
			return
		}
		excludeID = &id
	}

	view, err := h.queries.CheckConflict(c.Request.Context(), scope.ComplexID, courtID, iv, excludeID)
	if err != nil {
		h.abortBookingError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromConflictView(view))
}

// abortBookingError maps command and query failures onto the API error
// taxonomy. Conflicts carry the colliding slot as detail.
func (h *BookingHandler) abortBookingError(c *gin.Context, err error) {
	var conflictErr *commands.ConflictError

	switch {
	case errors.Is(err, commands.ErrCourtNotFound), errors.Is(err, queries.ErrCourtNotFound):
		httperr.AbortWithError(c, http.StatusNotFound, httperr.CodeNotFound, err, "Court not found", nil)
	case errors.Is(err, commands.ErrClientNotFound):
		httperr.AbortWithError(c, http.StatusNotFound, httperr.CodeNotFound, err, "Client not found", nil)
	case errors.Is(err, commands.ErrBookingNotFound), errors.Is(err, queries.ErrBookingNotFound):
		httperr.AbortWithError(c, http.StatusNotFound, httperr.CodeNotFound, err, "Booking not found", nil)
	case errors.Is(err, commands.ErrGroupNotFound), errors.Is(err, queries.ErrGroupNotFound):
		httperr.AbortWithError(c, http.StatusNotFound, httperr.CodeNotFound, err, "Recurring group not found", nil)
	case errors.Is(err, commands.ErrCourtUnavailable),
		errors.Is(err, commands.ErrInvalidDuration),
		errors.Is(err, commands.ErrRetroactiveStart),
		errors.Is(err, commands.ErrInvalidRecurrence):
		httperr.AbortWithError(c, http.StatusBadRequest, httperr.CodeValidation, err, err.Error(), nil)
	case errors.Is(err, commands.ErrBookingConflict):
		var detail any
		if errors.As(err, &conflictErr) {
			detail = gin.H{
				"reservation_id": conflictErr.With.ID,
				"client_name":    conflictErr.With.ClientName,
				"starts_at":      conflictErr.With.StartsAt,
				"ends_at":        conflictErr.With.EndsAt,
			}
		}
		httperr.AbortWithError(c, http.StatusConflict, httperr.CodeConflict, err, "Requested window is already booked", detail)
	case errors.Is(err, commands.ErrNoAvailability):
		httperr.AbortWithError(c, http.StatusUnprocessableEntity, httperr.CodeNoAvailability, err, "No occurrence in the series could be booked", nil)
	case errors.Is(err, commands.ErrAlreadyCancelled):
		httperr.AbortWithError(c, http.StatusConflict, httperr.CodeAlreadyCancelled, err, "Booking is already cancelled", nil)
	case errors.Is(err, commands.ErrBookingCancelled):
		httperr.AbortWithError(c, http.StatusConflict, httperr.CodeAlreadyCancelled, err, "Cancelled bookings cannot be edited", nil)
	case errors.Is(err, commands.ErrBlockedByOpenTab):
		httperr.AbortWithError(c, http.StatusConflict, httperr.CodeBlocked, err, "Booking has an open tab; settle it first", nil)
	case errors.Is(err, commands.ErrDuplicateRequest):
		httperr.AbortWithError(c, http.StatusConflict, httperr.CodeConflict, err, "Duplicate booking request with different parameters", nil)
	case errors.Is(err, commands.ErrIdempotencyInProgress):
		httperr.AbortWithError(c, http.StatusConflict, httperr.CodeConflict, err, "Booking request is currently being processed", nil)
	default:
		httperr.AbortWithError(c, http.StatusInternalServerError, httperr.CodePersistence, err, "Internal server error", nil)
	}
}

func getIdempotencyKey(c *gin.Context) (uuid.UUID, error) {
	keyStr := c.GetHeader("Idempotency-Key")
	if keyStr == "" {
		return uuid.Nil, errors.New("Idempotency-Key header required")
	}

	key, err := uuid.Parse(keyStr)
	if err != nil {
		return uuid.Nil, errors.New("invalid idempotency key format")
	}
	return key, nil
}
