package response

import (
	"time"

	"courtdesk/internal/usecase/commands"
	"courtdesk/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

type BookingResponse struct {
	ID          uuid.UUID  `json:"id"`
	CourtID     uuid.UUID  `json:"courtId"`
	CourtName   string     `json:"courtName"`
	ClientID    uuid.UUID  `json:"clientId"`
	ClientName  string     `json:"clientName"`
	StartsAt    time.Time  `json:"startsAt"`
	EndsAt      time.Time  `json:"endsAt"`
	Status      string     `json:"status"`
	IsRecurring bool       `json:"isRecurring"`
	GroupID     *uuid.UUID `json:"groupId,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type BookingListResponse struct {
	ID         uuid.UUID `json:"id"`
	CourtID    uuid.UUID `json:"courtId"`
	ClientName string    `json:"clientName"`
	StartsAt   time.Time `json:"startsAt"`
	EndsAt     time.Time `json:"endsAt"`
	Status     string    `json:"status"`
}

type SeriesResponse struct {
	GroupID       uuid.UUID   `json:"groupId"`
	CreatedCount  int         `json:"createdCount"`
	SkippedCount  int         `json:"skippedCount"`
	SkippedStarts []time.Time `json:"skippedStarts,omitempty"`
}

type GroupResponse struct {
	ID          uuid.UUID `json:"id"`
	CourtID     uuid.UUID `json:"courtId"`
	ClientID    uuid.UUID `json:"clientId"`
	Frequency   string    `json:"frequency"`
	SeriesStart time.Time `json:"seriesStart"`
	SeriesEnd   time.Time `json:"seriesEnd"`
	MemberCount int       `json:"memberCount"`
}

type CancelGroupResponse struct {
	GroupID        uuid.UUID `json:"groupId"`
	CancelledCount int64     `json:"cancelledCount"`
}

type ConflictCheckResponse struct {
	Conflict bool                  `json:"conflict"`
	With     *ConflictingSlotModel `json:"with,omitempty"`
}

type ConflictingSlotModel struct {
	ReservationID uuid.UUID `json:"reservationId"`
	ClientName    string    `json:"clientName"`
	StartsAt      time.Time `json:"startsAt"`
	EndsAt        time.Time `json:"endsAt"`
}

func FromBookingView(rm *queries.BookingView) *BookingResponse {
	var resp BookingResponse
	_ = copier.Copy(&resp, rm)
	return &resp
}

func FromBookingListItem(rm *queries.BookingListItem) *BookingListResponse {
	var resp BookingListResponse
	_ = copier.Copy(&resp, rm)
	return &resp
}

func FromSeriesResult(sr *commands.SeriesResult) *SeriesResponse {
	var resp SeriesResponse
	_ = copier.Copy(&resp, sr)
	return &resp
}

func FromGroupView(rm *queries.GroupView) *GroupResponse {
	var resp GroupResponse
	_ = copier.Copy(&resp, rm)
	return &resp
}

func FromConflictView(rm *queries.ConflictView) *ConflictCheckResponse {
	resp := &ConflictCheckResponse{Conflict: rm.Conflict}
	if rm.With != nil {
		var with ConflictingSlotModel
		_ = copier.Copy(&with, rm.With)
		resp.With = &with
	}
	return resp
}
