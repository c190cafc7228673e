//go:build unit || e2e

package builder

import (
	"time"

	reqdto "courtdesk/internal/handler/dto/request"
	"courtdesk/internal/usecase/queries"

	"github.com/google/uuid"
)

type BookingBuilder struct {
	ID              uuid.UUID
	CourtID         uuid.UUID
	CourtName       string
	ClientID        uuid.UUID
	ClientName      string
	StartsAt        time.Time
	DurationMinutes int
	Status          string
	GroupID         *uuid.UUID
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func NewBookingBuilder() *BookingBuilder {
	now := time.Now().Truncate(time.Second)
	return &BookingBuilder{
		ID:              uuid.New(),
		CourtID:         uuid.New(),
		CourtName:       "Court 1",
		ClientID:        uuid.New(),
		ClientName:      "Maria Santos",
		StartsAt:        now.Add(24 * time.Hour),
		DurationMinutes: 90,
		Status:          "confirmed",
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (b *BookingBuilder) With(mutate func(*BookingBuilder)) *BookingBuilder {
	mutate(b)
	return b
}

// Build methods
func (b *BookingBuilder) BuildCreateRequestDTO() reqdto.CreateBookingRequest {
	return reqdto.CreateBookingRequest{
		CourtID:         b.CourtID,
		ClientID:        b.ClientID,
		StartTime:       b.StartsAt,
		DurationMinutes: b.DurationMinutes,
	}
}

func (b *BookingBuilder) BuildRecurringRequestDTO(frequency string, endDate time.Time) reqdto.CreateBookingRequest {
	req := b.BuildCreateRequestDTO()
	req.Recurrence = &reqdto.RecurrenceRequest{
		Frequency: frequency,
		EndDate:   endDate,
	}
	return req
}

func (b *BookingBuilder) BuildUpdateRequestDTO() reqdto.UpdateBookingRequest {
	start := b.StartsAt
	minutes := b.DurationMinutes
	return reqdto.UpdateBookingRequest{
		StartTime:       &start,
		DurationMinutes: &minutes,
	}
}

func (b *BookingBuilder) BuildView() *queries.BookingView {
	return &queries.BookingView{
		ID:          b.ID,
		CourtID:     b.CourtID,
		CourtName:   b.CourtName,
		ClientID:    b.ClientID,
		ClientName:  b.ClientName,
		StartsAt:    b.StartsAt,
		EndsAt:      b.StartsAt.Add(time.Duration(b.DurationMinutes) * time.Minute),
		Status:      b.Status,
		IsRecurring: b.GroupID != nil,
		GroupID:     b.GroupID,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

func (b *BookingBuilder) BuildListItem() *queries.BookingListItem {
	return &queries.BookingListItem{
		ID:         b.ID,
		CourtID:    b.CourtID,
		ClientName: b.ClientName,
		StartsAt:   b.StartsAt,
		EndsAt:     b.StartsAt.Add(time.Duration(b.DurationMinutes) * time.Minute),
		Status:     b.Status,
	}
}

func (b *BookingBuilder) BuildGroupView(frequency string, memberCount int) *queries.GroupView {
	return &queries.GroupView{
		ID:          uuid.New(),
		CourtID:     b.CourtID,
		ClientID:    b.ClientID,
		Frequency:   frequency,
		SeriesStart: b.StartsAt,
		SeriesEnd:   b.StartsAt.AddDate(0, 2, 0),
		MemberCount: memberCount,
	}
}

func (b *BookingBuilder) BuildConflictingSlot() *queries.ConflictingSlot {
	return &queries.ConflictingSlot{
		ReservationID: b.ID,
		ClientName:    b.ClientName,
		StartsAt:      b.StartsAt,
		EndsAt:        b.StartsAt.Add(time.Duration(b.DurationMinutes) * time.Minute),
	}
}
