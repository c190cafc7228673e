package request

import (
	"errors"
	"strings"
	"time"

	"courtdesk/internal/domain/schedule"
	"courtdesk/internal/usecase/commands"

	"github.com/google/uuid"
)

type CreateBookingRequest struct {
	CourtID         uuid.UUID          `json:"court_id" binding:"required"`
	ClientID        uuid.UUID          `json:"client_id" binding:"required"`
	StartTime       time.Time          `json:"start_time" binding:"required"`
	DurationMinutes int                `json:"duration_minutes" binding:"required,min=1"`
	Recurrence      *RecurrenceRequest `json:"recurrence,omitempty"`
}

type RecurrenceRequest struct {
	Frequency     string    `json:"frequency" binding:"required,oneof=weekly monthly"`
	EndDate       time.Time `json:"end_date" binding:"required"`
	AnchorWeekday *string   `json:"anchor_weekday,omitempty"`
}

type UpdateBookingRequest struct {
	StartTime       *time.Time `json:"start_time,omitempty"`
	DurationMinutes *int       `json:"duration_minutes,omitempty"`
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func (r CreateBookingRequest) ToCommand() (commands.CreateBookingRequest, error) {
	cmd := commands.CreateBookingRequest{
		CourtID:  r.CourtID,
		ClientID: r.ClientID,
		StartsAt: r.StartTime,
		Duration: time.Duration(r.DurationMinutes) * time.Minute,
	}

	if r.Recurrence != nil {
		spec := commands.RecurrenceSpec{
			Frequency: schedule.Frequency(r.Recurrence.Frequency),
			SeriesEnd: r.Recurrence.EndDate,
		}
		if r.Recurrence.AnchorWeekday != nil {
			wd, ok := weekdays[strings.ToLower(strings.TrimSpace(*r.Recurrence.AnchorWeekday))]
			if !ok {
				return commands.CreateBookingRequest{}, errors.New("invalid anchor weekday")
			}
			spec.AnchorWeekday = &wd
		}
		cmd.Recurrence = &spec
	}

	return cmd, nil
}

func (r UpdateBookingRequest) ToCommand() (commands.UpdateBookingRequest, error) {
	if r.StartTime == nil && r.DurationMinutes == nil {
		return commands.UpdateBookingRequest{}, errors.New("no fields to update")
	}

	cmd := commands.UpdateBookingRequest{StartsAt: r.StartTime}
	if r.DurationMinutes != nil {
		d := time.Duration(*r.DurationMinutes) * time.Minute
		cmd.Duration = &d
	}
	return cmd, nil
}
