package schedule

import (
	"time"

	"github.com/google/uuid"
)

// RecurringGroup is the immutable metadata of one recurring booking
// request. Member reservations reference it; a group outlives the
// cancellation of its members and may own fewer reservations than
// calendar occurrences when conflicting ones were skipped.
type RecurringGroup struct {
	id          uuid.UUID
	courtID     uuid.UUID
	clientID    uuid.UUID
	frequency   Frequency
	seriesStart time.Time
	seriesEnd   time.Time
	createdAt   time.Time
}

func NewRecurringGroup(courtID, clientID uuid.UUID, freq Frequency, seriesStart, seriesEnd time.Time) (*RecurringGroup, error) {
	if !freq.IsValid() {
		return nil, ErrInvalidFrequency
	}
	if seriesEnd.Before(seriesStart) {
		return nil, ErrSeriesEndTooEarly
	}
	return &RecurringGroup{
		id:          uuid.New(),
		courtID:     courtID,
		clientID:    clientID,
		frequency:   freq,
		seriesStart: seriesStart,
		seriesEnd:   seriesEnd,
	}, nil
}

func ReconstructRecurringGroup(
	id, courtID, clientID uuid.UUID,
	freq Frequency,
	seriesStart, seriesEnd, createdAt time.Time,
) *RecurringGroup {
	return &RecurringGroup{
		id:          id,
		courtID:     courtID,
		clientID:    clientID,
		frequency:   freq,
		seriesStart: seriesStart,
		seriesEnd:   seriesEnd,
		createdAt:   createdAt,
	}
}

func (g *RecurringGroup) ID() uuid.UUID          { return g.id }
func (g *RecurringGroup) CourtID() uuid.UUID     { return g.courtID }
func (g *RecurringGroup) ClientID() uuid.UUID    { return g.clientID }
func (g *RecurringGroup) Frequency() Frequency   { return g.frequency }
func (g *RecurringGroup) SeriesStart() time.Time { return g.seriesStart }
func (g *RecurringGroup) SeriesEnd() time.Time   { return g.seriesEnd }
func (g *RecurringGroup) CreatedAt() time.Time   { return g.createdAt }
