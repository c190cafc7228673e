package schedule

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrDurationTooShort = errors.New("interval shorter than minimum duration")
	ErrDurationTooLong  = errors.New("interval longer than maximum duration")
	ErrNonPositiveSpan  = errors.New("interval must end after it starts")
)

const (
	MinDuration = 30 * time.Minute
	MaxDuration = 12 * time.Hour
)

// Interval is a half-open time range [start, end). Two back-to-back
// intervals (one ending exactly when the next starts) do not overlap.
type Interval struct {
	start time.Time
	end   time.Time
}

func NewInterval(start time.Time, duration time.Duration) (Interval, error) {
	if duration <= 0 {
		return Interval{}, ErrNonPositiveSpan
	}
	if duration < MinDuration {
		return Interval{}, ErrDurationTooShort
	}
	if duration > MaxDuration {
		return Interval{}, ErrDurationTooLong
	}
	return Interval{start: start, end: start.Add(duration)}, nil
}

// NewIntervalFromBounds builds an interval from explicit bounds, applying
// the same duration limits as NewInterval.
func NewIntervalFromBounds(start, end time.Time) (Interval, error) {
	if !end.After(start) {
		return Interval{}, ErrNonPositiveSpan
	}
	return NewInterval(start, end.Sub(start))
}

func (iv Interval) Start() time.Time {
	return iv.start
}

func (iv Interval) End() time.Time {
	return iv.end
}

func (iv Interval) Duration() time.Duration {
	return iv.end.Sub(iv.start)
}

func (iv Interval) Overlaps(other Interval) bool {
	return iv.start.Before(other.end) && other.start.Before(iv.end)
}

func (iv Interval) Contains(t time.Time) bool {
	return !t.Before(iv.start) && t.Before(iv.end)
}

// Shift returns an interval of the same duration starting d later.
func (iv Interval) Shift(d time.Duration) Interval {
	return Interval{start: iv.start.Add(d), end: iv.end.Add(d)}
}

// ShiftMonths returns an interval of the same duration whose start is
// moved by whole calendar months, letting the day-of-month drift across
// shorter months the way time.AddDate does.
func (iv Interval) ShiftMonths(months int) Interval {
	start := iv.start.AddDate(0, months, 0)
	return Interval{start: start, end: start.Add(iv.Duration())}
}

func (iv Interval) String() string {
	return fmt.Sprintf("[%s,%s)", iv.start.Format(time.RFC3339), iv.end.Format(time.RFC3339))
}

// ToTstzrange renders the interval as a PostgreSQL tstzrange literal.
func (iv Interval) ToTstzrange() string {
	return fmt.Sprintf("[%s,%s)", iv.start.Format(time.RFC3339), iv.end.Format(time.RFC3339))
}
