package schedule

import (
	"errors"
	"time"
)

var (
	ErrInvalidFrequency  = errors.New("invalid recurrence frequency")
	ErrSeriesEndTooEarly = errors.New("series end date before first occurrence")
	ErrAnchorMismatch    = errors.New("anchor weekday does not match first occurrence")
)

// MaxSeriesHorizon bounds how far a series may extend past its first
// occurrence, regardless of the requested end date.
const MaxSeriesHorizon = 365 * 24 * time.Hour

// Recurrence describes a weekly or monthly series ending at SeriesEnd.
// For weekly series the anchor weekday is the weekday of the first
// occurrence; AnchorWeekday, when set, must agree with it.
type Recurrence struct {
	Frequency     Frequency
	SeriesEnd     time.Time
	AnchorWeekday *time.Weekday
}

func (r Recurrence) Validate(first Interval) error {
	if !r.Frequency.IsValid() {
		return ErrInvalidFrequency
	}
	if r.SeriesEnd.Before(first.Start()) {
		return ErrSeriesEndTooEarly
	}
	if r.Frequency == FrequencyWeekly && r.AnchorWeekday != nil && *r.AnchorWeekday != first.Start().Weekday() {
		return ErrAnchorMismatch
	}
	return nil
}

// Expand generates the candidate occurrences of a series: the first
// interval, then one per cadence step, each keeping the first
// occurrence's duration. Expansion stops once a candidate start passes
// min(seriesEnd, first.Start()+MaxSeriesHorizon). Pure function of its
// inputs; returns nil when seriesEnd precedes the first occurrence.
func Expand(first Interval, freq Frequency, seriesEnd time.Time) []Interval {
	horizon := first.Start().Add(MaxSeriesHorizon)
	if seriesEnd.Before(horizon) {
		horizon = seriesEnd
	}
	if horizon.Before(first.Start()) {
		return nil
	}

	var out []Interval
	for step := 0; ; step++ {
		var candidate Interval
		switch freq {
		case FrequencyMonthly:
			candidate = first.ShiftMonths(step)
		default:
			candidate = first.Shift(time.Duration(step) * 7 * 24 * time.Hour)
		}
		if candidate.Start().After(horizon) {
			return out
		}
		out = append(out, candidate)
	}
}
