package schedule

type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	switch s {
	case StatusConfirmed, StatusCancelled:
		return true
	default:
		return false
	}
}

type Frequency string

const (
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

func (f Frequency) String() string {
	return string(f)
}

func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyWeekly, FrequencyMonthly:
		return true
	default:
		return false
	}
}
