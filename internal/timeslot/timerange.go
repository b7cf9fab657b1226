package timeslot

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTimeFormat = errors.New("time must be an HH:MM 24-hour string")
	ErrInvalidTimeRange  = errors.New("start time must be before end time")
)

// ToMinutes parses an "HH:MM" wall-clock string into minutes since midnight.
func ToMinutes(hhmm string) (int, error) {
	if len(hhmm) != 5 || hhmm[2] != ':' {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, hhmm)
	}
	h, ok := twoDigits(hhmm[0], hhmm[1])
	if !ok || h > 23 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, hhmm)
	}
	m, ok := twoDigits(hhmm[3], hhmm[4])
	if !ok || m > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, hhmm)
	}
	return h*60 + m, nil
}

// FormatMinutes renders minutes since midnight back into "HH:MM".
func FormatMinutes(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

func twoDigits(a, b byte) (int, bool) {
	if a < '0' || a > '9' || b < '0' || b > '9' {
		return 0, false
	}
	return int(a-'0')*10 + int(b-'0'), true
}

// TimeRange is a half-open [Start, End) wall-clock interval in minutes since
// midnight. Start < End always holds for ranges built through NewRange.
type TimeRange struct {
	Start int
	End   int
}

// NewRange parses a pair of "HH:MM" strings into a TimeRange.
func NewRange(start, end string) (TimeRange, error) {
	s, err := ToMinutes(start)
	if err != nil {
		return TimeRange{}, err
	}
	e, err := ToMinutes(end)
	if err != nil {
		return TimeRange{}, err
	}
	if s >= e {
		return TimeRange{}, fmt.Errorf("%w: %s-%s", ErrInvalidTimeRange, start, end)
	}
	return TimeRange{Start: s, End: e}, nil
}

// Contains reports whether inner lies entirely within r.
func (r TimeRange) Contains(inner TimeRange) bool {
	return inner.Start >= r.Start && inner.End <= r.End
}

// Overlaps reports whether r and other share any minute.
func (r TimeRange) Overlaps(other TimeRange) bool {
	return r.Start < other.End && other.Start < r.End
}

func (r TimeRange) DurationMinutes() int {
	return r.End - r.Start
}

func (r TimeRange) String() string {
	return FormatMinutes(r.Start) + "-" + FormatMinutes(r.End)
}
