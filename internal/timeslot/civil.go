package timeslot

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidDateFormat = errors.New("date must be a YYYY-MM-DD string")

// Date is a timezone-naive calendar date. Day-of-week and day arithmetic are
// computed from the date components directly, never through a
// timestamp-with-timezone round trip.
type Date struct {
	Year  int
	Month int
	Day   int
}

// ParseDate parses a strict "YYYY-MM-DD" string.
func ParseDate(s string) (Date, error) {
	if len(s) != 10 || s[4] != '-' || s[7] != '-' {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDateFormat, s)
	}
	y := 0
	for i := 0; i < 4; i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return Date{}, fmt.Errorf("%w: %q", ErrInvalidDateFormat, s)
		}
		y = y*10 + int(c-'0')
	}
	m, ok := twoDigits(s[5], s[6])
	if !ok || m < 1 || m > 12 {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDateFormat, s)
	}
	d, ok := twoDigits(s[8], s[9])
	if !ok || d < 1 || d > daysInMonth(y, m) {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDateFormat, s)
	}
	return Date{Year: y, Month: m, Day: d}, nil
}

// DateOf extracts the calendar date from a timestamp's UTC components.
func DateOf(t time.Time) Date {
	u := t.UTC()
	return Date{Year: u.Year(), Month: int(u.Month()), Day: u.Day()}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

func (d Date) IsZero() bool {
	return d == Date{}
}

var weekdayNames = [7]string{
	"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday",
}

// Weekday returns the weekday name using Sakamoto's method over the proleptic
// Gregorian calendar.
func (d Date) Weekday() string {
	t := [12]int{0, 3, 2, 5, 0, 3, 5, 1, 4, 6, 2, 4}
	y := d.Year
	if d.Month < 3 {
		y--
	}
	w := (y + y/4 - y/100 + y/400 + t[d.Month-1] + d.Day) % 7
	return weekdayNames[w]
}

// ValidWeekday reports whether name is one of the seven weekday names.
func ValidWeekday(name string) bool {
	for _, w := range weekdayNames {
		if w == name {
			return true
		}
	}
	return false
}

func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

func (d Date) After(other Date) bool {
	return other.Before(d)
}

// AddDays returns the date n days after d (n may be negative).
func (d Date) AddDays(n int) Date {
	return fromDayNumber(d.dayNumber() + n)
}

// At builds a UTC timestamp at the given minute of day. The service keeps all
// appointment timestamps in this naive-UTC convention.
func (d Date) At(minuteOfDay int) time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, minuteOfDay, 0, 0, time.UTC)
}

// dayNumber converts to days since the civil epoch 1970-01-01
// (Howard Hinnant's days_from_civil).
func (d Date) dayNumber() int {
	y := d.Year
	if d.Month <= 2 {
		y--
	}
	era := floorDiv(y, 400)
	yoe := y - era*400
	m := d.Month
	if m > 2 {
		m -= 3
	} else {
		m += 9
	}
	doy := (153*m+2)/5 + d.Day - 1
	doe := yoe*365 + yoe/4 - yoe/100 + doy
	return era*146097 + doe - 719468
}

func fromDayNumber(days int) Date {
	z := days + 719468
	era := floorDiv(z, 146097)
	doe := z - era*146097
	yoe := (doe - doe/1460 + doe/36524 - doe/146096) / 365
	y := yoe + era*400
	doy := doe - (365*yoe + yoe/4 - yoe/100)
	mp := (5*doy + 2) / 153
	day := doy - (153*mp+2)/5 + 1
	m := mp
	if mp < 10 {
		m += 3
	} else {
		m -= 9
	}
	if m <= 2 {
		y++
	}
	return Date{Year: y, Month: m, Day: day}
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b < 0 {
		q--
	}
	return q
}

func daysInMonth(year, month int) int {
	switch month {
	case 1, 3, 5, 7, 8, 10, 12:
		return 31
	case 4, 6, 9, 11:
		return 30
	}
	if isLeap(year) {
		return 29
	}
	return 28
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
