package timeslot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-03-10")
	require.NoError(t, err)
	assert.Equal(t, Date{Year: 2026, Month: 3, Day: 10}, d)
	assert.Equal(t, "2026-03-10", d.String())
}

func TestParseDateRejectsMalformedInput(t *testing.T) {
	bad := []string{
		"",
		"2026-3-10",
		"2026/03/10",
		"20260310",
		"2026-13-01",
		"2026-00-10",
		"2026-02-30",
		"2025-02-29", // not a leap year
		"abcd-03-10",
	}
	for _, in := range bad {
		_, err := ParseDate(in)
		require.ErrorIs(t, err, ErrInvalidDateFormat, "input %q", in)
	}
}

func TestParseDateAcceptsLeapDay(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, Date{Year: 2024, Month: 2, Day: 29}, d)

	// Century rule: 2000 is a leap year, 1900 is not.
	_, err = ParseDate("2000-02-29")
	require.NoError(t, err)
	_, err = ParseDate("1900-02-29")
	require.ErrorIs(t, err, ErrInvalidDateFormat)
}

func TestWeekday(t *testing.T) {
	cases := []struct {
		date string
		want string
	}{
		{"2025-03-10", "Monday"},
		{"2025-03-11", "Tuesday"},
		{"2026-01-01", "Thursday"},
		{"2026-08-27", "Thursday"},
		{"2024-02-29", "Thursday"},
		{"2000-01-01", "Saturday"},
		{"1970-01-01", "Thursday"},
	}
	for _, tc := range cases {
		d, err := ParseDate(tc.date)
		require.NoError(t, err)
		assert.Equal(t, tc.want, d.Weekday(), tc.date)
	}
}

func TestWeekdayAgreesWithStdlib(t *testing.T) {
	// Walk a few years spanning leap boundaries and compare against time.Time.
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3*365; i++ {
		ts := start.AddDate(0, 0, i)
		d := DateOf(ts)
		assert.Equal(t, ts.Weekday().String(), d.Weekday(), d.String())
	}
}

func TestValidWeekday(t *testing.T) {
	for _, w := range []string{"Sunday", "Monday", "Saturday"} {
		assert.True(t, ValidWeekday(w))
	}
	for _, w := range []string{"monday", "Mon", "", "Funday"} {
		assert.False(t, ValidWeekday(w))
	}
}

func TestAddDays(t *testing.T) {
	cases := []struct {
		date string
		n    int
		want string
	}{
		{"2026-08-27", 1, "2026-08-28"},
		{"2026-08-31", 1, "2026-09-01"},
		{"2026-12-31", 1, "2027-01-01"},
		{"2024-02-28", 1, "2024-02-29"},
		{"2025-02-28", 1, "2025-03-01"},
		{"2026-01-01", -1, "2025-12-31"},
		{"2026-03-01", -1, "2026-02-28"},
		{"2026-08-27", 0, "2026-08-27"},
		{"2026-08-27", 365, "2027-08-27"},
		{"2024-01-01", 366, "2025-01-01"}, // leap year span
	}
	for _, tc := range cases {
		d, err := ParseDate(tc.date)
		require.NoError(t, err)
		assert.Equal(t, tc.want, d.AddDays(tc.n).String(), "%s + %d", tc.date, tc.n)
	}
}

func TestAddDaysAgreesWithStdlib(t *testing.T) {
	base := time.Date(2025, 12, 15, 0, 0, 0, 0, time.UTC)
	d := DateOf(base)
	for n := -400; n <= 400; n += 7 {
		want := DateOf(base.AddDate(0, 0, n))
		assert.Equal(t, want, d.AddDays(n), "n=%d", n)
	}
}

func TestBeforeAfter(t *testing.T) {
	a := Date{Year: 2026, Month: 3, Day: 10}
	b := Date{Year: 2026, Month: 3, Day: 11}
	c := Date{Year: 2026, Month: 4, Day: 1}

	assert.True(t, a.Before(b))
	assert.True(t, b.Before(c))
	assert.True(t, c.After(a))
	assert.False(t, a.Before(a))
	assert.False(t, a.After(a))
}

func TestAt(t *testing.T) {
	d := Date{Year: 2026, Month: 3, Day: 10}
	ts := d.At(9*60 + 30)
	assert.Equal(t, time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC), ts)
	assert.Equal(t, d, DateOf(ts))
}

func TestDateOfUsesUTCComponents(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*3600)
	// 02:00 on the 11th in UTC+10 is still the 10th in UTC.
	local := time.Date(2026, 3, 11, 2, 0, 0, 0, loc)
	assert.Equal(t, Date{Year: 2026, Month: 3, Day: 10}, DateOf(local))
}

func TestIsZero(t *testing.T) {
	assert.True(t, Date{}.IsZero())
	assert.False(t, Date{Year: 2026, Month: 1, Day: 1}.IsZero())
}
