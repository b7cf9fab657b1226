package timeslot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMinutes(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"00:00", 0},
		{"09:00", 540},
		{"09:30", 570},
		{"12:05", 725},
		{"23:59", 1439},
	}
	for _, tc := range cases {
		got, err := ToMinutes(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestToMinutesRejectsMalformedInput(t *testing.T) {
	bad := []string{
		"",
		"9:00",
		"09:0",
		"0900",
		"09-00",
		"24:00",
		"12:60",
		"ab:cd",
		"09:00 ",
		" 09:00",
	}
	for _, in := range bad {
		_, err := ToMinutes(in)
		require.ErrorIs(t, err, ErrInvalidTimeFormat, "input %q", in)
	}
}

func TestFormatMinutesRoundTrips(t *testing.T) {
	for _, m := range []int{0, 1, 59, 60, 540, 570, 1439} {
		s := FormatMinutes(m)
		back, err := ToMinutes(s)
		require.NoError(t, err)
		assert.Equal(t, m, back)
	}
}

func TestNewRange(t *testing.T) {
	r, err := NewRange("09:00", "12:30")
	require.NoError(t, err)
	assert.Equal(t, 540, r.Start)
	assert.Equal(t, 750, r.End)
	assert.Equal(t, 210, r.DurationMinutes())
	assert.Equal(t, "09:00-12:30", r.String())
}

func TestNewRangeRejectsInvertedAndZeroLength(t *testing.T) {
	_, err := NewRange("12:00", "09:00")
	require.ErrorIs(t, err, ErrInvalidTimeRange)

	_, err = NewRange("09:00", "09:00")
	require.ErrorIs(t, err, ErrInvalidTimeRange)
}

func TestNewRangePropagatesFormatErrors(t *testing.T) {
	_, err := NewRange("9am", "12:00")
	require.ErrorIs(t, err, ErrInvalidTimeFormat)

	_, err = NewRange("09:00", "noon!")
	require.ErrorIs(t, err, ErrInvalidTimeFormat)
}

func TestContains(t *testing.T) {
	outer, err := NewRange("09:00", "12:00")
	require.NoError(t, err)

	cases := []struct {
		start, end string
		want       bool
	}{
		{"09:00", "12:00", true},
		{"09:30", "10:00", true},
		{"09:00", "09:30", true},
		{"11:30", "12:00", true},
		{"08:30", "09:30", false},
		{"11:30", "12:30", false},
		{"13:00", "14:00", false},
	}
	for _, tc := range cases {
		inner, err := NewRange(tc.start, tc.end)
		require.NoError(t, err)
		assert.Equal(t, tc.want, outer.Contains(inner), "%s-%s", tc.start, tc.end)
	}
}

func TestOverlapsIsHalfOpen(t *testing.T) {
	a, err := NewRange("09:00", "10:00")
	require.NoError(t, err)
	b, err := NewRange("10:00", "11:00")
	require.NoError(t, err)

	// Back-to-back ranges share a boundary but no minutes.
	assert.False(t, a.Overlaps(b))
	assert.False(t, b.Overlaps(a))

	c, err := NewRange("09:30", "10:30")
	require.NoError(t, err)
	assert.True(t, a.Overlaps(c))
	assert.True(t, c.Overlaps(a))
}
