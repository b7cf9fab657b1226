package scheduling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/clinic-scheduling/internal/timeslot"
)

func rng(t *testing.T, start, end string) timeslot.TimeRange {
	t.Helper()
	r, err := timeslot.NewRange(start, end)
	require.NoError(t, err)
	return r
}

func TestSplitSlotMiddleProducesThree(t *testing.T) {
	orig := rng(t, "09:00", "12:00")
	req := rng(t, "10:00", "10:30")

	out := SplitSlot(orig, req)
	require.Len(t, out, 3)

	assert.Equal(t, TimeSlot{StartTime: "09:00", EndTime: "10:00"}, out[0])
	assert.Equal(t, TimeSlot{StartTime: "10:00", EndTime: "10:30", IsBooked: true}, out[1])
	assert.Equal(t, TimeSlot{StartTime: "10:30", EndTime: "12:00"}, out[2])
}

func TestSplitSlotPrefixProducesTwo(t *testing.T) {
	orig := rng(t, "09:00", "12:00")
	req := rng(t, "09:00", "10:00")

	out := SplitSlot(orig, req)
	require.Len(t, out, 2)

	assert.Equal(t, TimeSlot{StartTime: "09:00", EndTime: "10:00", IsBooked: true}, out[0])
	assert.Equal(t, TimeSlot{StartTime: "10:00", EndTime: "12:00"}, out[1])
}

func TestSplitSlotSuffixProducesTwo(t *testing.T) {
	orig := rng(t, "09:00", "12:00")
	req := rng(t, "11:00", "12:00")

	out := SplitSlot(orig, req)
	require.Len(t, out, 2)

	assert.Equal(t, TimeSlot{StartTime: "09:00", EndTime: "11:00"}, out[0])
	assert.Equal(t, TimeSlot{StartTime: "11:00", EndTime: "12:00", IsBooked: true}, out[1])
}

func TestSplitSlotExactMatchProducesOne(t *testing.T) {
	orig := rng(t, "09:00", "12:00")

	out := SplitSlot(orig, orig)
	require.Len(t, out, 1)
	assert.Equal(t, TimeSlot{StartTime: "09:00", EndTime: "12:00", IsBooked: true}, out[0])
}

func TestSplitSlotCoversOriginalWithNoGapsOrOverlap(t *testing.T) {
	orig := rng(t, "08:15", "17:45")
	reqs := []struct{ start, end string }{
		{"08:15", "09:00"},
		{"09:00", "09:30"},
		{"17:00", "17:45"},
		{"12:00", "13:00"},
		{"08:15", "17:45"},
	}
	for _, tc := range reqs {
		out := SplitSlot(orig, rng(t, tc.start, tc.end))

		assert.Equal(t, "08:15", out[0].StartTime)
		assert.Equal(t, "17:45", out[len(out)-1].EndTime)
		for i := 1; i < len(out); i++ {
			assert.Equal(t, out[i-1].EndTime, out[i].StartTime,
				"slots must abut at %s-%s", tc.start, tc.end)
		}

		booked := 0
		for _, s := range out {
			if s.IsBooked {
				booked++
				assert.Equal(t, tc.start, s.StartTime)
				assert.Equal(t, tc.end, s.EndTime)
			}
		}
		assert.Equal(t, 1, booked)
	}
}

func TestSpliceSlotsPreservesOrder(t *testing.T) {
	slots := []TimeSlot{
		{StartTime: "08:00", EndTime: "09:00"},
		{StartTime: "09:00", EndTime: "12:00"},
		{StartTime: "13:00", EndTime: "17:00"},
	}
	replacement := []TimeSlot{
		{StartTime: "09:00", EndTime: "10:00"},
		{StartTime: "10:00", EndTime: "10:30", IsBooked: true},
		{StartTime: "10:30", EndTime: "12:00"},
	}

	out := spliceSlots(slots, 1, replacement)
	require.Len(t, out, 5)
	assert.Equal(t, "08:00", out[0].StartTime)
	assert.Equal(t, "09:00", out[1].StartTime)
	assert.Equal(t, "10:00", out[2].StartTime)
	assert.True(t, out[2].IsBooked)
	assert.Equal(t, "10:30", out[3].StartTime)
	assert.Equal(t, "13:00", out[4].StartTime)

	// The input slice is untouched.
	assert.Len(t, slots, 3)
	assert.Equal(t, "09:00", slots[1].StartTime)
	assert.Equal(t, "12:00", slots[1].EndTime)
}
