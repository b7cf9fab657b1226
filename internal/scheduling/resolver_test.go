package scheduling

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/clinic-scheduling/internal/timeslot"
)

func availabilityWith(kind AvailabilityKind, slots ...TimeSlot) *Availability {
	return &Availability{
		ID:        uuid.New(),
		DoctorID:  uuid.New(),
		Kind:      kind,
		TimeSlots: slots,
		IsActive:  true,
	}
}

func TestResolveDaySingleWinsOverRecurring(t *testing.T) {
	single := availabilityWith(KindSingle, TimeSlot{StartTime: "10:00", EndTime: "14:00"})
	recurring := availabilityWith(KindRecurring, TimeSlot{StartTime: "09:00", EndTime: "17:00"})

	day := ResolveDay(single, recurring)
	assert.Equal(t, SourceSingle, day.Source)
	require.Len(t, day.Slots, 1)
	assert.Equal(t, "10:00", day.Slots[0].StartTime)
	assert.True(t, day.Available())
}

func TestResolveDayEmptySingleIsBlockedDay(t *testing.T) {
	single := availabilityWith(KindSingle)
	recurring := availabilityWith(KindRecurring, TimeSlot{StartTime: "09:00", EndTime: "17:00"})

	// An explicit blocked day never falls through to the weekly template.
	day := ResolveDay(single, recurring)
	assert.Equal(t, SourceNone, day.Source)
	assert.Empty(t, day.Slots)
	assert.False(t, day.Available())
}

func TestResolveDayFallsThroughToRecurring(t *testing.T) {
	recurring := availabilityWith(KindRecurring, TimeSlot{StartTime: "09:00", EndTime: "17:00"})

	day := ResolveDay(nil, recurring)
	assert.Equal(t, SourceRecurring, day.Source)
	require.Len(t, day.Slots, 1)
	assert.True(t, day.Available())
}

func TestResolveDayNoRecords(t *testing.T) {
	day := ResolveDay(nil, nil)
	assert.Equal(t, SourceNone, day.Source)
	assert.NotNil(t, day.Slots)
	assert.False(t, day.Available())
}

func TestResolveDayFiltersBookedSlots(t *testing.T) {
	apptID := uuid.New()
	single := availabilityWith(KindSingle,
		TimeSlot{StartTime: "09:00", EndTime: "10:00", IsBooked: true, AppointmentID: &apptID},
		TimeSlot{StartTime: "10:00", EndTime: "12:00"},
	)

	day := ResolveDay(single, nil)
	assert.Equal(t, SourceSingle, day.Source)
	require.Len(t, day.Slots, 1)
	assert.Equal(t, "10:00", day.Slots[0].StartTime)
}

func TestResolveDayFullyBookedSingleIsUnavailableButNotBlocked(t *testing.T) {
	apptID := uuid.New()
	single := availabilityWith(KindSingle,
		TimeSlot{StartTime: "09:00", EndTime: "17:00", IsBooked: true, AppointmentID: &apptID},
	)

	day := ResolveDay(single, nil)
	assert.Equal(t, SourceSingle, day.Source)
	assert.Empty(t, day.Slots)
	assert.False(t, day.Available())
}

func TestGoverningRecord(t *testing.T) {
	single := availabilityWith(KindSingle, TimeSlot{StartTime: "10:00", EndTime: "14:00"})
	recurring := availabilityWith(KindRecurring, TimeSlot{StartTime: "09:00", EndTime: "17:00"})

	rec, src := GoverningRecord(single, recurring)
	assert.Same(t, single, rec)
	assert.Equal(t, SourceSingle, src)

	rec, src = GoverningRecord(nil, recurring)
	assert.Same(t, recurring, rec)
	assert.Equal(t, SourceRecurring, src)

	rec, src = GoverningRecord(nil, nil)
	assert.Nil(t, rec)
	assert.Equal(t, SourceNone, src)
}

func TestGoverningRecordBlockedDayYieldsNothing(t *testing.T) {
	blocked := availabilityWith(KindSingle)
	recurring := availabilityWith(KindRecurring, TimeSlot{StartTime: "09:00", EndTime: "17:00"})

	rec, src := GoverningRecord(blocked, recurring)
	assert.Nil(t, rec)
	assert.Equal(t, SourceNone, src)
}

func TestResolveRangeRejectsInvertedSpan(t *testing.T) {
	repo := NewMemoryRepository()
	doc := Doctor{ID: uuid.New(), FirstName: "Ana", LastName: "Reyes"}
	repo.AddDoctor(doc)
	svc := newTestService(repo)

	from := timeslot.Date{Year: 2026, Month: 9, Day: 10}
	to := timeslot.Date{Year: 2026, Month: 9, Day: 8}
	_, err := svc.ResolveRange(context.Background(), doc.ID, from, to)
	require.ErrorIs(t, err, ErrInvalidDateRange)
}
