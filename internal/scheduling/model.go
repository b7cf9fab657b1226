package scheduling

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinic-scheduling/internal/timeslot"
)

type AvailabilityKind string

const (
	KindRecurring AvailabilityKind = "recurring"
	KindSingle    AvailabilityKind = "single"
)

type AppointmentStatus string

const (
	StatusScheduled  AppointmentStatus = "scheduled"
	StatusInProgress AppointmentStatus = "in_progress"
	StatusCompleted  AppointmentStatus = "completed"
	StatusCancelled  AppointmentStatus = "cancelled"
	StatusNoShow     AppointmentStatus = "no_show"
)

// ValidStatus reports whether s is one of the recognized appointment statuses.
func ValidStatus(s AppointmentStatus) bool {
	switch s {
	case StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

type Doctor struct {
	ID        uuid.UUID
	FirstName string
	LastName  string
	Specialty *string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (d *Doctor) DisplayName() string {
	return d.FirstName + " " + d.LastName
}

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TimeSlot is one contiguous time-of-day interval inside an Availability
// record. AppointmentID is a weak back-reference, set iff IsBooked; the
// Availability record owns the slot, not the appointment.
type TimeSlot struct {
	StartTime     string     `json:"start_time"`
	EndTime       string     `json:"end_time"`
	IsBooked      bool       `json:"is_booked"`
	AppointmentID *uuid.UUID `json:"appointment_id,omitempty"`
}

// Range parses the slot bounds into a TimeRange.
func (s TimeSlot) Range() (timeslot.TimeRange, error) {
	return timeslot.NewRange(s.StartTime, s.EndTime)
}

// Availability is one recurring weekly template or single-date override for a
// doctor. DayOfWeek is set iff Kind is recurring, Date iff Kind is single.
// An active single record with zero slots is an explicitly blocked day.
type Availability struct {
	ID        uuid.UUID
	DoctorID  uuid.UUID
	Kind      AvailabilityKind
	DayOfWeek string
	Date      timeslot.Date
	TimeSlots []TimeSlot
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FreeSlots returns the unbooked slots in insertion order.
func (a *Availability) FreeSlots() []TimeSlot {
	free := make([]TimeSlot, 0, len(a.TimeSlots))
	for _, s := range a.TimeSlots {
		if !s.IsBooked {
			free = append(free, s)
		}
	}
	return free
}

type Appointment struct {
	ID        uuid.UUID
	DoctorID  uuid.UUID
	PatientID uuid.UUID
	StartTime time.Time
	EndTime   time.Time
	Status    AppointmentStatus

	Summary  string
	Notes    string
	Symptoms string

	CancellationReason string
	CancelledBy        string
	CancelledAt        *time.Time

	NoShowReason   string
	MarkedNoShowAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
