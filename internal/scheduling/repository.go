package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinic-scheduling/internal/timeslot"
)

var (
	ErrDoctorNotFound       = errors.New("doctor not found")
	ErrPatientNotFound      = errors.New("patient not found")
	ErrAvailabilityNotFound = errors.New("availability record not found")
	ErrAppointmentNotFound  = errors.New("appointment not found")
)

// BookingCommit carries every write of one booking so the repository can
// apply them as a single transaction: the governing record with its
// post-split slots, the new appointment, and (when the governing record was
// a recurring template) the materialized single-date record.
type BookingCommit struct {
	Availability *Availability
	Appointment  *Appointment
	Materialized *Availability
}

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	// SearchDoctors matches name case-insensitively as a substring of the
	// first name, last name, or "first last" concatenation. An empty name
	// matches every doctor.
	SearchDoctors(ctx context.Context, name string) ([]Doctor, error)

	GetActiveSingle(ctx context.Context, doctorID uuid.UUID, date timeslot.Date) (*Availability, error)
	GetActiveRecurring(ctx context.Context, doctorID uuid.UUID, dayOfWeek string) (*Availability, error)
	ListActiveAvailability(ctx context.Context, doctorID uuid.UUID) ([]Availability, error)
	CreateAvailability(ctx context.Context, av *Availability) error
	DeactivateRecurring(ctx context.Context, doctorID uuid.UUID, dayOfWeek string) error
	DeactivateSingle(ctx context.Context, doctorID uuid.UUID, date timeslot.Date) error
	UpdateAvailabilitySlots(ctx context.Context, id uuid.UUID, slots []TimeSlot) error

	CommitBooking(ctx context.Context, commit BookingCommit) error

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	CancelAppointment(ctx context.Context, id uuid.UUID, reason, cancelledBy string, at time.Time) (*Appointment, error)
	MarkAppointmentNoShow(ctx context.Context, id uuid.UUID, reason string, at time.Time) (*Appointment, error)
	SetAppointmentStatus(ctx context.Context, id uuid.UUID, status AppointmentStatus) (*Appointment, error)
	ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error)
	ListAppointmentsByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]Appointment, error)

	InsertEvent(ctx context.Context, ev EventLog) error
}
