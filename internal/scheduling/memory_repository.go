package scheduling

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinic-scheduling/internal/timeslot"
)

// MemoryRepository is an in-memory Repository used by tests and local runs.
// It reproduces the load-modify-save semantics of the Postgres repository:
// reads hand out copies, writes replace whole records.
type MemoryRepository struct {
	mu           sync.RWMutex
	doctors      map[uuid.UUID]Doctor
	patients     map[uuid.UUID]Patient
	availability []*Availability
	appointments map[uuid.UUID]*Appointment
	events       []EventLog
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		doctors:      make(map[uuid.UUID]Doctor),
		patients:     make(map[uuid.UUID]Patient),
		appointments: make(map[uuid.UUID]*Appointment),
	}
}

// AddDoctor registers a doctor in the directory.
func (r *MemoryRepository) AddDoctor(d Doctor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.doctors[d.ID] = d
}

// AddPatient registers a patient in the directory.
func (r *MemoryRepository) AddPatient(p Patient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patients[p.ID] = p
}

// Events returns a copy of the recorded event log.
func (r *MemoryRepository) Events() []EventLog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]EventLog, len(r.events))
	copy(out, r.events)
	return out
}

func (r *MemoryRepository) GetDoctorByID(_ context.Context, id uuid.UUID) (*Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	return &d, nil
}

func (r *MemoryRepository) GetPatientByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return &p, nil
}

func (r *MemoryRepository) SearchDoctors(_ context.Context, name string) ([]Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	needle := strings.ToLower(name)
	var result []Doctor
	for _, d := range r.doctors {
		if needle == "" ||
			strings.Contains(strings.ToLower(d.FirstName), needle) ||
			strings.Contains(strings.ToLower(d.LastName), needle) ||
			strings.Contains(strings.ToLower(d.DisplayName()), needle) {
			result = append(result, d)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].LastName != result[j].LastName {
			return result[i].LastName < result[j].LastName
		}
		return result[i].FirstName < result[j].FirstName
	})
	return result, nil
}

func (r *MemoryRepository) GetActiveSingle(_ context.Context, doctorID uuid.UUID, date timeslot.Date) (*Availability, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.availability {
		if a.IsActive && a.Kind == KindSingle && a.DoctorID == doctorID && a.Date == date {
			return copyAvailability(a), nil
		}
	}
	return nil, ErrAvailabilityNotFound
}

func (r *MemoryRepository) GetActiveRecurring(_ context.Context, doctorID uuid.UUID, dayOfWeek string) (*Availability, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.availability {
		if a.IsActive && a.Kind == KindRecurring && a.DoctorID == doctorID && a.DayOfWeek == dayOfWeek {
			return copyAvailability(a), nil
		}
	}
	return nil, ErrAvailabilityNotFound
}

func (r *MemoryRepository) ListActiveAvailability(_ context.Context, doctorID uuid.UUID) ([]Availability, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []Availability
	for _, a := range r.availability {
		if a.IsActive && a.DoctorID == doctorID {
			result = append(result, *copyAvailability(a))
		}
	}
	return result, nil
}

func (r *MemoryRepository) CreateAvailability(_ context.Context, av *Availability) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createAvailabilityLocked(av)
	return nil
}

func (r *MemoryRepository) createAvailabilityLocked(av *Availability) {
	now := time.Now().UTC()
	stored := copyAvailability(av)
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.availability = append(r.availability, stored)
}

func (r *MemoryRepository) DeactivateRecurring(_ context.Context, doctorID uuid.UUID, dayOfWeek string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.availability {
		if a.IsActive && a.Kind == KindRecurring && a.DoctorID == doctorID && a.DayOfWeek == dayOfWeek {
			a.IsActive = false
			a.UpdatedAt = time.Now().UTC()
		}
	}
	return nil
}

func (r *MemoryRepository) DeactivateSingle(_ context.Context, doctorID uuid.UUID, date timeslot.Date) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.availability {
		if a.IsActive && a.Kind == KindSingle && a.DoctorID == doctorID && a.Date == date {
			a.IsActive = false
			a.UpdatedAt = time.Now().UTC()
		}
	}
	return nil
}

func (r *MemoryRepository) UpdateAvailabilitySlots(_ context.Context, id uuid.UUID, slots []TimeSlot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updateSlotsLocked(id, slots)
}

func (r *MemoryRepository) updateSlotsLocked(id uuid.UUID, slots []TimeSlot) error {
	for _, a := range r.availability {
		if a.ID == id {
			a.TimeSlots = cloneSlots(slots)
			a.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return ErrAvailabilityNotFound
}

func (r *MemoryRepository) CommitBooking(_ context.Context, commit BookingCommit) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.updateSlotsLocked(commit.Availability.ID, commit.Availability.TimeSlots); err != nil {
		return err
	}

	now := time.Now().UTC()
	appt := *commit.Appointment
	appt.CreatedAt = now
	appt.UpdatedAt = now
	r.appointments[appt.ID] = &appt

	if commit.Materialized != nil {
		r.createAvailabilityLocked(commit.Materialized)
	}
	return nil
}

func (r *MemoryRepository) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	out := *a
	return &out, nil
}

func (r *MemoryRepository) CancelAppointment(_ context.Context, id uuid.UUID, reason, cancelledBy string, at time.Time) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	a.Status = StatusCancelled
	a.CancellationReason = reason
	a.CancelledBy = cancelledBy
	cancelledAt := at
	a.CancelledAt = &cancelledAt
	a.UpdatedAt = time.Now().UTC()
	out := *a
	return &out, nil
}

func (r *MemoryRepository) MarkAppointmentNoShow(_ context.Context, id uuid.UUID, reason string, at time.Time) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	a.Status = StatusNoShow
	a.NoShowReason = reason
	markedAt := at
	a.MarkedNoShowAt = &markedAt
	a.UpdatedAt = time.Now().UTC()
	out := *a
	return &out, nil
}

func (r *MemoryRepository) SetAppointmentStatus(_ context.Context, id uuid.UUID, status AppointmentStatus) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	a.Status = status
	a.UpdatedAt = time.Now().UTC()
	out := *a
	return &out, nil
}

func (r *MemoryRepository) ListAppointmentsByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	return r.listAppointments(func(a *Appointment) bool { return a.PatientID == patientID }, limit, offset)
}

func (r *MemoryRepository) ListAppointmentsByDoctor(_ context.Context, doctorID uuid.UUID, limit, offset int) ([]Appointment, error) {
	return r.listAppointments(func(a *Appointment) bool { return a.DoctorID == doctorID }, limit, offset)
}

func (r *MemoryRepository) listAppointments(match func(*Appointment) bool, limit, offset int) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var all []Appointment
	for _, a := range r.appointments {
		if match(a) {
			all = append(all, *a)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].StartTime.After(all[j].StartTime) })
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (r *MemoryRepository) InsertEvent(_ context.Context, ev EventLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev.ID = int64(len(r.events) + 1)
	r.events = append(r.events, ev)
	return nil
}

func copyAvailability(a *Availability) *Availability {
	out := *a
	out.TimeSlots = cloneSlots(a.TimeSlots)
	return &out
}

// MutexLocker serializes schedule mutations per (doctor, date) with local
// mutexes. It backs the in-memory stack the same way the Redis locker backs
// the deployed one.
type MutexLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewMutexLocker() *MutexLocker {
	return &MutexLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *MutexLocker) WithScheduleLock(ctx context.Context, doctorID uuid.UUID, date string, fn func(ctx context.Context) error) error {
	key := doctorID.String() + "|" + date

	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	defer m.Unlock()
	return fn(ctx)
}
