package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/clinic-scheduling/internal/timeslot"
)

// PgRepository persists the scheduling domain in Postgres. Availability
// time slots are stored as one jsonb document per record and always loaded
// and saved whole, so every slot mutation is a per-record update.
type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	var specialty, email *string

	err := row.Scan(
		&d.ID,
		&d.FirstName,
		&d.LastName,
		&specialty,
		&email,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}

	d.Specialty = specialty
	d.Email = email
	return &d, nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var email *string

	err := row.Scan(
		&p.ID,
		&p.Name,
		&email,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	p.Email = email
	return &p, nil
}

func scanAvailability(row pgx.Row) (*Availability, error) {
	var a Availability
	var dayOfWeek, dateStr *string
	var slotsJSON []byte

	err := row.Scan(
		&a.ID,
		&a.DoctorID,
		&a.Kind,
		&dayOfWeek,
		&dateStr,
		&slotsJSON,
		&a.IsActive,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAvailabilityNotFound
		}
		return nil, err
	}

	if dayOfWeek != nil {
		a.DayOfWeek = *dayOfWeek
	}
	if dateStr != nil {
		d, err := timeslot.ParseDate(*dateStr)
		if err != nil {
			return nil, fmt.Errorf("availability %s has bad date: %w", a.ID, err)
		}
		a.Date = d
	}

	a.TimeSlots = []TimeSlot{}
	if len(slotsJSON) > 0 {
		if err := json.Unmarshal(slotsJSON, &a.TimeSlots); err != nil {
			return nil, fmt.Errorf("decode time slots for availability %s: %w", a.ID, err)
		}
	}
	return &a, nil
}

const appointmentColumns = `
	id, doctor_id, patient_id, start_time, end_time, status,
	summary, notes, symptoms,
	cancellation_reason, cancelled_by, cancelled_at,
	no_show_reason, marked_no_show_at,
	created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var cancelledAt, markedNoShowAt *time.Time

	err := row.Scan(
		&a.ID,
		&a.DoctorID,
		&a.PatientID,
		&a.StartTime,
		&a.EndTime,
		&a.Status,
		&a.Summary,
		&a.Notes,
		&a.Symptoms,
		&a.CancellationReason,
		&a.CancelledBy,
		&cancelledAt,
		&a.NoShowReason,
		&markedNoShowAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.CancelledAt = cancelledAt
	a.MarkedNoShowAt = markedNoShowAt
	return &a, nil
}

// Directory

func (r *PgRepository) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, first_name, last_name, specialty, email, created_at, updated_at
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) SearchDoctors(ctx context.Context, name string) ([]Doctor, error) {
	// The name is a literal substring, so LIKE metacharacters in it must not
	// act as wildcards.
	rows, err := r.pool.Query(ctx, `
		SELECT id, first_name, last_name, specialty, email, created_at, updated_at
		FROM doctors
		WHERE $1 = ''
		   OR first_name ILIKE '%' || $1 || '%'
		   OR last_name ILIKE '%' || $1 || '%'
		   OR (first_name || ' ' || last_name) ILIKE '%' || $1 || '%'
		ORDER BY last_name, first_name
	`, escapeLikePattern(name))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}
	return result, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLikePattern(s string) string {
	return likeEscaper.Replace(s)
}

// Availability

const availabilityColumns = `
	id, doctor_id, kind, day_of_week, to_char(date, 'YYYY-MM-DD'),
	time_slots, is_active, created_at, updated_at`

func (r *PgRepository) GetActiveSingle(ctx context.Context, doctorID uuid.UUID, date timeslot.Date) (*Availability, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+availabilityColumns+`
		FROM availability
		WHERE doctor_id = $1
		  AND kind = 'single'
		  AND date = $2::date
		  AND is_active
		ORDER BY created_at DESC
		LIMIT 1
	`, doctorID, date.String())
	return scanAvailability(row)
}

func (r *PgRepository) GetActiveRecurring(ctx context.Context, doctorID uuid.UUID, dayOfWeek string) (*Availability, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+availabilityColumns+`
		FROM availability
		WHERE doctor_id = $1
		  AND kind = 'recurring'
		  AND day_of_week = $2
		  AND is_active
		ORDER BY created_at DESC
		LIMIT 1
	`, doctorID, dayOfWeek)
	return scanAvailability(row)
}

func (r *PgRepository) ListActiveAvailability(ctx context.Context, doctorID uuid.UUID) ([]Availability, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+availabilityColumns+`
		FROM availability
		WHERE doctor_id = $1
		  AND is_active
		ORDER BY kind, day_of_week NULLS LAST, date NULLS LAST, created_at
	`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Availability
	for rows.Next() {
		a, err := scanAvailability(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

func (r *PgRepository) CreateAvailability(ctx context.Context, av *Availability) error {
	slotsJSON, err := json.Marshal(av.TimeSlots)
	if err != nil {
		return fmt.Errorf("encode time slots: %w", err)
	}

	var dayOfWeek, dateStr *string
	if av.Kind == KindRecurring {
		dow := av.DayOfWeek
		dayOfWeek = &dow
	} else {
		ds := av.Date.String()
		dateStr = &ds
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO availability (id, doctor_id, kind, day_of_week, date, time_slots, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::date, $6, $7, now(), now())
	`, av.ID, av.DoctorID, av.Kind, dayOfWeek, dateStr, slotsJSON, av.IsActive)
	if err != nil {
		return fmt.Errorf("insert availability: %w", err)
	}
	return nil
}

func (r *PgRepository) DeactivateRecurring(ctx context.Context, doctorID uuid.UUID, dayOfWeek string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE availability
		SET is_active = false,
		    updated_at = now()
		WHERE doctor_id = $1
		  AND kind = 'recurring'
		  AND day_of_week = $2
		  AND is_active
	`, doctorID, dayOfWeek)
	return err
}

func (r *PgRepository) DeactivateSingle(ctx context.Context, doctorID uuid.UUID, date timeslot.Date) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE availability
		SET is_active = false,
		    updated_at = now()
		WHERE doctor_id = $1
		  AND kind = 'single'
		  AND date = $2::date
		  AND is_active
	`, doctorID, date.String())
	return err
}

func (r *PgRepository) UpdateAvailabilitySlots(ctx context.Context, id uuid.UUID, slots []TimeSlot) error {
	slotsJSON, err := json.Marshal(slots)
	if err != nil {
		return fmt.Errorf("encode time slots: %w", err)
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE availability
		SET time_slots = $2,
		    updated_at = now()
		WHERE id = $1
	`, id, slotsJSON)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAvailabilityNotFound
	}
	return nil
}

// CommitBooking applies the slot mutation, the appointment insert, and the
// optional materialized single-date record in one transaction.
func (r *PgRepository) CommitBooking(ctx context.Context, commit BookingCommit) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	slotsJSON, err := json.Marshal(commit.Availability.TimeSlots)
	if err != nil {
		return fmt.Errorf("encode time slots: %w", err)
	}
	tag, err := tx.Exec(ctx, `
		UPDATE availability
		SET time_slots = $2,
		    updated_at = now()
		WHERE id = $1
	`, commit.Availability.ID, slotsJSON)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAvailabilityNotFound
	}

	appt := commit.Appointment
	_, err = tx.Exec(ctx, `
		INSERT INTO appointments (
			id, doctor_id, patient_id, start_time, end_time, status,
			summary, notes, symptoms, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
	`, appt.ID, appt.DoctorID, appt.PatientID, appt.StartTime, appt.EndTime,
		appt.Status, appt.Summary, appt.Notes, appt.Symptoms)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}

	if m := commit.Materialized; m != nil {
		mSlots, err := json.Marshal(m.TimeSlots)
		if err != nil {
			return fmt.Errorf("encode materialized time slots: %w", err)
		}
		dateStr := m.Date.String()
		_, err = tx.Exec(ctx, `
			INSERT INTO availability (id, doctor_id, kind, day_of_week, date, time_slots, is_active, created_at, updated_at)
			VALUES ($1, $2, 'single', NULL, $3::date, $4, true, now(), now())
		`, m.ID, m.DoctorID, dateStr, mSlots)
		if err != nil {
			return fmt.Errorf("insert materialized availability: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// Appointments

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) CancelAppointment(ctx context.Context, id uuid.UUID, reason, cancelledBy string, at time.Time) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'cancelled',
		    cancellation_reason = $2,
		    cancelled_by = $3,
		    cancelled_at = $4,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentColumns+`
	`, id, reason, cancelledBy, at)
	return scanAppointment(row)
}

func (r *PgRepository) MarkAppointmentNoShow(ctx context.Context, id uuid.UUID, reason string, at time.Time) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'no_show',
		    no_show_reason = $2,
		    marked_no_show_at = $3,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentColumns+`
	`, id, reason, at)
	return scanAppointment(row)
}

func (r *PgRepository) SetAppointmentStatus(ctx context.Context, id uuid.UUID, status AppointmentStatus) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentColumns+`
	`, id, status)
	return scanAppointment(row)
}

func (r *PgRepository) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	return r.listAppointments(ctx, "patient_id", patientID, limit, offset)
}

func (r *PgRepository) ListAppointmentsByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]Appointment, error) {
	return r.listAppointments(ctx, "doctor_id", doctorID, limit, offset)
}

func (r *PgRepository) listAppointments(ctx context.Context, column string, id uuid.UUID, limit, offset int) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE `+column+` = $1
		ORDER BY start_time DESC
		LIMIT $2 OFFSET $3
	`, id, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

// Events

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}
	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
