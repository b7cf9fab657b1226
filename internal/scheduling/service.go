package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	redisclient "github.com/clinicore/clinic-scheduling/internal/redis"
	"github.com/clinicore/clinic-scheduling/internal/timeslot"
)

const (
	EventAppointmentBooked        = "APPOINTMENT_BOOKED"
	EventAppointmentCancelled     = "APPOINTMENT_CANCELLED"
	EventAppointmentNoShow        = "APPOINTMENT_NO_SHOW"
	EventAppointmentStatusUpdated = "APPOINTMENT_STATUS_UPDATED"
	EventScheduleUpdated          = "SCHEDULE_UPDATED"
)

var (
	ErrNoAvailability   = errors.New("doctor has no availability for this date")
	ErrSlotUnavailable  = errors.New("no free slot covers the requested time range")
	ErrBookingConflict  = errors.New("schedule is currently being booked, please retry")
	ErrInvalidStatus    = errors.New("invalid appointment status")
	ErrInvalidDayOfWeek = errors.New("invalid day of week")
)

// SlotUnavailableError reports a failed slot match together with the ranges
// that are currently free, so a caller can re-offer choices without a second
// round trip.
type SlotUnavailableError struct {
	FreeSlots []string
}

func (e *SlotUnavailableError) Error() string {
	if len(e.FreeSlots) == 0 {
		return ErrSlotUnavailable.Error() + "; no free slots remain"
	}
	return ErrSlotUnavailable.Error() + "; free slots: " + strings.Join(e.FreeSlots, ", ")
}

func (e *SlotUnavailableError) Unwrap() error {
	return ErrSlotUnavailable
}

type Service struct {
	repo     Repository
	locker   redisclient.Locker
	notifier Notifier
	log      zerolog.Logger
}

func NewService(repo Repository, locker redisclient.Locker, notifier Notifier, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		locker:   locker,
		notifier: notifier,
		log:      log,
	}
}

// BookingRequest describes one booking attempt. StartTime and EndTime are
// "HH:MM" wall-clock strings on the given calendar date.
type BookingRequest struct {
	DoctorID  uuid.UUID
	PatientID uuid.UUID
	Date      timeslot.Date
	StartTime string
	EndTime   string
	Summary   string
	Notes     string
	Symptoms  string
}

// Book converts a requested time range into a scheduled appointment.
//
// Under the per-(doctor,date) lock it re-loads the governing availability
// record, finds the first free slot containing the range, splits the slot if
// the match is not exact, and commits the slot mutation, the appointment, and
// (when a recurring template governed) the materialized single-date record in
// one transaction. Validation failures abort before any write.
func (s *Service) Book(ctx context.Context, req BookingRequest) (*Appointment, error) {
	reqRange, err := timeslot.NewRange(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	doctor, err := s.repo.GetDoctorByID(ctx, req.DoctorID)
	if err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}
	patient, err := s.repo.GetPatientByID(ctx, req.PatientID)
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}

	var created *Appointment

	err = s.locker.WithScheduleLock(ctx, req.DoctorID, req.Date.String(), func(lockCtx context.Context) error {
		// Re-load inside the critical section so a concurrent booking on the
		// same record cannot match the same slot.
		single, recurring, err := s.loadDayRecords(lockCtx, req.DoctorID, req.Date)
		if err != nil {
			return err
		}
		governing, source := GoverningRecord(single, recurring)
		if governing == nil {
			return ErrNoAvailability
		}

		matchIdx := -1
		var matched timeslot.TimeRange
		var freeRanges []string
		for i, slot := range governing.TimeSlots {
			if slot.IsBooked {
				continue
			}
			r, err := slot.Range()
			if err != nil {
				return fmt.Errorf("corrupt slot %s-%s in availability %s: %w",
					slot.StartTime, slot.EndTime, governing.ID, err)
			}
			freeRanges = append(freeRanges, r.String())
			// First containing slot in insertion order wins.
			if matchIdx == -1 && r.Contains(reqRange) {
				matchIdx = i
				matched = r
			}
		}
		if matchIdx == -1 {
			return &SlotUnavailableError{FreeSlots: freeRanges}
		}

		appt := &Appointment{
			ID:        uuid.New(),
			DoctorID:  req.DoctorID,
			PatientID: req.PatientID,
			StartTime: req.Date.At(reqRange.Start),
			EndTime:   req.Date.At(reqRange.End),
			Status:    StatusScheduled,
			Summary:   req.Summary,
			Notes:     req.Notes,
			Symptoms:  req.Symptoms,
		}

		replacement := SplitSlot(matched, reqRange)
		for i := range replacement {
			if replacement[i].IsBooked {
				id := appt.ID
				replacement[i].AppointmentID = &id
			}
		}
		governing.TimeSlots = spliceSlots(governing.TimeSlots, matchIdx, replacement)

		commit := BookingCommit{
			Availability: governing,
			Appointment:  appt,
		}
		if source == SourceRecurring {
			// Materialize the booking onto a concrete single-date record so
			// future edits to the weekly template leave this date alone.
			commit.Materialized = &Availability{
				ID:        uuid.New(),
				DoctorID:  req.DoctorID,
				Kind:      KindSingle,
				Date:      req.Date,
				TimeSlots: cloneSlots(governing.TimeSlots),
				IsActive:  true,
			}
		}

		if err := s.repo.CommitBooking(lockCtx, commit); err != nil {
			return fmt.Errorf("commit booking: %w", err)
		}
		created = appt
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrBookingConflict
		}
		return nil, err
	}

	s.logEvent(ctx, created.ID, EventAppointmentBooked, map[string]any{
		"doctor_id":  req.DoctorID.String(),
		"patient_id": req.PatientID.String(),
		"date":       req.Date.String(),
		"range":      reqRange.String(),
	})
	s.dispatch("booking_created", func() error {
		return s.notifier.BookingCreated(ctx, created, doctor, patient)
	})

	return created, nil
}

// CancelAppointment frees the slot referencing the appointment and moves the
// appointment to cancelled. Cancelling an already-cancelled appointment is a
// no-op that returns the appointment unchanged; the slot-freeing pass also
// silently no-ops when no slot references the appointment.
func (s *Service) CancelAppointment(ctx context.Context, id uuid.UUID, reason, cancelledBy string) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if appt.Status == StatusCancelled {
		return appt, nil
	}

	date := timeslot.DateOf(appt.StartTime)
	var updated *Appointment

	err = s.locker.WithScheduleLock(ctx, appt.DoctorID, date.String(), func(lockCtx context.Context) error {
		single, recurring, err := s.loadDayRecords(lockCtx, appt.DoctorID, date)
		if err != nil {
			return err
		}
		governing, _ := GoverningRecord(single, recurring)
		if governing != nil {
			if idx := slotIndexForAppointment(governing.TimeSlots, id); idx >= 0 {
				// Freed slots stay discrete entries; adjacent free slots are
				// not re-merged.
				governing.TimeSlots[idx].IsBooked = false
				governing.TimeSlots[idx].AppointmentID = nil
				if err := s.repo.UpdateAvailabilitySlots(lockCtx, governing.ID, governing.TimeSlots); err != nil {
					return fmt.Errorf("free slot: %w", err)
				}
			}
		}

		updated, err = s.repo.CancelAppointment(lockCtx, id, reason, cancelledBy, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("cancel appointment: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrBookingConflict
		}
		return nil, err
	}

	s.logEvent(ctx, id, EventAppointmentCancelled, map[string]any{
		"reason":       reason,
		"cancelled_by": cancelledBy,
	})
	s.dispatch("appointment_cancelled", func() error {
		return s.notifier.AppointmentCancelled(ctx, updated)
	})

	return updated, nil
}

// MarkNoShow records that the patient did not show up. The availability slot
// stays booked; a no-show is not a cancellation.
func (s *Service) MarkNoShow(ctx context.Context, id uuid.UUID, reason string) (*Appointment, error) {
	updated, err := s.repo.MarkAppointmentNoShow(ctx, id, reason, time.Now().UTC())
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("mark no-show: %w", err)
	}

	s.logEvent(ctx, id, EventAppointmentNoShow, map[string]any{"reason": reason})
	s.dispatch("no_show_recorded", func() error {
		return s.notifier.NoShowRecorded(ctx, updated)
	})

	return updated, nil
}

// UpdateAppointmentStatus is the generic transition path. Unlike
// CancelAppointment it never touches the availability slot, even when the
// target status is cancelled.
func (s *Service) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, status AppointmentStatus) (*Appointment, error) {
	if !ValidStatus(status) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	updated, err := s.repo.SetAppointmentStatus(ctx, id, status)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update status: %w", err)
	}

	s.logEvent(ctx, id, EventAppointmentStatusUpdated, map[string]any{"status": string(status)})
	return updated, nil
}

// SlotInput is one requested bookable window in a schedule submission.
type SlotInput struct {
	StartTime string
	EndTime   string
}

func buildSlots(inputs []SlotInput) ([]TimeSlot, error) {
	slots := make([]TimeSlot, 0, len(inputs))
	for _, in := range inputs {
		r, err := timeslot.NewRange(in.StartTime, in.EndTime)
		if err != nil {
			return nil, err
		}
		slots = append(slots, TimeSlot{
			StartTime: timeslot.FormatMinutes(r.Start),
			EndTime:   timeslot.FormatMinutes(r.End),
		})
	}
	return slots, nil
}

// SetRecurringSchedule replaces the doctor's weekly template for one weekday.
// The previous active record is deactivated before the new one is inserted,
// which keeps the one-active-record-per-(doctor,weekday) invariant.
func (s *Service) SetRecurringSchedule(ctx context.Context, doctorID uuid.UUID, dayOfWeek string, inputs []SlotInput) (*Availability, error) {
	if !timeslot.ValidWeekday(dayOfWeek) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDayOfWeek, dayOfWeek)
	}
	if _, err := s.repo.GetDoctorByID(ctx, doctorID); err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}
	slots, err := buildSlots(inputs)
	if err != nil {
		return nil, err
	}

	if err := s.repo.DeactivateRecurring(ctx, doctorID, dayOfWeek); err != nil {
		return nil, fmt.Errorf("deactivate recurring schedule: %w", err)
	}
	av := &Availability{
		ID:        uuid.New(),
		DoctorID:  doctorID,
		Kind:      KindRecurring,
		DayOfWeek: dayOfWeek,
		TimeSlots: slots,
		IsActive:  true,
	}
	if err := s.repo.CreateAvailability(ctx, av); err != nil {
		return nil, fmt.Errorf("create recurring schedule: %w", err)
	}

	s.logEvent(ctx, uuid.Nil, EventScheduleUpdated, map[string]any{
		"doctor_id":   doctorID.String(),
		"kind":        string(KindRecurring),
		"day_of_week": dayOfWeek,
		"slot_count":  len(slots),
	})
	return av, nil
}

// SetSingleDateSchedule replaces the doctor's override for one date. An empty
// slot list creates an explicit blocked day, which shadows the weekly
// template rather than falling through to it.
func (s *Service) SetSingleDateSchedule(ctx context.Context, doctorID uuid.UUID, date timeslot.Date, inputs []SlotInput) (*Availability, error) {
	if _, err := s.repo.GetDoctorByID(ctx, doctorID); err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}
	slots, err := buildSlots(inputs)
	if err != nil {
		return nil, err
	}

	var av *Availability
	err = s.locker.WithScheduleLock(ctx, doctorID, date.String(), func(lockCtx context.Context) error {
		if err := s.repo.DeactivateSingle(lockCtx, doctorID, date); err != nil {
			return fmt.Errorf("deactivate single-date schedule: %w", err)
		}
		av = &Availability{
			ID:        uuid.New(),
			DoctorID:  doctorID,
			Kind:      KindSingle,
			Date:      date,
			TimeSlots: slots,
			IsActive:  true,
		}
		if err := s.repo.CreateAvailability(lockCtx, av); err != nil {
			return fmt.Errorf("create single-date schedule: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrBookingConflict
		}
		return nil, err
	}

	s.logEvent(ctx, uuid.Nil, EventScheduleUpdated, map[string]any{
		"doctor_id":  doctorID.String(),
		"kind":       string(KindSingle),
		"date":       date.String(),
		"slot_count": len(slots),
	})
	return av, nil
}

// ListDoctorSchedule returns the doctor's active availability records.
func (s *Service) ListDoctorSchedule(ctx context.Context, doctorID uuid.UUID) ([]Availability, error) {
	if _, err := s.repo.GetDoctorByID(ctx, doctorID); err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}
	records, err := s.repo.ListActiveAvailability(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("list availability: %w", err)
	}
	return records, nil
}

// GetAppointment retrieves an appointment by ID.
func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return appt, nil
}

// ListAppointmentsByPatient retrieves appointments for a specific patient.
func (s *Service) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	limit, offset = clampPage(limit, offset)
	appts, err := s.repo.ListAppointmentsByPatient(ctx, patientID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list appointments by patient: %w", err)
	}
	return appts, nil
}

// ListAppointmentsByDoctor retrieves appointments for a specific doctor.
func (s *Service) ListAppointmentsByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]Appointment, error) {
	limit, offset = clampPage(limit, offset)
	appts, err := s.repo.ListAppointmentsByDoctor(ctx, doctorID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list appointments by doctor: %w", err)
	}
	return appts, nil
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func slotIndexForAppointment(slots []TimeSlot, appointmentID uuid.UUID) int {
	for i, slot := range slots {
		if slot.AppointmentID != nil && *slot.AppointmentID == appointmentID {
			return i
		}
	}
	return -1
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Error().Err(err).Str("event_type", eventType).Msg("marshal event payload")
		data = nil
	}

	ev := EventLog{
		EventType: eventType,
		Payload:   data,
		CreatedAt: time.Now().UTC(),
	}
	if appointmentID != uuid.Nil {
		id := appointmentID
		ev.AppointmentID = &id
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.log.Error().Err(err).Str("event_type", eventType).Msg("insert event log")
	}
}

// dispatch runs a notification side call. Failures are logged and swallowed;
// a notification error never rolls back the operation that triggered it.
func (s *Service) dispatch(op string, fn func() error) {
	if s.notifier == nil {
		return
	}
	if err := fn(); err != nil {
		s.log.Warn().Err(err).Str("notification", op).Msg("notification dispatch failed")
	}
}
