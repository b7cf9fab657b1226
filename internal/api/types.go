package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinic-scheduling/internal/scheduling"
)

type SlotPayload struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type SlotResponse struct {
	StartTime     string     `json:"start_time"`
	EndTime       string     `json:"end_time"`
	IsBooked      bool       `json:"is_booked"`
	AppointmentID *uuid.UUID `json:"appointment_id,omitempty"`
}

func toSlotResponses(slots []scheduling.TimeSlot) []SlotResponse {
	out := make([]SlotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, SlotResponse{
			StartTime:     s.StartTime,
			EndTime:       s.EndTime,
			IsBooked:      s.IsBooked,
			AppointmentID: s.AppointmentID,
		})
	}
	return out
}

type AvailabilityResponse struct {
	Date      string         `json:"date"`
	Available bool           `json:"available"`
	Source    string         `json:"source"`
	Slots     []SlotResponse `json:"slots"`
}

type DoctorSearchResult struct {
	DoctorID  uuid.UUID      `json:"doctor_id"`
	FirstName string         `json:"first_name"`
	LastName  string         `json:"last_name"`
	Specialty *string        `json:"specialty,omitempty"`
	Date      string         `json:"date,omitempty"`
	Source    string         `json:"source"`
	Slots     []SlotResponse `json:"slots"`
}

type ScheduleRecordResponse struct {
	ID        uuid.UUID      `json:"id"`
	Kind      string         `json:"kind"`
	DayOfWeek string         `json:"day_of_week,omitempty"`
	Date      string         `json:"date,omitempty"`
	Slots     []SlotResponse `json:"slots"`
}

type SetRecurringScheduleRequest struct {
	DayOfWeek string        `json:"day_of_week"`
	Slots     []SlotPayload `json:"slots"`
}

type SetSingleDateScheduleRequest struct {
	Date  string        `json:"date"`
	Slots []SlotPayload `json:"slots"`
}

type CreateAppointmentRequest struct {
	DoctorID  string `json:"doctor_id"`
	PatientID string `json:"patient_id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Summary   string `json:"summary,omitempty"`
	Notes     string `json:"notes,omitempty"`
	Symptoms  string `json:"symptoms,omitempty"`
}

type CancelAppointmentRequest struct {
	Reason      string `json:"reason"`
	CancelledBy string `json:"cancelled_by"`
}

type MarkNoShowRequest struct {
	Reason string `json:"reason"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type AppointmentResponse struct {
	ID                 uuid.UUID  `json:"id"`
	DoctorID           uuid.UUID  `json:"doctor_id"`
	PatientID          uuid.UUID  `json:"patient_id"`
	StartTime          time.Time  `json:"start_time"`
	EndTime            time.Time  `json:"end_time"`
	Status             string     `json:"status"`
	Summary            string     `json:"summary,omitempty"`
	Notes              string     `json:"notes,omitempty"`
	Symptoms           string     `json:"symptoms,omitempty"`
	CancellationReason string     `json:"cancellation_reason,omitempty"`
	CancelledBy        string     `json:"cancelled_by,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	NoShowReason       string     `json:"no_show_reason,omitempty"`
	MarkedNoShowAt     *time.Time `json:"marked_no_show_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

func toAppointmentResponse(a *scheduling.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:                 a.ID,
		DoctorID:           a.DoctorID,
		PatientID:          a.PatientID,
		StartTime:          a.StartTime,
		EndTime:            a.EndTime,
		Status:             string(a.Status),
		Summary:            a.Summary,
		Notes:              a.Notes,
		Symptoms:           a.Symptoms,
		CancellationReason: a.CancellationReason,
		CancelledBy:        a.CancelledBy,
		CancelledAt:        a.CancelledAt,
		NoShowReason:       a.NoShowReason,
		MarkedNoShowAt:     a.MarkedNoShowAt,
		CreatedAt:          a.CreatedAt,
	}
}

type ErrorResponse struct {
	Error     string   `json:"error"`
	Details   string   `json:"details,omitempty"`
	FreeSlots []string `json:"free_slots,omitempty"`
}
