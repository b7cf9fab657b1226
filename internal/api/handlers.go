package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clinicore/clinic-scheduling/internal/scheduling"
	"github.com/clinicore/clinic-scheduling/internal/timeslot"
)

func searchDoctorsHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var date *timeslot.Date
		if raw := r.URL.Query().Get("date"); raw != "" {
			d, err := timeslot.ParseDate(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_date", err.Error())
				return
			}
			date = &d
		}
		name := r.URL.Query().Get("name")

		results, err := svc.SearchAvailableDoctors(r.Context(), date, name)
		if err != nil {
			handleSchedulingError(w, err)
			return
		}

		out := make([]DoctorSearchResult, 0, len(results))
		for _, res := range results {
			entry := DoctorSearchResult{
				DoctorID:  res.Doctor.ID,
				FirstName: res.Doctor.FirstName,
				LastName:  res.Doctor.LastName,
				Specialty: res.Doctor.Specialty,
				Source:    string(res.Source),
				Slots:     toSlotResponses(res.Slots),
			}
			if !res.Date.IsZero() {
				entry.Date = res.Date.String()
			}
			out = append(out, entry)
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func resolveAvailabilityHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseUUIDParam(w, r, "doctorID", "doctor_id")
		if !ok {
			return
		}
		date, err := timeslot.ParseDate(r.URL.Query().Get("date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", err.Error())
			return
		}

		day, err := svc.ResolveAvailability(r.Context(), doctorID, date)
		if err != nil {
			handleSchedulingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, AvailabilityResponse{
			Date:      day.Date.String(),
			Available: day.Available(),
			Source:    string(day.Source),
			Slots:     toSlotResponses(day.Slots),
		})
	}
}

func availabilityRangeHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseUUIDParam(w, r, "doctorID", "doctor_id")
		if !ok {
			return
		}
		from, err := timeslot.ParseDate(r.URL.Query().Get("from"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_from_date", err.Error())
			return
		}
		to, err := timeslot.ParseDate(r.URL.Query().Get("to"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_to_date", err.Error())
			return
		}

		days, err := svc.ResolveRange(r.Context(), doctorID, from, to)
		if err != nil {
			handleSchedulingError(w, err)
			return
		}

		out := make([]AvailabilityResponse, 0, len(days))
		for _, day := range days {
			out = append(out, AvailabilityResponse{
				Date:      day.Date.String(),
				Available: day.Available(),
				Source:    string(day.Source),
				Slots:     toSlotResponses(day.Slots),
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getScheduleHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseUUIDParam(w, r, "doctorID", "doctor_id")
		if !ok {
			return
		}

		records, err := svc.ListDoctorSchedule(r.Context(), doctorID)
		if err != nil {
			handleSchedulingError(w, err)
			return
		}

		out := make([]ScheduleRecordResponse, 0, len(records))
		for _, rec := range records {
			out = append(out, toScheduleRecordResponse(rec))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func toScheduleRecordResponse(rec scheduling.Availability) ScheduleRecordResponse {
	resp := ScheduleRecordResponse{
		ID:    rec.ID,
		Kind:  string(rec.Kind),
		Slots: toSlotResponses(rec.TimeSlots),
	}
	if rec.Kind == scheduling.KindRecurring {
		resp.DayOfWeek = rec.DayOfWeek
	} else {
		resp.Date = rec.Date.String()
	}
	return resp
}

func setRecurringScheduleHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseUUIDParam(w, r, "doctorID", "doctor_id")
		if !ok {
			return
		}
		var req SetRecurringScheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		rec, err := svc.SetRecurringSchedule(r.Context(), doctorID, req.DayOfWeek, toSlotInputs(req.Slots))
		if err != nil {
			handleSchedulingError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toScheduleRecordResponse(*rec))
	}
}

func setSingleDateScheduleHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseUUIDParam(w, r, "doctorID", "doctor_id")
		if !ok {
			return
		}
		var req SetSingleDateScheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		date, err := timeslot.ParseDate(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", err.Error())
			return
		}

		rec, err := svc.SetSingleDateSchedule(r.Context(), doctorID, date, toSlotInputs(req.Slots))
		if err != nil {
			handleSchedulingError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toScheduleRecordResponse(*rec))
	}
}

func toSlotInputs(payloads []SlotPayload) []scheduling.SlotInput {
	inputs := make([]scheduling.SlotInput, 0, len(payloads))
	for _, p := range payloads {
		inputs = append(inputs, scheduling.SlotInput{StartTime: p.StartTime, EndTime: p.EndTime})
	}
	return inputs
}

func createAppointmentHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}
		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}
		date, err := timeslot.ParseDate(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", err.Error())
			return
		}

		appt, err := svc.Book(r.Context(), scheduling.BookingRequest{
			DoctorID:  doctorID,
			PatientID: patientID,
			Date:      date,
			StartTime: req.StartTime,
			EndTime:   req.EndTime,
			Summary:   req.Summary,
			Notes:     req.Notes,
			Symptoms:  req.Symptoms,
		})
		if err != nil {
			handleSchedulingError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func getAppointmentHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUIDParam(w, r, "id", "appointment_id")
		if !ok {
			return
		}
		appt, err := svc.GetAppointment(r.Context(), id)
		if err != nil {
			handleSchedulingError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func listAppointmentsHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		limit := parseIntDefault(q.Get("limit"), 20)
		offset := parseIntDefault(q.Get("offset"), 0)

		var (
			appts []scheduling.Appointment
			err   error
		)
		switch {
		case q.Get("patient_id") != "":
			patientID, parseErr := uuid.Parse(q.Get("patient_id"))
			if parseErr != nil {
				writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
				return
			}
			appts, err = svc.ListAppointmentsByPatient(r.Context(), patientID, limit, offset)
		case q.Get("doctor_id") != "":
			doctorID, parseErr := uuid.Parse(q.Get("doctor_id"))
			if parseErr != nil {
				writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
				return
			}
			appts, err = svc.ListAppointmentsByDoctor(r.Context(), doctorID, limit, offset)
		default:
			writeError(w, http.StatusBadRequest, "missing_filter", "patient_id or doctor_id is required")
			return
		}
		if err != nil {
			handleSchedulingError(w, err)
			return
		}

		out := make([]AppointmentResponse, 0, len(appts))
		for i := range appts {
			out = append(out, toAppointmentResponse(&appts[i]))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func cancelAppointmentHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUIDParam(w, r, "id", "appointment_id")
		if !ok {
			return
		}
		var req CancelAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.CancelAppointment(r.Context(), id, req.Reason, req.CancelledBy)
		if err != nil {
			handleSchedulingError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func markNoShowHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUIDParam(w, r, "id", "appointment_id")
		if !ok {
			return
		}
		var req MarkNoShowRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.MarkNoShow(r.Context(), id, req.Reason)
		if err != nil {
			handleSchedulingError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func updateStatusHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUIDParam(w, r, "id", "appointment_id")
		if !ok {
			return
		}
		var req UpdateStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.UpdateAppointmentStatus(r.Context(), id, scheduling.AppointmentStatus(req.Status))
		if err != nil {
			handleSchedulingError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func parseUUIDParam(w http.ResponseWriter, r *http.Request, param, field string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+field, field+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func parseIntDefault(raw string, def int) int {
	if raw == "" {
		return def
	}
	n := 0
	for _, c := range raw {
		if c < '0' || c > '9' {
			return def
		}
		n = n*10 + int(c-'0')
	}
	return n
}

func handleSchedulingError(w http.ResponseWriter, err error) {
	var slotErr *scheduling.SlotUnavailableError

	switch {
	case errors.Is(err, scheduling.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, scheduling.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, scheduling.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.As(err, &slotErr):
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:     "slot_unavailable",
			Details:   err.Error(),
			FreeSlots: slotErr.FreeSlots,
		})
	case errors.Is(err, scheduling.ErrNoAvailability):
		writeError(w, http.StatusConflict, "no_availability", err.Error())
	case errors.Is(err, scheduling.ErrBookingConflict):
		writeError(w, http.StatusConflict, "booking_conflict", "schedule is currently being booked, please retry shortly")
	case errors.Is(err, scheduling.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, "invalid_status", err.Error())
	case errors.Is(err, scheduling.ErrInvalidDayOfWeek):
		writeError(w, http.StatusBadRequest, "invalid_day_of_week", err.Error())
	case errors.Is(err, scheduling.ErrInvalidDateRange):
		writeError(w, http.StatusBadRequest, "invalid_date_range", err.Error())
	case errors.Is(err, timeslot.ErrInvalidTimeFormat):
		writeError(w, http.StatusBadRequest, "invalid_time", err.Error())
	case errors.Is(err, timeslot.ErrInvalidTimeRange):
		writeError(w, http.StatusBadRequest, "invalid_time_range", err.Error())
	case errors.Is(err, timeslot.ErrInvalidDateFormat):
		writeError(w, http.StatusBadRequest, "invalid_date", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
