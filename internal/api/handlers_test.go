package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/clinic-scheduling/internal/scheduling"
)

type apiFixture struct {
	server  *httptest.Server
	repo    *scheduling.MemoryRepository
	doctor  scheduling.Doctor
	patient scheduling.Patient
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	repo := scheduling.NewMemoryRepository()
	svc := scheduling.NewService(repo, scheduling.NewMutexLocker(), nil, zerolog.Nop())

	f := &apiFixture{
		repo:    repo,
		doctor:  scheduling.Doctor{ID: uuid.New(), FirstName: "Maya", LastName: "Okafor"},
		patient: scheduling.Patient{ID: uuid.New(), Name: "Jon Tate"},
	}
	repo.AddDoctor(f.doctor)
	repo.AddPatient(f.patient)

	router := NewRouter(RouterConfig{
		Service: svc,
		Logger:  zerolog.Nop(),
		Env:     "test",
	})
	f.server = httptest.NewServer(router)
	t.Cleanup(f.server.Close)
	return f
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, f.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (f *apiFixture) putRecurring(t *testing.T, day string, slots ...SlotPayload) {
	t.Helper()
	resp := f.do(t, http.MethodPut,
		fmt.Sprintf("/doctors/%s/schedule/recurring", f.doctor.ID),
		SetRecurringScheduleRequest{DayOfWeek: day, Slots: slots})
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func (f *apiFixture) putSingle(t *testing.T, date string, slots ...SlotPayload) {
	t.Helper()
	resp := f.do(t, http.MethodPut,
		fmt.Sprintf("/doctors/%s/schedule/dates", f.doctor.ID),
		SetSingleDateScheduleRequest{Date: date, Slots: slots})
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func (f *apiFixture) book(t *testing.T, date, start, end string) AppointmentResponse {
	t.Helper()
	resp := f.do(t, http.MethodPost, "/appointments", CreateAppointmentRequest{
		DoctorID:  f.doctor.ID.String(),
		PatientID: f.patient.ID.String(),
		Date:      date,
		StartTime: start,
		EndTime:   end,
		Summary:   "checkup",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[AppointmentResponse](t, resp)
}

// tuesday is a fixed future Tuesday shared by the handler tests.
const tuesday = "2026-09-08"

func TestCreateAppointmentSplitsSlot(t *testing.T) {
	f := newAPIFixture(t)
	f.putSingle(t, tuesday, SlotPayload{StartTime: "09:00", EndTime: "12:00"})

	appt := f.book(t, tuesday, "10:00", "10:30")
	assert.Equal(t, "scheduled", appt.Status)
	assert.Equal(t, f.doctor.ID, appt.DoctorID)
	assert.Equal(t, f.patient.ID, appt.PatientID)
	assert.Equal(t, "checkup", appt.Summary)

	resp := f.do(t, http.MethodGet,
		fmt.Sprintf("/doctors/%s/availability?date=%s", f.doctor.ID, tuesday), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	day := decode[AvailabilityResponse](t, resp)
	assert.True(t, day.Available)
	assert.Equal(t, "single", day.Source)
	require.Len(t, day.Slots, 2)
	assert.Equal(t, "09:00", day.Slots[0].StartTime)
	assert.Equal(t, "10:00", day.Slots[0].EndTime)
	assert.Equal(t, "10:30", day.Slots[1].StartTime)
}

func TestCreateAppointmentOnRecurringMaterializes(t *testing.T) {
	f := newAPIFixture(t)
	f.putRecurring(t, "Tuesday", SlotPayload{StartTime: "09:00", EndTime: "12:00"})

	f.book(t, tuesday, "09:00", "10:00")

	resp := f.do(t, http.MethodGet, fmt.Sprintf("/doctors/%s/schedule", f.doctor.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	records := decode[[]ScheduleRecordResponse](t, resp)
	kinds := map[string]int{}
	for _, rec := range records {
		kinds[rec.Kind]++
		if rec.Kind == "single" {
			assert.Equal(t, tuesday, rec.Date)
		}
	}
	assert.Equal(t, 1, kinds["recurring"])
	assert.Equal(t, 1, kinds["single"])
}

func TestCreateAppointmentSlotUnavailableCarriesFreeSlots(t *testing.T) {
	f := newAPIFixture(t)
	f.putSingle(t, tuesday, SlotPayload{StartTime: "13:00", EndTime: "14:00"})

	resp := f.do(t, http.MethodPost, "/appointments", CreateAppointmentRequest{
		DoctorID:  f.doctor.ID.String(),
		PatientID: f.patient.ID.String(),
		Date:      tuesday,
		StartTime: "09:00",
		EndTime:   "10:00",
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	body := decode[ErrorResponse](t, resp)
	assert.Equal(t, "slot_unavailable", body.Error)
	assert.Equal(t, []string{"13:00-14:00"}, body.FreeSlots)
}

func TestCreateAppointmentBlockedDay(t *testing.T) {
	f := newAPIFixture(t)
	f.putRecurring(t, "Tuesday", SlotPayload{StartTime: "09:00", EndTime: "17:00"})
	f.putSingle(t, tuesday)

	resp := f.do(t, http.MethodPost, "/appointments", CreateAppointmentRequest{
		DoctorID:  f.doctor.ID.String(),
		PatientID: f.patient.ID.String(),
		Date:      tuesday,
		StartTime: "10:00",
		EndTime:   "11:00",
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "no_availability", decode[ErrorResponse](t, resp).Error)
}

func TestCreateAppointmentValidation(t *testing.T) {
	f := newAPIFixture(t)
	f.putSingle(t, tuesday, SlotPayload{StartTime: "09:00", EndTime: "12:00"})

	cases := []struct {
		name    string
		req     CreateAppointmentRequest
		status  int
		errCode string
	}{
		{
			name: "unknown doctor",
			req: CreateAppointmentRequest{
				DoctorID: uuid.NewString(), PatientID: f.patient.ID.String(),
				Date: tuesday, StartTime: "09:00", EndTime: "10:00",
			},
			status: http.StatusNotFound, errCode: "doctor_not_found",
		},
		{
			name: "unknown patient",
			req: CreateAppointmentRequest{
				DoctorID: f.doctor.ID.String(), PatientID: uuid.NewString(),
				Date: tuesday, StartTime: "09:00", EndTime: "10:00",
			},
			status: http.StatusNotFound, errCode: "patient_not_found",
		},
		{
			name: "malformed doctor id",
			req: CreateAppointmentRequest{
				DoctorID: "not-a-uuid", PatientID: f.patient.ID.String(),
				Date: tuesday, StartTime: "09:00", EndTime: "10:00",
			},
			status: http.StatusBadRequest, errCode: "invalid_doctor_id",
		},
		{
			name: "malformed date",
			req: CreateAppointmentRequest{
				DoctorID: f.doctor.ID.String(), PatientID: f.patient.ID.String(),
				Date: "09/08/2026", StartTime: "09:00", EndTime: "10:00",
			},
			status: http.StatusBadRequest, errCode: "invalid_date",
		},
		{
			name: "malformed time",
			req: CreateAppointmentRequest{
				DoctorID: f.doctor.ID.String(), PatientID: f.patient.ID.String(),
				Date: tuesday, StartTime: "9am", EndTime: "10:00",
			},
			status: http.StatusBadRequest, errCode: "invalid_time",
		},
		{
			name: "inverted range",
			req: CreateAppointmentRequest{
				DoctorID: f.doctor.ID.String(), PatientID: f.patient.ID.String(),
				Date: tuesday, StartTime: "11:00", EndTime: "10:00",
			},
			status: http.StatusBadRequest, errCode: "invalid_time_range",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := f.do(t, http.MethodPost, "/appointments", tc.req)
			require.Equal(t, tc.status, resp.StatusCode)
			assert.Equal(t, tc.errCode, decode[ErrorResponse](t, resp).Error)
		})
	}
}

func TestCancelAppointmentFreesSlot(t *testing.T) {
	f := newAPIFixture(t)
	f.putSingle(t, tuesday, SlotPayload{StartTime: "09:00", EndTime: "12:00"})
	appt := f.book(t, tuesday, "10:00", "10:30")

	resp := f.do(t, http.MethodPost,
		fmt.Sprintf("/appointments/%s/cancel", appt.ID),
		CancelAppointmentRequest{Reason: "patient request", CancelledBy: "patient"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cancelled := decode[AppointmentResponse](t, resp)
	assert.Equal(t, "cancelled", cancelled.Status)
	assert.Equal(t, "patient request", cancelled.CancellationReason)
	require.NotNil(t, cancelled.CancelledAt)

	avail := f.do(t, http.MethodGet,
		fmt.Sprintf("/doctors/%s/availability?date=%s", f.doctor.ID, tuesday), nil)
	require.Equal(t, http.StatusOK, avail.StatusCode)
	day := decode[AvailabilityResponse](t, avail)
	// Freed slot comes back as a discrete entry.
	require.Len(t, day.Slots, 3)
	assert.Equal(t, "10:00", day.Slots[1].StartTime)
	assert.Equal(t, "10:30", day.Slots[1].EndTime)
}

func TestCancelUnknownAppointment(t *testing.T) {
	f := newAPIFixture(t)
	resp := f.do(t, http.MethodPost,
		fmt.Sprintf("/appointments/%s/cancel", uuid.New()),
		CancelAppointmentRequest{Reason: "x"})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "appointment_not_found", decode[ErrorResponse](t, resp).Error)
}

func TestMarkNoShow(t *testing.T) {
	f := newAPIFixture(t)
	f.putSingle(t, tuesday, SlotPayload{StartTime: "09:00", EndTime: "12:00"})
	appt := f.book(t, tuesday, "09:00", "09:30")

	resp := f.do(t, http.MethodPost,
		fmt.Sprintf("/appointments/%s/no-show", appt.ID),
		MarkNoShowRequest{Reason: "did not arrive"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	updated := decode[AppointmentResponse](t, resp)
	assert.Equal(t, "no_show", updated.Status)
	assert.Equal(t, "did not arrive", updated.NoShowReason)
}

func TestUpdateStatus(t *testing.T) {
	f := newAPIFixture(t)
	f.putSingle(t, tuesday, SlotPayload{StartTime: "09:00", EndTime: "12:00"})
	appt := f.book(t, tuesday, "09:00", "09:30")

	resp := f.do(t, http.MethodPatch,
		fmt.Sprintf("/appointments/%s/status", appt.ID),
		UpdateStatusRequest{Status: "completed"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "completed", decode[AppointmentResponse](t, resp).Status)

	resp = f.do(t, http.MethodPatch,
		fmt.Sprintf("/appointments/%s/status", appt.ID),
		UpdateStatusRequest{Status: "archived"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_status", decode[ErrorResponse](t, resp).Error)
}

func TestGetAppointment(t *testing.T) {
	f := newAPIFixture(t)
	f.putSingle(t, tuesday, SlotPayload{StartTime: "09:00", EndTime: "12:00"})
	appt := f.book(t, tuesday, "09:00", "09:30")

	resp := f.do(t, http.MethodGet, fmt.Sprintf("/appointments/%s", appt.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, appt.ID, decode[AppointmentResponse](t, resp).ID)

	resp = f.do(t, http.MethodGet, fmt.Sprintf("/appointments/%s", uuid.New()), nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListAppointmentsRequiresFilter(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, http.MethodGet, "/appointments", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "missing_filter", decode[ErrorResponse](t, resp).Error)

	resp = f.do(t, http.MethodGet, "/appointments?patient_id="+f.patient.ID.String(), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]AppointmentResponse](t, resp))
}

func TestAvailabilityRange(t *testing.T) {
	f := newAPIFixture(t)
	f.putRecurring(t, "Tuesday", SlotPayload{StartTime: "09:00", EndTime: "12:00"})
	f.putSingle(t, "2026-09-09") // blocked Wednesday

	resp := f.do(t, http.MethodGet,
		fmt.Sprintf("/doctors/%s/availability/range?from=%s&to=%s", f.doctor.ID, tuesday, "2026-09-10"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	days := decode[[]AvailabilityResponse](t, resp)
	require.Len(t, days, 3)
	assert.True(t, days[0].Available)
	assert.Equal(t, "recurring", days[0].Source)
	assert.False(t, days[1].Available)
	assert.False(t, days[2].Available)

	resp = f.do(t, http.MethodGet,
		fmt.Sprintf("/doctors/%s/availability/range?from=%s&to=%s", f.doctor.ID, "2026-09-10", tuesday), nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_date_range", decode[ErrorResponse](t, resp).Error)
}

func TestSearchDoctors(t *testing.T) {
	f := newAPIFixture(t)
	f.putRecurring(t, "Tuesday", SlotPayload{StartTime: "09:00", EndTime: "12:00"})

	resp := f.do(t, http.MethodGet, "/doctors/search?date="+tuesday+"&name=okafor", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	results := decode[[]DoctorSearchResult](t, resp)
	require.Len(t, results, 1)
	assert.Equal(t, f.doctor.ID, results[0].DoctorID)
	assert.Equal(t, tuesday, results[0].Date)
	require.Len(t, results[0].Slots, 1)

	// A Wednesday with no template matches nothing.
	resp = f.do(t, http.MethodGet, "/doctors/search?date=2026-09-09", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]DoctorSearchResult](t, resp))
}

func TestSetScheduleValidation(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, http.MethodPut,
		fmt.Sprintf("/doctors/%s/schedule/recurring", f.doctor.ID),
		SetRecurringScheduleRequest{DayOfWeek: "Funday"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_day_of_week", decode[ErrorResponse](t, resp).Error)

	resp = f.do(t, http.MethodPut,
		fmt.Sprintf("/doctors/%s/schedule/dates", f.doctor.ID),
		SetSingleDateScheduleRequest{Date: "next tuesday"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_date", decode[ErrorResponse](t, resp).Error)

	resp = f.do(t, http.MethodPut,
		fmt.Sprintf("/doctors/%s/schedule/recurring", uuid.New()),
		SetRecurringScheduleRequest{DayOfWeek: "Monday"})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "doctor_not_found", decode[ErrorResponse](t, resp).Error)
}
