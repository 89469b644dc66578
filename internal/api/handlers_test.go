package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/medibook/clinic-booking/internal/clinic"
)

const testAdminToken = "test-admin-token"

type stubService struct {
	slotsFn       func(ctx context.Context, doctorID int, day string) ([]string, error)
	setSlotsFn    func(ctx context.Context, doctorID int, day string, slots []string, expectedVersion int64) (*clinic.AvailabilityDay, error)
	appointments  func(ctx context.Context) ([]clinic.Appointment, error)
	createFn      func(ctx context.Context, draft clinic.AppointmentDraft) (*clinic.Appointment, error)
	bookFn        func(ctx context.Context, draft clinic.AppointmentDraft) (*clinic.Appointment, error)
	updateFn      func(ctx context.Context, id uuid.UUID, patch clinic.AppointmentPatch, expectedVersion int64) (*clinic.Appointment, error)
	cancelFn      func(ctx context.Context, id uuid.UUID) error
	doctorsFn     func(ctx context.Context) ([]clinic.Doctor, error)
	testimonialFn func(ctx context.Context) ([]clinic.Testimonial, error)
	statsFn       func(ctx context.Context) ([]clinic.DoctorBookingCount, error)
}

func (s *stubService) Slots(ctx context.Context, doctorID int, day string) ([]string, error) {
	return s.slotsFn(ctx, doctorID, day)
}

func (s *stubService) SetSlots(ctx context.Context, doctorID int, day string, slots []string, expectedVersion int64) (*clinic.AvailabilityDay, error) {
	return s.setSlotsFn(ctx, doctorID, day, slots, expectedVersion)
}

func (s *stubService) Appointments(ctx context.Context) ([]clinic.Appointment, error) {
	return s.appointments(ctx)
}

func (s *stubService) CreateAppointment(ctx context.Context, draft clinic.AppointmentDraft) (*clinic.Appointment, error) {
	return s.createFn(ctx, draft)
}

func (s *stubService) BookAppointment(ctx context.Context, draft clinic.AppointmentDraft) (*clinic.Appointment, error) {
	return s.bookFn(ctx, draft)
}

func (s *stubService) UpdateAppointment(ctx context.Context, id uuid.UUID, patch clinic.AppointmentPatch, expectedVersion int64) (*clinic.Appointment, error) {
	return s.updateFn(ctx, id, patch, expectedVersion)
}

func (s *stubService) CancelAppointment(ctx context.Context, id uuid.UUID) error {
	return s.cancelFn(ctx, id)
}

func (s *stubService) Doctors(ctx context.Context) ([]clinic.Doctor, error) {
	return s.doctorsFn(ctx)
}

func (s *stubService) Testimonials(ctx context.Context) ([]clinic.Testimonial, error) {
	return s.testimonialFn(ctx)
}

func (s *stubService) AppointmentsPerDoctor(ctx context.Context) ([]clinic.DoctorBookingCount, error) {
	return s.statsFn(ctx)
}

func newTestRouter(svc ClinicService) http.Handler {
	return NewRouter(RouterConfig{
		Service:    svc,
		Logger:     zap.NewNop(),
		AdminToken: testAdminToken,
		Env:        "dev",
		Version:    "test",
	})
}

func doRequest(t *testing.T, router http.Handler, method, path, body string, admin bool) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}

	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if admin {
		req.Header.Set("X-Admin-Token", testAdminToken)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestGetAvailability(t *testing.T) {
	svc := &stubService{
		slotsFn: func(_ context.Context, doctorID int, day string) ([]string, error) {
			assert.Equal(t, 1, doctorID)
			assert.Equal(t, "2024-12-25", day)
			return []string{"09:00", "09:30"}, nil
		},
	}
	router := newTestRouter(svc)

	rec := doRequest(t, router, http.MethodGet, "/doctors/1/availability?date=2024-12-25", "", false)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AvailabilityResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"09:00", "09:30"}, resp.Slots)
	assert.Equal(t, "2024-12-25", resp.Date)
}

func TestGetAvailabilityMissingDate(t *testing.T) {
	router := newTestRouter(&stubService{})

	rec := doRequest(t, router, http.MethodGet, "/doctors/1/availability", "", false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetAvailabilityBadDoctorID(t *testing.T) {
	router := newTestRouter(&stubService{})

	rec := doRequest(t, router, http.MethodGet, "/doctors/abc/availability?date=2024-12-25", "", false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetAvailabilityRequiresAdminToken(t *testing.T) {
	router := newTestRouter(&stubService{})

	rec := doRequest(t, router, http.MethodPut, "/doctors/1/availability", `{"date":"2024-12-25","slots":[]}`, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSetAvailability(t *testing.T) {
	svc := &stubService{
		setSlotsFn: func(_ context.Context, doctorID int, day string, slots []string, expectedVersion int64) (*clinic.AvailabilityDay, error) {
			assert.Equal(t, 1, doctorID)
			assert.Equal(t, int64(2), expectedVersion)
			return &clinic.AvailabilityDay{DoctorID: doctorID, Day: day, Slots: []string{"09:00"}, Version: 3}, nil
		},
	}
	router := newTestRouter(svc)

	rec := doRequest(t, router, http.MethodPut, "/doctors/1/availability", `{"date":"2024-12-25","slots":["09:00","09:00"],"version":2}`, true)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AvailabilityResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(3), resp.Version)
}

func TestSetAvailabilityVersionConflict(t *testing.T) {
	svc := &stubService{
		setSlotsFn: func(context.Context, int, string, []string, int64) (*clinic.AvailabilityDay, error) {
			return nil, clinic.ErrVersionConflict
		},
	}
	router := newTestRouter(svc)

	rec := doRequest(t, router, http.MethodPut, "/doctors/1/availability", `{"date":"2024-12-25","slots":["09:00"],"version":1}`, true)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "version_conflict"))
}

func TestCreateAppointment(t *testing.T) {
	apptID := uuid.New()
	svc := &stubService{
		createFn: func(_ context.Context, draft clinic.AppointmentDraft) (*clinic.Appointment, error) {
			assert.Equal(t, "John Doe", draft.PatientName)
			return &clinic.Appointment{
				ID:          apptID,
				DoctorID:    1,
				DoctorName:  "Dr. Evelyn Reed",
				PatientName: draft.PatientName,
				Day:         draft.Day,
				Slot:        draft.Slot,
				Reason:      draft.Reason,
				Version:     1,
			}, nil
		},
	}
	router := newTestRouter(svc)

	body := `{"doctor_id":1,"patient_name":"John Doe","date":"2024-12-25","time":"10:00","reason":"Follow-up consultation"}`
	rec := doRequest(t, router, http.MethodPost, "/appointments", body, false)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, apptID, resp.ID)
	assert.Equal(t, "Dr. Evelyn Reed", resp.DoctorName)
}

func TestCreateAppointmentBadBody(t *testing.T) {
	router := newTestRouter(&stubService{})

	rec := doRequest(t, router, http.MethodPost, "/appointments", `{not json`, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateAppointmentValidationError(t *testing.T) {
	svc := &stubService{
		createFn: func(context.Context, clinic.AppointmentDraft) (*clinic.Appointment, error) {
			return nil, clinic.ErrValidation
		},
	}
	router := newTestRouter(svc)

	rec := doRequest(t, router, http.MethodPost, "/appointments", `{"patient_name":"J"}`, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "invalid_input"))
}

func TestBookAppointmentConflicts(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"slot taken", clinic.ErrSlotNotAvailable, "slot_not_available"},
		{"lock contention", clinic.ErrBookingInProgress, "booking_in_progress"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{
				bookFn: func(context.Context, clinic.AppointmentDraft) (*clinic.Appointment, error) {
					return nil, tt.err
				},
			}
			router := newTestRouter(svc)

			body := `{"doctor_id":1,"patient_name":"John Doe","date":"2024-12-25","time":"10:00","reason":"Follow-up consultation"}`
			rec := doRequest(t, router, http.MethodPost, "/appointments/book", body, false)
			assert.Equal(t, http.StatusConflict, rec.Code)
			assert.True(t, strings.Contains(rec.Body.String(), tt.wantCode))
		})
	}
}

func TestListAppointmentsRequiresAdminToken(t *testing.T) {
	router := newTestRouter(&stubService{})

	rec := doRequest(t, router, http.MethodGet, "/appointments", "", false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListAppointments(t *testing.T) {
	svc := &stubService{
		appointments: func(context.Context) ([]clinic.Appointment, error) {
			return []clinic.Appointment{
				{ID: uuid.New(), Day: "2024-12-25", Slot: "10:00"},
				{ID: uuid.New(), Day: "2024-12-26", Slot: "11:30"},
			}, nil
		},
	}
	router := newTestRouter(svc)

	rec := doRequest(t, router, http.MethodGet, "/appointments", "", true)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp []AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 2)
	assert.Equal(t, "2024-12-25", resp[0].Date)
}

func TestUpdateAppointmentBadID(t *testing.T) {
	router := newTestRouter(&stubService{})

	rec := doRequest(t, router, http.MethodPatch, "/appointments/not-a-uuid", `{"time":"14:00"}`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateAppointmentNotFound(t *testing.T) {
	svc := &stubService{
		updateFn: func(context.Context, uuid.UUID, clinic.AppointmentPatch, int64) (*clinic.Appointment, error) {
			return nil, clinic.ErrAppointmentNotFound
		},
	}
	router := newTestRouter(svc)

	rec := doRequest(t, router, http.MethodPatch, "/appointments/"+uuid.NewString(), `{"time":"14:00"}`, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateAppointment(t *testing.T) {
	apptID := uuid.New()
	svc := &stubService{
		updateFn: func(_ context.Context, id uuid.UUID, patch clinic.AppointmentPatch, _ int64) (*clinic.Appointment, error) {
			assert.Equal(t, apptID, id)
			require.NotNil(t, patch.Slot)
			assert.Equal(t, "14:00", *patch.Slot)
			assert.Nil(t, patch.PatientName)
			return &clinic.Appointment{ID: id, Slot: *patch.Slot, Version: 2}, nil
		},
	}
	router := newTestRouter(svc)

	rec := doRequest(t, router, http.MethodPatch, "/appointments/"+apptID.String(), `{"time":"14:00"}`, true)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, apptID, resp.ID)
	assert.Equal(t, "14:00", resp.Time)
}

func TestDeleteAppointment(t *testing.T) {
	cancelled := false
	svc := &stubService{
		cancelFn: func(_ context.Context, id uuid.UUID) error {
			cancelled = true
			return nil
		},
	}
	router := newTestRouter(svc)

	rec := doRequest(t, router, http.MethodDelete, "/appointments/"+uuid.NewString(), "", true)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, cancelled)
}

func TestListDoctors(t *testing.T) {
	svc := &stubService{
		doctorsFn: func(context.Context) ([]clinic.Doctor, error) {
			return []clinic.Doctor{{
				ID:             1,
				Name:           "Dr. Evelyn Reed",
				Specialization: "Cardiologist",
				Availability:   map[string][]string{"2024-12-25": {"09:00"}},
			}}, nil
		},
	}
	router := newTestRouter(svc)

	rec := doRequest(t, router, http.MethodGet, "/doctors", "", false)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp []DoctorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "Cardiologist", resp[0].Specialization)
	assert.Equal(t, []string{"09:00"}, resp[0].Availability["2024-12-25"])
}

func TestDoctorStats(t *testing.T) {
	svc := &stubService{
		statsFn: func(context.Context) ([]clinic.DoctorBookingCount, error) {
			return []clinic.DoctorBookingCount{
				{DoctorID: 1, DoctorName: "Dr. Evelyn Reed", Count: 4},
			}, nil
		},
	}
	router := newTestRouter(svc)

	rec := doRequest(t, router, http.MethodGet, "/admin/stats/appointments-per-doctor", "", true)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp []DoctorStatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, int64(4), resp[0].Appointments)
}

func TestTestimonials(t *testing.T) {
	svc := &stubService{
		testimonialFn: func(context.Context) ([]clinic.Testimonial, error) {
			return []clinic.Testimonial{{ID: 1, Name: "Sarah L.", Quote: "Highly recommend!"}}, nil
		},
	}
	router := newTestRouter(svc)

	rec := doRequest(t, router, http.MethodGet, "/testimonials", "", false)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp []TestimonialResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "Sarah L.", resp[0].Name)
}
