package api

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/medibook/clinic-booking/internal/clinic"
)

// ClinicService is what the handlers need from the domain layer.
type ClinicService interface {
	Slots(ctx context.Context, doctorID int, day string) ([]string, error)
	SetSlots(ctx context.Context, doctorID int, day string, slots []string, expectedVersion int64) (*clinic.AvailabilityDay, error)
	Appointments(ctx context.Context) ([]clinic.Appointment, error)
	CreateAppointment(ctx context.Context, draft clinic.AppointmentDraft) (*clinic.Appointment, error)
	BookAppointment(ctx context.Context, draft clinic.AppointmentDraft) (*clinic.Appointment, error)
	UpdateAppointment(ctx context.Context, id uuid.UUID, patch clinic.AppointmentPatch, expectedVersion int64) (*clinic.Appointment, error)
	CancelAppointment(ctx context.Context, id uuid.UUID) error
	Doctors(ctx context.Context) ([]clinic.Doctor, error)
	Testimonials(ctx context.Context) ([]clinic.Testimonial, error)
	AppointmentsPerDoctor(ctx context.Context) ([]clinic.DoctorBookingCount, error)
}

type SetAvailabilityRequest struct {
	Date    string   `json:"date"`
	Slots   []string `json:"slots"`
	Version int64    `json:"version,omitempty"`
}

type AvailabilityResponse struct {
	DoctorID int      `json:"doctor_id"`
	Date     string   `json:"date"`
	Slots    []string `json:"slots"`
	Version  int64    `json:"version,omitempty"`
}

type AppointmentRequest struct {
	DoctorID    int    `json:"doctor_id,omitempty"`
	DoctorName  string `json:"doctor_name,omitempty"`
	PatientName string `json:"patient_name"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Reason      string `json:"reason"`
}

type AppointmentPatchRequest struct {
	DoctorID    *int    `json:"doctor_id,omitempty"`
	PatientName *string `json:"patient_name,omitempty"`
	Date        *string `json:"date,omitempty"`
	Time        *string `json:"time,omitempty"`
	Reason      *string `json:"reason,omitempty"`
	Version     int64   `json:"version,omitempty"`
}

type AppointmentResponse struct {
	ID          uuid.UUID `json:"id"`
	DoctorID    int       `json:"doctor_id"`
	DoctorName  string    `json:"doctor_name"`
	PatientName string    `json:"patient_name"`
	Date        string    `json:"date"`
	Time        string    `json:"time"`
	Reason      string    `json:"reason"`
	Version     int64     `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
}

type DoctorResponse struct {
	ID             int                 `json:"id"`
	Name           string              `json:"name"`
	Specialization string              `json:"specialization"`
	Bio            string              `json:"bio"`
	Image          string              `json:"image"`
	Availability   map[string][]string `json:"availability"`
}

type TestimonialResponse struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Quote string `json:"quote"`
	Image string `json:"image"`
}

type DoctorStatsResponse struct {
	DoctorID     int    `json:"doctor_id"`
	DoctorName   string `json:"doctor_name"`
	Appointments int64  `json:"appointments"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toAppointmentResponse(a *clinic.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:          a.ID,
		DoctorID:    a.DoctorID,
		DoctorName:  a.DoctorName,
		PatientName: a.PatientName,
		Date:        a.Day,
		Time:        a.Slot,
		Reason:      a.Reason,
		Version:     a.Version,
		CreatedAt:   a.CreatedAt,
	}
}

func toDraft(req AppointmentRequest) clinic.AppointmentDraft {
	return clinic.AppointmentDraft{
		DoctorID:    req.DoctorID,
		DoctorName:  req.DoctorName,
		PatientName: req.PatientName,
		Day:         req.Date,
		Slot:        req.Time,
		Reason:      req.Reason,
	}
}
