package clinic

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrDoctorNotFound       = errors.New("doctor not found")
	ErrAppointmentNotFound  = errors.New("appointment not found")
	ErrAvailabilityNotFound = errors.New("availability not found")
	ErrSlotNotAvailable     = errors.New("slot is not available")
	ErrVersionConflict      = errors.New("version conflict")
	ErrInvalidSlot          = errors.New("slot is not on the booking grid")
	ErrInvalidDate          = errors.New("date must be YYYY-MM-DD")
	ErrValidation           = errors.New("validation failed")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetDoctorByID(ctx context.Context, id int) (*Doctor, error)
	GetDoctorByName(ctx context.Context, name string) (*Doctor, error)
	// ListDoctors returns profiles with their availability maps populated.
	ListDoctors(ctx context.Context) ([]Doctor, error)

	// GetAvailability returns ErrAvailabilityNotFound when the day has no row.
	GetAvailability(ctx context.Context, doctorID int, day string) (*AvailabilityDay, error)
	// ReplaceAvailability fully replaces the slot list for one doctor/day.
	// Empty slots removes the row. expectedVersion > 0 makes the write
	// conditional and fails with ErrVersionConflict on mismatch.
	ReplaceAvailability(ctx context.Context, doctorID int, day string, slots []string, expectedVersion int64) (*AvailabilityDay, error)
	// PruneAvailabilityBefore deletes rows whose day precedes the cutoff.
	PruneAvailabilityBefore(ctx context.Context, day string) (int64, error)

	// ListAppointments orders by day then slot ascending.
	ListAppointments(ctx context.Context) ([]Appointment, error)
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	InsertAppointment(ctx context.Context, appt *Appointment) (*Appointment, error)
	UpdateAppointment(ctx context.Context, id uuid.UUID, patch AppointmentPatch, expectedVersion int64) (*Appointment, error)
	DeleteAppointment(ctx context.Context, id uuid.UUID) error

	// BookSlot removes the slot from availability and inserts the
	// appointment in one transaction. ErrSlotNotAvailable when the slot is
	// not currently open.
	BookSlot(ctx context.Context, doctorID int, day, slot, patientName, reason string) (*Appointment, error)

	CountAppointmentsByDoctor(ctx context.Context) ([]DoctorBookingCount, error)

	ListTestimonials(ctx context.Context) ([]Testimonial, error)
}
