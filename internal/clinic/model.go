package clinic

import (
	"time"

	"github.com/google/uuid"
)

// Doctor is immutable seed data apart from its availability map. The map is
// keyed by ISO date (YYYY-MM-DD); a day with no open slots has no key at
// all, never an empty list.
type Doctor struct {
	ID             int
	Name           string
	Specialization string
	Bio            string
	Image          string
	Availability   map[string][]string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// AvailabilityDay is one row of a doctor's schedule. Version increments on
// every replace so concurrent admin edits surface as conflicts instead of
// silently clobbering each other.
type AvailabilityDay struct {
	DoctorID  int
	Day       string
	Slots     []string
	Version   int64
	UpdatedAt time.Time
}

type Appointment struct {
	ID          uuid.UUID
	DoctorID    int
	DoctorName  string // joined from doctors at read time
	PatientName string
	Day         string // YYYY-MM-DD
	Slot        string // HH:MM on the booking grid
	Reason      string
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AppointmentPatch carries the optional fields of a partial update. Nil
// means leave unchanged.
type AppointmentPatch struct {
	DoctorID    *int
	PatientName *string
	Day         *string
	Slot        *string
	Reason      *string
}

type Testimonial struct {
	ID    int
	Name  string
	Quote string
	Image string
}

// DoctorBookingCount backs the admin dashboard chart.
type DoctorBookingCount struct {
	DoctorID   int
	DoctorName string
	Count      int64
}
