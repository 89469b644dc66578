package clinic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	redisclient "github.com/medibook/clinic-booking/internal/redisclient"
)

var (
	ErrBookingInProgress = errors.New("slot is currently being booked, please retry")
)

// AppointmentDraft is the input of both booking paths.
type AppointmentDraft struct {
	DoctorID    int    `validate:"omitempty,gt=0"`
	DoctorName  string // accepted when DoctorID is zero, resolved to an id
	PatientName string `validate:"required,min=2"`
	Day         string `validate:"required,datetime=2006-01-02"`
	Slot        string `validate:"required"`
	Reason      string `validate:"required,min=10"`
}

type Service struct {
	repo     Repository
	locker   redisclient.Locker
	validate *validator.Validate
	logger   *zap.Logger
}

func NewService(repo Repository, locker redisclient.Locker, logger *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		locker:   locker,
		validate: validator.New(),
		logger:   logger,
	}
}

// Slots returns the open slot labels for one doctor and day. Absence of
// the doctor or the day is an empty list, not an error.
func (s *Service) Slots(ctx context.Context, doctorID int, day string) ([]string, error) {
	if !ValidDate(day) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, day)
	}

	av, err := s.repo.GetAvailability(ctx, doctorID, day)
	if err != nil {
		if errors.Is(err, ErrAvailabilityNotFound) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("load availability: %w", err)
	}
	return av.Slots, nil
}

// SetSlots replaces the slot list for one doctor and day. Duplicates in the
// input are silently deduplicated and the stored list is sorted ascending.
// An empty list removes the day entirely. expectedVersion > 0 makes the
// write conditional.
func (s *Service) SetSlots(ctx context.Context, doctorID int, day string, slots []string, expectedVersion int64) (*AvailabilityDay, error) {
	if !ValidDate(day) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, day)
	}

	normalized, err := NormalizeSlots(slots)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.GetDoctorByID(ctx, doctorID); err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}

	av, err := s.repo.ReplaceAvailability(ctx, doctorID, day, normalized, expectedVersion)
	if err != nil {
		return nil, err
	}

	s.logger.Info("availability replaced",
		zap.Int("doctor_id", doctorID),
		zap.String("day", day),
		zap.Int("slots", len(normalized)),
		zap.Int64("version", av.Version),
	)
	return av, nil
}

// Appointments lists the whole ledger ordered by day then slot ascending.
func (s *Service) Appointments(ctx context.Context) ([]Appointment, error) {
	appts, err := s.repo.ListAppointments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appts, nil
}

// CreateAppointment records an appointment without touching availability.
// It trusts the caller to have offered only open slots; BookAppointment is
// the checked, atomic path.
func (s *Service) CreateAppointment(ctx context.Context, draft AppointmentDraft) (*Appointment, error) {
	doctor, err := s.checkDraft(ctx, &draft)
	if err != nil {
		return nil, err
	}

	appt, err := s.repo.InsertAppointment(ctx, &Appointment{
		DoctorID:    doctor.ID,
		PatientName: draft.PatientName,
		Day:         draft.Day,
		Slot:        draft.Slot,
		Reason:      draft.Reason,
	})
	if err != nil {
		return nil, fmt.Errorf("create appointment: %w", err)
	}

	s.logger.Info("appointment created",
		zap.String("appointment_id", appt.ID.String()),
		zap.Int("doctor_id", appt.DoctorID),
		zap.String("day", appt.Day),
		zap.String("slot", appt.Slot),
	)
	return appt, nil
}

// BookAppointment reserves the slot and records the appointment in one
// step. A per doctor/day Redis lock serializes concurrent bookings so the
// availability check and the write cannot interleave.
func (s *Service) BookAppointment(ctx context.Context, draft AppointmentDraft) (*Appointment, error) {
	doctor, err := s.checkDraft(ctx, &draft)
	if err != nil {
		return nil, err
	}

	var booked *Appointment

	err = s.locker.WithBookingLock(ctx, doctor.ID, draft.Day, func(lockCtx context.Context) error {
		appt, err := s.repo.BookSlot(lockCtx, doctor.ID, draft.Day, draft.Slot, draft.PatientName, draft.Reason)
		if err != nil {
			return err
		}
		booked = appt
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrBookingInProgress
		}
		return nil, err
	}

	s.logger.Info("slot booked",
		zap.String("appointment_id", booked.ID.String()),
		zap.Int("doctor_id", booked.DoctorID),
		zap.String("day", booked.Day),
		zap.String("slot", booked.Slot),
	)
	return booked, nil
}

// UpdateAppointment applies a partial update. The identifier is immutable.
func (s *Service) UpdateAppointment(ctx context.Context, id uuid.UUID, patch AppointmentPatch, expectedVersion int64) (*Appointment, error) {
	if err := s.checkPatch(ctx, patch); err != nil {
		return nil, err
	}

	appt, err := s.repo.UpdateAppointment(ctx, id, patch, expectedVersion)
	if err != nil {
		return nil, err
	}

	s.logger.Info("appointment updated",
		zap.String("appointment_id", id.String()),
		zap.Int64("version", appt.Version),
	)
	return appt, nil
}

// CancelAppointment removes the appointment. Cancelling an id that is
// already gone succeeds, so retried deletes are harmless. The booked slot
// is not returned to availability.
func (s *Service) CancelAppointment(ctx context.Context, id uuid.UUID) error {
	err := s.repo.DeleteAppointment(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			s.logger.Debug("cancel of missing appointment", zap.String("appointment_id", id.String()))
			return nil
		}
		return fmt.Errorf("cancel appointment: %w", err)
	}

	s.logger.Info("appointment cancelled", zap.String("appointment_id", id.String()))
	return nil
}

// Doctors returns all doctor profiles with their availability maps.
func (s *Service) Doctors(ctx context.Context) ([]Doctor, error) {
	doctors, err := s.repo.ListDoctors(ctx)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	return doctors, nil
}

func (s *Service) Testimonials(ctx context.Context) ([]Testimonial, error) {
	ts, err := s.repo.ListTestimonials(ctx)
	if err != nil {
		return nil, fmt.Errorf("list testimonials: %w", err)
	}
	return ts, nil
}

// AppointmentsPerDoctor backs the admin dashboard chart.
func (s *Service) AppointmentsPerDoctor(ctx context.Context) ([]DoctorBookingCount, error) {
	counts, err := s.repo.CountAppointmentsByDoctor(ctx)
	if err != nil {
		return nil, fmt.Errorf("count appointments: %w", err)
	}
	return counts, nil
}

// PrunePastAvailability drops availability rows whose day has passed. They
// are unbookable and the admin calendar never shows them.
func (s *Service) PrunePastAvailability(ctx context.Context, now time.Time) (int64, error) {
	cutoff := now.Format(dayFormat)
	pruned, err := s.repo.PruneAvailabilityBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if pruned > 0 {
		s.logger.Info("pruned past availability", zap.Int64("rows", pruned), zap.String("cutoff", cutoff))
	}
	return pruned, nil
}

// checkDraft validates the draft and resolves its doctor reference.
func (s *Service) checkDraft(ctx context.Context, draft *AppointmentDraft) (*Doctor, error) {
	if err := s.validate.Struct(draft); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if !ValidSlot(draft.Slot) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSlot, draft.Slot)
	}

	switch {
	case draft.DoctorID > 0:
		return s.repo.GetDoctorByID(ctx, draft.DoctorID)
	case draft.DoctorName != "":
		return s.repo.GetDoctorByName(ctx, draft.DoctorName)
	default:
		return nil, fmt.Errorf("%w: doctor_id or doctor_name is required", ErrValidation)
	}
}

func (s *Service) checkPatch(ctx context.Context, patch AppointmentPatch) error {
	if patch.PatientName != nil {
		if err := s.validate.Var(*patch.PatientName, "min=2"); err != nil {
			return fmt.Errorf("%w: patient_name too short", ErrValidation)
		}
	}
	if patch.Reason != nil {
		if err := s.validate.Var(*patch.Reason, "min=10"); err != nil {
			return fmt.Errorf("%w: reason too short", ErrValidation)
		}
	}
	if patch.Day != nil && !ValidDate(*patch.Day) {
		return fmt.Errorf("%w: %q", ErrInvalidDate, *patch.Day)
	}
	if patch.Slot != nil && !ValidSlot(*patch.Slot) {
		return fmt.Errorf("%w: %q", ErrInvalidSlot, *patch.Slot)
	}
	if patch.DoctorID != nil {
		if _, err := s.repo.GetDoctorByID(ctx, *patch.DoctorID); err != nil {
			return err
		}
	}
	return nil
}
