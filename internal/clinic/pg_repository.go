package clinic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the subset of pgxpool.Pool the repository uses. Tests inject a
// pgxmock pool through it.
type PgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgRepository struct {
	pool PgxPool
}

func NewPgRepository(pool PgxPool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func parseDay(day string) (time.Time, error) {
	t, err := time.Parse(dayFormat, day)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, day)
	}
	return t, nil
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor

	err := row.Scan(
		&d.ID,
		&d.Name,
		&d.Specialization,
		&d.Bio,
		&d.Image,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}

	d.Availability = map[string][]string{}
	return &d, nil
}

func scanAvailability(row pgx.Row) (*AvailabilityDay, error) {
	var a AvailabilityDay
	var day time.Time

	err := row.Scan(
		&a.DoctorID,
		&day,
		&a.Slots,
		&a.Version,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAvailabilityNotFound
		}
		return nil, err
	}

	a.Day = day.Format(dayFormat)
	return &a, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var day time.Time

	err := row.Scan(
		&a.ID,
		&a.DoctorID,
		&a.DoctorName,
		&a.PatientName,
		&day,
		&a.Slot,
		&a.Reason,
		&a.Version,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.Day = day.Format(dayFormat)
	return &a, nil
}

// Interface methods

func (r *PgRepository) GetDoctorByID(ctx context.Context, id int) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, specialization, bio, image, created_at, updated_at
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

func (r *PgRepository) GetDoctorByName(ctx context.Context, name string) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, specialization, bio, image, created_at, updated_at
		FROM doctors
		WHERE name = $1
	`, name)
	return scanDoctor(row)
}

func (r *PgRepository) ListDoctors(ctx context.Context) ([]Doctor, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, specialization, bio, image, created_at, updated_at
		FROM doctors
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var doctors []Doctor
	index := map[int]int{}
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		index[d.ID] = len(doctors)
		doctors = append(doctors, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	availRows, err := r.pool.Query(ctx, `
		SELECT doctor_id, day, slots
		FROM doctor_availability
		ORDER BY doctor_id, day
	`)
	if err != nil {
		return nil, err
	}
	defer availRows.Close()

	for availRows.Next() {
		var doctorID int
		var day time.Time
		var slots []string
		if err := availRows.Scan(&doctorID, &day, &slots); err != nil {
			return nil, err
		}
		if i, ok := index[doctorID]; ok {
			doctors[i].Availability[day.Format(dayFormat)] = slots
		}
	}
	if err := availRows.Err(); err != nil {
		return nil, err
	}

	return doctors, nil
}

func (r *PgRepository) GetAvailability(ctx context.Context, doctorID int, day string) (*AvailabilityDay, error) {
	d, err := parseDay(day)
	if err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx, `
		SELECT doctor_id, day, slots, version, updated_at
		FROM doctor_availability
		WHERE doctor_id = $1 AND day = $2
	`, doctorID, d)
	return scanAvailability(row)
}

func (r *PgRepository) ReplaceAvailability(ctx context.Context, doctorID int, day string, slots []string, expectedVersion int64) (*AvailabilityDay, error) {
	d, err := parseDay(day)
	if err != nil {
		return nil, err
	}

	// Empty slot list removes the row entirely; a day never maps to an
	// empty set.
	if len(slots) == 0 {
		if expectedVersion > 0 {
			tag, err := r.pool.Exec(ctx, `
				DELETE FROM doctor_availability
				WHERE doctor_id = $1 AND day = $2 AND version = $3
			`, doctorID, d, expectedVersion)
			if err != nil {
				return nil, err
			}
			if tag.RowsAffected() == 0 {
				return nil, ErrVersionConflict
			}
		} else {
			if _, err := r.pool.Exec(ctx, `
				DELETE FROM doctor_availability
				WHERE doctor_id = $1 AND day = $2
			`, doctorID, d); err != nil {
				return nil, err
			}
		}
		return &AvailabilityDay{DoctorID: doctorID, Day: day, Slots: []string{}}, nil
	}

	if expectedVersion > 0 {
		row := r.pool.QueryRow(ctx, `
			UPDATE doctor_availability
			SET slots = $3,
			    version = version + 1,
			    updated_at = now()
			WHERE doctor_id = $1 AND day = $2 AND version = $4
			RETURNING doctor_id, day, slots, version, updated_at
		`, doctorID, d, slots, expectedVersion)

		av, err := scanAvailability(row)
		if errors.Is(err, ErrAvailabilityNotFound) {
			return nil, ErrVersionConflict
		}
		return av, err
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO doctor_availability (doctor_id, day, slots, version, updated_at)
		VALUES ($1, $2, $3, 1, now())
		ON CONFLICT (doctor_id, day) DO UPDATE
		SET slots = EXCLUDED.slots,
		    version = doctor_availability.version + 1,
		    updated_at = now()
		RETURNING doctor_id, day, slots, version, updated_at
	`, doctorID, d, slots)
	return scanAvailability(row)
}

func (r *PgRepository) PruneAvailabilityBefore(ctx context.Context, day string) (int64, error) {
	d, err := parseDay(day)
	if err != nil {
		return 0, err
	}

	tag, err := r.pool.Exec(ctx, `
		DELETE FROM doctor_availability
		WHERE day < $1
	`, d)
	if err != nil {
		return 0, fmt.Errorf("prune availability: %w", err)
	}
	return tag.RowsAffected(), nil
}

const appointmentColumns = `a.id, a.doctor_id, d.name, a.patient_name, a.day, a.slot, a.reason, a.version, a.created_at, a.updated_at`

func (r *PgRepository) ListAppointments(ctx context.Context) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		JOIN doctors d ON d.id = a.doctor_id
		ORDER BY a.day, a.slot
	`)
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
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		JOIN doctors d ON d.id = a.doctor_id
		WHERE a.id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) InsertAppointment(ctx context.Context, appt *Appointment) (*Appointment, error) {
	d, err := parseDay(appt.Day)
	if err != nil {
		return nil, err
	}

	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		WITH a AS (
			INSERT INTO appointments (id, doctor_id, patient_name, day, slot, reason, version, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, 1, now(), now())
			RETURNING *
		)
		SELECT `+appointmentColumns+`
		FROM a
		JOIN doctors d ON d.id = a.doctor_id
	`, id, appt.DoctorID, appt.PatientName, d, appt.Slot, appt.Reason)

	return scanAppointment(row)
}

func (r *PgRepository) UpdateAppointment(ctx context.Context, id uuid.UUID, patch AppointmentPatch, expectedVersion int64) (*Appointment, error) {
	var day *time.Time
	if patch.Day != nil {
		d, err := parseDay(*patch.Day)
		if err != nil {
			return nil, err
		}
		day = &d
	}

	row := r.pool.QueryRow(ctx, `
		WITH a AS (
			UPDATE appointments
			SET doctor_id = COALESCE($2, doctor_id),
			    patient_name = COALESCE($3, patient_name),
			    day = COALESCE($4, day),
			    slot = COALESCE($5, slot),
			    reason = COALESCE($6, reason),
			    version = version + 1,
			    updated_at = now()
			WHERE id = $1 AND ($7 = 0 OR version = $7)
			RETURNING *
		)
		SELECT `+appointmentColumns+`
		FROM a
		JOIN doctors d ON d.id = a.doctor_id
	`, id, patch.DoctorID, patch.PatientName, day, patch.Slot, patch.Reason, expectedVersion)

	appt, err := scanAppointment(row)
	if errors.Is(err, ErrAppointmentNotFound) && expectedVersion > 0 {
		// Distinguish a vanished record from a stale version.
		var exists bool
		checkErr := r.pool.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM appointments WHERE id = $1)
		`, id).Scan(&exists)
		if checkErr == nil && exists {
			return nil, ErrVersionConflict
		}
		return nil, ErrAppointmentNotFound
	}
	return appt, err
}

func (r *PgRepository) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM appointments
		WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

// BookSlot removes the slot from the doctor's availability and inserts the
// appointment in a single transaction, so a failed booking leaves no state
// behind. Callers serialize per doctor/day through the Redis lock.
func (r *PgRepository) BookSlot(ctx context.Context, doctorID int, day, slot, patientName, reason string) (*Appointment, error) {
	d, err := parseDay(day)
	if err != nil {
		return nil, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin booking tx: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		UPDATE doctor_availability
		SET slots = array_remove(slots, $3),
		    version = version + 1,
		    updated_at = now()
		WHERE doctor_id = $1 AND day = $2 AND $3 = ANY(slots)
		RETURNING slots
	`, doctorID, d, slot)

	var remaining []string
	if err := row.Scan(&remaining); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotAvailable
		}
		return nil, err
	}

	// Last slot of the day gone: remove the row, empty lists are never stored.
	if len(remaining) == 0 {
		if _, err := tx.Exec(ctx, `
			DELETE FROM doctor_availability
			WHERE doctor_id = $1 AND day = $2
		`, doctorID, d); err != nil {
			return nil, err
		}
	}

	id := uuid.New()
	apptRow := tx.QueryRow(ctx, `
		WITH a AS (
			INSERT INTO appointments (id, doctor_id, patient_name, day, slot, reason, version, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, 1, now(), now())
			RETURNING *
		)
		SELECT `+appointmentColumns+`
		FROM a
		JOIN doctors d ON d.id = a.doctor_id
	`, id, doctorID, patientName, d, slot, reason)

	appt, err := scanAppointment(apptRow)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit booking tx: %w", err)
	}

	return appt, nil
}

func (r *PgRepository) CountAppointmentsByDoctor(ctx context.Context) ([]DoctorBookingCount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT d.id, d.name, COUNT(a.id)
		FROM doctors d
		LEFT JOIN appointments a ON a.doctor_id = d.id
		GROUP BY d.id, d.name
		ORDER BY d.id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []DoctorBookingCount
	for rows.Next() {
		var c DoctorBookingCount
		if err := rows.Scan(&c.DoctorID, &c.DoctorName, &c.Count); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) ListTestimonials(ctx context.Context) ([]Testimonial, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, quote, image
		FROM testimonials
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Testimonial
	for rows.Next() {
		var t Testimonial
		if err := rows.Scan(&t.ID, &t.Name, &t.Quote, &t.Image); err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
