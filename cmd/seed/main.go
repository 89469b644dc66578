package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medibook/clinic-booking/internal/clinic"
	"github.com/medibook/clinic-booking/internal/db"
)

type doctorSeed struct {
	id             int
	name           string
	specialization string
	bio            string
	image          string
}

var doctorSeeds = []doctorSeed{
	{
		id:             1,
		name:           "Dr. Evelyn Reed",
		specialization: "Cardiologist",
		bio:            "Dr. Reed has over 15 years of experience in cardiac care and is dedicated to patient wellness and preventative medicine.",
		image:          "https://placehold.co/100x100.png",
	},
	{
		id:             2,
		name:           "Dr. Marcus Thorne",
		specialization: "Dermatologist",
		bio:            "Specializing in both medical and cosmetic dermatology, Dr. Thorne is a leader in innovative skin treatments.",
		image:          "https://placehold.co/100x100.png",
	},
	{
		id:             3,
		name:           "Dr. Amelia Grant",
		specialization: "Pediatrician",
		bio:            "With a passion for children's health, Dr. Grant provides compassionate and comprehensive care for infants, children, and adolescents.",
		image:          "https://placehold.co/100x100.png",
	},
}

type testimonialSeed struct {
	id    int
	name  string
	quote string
	image string
}

var testimonialSeeds = []testimonialSeed{
	{1, "Sarah L.", "The booking process was incredibly smooth and the care I received from Dr. Reed was top-notch. Highly recommend!", "https://placehold.co/80x80.png"},
	{2, "James P.", "Finally, a healthcare platform that is easy to use. I managed to book an appointment with Dr. Thorne in minutes.", "https://placehold.co/80x80.png"},
	{3, "Emily C.", "Dr. Grant is wonderful with my kids. The clinic is clean, and the staff is so friendly. A great experience overall.", "https://placehold.co/80x80.png"},
	{4, "Michael B.", "I appreciated the clear communication and the minimal waiting time. The whole system is very efficient.", "https://placehold.co/80x80.png"},
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	appointmentCount := 0
	if v := os.Getenv("SEED_APPOINTMENTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			log.Fatalf("invalid SEED_APPOINTMENTS: %v", err)
		}
		appointmentCount = n
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if err := db.EnsureSchema(context.Background(), pool); err != nil {
		log.Fatalf("ensure schema: %v", err)
	}

	gofakeit.Seed(time.Now().UnixNano())

	if err := seedDoctors(context.Background(), pool); err != nil {
		log.Fatalf("seed doctors: %v", err)
	}
	if err := seedTestimonials(context.Background(), pool); err != nil {
		log.Fatalf("seed testimonials: %v", err)
	}
	if err := seedAvailability(context.Background(), pool); err != nil {
		log.Fatalf("seed availability: %v", err)
	}
	if appointmentCount > 0 {
		if err := seedAppointments(context.Background(), pool, appointmentCount); err != nil {
			log.Fatalf("seed appointments: %v", err)
		}
	}

	log.Println("seed complete")
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool) error {
	log.Printf("seeding %d doctors", len(doctorSeeds))

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, d := range doctorSeeds {
		_, err := tx.Exec(ctx, `
			INSERT INTO doctors (id, name, specialization, bio, image, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, now(), now())
			ON CONFLICT (id) DO NOTHING
		`, d.id, d.name, d.specialization, d.bio, d.image)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func seedTestimonials(ctx context.Context, pool *pgxpool.Pool) error {
	log.Printf("seeding %d testimonials", len(testimonialSeeds))

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, t := range testimonialSeeds {
		_, err := tx.Exec(ctx, `
			INSERT INTO testimonials (id, name, quote, image)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO NOTHING
		`, t.id, t.name, t.quote, t.image)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// seedAvailability gives every doctor a random subset of the grid for the
// next seven days, mirroring the shape of real clinic schedules: most
// on-the-hour slots open, half-past slots less often.
func seedAvailability(ctx context.Context, pool *pgxpool.Pool) error {
	log.Println("seeding availability for the next 7 days")

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	today := time.Now()

	for _, d := range doctorSeeds {
		for i := 0; i < 7; i++ {
			day := today.AddDate(0, 0, i).Format("2006-01-02")

			var slots []string
			for _, slot := range clinic.SlotGrid() {
				threshold := 70
				if slot[3:] == "30" {
					threshold = 50
				}
				if gofakeit.Number(1, 100) <= threshold {
					slots = append(slots, slot)
				}
			}
			if len(slots) == 0 {
				continue
			}

			_, err := tx.Exec(ctx, `
				INSERT INTO doctor_availability (doctor_id, day, slots, version, updated_at)
				VALUES ($1, $2, $3, 1, now())
				ON CONFLICT (doctor_id, day) DO UPDATE
				SET slots = EXCLUDED.slots,
				    version = doctor_availability.version + 1,
				    updated_at = now()
			`, d.id, day, slots)
			if err != nil {
				return err
			}
		}
	}

	return tx.Commit(ctx)
}

func seedAppointments(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d fake appointments", count)

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		grid := clinic.SlotGrid()
		for i := offset; i < end; i++ {
			doctor := doctorSeeds[gofakeit.Number(0, len(doctorSeeds)-1)]
			day := time.Now().AddDate(0, 0, gofakeit.Number(0, 6)).Format("2006-01-02")
			slot := grid[gofakeit.Number(0, len(grid)-1)]

			_, err := tx.Exec(ctx, `
				INSERT INTO appointments (id, doctor_id, patient_name, day, slot, reason, version, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, 1, now(), now())
			`, uuid.New(), doctor.id, gofakeit.Name(), day, slot, gofakeit.Sentence(8))
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("appointments seeded: %d/%d", end, count)
	}

	return nil
}
