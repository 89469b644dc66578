package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS doctors (
	id             integer PRIMARY KEY,
	name           text NOT NULL UNIQUE,
	specialization text NOT NULL,
	bio            text NOT NULL DEFAULT '',
	image          text NOT NULL DEFAULT '',
	created_at     timestamptz NOT NULL DEFAULT now(),
	updated_at     timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS doctor_availability (
	doctor_id  integer NOT NULL REFERENCES doctors(id) ON DELETE CASCADE,
	day        date NOT NULL,
	slots      text[] NOT NULL,
	version    bigint NOT NULL DEFAULT 1,
	updated_at timestamptz NOT NULL DEFAULT now(),
	PRIMARY KEY (doctor_id, day)
);

CREATE TABLE IF NOT EXISTS appointments (
	id           uuid PRIMARY KEY,
	doctor_id    integer NOT NULL REFERENCES doctors(id),
	patient_name text NOT NULL,
	day          date NOT NULL,
	slot         text NOT NULL,
	reason       text NOT NULL,
	version      bigint NOT NULL DEFAULT 1,
	created_at   timestamptz NOT NULL DEFAULT now(),
	updated_at   timestamptz NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS appointments_day_slot_idx ON appointments (day, slot);

CREATE TABLE IF NOT EXISTS testimonials (
	id    integer PRIMARY KEY,
	name  text NOT NULL,
	quote text NOT NULL,
	image text NOT NULL DEFAULT ''
);
`

// EnsureSchema creates the tables if they are missing. Idempotent, safe to
// run on every startup of cmd/seed.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
