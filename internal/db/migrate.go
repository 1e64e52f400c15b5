package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// The partial unique index on appointments is what makes two concurrent
// bookings of the same provider/date/start resolve to one winner: the loser's
// insert fails with a unique violation and is surfaced as a conflict.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id          UUID PRIMARY KEY,
		name        TEXT NOT NULL,
		role        TEXT NOT NULL,
		status      TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS pets (
		id          UUID PRIMARY KEY,
		owner_id    UUID NOT NULL REFERENCES users(id),
		name        TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS services (
		id          UUID PRIMARY KEY,
		provider_id UUID NOT NULL REFERENCES users(id),
		title       TEXT NOT NULL,
		active      BOOLEAN NOT NULL DEFAULT true,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS business_hours (
		id        UUID PRIMARY KEY,
		weekday   SMALLINT NOT NULL,
		opens_at  TIME NOT NULL,
		closes_at TIME NOT NULL,
		active    BOOLEAN NOT NULL DEFAULT true
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_business_hours_weekday_active
		ON business_hours (weekday) WHERE active`,
	`CREATE TABLE IF NOT EXISTS appointments (
		id          UUID PRIMARY KEY,
		pet_id      UUID NOT NULL REFERENCES pets(id),
		service_id  UUID NOT NULL REFERENCES services(id),
		provider_id UUID NOT NULL REFERENCES users(id),
		date        DATE NOT NULL,
		start_time  TIME NOT NULL,
		end_time    TIME NOT NULL,
		status      TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_appointments_provider_slot
		ON appointments (provider_id, date, start_time) WHERE status <> 'cancelled'`,
	`CREATE INDEX IF NOT EXISTS idx_appointments_pet ON appointments (pet_id)`,
	`CREATE INDEX IF NOT EXISTS idx_appointments_service ON appointments (service_id)`,
}

// Migrate applies the schema. Every statement is idempotent so it runs on
// each startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
