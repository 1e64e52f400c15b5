package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgRepository backs every store contract with Postgres. The appointments
// table carries a partial unique index on (provider_id, date, start_time)
// excluding cancelled rows; Save surfaces its violation as ErrSlotTaken.
type PgRepository struct {
	pool *pgxpool.Pool
	loc  *time.Location
}

func NewPgRepository(pool *pgxpool.Pool, loc *time.Location) *PgRepository {
	return &PgRepository{pool: pool, loc: loc}
}

// Helpers

func pgTime(t TimeOfDay) pgtype.Time {
	return pgtype.Time{Microseconds: time.Duration(t).Microseconds(), Valid: true}
}

func timeOfDay(t pgtype.Time) TimeOfDay {
	return TimeOfDay(time.Duration(t.Microseconds) * time.Microsecond)
}

// dateInZone re-anchors a scanned DATE on midnight in the business zone
// without shifting the calendar day.
func (r *PgRepository) dateInZone(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, r.loc)
}

func (r *PgRepository) scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var date time.Time
	var start, end pgtype.Time

	err := row.Scan(
		&a.ID,
		&a.PetID,
		&a.ServiceID,
		&a.ProviderID,
		&date,
		&start,
		&end,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.Date = r.dateInZone(date)
	a.StartTime = timeOfDay(start)
	a.EndTime = timeOfDay(end)
	a.CreatedAt = a.CreatedAt.In(r.loc)
	a.UpdatedAt = a.UpdatedAt.In(r.loc)
	return &a, nil
}

func (r *PgRepository) scanAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := r.scanAppointment(rows)
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

const appointmentColumns = `id, pet_id, service_id, provider_id, date, start_time, end_time, status, created_at, updated_at`

// AppointmentRepository

func (r *PgRepository) Save(ctx context.Context, appt *Appointment) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, pet_id, service_id, provider_id, date, start_time, end_time, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+appointmentColumns+`
	`,
		appt.ID, appt.PetID, appt.ServiceID, appt.ProviderID,
		appt.Date, pgTime(appt.StartTime), pgTime(appt.EndTime),
		appt.Status, appt.CreatedAt, appt.UpdatedAt,
	)

	saved, err := r.scanAppointment(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("insert appointment: %w", err)
	}
	return saved, nil
}

func (r *PgRepository) FindConflict(ctx context.Context, providerID uuid.UUID, date time.Time, start TimeOfDay) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE provider_id = $1 AND date = $2 AND start_time = $3
		  AND status <> 'cancelled'
	`, providerID, date, pgTime(start))
	return r.scanAppointment(row)
}

func (r *PgRepository) ListByProviderAndDate(ctx context.Context, providerID uuid.UUID, date time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE provider_id = $1 AND date = $2 AND status <> 'cancelled'
		ORDER BY start_time
	`, providerID, date)
	if err != nil {
		return nil, err
	}
	return r.scanAppointments(rows)
}

func (r *PgRepository) ListByPet(ctx context.Context, petID uuid.UUID) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE pet_id = $1
		ORDER BY date DESC, start_time DESC
	`, petID)
	if err != nil {
		return nil, err
	}
	return r.scanAppointments(rows)
}

func (r *PgRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id, a.pet_id, a.service_id, a.provider_id, a.date, a.start_time, a.end_time, a.status, a.created_at, a.updated_at
		FROM appointments a
		JOIN pets p ON a.pet_id = p.id
		WHERE p.owner_id = $1
		ORDER BY a.date DESC, a.start_time DESC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	return r.scanAppointments(rows)
}

// HoursRepository

func (r *PgRepository) scanRule(row pgx.Row) (*BusinessHoursRule, error) {
	var rule BusinessHoursRule
	var weekday int16
	var opensAt, closesAt pgtype.Time

	err := row.Scan(&rule.ID, &weekday, &opensAt, &closesAt, &rule.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRuleNotFound
		}
		return nil, err
	}

	rule.Weekday = time.Weekday(weekday)
	rule.OpensAt = timeOfDay(opensAt)
	rule.ClosesAt = timeOfDay(closesAt)
	return &rule, nil
}

func (r *PgRepository) GetActiveRule(ctx context.Context, weekday time.Weekday) (*BusinessHoursRule, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, weekday, opens_at, closes_at, active
		FROM business_hours
		WHERE weekday = $1 AND active
	`, int16(weekday))
	return r.scanRule(row)
}

func (r *PgRepository) ListActiveRules(ctx context.Context) ([]BusinessHoursRule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, weekday, opens_at, closes_at, active
		FROM business_hours
		WHERE active
		ORDER BY weekday
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []BusinessHoursRule
	for rows.Next() {
		rule, err := r.scanRule(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) UpsertDefault(ctx context.Context, weekday time.Weekday, opensAt, closesAt TimeOfDay) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE business_hours
		SET opens_at = $2, closes_at = $3
		WHERE weekday = $1 AND active
	`, int16(weekday), pgTime(opensAt), pgTime(closesAt))
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO business_hours (id, weekday, opens_at, closes_at, active)
		VALUES ($1, $2, $3, $4, true)
	`, uuid.New(), int16(weekday), pgTime(opensAt), pgTime(closesAt))
	return err
}

// Entity gateways. Only the projections the engine needs are read.

func (r *PgRepository) FindPetByID(ctx context.Context, id uuid.UUID) (*Pet, error) {
	var p Pet
	err := r.pool.QueryRow(ctx, `
		SELECT id, owner_id, name
		FROM pets
		WHERE id = $1
	`, id).Scan(&p.ID, &p.OwnerID, &p.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPetNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PgRepository) FindServiceByID(ctx context.Context, id uuid.UUID) (*ServiceOffering, error) {
	var s ServiceOffering
	err := r.pool.QueryRow(ctx, `
		SELECT id, title, active
		FROM services
		WHERE id = $1
	`, id).Scan(&s.ID, &s.Title, &s.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *PgRepository) FindUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	var u User
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, role, status
		FROM users
		WHERE id = $1
	`, id).Scan(&u.ID, &u.Name, &u.Role, &u.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}
