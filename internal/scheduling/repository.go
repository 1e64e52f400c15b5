package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrPetNotFound         = errors.New("pet not found")
	ErrServiceNotFound     = errors.New("service not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrRuleNotFound        = errors.New("business hours rule not found")
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrSlotTaken is returned by Save when the storage-level uniqueness on
	// (provider, date, start) fires. It is what makes concurrent creates for
	// the same slot safe without an application lock.
	ErrSlotTaken = errors.New("slot already taken for provider")
)

// AppointmentRepository owns appointment persistence.
type AppointmentRepository interface {
	Save(ctx context.Context, appt *Appointment) (*Appointment, error)

	// FindConflict looks for a non-cancelled appointment occupying the same
	// provider/date/start triple.
	FindConflict(ctx context.Context, providerID uuid.UUID, date time.Time, start TimeOfDay) (*Appointment, error)

	// ListByProviderAndDate returns the provider's non-cancelled agenda for
	// one day, ordered by start time ascending.
	ListByProviderAndDate(ctx context.Context, providerID uuid.UUID, date time.Time) ([]Appointment, error)

	// ListByPet and ListByOwner are history views: all statuses, ordered by
	// date descending then start time descending. ListByOwner joins through
	// pet ownership.
	ListByPet(ctx context.Context, petID uuid.UUID) ([]Appointment, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Appointment, error)
}

// HoursRepository owns business-hours rule persistence.
type HoursRepository interface {
	GetActiveRule(ctx context.Context, weekday time.Weekday) (*BusinessHoursRule, error)
	ListActiveRules(ctx context.Context) ([]BusinessHoursRule, error)

	// UpsertDefault updates the active rule's times in place when one exists
	// for the weekday, otherwise inserts a new active rule.
	UpsertDefault(ctx context.Context, weekday time.Weekday, opensAt, closesAt TimeOfDay) error
}

// Narrow read-only gateways into the stores that own pets, services and users.

type PetStore interface {
	FindPetByID(ctx context.Context, id uuid.UUID) (*Pet, error)
}

type ServiceStore interface {
	FindServiceByID(ctx context.Context, id uuid.UUID) (*ServiceOffering, error)
}

type UserStore interface {
	FindUserByID(ctx context.Context, id uuid.UUID) (*User, error)
}
