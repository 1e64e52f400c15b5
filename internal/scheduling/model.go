package scheduling

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	StatusScheduled  AppointmentStatus = "scheduled"
	StatusConfirmed  AppointmentStatus = "confirmed"
	StatusInProgress AppointmentStatus = "in_progress"
	StatusCompleted  AppointmentStatus = "completed"
	StatusCancelled  AppointmentStatus = "cancelled"
)

type UserRole string

const (
	RoleAdmin    UserRole = "admin"
	RoleClient   UserRole = "client"
	RoleProvider UserRole = "provider"
)

type UserStatus string

const (
	UserPendingVerification UserStatus = "pending_verification"
	UserActive              UserStatus = "active"
	UserInactive            UserStatus = "inactive"
)

// Appointment occupies exactly one hour starting on the hour. EndTime is
// derived from StartTime and is never set independently.
type Appointment struct {
	ID         uuid.UUID
	PetID      uuid.UUID
	ServiceID  uuid.UUID
	ProviderID uuid.UUID
	Date       time.Time
	StartTime  TimeOfDay
	EndTime    TimeOfDay
	Status     AppointmentStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// SetStartTime keeps the end-time invariant whenever the start changes.
func (a *Appointment) SetStartTime(start TimeOfDay) {
	a.StartTime = start
	a.EndTime = start.Add(SlotDuration)
}

// SlotDuration is the fixed length of every bookable slot.
const SlotDuration = time.Hour

// BusinessHoursRule is the opening window for one weekday. At most one active
// rule may exist per weekday; a weekday without an active rule is closed.
type BusinessHoursRule struct {
	ID       uuid.UUID
	Weekday  time.Weekday
	OpensAt  TimeOfDay
	ClosesAt TimeOfDay
	Active   bool
}

// Read-only projections of entities owned elsewhere. The engine only needs
// existence and standing, never the full records.

type Pet struct {
	ID      uuid.UUID
	OwnerID uuid.UUID
	Name    string
}

type ServiceOffering struct {
	ID     uuid.UUID
	Title  string
	Active bool
}

type User struct {
	ID     uuid.UUID
	Name   string
	Role   UserRole
	Status UserStatus
}

// AppointmentCreatedEvent carries the denormalized scheduling facts handed to
// the notification subsystem after a successful creation.
type AppointmentCreatedEvent struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	PetID         uuid.UUID `json:"pet_id"`
	ServiceID     uuid.UUID `json:"service_id"`
	ProviderID    uuid.UUID `json:"provider_id"`
	Date          string    `json:"date"`
	StartTime     TimeOfDay `json:"start_time"`
	EndTime       TimeOfDay `json:"end_time"`
}
