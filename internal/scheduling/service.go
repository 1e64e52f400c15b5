package scheduling

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// NonOperatingWeekday is closed regardless of what the business-hours registry
// holds; the engine rejects it before consulting any rule.
const NonOperatingWeekday = time.Sunday

// Publisher hands creation events to the notification subsystem. Emission is
// best effort and must never fail the creation itself.
type Publisher interface {
	AppointmentCreated(ctx context.Context, event AppointmentCreatedEvent) error
}

// Service is the admission engine. It decides whether a requested appointment
// may be created, derives the slot end, persists accepted appointments and
// answers schedule queries. All instants are evaluated in the business zone.
type Service struct {
	appointments AppointmentRepository
	hours        *HoursRegistry
	pets         PetStore
	services     ServiceStore
	users        UserStore
	publisher    Publisher
	loc          *time.Location
	now          func() time.Time
}

func NewService(
	appointments AppointmentRepository,
	hours *HoursRegistry,
	pets PetStore,
	services ServiceStore,
	users UserStore,
	publisher Publisher,
	loc *time.Location,
) *Service {
	return &Service{
		appointments: appointments,
		hours:        hours,
		pets:         pets,
		services:     services,
		users:        users,
		publisher:    publisher,
		loc:          loc,
		now:          time.Now,
	}
}

// CreateAppointment runs every admission rule in order, failing fast on the
// first violation, then persists the appointment and emits a creation event.
func (s *Service) CreateAppointment(ctx context.Context, petID, serviceID, providerID uuid.UUID, date time.Time, start TimeOfDay) (*Appointment, error) {
	log.Printf("admission: pet=%s service=%s provider=%s date=%s start=%s",
		petID, serviceID, providerID, date.Format("2006-01-02"), start)

	if err := s.validatePet(ctx, petID); err != nil {
		return nil, err
	}
	if err := s.validateService(ctx, serviceID); err != nil {
		return nil, err
	}
	if err := s.validateProvider(ctx, providerID); err != nil {
		return nil, err
	}
	if err := s.validateSchedule(ctx, date, start); err != nil {
		return nil, err
	}
	if err := s.validateAvailability(ctx, providerID, date, start); err != nil {
		return nil, err
	}

	now := s.now().In(s.loc)
	appt := &Appointment{
		ID:         uuid.New(),
		PetID:      petID,
		ServiceID:  serviceID,
		ProviderID: providerID,
		Date:       DateOnly(date, s.loc),
		Status:     StatusScheduled,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	appt.SetStartTime(start)

	saved, err := s.appointments.Save(ctx, appt)
	if err != nil {
		if errors.Is(err, ErrSlotTaken) {
			// Two requests passed the conflict check concurrently; the
			// storage uniqueness decides the winner.
			return nil, reject(KindConflict, CodeSlotTaken, "time slot unavailable for this provider")
		}
		return nil, fmt.Errorf("save appointment: %w", err)
	}

	log.Printf("appointment created: id=%s provider=%s date=%s slot=%s-%s",
		saved.ID, saved.ProviderID, saved.Date.Format("2006-01-02"), saved.StartTime, saved.EndTime)

	s.publishCreated(ctx, saved)

	return saved, nil
}

// AppointmentsByPet returns a pet's full history, newest first.
func (s *Service) AppointmentsByPet(ctx context.Context, petID uuid.UUID) ([]Appointment, error) {
	appts, err := s.appointments.ListByPet(ctx, petID)
	if err != nil {
		return nil, fmt.Errorf("list appointments by pet: %w", err)
	}
	return appts, nil
}

// AppointmentsByOwner returns the history of every pet owned by the user,
// newest first.
func (s *Service) AppointmentsByOwner(ctx context.Context, ownerID uuid.UUID) ([]Appointment, error) {
	appts, err := s.appointments.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list appointments by owner: %w", err)
	}
	return appts, nil
}

// ProviderAgenda returns the provider's non-cancelled appointments for one
// day, earliest first.
func (s *Service) ProviderAgenda(ctx context.Context, providerID uuid.UUID, date time.Time) ([]Appointment, error) {
	appts, err := s.appointments.ListByProviderAndDate(ctx, providerID, DateOnly(date, s.loc))
	if err != nil {
		return nil, fmt.Errorf("list provider agenda: %w", err)
	}
	return appts, nil
}

func (s *Service) validatePet(ctx context.Context, petID uuid.UUID) error {
	pet, err := s.pets.FindPetByID(ctx, petID)
	if err != nil {
		if errors.Is(err, ErrPetNotFound) {
			return reject(KindNotFound, CodePetNotFound, "pet not found: %s", petID)
		}
		return fmt.Errorf("load pet: %w", err)
	}

	owner, err := s.users.FindUserByID(ctx, pet.OwnerID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return reject(KindForbidden, CodeOwnerInactive, "pet owner not found")
		}
		return fmt.Errorf("load pet owner: %w", err)
	}
	if owner.Status != UserActive {
		return reject(KindForbidden, CodeOwnerInactive, "pet owner is not active")
	}

	return nil
}

func (s *Service) validateService(ctx context.Context, serviceID uuid.UUID) error {
	svc, err := s.services.FindServiceByID(ctx, serviceID)
	if err != nil {
		if errors.Is(err, ErrServiceNotFound) {
			return reject(KindNotFound, CodeServiceNotFound, "service not found: %s", serviceID)
		}
		return fmt.Errorf("load service: %w", err)
	}
	if !svc.Active {
		return reject(KindNotFound, CodeServiceNotFound, "service is not active")
	}

	return nil
}

func (s *Service) validateProvider(ctx context.Context, providerID uuid.UUID) error {
	provider, err := s.users.FindUserByID(ctx, providerID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return reject(KindNotFound, CodeProviderNotFound, "provider not found: %s", providerID)
		}
		return fmt.Errorf("load provider: %w", err)
	}
	if provider.Status != UserActive {
		return reject(KindNotFound, CodeProviderNotFound, "provider is not active")
	}
	if provider.Role != RoleProvider {
		return reject(KindNotFound, CodeProviderNotFound, "user is not a service provider")
	}

	return nil
}

func (s *Service) validateSchedule(ctx context.Context, date time.Time, start TimeOfDay) error {
	now := s.now().In(s.loc)
	requested := start.At(date, s.loc)

	if requested.Before(now) {
		return reject(KindUnprocessable, CodePastDateTime, "date/time is in the past")
	}

	// Same-day requests carry a distinct message for a time of day that has
	// already passed.
	if DateOnly(date, s.loc).Equal(DateOnly(now, s.loc)) && start.Before(SinceMidnight(now)) {
		return reject(KindUnprocessable, CodePastDateTime, "time already passed for today")
	}

	if !start.OnTheHour() {
		return reject(KindUnprocessable, CodeUnalignedHour, "invalid time; use a whole hour (e.g. 09:00, 10:00)")
	}

	weekday := DateOnly(date, s.loc).Weekday()
	if weekday == NonOperatingWeekday {
		// Static rule: closed no matter what the registry holds.
		return reject(KindUnprocessable, CodeNonOperatingDay, "%s is not an operating day", weekday)
	}

	rule, err := s.hours.ActiveRule(ctx, weekday)
	if err != nil {
		if errors.Is(err, ErrRuleNotFound) {
			return reject(KindUnprocessable, CodeNonOperatingDay, "%s is not configured for operation", weekday)
		}
		return fmt.Errorf("load business hours: %w", err)
	}

	// The closing time itself is not a valid start: the last slot must end at
	// or before closing.
	if start.Before(rule.OpensAt) || start.After(rule.ClosesAt) || start == rule.ClosesAt {
		return reject(KindUnprocessable, CodeOutsideBusinessHours,
			"time outside business hours (%s - %s)", rule.OpensAt, rule.ClosesAt)
	}

	return nil
}

func (s *Service) validateAvailability(ctx context.Context, providerID uuid.UUID, date time.Time, start TimeOfDay) error {
	conflict, err := s.appointments.FindConflict(ctx, providerID, DateOnly(date, s.loc), start)
	if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
		return fmt.Errorf("check conflict: %w", err)
	}
	if conflict != nil {
		return reject(KindConflict, CodeSlotTaken, "time slot unavailable for this provider")
	}

	return nil
}

func (s *Service) publishCreated(ctx context.Context, appt *Appointment) {
	event := AppointmentCreatedEvent{
		AppointmentID: appt.ID,
		PetID:         appt.PetID,
		ServiceID:     appt.ServiceID,
		ProviderID:    appt.ProviderID,
		Date:          appt.Date.Format("2006-01-02"),
		StartTime:     appt.StartTime,
		EndTime:       appt.EndTime,
	}

	if err := s.publisher.AppointmentCreated(ctx, event); err != nil {
		log.Printf("failed to publish creation event for appointment %s: %v", appt.ID, err)
	}
}
