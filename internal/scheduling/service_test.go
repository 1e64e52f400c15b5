package scheduling

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// In-memory fakes for the store contracts.

type fakeStores struct {
	pets     map[uuid.UUID]Pet
	services map[uuid.UUID]ServiceOffering
	users    map[uuid.UUID]User
}

func (f *fakeStores) FindPetByID(_ context.Context, id uuid.UUID) (*Pet, error) {
	if p, ok := f.pets[id]; ok {
		return &p, nil
	}
	return nil, ErrPetNotFound
}

func (f *fakeStores) FindServiceByID(_ context.Context, id uuid.UUID) (*ServiceOffering, error) {
	if s, ok := f.services[id]; ok {
		return &s, nil
	}
	return nil, ErrServiceNotFound
}

func (f *fakeStores) FindUserByID(_ context.Context, id uuid.UUID) (*User, error) {
	if u, ok := f.users[id]; ok {
		return &u, nil
	}
	return nil, ErrUserNotFound
}

// fakeAppointmentRepo enforces the same uniqueness the partial index provides.
type fakeAppointmentRepo struct {
	mu            sync.Mutex
	appointments  []Appointment
	saveCalls     int
	conflictCalls int
}

func slotKey(providerID uuid.UUID, date time.Time, start TimeOfDay) string {
	return providerID.String() + date.Format("2006-01-02") + start.String()
}

func (f *fakeAppointmentRepo) Save(_ context.Context, appt *Appointment) (*Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.saveCalls++
	for _, existing := range f.appointments {
		if existing.Status != StatusCancelled &&
			slotKey(existing.ProviderID, existing.Date, existing.StartTime) == slotKey(appt.ProviderID, appt.Date, appt.StartTime) {
			return nil, ErrSlotTaken
		}
	}

	f.appointments = append(f.appointments, *appt)
	saved := *appt
	return &saved, nil
}

func (f *fakeAppointmentRepo) FindConflict(_ context.Context, providerID uuid.UUID, date time.Time, start TimeOfDay) (*Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.conflictCalls++
	for _, existing := range f.appointments {
		if existing.Status != StatusCancelled &&
			slotKey(existing.ProviderID, existing.Date, existing.StartTime) == slotKey(providerID, date, start) {
			found := existing
			return &found, nil
		}
	}
	return nil, ErrAppointmentNotFound
}

func (f *fakeAppointmentRepo) ListByProviderAndDate(_ context.Context, providerID uuid.UUID, date time.Time) ([]Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var result []Appointment
	for _, a := range f.appointments {
		if a.ProviderID == providerID && a.Date.Equal(date) && a.Status != StatusCancelled {
			result = append(result, a)
		}
	}
	return result, nil
}

func (f *fakeAppointmentRepo) ListByPet(_ context.Context, petID uuid.UUID) ([]Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var result []Appointment
	for _, a := range f.appointments {
		if a.PetID == petID {
			result = append(result, a)
		}
	}
	return result, nil
}

func (f *fakeAppointmentRepo) ListByOwner(_ context.Context, _ uuid.UUID) ([]Appointment, error) {
	return nil, nil
}

type fakeHoursRepo struct {
	rules   map[time.Weekday]*BusinessHoursRule
	lookups int
}

func newFakeHoursRepo() *fakeHoursRepo {
	return &fakeHoursRepo{rules: make(map[time.Weekday]*BusinessHoursRule)}
}

func (f *fakeHoursRepo) GetActiveRule(_ context.Context, weekday time.Weekday) (*BusinessHoursRule, error) {
	f.lookups++
	if rule, ok := f.rules[weekday]; ok && rule.Active {
		copied := *rule
		return &copied, nil
	}
	return nil, ErrRuleNotFound
}

func (f *fakeHoursRepo) ListActiveRules(_ context.Context) ([]BusinessHoursRule, error) {
	var result []BusinessHoursRule
	for weekday := time.Sunday; weekday <= time.Saturday; weekday++ {
		if rule, ok := f.rules[weekday]; ok && rule.Active {
			result = append(result, *rule)
		}
	}
	return result, nil
}

func (f *fakeHoursRepo) UpsertDefault(_ context.Context, weekday time.Weekday, opensAt, closesAt TimeOfDay) error {
	if rule, ok := f.rules[weekday]; ok && rule.Active {
		rule.OpensAt = opensAt
		rule.ClosesAt = closesAt
		return nil
	}
	f.rules[weekday] = &BusinessHoursRule{
		ID:       uuid.New(),
		Weekday:  weekday,
		OpensAt:  opensAt,
		ClosesAt: closesAt,
		Active:   true,
	}
	return nil
}

type fakePublisher struct {
	events []AppointmentCreatedEvent
	err    error
}

func (f *fakePublisher) AppointmentCreated(_ context.Context, event AppointmentCreatedEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

// Fixture

type fixture struct {
	svc       *Service
	repo      *fakeAppointmentRepo
	hoursRepo *fakeHoursRepo
	stores    *fakeStores
	publisher *fakePublisher

	petID      uuid.UUID
	ownerID    uuid.UUID
	serviceID  uuid.UUID
	providerID uuid.UUID

	now      time.Time
	tomorrow time.Time
}

// newFixture wires the engine against fakes with a clock frozen at
// Wednesday 2026-09-02 08:00 UTC and the default Mon-Sat 09:00-18:00 rules.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		repo:       &fakeAppointmentRepo{},
		hoursRepo:  newFakeHoursRepo(),
		publisher:  &fakePublisher{},
		petID:      uuid.New(),
		ownerID:    uuid.New(),
		serviceID:  uuid.New(),
		providerID: uuid.New(),
		now:        time.Date(2026, 9, 2, 8, 0, 0, 0, time.UTC),
	}
	f.tomorrow = f.now.AddDate(0, 0, 1)

	f.stores = &fakeStores{
		pets: map[uuid.UUID]Pet{
			f.petID: {ID: f.petID, OwnerID: f.ownerID, Name: "Rex"},
		},
		services: map[uuid.UUID]ServiceOffering{
			f.serviceID: {ID: f.serviceID, Title: "Full Grooming", Active: true},
		},
		users: map[uuid.UUID]User{
			f.ownerID:    {ID: f.ownerID, Name: "Owner", Role: RoleClient, Status: UserActive},
			f.providerID: {ID: f.providerID, Name: "Groomer", Role: RoleProvider, Status: UserActive},
		},
	}

	for weekday := time.Monday; weekday <= time.Saturday; weekday++ {
		require.NoError(t, f.hoursRepo.UpsertDefault(context.Background(), weekday, NewTimeOfDay(9, 0), NewTimeOfDay(18, 0)))
	}

	f.svc = NewService(f.repo, NewHoursRegistry(f.hoursRepo), f.stores, f.stores, f.stores, f.publisher, time.UTC)
	f.svc.now = func() time.Time { return f.now }

	return f
}

func (f *fixture) create(t *testing.T, date time.Time, start TimeOfDay) (*Appointment, error) {
	t.Helper()
	return f.svc.CreateAppointment(context.Background(), f.petID, f.serviceID, f.providerID, date, start)
}

func requireRejection(t *testing.T, err error, kind RejectionKind, code string) *Rejection {
	t.Helper()
	require.Error(t, err)
	rejection, ok := err.(*Rejection)
	require.True(t, ok, "expected *Rejection, got %T: %v", err, err)
	assert.Equal(t, kind, rejection.Kind)
	assert.Equal(t, code, rejection.Code)
	return rejection
}

// Tests

func TestCreateAppointmentSuccess(t *testing.T) {
	f := newFixture(t)

	appt, err := f.create(t, f.tomorrow, NewTimeOfDay(10, 0))
	require.NoError(t, err)

	assert.Equal(t, StatusScheduled, appt.Status)
	assert.Equal(t, NewTimeOfDay(10, 0), appt.StartTime)
	assert.Equal(t, NewTimeOfDay(11, 0), appt.EndTime)
	assert.Equal(t, f.now, appt.CreatedAt)
	assert.Equal(t, f.now, appt.UpdatedAt)
	assert.Equal(t, 1, f.repo.saveCalls)

	require.Len(t, f.publisher.events, 1)
	event := f.publisher.events[0]
	assert.Equal(t, appt.ID, event.AppointmentID)
	assert.Equal(t, f.petID, event.PetID)
	assert.Equal(t, f.serviceID, event.ServiceID)
	assert.Equal(t, f.providerID, event.ProviderID)
	assert.Equal(t, f.tomorrow.Format("2006-01-02"), event.Date)
	assert.Equal(t, NewTimeOfDay(10, 0), event.StartTime)
	assert.Equal(t, NewTimeOfDay(11, 0), event.EndTime)
}

func TestEndTimeAlwaysOneHourAfterStart(t *testing.T) {
	f := newFixture(t)

	for hour := 9; hour < 18; hour++ {
		appt, err := f.create(t, f.tomorrow, NewTimeOfDay(hour, 0))
		require.NoError(t, err, "hour %d", hour)
		assert.Equal(t, NewTimeOfDay(hour+1, 0), appt.EndTime, "hour %d", hour)
	}
}

func TestRejectsUnknownPet(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateAppointment(context.Background(), uuid.New(), f.serviceID, f.providerID, f.tomorrow, NewTimeOfDay(10, 0))
	requireRejection(t, err, KindNotFound, CodePetNotFound)
	assert.Zero(t, f.repo.saveCalls)
	assert.Empty(t, f.publisher.events)
}

func TestRejectsInactiveOwner(t *testing.T) {
	f := newFixture(t)
	owner := f.stores.users[f.ownerID]
	owner.Status = UserInactive
	f.stores.users[f.ownerID] = owner

	_, err := f.create(t, f.tomorrow, NewTimeOfDay(10, 0))
	requireRejection(t, err, KindForbidden, CodeOwnerInactive)
}

func TestRejectsUnknownOrInactiveService(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateAppointment(context.Background(), f.petID, uuid.New(), f.providerID, f.tomorrow, NewTimeOfDay(10, 0))
	requireRejection(t, err, KindNotFound, CodeServiceNotFound)

	svc := f.stores.services[f.serviceID]
	svc.Active = false
	f.stores.services[f.serviceID] = svc

	_, err = f.create(t, f.tomorrow, NewTimeOfDay(10, 0))
	requireRejection(t, err, KindNotFound, CodeServiceNotFound)
}

func TestRejectsProviderProblems(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name  string
		setup func()
	}{
		{"missing", func() { delete(f.stores.users, f.providerID) }},
		{"inactive", func() {
			f.stores.users[f.providerID] = User{ID: f.providerID, Role: RoleProvider, Status: UserInactive}
		}},
		{"wrong role", func() {
			f.stores.users[f.providerID] = User{ID: f.providerID, Role: RoleClient, Status: UserActive}
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.setup()
			_, err := f.create(t, f.tomorrow, NewTimeOfDay(10, 0))
			requireRejection(t, err, KindNotFound, CodeProviderNotFound)
		})
	}
}

func TestRejectsPastDateTime(t *testing.T) {
	f := newFixture(t)

	yesterday := f.now.AddDate(0, 0, -1)
	_, err := f.create(t, yesterday, NewTimeOfDay(10, 0))
	requireRejection(t, err, KindUnprocessable, CodePastDateTime)

	// Same-day request earlier than the current time of day; the clock in
	// the fixture reads 08:00.
	f.now = time.Date(2026, 9, 2, 15, 30, 0, 0, time.UTC)
	_, err = f.create(t, f.now, NewTimeOfDay(10, 0))
	requireRejection(t, err, KindUnprocessable, CodePastDateTime)
}

func TestRejectsUnalignedStartBeforeTouchingStore(t *testing.T) {
	f := newFixture(t)

	for _, start := range []TimeOfDay{
		NewTimeOfDay(10, 30),
		NewTimeOfDay(10, 1),
		NewTimeOfDay(10, 0).Add(15 * time.Second),
		NewTimeOfDay(10, 0).Add(250 * time.Millisecond),
	} {
		_, err := f.create(t, f.tomorrow, start)
		requireRejection(t, err, KindUnprocessable, CodeUnalignedHour)
	}

	assert.Zero(t, f.repo.conflictCalls, "conflict query must not run for unaligned starts")
	assert.Zero(t, f.repo.saveCalls, "nothing may be persisted for unaligned starts")
}

func TestRejectsSundayWithoutConsultingRegistry(t *testing.T) {
	f := newFixture(t)

	// Even a configured Sunday rule must not rescue the request.
	require.NoError(t, f.hoursRepo.UpsertDefault(context.Background(), time.Sunday, NewTimeOfDay(9, 0), NewTimeOfDay(18, 0)))
	f.hoursRepo.lookups = 0

	sunday := time.Date(2026, 9, 6, 0, 0, 0, 0, time.UTC)
	require.Equal(t, time.Sunday, sunday.Weekday())

	_, err := f.create(t, sunday, NewTimeOfDay(10, 0))
	requireRejection(t, err, KindUnprocessable, CodeNonOperatingDay)
	assert.Zero(t, f.hoursRepo.lookups, "registry must not be consulted for the static closed day")
}

func TestRejectsUnconfiguredWeekday(t *testing.T) {
	f := newFixture(t)
	delete(f.hoursRepo.rules, time.Thursday)

	_, err := f.create(t, f.tomorrow, NewTimeOfDay(10, 0)) // tomorrow is Thursday
	rejection := requireRejection(t, err, KindUnprocessable, CodeNonOperatingDay)
	assert.Contains(t, rejection.Message, "not configured")
}

func TestRejectsOutsideBusinessHours(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name  string
		start TimeOfDay
	}{
		{"before opening", NewTimeOfDay(8, 0)},
		{"after closing", NewTimeOfDay(20, 0)},
		{"exactly at closing", NewTimeOfDay(18, 0)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.create(t, f.tomorrow, tc.start)
			rejection := requireRejection(t, err, KindUnprocessable, CodeOutsideBusinessHours)
			assert.Contains(t, rejection.Message, "09:00 - 18:00")
		})
	}
}

func TestRejectsConflictingSlot(t *testing.T) {
	f := newFixture(t)

	_, err := f.create(t, f.tomorrow, NewTimeOfDay(10, 0))
	require.NoError(t, err)

	_, err = f.create(t, f.tomorrow, NewTimeOfDay(10, 0))
	requireRejection(t, err, KindConflict, CodeSlotTaken)
	assert.Len(t, f.publisher.events, 1, "no event for the rejected duplicate")
}

func TestConcurrentCreatesYieldOneWinner(t *testing.T) {
	f := newFixture(t)

	start := make(chan struct{})
	results := make(chan error, 2)

	for i := 0; i < 2; i++ {
		go func() {
			<-start
			_, err := f.create(t, f.tomorrow, NewTimeOfDay(10, 0))
			results <- err
		}()
	}
	close(start)

	var successes, conflicts int
	for i := 0; i < 2; i++ {
		err := <-results
		if err == nil {
			successes++
			continue
		}
		rejection, ok := err.(*Rejection)
		require.True(t, ok, "unexpected error: %v", err)
		require.Equal(t, KindConflict, rejection.Kind)
		conflicts++
	}

	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, conflicts)
	assert.Len(t, f.repo.appointments, 1)
}

func TestPublishFailureDoesNotFailCreation(t *testing.T) {
	f := newFixture(t)
	f.publisher.err = context.DeadlineExceeded

	appt, err := f.create(t, f.tomorrow, NewTimeOfDay(10, 0))
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, appt.Status)
}

func TestProviderAgendaListsBookedDay(t *testing.T) {
	f := newFixture(t)

	for _, hour := range []int{14, 9, 11} {
		_, err := f.create(t, f.tomorrow, NewTimeOfDay(hour, 0))
		require.NoError(t, err)
	}

	agenda, err := f.svc.ProviderAgenda(context.Background(), f.providerID, f.tomorrow)
	require.NoError(t, err)
	require.Len(t, agenda, 3)
}
