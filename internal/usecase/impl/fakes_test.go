package impl

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"clinicbook/config"
	"clinicbook/internal/domain/entity"
	"clinicbook/internal/domain/repository"
	"clinicbook/internal/domain/schedule"
	"clinicbook/internal/domain/service"

	"github.com/google/uuid"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Scheduling = config.SchedulingConfig{
		SlotDuration:     30 * time.Minute,
		RefreshSkew:      5 * time.Minute,
		AdapterTimeout:   time.Second,
		LinkStateTTL:     10 * time.Minute,
		DefaultWorkStart: "09:00",
		DefaultWorkEnd:   "17:00",
	}

	return cfg
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeClock is a settable clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// memStore is a mutex-guarded in-memory stand-in for the database.
type memStore struct {
	mu           sync.Mutex
	providers    map[uuid.UUID]*entity.Provider
	appointments map[uuid.UUID]*entity.Appointment
}

func newMemStore() *memStore {
	return &memStore{
		providers:    make(map[uuid.UUID]*entity.Provider),
		appointments: make(map[uuid.UUID]*entity.Appointment),
	}
}

func (s *memStore) addProvider(t *testing.T, provider *entity.Provider) {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.providers[provider.ID] = cloneProvider(provider)
}

func (s *memStore) addAppointment(t *testing.T, appointment *entity.Appointment) {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appointments[appointment.ID] = cloneAppointment(appointment)
}

func (s *memStore) appointmentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.appointments)
}

func (s *memStore) provider(t *testing.T, id uuid.UUID) *entity.Provider {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()

	return cloneProvider(s.providers[id])
}

func cloneProvider(p *entity.Provider) *entity.Provider {
	if p == nil {
		return nil
	}
	clone := *p
	if p.Credential != nil {
		credential := *p.Credential
		clone.Credential = &credential
	}

	return &clone
}

func cloneAppointment(a *entity.Appointment) *entity.Appointment {
	if a == nil {
		return nil
	}
	clone := *a

	return &clone
}

// memProviderRepo implements repository.ProviderRepository over the memStore.
type memProviderRepo struct {
	store *memStore
}

func (r *memProviderRepo) CreateProvider(_ context.Context, provider *entity.Provider) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if provider.ID == uuid.Nil {
		provider.ID = uuid.New()
	}
	r.store.providers[provider.ID] = cloneProvider(provider)

	return nil
}

func (r *memProviderRepo) FindProviderByID(_ context.Context, id uuid.UUID) (*entity.Provider, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	provider, ok := r.store.providers[id]
	if !ok {
		return nil, repository.ErrProviderNotFound
	}

	return cloneProvider(provider), nil
}

func (r *memProviderRepo) FindProviderByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Provider, error) {
	return r.FindProviderByID(ctx, id)
}

func (r *memProviderRepo) ListProviders(_ context.Context) ([]*entity.Provider, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	providers := make([]*entity.Provider, 0, len(r.store.providers))
	for _, provider := range r.store.providers {
		providers = append(providers, cloneProvider(provider))
	}
	sort.Slice(providers, func(i, j int) bool { return providers[i].Name < providers[j].Name })

	return providers, nil
}

func (r *memProviderRepo) UpdateProfile(_ context.Context, provider *entity.Provider) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	current, ok := r.store.providers[provider.ID]
	if !ok {
		return repository.ErrProviderNotFound
	}
	current.Name = provider.Name
	current.Specialization = provider.Specialization
	current.Description = provider.Description
	current.PhoneNumber = provider.PhoneNumber

	return nil
}

func (r *memProviderRepo) UpdateWorkingHours(_ context.Context, id uuid.UUID, hours entity.WorkingHours) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	current, ok := r.store.providers[id]
	if !ok {
		return repository.ErrProviderNotFound
	}
	current.WorkingHours = hours

	return nil
}

func (r *memProviderRepo) UpdateCredential(_ context.Context, id uuid.UUID, calendarID string, credential *entity.CalendarCredential) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	current, ok := r.store.providers[id]
	if !ok {
		return repository.ErrProviderNotFound
	}
	current.CalendarID = calendarID
	clone := *credential
	current.Credential = &clone

	return nil
}

// memAppointmentRepo implements repository.AppointmentRepository over the memStore.
type memAppointmentRepo struct {
	store *memStore
}

func (r *memAppointmentRepo) CreateAppointment(_ context.Context, appointment *entity.Appointment) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if appointment.ID == uuid.Nil {
		appointment.ID = uuid.New()
	}
	r.store.appointments[appointment.ID] = cloneAppointment(appointment)

	return nil
}

func (r *memAppointmentRepo) FindAppointmentByID(_ context.Context, id uuid.UUID) (*entity.Appointment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	appointment, ok := r.store.appointments[id]
	if !ok {
		return nil, repository.ErrAppointmentNotFound
	}

	return cloneAppointment(appointment), nil
}

func (r *memAppointmentRepo) FindAppointmentByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Appointment, error) {
	return r.FindAppointmentByID(ctx, id)
}

func (r *memAppointmentRepo) FindScheduledOverlapping(_ context.Context, providerID uuid.UUID, start, end time.Time) ([]*entity.Appointment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var overlapping []*entity.Appointment
	for _, appointment := range r.store.appointments {
		if appointment.ProviderID != providerID || appointment.Status != entity.StatusScheduled {
			continue
		}
		if appointment.StartTime.Before(end) && start.Before(appointment.EndTime) {
			overlapping = append(overlapping, cloneAppointment(appointment))
		}
	}
	sort.Slice(overlapping, func(i, j int) bool { return overlapping[i].StartTime.Before(overlapping[j].StartTime) })

	return overlapping, nil
}

func (r *memAppointmentRepo) FindByProvider(_ context.Context, providerID uuid.UUID, filter repository.AppointmentFilter) ([]*entity.Appointment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var matched []*entity.Appointment
	for _, appointment := range r.store.appointments {
		if appointment.ProviderID != providerID {
			continue
		}
		if filter.Status != "" && appointment.Status != filter.Status {
			continue
		}
		if filter.Day != nil {
			dayStart := time.Date(filter.Day.Year(), filter.Day.Month(), filter.Day.Day(), 0, 0, 0, 0, filter.Day.Location())
			if appointment.StartTime.Before(dayStart) || !appointment.StartTime.Before(dayStart.AddDate(0, 0, 1)) {
				continue
			}
		}
		matched = append(matched, cloneAppointment(appointment))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].StartTime.Before(matched[j].StartTime) })

	return matched, nil
}

func (r *memAppointmentRepo) UpdateStatus(_ context.Context, id uuid.UUID, status entity.AppointmentStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	appointment, ok := r.store.appointments[id]
	if !ok {
		return repository.ErrAppointmentNotFound
	}
	appointment.Status = status

	return nil
}

func (r *memAppointmentRepo) UpdateExternalEventID(_ context.Context, id uuid.UUID, externalEventID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	appointment, ok := r.store.appointments[id]
	if !ok {
		return repository.ErrAppointmentNotFound
	}
	appointment.ExternalEventID = externalEventID

	return nil
}

func listFilter(status entity.AppointmentStatus, day *time.Time) repository.AppointmentFilter {
	return repository.AppointmentFilter{Status: status, Day: day}
}

// fakeTxManager serializes Execute calls with a mutex, mirroring the
// per-provider serialization the real manager achieves with row locks.
type fakeTxManager struct {
	store *memStore
	txMu  sync.Mutex
}

func newFakeTxManager(store *memStore) *fakeTxManager {
	return &fakeTxManager{store: store}
}

func (m *fakeTxManager) Execute(_ context.Context, fn func(repoFactory repository.RepositoryFactory) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	return fn(&fakeRepoFactory{store: m.store})
}

type fakeRepoFactory struct {
	store *memStore
}

func (f *fakeRepoFactory) ProviderRepo() repository.ProviderRepository {
	return &memProviderRepo{store: f.store}
}

func (f *fakeRepoFactory) AppointmentRepo() repository.AppointmentRepository {
	return &memAppointmentRepo{store: f.store}
}

// fakeCalendar is a scriptable service.CalendarService with call counters.
type fakeCalendar struct {
	mu            sync.Mutex
	refreshCalls  int
	exchangeCalls int
	insertCalls   int
	deleteCalls   int
	busyCalls     int
	lastState     string

	refreshFn  func(refreshToken string) (*service.TokenSet, error)
	exchangeFn func(code string) (*service.TokenSet, error)
	primaryFn  func() (string, error)
	busyFn     func(from, to time.Time) ([]schedule.Interval, error)
	insertFn   func(event service.EventDetails) (string, error)
	deleteFn   func(eventID string) error
}

func (f *fakeCalendar) BuildAuthorizationURL(state string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastState = state

	return "https://auth.example.com/consent?state=" + state
}

func (f *fakeCalendar) ExchangeCode(_ context.Context, code string) (*service.TokenSet, error) {
	f.mu.Lock()
	f.exchangeCalls++
	fn := f.exchangeFn
	f.mu.Unlock()

	if fn != nil {
		return fn(code)
	}

	return &service.TokenSet{AccessToken: "access-" + code, RefreshToken: "refresh-" + code, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (f *fakeCalendar) RefreshTokens(_ context.Context, refreshToken string) (*service.TokenSet, error) {
	f.mu.Lock()
	f.refreshCalls++
	fn := f.refreshFn
	f.mu.Unlock()

	if fn != nil {
		return fn(refreshToken)
	}

	return &service.TokenSet{AccessToken: "renewed-access", RefreshToken: "renewed-refresh", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (f *fakeCalendar) PrimaryCalendarID(_ context.Context, _ string) (string, error) {
	f.mu.Lock()
	fn := f.primaryFn
	f.mu.Unlock()

	if fn != nil {
		return fn()
	}

	return "primary", nil
}

func (f *fakeCalendar) FetchBusyIntervals(_ context.Context, _, _ string, from, to time.Time) ([]schedule.Interval, error) {
	f.mu.Lock()
	f.busyCalls++
	fn := f.busyFn
	f.mu.Unlock()

	if fn != nil {
		return fn(from, to)
	}

	return nil, nil
}

func (f *fakeCalendar) InsertEvent(_ context.Context, _, _ string, event service.EventDetails) (string, error) {
	f.mu.Lock()
	f.insertCalls++
	fn := f.insertFn
	f.mu.Unlock()

	if fn != nil {
		return fn(event)
	}

	return "evt-" + uuid.NewString(), nil
}

func (f *fakeCalendar) DeleteEvent(_ context.Context, _, _, eventID string) error {
	f.mu.Lock()
	f.deleteCalls++
	fn := f.deleteFn
	f.mu.Unlock()

	if fn != nil {
		return fn(eventID)
	}

	return nil
}

func (f *fakeCalendar) calls() (refresh, exchange, insert, del, busy int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.refreshCalls, f.exchangeCalls, f.insertCalls, f.deleteCalls, f.busyCalls
}
