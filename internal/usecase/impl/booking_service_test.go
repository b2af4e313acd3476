package impl

import (
	"context"
	"sync"
	"testing"
	"time"

	"clinicbook/internal/domain/entity"
	domainerrors "clinicbook/internal/domain/errors"
	"clinicbook/internal/domain/service"
	"clinicbook/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bookingFixture struct {
	store    *memStore
	clock    *fakeClock
	calendar *fakeCalendar
	provider *entity.Provider
	svc      usecase.BookingUsecase
}

// newBookingFixture wires a booking service over in-memory fakes. The clock
// starts at 08:00 on the test day; the provider works 09:00-17:00.
func newBookingFixture(t *testing.T, linked bool) *bookingFixture {
	t.Helper()

	store := newMemStore()
	clock := newFakeClock(time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC))
	calendar := &fakeCalendar{}
	txManager := newFakeTxManager(store)
	providerRepo := &memProviderRepo{store: store}
	appointmentRepo := &memAppointmentRepo{store: store}
	cfg := testConfig()
	logger := testLogger()

	provider := &entity.Provider{
		ID:   uuid.New(),
		Name: "Dr. Chen",
		WorkingHours: entity.WorkingHours{
			Start: entity.TimeOfDay{Hour: 9},
			End:   entity.TimeOfDay{Hour: 17},
		},
	}
	if linked {
		provider.CalendarID = "primary"
		provider.Credential = &entity.CalendarCredential{
			AccessToken:  "access",
			RefreshToken: "refresh",
			ExpiresAt:    clock.Now().Add(time.Hour),
		}
	}
	store.addProvider(t, provider)

	credentials := NewCredentialService(txManager, calendar, clock, cfg, logger)
	svc := NewBookingService(txManager, providerRepo, appointmentRepo, calendar, credentials, clock, cfg, logger)

	return &bookingFixture{
		store:    store,
		clock:    clock,
		calendar: calendar,
		provider: provider,
		svc:      svc,
	}
}

func (f *bookingFixture) request(startHour, startMin int, duration time.Duration) *usecase.BookingRequest {
	start := time.Date(2026, 9, 1, startHour, startMin, 0, 0, time.UTC)

	return &usecase.BookingRequest{
		ProviderID:   f.provider.ID,
		PatientName:  "Alex Morgan",
		PatientPhone: "555-0101",
		StartTime:    start,
		EndTime:      start.Add(duration),
	}
}

func TestCreateBooking_RejectsEmptyRange(t *testing.T) {
	f := newBookingFixture(t, false)

	req := f.request(10, 0, 0) // start == end

	_, err := f.svc.CreateBooking(context.Background(), req)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrValidation))
	assert.Zero(t, f.store.appointmentCount(), "no store mutation on validation failure")
}

func TestCreateBooking_RejectsInvertedRange(t *testing.T) {
	f := newBookingFixture(t, false)

	req := f.request(10, 0, 30*time.Minute)
	req.StartTime, req.EndTime = req.EndTime, req.StartTime

	_, err := f.svc.CreateBooking(context.Background(), req)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrValidation))
}

func TestCreateBooking_RejectsPastStart(t *testing.T) {
	f := newBookingFixture(t, false)

	req := f.request(7, 0, 30*time.Minute) // clock is at 08:00

	_, err := f.svc.CreateBooking(context.Background(), req)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrValidation))
	assert.Zero(t, f.store.appointmentCount())
}

func TestCreateBooking_UnknownProvider(t *testing.T) {
	f := newBookingFixture(t, false)

	req := f.request(10, 0, 30*time.Minute)
	req.ProviderID = uuid.New()

	_, err := f.svc.CreateBooking(context.Background(), req)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrProviderNotFound))
}

func TestCreateBooking_Succeeds(t *testing.T) {
	f := newBookingFixture(t, false)

	result, err := f.svc.CreateBooking(context.Background(), f.request(10, 0, 30*time.Minute))

	require.NoError(t, err)
	require.NotNil(t, result.Appointment)
	assert.Equal(t, entity.StatusScheduled, result.Appointment.Status)
	assert.Equal(t, usecase.SyncSkipped, result.CalendarSync, "no calendar linked")
	assert.Equal(t, 1, f.store.appointmentCount())
}

func TestCreateBooking_ConflictOnOverlap(t *testing.T) {
	f := newBookingFixture(t, false)

	_, err := f.svc.CreateBooking(context.Background(), f.request(10, 0, 30*time.Minute))
	require.NoError(t, err)

	// Overlapping by 15 minutes.
	_, err = f.svc.CreateBooking(context.Background(), f.request(10, 15, 30*time.Minute))

	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrBookingConflict))
	assert.Equal(t, 1, f.store.appointmentCount())
}

func TestCreateBooking_BackToBackAllowed(t *testing.T) {
	f := newBookingFixture(t, false)

	_, err := f.svc.CreateBooking(context.Background(), f.request(10, 0, 30*time.Minute))
	require.NoError(t, err)

	// [10:30, 11:00) touches [10:00, 10:30) but does not overlap it.
	_, err = f.svc.CreateBooking(context.Background(), f.request(10, 30, 30*time.Minute))

	require.NoError(t, err)
	assert.Equal(t, 2, f.store.appointmentCount())
}

func TestCreateBooking_ConcurrentRequestsCommitOnce(t *testing.T) {
	f := newBookingFixture(t, false)

	const attempts = 8

	var wg sync.WaitGroup
	results := make([]error, attempts)
	for i := range attempts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = f.svc.CreateBooking(context.Background(), f.request(10, 0, 30*time.Minute))
		}(i)
	}
	wg.Wait()

	var successes, conflicts int
	for _, err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, domainerrors.ErrBookingConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, successes, "exactly one concurrent booking may commit")
	assert.Equal(t, attempts-1, conflicts)
	assert.Equal(t, 1, f.store.appointmentCount())
}

func TestCreateBooking_MirrorsIntoCalendar(t *testing.T) {
	f := newBookingFixture(t, true)
	f.calendar.insertFn = func(event service.EventDetails) (string, error) {
		assert.Equal(t, "Appointment with Alex Morgan", event.Summary)
		assert.Equal(t, "Patient Phone: 555-0101", event.Description)

		return "evt-42", nil
	}

	result, err := f.svc.CreateBooking(context.Background(), f.request(10, 0, 30*time.Minute))

	require.NoError(t, err)
	assert.Equal(t, usecase.SyncMirrored, result.CalendarSync)
	assert.Equal(t, "evt-42", result.Appointment.ExternalEventID)

	stored, err := (&memAppointmentRepo{store: f.store}).FindAppointmentByID(context.Background(), result.Appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, "evt-42", stored.ExternalEventID, "external event ID must be persisted")
}

func TestCreateBooking_MirrorFailureKeepsLocalCommit(t *testing.T) {
	f := newBookingFixture(t, true)
	f.calendar.insertFn = func(service.EventDetails) (string, error) {
		return "", errors.WithStack(service.ErrAdapterUnavailable)
	}

	result, err := f.svc.CreateBooking(context.Background(), f.request(10, 0, 30*time.Minute))

	require.NoError(t, err, "mirror failure must not fail the booking")
	assert.Equal(t, usecase.SyncFailed, result.CalendarSync)
	assert.Equal(t, 1, f.store.appointmentCount(), "local commit stands")
	assert.Empty(t, result.Appointment.ExternalEventID)
}

func TestUpdateStatus_CancelScheduled(t *testing.T) {
	f := newBookingFixture(t, false)

	created, err := f.svc.CreateBooking(context.Background(), f.request(10, 0, 30*time.Minute))
	require.NoError(t, err)

	result, err := f.svc.UpdateStatus(context.Background(), created.Appointment.ID, entity.StatusCancelled)

	require.NoError(t, err)
	assert.Equal(t, entity.StatusCancelled, result.Appointment.Status)
}

func TestUpdateStatus_TerminalStatesAreFinal(t *testing.T) {
	f := newBookingFixture(t, false)

	created, err := f.svc.CreateBooking(context.Background(), f.request(10, 0, 30*time.Minute))
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(context.Background(), created.Appointment.ID, entity.StatusCancelled)
	require.NoError(t, err)

	for _, next := range []entity.AppointmentStatus{entity.StatusCompleted, entity.StatusCancelled, entity.StatusScheduled} {
		_, err = f.svc.UpdateStatus(context.Background(), created.Appointment.ID, next)
		require.Error(t, err)
		assert.True(t, errors.Is(err, domainerrors.ErrIllegalTransition), "cancelled -> %s must be illegal", next)
	}
}

func TestUpdateStatus_UnknownAppointment(t *testing.T) {
	f := newBookingFixture(t, false)

	_, err := f.svc.UpdateStatus(context.Background(), uuid.New(), entity.StatusCancelled)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrAppointmentNotFound))
}

func TestUpdateStatus_CancellationDeletesMirroredEvent(t *testing.T) {
	f := newBookingFixture(t, true)

	created, err := f.svc.CreateBooking(context.Background(), f.request(10, 0, 30*time.Minute))
	require.NoError(t, err)
	require.Equal(t, usecase.SyncMirrored, created.CalendarSync)

	var deleted string
	f.calendar.deleteFn = func(eventID string) error {
		deleted = eventID

		return nil
	}

	result, err := f.svc.UpdateStatus(context.Background(), created.Appointment.ID, entity.StatusCancelled)

	require.NoError(t, err)
	assert.Equal(t, usecase.SyncMirrored, result.CalendarSync)
	assert.Equal(t, created.Appointment.ExternalEventID, deleted)
}

func TestUpdateStatus_DeleteFailureDoesNotBlockTransition(t *testing.T) {
	f := newBookingFixture(t, true)

	created, err := f.svc.CreateBooking(context.Background(), f.request(10, 0, 30*time.Minute))
	require.NoError(t, err)

	f.calendar.deleteFn = func(string) error {
		return errors.WithStack(service.ErrAdapterUnavailable)
	}

	result, err := f.svc.UpdateStatus(context.Background(), created.Appointment.ID, entity.StatusCompleted)

	require.NoError(t, err, "local transition stands when the mirror delete fails")
	assert.Equal(t, entity.StatusCompleted, result.Appointment.Status)
	assert.Equal(t, usecase.SyncFailed, result.CalendarSync)
}

func TestListProviderAppointments_Filters(t *testing.T) {
	f := newBookingFixture(t, false)

	first, err := f.svc.CreateBooking(context.Background(), f.request(10, 0, 30*time.Minute))
	require.NoError(t, err)
	_, err = f.svc.CreateBooking(context.Background(), f.request(11, 0, 30*time.Minute))
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(context.Background(), first.Appointment.ID, entity.StatusCancelled)
	require.NoError(t, err)

	all, err := f.svc.ListProviderAppointments(context.Background(), f.provider.ID, listFilter("", nil))
	require.NoError(t, err)
	assert.Len(t, all, 2)

	scheduled, err := f.svc.ListProviderAppointments(context.Background(), f.provider.ID, listFilter(entity.StatusScheduled, nil))
	require.NoError(t, err)
	require.Len(t, scheduled, 1)
	assert.Equal(t, time.Date(2026, 9, 1, 11, 0, 0, 0, time.UTC), scheduled[0].StartTime)

	otherDay := time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC)
	empty, err := f.svc.ListProviderAppointments(context.Background(), f.provider.ID, listFilter("", &otherDay))
	require.NoError(t, err)
	assert.Empty(t, empty)
}
