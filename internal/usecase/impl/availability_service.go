package impl

import (
	"context"
	"log/slog"
	"time"

	"clinicbook/config"
	deliverycontext "clinicbook/internal/delivery/context"
	"clinicbook/internal/domain/entity"
	domainerrors "clinicbook/internal/domain/errors"
	"clinicbook/internal/domain/repository"
	"clinicbook/internal/domain/schedule"
	"clinicbook/internal/domain/service"
	"clinicbook/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// availabilityService implements the AvailabilityUsecase interface.
type availabilityService struct {
	providerRepo    repository.ProviderRepository
	appointmentRepo repository.AppointmentRepository
	calendar        service.CalendarService
	credentials     usecase.CredentialUsecase
	clock           service.Clock
	logger          *slog.Logger
	slotDuration    time.Duration
	adapterTimeout  time.Duration
}

// NewAvailabilityService is the constructor for availabilityService.
func NewAvailabilityService(
	providerRepo repository.ProviderRepository,
	appointmentRepo repository.AppointmentRepository,
	calendar service.CalendarService,
	credentials usecase.CredentialUsecase,
	clock service.Clock,
	cfg *config.Config,
	logger *slog.Logger,
) usecase.AvailabilityUsecase {
	return &availabilityService{
		providerRepo:    providerRepo,
		appointmentRepo: appointmentRepo,
		calendar:        calendar,
		credentials:     credentials,
		clock:           clock,
		logger:          logger,
		slotDuration:    cfg.Scheduling.SlotDuration,
		adapterTimeout:  cfg.Scheduling.AdapterTimeout,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *availabilityService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// ListAvailableSlots generates the provider's candidate slots for the day and
// filters them against local bookings and, when sync is active, the external
// calendar's busy intervals. An unreachable calendar degrades the answer to
// local-only availability; it never fails the request and never widens it.
func (srv *availabilityService) ListAvailableSlots(ctx context.Context, providerID uuid.UUID, day time.Time) (*usecase.Availability, error) {
	provider, err := srv.providerRepo.FindProviderByID(ctx, providerID)
	if err != nil {
		if errors.Is(err, repository.ErrProviderNotFound) {
			return nil, errors.Wrap(domainerrors.ErrProviderNotFound, "unknown provider")
		}

		return nil, errors.Wrap(err, "failed to find provider")
	}

	slots := schedule.GenerateSlots(day, provider.WorkingHours, srv.slotDuration)
	if len(slots) == 0 {
		return &usecase.Availability{Slots: slots}, nil
	}

	windowStart := slots[0].StartTime
	windowEnd := slots[len(slots)-1].EndTime

	appointments, err := srv.appointmentRepo.FindScheduledOverlapping(ctx, providerID, windowStart, windowEnd)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load scheduled appointments")
	}

	busy, degraded := srv.fetchBusy(ctx, provider, windowStart, windowEnd)

	available := schedule.ResolveAvailable(slots, appointments, busy, srv.clock.Now())

	return &usecase.Availability{Slots: available, Degraded: degraded}, nil
}

// fetchBusy returns the external busy intervals for the window, or an empty
// set with the degraded flag raised when the credential or adapter failed.
// A provider without an active link yields an empty set and no degradation.
func (srv *availabilityService) fetchBusy(ctx context.Context, provider *entity.Provider, from, to time.Time) ([]schedule.Interval, bool) {
	if !provider.SyncActive() {
		return nil, false
	}

	credential, err := srv.credentials.EnsureFresh(ctx, provider)
	if err != nil {
		srv.log(ctx).Warn("Availability degraded to local-only: credential refresh failed",
			slog.Any("provider_id", provider.ID), slog.Any("error", err))

		return nil, true
	}
	if credential == nil {
		return nil, false
	}

	adapterCtx, cancel := context.WithTimeout(ctx, srv.adapterTimeout)
	defer cancel()

	busy, err := srv.calendar.FetchBusyIntervals(adapterCtx, credential.AccessToken, provider.CalendarID, from, to)
	if err != nil {
		srv.log(ctx).Warn("Availability degraded to local-only: busy interval fetch failed",
			slog.Any("provider_id", provider.ID), slog.Any("error", err))

		return nil, true
	}

	return busy, false
}
