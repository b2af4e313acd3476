package impl

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"clinicbook/config"
	deliverycontext "clinicbook/internal/delivery/context"
	"clinicbook/internal/domain/entity"
	domainerrors "clinicbook/internal/domain/errors"
	"clinicbook/internal/domain/repository"
	"clinicbook/internal/domain/service"
	"clinicbook/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// bookingService implements the BookingUsecase interface.
type bookingService struct {
	txManager       repository.TransactionManager
	providerRepo    repository.ProviderRepository
	appointmentRepo repository.AppointmentRepository
	calendar        service.CalendarService
	credentials     usecase.CredentialUsecase
	clock           service.Clock
	logger          *slog.Logger
	adapterTimeout  time.Duration
}

// NewBookingService is the constructor for bookingService.
func NewBookingService(
	txManager repository.TransactionManager,
	providerRepo repository.ProviderRepository,
	appointmentRepo repository.AppointmentRepository,
	calendar service.CalendarService,
	credentials usecase.CredentialUsecase,
	clock service.Clock,
	cfg *config.Config,
	logger *slog.Logger,
) usecase.BookingUsecase {
	return &bookingService{
		txManager:       txManager,
		providerRepo:    providerRepo,
		appointmentRepo: appointmentRepo,
		calendar:        calendar,
		credentials:     credentials,
		clock:           clock,
		logger:          logger,
		adapterTimeout:  cfg.Scheduling.AdapterTimeout,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *bookingService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// CreateBooking validates the requested range and commits the appointment
// with a check-and-insert inside one transaction. The provider row is locked
// first, so concurrent booking attempts for the same provider serialize and
// at most one of two overlapping requests can commit. The external mirror
// write happens after the local commit and never rolls it back.
func (srv *bookingService) CreateBooking(ctx context.Context, req *usecase.BookingRequest) (*usecase.BookingResult, error) {
	// Malformed ranges are rejected before any store access, and before the
	// overlap check.
	if !req.StartTime.Before(req.EndTime) {
		return nil, errors.Wrap(domainerrors.ErrValidation, "start time must be before end time")
	}
	if !req.StartTime.After(srv.clock.Now()) {
		return nil, errors.Wrap(domainerrors.ErrValidation, "requested time range is in the past")
	}

	var provider *entity.Provider
	appointment := &entity.Appointment{
		ProviderID:   req.ProviderID,
		PatientName:  req.PatientName,
		PatientPhone: req.PatientPhone,
		Notes:        req.Notes,
		StartTime:    req.StartTime.UTC(),
		EndTime:      req.EndTime.UTC(),
		Status:       entity.StatusScheduled,
	}

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		providerRepo := repoFactory.ProviderRepo()
		appointmentRepo := repoFactory.AppointmentRepo()

		// 1. Lock the provider row; this is the serialization point for all
		// booking attempts against the same provider.
		locked, err := providerRepo.FindProviderByIDForUpdate(ctx, req.ProviderID)
		if err != nil {
			if errors.Is(err, repository.ErrProviderNotFound) {
				return errors.Wrap(domainerrors.ErrProviderNotFound, "unknown provider")
			}

			return errors.Wrap(err, "failed to lock provider")
		}
		provider = locked

		// 2. Re-check for overlap at commit time; any earlier availability
		// answer the caller saw may be stale by now.
		overlapping, err := appointmentRepo.FindScheduledOverlapping(ctx, req.ProviderID, appointment.StartTime, appointment.EndTime)
		if err != nil {
			return errors.Wrap(err, "failed to check for overlapping appointments")
		}
		if len(overlapping) > 0 {
			return errors.Wrap(domainerrors.ErrBookingConflict, "requested range is already booked")
		}

		// 3. Insert; no other transaction can interleave between the check
		// and this write.
		return appointmentRepo.CreateAppointment(ctx, appointment)
	})
	if err != nil {
		return nil, err
	}

	srv.log(ctx).Info("Booking committed",
		slog.Any("appointment_id", appointment.ID),
		slog.Any("provider_id", req.ProviderID),
		slog.Time("start", appointment.StartTime))

	result := &usecase.BookingResult{Appointment: appointment, CalendarSync: usecase.SyncSkipped}
	result.CalendarSync = srv.mirrorCreate(ctx, provider, appointment)

	return result, nil
}

// mirrorCreate best-effort inserts the committed appointment into the
// provider's external calendar and records the event ID on success.
func (srv *bookingService) mirrorCreate(ctx context.Context, provider *entity.Provider, appointment *entity.Appointment) usecase.CalendarSync {
	if !provider.SyncActive() {
		return usecase.SyncSkipped
	}

	credential, err := srv.credentials.EnsureFresh(ctx, provider)
	if err != nil {
		srv.log(ctx).Warn("Booking committed locally but calendar mirror skipped: credential refresh failed",
			slog.Any("appointment_id", appointment.ID), slog.Any("error", err))

		return usecase.SyncFailed
	}
	if credential == nil {
		return usecase.SyncSkipped
	}

	adapterCtx, cancel := context.WithTimeout(ctx, srv.adapterTimeout)
	defer cancel()

	eventID, err := srv.calendar.InsertEvent(adapterCtx, credential.AccessToken, provider.CalendarID, service.EventDetails{
		Summary:     fmt.Sprintf("Appointment with %s", appointment.PatientName),
		Description: fmt.Sprintf("Patient Phone: %s", appointment.PatientPhone),
		Start:       appointment.StartTime,
		End:         appointment.EndTime,
	})
	if err != nil {
		srv.log(ctx).Warn("Booking committed locally but calendar mirror failed",
			slog.Any("appointment_id", appointment.ID), slog.Any("error", err))

		return usecase.SyncFailed
	}

	if err := srv.appointmentRepo.UpdateExternalEventID(ctx, appointment.ID, eventID); err != nil {
		srv.log(ctx).Error("Failed to record external event ID",
			slog.Any("appointment_id", appointment.ID), slog.Any("error", err))

		return usecase.SyncFailed
	}
	appointment.ExternalEventID = eventID

	return usecase.SyncMirrored
}

// UpdateStatus applies the appointment lifecycle state machine: only a
// scheduled appointment may be cancelled or completed, exactly once. For
// mirrored appointments the external event is deleted best-effort; deletion
// failure is reported but does not block the local transition.
func (srv *bookingService) UpdateStatus(ctx context.Context, appointmentID uuid.UUID, status entity.AppointmentStatus) (*usecase.BookingResult, error) {
	var appointment *entity.Appointment

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		appointmentRepo := repoFactory.AppointmentRepo()

		current, err := appointmentRepo.FindAppointmentByIDForUpdate(ctx, appointmentID)
		if err != nil {
			if errors.Is(err, repository.ErrAppointmentNotFound) {
				return errors.Wrap(domainerrors.ErrAppointmentNotFound, "unknown appointment")
			}

			return errors.Wrap(err, "failed to lock appointment")
		}

		if !current.Status.CanTransitionTo(status) {
			return errors.Wrapf(domainerrors.ErrIllegalTransition,
				"cannot move appointment from %s to %s", current.Status, status)
		}

		if err := appointmentRepo.UpdateStatus(ctx, appointmentID, status); err != nil {
			return errors.Wrap(err, "failed to update appointment status")
		}

		current.Status = status
		appointment = current

		return nil
	})
	if err != nil {
		return nil, err
	}

	srv.log(ctx).Info("Appointment status updated",
		slog.Any("appointment_id", appointmentID), slog.String("status", string(status)))

	result := &usecase.BookingResult{Appointment: appointment, CalendarSync: usecase.SyncSkipped}
	if appointment.Mirrored() {
		result.CalendarSync = srv.mirrorDelete(ctx, appointment)
	}

	return result, nil
}

// mirrorDelete best-effort removes the mirrored event after a terminal
// status change. An event that is already gone counts as success.
func (srv *bookingService) mirrorDelete(ctx context.Context, appointment *entity.Appointment) usecase.CalendarSync {
	provider, err := srv.providerRepo.FindProviderByID(ctx, appointment.ProviderID)
	if err != nil {
		srv.log(ctx).Warn("Status updated locally but calendar mirror skipped: provider lookup failed",
			slog.Any("appointment_id", appointment.ID), slog.Any("error", err))

		return usecase.SyncFailed
	}
	if !provider.SyncActive() {
		return usecase.SyncSkipped
	}

	credential, err := srv.credentials.EnsureFresh(ctx, provider)
	if err != nil {
		return usecase.SyncFailed
	}
	if credential == nil {
		return usecase.SyncSkipped
	}

	adapterCtx, cancel := context.WithTimeout(ctx, srv.adapterTimeout)
	defer cancel()

	if err := srv.calendar.DeleteEvent(adapterCtx, credential.AccessToken, provider.CalendarID, appointment.ExternalEventID); err != nil {
		srv.log(ctx).Warn("Status updated locally but external event deletion failed",
			slog.Any("appointment_id", appointment.ID), slog.Any("error", err))

		return usecase.SyncFailed
	}

	return usecase.SyncMirrored
}

// ListProviderAppointments returns a provider's appointments matching the
// status and day filters, ordered by start time.
func (srv *bookingService) ListProviderAppointments(ctx context.Context, providerID uuid.UUID, filter repository.AppointmentFilter) ([]*entity.Appointment, error) {
	if _, err := srv.providerRepo.FindProviderByID(ctx, providerID); err != nil {
		if errors.Is(err, repository.ErrProviderNotFound) {
			return nil, errors.Wrap(domainerrors.ErrProviderNotFound, "unknown provider")
		}

		return nil, errors.Wrap(err, "failed to find provider")
	}

	appointments, err := srv.appointmentRepo.FindByProvider(ctx, providerID, filter)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list appointments")
	}

	return appointments, nil
}
