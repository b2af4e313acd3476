package repository

import (
	"context"
	"time"

	"clinicbook/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Domain-specific errors for appointment persistence.
var (
	// ErrAppointmentNotFound is returned when an appointment is not found.
	ErrAppointmentNotFound = errors.New("appointment not found")
)

// AppointmentFilter narrows appointment listings. Zero values disable a filter.
type AppointmentFilter struct {
	// Status keeps only appointments in the given lifecycle state.
	Status entity.AppointmentStatus

	// Day keeps only appointments starting within the given calendar day.
	Day *time.Time
}

// AppointmentRepository defines the interface for appointment-related database operations.
type AppointmentRepository interface {
	// CreateAppointment persists a new appointment.
	CreateAppointment(ctx context.Context, appointment *entity.Appointment) error

	// FindAppointmentByID retrieves an appointment by its unique ID.
	FindAppointmentByID(ctx context.Context, id uuid.UUID) (*entity.Appointment, error)

	// FindAppointmentByIDForUpdate retrieves an appointment and locks its row
	// for the duration of the surrounding transaction. Only meaningful inside
	// TransactionManager.Execute.
	FindAppointmentByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Appointment, error)

	// FindScheduledOverlapping retrieves all scheduled appointments for the
	// provider whose [start, end) range overlaps the given half-open range,
	// ordered by start time. Cancelled and completed appointments are excluded.
	FindScheduledOverlapping(ctx context.Context, providerID uuid.UUID, start, end time.Time) ([]*entity.Appointment, error)

	// FindByProvider retrieves a provider's appointments matching the filter,
	// ordered by start time.
	FindByProvider(ctx context.Context, providerID uuid.UUID, filter AppointmentFilter) ([]*entity.Appointment, error)

	// UpdateStatus sets the lifecycle state of an appointment.
	UpdateStatus(ctx context.Context, id uuid.UUID, status entity.AppointmentStatus) error

	// UpdateExternalEventID records the mirrored event ID after a successful
	// external calendar write.
	UpdateExternalEventID(ctx context.Context, id uuid.UUID, externalEventID string) error
}
