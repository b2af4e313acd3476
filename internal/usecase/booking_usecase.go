package usecase

import (
	"context"
	"time"

	"clinicbook/internal/domain/entity"
	"clinicbook/internal/domain/repository"

	"github.com/google/uuid"
)

// CalendarSync reports what happened to the external mirror of a local write.
type CalendarSync string

const (
	// SyncMirrored means the external calendar reflects the local change.
	SyncMirrored CalendarSync = "mirrored"

	// SyncSkipped means the provider has no active external calendar link.
	SyncSkipped CalendarSync = "skipped"

	// SyncFailed means the local change committed but the external mirror
	// write failed; the local store remains the source of truth.
	SyncFailed CalendarSync = "failed"
)

// BookingRequest carries the caller's intent to book a provider's time.
type BookingRequest struct {
	ProviderID   uuid.UUID
	PatientName  string
	PatientPhone string
	Notes        string
	StartTime    time.Time
	EndTime      time.Time
}

// BookingResult pairs the committed appointment with the mirror outcome.
type BookingResult struct {
	Appointment  *entity.Appointment `json:"appointment"`
	CalendarSync CalendarSync        `json:"calendar_sync"`
}

// BookingUsecase is the write path of the engine.
type BookingUsecase interface {
	// CreateBooking validates the requested range, re-checks for overlap
	// inside the store transaction and commits the appointment, then
	// best-effort mirrors it into the external calendar.
	CreateBooking(ctx context.Context, req *BookingRequest) (*BookingResult, error)

	// UpdateStatus moves an appointment through its lifecycle state machine
	// and, for mirrored appointments, requests deletion of the external event.
	UpdateStatus(ctx context.Context, appointmentID uuid.UUID, status entity.AppointmentStatus) (*BookingResult, error)

	// ListProviderAppointments returns a provider's appointments, optionally
	// filtered by status and day.
	ListProviderAppointments(ctx context.Context, providerID uuid.UUID, filter repository.AppointmentFilter) ([]*entity.Appointment, error)
}
