package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// AppointmentStatus is the lifecycle state of an appointment.
// Cancellation and completion are terminal; only a scheduled appointment
// may change state.
type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "scheduled"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusCompleted AppointmentStatus = "completed"
)

// ParseAppointmentStatus validates a raw status string.
func ParseAppointmentStatus(s string) (AppointmentStatus, error) {
	switch status := AppointmentStatus(s); status {
	case StatusScheduled, StatusCancelled, StatusCompleted:
		return status, nil
	default:
		return "", errors.Errorf("unknown appointment status %q", s)
	}
}

// IsTerminal reports whether no further transitions are allowed.
func (s AppointmentStatus) IsTerminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// CanTransitionTo reports whether the state machine permits moving from s
// to next. Only scheduled -> cancelled and scheduled -> completed are legal.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	return s == StatusScheduled && next.IsTerminal()
}

// Appointment is a committed booking of one provider's time.
// The engine guarantees that no two scheduled appointments for the same
// provider overlap; cancelled and completed appointments are history and
// excluded from that invariant.
type Appointment struct {
	ID              uuid.UUID
	ProviderID      uuid.UUID         // The provider whose time is booked.
	PatientName     string            // Opaque patient contact field.
	PatientPhone    string            // Opaque patient contact field.
	Notes           string            // Optional free-form notes.
	StartTime       time.Time         // Inclusive start instant (UTC).
	EndTime         time.Time         // Exclusive end instant (UTC).
	Status          AppointmentStatus // Current lifecycle state.
	ExternalEventID string            // Mirrored event in the external calendar; empty if not mirrored.
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Mirrored reports whether the appointment has a counterpart event in the
// external calendar.
func (a *Appointment) Mirrored() bool {
	return a.ExternalEventID != ""
}
