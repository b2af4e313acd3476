// Package usecase defines the application-facing interfaces of the
// scheduling engine and their request/response shapes.
package usecase

import (
	"context"
	"time"

	"clinicbook/internal/domain/entity"

	"github.com/google/uuid"
)

// Availability is the outcome of a slot listing. Degraded is set when the
// external calendar could not be consulted and the slots reflect local
// bookings only; clients must be able to tell that apart from a fully
// synchronized answer.
type Availability struct {
	Slots    []entity.CandidateSlot `json:"slots"`
	Degraded bool                   `json:"degraded"`
}

// AvailabilityUsecase computes bookable slots for a provider.
type AvailabilityUsecase interface {
	// ListAvailableSlots returns the free, future candidate slots for the
	// provider on the given calendar day. External sync failures degrade to
	// local-only availability instead of erroring.
	ListAvailableSlots(ctx context.Context, providerID uuid.UUID, day time.Time) (*Availability, error)
}
