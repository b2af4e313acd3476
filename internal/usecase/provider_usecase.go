package usecase

import (
	"context"

	"clinicbook/internal/domain/entity"

	"github.com/google/uuid"
)

// ProfileInput carries the mutable profile fields of a provider.
type ProfileInput struct {
	Name           string
	Specialization string
	Description    string
	PhoneNumber    string
}

// ProviderUsecase manages provider profiles and their schedule configuration.
type ProviderUsecase interface {
	// GetProvider retrieves a provider by ID.
	GetProvider(ctx context.Context, id uuid.UUID) (*entity.Provider, error)

	// ListProviders retrieves all providers.
	ListProviders(ctx context.Context) ([]*entity.Provider, error)

	// UpsertProfile creates the provider when the ID is unknown, otherwise
	// updates the profile fields. The read and the conditional write run in
	// one transaction.
	UpsertProfile(ctx context.Context, id uuid.UUID, input *ProfileInput) (*entity.Provider, error)

	// UpdateWorkingHours replaces the provider's bookable window. Start and
	// end are "HH:mm" strings; start must precede end.
	UpdateWorkingHours(ctx context.Context, id uuid.UUID, start, end string) (*entity.Provider, error)
}
