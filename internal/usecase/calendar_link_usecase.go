package usecase

import (
	"context"

	"clinicbook/internal/domain/entity"

	"github.com/google/uuid"
)

// CalendarLinkUsecase runs the one-time authorization flow that connects a
// provider to their external calendar.
type CalendarLinkUsecase interface {
	// BeginLink issues a single-use correlation token for the provider and
	// returns the authorization URL to redirect the user to.
	BeginLink(ctx context.Context, providerID uuid.UUID) (string, error)

	// CompleteLink validates the correlation token, exchanges the
	// authorization code and persists the calendar ID together with the
	// delegated-access credential.
	CompleteLink(ctx context.Context, state, code string) error
}

// CredentialUsecase manages the delegated-access token pair of a provider.
type CredentialUsecase interface {
	// EnsureFresh returns a credential that is valid beyond the configured
	// skew, refreshing and persisting it first when needed. It returns
	// (nil, nil) when the provider has no active sync, and an error when a
	// required refresh failed; the stored credential is left untouched in
	// that case and no dependent calendar call may proceed.
	EnsureFresh(ctx context.Context, provider *entity.Provider) (*entity.CalendarCredential, error)
}
