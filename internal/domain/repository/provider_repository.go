// Package repository defines the interfaces for the persistence layer.
package repository

import (
	"context"

	"clinicbook/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Domain-specific errors for provider persistence.
var (
	// ErrProviderNotFound is returned when a provider is not found.
	ErrProviderNotFound = errors.New("provider not found")
)

// ProviderRepository defines the interface for provider-related database operations.
type ProviderRepository interface {
	// CreateProvider persists a new provider profile.
	CreateProvider(ctx context.Context, provider *entity.Provider) error

	// FindProviderByID retrieves a provider by its unique ID.
	FindProviderByID(ctx context.Context, id uuid.UUID) (*entity.Provider, error)

	// FindProviderByIDForUpdate retrieves a provider and locks its row for the
	// duration of the surrounding transaction. It is the per-provider
	// serialization point for booking writes and credential updates, and is
	// only meaningful inside TransactionManager.Execute.
	FindProviderByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Provider, error)

	// ListProviders retrieves all providers ordered by name.
	ListProviders(ctx context.Context) ([]*entity.Provider, error)

	// UpdateProfile updates the mutable profile fields of an existing provider.
	UpdateProfile(ctx context.Context, provider *entity.Provider) error

	// UpdateWorkingHours replaces the provider's daily bookable window.
	UpdateWorkingHours(ctx context.Context, id uuid.UUID, hours entity.WorkingHours) error

	// UpdateCredential persists the linked calendar ID together with the
	// delegated-access credential. Only the credential lifecycle manager
	// calls this.
	UpdateCredential(ctx context.Context, id uuid.UUID, calendarID string, credential *entity.CalendarCredential) error
}
