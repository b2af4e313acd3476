// Package postgres contains the concrete implementation of the persistence layer using GORM and PostgreSQL.
package postgres

import (
	"context"

	"clinicbook/internal/domain/entity"
	domainerrors "clinicbook/internal/domain/errors"
	"clinicbook/internal/domain/repository"
	"clinicbook/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// providerRepository implements the repository.ProviderRepository interface.
type providerRepository struct {
	db *gorm.DB
}

// NewProviderRepository is the constructor for providerRepository.
func NewProviderRepository(db *gorm.DB) repository.ProviderRepository {
	return &providerRepository{
		db: db,
	}
}

// CreateProvider persists a new provider profile.
func (repo *providerRepository) CreateProvider(ctx context.Context, provider *entity.Provider) error {
	providerM := fromProviderDomain(provider)

	if err := repo.db.WithContext(ctx).Create(providerM).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return errors.Wrap(err, "provider already exists")
		}
		if isNotNullConstraintViolation(err) {
			return domainerrors.ErrValidation.WrapMessage("missing required provider information")
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create provider")
	}

	// Update the entity with generated values
	provider.ID = providerM.ID
	provider.CreatedAt = providerM.CreatedAt
	provider.UpdatedAt = providerM.UpdatedAt

	return nil
}

// FindProviderByID retrieves a provider by its unique ID.
func (repo *providerRepository) FindProviderByID(ctx context.Context, id uuid.UUID) (*entity.Provider, error) {
	var providerM model.ProviderModel

	if err := repo.db.WithContext(ctx).
		Where("id = ?", id).
		First(&providerM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrProviderNotFound
		}

		return nil, errors.Wrap(err, "failed to find provider by ID")
	}

	return toProviderDomain(&providerM), nil
}

// FindProviderByIDForUpdate retrieves a provider with a row-level lock.
// The lock serializes booking and credential writes for one provider; it is
// only meaningful inside TransactionManager.Execute.
func (repo *providerRepository) FindProviderByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Provider, error) {
	var providerM model.ProviderModel

	if err := repo.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&providerM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrProviderNotFound
		}

		return nil, errors.Wrap(err, "failed to lock provider by ID")
	}

	return toProviderDomain(&providerM), nil
}

// ListProviders retrieves all providers ordered by name.
func (repo *providerRepository) ListProviders(ctx context.Context) ([]*entity.Provider, error) {
	var providerModels []*model.ProviderModel

	if err := repo.db.WithContext(ctx).
		Order("name ASC").
		Find(&providerModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list providers")
	}

	providers := make([]*entity.Provider, 0, len(providerModels))
	for _, providerM := range providerModels {
		providers = append(providers, toProviderDomain(providerM))
	}

	return providers, nil
}

// UpdateProfile updates the mutable profile fields of an existing provider.
func (repo *providerRepository) UpdateProfile(ctx context.Context, provider *entity.Provider) error {
	result := repo.db.WithContext(ctx).
		Model(&model.ProviderModel{}).
		Where("id = ?", provider.ID).
		Updates(map[string]any{
			"name":           provider.Name,
			"specialization": provider.Specialization,
			"description":    provider.Description,
			"phone_number":   provider.PhoneNumber,
		})

	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to update provider profile")
	}

	if result.RowsAffected == 0 {
		return repository.ErrProviderNotFound
	}

	return nil
}

// UpdateWorkingHours replaces the provider's daily bookable window.
func (repo *providerRepository) UpdateWorkingHours(ctx context.Context, id uuid.UUID, hours entity.WorkingHours) error {
	result := repo.db.WithContext(ctx).
		Model(&model.ProviderModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"work_start_minutes": hours.Start.Minutes(),
			"work_end_minutes":   hours.End.Minutes(),
		})

	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to update working hours")
	}

	if result.RowsAffected == 0 {
		return repository.ErrProviderNotFound
	}

	return nil
}

// UpdateCredential persists the linked calendar ID together with the
// delegated-access credential.
func (repo *providerRepository) UpdateCredential(ctx context.Context, id uuid.UUID, calendarID string, credential *entity.CalendarCredential) error {
	expiresAt := credential.ExpiresAt

	result := repo.db.WithContext(ctx).
		Model(&model.ProviderModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"calendar_id":      calendarID,
			"access_token":     credential.AccessToken,
			"refresh_token":    credential.RefreshToken,
			"token_expires_at": &expiresAt,
		})

	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to update calendar credential")
	}

	if result.RowsAffected == 0 {
		return repository.ErrProviderNotFound
	}

	return nil
}

// --- Mapper Functions ---

// toProviderDomain converts a GORM ProviderModel to a domain Provider entity.
func toProviderDomain(data *model.ProviderModel) *entity.Provider {
	if data == nil {
		return nil
	}

	provider := &entity.Provider{
		ID:             data.ID,
		Name:           data.Name,
		Specialization: data.Specialization,
		Description:    data.Description,
		PhoneNumber:    data.PhoneNumber,
		WorkingHours: entity.WorkingHours{
			Start: minutesToTimeOfDay(data.WorkStartMinutes),
			End:   minutesToTimeOfDay(data.WorkEndMinutes),
		},
		CalendarID: data.CalendarID,
		CreatedAt:  data.CreatedAt,
		UpdatedAt:  data.UpdatedAt,
	}

	if data.RefreshToken != "" && data.TokenExpiresAt != nil {
		provider.Credential = &entity.CalendarCredential{
			AccessToken:  data.AccessToken,
			RefreshToken: data.RefreshToken,
			ExpiresAt:    data.TokenExpiresAt.UTC(),
		}
	}

	return provider
}

// fromProviderDomain converts a domain Provider entity to a GORM ProviderModel.
func fromProviderDomain(data *entity.Provider) *model.ProviderModel {
	if data == nil {
		return nil
	}

	providerM := &model.ProviderModel{
		ID:               data.ID,
		Name:             data.Name,
		Specialization:   data.Specialization,
		Description:      data.Description,
		PhoneNumber:      data.PhoneNumber,
		WorkStartMinutes: data.WorkingHours.Start.Minutes(),
		WorkEndMinutes:   data.WorkingHours.End.Minutes(),
		CalendarID:       data.CalendarID,
		CreatedAt:        data.CreatedAt,
		UpdatedAt:        data.UpdatedAt,
	}

	if data.Credential != nil {
		expiresAt := data.Credential.ExpiresAt
		providerM.AccessToken = data.Credential.AccessToken
		providerM.RefreshToken = data.Credential.RefreshToken
		providerM.TokenExpiresAt = &expiresAt
	}

	return providerM
}

func minutesToTimeOfDay(minutes int) entity.TimeOfDay {
	return entity.TimeOfDay{Hour: minutes / 60, Minute: minutes % 60}
}
