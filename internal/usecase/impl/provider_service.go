package impl

import (
	"context"
	"log/slog"

	"clinicbook/config"
	deliverycontext "clinicbook/internal/delivery/context"
	"clinicbook/internal/domain/entity"
	domainerrors "clinicbook/internal/domain/errors"
	"clinicbook/internal/domain/repository"
	"clinicbook/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// providerService implements the ProviderUsecase interface.
type providerService struct {
	txManager    repository.TransactionManager
	providerRepo repository.ProviderRepository
	logger       *slog.Logger
	defaultHours entity.WorkingHours
}

// NewProviderService is the constructor for providerService.
func NewProviderService(
	txManager repository.TransactionManager,
	providerRepo repository.ProviderRepository,
	cfg *config.Config,
	logger *slog.Logger,
) (usecase.ProviderUsecase, error) {
	start, err := entity.ParseTimeOfDay(cfg.Scheduling.DefaultWorkStart)
	if err != nil {
		return nil, errors.Wrap(err, "invalid default work start")
	}
	end, err := entity.ParseTimeOfDay(cfg.Scheduling.DefaultWorkEnd)
	if err != nil {
		return nil, errors.Wrap(err, "invalid default work end")
	}

	defaultHours := entity.WorkingHours{Start: start, End: end}
	if err := defaultHours.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid default working hours")
	}

	return &providerService{
		txManager:    txManager,
		providerRepo: providerRepo,
		logger:       logger,
		defaultHours: defaultHours,
	}, nil
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *providerService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// GetProvider retrieves a provider by ID.
func (srv *providerService) GetProvider(ctx context.Context, id uuid.UUID) (*entity.Provider, error) {
	provider, err := srv.providerRepo.FindProviderByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProviderNotFound) {
			return nil, errors.Wrap(domainerrors.ErrProviderNotFound, "unknown provider")
		}

		return nil, errors.Wrap(err, "failed to find provider")
	}

	return provider, nil
}

// ListProviders retrieves all providers.
func (srv *providerService) ListProviders(ctx context.Context) ([]*entity.Provider, error) {
	providers, err := srv.providerRepo.ListProviders(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list providers")
	}

	return providers, nil
}

// UpsertProfile creates or updates the provider profile as an explicit
// read-then-conditional-write inside one transaction, so a concurrent upsert
// cannot silently clobber schedule configuration.
func (srv *providerService) UpsertProfile(ctx context.Context, id uuid.UUID, input *usecase.ProfileInput) (*entity.Provider, error) {
	var provider *entity.Provider

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		providerRepo := repoFactory.ProviderRepo()

		existing, err := providerRepo.FindProviderByIDForUpdate(ctx, id)
		switch {
		case err == nil:
			existing.Name = input.Name
			existing.Specialization = input.Specialization
			existing.Description = input.Description
			existing.PhoneNumber = input.PhoneNumber
			if err := providerRepo.UpdateProfile(ctx, existing); err != nil {
				return errors.Wrap(err, "failed to update provider profile")
			}
			provider = existing

			return nil

		case errors.Is(err, repository.ErrProviderNotFound):
			created := &entity.Provider{
				ID:             id,
				Name:           input.Name,
				Specialization: input.Specialization,
				Description:    input.Description,
				PhoneNumber:    input.PhoneNumber,
				WorkingHours:   srv.defaultHours,
			}
			if err := providerRepo.CreateProvider(ctx, created); err != nil {
				return errors.Wrap(err, "failed to create provider")
			}
			provider = created

			return nil

		default:
			return errors.Wrap(err, "failed to find provider")
		}
	})
	if err != nil {
		return nil, err
	}

	srv.log(ctx).Info("Provider profile upserted", slog.Any("provider_id", id))

	return provider, nil
}

// UpdateWorkingHours replaces the provider's bookable window after
// validating the HH:mm inputs and the start < end invariant.
func (srv *providerService) UpdateWorkingHours(ctx context.Context, id uuid.UUID, start, end string) (*entity.Provider, error) {
	startTime, err := entity.ParseTimeOfDay(start)
	if err != nil {
		return nil, errors.Wrap(domainerrors.ErrValidation, err.Error())
	}
	endTime, err := entity.ParseTimeOfDay(end)
	if err != nil {
		return nil, errors.Wrap(domainerrors.ErrValidation, err.Error())
	}

	hours := entity.WorkingHours{Start: startTime, End: endTime}
	if err := hours.Validate(); err != nil {
		return nil, errors.Wrap(domainerrors.ErrValidation, err.Error())
	}

	var provider *entity.Provider

	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		providerRepo := repoFactory.ProviderRepo()

		existing, err := providerRepo.FindProviderByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrProviderNotFound) {
				return errors.Wrap(domainerrors.ErrProviderNotFound, "unknown provider")
			}

			return errors.Wrap(err, "failed to find provider")
		}

		if err := providerRepo.UpdateWorkingHours(ctx, id, hours); err != nil {
			return errors.Wrap(err, "failed to update working hours")
		}

		existing.WorkingHours = hours
		provider = existing

		return nil
	})
	if err != nil {
		return nil, err
	}

	return provider, nil
}
