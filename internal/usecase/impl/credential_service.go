// Package impl contains the application-specific business rules implementations.
package impl

import (
	"context"
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
	"golang.org/x/sync/singleflight"
)

// credentialService implements the CredentialUsecase interface. It is the
// only component that mutates a provider's delegated-access credential.
type credentialService struct {
	txManager      repository.TransactionManager
	calendar       service.CalendarService
	clock          service.Clock
	logger         *slog.Logger
	refreshSkew    time.Duration
	adapterTimeout time.Duration

	// refreshGroup collapses concurrent refreshes for the same provider into
	// a single in-flight adapter call; refresh tokens are typically
	// single-use server-side.
	refreshGroup singleflight.Group
}

// NewCredentialService is the constructor for credentialService.
func NewCredentialService(
	txManager repository.TransactionManager,
	calendar service.CalendarService,
	clock service.Clock,
	cfg *config.Config,
	logger *slog.Logger,
) usecase.CredentialUsecase {
	return &credentialService{
		txManager:      txManager,
		calendar:       calendar,
		clock:          clock,
		logger:         logger,
		refreshSkew:    cfg.Scheduling.RefreshSkew,
		adapterTimeout: cfg.Scheduling.AdapterTimeout,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *credentialService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// EnsureFresh guarantees the provider's access token stays valid beyond the
// configured skew. A provider without an active sync yields (nil, nil). On
// refresh failure the stored credential is left untouched and the error is
// surfaced so callers degrade to local-only behavior.
func (srv *credentialService) EnsureFresh(ctx context.Context, provider *entity.Provider) (*entity.CalendarCredential, error) {
	if !provider.SyncActive() {
		return nil, nil
	}

	if !provider.Credential.ExpiresWithin(srv.clock.Now(), srv.refreshSkew) {
		return provider.Credential, nil
	}

	result, err, _ := srv.refreshGroup.Do(provider.ID.String(), func() (any, error) {
		return srv.refresh(ctx, provider.ID)
	})
	if err != nil {
		srv.log(ctx).Warn("Calendar credential refresh failed",
			slog.Any("provider_id", provider.ID), slog.Any("error", err))

		return nil, errors.Wrap(domainerrors.ErrTokenRefreshFailed, err.Error())
	}

	credential := result.(*entity.CalendarCredential)
	provider.Credential = credential

	return credential, nil
}

// refresh exchanges the stored refresh token for a new access token and
// persists the renewed pair before returning. It re-reads the provider so a
// refresh completed by a concurrent request is reused instead of repeated.
func (srv *credentialService) refresh(ctx context.Context, providerID uuid.UUID) (*entity.CalendarCredential, error) {
	var renewed *entity.CalendarCredential

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		providerRepo := repoFactory.ProviderRepo()

		current, err := providerRepo.FindProviderByIDForUpdate(ctx, providerID)
		if err != nil {
			return errors.Wrap(err, "failed to reload provider for refresh")
		}
		if !current.SyncActive() {
			return errors.WithStack(service.ErrRefreshFailed)
		}

		// Another request may have refreshed while we waited for the lock.
		if !current.Credential.ExpiresWithin(srv.clock.Now(), srv.refreshSkew) {
			renewed = current.Credential

			return nil
		}

		adapterCtx, cancel := context.WithTimeout(ctx, srv.adapterTimeout)
		defer cancel()

		tokens, err := srv.calendar.RefreshTokens(adapterCtx, current.Credential.RefreshToken)
		if err != nil {
			return errors.Wrap(err, "refresh call failed")
		}

		refreshToken := tokens.RefreshToken
		if refreshToken == "" {
			// The provider did not rotate the refresh token; never drop it.
			refreshToken = current.Credential.RefreshToken
		}

		renewed = &entity.CalendarCredential{
			AccessToken:  tokens.AccessToken,
			RefreshToken: refreshToken,
			ExpiresAt:    tokens.ExpiresAt,
		}

		return providerRepo.UpdateCredential(ctx, current.ID, current.CalendarID, renewed)
	})
	if err != nil {
		return nil, err
	}

	return renewed, nil
}
