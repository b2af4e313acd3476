package impl

import (
	"context"
	"log/slog"
	"sync"
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
)

// linkState is a pending authorization correlation token.
type linkState struct {
	providerID uuid.UUID
	expiresAt  time.Time
}

// calendarLinkService implements the CalendarLinkUsecase interface: the
// one-time bootstrap that connects a provider to their external calendar.
type calendarLinkService struct {
	txManager      repository.TransactionManager
	providerRepo   repository.ProviderRepository
	calendar       service.CalendarService
	clock          service.Clock
	logger         *slog.Logger
	stateTTL       time.Duration
	adapterTimeout time.Duration

	// Pending correlation tokens, single-use with a TTL.
	stateMutex sync.Mutex
	states     map[string]linkState
}

// NewCalendarLinkService is the constructor for calendarLinkService.
func NewCalendarLinkService(
	txManager repository.TransactionManager,
	providerRepo repository.ProviderRepository,
	calendar service.CalendarService,
	clock service.Clock,
	cfg *config.Config,
	logger *slog.Logger,
) usecase.CalendarLinkUsecase {
	return &calendarLinkService{
		txManager:      txManager,
		providerRepo:   providerRepo,
		calendar:       calendar,
		clock:          clock,
		logger:         logger,
		stateTTL:       cfg.Scheduling.LinkStateTTL,
		adapterTimeout: cfg.Scheduling.AdapterTimeout,
		states:         make(map[string]linkState),
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *calendarLinkService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// BeginLink issues a single-use correlation token bound to the provider and
// returns the external authorization URL carrying it.
func (srv *calendarLinkService) BeginLink(ctx context.Context, providerID uuid.UUID) (string, error) {
	if _, err := srv.providerRepo.FindProviderByID(ctx, providerID); err != nil {
		if errors.Is(err, repository.ErrProviderNotFound) {
			return "", errors.Wrap(domainerrors.ErrProviderNotFound, "unknown provider")
		}

		return "", errors.Wrap(err, "failed to find provider")
	}

	state := uuid.NewString()
	srv.storeState(state, providerID)

	return srv.calendar.BuildAuthorizationURL(state), nil
}

// CompleteLink consumes the correlation token, exchanges the authorization
// code and persists the calendar ID with the delegated-access credential.
// Duplicate delivery of the same code fails on the consumed token rather
// than triggering a second exchange.
func (srv *calendarLinkService) CompleteLink(ctx context.Context, state, code string) error {
	providerID, ok := srv.consumeState(state)
	if !ok {
		return errors.Wrap(domainerrors.ErrLinkStateInvalid, "unknown or expired correlation token")
	}

	adapterCtx, cancel := context.WithTimeout(ctx, srv.adapterTimeout)
	defer cancel()

	tokens, err := srv.calendar.ExchangeCode(adapterCtx, code)
	if err != nil {
		srv.log(ctx).Warn("Authorization code exchange failed",
			slog.Any("provider_id", providerID), slog.Any("error", err))

		return errors.Wrap(domainerrors.ErrAuthExchangeFailed, err.Error())
	}

	calendarID, err := srv.primaryCalendarID(ctx, tokens.AccessToken)
	if err != nil {
		return err
	}

	credential := &entity.CalendarCredential{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresAt:    tokens.ExpiresAt,
	}

	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		providerRepo := repoFactory.ProviderRepo()

		if _, err := providerRepo.FindProviderByIDForUpdate(ctx, providerID); err != nil {
			if errors.Is(err, repository.ErrProviderNotFound) {
				return errors.Wrap(domainerrors.ErrProviderNotFound, "unknown provider")
			}

			return errors.Wrap(err, "failed to lock provider")
		}

		return providerRepo.UpdateCredential(ctx, providerID, calendarID, credential)
	})
	if err != nil {
		return errors.Wrap(err, "failed to persist calendar credential")
	}

	srv.log(ctx).Info("External calendar linked",
		slog.Any("provider_id", providerID), slog.String("calendar_id", calendarID))

	return nil
}

func (srv *calendarLinkService) primaryCalendarID(ctx context.Context, accessToken string) (string, error) {
	adapterCtx, cancel := context.WithTimeout(ctx, srv.adapterTimeout)
	defer cancel()

	calendarID, err := srv.calendar.PrimaryCalendarID(adapterCtx, accessToken)
	if err != nil {
		if errors.Is(err, service.ErrPrimaryCalendarNotFound) {
			return "", errors.Wrap(domainerrors.ErrCalendarNotLinked, "account has no primary calendar")
		}

		return "", errors.Wrap(domainerrors.ErrCalendarUnavailable, err.Error())
	}

	return calendarID, nil
}

// storeState records a pending correlation token and sweeps expired ones.
func (srv *calendarLinkService) storeState(state string, providerID uuid.UUID) {
	srv.stateMutex.Lock()
	defer srv.stateMutex.Unlock()

	now := srv.clock.Now()
	for key, pending := range srv.states {
		if now.After(pending.expiresAt) {
			delete(srv.states, key)
		}
	}

	srv.states[state] = linkState{
		providerID: providerID,
		expiresAt:  now.Add(srv.stateTTL),
	}
}

// consumeState removes the token so it cannot be replayed.
func (srv *calendarLinkService) consumeState(state string) (uuid.UUID, bool) {
	srv.stateMutex.Lock()
	defer srv.stateMutex.Unlock()

	pending, ok := srv.states[state]
	if !ok {
		return uuid.Nil, false
	}
	delete(srv.states, state)

	if srv.clock.Now().After(pending.expiresAt) {
		return uuid.Nil, false
	}

	return pending.providerID, true
}
