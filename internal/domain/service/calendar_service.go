// Package service declares the external capabilities the engine consumes.
// Implementations live under internal/infra and are injected at process start.
package service

import (
	"context"
	"time"

	"clinicbook/internal/domain/schedule"

	"github.com/pkg/errors"
)

// Sentinel errors for the external calendar adapter. Callers distinguish
// recoverable adapter outages from credential failures with errors.Is.
var (
	// ErrAdapterUnavailable is returned when the external calendar is
	// unreachable, erroring or timed out.
	ErrAdapterUnavailable = errors.New("external calendar unavailable")

	// ErrAuthExchangeFailed is returned when exchanging an authorization code
	// for a token pair fails.
	ErrAuthExchangeFailed = errors.New("authorization code exchange failed")

	// ErrRefreshFailed is returned when the refresh token was revoked or
	// rejected by the calendar provider.
	ErrRefreshFailed = errors.New("token refresh failed")

	// ErrPrimaryCalendarNotFound is returned when the linked account exposes
	// no primary calendar.
	ErrPrimaryCalendarNotFound = errors.New("primary calendar not found")
)

// TokenSet is the delegated-access triple returned by the calendar provider.
// RefreshToken may be empty on refresh responses; the credential lifecycle
// manager keeps the previous one in that case.
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// EventDetails describes a calendar event to mirror into the external calendar.
type EventDetails struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
}

// CalendarService is the capability surface of the external calendar
// provider. Every method that performs I/O is bounded by the context; a
// timeout is reported as ErrAdapterUnavailable, never as success.
type CalendarService interface {
	// BuildAuthorizationURL constructs the user-facing authorization URL with
	// the given CSRF state token. Pure construction, no failure mode.
	BuildAuthorizationURL(state string) string

	// ExchangeCode exchanges a one-time authorization code for a token set.
	ExchangeCode(ctx context.Context, code string) (*TokenSet, error)

	// RefreshTokens obtains a fresh access token using the refresh token.
	RefreshTokens(ctx context.Context, refreshToken string) (*TokenSet, error)

	// PrimaryCalendarID resolves the account's primary calendar identifier.
	PrimaryCalendarID(ctx context.Context, accessToken string) (string, error)

	// FetchBusyIntervals queries the calendar's occupied ranges within
	// [from, to). The returned intervals are not merged.
	FetchBusyIntervals(ctx context.Context, accessToken, calendarID string, from, to time.Time) ([]schedule.Interval, error)

	// InsertEvent mirrors an event into the calendar and returns its external ID.
	InsertEvent(ctx context.Context, accessToken, calendarID string, event EventDetails) (string, error)

	// DeleteEvent removes a mirrored event. An already-deleted event is
	// treated as success.
	DeleteEvent(ctx context.Context, accessToken, calendarID, eventID string) error
}
