// Package google implements the external calendar capability against the
// Google Calendar API. The engine only ever sees the service.CalendarService
// interface; this adapter is constructed once at process start and injected.
package google

import (
	"context"
	"net/http"
	"time"

	"clinicbook/config"
	"clinicbook/internal/domain/schedule"
	"clinicbook/internal/domain/service"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// calendarAdapter talks to Google Calendar using per-call access tokens.
// It holds no per-provider state; credentials are passed in by the engine.
type calendarAdapter struct {
	oauth *oauth2.Config
}

// NewCalendarService is the constructor for the Google Calendar adapter.
func NewCalendarService(cfg *config.Config) service.CalendarService {
	return &calendarAdapter{
		oauth: &oauth2.Config{
			ClientID:     cfg.GoogleCalendar.ClientID,
			ClientSecret: cfg.GoogleCalendar.ClientSecret,
			RedirectURL:  cfg.GoogleCalendar.RedirectURI,
			Scopes:       []string{calendar.CalendarScope},
			Endpoint:     googleoauth.Endpoint,
		},
	}
}

// BuildAuthorizationURL constructs the consent URL. Offline access and the
// forced consent prompt make sure Google returns a refresh token.
func (a *calendarAdapter) BuildAuthorizationURL(state string) string {
	return a.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// ExchangeCode exchanges a one-time authorization code for a token set.
func (a *calendarAdapter) ExchangeCode(ctx context.Context, code string) (*service.TokenSet, error) {
	token, err := a.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, errors.Wrapf(service.ErrAuthExchangeFailed, "exchange: %v", err)
	}

	return toTokenSet(token), nil
}

// RefreshTokens obtains a fresh access token from the stored refresh token.
// Google may or may not rotate the refresh token; the caller keeps the old
// one when the response omits it.
func (a *calendarAdapter) RefreshTokens(ctx context.Context, refreshToken string) (*service.TokenSet, error) {
	source := a.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})

	token, err := source.Token()
	if err != nil {
		return nil, errors.Wrapf(service.ErrRefreshFailed, "refresh: %v", err)
	}

	return toTokenSet(token), nil
}

// PrimaryCalendarID resolves the account's primary calendar.
func (a *calendarAdapter) PrimaryCalendarID(ctx context.Context, accessToken string) (string, error) {
	svc, err := a.client(ctx, accessToken)
	if err != nil {
		return "", err
	}

	list, err := svc.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return "", errors.Wrapf(service.ErrAdapterUnavailable, "calendar list: %v", err)
	}

	for _, item := range list.Items {
		if item.Primary {
			return item.Id, nil
		}
	}

	return "", errors.WithStack(service.ErrPrimaryCalendarNotFound)
}

// FetchBusyIntervals queries the freebusy endpoint for occupied ranges
// within [from, to).
func (a *calendarAdapter) FetchBusyIntervals(ctx context.Context, accessToken, calendarID string, from, to time.Time) ([]schedule.Interval, error) {
	svc, err := a.client(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	resp, err := svc.Freebusy.Query(&calendar.FreeBusyRequest{
		TimeMin: from.UTC().Format(time.RFC3339),
		TimeMax: to.UTC().Format(time.RFC3339),
		Items:   []*calendar.FreeBusyRequestItem{{Id: calendarID}},
	}).Context(ctx).Do()
	if err != nil {
		return nil, errors.Wrapf(service.ErrAdapterUnavailable, "freebusy query: %v", err)
	}

	info, ok := resp.Calendars[calendarID]
	if !ok {
		return nil, nil
	}

	busy := make([]schedule.Interval, 0, len(info.Busy))
	for _, period := range info.Busy {
		start, err := time.Parse(time.RFC3339, period.Start)
		if err != nil {
			continue
		}
		end, err := time.Parse(time.RFC3339, period.End)
		if err != nil {
			continue
		}
		busy = append(busy, schedule.Interval{Start: start.UTC(), End: end.UTC()})
	}

	return busy, nil
}

// InsertEvent mirrors a local appointment into the external calendar.
func (a *calendarAdapter) InsertEvent(ctx context.Context, accessToken, calendarID string, details service.EventDetails) (string, error) {
	svc, err := a.client(ctx, accessToken)
	if err != nil {
		return "", err
	}

	event := &calendar.Event{
		Summary:     details.Summary,
		Description: details.Description,
		Start: &calendar.EventDateTime{
			DateTime: details.Start.UTC().Format(time.RFC3339),
			TimeZone: "UTC",
		},
		End: &calendar.EventDateTime{
			DateTime: details.End.UTC().Format(time.RFC3339),
			TimeZone: "UTC",
		},
		Reminders: &calendar.EventReminders{
			UseDefault: false,
			Overrides: []*calendar.EventReminder{
				{Method: "email", Minutes: 24 * 60},
				{Method: "popup", Minutes: 30},
			},
			ForceSendFields: []string{"UseDefault"},
		},
	}

	created, err := svc.Events.Insert(calendarID, event).Context(ctx).Do()
	if err != nil {
		return "", errors.Wrapf(service.ErrAdapterUnavailable, "event insert: %v", err)
	}

	return created.Id, nil
}

// DeleteEvent removes a mirrored event. Google answering 404 or 410 means
// the event is already gone, which is the outcome we wanted.
func (a *calendarAdapter) DeleteEvent(ctx context.Context, accessToken, calendarID, eventID string) error {
	svc, err := a.client(ctx, accessToken)
	if err != nil {
		return err
	}

	if err := svc.Events.Delete(calendarID, eventID).Context(ctx).Do(); err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && (apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone) {
			return nil
		}

		return errors.Wrapf(service.ErrAdapterUnavailable, "event delete: %v", err)
	}

	return nil
}

// client builds a calendar API client bound to the given access token.
func (a *calendarAdapter) client(ctx context.Context, accessToken string) (*calendar.Service, error) {
	svc, err := calendar.NewService(ctx,
		option.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})))
	if err != nil {
		return nil, errors.Wrapf(service.ErrAdapterUnavailable, "calendar client: %v", err)
	}

	return svc, nil
}

func toTokenSet(token *oauth2.Token) *service.TokenSet {
	return &service.TokenSet{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry.UTC(),
	}
}
