// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Provider represents a care provider that owns a bookable schedule.
// CalendarID and Credential are only set once the provider has completed
// the external calendar authorization flow.
type Provider struct {
	ID             uuid.UUID           // The unique identifier for the provider.
	Name           string              // Display name shown to patients.
	Specialization string              // Medical specialization, free-form.
	Description    string              // Short profile description.
	PhoneNumber    string              // Contact phone number, opaque to the engine.
	WorkingHours   WorkingHours        // Daily bookable window, wall-clock.
	CalendarID     string              // External calendar identifier; empty until linked.
	Credential     *CalendarCredential // Delegated-access tokens; nil when sync is not active.
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// SyncActive reports whether external calendar sync is enabled for the provider.
// Both a linked calendar and a stored credential are required.
func (p *Provider) SyncActive() bool {
	return p.CalendarID != "" && p.Credential != nil && p.Credential.RefreshToken != ""
}

// CalendarCredential is the delegated-access token pair obtained from the
// external calendar's authorization flow. It is mutated only by the
// credential lifecycle manager.
type CalendarCredential struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time // Absolute instant at which the access token expires.
}

// ExpiresWithin reports whether the access token expires at or before
// now+skew. Used to decide when a pre-emptive refresh is required.
func (c *CalendarCredential) ExpiresWithin(now time.Time, skew time.Duration) bool {
	return !now.Add(skew).Before(c.ExpiresAt)
}

// TimeOfDay is a wall-clock time within a day, minute precision.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses an "HH:mm" string into a TimeOfDay.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var t TimeOfDay
	if _, err := fmt.Sscanf(s, "%02d:%02d", &t.Hour, &t.Minute); err != nil {
		return TimeOfDay{}, errors.Wrapf(err, "invalid time of day %q", s)
	}
	if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 {
		return TimeOfDay{}, errors.Errorf("time of day %q out of range", s)
	}

	return t, nil
}

// String renders the time of day back to "HH:mm".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Minutes returns the offset from midnight in minutes.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

// On anchors the wall-clock time onto the given calendar day, preserving the
// day's location.
func (t TimeOfDay) On(day time.Time) time.Time {
	year, month, d := day.Date()

	return time.Date(year, month, d, t.Hour, t.Minute, 0, 0, day.Location())
}

// WorkingHours is a provider's daily bookable window.
// Invariant: Start < End.
type WorkingHours struct {
	Start TimeOfDay
	End   TimeOfDay
}

// Validate checks the Start < End invariant.
func (w WorkingHours) Validate() error {
	if w.Start.Minutes() >= w.End.Minutes() {
		return errors.Errorf("working hours start %s must be before end %s", w.Start, w.End)
	}

	return nil
}
