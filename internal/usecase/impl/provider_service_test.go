package impl

import (
	"context"
	"testing"
	"time"

	"clinicbook/internal/domain/entity"
	domainerrors "clinicbook/internal/domain/errors"
	"clinicbook/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type providerFixture struct {
	store *memStore
	svc   usecase.ProviderUsecase
}

func newProviderFixture(t *testing.T) *providerFixture {
	t.Helper()

	store := newMemStore()
	providerRepo := &memProviderRepo{store: store}

	svc, err := NewProviderService(newFakeTxManager(store), providerRepo, testConfig(), testLogger())
	require.NoError(t, err)

	return &providerFixture{store: store, svc: svc}
}

func profileInput(name string) *usecase.ProfileInput {
	return &usecase.ProfileInput{
		Name:           name,
		Specialization: "Dermatology",
		Description:    "Walk-ins on Fridays",
		PhoneNumber:    "555-0199",
	}
}

func TestUpsertProfile_CreatesWithDefaultHours(t *testing.T) {
	f := newProviderFixture(t)
	id := uuid.New()

	provider, err := f.svc.UpsertProfile(context.Background(), id, profileInput("Dr. Chen"))

	require.NoError(t, err)
	assert.Equal(t, id, provider.ID)
	assert.Equal(t, "Dr. Chen", provider.Name)
	assert.Equal(t, entity.TimeOfDay{Hour: 9}, provider.WorkingHours.Start)
	assert.Equal(t, entity.TimeOfDay{Hour: 17}, provider.WorkingHours.End)

	stored := f.store.provider(t, id)
	assert.Equal(t, "Dermatology", stored.Specialization)
}

func TestUpsertProfile_UpdatePreservesWorkingHours(t *testing.T) {
	f := newProviderFixture(t)
	id := uuid.New()

	_, err := f.svc.UpsertProfile(context.Background(), id, profileInput("Dr. Chen"))
	require.NoError(t, err)

	_, err = f.svc.UpdateWorkingHours(context.Background(), id, "08:30", "12:00")
	require.NoError(t, err)

	provider, err := f.svc.UpsertProfile(context.Background(), id, profileInput("Dr. Chen-Okafor"))

	require.NoError(t, err)
	assert.Equal(t, "Dr. Chen-Okafor", provider.Name)
	assert.Equal(t, entity.TimeOfDay{Hour: 8, Minute: 30}, provider.WorkingHours.Start,
		"a profile update must not reset the schedule window")

	stored := f.store.provider(t, id)
	assert.Equal(t, "Dr. Chen-Okafor", stored.Name)
	assert.Equal(t, entity.TimeOfDay{Hour: 8, Minute: 30}, stored.WorkingHours.Start)
}

func TestUpsertProfile_UpdatePreservesCredential(t *testing.T) {
	f := newProviderFixture(t)

	provider := &entity.Provider{
		ID:           uuid.New(),
		Name:         "Dr. Osei",
		WorkingHours: entity.WorkingHours{Start: entity.TimeOfDay{Hour: 9}, End: entity.TimeOfDay{Hour: 17}},
		CalendarID:   "primary",
		Credential: &entity.CalendarCredential{
			AccessToken:  "access",
			RefreshToken: "refresh",
			ExpiresAt:    time.Date(2026, 9, 1, 13, 0, 0, 0, time.UTC),
		},
	}
	f.store.addProvider(t, provider)

	_, err := f.svc.UpsertProfile(context.Background(), provider.ID, profileInput("Dr. Osei"))
	require.NoError(t, err)

	stored := f.store.provider(t, provider.ID)
	assert.Equal(t, "primary", stored.CalendarID)
	require.NotNil(t, stored.Credential)
	assert.Equal(t, "refresh", stored.Credential.RefreshToken)
}

func TestUpdateWorkingHours_Valid(t *testing.T) {
	f := newProviderFixture(t)
	id := uuid.New()

	_, err := f.svc.UpsertProfile(context.Background(), id, profileInput("Dr. Chen"))
	require.NoError(t, err)

	provider, err := f.svc.UpdateWorkingHours(context.Background(), id, "10:00", "18:30")

	require.NoError(t, err)
	assert.Equal(t, entity.TimeOfDay{Hour: 10}, provider.WorkingHours.Start)
	assert.Equal(t, entity.TimeOfDay{Hour: 18, Minute: 30}, provider.WorkingHours.End)

	stored := f.store.provider(t, id)
	assert.Equal(t, entity.TimeOfDay{Hour: 18, Minute: 30}, stored.WorkingHours.End)
}

func TestUpdateWorkingHours_RejectsMalformedTime(t *testing.T) {
	f := newProviderFixture(t)
	id := uuid.New()

	_, err := f.svc.UpsertProfile(context.Background(), id, profileInput("Dr. Chen"))
	require.NoError(t, err)

	for _, tc := range []struct{ start, end string }{
		{"9am", "17:00"},
		{"09:00", "25:00"},
		{"09:60", "17:00"},
		{"", "17:00"},
	} {
		_, err := f.svc.UpdateWorkingHours(context.Background(), id, tc.start, tc.end)
		require.Error(t, err, "%s-%s", tc.start, tc.end)
		assert.True(t, errors.Is(err, domainerrors.ErrValidation))
	}
}

func TestUpdateWorkingHours_RejectsInvertedWindow(t *testing.T) {
	f := newProviderFixture(t)
	id := uuid.New()

	_, err := f.svc.UpsertProfile(context.Background(), id, profileInput("Dr. Chen"))
	require.NoError(t, err)

	_, err = f.svc.UpdateWorkingHours(context.Background(), id, "17:00", "09:00")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrValidation))

	_, err = f.svc.UpdateWorkingHours(context.Background(), id, "09:00", "09:00")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrValidation), "zero-width window is not bookable")
}

func TestUpdateWorkingHours_UnknownProvider(t *testing.T) {
	f := newProviderFixture(t)

	_, err := f.svc.UpdateWorkingHours(context.Background(), uuid.New(), "09:00", "17:00")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrProviderNotFound))
}

func TestGetProvider(t *testing.T) {
	f := newProviderFixture(t)
	id := uuid.New()

	_, err := f.svc.UpsertProfile(context.Background(), id, profileInput("Dr. Chen"))
	require.NoError(t, err)

	provider, err := f.svc.GetProvider(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Dr. Chen", provider.Name)

	_, err = f.svc.GetProvider(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrProviderNotFound))
}

func TestListProviders(t *testing.T) {
	f := newProviderFixture(t)

	providers, err := f.svc.ListProviders(context.Background())
	require.NoError(t, err)
	assert.Empty(t, providers)

	for _, name := range []string{"Dr. Chen", "Dr. Osei"} {
		_, err := f.svc.UpsertProfile(context.Background(), uuid.New(), profileInput(name))
		require.NoError(t, err)
	}

	providers, err = f.svc.ListProviders(context.Background())
	require.NoError(t, err)
	assert.Len(t, providers, 2)
}
