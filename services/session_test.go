package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pilab-dev/reelsync/domain"
	"github.com/pilab-dev/reelsync/internal/crypto"
	"github.com/pilab-dev/reelsync/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T, f *fixture, clock Clock, cipher crypto.FieldCipher) *Session {
	t.Helper()

	s, err := NewSession(SessionConfig{
		Local:    f.local,
		Remote:   f.remote,
		Notifier: f.notifier,
		Guard:    f.guard,
		Cipher:   cipher,
		Clock:    clock,
		Logger:   f.logger,
		Metrics:  f.metrics,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Close(ctx)
	})

	return s
}

func wait(t *testing.T, ch <-chan error) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("background task did not finish")
		return nil
	}
}

var ada = domain.Identity{
	UserKey:     "google:ada",
	Provider:    domain.ProviderGoogle,
	DisplayName: "Ada",
	Email:       "ada@example.com",
	AvatarURL:   "https://img/ada.png",
}

func TestNewSession_RequiresDependencies(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		cfg  SessionConfig
	}{
		{name: "local", cfg: SessionConfig{Remote: f.remote, Notifier: f.notifier, Guard: f.guard}},
		{name: "remote", cfg: SessionConfig{Local: f.local, Notifier: f.notifier, Guard: f.guard}},
		{name: "notifier", cfg: SessionConfig{Local: f.local, Remote: f.remote, Guard: f.guard}},
		{name: "guard", cfg: SessionConfig{Local: f.local, Remote: f.remote, Notifier: f.notifier}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSession(tt.cfg)
			assert.ErrorContains(t, err, tt.name)
			assert.Nil(t, s)
		})
	}
}

func TestSession_LoginSeedsNewUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	clock := newStepClock()
	s := newTestSession(t, f, clock, nil)

	require.NoError(t, s.Login(ctx, ada))
	assert.Equal(t, "google:ada", s.UserKey())

	u, err := f.local.GetUser(ctx, "google:ada")
	require.NoError(t, err)
	assert.Equal(t, "Ada", u.Name)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.Equal(t, domain.URLAvatar("https://img/ada.png"), u.Image)
	require.NotNil(t, u.LoginTime)

	remote, err := f.remote.ReadUserDocument(ctx, "google:ada")
	require.NoError(t, err)
	assert.Equal(t, "Ada", remote.Name)
	assert.Equal(t, "https://img/ada.png", remote.Image)
	require.Len(t, remote.ActivityLog, 1)
	assert.Equal(t, *u.LoginTime, remote.ActivityLog[0].Login)
	assert.True(t, remote.ActivityLog[0].IsOpen())
}

func TestSession_LoginRestoresKnownUserOnNewDevice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	prev := *domain.ParseTimestamp("2025-01-01 08:00:00")
	require.NoError(t, f.remote.AppendOrUpdateSessionLog(ctx, "u2", prev, domain.ParseTimestamp("2025-01-01 09:00:00"),
		domain.ProfileFields{Name: "Remote Name", Email: "u2@example.com"}))
	require.NoError(t, f.remote.UpsertFavoriteDocument(ctx, domain.Favorite{UserID: "u2", MovieID: "tt1", Title: "A"}))
	require.NoError(t, f.remote.UpsertFavoriteDocument(ctx, domain.Favorite{UserID: "u2", MovieID: "tt2", Title: "B"}))

	s := newTestSession(t, f, newStepClock(), nil)

	require.NoError(t, s.Login(ctx, domain.Identity{UserKey: "u2", Provider: domain.ProviderPassword}))

	u, err := f.local.GetUser(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, "Remote Name", u.Name, "remote profile wins over the default seed name")

	require.NoError(t, wait(t, s.SyncAtStartup(ctx)))

	favs, err := s.Favorites().ListFavorites(ctx, "u2")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"tt1", "tt2"}, favoriteIDs(favs))

	remote, err := f.remote.ReadUserDocument(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, remote.ActivityLog, 2)
	assert.Equal(t, 1, domain.OpenSessionCount(remote.ActivityLog))
}

func TestSession_LoginFillsEmptyProfileFromIdentity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// A bare document left behind when the first profile push never landed.
	require.NoError(t, f.remote.EnsureUserDocument(ctx, ada.UserKey))

	s := newTestSession(t, f, newStepClock(), nil)
	require.NoError(t, s.Login(ctx, ada))

	u, err := f.local.GetUser(ctx, ada.UserKey)
	require.NoError(t, err)
	assert.Equal(t, "Ada", u.Name)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.Equal(t, domain.URLAvatar("https://img/ada.png"), u.Image)
	require.NotNil(t, u.LoginTime)

	remote, err := f.remote.ReadUserDocument(ctx, ada.UserKey)
	require.NoError(t, err)
	assert.Equal(t, "Ada", remote.Name)
	assert.Equal(t, "ada@example.com", remote.Email)
	assert.Equal(t, "https://img/ada.png", remote.Image)
}

func TestSession_LoginKeepsExistingProfileFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.local.UpsertUser(ctx, domain.UserUpdate{
		ID:    ada.UserKey,
		Name:  domain.Ptr("Countess"),
		Email: domain.Ptr("countess@example.com"),
		Image: domain.Ptr(domain.InlineAvatar([]byte{1, 2, 3})),
	}))

	s := newTestSession(t, f, newStepClock(), nil)
	require.NoError(t, s.Login(ctx, ada))

	u, err := f.local.GetUser(ctx, ada.UserKey)
	require.NoError(t, err)
	assert.Equal(t, "Countess", u.Name)
	assert.Equal(t, "countess@example.com", u.Email)
	assert.Equal(t, domain.InlineAvatar([]byte{1, 2, 3}), u.Image)
	assert.Zero(t, f.remote.Calls(memstore.OpMergeFields))
}

func TestSession_AddingTwiceUpsertsRemoteOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := newTestSession(t, f, newStepClock(), nil)
	require.NoError(t, s.Login(ctx, ada))

	fav := domain.Favorite{UserID: ada.UserKey, MovieID: "tt1", Title: "Matrix"}
	added, err := s.Favorites().AddFavorite(ctx, fav)
	require.NoError(t, err)
	assert.True(t, added)
	added, err = s.Favorites().AddFavorite(ctx, fav)
	require.NoError(t, err)
	assert.False(t, added)

	require.NoError(t, s.Close(ctx))

	assert.Equal(t, 1, f.remote.Calls(memstore.OpUpsertFavorite))
	remoteFavs, err := f.remote.ListFavoriteDocuments(ctx, ada.UserKey)
	require.NoError(t, err)
	assert.Equal(t, []domain.Favorite{fav}, remoteFavs)
}

func TestSession_StartupPushesLocalFavorites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Written before the engine was listening, e.g. by a previous offline run.
	f.seedUser(t, "u1")
	tt1 := domain.Favorite{UserID: "u1", MovieID: "tt1", Poster: "p", Title: "Matrix"}
	require.NoError(t, f.local.AddFavorite(ctx, tt1))

	s := newTestSession(t, f, newStepClock(), nil)
	require.NoError(t, s.Login(ctx, domain.Identity{UserKey: "u1", Provider: domain.ProviderPassword}))

	outcome, err := s.RunStartupSync(ctx)
	require.NoError(t, err)
	assert.Equal(t, OutcomePushedToRemote, outcome)

	remoteFavs, err := f.remote.ListFavoriteDocuments(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []domain.Favorite{tt1}, remoteFavs)
}

func TestSession_FavoritesArePropagated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := newTestSession(t, f, newStepClock(), nil)
	require.NoError(t, s.Login(ctx, ada))

	added, err := s.Favorites().AddFavorite(ctx, domain.Favorite{UserID: ada.UserKey, MovieID: "tt1"})
	require.NoError(t, err)
	require.True(t, added)
	_, err = s.Favorites().AddFavorite(ctx, domain.Favorite{UserID: ada.UserKey, MovieID: "tt2"})
	require.NoError(t, err)
	_, err = s.Favorites().RemoveFavorite(ctx, ada.UserKey, "tt1")
	require.NoError(t, err)

	require.NoError(t, s.Close(ctx))

	remoteFavs, err := f.remote.ListFavoriteDocuments(ctx, ada.UserKey)
	require.NoError(t, err)
	assert.Equal(t, []string{"tt2"}, favoriteIDs(remoteFavs))
}

func TestSession_BackgroundForegroundCycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	clock := newStepClock()
	s := newTestSession(t, f, clock, nil)

	clock.Set(time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC))
	require.NoError(t, s.Login(ctx, ada))

	clock.Set(time.Date(2025, 1, 10, 9, 30, 0, 0, time.UTC))
	require.NoError(t, wait(t, s.OnBackground(ctx)))

	clock.Set(time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC))
	require.NoError(t, wait(t, s.OnForeground(ctx)))

	remote, err := f.remote.ReadUserDocument(ctx, ada.UserKey)
	require.NoError(t, err)
	require.Len(t, remote.ActivityLog, 2)

	first, second := remote.ActivityLog[0], remote.ActivityLog[1]
	assert.Equal(t, time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC), first.Login)
	require.NotNil(t, first.Logout)
	assert.Equal(t, time.Date(2025, 1, 10, 9, 30, 0, 0, time.UTC), *first.Logout)
	assert.Equal(t, time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC), second.Login)
	assert.True(t, second.IsOpen())
}

func TestSession_LogoutSignsOutEvenWhenRemoteFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := newTestSession(t, f, newStepClock(), nil)
	require.NoError(t, s.Login(ctx, ada))

	outcome, err := s.RunStartupSync(ctx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeBothEmpty, outcome)

	f.remote.FailNext(memstore.OpSessionLog, errors.New("offline"))
	err = s.Logout(ctx)

	assert.ErrorContains(t, err, "offline")
	assert.Empty(t, s.UserKey())

	u, err := f.local.GetUser(ctx, ada.UserKey)
	require.NoError(t, err)
	assert.NotNil(t, u.LogoutTime)

	require.NoError(t, s.Login(ctx, ada))
	outcome, err = s.RunStartupSync(ctx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeBothEmpty, outcome, "reconciliation runs again after sign-out")
}

func TestSession_LoginToleratesRemoteOutage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := newTestSession(t, f, newStepClock(), nil)
	f.remote.FailNext(memstore.OpReadUser, errors.New("offline"))
	f.remote.FailNext(memstore.OpMergeFields, errors.New("offline"))
	f.remote.FailNext(memstore.OpSessionLog, errors.New("offline"))

	require.NoError(t, s.Login(ctx, ada))

	_, err := f.local.GetUser(ctx, ada.UserKey)
	assert.NoError(t, err)
}

func TestSession_EditProfileEncryptsSensitiveFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cipher, err := crypto.NewAEADCipher([]byte("test secret"))
	require.NoError(t, err)
	s := newTestSession(t, f, newStepClock(), cipher)
	require.NoError(t, s.Login(ctx, ada))

	done, err := s.EditProfile(ctx, ProfileEdit{
		Name:    domain.Ptr("Ada L."),
		Phone:   domain.Ptr("+36 1 234 5678"),
		Address: domain.Ptr("1 Main St"),
	})
	require.NoError(t, err)
	require.NoError(t, wait(t, done))

	stored, err := f.local.GetUser(ctx, ada.UserKey)
	require.NoError(t, err)
	assert.NotEqual(t, "+36 1 234 5678", stored.Phone)
	assert.NotEmpty(t, stored.Phone)

	remote, err := f.remote.ReadUserDocument(ctx, ada.UserKey)
	require.NoError(t, err)
	assert.Equal(t, stored.Phone, remote.Phone)
	assert.Equal(t, stored.Address, remote.Address)
	assert.Equal(t, "Ada L.", remote.Name)

	profile, err := s.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "+36 1 234 5678", profile.Phone)
	assert.Equal(t, "1 Main St", profile.Address)
}

func TestSession_ProfileBlanksUndecryptableValues(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cipher, err := crypto.NewAEADCipher([]byte("test secret"))
	require.NoError(t, err)
	s := newTestSession(t, f, newStepClock(), cipher)
	require.NoError(t, s.Login(ctx, ada))
	require.NoError(t, f.local.UpsertUser(ctx, domain.UserUpdate{ID: ada.UserKey, Phone: domain.Ptr("plain-text")}))

	profile, err := s.Profile(ctx)
	require.NoError(t, err)
	assert.Empty(t, profile.Phone)
	assert.Equal(t, "Ada", profile.Name)
}

func TestSession_EditProfileRejectsEmptyEdit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := newTestSession(t, f, newStepClock(), nil)
	require.NoError(t, s.Login(ctx, ada))

	_, err := s.EditProfile(ctx, ProfileEdit{})

	assert.ErrorIs(t, err, domain.ErrNoFieldsToUpdate)
}

func TestSession_RequiresActiveUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := newTestSession(t, f, newStepClock(), nil)

	assert.ErrorIs(t, wait(t, s.OnForeground(ctx)), ErrNoActiveUser)
	assert.ErrorIs(t, wait(t, s.OnBackground(ctx)), ErrNoActiveUser)
	assert.ErrorIs(t, wait(t, s.SyncAtStartup(ctx)), ErrNoActiveUser)
	assert.ErrorIs(t, s.Logout(ctx), ErrNoActiveUser)

	_, err := s.EditProfile(ctx, ProfileEdit{Name: domain.Ptr("x")})
	assert.ErrorIs(t, err, ErrNoActiveUser)

	_, err = s.Profile(ctx)
	assert.ErrorIs(t, err, ErrNoActiveUser)

	assert.ErrorIs(t, s.Login(ctx, domain.Identity{}), domain.ErrInvalidUserKey)
}

func TestSession_ResumesConfiguredUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedUser(t, "u1")

	s, err := NewSession(SessionConfig{
		Local:    f.local,
		Remote:   f.remote,
		Notifier: f.notifier,
		Guard:    f.guard,
		UserKey:  "u1",
	})
	require.NoError(t, err)
	defer s.Close(ctx)

	assert.Equal(t, "u1", s.UserKey())
	require.NoError(t, wait(t, s.OnForeground(ctx)))

	remote, err := f.remote.ReadUserDocument(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, remote.ActivityLog, 1)
}
