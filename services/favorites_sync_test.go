package services

import (
	"context"
	"errors"
	"testing"

	"github.com/pilab-dev/reelsync/domain"
	"github.com/pilab-dev/reelsync/internal/metrics"
	"github.com/pilab-dev/reelsync/memstore"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newFavoritesSync(f *fixture) *FavoritesSync {
	return NewFavoritesSync(f.local, f.remote, f.guard, f.logger, f.metrics)
}

func TestFavoritesSync_PushesLocalToFreshRemote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedUser(t, "u1")
	matrix := domain.Favorite{UserID: "u1", MovieID: "tt1", Poster: "p", Title: "Matrix"}
	require.NoError(t, f.local.AddFavorite(ctx, matrix))

	outcome, err := newFavoritesSync(f).SyncAtStartup(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, OutcomePushedToRemote, outcome)

	remoteFavs, err := f.remote.ListFavoriteDocuments(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []domain.Favorite{matrix}, remoteFavs)

	_, err = f.remote.ReadUserDocument(ctx, "u1")
	assert.NoError(t, err, "absent remote user document is created first")
}

func TestFavoritesSync_PullsRemoteToEmptyLocal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedUser(t, "u2")
	a := domain.Favorite{UserID: "u2", MovieID: "tt1", Poster: "pa", Title: "A"}
	b := domain.Favorite{UserID: "u2", MovieID: "tt2", Poster: "pb", Title: "B"}
	require.NoError(t, f.remote.UpsertFavoriteDocument(ctx, a))
	require.NoError(t, f.remote.UpsertFavoriteDocument(ctx, b))

	outcome, err := newFavoritesSync(f).SyncAtStartup(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, OutcomePulledToLocal, outcome)

	localFavs, err := f.local.ListFavorites(ctx, "u2")
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.Favorite{a, b}, localFavs)
}

func TestFavoritesSync_NoOpCases(t *testing.T) {
	t.Run("Both Populated", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		f.seedUser(t, "u1")
		require.NoError(t, f.local.AddFavorite(ctx, domain.Favorite{UserID: "u1", MovieID: "local"}))
		require.NoError(t, f.remote.UpsertFavoriteDocument(ctx, domain.Favorite{UserID: "u1", MovieID: "remote"}))

		outcome, err := newFavoritesSync(f).SyncAtStartup(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, OutcomeBothPopulated, outcome)

		localFavs, _ := f.local.ListFavorites(ctx, "u1")
		remoteFavs, _ := f.remote.ListFavoriteDocuments(ctx, "u1")
		assert.Equal(t, []string{"local"}, favoriteIDs(localFavs))
		assert.Equal(t, []string{"remote"}, favoriteIDs(remoteFavs))
	})

	t.Run("Both Empty", func(t *testing.T) {
		f := newFixture(t)
		f.seedUser(t, "u1")

		outcome, err := newFavoritesSync(f).SyncAtStartup(context.Background(), "u1")
		require.NoError(t, err)
		assert.Equal(t, OutcomeBothEmpty, outcome)
		assert.Equal(t, 0, f.remote.Calls(memstore.OpUpsertFavorite))
	})
}

func TestFavoritesSync_RunsOncePerSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedUser(t, "u1")
	s := newFavoritesSync(f)

	first, err := s.SyncAtStartup(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeBothEmpty, first)

	second, err := s.SyncAtStartup(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, second)
	assert.Equal(t, 1, f.remote.Calls(memstore.OpListFavorites))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Reconciliations.WithLabelValues(string(OutcomeSkipped))))
}

func TestFavoritesSync_PerItemPushFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedUser(t, "u1")
	require.NoError(t, f.local.AddFavorite(ctx, domain.Favorite{UserID: "u1", MovieID: "m1"}))
	require.NoError(t, f.local.AddFavorite(ctx, domain.Favorite{UserID: "u1", MovieID: "m2"}))
	f.remote.FailNext(memstore.OpUpsertFavorite, errors.New("unavailable"))

	outcome, err := newFavoritesSync(f).SyncAtStartup(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, OutcomePushedToRemote, outcome)

	remoteFavs, _ := f.remote.ListFavoriteDocuments(ctx, "u1")
	assert.Equal(t, []string{"m2"}, favoriteIDs(remoteFavs))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RemoteFailures.WithLabelValues(metrics.OpUpsertFavorite)))
}

func TestFavoritesSync_RemoteFailureReleasesGuard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedUser(t, "u1")
	s := newFavoritesSync(f)
	f.remote.FailNext(memstore.OpListFavorites, errors.New("offline"))

	_, err := s.SyncAtStartup(ctx, "u1")
	require.Error(t, err)

	outcome, err := s.SyncAtStartup(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeBothEmpty, outcome)
}

func TestFavoritesSync_RemoteReadError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedUser(t, "u1")

	remote := new(MockRemoteStore)
	remote.On("ReadUserDocument", mock.Anything, "u1").Return(nil, errors.New("permission denied")).Once()

	s := NewFavoritesSync(f.local, remote, f.guard, f.logger, f.metrics)

	_, err := s.SyncAtStartup(ctx, "u1")
	assert.ErrorContains(t, err, "permission denied")
	remote.AssertExpectations(t)
	remote.AssertNotCalled(t, "EnsureUserDocument", mock.Anything, mock.Anything)
}

func TestFavoritesSync_EmptyUserKey(t *testing.T) {
	f := newFixture(t)

	_, err := newFavoritesSync(f).SyncAtStartup(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidUserKey)
}
