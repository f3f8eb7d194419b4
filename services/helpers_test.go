package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/pilab-dev/reelsync/cache"
	"github.com/pilab-dev/reelsync/domain"
	"github.com/pilab-dev/reelsync/internal/metrics"
	"github.com/pilab-dev/reelsync/log"
	"github.com/pilab-dev/reelsync/memstore"
	"github.com/pilab-dev/reelsync/notify"
	"github.com/pilab-dev/reelsync/sqlite"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	local    *sqlite.LocalStore
	remote   *memstore.Store
	notifier *notify.Notifier
	guard    *cache.MemoryGuard
	metrics  *metrics.Metrics
	logger   log.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "local.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	guard := cache.NewMemoryGuard(time.Hour)
	t.Cleanup(guard.Stop)

	n := notify.New()

	return &fixture{
		local:    sqlite.NewLocalStore(db, n),
		remote:   memstore.New(),
		notifier: n,
		guard:    guard,
		metrics:  metrics.New(nil),
		logger:   log.NewNop(),
	}
}

func (f *fixture) seedUser(t *testing.T, key string) {
	t.Helper()
	require.NoError(t, f.local.UpsertUser(context.Background(), domain.UserUpdate{ID: key, Name: domain.Ptr("User " + key)}))
}

// stepClock advances by step on every read.
type stepClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC), step: time.Minute}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(c.step)
	return c.now
}

func (c *stepClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t.Add(-c.step)
}

func favoriteIDs(favs []domain.Favorite) []string {
	ids := make([]string, 0, len(favs))
	for _, f := range favs {
		ids = append(ids, f.MovieID)
	}
	return ids
}

// --- Mock Implementations ---

type MockRemoteStore struct {
	mock.Mock
}

func (m *MockRemoteStore) ReadUserDocument(ctx context.Context, userKey string) (*domain.RemoteUser, error) {
	args := m.Called(ctx, userKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RemoteUser), args.Error(1)
}

func (m *MockRemoteStore) EnsureUserDocument(ctx context.Context, userKey string) error {
	return m.Called(ctx, userKey).Error(0)
}

func (m *MockRemoteStore) MergeUserFields(ctx context.Context, userKey string, fields domain.ProfileFields) error {
	return m.Called(ctx, userKey, fields).Error(0)
}

func (m *MockRemoteStore) AppendOrUpdateSessionLog(ctx context.Context, userKey string, login time.Time, logout *time.Time, extra domain.ProfileFields) error {
	return m.Called(ctx, userKey, login, logout, extra).Error(0)
}

func (m *MockRemoteStore) ListFavoriteDocuments(ctx context.Context, userKey string) ([]domain.Favorite, error) {
	args := m.Called(ctx, userKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Favorite), args.Error(1)
}

func (m *MockRemoteStore) UpsertFavoriteDocument(ctx context.Context, fav domain.Favorite) error {
	return m.Called(ctx, fav).Error(0)
}

func (m *MockRemoteStore) DeleteFavoriteDocument(ctx context.Context, userKey, movieKey string) error {
	return m.Called(ctx, userKey, movieKey).Error(0)
}

type MockFavoriteStore struct {
	mock.Mock
}

func (m *MockFavoriteStore) AddFavorite(ctx context.Context, fav domain.Favorite) error {
	return m.Called(ctx, fav).Error(0)
}

func (m *MockFavoriteStore) RemoveFavorite(ctx context.Context, userKey, movieKey string) (int64, error) {
	args := m.Called(ctx, userKey, movieKey)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockFavoriteStore) ListFavorites(ctx context.Context, userKey string) ([]domain.Favorite, error) {
	args := m.Called(ctx, userKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Favorite), args.Error(1)
}

func (m *MockFavoriteStore) IsFavorite(ctx context.Context, userKey, movieKey string) (bool, error) {
	args := m.Called(ctx, userKey, movieKey)
	return args.Bool(0), args.Error(1)
}

var (
	_ domain.RemoteStore   = (*MockRemoteStore)(nil)
	_ domain.FavoriteStore = (*MockFavoriteStore)(nil)
)
