package mongodb_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pilab-dev/reelsync/domain"
	"github.com/pilab-dev/reelsync/mongodb"
	"github.com/pilab-dev/reelsync/mongodb/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func setupRemoteStore(t *testing.T) (*mongodb.RemoteStore, context.Context) {
	t.Helper()

	db := testutil.SetupTestMongoDB(t, "test_reelsync")
	ctx := context.Background()

	store, err := mongodb.NewRemoteStore(ctx, db)
	require.NoError(t, err)

	return store, ctx
}

func at(hhmmss string) time.Time {
	return *domain.ParseTimestamp("2025-01-10 " + hhmmss)
}

func TestRemoteStore_ReadMissingDocument(t *testing.T) {
	store, ctx := setupRemoteStore(t)

	_, err := store.ReadUserDocument(ctx, "nobody")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRemoteStore_EnsureAndMerge(t *testing.T) {
	store, ctx := setupRemoteStore(t)

	require.NoError(t, store.EnsureUserDocument(ctx, "u1"))
	require.NoError(t, store.MergeUserFields(ctx, "u1", domain.ProfileFields{Name: "Ada", Email: "ada@example.com"}))
	require.NoError(t, store.MergeUserFields(ctx, "u1", domain.ProfileFields{Phone: "enc-phone"}))
	require.NoError(t, store.EnsureUserDocument(ctx, "u1"))

	doc, err := store.ReadUserDocument(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", doc.UserID)
	assert.Equal(t, "Ada", doc.Name)
	assert.Equal(t, "ada@example.com", doc.Email)
	assert.Equal(t, "enc-phone", doc.Phone)
	assert.Empty(t, doc.Address)
}

func TestRemoteStore_MalformedFieldsDecodeEmpty(t *testing.T) {
	db := testutil.SetupTestMongoDB(t, "test_reelsync_malformed")
	ctx := context.Background()
	store, err := mongodb.NewRemoteStore(ctx, db)
	require.NoError(t, err)

	_, err = db.Collection(mongodb.UsersCollection).InsertOne(ctx, bson.M{
		"_id":          "u1",
		"name":         42,
		"activity_log": "not-an-array",
	})
	require.NoError(t, err)

	doc, err := store.ReadUserDocument(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, doc.Name)
	assert.Empty(t, doc.ActivityLog)
}

func TestRemoteStore_SessionLogLifecycle(t *testing.T) {
	store, ctx := setupRemoteStore(t)
	login := at("09:00:00")

	require.NoError(t, store.AppendOrUpdateSessionLog(ctx, "u1", login, nil, domain.ProfileFields{Name: "Ada"}))
	require.NoError(t, store.AppendOrUpdateSessionLog(ctx, "u1", login, nil, domain.ProfileFields{}))

	doc, err := store.ReadUserDocument(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, doc.ActivityLog, 1)
	assert.True(t, doc.ActivityLog[0].IsOpen())
	assert.Equal(t, "Ada", doc.Name)

	logout := at("09:30:00")
	require.NoError(t, store.AppendOrUpdateSessionLog(ctx, "u1", login, &logout, domain.ProfileFields{}))

	doc, err = store.ReadUserDocument(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, doc.ActivityLog, 1)
	require.NotNil(t, doc.ActivityLog[0].Logout)
	assert.True(t, logout.Equal(*doc.ActivityLog[0].Logout))
}

func TestRemoteStore_ConcurrentSessionLogWrites(t *testing.T) {
	store, ctx := setupRemoteStore(t)
	require.NoError(t, store.EnsureUserDocument(ctx, "u1"))

	logins := []time.Time{at("09:00:00"), at("10:00:00"), at("11:00:00")}

	var wg sync.WaitGroup
	for _, l := range logins {
		wg.Add(1)
		go func(login time.Time) {
			defer wg.Done()
			assert.NoError(t, store.AppendOrUpdateSessionLog(ctx, "u1", login, nil, domain.ProfileFields{}))
		}(l)
	}
	wg.Wait()

	doc, err := store.ReadUserDocument(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, doc.ActivityLog, len(logins), "no appended entry is lost")
}

func TestRemoteStore_FavoriteDocuments(t *testing.T) {
	store, ctx := setupRemoteStore(t)

	fav := domain.Favorite{UserID: "u1", MovieID: "m1", Poster: "/p.jpg", Title: "Heat"}
	require.NoError(t, store.UpsertFavoriteDocument(ctx, fav))
	require.NoError(t, store.UpsertFavoriteDocument(ctx, fav))
	require.NoError(t, store.UpsertFavoriteDocument(ctx, domain.Favorite{UserID: "u2", MovieID: "m1"}))

	favs, err := store.ListFavoriteDocuments(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, favs, 1)
	assert.Equal(t, fav, favs[0])

	require.NoError(t, store.DeleteFavoriteDocument(ctx, "u1", "m1"))
	require.NoError(t, store.DeleteFavoriteDocument(ctx, "u1", "m1"))

	favs, err = store.ListFavoriteDocuments(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, favs)
}
