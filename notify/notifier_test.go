package notify_test

import (
	"testing"

	"github.com/pilab-dev/reelsync/domain"
	"github.com/pilab-dev/reelsync/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recorder(name string, out *[]string) notify.ListenerFuncs {
	return notify.ListenerFuncs{
		Added:   func(evt domain.FavoriteEvent) { *out = append(*out, name+":added:"+evt.Favorite.MovieID) },
		Removed: func(evt domain.FavoriteEvent) { *out = append(*out, name+":removed:"+evt.Favorite.MovieID) },
	}
}

func TestNotifier_DeliversInSubscriptionOrder(t *testing.T) {
	n := notify.New()
	var got []string

	n.Subscribe(recorder("a", &got))
	n.Subscribe(recorder("b", &got))

	n.NotifyAdded(domain.Favorite{UserID: "u1", MovieID: "m1"})
	n.NotifyRemoved("u1", "m1")

	assert.Equal(t, []string{"a:added:m1", "b:added:m1", "a:removed:m1", "b:removed:m1"}, got)
}

func TestNotifier_Unsubscribe(t *testing.T) {
	n := notify.New()
	var got []string

	sub := n.Subscribe(recorder("a", &got))
	n.Subscribe(recorder("b", &got))

	sub.Unsubscribe()
	sub.Unsubscribe()
	require.Equal(t, 1, n.Len())

	n.NotifyAdded(domain.Favorite{UserID: "u1", MovieID: "m1"})
	assert.Equal(t, []string{"b:added:m1"}, got)
}

func TestNotifier_NoSubscribersIsNoop(t *testing.T) {
	n := notify.New()

	assert.NotPanics(t, func() {
		n.NotifyAdded(domain.Favorite{UserID: "u1", MovieID: "m1"})
		n.Publish(domain.FavoriteEvent{Kind: "unknown"})
	})
}

func TestNotifier_ReplaceIsLastRegistrationWins(t *testing.T) {
	n := notify.New()
	var got []string

	first := n.Subscribe(recorder("a", &got))
	n.Replace(recorder("b", &got))
	first.Unsubscribe()

	n.NotifyAdded(domain.Favorite{UserID: "u1", MovieID: "m1"})

	assert.Equal(t, []string{"b:added:m1"}, got)
	assert.Equal(t, 1, n.Len())
}

func TestNotifier_EventsCarryIDs(t *testing.T) {
	n := notify.New()
	var ids []string
	n.Subscribe(notify.ListenerFuncs{Added: func(evt domain.FavoriteEvent) { ids = append(ids, evt.ID) }})

	n.NotifyAdded(domain.Favorite{UserID: "u1", MovieID: "m1"})
	n.NotifyAdded(domain.Favorite{UserID: "u1", MovieID: "m1"})

	require.Len(t, ids, 2)
	assert.NotEqual(t, ids[0], ids[1])
}
