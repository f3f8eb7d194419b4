// Package notify fans committed local favorites mutations out to listeners.
package notify

import (
	"sync"

	"github.com/pilab-dev/reelsync/domain"
)

// Listener observes favorites mutations. Callbacks run synchronously on the
// goroutine that committed the mutation and must not block.
type Listener interface {
	OnFavoriteAdded(evt domain.FavoriteEvent)
	OnFavoriteRemoved(evt domain.FavoriteEvent)
}

// ListenerFuncs adapts plain functions to Listener. Nil funcs are skipped.
type ListenerFuncs struct {
	Added   func(evt domain.FavoriteEvent)
	Removed func(evt domain.FavoriteEvent)
}

func (f ListenerFuncs) OnFavoriteAdded(evt domain.FavoriteEvent) {
	if f.Added != nil {
		f.Added(evt)
	}
}

func (f ListenerFuncs) OnFavoriteRemoved(evt domain.FavoriteEvent) {
	if f.Removed != nil {
		f.Removed(evt)
	}
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	n        *Notifier
	listener Listener
}

// Unsubscribe stops delivery to the listener. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.n.remove(s)
}

// Notifier delivers each event once to every subscriber, in subscription order.
type Notifier struct {
	mu   sync.RWMutex
	subs []*Subscription
}

// New returns a notifier with no subscribers.
func New() *Notifier {
	return &Notifier{}
}

// Subscribe appends l to the delivery list.
func (n *Notifier) Subscribe(l Listener) *Subscription {
	sub := &Subscription{n: n, listener: l}

	n.mu.Lock()
	n.subs = append(n.subs, sub)
	n.mu.Unlock()

	return sub
}

// Replace drops every existing subscription and subscribes l alone, giving
// last-registration-wins behaviour.
func (n *Notifier) Replace(l Listener) *Subscription {
	sub := &Subscription{n: n, listener: l}

	n.mu.Lock()
	n.subs = []*Subscription{sub}
	n.mu.Unlock()

	return sub
}

// Len returns the number of active subscriptions.
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subs)
}

func (n *Notifier) remove(sub *Subscription) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for i, s := range n.subs {
		if s == sub {
			n.subs = append(n.subs[:i:i], n.subs[i+1:]...)
			return
		}
	}
}

// Publish implements domain.FavoriteEventPublisher.
func (n *Notifier) Publish(evt domain.FavoriteEvent) {
	n.mu.RLock()
	subs := append([]*Subscription(nil), n.subs...)
	n.mu.RUnlock()

	for _, s := range subs {
		switch evt.Kind {
		case domain.FavoriteAdded:
			s.listener.OnFavoriteAdded(evt)
		case domain.FavoriteRemoved:
			s.listener.OnFavoriteRemoved(evt)
		}
	}
}

// NotifyAdded publishes an Added event for fav.
func (n *Notifier) NotifyAdded(fav domain.Favorite) {
	n.Publish(domain.NewFavoriteEvent(domain.FavoriteAdded, fav))
}

// NotifyRemoved publishes a Removed event for the pair.
func (n *Notifier) NotifyRemoved(userKey, movieKey string) {
	n.Publish(domain.NewFavoriteEvent(domain.FavoriteRemoved, domain.Favorite{UserID: userKey, MovieID: movieKey}))
}

var _ domain.FavoriteEventPublisher = (*Notifier)(nil)
