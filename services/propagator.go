package services

import (
	"context"
	"sync"

	"github.com/pilab-dev/reelsync/domain"
	"github.com/pilab-dev/reelsync/internal/metrics"
	"github.com/pilab-dev/reelsync/log"
	"github.com/pilab-dev/reelsync/notify"
)

// DefaultQueueSize bounds the events waiting to be mirrored.
const DefaultQueueSize = 256

// Propagator mirrors each committed local favorites mutation to the remote
// store. Events are consumed by a single worker in arrival order. Remote
// failures are logged and counted but not retried; startup reconciliation is
// the repair path.
type Propagator struct {
	remote  domain.RemoteStore
	logger  log.Logger
	metrics *metrics.Metrics

	mu     sync.RWMutex
	closed bool
	events chan domain.FavoriteEvent
	sub    *notify.Subscription
	done   chan struct{}
}

// NewPropagator subscribes to n. Call Run to start mirroring.
func NewPropagator(
	n *notify.Notifier,
	remote domain.RemoteStore,
	queueSize int,
	logger log.Logger,
	m *metrics.Metrics,
) *Propagator {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	p := &Propagator{
		remote:  remote,
		logger:  logger.With(log.Fields{"component": "propagator"}),
		metrics: m,
		events:  make(chan domain.FavoriteEvent, queueSize),
		done:    make(chan struct{}),
	}
	p.sub = n.Subscribe(p)

	return p
}

func (p *Propagator) OnFavoriteAdded(evt domain.FavoriteEvent)   { p.enqueue(evt) }
func (p *Propagator) OnFavoriteRemoved(evt domain.FavoriteEvent) { p.enqueue(evt) }

// enqueue never blocks the committing caller. A full queue drops the event.
func (p *Propagator) enqueue(evt domain.FavoriteEvent) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return
	}

	select {
	case p.events <- evt:
	default:
		p.metrics.PropagationDropped.Inc()
		p.logger.Warn(context.Background(), "Propagation queue full, dropping event", log.Fields{
			"event_id": evt.ID,
			"kind":     string(evt.Kind),
			"user_id":  evt.Favorite.UserID,
			"movie_id": evt.Favorite.MovieID,
		})
	}
}

// Run consumes events until Close drains the queue or ctx is cancelled.
func (p *Propagator) Run(ctx context.Context) {
	defer close(p.done)

	for {
		select {
		case evt, ok := <-p.events:
			if !ok {
				return
			}
			p.push(ctx, evt)
		case <-ctx.Done():
			return
		}
	}
}

func (p *Propagator) push(ctx context.Context, evt domain.FavoriteEvent) {
	var (
		op  string
		err error
	)

	switch evt.Kind {
	case domain.FavoriteAdded:
		op = metrics.OpUpsertFavorite
		err = p.remote.UpsertFavoriteDocument(ctx, evt.Favorite)
	case domain.FavoriteRemoved:
		op = metrics.OpDeleteFavorite
		err = p.remote.DeleteFavoriteDocument(ctx, evt.Favorite.UserID, evt.Favorite.MovieID)
	default:
		return
	}

	fields := log.Fields{
		"event_id": evt.ID,
		"op":       op,
		"user_id":  evt.Favorite.UserID,
		"movie_id": evt.Favorite.MovieID,
	}
	if err != nil {
		p.metrics.RemoteFailures.WithLabelValues(op).Inc()
		p.logger.Error(ctx, "Failed to mirror favorite", err, fields)
		return
	}

	p.metrics.FavoritesPushed.WithLabelValues(op).Inc()
	p.logger.Debug(ctx, "Favorite mirrored", fields)
}

// Close unsubscribes and waits for queued events to be pushed. It returns
// ctx.Err() if the queue is not drained before ctx ends. Run must have been
// started.
func (p *Propagator) Close(ctx context.Context) error {
	p.sub.Unsubscribe()

	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.events)
	}
	p.mu.Unlock()

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ notify.Listener = (*Propagator)(nil)
