// Package metrics holds the Prometheus counters of the sync engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// Operation labels for remote calls.
const (
	OpUpsertFavorite = "upsert_favorite"
	OpDeleteFavorite = "delete_favorite"
	OpSessionLog     = "session_log"
	OpMergeFields    = "merge_fields"
	OpReadUser       = "read_user"
	OpEnsureUser     = "ensure_user"
	OpListFavorites  = "list_favorites"
)

// Metrics is the set of engine counters.
type Metrics struct {
	FavoritesPushed    *prometheus.CounterVec
	RemoteFailures     *prometheus.CounterVec
	Reconciliations    *prometheus.CounterVec
	SessionLogMerges   prometheus.Counter
	PropagationDropped prometheus.Counter
}

// New creates the counters and registers them on reg. A nil reg leaves them
// unregistered, which is what tests want.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FavoritesPushed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reelsync_favorites_pushed_total",
			Help: "Favorites mutations mirrored to the remote store.",
		}, []string{"op"}),
		RemoteFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reelsync_remote_failures_total",
			Help: "Failed remote store calls.",
		}, []string{"op"}),
		Reconciliations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reelsync_reconciliations_total",
			Help: "Startup favorites reconciliations by outcome.",
		}, []string{"outcome"}),
		SessionLogMerges: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reelsync_session_log_merges_total",
			Help: "Successful session log merges.",
		}),
		PropagationDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reelsync_propagation_dropped_total",
			Help: "Favorites events dropped because the propagation queue was full.",
		}),
	}

	if reg == nil {
		return m
	}

	for name, c := range map[string]prometheus.Collector{
		"FavoritesPushed":    m.FavoritesPushed,
		"RemoteFailures":     m.RemoteFailures,
		"Reconciliations":    m.Reconciliations,
		"SessionLogMerges":   m.SessionLogMerges,
		"PropagationDropped": m.PropagationDropped,
	} {
		if err := reg.Register(c); err != nil {
			log.Warn().Err(err).Str("metric", name).Msg("Failed to register metric")
		}
	}
	log.Info().Msg("Custom Prometheus metrics registered.")

	return m
}
