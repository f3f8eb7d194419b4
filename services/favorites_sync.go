package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/pilab-dev/reelsync/cache"
	"github.com/pilab-dev/reelsync/domain"
	"github.com/pilab-dev/reelsync/internal/metrics"
	"github.com/pilab-dev/reelsync/log"
	"github.com/pilab-dev/reelsync/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ReconcileOutcome reports what a startup reconciliation did.
type ReconcileOutcome string

const (
	OutcomePulledToLocal  ReconcileOutcome = "pulled_to_local"
	OutcomePushedToRemote ReconcileOutcome = "pushed_to_remote"
	OutcomeBothPopulated  ReconcileOutcome = "both_populated"
	OutcomeBothEmpty      ReconcileOutcome = "both_empty"
	OutcomeSkipped        ReconcileOutcome = "skipped"
)

// FavoritesSync repairs the empty-versus-populated divergence between the
// local and remote favorites once per session. Divergent non-empty sets are
// left alone.
type FavoritesSync struct {
	local   domain.LocalStore
	remote  domain.RemoteStore
	guard   cache.ReconcileGuard
	logger  log.Logger
	metrics *metrics.Metrics
}

func NewFavoritesSync(
	local domain.LocalStore,
	remote domain.RemoteStore,
	guard cache.ReconcileGuard,
	logger log.Logger,
	m *metrics.Metrics,
) *FavoritesSync {
	return &FavoritesSync{
		local:   local,
		remote:  remote,
		guard:   guard,
		logger:  logger.With(log.Fields{"component": "favorites_sync"}),
		metrics: m,
	}
}

// SyncAtStartup runs the reconciliation unless it already ran for userKey in
// this session. A failed run releases the mark so it can be attempted again.
func (s *FavoritesSync) SyncAtStartup(ctx context.Context, userKey string) (ReconcileOutcome, error) {
	ctx, span := tracing.Tracer.Start(ctx, "FavoritesSync.SyncAtStartup",
		trace.WithAttributes(attribute.String("user_id", userKey)))
	defer span.End()

	outcome, err := s.syncAtStartup(ctx, userKey)
	if err != nil {
		span.RecordError(err)
	}
	span.SetAttributes(attribute.String("outcome", string(outcome)))

	return outcome, err
}

func (s *FavoritesSync) syncAtStartup(ctx context.Context, userKey string) (ReconcileOutcome, error) {
	if userKey == "" {
		return "", domain.ErrInvalidUserKey
	}

	acquired, err := s.guard.TryAcquire(ctx, userKey)
	if err != nil {
		return "", fmt.Errorf("acquire reconcile guard: %w", err)
	}
	if !acquired {
		s.logger.Debug(ctx, "Startup reconciliation already ran", log.Fields{"user_id": userKey})
		s.metrics.Reconciliations.WithLabelValues(string(OutcomeSkipped)).Inc()
		return OutcomeSkipped, nil
	}

	outcome, err := s.reconcile(ctx, userKey)
	if err != nil {
		if relErr := s.guard.Release(ctx, userKey); relErr != nil {
			s.logger.Warn(ctx, "Failed to release reconcile guard", log.Fields{"user_id": userKey, "error": relErr.Error()})
		}
		return "", err
	}

	s.metrics.Reconciliations.WithLabelValues(string(outcome)).Inc()
	s.logger.Info(ctx, "Startup reconciliation finished", log.Fields{"user_id": userKey, "outcome": string(outcome)})

	return outcome, nil
}

func (s *FavoritesSync) reconcile(ctx context.Context, userKey string) (ReconcileOutcome, error) {
	localFavs, err := s.local.ListFavorites(ctx, userKey)
	if err != nil {
		return "", fmt.Errorf("list local favorites: %w", err)
	}

	if err := s.ensureRemoteUser(ctx, userKey); err != nil {
		return "", err
	}

	remoteFavs, err := s.remote.ListFavoriteDocuments(ctx, userKey)
	if err != nil {
		s.metrics.RemoteFailures.WithLabelValues(metrics.OpListFavorites).Inc()
		return "", fmt.Errorf("list remote favorites: %w", err)
	}

	switch {
	case len(localFavs) == 0 && len(remoteFavs) > 0:
		return OutcomePulledToLocal, s.pullToLocal(ctx, userKey, remoteFavs)
	case len(localFavs) > 0 && len(remoteFavs) == 0:
		s.pushToRemote(ctx, localFavs)
		return OutcomePushedToRemote, nil
	case len(localFavs) > 0:
		s.logger.Info(ctx, "Local and remote favorites both populated, not merging", log.Fields{
			"user_id": userKey,
			"local":   len(localFavs),
			"remote":  len(remoteFavs),
		})
		return OutcomeBothPopulated, nil
	default:
		return OutcomeBothEmpty, nil
	}
}

func (s *FavoritesSync) ensureRemoteUser(ctx context.Context, userKey string) error {
	_, err := s.remote.ReadUserDocument(ctx, userKey)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		s.metrics.RemoteFailures.WithLabelValues(metrics.OpReadUser).Inc()
		return fmt.Errorf("read remote user: %w", err)
	}

	if err := s.remote.EnsureUserDocument(ctx, userKey); err != nil {
		s.metrics.RemoteFailures.WithLabelValues(metrics.OpEnsureUser).Inc()
		return fmt.Errorf("create remote user: %w", err)
	}
	return nil
}

func (s *FavoritesSync) pullToLocal(ctx context.Context, userKey string, favs []domain.Favorite) error {
	for _, f := range favs {
		f.UserID = userKey
		err := s.local.AddFavorite(ctx, f)
		if err != nil && !errors.Is(err, domain.ErrFavoriteExists) {
			return fmt.Errorf("copy favorite %s to local: %w", f.MovieID, err)
		}
	}
	return nil
}

// pushToRemote is best effort per item; the next startup repairs what fails.
func (s *FavoritesSync) pushToRemote(ctx context.Context, favs []domain.Favorite) {
	for _, f := range favs {
		if err := s.remote.UpsertFavoriteDocument(ctx, f); err != nil {
			s.metrics.RemoteFailures.WithLabelValues(metrics.OpUpsertFavorite).Inc()
			s.logger.Error(ctx, "Failed to push favorite during reconciliation", err, log.Fields{
				"user_id":  f.UserID,
				"movie_id": f.MovieID,
			})
			continue
		}
		s.metrics.FavoritesPushed.WithLabelValues(metrics.OpUpsertFavorite).Inc()
	}
}
