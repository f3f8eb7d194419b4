package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pilab-dev/reelsync/domain"
	"github.com/pilab-dev/reelsync/internal/metrics"
	"github.com/pilab-dev/reelsync/log"
	"github.com/pilab-dev/reelsync/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ProfileSync moves the user record between the stores: the session log and
// scalar fields go up, missing local fields come down.
type ProfileSync struct {
	local   domain.UserStore
	remote  domain.RemoteStore
	logger  log.Logger
	metrics *metrics.Metrics
}

func NewProfileSync(local domain.UserStore, remote domain.RemoteStore, logger log.Logger, m *metrics.Metrics) *ProfileSync {
	return &ProfileSync{
		local:   local,
		remote:  remote,
		logger:  logger.With(log.Fields{"component": "profile_sync"}),
		metrics: m,
	}
}

// MergeSessionLog applies the local login/logout pair to the remote activity
// log and merges the non-empty name and email in the same write. It is a
// no-op when the user has no local row.
func (s *ProfileSync) MergeSessionLog(ctx context.Context, userKey string) error {
	ctx, span := tracing.Tracer.Start(ctx, "ProfileSync.MergeSessionLog",
		trace.WithAttributes(attribute.String("user_id", userKey)))
	defer span.End()

	u, err := s.local.GetUser(ctx, userKey)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil
		}
		return fmt.Errorf("read local user: %w", err)
	}

	var login time.Time
	if u.LoginTime != nil {
		login = *u.LoginTime
	}
	extra := domain.ProfileFields{Name: u.Name, Email: u.Email}

	if err := s.remote.AppendOrUpdateSessionLog(ctx, userKey, login, u.LogoutTime, extra); err != nil {
		span.RecordError(err)
		s.metrics.RemoteFailures.WithLabelValues(metrics.OpSessionLog).Inc()
		s.logger.Error(ctx, "Failed to merge session log", err, log.Fields{"user_id": userKey})
		return fmt.Errorf("merge session log: %w", err)
	}

	s.metrics.SessionLogMerges.Inc()
	s.logger.Debug(ctx, "Session log merged", log.Fields{
		"user_id": userKey,
		"login":   domain.FormatTimestamp(u.LoginTime),
		"logout":  domain.FormatTimestamp(u.LogoutTime),
	})

	return nil
}

// PullProfileOnStartup fills empty local fields from the remote document and
// creates the local row when only the remote one exists. A populated local
// field is never overwritten. It reports whether anything was written.
func (s *ProfileSync) PullProfileOnStartup(ctx context.Context, userKey string) (bool, error) {
	ctx, span := tracing.Tracer.Start(ctx, "ProfileSync.PullProfileOnStartup",
		trace.WithAttributes(attribute.String("user_id", userKey)))
	defer span.End()

	remote, err := s.remote.ReadUserDocument(ctx, userKey)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		s.metrics.RemoteFailures.WithLabelValues(metrics.OpReadUser).Inc()
		span.RecordError(err)
		return false, fmt.Errorf("read remote user: %w", err)
	}

	local, err := s.local.GetUser(ctx, userKey)
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		u := domain.UserFromRemote(userKey, remote)
		if err := s.local.UpsertUser(ctx, u.FullUpdate()); err != nil {
			return false, fmt.Errorf("create local user from remote: %w", err)
		}
		s.logger.Info(ctx, "Local user created from remote document", log.Fields{"user_id": userKey})
		return true, nil
	case err != nil:
		return false, fmt.Errorf("read local user: %w", err)
	}

	upd, ok := domain.FillIfEmpty(local, remote)
	if !ok {
		return false, nil
	}
	if err := s.local.UpsertUser(ctx, upd); err != nil {
		return false, fmt.Errorf("fill local user: %w", err)
	}

	return true, nil
}

// PushProfileFields merge-writes the non-empty scalar fields of the local user.
func (s *ProfileSync) PushProfileFields(ctx context.Context, userKey string) error {
	u, err := s.local.GetUser(ctx, userKey)
	if err != nil {
		return fmt.Errorf("read local user: %w", err)
	}

	fields := domain.ProfileFieldsForPush(u)
	if fields.IsEmpty() {
		return nil
	}

	if err := s.remote.MergeUserFields(ctx, userKey, fields); err != nil {
		s.metrics.RemoteFailures.WithLabelValues(metrics.OpMergeFields).Inc()
		s.logger.Error(ctx, "Failed to push profile fields", err, log.Fields{"user_id": userKey})
		return fmt.Errorf("push profile fields: %w", err)
	}

	return nil
}
