package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pilab-dev/reelsync/cache"
	"github.com/pilab-dev/reelsync/domain"
	"github.com/pilab-dev/reelsync/internal/crypto"
	"github.com/pilab-dev/reelsync/internal/metrics"
	"github.com/pilab-dev/reelsync/log"
	"github.com/pilab-dev/reelsync/notify"
	"github.com/pilab-dev/reelsync/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrNoActiveUser is returned by operations that need a signed-in user.
var ErrNoActiveUser = errors.New("no active user in session")

// SessionConfig carries the dependencies of a Session. Local must publish its
// favorites events on Notifier.
type SessionConfig struct {
	Local    domain.LocalStore
	Remote   domain.RemoteStore
	Notifier *notify.Notifier
	Guard    cache.ReconcileGuard
	Cipher   crypto.FieldCipher
	Clock    Clock
	Logger   log.Logger
	Metrics  *metrics.Metrics

	// UserKey resumes an already signed-in user without calling Login.
	UserKey   string
	QueueSize int
}

// ProfileEdit is a user-initiated profile change. Nil fields are untouched.
// Phone and Address are plain text here and encrypted before storage.
type ProfileEdit struct {
	Name    *string
	Email   *string
	Phone   *string
	Address *string
	Image   *domain.Avatar
}

// Session is the sync engine of one authenticated user. It owns the
// propagation worker; Close must be called to drain it.
type Session struct {
	local     domain.LocalStore
	cipher    crypto.FieldCipher
	clock     Clock
	logger    log.Logger
	guard     cache.ReconcileGuard
	favorites *FavoriteService
	profiles  *ProfileSync
	reconcile *FavoritesSync
	propagate *Propagator

	mu      sync.RWMutex
	userKey string

	inflight sync.WaitGroup
	cancel   context.CancelFunc
}

// NewSession wires the engine and starts the propagation worker.
func NewSession(cfg SessionConfig) (*Session, error) {
	switch {
	case cfg.Local == nil:
		return nil, errors.New("session: local store is required")
	case cfg.Remote == nil:
		return nil, errors.New("session: remote store is required")
	case cfg.Notifier == nil:
		return nil, errors.New("session: notifier is required")
	case cfg.Guard == nil:
		return nil, errors.New("session: reconcile guard is required")
	}
	if cfg.Cipher == nil {
		cfg.Cipher = crypto.NopCipher{}
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNop()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New(nil)
	}

	s := &Session{
		local:     cfg.Local,
		cipher:    cfg.Cipher,
		clock:     cfg.Clock,
		logger:    cfg.Logger.With(log.Fields{"component": "session"}),
		guard:     cfg.Guard,
		favorites: NewFavoriteService(cfg.Local, cfg.Logger),
		profiles:  NewProfileSync(cfg.Local, cfg.Remote, cfg.Logger, cfg.Metrics),
		reconcile: NewFavoritesSync(cfg.Local, cfg.Remote, cfg.Guard, cfg.Logger, cfg.Metrics),
		propagate: NewPropagator(cfg.Notifier, cfg.Remote, cfg.QueueSize, cfg.Logger, cfg.Metrics),
		userKey:   cfg.UserKey,
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.propagate.Run(ctx)

	return s, nil
}

// UserKey returns the active user, or "" when signed out.
func (s *Session) UserKey() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userKey
}

func (s *Session) activeUser() (string, error) {
	key := s.UserKey()
	if key == "" {
		return "", ErrNoActiveUser
	}
	return key, nil
}

// Favorites returns the synchronous favorites API.
func (s *Session) Favorites() *FavoriteService {
	return s.favorites
}

// Login makes id the active user. A user already known remotely is restored
// locally first; a brand-new one is seeded from the identity. The login time
// is recorded and the session log merged. Remote failures are logged and do
// not fail the login.
func (s *Session) Login(ctx context.Context, id domain.Identity) error {
	if id.UserKey == "" {
		return domain.ErrInvalidUserKey
	}

	ctx, span := tracing.Tracer.Start(ctx, "Session.Login", trace.WithAttributes(
		attribute.String("user_id", id.UserKey),
		attribute.String("provider", id.Provider),
	))
	defer span.End()

	s.mu.Lock()
	s.userKey = id.UserKey
	s.mu.Unlock()

	fields := log.Fields{"user_id": id.UserKey, "provider": id.Provider}

	if _, err := s.profiles.PullProfileOnStartup(ctx, id.UserKey); err != nil {
		s.logger.Warn(ctx, "Profile pull failed, continuing offline", mergeFields(fields, log.Fields{"error": err.Error()}))
	}

	now := domain.Truncate(s.clock.Now())

	existing, err := s.local.GetUser(ctx, id.UserKey)
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		seed := domain.SeedUser(id, now)
		if err := s.local.UpsertUser(ctx, seed.FullUpdate()); err != nil {
			return fmt.Errorf("create local user: %w", err)
		}
		s.logger.Info(ctx, "Local user created", fields)

		if seed.Name != "" || seed.Email != "" {
			if err := s.profiles.PushProfileFields(ctx, id.UserKey); err != nil {
				s.logger.Warn(ctx, "Initial profile push failed", fields)
			}
		}
	case err != nil:
		return fmt.Errorf("read local user: %w", err)
	default:
		upd, filled := domain.FillFromIdentity(existing, id)
		upd.LoginTime = &now
		if err := s.local.UpsertUser(ctx, upd); err != nil {
			return fmt.Errorf("record login time: %w", err)
		}

		if filled {
			s.logger.Info(ctx, "Filled empty profile fields from identity", fields)
			if err := s.profiles.PushProfileFields(ctx, id.UserKey); err != nil {
				s.logger.Warn(ctx, "Profile push after fill failed", fields)
			}
		}
	}

	if err := s.profiles.MergeSessionLog(ctx, id.UserKey); err != nil {
		s.logger.Warn(ctx, "Session log merge failed at login", fields)
	}

	return nil
}

// Logout records the logout time and merges the session log before signing
// out. The user is signed out even when the merge fails; that error is
// returned after the local state has been committed.
func (s *Session) Logout(ctx context.Context) error {
	userKey, err := s.activeUser()
	if err != nil {
		return err
	}

	ctx, span := tracing.Tracer.Start(ctx, "Session.Logout", trace.WithAttributes(attribute.String("user_id", userKey)))
	defer span.End()

	now := domain.Truncate(s.clock.Now())
	if err := s.local.UpsertUser(ctx, domain.UserUpdate{ID: userKey, LogoutTime: &now}); err != nil {
		return fmt.Errorf("record logout time: %w", err)
	}

	mergeErr := s.profiles.MergeSessionLog(ctx, userKey)

	if err := s.guard.Release(ctx, userKey); err != nil {
		s.logger.Warn(ctx, "Failed to release reconcile guard", log.Fields{"user_id": userKey, "error": err.Error()})
	}

	s.mu.Lock()
	s.userKey = ""
	s.mu.Unlock()

	s.logger.Info(ctx, "User signed out", log.Fields{"user_id": userKey})

	return mergeErr
}

// OnForeground records a new login time and merges the session log in the
// background.
func (s *Session) OnForeground(ctx context.Context) <-chan error {
	return s.recordAndMerge(ctx, func(userKey string, now *time.Time) domain.UserUpdate {
		return domain.UserUpdate{ID: userKey, LoginTime: now}
	})
}

// OnBackground records the logout time and merges the session log in the
// background.
func (s *Session) OnBackground(ctx context.Context) <-chan error {
	return s.recordAndMerge(ctx, func(userKey string, now *time.Time) domain.UserUpdate {
		return domain.UserUpdate{ID: userKey, LogoutTime: now}
	})
}

func (s *Session) recordAndMerge(ctx context.Context, update func(string, *time.Time) domain.UserUpdate) <-chan error {
	userKey, err := s.activeUser()
	if err != nil {
		return done(err)
	}

	now := domain.Truncate(s.clock.Now())
	if err := s.local.UpsertUser(ctx, update(userKey, &now)); err != nil {
		return done(fmt.Errorf("record session time: %w", err))
	}

	return s.async(ctx, func(ctx context.Context) error {
		return s.profiles.MergeSessionLog(ctx, userKey)
	})
}

// SyncAtStartup pulls the profile and reconciles favorites in the background.
func (s *Session) SyncAtStartup(ctx context.Context) <-chan error {
	return s.async(ctx, func(ctx context.Context) error {
		_, err := s.RunStartupSync(ctx)
		return err
	})
}

// RunStartupSync is the blocking form of SyncAtStartup. A failed profile pull
// does not prevent the favorites reconciliation.
func (s *Session) RunStartupSync(ctx context.Context) (ReconcileOutcome, error) {
	userKey, err := s.activeUser()
	if err != nil {
		return "", err
	}

	_, pullErr := s.profiles.PullProfileOnStartup(ctx, userKey)
	if pullErr != nil {
		s.logger.Warn(ctx, "Profile pull failed", log.Fields{"user_id": userKey, "error": pullErr.Error()})
	}

	outcome, err := s.reconcile.SyncAtStartup(ctx, userKey)
	if err != nil {
		s.logger.Error(ctx, "Startup reconciliation failed", err, log.Fields{"user_id": userKey})
	}

	return outcome, errors.Join(pullErr, err)
}

// EditProfile applies a profile change locally, then pushes the profile fields
// and merges the session log in the background. The returned error covers the
// local write only.
func (s *Session) EditProfile(ctx context.Context, edit ProfileEdit) (<-chan error, error) {
	userKey, err := s.activeUser()
	if err != nil {
		return nil, err
	}

	upd := domain.UserUpdate{ID: userKey, Name: edit.Name, Email: edit.Email, Image: edit.Image}
	if upd.Phone, err = s.encrypt(edit.Phone); err != nil {
		return nil, fmt.Errorf("encrypt phone: %w", err)
	}
	if upd.Address, err = s.encrypt(edit.Address); err != nil {
		return nil, fmt.Errorf("encrypt address: %w", err)
	}
	if upd.IsEmpty() {
		return nil, domain.ErrNoFieldsToUpdate
	}

	if err := s.local.UpsertUser(ctx, upd); err != nil {
		return nil, fmt.Errorf("update local profile: %w", err)
	}

	return s.async(ctx, func(ctx context.Context) error {
		pushErr := s.profiles.PushProfileFields(ctx, userKey)
		mergeErr := s.profiles.MergeSessionLog(ctx, userKey)
		return errors.Join(pushErr, mergeErr)
	}), nil
}

// Profile returns the active user's record with phone and address decrypted.
// A value that does not decrypt is returned empty.
func (s *Session) Profile(ctx context.Context) (*domain.User, error) {
	userKey, err := s.activeUser()
	if err != nil {
		return nil, err
	}

	u, err := s.local.GetUser(ctx, userKey)
	if err != nil {
		return nil, err
	}

	u.Phone = s.decrypt(ctx, userKey, "phone", u.Phone)
	u.Address = s.decrypt(ctx, userKey, "address", u.Address)

	return u, nil
}

// Close stops the propagation worker after draining queued events and waits
// for background merges, bounded by ctx.
func (s *Session) Close(ctx context.Context) error {
	waited := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(waited)
	}()

	var err error
	select {
	case <-waited:
	case <-ctx.Done():
		err = ctx.Err()
	}

	if cerr := s.propagate.Close(ctx); cerr != nil && err == nil {
		err = cerr
	}
	s.cancel()

	return err
}

// async runs fn detached from ctx cancellation but keeping its values, and
// reports the result on a buffered channel.
func (s *Session) async(ctx context.Context, fn func(context.Context) error) <-chan error {
	result := make(chan error, 1)
	detached := context.WithoutCancel(ctx)

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		result <- fn(detached)
		close(result)
	}()

	return result
}

func (s *Session) encrypt(v *string) (*string, error) {
	if v == nil {
		return nil, nil
	}
	enc, err := s.cipher.Encrypt(*v)
	if err != nil {
		return nil, err
	}
	return &enc, nil
}

func (s *Session) decrypt(ctx context.Context, userKey, field, v string) string {
	plain, err := s.cipher.Decrypt(v)
	if err != nil {
		s.logger.Warn(ctx, "Stored field does not decrypt", log.Fields{"user_id": userKey, "field": field})
		return ""
	}
	return plain
}

func done(err error) <-chan error {
	ch := make(chan error, 1)
	ch <- err
	close(ch)
	return ch
}

func mergeFields(a, b log.Fields) log.Fields {
	out := make(log.Fields, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}
