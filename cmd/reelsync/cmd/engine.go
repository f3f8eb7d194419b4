package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pilab-dev/reelsync/cache"
	cacheredis "github.com/pilab-dev/reelsync/cache/redis"
	"github.com/pilab-dev/reelsync/config"
	"github.com/pilab-dev/reelsync/domain"
	"github.com/pilab-dev/reelsync/internal/audit"
	"github.com/pilab-dev/reelsync/internal/crypto"
	"github.com/pilab-dev/reelsync/internal/identity"
	"github.com/pilab-dev/reelsync/internal/metrics"
	"github.com/pilab-dev/reelsync/log"
	"github.com/pilab-dev/reelsync/memstore"
	"github.com/pilab-dev/reelsync/mongodb"
	"github.com/pilab-dev/reelsync/notify"
	"github.com/pilab-dev/reelsync/services"
	"github.com/pilab-dev/reelsync/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

const closeTimeout = 10 * time.Second

// engine is every dependency of a Session, opened from configuration.
type engine struct {
	db         *sqlite.DB
	local      *sqlite.LocalStore
	remote     domain.RemoteStore
	mongo      *mongodb.Client
	redis      *redis.Client
	memGuard   *cache.MemoryGuard
	registry   *prometheus.Registry
	identities *identity.Registry
	session    *services.Session
	audit      *audit.Logger

	closers []func(context.Context) error
}

func openEngine(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *engine, err error) {
	eng := &engine{}
	defer func() {
		if err != nil {
			_ = eng.Close(context.WithoutCancel(ctx))
		}
	}()

	eng.db, err = sqlite.Open(ctx, cfg.LocalPath)
	if err != nil {
		return nil, err
	}
	eng.closers = append(eng.closers, func(context.Context) error { return eng.db.Close() })

	switch cfg.RemoteBackend {
	case config.BackendMongoDB:
		eng.mongo, err = mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, err
		}
		eng.closers = append(eng.closers, func(ctx context.Context) error {
			eng.mongo.Close(ctx)
			return nil
		})
		if eng.remote, err = mongodb.NewRemoteStore(ctx, eng.mongo.DB()); err != nil {
			return nil, err
		}
	default:
		logger.Warn(ctx, "Using the in-memory remote store; nothing leaves this process")
		eng.remote = memstore.New()
	}

	var guard cache.ReconcileGuard
	if cfg.RedisAddr != "" {
		eng.redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		eng.closers = append(eng.closers, func(context.Context) error { return eng.redis.Close() })
		if err = eng.redis.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		guard = cacheredis.NewGuard(eng.redis, cfg.RedisPrefix, cfg.ReconcileTTL)
	} else {
		eng.memGuard = cache.NewMemoryGuard(cfg.ReconcileTTL)
		eng.closers = append(eng.closers, func(context.Context) error {
			eng.memGuard.Stop()
			return nil
		})
		guard = eng.memGuard
	}

	var cipher crypto.FieldCipher = crypto.NopCipher{}
	if cfg.FieldKey != "" {
		if cipher, err = crypto.NewAEADCipher([]byte(cfg.FieldKey)); err != nil {
			return nil, err
		}
	} else {
		logger.Warn(ctx, "FIELD_KEY is not set; phone and address are stored as given")
	}

	eng.registry = prometheus.NewRegistry()
	eng.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	eng.identities = identity.NewRegistry(
		identity.NewGoogleProvider(cfg.Google),
		identity.NewFacebookProvider(cfg.Facebook),
	)

	n := notify.New()
	eng.local = sqlite.NewLocalStore(eng.db, n)

	if cfg.AuditLog != "" {
		var f *os.File
		f, err = os.OpenFile(cfg.AuditLog, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, fmt.Errorf("open audit log: %w", err)
		}
		eng.closers = append(eng.closers, func(context.Context) error { return f.Close() })
		eng.audit = audit.NewLogger(f)
		n.Subscribe(eng.audit)
	}

	eng.session, err = services.NewSession(services.SessionConfig{
		Local:     eng.local,
		Remote:    eng.remote,
		Notifier:  n,
		Guard:     guard,
		Cipher:    cipher,
		Logger:    logger,
		Metrics:   metrics.New(eng.registry),
		UserKey:   cfg.UserKey,
		QueueSize: cfg.PropagationQueueSize,
	})
	if err != nil {
		return nil, err
	}
	eng.closers = append(eng.closers, eng.session.Close)

	return eng, nil
}

// record writes a session event to the audit log when one is configured.
func (e *engine) record(action, userKey string, err error) {
	if e.audit != nil {
		e.audit.Log(action, userKey, "", "", err)
	}
}

// Close releases resources in reverse order of acquisition. The session is
// closed first so queued favorites still reach the remote store.
func (e *engine) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, closeTimeout)
	defer cancel()

	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	e.closers = nil

	return errors.Join(errs...)
}
