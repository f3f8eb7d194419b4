// Package redis implements cache.ReconcileGuard on Redis so processes sharing a
// device profile agree on who reconciles.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/pilab-dev/reelsync/cache"
	"github.com/redis/go-redis/v9"
)

// Guard stores one key per reconciled user with SET NX EX.
type Guard struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewGuard creates a Guard. Keys are "{prefix}:reconciled:{userKey}".
func NewGuard(client *redis.Client, prefix string, ttl time.Duration) *Guard {
	return &Guard{client: client, prefix: prefix, ttl: ttl}
}

func (g *Guard) redisKey(userKey string) string {
	return fmt.Sprintf("%s:reconciled:%s", g.prefix, userKey)
}

func (g *Guard) TryAcquire(ctx context.Context, userKey string) (bool, error) {
	ok, err := g.client.SetNX(ctx, g.redisKey(userKey), time.Now().Unix(), g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to set reconcile mark in Redis: %w", err)
	}
	return ok, nil
}

func (g *Guard) Release(ctx context.Context, userKey string) error {
	if err := g.client.Del(ctx, g.redisKey(userKey)).Err(); err != nil {
		return fmt.Errorf("failed to delete reconcile mark from Redis: %w", err)
	}
	return nil
}

var _ cache.ReconcileGuard = (*Guard)(nil)
