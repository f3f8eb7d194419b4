package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// MemoryGuard keeps the marks in process memory.
type MemoryGuard struct {
	marks *ttlcache.Cache[string, struct{}]
}

// NewMemoryGuard creates a guard whose marks expire after ttl. Stop must be
// called to end the expiry loop.
func NewMemoryGuard(ttl time.Duration) *MemoryGuard {
	marks := ttlcache.New(
		ttlcache.WithTTL[string, struct{}](ttl),
		ttlcache.WithDisableTouchOnHit[string, struct{}](),
	)

	go marks.Start()

	return &MemoryGuard{marks: marks}
}

func (g *MemoryGuard) TryAcquire(_ context.Context, userKey string) (bool, error) {
	_, found := g.marks.GetOrSet(userKey, struct{}{})
	return !found, nil
}

func (g *MemoryGuard) Release(_ context.Context, userKey string) error {
	g.marks.Delete(userKey)
	return nil
}

// Stop ends the background expiry loop.
func (g *MemoryGuard) Stop() {
	g.marks.Stop()
}

var _ ReconcileGuard = (*MemoryGuard)(nil)
