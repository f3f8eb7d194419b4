package cache_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pilab-dev/reelsync/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGuard_SinglePermit(t *testing.T) {
	g := cache.NewMemoryGuard(time.Hour)
	defer g.Stop()
	ctx := context.Background()

	ok, err := g.TryAcquire(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = g.TryAcquire(ctx, "u1")
	assert.False(t, ok)

	ok, _ = g.TryAcquire(ctx, "u2")
	assert.True(t, ok, "marks are per user")

	require.NoError(t, g.Release(ctx, "u1"))
	ok, _ = g.TryAcquire(ctx, "u1")
	assert.True(t, ok)
}

func TestMemoryGuard_Expiry(t *testing.T) {
	g := cache.NewMemoryGuard(50 * time.Millisecond)
	defer g.Stop()
	ctx := context.Background()

	ok, _ := g.TryAcquire(ctx, "u1")
	require.True(t, ok)

	assert.Eventually(t, func() bool {
		ok, _ := g.TryAcquire(ctx, "u1")
		return ok
	}, time.Second, 20*time.Millisecond)
}

func TestMemoryGuard_ConcurrentAcquire(t *testing.T) {
	g := cache.NewMemoryGuard(time.Hour)
	defer g.Stop()

	var winners atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := g.TryAcquire(context.Background(), "u1"); ok {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
}
