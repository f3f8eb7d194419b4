// Package cache provides the once-per-session marks that keep startup
// reconciliation from running twice for the same user.
package cache

import "context"

// ReconcileGuard hands out a single permit per user key until the mark
// expires or is released.
type ReconcileGuard interface {
	// TryAcquire reports true for the first caller only.
	TryAcquire(ctx context.Context, userKey string) (bool, error)
	// Release clears the mark so the next session reconciles again.
	Release(ctx context.Context, userKey string) error
}
