package ports

import (
	"context"
	"time"
)

// UnlockFunc is a function that releases a lock.
type UnlockFunc func(ctx context.Context) error

// SlotLocker provides short-lived mutual exclusion keyed by slot.
// It keeps two sessions (possibly on different replicas) from booking the same slot at once.
type SlotLocker interface {
	// Lock attempts to acquire the lock for key.
	// It blocks until the lock is acquired or the context is canceled.
	// Returns an UnlockFunc that MUST be called to release the lock.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
