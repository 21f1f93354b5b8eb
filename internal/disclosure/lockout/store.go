package lockout

import (
	"context"
	"time"
)

// Store tracks PIN attempts and locks per key. Reserve must check the lock
// and count the attempt atomically so concurrent attempts cannot all pass.
type Store interface {
	// Reserve counts one attempt in the window opened by the first attempt.
	// When key is locked it counts nothing and returns the remaining lock time.
	Reserve(ctx context.Context, key string, window time.Duration) (attempt int, locked time.Duration, err error)
	// Release returns a reserved attempt that did not end in a wrong PIN.
	Release(ctx context.Context, key string) error
	// Lock blocks key for d and starts a fresh attempt window after it.
	Lock(ctx context.Context, key string, d time.Duration) error
	// Clear forgets attempts and locks of key.
	Clear(ctx context.Context, key string) error
}
