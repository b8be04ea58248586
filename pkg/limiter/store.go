package limiter

import (
	"context"
	"time"
)

// CounterStore is the single shared mutable resource behind the limiter. All
// correctness across replicas rests on IncrementAndGet being one atomic
// operation against the store; implementations must never split it into a
// check followed by a write.
//
// Implementations:
//   - MemoryStore: process-local map, for tests and single-instance deployments.
//   - RedisStore: distributed counters, safe across many replicas.
type CounterStore interface {
	// IncrementAndGet atomically bumps the counter at key and returns the new
	// count. A missing or expired entry is created with count 1 and the given
	// TTL; an existing live entry is incremented with its TTL left untouched,
	// so a steady trickle of requests can never extend a window.
	//
	// A store that cannot be reached returns an error wrapping
	// ErrStoreUnavailable instead of guessing a count.
	IncrementAndGet(ctx context.Context, key string, ttl time.Duration) (int64, error)
}
