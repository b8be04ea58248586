package limiter

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	count     int64
	expiresAt time.Time
}

// MemoryStore is an in-process CounterStore.
//
// It is safe for concurrent use by multiple goroutines, but its state is local
// to the process and is not shared across replicas. Use RedisStore when you
// need a single global budget across multiple instances.
type MemoryStore struct {
	mu      sync.Mutex
	clock   Clock
	entries map[string]*entry
}

// NewMemoryStore constructs a MemoryStore with empty state.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		clock:   systemClock{},
		entries: make(map[string]*entry),
	}
}

// IncrementAndGet implements CounterStore. Expiry is honored lazily: an
// expired entry is replaced as if absent, and dead entries are swept whenever
// a new window starts so long-lived processes do not accumulate old windows.
func (m *MemoryStore) IncrementAndGet(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	e, ok := m.entries[key]
	if !ok || !e.expiresAt.After(now) {
		m.sweepLocked(now)
		m.entries[key] = &entry{count: 1, expiresAt: now.Add(ttl)}
		return 1, nil
	}

	e.count++
	return e.count, nil
}

// sweepLocked drops expired entries. Amortized over entry creations, which
// happen once per key per window.
func (m *MemoryStore) sweepLocked(now time.Time) {
	for k, e := range m.entries {
		if !e.expiresAt.After(now) {
			delete(m.entries, k)
		}
	}
}
