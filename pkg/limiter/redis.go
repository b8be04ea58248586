package limiter

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

//go:embed fixed_window.lua
var fixedWindowScript string

const (
	defaultKeyPrefix    = "ratelimit:"
	defaultStoreTimeout = 250 * time.Millisecond
	defaultStoreRetries = 1
	retryBackoff        = 10 * time.Millisecond
)

// RedisStore is a CounterStore backed by Redis. The create-or-increment step
// runs as a single Lua script, so concurrent callers across any number of
// replicas observe a linearizable sequence of counts for the same key.
type RedisStore struct {
	client    *redis.Client
	scriptSHA string
	prefix    string
	timeout   time.Duration
	retries   int
}

// NewRedisStore verifies connectivity and preloads the counting script.
func NewRedisStore(client *redis.Client, opts ...StoreOption) (*RedisStore, error) {
	s := &RedisStore{
		client:  client,
		prefix:  defaultKeyPrefix,
		timeout: defaultStoreTimeout,
		retries: defaultStoreRetries,
	}
	for _, opt := range opts {
		opt(s)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	sha, err := s.client.ScriptLoad(ctx, fixedWindowScript).Result()
	if err != nil {
		return nil, fmt.Errorf("loading fixed-window script: %w", err)
	}
	s.scriptSHA = sha

	return s, nil
}

// IncrementAndGet implements CounterStore. Each attempt runs under the store's
// own short timeout layered beneath the caller's context, so a dead Redis
// cannot stall the protected operation; after the configured retries are
// exhausted the error wraps ErrStoreUnavailable.
func (s *RedisStore) IncrementAndGet(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	fullKey := s.prefix + key

	var lastErr error
	for attempt := 0; attempt <= s.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(retryBackoff):
			}
		}

		count, err := s.eval(ctx, fullKey, ttl)
		if err == nil {
			return count, nil
		}
		// The caller giving up is not a store failure; surface it as-is so
		// cancellation propagates untouched.
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		lastErr = err
	}

	return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, lastErr)
}

func (s *RedisStore) eval(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ttlMillis := ttl.Milliseconds()
	cmd := s.client.EvalSha(callCtx, s.scriptSHA, []string{key}, ttlMillis)
	if err := cmd.Err(); err != nil && redis.HasErrorPrefix(err, "NOSCRIPT") {
		// Script cache was flushed (e.g. Redis restart); fall back to a full
		// EVAL, which also re-caches the script server-side.
		cmd = s.client.Eval(callCtx, fixedWindowScript, []string{key}, ttlMillis)
	}

	count, err := cmd.Int64()
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Close releases the underlying client's resources.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

var _ CounterStore = (*RedisStore)(nil)
