package limiter

import (
	"time"

	"go.uber.org/zap"
)

// StoreOption configures a RedisStore.
type StoreOption func(*RedisStore)

// WithPrefix sets the key prefix namespacing this application's counters from
// any co-tenant in the same Redis (default "ratelimit:").
func WithPrefix(prefix string) StoreOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// WithTimeout bounds each Redis round trip (default 250ms). Keep it short: a
// dead store should degrade the limiter, not stall the protected operation.
func WithTimeout(timeout time.Duration) StoreOption {
	return func(s *RedisStore) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// WithRetries sets how many times a failed store call is retried before the
// limiter reports the store unavailable (default 1). Keep it small; retries
// must not turn an outage into request queueing.
func WithRetries(retries int) StoreOption {
	return func(s *RedisStore) {
		if retries >= 0 {
			s.retries = retries
		}
	}
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock injects an alternative time source. Tests use this to cross
// window boundaries without sleeping.
func WithClock(clock Clock) Option {
	return func(l *Limiter) {
		if clock != nil {
			l.clock = clock
		}
	}
}

// WithRecorder injects a metrics backend (default: no-op).
func WithRecorder(recorder MetricsRecorder) Option {
	return func(l *Limiter) {
		if recorder != nil {
			l.recorder = recorder
		}
	}
}

// GuardOption configures a Guard.
type GuardOption func(*Guard)

// WithLogger sets the logger for degraded-mode events (default: no-op).
func WithLogger(logger *zap.Logger) GuardOption {
	return func(g *Guard) {
		if logger != nil {
			g.logger = logger
		}
	}
}
