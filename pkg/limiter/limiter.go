package limiter

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Limiter is the fixed-window decision engine. It keeps no mutable state of
// its own; every count lives in the CounterStore, so any number of Limiter
// instances in any number of processes enforce one shared budget.
type Limiter struct {
	store    CounterStore
	clock    Clock
	recorder MetricsRecorder
}

// NewLimiter builds a Limiter on top of the given store.
func NewLimiter(store CounterStore, opts ...Option) (*Limiter, error) {
	if store == nil {
		return nil, errors.New("counter store is required")
	}
	l := &Limiter{
		store:    store,
		clock:    systemClock{},
		recorder: &NoOpMetricsRecorder{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Check counts one call for identity under policy and returns the verdict.
//
// The call landing exactly on MaxRequests is still allowed; the next one is
// the first denial. Windows are aligned to epoch boundaries, which means a
// caller can legally burst up to MaxRequests just before a boundary and again
// just after it. That imprecision is inherent to fixed-window counting and is
// accepted here in exchange for a single O(1) counter per key.
func (l *Limiter) Check(ctx context.Context, policy Policy, identity string) (Verdict, error) {
	// Policies should come from NewPolicy; this guard only keeps a zero-value
	// Policy from dividing by zero below.
	if policy.MaxRequests < 1 || policy.Period <= 0 {
		return Verdict{}, fmt.Errorf("%w: scope %q", ErrInvalidPolicy, policy.Scope)
	}

	now := l.clock.Now()
	key, err := buildKey(policy.Scope, identity, windowIndex(now, policy.Period))
	if err != nil {
		return Verdict{}, err
	}

	start := time.Now()
	count, err := l.store.IncrementAndGet(ctx, key, policy.Period)
	tags := map[string]string{"scope": policy.Scope}
	l.recorder.Observe(metricLatency, time.Since(start).Seconds(), tags)
	l.recorder.Add(metricCalls, 1, tags)
	if err != nil {
		return Verdict{}, err
	}

	left := timeToBoundary(now, policy.Period)
	reset := now.Add(left)

	if count <= policy.MaxRequests {
		l.recorder.Add(metricAllowed, 1, tags)
		return Verdict{
			Allowed:   true,
			Remaining: policy.MaxRequests - count,
			ResetTime: reset,
		}, nil
	}

	l.recorder.Add(metricDenied, 1, tags)
	return Verdict{
		Allowed:    false,
		RetryAfter: left,
		ResetTime:  reset,
	}, nil
}

var _ RateLimiter = (*Limiter)(nil)

// RateLimiter is the decision contract consumed by Guard. Satisfied by
// Limiter; a fake implementation is handy in tests of code built on top.
type RateLimiter interface {
	Check(ctx context.Context, policy Policy, identity string) (Verdict, error)
}
