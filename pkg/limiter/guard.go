package limiter

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Guard wraps protected operations with a rate-limit check. On a denial the
// operation is never invoked; during a store outage the policy's FailMode
// decides, and the degradation is logged and counted so operators can see it
// even though callers cannot.
type Guard struct {
	limiter *Limiter
	logger  *zap.Logger
}

// NewGuard builds a Guard on top of a Limiter.
func NewGuard(l *Limiter, opts ...GuardOption) *Guard {
	g := &Guard{
		limiter: l,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Protect runs op if identity still has budget under policy.
//
// When the verdict is a denial, Protect returns a *ThrottledError carrying the
// retry hint and op is not called. When the counter store is unreachable,
// FailOpen runs op anyway and FailClosed returns a *ThrottledError, so from
// the caller's side an outage under FailClosed looks like ordinary throttling.
// Errors from op itself pass through unchanged.
func (g *Guard) Protect(ctx context.Context, policy Policy, identity string, op func(ctx context.Context) error) error {
	verdict, err := g.limiter.Check(ctx, policy, identity)
	switch {
	case err == nil:
	case errors.Is(err, ErrStoreUnavailable):
		g.limiter.recorder.Add(metricDegraded, 1, map[string]string{"scope": policy.Scope})
		if policy.FailMode == FailClosed {
			g.logger.Warn("counter store unavailable, failing closed",
				zap.String("scope", policy.Scope),
				zap.Error(err))
			return &ThrottledError{
				Scope:      policy.Scope,
				RetryAfter: timeToBoundary(g.limiter.clock.Now(), policy.Period),
			}
		}
		g.logger.Warn("counter store unavailable, failing open",
			zap.String("scope", policy.Scope),
			zap.Error(err))
		return op(ctx)
	default:
		// Caller cancellation, invalid policy, bad identity: not ours to
		// reinterpret.
		return err
	}

	if !verdict.Allowed {
		return &ThrottledError{Scope: policy.Scope, RetryAfter: verdict.RetryAfter}
	}
	return op(ctx)
}

// Do is Protect for operations that return a value.
func Do[T any](ctx context.Context, g *Guard, policy Policy, identity string, op func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := g.Protect(ctx, policy, identity, func(ctx context.Context) error {
		v, opErr := op(ctx)
		if opErr != nil {
			return opErr
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
