// Package limiter provides local and distributed rate limiting based on
// fixed-window counting.
//
// The primary entry points are the Limiter, which answers "is this call still
// within budget?":
//
//	verdict, err := l.Check(ctx, policy, identity)
//
// and the Guard, which wraps an arbitrary operation so it only runs when the
// verdict allows it:
//
//	err := guard.Protect(ctx, policy, identity, func(ctx context.Context) error {
//	    return sendPasswordResetEmail(ctx, user)
//	})
//
// # Overview
//
// This package implements an epoch-aligned fixed window:
//
//   - Time is cut into consecutive windows of Policy.Period, aligned to the
//     Unix epoch, so every process computes the same window for the same
//     instant.
//   - Each (scope, identity, window) triple has one integer counter in the
//     CounterStore. The first Policy.MaxRequests calls in a window are
//     allowed; the rest are denied until the window rolls over.
//   - Counters expire with the window, so the store stays O(1) per active key
//     and an idle caller's state disappears on its own.
//
// Fixed-window counting was chosen over sliding-window logs and token buckets
// because the goal is coarse protection against abuse, not precise traffic
// smoothing. The trade-off is the boundary burst: a caller can spend a full
// budget just before a window boundary and another full budget just after it.
// That imprecision is deliberate and documented rather than papered over with
// a heavier algorithm.
//
// # Core Types
//
// Policy defines what is being limited: a Scope naming the protected
// operation, MaxRequests per Period, and a FailMode picking fail-open or
// fail-closed behavior during a store outage. Build policies with NewPolicy;
// invalid values are rejected there, never at check time.
//
// Identity defines who is being limited. It is an opaque string supplied by
// the host application - an IP, a user ID, an API key - and the limiter never
// looks inside it.
//
// Verdict is the outcome: Allowed with the remaining budget, or denied with a
// RetryAfter hint equal to the time left in the current window (so the hint
// shrinks as the window ages, rather than resetting on every denied call).
//
// # Backends
//
// The package provides two CounterStore implementations:
//
//   - MemoryStore: an in-process store backed by a Go map. Useful for unit
//     tests, local development, and single-instance deployments. Its state is
//     local to the process, so it cannot enforce a global limit across
//     replicas.
//
//   - RedisStore: a distributed store backed by Redis. The create-or-increment
//     step runs as one Lua script, which makes concurrent calls from any
//     number of application instances linearizable per key. The script sets a
//     key's TTL only on creation; increments inside the window never extend
//     it, so a steady trickle of requests cannot hold a window open forever.
//
// That single atomic step is the crux of cross-process correctness. A
// check-then-increment pair of round trips would let two callers both observe
// an absent key and both count themselves first; no code path in this package
// does that, and CounterStore implementations must not either.
//
// # Concurrency
//
// Limiter and Guard hold no mutable state and are safe for unbounded
// concurrent use. MemoryStore serializes access with a mutex; RedisStore
// delegates to Redis and the go-redis client.
//
// # Context and Failure Policy
//
// Check and Protect accept a context.Context and pass it through to the
// store, so a caller that gives up does not leave a counting call behind.
// Each Redis round trip additionally runs under the store's own short timeout
// (WithTimeout) with a bounded number of retries (WithRetries); once those
// are exhausted the error wraps ErrStoreUnavailable.
//
// What happens then is a per-policy decision, not an accident of call sites:
// FailOpen (default) runs the protected operation and logs the degradation,
// FailClosed returns a ThrottledError just like a genuine denial. Callers see
// no difference between an outage under FailClosed and real throttling; only
// operator logs and the ratelimit.degraded metric tell them apart.
//
// # Usage
//
// For a runnable example see Example in example_test.go, and
// cmd/example-server for a full HTTP server wiring RedisStore, the chi
// router, zap logging, and Prometheus metrics together.
package limiter
