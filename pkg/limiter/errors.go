package limiter

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidPolicy reports a policy built with a non-positive limit or
	// period. Programmer error; never returned from a hot path for a policy
	// that passed NewPolicy.
	ErrInvalidPolicy = errors.New("invalid rate limit policy")

	// ErrKeyCollision reports a scope or identity containing the key
	// delimiter, which would let two different callers share a counter.
	ErrKeyCollision = errors.New("scope or identity contains the key delimiter")

	// ErrStoreUnavailable reports that the counter store could not be reached
	// within the configured timeout. The Guard maps it to the policy's fail
	// mode; no count is ever fabricated in its place.
	ErrStoreUnavailable = errors.New("counter store unavailable")
)

// ThrottledError is the normal outcome of exceeding a policy's budget. It is
// control flow, not a failure: callers surface it as a "too many requests"
// response and should not log it as an error.
type ThrottledError struct {
	Scope      string
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("too many requests for scope %q, retry after %s", e.Scope, e.RetryAfter)
}

// IsThrottled reports whether err is (or wraps) a ThrottledError.
func IsThrottled(err error) bool {
	var t *ThrottledError
	return errors.As(err, &t)
}
