package limiter

import (
	"fmt"
	"strings"
	"time"
)

// FailMode selects what a Guard does when the counter store is unreachable.
type FailMode int

const (
	// FailOpen lets the request through when the store is down. This is the
	// default and the right choice for availability-sensitive endpoints.
	FailOpen FailMode = iota

	// FailClosed denies the request when the store is down. Use it for
	// security-sensitive scopes (logins, password resets) where unlimited
	// traffic during an outage is worse than briefly blocking real users.
	FailClosed
)

func (m FailMode) String() string {
	switch m {
	case FailClosed:
		return "closed"
	default:
		return "open"
	}
}

// ParseFailMode converts the configuration strings "open" and "closed".
func ParseFailMode(s string) (FailMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "open", "":
		return FailOpen, nil
	case "closed":
		return FailClosed, nil
	default:
		return FailOpen, fmt.Errorf("unknown fail mode %q (want \"open\" or \"closed\")", s)
	}
}

// Policy is the immutable configuration for one protected operation.
//
//   - Scope names the operation being protected, e.g. "login".
//   - MaxRequests is the number of calls allowed per window.
//   - Period is the window length; windows are aligned to epoch boundaries,
//     not to each caller's first request.
//   - FailMode decides behavior during a store outage (see Guard).
type Policy struct {
	Scope       string
	MaxRequests int64
	Period      time.Duration
	FailMode    FailMode
}

// NewPolicy validates and builds a Policy. It rejects non-positive limits and
// periods (ErrInvalidPolicy) and scopes containing the key delimiter
// (ErrKeyCollision) so a bad policy fails at construction, not per request.
func NewPolicy(scope string, maxRequests int64, period time.Duration) (Policy, error) {
	if maxRequests < 1 {
		return Policy{}, fmt.Errorf("%w: max requests must be at least 1, got %d", ErrInvalidPolicy, maxRequests)
	}
	if period <= 0 {
		return Policy{}, fmt.Errorf("%w: period must be positive, got %s", ErrInvalidPolicy, period)
	}
	if scope == "" {
		return Policy{}, fmt.Errorf("%w: scope is required", ErrInvalidPolicy)
	}
	if strings.Contains(scope, keyDelimiter) {
		return Policy{}, fmt.Errorf("%w: scope %q contains %q", ErrKeyCollision, scope, keyDelimiter)
	}
	return Policy{Scope: scope, MaxRequests: maxRequests, Period: period}, nil
}

// WithFailMode returns a copy of the policy with the given fail mode.
func (p Policy) WithFailMode(m FailMode) Policy {
	p.FailMode = m
	return p
}

// Verdict is the limiter's answer for a single call.
type Verdict struct {
	// Allowed reports whether the call is within the policy's budget.
	Allowed bool

	// Remaining is the number of calls left in the current window after this
	// one. Zero when denied.
	Remaining int64

	// RetryAfter is 0 when allowed; when denied it is the time left until the
	// current window ends, which is when quota becomes available again.
	RetryAfter time.Duration

	// ResetTime is the absolute instant the current window ends.
	ResetTime time.Time
}
