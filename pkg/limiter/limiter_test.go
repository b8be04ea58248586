package limiter

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func newTestLimiter(t *testing.T, at time.Time) (*Limiter, *fakeClock) {
	t.Helper()
	clock := newFakeClock(at)
	store := NewMemoryStore()
	store.clock = clock

	l, err := NewLimiter(store, WithClock(clock))
	if err != nil {
		t.Fatalf("NewLimiter failed: %v", err)
	}
	return l, clock
}

func mustPolicy(t *testing.T, scope string, max int64, period time.Duration) Policy {
	t.Helper()
	p, err := NewPolicy(scope, max, period)
	if err != nil {
		t.Fatalf("NewPolicy failed: %v", err)
	}
	return p
}

// The concrete scenario: 5 requests per minute for user-42. Calls 1-5 are
// allowed with remaining 4..0, call 6 is denied with the time left in the
// minute, and a call after the boundary starts over with remaining 4.
func TestLimiter_FixedWindowScenario(t *testing.T) {
	ctx := context.Background()
	l, clock := newTestLimiter(t, windowStart.Add(10*time.Second))
	policy := mustPolicy(t, "api", 5, time.Minute)

	for i, want := range []int64{4, 3, 2, 1, 0} {
		v, err := l.Check(ctx, policy, "user-42")
		if err != nil {
			t.Fatalf("call %d: unexpected error: %v", i+1, err)
		}
		if !v.Allowed {
			t.Fatalf("call %d: expected allowed", i+1)
		}
		if v.Remaining != want {
			t.Errorf("call %d: remaining = %d, want %d", i+1, v.Remaining, want)
		}
	}

	v, err := l.Check(ctx, policy, "user-42")
	if err != nil {
		t.Fatalf("call 6: unexpected error: %v", err)
	}
	if v.Allowed {
		t.Fatal("call 6: expected denial")
	}
	if v.RetryAfter != 50*time.Second {
		t.Errorf("call 6: retry after = %s, want 50s", v.RetryAfter)
	}

	clock.Advance(50 * time.Second)

	v, err = l.Check(ctx, policy, "user-42")
	if err != nil {
		t.Fatalf("call 7: unexpected error: %v", err)
	}
	if !v.Allowed || v.Remaining != 4 {
		t.Errorf("call 7: expected a fresh window with remaining 4, got %+v", v)
	}
}

// The call landing exactly on the limit is allowed; the next one is the first
// denial.
func TestLimiter_InclusiveBoundary(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLimiter(t, windowStart)
	policy := mustPolicy(t, "api", 3, time.Minute)

	for i := 0; i < 3; i++ {
		v, err := l.Check(ctx, policy, "user-1")
		if err != nil {
			t.Fatal(err)
		}
		if !v.Allowed {
			t.Fatalf("call %d should be allowed", i+1)
		}
	}

	v, err := l.Check(ctx, policy, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if v.Allowed {
		t.Error("call 4 should be the first denial")
	}
}

func TestLimiter_Isolation(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLimiter(t, windowStart)
	login := mustPolicy(t, "login", 1, time.Minute)
	reset := mustPolicy(t, "password-reset", 1, time.Minute)

	if v, _ := l.Check(ctx, login, "alice"); !v.Allowed {
		t.Fatal("alice's first login call should be allowed")
	}
	if v, _ := l.Check(ctx, login, "alice"); v.Allowed {
		t.Fatal("alice's second login call should be denied")
	}

	// A different identity under the same scope is unaffected.
	if v, _ := l.Check(ctx, login, "bob"); !v.Allowed {
		t.Error("bob must not be throttled by alice")
	}

	// The same identity under a different scope is unaffected.
	if v, _ := l.Check(ctx, reset, "alice"); !v.Allowed {
		t.Error("alice's reset scope must not share the login counter")
	}
}

// Denied calls within one window see a strictly decreasing retry hint. If the
// store reset the TTL on every increment the hint would snap back to a full
// period.
func TestLimiter_RetryAfterDecreases(t *testing.T) {
	ctx := context.Background()
	l, clock := newTestLimiter(t, windowStart)
	policy := mustPolicy(t, "api", 1, time.Minute)

	if v, _ := l.Check(ctx, policy, "user-1"); !v.Allowed {
		t.Fatal("first call should be allowed")
	}

	prev := time.Duration(1<<63 - 1)
	for i := 0; i < 5; i++ {
		clock.Advance(3 * time.Second)
		v, err := l.Check(ctx, policy, "user-1")
		if err != nil {
			t.Fatal(err)
		}
		if v.Allowed {
			t.Fatalf("denied call %d unexpectedly allowed", i+1)
		}
		if v.RetryAfter >= prev {
			t.Fatalf("retry after did not decrease: %s then %s", prev, v.RetryAfter)
		}
		prev = v.RetryAfter
	}
}

func TestLimiter_WindowReset(t *testing.T) {
	ctx := context.Background()
	l, clock := newTestLimiter(t, windowStart)
	policy := mustPolicy(t, "api", 2, time.Minute)

	l.Check(ctx, policy, "user-1")
	l.Check(ctx, policy, "user-1")
	if v, _ := l.Check(ctx, policy, "user-1"); v.Allowed {
		t.Fatal("expected denial before the boundary")
	}

	clock.Advance(time.Minute)

	v, err := l.Check(ctx, policy, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if !v.Allowed || v.Remaining != 1 {
		t.Errorf("expected the counter to restart at 1 after the boundary, got %+v", v)
	}
}

// K concurrent callers against a budget of N must end with exactly N allowed
// and K-N denied, no verdict lost or duplicated.
func TestLimiter_AtomicityUnderConcurrency(t *testing.T) {
	const (
		limit   = 10
		callers = 50
	)

	ctx := context.Background()
	l, _ := newTestLimiter(t, windowStart)
	policy := mustPolicy(t, "api", limit, time.Minute)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
		denied  int
	)

	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			v, err := l.Check(ctx, policy, "user-1")
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			mu.Lock()
			if v.Allowed {
				allowed++
			} else {
				denied++
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	if allowed != limit {
		t.Errorf("allowed = %d, want %d", allowed, limit)
	}
	if denied != callers-limit {
		t.Errorf("denied = %d, want %d", denied, callers-limit)
	}
}

func TestLimiter_ZeroValuePolicyRejected(t *testing.T) {
	l, _ := newTestLimiter(t, windowStart)

	_, err := l.Check(context.Background(), Policy{Scope: "oops"}, "user-1")
	if !errors.Is(err, ErrInvalidPolicy) {
		t.Errorf("expected ErrInvalidPolicy for a policy that skipped NewPolicy, got %v", err)
	}
}

func TestLimiter_IdentityWithDelimiterRejected(t *testing.T) {
	l, _ := newTestLimiter(t, windowStart)
	policy := mustPolicy(t, "api", 5, time.Minute)

	_, err := l.Check(context.Background(), policy, "user:42")
	if !errors.Is(err, ErrKeyCollision) {
		t.Errorf("expected ErrKeyCollision, got %v", err)
	}
}

func TestNewLimiter_RequiresStore(t *testing.T) {
	if _, err := NewLimiter(nil); err == nil {
		t.Error("expected an error for a nil store")
	}
}

func BenchmarkLimiter_Check(b *testing.B) {
	ctx := context.Background()
	store := NewMemoryStore()
	l, err := NewLimiter(store)
	if err != nil {
		b.Fatal(err)
	}
	policy, err := NewPolicy("bench", 1_000_000, time.Minute)
	if err != nil {
		b.Fatal(err)
	}

	for i := 0; i < b.N; i++ {
		l.Check(ctx, policy, "user-1")
	}
}
