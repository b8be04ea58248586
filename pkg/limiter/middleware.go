package limiter

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// IdentityFunc derives the caller identity for a request. The limiter treats
// the result as an opaque string; it must not contain the key delimiter.
type IdentityFunc func(r *http.Request) string

// Middleware returns an http middleware enforcing policy on every request
// through it. A nil identity function falls back to ClientIP. Throttled
// requests get a 429 with a Retry-After header and a JSON body; the wrapped
// handler is not invoked.
func (g *Guard) Middleware(policy Policy, identity IdentityFunc) func(http.Handler) http.Handler {
	if identity == nil {
		identity = ClientIP
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			err := g.Protect(r.Context(), policy, identity(r), func(ctx context.Context) error {
				next.ServeHTTP(w, r.WithContext(ctx))
				return nil
			})
			if err == nil {
				return
			}

			var throttled *ThrottledError
			if errors.As(err, &throttled) {
				writeThrottled(w, throttled)
				return
			}

			// The wrapped handler never returns an error here, so anything
			// else is a wiring problem (bad identity, canceled request).
			g.logger.Error("rate limit check failed",
				zap.String("scope", policy.Scope),
				zap.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		})
	}
}

// ClientIP extracts the peer address from the usual proxy headers, falling
// back to the socket address. Colons in IPv6 literals are rewritten to dots so
// the result is always a valid counting identity.
func ClientIP(r *http.Request) string {
	if fwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return safeIdentity(strings.TrimSpace(fwd))
	}

	if real := strings.TrimSpace(r.Header.Get("X-Real-IP")); real != "" {
		return safeIdentity(real)
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err != nil {
		return safeIdentity(strings.TrimSpace(r.RemoteAddr))
	}
	return safeIdentity(host)
}

func safeIdentity(s string) string {
	return strings.ReplaceAll(s, keyDelimiter, ".")
}

func writeThrottled(w http.ResponseWriter, t *ThrottledError) {
	retry := int64(math.Ceil(t.RetryAfter.Seconds()))
	if retry < 1 {
		retry = 1
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Retry-After", strconv.FormatInt(retry, 10))
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":       "Rate limit exceeded. Please try again later.",
		"retry_after": retry,
	})
}
