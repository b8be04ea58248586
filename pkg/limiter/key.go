package limiter

import (
	"fmt"
	"strconv"
	"strings"
)

const keyDelimiter = ":"

// buildKey derives the counting key for one (scope, identity, window) triple:
//
//	scope:identity:window
//
// The store prepends its own namespace prefix. The construction must be
// byte-identical across processes, so it is plain concatenation with a
// delimiter the inputs are not allowed to contain; an identity carrying the
// delimiter is rejected rather than silently risking a cross-caller collision.
// Scopes are validated once, in NewPolicy.
func buildKey(scope, identity string, window int64) (string, error) {
	if strings.Contains(identity, keyDelimiter) {
		return "", fmt.Errorf("%w: identity %q contains %q", ErrKeyCollision, identity, keyDelimiter)
	}
	return scope + keyDelimiter + identity + keyDelimiter + strconv.FormatInt(window, 10), nil
}
