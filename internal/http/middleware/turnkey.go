// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements safe-retry support for POST /chat. Duplicate network
// sends of the same turn are a real hazard for a chat widget (flaky mobile
// connections, impatient users), and every duplicate that reaches the
// completion provider costs money. Clients convey a stable Idempotency-Key
// per turn; the middleware validates it, peeks the request body for the
// (businessId, sessionId) scope, and asks a user-defined lookup whether the
// turn was already processed. Downstream components can then:
//   - read the normalized key (GetTurnKey)
//   - detect replayed turns (IsReplay)
//   - bypass rate limiting when a replay is served (via an internal flag)
//
// Design goals:
//   - Keep transport concerns (validation, context stashing) in middleware.
//   - Decouple persistence via a narrow TurnReceiptLookup function type.
//   - The body peek restores c.Request.Body so handlers bind as usual.
package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderTurnKey is the canonical request header that clients use to convey
// an idempotency key for chat turns. The value is expected to be stable for
// a given turn so that retries can be safely deduplicated.
const HeaderTurnKey = "Idempotency-Key"

// Context keys used internally to stash turn-key state.
// These keys are intentionally unexported and referenced via accessor helpers.
const (
	ctxKeyTurnKey    = "turn.key"
	ctxKeyTurnReplay = "turn.replay" // bool: true when a stored receipt exists
	ctxKeyRateBypass = "rate.bypass" // bool: true to skip rate limiting
)

// GetTurnKey returns the validated idempotency key stored in the Gin context
// by TurnKeyValidator. The second return value indicates presence.
//
// Handlers should prefer this function over reading the header directly.
func GetTurnKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyTurnKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// IsReplay reports whether the middleware detected that this request would
// replay a previously completed turn (based on the key and body scope).
//
// When true, upstream components (e.g., handlers, rate limiters) may choose
// to short-circuit computation and return the previously persisted result.
func IsReplay(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyTurnReplay)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// TurnKeyOptions configures header validation behavior for TurnKeyValidator.
// TTL enforcement is intentionally out of scope here and should be
// implemented inside the provided lookup function.
type TurnKeyOptions struct {
	// MaxLen caps the accepted key length. Values <= 0 default to 200.
	MaxLen int
	// Pattern restricts allowed characters. If nil, a conservative RFC7230-like
	// token pattern is used: ^[A-Za-z0-9._~\-:]+$
	Pattern *regexp.Regexp
	// MaxPeekBytes caps how much of the body is read to extract the scope.
	// Values <= 0 default to 1 MiB.
	MaxPeekBytes int64
}

// TurnReceiptLookup answers whether a successful, still-valid receipt exists
// for (businessID, sessionID, key) at the given time. Implementations
// typically consult a turn_receipts row containing the previous transcript
// entry id and TTL window.
//
// Return exists=true when the prior turn can be replayed; return an error
// only for lookup failures (which should not block normal processing).
type TurnReceiptLookup func(ctx context.Context, businessID, sessionID, key string, now time.Time) (exists bool, err error)

// turnScope is the minimal body shape needed to scope a receipt lookup.
type turnScope struct {
	BusinessID string `json:"businessId"`
	SessionID  string `json:"sessionId"`
}

// TurnKeyValidator validates the Idempotency-Key header (if present), stashes
// it in the request context, and optionally checks for a prior completed turn
// via the supplied lookup. When a replay is detected, it marks the context so
// downstream components can:
//   - detect replay via IsReplay
//   - bypass rate limiting (internal flag checked by the RL middleware)
//
// Behavior:
//   - If header is absent: the middleware is a no-op.
//   - If header fails validation: responds 400 with a compact error body.
//   - If lookup indicates a replay: sets replay + rate-bypass flags.
//   - Always invokes the next handler unless validation fails.
//
// This middleware does not itself return a cached payload; handlers remain in
// control of how to serve replays (e.g., by fetching the receipt's transcript
// entry).
func TurnKeyValidator(opts TurnKeyOptions, lookup TurnReceiptLookup) gin.HandlerFunc {
	// Sensible defaults.
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pat := opts.Pattern
	if pat == nil {
		// RFC-7230-ish token + common safe chars.
		pat = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)
	}
	maxPeek := opts.MaxPeekBytes
	if maxPeek <= 0 {
		maxPeek = 1 << 20
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderTurnKey)
		if key == "" {
			// Nothing to validate or stash; proceed.
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"code":    "bad_idempotency_key",
				"message": "invalid Idempotency-Key",
			})
			return
		}

		// Stash the normalized key for downstream use.
		c.Set(ctxKeyTurnKey, key)

		// If we can detect a previously stored receipt, mark replay + rate
		// bypass. The scope lives in the JSON body; peek and restore it so
		// the handler can still bind.
		if lookup != nil && c.Request.Method == http.MethodPost && c.Request.Body != nil {
			scope, raw, err := peekScope(c.Request.Body, maxPeek)
			if err == nil {
				c.Request.Body = io.NopCloser(bytes.NewReader(raw))
				if scope.BusinessID != "" && scope.SessionID != "" {
					now := time.Now().UTC()
					if exists, _ := lookup(c.Request.Context(), scope.BusinessID, scope.SessionID, key, now); exists {
						c.Set(ctxKeyTurnReplay, true)
						c.Set(ctxKeyRateBypass, true) // let RL middleware skip limiting
					}
				}
			}
		}

		c.Next()
	}
}

// peekScope reads up to maxPeek bytes of body, extracts the receipt scope,
// and returns the raw bytes so the caller can restore the body.
func peekScope(body io.ReadCloser, maxPeek int64) (turnScope, []byte, error) {
	defer body.Close()
	raw, err := io.ReadAll(io.LimitReader(body, maxPeek))
	if err != nil {
		return turnScope{}, nil, err
	}
	var s turnScope
	// Malformed JSON is the handler's problem; the scope just stays empty.
	_ = json.Unmarshal(raw, &s)
	return s, raw, nil
}
