// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements a lightweight, in-memory, fixed-window rate limiter
// with per-identity counters and opportunistic garbage collection. Each key
// gets a counter and a window start timestamp; the counter resets when the
// window elapses. The check is constant-time, never blocks, and never
// queues, which suits an abuse guard in front of a paid completion backend.
//
// Features:
//   - Per-key fixed windows (N requests per window duration)
//   - Pluggable identity function (client IP by default)
//   - Best-effort cleanup of idle windows to bound memory
//   - Seamless bypass for idempotent replays (when paired with TurnKeyValidator)
//
// Notes:
//   - This limiter is process-local. For horizontally scaled deployments,
//     prefer a distributed limiter (e.g., Redis-backed) to enforce global
//     limits; per-instance windows are a documented limitation here.
//   - The limiter is intended for edge-level abuse control and cost
//     protection; it is not an authorization mechanism.
package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// keyFunc selects the identity used to key a rate-limit window.
//
// Implementations should return a stable string for the duration of a request
// (e.g., "ip:<addr>"). The returned key is used to look up the corresponding
// window counter.
type keyFunc func(*gin.Context) string

// KeyByClientIP returns a keyFunc that identifies callers by client IP.
// The chat widget is unauthenticated, so the IP is the only stable identity
// available at the edge.
func KeyByClientIP() keyFunc {
	return func(c *gin.Context) string {
		return "ip:" + c.ClientIP()
	}
}

// window is one key's fixed-window state: how many requests were counted
// since start, and when the window began.
type window struct {
	count int
	start time.Time
}

// RateLimiter implements a per-key fixed-window rate limiter.
//
// Windows are created on demand and stored in an internal map guarded by a
// mutex. Stale windows are evicted via opportunistic cleanup during lookups
// to keep memory usage bounded.
//
// This type is safe for concurrent use.
type RateLimiter struct {
	limit  int
	period time.Duration
	keyFn  keyFunc

	mu      sync.Mutex
	windows map[string]*window

	cleanupN uint64
}

// NewRateLimiter constructs a RateLimiter allowing at most limit requests
// per period for each key produced by keyFn.
//
//   - limit:  maximum requests per window; values <= 0 are coerced to 1.
//   - period: window duration; values <= 0 default to one minute.
//   - keyFn:  function that maps a request to a window identity.
//
// The returned limiter is ready to be installed as middleware via Handler().
func NewRateLimiter(limit int, period time.Duration, keyFn keyFunc) *RateLimiter {
	if limit <= 0 {
		limit = 1
	}
	if period <= 0 {
		period = time.Minute
	}
	return &RateLimiter{
		limit:   limit,
		period:  period,
		keyFn:   keyFn,
		windows: make(map[string]*window),
	}
}

// Allow records one request for key at time now and reports whether it fits
// in the current window. Exposed for tests; Handler() is the usual entry.
func (rl *RateLimiter) Allow(key string, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Opportunistic cleanup after a threshold of lookups, then reset the
	// counter. Run it BEFORE touching the requested window so a stale entry
	// can be evicted even when it is the one being fetched.
	rl.cleanupN++
	if rl.cleanupN >= 5000 {
		for k, w := range rl.windows {
			if now.Sub(w.start) >= 2*rl.period {
				delete(rl.windows, k)
			}
		}
		rl.cleanupN = 0
	}

	w, ok := rl.windows[key]
	if !ok || now.Sub(w.start) >= rl.period {
		rl.windows[key] = &window{count: 1, start: now}
		return true
	}
	if w.count >= rl.limit {
		return false
	}
	w.count++
	return true
}

// IsRateBypass reports whether TurnKeyValidator marked this request for
// rate-limit bypass (i.e., it is a replay of a previously completed turn).
//
// When true, Handler() will skip limiting so replays are served without
// consuming window budget.
func IsRateBypass(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyRateBypass) // set by TurnKeyValidator
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Handler returns a Gin middleware that enforces per-key fixed-window limits.
//
// Behavior:
//   - If IsRateBypass(c) is true (idempotent replay), limiting is skipped.
//   - Otherwise, the request is counted against the key's current window. If
//     it fits, the request proceeds; if not, a 429 response is returned with
//     a compact JSON body and a Retry-After header pointing at the window's
//     remaining time.
//
// The middleware emits:
//
//	HTTP/1.1 429 Too Many Requests
//	{
//	  "request_id": "<uuid>",
//	  "code":       "rate_limited",
//	  "message":    "rate limit exceeded"
//	}
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}

		now := time.Now()
		if rl.Allow(rl.keyFn(c), now) {
			c.Next()
			return
		}

		retry := rl.retryAfter(rl.keyFn(c), now)
		c.Header("Retry-After", strconv.Itoa(retry))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": c.Writer.Header().Get("X-Request-ID"),
			"code":       "rate_limited",
			"message":    "rate limit exceeded",
		})
	}
}

// retryAfter returns the whole seconds until key's window resets, at least 1.
func (rl *RateLimiter) retryAfter(key string, now time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.windows[key]
	if !ok {
		return 1
	}
	rem := rl.period - now.Sub(w.start)
	if rem <= 0 {
		return 1
	}
	secs := int(rem / time.Second)
	if rem%time.Second != 0 {
		secs++
	}
	if secs < 1 {
		secs = 1
	}
	return secs
}
