package middleware

import (
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Lead capture means chat traffic carries emails and phone numbers by
// design, so the access log scrubs them before anything is written.
//
// Order matters when applying the patterns: UUIDs first, so the loose phone
// pattern cannot match the digit runs inside a UUID, then emails, then
// phones. Bodies are never logged at all.
var (
	redactUUIDRe  = regexp.MustCompile(`(?i)\b[0-9a-f]{8}\-[0-9a-f]{4}\-[1-5][0-9a-f]{3}\-[89ab][0-9a-f]{3}\-[0-9a-f]{12}\b`)
	redactEmailRe = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	redactPhoneRe = regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`)
)

// scrubPII replaces UUIDs, emails, and phone numbers in s with typed
// redaction markers.
func scrubPII(s string) string {
	if s == "" {
		return s
	}
	s = redactUUIDRe.ReplaceAllString(s, "[REDACTED:id]")
	s = redactEmailRe.ReplaceAllString(s, "[REDACTED:email]")
	s = redactPhoneRe.ReplaceAllString(s, "[REDACTED:phone]")
	return s
}

// RedactOptions lists extra header names (case-insensitive) whose values are
// fully masked on top of the built-in Authorization, Cookie, and Set-Cookie.
type RedactOptions struct {
	MaskHeaders []string
}

// RedactingLogger logs method, path, scrubbed query string, scrubbed request
// headers, status, response size, and latency as structured JSON. Severity
// tracks the status: info for 2xx/3xx, warn for 4xx, error for 5xx.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	masked := map[string]struct{}{
		"authorization": {},
		"cookie":        {},
		"set-cookie":    {},
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			masked[h] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		start := time.Now()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		safeQuery := scrubPII(c.Request.URL.RawQuery)

		safeHeaders := make(map[string]string, len(c.Request.Header))
		for k, vv := range c.Request.Header {
			if _, hide := masked[strings.ToLower(k)]; hide {
				safeHeaders[k] = "[REDACTED]"
				continue
			}
			safeHeaders[k] = scrubPII(strings.Join(vv, ", "))
		}

		c.Next()

		status := c.Writer.Status()
		reqID := c.Writer.Header().Get(requestIDHeader)
		if reqID == "" {
			reqID = c.GetHeader(requestIDHeader)
		}

		ev := log.Info()
		switch {
		case status >= 500:
			ev = log.Error()
		case status >= 400:
			ev = log.Warn()
		}

		ev.
			Str("request_id", reqID).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", safeQuery).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", safeHeaders).
			Msg("http_request")
	}
}
