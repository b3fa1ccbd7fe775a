// This file implements RedactingLogger, a structured HTTP access logger that
// scrubs obvious PII from request metadata before emitting logs. Technician
// rosters carry phone numbers and email addresses, and those routinely show
// up in query filters, so the default access logger can be swapped for this
// one via LOG_REDACT.
//
// Behavior:
//   - Never logs request or response bodies
//   - Redacts emails, phone numbers, UUIDs, and "local-" temp ids from the
//     query string and header values
//   - Fully masks sensitive headers (Authorization, Cookie, Set-Cookie,
//     X-User-ID, Idempotency-Key, plus any extras from RedactOptions)
//
// Security note: redaction reduces but does not eliminate the risk of PII
// leaking to logs. Clients should still avoid putting identifiers in query
// strings unless necessary.

package middleware

import (
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// RedactOptions configures additional scrub behavior for RedactingLogger.
//
// MaskHeaders lists extra HTTP header names whose values are replaced with
// "[REDACTED]" wholesale. Matching is case-insensitive and merged with the
// built-in sensitive set.
type RedactOptions struct {
	MaskHeaders []string
}

// Patterns are compiled once at package init. UUIDs must be redacted before
// phone numbers so the phone pattern cannot match a UUID's digit segments,
// and temp ids before plain UUIDs so the "local-" prefix is scrubbed with
// the id instead of surviving on its own.
var (
	redactTempIDRE = regexp.MustCompile(`(?i)\blocal-[0-9a-f]{8}\-[0-9a-f]{4}\-[1-5][0-9a-f]{3}\-[89ab][0-9a-f]{3}\-[0-9a-f]{12}\b`)
	redactUUIDRE   = regexp.MustCompile(`(?i)\b[0-9a-f]{8}\-[0-9a-f]{4}\-[1-5][0-9a-f]{3}\-[89ab][0-9a-f]{3}\-[0-9a-f]{12}\b`)
	redactEmailRE  = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	// Digits-only phone pattern. Matches "+237 699 12 34 56", "699123456",
	// "(237) 699-1234" style numbers without touching hex strings.
	redactPhoneRE = regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{2,4}[ .-]?\d{2,4}\b`)
)

func redactPII(s string) string {
	if s == "" {
		return s
	}
	out := redactTempIDRE.ReplaceAllString(s, "[REDACTED:temp_id]")
	out = redactUUIDRE.ReplaceAllString(out, "[REDACTED:id]")
	out = redactEmailRE.ReplaceAllString(out, "[REDACTED:email]")
	out = redactPhoneRE.ReplaceAllString(out, "[REDACTED:phone]")
	return out
}

// RedactingLogger returns a Gin middleware that logs HTTP requests with
// sensitive values scrubbed. It is a drop-in replacement for Logger: same
// fields, same severity mapping (INFO, WARN for 4xx, ERROR for 5xx), plus a
// scrubbed query string and header map.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	maskHeaders := map[string]struct{}{
		"authorization":   {},
		"cookie":          {},
		"set-cookie":      {},
		"x-user-id":       {},
		"idempotency-key": {},
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			maskHeaders[h] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		start := time.Now()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		safeQuery := redactPII(c.Request.URL.RawQuery)

		safeHeaders := make(map[string]string, len(c.Request.Header))
		for k, vv := range c.Request.Header {
			if _, ok := maskHeaders[strings.ToLower(k)]; ok {
				safeHeaders[k] = "[REDACTED]"
				continue
			}
			safeHeaders[k] = redactPII(strings.Join(vv, ", "))
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
