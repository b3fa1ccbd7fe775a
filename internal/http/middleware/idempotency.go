// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides idempotent-resubmission support for unsafe endpoints.
// Clients send an Idempotency-Key header with report creations; a resubmission
// of the same key within its TTL must return the original resource instead of
// creating a duplicate. The actual key bookkeeping lives in the service layer;
// the middleware's job is to recognize replays early and mark them for
// rate-limit bypass, so a client retrying a timed-out request is never pushed
// into 429 territory by its own retries.
package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/henrimbassi12/gulfmaintain-backend/internal/repo"
)

const (
	// ctxKeyRateBypass marks a request as an idempotent replay; the rate
	// limiter skips such requests.
	ctxKeyRateBypass = "rateBypass"
	// idempotencyHeader is the client-supplied resubmission key.
	idempotencyHeader = "Idempotency-Key"
	// userIDHeader identifies the calling user for idempotency scoping.
	userIDHeader = "X-User-ID"
)

// IdempotencyKey returns the trimmed Idempotency-Key header, or "".
func IdempotencyKey(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(idempotencyHeader))
}

// UserID returns the caller identity used to scope idempotency keys and
// rate-limit buckets: the X-User-ID header when present, the client IP
// otherwise. The value is cached in the Gin context under "userID".
func UserID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	id := strings.TrimSpace(c.GetHeader(userIDHeader))
	if id == "" {
		id = c.ClientIP()
	}
	c.Set("userID", id)
	return id
}

// IdempotencyGate recognizes replays of completed POST requests. When the
// (user, Idempotency-Key) tuple already has a non-expired record, the request
// is marked for rate-limit bypass; the handler then serves the stored
// resource. Requests without a key pass through untouched.
//
// Install this before the rate limiter so replays are exempt from limiting.
func IdempotencyGate(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}
		key := IdempotencyKey(c)
		if key == "" {
			c.Next()
			return
		}
		userID := UserID(c)
		if _, err := repo.GetIdempotency(c.Request.Context(), db, userID, key, time.Now().UTC()); err == nil {
			c.Set(ctxKeyRateBypass, true)
		}
		c.Next()
	}
}
