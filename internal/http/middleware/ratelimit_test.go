package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

func TestKeyByUserOrIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = net.JoinHostPort("198.51.100.23", "4321")

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = req

	// IP fallback when no user identity is set.
	key := KeyByUserOrIP()(c)
	if !strings.HasPrefix(key, "ip:") || !strings.Contains(key, "198.51.100.23") {
		t.Fatalf("expected ip-based key, got %q", key)
	}

	// User identity wins once present.
	c.Set("userID", "tech-42")
	if got := KeyByUserOrIP()(c); got != "user:tech-42" {
		t.Fatalf("expected user-based key, got %q", got)
	}
}

func TestNewRateLimiter_BurstCoercionAndVisitorReuse(t *testing.T) {
	// burst <= 0 is coerced to 1
	rl := NewRateLimiter(2.0, -3, KeyByUserOrIP())
	if rl.burst != 1 {
		t.Fatalf("burst coercion failed, got %d", rl.burst)
	}

	lim := rl.getVisitor("depot-a")
	if lim == nil {
		t.Fatalf("expected limiter")
	}
	// Same key must hand back the same bucket.
	if got := rl.getVisitor("depot-a"); got != lim {
		t.Fatalf("expected same limiter instance to be reused")
	}
}

func TestRateLimiter_OpportunisticGC(t *testing.T) {
	rl := NewRateLimiter(1.0, 1, KeyByUserOrIP())
	rl.ttl = time.Nanosecond

	// Seed a stale visitor and push the lookup counter to the threshold so
	// the next getVisitor runs GC before touching anything.
	rl.mu.Lock()
	rl.visitors["stale"] = &visitor{
		limiter:  rate.NewLimiter(1, 1),
		lastSeen: time.Now().Add(-time.Hour),
	}
	rl.cleanupN = 4999
	rl.mu.Unlock()

	_ = rl.getVisitor("fresh")

	rl.mu.Lock()
	_, staleLeft := rl.visitors["stale"]
	_, freshThere := rl.visitors["fresh"]
	rl.mu.Unlock()

	if staleLeft {
		t.Fatalf("stale visitor survived GC")
	}
	if !freshThere {
		t.Fatalf("fresh visitor missing after GC")
	}
}

func TestIsRateBypass(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	if IsRateBypass(c) {
		t.Fatalf("bypass must default to false")
	}
	c.Set(ctxKeyRateBypass, true)
	if !IsRateBypass(c) {
		t.Fatalf("expected bypass after gate marks the request")
	}
	// A non-bool value reads as false instead of panicking.
	c.Set(ctxKeyRateBypass, "yes")
	if IsRateBypass(c) {
		t.Fatalf("non-bool value must read as false")
	}
}

func TestRateLimiter_Handler_AllowDenyBypass(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// rps=1 burst=1: first request passes, the immediate second is denied.
	rl := NewRateLimiter(1.0, 1, KeyByUserOrIP())

	r := gin.New()
	r.Use(func(c *gin.Context) { c.Header("X-Request-ID", "rid-1"); c.Next() })
	r.Use(rl.Handler())
	r.GET("/reports", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	w1 := httptest.NewRecorder()
	r.ServeHTTP(w1, httptest.NewRequest(http.MethodGet, "/reports", nil))
	if w1.Code != http.StatusOK {
		t.Fatalf("first request should pass, got %d", w1.Code)
	}

	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/reports", nil))
	if w2.Code != http.StatusTooManyRequests {
		t.Fatalf("second request should be limited, got %d", w2.Code)
	}
	if got := w2.Header().Get("Retry-After"); got != "1" {
		t.Fatalf("expected Retry-After=1, got %q", got)
	}
	var body map[string]any
	if err := json.Unmarshal(w2.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body["code"] != "rate_limited" || body["message"] != "rate limit exceeded" {
		t.Fatalf("unexpected JSON body: %v", body)
	}
	if body["request_id"] != "rid-1" {
		t.Fatalf("envelope missing request id: %v", body)
	}

	// A replay flagged by the gate skips the (exhausted) bucket entirely.
	rBypass := gin.New()
	rBypass.Use(func(c *gin.Context) { c.Set(ctxKeyRateBypass, true); c.Next() })
	rBypass.Use(rl.Handler())
	rBypass.GET("/reports", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	w3 := httptest.NewRecorder()
	rBypass.ServeHTTP(w3, httptest.NewRequest(http.MethodGet, "/reports", nil))
	if w3.Code != http.StatusOK {
		t.Fatalf("bypassed replay should pass, got %d", w3.Code)
	}
}
