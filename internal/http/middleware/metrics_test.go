package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_CountersInflightAndPathFallback(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(Metrics())

	// Body-writing route: size >= 0, so the size histogram records it.
	r.GET("/equipments", func(c *gin.Context) {
		c.String(http.StatusOK, "[]")
	})
	// Status-only route: size stays -1 and the size histogram is skipped.
	r.GET("/drained", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	// Baselines guard against other tests touching the shared collectors.
	baseOK := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/equipments", "200"))
	base404 := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/does-not-exist", "404"))

	for _, tc := range []struct {
		path string
		code int
	}{
		{"/equipments", http.StatusOK},
		{"/does-not-exist", http.StatusNotFound}, // no route: raw URL becomes the path label
		{"/drained", http.StatusNoContent},
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.path, nil))
		if w.Code != tc.code {
			t.Fatalf("GET %s -> %d, want %d", tc.path, w.Code, tc.code)
		}
	}

	if got := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/equipments", "200")); got != baseOK+1 {
		t.Fatalf("counter /equipments 200 = %v; want %v", got, baseOK+1)
	}
	if got := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/does-not-exist", "404")); got != base404+1 {
		t.Fatalf("counter 404 fallback = %v; want %v", got, base404+1)
	}

	// Nothing is processing once the requests return.
	if inflight := testutil.ToFloat64(httpInflight); inflight != 0 {
		t.Fatalf("httpInflight = %v; want 0", inflight)
	}

	// Latency and size observations are timing/size dependent; the three
	// requests above exercise both the observe and the skip (-1) paths.
}
