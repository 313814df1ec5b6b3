package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func limitedRouter(rl *RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), rl.Handler())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func TestRateLimiter_AllowsWithinBurst(t *testing.T) {
	r := limitedRouter(NewRateLimiter(100, 5, KeyByUserOrIP()))

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		if w.Code != http.StatusNoContent {
			t.Fatalf("request %d within burst rejected: %d", i, w.Code)
		}
	}
}

func TestRateLimiter_RejectsBeyondBurst(t *testing.T) {
	// Effectively no replenishment within the test window.
	r := limitedRouter(NewRateLimiter(0.001, 1, KeyByUserOrIP()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("first request must pass: %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request must be limited: %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatalf("429 must carry Retry-After")
	}
	if !strings.Contains(w.Body.String(), "too_many_requests") {
		t.Fatalf("unexpected envelope: %s", w.Body.String())
	}
}

func TestRateLimiter_BucketsAreIndependent(t *testing.T) {
	rl := NewRateLimiter(0.001, 1, func(c *gin.Context) string {
		return c.GetHeader("X-Tenant")
	})
	r := gin.New()
	r.Use(rl.Handler())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	send := func(tenant string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("X-Tenant", tenant)
		r.ServeHTTP(w, req)
		return w.Code
	}

	if send("a") != http.StatusNoContent {
		t.Fatalf("tenant a first request rejected")
	}
	if send("a") != http.StatusTooManyRequests {
		t.Fatalf("tenant a second request must be limited")
	}
	if send("b") != http.StatusNoContent {
		t.Fatalf("tenant b must have its own bucket")
	}
}

func TestRateLimiter_EvictsIdleBuckets(t *testing.T) {
	rl := NewRateLimiter(1, 1, KeyByUserOrIP())
	rl.ttl = time.Millisecond

	rl.take("stale")
	time.Sleep(5 * time.Millisecond)

	// Force a sweep on the next lookup.
	rl.lookups = gcEvery - 1
	rl.take("fresh")

	rl.mu.Lock()
	_, staleAlive := rl.buckets["stale"]
	_, freshAlive := rl.buckets["fresh"]
	rl.mu.Unlock()

	if staleAlive {
		t.Fatalf("idle bucket survived the sweep")
	}
	if !freshAlive {
		t.Fatalf("fresh bucket must survive")
	}
}

func TestKeyByUserOrIP(t *testing.T) {
	keyFn := KeyByUserOrIP()

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	if key := keyFn(c); !strings.HasPrefix(key, "ip:") {
		t.Fatalf("anonymous requests must key by IP, got %q", key)
	}

	c.Set("userID", "u1")
	if key := keyFn(c); key != "user:u1" {
		t.Fatalf("authenticated requests must key by user, got %q", key)
	}
}
