package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func TestMetrics_RecordsRequests(t *testing.T) {
	r := gin.New()
	r.Use(Metrics())
	r.GET("/history/:session_id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/history/s1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("instrumented request failed: %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := w.Body.String()

	if !strings.Contains(body, "http_requests_total") {
		t.Fatalf("counter not exported")
	}
	// The path label must be the route template, not the raw URL.
	if !strings.Contains(body, "/history/:session_id") {
		t.Fatalf("path label must use the route template")
	}
	if strings.Contains(body, `path="/history/s1"`) {
		t.Fatalf("raw URL leaked into labels")
	}
}
