// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// compression, CORS, security headers, authentication, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/vietchat/ollama-chat-backend/internal/config"
	"github.com/vietchat/ollama-chat-backend/internal/domain"
	"github.com/vietchat/ollama-chat-backend/internal/http/handlers"
	"github.com/vietchat/ollama-chat-backend/internal/http/middleware"
	"github.com/vietchat/ollama-chat-backend/internal/repo"
	"github.com/vietchat/ollama-chat-backend/internal/services"
)

// convRepoShim adapts the repository free functions to the
// services.ConversationRepo interface expected by the ConversationService.
// This keeps services decoupled from the concrete repo package while reusing
// existing functions.
type convRepoShim struct{}

// ListConversations proxies repo.ListConversations.
func (convRepoShim) ListConversations(ctx context.Context, db *gorm.DB, sessionID, userID string) ([]domain.Conversation, error) {
	return repo.ListConversations(ctx, db, sessionID, userID)
}

// ListAllConversations proxies repo.ListAllConversations.
func (convRepoShim) ListAllConversations(ctx context.Context, db *gorm.DB, userID string) ([]domain.Conversation, error) {
	return repo.ListAllConversations(ctx, db, userID)
}

// RateConversation proxies repo.RateConversation.
func (convRepoShim) RateConversation(ctx context.Context, db *gorm.DB, id, userID string, rating float64, feedback *string) error {
	return repo.RateConversation(ctx, db, id, userID, rating, feedback)
}

// DeleteSession proxies repo.DeleteSession.
func (convRepoShim) DeleteSession(ctx context.Context, db *gorm.DB, sessionID, userID string) (int64, error) {
	return repo.DeleteSession(ctx, db, sessionID, userID)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), rate limiting,
// CORS and security headers, health and metrics endpoints, and then mounts
// the public API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Rate limiter (per user/IP)
//  8. CORS, security headers, compression
//  9. Bearer-token auth on the API group (login/register stay open)
func RegisterRoutes(r *gin.Engine, db *gorm.DB, llm services.Responder, probe handlers.InferenceProbe, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 8) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Compress responses; transcripts and session lists shrink well.
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness (no inference probe; see the API health endpoint for that)
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Dependency injection: services ← repo/db/inference client
	chatSvc := &services.ChatService{DB: db, LLM: llm, MaxMessageRunes: cfg.MaxMessageRunes}
	convSvc := services.NewConversationService(db, convRepoShim{})
	authSvc := &services.AuthService{
		DB:          db,
		TokenSecret: cfg.Auth.JWTSecret,
		TokenTTL:    cfg.Auth.TokenTTL,
	}
	h := handlers.New(chatSvc, convSvc, authSvc, probe)

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath)

	// Credential endpoints stay open in every mode.
	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.Login)

	// Everything else honors the auth mode: tokens are mandatory when
	// cfg.Auth.Required, validated-if-presented otherwise.
	secured := api.Group("", middleware.Auth(cfg.Auth.JWTSecret, cfg.Auth.Required))
	{
		secured.POST("/chat", h.Chat)
		secured.GET("/history/:session_id", h.History)
		secured.GET("/sessions", h.Sessions)
		secured.POST("/rate", h.Rate)
		secured.GET("/new-session", h.NewSession)
		secured.DELETE("/session/:session_id", h.DeleteSession)

		secured.GET("/models", h.Models)
		secured.GET("/health", h.Health)

		secured.GET("/auth/me", h.Me)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
