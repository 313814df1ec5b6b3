// Command server runs the conversational backend: a Gin HTTP API over a
// SQLite conversation store, answering chat messages through a local Ollama
// inference server.
//
// Startup order: env file, configuration, logging, tracing, database,
// inference client, router, HTTP server. Shutdown drains in-flight requests
// before closing the database and flushing traces.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vietchat/ollama-chat-backend/internal/config"
	httpapi "github.com/vietchat/ollama-chat-backend/internal/http"
	"github.com/vietchat/ollama-chat-backend/internal/observability"
	"github.com/vietchat/ollama-chat-backend/internal/ollama"
	"github.com/vietchat/ollama-chat-backend/internal/repo"
	"github.com/vietchat/ollama-chat-backend/internal/sysutil"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	version := sysutil.FirstNonEmpty(os.Getenv("VERSION"), "dev")

	ctx := context.Background()
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("db_path", cfg.DBPath).Msg("open database failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database failed")
	}

	llm := ollama.NewClient(ollama.Config{
		BaseURL: cfg.Ollama.BaseURL,
		Model:   cfg.Ollama.Model,
		GenTime: cfg.Ollama.GenerateTimeout,
		ProbeT:  cfg.Ollama.ProbeTimeout,
		ListT:   cfg.Ollama.ListTimeout,
	})
	if llm.CheckConnection(ctx) {
		log.Info().Str("model", llm.Model()).Str("base_url", cfg.Ollama.BaseURL).Msg("ollama reachable")
	} else {
		// The service still starts; chat answers degrade to fallback text.
		log.Warn().Str("base_url", cfg.Ollama.BaseURL).Msg("ollama unreachable at startup")
	}

	gin.SetMode(cfg.GinMode)
	engine := gin.New()
	httpapi.RegisterRoutes(engine, db, llm, llm, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("trace flush failed")
	}
	log.Info().Msg("server stopped")
}
