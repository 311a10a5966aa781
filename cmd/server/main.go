package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/telfield/fieldcollect/internal/api"
	"github.com/telfield/fieldcollect/internal/audit"
	"github.com/telfield/fieldcollect/internal/auth"
	"github.com/telfield/fieldcollect/internal/config"
	"github.com/telfield/fieldcollect/internal/credentials"
	"github.com/telfield/fieldcollect/internal/dataset"
	"github.com/telfield/fieldcollect/internal/ledger"
	"github.com/telfield/fieldcollect/internal/metrics"
	"github.com/telfield/fieldcollect/internal/websocket"
	"github.com/telfield/fieldcollect/pkg/middleware"
)

func main() {
	// Configure logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Set log level
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("auth_mode", string(cfg.AuthMode)).
		Str("data_dir", cfg.DataDir).
		Msg("starting fieldcollect server")

	// Credential files are provisioned out of band; refusing to start
	// without them beats serving a dashboard nobody can log into
	creds, err := credentials.Load(cfg.CredentialsDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load credential files")
	}

	var issuer *auth.Issuer
	if cfg.AuthMode == config.AuthModeLocal {
		issuer, err = auth.NewIssuer(cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create token issuer")
		}
	}

	verifier, err := auth.NewVerifier(cfg, issuer, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create token verifier")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Stores
	store, err := dataset.NewStore(cfg.DataDir, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create dataset store")
	}

	led, err := ledger.New(ctx, cfg.DataDir, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create contact ledger")
	}

	auditLog, err := audit.NewLog(cfg.DataDir, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create audit log")
	}

	// WebSocket hub for refresh notices
	hub := websocket.NewHub(log.Logger)
	go hub.Run()
	wsHandler := websocket.NewHandler(hub, cfg, log.Logger)

	// HTTP handlers
	loginHandler := api.NewLoginHandler(creds, issuer, log.Logger)
	dashboardHandler := api.NewDashboardHandler(store, led, cfg, log.Logger)
	contactHandler := api.NewContactHandler(store, led, hub, log.Logger)
	uploadHandler := api.NewUploadHandler(store, auditLog, hub, log.Logger)
	auditHandler := api.NewAuditHandler(auditLog, log.Logger)

	// Create router
	r := chi.NewRouter()

	// Add middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(log.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Public routes
	r.Get("/health", healthHandler)
	r.Get("/metrics", metrics.Get().Handler())
	r.Post("/api/login", loginHandler.Login)

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(verifier.Middleware)

		r.Get("/api/dashboard", dashboardHandler.Dashboard)
		r.Post("/api/contacts", contactHandler.Record)
		r.Get("/ws", wsHandler.ServeHTTP)

		// Supervisors and management upload datasets
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireSupervisor)
			r.Post("/api/uploads/{source}", uploadHandler.Upload)
		})

		// Management reads the upload audit trail
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireManagement)
			r.Get("/api/uploads/audit", auditHandler.List)
		})
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Msgf("server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	cancel()

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Attempt graceful shutdown
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

// healthHandler handles health check requests
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","service":"fieldcollect"}`)
}
