package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tijzi/backend/internal/http/handlers"
	"github.com/tijzi/backend/internal/middleware"
)

// RouterConfig collects what NewRouter mounts. Nil optional fields leave their routes out.
type RouterConfig struct {
	Auth          *handlers.AuthHandler
	Logger        *slog.Logger
	AllowedOrigin string

	// Verifier enables GET /me when session tokens are signed
	Verifier middleware.TokenVerifier
	// Debug enables /debug/*
	Debug *handlers.DebugHandler
	// Metrics is served on /metrics
	Metrics http.Handler
}

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(cfg RouterConfig) *chi.Mux {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	origin := cfg.AllowedOrigin
	if origin == "" {
		origin = "*"
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.NewCORSMiddleware(origin))

	health := handlers.NewHealthHandler()
	r.Get("/", health.HandleRoot)
	r.Get("/health", health.ServeHTTP)
	r.Get("/test", health.HandleTest)
	r.Post("/ping", health.HandlePing)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/send-code", cfg.Auth.HandleSendCode)
		r.Post("/verify-code", cfg.Auth.HandleVerifyCode)
	})

	if cfg.Verifier != nil {
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(cfg.Verifier))
			r.Get("/me", cfg.Auth.HandleMe)
		})
	}

	if cfg.Debug != nil {
		r.Route("/debug", func(r chi.Router) {
			r.Get("/otps", cfg.Debug.HandleOtps)
			r.Get("/channels", cfg.Debug.HandleChannels)
		})
	}

	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics)
	}

	return r
}
