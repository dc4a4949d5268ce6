package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/Varun5711/tokenqueue/internal/logger"
	"github.com/Varun5711/tokenqueue/internal/middleware"
	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterConfig struct {
	Auth        *AuthHandler
	Users       *UserHandler
	RequireAuth func(http.Handler) http.Handler
	// LoginLimit is optional.
	LoginLimit  func(http.Handler) http.Handler
	// Ready reports whether the backing stores are reachable. Optional.
	Ready       func(ctx context.Context) error
	Log         *logger.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimid.RequestID)
	r.Use(chimid.RealIP)
	r.Use(middleware.RequestLogger(cfg.Log))
	r.Use(chimid.Recoverer)
	r.Use(middleware.Metrics)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := cfg.Ready(ctx); err != nil {
				cfg.Log.Warn("Readiness check failed: %v", err)
				respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(chimid.AllowContentType("application/json"))

		r.Post("/users", cfg.Users.CreateUser)
		r.With(cfg.RequireAuth).Get("/users/{id}", cfg.Users.GetUser)

		r.Route("/auth", func(r chi.Router) {
			login := http.Handler(http.HandlerFunc(cfg.Auth.Login))
			if cfg.LoginLimit != nil {
				login = cfg.LoginLimit(login)
			}
			r.Method(http.MethodPost, "/login", login)
			r.Post("/validate-token", cfg.Auth.ValidateToken)
			r.With(cfg.RequireAuth).Delete("/token", cfg.Auth.RevokeToken)
		})
	})

	return r
}
