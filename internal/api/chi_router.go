// Quillpress - Content Publishing Platform API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quillpress

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/tomtom215/quillpress/docs" // registers the OpenAPI document
	"github.com/tomtom215/quillpress/internal/auth"
	"github.com/tomtom215/quillpress/internal/middleware"
	"github.com/tomtom215/quillpress/internal/ratelimit"
	"github.com/tomtom215/quillpress/internal/session"
)

// RouterConfig holds transport settings for the router.
type RouterConfig struct {
	Chi         *ChiMiddlewareConfig
	Session     session.MiddlewareConfig
	CSRFEnabled bool
}

// Router sets up HTTP routes using the Chi router.
type Router struct {
	handler       *Handler
	auth          *auth.Middleware
	csrf          *auth.CSRFGuard
	guard         *ratelimit.Guard
	chiMiddleware *ChiMiddleware
	sessionConfig session.MiddlewareConfig
	csrfEnabled   bool
}

// NewRouter wires the handler and the gate components into a router.
func NewRouter(handler *Handler, guard *ratelimit.Guard, cfg RouterConfig) *Router {
	return &Router{
		handler:       handler,
		auth:          auth.NewMiddleware(handler.gate, WriteError),
		csrf:          handler.csrf,
		guard:         guard,
		chiMiddleware: NewChiMiddleware(cfg.Chi),
		sessionConfig: cfg.Session,
		csrfEnabled:   cfg.CSRFEnabled,
	}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	h := router.handler
	r := chi.NewRouter()

	// ========================
	// Global Middleware Stack
	// ========================
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.AccessLog)
	r.Use(middleware.PrometheusMetrics)
	r.Use(router.chiMiddleware.CORS()) // CORS must be global to handle OPTIONS preflight

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteNotFound(w, r, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).Error(http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "method not allowed")
	})

	// ========================
	// Observability
	// ========================
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
	))

	// ========================
	// Health Endpoints
	// ========================
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(middleware.SecurityHeaders)
		r.Get("/", h.Health)
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})

	// ========================
	// Gated API
	// ========================
	r.Group(func(r chi.Router) {
		r.Use(middleware.SecurityHeaders)
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(session.Middleware(router.sessionConfig))
		if router.csrfEnabled {
			r.Use(router.csrf.Protect(WriteError))
		}

		r.Route("/api/v1/auth", func(r chi.Router) {
			r.Get("/csrf", h.CSRFToken)

			r.With(router.guard.Protect(ratelimit.ActionLogin)).Post("/login", h.Login)
			r.With(router.guard.Protect(ratelimit.ActionRegister)).Post("/register", h.Register)
			r.With(router.guard.Protect(ratelimit.ActionPasswordReset)).Post("/password/forgot", h.ForgotPassword)
			r.With(router.guard.Protect(ratelimit.ActionPasswordReset)).Post("/password/reset", h.ResetPassword)
			r.With(router.guard.Protect(ratelimit.ActionEmailVerification)).Post("/email/verify", h.VerifyEmail)
			r.With(router.guard.Protect(ratelimit.ActionResendVerification)).Post("/email/resend", h.ResendVerification)

			r.With(router.auth.RequireAuth).Post("/refresh", h.Refresh)
			r.With(router.auth.RequireAuth).Get("/me", h.Me)
		})

		r.Route("/api/v1/users", func(r chi.Router) {
			r.With(router.auth.OptionalAuth).Get("/{id}", h.GetUser)
			r.With(
				router.guard.Protect(ratelimit.ActionPasswordChange),
				router.auth.RequireAuth,
				router.auth.RequireVerifiedEmail,
			).Put("/{id}/password", h.UpdatePassword)
		})
	})

	return r
}
