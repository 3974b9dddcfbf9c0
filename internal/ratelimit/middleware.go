// Quillpress - Content Publishing Platform API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quillpress

package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync/atomic"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"

	"github.com/tomtom215/quillpress/internal/apierr"
	"github.com/tomtom215/quillpress/internal/logging"
	"github.com/tomtom215/quillpress/internal/session"
)

type contextKey string

const (
	clientIDContextKey contextKey = "ratelimit_client_id"
	outcomeContextKey  contextKey = "ratelimit_outcome"
)

// clientSessionPrefix marks synthetic per-client sessions.
const clientSessionPrefix = "client:"

// ClientIDFromContext returns the client identifier resolved by Guard.
func ClientIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(clientIDContextKey).(string); ok {
		return id
	}
	return ""
}

// outcome lets a handler overrule the status-based classification.
type outcome struct {
	failed atomic.Bool
}

// MarkFailed makes Guard count the current attempt as a failure whatever
// status the handler writes. Endpoints that always answer 2xx so as not to
// reveal whether an account exists use it for unknown addresses.
// Outside a protected handler it does nothing.
func MarkFailed(ctx context.Context) {
	if o, ok := ctx.Value(outcomeContextKey).(*outcome); ok {
		o.failed.Store(true)
	}
}

// ErrorWriter renders an error response.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// GuardConfig configures a Guard.
type GuardConfig struct {
	// ClientScoped keys records by client address alone instead of by the
	// request's session, so discarding the session cookie does not reset
	// the counters.
	ClientScoped bool

	// WriteError renders blocked responses. Defaults to a JSON 429.
	WriteError ErrorWriter
}

// Guard wraps handlers of one throttled action.
type Guard struct {
	limiter *Limiter
	clients *ClientResolver
	cfg     GuardConfig
}

// NewGuard returns a Guard.
func NewGuard(limiter *Limiter, clients *ClientResolver, cfg GuardConfig) *Guard {
	if cfg.WriteError == nil {
		cfg.WriteError = writeRateLimited
	}
	return &Guard{limiter: limiter, clients: clients, cfg: cfg}
}

func (g *Guard) sessionFor(r *http.Request, clientID string) string {
	if !g.cfg.ClientScoped {
		if id, ok := session.IDFromContext(r.Context()); ok {
			return id
		}
	}
	return clientSessionPrefix + clientID
}

// Protect checks the limiter before next runs and records the outcome from
// the status next writes: below 400 is a success, 4xx a failure. Server
// errors leave the attempt pending. MarkFailed overrides a success.
//
// A failing session store does not lock users out: the request proceeds
// and the failure is logged.
func (g *Guard) Protect(action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			clientID := g.clients.ClientID(r)
			sessionID := g.sessionFor(r, clientID)
			o := &outcome{}
			ctx = context.WithValue(ctx, clientIDContextKey, clientID)
			ctx = context.WithValue(ctx, outcomeContextKey, o)
			r = r.WithContext(ctx)

			d, err := g.limiter.Check(ctx, sessionID, action, clientID)
			if err != nil {
				storeErrorsTotal.WithLabelValues(action, "check").Inc()
				logging.Ctx(ctx).Error().Err(err).Str("action", action).Msg("Rate limit check failed")
				next.ServeHTTP(w, r)
				return
			}
			if !d.Allowed {
				g.cfg.WriteError(w, r, d.Err(action))
				return
			}

			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if o.failed.Load() && status < http.StatusBadRequest {
				status = http.StatusBadRequest
			}
			g.recordOutcome(ctx, status, sessionID, action, clientID)
		})
	}
}

func (g *Guard) recordOutcome(ctx context.Context, status int, sessionID, action, clientID string) {
	if status == 0 {
		status = http.StatusOK
	}

	var err error
	switch {
	case status < http.StatusBadRequest:
		err = g.limiter.RecordSuccess(ctx, sessionID, action, clientID)
	case status < http.StatusInternalServerError:
		_, err = g.limiter.RecordFailure(ctx, sessionID, action, clientID)
	default:
		return
	}
	if err != nil {
		storeErrorsTotal.WithLabelValues(action, "record").Inc()
		logging.Ctx(ctx).Error().Err(err).Str("action", action).Int("status", status).Msg("Failed to record rate limit outcome")
	}
}

// writeRateLimited is the fallback 429 renderer.
func writeRateLimited(w http.ResponseWriter, _ *http.Request, err error) {
	var rl *apierr.RateLimitedError
	if !errors.As(err, &rl) {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.FormatInt(rl.RetryAfterSeconds(), 10))
	w.WriteHeader(http.StatusTooManyRequests)

	body := map[string]any{
		"code":          rl.Code(),
		"message":       rl.Error(),
		"retry_after":   rl.RetryAfterSeconds(),
		"blocked_until": rl.BlockedUntil.Unix(),
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Error().Err(err).Msg("Error encoding rate limit response")
	}
}
