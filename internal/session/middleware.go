// Quillpress - Content Publishing Platform API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quillpress

package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"
)

type contextKey string

const idContextKey contextKey = "session_id"

// idBytes is the entropy of a generated session ID (hex-encoded to 64 chars).
const idBytes = 32

// MiddlewareConfig configures the session cookie.
type MiddlewareConfig struct {
	CookieName   string
	HeaderName   string // optional, takes priority over the cookie
	TTL          time.Duration
	CookiePath   string
	CookieSecure bool
	SameSite     http.SameSite
}

// DefaultMiddlewareConfig returns the cookie defaults.
func DefaultMiddlewareConfig() MiddlewareConfig {
	return MiddlewareConfig{
		CookieName: "qp_session",
		HeaderName: "X-Session-ID",
		TTL:        24 * time.Hour,
		CookiePath: "/",
		SameSite:   http.SameSiteLaxMode,
	}
}

// NewID returns a random 256-bit session identifier.
func NewID() (string, error) {
	b := make([]byte, idBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// WithID returns ctx carrying sessionID.
func WithID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, idContextKey, sessionID)
}

// IDFromContext returns the session ID placed by Middleware.
func IDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(idContextKey).(string)
	return id, ok && id != ""
}

// Middleware makes sure every request has a session ID in its context,
// issuing a cookie when the client did not present a well-formed one.
func Middleware(cfg MiddlewareConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := extractID(r, cfg)
			if id == "" {
				var err error
				id, err = NewID()
				if err != nil {
					http.Error(w, "session unavailable", http.StatusInternalServerError)
					return
				}
				http.SetCookie(w, &http.Cookie{
					Name:     cfg.CookieName,
					Value:    id,
					Path:     cfg.CookiePath,
					MaxAge:   int(cfg.TTL.Seconds()),
					Secure:   cfg.CookieSecure,
					HttpOnly: true,
					SameSite: cfg.SameSite,
				})
			}
			next.ServeHTTP(w, r.WithContext(WithID(r.Context(), id)))
		})
	}
}

func extractID(r *http.Request, cfg MiddlewareConfig) string {
	if cfg.HeaderName != "" {
		if v := r.Header.Get(cfg.HeaderName); validFormat(v) {
			return v
		}
	}
	if c, err := r.Cookie(cfg.CookieName); err == nil && validFormat(c.Value) {
		return c.Value
	}
	return ""
}

// validFormat accepts only IDs this package could have generated.
func validFormat(id string) bool {
	if len(id) != idBytes*2 {
		return false
	}
	_, err := hex.DecodeString(id)
	return err == nil
}
