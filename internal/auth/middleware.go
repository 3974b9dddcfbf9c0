// Quillpress - Content Publishing Platform API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quillpress

package auth

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/quillpress/internal/apierr"
	"github.com/tomtom215/quillpress/internal/logging"
)

// ErrorWriter renders an error response.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// Middleware adapts a Gate to net/http.
type Middleware struct {
	gate       *Gate
	writeError ErrorWriter
}

// NewMiddleware returns gate middleware writing failures with writeError.
// A nil writeError falls back to a minimal JSON body.
func NewMiddleware(gate *Gate, writeError ErrorWriter) *Middleware {
	if writeError == nil {
		writeError = writeCodedError
	}
	return &Middleware{gate: gate, writeError: writeError}
}

// RequireAuth rejects requests without a valid access token.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := m.gate.Authenticate(r)
		if err != nil {
			m.writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// OptionalAuth attaches the principal when the token is valid and
// continues anonymously otherwise.
func (m *Middleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p := m.gate.TryAuthenticate(r); p != nil {
			r = r.WithContext(WithPrincipal(r.Context(), p))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireVerifiedEmail must run after RequireAuth.
func (m *Middleware) RequireVerifiedEmail(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, _ := PrincipalFromContext(r.Context())
		if _, err := m.gate.RequireVerifiedEmail(r.Context(), p); err != nil {
			m.writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// writeCodedError is the fallback renderer: {code, message} with the
// error's status.
func writeCodedError(w http.ResponseWriter, _ *http.Request, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL_ERROR"
	message := "internal server error"
	if c, ok := apierr.As(err); ok {
		status, code, message = c.StatusCode(), c.Code(), c.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"code": code, "message": message}); err != nil {
		logging.Error().Err(err).Msg("Error encoding auth error response")
	}
}
