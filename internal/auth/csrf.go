// Quillpress - Content Publishing Platform API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quillpress

package auth

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"sync"

	"github.com/goccy/go-json"

	"github.com/tomtom215/quillpress/internal/apierr"
	"github.com/tomtom215/quillpress/internal/logging"
	"github.com/tomtom215/quillpress/internal/session"
)

// csrfSessionKey is where the token lives inside the session.
const csrfSessionKey = "csrf"

// csrfTokenBytes is the token entropy (256 bits).
const csrfTokenBytes = 32

// maxCSRFBody bounds how much of a JSON body is read to find the token.
const maxCSRFBody = 1 << 20

// CSRFConfig holds configuration for CSRFGuard.
type CSRFConfig struct {
	// HeaderName is the HTTP header carrying the token (default: "X-CSRF-Token").
	HeaderName string

	// FieldName is the form or JSON body field carrying the token (default: "_token").
	FieldName string
}

// DefaultCSRFConfig returns the stock header and field names.
func DefaultCSRFConfig() CSRFConfig {
	return CSRFConfig{HeaderName: "X-CSRF-Token", FieldName: "_token"}
}

// CSRFGuard issues one token per session and checks it on state-changing
// requests.
type CSRFGuard struct {
	store  session.Store
	config CSRFConfig
	audit  *logging.AuditLogger

	// issueMu makes lazy creation idempotent within this process.
	issueMu sync.Mutex
}

// NewCSRFGuard returns a guard keeping tokens in store.
func NewCSRFGuard(store session.Store, cfg CSRFConfig) *CSRFGuard {
	def := DefaultCSRFConfig()
	if cfg.HeaderName == "" {
		cfg.HeaderName = def.HeaderName
	}
	if cfg.FieldName == "" {
		cfg.FieldName = def.FieldName
	}
	return &CSRFGuard{store: store, config: cfg, audit: logging.NewAuditLogger()}
}

// Issue returns the session's token, creating it on first use.
func (g *CSRFGuard) Issue(ctx context.Context, sessionID string) (string, error) {
	g.issueMu.Lock()
	defer g.issueMu.Unlock()

	existing, err := g.store.Get(ctx, sessionID, csrfSessionKey)
	switch {
	case err == nil && len(existing) > 0:
		return string(existing), nil
	case err != nil && !errors.Is(err, session.ErrNotFound):
		return "", fmt.Errorf("load csrf token: %w", err)
	}

	token, err := generateCSRFToken()
	if err != nil {
		return "", err
	}
	if err := g.store.Set(ctx, sessionID, csrfSessionKey, []byte(token)); err != nil {
		return "", fmt.Errorf("store csrf token: %w", err)
	}
	return token, nil
}

func generateCSRFToken() (string, error) {
	b := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate csrf token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// isSafeMethod reports methods exempt from CSRF checks (RFC 9110 safe methods).
func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}

// Validate checks the submitted token of a state-changing request against
// the session token. Safe methods always pass.
func (g *CSRFGuard) Validate(r *http.Request, sessionID string) error {
	if isSafeMethod(r.Method) {
		return nil
	}

	expected, err := g.store.Get(r.Context(), sessionID, csrfSessionKey)
	if err != nil && !errors.Is(err, session.ErrNotFound) {
		return fmt.Errorf("load csrf token: %w", err)
	}

	submitted := g.submittedToken(r)
	if len(expected) == 0 || submitted == "" ||
		subtle.ConstantTimeCompare(expected, []byte(submitted)) != 1 {
		CSRFFailures.Inc()
		g.audit.CSRFMismatch(r.Context(), sessionID, clientOf(r), r.URL.Path)
		return apierr.NewAuthorizationError("CSRF token mismatch")
	}
	return nil
}

// submittedToken reads the header first, then the body field.
func (g *CSRFGuard) submittedToken(r *http.Request) string {
	if token := r.Header.Get(g.config.HeaderName); token != "" {
		return token
	}
	if r.Body == nil {
		return ""
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		return r.FormValue(g.config.FieldName)
	case "application/json":
		return g.jsonField(r)
	}
	return ""
}

// jsonField peeks into a JSON body and restores it for the handler.
func (g *CSRFGuard) jsonField(r *http.Request) string {
	orig := r.Body
	body, err := io.ReadAll(io.LimitReader(orig, maxCSRFBody))
	r.Body = readCloser{Reader: io.MultiReader(bytes.NewReader(body), orig), Closer: orig}
	if err != nil {
		return ""
	}

	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return ""
	}
	token, _ := fields[g.config.FieldName].(string)
	return token
}

type readCloser struct {
	io.Reader
	io.Closer
}

// Protect rejects state-changing requests whose token does not match the
// token of the session established by session.Middleware.
func (g *CSRFGuard) Protect(writeError ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSafeMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			sessionID, ok := session.IDFromContext(r.Context())
			if !ok {
				CSRFFailures.Inc()
				writeError(w, r, apierr.NewAuthorizationError("CSRF token mismatch"))
				return
			}
			if err := g.Validate(r, sessionID); err != nil {
				writeError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
