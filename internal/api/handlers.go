// Quillpress - Content Publishing Platform API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quillpress

package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/tomtom215/quillpress/internal/auth"
	"github.com/tomtom215/quillpress/internal/logging"
	"github.com/tomtom215/quillpress/internal/users"
)

// Default token lifetimes.
const (
	DefaultTokenTTL      = time.Hour
	DefaultEmailTokenTTL = 24 * time.Hour
)

// HealthCheck probes one dependency for the readiness endpoint.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Dependencies groups everything the handlers need.
type Dependencies struct {
	Gate     *auth.Gate
	CSRF     *auth.CSRFGuard
	Users    users.Repository
	Hasher   *users.Hasher
	Notifier users.Notifier
	Audit    *logging.AuditLogger

	// TokenTTL is the access token lifetime.
	TokenTTL time.Duration

	// EmailTokenTTL is the lifetime of emailed verification and reset tokens.
	EmailTokenTTL time.Duration

	HealthChecks []HealthCheck
	Version      string

	// Now defaults to time.Now.
	Now func() time.Time
}

// Handler contains dependencies for API handlers.
//
// Handler methods are split across files:
//   - handlers.go: Handler struct, constructor, token helpers (this file)
//   - handlers_auth.go: /auth endpoints
//   - handlers_users.go: /users endpoints
//   - handlers_health.go: health probes
type Handler struct {
	gate          *auth.Gate
	codec         *auth.TokenCodec
	csrf          *auth.CSRFGuard
	users         users.Repository
	hasher        *users.Hasher
	notifier      users.Notifier
	audit         *logging.AuditLogger
	tokenTTL      time.Duration
	emailTokenTTL time.Duration
	checks        []HealthCheck
	version       string
	startTime     time.Time
	now           func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// NewHandler creates the API handler.
func NewHandler(deps Dependencies) *Handler {
	h := &Handler{
		gate:          deps.Gate,
		codec:         deps.Gate.Codec(),
		csrf:          deps.CSRF,
		users:         deps.Users,
		hasher:        deps.Hasher,
		notifier:      deps.Notifier,
		audit:         deps.Audit,
		tokenTTL:      deps.TokenTTL,
		emailTokenTTL: deps.EmailTokenTTL,
		checks:        deps.HealthChecks,
		version:       deps.Version,
		now:           deps.Now,
	}
	if h.notifier == nil {
		h.notifier = users.LogNotifier{}
	}
	if h.audit == nil {
		h.audit = logging.NewAuditLogger()
	}
	if h.tokenTTL <= 0 {
		h.tokenTTL = DefaultTokenTTL
	}
	if h.emailTokenTTL <= 0 {
		h.emailTokenTTL = DefaultEmailTokenTTL
	}
	if h.now == nil {
		h.now = time.Now
	}
	h.startTime = h.now()
	return h
}

// tokenResponse is returned by login, register and refresh.
type tokenResponse struct {
	AccessToken string        `json:"access_token"`
	TokenType   string        `json:"token_type"`
	ExpiresIn   int64         `json:"expires_in"`
	User        *userResponse `json:"user,omitempty"`
}

// userResponse is the public view of an account. Email is only filled for
// the account owner.
type userResponse struct {
	ID            int64     `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email,omitempty"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
}

func newUserResponse(u *users.User, owner bool) *userResponse {
	resp := &userResponse{
		ID:            u.ID,
		Username:      u.Username,
		EmailVerified: u.EmailVerified(),
		CreatedAt:     u.CreatedAt,
	}
	if owner {
		resp.Email = u.Email
	}
	return resp
}

// messageResponse is the body of endpoints that only acknowledge.
type messageResponse struct {
	Message string `json:"message"`
}

func (h *Handler) issueAccessToken(u *users.User) (*tokenResponse, error) {
	token, err := h.codec.Issue(auth.Claims{
		UserID:   u.ID,
		Email:    u.Email,
		Username: u.Username,
	}, h.tokenTTL)
	if err != nil {
		return nil, err
	}
	return &tokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(h.tokenTTL.Seconds()),
		User:        newUserResponse(u, true),
	}, nil
}

// issueEmailToken signs a single-purpose token. Reset tokens carry a
// fingerprint of the current password hash, so a completed reset
// invalidates every other reset link.
func (h *Handler) issueEmailToken(u *users.User, purpose string) (string, error) {
	claims := auth.Claims{
		UserID:   u.ID,
		Email:    u.Email,
		Username: u.Username,
		Purpose:  purpose,
	}
	if purpose == auth.PurposePasswordReset {
		claims.ID = passwordFingerprint(u.PasswordHash)
	}
	return h.codec.Issue(claims, h.emailTokenTTL)
}

func passwordFingerprint(hash string) string {
	sum := sha256.Sum256([]byte(hash))
	return hex.EncodeToString(sum[:8])
}

// compareDummy performs one bcrypt comparison, so a login for an unknown
// email takes as long as one with a wrong password.
func (h *Handler) compareDummy(password string) {
	h.dummyOnce.Do(func() {
		hash, err := h.hasher.Hash("quillpress-timing-equalizer")
		if err != nil {
			logging.Error().Err(err).Msg("Failed to prepare dummy password hash")
			return
		}
		h.dummyHash = hash
	})
	if h.dummyHash != "" {
		h.hasher.Compare(h.dummyHash, password)
	}
}
