// Quillpress - Content Publishing Platform API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quillpress

package auth

import (
	"context"

	"github.com/goccy/go-json"
)

// Principal is the authenticated caller of one request.
type Principal struct {
	id       int64
	email    string
	username string
}

func principalFromClaims(c *Claims) *Principal {
	return &Principal{id: c.UserID, email: c.Email, username: c.Username}
}

func (p *Principal) ID() int64        { return p.id }
func (p *Principal) Email() string    { return p.email }
func (p *Principal) Username() string { return p.username }

// MarshalJSON renders the principal for the /auth/me response.
func (p *Principal) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID       int64  `json:"id"`
		Email    string `json:"email"`
		Username string `json:"username"`
	}{p.id, p.email, p.username})
}

type contextKey string

const principalContextKey contextKey = "principal"

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// PrincipalFromContext returns the principal set by the auth middleware.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(*Principal)
	return p, ok && p != nil
}
