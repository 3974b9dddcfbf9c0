// Quillpress - Content Publishing Platform API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quillpress

package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/tomtom215/quillpress/internal/apierr"
	"github.com/tomtom215/quillpress/internal/logging"
	"github.com/tomtom215/quillpress/internal/ratelimit"
	"github.com/tomtom215/quillpress/internal/users"
	"github.com/tomtom215/quillpress/internal/validation"
)

// UserLookup is the slice of the user repository the gate needs.
type UserLookup interface {
	FindByID(ctx context.Context, id int64) (*users.User, error)
}

// RoleChecker decides whether p holds any of roles.
type RoleChecker func(ctx context.Context, p *Principal, roles ...string) bool

// AllowAllRoles is the default RoleChecker. Quillpress has no role model yet.
func AllowAllRoles(context.Context, *Principal, ...string) bool { return true }

// GateOption customizes a Gate.
type GateOption func(*Gate)

// WithRoleChecker replaces AllowAllRoles.
func WithRoleChecker(rc RoleChecker) GateOption {
	return func(g *Gate) { g.roles = rc }
}

// WithGateAuditLogger sets the audit logger for authentication failures.
func WithGateAuditLogger(a *logging.AuditLogger) GateOption {
	return func(g *Gate) { g.audit = a }
}

// Gate authenticates requests and authorizes principals.
type Gate struct {
	codec     *TokenCodec
	users     UserLookup
	validator *validation.Validator
	roles     RoleChecker
	audit     *logging.AuditLogger
}

// NewGate returns a Gate.
func NewGate(codec *TokenCodec, lookup UserLookup, v *validation.Validator, opts ...GateOption) *Gate {
	g := &Gate{
		codec:     codec,
		users:     lookup,
		validator: v,
		roles:     AllowAllRoles,
		audit:     logging.NewAuditLogger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Codec returns the gate's token codec.
func (g *Gate) Codec() *TokenCodec {
	return g.codec
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// Authenticate requires a valid access token.
func (g *Gate) Authenticate(r *http.Request) (*Principal, error) {
	token := bearerToken(r)
	if token == "" {
		return nil, g.fail(r, ReasonMissing, nil)
	}

	claims, err := g.codec.VerifyPurpose(token, PurposeAccess)
	if err != nil {
		return nil, g.fail(r, Reason(err), err)
	}
	return principalFromClaims(claims), nil
}

func (g *Gate) fail(r *http.Request, reason string, err error) error {
	AuthFailures.WithLabelValues(reason).Inc()
	g.audit.AuthenticationFailed(r.Context(), reason, clientOf(r), r.URL.Path)
	return apierr.NewAuthenticationError(reason, err)
}

// clientOf prefers the address resolved by the rate limiter.
func clientOf(r *http.Request) string {
	if id := ratelimit.ClientIDFromContext(r.Context()); id != "" {
		return id
	}
	return r.RemoteAddr
}

// TryAuthenticate returns the principal when the request carries a valid
// token and nil otherwise. It never fails and records nothing.
func (g *Gate) TryAuthenticate(r *http.Request) *Principal {
	token := bearerToken(r)
	if token == "" {
		return nil
	}
	claims, err := g.codec.VerifyPurpose(token, PurposeAccess)
	if err != nil {
		return nil
	}
	return principalFromClaims(claims)
}

// AuthorizeOwnership fails when ownerID is set and is not p's id.
func (g *Gate) AuthorizeOwnership(p *Principal, ownerID *int64) error {
	if p == nil {
		return apierr.NewAuthenticationError(ReasonMissing, nil)
	}
	if ownerID != nil && *ownerID != p.id {
		AuthorizationDenials.WithLabelValues("ownership").Inc()
		return apierr.NewAuthorizationError("not the owner of this resource")
	}
	return nil
}

// AuthorizeRoles consults the configured RoleChecker.
func (g *Gate) AuthorizeRoles(ctx context.Context, p *Principal, roles ...string) error {
	if len(roles) == 0 || g.roles(ctx, p, roles...) {
		return nil
	}
	AuthorizationDenials.WithLabelValues("roles").Inc()
	return apierr.NewAuthorizationError("insufficient role")
}

// RequireVerifiedEmail loads p's account and fails unless its email is
// verified. A missing account is an authorization failure too.
func (g *Gate) RequireVerifiedEmail(ctx context.Context, p *Principal) (*Principal, error) {
	if p == nil {
		return nil, apierr.NewAuthenticationError(ReasonMissing, nil)
	}

	u, err := g.users.FindByID(ctx, p.id)
	switch {
	case errors.Is(err, users.ErrNotFound):
		AuthorizationDenials.WithLabelValues("verified_email").Inc()
		return nil, apierr.NewAuthorizationError("account not found")
	case err != nil:
		return nil, err
	case !u.EmailVerified():
		AuthorizationDenials.WithLabelValues("verified_email").Inc()
		return nil, apierr.NewAuthorizationError("email address not verified")
	}
	return p, nil
}

// ValidateRequest runs rules over input.
func (g *Gate) ValidateRequest(ctx context.Context, input validation.Input, rules validation.Rules) (validation.ValidatedInput, error) {
	return g.validator.Validate(ctx, input, rules)
}
