// Quillpress - Content Publishing Platform API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quillpress

/*
Package auth is the authentication gate every mutating request passes through.

# Components

  - TokenCodec: issues and verifies HS256 bearer tokens (golang-jwt/jwt/v5).
    Verification reports one of three reasons: malformed, signature_invalid
    or expired. The signature is checked before the payload is decoded, so a
    tampered payload is always reported as signature_invalid.
  - Principal: the authenticated caller. Its fields are unexported and it is
    only built from verified claims.
  - Gate: hard and soft authentication, resource ownership, verified email
    and request validation.
  - CSRFGuard: one random token per session, stored in the session store
    and compared in constant time on state-changing requests.
  - Middleware: RequireAuth and OptionalAuth put the Principal in the
    request context.

# Errors

Gate methods return errors from internal/apierr and never write responses.
Middleware hands failures to an ErrorWriter, normally api.WriteError.

# Usage

	codec, err := auth.NewTokenCodec(cfg.Security.TokenSecret)
	gate := auth.NewGate(codec, repo, validator)
	mw := auth.NewMiddleware(gate, api.WriteError)

	r.With(mw.RequireAuth).Get("/api/v1/auth/me", h.Me)
*/
package auth
