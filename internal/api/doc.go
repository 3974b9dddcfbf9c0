// Quillpress - Content Publishing Platform API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quillpress

/*
Package api is the HTTP surface of Quillpress: the chi router, the
standardized response envelope and the account endpoints that exercise
the authentication gate.

Request Pipeline:

	RequestID → Recoverer → AccessLog → PrometheusMetrics → SecurityHeaders
	→ CORS → httprate (coarse per-IP ceiling) → session cookie
	→ CSRF (state-changing methods) → ratelimit.Guard (per action)
	→ auth middleware → handler

Gate components return typed errors from internal/apierr. WriteError is
the single place where they become HTTP responses:

	AuthenticationError  401  UNAUTHORIZED
	AuthorizationError   403  FORBIDDEN
	ValidationError      400  VALIDATION_FAILED (details: field → messages)
	RateLimitedError     429  TOO_MANY_REQUESTS (Retry-After, retry_after, blocked_until)
	anything else        500  INTERNAL_ERROR

Endpoints:

	GET  /api/v1/auth/csrf                 CSRF token of the session
	POST /api/v1/auth/login                rate limited (login)
	POST /api/v1/auth/register             rate limited (register)
	POST /api/v1/auth/password/forgot      rate limited (password_reset)
	POST /api/v1/auth/password/reset       rate limited (password_reset)
	POST /api/v1/auth/email/verify         rate limited (email_verification)
	POST /api/v1/auth/email/resend         rate limited (resend_verification)
	POST /api/v1/auth/refresh              bearer token required
	GET  /api/v1/auth/me                   bearer token required
	GET  /api/v1/users/{id}                optional bearer token
	PUT  /api/v1/users/{id}/password       owner with verified email
	GET  /api/v1/health, /live, /ready
	GET  /metrics
*/
package api
