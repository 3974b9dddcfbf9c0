// Quillpress - Content Publishing Platform API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quillpress

/*
Command server runs the Quillpress authentication API.

# Startup

The server initializes components in this order:

 1. Configuration: defaults, optional config.yaml, then environment (Koanf v2)
 2. Logging: zerolog with the configured level and format
 3. Session store: memory, Badger or Redis
 4. User repository: memory or PostgreSQL behind a circuit breaker
 5. Gate: token codec, validator, CSRF guard and the abuse rate limiter
 6. HTTP router (chi) and the suture supervisor tree

Startup aborts when the token secret is missing or any setting is invalid.

# Configuration

Environment variables map onto configuration keys through a fixed table
(internal/config); unknown variables are ignored:

	TOKEN_SECRET=...                     # required
	HTTP_PORT=8080
	SESSION_STORE=badger SESSION_STORE_PATH=/data/sessions
	DATABASE_DRIVER=postgres DATABASE_URL=postgres://...
	RATE_LIMIT_LOGIN_MAX_ATTEMPTS=5
	RATE_LIMIT_CLIENT_SCOPED=true        # key lockouts by client address only
	TRUSTED_PROXIES=10.0.0.0/8,192.168.1.1

# API documentation

Swagger UI is served at /swagger/index.html from the generated docs
package; see docs.go for the swag invocation.

# Signals

SIGINT and SIGTERM cancel the supervisor tree. The HTTP server drains
in-flight requests for server.shutdown_timeout before the stores close.
*/
package main
