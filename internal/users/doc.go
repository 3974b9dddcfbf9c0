// Quillpress - Content Publishing Platform API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quillpress

// Package users stores user accounts for the authentication endpoints.
//
// Repository has two backends: MemoryRepository for development and tests,
// and PostgresRepository (lib/pq) for deployments. Open picks one from
// config.DatabaseConfig and wraps it in BreakerRepository, a sony/gobreaker
// circuit breaker that fails fast while the database is unavailable.
//
// Passwords are hashed with bcrypt at a configurable cost (Hasher).
// Verification and password reset messages go through a Notifier; the
// default LogNotifier only logs.
package users
