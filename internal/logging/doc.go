// Quillpress - Content Publishing Platform API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quillpress

// Package logging is the zerolog-backed structured logger shared by every
// Quillpress package.
//
// The global logger is configured once from main via Init and reached through
// the level helpers:
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	logging.Info().Str("addr", addr).Msg("HTTP server listening")
//
// Request-scoped logging goes through Ctx, which attaches the request and
// correlation IDs placed in the context by the request-id middleware:
//
//	logging.Ctx(r.Context()).Warn().Str("action", "login").Msg("Client blocked")
//
// AuditLogger records authentication gate events (token failures, CSRF
// mismatches, rate-limit blocks) with tokens, session IDs and emails masked.
// SlogHandler adapts zerolog to log/slog for the supervisor tree.
package logging
