// Quillpress - Content Publishing Platform API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quillpress

package logging

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// AuditLogger writes authentication gate events. Secrets are never logged in
// clear: tokens and session IDs are masked and emails are partially hidden.
type AuditLogger struct {
	logger zerolog.Logger
}

// NewAuditLogger returns an AuditLogger on the global logger.
func NewAuditLogger() *AuditLogger {
	return &AuditLogger{logger: WithComponent("auth")}
}

// NewAuditLoggerWithLogger returns an AuditLogger on logger.
//
//nolint:gocritic // zerolog.Logger is a value type
func NewAuditLoggerWithLogger(logger zerolog.Logger) *AuditLogger {
	return &AuditLogger{logger: logger.With().Str("component", "auth").Logger()}
}

func (a *AuditLogger) event(ctx context.Context, level zerolog.Level, name string) *zerolog.Event {
	e := a.logger.WithLevel(level).Str("event", name)
	if id := RequestIDFromContext(ctx); id != "" {
		e = e.Str("request_id", id)
	}
	return e
}

// AuthenticationFailed records a rejected bearer token.
func (a *AuditLogger) AuthenticationFailed(ctx context.Context, reason, clientID, path string) {
	a.event(ctx, zerolog.WarnLevel, "authentication_failed").
		Str("reason", reason).
		Str("client_id", clientID).
		Str("path", path).
		Msg("")
}

// CSRFMismatch records a state-changing request without a valid CSRF token.
func (a *AuditLogger) CSRFMismatch(ctx context.Context, sessionID, clientID, path string) {
	a.event(ctx, zerolog.WarnLevel, "csrf_mismatch").
		Str("session_id", MaskSecret(sessionID)).
		Str("client_id", clientID).
		Str("path", path).
		Msg("")
}

// ClientBlocked records a rate-limit block transition.
func (a *AuditLogger) ClientBlocked(ctx context.Context, action, clientID string, until time.Time, totalBlocks int) {
	a.event(ctx, zerolog.WarnLevel, "client_blocked").
		Str("action", action).
		Str("client_id", clientID).
		Time("blocked_until", until).
		Int("total_blocks", totalBlocks).
		Msg("")
}

// LoginAttempt records the outcome of a credential check.
func (a *AuditLogger) LoginAttempt(ctx context.Context, email, clientID string, success bool, reason string) {
	level := zerolog.InfoLevel
	status := "success"
	if !success {
		level = zerolog.WarnLevel
		status = "failed"
	}
	e := a.event(ctx, level, "login").
		Str("status", status).
		Str("email", MaskEmail(email)).
		Str("client_id", clientID)
	if reason != "" {
		e = e.Str("reason", reason)
	}
	e.Msg("")
}

// MaskSecret keeps the first and last four characters of long values.
func MaskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 12 {
		return "***"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// MaskEmail keeps the first two characters of the local part.
func MaskEmail(email string) string {
	if email == "" {
		return ""
	}
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return "***"
	}
	local, domain := email[:at], email[at:]
	if len(local) <= 2 {
		return "***" + domain
	}
	return local[:2] + "***" + domain
}
