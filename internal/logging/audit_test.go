// Quillpress - Content Publishing Platform API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quillpress

package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestAuditLogger_ClientBlocked(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	a := NewAuditLoggerWithLogger(zerolog.New(&buf))
	ctx := ContextWithRequestID(context.Background(), "req-9")

	a.ClientBlocked(ctx, "login", "203.0.113.5", time.Unix(1_700_000_900, 0), 1)

	out := buf.String()
	for _, want := range []string{`"event":"client_blocked"`, `"action":"login"`, `"client_id":"203.0.113.5"`, `"request_id":"req-9"`, `"component":"auth"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output %s missing %s", out, want)
		}
	}
}

func TestAuditLogger_MasksSecrets(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	a := NewAuditLoggerWithLogger(zerolog.New(&buf))

	a.CSRFMismatch(context.Background(), "0123456789abcdef0123", "198.51.100.7", "/api/v1/auth/login")
	a.LoginAttempt(context.Background(), "alice@example.com", "198.51.100.7", false, "invalid_credentials")

	out := buf.String()
	if strings.Contains(out, "0123456789abcdef0123") {
		t.Error("session id logged in clear")
	}
	if strings.Contains(out, "alice@example.com") {
		t.Error("email logged in clear")
	}
	if !strings.Contains(out, "al***@example.com") {
		t.Errorf("masked email missing: %s", out)
	}
}

func TestMaskSecret(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"":                     "",
		"short":                "***",
		"abcdefghijklmnopqrst": "abcd...qrst",
	}
	for in, want := range tests {
		if got := MaskSecret(in); got != want {
			t.Errorf("MaskSecret(%q) = %q, want %q", in, got, want)
		}
	}
}
