// Quillpress - Content Publishing Platform API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quillpress

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
)

func getHealth(t *testing.T, f *apiFixture, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth_AllChecksPass(t *testing.T) {
	f := newAPIFixture(t, HealthCheck{Name: "sessions", Check: func(context.Context) error { return nil }})

	for _, path := range []string{"/api/v1/health", "/api/v1/health/ready", "/api/v1/health/live"} {
		rec := getHealth(t, f, path)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status %d, body %s", path, rec.Code, rec.Body)
		}
		if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Errorf("%s: security headers missing", path)
		}
	}

	var status HealthStatus
	decodeData(t, getHealth(t, f, "/api/v1/health"), &status)
	if status.Status != "healthy" || status.Version != "test" {
		t.Errorf("status = %+v", status)
	}
	if status.Dependencies["sessions"] != "ok" {
		t.Errorf("dependencies = %+v", status.Dependencies)
	}
}

func TestHealth_FailingDependency(t *testing.T) {
	f := newAPIFixture(t,
		HealthCheck{Name: "sessions", Check: func(context.Context) error { return nil }},
		HealthCheck{Name: "users", Check: func(context.Context) error { return errors.New("circuit open") }},
	)

	var status HealthStatus
	decodeData(t, getHealth(t, f, "/api/v1/health"), &status)
	if status.Status != "degraded" {
		t.Errorf("status = %q, want degraded", status.Status)
	}

	rec := getHealth(t, f, "/api/v1/health/ready")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("ready: status %d", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if env.Error == nil || env.Error.Code != ErrCodeServiceUnavailable {
		t.Errorf("error = %+v", env.Error)
	}
	if err := json.Unmarshal(env.Data, &status); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if status.Dependencies["users"] != "circuit open" {
		t.Errorf("dependencies = %+v", status.Dependencies)
	}

	if rec := getHealth(t, f, "/api/v1/health/live"); rec.Code != http.StatusOK {
		t.Errorf("live: status %d", rec.Code)
	}
}

func TestRouter_NotFoundAndMethodNotAllowed(t *testing.T) {
	f := newAPIFixture(t)

	rec := getHealth(t, f, "/api/v1/nothing-here")
	expectError(t, rec, http.StatusNotFound, ErrCodeNotFound)

	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/health/live", nil))
	expectError(t, rec, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed)
}

func TestRouter_RequestIDEchoed(t *testing.T) {
	f := newAPIFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/abc", nil)
	req.Header.Set("X-Request-ID", "trace-abc-123")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "trace-abc-123" {
		t.Errorf("X-Request-ID = %q", got)
	}
	apiErr := expectError(t, rec, http.StatusBadRequest, ErrCodeBadRequest)
	if apiErr.RequestID != "trace-abc-123" {
		t.Errorf("request_id = %q", apiErr.RequestID)
	}
}
