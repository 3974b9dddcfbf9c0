// Quillpress - Content Publishing Platform API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quillpress

package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/quillpress/internal/session"
)

func newTestGuard(t *testing.T, cfg GuardConfig) (*Guard, *Limiter, *fakeClock) {
	t.Helper()
	l, clock := newTestLimiter(t, Config{})
	clients, err := NewClientResolver(nil)
	if err != nil {
		t.Fatalf("NewClientResolver: %v", err)
	}
	return NewGuard(l, clients, cfg), l, clock
}

func statusHandler(status *int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(*status)
	})
}

func loginRequest(sessionID string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	r.RemoteAddr = "10.0.0.1:41000"
	r.Header.Set("X-Forwarded-For", testClient)
	if sessionID != "" {
		r = r.WithContext(session.WithID(r.Context(), sessionID))
	}
	return r
}

func TestGuard_BlocksAfterFailedLogins(t *testing.T) {
	t.Parallel()

	g, _, clock := newTestGuard(t, GuardConfig{})
	status := http.StatusUnauthorized
	h := g.Protect(ActionLogin)(statusHandler(&status))

	for i := 1; i <= 5; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, loginRequest(testSession))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: status = %d, want 401", i, rec.Code)
		}
		clock.Advance(10 * time.Second)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, loginRequest(testSession))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("6th attempt: status = %d, want 429", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "890" {
		t.Errorf("Retry-After = %q, want 890", got)
	}

	var body struct {
		Code         string `json:"code"`
		RetryAfter   int64  `json:"retry_after"`
		BlockedUntil int64  `json:"blocked_until"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Code != "TOO_MANY_REQUESTS" || body.RetryAfter != 890 {
		t.Errorf("body = %+v", body)
	}
	if body.BlockedUntil <= clock.Now().Unix() {
		t.Errorf("blocked_until = %d, want a future timestamp", body.BlockedUntil)
	}
}

func TestGuard_SuccessKeepsClientAdmitted(t *testing.T) {
	t.Parallel()

	g, l, _ := newTestGuard(t, GuardConfig{})
	status := http.StatusOK
	h := g.Protect(ActionLogin)(statusHandler(&status))

	for i := 0; i < 20; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, loginRequest(testSession))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, rec.Code)
		}
	}

	r, err := l.Record(context.Background(), testSession, ActionLogin, testClient)
	if err != nil || r == nil {
		t.Fatalf("Record = %v, %v", r, err)
	}
	if r.Failures() != 0 {
		t.Errorf("Failures = %d after successful requests", r.Failures())
	}
}

func TestGuard_ServerErrorsStayPending(t *testing.T) {
	t.Parallel()

	g, l, _ := newTestGuard(t, GuardConfig{})
	status := http.StatusInternalServerError
	h := g.Protect(ActionLogin)(statusHandler(&status))

	h.ServeHTTP(httptest.NewRecorder(), loginRequest(testSession))

	r, _ := l.Record(context.Background(), testSession, ActionLogin, testClient)
	if r == nil || len(r.Attempts) != 1 || !r.Attempts[0].Pending {
		t.Fatalf("expected one pending attempt, got %+v", r)
	}
}

func TestGuard_ClientScopedIgnoresSession(t *testing.T) {
	t.Parallel()

	g, _, _ := newTestGuard(t, GuardConfig{ClientScoped: true})
	status := http.StatusUnauthorized
	h := g.Protect(ActionLogin)(statusHandler(&status))

	for i := 0; i < 5; i++ {
		sid, err := session.NewID()
		if err != nil {
			t.Fatalf("NewID: %v", err)
		}
		h.ServeHTTP(httptest.NewRecorder(), loginRequest(sid))
	}

	sid, _ := session.NewID()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, loginRequest(sid))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("fresh session should not reset the counters: status = %d", rec.Code)
	}
}

func TestGuard_SessionScopedByDefault(t *testing.T) {
	t.Parallel()

	g, _, _ := newTestGuard(t, GuardConfig{})
	status := http.StatusUnauthorized
	h := g.Protect(ActionLogin)(statusHandler(&status))

	for i := 0; i < 5; i++ {
		h.ServeHTTP(httptest.NewRecorder(), loginRequest(testSession))
	}

	sid, _ := session.NewID()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, loginRequest(sid))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("a different session has its own records: status = %d", rec.Code)
	}
}

func TestGuard_NoSessionFallsBackToClient(t *testing.T) {
	t.Parallel()

	g, l, _ := newTestGuard(t, GuardConfig{})
	status := http.StatusUnauthorized
	h := g.Protect(ActionRegister)(statusHandler(&status))

	h.ServeHTTP(httptest.NewRecorder(), loginRequest(""))

	r, err := l.Record(context.Background(), clientSessionPrefix+testClient, ActionRegister, testClient)
	if err != nil || r == nil {
		t.Fatalf("expected a client-scoped record, got %v, %v", r, err)
	}
}

func TestGuard_ExposesClientID(t *testing.T) {
	t.Parallel()

	g, _, _ := newTestGuard(t, GuardConfig{})
	var seen string
	h := g.Protect(ActionLogin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ClientIDFromContext(r.Context())
	}))

	h.ServeHTTP(httptest.NewRecorder(), loginRequest(testSession))
	if seen != testClient {
		t.Errorf("ClientIDFromContext = %q, want %q", seen, testClient)
	}
}

func TestGuard_FailsOpenOnStoreError(t *testing.T) {
	t.Parallel()

	clients, _ := NewClientResolver(nil)
	g := NewGuard(New(failingStore{}, Config{}), clients, GuardConfig{})

	called := false
	h := g.Protect(ActionLogin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, loginRequest(testSession))
	if !called || rec.Code != http.StatusNoContent {
		t.Fatalf("handler should run when the store fails: called=%v status=%d", called, rec.Code)
	}
}

func TestGuard_CustomErrorWriter(t *testing.T) {
	t.Parallel()

	var got error
	g, _, _ := newTestGuard(t, GuardConfig{
		WriteError: func(w http.ResponseWriter, r *http.Request, err error) {
			got = err
			w.WriteHeader(http.StatusTeapot)
		},
	})
	status := http.StatusUnauthorized
	h := g.Protect(ActionRegister)(statusHandler(&status))

	for i := 0; i < 3; i++ {
		h.ServeHTTP(httptest.NewRecorder(), loginRequest(testSession))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, loginRequest(testSession))

	if rec.Code != http.StatusTeapot || got == nil {
		t.Fatalf("custom writer not used: status=%d err=%v", rec.Code, got)
	}
}

func TestGuard_MarkFailedOverridesSuccess(t *testing.T) {
	t.Parallel()

	g, _, clock := newTestGuard(t, GuardConfig{})
	h := g.Protect(ActionPasswordReset)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		MarkFailed(r.Context())
		w.WriteHeader(http.StatusAccepted)
	}))

	for i := 1; i <= 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, loginRequest(testSession))
		if rec.Code != http.StatusAccepted {
			t.Fatalf("request %d: status = %d, want 202", i, rec.Code)
		}
		clock.Advance(time.Second)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, loginRequest(testSession))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("4th request: status = %d, want 429", rec.Code)
	}
}

func TestMarkFailed_OutsideGuard(t *testing.T) {
	t.Parallel()
	MarkFailed(context.Background())
}
