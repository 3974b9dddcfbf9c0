// Quillpress - Content Publishing Platform API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quillpress

package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/quillpress/internal/users"
)

func principalEcho(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFromContext(r.Context())
		if !ok {
			_, _ = w.Write([]byte("anonymous"))
			return
		}
		if err := json.NewEncoder(w).Encode(p); err != nil {
			t.Errorf("encode principal: %v", err)
		}
	})
}

func TestMiddleware_RequireAuth(t *testing.T) {
	f := newGateFixture(t)
	m := NewMiddleware(f.gate, nil)
	handler := m.RequireAuth(principalEcho(t))

	r := requestWithAuth("Bearer " + f.accessToken(t, adaClaims()))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var got map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["id"] != float64(7) || got["email"] != "ada@example.com" || got["username"] != "ada" {
		t.Errorf("principal = %v", got)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithAuth(""))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["code"] != "UNAUTHORIZED" || !strings.Contains(body["message"], ReasonMissing) {
		t.Errorf("body = %v", body)
	}
}

func TestMiddleware_CustomErrorWriter(t *testing.T) {
	f := newGateFixture(t)
	var captured error
	m := NewMiddleware(f.gate, func(w http.ResponseWriter, _ *http.Request, err error) {
		captured = err
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	m.RequireAuth(principalEcho(t)).ServeHTTP(rec, requestWithAuth("Bearer x.y.z"))
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d", rec.Code)
	}
	if Reason(captured) != ReasonMalformed {
		t.Errorf("captured = %v", captured)
	}
}

func TestMiddleware_OptionalAuth(t *testing.T) {
	f := newGateFixture(t)
	handler := NewMiddleware(f.gate, nil).OptionalAuth(principalEcho(t))

	tests := []struct {
		name   string
		header string
		anon   bool
	}{
		{"valid token", "Bearer " + f.accessToken(t, adaClaims()), false},
		{"no token", "", true},
		{"bad token", "Bearer nope", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, requestWithAuth(tt.header))
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			if anon := rec.Body.String() == "anonymous"; anon != tt.anon {
				t.Errorf("anonymous = %v, want %v", anon, tt.anon)
			}
		})
	}
}

func TestMiddleware_RequireVerifiedEmail(t *testing.T) {
	f := newGateFixture(t)
	ctx := context.Background()
	u := &users.User{Email: "ada@example.com", Username: "ada"}
	if err := f.repo.Create(ctx, u); err != nil {
		t.Fatalf("Create: %v", err)
	}
	claims := adaClaims()
	claims.UserID = u.ID
	token := f.accessToken(t, claims)

	m := NewMiddleware(f.gate, nil)
	handler := m.RequireAuth(m.RequireVerifiedEmail(principalEcho(t)))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithAuth("Bearer "+token))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("unverified: status = %d", rec.Code)
	}

	if err := f.repo.MarkEmailVerified(ctx, u.ID, time.Now()); err != nil {
		t.Fatalf("MarkEmailVerified: %v", err)
	}
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithAuth("Bearer "+token))
	if rec.Code != http.StatusOK {
		t.Fatalf("verified: status = %d", rec.Code)
	}
}

func TestWriteCodedError_UnknownError(t *testing.T) {
	rec := httptest.NewRecorder()
	writeCodedError(rec, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("disk on fire"))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "disk") {
		t.Errorf("internal detail leaked: %s", rec.Body)
	}
}
