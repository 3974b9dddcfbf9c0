// Quillpress - Content Publishing Platform API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quillpress

package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/quillpress/internal/auth"
	"github.com/tomtom215/quillpress/internal/ratelimit"
	"github.com/tomtom215/quillpress/internal/session"
	"github.com/tomtom215/quillpress/internal/users"
	"github.com/tomtom215/quillpress/internal/validation"
)

const fixtureSecret = "fixture_secret_that_is_long_enough_for_hs256_signing"

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingNotifier keeps the last token sent to each user.
type recordingNotifier struct {
	mu           sync.Mutex
	verification map[int64]string
	reset        map[int64]string
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{verification: map[int64]string{}, reset: map[int64]string{}}
}

func (n *recordingNotifier) SendVerification(_ context.Context, u *users.User, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.verification[u.ID] = token
	return nil
}

func (n *recordingNotifier) SendPasswordReset(_ context.Context, u *users.User, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reset[u.ID] = token
	return nil
}

func (n *recordingNotifier) resetToken(id int64) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.reset[id]
}

func (n *recordingNotifier) verificationToken(id int64) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.verification[id]
}

type apiFixture struct {
	t        *testing.T
	handler  http.Handler
	clock    *testClock
	repo     *users.MemoryRepository
	hasher   *users.Hasher
	codec    *auth.TokenCodec
	limiter  *ratelimit.Limiter
	notifier *recordingNotifier
}

func newAPIFixture(t *testing.T, checks ...HealthCheck) *apiFixture {
	t.Helper()

	clock := &testClock{now: time.Date(2026, 4, 1, 9, 30, 0, 0, time.UTC)}
	codec, err := auth.NewTokenCodec(fixtureSecret, auth.WithCodecClock(clock.Now))
	if err != nil {
		t.Fatalf("NewTokenCodec: %v", err)
	}
	hasher, err := users.NewHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}

	repo := users.NewMemoryRepository()
	store := session.NewMemoryStore(time.Hour)
	v := validation.New(validation.WithUniqueness("users", repo))
	gate := auth.NewGate(codec, repo, v)
	csrf := auth.NewCSRFGuard(store, auth.DefaultCSRFConfig())

	limiter := ratelimit.New(store, ratelimit.Config{}, ratelimit.WithClock(clock.Now))
	clients, err := ratelimit.NewClientResolver(nil)
	if err != nil {
		t.Fatalf("NewClientResolver: %v", err)
	}
	guard := ratelimit.NewGuard(limiter, clients, ratelimit.GuardConfig{WriteError: WriteError})

	notifier := newRecordingNotifier()
	handler := NewHandler(Dependencies{
		Gate:         gate,
		CSRF:         csrf,
		Users:        repo,
		Hasher:       hasher,
		Notifier:     notifier,
		HealthChecks: checks,
		Version:      "test",
		Now:          clock.Now,
	})

	chiCfg := DefaultChiMiddlewareConfig()
	chiCfg.RateLimitDisabled = true
	router := NewRouter(handler, guard, RouterConfig{
		Chi:         chiCfg,
		Session:     session.DefaultMiddlewareConfig(),
		CSRFEnabled: true,
	})

	return &apiFixture{
		t:        t,
		handler:  router.SetupChi(),
		clock:    clock,
		repo:     repo,
		hasher:   hasher,
		codec:    codec,
		limiter:  limiter,
		notifier: notifier,
	}
}

// createUser stores an account directly in the repository.
func (f *apiFixture) createUser(email, username, password string, verified bool) *users.User {
	f.t.Helper()
	hash, err := f.hasher.Hash(password)
	if err != nil {
		f.t.Fatalf("Hash: %v", err)
	}
	u := &users.User{Email: email, Username: username, PasswordHash: hash}
	if err := f.repo.Create(context.Background(), u); err != nil {
		f.t.Fatalf("Create: %v", err)
	}
	if verified {
		if err := f.repo.MarkEmailVerified(context.Background(), u.ID, f.clock.Now()); err != nil {
			f.t.Fatalf("MarkEmailVerified: %v", err)
		}
	}
	return u
}

// testClient carries a session cookie and CSRF token between requests, the
// way a browser client would.
type testClient struct {
	f        *apiFixture
	ip       string
	cookie   *http.Cookie
	csrf     string
	bearer   string
	skipCSRF bool
}

func (f *apiFixture) newClient(ip string) *testClient {
	f.t.Helper()
	c := &testClient{f: f, ip: ip}
	rec := c.do(http.MethodGet, "/api/v1/auth/csrf", nil)
	if rec.Code != http.StatusOK {
		f.t.Fatalf("csrf handshake: status %d, body %s", rec.Code, rec.Body)
	}
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == "qp_session" {
			c.cookie = ck
		}
	}
	if c.cookie == nil {
		f.t.Fatal("csrf handshake did not set a session cookie")
	}
	var data csrfResponse
	decodeData(f.t, rec, &data)
	c.csrf = data.Token
	return c
}

func (c *testClient) do(method, path string, body any) *httptest.ResponseRecorder {
	c.f.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			c.f.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "10.1.2.3:52000"
	if c.ip != "" {
		req.Header.Set("X-Forwarded-For", c.ip)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	if c.csrf != "" && !c.skipCSRF {
		req.Header.Set("X-CSRF-Token", c.csrf)
	}
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}

	rec := httptest.NewRecorder()
	c.f.handler.ServeHTTP(rec, req)
	return rec
}

// wireError is APIError as a client decodes it.
type wireError struct {
	Code         string              `json:"code"`
	Message      string              `json:"message"`
	Details      map[string][]string `json:"details"`
	RetryAfter   int64               `json:"retry_after"`
	BlockedUntil int64               `json:"blocked_until"`
	RequestID    string              `json:"request_id"`
}

// envelope mirrors APIResponse with a raw payload.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *wireError      `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body %s)", err, rec.Body)
	}
	return env
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	env := decodeEnvelope(t, rec)
	if !env.Success {
		t.Fatalf("expected success, got error %+v", env.Error)
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}

func expectError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) *wireError {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, status, rec.Body)
	}
	env := decodeEnvelope(t, rec)
	if env.Success || env.Error == nil {
		t.Fatalf("expected error envelope, got %s", rec.Body)
	}
	if env.Error.Code != code {
		t.Errorf("error code = %q, want %q", env.Error.Code, code)
	}
	return env.Error
}
