// Quillpress - Content Publishing Platform API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quillpress

package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/quillpress/internal/auth"
	"github.com/tomtom215/quillpress/internal/ratelimit"
)

func TestLogin_LockoutAfterRepeatedFailures(t *testing.T) {
	f := newAPIFixture(t)
	f.createUser("ada@example.com", "ada", "correct-horse", true)
	c := f.newClient("203.0.113.5")

	wrong := map[string]string{"email": "ada@example.com", "password": "wrong-password"}
	for i := 0; i < 5; i++ {
		rec := c.do(http.MethodPost, "/api/v1/auth/login", wrong)
		apiErr := expectError(t, rec, http.StatusUnauthorized, "UNAUTHORIZED")
		if apiErr.Message != "authentication failed: invalid credentials" {
			t.Errorf("attempt %d message = %q", i+1, apiErr.Message)
		}
		if i < 4 {
			f.clock.Advance(10 * time.Second)
		}
	}
	blockedAt := f.clock.Now()

	f.clock.Advance(10 * time.Second)
	rec := c.do(http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email": "ada@example.com", "password": "correct-horse",
	})
	apiErr := expectError(t, rec, http.StatusTooManyRequests, "TOO_MANY_REQUESTS")
	if apiErr.RetryAfter != 890 {
		t.Errorf("retry_after = %d, want 890", apiErr.RetryAfter)
	}
	if want := blockedAt.Add(900 * time.Second).Unix(); apiErr.BlockedUntil != want {
		t.Errorf("blocked_until = %d, want %d", apiErr.BlockedUntil, want)
	}
	if got := rec.Header().Get("Retry-After"); got != "890" {
		t.Errorf("Retry-After header = %q, want 890", got)
	}

	f.clock.Advance(891 * time.Second)
	rec = c.do(http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email": "ada@example.com", "password": "correct-horse",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login after block: status %d, body %s", rec.Code, rec.Body)
	}
	var tok tokenResponse
	decodeData(t, rec, &tok)
	if tok.TokenType != "Bearer" || tok.AccessToken == "" {
		t.Errorf("unexpected token response %+v", tok)
	}
	if tok.ExpiresIn != int64(DefaultTokenTTL.Seconds()) {
		t.Errorf("expires_in = %d", tok.ExpiresIn)
	}
	claims, err := f.codec.Verify(tok.AccessToken)
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if claims.Email != "ada@example.com" {
		t.Errorf("claims email = %q", claims.Email)
	}
}

func TestLogin_SeparateClientsDoNotShareLimits(t *testing.T) {
	f := newAPIFixture(t)
	f.createUser("ada@example.com", "ada", "correct-horse", true)

	attacker := f.newClient("203.0.113.5")
	wrong := map[string]string{"email": "ada@example.com", "password": "nope-nope"}
	for i := 0; i < 5; i++ {
		attacker.do(http.MethodPost, "/api/v1/auth/login", wrong)
	}
	rec := attacker.do(http.MethodPost, "/api/v1/auth/login", wrong)
	expectError(t, rec, http.StatusTooManyRequests, "TOO_MANY_REQUESTS")

	owner := f.newClient("198.51.100.7")
	rec = owner.do(http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email": "ada@example.com", "password": "correct-horse",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("other client: status %d, body %s", rec.Code, rec.Body)
	}
}

func TestLogin_UnknownEmailLooksLikeWrongPassword(t *testing.T) {
	f := newAPIFixture(t)
	f.createUser("ada@example.com", "ada", "correct-horse", true)
	c := f.newClient("203.0.113.5")

	unknown := expectError(t, c.do(http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email": "nobody@example.com", "password": "whatever",
	}), http.StatusUnauthorized, "UNAUTHORIZED")
	wrong := expectError(t, c.do(http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email": "ada@example.com", "password": "whatever",
	}), http.StatusUnauthorized, "UNAUTHORIZED")

	if unknown.Message != wrong.Message {
		t.Errorf("messages differ: %q vs %q", unknown.Message, wrong.Message)
	}
}

func TestLogin_ValidationFailureCountsAsAttempt(t *testing.T) {
	f := newAPIFixture(t)
	c := f.newClient("203.0.113.5")

	rec := c.do(http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "not-an-email"})
	apiErr := expectError(t, rec, http.StatusBadRequest, "VALIDATION_FAILED")
	if _, ok := apiErr.Details["email"]; !ok {
		t.Errorf("details missing email: %+v", apiErr.Details)
	}
	if _, ok := apiErr.Details["password"]; !ok {
		t.Errorf("details missing password: %+v", apiErr.Details)
	}

	rec2, err := f.limiter.Record(context.Background(), c.cookie.Value, ratelimit.ActionLogin, "203.0.113.5")
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if rec2 == nil || len(rec2.Attempts) != 1 || rec2.Attempts[0].Success {
		t.Errorf("expected one failed attempt, got %+v", rec2)
	}
}

func TestLogin_MalformedBody(t *testing.T) {
	f := newAPIFixture(t)
	c := f.newClient("203.0.113.5")

	req := c.do(http.MethodPost, "/api/v1/auth/login", "just a string")
	apiErr := expectError(t, req, http.StatusBadRequest, "VALIDATION_FAILED")
	if _, ok := apiErr.Details["body"]; !ok {
		t.Errorf("details = %+v, want body entry", apiErr.Details)
	}
}

func TestLogin_CSRFRejectedBeforeThrottling(t *testing.T) {
	f := newAPIFixture(t)
	f.createUser("ada@example.com", "ada", "correct-horse", true)
	c := f.newClient("203.0.113.5")
	c.skipCSRF = true

	for i := 0; i < 7; i++ {
		rec := c.do(http.MethodPost, "/api/v1/auth/login", map[string]string{
			"email": "ada@example.com", "password": "correct-horse",
		})
		expectError(t, rec, http.StatusForbidden, "FORBIDDEN")
	}

	rec, err := f.limiter.Record(context.Background(), c.cookie.Value, ratelimit.ActionLogin, "203.0.113.5")
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if rec != nil {
		t.Errorf("CSRF rejections reached the limiter: %+v", rec)
	}
}

func TestRegister_VerifyAndChangePassword(t *testing.T) {
	f := newAPIFixture(t)
	c := f.newClient("203.0.113.5")

	rec := c.do(http.MethodPost, "/api/v1/auth/register", map[string]string{
		"email":                 "Grace@Example.com",
		"username":              "grace_h",
		"password":              "cobol-forever",
		"password_confirmation": "cobol-forever",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: status %d, body %s", rec.Code, rec.Body)
	}
	var tok tokenResponse
	decodeData(t, rec, &tok)
	if tok.User == nil || tok.User.EmailVerified {
		t.Fatalf("new account should be unverified: %+v", tok.User)
	}
	if tok.User.Email != "grace@example.com" {
		t.Errorf("email = %q, want normalized address", tok.User.Email)
	}
	userID := tok.User.ID
	c.bearer = tok.AccessToken

	path := "/api/v1/users/" + strconv.FormatInt(userID, 10) + "/password"
	change := map[string]string{
		"current_password":      "cobol-forever",
		"password":              "fortran-forever",
		"password_confirmation": "fortran-forever",
	}
	expectError(t, c.do(http.MethodPut, path, change), http.StatusForbidden, "FORBIDDEN")

	token := f.notifier.verificationToken(userID)
	if token == "" {
		t.Fatal("no verification token was sent")
	}
	rec = c.do(http.MethodPost, "/api/v1/auth/email/verify", map[string]string{"token": token})
	if rec.Code != http.StatusOK {
		t.Fatalf("verify: status %d, body %s", rec.Code, rec.Body)
	}

	rec = c.do(http.MethodPut, path, change)
	if rec.Code != http.StatusOK {
		t.Fatalf("change password: status %d, body %s", rec.Code, rec.Body)
	}

	c.bearer = ""
	rec = c.do(http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email": "grace@example.com", "password": "fortran-forever",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login with new password: status %d, body %s", rec.Code, rec.Body)
	}
}

func TestRegister_RejectsTakenAndInvalidFields(t *testing.T) {
	f := newAPIFixture(t)
	f.createUser("ada@example.com", "ada", "correct-horse", true)
	c := f.newClient("203.0.113.5")

	rec := c.do(http.MethodPost, "/api/v1/auth/register", map[string]string{
		"email":                 "ada@example.com",
		"username":              "x!",
		"password":              "short",
		"password_confirmation": "different",
	})
	apiErr := expectError(t, rec, http.StatusBadRequest, "VALIDATION_FAILED")
	for _, field := range []string{"email", "username", "password", "password_confirmation"} {
		if len(apiErr.Details[field]) == 0 {
			t.Errorf("details missing %s: %+v", field, apiErr.Details)
		}
	}
}

func TestVerifyEmail_RejectsWrongPurposeAndTampering(t *testing.T) {
	f := newAPIFixture(t)
	u := f.createUser("ada@example.com", "ada", "correct-horse", false)
	c := f.newClient("203.0.113.5")

	access, err := f.codec.Issue(auth.Claims{UserID: u.ID, Email: u.Email, Username: u.Username}, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	for name, token := range map[string]string{
		"access token": access,
		"garbage":      "not.a.token",
		"truncated":    access[:len(access)-4],
	} {
		rec := c.do(http.MethodPost, "/api/v1/auth/email/verify", map[string]string{"token": token})
		apiErr := expectError(t, rec, http.StatusBadRequest, "VALIDATION_FAILED")
		if len(apiErr.Details["token"]) == 0 {
			t.Errorf("%s: details = %+v", name, apiErr.Details)
		}
	}

	got, err := f.repo.FindByID(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.EmailVerified() {
		t.Error("account verified by a rejected token")
	}
}

func TestVerifyEmail_ExpiredLink(t *testing.T) {
	f := newAPIFixture(t)
	c := f.newClient("203.0.113.5")
	rec := c.do(http.MethodPost, "/api/v1/auth/register", map[string]string{
		"email": "ada@example.com", "username": "ada",
		"password": "correct-horse", "password_confirmation": "correct-horse",
	})
	var tok tokenResponse
	decodeData(t, rec, &tok)

	f.clock.Advance(DefaultEmailTokenTTL + time.Second)
	rec = c.do(http.MethodPost, "/api/v1/auth/email/verify", map[string]string{
		"token": f.notifier.verificationToken(tok.User.ID),
	})
	expectError(t, rec, http.StatusBadRequest, "VALIDATION_FAILED")
}

func TestForgotAndResetPassword(t *testing.T) {
	f := newAPIFixture(t)
	u := f.createUser("ada@example.com", "ada", "correct-horse", true)
	c := f.newClient("203.0.113.5")

	rec := c.do(http.MethodPost, "/api/v1/auth/password/forgot", map[string]string{"email": "ada@example.com"})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("forgot: status %d, body %s", rec.Code, rec.Body)
	}
	first := f.notifier.resetToken(u.ID)
	if first == "" {
		t.Fatal("no reset token was sent")
	}

	reset := map[string]string{
		"token":                 first,
		"password":              "battery-staple",
		"password_confirmation": "battery-staple",
	}
	rec = c.do(http.MethodPost, "/api/v1/auth/password/reset", reset)
	if rec.Code != http.StatusOK {
		t.Fatalf("reset: status %d, body %s", rec.Code, rec.Body)
	}

	// The password changed, so the same link no longer works.
	rec = c.do(http.MethodPost, "/api/v1/auth/password/reset", reset)
	expectError(t, rec, http.StatusBadRequest, "VALIDATION_FAILED")

	rec = c.do(http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email": "ada@example.com", "password": "battery-staple",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login after reset: status %d, body %s", rec.Code, rec.Body)
	}
}

func TestForgotPassword_UnknownAddressIsThrottled(t *testing.T) {
	f := newAPIFixture(t)
	f.createUser("ada@example.com", "ada", "correct-horse", true)
	c := f.newClient("203.0.113.5")

	known := c.do(http.MethodPost, "/api/v1/auth/password/forgot", map[string]string{"email": "ada@example.com"})
	if known.Code != http.StatusAccepted {
		t.Fatalf("known: status %d", known.Code)
	}

	knownEnv := decodeEnvelope(t, known)
	for i := 0; i < 3; i++ {
		rec := c.do(http.MethodPost, "/api/v1/auth/password/forgot", map[string]string{
			"email": "probe" + strconv.Itoa(i) + "@example.com",
		})
		if rec.Code != http.StatusAccepted {
			t.Fatalf("probe %d: status %d, body %s", i, rec.Code, rec.Body)
		}
		if probe := decodeEnvelope(t, rec); string(probe.Data) != string(knownEnv.Data) {
			t.Errorf("probe %d reveals account existence: %s vs %s", i, probe.Data, knownEnv.Data)
		}
	}

	rec := c.do(http.MethodPost, "/api/v1/auth/password/forgot", map[string]string{"email": "ada@example.com"})
	apiErr := expectError(t, rec, http.StatusTooManyRequests, "TOO_MANY_REQUESTS")
	if apiErr.RetryAfter != 1800 {
		t.Errorf("retry_after = %d, want 1800", apiErr.RetryAfter)
	}
}

func TestResendVerification(t *testing.T) {
	f := newAPIFixture(t)
	pending := f.createUser("ada@example.com", "ada", "correct-horse", false)
	f.createUser("grace@example.com", "grace", "cobol-forever", true)
	c := f.newClient("203.0.113.5")

	rec := c.do(http.MethodPost, "/api/v1/auth/email/resend", map[string]string{"email": "ada@example.com"})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("resend: status %d, body %s", rec.Code, rec.Body)
	}
	if f.notifier.verificationToken(pending.ID) == "" {
		t.Error("no verification token was sent")
	}

	rec = c.do(http.MethodPost, "/api/v1/auth/email/resend", map[string]string{"email": "grace@example.com"})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("resend verified: status %d", rec.Code)
	}

	r, err := f.limiter.Record(context.Background(), c.cookie.Value, ratelimit.ActionResendVerification, "203.0.113.5")
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if r == nil || r.Attempts[len(r.Attempts)-1].Success {
		t.Errorf("resend for a verified account should count as a failure: %+v", r)
	}
}

func TestMeAndRefresh(t *testing.T) {
	f := newAPIFixture(t)
	u := f.createUser("ada@example.com", "ada", "correct-horse", true)
	c := f.newClient("203.0.113.5")

	rec := c.do(http.MethodGet, "/api/v1/auth/me", nil)
	expectError(t, rec, http.StatusUnauthorized, "UNAUTHORIZED")
	if got := rec.Header().Get("WWW-Authenticate"); !strings.HasPrefix(got, "Bearer") {
		t.Errorf("WWW-Authenticate = %q", got)
	}

	token, err := f.codec.Issue(auth.Claims{UserID: u.ID, Email: u.Email, Username: u.Username}, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	c.bearer = token

	rec = c.do(http.MethodGet, "/api/v1/auth/me", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me: status %d, body %s", rec.Code, rec.Body)
	}
	var me userResponse
	decodeData(t, rec, &me)
	if me.ID != u.ID || me.Email != "ada@example.com" || !me.EmailVerified {
		t.Errorf("me = %+v", me)
	}

	f.clock.Advance(30 * time.Minute)
	rec = c.do(http.MethodPost, "/api/v1/auth/refresh", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh: status %d, body %s", rec.Code, rec.Body)
	}
	var tok tokenResponse
	decodeData(t, rec, &tok)
	claims, err := f.codec.Verify(tok.AccessToken)
	if err != nil {
		t.Fatalf("refreshed token: %v", err)
	}
	if want := f.clock.Now().Add(DefaultTokenTTL); !claims.ExpiresAt.Time.Equal(want) {
		t.Errorf("refreshed exp = %v, want %v", claims.ExpiresAt.Time, want)
	}

	f.clock.Advance(2 * time.Hour)
	rec = c.do(http.MethodGet, "/api/v1/auth/me", nil)
	expectError(t, rec, http.StatusUnauthorized, "UNAUTHORIZED")
}
