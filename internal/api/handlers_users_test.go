// Quillpress - Content Publishing Platform API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quillpress

package api

import (
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/tomtom215/quillpress/internal/auth"
	"github.com/tomtom215/quillpress/internal/users"
)

func (f *apiFixture) tokenFor(u *users.User) string {
	f.t.Helper()
	token, err := f.codec.Issue(auth.Claims{UserID: u.ID, Email: u.Email, Username: u.Username}, time.Hour)
	if err != nil {
		f.t.Fatalf("Issue: %v", err)
	}
	return token
}

func TestGetUser_EmailVisibleOnlyToOwner(t *testing.T) {
	f := newAPIFixture(t)
	ada := f.createUser("ada@example.com", "ada", "correct-horse", true)
	grace := f.createUser("grace@example.com", "grace", "cobol-forever", true)
	path := "/api/v1/users/" + strconv.FormatInt(ada.ID, 10)

	tests := []struct {
		name      string
		bearer    string
		wantEmail string
	}{
		{"anonymous", "", ""},
		{"owner", f.tokenFor(ada), "ada@example.com"},
		{"other user", f.tokenFor(grace), ""},
		{"invalid token treated as anonymous", "not-a-token", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := f.newClient("203.0.113.5")
			c.bearer = tt.bearer
			rec := c.do(http.MethodGet, path, nil)
			if rec.Code != http.StatusOK {
				t.Fatalf("status %d, body %s", rec.Code, rec.Body)
			}
			var got userResponse
			decodeData(t, rec, &got)
			if got.Username != "ada" {
				t.Errorf("username = %q", got.Username)
			}
			if got.Email != tt.wantEmail {
				t.Errorf("email = %q, want %q", got.Email, tt.wantEmail)
			}
		})
	}
}

func TestGetUser_BadAndMissingIDs(t *testing.T) {
	f := newAPIFixture(t)
	c := f.newClient("203.0.113.5")

	expectError(t, c.do(http.MethodGet, "/api/v1/users/abc", nil), http.StatusBadRequest, ErrCodeBadRequest)
	expectError(t, c.do(http.MethodGet, "/api/v1/users/0", nil), http.StatusBadRequest, ErrCodeBadRequest)
	expectError(t, c.do(http.MethodGet, "/api/v1/users/404", nil), http.StatusNotFound, ErrCodeNotFound)
}

func TestUpdatePassword_Guards(t *testing.T) {
	f := newAPIFixture(t)
	ada := f.createUser("ada@example.com", "ada", "correct-horse", true)
	grace := f.createUser("grace@example.com", "grace", "cobol-forever", true)
	path := "/api/v1/users/" + strconv.FormatInt(ada.ID, 10) + "/password"
	body := map[string]string{
		"current_password":      "correct-horse",
		"password":              "battery-staple",
		"password_confirmation": "battery-staple",
	}

	c := f.newClient("203.0.113.5")
	expectError(t, c.do(http.MethodPut, path, body), http.StatusUnauthorized, "UNAUTHORIZED")

	c.bearer = f.tokenFor(grace)
	expectError(t, c.do(http.MethodPut, path, body), http.StatusForbidden, "FORBIDDEN")

	c.bearer = f.tokenFor(ada)
	wrong := map[string]string{
		"current_password":      "not-my-password",
		"password":              "battery-staple",
		"password_confirmation": "battery-staple",
	}
	apiErr := expectError(t, c.do(http.MethodPut, path, wrong), http.StatusBadRequest, "VALIDATION_FAILED")
	if len(apiErr.Details["current_password"]) == 0 {
		t.Errorf("details = %+v", apiErr.Details)
	}

	rec := c.do(http.MethodPut, path, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", rec.Code, rec.Body)
	}
	stored, err := f.repo.FindByID(t.Context(), ada.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if !f.hasher.Compare(stored.PasswordHash, "battery-staple") {
		t.Error("password was not changed")
	}
}

func TestUpdatePassword_Throttled(t *testing.T) {
	f := newAPIFixture(t)
	ada := f.createUser("ada@example.com", "ada", "correct-horse", true)
	path := "/api/v1/users/" + strconv.FormatInt(ada.ID, 10) + "/password"
	wrong := map[string]string{
		"current_password":      "guess",
		"password":              "battery-staple",
		"password_confirmation": "battery-staple",
	}

	c := f.newClient("203.0.113.5")
	c.bearer = f.tokenFor(ada)
	for i := 0; i < 10; i++ {
		expectError(t, c.do(http.MethodPut, path, wrong), http.StatusBadRequest, "VALIDATION_FAILED")
	}
	apiErr := expectError(t, c.do(http.MethodPut, path, wrong), http.StatusTooManyRequests, "TOO_MANY_REQUESTS")
	if apiErr.RetryAfter != 300 {
		t.Errorf("retry_after = %d, want 300", apiErr.RetryAfter)
	}
}
