// Quillpress - Content Publishing Platform API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quillpress

package api

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/quillpress/internal/apierr"
	"github.com/tomtom215/quillpress/internal/validation"
)

// maxBodyBytes bounds request bodies read by handlers.
const maxBodyBytes = 1 << 20

// errBadBody marks bodies that could not be decoded at all.
var errBadBody = errors.New("request body could not be decoded")

// Request bodies as documented in the OpenAPI description. Handlers decode
// into validation.Input and check the rules below; each struct lists
// exactly the fields its rules name.
type (
	loginRequest struct {
		Email    string `json:"email" example:"writer@example.com"`
		Password string `json:"password"`
	}

	registerRequest struct {
		Email                string `json:"email" example:"writer@example.com"`
		Username             string `json:"username" example:"quill_writer"`
		Password             string `json:"password" minLength:"8" maxLength:"72"`
		PasswordConfirmation string `json:"password_confirmation"`
	}

	emailRequest struct {
		Email string `json:"email" example:"writer@example.com"`
	}

	tokenRequest struct {
		Token string `json:"token"`
	}

	resetPasswordRequest struct {
		Token                string `json:"token"`
		Password             string `json:"password" minLength:"8" maxLength:"72"`
		PasswordConfirmation string `json:"password_confirmation"`
	}

	changePasswordRequest struct {
		CurrentPassword      string `json:"current_password"`
		Password             string `json:"password" minLength:"8" maxLength:"72"`
		PasswordConfirmation string `json:"password_confirmation"`
	}
)

// Validation rules per endpoint.
var (
	loginRules = validation.Rules{
		"email":    {"required", "email"},
		"password": {"required"},
	}

	registerRules = validation.Rules{
		"email":                 {"required", "email", "max:255", "unique:users"},
		"username":              {"required", "min:3", "max:50", "regex:^[A-Za-z0-9_]+$", "unique:users"},
		"password":              {"required", "min:8", "max:72"},
		"password_confirmation": {"required", "same:password"},
	}

	emailRules = validation.Rules{
		"email": {"required", "email"},
	}

	tokenRules = validation.Rules{
		"token": {"required"},
	}

	resetPasswordRules = validation.Rules{
		"token":                 {"required"},
		"password":              {"required", "min:8", "max:72"},
		"password_confirmation": {"required", "same:password"},
	}

	changePasswordRules = validation.Rules{
		"current_password":      {"required"},
		"password":              {"required", "min:8", "max:72"},
		"password_confirmation": {"required", "same:password"},
	}
)

// decodeInput reads a JSON or form body into validation input.
// An empty body yields empty input so that "required" rules report it.
func decodeInput(w http.ResponseWriter, r *http.Request) (validation.Input, error) {
	input := validation.Input{}
	if r.Body == nil || r.ContentLength == 0 {
		return input, nil
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		parse := r.ParseForm
		if mediaType == "multipart/form-data" {
			parse = func() error { return r.ParseMultipartForm(maxBodyBytes) }
		}
		if err := parse(); err != nil {
			return nil, fmt.Errorf("%w: %v", errBadBody, err)
		}
		for key := range r.PostForm {
			input[key] = r.PostForm.Get(key)
		}
		return input, nil
	default:
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			return nil, fmt.Errorf("%w: %v", errBadBody, err)
		}
		return input, nil
	}
}

// validated decodes the body and applies rules. Undecodable bodies become
// a validation failure so they count against the rate limit like any
// other bad submission.
func (h *Handler) validated(w http.ResponseWriter, r *http.Request, rules validation.Rules) (validation.ValidatedInput, error) {
	input, err := decodeInput(w, r)
	if err != nil {
		vErr := apierr.NewValidationError()
		vErr.Add("body", "request body must be a JSON object or form")
		return nil, vErr
	}
	return h.gate.ValidateRequest(r.Context(), input, rules)
}

// idParam parses a positive int64 path parameter.
func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
