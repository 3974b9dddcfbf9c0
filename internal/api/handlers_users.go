// Quillpress - Content Publishing Platform API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quillpress

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/quillpress/internal/apierr"
	"github.com/tomtom215/quillpress/internal/auth"
	"github.com/tomtom215/quillpress/internal/logging"
	"github.com/tomtom215/quillpress/internal/users"
)

// GetUser returns a public profile. The owner also sees the email address.
// @Summary Get user profile
// @Tags Users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} APIResponse{data=userResponse}
// @Failure 400 {object} APIResponse "Invalid user ID"
// @Failure 404 {object} APIResponse "User not found"
// @Router /users/{id} [get]
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		WriteBadRequest(w, r, "user id must be a positive integer")
		return
	}

	u, err := h.users.FindByID(r.Context(), id)
	switch {
	case errors.Is(err, users.ErrNotFound):
		WriteNotFound(w, r, "user not found")
		return
	case err != nil:
		WriteError(w, r, err)
		return
	}

	p, _ := auth.PrincipalFromContext(r.Context())
	owner := p != nil && h.gate.AuthorizeOwnership(p, &u.ID) == nil
	WriteSuccess(w, r, newUserResponse(u, owner))
}

// UpdatePassword changes the password of the authenticated owner. The
// route requires a verified email.
// @Summary Change password
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param X-CSRF-Token header string false "CSRF token (or _token body field)"
// @Param request body changePasswordRequest true "Current and new password"
// @Success 200 {object} APIResponse{data=messageResponse}
// @Failure 400 {object} APIResponse "Validation failed"
// @Failure 401 {object} APIResponse "Missing, invalid or expired token"
// @Failure 403 {object} APIResponse "Not the owner or email not verified"
// @Failure 429 {object} APIResponse "Too many attempts"
// @Router /users/{id}/password [put]
func (h *Handler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := idParam(r, "id")
	if !ok {
		WriteBadRequest(w, r, "user id must be a positive integer")
		return
	}

	p, _ := auth.PrincipalFromContext(ctx)
	if err := h.gate.AuthorizeOwnership(p, &id); err != nil {
		WriteError(w, r, err)
		return
	}

	in, err := h.validated(w, r, changePasswordRules)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	u, err := h.users.FindByID(ctx, id)
	switch {
	case errors.Is(err, users.ErrNotFound):
		WriteNotFound(w, r, "user not found")
		return
	case err != nil:
		WriteError(w, r, err)
		return
	}

	if !h.hasher.Compare(u.PasswordHash, in.String("current_password")) {
		vErr := apierr.NewValidationError()
		vErr.Add("current_password", "current password is incorrect")
		WriteError(w, r, vErr)
		return
	}

	hash, err := h.hasher.Hash(in.String("password"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if err := h.users.UpdatePassword(ctx, u.ID, hash); err != nil {
		WriteError(w, r, err)
		return
	}
	logging.Ctx(ctx).Info().Int64("user_id", u.ID).Msg("Password changed")
	WriteSuccess(w, r, messageResponse{Message: "Password has been changed."})
}
