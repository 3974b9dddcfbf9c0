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
	"github.com/tomtom215/quillpress/internal/ratelimit"
	"github.com/tomtom215/quillpress/internal/session"
	"github.com/tomtom215/quillpress/internal/users"
)

// reasonInvalidCredentials covers both unknown emails and wrong passwords.
const reasonInvalidCredentials = "invalid credentials"

// Generic acknowledgements that do not reveal whether an account exists.
const (
	msgResetSent        = "If the address belongs to an account, a password reset link has been sent."
	msgVerificationSent = "If the address belongs to an unverified account, a verification link has been sent."
)

// csrfResponse is the body of GET /auth/csrf.
type csrfResponse struct {
	Token string `json:"csrf_token"`
}

// CSRFToken returns the session's CSRF token, creating it on first use.
// @Summary Get CSRF token
// @Description Returns the CSRF token bound to the caller's session and sets the session cookie on first use
// @Tags Auth
// @Produce json
// @Success 200 {object} APIResponse{data=csrfResponse}
// @Router /auth/csrf [get]
func (h *Handler) CSRFToken(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := session.IDFromContext(r.Context())
	if !ok {
		WriteError(w, r, errors.New("csrf endpoint mounted without session middleware"))
		return
	}
	token, err := h.csrf.Issue(r.Context(), sessionID)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteSuccess(w, r, csrfResponse{Token: token})
}

// Login exchanges email and password for an access token.
// @Summary Log in
// @Description Exchanges email and password for a bearer token. Failed attempts count towards the login lockout.
// @Tags Auth
// @Accept json
// @Produce json
// @Param X-CSRF-Token header string false "CSRF token (or _token body field)"
// @Param request body loginRequest true "Credentials"
// @Success 200 {object} APIResponse{data=tokenResponse}
// @Failure 400 {object} APIResponse "Validation failed"
// @Failure 401 {object} APIResponse "Invalid credentials"
// @Failure 403 {object} APIResponse "CSRF token mismatch"
// @Failure 429 {object} APIResponse "Too many attempts"
// @Router /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	in, err := h.validated(w, r, loginRules)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	email, password := in.String("email"), in.String("password")
	clientID := ratelimit.ClientIDFromContext(ctx)

	u, err := h.users.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, users.ErrNotFound):
		h.compareDummy(password)
		h.audit.LoginAttempt(ctx, email, clientID, false, "unknown_email")
		WriteError(w, r, apierr.NewAuthenticationError(reasonInvalidCredentials, nil))
		return
	case err != nil:
		WriteError(w, r, err)
		return
	case !h.hasher.Compare(u.PasswordHash, password):
		h.audit.LoginAttempt(ctx, email, clientID, false, "wrong_password")
		WriteError(w, r, apierr.NewAuthenticationError(reasonInvalidCredentials, nil))
		return
	}

	if h.hasher.NeedsRehash(u.PasswordHash) {
		h.rehash(r, u, password)
	}

	resp, err := h.issueAccessToken(u)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	h.audit.LoginAttempt(ctx, email, clientID, true, "")
	WriteSuccess(w, r, resp)
}

// rehash upgrades a hash made with an outdated cost. Failures only log.
func (h *Handler) rehash(r *http.Request, u *users.User, password string) {
	hash, err := h.hasher.Hash(password)
	if err == nil {
		err = h.users.UpdatePassword(r.Context(), u.ID, hash)
	}
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Int64("user_id", u.ID).Msg("Password rehash failed")
		return
	}
	u.PasswordHash = hash
}

// Register creates an account, sends the verification link and logs the
// new user in.
// @Summary Register
// @Description Creates an account, sends an email verification link and returns a bearer token
// @Tags Auth
// @Accept json
// @Produce json
// @Param X-CSRF-Token header string false "CSRF token (or _token body field)"
// @Param request body registerRequest true "New account"
// @Success 201 {object} APIResponse{data=tokenResponse}
// @Failure 400 {object} APIResponse "Validation failed"
// @Failure 403 {object} APIResponse "CSRF token mismatch"
// @Failure 429 {object} APIResponse "Too many attempts"
// @Router /auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	in, err := h.validated(w, r, registerRules)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	hash, err := h.hasher.Hash(in.String("password"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	u := &users.User{
		Email:        in.String("email"),
		Username:     in.String("username"),
		PasswordHash: hash,
	}
	if err := h.users.Create(ctx, u); err != nil {
		if errors.Is(err, users.ErrDuplicate) {
			vErr := apierr.NewValidationError()
			vErr.Add("email", "email or username has already been taken")
			err = vErr
		}
		WriteError(w, r, err)
		return
	}
	logging.Ctx(ctx).Info().Int64("user_id", u.ID).Str("email", logging.MaskEmail(u.Email)).Msg("Account registered")

	h.sendVerification(r, u)

	resp, err := h.issueAccessToken(u)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created(resp)
}

func (h *Handler) sendVerification(r *http.Request, u *users.User) {
	token, err := h.issueEmailToken(u, auth.PurposeEmailVerification)
	if err == nil {
		err = h.notifier.SendVerification(r.Context(), u, token)
	}
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Int64("user_id", u.ID).Msg("Failed to send verification message")
	}
}

// invalidLink is the validation failure for bad verification or reset tokens.
func invalidLink() error {
	vErr := apierr.NewValidationError()
	vErr.Add("token", "link is invalid or has expired")
	return vErr
}

// VerifyEmail confirms the address named by an email verification token.
// @Summary Verify email address
// @Tags Auth
// @Accept json
// @Produce json
// @Param X-CSRF-Token header string false "CSRF token (or _token body field)"
// @Param request body tokenRequest true "Verification token"
// @Success 200 {object} APIResponse
// @Failure 400 {object} APIResponse "Invalid or expired token"
// @Failure 429 {object} APIResponse "Too many attempts"
// @Router /auth/email/verify [post]
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	in, err := h.validated(w, r, tokenRules)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	claims, err := h.codec.VerifyPurpose(in.String("token"), auth.PurposeEmailVerification)
	if err != nil {
		logging.Ctx(ctx).Debug().Str("reason", auth.Reason(err)).Msg("Rejected verification token")
		WriteError(w, r, invalidLink())
		return
	}

	u, err := h.users.FindByID(ctx, claims.UserID)
	switch {
	case errors.Is(err, users.ErrNotFound):
		WriteError(w, r, invalidLink())
		return
	case err != nil:
		WriteError(w, r, err)
		return
	case users.NormalizeEmail(claims.Email) != u.Email:
		WriteError(w, r, invalidLink())
		return
	}

	if err := h.users.MarkEmailVerified(ctx, u.ID, h.now()); err != nil {
		WriteError(w, r, err)
		return
	}
	WriteSuccess(w, r, map[string]bool{"email_verified": true})
}

// ResendVerification sends a new verification link. The response is the
// same whether or not the address is known.
// @Summary Resend verification link
// @Tags Auth
// @Accept json
// @Produce json
// @Param X-CSRF-Token header string false "CSRF token (or _token body field)"
// @Param request body emailRequest true "Account email"
// @Success 202 {object} APIResponse{data=messageResponse}
// @Failure 429 {object} APIResponse "Too many attempts"
// @Router /auth/email/resend [post]
func (h *Handler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	in, err := h.validated(w, r, emailRules)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	u, err := h.users.FindByEmail(ctx, in.String("email"))
	switch {
	case errors.Is(err, users.ErrNotFound):
		ratelimit.MarkFailed(ctx)
	case err != nil:
		WriteError(w, r, err)
		return
	case u.EmailVerified():
		ratelimit.MarkFailed(ctx)
	default:
		h.sendVerification(r, u)
	}
	NewResponseWriter(w, r).Accepted(messageResponse{Message: msgVerificationSent})
}

// ForgotPassword sends a password reset link. The response is the same
// whether or not the address is known.
// @Summary Request password reset
// @Tags Auth
// @Accept json
// @Produce json
// @Param X-CSRF-Token header string false "CSRF token (or _token body field)"
// @Param request body emailRequest true "Account email"
// @Success 202 {object} APIResponse{data=messageResponse}
// @Failure 429 {object} APIResponse "Too many attempts"
// @Router /auth/password/forgot [post]
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	in, err := h.validated(w, r, emailRules)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	u, err := h.users.FindByEmail(ctx, in.String("email"))
	switch {
	case errors.Is(err, users.ErrNotFound):
		ratelimit.MarkFailed(ctx)
	case err != nil:
		WriteError(w, r, err)
		return
	default:
		token, err := h.issueEmailToken(u, auth.PurposePasswordReset)
		if err == nil {
			err = h.notifier.SendPasswordReset(ctx, u, token)
		}
		if err != nil {
			logging.Ctx(ctx).Error().Err(err).Int64("user_id", u.ID).Msg("Failed to send password reset message")
		}
	}
	NewResponseWriter(w, r).Accepted(messageResponse{Message: msgResetSent})
}

// ResetPassword sets a new password using a reset token.
// @Summary Reset password
// @Tags Auth
// @Accept json
// @Produce json
// @Param X-CSRF-Token header string false "CSRF token (or _token body field)"
// @Param request body resetPasswordRequest true "Reset token and new password"
// @Success 200 {object} APIResponse{data=messageResponse}
// @Failure 400 {object} APIResponse "Invalid token or validation failed"
// @Failure 429 {object} APIResponse "Too many attempts"
// @Router /auth/password/reset [post]
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	in, err := h.validated(w, r, resetPasswordRules)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	claims, err := h.codec.VerifyPurpose(in.String("token"), auth.PurposePasswordReset)
	if err != nil {
		logging.Ctx(ctx).Debug().Str("reason", auth.Reason(err)).Msg("Rejected reset token")
		WriteError(w, r, invalidLink())
		return
	}

	u, err := h.users.FindByID(ctx, claims.UserID)
	switch {
	case errors.Is(err, users.ErrNotFound):
		WriteError(w, r, invalidLink())
		return
	case err != nil:
		WriteError(w, r, err)
		return
	case claims.ID != passwordFingerprint(u.PasswordHash):
		WriteError(w, r, invalidLink())
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
	logging.Ctx(ctx).Info().Int64("user_id", u.ID).Msg("Password reset completed")
	WriteSuccess(w, r, messageResponse{Message: "Password has been reset."})
}

// Refresh issues a new access token for the authenticated principal,
// picking up email or username changes.
// @Summary Refresh access token
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Param X-CSRF-Token header string false "CSRF token"
// @Success 200 {object} APIResponse{data=tokenResponse}
// @Failure 401 {object} APIResponse "Missing, invalid or expired token"
// @Router /auth/refresh [post]
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	resp, err := h.issueAccessToken(u)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteSuccess(w, r, resp)
}

// Me returns the authenticated principal's account.
// @Summary Current account
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} APIResponse{data=userResponse}
// @Failure 401 {object} APIResponse "Missing, invalid or expired token"
// @Router /auth/me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	WriteSuccess(w, r, newUserResponse(u, true))
}

// currentUser loads the account of the principal set by RequireAuth. A
// token for a deleted account no longer authenticates.
func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) (*users.User, bool) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		WriteError(w, r, apierr.NewAuthenticationError(auth.ReasonMissing, nil))
		return nil, false
	}
	u, err := h.users.FindByID(r.Context(), p.ID())
	switch {
	case errors.Is(err, users.ErrNotFound):
		WriteError(w, r, apierr.NewAuthenticationError("account not found", err))
		return nil, false
	case err != nil:
		WriteError(w, r, err)
		return nil, false
	}
	return u, true
}
