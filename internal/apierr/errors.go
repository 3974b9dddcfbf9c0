// Quillpress - Content Publishing Platform API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quillpress

// Package apierr defines the typed errors raised by the authentication gate,
// the rate limiter and the input validator.
//
// Gate components return these errors instead of writing responses. The
// transport layer (internal/api) translates them with StatusCode and Code:
//
//	AuthenticationError  401  UNAUTHORIZED
//	AuthorizationError   403  FORBIDDEN
//	ValidationError      400  VALIDATION_FAILED
//	RateLimitedError     429  TOO_MANY_REQUESTS
//	ConfigurationError   500  CONFIGURATION_ERROR (startup only)
package apierr

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strings"
	"time"
)

// Error codes shared with the API response envelope.
const (
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeForbidden        = "FORBIDDEN"
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeTooManyRequests  = "TOO_MANY_REQUESTS"
	CodeConfiguration    = "CONFIGURATION_ERROR"
)

// Coded is implemented by every error in this package.
type Coded interface {
	error
	StatusCode() int
	Code() string
}

// AuthenticationError means the request carries no usable credentials.
// Reason is a stable machine-readable string such as "missing token" or
// "expired".
type AuthenticationError struct {
	Reason string
	Err    error
}

// NewAuthenticationError returns an AuthenticationError with reason.
func NewAuthenticationError(reason string, err error) *AuthenticationError {
	return &AuthenticationError{Reason: reason, Err: err}
}

func (e *AuthenticationError) Error() string {
	return "authentication failed: " + e.Reason
}

func (e *AuthenticationError) Unwrap() error   { return e.Err }
func (e *AuthenticationError) StatusCode() int { return http.StatusUnauthorized }
func (e *AuthenticationError) Code() string    { return CodeUnauthorized }

// AuthorizationError means the principal is known but not allowed: ownership,
// CSRF, email verification and role failures.
type AuthorizationError struct {
	Reason string
}

// NewAuthorizationError returns an AuthorizationError with reason.
func NewAuthorizationError(reason string) *AuthorizationError {
	return &AuthorizationError{Reason: reason}
}

func (e *AuthorizationError) Error() string   { return e.Reason }
func (e *AuthorizationError) StatusCode() int { return http.StatusForbidden }
func (e *AuthorizationError) Code() string    { return CodeForbidden }

// ValidationError carries per-field messages.
type ValidationError struct {
	Fields map[string][]string
}

// NewValidationError returns an empty ValidationError ready for Add.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

// Add appends a message for field.
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], message)
}

// Empty reports whether no messages were recorded.
func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		names = append(names, f)
	}
	sort.Strings(names)
	return "validation failed: " + strings.Join(names, ", ")
}

func (e *ValidationError) StatusCode() int { return http.StatusBadRequest }
func (e *ValidationError) Code() string    { return CodeValidationFailed }

// RateLimitedError is returned while a client is blocked for an action.
type RateLimitedError struct {
	Action       string
	RetryAfter   time.Duration
	BlockedUntil time.Time
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("too many %s attempts, retry in %d seconds", e.Action, e.RetryAfterSeconds())
}

func (e *RateLimitedError) StatusCode() int { return http.StatusTooManyRequests }
func (e *RateLimitedError) Code() string    { return CodeTooManyRequests }

// RetryAfterSeconds rounds RetryAfter up to whole seconds, minimum 1.
func (e *RateLimitedError) RetryAfterSeconds() int64 {
	s := int64(math.Ceil(e.RetryAfter.Seconds()))
	if s < 1 {
		return 1
	}
	return s
}

// ConfigurationError is fatal at startup, never raised per request.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Key, e.Reason)
}

func (e *ConfigurationError) StatusCode() int { return http.StatusInternalServerError }
func (e *ConfigurationError) Code() string    { return CodeConfiguration }

// As returns the Coded error in err's chain, if any.
func As(err error) (Coded, bool) {
	var c Coded
	if errors.As(err, &c) {
		return c, true
	}
	return nil, false
}
