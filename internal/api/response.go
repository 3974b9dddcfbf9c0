// Quillpress - Content Publishing Platform API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quillpress

package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/quillpress/internal/apierr"
	"github.com/tomtom215/quillpress/internal/logging"
)

// APIResponse is the standardized response wrapper for all API endpoints.
type APIResponse struct {
	// Success indicates whether the request was successful
	Success bool `json:"success"`

	// Data contains the response payload (null on error)
	Data any `json:"data,omitempty"`

	// Error contains error details (null on success)
	Error *APIError `json:"error,omitempty"`

	// Meta contains optional metadata about the response
	Meta *APIMeta `json:"meta,omitempty"`
}

// APIError represents an error response.
type APIError struct {
	// Code is a machine-readable error code
	Code string `json:"code"`

	// Message is a human-readable error message
	Message string `json:"message"`

	// Details contains additional error details (optional)
	Details any `json:"details,omitempty"`

	// RetryAfter is set on 429 responses, in seconds
	RetryAfter int64 `json:"retry_after,omitempty"`

	// BlockedUntil is set on 429 responses, in epoch seconds
	BlockedUntil int64 `json:"blocked_until,omitempty"`

	// RequestID is the request ID for tracing
	RequestID string `json:"request_id,omitempty"`
}

// APIMeta contains optional response metadata.
type APIMeta struct {
	RequestID  string    `json:"request_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	DurationMs int64     `json:"duration_ms,omitempty"`
}

// Error codes owned by the transport layer. Gate error codes come from apierr.
const (
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// ResponseWriter provides methods for writing standardized API responses.
type ResponseWriter struct {
	w         http.ResponseWriter
	r         *http.Request
	startTime time.Time
}

// NewResponseWriter creates a new response writer.
func NewResponseWriter(w http.ResponseWriter, r *http.Request) *ResponseWriter {
	return &ResponseWriter{
		w:         w,
		r:         r,
		startTime: time.Now(),
	}
}

func (rw *ResponseWriter) meta() *APIMeta {
	return &APIMeta{
		RequestID:  logging.RequestIDFromContext(rw.r.Context()),
		Timestamp:  time.Now(),
		DurationMs: time.Since(rw.startTime).Milliseconds(),
	}
}

// Success writes a 200 response with data.
func (rw *ResponseWriter) Success(data any) {
	rw.writeJSON(http.StatusOK, APIResponse{Success: true, Data: data, Meta: rw.meta()})
}

// Created writes a 201 Created response.
func (rw *ResponseWriter) Created(data any) {
	rw.writeJSON(http.StatusCreated, APIResponse{Success: true, Data: data, Meta: rw.meta()})
}

// Accepted writes a 202 Accepted response.
func (rw *ResponseWriter) Accepted(data any) {
	rw.writeJSON(http.StatusAccepted, APIResponse{Success: true, Data: data, Meta: rw.meta()})
}

// Error writes an error response with the given status code.
func (rw *ResponseWriter) Error(statusCode int, code, message string) {
	rw.writeError(statusCode, &APIError{Code: code, Message: message})
}

func (rw *ResponseWriter) writeError(statusCode int, apiErr *APIError) {
	m := rw.meta()
	apiErr.RequestID = m.RequestID
	rw.writeJSON(statusCode, APIResponse{Success: false, Error: apiErr, Meta: m})
}

// Err translates err into a response. Typed gate errors keep their status
// and code; anything else is logged and hidden behind a 500.
func (rw *ResponseWriter) Err(err error) {
	coded, ok := apierr.As(err)
	if !ok {
		logging.Ctx(rw.r.Context()).Error().Err(err).
			Str("method", rw.r.Method).
			Str("path", rw.r.URL.Path).
			Msg("Unhandled API error")
		rw.Error(http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
		return
	}

	apiErr := &APIError{Code: coded.Code(), Message: coded.Error()}

	var vErr *apierr.ValidationError
	if errors.As(err, &vErr) {
		apiErr.Details = vErr.Fields
	}

	var rl *apierr.RateLimitedError
	if errors.As(err, &rl) {
		apiErr.RetryAfter = rl.RetryAfterSeconds()
		apiErr.BlockedUntil = rl.BlockedUntil.Unix()
		rw.w.Header().Set("Retry-After", strconv.FormatInt(apiErr.RetryAfter, 10))
	}

	var authErr *apierr.AuthenticationError
	if errors.As(err, &authErr) {
		rw.w.Header().Set("WWW-Authenticate", `Bearer realm="quillpress"`)
	}

	rw.writeError(coded.StatusCode(), apiErr)
}

// writeJSON writes JSON response with proper headers.
func (rw *ResponseWriter) writeJSON(statusCode int, data any) {
	rw.w.Header().Set("Content-Type", "application/json; charset=utf-8")
	rw.w.WriteHeader(statusCode)

	if err := json.NewEncoder(rw.w).Encode(data); err != nil {
		logging.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// WriteSuccess is a convenience function for writing success responses.
func WriteSuccess(w http.ResponseWriter, r *http.Request, data any) {
	NewResponseWriter(w, r).Success(data)
}

// WriteError renders err in the standard envelope. Its signature matches
// auth.ErrorWriter and ratelimit.ErrorWriter so the gate components render
// their failures the same way as handlers do.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	NewResponseWriter(w, r).Err(err)
}

// WriteBadRequest is a convenience function for 400 errors.
func WriteBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	NewResponseWriter(w, r).Error(http.StatusBadRequest, ErrCodeBadRequest, message)
}

// WriteNotFound is a convenience function for 404 errors.
func WriteNotFound(w http.ResponseWriter, r *http.Request, message string) {
	NewResponseWriter(w, r).Error(http.StatusNotFound, ErrCodeNotFound, message)
}
