// Quillpress - Content Publishing Platform API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quillpress

package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthFailures counts rejected bearer tokens.
	// Labels:
	//   - reason: "missing token", "malformed", "signature_invalid", "expired"
	AuthFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quillpress_auth_failures_total",
			Help: "Total number of failed authentications by reason",
		},
		[]string{"reason"},
	)

	// AuthorizationDenials counts gate decisions that refused a known principal.
	// Labels:
	//   - check: "ownership", "verified_email", "roles"
	AuthorizationDenials = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quillpress_authorization_denials_total",
			Help: "Total number of authorization denials by check",
		},
		[]string{"check"},
	)

	// CSRFFailures counts state-changing requests rejected for a bad CSRF token.
	CSRFFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quillpress_csrf_failures_total",
			Help: "Total number of CSRF token mismatches",
		},
	)
)
