// Quillpress - Content Publishing Platform API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quillpress

/*
Package middleware provides the transport middleware shared by every route.

Key Components:

  - RequestID: X-Request-ID propagation plus logging correlation IDs
  - AccessLog: one structured zerolog line per request
  - PrometheusMetrics: request counters and latency histograms keyed by
    the chi route pattern, so path parameters do not explode cardinality
  - SecurityHeaders: nosniff, frame denial, referrer policy and HSTS

Middleware Stack:

The router applies them in this order, before session handling and the
authentication gate:

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.AccessLog)
	r.Use(middleware.PrometheusMetrics)
	r.Use(middleware.SecurityHeaders)

All middleware here is stateless and safe for concurrent use.
*/
package middleware
