// Quillpress - Content Publishing Platform API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quillpress

/*
Package metrics holds the process-wide Prometheus collectors shared across
packages.

Collectors owned by a single package (rate limiter decisions, auth failures)
live next to their code; this package carries the ones several packages
record into:

  - api_requests_total, api_request_duration_seconds, api_active_requests:
    recorded by middleware.PrometheusMetrics
  - circuit_breaker_*: recorded by the user repository breaker
  - app_info, app_uptime_seconds: set by cmd/server

All collectors register with the default registry through promauto and are
served by promhttp at /metrics:

	curl http://localhost:8080/metrics
*/
package metrics
