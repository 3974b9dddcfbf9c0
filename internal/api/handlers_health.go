// Quillpress - Content Publishing Platform API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quillpress

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/quillpress/internal/logging"
	"github.com/tomtom215/quillpress/internal/metrics"
)

// healthCheckTimeout bounds each dependency probe.
const healthCheckTimeout = 2 * time.Second

// HealthStatus is the body of the health endpoints.
type HealthStatus struct {
	Status       string            `json:"status"`
	Version      string            `json:"version,omitempty"`
	Uptime       float64           `json:"uptime_seconds"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// runChecks probes every dependency and reports "ok" or the error text.
func (h *Handler) runChecks(ctx context.Context) (map[string]string, bool) {
	results := make(map[string]string, len(h.checks))
	healthy := true
	for _, c := range h.checks {
		cctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		err := c.Check(cctx)
		cancel()

		if err != nil {
			healthy = false
			results[c.Name] = err.Error()
			logging.Ctx(ctx).Warn().Err(err).Str("dependency", c.Name).Msg("Health check failed")
			continue
		}
		results[c.Name] = "ok"
	}
	return results, healthy
}

func (h *Handler) uptime() float64 {
	metrics.UpdateUptime(h.startTime)
	return h.now().Sub(h.startTime).Seconds()
}

// Health reports overall status. It always answers 200; "degraded" means a
// dependency probe failed.
// @Summary Health status
// @Tags Health
// @Produce json
// @Success 200 {object} APIResponse{data=HealthStatus}
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	deps, healthy := h.runChecks(r.Context())
	status := "healthy"
	if !healthy {
		status = "degraded"
	}
	WriteSuccess(w, r, HealthStatus{
		Status:       status,
		Version:      h.version,
		Uptime:       h.uptime(),
		Dependencies: deps,
	})
}

// HealthLive returns 200 while the process is alive, regardless of dependencies.
// @Summary Liveness probe
// @Tags Health
// @Produce json
// @Success 200 {object} APIResponse{data=HealthStatus}
// @Router /health/live [get]
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, r, HealthStatus{Status: "alive", Uptime: h.uptime()})
}

// HealthReady returns 200 only when every dependency probe passes, 503 otherwise.
// @Summary Readiness probe
// @Tags Health
// @Produce json
// @Success 200 {object} APIResponse{data=HealthStatus}
// @Failure 503 {object} APIResponse "A dependency is unavailable"
// @Router /health/ready [get]
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	deps, healthy := h.runChecks(r.Context())
	if !healthy {
		rw := NewResponseWriter(w, r)
		rw.writeJSON(http.StatusServiceUnavailable, APIResponse{
			Success: false,
			Data:    HealthStatus{Status: "not_ready", Uptime: h.uptime(), Dependencies: deps},
			Error:   &APIError{Code: ErrCodeServiceUnavailable, Message: "dependencies unavailable"},
			Meta:    rw.meta(),
		})
		return
	}
	WriteSuccess(w, r, HealthStatus{Status: "ready", Uptime: h.uptime(), Dependencies: deps})
}
