// Quillpress - Content Publishing Platform API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quillpress

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/quillpress/internal/metrics"
)

func TestPrometheusMetrics_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(PrometheusMetrics)
	r.Get("/api/v1/users/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Post("/api/v1/auth/login", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	counter := func(method, endpoint, status string) float64 {
		return testutil.ToFloat64(metrics.APIRequestsTotal.WithLabelValues(method, endpoint, status))
	}
	beforeUser := counter("GET", "/api/v1/users/{id}", "404")
	beforeLogin := counter("POST", "/api/v1/auth/login", "200")

	for _, path := range []string{"/api/v1/users/1", "/api/v1/users/2", "/api/v1/users/3"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil))

	if got := counter("GET", "/api/v1/users/{id}", "404") - beforeUser; got != 3 {
		t.Errorf("users/{id} 404 count = %v, want 3", got)
	}
	if got := counter("POST", "/api/v1/auth/login", "200") - beforeLogin; got != 1 {
		t.Errorf("login 200 count = %v, want 1 (implicit status)", got)
	}
	if got := testutil.ToFloat64(metrics.APIActiveRequests); got != 0 {
		t.Errorf("active requests = %v after completion", got)
	}
}

func TestPrometheusMetrics_Unmatched(t *testing.T) {
	handler := PrometheusMetrics(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	before := testutil.ToFloat64(metrics.APIRequestsTotal.WithLabelValues("GET", unmatchedEndpoint, "418"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/no/router", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d", rec.Code)
	}
	after := testutil.ToFloat64(metrics.APIRequestsTotal.WithLabelValues("GET", unmatchedEndpoint, "418"))
	if after-before != 1 {
		t.Errorf("unmatched count moved by %v", after-before)
	}
}
