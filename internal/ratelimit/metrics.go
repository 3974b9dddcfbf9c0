// Quillpress - Content Publishing Platform API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quillpress

package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	decisionAllowed = "allowed"
	decisionBlocked = "blocked"
)

var (
	// decisionsTotal counts Check results.
	// Labels: action, decision ("allowed", "blocked").
	decisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quillpress_ratelimit_decisions_total",
			Help: "Rate limiter check decisions by action",
		},
		[]string{"action", "decision"},
	)

	// blocksTotal counts transitions into the blocked state.
	blocksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quillpress_ratelimit_blocks_total",
			Help: "Clients blocked by the rate limiter, by action",
		},
		[]string{"action"},
	)

	// storeErrorsTotal counts checks skipped because the session store failed.
	storeErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quillpress_ratelimit_store_errors_total",
			Help: "Rate limiter operations that failed on the session store",
		},
		[]string{"action", "operation"},
	)
)

func decisionLabel(d Decision) string {
	if d.Allowed {
		return decisionAllowed
	}
	return decisionBlocked
}
