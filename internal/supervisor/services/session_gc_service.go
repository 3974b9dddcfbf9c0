// Quillpress - Content Publishing Platform API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quillpress

package services

import (
	"context"
	"time"

	"github.com/tomtom215/quillpress/internal/logging"
	"github.com/tomtom215/quillpress/internal/metrics"
	"github.com/tomtom215/quillpress/internal/session"
)

// defaultGCInterval applies when the configured interval is not positive.
const defaultGCInterval = 5 * time.Minute

// SessionGCService periodically reclaims expired session data. A failed
// run is logged and counted and the service keeps its schedule.
type SessionGCService struct {
	collector session.Collector
	interval  time.Duration
	name      string
}

// NewSessionGCService runs collector every interval.
func NewSessionGCService(collector session.Collector, interval time.Duration) *SessionGCService {
	if interval <= 0 {
		interval = defaultGCInterval
	}
	return &SessionGCService{
		collector: collector,
		interval:  interval,
		name:      "session-gc",
	}
}

// Serve implements suture.Service.
func (s *SessionGCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *SessionGCService) runOnce(ctx context.Context) {
	started := time.Now()
	reclaimed, err := s.collector.CollectGarbage(ctx)
	metrics.RecordSessionGC(reclaimed, err)
	if err != nil {
		if ctx.Err() == nil {
			logging.Warn().Err(err).Msg("Session garbage collection failed")
		}
		return
	}
	logging.Debug().
		Int("reclaimed", reclaimed).
		Dur("duration", time.Since(started)).
		Msg("Session garbage collection finished")
}

// String implements fmt.Stringer.
func (s *SessionGCService) String() string {
	return s.name
}
