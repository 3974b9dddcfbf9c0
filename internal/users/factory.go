// Quillpress - Content Publishing Platform API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quillpress

package users

import (
	"context"
	"fmt"

	"github.com/tomtom215/quillpress/internal/config"
	"github.com/tomtom215/quillpress/internal/logging"
)

// Supported repository drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// Open returns the repository selected by cfg.Driver behind a circuit breaker.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*BreakerRepository, error) {
	var repo Repository
	switch cfg.Driver {
	case DriverMemory, "":
		repo = NewMemoryRepository()
	case DriverPostgres:
		pg, err := OpenPostgres(ctx, cfg)
		if err != nil {
			return nil, err
		}
		repo = pg
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	logging.Info().Str("driver", cfg.Driver).Msg("User repository ready")
	return NewBreakerRepository(repo, BreakerSettings{
		MaxFailures: cfg.BreakerMaxFailures,
		Timeout:     cfg.BreakerTimeout,
	}), nil
}
