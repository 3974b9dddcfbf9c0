// Quillpress - Content Publishing Platform API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quillpress

package session

import (
	"context"
	"fmt"
	"time"
)

// Store types accepted by NewStore.
const (
	StoreTypeMemory = "memory"
	StoreTypeBadger = "badger"
	StoreTypeRedis  = "redis"
)

// FactoryConfig selects a backend.
type FactoryConfig struct {
	Type     string
	Path     string // badger directory
	RedisURL string
	TTL      time.Duration
}

// NewStore builds the configured backend. An empty Type selects memory.
func NewStore(ctx context.Context, cfg FactoryConfig) (Store, error) {
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("session ttl must be positive, got %v", cfg.TTL)
	}

	switch cfg.Type {
	case "", StoreTypeMemory:
		return NewMemoryStore(cfg.TTL), nil
	case StoreTypeBadger:
		if cfg.Path == "" {
			return nil, fmt.Errorf("badger session store requires a path")
		}
		return OpenBadgerStore(cfg.Path, cfg.TTL)
	case StoreTypeRedis:
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("redis session store requires a url")
		}
		return OpenRedisStore(ctx, cfg.RedisURL, cfg.TTL)
	default:
		return nil, fmt.Errorf("unknown session store type %q", cfg.Type)
	}
}
