// Quillpress - Content Publishing Platform API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quillpress

// Package session provides the per-client session store shared by the rate
// limiter and the CSRF guard.
//
// A session is an opaque identifier (delivered in the qp_session cookie) that
// owns a small set of keyed byte values. Values expire together with their
// session: every write pushes the expiry of the whole session forward. Three backends are available:
//
//   - memory: process-local, lost on restart (development and tests)
//   - badger: embedded BadgerDB, survives restarts on a single node
//   - redis: shared across API replicas
//
// Stores do not serialize concurrent read-modify-write sequences on the same
// key; callers that need that must coordinate themselves.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

var (
	// ErrNotFound is returned when a key (or its whole session) does not exist.
	ErrNotFound = errors.New("session: key not found")

	// ErrInvalidSessionID is returned for empty session identifiers.
	ErrInvalidSessionID = errors.New("session: invalid session id")
)

// Store is a keyed mutable store scoped to a session identifier.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, sessionID, key string) ([]byte, error)

	// Set stores value under key and refreshes the session expiry.
	Set(ctx context.Context, sessionID, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, sessionID, key string) error

	// Destroy removes every key of the session.
	Destroy(ctx context.Context, sessionID string) error

	// Close releases backend resources.
	Close() error
}

// Collector is implemented by stores that need periodic cleanup.
type Collector interface {
	// CollectGarbage removes expired data and returns how many items were reclaimed.
	CollectGarbage(ctx context.Context) (int, error)
}

// GetJSON decodes the value stored under key into v.
func GetJSON(ctx context.Context, s Store, sessionID, key string, v any) error {
	data, err := s.Get(ctx, sessionID, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode session value %q: %w", key, err)
	}
	return nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, s Store, sessionID, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode session value %q: %w", key, err)
	}
	return s.Set(ctx, sessionID, key, data)
}

func validateID(sessionID string) error {
	if sessionID == "" {
		return ErrInvalidSessionID
	}
	return nil
}
