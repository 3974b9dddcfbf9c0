// Quillpress - Content Publishing Platform API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quillpress

package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/quillpress/internal/logging"
	"github.com/tomtom215/quillpress/internal/metrics"
)

// BreakerSettings tunes BreakerRepository.
type BreakerSettings struct {
	Name        string
	MaxFailures uint32        // consecutive failures that open the circuit
	Timeout     time.Duration // open period before a half-open probe
}

// BreakerRepository guards a Repository with a circuit breaker.
// ErrNotFound and ErrDuplicate are answers, not failures, and never trip it.
type BreakerRepository struct {
	next Repository
	cb   *gobreaker.CircuitBreaker[any]
	name string
}

// NewBreakerRepository wraps next.
func NewBreakerRepository(next Repository, s BreakerSettings) *BreakerRepository {
	if s.Name == "" {
		s.Name = "user-repository"
	}
	if s.MaxFailures == 0 {
		s.MaxFailures = 5
	}
	if s.Timeout <= 0 {
		s.Timeout = 30 * time.Second
	}

	metrics.CircuitBreakerState.WithLabelValues(s.Name).Set(0)
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(s.Name).Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 1,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			trip := counts.ConsecutiveFailures >= s.MaxFailures
			if trip {
				logging.Warn().Str("breaker", s.Name).Uint32("failures", counts.ConsecutiveFailures).Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return trip
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicate)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Str("from", stateToString(from)).Str("to", stateToString(to)).Msg("[CIRCUIT BREAKER] State transition")
			metrics.RecordBreakerTransition(name, stateToString(from), stateToString(to), stateToFloat(to))
		},
	})

	return &BreakerRepository{next: next, cb: cb, name: s.Name}
}

// State reports the breaker state.
func (b *BreakerRepository) State() gobreaker.State {
	return b.cb.State()
}

func (b *BreakerRepository) execute(fn func() (any, error)) (any, error) {
	result, err := b.cb.Execute(fn)
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RecordBreakerResult(b.name, "rejected", b.cb.Counts().ConsecutiveFailures)
		logging.Warn().Err(err).Str("breaker", b.name).Msg("[CIRCUIT BREAKER] Request rejected")
	case err != nil && !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrDuplicate):
		metrics.RecordBreakerResult(b.name, "failure", b.cb.Counts().ConsecutiveFailures)
	default:
		metrics.RecordBreakerResult(b.name, "success", 0)
	}
	return result, err
}

// castResult type-checks a breaker result.
func castResult[T any](result any, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	typed, ok := result.(*T)
	if !ok {
		return nil, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

func (b *BreakerRepository) FindByID(ctx context.Context, id int64) (*User, error) {
	return castResult[User](b.execute(func() (any, error) {
		return b.next.FindByID(ctx, id)
	}))
}

func (b *BreakerRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return castResult[User](b.execute(func() (any, error) {
		return b.next.FindByEmail(ctx, email)
	}))
}

func (b *BreakerRepository) Create(ctx context.Context, u *User) error {
	_, err := b.execute(func() (any, error) {
		return nil, b.next.Create(ctx, u)
	})
	return err
}

func (b *BreakerRepository) Exists(ctx context.Context, field, value string) (bool, error) {
	result, err := b.execute(func() (any, error) {
		return b.next.Exists(ctx, field, value)
	})
	if err != nil {
		return false, err
	}
	exists, _ := result.(bool)
	return exists, nil
}

func (b *BreakerRepository) MarkEmailVerified(ctx context.Context, id int64, at time.Time) error {
	_, err := b.execute(func() (any, error) {
		return nil, b.next.MarkEmailVerified(ctx, id, at)
	})
	return err
}

func (b *BreakerRepository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	_, err := b.execute(func() (any, error) {
		return nil, b.next.UpdatePassword(ctx, id, hash)
	})
	return err
}

// Close closes the wrapped repository.
func (b *BreakerRepository) Close() error {
	return b.next.Close()
}

// stateToFloat converts circuit breaker state to numeric value for metrics
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
