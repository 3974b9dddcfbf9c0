// Quillpress - Content Publishing Platform API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quillpress

package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/tomtom215/quillpress/internal/apierr"
	"github.com/tomtom215/quillpress/internal/logging"
	"github.com/tomtom215/quillpress/internal/session"
)

// recordKeyPrefix namespaces limiter records inside a session.
const recordKeyPrefix = "ratelimit:"

// defaultMaxBlock caps escalation when no cap is configured.
const defaultMaxBlock = 24 * time.Hour

// Decision is the result of Check or RecordFailure.
type Decision struct {
	Allowed      bool
	RetryAfter   time.Duration
	BlockedUntil time.Time
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds.
func (d Decision) RetryAfterSeconds() int64 {
	return int64(math.Ceil(d.RetryAfter.Seconds()))
}

// Err converts a blocked decision to *apierr.RateLimitedError, nil otherwise.
func (d Decision) Err(action string) error {
	if d.Allowed {
		return nil
	}
	return &apierr.RateLimitedError{Action: action, RetryAfter: d.RetryAfter, BlockedUntil: d.BlockedUntil}
}

func allowed() Decision { return Decision{Allowed: true} }

func blockedAt(r *Record, now time.Time) Decision {
	return Decision{RetryAfter: r.BlockedUntil.Sub(now), BlockedUntil: *r.BlockedUntil}
}

// Config tunes a Limiter.
type Config struct {
	Policies *Policies

	// Escalate doubles the block for every earlier block of the key, capped at MaxBlock.
	Escalate bool
	MaxBlock time.Duration

	// SerializeUpdates guards each record's read-modify-write with an
	// in-process lock. Records then count concurrent attempts exactly.
	SerializeUpdates bool
}

// Option customizes a Limiter.
type Option func(*Limiter)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithAuditLogger sets the logger used for block transitions.
func WithAuditLogger(a *logging.AuditLogger) Option {
	return func(l *Limiter) { l.audit = a }
}

// Limiter evaluates attempts against per-action policies.
type Limiter struct {
	store    session.Store
	policies *Policies
	escalate bool
	maxBlock time.Duration
	locks    *keyedMutex
	now      func() time.Time
	audit    *logging.AuditLogger
}

// New returns a Limiter persisting its records in store.
func New(store session.Store, cfg Config, opts ...Option) *Limiter {
	l := &Limiter{
		store:    store,
		policies: cfg.Policies,
		escalate: cfg.Escalate,
		maxBlock: cfg.MaxBlock,
		now:      time.Now,
		audit:    logging.NewAuditLogger(),
	}
	if l.policies == nil {
		l.policies = DefaultPolicies()
	}
	if l.maxBlock <= 0 {
		l.maxBlock = defaultMaxBlock
	}
	if cfg.SerializeUpdates {
		l.locks = newKeyedMutex()
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Policy returns the policy applied to action.
func (l *Limiter) Policy(action string) Policy {
	return l.policies.For(action)
}

func recordKey(action, clientID string) string {
	return recordKeyPrefix + action + ":" + clientID
}

func (l *Limiter) lock(sessionID, key string) func() {
	if l.locks == nil {
		return func() {}
	}
	return l.locks.Lock(sessionID + "|" + key)
}

func (l *Limiter) load(ctx context.Context, sessionID, key string) (*Record, error) {
	var rec Record
	if err := session.GetJSON(ctx, l.store, sessionID, key, &rec); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load rate limit record: %w", err)
	}
	return &rec, nil
}

func (l *Limiter) save(ctx context.Context, sessionID, key string, rec *Record) error {
	if err := session.SetJSON(ctx, l.store, sessionID, key, rec); err != nil {
		return fmt.Errorf("save rate limit record: %w", err)
	}
	return nil
}

// Check admits or rejects an attempt at action by clientID within sessionID.
// An admitted attempt is recorded as pending and counts as a failure until
// RecordSuccess is called.
func (l *Limiter) Check(ctx context.Context, sessionID, action, clientID string) (Decision, error) {
	key := recordKey(action, clientID)
	defer l.lock(sessionID, key)()

	now := l.now()
	policy := l.policies.For(action)

	rec, err := l.load(ctx, sessionID, key)
	if err != nil {
		return Decision{}, err
	}

	var d Decision
	switch {
	case rec == nil:
		rec = newRecord(now)
		d = allowed()
	case rec.IsBlocked(now):
		decisionsTotal.WithLabelValues(action, decisionBlocked).Inc()
		return blockedAt(rec, now), nil
	case rec.blockExpired(now):
		rec.restart(now)
		d = allowed()
	default:
		rec.prune(now, policy.Window)
		switch {
		case now.Sub(rec.FirstAttemptTime) > policy.Window:
			rec.restart(now)
			d = allowed()
		case rec.Failures() >= policy.MaxAttempts:
			l.block(ctx, rec, now, policy, action, clientID)
			d = blockedAt(rec, now)
		default:
			rec.Attempts = append(rec.Attempts, Attempt{Timestamp: now, Pending: true})
			d = allowed()
		}
	}

	if err := l.save(ctx, sessionID, key, rec); err != nil {
		return Decision{}, err
	}
	decisionsTotal.WithLabelValues(action, decisionLabel(d)).Inc()
	return d, nil
}

// RecordSuccess marks the latest attempt successful and restarts the failure
// baseline. An active block is left in place.
func (l *Limiter) RecordSuccess(ctx context.Context, sessionID, action, clientID string) error {
	key := recordKey(action, clientID)
	defer l.lock(sessionID, key)()

	rec, err := l.load(ctx, sessionID, key)
	if err != nil || rec == nil {
		return err
	}

	now := l.now()
	latest := Attempt{Timestamp: now}
	if n := len(rec.Attempts); n > 0 {
		latest = rec.Attempts[n-1]
	}
	latest.Success = true
	latest.Pending = false
	rec.Attempts = []Attempt{latest}
	rec.FirstAttemptTime = now

	return l.save(ctx, sessionID, key, rec)
}

// RecordFailure settles the latest pending attempt as failed and blocks
// immediately when the policy limit is reached, so the attempt that hits the
// limit is the one that triggers the block.
func (l *Limiter) RecordFailure(ctx context.Context, sessionID, action, clientID string) (Decision, error) {
	key := recordKey(action, clientID)
	defer l.lock(sessionID, key)()

	now := l.now()
	policy := l.policies.For(action)

	rec, err := l.load(ctx, sessionID, key)
	if err != nil {
		return Decision{}, err
	}

	switch {
	case rec == nil:
		rec = newRecord(now)
	case rec.IsBlocked(now):
		return blockedAt(rec, now), nil
	case rec.blockExpired(now):
		rec.restart(now)
	default:
		rec.prune(now, policy.Window)
	}

	if n := len(rec.Attempts); n > 0 && rec.Attempts[n-1].Pending {
		rec.Attempts[n-1].Pending = false
	} else {
		rec.Attempts = append(rec.Attempts, Attempt{Timestamp: now})
	}

	d := allowed()
	if rec.Failures() >= policy.MaxAttempts {
		l.block(ctx, rec, now, policy, action, clientID)
		d = blockedAt(rec, now)
	}

	if err := l.save(ctx, sessionID, key, rec); err != nil {
		return Decision{}, err
	}
	return d, nil
}

// Record returns the stored record for inspection, or nil.
func (l *Limiter) Record(ctx context.Context, sessionID, action, clientID string) (*Record, error) {
	return l.load(ctx, sessionID, recordKey(action, clientID))
}

func (l *Limiter) block(ctx context.Context, rec *Record, now time.Time, policy Policy, action, clientID string) {
	rec.block(now, l.blockDuration(policy, rec.TotalBlocks))
	blocksTotal.WithLabelValues(action).Inc()
	l.audit.ClientBlocked(ctx, action, clientID, *rec.BlockedUntil, rec.TotalBlocks)
}

// blockDuration doubles policy.Block per earlier block when escalation is on.
func (l *Limiter) blockDuration(policy Policy, previousBlocks int) time.Duration {
	d := policy.Block
	if !l.escalate {
		return d
	}
	if d >= l.maxBlock {
		return l.maxBlock
	}
	for i := 0; i < previousBlocks; i++ {
		d *= 2
		if d >= l.maxBlock {
			return l.maxBlock
		}
	}
	return d
}
