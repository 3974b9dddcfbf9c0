// Quillpress - Content Publishing Platform API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quillpress

package ratelimit

import "time"

// Attempt is one throttled call. Pending attempts have been admitted by
// Check but their outcome is not known yet; they count as failures.
type Attempt struct {
	Timestamp time.Time `json:"timestamp"`
	Success   bool      `json:"success"`
	Pending   bool      `json:"pending,omitempty"`
}

// Record is the throttling state of one (action, client) key.
type Record struct {
	Attempts         []Attempt  `json:"attempts"`
	FirstAttemptTime time.Time  `json:"first_attempt_time"`
	BlockedUntil     *time.Time `json:"blocked_until,omitempty"`
	TotalBlocks      int        `json:"total_blocks"`
}

func newRecord(now time.Time) *Record {
	return &Record{
		Attempts:         []Attempt{{Timestamp: now, Pending: true}},
		FirstAttemptTime: now,
	}
}

// restart returns the record to Fresh with a single pending attempt.
// TotalBlocks survives so escalation keeps working.
func (r *Record) restart(now time.Time) {
	r.Attempts = []Attempt{{Timestamp: now, Pending: true}}
	r.FirstAttemptTime = now
	r.BlockedUntil = nil
}

// IsBlocked reports whether a block is active at now.
func (r *Record) IsBlocked(now time.Time) bool {
	return r.BlockedUntil != nil && now.Before(*r.BlockedUntil)
}

func (r *Record) blockExpired(now time.Time) bool {
	return r.BlockedUntil != nil && !now.Before(*r.BlockedUntil)
}

// prune drops attempts older than window.
func (r *Record) prune(now time.Time, window time.Duration) {
	kept := r.Attempts[:0]
	for _, a := range r.Attempts {
		if now.Sub(a.Timestamp) <= window {
			kept = append(kept, a)
		}
	}
	r.Attempts = kept
}

// Failures counts unsuccessful attempts, pending ones included.
func (r *Record) Failures() int {
	n := 0
	for _, a := range r.Attempts {
		if !a.Success {
			n++
		}
	}
	return n
}

func (r *Record) block(now time.Time, d time.Duration) {
	until := now.Add(d)
	r.BlockedUntil = &until
	r.TotalBlocks++
}
