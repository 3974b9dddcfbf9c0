// Quillpress - Content Publishing Platform API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quillpress

// Package ratelimit throttles repeated failed attempts at sensitive actions
// (login, registration, password reset, email verification).
//
// Each (action, client) pair owns a Record kept in the client's session:
//
//	Fresh -> Accumulating -> Blocked -> (block expiry) -> Fresh
//
// Check is called before the action runs. It records a pending attempt,
// which counts as a failure until RecordSuccess marks it otherwise. Once the
// failures inside the policy window reach MaxAttempts the record is blocked
// for the policy's block duration and every Check fails fast with the time
// left. A success never lifts an active block.
//
// Policies come from configuration; unknown actions use DefaultPolicy.
//
// Record updates are read-modify-write on the session store and are not
// atomic across concurrent requests of the same client unless the limiter is
// built with SerializeUpdates. Serializing makes the count exact, which blocks
// slightly earlier under concurrent load than the unserialized mode.
package ratelimit
