// Quillpress - Content Publishing Platform API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quillpress

package ratelimit

import "time"

// Throttled actions.
const (
	ActionLogin              = "login"
	ActionRegister           = "register"
	ActionPasswordReset      = "password_reset"
	ActionEmailVerification  = "email_verification"
	ActionResendVerification = "resend_verification"

	// ActionPasswordChange has no policy of its own and uses the default.
	ActionPasswordChange = "password_change"
)

// Policy bounds one action: at most MaxAttempts failures inside Window, then
// a Block-long block.
type Policy struct {
	MaxAttempts int
	Window      time.Duration
	Block       time.Duration
}

// DefaultPolicy applies to actions without their own entry.
var DefaultPolicy = Policy{MaxAttempts: 10, Window: 300 * time.Second, Block: 300 * time.Second}

// Policies maps action names to policies.
type Policies struct {
	fallback Policy
	actions  map[string]Policy
}

// NewPolicies copies actions; fallback serves every other action.
func NewPolicies(fallback Policy, actions map[string]Policy) *Policies {
	p := &Policies{fallback: fallback, actions: make(map[string]Policy, len(actions))}
	for name, policy := range actions {
		p.actions[name] = policy
	}
	return p
}

// DefaultPolicies returns the stock table.
func DefaultPolicies() *Policies {
	return NewPolicies(DefaultPolicy, map[string]Policy{
		ActionLogin:              {MaxAttempts: 5, Window: 300 * time.Second, Block: 900 * time.Second},
		ActionRegister:           {MaxAttempts: 3, Window: 300 * time.Second, Block: 600 * time.Second},
		ActionPasswordReset:      {MaxAttempts: 3, Window: 300 * time.Second, Block: 1800 * time.Second},
		ActionEmailVerification:  {MaxAttempts: 10, Window: 300 * time.Second, Block: 300 * time.Second},
		ActionResendVerification: {MaxAttempts: 3, Window: 600 * time.Second, Block: 1800 * time.Second},
	})
}

// For returns the policy of action.
func (p *Policies) For(action string) Policy {
	if policy, ok := p.actions[action]; ok {
		return policy
	}
	return p.fallback
}
