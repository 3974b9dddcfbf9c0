// Quillpress - Content Publishing Platform API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quillpress

package validation

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/tomtom215/quillpress/internal/apierr"
)

// singleton validator instance backing the built-in rules
var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// GetValidator returns the shared go-playground validator.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Input is decoded request data keyed by field name.
type Input map[string]any

// ValidatedInput holds the ruled fields that passed validation.
type ValidatedInput map[string]any

// String returns field as a string, or "" when absent.
func (v ValidatedInput) String(field string) string {
	s, _ := v[field].(string)
	return s
}

// Rules maps field names to rule specs such as "min:8".
type Rules map[string][]string

// Subject is what a rule evaluates.
type Subject struct {
	Field string
	Value any
	Param string
	Input Input
}

// RuleFunc returns a failure message, or "" when the subject passes. A
// non-nil error aborts validation.
type RuleFunc func(ctx context.Context, s Subject) (string, error)

// UniquenessChecker reports whether value is already taken for field.
type UniquenessChecker interface {
	Exists(ctx context.Context, field, value string) (bool, error)
}

// Option configures a Validator.
type Option func(*Validator)

// WithUniqueness answers "unique:collection" rules with checker.
func WithUniqueness(collection string, checker UniquenessChecker) Option {
	return func(v *Validator) { v.unique[collection] = checker }
}

// Validator evaluates Rules against Input.
type Validator struct {
	mu     sync.RWMutex
	rules  map[string]RuleFunc
	unique map[string]UniquenessChecker
}

// New returns a Validator with the built-in rules registered.
func New(opts ...Option) *Validator {
	v := &Validator{
		rules:  make(map[string]RuleFunc),
		unique: make(map[string]UniquenessChecker),
	}
	v.registerBuiltins()
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Register adds or replaces the rule called name.
func (v *Validator) Register(name string, fn RuleFunc) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.rules[name] = fn
}

func (v *Validator) rule(name string) (RuleFunc, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	fn, ok := v.rules[name]
	return fn, ok
}

// parseRule splits "name:param" on the first colon so patterns may contain colons.
func parseRule(spec string) (name, param string) {
	name, param, _ = strings.Cut(spec, ":")
	return strings.TrimSpace(name), param
}

func isEmpty(value any) bool {
	switch val := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	default:
		return false
	}
}

// Validate runs rules over input. It returns *apierr.ValidationError when
// any field fails, or a plain error when a rule cannot be evaluated.
func (v *Validator) Validate(ctx context.Context, input Input, rules Rules) (ValidatedInput, error) {
	verr := apierr.NewValidationError()
	out := make(ValidatedInput, len(rules))

	for field, specs := range rules {
		value, present := input[field]
		empty := !present || isEmpty(value)

		for _, spec := range specs {
			name, param := parseRule(spec)
			if empty && name != "required" {
				continue
			}

			fn, ok := v.rule(name)
			if !ok {
				return nil, fmt.Errorf("unknown validation rule %q on field %s", name, field)
			}
			msg, err := fn(ctx, Subject{Field: field, Value: value, Param: param, Input: input})
			if err != nil {
				return nil, fmt.Errorf("rule %s on field %s: %w", name, field, err)
			}
			if msg != "" {
				verr.Add(field, msg)
			}
		}

		if present {
			out[field] = value
		}
	}

	if !verr.Empty() {
		return nil, verr
	}
	return out, nil
}
