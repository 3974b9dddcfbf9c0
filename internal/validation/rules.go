// Quillpress - Content Publishing Platform API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quillpress

package validation

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// regexCache holds compiled "regex:" patterns.
var regexCache sync.Map

func (v *Validator) registerBuiltins() {
	v.rules["required"] = ruleRequired
	v.rules["email"] = tagRule("email", "%s must be a valid email address")
	v.rules["numeric"] = ruleNumeric
	v.rules["min"] = ruleBound("min", "at least")
	v.rules["max"] = ruleBound("max", "at most")
	v.rules["regex"] = ruleRegex
	v.rules["in"] = ruleIn
	v.rules["same"] = ruleSame
	v.rules["unique"] = v.ruleUnique
}

func ruleRequired(_ context.Context, s Subject) (string, error) {
	if isEmpty(s.Value) {
		return fmt.Sprintf("%s is required", s.Field), nil
	}
	return "", nil
}

// tagRule adapts a parameterless validator tag.
func tagRule(tag, template string) RuleFunc {
	return func(_ context.Context, s Subject) (string, error) {
		if GetValidator().Var(s.Value, tag) != nil {
			return fmt.Sprintf(template, s.Field), nil
		}
		return "", nil
	}
}

func ruleNumeric(_ context.Context, s Subject) (string, error) {
	switch val := s.Value.(type) {
	case float64, float32, int, int64, int32:
		return "", nil
	case string:
		if GetValidator().Var(val, "numeric") == nil {
			return "", nil
		}
	}
	return fmt.Sprintf("%s must be a number", s.Field), nil
}

// ruleBound checks string length or numeric magnitude against the parameter.
func ruleBound(tag, word string) RuleFunc {
	return func(_ context.Context, s Subject) (string, error) {
		if _, err := strconv.ParseFloat(s.Param, 64); err != nil {
			return "", fmt.Errorf("%s needs a numeric parameter, got %q", tag, s.Param)
		}

		switch val := s.Value.(type) {
		case string:
			if _, err := strconv.Atoi(s.Param); err != nil {
				return "", fmt.Errorf("%s on text needs an integer parameter, got %q", tag, s.Param)
			}
			if GetValidator().Var(val, tag+"="+s.Param) != nil {
				return fmt.Sprintf("%s must be %s %s characters", s.Field, word, s.Param), nil
			}
		case float64:
			if GetValidator().Var(val, tag+"="+s.Param) != nil {
				return fmt.Sprintf("%s must be %s %s", s.Field, word, s.Param), nil
			}
		default:
			return fmt.Sprintf("%s has an unsupported type", s.Field), nil
		}
		return "", nil
	}
}

func ruleRegex(_ context.Context, s Subject) (string, error) {
	re, err := compiled(s.Param)
	if err != nil {
		return "", err
	}
	if !re.MatchString(fmt.Sprint(s.Value)) {
		return fmt.Sprintf("%s format is invalid", s.Field), nil
	}
	return "", nil
}

func compiled(pattern string) (*regexp.Regexp, error) {
	if re, ok := regexCache.Load(pattern); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	regexCache.Store(pattern, re)
	return re, nil
}

func ruleIn(_ context.Context, s Subject) (string, error) {
	options := strings.Split(s.Param, ",")
	got := fmt.Sprint(s.Value)
	for _, o := range options {
		if strings.TrimSpace(o) == got {
			return "", nil
		}
	}
	return fmt.Sprintf("%s must be one of: %s", s.Field, strings.Join(options, ", ")), nil
}

func ruleSame(_ context.Context, s Subject) (string, error) {
	other, ok := s.Input[s.Param]
	if !ok || fmt.Sprint(other) != fmt.Sprint(s.Value) {
		return fmt.Sprintf("%s must match %s", s.Field, s.Param), nil
	}
	return "", nil
}

func (v *Validator) ruleUnique(ctx context.Context, s Subject) (string, error) {
	v.mu.RLock()
	checker, ok := v.unique[s.Param]
	v.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("no uniqueness checker for %q", s.Param)
	}

	exists, err := checker.Exists(ctx, s.Field, fmt.Sprint(s.Value))
	if err != nil {
		return "", err
	}
	if exists {
		return fmt.Sprintf("%s has already been taken", s.Field), nil
	}
	return "", nil
}
