// Quillpress - Content Publishing Platform API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quillpress

// Package validation checks request input against named rules.
//
// Rules are strings of the form "name" or "name:param" attached to input
// fields. Each name resolves through a registry, so new rules are added
// with Register rather than by editing a switch:
//
//	v := validation.New(validation.WithUniqueness("users", repo))
//	out, err := v.Validate(ctx, input, validation.Rules{
//	    "email":    {"required", "email", "unique:users"},
//	    "password": {"required", "min:8"},
//	    "password_confirmation": {"same:password"},
//	})
//
// Built-in rules:
//   - required, email, numeric, min:N, max:N (go-playground/validator v10)
//   - regex:PATTERN, in:a,b,c, same:field
//   - unique:collection, answered by a UniquenessChecker registered for
//     the collection; the field name doubles as the column
//
// Fields that are absent or empty are only checked by "required".
// Failures are returned as *apierr.ValidationError keyed by field.
package validation
