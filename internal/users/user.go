// Quillpress - Content Publishing Platform API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quillpress

package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when no user matches.
	ErrNotFound = errors.New("user not found")

	// ErrDuplicate is returned when the email or username is taken.
	ErrDuplicate = errors.New("user already exists")
)

// User is a stored account.
type User struct {
	ID           int64
	Email        string
	Username     string
	PasswordHash string
	VerifiedAt   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// EmailVerified reports whether the email address has been confirmed.
func (u *User) EmailVerified() bool {
	return u.VerifiedAt != nil
}

// Repository persists users.
type Repository interface {
	FindByID(ctx context.Context, id int64) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)

	// Create stores u and fills in ID and timestamps.
	Create(ctx context.Context, u *User) error

	// Exists reports whether any user has value in field ("email" or "username").
	Exists(ctx context.Context, field, value string) (bool, error)

	MarkEmailVerified(ctx context.Context, id int64, at time.Time) error
	UpdatePassword(ctx context.Context, id int64, hash string) error
	Close() error
}

// lookupColumns are the fields Exists accepts.
var lookupColumns = map[string]bool{"email": true, "username": true}

func checkField(field string) error {
	if !lookupColumns[field] {
		return fmt.Errorf("users: field %q cannot be looked up", field)
	}
	return nil
}

// NormalizeEmail lowercases and trims an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeField(field, value string) string {
	if field == "email" {
		return NormalizeEmail(value)
	}
	return strings.TrimSpace(value)
}
