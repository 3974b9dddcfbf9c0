// Quillpress - Content Publishing Platform API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quillpress

package users

import (
	"context"
	"sync"
	"time"
)

// MemoryRepository keeps users in process memory.
type MemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]*User
	now    func() time.Time
}

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID: make(map[int64]*User),
		now:  time.Now,
	}
}

func clone(u *User) *User {
	c := *u
	if u.VerifiedAt != nil {
		at := *u.VerifiedAt
		c.VerifiedAt = &at
	}
	return &c
}

func (m *MemoryRepository) FindByID(_ context.Context, id int64) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(u), nil
}

func (m *MemoryRepository) FindByEmail(_ context.Context, email string) (*User, error) {
	email = NormalizeEmail(email)
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.byID {
		if u.Email == email {
			return clone(u), nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryRepository) Create(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u.Email = NormalizeEmail(u.Email)
	u.Username = normalizeField("username", u.Username)
	for _, existing := range m.byID {
		if existing.Email == u.Email || existing.Username == u.Username {
			return ErrDuplicate
		}
	}

	m.nextID++
	now := m.now().UTC()
	u.ID = m.nextID
	u.CreatedAt = now
	u.UpdatedAt = now
	m.byID[u.ID] = clone(u)
	return nil
}

func (m *MemoryRepository) Exists(_ context.Context, field, value string) (bool, error) {
	if err := checkField(field); err != nil {
		return false, err
	}
	value = normalizeField(field, value)

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.byID {
		if (field == "email" && u.Email == value) || (field == "username" && u.Username == value) {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryRepository) MarkEmailVerified(_ context.Context, id int64, at time.Time) error {
	return m.update(id, func(u *User) {
		if u.VerifiedAt == nil {
			at := at.UTC()
			u.VerifiedAt = &at
		}
	})
}

func (m *MemoryRepository) UpdatePassword(_ context.Context, id int64, hash string) error {
	return m.update(id, func(u *User) { u.PasswordHash = hash })
}

func (m *MemoryRepository) update(id int64, fn func(*User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	fn(u)
	u.UpdatedAt = m.now().UTC()
	return nil
}

// Close is a no-op.
func (m *MemoryRepository) Close() error { return nil }
