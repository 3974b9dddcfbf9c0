// Quillpress - Content Publishing Platform API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quillpress

package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/tomtom215/quillpress/internal/config"
)

// pqUniqueViolation is the SQLSTATE for unique constraint failures.
const pqUniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id                BIGSERIAL PRIMARY KEY,
	email             TEXT NOT NULL UNIQUE,
	username          TEXT NOT NULL UNIQUE,
	password_hash     TEXT NOT NULL,
	email_verified_at TIMESTAMPTZ,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const selectColumns = `id, email, username, password_hash, email_verified_at, created_at, updated_at`

// PostgresRepository stores users in PostgreSQL.
type PostgresRepository struct {
	db      *sql.DB
	timeout time.Duration
}

// OpenPostgres connects with lib/pq, applies pool settings and verifies the
// connection.
func OpenPostgres(ctx context.Context, cfg config.DatabaseConfig) (*PostgresRepository, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres db: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres db: %w", err)
	}

	repo := NewPostgresRepository(db, cfg.QueryTimeout)
	if err := repo.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

// NewPostgresRepository wraps an open database. A zero timeout disables the
// per-query deadline.
func NewPostgresRepository(db *sql.DB, timeout time.Duration) *PostgresRepository {
	return &PostgresRepository{db: db, timeout: timeout}
}

// EnsureSchema creates the users table if missing.
func (p *PostgresRepository) EnsureSchema(ctx context.Context) error {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure users table: %w", err)
	}
	return nil
}

func (p *PostgresRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.timeout)
}

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var (
		u        User
		verified sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &verified, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if verified.Valid {
		at := verified.Time
		u.VerifiedAt = &at
	}
	return &u, nil
}

func (p *PostgresRepository) FindByID(ctx context.Context, id int64) (*User, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	u, err := scanUser(p.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM users WHERE id = $1`, id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("find user %d: %w", id, err)
	}
	return u, err
}

func (p *PostgresRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	u, err := scanUser(p.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM users WHERE email = $1`, NormalizeEmail(email)))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return u, err
}

func (p *PostgresRepository) Create(ctx context.Context, u *User) error {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	u.Email = NormalizeEmail(u.Email)
	u.Username = normalizeField("username", u.Username)

	err := p.db.QueryRowContext(ctx,
		`INSERT INTO users (email, username, password_hash) VALUES ($1, $2, $3) RETURNING id, created_at, updated_at`,
		u.Email, u.Username, u.PasswordHash,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (p *PostgresRepository) Exists(ctx context.Context, field, value string) (bool, error) {
	if err := checkField(field); err != nil {
		return false, err
	}
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	// field is one of lookupColumns.
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE ` + field + ` = $1)`
	var exists bool
	if err := p.db.QueryRowContext(ctx, query, normalizeField(field, value)).Scan(&exists); err != nil {
		return false, fmt.Errorf("check %s exists: %w", field, err)
	}
	return exists, nil
}

func (p *PostgresRepository) MarkEmailVerified(ctx context.Context, id int64, at time.Time) error {
	return p.exec(ctx, `UPDATE users SET email_verified_at = COALESCE(email_verified_at, $2), updated_at = now() WHERE id = $1`, id, at.UTC())
}

func (p *PostgresRepository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	return p.exec(ctx, `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`, id, hash)
}

func (p *PostgresRepository) exec(ctx context.Context, query string, id int64, arg any) error {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	res, err := p.db.ExecContext(ctx, query, id, arg)
	if err != nil {
		return fmt.Errorf("update user %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user %d: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the database.
func (p *PostgresRepository) Close() error {
	return p.db.Close()
}
