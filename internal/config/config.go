// Quillpress - Content Publishing Platform API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quillpress

package config

import (
	"fmt"
	"time"
)

// Config is the complete application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Security  SecurityConfig  `koanf:"security"`
	Session   SessionConfig   `koanf:"session"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Database  DatabaseConfig  `koanf:"database"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"` // development or production
}

// Addr returns host:port for net/http.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// IsProduction reports whether stricter startup checks apply.
func (s ServerConfig) IsProduction() bool {
	return s.Environment == "production"
}

// SecurityConfig covers tokens, passwords, CSRF, CORS and proxy trust.
type SecurityConfig struct {
	// TokenSecret signs bearer tokens (HS256). Required.
	TokenSecret          string        `koanf:"token_secret"`
	TokenTTL             time.Duration `koanf:"token_ttl"`
	VerificationTokenTTL time.Duration `koanf:"verification_token_ttl"`
	BcryptCost           int           `koanf:"bcrypt_cost"`

	CSRFEnabled    bool   `koanf:"csrf_enabled"`
	CSRFHeaderName string `koanf:"csrf_header_name"`
	CSRFFieldName  string `koanf:"csrf_field_name"`

	CORSOrigins []string `koanf:"cors_origins"`

	// TrustedProxies restricts which peers may supply X-Forwarded-For and
	// X-Real-IP. Empty means forwarded headers are always considered.
	TrustedProxies []string `koanf:"trusted_proxies"`

	// Coarse per-IP request ceiling applied to the whole API (httprate).
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// SessionConfig selects and tunes the session store.
type SessionConfig struct {
	Store        string        `koanf:"store"` // memory, badger or redis
	Path         string        `koanf:"path"`
	RedisURL     string        `koanf:"redis_url"`
	TTL          time.Duration `koanf:"ttl"`
	CookieName   string        `koanf:"cookie_name"`
	CookieSecure bool          `koanf:"cookie_secure"`
	GCInterval   time.Duration `koanf:"gc_interval"`
}

// PolicyConfig is one rate-limit policy row.
type PolicyConfig struct {
	MaxAttempts int           `koanf:"max_attempts"`
	Window      time.Duration `koanf:"window"`
	Block       time.Duration `koanf:"block"`
}

// RateLimitConfig holds the per-action abuse throttling table.
type RateLimitConfig struct {
	Default            PolicyConfig `koanf:"default"`
	Login              PolicyConfig `koanf:"login"`
	Register           PolicyConfig `koanf:"register"`
	PasswordReset      PolicyConfig `koanf:"password_reset"`
	EmailVerification  PolicyConfig `koanf:"email_verification"`
	ResendVerification PolicyConfig `koanf:"resend_verification"`

	// SerializeUpdates makes each record update atomic within this process.
	// Off by default; enabling it blocks slightly earlier under concurrent load.
	SerializeUpdates bool `koanf:"serialize_updates"`

	// ClientScoped keys records by client address only, so a client cannot
	// reset its counters by dropping the session cookie. Clients behind one
	// NAT share a budget when this is on.
	ClientScoped bool `koanf:"client_scoped"`

	// Escalate doubles the block for every previous block of the same key,
	// capped at MaxBlock.
	Escalate bool          `koanf:"escalate"`
	MaxBlock time.Duration `koanf:"max_block"`
}

// Actions returns the configured per-action policies keyed by action name.
func (r RateLimitConfig) Actions() map[string]PolicyConfig {
	return map[string]PolicyConfig{
		"login":               r.Login,
		"register":            r.Register,
		"password_reset":      r.PasswordReset,
		"email_verification":  r.EmailVerification,
		"resend_verification": r.ResendVerification,
	}
}

// DatabaseConfig configures the user repository.
type DatabaseConfig struct {
	Driver          string        `koanf:"driver"` // memory or postgres
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	QueryTimeout    time.Duration `koanf:"query_timeout"`

	// Circuit breaker around user lookups.
	BreakerMaxFailures uint32        `koanf:"breaker_max_failures"`
	BreakerTimeout     time.Duration `koanf:"breaker_timeout"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}
