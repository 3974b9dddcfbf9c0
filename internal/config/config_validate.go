// Quillpress - Content Publishing Platform API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quillpress

package config

import (
	"fmt"
	"net/netip"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/quillpress/internal/apierr"
)

// minProductionSecretLength is the HS256 key size in bytes.
const minProductionSecretLength = 32

// Validate checks the configuration. Problems that must stop startup are
// returned as *apierr.ConfigurationError.
func (c *Config) Validate() error {
	checks := []func() error{
		c.validateServer,
		c.validateSecurity,
		c.validateSession,
		c.validateRateLimit,
		c.validateDatabase,
		c.validateLogging,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func configErr(key, format string, args ...any) error {
	return &apierr.ConfigurationError{Key: key, Reason: fmt.Sprintf(format, args...)}
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return configErr("server.port", "must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return configErr("server.timeout", "must be positive")
	}
	switch c.Server.Environment {
	case "development", "production":
	default:
		return configErr("server.environment", "must be development or production, got %q", c.Server.Environment)
	}
	return nil
}

func (c *Config) validateSecurity() error {
	s := c.Security
	if strings.TrimSpace(s.TokenSecret) == "" {
		return configErr("security.token_secret", "TOKEN_SECRET is required")
	}
	if c.Server.IsProduction() && len(s.TokenSecret) < minProductionSecretLength {
		return configErr("security.token_secret", "must be at least %d characters in production", minProductionSecretLength)
	}
	if s.TokenTTL <= 0 {
		return configErr("security.token_ttl", "must be positive")
	}
	if s.BcryptCost < bcrypt.MinCost || s.BcryptCost > bcrypt.MaxCost {
		return configErr("security.bcrypt_cost", "must be between %d and %d, got %d", bcrypt.MinCost, bcrypt.MaxCost, s.BcryptCost)
	}
	if s.CSRFEnabled && (s.CSRFHeaderName == "" || s.CSRFFieldName == "") {
		return configErr("security.csrf_header_name", "CSRF header and field names are required when CSRF is enabled")
	}
	for _, p := range s.TrustedProxies {
		if _, err := netip.ParseAddr(p); err != nil {
			if _, perr := netip.ParsePrefix(p); perr != nil {
				return configErr("security.trusted_proxies", "%q is not an IP address or CIDR", p)
			}
		}
	}
	if !s.RateLimitDisabled && (s.RateLimitReqs <= 0 || s.RateLimitWindow <= 0) {
		return configErr("security.rate_limit_reqs", "request limit and window must be positive")
	}
	return nil
}

func (c *Config) validateSession() error {
	switch c.Session.Store {
	case "memory":
	case "badger":
		if c.Session.Path == "" {
			return configErr("session.path", "required when session.store=badger")
		}
	case "redis":
		if c.Session.RedisURL == "" {
			return configErr("session.redis_url", "required when session.store=redis")
		}
	default:
		return configErr("session.store", "must be memory, badger or redis, got %q", c.Session.Store)
	}
	if c.Session.TTL <= 0 {
		return configErr("session.ttl", "must be positive")
	}
	if c.Session.CookieName == "" {
		return configErr("session.cookie_name", "required")
	}
	return nil
}

func (c *Config) validateRateLimit() error {
	policies := c.RateLimit.Actions()
	policies["default"] = c.RateLimit.Default
	for action, p := range policies {
		if p.MaxAttempts <= 0 || p.Window <= 0 || p.Block <= 0 {
			return configErr("rate_limit."+action, "max_attempts, window and block must be positive")
		}
	}
	if c.RateLimit.Escalate && c.RateLimit.MaxBlock <= 0 {
		return configErr("rate_limit.max_block", "must be positive when escalation is enabled")
	}
	return nil
}

func (c *Config) validateDatabase() error {
	switch c.Database.Driver {
	case "memory":
		return nil
	case "postgres":
		if c.Database.URL == "" {
			return configErr("database.url", "required when database.driver=postgres")
		}
		return nil
	default:
		return configErr("database.driver", "must be memory or postgres, got %q", c.Database.Driver)
	}
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled":
	default:
		return configErr("logging.level", "unknown level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
		return nil
	default:
		return configErr("logging.format", "must be json or console, got %q", c.Logging.Format)
	}
}
