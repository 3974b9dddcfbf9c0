// Quillpress - Content Publishing Platform API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quillpress

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"golang.org/x/crypto/bcrypt"
)

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/quillpress/config.yaml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Environment:     "development",
		},
		Security: SecurityConfig{
			TokenSecret:          "",
			TokenTTL:             24 * time.Hour,
			VerificationTokenTTL: 48 * time.Hour,
			BcryptCost:           bcrypt.DefaultCost,
			CSRFEnabled:          true,
			CSRFHeaderName:       "X-CSRF-Token",
			CSRFFieldName:        "_token",
			CORSOrigins:          []string{"*"},
			TrustedProxies:       []string{},
			RateLimitReqs:        300,
			RateLimitWindow:      time.Minute,
		},
		Session: SessionConfig{
			Store:      "memory",
			Path:       "/data/sessions",
			TTL:        24 * time.Hour,
			CookieName: "qp_session",
			GCInterval: 10 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Default:            PolicyConfig{MaxAttempts: 10, Window: 300 * time.Second, Block: 300 * time.Second},
			Login:              PolicyConfig{MaxAttempts: 5, Window: 300 * time.Second, Block: 900 * time.Second},
			Register:           PolicyConfig{MaxAttempts: 3, Window: 300 * time.Second, Block: 600 * time.Second},
			PasswordReset:      PolicyConfig{MaxAttempts: 3, Window: 300 * time.Second, Block: 1800 * time.Second},
			EmailVerification:  PolicyConfig{MaxAttempts: 10, Window: 300 * time.Second, Block: 300 * time.Second},
			ResendVerification: PolicyConfig{MaxAttempts: 3, Window: 600 * time.Second, Block: 1800 * time.Second},
			MaxBlock:           24 * time.Hour,
		},
		Database: DatabaseConfig{
			Driver:             "memory",
			MaxOpenConns:       10,
			MaxIdleConns:       5,
			ConnMaxLifetime:    30 * time.Minute,
			QueryTimeout:       5 * time.Second,
			BreakerMaxFailures: 5,
			BreakerTimeout:     30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file and the
// environment, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

var sliceConfigPaths = []string{
	"security.cors_origins",
	"security.trusted_proxies",
}

// processSliceFields splits comma-separated env values for slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok || s == "" {
			continue
		}
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if err := k.Set(path, out); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

var envMappings = buildEnvMappings()

func buildEnvMappings() map[string]string {
	m := map[string]string{
		"http_host":             "server.host",
		"http_port":             "server.port",
		"http_timeout":          "server.timeout",
		"http_shutdown_timeout": "server.shutdown_timeout",
		"environment":           "server.environment",

		"token_secret":           "security.token_secret",
		"token_ttl":              "security.token_ttl",
		"verification_token_ttl": "security.verification_token_ttl",
		"bcrypt_cost":            "security.bcrypt_cost",
		"csrf_enabled":           "security.csrf_enabled",
		"csrf_header_name":       "security.csrf_header_name",
		"csrf_field_name":        "security.csrf_field_name",
		"cors_origins":           "security.cors_origins",
		"trusted_proxies":        "security.trusted_proxies",
		"rate_limit_requests":    "security.rate_limit_reqs",
		"rate_limit_window":      "security.rate_limit_window",
		"disable_rate_limit":     "security.rate_limit_disabled",

		"session_store":         "session.store",
		"session_store_path":    "session.path",
		"redis_url":             "session.redis_url",
		"session_ttl":           "session.ttl",
		"session_cookie_name":   "session.cookie_name",
		"session_cookie_secure": "session.cookie_secure",
		"session_gc_interval":   "session.gc_interval",

		"rate_limit_serialize":     "rate_limit.serialize_updates",
		"rate_limit_escalate":      "rate_limit.escalate",
		"rate_limit_client_scoped": "rate_limit.client_scoped",
		"rate_limit_max_block":     "rate_limit.max_block",

		"database_driver":               "database.driver",
		"database_url":                  "database.url",
		"database_max_open_conns":       "database.max_open_conns",
		"database_max_idle_conns":       "database.max_idle_conns",
		"database_conn_max_lifetime":    "database.conn_max_lifetime",
		"database_query_timeout":        "database.query_timeout",
		"database_breaker_max_failures": "database.breaker_max_failures",
		"database_breaker_timeout":      "database.breaker_timeout",

		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	// RATE_LIMIT_LOGIN_MAX_ATTEMPTS -> rate_limit.login.max_attempts
	for _, action := range []string{"default", "login", "register", "password_reset", "email_verification", "resend_verification"} {
		for _, field := range []string{"max_attempts", "window", "block"} {
			m["rate_limit_"+action+"_"+field] = "rate_limit." + action + "." + field
		}
	}
	return m
}

// envTransformFunc maps known environment variables to koanf paths and drops
// everything else.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
