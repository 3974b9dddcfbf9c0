// Quillpress - Content Publishing Platform API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quillpress

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sony/gobreaker/v2"

	"github.com/tomtom215/quillpress/internal/api"
	"github.com/tomtom215/quillpress/internal/auth"
	"github.com/tomtom215/quillpress/internal/config"
	"github.com/tomtom215/quillpress/internal/logging"
	"github.com/tomtom215/quillpress/internal/ratelimit"
	"github.com/tomtom215/quillpress/internal/session"
	"github.com/tomtom215/quillpress/internal/users"
	"github.com/tomtom215/quillpress/internal/validation"
)

// healthProbeSession is a well-formed session ID that is never issued.
var healthProbeSession = strings.Repeat("0", 64)

// components holds what the server owns and must close on exit.
type components struct {
	sessions session.Store
	users    *users.BreakerRepository
	handler  http.Handler
}

func (c *components) Close() {
	if c.users != nil {
		if err := c.users.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing user repository")
		}
	}
	if c.sessions != nil {
		if err := c.sessions.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing session store")
		}
	}
}

// buildPolicies turns the configured table into limiter policies. Rows
// left at zero attempts keep the built-in policy for that action.
func buildPolicies(rl config.RateLimitConfig) *ratelimit.Policies {
	toPolicy := func(p config.PolicyConfig) ratelimit.Policy {
		return ratelimit.Policy{MaxAttempts: p.MaxAttempts, Window: p.Window, Block: p.Block}
	}

	builtin := ratelimit.DefaultPolicies()
	fallback := ratelimit.DefaultPolicy
	if rl.Default.MaxAttempts > 0 {
		fallback = toPolicy(rl.Default)
	}

	actions := make(map[string]ratelimit.Policy)
	for name, p := range rl.Actions() {
		if p.MaxAttempts > 0 {
			actions[name] = toPolicy(p)
			continue
		}
		actions[name] = builtin.For(name)
	}
	return ratelimit.NewPolicies(fallback, actions)
}

// buildComponents opens the stores and assembles the HTTP handler.
func buildComponents(ctx context.Context, cfg *config.Config, version string) (*components, error) {
	c := &components{}

	store, err := session.NewStore(ctx, session.FactoryConfig{
		Type:     cfg.Session.Store,
		Path:     cfg.Session.Path,
		RedisURL: cfg.Session.RedisURL,
		TTL:      cfg.Session.TTL,
	})
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	c.sessions = store

	repo, err := users.Open(ctx, cfg.Database)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("open user repository: %w", err)
	}
	c.users = repo

	handler, err := buildHandler(cfg, store, repo, version)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.handler = handler
	return c, nil
}

// buildHandler wires the gate and the API around already-open stores.
func buildHandler(cfg *config.Config, store session.Store, repo *users.BreakerRepository, version string) (http.Handler, error) {
	sec := cfg.Security
	audit := logging.NewAuditLogger()

	hasher, err := users.NewHasher(sec.BcryptCost)
	if err != nil {
		return nil, err
	}
	codec, err := auth.NewTokenCodec(sec.TokenSecret)
	if err != nil {
		return nil, err
	}

	v := validation.New(validation.WithUniqueness("users", repo))
	gate := auth.NewGate(codec, repo, v, auth.WithGateAuditLogger(audit))
	csrf := auth.NewCSRFGuard(store, auth.CSRFConfig{
		HeaderName: sec.CSRFHeaderName,
		FieldName:  sec.CSRFFieldName,
	})

	limiter := ratelimit.New(store, ratelimit.Config{
		Policies:         buildPolicies(cfg.RateLimit),
		Escalate:         cfg.RateLimit.Escalate,
		MaxBlock:         cfg.RateLimit.MaxBlock,
		SerializeUpdates: cfg.RateLimit.SerializeUpdates,
	}, ratelimit.WithAuditLogger(audit))

	clients, err := ratelimit.NewClientResolver(sec.TrustedProxies)
	if err != nil {
		return nil, err
	}
	guard := ratelimit.NewGuard(limiter, clients, ratelimit.GuardConfig{
		ClientScoped: cfg.RateLimit.ClientScoped,
		WriteError:   api.WriteError,
	})

	handler := api.NewHandler(api.Dependencies{
		Gate:          gate,
		CSRF:          csrf,
		Users:         repo,
		Hasher:        hasher,
		Audit:         audit,
		TokenTTL:      sec.TokenTTL,
		EmailTokenTTL: sec.VerificationTokenTTL,
		HealthChecks:  healthChecks(store, repo),
		Version:       version,
	})

	chiCfg := api.DefaultChiMiddlewareConfig()
	chiCfg.CORSAllowedOrigins = sec.CORSOrigins
	chiCfg.RateLimitRequests = sec.RateLimitReqs
	chiCfg.RateLimitWindow = sec.RateLimitWindow
	chiCfg.RateLimitDisabled = sec.RateLimitDisabled
	chiCfg.RateLimitKeyFunc = func(r *http.Request) (string, error) {
		return clients.ClientID(r), nil
	}

	sessCfg := session.DefaultMiddlewareConfig()
	if cfg.Session.CookieName != "" {
		sessCfg.CookieName = cfg.Session.CookieName
	}
	sessCfg.TTL = cfg.Session.TTL
	sessCfg.CookieSecure = cfg.Session.CookieSecure

	router := api.NewRouter(handler, guard, api.RouterConfig{
		Chi:         chiCfg,
		Session:     sessCfg,
		CSRFEnabled: sec.CSRFEnabled,
	})
	return router.SetupChi(), nil
}

// healthChecks probes the session store and the user repository breaker.
func healthChecks(store session.Store, repo *users.BreakerRepository) []api.HealthCheck {
	return []api.HealthCheck{
		{
			Name: "sessions",
			Check: func(ctx context.Context) error {
				_, err := store.Get(ctx, healthProbeSession, "health")
				if err == nil || errors.Is(err, session.ErrNotFound) {
					return nil
				}
				return err
			},
		},
		{
			Name: "users",
			Check: func(context.Context) error {
				if repo.State() == gobreaker.StateOpen {
					return errors.New("circuit breaker open")
				}
				return nil
			},
		},
	}
}
