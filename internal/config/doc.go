// Quillpress - Content Publishing Platform API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quillpress

/*
Package config loads Quillpress configuration with Koanf v2.

Sources are layered, later ones winning:

 1. Built-in defaults (defaultConfig)
 2. Optional YAML file (CONFIG_PATH, config.yaml, /etc/quillpress/config.yaml)
 3. Environment variables (TOKEN_SECRET, SESSION_STORE, RATE_LIMIT_LOGIN_MAX_ATTEMPTS, ...)

Load validates the result. A missing token signing secret is reported as an
*apierr.ConfigurationError so that main can refuse to start.

# Rate limit policies

Each sensitive action has its own policy (max attempts, window, block). The
defaults are:

	action               attempts  window  block
	login                5         5m      15m
	register             3         5m      10m
	password_reset       3         5m      30m
	email_verification   10        5m      5m
	resend_verification  3         10m     30m
	(any other action)   10        5m      5m

Example YAML:

	rate_limit:
	  login:
	    max_attempts: 5
	    window: 5m
	    block: 15m
	  escalate: true
	  max_block: 24h
*/
package config
