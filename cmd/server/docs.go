// Quillpress - Content Publishing Platform API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quillpress

package main

// General API information for swag. Regenerate the docs package with:
//
//	swag init -g cmd/server/docs.go -d ./,./internal/api -o docs
//
// @title Quillpress API
// @version 1.0
// @description Authentication gate and abuse rate limiter of the Quillpress publishing platform.
//
// @contact.name GitHub Repository
// @contact.url https://github.com/tomtom215/quillpress/issues
//
// @license.name AGPL-3.0-or-later
// @license.url https://www.gnu.org/licenses/agpl-3.0.html
//
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Access token from /auth/login, sent as "Bearer <token>".
//
// @tag.name Auth
// @tag.description Login, registration, email verification and password reset
//
// @tag.name Users
// @tag.description Public profiles and password changes
//
// @tag.name Health
// @tag.description Liveness and readiness probes
