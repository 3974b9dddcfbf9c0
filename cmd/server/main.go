// Quillpress - Content Publishing Platform API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quillpress

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/tomtom215/quillpress/internal/config"
	"github.com/tomtom215/quillpress/internal/logging"
	"github.com/tomtom215/quillpress/internal/metrics"
	"github.com/tomtom215/quillpress/internal/session"
	"github.com/tomtom215/quillpress/internal/supervisor"
	"github.com/tomtom215/quillpress/internal/supervisor/services"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Config not yet available; the default logger reports the error.
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("Server stopped with error")
	}
	logging.Info().Msg("Application stopped gracefully")
}

func run(cfg *config.Config) error {
	started := time.Now()
	logging.Info().
		Str("version", version).
		Str("environment", cfg.Server.Environment).
		Str("session_store", cfg.Session.Store).
		Str("database_driver", cfg.Database.Driver).
		Bool("csrf_enabled", cfg.Security.CSRFEnabled).
		Msg("Starting Quillpress")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	comps, err := buildComponents(ctx, cfg, version)
	if err != nil {
		return err
	}
	defer comps.Close()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		return err
	}

	if collector, ok := comps.sessions.(session.Collector); ok {
		tree.AddStorageService(services.NewSessionGCService(collector, cfg.Session.GCInterval))
		logging.Info().Dur("interval", cfg.Session.GCInterval).Msg("Session garbage collection scheduled")
	}

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           comps.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	metrics.SetAppInfo(version, runtime.Version(), started)

	logging.Info().Msg("Starting supervisor tree...")
	err = <-tree.ServeBackground(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
