// Vigia - Activity Audit Logging and Device Classification
// Copyright 2026 Vigia Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vigia-labs/vigia

// Package main is the entry point for the Vigia server.
//
// Vigia is an activity audit subsystem: it records who did what, from
// where, with which device, into an append-oriented activity log. It
// exposes an HTTP surface whose every request is access-logged through
// the recorder, and a user entity whose lifecycle transitions are
// observed into the default activity channel.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered settings via Koanf v2 (defaults, file, env)
//  2. Cache: memory, Redis, or Badger backend for device details and
//     throttle marks
//  3. Device classifier: user-agent classification with 24h caching
//  4. Activity sink: structured log, Postgres, or NATS, optionally
//     wrapped in a circuit breaker
//  5. Recorder: buffered async activity pipeline
//  6. HTTP server: chi router with request ID, metrics, and access-log
//     middleware
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins): environment variables, config.yaml, built-in
// defaults. See internal/config for the full key list.
//
// Common settings:
//   - SERVER_PORT: listen port (default 8080)
//   - CACHE_BACKEND: memory | redis | badger (default memory)
//   - ACTIVITY_SINK: log | postgres | nats (default log)
//   - DEVICE_CACHE_TTL: classified user-agent cache lifetime (default 24h)
//   - THROTTLE_WINDOW: per-user access-log cooldown (default 5m)
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM: it stops
// accepting connections, waits for in-flight requests up to the
// configured grace period, then drains the recorder buffer so no
// accepted activity entry is lost.
//
// # Example Usage
//
// Development, everything in process:
//
//	./vigia
//
// Production with Redis cache and Postgres persistence:
//
//	export CACHE_BACKEND=redis
//	export CACHE_REDIS_ADDR=redis:6379
//	export ACTIVITY_SINK=postgres
//	export ACTIVITY_POSTGRES_DSN="postgres://vigia:secret@db/vigia?sslmode=disable"
//	export ACTIVITY_BREAKER_ENABLED=true
//	./vigia
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/vigia-labs/vigia/internal/activity"
	"github.com/vigia-labs/vigia/internal/config"
	"github.com/vigia-labs/vigia/internal/device"
	"github.com/vigia-labs/vigia/internal/logging"
	"github.com/vigia-labs/vigia/internal/observer"
	"github.com/vigia-labs/vigia/internal/throttle"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("cache_backend", cfg.Cache.Backend).
		Str("activity_sink", cfg.Activity.Sink).
		Dur("device_cache_ttl", cfg.Device.CacheTTL).
		Dur("throttle_window", cfg.Throttle.Window).
		Msg("Starting Vigia")

	store, closeStore, err := newCacheStore(cfg.Cache)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize cache backend")
	}
	defer func() {
		if err := closeStore(); err != nil {
			logging.Error().Err(err).Msg("Error closing cache backend")
		}
	}()

	sink, closeSink, err := newSink(cfg.Activity)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize activity sink")
	}
	defer func() {
		if err := closeSink(); err != nil {
			logging.Error().Err(err).Msg("Error closing activity sink")
		}
	}()

	// Resolve the read side before any wrapping hides it
	history, _ := sink.(activity.History)

	if cfg.Activity.BreakerEnabled {
		sink = activity.NewBreakerSink(sink, activity.DefaultBreakerConfig())
		logging.Info().Msg("Activity sink circuit breaker enabled")
	}

	classifier := device.NewCachedClassifier(store, cfg.Device.CacheTTL)
	thr := throttle.New(store, cfg.Throttle.Window)

	recorder := activity.NewRecorder(classifier, thr, sink, actorFromContext, activity.Config{
		BufferSize:  cfg.Activity.BufferSize,
		SinkTimeout: cfg.Activity.SinkTimeout,
	})
	userObserver := observer.NewUserObserver(recorder)

	router := newRouter(recorder, userObserver, history)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	errChan := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logging.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	case err := <-errChan:
		logging.Error().Err(err).Msg("HTTP server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// Drain buffered entries after the HTTP surface stops producing them
	if err := recorder.Close(); err != nil {
		logging.Error().Err(err).Msg("Recorder drain error")
	}

	logging.Info().Msg("Shutdown complete")
}
