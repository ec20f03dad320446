// Vigia - Activity Audit Logging and Device Classification
// Copyright 2026 Vigia Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vigia-labs/vigia

package main

import (
	"context"
	"database/sql"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	_ "github.com/lib/pq" // Postgres driver for the activity store
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/vigia-labs/vigia/internal/activity"
	"github.com/vigia-labs/vigia/internal/cache"
	"github.com/vigia-labs/vigia/internal/config"
	"github.com/vigia-labs/vigia/internal/logging"
)

// noopClose stands in when a backend has nothing to release.
func noopClose() error { return nil }

// newCacheStore builds the configured cache backend. The returned close
// function releases backend resources and is safe to call once.
func newCacheStore(cfg config.CacheConfig) (cache.Store, func() error, error) {
	switch cfg.Backend {
	case "memory":
		store := cache.NewMemory()
		return store, func() error { store.Close(); return nil }, nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		logging.Info().Str("addr", cfg.RedisAddr).Int("db", cfg.RedisDB).Msg("Using Redis cache backend")
		return cache.NewRedis(client), client.Close, nil

	case "badger":
		opts := badger.DefaultOptions(cfg.BadgerPath).WithLogger(nil)
		db, err := badger.Open(opts)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open badger at %s: %w", cfg.BadgerPath, err)
		}
		logging.Info().Str("path", cfg.BadgerPath).Msg("Using Badger cache backend")
		return cache.NewBadger(db), db.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// newSink builds the configured activity sink.
func newSink(cfg config.ActivityConfig) (activity.Sink, func() error, error) {
	switch cfg.Sink {
	case "log":
		return activity.NewZerologSink(logging.Logger()), noopClose, nil

	case "postgres":
		db, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open postgres: %w", err)
		}
		store := activity.NewPostgresStore(db)
		if err := store.Migrate(context.Background()); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("failed to migrate activity store: %w", err)
		}
		logging.Info().Msg("Using Postgres activity sink")
		return store, db.Close, nil

	case "nats":
		conn, err := nats.Connect(cfg.NATSURL, nats.Name("vigia-activity"))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATSURL, err)
		}
		logging.Info().Str("url", cfg.NATSURL).Str("subject", cfg.NATSSubject).Msg("Using NATS activity sink")
		return activity.NewNATSSink(conn, cfg.NATSSubject), func() error { conn.Close(); return nil }, nil

	default:
		return nil, nil, fmt.Errorf("unknown activity sink %q", cfg.Sink)
	}
}
