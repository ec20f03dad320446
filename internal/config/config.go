// Vigia - Activity Audit Logging and Device Classification
// Copyright 2026 Vigia Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vigia-labs/vigia

// Package config provides centralized configuration loaded in three
// layers with Koanf v2: built-in defaults, an optional YAML file, and
// environment variables, in ascending precedence.
//
// Config is immutable after Load and safe for concurrent reads.
package config

import (
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
	Cache    CacheConfig    `koanf:"cache"`
	Device   DeviceConfig   `koanf:"device"`
	Throttle ThrottleConfig `koanf:"throttle"`
	Activity ActivityConfig `koanf:"activity"`
}

// ServerConfig holds HTTP server settings.
//
// Environment Variables:
//   - SERVER_HOST: Bind address (default: 0.0.0.0)
//   - SERVER_PORT: Listen port (default: 8080)
//   - SERVER_TIMEOUT: Read/write timeout (default: 30s)
//   - SERVER_SHUTDOWN_TIMEOUT: Graceful shutdown grace period (default: 10s)
type ServerConfig struct {
	Host            string        `koanf:"host" validate:"required"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout         time.Duration `koanf:"timeout" validate:"min=1s"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"min=1s"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// CacheConfig selects and configures the shared cache backend used for
// device detail caching and access-log throttling.
//
// Backends:
//   - memory: in-process map with TTL sweeping (default, no deps)
//   - redis: shared cache for multi-instance deployments
//   - badger: persistent on-disk cache surviving restarts
type CacheConfig struct {
	Backend string `koanf:"backend" validate:"oneof=memory redis badger"`

	RedisAddr     string `koanf:"redis_addr" validate:"required_if=Backend redis"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db" validate:"min=0"`

	BadgerPath string `koanf:"badger_path" validate:"required_if=Backend badger"`
}

// DeviceConfig holds device classification settings.
type DeviceConfig struct {
	// CacheTTL is how long a classified user agent stays cached.
	CacheTTL time.Duration `koanf:"cache_ttl" validate:"min=1m"`
}

// ThrottleConfig holds access-log throttling settings.
type ThrottleConfig struct {
	// Window is the cooldown between access entries per authenticated
	// subject.
	Window time.Duration `koanf:"window" validate:"min=1s"`
}

// ActivityConfig holds activity recorder and sink settings.
//
// Sinks:
//   - log: entries are written to the structured application log (default)
//   - postgres: entries are persisted to an activity_log table
//   - nats: entries are published per channel for downstream consumers
type ActivityConfig struct {
	BufferSize  int           `koanf:"buffer_size" validate:"min=1"`
	SinkTimeout time.Duration `koanf:"sink_timeout" validate:"min=100ms"`

	Sink        string `koanf:"sink" validate:"oneof=log postgres nats"`
	PostgresDSN string `koanf:"postgres_dsn" validate:"required_if=Sink postgres"`
	NATSURL     string `koanf:"nats_url" validate:"required_if=Sink nats"`
	NATSSubject string `koanf:"nats_subject"`

	// BreakerEnabled wraps the sink in a circuit breaker so a failing
	// sink fails fast instead of timing out on every buffered entry.
	BreakerEnabled bool `koanf:"breaker_enabled"`
}

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by the config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Cache: CacheConfig{
			Backend:   "memory",
			RedisAddr: "",
			RedisDB:   0,
		},
		Device: DeviceConfig{
			CacheTTL: 24 * time.Hour,
		},
		Throttle: ThrottleConfig{
			Window: 5 * time.Minute,
		},
		Activity: ActivityConfig{
			BufferSize:     1000,
			SinkTimeout:    5 * time.Second,
			Sink:           "log",
			NATSSubject:    "activity",
			BreakerEnabled: false,
		},
	}
}
