// Vigia - Activity Audit Logging and Device Classification
// Copyright 2026 Vigia Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vigia-labs/vigia

package activity

import (
	"context"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/vigia-labs/vigia/internal/logging"
)

// BreakerConfig configures the sink circuit breaker.
type BreakerConfig struct {
	// Name identifies the breaker in logs.
	Name string

	// FailureThreshold is the consecutive-failure count that trips the
	// breaker open.
	FailureThreshold uint32

	// Timeout is how long the breaker stays open before probing again.
	Timeout time.Duration

	// MaxRequests is the number of probe writes allowed while half-open.
	MaxRequests uint32
}

// DefaultBreakerConfig returns sensible defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "activity-sink",
		FailureThreshold: 5,
		Timeout:          30 * time.Second,
		MaxRequests:      1,
	}
}

// BreakerSink decorates a Sink with circuit breaker protection so a
// persistently failing sink fails fast instead of consuming the write
// timeout on every buffered entry.
type BreakerSink struct {
	inner Sink
	cb    *gobreaker.CircuitBreaker[any]
}

// NewBreakerSink wraps inner with a circuit breaker.
func NewBreakerSink(inner Sink, cfg BreakerConfig) *BreakerSink {
	if cfg.Name == "" {
		cfg.Name = DefaultBreakerConfig().Name
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = DefaultBreakerConfig().FailureThreshold
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultBreakerConfig().Timeout
	}
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = DefaultBreakerConfig().MaxRequests
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Activity sink breaker state changed")
		},
	}

	return &BreakerSink{
		inner: inner,
		cb:    gobreaker.NewCircuitBreaker[any](settings),
	}
}

// Write forwards to the inner sink through the breaker. While the breaker
// is open, writes fail immediately with gobreaker.ErrOpenState.
func (s *BreakerSink) Write(ctx context.Context, entry *Entry) error {
	_, err := s.cb.Execute(func() (any, error) {
		return nil, s.inner.Write(ctx, entry)
	})
	return err
}

// State returns the breaker state for monitoring.
func (s *BreakerSink) State() string {
	return s.cb.State().String()
}
