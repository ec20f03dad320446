// Vigia - Activity Audit Logging and Device Classification
// Copyright 2026 Vigia Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vigia-labs/vigia

package device

import (
	"context"
	"time"

	"github.com/vigia-labs/vigia/internal/cache"
	"github.com/vigia-labs/vigia/internal/logging"
	"github.com/vigia-labs/vigia/internal/metrics"
)

// DefaultCacheTTL is how long classification results are memoized.
// The key space is bounded by distinct user-agents times two modes, so a
// long TTL is safe.
const DefaultCacheTTL = 24 * time.Hour

// keyPrefix namespaces classification entries in the shared store.
const keyPrefix = "device_details"

// CachedClassifier memoizes Classifier results in a TTL store, keyed by a
// hash of the user-agent plus an authentication-mode discriminator so the
// two modes never collide for identical user-agent strings.
type CachedClassifier struct {
	classifier *Classifier
	store      cache.Store
	ttl        time.Duration
}

// NewCachedClassifier creates a memoizing classifier over the given store.
// A non-positive ttl falls back to DefaultCacheTTL.
func NewCachedClassifier(store cache.Store, ttl time.Duration) *CachedClassifier {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedClassifier{
		classifier: NewClassifier(),
		store:      store,
		ttl:        ttl,
	}
}

// Details returns the classification for the request's user-agent.
//
// Authenticated subjects skip bot detection entirely and receive the fixed
// Unknown placeholders. Within the TTL a repeat lookup for the same
// (user-agent, mode) pair returns the stored result without re-parsing;
// that includes the IP observed by the computing request. A store failure
// degrades to direct computation, and a classifier panic degrades to the
// Unknown placeholders; classification never fails the caller.
func (c *CachedClassifier) Details(ctx context.Context, ip, userAgent string, authenticated bool) Details {
	ua := userAgent
	if ua == "" {
		ua = "Unknown"
	}

	mode := "anon"
	if authenticated {
		mode = "auth"
	}

	metrics.DeviceLookups.Inc()

	key := cache.HashKey(keyPrefix, ua, mode)
	details, err := cache.Remember(ctx, c.store, key, c.ttl, func() (Details, error) {
		return c.classify(ip, ua, authenticated), nil
	})
	if err != nil {
		// compute never returns an error; kept for interface completeness
		return Unknown(ip, ua)
	}
	return details
}

// classify runs the parser with panic recovery, timing and counting the
// actual parses (cache hits never reach here).
func (c *CachedClassifier) classify(ip, ua string, authenticated bool) (d Details) {
	defer func() {
		if r := recover(); r != nil {
			logging.Warn().Interface("panic", r).Msg("Device classification failed, using unknown placeholders")
			metrics.DeviceClassificationFailures.Inc()
			d = Unknown(ip, ua)
		}
	}()

	start := time.Now()
	metrics.DeviceClassifications.Inc()

	d = c.classifier.Classify(ua, authenticated)
	d.IP = ip

	metrics.DeviceClassificationDuration.Observe(time.Since(start).Seconds())
	return d
}
