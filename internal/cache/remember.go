// Vigia - Activity Audit Logging and Device Classification
// Copyright 2026 Vigia Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vigia-labs/vigia

package cache

import (
	"context"
	"time"

	"github.com/goccy/go-json"

	"github.com/vigia-labs/vigia/internal/logging"
)

// Remember returns the cached value for key, computing and storing it on a
// miss. Values are JSON-encoded in the store.
//
// A store failure degrades to direct computation rather than failing the
// caller: under-caching only costs duplicate work. Two concurrent callers
// missing on the same key may both compute; last write wins.
func Remember[T any](ctx context.Context, s Store, key string, ttl time.Duration, compute func() (T, error)) (T, error) {
	data, hit, err := s.Get(ctx, key)
	if err != nil {
		logging.Warn().Err(err).Str("key", key).Msg("Cache read failed, computing directly")
		return compute()
	}

	if hit {
		var cached T
		if err := json.Unmarshal(data, &cached); err == nil {
			return cached, nil
		}
		// Corrupt entry, fall through and recompute
		logging.Warn().Str("key", key).Msg("Discarding undecodable cache entry")
	}

	value, err := compute()
	if err != nil {
		return value, err
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		logging.Warn().Err(err).Str("key", key).Msg("Cache encode failed, returning uncached value")
		return value, nil
	}
	if err := s.Set(ctx, key, encoded, ttl); err != nil {
		logging.Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}

	return value, nil
}
