// Vigia - Activity Audit Logging and Device Classification
// Copyright 2026 Vigia Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vigia-labs/vigia

// Package cache provides TTL key-value stores shared by the device
// classifier (long TTL memoization) and the access throttle (short TTL
// marks). Three backends are available: an in-memory map store, Redis,
// and BadgerDB. Expiry is governed purely by TTL; there is no capacity
// bound, which is acceptable because the key space is bounded by distinct
// user-agents and active subject IDs.
package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"
)

// Store is a TTL key-value store. Implementations must be safe for
// concurrent use. A racing write to the same key is resolved last-write-wins;
// TTL governs visibility.
type Store interface {
	// Get returns the value for key, a flag indicating whether a live
	// (non-expired) entry was found, and any backend error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key with the given TTL, overwriting any
	// existing entry and resetting its expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Exists reports whether a live entry for key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes the entry for key. Removing a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// HashKey builds a stable cache key from a prefix, an arbitrary value
// (hashed, so unbounded values such as user-agent strings stay compact)
// and a mode discriminator. Distinct discriminators never collide even
// for identical values.
func HashKey(prefix, value, discriminator string) string {
	sum := sha256.Sum256([]byte(value))
	return fmt.Sprintf("%s:%x:%s", prefix, sum[:16], discriminator)
}
