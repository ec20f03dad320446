// Vigia - Activity Audit Logging and Device Classification
// Copyright 2026 Vigia Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vigia-labs/vigia

package cache

import (
	"context"
	"sync"
	"time"
)

// entry represents a cached item with expiration.
type entry struct {
	data      []byte
	expiresAt time.Time
}

// Memory provides a thread-safe in-memory TTL store. A background
// goroutine removes expired entries periodically; expired entries are
// also removed lazily on read.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
	stop    chan struct{}
	stats   Stats
}

// Stats tracks store performance counters.
type Stats struct {
	mu        sync.Mutex
	Hits      int64
	Misses    int64
	Evictions int64
}

// cleanupInterval is how often the background sweep runs.
const cleanupInterval = 5 * time.Minute

// NewMemory creates an in-memory store with a background cleanup goroutine.
// Call Close to stop the goroutine.
func NewMemory() *Memory {
	return NewMemoryWithClock(time.Now)
}

// NewMemoryWithClock creates an in-memory store using the given clock.
// Tests use this to simulate TTL expiry without sleeping.
func NewMemoryWithClock(now func() time.Time) *Memory {
	m := &Memory{
		entries: make(map[string]entry),
		now:     now,
		stop:    make(chan struct{}),
	}

	go m.cleanupLoop()

	return m
}

// Get returns the live value for key, removing it if expired.
func (m *Memory) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	e, exists := m.entries[key]
	m.mu.RUnlock()

	if !exists {
		m.recordMiss()
		return nil, false, nil
	}

	if m.now().After(e.expiresAt) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		m.recordMiss()
		m.recordEviction()
		return nil, false, nil
	}

	m.recordHit()
	return e.data, true, nil
}

// Set stores value under key, overwriting any existing entry.
func (m *Memory) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	m.entries[key] = entry{
		data:      value,
		expiresAt: m.now().Add(ttl),
	}
	m.mu.Unlock()
	return nil
}

// Exists reports whether a live entry for key is present.
func (m *Memory) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	e, exists := m.entries[key]
	m.mu.RUnlock()

	if !exists {
		return false, nil
	}
	if m.now().After(e.expiresAt) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		m.recordEviction()
		return false, nil
	}
	return true, nil
}

// Delete removes the entry for key.
func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// Len returns the number of entries, including not-yet-swept expired ones.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// GetStats returns a snapshot of the performance counters.
func (m *Memory) GetStats() (hits, misses, evictions int64) {
	m.stats.mu.Lock()
	defer m.stats.mu.Unlock()
	return m.stats.Hits, m.stats.Misses, m.stats.Evictions
}

// Close stops the background cleanup goroutine.
func (m *Memory) Close() error {
	close(m.stop)
	return nil
}

// cleanupLoop periodically removes expired entries.
func (m *Memory) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.cleanup()
		}
	}
}

// cleanup removes all expired entries.
func (m *Memory) cleanup() {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	var evictions int64
	for key, e := range m.entries {
		if now.After(e.expiresAt) {
			delete(m.entries, key)
			evictions++
		}
	}

	m.stats.mu.Lock()
	m.stats.Evictions += evictions
	m.stats.mu.Unlock()
}

func (m *Memory) recordHit() {
	m.stats.mu.Lock()
	m.stats.Hits++
	m.stats.mu.Unlock()
}

func (m *Memory) recordMiss() {
	m.stats.mu.Lock()
	m.stats.Misses++
	m.stats.mu.Unlock()
}

func (m *Memory) recordEviction() {
	m.stats.mu.Lock()
	m.stats.Evictions++
	m.stats.mu.Unlock()
}
