// Vigia - Activity Audit Logging and Device Classification
// Copyright 2026 Vigia Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vigia-labs/vigia

package activity

import (
	"context"
	"sync"
)

// MemorySink implements Sink using in-memory storage.
// Suitable for development and testing. Entries are lost on restart.
type MemorySink struct {
	entries []Entry
	mu      sync.RWMutex
	maxLen  int
}

// NewMemorySink creates an in-memory sink bounded at maxLen entries.
func NewMemorySink(maxLen int) *MemorySink {
	if maxLen <= 0 {
		maxLen = 10000
	}
	return &MemorySink{
		entries: make([]Entry, 0, maxLen),
		maxLen:  maxLen,
	}
}

// Write records an entry, evicting the oldest tenth when full.
func (s *MemorySink) Write(ctx context.Context, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) >= s.maxLen {
		removeCount := s.maxLen / 10
		if removeCount == 0 {
			removeCount = 1
		}
		s.entries = s.entries[removeCount:]
	}

	s.entries = append(s.entries, *entry)
	return nil
}

// Entries returns a copy of all recorded entries, oldest first.
func (s *MemorySink) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Recent implements History over the in-memory entries.
func (s *MemorySink) Recent(ctx context.Context, channel Channel, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, limit)
	for i := len(s.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if s.entries[i].Channel == channel {
			out = append(out, s.entries[i])
		}
	}
	return out, nil
}

// Len returns the number of recorded entries.
func (s *MemorySink) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Clear removes all entries (for testing).
func (s *MemorySink) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = s.entries[:0]
}
