// Vigia - Activity Audit Logging and Device Classification
// Copyright 2026 Vigia Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vigia-labs/vigia

package device

import (
	"context"
	"errors"
	"sync"
	"time"

	"testing"

	"github.com/vigia-labs/vigia/internal/cache"
)

// spyStore wraps a memory store and counts writes. A write happens only
// when a classification was actually computed.
type spyStore struct {
	inner *cache.Memory
	mu    sync.Mutex
	sets  int
}

func newSpyStore() *spyStore {
	return &spyStore{inner: cache.NewMemory()}
}

func (s *spyStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return s.inner.Get(ctx, key)
}

func (s *spyStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	s.sets++
	s.mu.Unlock()
	return s.inner.Set(ctx, key, value, ttl)
}

func (s *spyStore) Exists(ctx context.Context, key string) (bool, error) {
	return s.inner.Exists(ctx, key)
}

func (s *spyStore) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, key)
}

func (s *spyStore) Sets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sets
}

// downStore simulates an unreachable cache backend.
type downStore struct{}

var errDown = errors.New("backend down")

func (downStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, errDown
}

func (downStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return errDown
}

func (downStore) Exists(ctx context.Context, key string) (bool, error) { return false, errDown }
func (downStore) Delete(ctx context.Context, key string) error         { return errDown }

func TestCachedClassifierParsesOncePerPair(t *testing.T) {
	store := newSpyStore()
	defer store.inner.Close()
	cc := NewCachedClassifier(store, time.Hour)
	ctx := context.Background()

	first := cc.Details(ctx, "203.0.113.7", uaChromeWindows, false)
	second := cc.Details(ctx, "203.0.113.8", uaChromeWindows, false)

	if store.Sets() != 1 {
		t.Errorf("expected one parse for repeated (ua, mode), got %d writes", store.Sets())
	}
	// Cached result is returned verbatim, including the IP observed by the
	// computing request.
	if first != second {
		t.Errorf("expected identical cached results, got %+v and %+v", first, second)
	}
	if second.IP != "203.0.113.7" {
		t.Errorf("expected cached IP from first request, got %q", second.IP)
	}
}

func TestCachedClassifierModeDiscriminator(t *testing.T) {
	store := newSpyStore()
	defer store.inner.Close()
	cc := NewCachedClassifier(store, time.Hour)
	ctx := context.Background()

	anon := cc.Details(ctx, "203.0.113.7", uaGooglebot, false)
	auth := cc.Details(ctx, "203.0.113.7", uaGooglebot, true)

	if store.Sets() != 2 {
		t.Errorf("expected separate cache entries per mode, got %d writes", store.Sets())
	}
	if !anon.IsBot {
		t.Error("anonymous mode should detect the bot")
	}
	if auth.IsBot {
		t.Error("authenticated mode must short-circuit is_bot to false")
	}
	if auth.DeviceName != "Unknown" {
		t.Errorf("authenticated mode device_name = %q, want Unknown", auth.DeviceName)
	}
}

func TestCachedClassifierGooglebot(t *testing.T) {
	store := cache.NewMemory()
	defer store.Close()
	cc := NewCachedClassifier(store, time.Hour)

	d := cc.Details(context.Background(), "198.51.100.1", uaGooglebot, false)
	if !d.IsBot {
		t.Fatal("expected Googlebot UA to classify as bot")
	}
	if d.BotName != "Googlebot" {
		t.Errorf("bot name = %q, want Googlebot", d.BotName)
	}
	if d.BotCategory != "Search bot" {
		t.Errorf("bot category = %q, want Search bot", d.BotCategory)
	}
}

func TestCachedClassifierEmptyUserAgent(t *testing.T) {
	store := cache.NewMemory()
	defer store.Close()
	cc := NewCachedClassifier(store, time.Hour)

	d := cc.Details(context.Background(), "198.51.100.1", "", false)
	if d.UserAgent != "Unknown" {
		t.Errorf("empty user-agent should normalize to Unknown, got %q", d.UserAgent)
	}
	if d.IsBot {
		t.Error("empty user-agent must not classify as bot")
	}
}

func TestCachedClassifierStoreDownDegradesToDirect(t *testing.T) {
	cc := NewCachedClassifier(downStore{}, time.Hour)
	ctx := context.Background()

	// Classification still succeeds, bypassing the cache entirely
	d := cc.Details(ctx, "198.51.100.1", uaGooglebot, false)
	if !d.IsBot || d.BotName != "Googlebot" {
		t.Errorf("expected direct classification despite store failure, got %+v", d)
	}
}
