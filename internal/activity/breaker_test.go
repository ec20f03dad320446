// Vigia - Activity Audit Logging and Device Classification
// Copyright 2026 Vigia Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vigia-labs/vigia

package activity

import (
	"context"
	"errors"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

// flakySink fails until told to recover.
type flakySink struct {
	failing bool
	calls   int
}

func (s *flakySink) Write(ctx context.Context, entry *Entry) error {
	s.calls++
	if s.failing {
		return errors.New("write failed")
	}
	return nil
}

func TestBreakerSinkPassesThroughWhenHealthy(t *testing.T) {
	inner := NewMemorySink(10)
	sink := NewBreakerSink(inner, DefaultBreakerConfig())

	for i := 0; i < 3; i++ {
		if err := sink.Write(context.Background(), &Entry{ID: "e", Channel: ChannelDefault}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if inner.Len() != 3 {
		t.Errorf("inner sink got %d writes, want 3", inner.Len())
	}
	if sink.State() != gobreaker.StateClosed.String() {
		t.Errorf("state = %s, want closed", sink.State())
	}
}

func TestBreakerSinkTripsAfterConsecutiveFailures(t *testing.T) {
	inner := &flakySink{failing: true}
	sink := NewBreakerSink(inner, BreakerConfig{
		FailureThreshold: 3,
		Timeout:          time.Minute,
	})

	entry := &Entry{ID: "e", Channel: ChannelDefault}
	for i := 0; i < 3; i++ {
		if err := sink.Write(context.Background(), entry); err == nil {
			t.Fatal("expected write error")
		}
	}

	if sink.State() != gobreaker.StateOpen.String() {
		t.Fatalf("state = %s, want open after threshold", sink.State())
	}

	// Open breaker rejects without touching the inner sink
	callsBefore := inner.calls
	err := sink.Write(context.Background(), entry)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("err = %v, want ErrOpenState", err)
	}
	if inner.calls != callsBefore {
		t.Error("open breaker must not call the inner sink")
	}
}

func TestBreakerSinkRecovers(t *testing.T) {
	inner := &flakySink{failing: true}
	sink := NewBreakerSink(inner, BreakerConfig{
		FailureThreshold: 2,
		Timeout:          50 * time.Millisecond,
		MaxRequests:      1,
	})

	entry := &Entry{ID: "e", Channel: ChannelDefault}
	for i := 0; i < 2; i++ {
		_ = sink.Write(context.Background(), entry)
	}
	if sink.State() != gobreaker.StateOpen.String() {
		t.Fatalf("state = %s, want open", sink.State())
	}

	inner.failing = false
	time.Sleep(80 * time.Millisecond)

	if err := sink.Write(context.Background(), entry); err != nil {
		t.Fatalf("probe write failed: %v", err)
	}
	if sink.State() != gobreaker.StateClosed.String() {
		t.Errorf("state = %s, want closed after successful probe", sink.State())
	}
}
