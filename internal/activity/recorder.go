// Vigia - Activity Audit Logging and Device Classification
// Copyright 2026 Vigia Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vigia-labs/vigia

package activity

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vigia-labs/vigia/internal/device"
	"github.com/vigia-labs/vigia/internal/logging"
	"github.com/vigia-labs/vigia/internal/metrics"
	"github.com/vigia-labs/vigia/internal/throttle"
)

// Config holds configuration for the recorder.
type Config struct {
	// BufferSize is the size of the async emit buffer.
	BufferSize int

	// SinkTimeout bounds each sink write so a slow sink cannot stall the
	// writer goroutine indefinitely.
	SinkTimeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BufferSize:  1000,
		SinkTimeout: 5 * time.Second,
	}
}

// Recorder orchestrates access and entity-event logging. Emission is
// asynchronous: entries are buffered and written by a background
// goroutine, so callers never block on the sink. Sink failures degrade
// log completeness silently; they are never surfaced to the triggering
// request or mutation.
type Recorder struct {
	classifier   *device.CachedClassifier
	throttle     *throttle.Throttle
	sink         Sink
	resolveActor ActorResolver
	sinkTimeout  time.Duration

	entryChan chan *Entry
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

// NewRecorder creates a recorder and starts its writer goroutine.
// Call Close to drain and stop it.
func NewRecorder(classifier *device.CachedClassifier, thr *throttle.Throttle, sink Sink, resolver ActorResolver, cfg Config) *Recorder {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultConfig().BufferSize
	}
	if cfg.SinkTimeout <= 0 {
		cfg.SinkTimeout = DefaultConfig().SinkTimeout
	}

	r := &Recorder{
		classifier:   classifier,
		throttle:     thr,
		sink:         sink,
		resolveActor: resolver,
		sinkTimeout:  cfg.SinkTimeout,
		entryChan:    make(chan *Entry, cfg.BufferSize),
		stopChan:     make(chan struct{}),
	}

	r.wg.Add(1)
	go r.asyncWriter()

	return r
}

// LogAccess records one HTTP access event. Authenticated subjects are
// throttled to one entry per cooldown window; anonymous and bot traffic
// is always logged.
func (r *Recorder) LogAccess(req *http.Request, status int) {
	ctx := req.Context()
	actor := r.actor(ctx)

	if actor != nil && !r.throttle.ShouldLog(ctx, actor.ID) {
		metrics.AccessLogThrottled.Inc()
		return
	}

	details := r.classifier.Details(ctx, ClientIP(req), req.UserAgent(), actor != nil)

	// Bot classification takes precedence over authentication status.
	// Detection is skipped entirely for authenticated subjects, so the
	// first branch cannot currently fire for them; the precedence is kept
	// for when an already-classified result says otherwise.
	var visitorType string
	switch {
	case details.IsBot:
		visitorType = "bot"
	case actor != nil:
		visitorType = "authenticated_user"
	default:
		visitorType = "anonymous_visitor"
	}

	entry := &Entry{
		Channel: ChannelAccess,
		Name:    fmt.Sprintf("Access: %s %s", req.Method, req.URL.Path),
		Actor:   actor,
		Properties: Properties{
			{Key: "visitor_type", Value: visitorType},
			{Key: "is_bot", Value: details.IsBot},
			{Key: "url", Value: fullURL(req)},
			{Key: "method", Value: req.Method},
			{Key: "path", Value: req.URL.Path},
			{Key: "query_params", Value: req.URL.Query()},
			{Key: "referrer", Value: req.Referer()},
			{Key: "status_code", Value: status},
			{Key: "device", Value: details},
		},
	}

	r.emit(entry)

	// Marked only after emission is attempted, so a crash before emission
	// does not suppress a genuinely-missed log.
	if actor != nil {
		r.throttle.MarkLogged(ctx, actor.ID)
	}
}

// LogEntityEvent records one entity lifecycle event. For updated events
// the "old" property holds the prior values of exactly the fields in the
// changed set, keyed by field name rather than by actual value difference.
// Logging is fire-and-forget relative to the mutation that triggered it.
func (r *Recorder) LogEntityEvent(ctx context.Context, kind EventKind, message string, entity Snapshot) {
	actor := r.actor(ctx)

	old := map[string]any{}
	if kind == EventUpdated {
		original := entity.Original()
		for _, field := range entity.Changed() {
			if value, ok := original[field]; ok {
				old[field] = value
			}
		}
	}

	info := RequestInfoFromContext(ctx)
	details := r.classifier.Details(ctx, info.IP, info.UserAgent, actor != nil)

	entry := &Entry{
		Channel: ChannelDefault,
		Name:    string(kind),
		Message: message,
		Actor:   actor,
		Subject: &Subject{Type: entity.EntityType(), ID: entity.EntityID()},
		Properties: Properties{
			{Key: "attributes", Value: entity.Attributes()},
			{Key: "old", Value: old},
			{Key: "device", Value: details},
		},
	}

	r.emit(entry)
}

// actor resolves the current subject, tolerating a missing resolver.
func (r *Recorder) actor(ctx context.Context) *Actor {
	if r.resolveActor == nil {
		return nil
	}
	return r.resolveActor(ctx)
}

// emit stamps the entry and hands it to the writer goroutine. When the
// buffer is full, or the recorder has been closed and no writer remains,
// the entry is dropped with a warning rather than blocking the request
// path or vanishing silently into the buffer.
func (r *Recorder) emit(entry *Entry) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	entry.OccurredAt = time.Now()

	select {
	case <-r.stopChan:
		metrics.ActivityEntriesDropped.Inc()
		logging.Warn().Str("entry_id", entry.ID).Msg("Recorder closed, dropping entry")
		return
	default:
	}

	select {
	case r.entryChan <- entry:
		metrics.ActivityEntriesEmitted.WithLabelValues(string(entry.Channel)).Inc()
	default:
		metrics.ActivityEntriesDropped.Inc()
		logging.Warn().Str("entry_id", entry.ID).Msg("Activity buffer full, dropping entry")
	}
}

// asyncWriter processes entries from the buffer, draining it on shutdown.
func (r *Recorder) asyncWriter() {
	defer r.wg.Done()

	for {
		select {
		case <-r.stopChan:
			for {
				select {
				case entry := <-r.entryChan:
					r.writeEntry(entry)
				default:
					return
				}
			}
		case entry := <-r.entryChan:
			r.writeEntry(entry)
		}
	}
}

// writeEntry persists one entry. Writes use the recorder's own bounded
// timeout context rather than the originating request's: an entry that was
// constructed is emitted even if its request has since been cancelled,
// favoring over-logging for audit completeness.
func (r *Recorder) writeEntry(entry *Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), r.sinkTimeout)
	defer cancel()

	start := time.Now()
	if err := r.sink.Write(ctx, entry); err != nil {
		metrics.ActivitySinkErrors.Inc()
		logging.Error().Err(err).Str("entry_id", entry.ID).Str("channel", string(entry.Channel)).Msg("Failed to write activity entry")
		return
	}
	metrics.ActivitySinkWriteDuration.Observe(time.Since(start).Seconds())
}

// Close drains buffered entries and stops the writer goroutine.
func (r *Recorder) Close() error {
	close(r.stopChan)
	r.wg.Wait()
	return nil
}

// ClientIP extracts the client IP from a request, honoring proxy headers.
// X-Forwarded-For wins (first hop), then X-Real-IP, then RemoteAddr; the
// port is stripped when present.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := xff
		if idx := strings.Index(xff, ","); idx != -1 {
			first = xff[:idx]
		}
		first = strings.TrimSpace(first)
		if first != "" {
			return stripPort(first)
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return stripPort(xri)
	}

	return stripPort(r.RemoteAddr)
}

// stripPort removes the port from a host:port address, tolerating bare
// hosts and IPv6 literals.
func stripPort(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

// fullURL reconstructs the URL the client requested.
func fullURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}
