// Vigia - Activity Audit Logging and Device Classification
// Copyright 2026 Vigia Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vigia-labs/vigia

// Package activity builds structured audit log entries for HTTP access
// events and entity lifecycle events, enriching them with actor and device
// information, and hands them to an external log sink. Logging is always
// best-effort relative to the operation that triggered it.
package activity

import (
	"bytes"
	"context"
	"time"

	"github.com/goccy/go-json"
)

// Channel identifies the event stream an entry belongs to.
type Channel string

const (
	// ChannelAccess carries HTTP access events.
	ChannelAccess Channel = "access"

	// ChannelDefault carries entity lifecycle events.
	ChannelDefault Channel = "default"
)

// EventKind is an entity lifecycle transition.
type EventKind string

const (
	EventCreated            EventKind = "created"
	EventUpdated            EventKind = "updated"
	EventDeleted            EventKind = "deleted"
	EventRestored           EventKind = "restored"
	EventPermanentlyDeleted EventKind = "permanently_deleted"
)

// Actor is the authenticated subject performing an action. A nil Actor
// means the action was anonymous or system-initiated.
type Actor struct {
	ID    string   `json:"id"`
	Name  string   `json:"name,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

// Subject references the entity an entry is about.
type Subject struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Property is one key/value pair in an entry's properties.
type Property struct {
	Key   string
	Value any
}

// Properties is an insertion-ordered mapping from string keys to arbitrary
// structured values. It marshals to a JSON object preserving insertion
// order, unlike a Go map.
type Properties []Property

// Get returns the value for key, if present.
func (p Properties) Get(key string) (any, bool) {
	for _, kv := range p {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return nil, false
}

// MarshalJSON implements ordered object encoding.
func (p Properties) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, kv := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(kv.Key)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(kv.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Entry is one audit log record. It is constructed, handed to the sink,
// and never mutated or retained afterward. Emitting identical content
// twice produces two independent records: repeat actions are repeat
// events, deduplication is deliberately absent.
type Entry struct {
	// ID is a unique identifier for this entry.
	ID string `json:"id"`

	// Channel is the event stream this entry belongs to.
	Channel Channel `json:"channel"`

	// Name is the event name, e.g. "created" or "Access: GET /status".
	Name string `json:"event_name"`

	// Message is an optional human-readable description.
	Message string `json:"message,omitempty"`

	// Actor is the acting subject; nil for anonymous events.
	Actor *Actor `json:"actor,omitempty"`

	// Subject is the entity the event is about; nil for access events.
	Subject *Subject `json:"subject,omitempty"`

	// Properties carries device info, attributes, diffs and request metadata.
	Properties Properties `json:"properties"`

	// OccurredAt is set at emission time.
	OccurredAt time.Time `json:"occurred_at"`
}

// Sink accepts entries and durably records them. This subsystem never
// reads entries back through this interface.
type Sink interface {
	Write(ctx context.Context, entry *Entry) error
}

// History is the optional read side a sink may offer. Sinks that only
// forward entries (log, NATS) do not implement it.
type History interface {
	// Recent returns the newest entries for a channel, newest first.
	Recent(ctx context.Context, channel Channel, limit int) ([]Entry, error)
}

// Snapshot supplies the field-value state of a mutated entity.
type Snapshot interface {
	// EntityType names the entity's kind, e.g. "user".
	EntityType() string

	// EntityID identifies the entity instance.
	EntityID() string

	// Attributes returns the full current field-value mapping.
	Attributes() map[string]any

	// Original returns the pre-change field-value mapping.
	Original() map[string]any

	// Changed returns the names of fields the mutation touched.
	Changed() []string
}

// ActorResolver returns the currently-authenticated subject, or nil.
type ActorResolver func(ctx context.Context) *Actor

// RequestInfo carries the request attributes entity-event logging needs
// when it runs outside an HTTP handler's direct call chain.
type RequestInfo struct {
	IP        string
	UserAgent string
}

type requestInfoKey struct{}

// ContextWithRequestInfo stores request attributes in the context so
// entity-event logging can resolve device details for the triggering
// request.
func ContextWithRequestInfo(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, requestInfoKey{}, info)
}

// RequestInfoFromContext retrieves request attributes stored by the
// boundary layer. The zero value is returned when absent.
func RequestInfoFromContext(ctx context.Context) RequestInfo {
	if info, ok := ctx.Value(requestInfoKey{}).(RequestInfo); ok {
		return info
	}
	return RequestInfo{}
}
