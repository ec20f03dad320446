// Vigia - Activity Audit Logging and Device Classification
// Copyright 2026 Vigia Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vigia-labs/vigia

package activity

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
)

// NATSSink publishes entries to a NATS subject so a downstream consumer
// owns durable persistence. Entries are published per channel under
// <prefix>.<channel>, e.g. "activity.access".
type NATSSink struct {
	conn          *nats.Conn
	subjectPrefix string
}

// NewNATSSink creates a sink publishing to the given connection.
// An empty prefix defaults to "activity".
func NewNATSSink(conn *nats.Conn, subjectPrefix string) *NATSSink {
	if subjectPrefix == "" {
		subjectPrefix = "activity"
	}
	return &NATSSink{conn: conn, subjectPrefix: subjectPrefix}
}

// Write publishes the JSON-encoded entry. Publishing is buffered by the
// NATS client; a closed or failed connection surfaces as an error.
func (s *NATSSink) Write(ctx context.Context, entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal activity entry: %w", err)
	}

	subject := s.subjectPrefix + "." + string(entry.Channel)
	if err := s.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish activity entry to %s: %w", subject, err)
	}
	return nil
}
