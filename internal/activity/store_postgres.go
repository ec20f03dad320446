// Vigia - Activity Audit Logging and Device Classification
// Copyright 2026 Vigia Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vigia-labs/vigia

package activity

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/goccy/go-json"
)

// PostgresStore implements Sink on a Postgres table. It is the durable
// production sink; entries append to activity_log and are never updated.
// The caller owns the *sql.DB and must import a Postgres driver
// (github.com/lib/pq).
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a Postgres-backed sink.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the activity_log table when missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS activity_log (
			id UUID PRIMARY KEY,
			channel TEXT NOT NULL,
			event_name TEXT NOT NULL,
			message TEXT NOT NULL DEFAULT '',
			actor_id TEXT,
			actor_name TEXT,
			subject_type TEXT,
			subject_id TEXT,
			properties JSONB NOT NULL DEFAULT '{}',
			occurred_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_activity_log_channel_occurred
			ON activity_log (channel, occurred_at DESC);
		CREATE INDEX IF NOT EXISTS idx_activity_log_actor
			ON activity_log (actor_id) WHERE actor_id IS NOT NULL;`

	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("migrate activity_log: %w", err)
	}
	return nil
}

// Write inserts one entry.
func (s *PostgresStore) Write(ctx context.Context, entry *Entry) error {
	properties, err := json.Marshal(entry.Properties)
	if err != nil {
		return fmt.Errorf("marshal properties: %w", err)
	}

	var actorID, actorName, subjectType, subjectID sql.NullString
	if entry.Actor != nil {
		actorID = sql.NullString{String: entry.Actor.ID, Valid: true}
		actorName = sql.NullString{String: entry.Actor.Name, Valid: true}
	}
	if entry.Subject != nil {
		subjectType = sql.NullString{String: entry.Subject.Type, Valid: true}
		subjectID = sql.NullString{String: entry.Subject.ID, Valid: true}
	}

	const insert = `
		INSERT INTO activity_log
			(id, channel, event_name, message, actor_id, actor_name, subject_type, subject_id, properties, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = s.db.ExecContext(ctx, insert,
		entry.ID, string(entry.Channel), entry.Name, entry.Message,
		actorID, actorName, subjectType, subjectID,
		properties, entry.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("insert activity entry: %w", err)
	}
	return nil
}

// Recent returns the newest entries for a channel, newest first.
// Properties come back as raw JSON since ordered decoding is not needed
// for operator inspection.
func (s *PostgresStore) Recent(ctx context.Context, channel Channel, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}

	const query = `
		SELECT id, channel, event_name, message, actor_id, actor_name, subject_type, subject_id, occurred_at
		FROM activity_log
		WHERE channel = $1
		ORDER BY occurred_at DESC
		LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, string(channel), limit)
	if err != nil {
		return nil, fmt.Errorf("query activity_log: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var ch string
		var actorID, actorName, subjectType, subjectID sql.NullString

		if err := rows.Scan(&e.ID, &ch, &e.Name, &e.Message, &actorID, &actorName, &subjectType, &subjectID, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan activity entry: %w", err)
		}

		e.Channel = Channel(ch)
		if actorID.Valid {
			e.Actor = &Actor{ID: actorID.String, Name: actorName.String}
		}
		if subjectType.Valid {
			e.Subject = &Subject{Type: subjectType.String, ID: subjectID.String}
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
