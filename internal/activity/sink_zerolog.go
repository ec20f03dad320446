// Vigia - Activity Audit Logging and Device Classification
// Copyright 2026 Vigia Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vigia-labs/vigia

package activity

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// ZerologSink writes entries to a zerolog stream, one JSON object per
// entry. Useful as a durable sink when the process's log output is already
// shipped to an aggregator.
type ZerologSink struct {
	logger zerolog.Logger
}

// NewZerologSink creates a sink writing to the given logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewZerologSink(logger zerolog.Logger) *ZerologSink {
	return &ZerologSink{logger: logger}
}

// Write logs the entry at info level under the "activity" event key.
func (s *ZerologSink) Write(ctx context.Context, entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal activity entry: %w", err)
	}

	s.logger.Info().
		Str("channel", string(entry.Channel)).
		RawJSON("activity", data).
		Msg("Activity entry")
	return nil
}
