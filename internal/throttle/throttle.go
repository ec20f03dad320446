// Vigia - Activity Audit Logging and Device Classification
// Copyright 2026 Vigia Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vigia-labs/vigia

// Package throttle suppresses repeat access logging for authenticated
// subjects within a cooldown window. Anonymous traffic is never throttled:
// the callers simply don't consult this package for absent subjects, so
// bot and anonymous traffic patterns stay fully visible.
package throttle

import (
	"context"
	"time"

	"github.com/vigia-labs/vigia/internal/cache"
	"github.com/vigia-labs/vigia/internal/logging"
)

// DefaultWindow is the cooldown during which repeat access logging for the
// same subject is suppressed.
const DefaultWindow = 5 * time.Minute

// keyPrefix namespaces throttle marks in the shared store.
const keyPrefix = "access_log_throttle:"

// mark is the stored value; only its existence matters.
var mark = []byte{1}

// Throttle decides whether a subject should produce another access-log
// entry within the cooldown window.
type Throttle struct {
	store  cache.Store
	window time.Duration
}

// New creates a throttle over the given store. A non-positive window
// falls back to DefaultWindow.
func New(store cache.Store, window time.Duration) *Throttle {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Throttle{store: store, window: window}
}

// Window returns the configured cooldown.
func (t *Throttle) Window() time.Duration {
	return t.window
}

// ShouldLog reports whether no live mark exists for subjectID. A store
// failure fails open: under-logging is worse than over-logging for an
// audit trail.
func (t *Throttle) ShouldLog(ctx context.Context, subjectID string) bool {
	exists, err := t.store.Exists(ctx, keyPrefix+subjectID)
	if err != nil {
		logging.Warn().Err(err).Str("subject_id", subjectID).Msg("Throttle check failed, allowing log")
		return true
	}
	return !exists
}

// MarkLogged writes a mark for subjectID, overwriting any existing mark
// and resetting the window. A store failure is logged and ignored; the
// next request will simply log again.
func (t *Throttle) MarkLogged(ctx context.Context, subjectID string) {
	if err := t.store.Set(ctx, keyPrefix+subjectID, mark, t.window); err != nil {
		logging.Warn().Err(err).Str("subject_id", subjectID).Msg("Throttle mark write failed")
	}
}
