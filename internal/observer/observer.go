// Vigia - Activity Audit Logging and Device Classification
// Copyright 2026 Vigia Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vigia-labs/vigia

// Package observer turns entity lifecycle transitions into activity
// entries. Callers invoke the hook matching the mutation they performed;
// the observer decides which transitions are worth a record.
package observer

import (
	"context"
	"fmt"

	"github.com/vigia-labs/vigia/internal/activity"
	"github.com/vigia-labs/vigia/internal/models"
)

// UserObserver records user lifecycle events through the activity
// recorder. All hooks are fire-and-forget: they never fail the mutation
// that triggered them.
type UserObserver struct {
	recorder *activity.Recorder
}

// NewUserObserver creates an observer bound to a recorder.
func NewUserObserver(recorder *activity.Recorder) *UserObserver {
	return &UserObserver{recorder: recorder}
}

// Created records a new user.
func (o *UserObserver) Created(ctx context.Context, u *models.User) {
	o.recorder.LogEntityEvent(ctx, activity.EventCreated, fmt.Sprintf("user created: %s", u.Name), u)
}

// Updated records an attribute change. A restore transition is skipped
// here: it clears deleted_at as a side effect and Restored already
// records it, so logging both would duplicate the event.
func (o *UserObserver) Updated(ctx context.Context, u *models.User) {
	if u.WasChanged("deleted_at") && !u.IsDeleted() {
		return
	}
	o.recorder.LogEntityEvent(ctx, activity.EventUpdated, fmt.Sprintf("user updated: %s", u.Name), u)
}

// Deleted records a soft delete. Force deletes are skipped: ForceDeleted
// records those as permanently_deleted.
func (o *UserObserver) Deleted(ctx context.Context, u *models.User, force bool) {
	if force {
		return
	}
	o.recorder.LogEntityEvent(ctx, activity.EventDeleted, fmt.Sprintf("user deleted: %s", u.Name), u)
}

// Restored records a soft-delete reversal.
func (o *UserObserver) Restored(ctx context.Context, u *models.User) {
	o.recorder.LogEntityEvent(ctx, activity.EventRestored, fmt.Sprintf("user restored: %s", u.Name), u)
}

// ForceDeleted records a permanent removal.
func (o *UserObserver) ForceDeleted(ctx context.Context, u *models.User) {
	o.recorder.LogEntityEvent(ctx, activity.EventPermanentlyDeleted, fmt.Sprintf("user permanently deleted: %s", u.Name), u)
}
