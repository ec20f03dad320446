// Vigia - Activity Audit Logging and Device Classification
// Copyright 2026 Vigia Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vigia-labs/vigia

// Package models defines the entity records the activity subsystem
// observes.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Role constants define the standard roles in the system.
const (
	// RoleSuperAdmin bypasses all panel access checks.
	RoleSuperAdmin = "super_admin"

	// RoleAdmin has administrative access where a panel grants it.
	RoleAdmin = "admin"

	// RoleUser is the default role.
	RoleUser = "user"
)

// ValidRoles contains all valid role names for validation.
var ValidRoles = []string{RoleSuperAdmin, RoleAdmin, RoleUser}

// IsValidRole checks if a role name is valid.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}

// User is a soft-deletable account record with change tracking. Mutations
// go through the setter methods so the observer can report exactly which
// fields changed and what their prior values were.
//
// The tracked state mirrors a persistence layer's dirty checking: original
// holds the values as of the last SyncChanges, changed holds the fields
// touched since. Not safe for concurrent mutation.
type User struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Roles     []string   `json:"roles"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`

	original map[string]any
	changed  map[string]bool
}

// NewUser creates a user with a fresh ID and clean change state.
func NewUser(name, email string, roles []string) *User {
	now := time.Now()
	u := &User{
		ID:        uuid.New(),
		Name:      name,
		Email:     email,
		Roles:     roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	u.SyncChanges()
	return u
}

// SetName updates the name, recording the change.
func (u *User) SetName(name string) {
	if u.Name == name {
		return
	}
	u.touch("name")
	u.Name = name
}

// SetEmail updates the email, recording the change.
func (u *User) SetEmail(email string) {
	if u.Email == email {
		return
	}
	u.touch("email")
	u.Email = email
}

// SetRoles replaces the role set, recording the change.
func (u *User) SetRoles(roles []string) {
	u.touch("roles")
	u.Roles = roles
}

// SoftDelete marks the user deleted without removing the record.
func (u *User) SoftDelete() {
	if u.DeletedAt != nil {
		return
	}
	u.touch("deleted_at")
	now := time.Now()
	u.DeletedAt = &now
}

// Restore clears a soft delete.
func (u *User) Restore() {
	if u.DeletedAt == nil {
		return
	}
	u.touch("deleted_at")
	u.DeletedAt = nil
}

// IsDeleted reports whether the user is soft-deleted.
func (u *User) IsDeleted() bool {
	return u.DeletedAt != nil
}

// HasRole reports whether the user holds the given role.
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// touch marks a field changed and records its current value as original.
func (u *User) touch(field string) {
	if u.changed == nil {
		u.changed = make(map[string]bool)
	}
	if u.original == nil {
		u.original = u.snapshot()
	}
	u.UpdatedAt = time.Now()
	u.changed[field] = true
	u.changed["updated_at"] = true
}

// snapshot captures the current attribute values.
func (u *User) snapshot() map[string]any {
	roles := make([]string, len(u.Roles))
	copy(roles, u.Roles)

	attrs := map[string]any{
		"id":         u.ID.String(),
		"name":       u.Name,
		"email":      u.Email,
		"roles":      roles,
		"created_at": u.CreatedAt,
		"updated_at": u.UpdatedAt,
	}
	if u.DeletedAt != nil {
		attrs["deleted_at"] = *u.DeletedAt
	} else {
		attrs["deleted_at"] = nil
	}
	return attrs
}

// SyncChanges resets the change state, treating the current values as the
// new baseline. Call after the record is persisted.
func (u *User) SyncChanges() {
	u.original = nil
	u.changed = nil
}

// EntityType implements activity.Snapshot.
func (u *User) EntityType() string { return "user" }

// EntityID implements activity.Snapshot.
func (u *User) EntityID() string { return u.ID.String() }

// Attributes implements activity.Snapshot with the current values.
func (u *User) Attributes() map[string]any { return u.snapshot() }

// Original implements activity.Snapshot with the values as of the last
// SyncChanges.
func (u *User) Original() map[string]any {
	if u.original == nil {
		return u.snapshot()
	}
	return u.original
}

// Changed implements activity.Snapshot with the fields touched since the
// last SyncChanges.
func (u *User) Changed() []string {
	fields := make([]string, 0, len(u.changed))
	for field := range u.changed {
		fields = append(fields, field)
	}
	return fields
}

// WasChanged reports whether the named field changed since the last
// SyncChanges.
func (u *User) WasChanged(field string) bool {
	return u.changed[field]
}
