// Vigia - Activity Audit Logging and Device Classification
// Copyright 2026 Vigia Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vigia-labs/vigia

// Package authz decides panel access. The predicate is supplied at the
// boundary that needs it; the activity recorder never consults it.
package authz

import (
	"github.com/vigia-labs/vigia/internal/models"
)

// Predicate reports whether a user may access the named panel.
type Predicate func(user *models.User, panelID string) bool

// RolePredicate grants access by role. A user holding the bypass role
// passes every check; otherwise the panel's capability list must contain
// one of the user's roles.
type RolePredicate struct {
	// BypassRole short-circuits all panel checks when held.
	BypassRole string

	// PanelRoles maps panel ID to the roles allowed in.
	PanelRoles map[string][]string
}

// DefaultRolePredicate returns the standard policy: super admins go
// everywhere, admins reach the admin panel, every live account reaches
// the app panel.
func DefaultRolePredicate() *RolePredicate {
	return &RolePredicate{
		BypassRole: models.RoleSuperAdmin,
		PanelRoles: map[string][]string{
			"admin": {models.RoleAdmin},
			"app":   {models.RoleSuperAdmin, models.RoleAdmin, models.RoleUser},
		},
	}
}

// CanAccess evaluates the policy for one user and panel. Deleted users
// are always denied, bypass included.
func (p *RolePredicate) CanAccess(user *models.User, panelID string) bool {
	if user == nil || user.IsDeleted() {
		return false
	}

	if p.BypassRole != "" && user.HasRole(p.BypassRole) {
		return true
	}

	allowed, ok := p.PanelRoles[panelID]
	if !ok {
		return false
	}
	for _, role := range allowed {
		if user.HasRole(role) {
			return true
		}
	}
	return false
}

// AsPredicate adapts the policy to the Predicate func type.
func (p *RolePredicate) AsPredicate() Predicate {
	return p.CanAccess
}
