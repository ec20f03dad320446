// Vigia - Activity Audit Logging and Device Classification
// Copyright 2026 Vigia Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vigia-labs/vigia

package main

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vigia-labs/vigia/internal/activity"
	"github.com/vigia-labs/vigia/internal/authz"
	"github.com/vigia-labs/vigia/internal/logging"
	"github.com/vigia-labs/vigia/internal/middleware"
	"github.com/vigia-labs/vigia/internal/models"
	"github.com/vigia-labs/vigia/internal/observer"
)

type actorContextKey struct{}

// actorFromContext is the ActorResolver wired into the recorder.
func actorFromContext(ctx context.Context) *activity.Actor {
	if actor, ok := ctx.Value(actorContextKey{}).(*activity.Actor); ok {
		return actor
	}
	return nil
}

// identify resolves the caller from X-Actor-ID and X-Actor-Name headers.
// It is a stand-in for a session layer: the deployment in front of Vigia
// authenticates and forwards the subject identity.
func identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Actor-ID"))
		if id == "" {
			next.ServeHTTP(w, r)
			return
		}

		actor := &activity.Actor{
			ID:   id,
			Name: strings.TrimSpace(r.Header.Get("X-Actor-Name")),
		}
		if roles := strings.TrimSpace(r.Header.Get("X-Actor-Roles")); roles != "" {
			actor.Roles = strings.Split(roles, ",")
		}

		ctx := context.WithValue(r.Context(), actorContextKey{}, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// newRouter assembles the HTTP surface. Every route below the AccessLog
// middleware produces at most one access entry per request. history may
// be nil when the configured sink has no read side.
func newRouter(recorder *activity.Recorder, userObserver *observer.UserObserver, history activity.History) http.Handler {
	h := &handlers{
		observer: userObserver,
		policy:   authz.DefaultRolePredicate(),
		history:  history,
		users:    make(map[string]*models.User),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(identify)

	// Operational endpoints stay out of the activity log
	r.Get("/healthz", h.health)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.AccessLog(recorder))

		r.Route("/users", func(r chi.Router) {
			r.Post("/", h.createUser)
			r.Get("/{id}", h.getUser)
			r.Patch("/{id}", h.updateUser)
			r.Delete("/{id}", h.deleteUser)
			r.Post("/{id}/restore", h.restoreUser)
		})

		r.Get("/panels/{panel}/access", h.panelAccess)
		r.Get("/activity", h.recentActivity)
	})

	return r
}

// handlers holds the demo user surface. The in-memory user map stands in
// for a persistence layer; it exists to drive the observer end to end.
type handlers struct {
	observer *observer.UserObserver
	policy   *authz.RolePredicate
	history  activity.History

	mu    sync.RWMutex
	users map[string]*models.User
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type userRequest struct {
	Name  string   `json:"name"`
	Email string   `json:"email"`
	Roles []string `json:"roles"`
}

func (h *handlers) createUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Email == "" {
		respondError(w, http.StatusBadRequest, "name and email are required")
		return
	}
	for _, role := range req.Roles {
		if !models.IsValidRole(role) {
			respondError(w, http.StatusBadRequest, "unknown role: "+role)
			return
		}
	}
	if len(req.Roles) == 0 {
		req.Roles = []string{models.RoleUser}
	}

	u := models.NewUser(req.Name, req.Email, req.Roles)

	h.mu.Lock()
	h.users[u.ID.String()] = u
	h.mu.Unlock()

	h.observer.Created(r.Context(), u)
	respondJSON(w, http.StatusCreated, u)
}

func (h *handlers) getUser(w http.ResponseWriter, r *http.Request) {
	u, ok := h.lookup(chi.URLParam(r, "id"))
	if !ok || u.IsDeleted() {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}
	respondJSON(w, http.StatusOK, u)
}

func (h *handlers) updateUser(w http.ResponseWriter, r *http.Request) {
	u, ok := h.lookup(chi.URLParam(r, "id"))
	if !ok || u.IsDeleted() {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}

	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.mu.Lock()
	if req.Name != "" {
		u.SetName(req.Name)
	}
	if req.Email != "" {
		u.SetEmail(req.Email)
	}
	if req.Roles != nil {
		u.SetRoles(req.Roles)
	}
	h.mu.Unlock()

	h.observer.Updated(r.Context(), u)
	u.SyncChanges()
	respondJSON(w, http.StatusOK, u)
}

func (h *handlers) deleteUser(w http.ResponseWriter, r *http.Request) {
	u, ok := h.lookup(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}

	force := r.URL.Query().Get("force") == "true"

	h.mu.Lock()
	if force {
		delete(h.users, u.ID.String())
	} else {
		u.SoftDelete()
	}
	h.mu.Unlock()

	h.observer.Deleted(r.Context(), u, force)
	if force {
		h.observer.ForceDeleted(r.Context(), u)
	} else {
		u.SyncChanges()
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) restoreUser(w http.ResponseWriter, r *http.Request) {
	u, ok := h.lookup(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}
	if !u.IsDeleted() {
		respondError(w, http.StatusConflict, "user is not deleted")
		return
	}

	h.mu.Lock()
	u.Restore()
	h.mu.Unlock()

	// A restore fires both hooks; Updated skips the transition itself
	h.observer.Updated(r.Context(), u)
	h.observer.Restored(r.Context(), u)
	u.SyncChanges()

	respondJSON(w, http.StatusOK, u)
}

// panelAccess evaluates the panel policy for the calling actor.
func (h *handlers) panelAccess(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	if actor == nil {
		respondError(w, http.StatusUnauthorized, "no actor identity")
		return
	}

	// The predicate wants the user record when we hold one; header-only
	// actors are evaluated on their forwarded roles.
	u, ok := h.lookup(actor.ID)
	if !ok {
		u = &models.User{ID: uuid.Nil, Name: actor.Name, Roles: actor.Roles}
	}

	panel := chi.URLParam(r, "panel")
	respondJSON(w, http.StatusOK, map[string]any{
		"panel":   panel,
		"allowed": h.policy.CanAccess(u, panel),
	})
}

// recentActivity serves the read side of the activity log when the sink
// offers one.
func (h *handlers) recentActivity(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		respondError(w, http.StatusNotImplemented, "the configured sink keeps no history")
		return
	}

	channel := activity.Channel(r.URL.Query().Get("channel"))
	if channel == "" {
		channel = activity.ChannelAccess
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	entries, err := h.history.Recent(r.Context(), channel, limit)
	if err != nil {
		logger := logging.Ctx(r.Context())
		logger.Error().Err(err).Str("channel", string(channel)).Msg("Failed to read activity history")
		respondError(w, http.StatusInternalServerError, "failed to read activity history")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"channel": channel,
		"entries": entries,
	})
}

func (h *handlers) lookup(id string) (*models.User, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	u, ok := h.users[id]
	return u, ok
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.Error().Err(err).Msg("Failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
