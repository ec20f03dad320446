// Vigia - Activity Audit Logging and Device Classification
// Copyright 2026 Vigia Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vigia-labs/vigia

package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/vigia-labs/vigia/internal/activity"
	"github.com/vigia-labs/vigia/internal/cache"
	"github.com/vigia-labs/vigia/internal/device"
	"github.com/vigia-labs/vigia/internal/observer"
	"github.com/vigia-labs/vigia/internal/throttle"
)

type serverFixture struct {
	handler  http.Handler
	recorder *activity.Recorder
	sink     *activity.MemorySink
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()

	store := cache.NewMemory()
	t.Cleanup(func() { store.Close() })

	sink := activity.NewMemorySink(100)
	recorder := activity.NewRecorder(
		device.NewCachedClassifier(store, time.Hour),
		throttle.New(store, 5*time.Minute),
		sink,
		actorFromContext,
		activity.Config{BufferSize: 100, SinkTimeout: time.Second},
	)

	return &serverFixture{
		handler:  newRouter(recorder, observer.NewUserObserver(recorder), sink),
		recorder: recorder,
		sink:     sink,
	}
}

func (f *serverFixture) do(t *testing.T, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	req.Header.Set("User-Agent", "curl/8.4.0")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthzNotAccessLogged(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(t, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	f.recorder.Close()
	if f.sink.Len() != 0 {
		t.Errorf("health check must not produce activity entries, got %d", f.sink.Len())
	}
}

func TestCreateUserFlow(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(t, http.MethodPost, "/users", `{"name":"alice","email":"alice@example.org"}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	f.recorder.Close()
	entries := f.sink.Entries()

	// One access entry plus one created entry
	var names []string
	for _, e := range entries {
		names = append(names, e.Name)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %v", names)
	}

	var created, access bool
	for _, e := range entries {
		switch {
		case e.Channel == activity.ChannelDefault && e.Name == "created":
			created = true
		case e.Channel == activity.ChannelAccess:
			access = true
		}
	}
	if !created || !access {
		t.Errorf("missing expected entries: %v", names)
	}
}

func TestCreateUserValidation(t *testing.T) {
	f := newServerFixture(t)
	defer f.recorder.Close()

	tests := []struct {
		name string
		body string
	}{
		{"missing fields", `{}`},
		{"bad json", `{`},
		{"unknown role", `{"name":"x","email":"x@example.org","roles":["wizard"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/users", tt.body, nil)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestSoftDeleteAndRestoreFlow(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(t, http.MethodPost, "/users", `{"name":"alice","email":"alice@example.org"}`, nil)
	var u struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &u); err != nil {
		t.Fatal(err)
	}

	if rec := f.do(t, http.MethodDelete, "/users/"+u.ID, "", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, "/users/"+u.ID, "", nil); rec.Code != http.StatusNotFound {
		t.Errorf("deleted user should 404, got %d", rec.Code)
	}
	if rec := f.do(t, http.MethodPost, "/users/"+u.ID+"/restore", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("restore status = %d", rec.Code)
	}

	f.recorder.Close()

	var kinds []string
	for _, e := range f.sink.Entries() {
		if e.Channel == activity.ChannelDefault {
			kinds = append(kinds, e.Name)
		}
	}
	want := []string{"created", "deleted", "restored"}
	if len(kinds) != len(want) {
		t.Fatalf("entity events = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("entity events = %v, want %v", kinds, want)
			break
		}
	}
}

func TestForceDeleteRecordsPermanent(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(t, http.MethodPost, "/users", `{"name":"alice","email":"alice@example.org"}`, nil)
	var u struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &u); err != nil {
		t.Fatal(err)
	}

	if rec := f.do(t, http.MethodDelete, "/users/"+u.ID+"?force=true", "", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}

	f.recorder.Close()

	var kinds []string
	for _, e := range f.sink.Entries() {
		if e.Channel == activity.ChannelDefault {
			kinds = append(kinds, e.Name)
		}
	}
	want := []string{"created", "permanently_deleted"}
	if len(kinds) != 2 || kinds[0] != want[0] || kinds[1] != want[1] {
		t.Errorf("entity events = %v, want %v", kinds, want)
	}
}

func TestPanelAccess(t *testing.T) {
	f := newServerFixture(t)
	defer f.recorder.Close()

	rec := f.do(t, http.MethodGet, "/panels/admin/access", "", map[string]string{
		"X-Actor-ID":    "77",
		"X-Actor-Name":  "ops",
		"X-Actor-Roles": "admin",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Allowed bool `json:"allowed"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Allowed {
		t.Error("admin role should reach the admin panel")
	}

	rec = f.do(t, http.MethodGet, "/panels/admin/access", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous panel check = %d, want 401", rec.Code)
	}
}

func TestRecentActivityEndpoint(t *testing.T) {
	f := newServerFixture(t)
	defer f.recorder.Close()

	f.do(t, http.MethodPost, "/users", `{"name":"alice","email":"alice@example.org"}`, nil)
	// The async writer needs the entries flushed before the read
	deadline := time.Now().Add(2 * time.Second)
	for f.sink.Len() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	rec := f.do(t, http.MethodGet, "/activity?channel=default", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Channel string `json:"channel"`
		Entries []struct {
			Name string `json:"event_name"`
		} `json:"entries"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Channel != "default" {
		t.Errorf("channel = %q", resp.Channel)
	}
	if len(resp.Entries) != 1 || resp.Entries[0].Name != "created" {
		t.Errorf("entries = %+v", resp.Entries)
	}
}

func TestRecentActivityBadLimit(t *testing.T) {
	f := newServerFixture(t)
	defer f.recorder.Close()

	rec := f.do(t, http.MethodGet, "/activity?limit=abc", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestRecentActivityWithoutHistory(t *testing.T) {
	f := newServerFixture(t)
	defer f.recorder.Close()

	handler := newRouter(f.recorder, observer.NewUserObserver(f.recorder), nil)
	req := httptest.NewRequest(http.MethodGet, "/activity", nil)
	req.Header.Set("User-Agent", "curl/8.4.0")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotImplemented {
		t.Errorf("status = %d, want 501", rec.Code)
	}
}

func TestActorAttachedToAccessEntries(t *testing.T) {
	f := newServerFixture(t)

	f.do(t, http.MethodGet, "/users/nonexistent", "", map[string]string{
		"X-Actor-ID":   "42",
		"X-Actor-Name": "alice",
	})
	f.recorder.Close()

	entries := f.sink.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 access entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Actor == nil || e.Actor.ID != "42" || e.Actor.Name != "alice" {
		t.Errorf("actor = %+v", e.Actor)
	}
	if v, _ := e.Properties.Get("visitor_type"); v != "authenticated_user" {
		t.Errorf("visitor_type = %v", v)
	}
}
