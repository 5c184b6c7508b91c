package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/avetra/backoffice/pkg/db/store"
)

func setupRecorder(t *testing.T, opts ...Option) (*Recorder, *store.SQLiteStore) {
	t.Helper()

	st, err := store.NewSQLiteStore(store.SQLiteConfig{
		Path: filepath.Join(t.TempDir(), "backoffice.db"),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})

	ctx := context.Background()
	if err := st.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := st.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewRecorder(st, opts...), st
}

func queryAll(t *testing.T, rec *Recorder, filter store.AuditFilter) []detailsOf {
	t.Helper()

	events, err := rec.Query(context.Background(), time.Time{}, time.Now().Add(time.Hour), filter)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}

	out := make([]detailsOf, 0, len(events))
	for _, event := range events {
		entry := detailsOf{Level: event.Level, Action: event.Action, Details: map[string]any{}}
		if event.UserLogin != nil {
			entry.UserLogin = *event.UserLogin
		}
		if len(event.Details) > 0 {
			if err := json.Unmarshal(event.Details, &entry.Details); err != nil {
				t.Fatalf("decode details: %v", err)
			}
		}
		out = append(out, entry)
	}
	return out
}

type detailsOf struct {
	Level     string
	Action    string
	UserLogin string
	Details   map[string]any
}

func TestRecordDefaultsLevelToInfo(t *testing.T) {
	rec, _ := setupRecorder(t)
	ctx := context.Background()

	for _, level := range []string{"", "notice", "info", "  warning  "} {
		if err := rec.Record(ctx, level, System(), "probe", "", nil); err != nil {
			t.Fatalf("Record(%q) error = %v", level, err)
		}
	}

	events := queryAll(t, rec, store.AuditFilter{Action: "probe"})
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}
	want := []string{LevelInfo, LevelInfo, LevelInfo, LevelWarning}
	for i, event := range events {
		if event.Level != want[i] {
			t.Fatalf("event %d level = %s, want %s", i, event.Level, want[i])
		}
	}
}

func TestRecordRequiresAction(t *testing.T) {
	rec, _ := setupRecorder(t)

	if err := rec.Record(context.Background(), LevelInfo, System(), "", "", nil); err == nil {
		t.Fatalf("expected empty action to be rejected")
	}
}

func TestRecordRedactsSensitiveDetails(t *testing.T) {
	rec, _ := setupRecorder(t)
	ctx := context.Background()

	err := rec.Record(ctx, LevelInfo, Actor{Login: "ops", Role: "admin"}, "user_updated", "users", map[string]any{
		"login":          "ops",
		"password":       "hunter2",
		"Token":          "secret-token",
		"content_base64": strings.Repeat("A", 512),
		"nested": map[string]any{
			"password_hash": "$2a$10$abc",
			"note":          "visible",
		},
	})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	events := queryAll(t, rec, store.AuditFilter{Action: "user_updated"})
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	details := events[0].Details
	if details["login"] != "ops" {
		t.Fatalf("plain field altered: %v", details["login"])
	}
	if details["password"] != "***" {
		t.Fatalf("password not redacted: %v", details["password"])
	}
	if details["Token"] != "***" {
		t.Fatalf("token not redacted case-insensitively: %v", details["Token"])
	}
	if details["content_base64"] != "<omitted>" {
		t.Fatalf("blob not omitted: %v", details["content_base64"])
	}
	nested, ok := details["nested"].(map[string]any)
	if !ok {
		t.Fatalf("nested details lost: %v", details["nested"])
	}
	if nested["password_hash"] != "***" || nested["note"] != "visible" {
		t.Fatalf("nested redaction wrong: %v", nested)
	}
}

func TestRecordCoercesUnserializableDetails(t *testing.T) {
	rec, _ := setupRecorder(t)

	if err := rec.Record(context.Background(), LevelInfo, System(), "weird_payload", "", make(chan int)); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	events := queryAll(t, rec, store.AuditFilter{Action: "weird_payload"})
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if _, ok := events[0].Details["detail"]; !ok {
		t.Fatalf("coerced payload missing: %v", events[0].Details)
	}
}

func TestRecordZeroActorLeavesColumnsNull(t *testing.T) {
	rec, st := setupRecorder(t)
	ctx := context.Background()

	if err := rec.Record(ctx, LevelInfo, Actor{}, "anonymous_event", "", nil); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	events, err := st.QueryAuditEvents(ctx, time.Time{}, time.Now().Add(time.Hour), store.AuditFilter{Action: "anonymous_event"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].UserLogin != nil || events[0].UserRole != nil {
		t.Fatalf("zero actor should leave user columns null: %+v", events[0])
	}
}

func TestMirrorReceivesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	rec, _ := setupRecorder(t, WithMirror(&buf))

	if err := rec.Record(context.Background(), LevelInfo, System(), "mirrored", "", map[string]any{"n": 1}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	line := strings.TrimSpace(buf.String())
	if line == "" {
		t.Fatalf("mirror received nothing")
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(line), &decoded); err != nil {
		t.Fatalf("mirror line is not JSON: %v", err)
	}
	if decoded["action"] != "mirrored" || decoded["user_login"] != "system" {
		t.Fatalf("unexpected mirror line: %s", line)
	}
}

func TestRecordSurfacesStoreFailure(t *testing.T) {
	rec, st := setupRecorder(t)

	if err := st.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	err := rec.Record(context.Background(), LevelInfo, System(), "after_close", "", nil)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
