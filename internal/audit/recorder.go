// Package audit implements the append-only audit trail. Every component
// that mutates domain or security-relevant state reports through a Recorder;
// the database is the durable copy and the source of truth for queries.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"gorm.io/datatypes"

	"github.com/avetra/backoffice/pkg/db/models"
	"github.com/avetra/backoffice/pkg/db/store"
)

// ErrUnavailable is returned when the underlying log store rejects an
// append. Callers on non-critical paths may treat it as non-fatal; the
// Recorder itself never drops an event silently.
var ErrUnavailable = errors.New("audit log unavailable")

// Recognized severity levels. Anything else defaults to INFO.
const (
	LevelInfo    = "INFO"
	LevelWarning = "WARNING"
	LevelError   = "ERROR"
)

// Actor identifies who triggered an event. The zero value records a
// system event with no actor.
type Actor struct {
	Login string
	Role  string
}

// System is the actor recorded for events the service triggers itself,
// such as scheduled backups.
func System() Actor {
	return Actor{Login: "system", Role: "admin"}
}

var sensitiveKeys = map[string]bool{
	"password":      true,
	"password_hash": true,
	"pass":          true,
	"pwd":           true,
	"token":         true,
}

var omittedKeys = map[string]bool{
	"content_base64": true,
	"content_blob":   true,
	"bytes":          true,
}

// Recorder appends audit events to the store and optionally mirrors them as
// JSON lines to a writer. Safe for concurrent use: each append is a single
// independent insert, only the mirror writer is serialized.
type Recorder struct {
	store store.Store
	now   func() time.Time

	mu     sync.Mutex
	mirror io.Writer
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithMirror adds a best-effort JSONL copy of every event, typically backed
// by a rotating file. Mirror failures never fail Record.
func WithMirror(w io.Writer) Option {
	return func(r *Recorder) {
		r.mirror = w
	}
}

// WithClock replaces the event timestamp source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		r.now = now
	}
}

// NewRecorder creates a recorder on top of the given store.
func NewRecorder(st store.Store, opts ...Option) *Recorder {
	r := &Recorder{store: st, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record appends one event. A malformed details payload never aborts the
// triggering operation: whatever cannot be serialized is coerced to a string
// representation instead. Only a store failure is surfaced, as
// ErrUnavailable.
func (r *Recorder) Record(ctx context.Context, level string, actor Actor, action, tableName string, details any) error {
	if action == "" {
		return fmt.Errorf("audit action is required")
	}

	event := &models.AuditEvent{
		Level:     normalizeLevel(level),
		Action:    action,
		Details:   encodeDetails(details),
		CreatedAt: r.now().UTC(),
	}
	if actor.Login != "" {
		login := actor.Login
		event.UserLogin = &login
	}
	if actor.Role != "" {
		role := actor.Role
		event.UserRole = &role
	}
	if tableName != "" {
		name := tableName
		event.Table = &name
	}

	if err := r.store.AppendAuditEvent(ctx, event); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	r.writeMirror(event)
	return nil
}

// Query returns events in [from, to] matching the filter, ascending by
// timestamp with insertion order breaking ties. The result is materialized
// per call.
func (r *Recorder) Query(ctx context.Context, from, to time.Time, filter store.AuditFilter) ([]models.AuditEvent, error) {
	return r.store.QueryAuditEvents(ctx, from, to, filter)
}

func (r *Recorder) writeMirror(event *models.AuditEvent) {
	if r.mirror == nil {
		return
	}

	line := map[string]any{
		"ts":     event.CreatedAt.Format(time.RFC3339Nano),
		"level":  event.Level,
		"action": event.Action,
	}
	if event.UserLogin != nil {
		line["user_login"] = *event.UserLogin
	}
	if event.UserRole != nil {
		line["user_role"] = *event.UserRole
	}
	if event.Table != nil {
		line["table"] = *event.Table
	}
	if len(event.Details) > 0 {
		line["details"] = json.RawMessage(event.Details)
	}

	raw, err := json.Marshal(line)
	if err != nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.mirror, "%s\n", raw)
}

func normalizeLevel(level string) string {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case LevelWarning:
		return LevelWarning
	case LevelError:
		return LevelError
	default:
		return LevelInfo
	}
}

// encodeDetails serializes an arbitrary payload, redacting sensitive keys.
// Unserializable payloads are coerced to their string form rather than
// rejected.
func encodeDetails(details any) datatypes.JSON {
	if details == nil {
		return datatypes.JSON(`{}`)
	}

	raw, err := json.Marshal(details)
	if err != nil {
		coerced, _ := json.Marshal(map[string]string{"detail": fmt.Sprint(details)})
		return datatypes.JSON(coerced)
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return datatypes.JSON(raw)
	}
	clean, err := json.Marshal(redact(decoded))
	if err != nil {
		return datatypes.JSON(raw)
	}
	return datatypes.JSON(clean)
}

func redact(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, inner := range v {
			lower := strings.ToLower(key)
			switch {
			case sensitiveKeys[lower]:
				out[key] = "***"
			case omittedKeys[lower]:
				out[key] = "<omitted>"
			default:
				out[key] = redact(inner)
			}
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, inner := range v {
			out[i] = redact(inner)
		}
		return out
	default:
		return value
	}
}
