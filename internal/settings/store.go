// Package settings is the typed accessor over the app_settings key-value
// table. Values are structured JSON documents; writes are upserts with
// last-writer-wins semantics.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/avetra/backoffice/internal/audit"
	"github.com/avetra/backoffice/pkg/db/models"
	"github.com/avetra/backoffice/pkg/db/store"
	"github.com/avetra/backoffice/pkg/log"
)

// ErrNotFound is returned when the requested key has no entry.
var ErrNotFound = errors.New("setting not found")

// KeyBackupSchedule is the settings key read by the backup scheduler.
const KeyBackupSchedule = "backup_schedule"

// Store provides typed access to application settings.
type Store struct {
	db  store.Store
	rec *audit.Recorder
	log log.LoggerService
}

// NewStore creates a settings store. The recorder receives a
// "setting_changed" event for every write; settings changes are
// security-relevant.
func NewStore(db store.Store, rec *audit.Recorder, logger log.LoggerService) *Store {
	return &Store{
		db:  db,
		rec: rec,
		log: logger,
	}
}

// Get unmarshals the value stored under key into out.
func (s *Store) Get(ctx context.Context, key string, out any) error {
	setting, err := s.db.GetSetting(ctx, key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return fmt.Errorf("failed to load setting %s: %w", key, err)
	}

	if err := json.Unmarshal(setting.Value, out); err != nil {
		return fmt.Errorf("failed to decode setting %s: %w", key, err)
	}
	return nil
}

// Set upserts the value stored under key. The previous and new values are
// reported to the audit trail; a failing audit append is logged but does not
// undo or fail the settings write.
func (s *Store) Set(ctx context.Context, key string, value any, actor audit.Actor) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode setting %s: %w", key, err)
	}

	var oldValue json.RawMessage
	if existing, err := s.db.GetSetting(ctx, key); err == nil {
		oldValue = json.RawMessage(existing.Value)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to load setting %s: %w", key, err)
	}

	if err := s.db.UpsertSetting(ctx, &models.Setting{
		Key:   key,
		Value: datatypes.JSON(raw),
	}); err != nil {
		return fmt.Errorf("failed to store setting %s: %w", key, err)
	}

	details := map[string]any{
		"key": key,
		"new": json.RawMessage(raw),
	}
	if oldValue != nil {
		details["old"] = oldValue
	}
	if err := s.rec.Record(ctx, audit.LevelInfo, actor, "setting_changed", "app_settings", details); err != nil {
		s.log.Warn("Audit append for setting %s failed: %v", key, err)
	}

	return nil
}

// BackupSchedule holds the recurring backup configuration. The zero value
// means backups are disabled.
type BackupSchedule struct {
	Enabled  bool   `json:"enabled"`
	Hour     int    `json:"hour"`
	Minute   int    `json:"minute"`
	Timezone string `json:"timezone"`
}

// Normalize clamps the schedule into valid ranges and defaults the
// timezone to UTC.
func (b *BackupSchedule) Normalize() {
	if b.Hour < 0 {
		b.Hour = 0
	}
	if b.Hour > 23 {
		b.Hour = 23
	}
	if b.Minute < 0 {
		b.Minute = 0
	}
	if b.Minute > 59 {
		b.Minute = 59
	}
	if b.Timezone == "" {
		b.Timezone = "UTC"
	}
}

// BackupSchedule returns the current backup schedule. An absent key means
// backups are disabled, not an error.
func (s *Store) BackupSchedule(ctx context.Context) (BackupSchedule, error) {
	var schedule BackupSchedule
	if err := s.Get(ctx, KeyBackupSchedule, &schedule); err != nil {
		if errors.Is(err, ErrNotFound) {
			return BackupSchedule{Timezone: "UTC"}, nil
		}
		return BackupSchedule{}, err
	}

	schedule.Normalize()
	return schedule, nil
}

// SetBackupSchedule validates and stores the backup schedule.
func (s *Store) SetBackupSchedule(ctx context.Context, schedule BackupSchedule, actor audit.Actor) error {
	if schedule.Hour < 0 || schedule.Hour > 23 || schedule.Minute < 0 || schedule.Minute > 59 {
		return fmt.Errorf("invalid schedule time %02d:%02d", schedule.Hour, schedule.Minute)
	}
	if schedule.Timezone == "" {
		schedule.Timezone = "UTC"
	}
	return s.Set(ctx, KeyBackupSchedule, schedule, actor)
}
