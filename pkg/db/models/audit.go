package models

import (
	"time"

	"gorm.io/datatypes"
)

// AuditEvent is a single append-only entry in the audit trail. Rows are
// created exactly once and never updated or deleted by the application.
type AuditEvent struct {
	ID    uint64 `gorm:"primaryKey"`
	Level string `gorm:"type:text;not null;default:INFO"`

	// Nullable actor identity; system events carry neither.
	UserLogin *string `gorm:"type:text;index"`
	UserRole  *string `gorm:"type:text"`

	Action  string         `gorm:"type:text;not null;index"`
	Table   *string        `gorm:"column:table_name;type:text;index"`
	Details datatypes.JSON `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null;index"`
}

func (AuditEvent) TableName() string {
	return "audit_log"
}
