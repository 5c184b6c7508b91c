package models

import (
	"time"

	"gorm.io/datatypes"
)

// Setting is a single key-value application setting. Values are structured
// JSON; writes are plain upserts (last writer wins, no merge).
type Setting struct {
	Key   string         `gorm:"primaryKey;type:text"`
	Value datatypes.JSON `gorm:"type:text;not null"`

	UpdatedAt time.Time
}

func (Setting) TableName() string {
	return "app_settings"
}
