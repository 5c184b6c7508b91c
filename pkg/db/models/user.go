package models

import "time"

// User represents an operator account. Accounts are never hard-deleted;
// access is revoked by changing the role instead.
type User struct {
	ID           uint   `gorm:"primaryKey"`
	Login        string `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash string `gorm:"type:text;not null"`
	FullName     string `gorm:"type:text;not null"`
	Role         string `gorm:"type:text;not null;default:user"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (User) TableName() string {
	return "users"
}
