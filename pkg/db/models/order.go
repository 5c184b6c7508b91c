package models

import "time"

// Order belongs to exactly one customer and always carries its document:
// DocumentName and DocumentData form the attachment column pair described
// by the static spec registered for orders.document_data. Depending on the
// registered storage mode, DocumentData holds either the base64 payload or
// a path relative to the attachment root.
type Order struct {
	ID         uint   `gorm:"primaryKey"`
	CustomerID uint   `gorm:"not null;index"`
	Status     string `gorm:"type:text;not null;default:new"`

	DocumentName string `gorm:"type:text;not null"`
	DocumentData string `gorm:"type:text;not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Order) TableName() string {
	return "orders"
}
