package models

import "time"

// Customer is the aggregate root of the order domain. Profile and orders
// share its lifetime: deleting a customer removes both.
type Customer struct {
	ID    uint   `gorm:"primaryKey"`
	Email string `gorm:"type:text;not null;uniqueIndex"`
	Name  string `gorm:"type:text;not null"`

	CreatedAt time.Time
	UpdatedAt time.Time

	// Relationships
	Profile *CustomerProfile `gorm:"foreignKey:CustomerID;constraint:OnDelete:CASCADE"`
	Orders  []Order          `gorm:"foreignKey:CustomerID;constraint:OnDelete:CASCADE"`
}

func (Customer) TableName() string {
	return "customers"
}

// CustomerProfile holds the optional 1-1 extension of a customer. The
// unique index on CustomerID enforces at most one profile per customer.
type CustomerProfile struct {
	ID         uint   `gorm:"primaryKey"`
	CustomerID uint   `gorm:"not null;uniqueIndex"`
	Phone      string `gorm:"type:text"`
	Address    string `gorm:"type:text"`
	Notes      string `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (CustomerProfile) TableName() string {
	return "customer_profiles"
}
