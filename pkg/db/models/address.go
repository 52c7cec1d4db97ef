package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Address is a customer shipping address. Soft-deleted rows stay for order
// history but are rejected at checkout.
type Address struct {
	ID         uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	CustomerID uuid.UUID      `gorm:"column:customer_id;type:uuid;not null;index"`
	Line1      string         `gorm:"column:line1;not null"`
	Line2      *string        `gorm:"column:line2"`
	City       string         `gorm:"column:city;not null"`
	State      string         `gorm:"column:state"`
	PostalCode string         `gorm:"column:postal_code"`
	Country    string         `gorm:"column:country;not null"`
	Phone      *string        `gorm:"column:phone"`
	DeletedAt  gorm.DeletedAt `gorm:"column:deleted_at;index"`
	CreatedAt  time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
