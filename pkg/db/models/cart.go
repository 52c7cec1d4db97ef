package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/framesmith/framesmith-backend/pkg/enums"
)

// Cart is a customer's in-progress selection. The partial unique index keeps
// at most one active cart per customer; converting a cart releases the slot.
type Cart struct {
	ID         uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	CustomerID uuid.UUID        `gorm:"column:customer_id;type:uuid;not null;index:uidx_carts_customer_active,unique,where:status = 'active'"`
	Status     enums.CartStatus `gorm:"column:status;type:text;not null;default:'active'"`
	Items      []CartItem       `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
