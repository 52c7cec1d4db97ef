package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/framesmith/framesmith-backend/pkg/enums"
)

// Order is the purchase record. Its ID is a UUIDv7 assigned by the caller
// before the creating transaction opens, so a retried attempt can detect a
// prior commit by looking the ID up, and creation order is recoverable from
// the ID itself.
type Order struct {
	ID                   uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	CustomerID           *uuid.UUID           `gorm:"column:customer_id;type:uuid"`
	StaffID              *uuid.UUID           `gorm:"column:staff_id;type:uuid"`
	Source               enums.OrderSource    `gorm:"column:source;type:text;not null"`
	Type                 enums.OrderType      `gorm:"column:type;type:text;not null"`
	Status               enums.OrderStatus    `gorm:"column:status;type:text;not null;default:'pending'"`
	Amount               decimal.Decimal      `gorm:"column:amount;type:numeric(12,2);not null"`
	ShippingFee          decimal.Decimal      `gorm:"column:shipping_fee;type:numeric(12,2);not null"`
	ShippingAddressID    *uuid.UUID           `gorm:"column:shipping_address_id;type:uuid"`
	WalkInName           *string              `gorm:"column:walk_in_name"`
	WalkInPhone          *string              `gorm:"column:walk_in_phone"`
	PromoCode            *string              `gorm:"column:promo_code"`
	CancellationDeadline *time.Time           `gorm:"column:cancellation_deadline"`
	Items                []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Payment              *Payment             `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Prescription         *Prescription        `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Shipment             *ShipmentInfo        `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	StatusHistory        []OrderStatusHistory `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt            time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
