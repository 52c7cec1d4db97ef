package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/framesmith/framesmith-backend/pkg/enums"
)

// ShipmentInfo is created at most once per order, when it enters the shipped state.
type ShipmentInfo struct {
	ID           uuid.UUID     `gorm:"column:id;type:uuid;primaryKey"`
	OrderID      uuid.UUID     `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	Carrier      enums.Carrier `gorm:"column:carrier;type:text;not null"`
	TrackingCode string        `gorm:"column:tracking_code;not null"`
	TrackingURL  *string       `gorm:"column:tracking_url"`
	ShippedAt    time.Time     `gorm:"column:shipped_at;not null"`
	CreatedAt    time.Time     `gorm:"column:created_at;autoCreateTime"`
}
