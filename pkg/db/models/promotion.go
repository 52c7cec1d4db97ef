package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/framesmith/framesmith-backend/pkg/enums"
)

// Promotion is a promo code with a validity window, usage cap, and discount rule.
type Promotion struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	Code         string             `gorm:"column:code;not null;uniqueIndex"`
	DiscountType enums.DiscountType `gorm:"column:discount_type;type:text;not null"`
	Value        decimal.Decimal    `gorm:"column:value;type:numeric(12,2);not null"`
	MaxDiscount  *decimal.Decimal   `gorm:"column:max_discount;type:numeric(12,2)"`
	UsageLimit   *int               `gorm:"column:usage_limit"`
	StartsAt     time.Time          `gorm:"column:starts_at;not null"`
	EndsAt       time.Time          `gorm:"column:ends_at;not null"`
	Active       bool               `gorm:"column:active;not null;default:true"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
