package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PromoUsageLog records exactly one redemption per (order, promotion); the
// unique index rejects a second application even if business logic is bypassed.
// It doubles as the basis for usage-cap counting.
type PromoUsageLog struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID        uuid.UUID       `gorm:"column:order_id;type:uuid;not null;uniqueIndex:uidx_promo_usage_order_promo"`
	PromotionID    uuid.UUID       `gorm:"column:promotion_id;type:uuid;not null;uniqueIndex:uidx_promo_usage_order_promo"`
	DiscountAmount decimal.Decimal `gorm:"column:discount_amount;type:numeric(12,2);not null"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
}
