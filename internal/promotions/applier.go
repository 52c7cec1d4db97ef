package promotions

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/framesmith/framesmith-backend/pkg/db"
	"github.com/framesmith/framesmith-backend/pkg/db/models"
	"github.com/framesmith/framesmith-backend/pkg/enums"
	pkgerrors "github.com/framesmith/framesmith-backend/pkg/errors"
)

var hundred = decimal.NewFromInt(100)

// Applied reports the outcome of redeeming a promo code for one order.
type Applied struct {
	Promotion *models.Promotion
	Discount  decimal.Decimal
}

// Apply validates the code's activity window and usage cap, computes the
// bounded discount for the given subtotal, and records the usage exactly once
// for the order. The usage-count read happens under the caller's transaction;
// checkout runs serializable precisely so two concurrent redemptions of a
// capped code cannot both pass the count check.
func Apply(ctx context.Context, tx *gorm.DB, code string, orderID uuid.UUID, subtotal decimal.Decimal) (*Applied, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "promo code required")
	}
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	now := time.Now().UTC()
	var promo models.Promotion
	err := tx.WithContext(ctx).
		Where("code = ? AND active = ? AND starts_at <= ? AND ends_at >= ?", code, true, now, now).
		First(&promo).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid or expired promo code")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load promotion")
	}

	if promo.UsageLimit != nil {
		var used int64
		err := tx.WithContext(ctx).
			Model(&models.PromoUsageLog{}).
			Where("promotion_id = ?", promo.ID).
			Count(&used).Error
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count promo usage")
		}
		if used >= int64(*promo.UsageLimit) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "promo code usage limit reached")
		}
	}

	discount := computeDiscount(&promo, subtotal)

	usage := models.PromoUsageLog{
		ID:             uuid.New(),
		OrderID:        orderID,
		PromotionID:    promo.ID,
		DiscountAmount: discount,
	}
	if err := tx.WithContext(ctx).Create(&usage).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "promotion already applied to this order")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record promo usage")
	}

	return &Applied{Promotion: &promo, Discount: discount}, nil
}

func computeDiscount(promo *models.Promotion, subtotal decimal.Decimal) decimal.Decimal {
	var discount decimal.Decimal
	switch promo.DiscountType {
	case enums.DiscountTypePercentage:
		discount = subtotal.Mul(promo.Value).Div(hundred).Round(2)
	default:
		discount = promo.Value
	}

	if promo.MaxDiscount != nil && discount.GreaterThan(*promo.MaxDiscount) {
		discount = *promo.MaxDiscount
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	return discount
}
