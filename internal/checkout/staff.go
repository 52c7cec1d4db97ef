package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/framesmith/framesmith-backend/internal/orders"
	"github.com/framesmith/framesmith-backend/internal/promotions"
	"github.com/framesmith/framesmith-backend/internal/stock"
	"github.com/framesmith/framesmith-backend/pkg/db"
	"github.com/framesmith/framesmith-backend/pkg/db/models"
	"github.com/framesmith/framesmith-backend/pkg/enums"
	pkgerrors "github.com/framesmith/framesmith-backend/pkg/errors"
)

// StaffOrderInput captures an order keyed in by staff, either for a
// registered customer (online) or a walk-in (offline).
type StaffOrderInput struct {
	OrderID           uuid.UUID
	Source            enums.OrderSource
	CustomerID        *uuid.UUID
	WalkInName        *string
	WalkInPhone       *string
	Items             []StaffItemInput
	ShippingAddressID *uuid.UUID
	OrderType         enums.OrderType
	PaymentMethod     enums.PaymentMethod
	ShippingFee       decimal.Decimal
	PromoCode         *string
	Prescription      *PrescriptionInput
}

// StaffItemInput is one variant line of a staff order; prices are snapshotted
// from the catalog, never taken from the request.
type StaffItemInput struct {
	VariantID uuid.UUID
	Quantity  int
}

// CreateStaffOrder records an order on behalf of a customer or walk-in. It
// shares the serializable-with-retry shape of Checkout, including the
// precomputed order ID, but sources lines from the request instead of a cart.
func (s *service) CreateStaffOrder(ctx context.Context, staffID uuid.UUID, input StaffOrderInput) (*orders.OrderDTO, error) {
	if staffID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "staff identity missing")
	}
	if err := validateStaffInput(input); err != nil {
		return nil, err
	}

	orderID, err := ensureOrderID(input.OrderID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	err = s.tx.WithTxRetry(ctx, db.Serializable(), func(tx *gorm.DB) error {
		ordersRepo := s.orders.WithTx(tx)

		// Replays short-circuit only for the staff member who keyed the
		// original order in; anyone else sees a missing order.
		existing, err := findReplayedOrder(ctx, ordersRepo, orderID)
		if err != nil {
			return err
		}
		if existing != nil {
			if existing.StaffID == nil || *existing.StaffID != staffID {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return nil
		}

		if input.Source == enums.OrderSourceOnline {
			if _, err := s.addresses.WithTx(tx).FindByID(ctx, *input.ShippingAddressID); err != nil {
				return err
			}
		}

		lines, err := s.resolveStaffLines(ctx, tx, input.Items, input.OrderType)
		if err != nil {
			return err
		}

		locked, err := lockAndCheckStock(ctx, tx, lines, input.OrderType)
		if err != nil {
			return err
		}

		subtotal := sumLines(lines)
		discount := decimal.Zero
		if input.PromoCode != nil && *input.PromoCode != "" {
			applied, err := promotions.Apply(ctx, tx, *input.PromoCode, orderID, subtotal)
			if err != nil {
				return err
			}
			discount = applied.Discount
		}

		shippingFee := input.ShippingFee
		if input.Source == enums.OrderSourceOffline {
			// Walk-in sales are handed over the counter.
			shippingFee = decimal.Zero
		}

		order := &models.Order{
			ID:                orderID,
			CustomerID:        input.CustomerID,
			StaffID:           &staffID,
			Source:            input.Source,
			Type:              input.OrderType,
			Status:            enums.OrderStatusPending,
			Amount:            subtotal.Sub(discount).Add(shippingFee),
			ShippingFee:       shippingFee,
			ShippingAddressID: input.ShippingAddressID,
			WalkInName:        input.WalkInName,
			WalkInPhone:       input.WalkInPhone,
			PromoCode:         input.PromoCode,
		}
		s.applyCancellationDeadline(order)

		paymentStatus := enums.PaymentStatusPending
		if input.PaymentMethod == enums.PaymentMethodCash {
			paymentStatus = enums.PaymentStatusCompleted
		}

		if err := s.persistOrder(ctx, ordersRepo, order, lines, input.PaymentMethod, paymentStatus, input.Prescription, &staffID); err != nil {
			return err
		}

		if input.OrderType.ReservesStock() {
			for _, line := range lines {
				if err := stock.Reserve(ctx, tx, locked, line.VariantID, line.Quantity); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		s.noteFailure(ctx, err)
		return nil, err
	}

	s.metrics.ObserveCheckoutDuration(time.Since(start))
	s.metrics.IncCreated(input.Source.String(), input.OrderType.String())

	return s.projectOrder(ctx, orderID)
}

func validateStaffInput(input StaffOrderInput) error {
	if !input.Source.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown order source %q", input.Source))
	}
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}
	for _, item := range input.Items {
		if item.VariantID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "item variant id required")
		}
		if item.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive")
		}
	}

	switch input.Source {
	case enums.OrderSourceOnline:
		if input.CustomerID == nil || *input.CustomerID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "customer id required for online staff orders")
		}
		if input.ShippingAddressID == nil || *input.ShippingAddressID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "shipping address required for online staff orders")
		}
	case enums.OrderSourceOffline:
		if input.CustomerID != nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "offline orders are keyed to a walk-in, not a customer account")
		}
		if input.WalkInName == nil || strings.TrimSpace(*input.WalkInName) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "walk-in name required for offline orders")
		}
		if input.WalkInPhone == nil || strings.TrimSpace(*input.WalkInPhone) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "walk-in phone required for offline orders")
		}
		if input.ShippingAddressID != nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "offline orders do not ship")
		}
	}

	return validateCommonInput(input.OrderType, input.PaymentMethod, input.ShippingFee, input.Prescription)
}

// resolveStaffLines merges duplicate variant entries and snapshots unit
// prices from the catalog.
func (s *service) resolveStaffLines(ctx context.Context, tx *gorm.DB, items []StaffItemInput, orderType enums.OrderType) ([]orderLine, error) {
	merged := make(map[uuid.UUID]int, len(items))
	order := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		if _, ok := merged[item.VariantID]; !ok {
			order = append(order, item.VariantID)
		}
		merged[item.VariantID] += item.Quantity
	}

	variants, err := s.products.WithTx(tx).FindVariantsByIDs(ctx, order)
	if err != nil {
		return nil, err
	}

	lines := make([]orderLine, 0, len(order))
	for _, variantID := range order {
		variant, ok := variants[variantID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("variant %s not found", variantID))
		}
		if orderType.ReservesStock() && !variant.Active {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("variant %s is no longer available", variantID))
		}
		lines = append(lines, orderLine{
			VariantID: variantID,
			Quantity:  merged[variantID],
			UnitPrice: variant.Price,
		})
	}
	return lines, nil
}
