package checkout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/framesmith/framesmith-backend/internal/address"
	"github.com/framesmith/framesmith-backend/internal/cart"
	"github.com/framesmith/framesmith-backend/internal/orders"
	"github.com/framesmith/framesmith-backend/internal/products"
	"github.com/framesmith/framesmith-backend/internal/promotions"
	"github.com/framesmith/framesmith-backend/internal/stock"
	"github.com/framesmith/framesmith-backend/pkg/config"
	"github.com/framesmith/framesmith-backend/pkg/db"
	"github.com/framesmith/framesmith-backend/pkg/db/models"
	"github.com/framesmith/framesmith-backend/pkg/enums"
	pkgerrors "github.com/framesmith/framesmith-backend/pkg/errors"
	"github.com/framesmith/framesmith-backend/pkg/logger"
	"github.com/framesmith/framesmith-backend/pkg/metrics"
)

type txRunner interface {
	WithTxRetry(ctx context.Context, opts *sql.TxOptions, fn func(tx *gorm.DB) error) error
}

// Service converts carts and staff-entered item lists into orders.
type Service interface {
	Checkout(ctx context.Context, customerID uuid.UUID, input CheckoutInput) (*orders.OrderDTO, error)
	CreateStaffOrder(ctx context.Context, staffID uuid.UUID, input StaffOrderInput) (*orders.OrderDTO, error)
}

// CheckoutInput captures a customer's checkout request.
type CheckoutInput struct {
	// OrderID may be supplied by callers replaying a request; when nil a
	// fresh time-ordered ID is generated before the transaction opens.
	OrderID           uuid.UUID
	CartItemIDs       []uuid.UUID
	ShippingAddressID uuid.UUID
	OrderType         enums.OrderType
	PaymentMethod     enums.PaymentMethod
	ShippingFee       decimal.Decimal
	PromoCode         *string
	Prescription      *PrescriptionInput
}

// PrescriptionInput is the optometric payload attached at order time.
type PrescriptionInput struct {
	PD    decimal.Decimal
	Notes *string
	Eyes  []EyeInput
}

// EyeInput holds the per-eye lens parameters.
type EyeInput struct {
	Eye      string
	Sphere   decimal.Decimal
	Cylinder decimal.Decimal
	Axis     int
}

type service struct {
	tx        txRunner
	cartRepo  cart.Repository
	orders    orders.Repository
	products  products.Repository
	addresses address.Repository
	cfg       config.OrdersConfig
	metrics   *metrics.OrderMetrics
	log       *logger.Logger
}

// NewService builds the order creation service.
func NewService(
	tx txRunner,
	cartRepo cart.Repository,
	ordersRepo orders.Repository,
	productsRepo products.Repository,
	addressRepo address.Repository,
	cfg config.OrdersConfig,
	m *metrics.OrderMetrics,
	log *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if productsRepo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if addressRepo == nil {
		return nil, fmt.Errorf("address repository required")
	}
	return &service{
		tx:        tx,
		cartRepo:  cartRepo,
		orders:    ordersRepo,
		products:  productsRepo,
		addresses: addressRepo,
		cfg:       cfg,
		metrics:   m,
		log:       log,
	}, nil
}

// Checkout converts the selected items of the customer's active cart into a
// new order. The whole conversion runs in one serializable transaction that
// is retried on transient failures; the precomputed order ID makes a retry
// that follows a successful commit a no-op instead of a duplicate order.
func (s *service) Checkout(ctx context.Context, customerID uuid.UUID, input CheckoutInput) (*orders.OrderDTO, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	if len(input.CartItemIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no cart items selected")
	}
	if input.ShippingAddressID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address required")
	}
	if err := validateCommonInput(input.OrderType, input.PaymentMethod, input.ShippingFee, input.Prescription); err != nil {
		return nil, err
	}

	orderID, err := ensureOrderID(input.OrderID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	err = s.tx.WithTxRetry(ctx, db.Serializable(), func(tx *gorm.DB) error {
		ordersRepo := s.orders.WithTx(tx)

		// A prior attempt may already have committed; treat that as success,
		// but only for the caller's own order. Order IDs arrive in request
		// bodies, so a foreign ID must look like no order at all.
		existing, err := findReplayedOrder(ctx, ordersRepo, orderID)
		if err != nil {
			return err
		}
		if existing != nil {
			if existing.CustomerID == nil || *existing.CustomerID != customerID {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return nil
		}

		cartRepo := s.cartRepo.WithTx(tx)
		record, err := cartRepo.FindActiveByCustomer(ctx, customerID)
		if err != nil {
			return err
		}
		if record == nil || len(record.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}

		selected, leftover, err := partitionCartItems(record.Items, input.CartItemIDs)
		if err != nil {
			return err
		}

		if _, err := s.addresses.WithTx(tx).FindOwnedByCustomer(ctx, input.ShippingAddressID, customerID); err != nil {
			return err
		}

		// A cart may hold duplicate rows for the same variant; per-row
		// stock checks could pass while the aggregate oversells.
		lines := mergeCartItems(selected)

		if err := s.validateCartVariants(ctx, tx, lines, input.OrderType); err != nil {
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

		shippingAddressID := input.ShippingAddressID
		order := &models.Order{
			ID:                orderID,
			CustomerID:        &customerID,
			Source:            enums.OrderSourceOnline,
			Type:              input.OrderType,
			Status:            enums.OrderStatusPending,
			Amount:            subtotal.Sub(discount).Add(input.ShippingFee),
			ShippingFee:       input.ShippingFee,
			ShippingAddressID: &shippingAddressID,
			PromoCode:         input.PromoCode,
		}
		s.applyCancellationDeadline(order)

		if err := s.persistOrder(ctx, ordersRepo, order, lines, input.PaymentMethod, enums.PaymentStatusPending, input.Prescription, &customerID); err != nil {
			return err
		}

		if input.OrderType.ReservesStock() {
			for _, line := range lines {
				if err := stock.Reserve(ctx, tx, locked, line.VariantID, line.Quantity); err != nil {
					return err
				}
			}
		}

		// Converting the original cart releases the one-active-cart slot
		// before any successor cart is created.
		if err := cartRepo.MarkConverted(ctx, record.ID); err != nil {
			return err
		}
		if len(leftover) > 0 {
			if err := s.splitLeftoverItems(ctx, cartRepo, record, leftover); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.noteFailure(ctx, err)
		return nil, err
	}

	s.metrics.ObserveCheckoutDuration(time.Since(start))
	s.metrics.IncCreated(enums.OrderSourceOnline.String(), input.OrderType.String())

	// The response read runs outside the retry boundary: re-running the
	// transaction body because a projection read failed would violate the
	// at-most-one-order guarantee.
	return s.projectOrder(ctx, orderID)
}

// findReplayedOrder loads the order a resubmitted creation request points at.
// A missing row is not an error here; it means this is the first attempt.
func findReplayedOrder(ctx context.Context, repo orders.Repository, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.FindByID(ctx, orderID)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
			return nil, nil
		}
		return nil, err
	}
	return order, nil
}

func (s *service) projectOrder(ctx context.Context, orderID uuid.UUID) (*orders.OrderDTO, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return orders.ProjectOrder(order), nil
}

func (s *service) applyCancellationDeadline(order *models.Order) {
	if order.Type != enums.OrderTypePrescription {
		return
	}
	deadline := time.Now().UTC().Add(s.cfg.PrescriptionCancelWindow)
	order.CancellationDeadline = &deadline
}

// persistOrder inserts the order with its items, payment, optional
// prescription, and the initial history row, all on the caller's transaction.
func (s *service) persistOrder(
	ctx context.Context,
	repo orders.Repository,
	order *models.Order,
	lines []orderLine,
	method enums.PaymentMethod,
	paymentStatus enums.PaymentStatus,
	prescription *PrescriptionInput,
	actorID *uuid.UUID,
) error {
	if err := repo.Create(ctx, order); err != nil {
		return err
	}

	items := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, models.OrderItem{
			ID:        uuid.New(),
			OrderID:   order.ID,
			VariantID: line.VariantID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}
	if err := repo.CreateItems(ctx, items); err != nil {
		return err
	}

	if err := repo.CreatePayment(ctx, &models.Payment{
		ID:      uuid.New(),
		OrderID: order.ID,
		Method:  method,
		Status:  paymentStatus,
		Amount:  order.Amount,
	}); err != nil {
		return err
	}

	if prescription != nil {
		if err := repo.CreatePrescription(ctx, buildPrescription(order.ID, prescription)); err != nil {
			return err
		}
	}

	return repo.AppendHistory(ctx, &models.OrderStatusHistory{
		ID:       uuid.New(),
		OrderID:  order.ID,
		ToStatus: enums.OrderStatusPending,
		ActorID:  actorID,
	})
}

// validateCartVariants verifies cart-sourced lines still point at known
// variants and, for immediate-fulfillment order types, that the variants are
// still active.
func (s *service) validateCartVariants(ctx context.Context, tx *gorm.DB, lines []orderLine, orderType enums.OrderType) error {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.VariantID)
	}

	variants, err := s.products.WithTx(tx).FindVariantsByIDs(ctx, ids)
	if err != nil {
		return err
	}
	for _, line := range lines {
		variant, ok := variants[line.VariantID]
		if !ok {
			return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("variant %s not found", line.VariantID))
		}
		if orderType.ReservesStock() && !variant.Active {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("variant %s is no longer available", line.VariantID))
		}
	}
	return nil
}

// lockAndCheckStock locks the lines' stock rows in one query and checks
// availability. Made-to-order types skip the stock rows entirely: they never
// reserve, and their variants may have no stock row at all.
func lockAndCheckStock(ctx context.Context, tx *gorm.DB, lines []orderLine, orderType enums.OrderType) (stock.Locked, error) {
	if !orderType.ReservesStock() {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.VariantID)
	}
	locked, err := stock.LockForUpdate(ctx, tx, ids)
	if err != nil {
		return nil, err
	}
	for _, line := range lines {
		row := locked[line.VariantID]
		if row.QuantityAvailable() < line.Quantity {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, stock.ErrInsufficient, fmt.Sprintf(
				"insufficient stock for variant %s: requested %d, available %d",
				line.VariantID, line.Quantity, row.QuantityAvailable()))
		}
	}
	return locked, nil
}

// splitLeftoverItems moves unselected items of a converted cart into a fresh
// active cart so the customer does not lose them.
func (s *service) splitLeftoverItems(ctx context.Context, repo cart.Repository, converted *models.Cart, leftover []models.CartItem) error {
	leftoverIDs := make([]uuid.UUID, 0, len(leftover))
	successorItems := make([]models.CartItem, 0, len(leftover))
	for _, item := range leftover {
		leftoverIDs = append(leftoverIDs, item.ID)
		successorItems = append(successorItems, models.CartItem{
			ID:        uuid.New(),
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	if err := repo.RemoveItems(ctx, converted.ID, leftoverIDs); err != nil {
		return err
	}
	return repo.Create(ctx, &models.Cart{
		ID:         uuid.New(),
		CustomerID: converted.CustomerID,
		Status:     enums.CartStatusActive,
		Items:      successorItems,
	})
}

func (s *service) noteFailure(ctx context.Context, err error) {
	typed := pkgerrors.As(err)
	if typed == nil {
		return
	}
	if errors.Is(err, stock.ErrInsufficient) {
		s.metrics.IncStockConflict()
	}
	if s.log != nil {
		s.log.Warn(ctx, "order creation rejected: "+typed.Error())
	}
}

type orderLine struct {
	VariantID uuid.UUID
	Quantity  int
	UnitPrice decimal.Decimal
}

func ensureOrderID(id uuid.UUID) (uuid.UUID, error) {
	if id != uuid.Nil {
		return id, nil
	}
	generated, err := uuid.NewV7()
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate order id")
	}
	return generated, nil
}

func validateCommonInput(orderType enums.OrderType, method enums.PaymentMethod, shippingFee decimal.Decimal, prescription *PrescriptionInput) error {
	if !orderType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown order type %q", orderType))
	}
	if !method.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown payment method %q", method))
	}
	if shippingFee.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipping fee cannot be negative")
	}
	if orderType == enums.OrderTypePrescription && prescription == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "prescription payload required for prescription orders")
	}
	if prescription != nil {
		if len(prescription.Eyes) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "prescription must include at least one eye")
		}
		for _, eye := range prescription.Eyes {
			if eye.Eye != "left" && eye.Eye != "right" {
				return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid eye %q", eye.Eye))
			}
			if eye.Axis < 0 || eye.Axis > 180 {
				return pkgerrors.New(pkgerrors.CodeValidation, "prescription axis must be between 0 and 180")
			}
		}
	}
	return nil
}

// partitionCartItems splits the cart's rows into the requested set and the
// remainder, rejecting requests referencing rows not in the cart.
func partitionCartItems(items []models.CartItem, requestedIDs []uuid.UUID) (selected, leftover []models.CartItem, err error) {
	byID := make(map[uuid.UUID]models.CartItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	requested := make(map[uuid.UUID]struct{}, len(requestedIDs))
	for _, id := range requestedIDs {
		if _, ok := byID[id]; !ok {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "selected items are not in the cart")
		}
		requested[id] = struct{}{}
	}
	if len(requested) == 0 {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "no valid items selected")
	}

	for _, item := range items {
		if _, ok := requested[item.ID]; ok {
			selected = append(selected, item)
		} else {
			leftover = append(leftover, item)
		}
	}
	return selected, leftover, nil
}

// mergeCartItems collapses duplicate variant rows into one line per variant,
// summing quantities. The first row's snapshotted price wins.
func mergeCartItems(items []models.CartItem) []orderLine {
	index := make(map[uuid.UUID]int, len(items))
	lines := make([]orderLine, 0, len(items))
	for _, item := range items {
		if i, ok := index[item.VariantID]; ok {
			lines[i].Quantity += item.Quantity
			continue
		}
		index[item.VariantID] = len(lines)
		lines = append(lines, orderLine{
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return lines
}

func sumLines(lines []orderLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total
}

func buildPrescription(orderID uuid.UUID, input *PrescriptionInput) *models.Prescription {
	prescription := &models.Prescription{
		ID:      uuid.New(),
		OrderID: orderID,
		PD:      input.PD,
		Notes:   input.Notes,
	}
	for _, eye := range input.Eyes {
		prescription.Details = append(prescription.Details, models.PrescriptionDetail{
			ID:       uuid.New(),
			Eye:      eye.Eye,
			Sphere:   eye.Sphere,
			Cylinder: eye.Cylinder,
			Axis:     eye.Axis,
		})
	}
	return prescription
}
