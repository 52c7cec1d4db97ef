package orders

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/framesmith/framesmith-backend/internal/stock"
	"github.com/framesmith/framesmith-backend/pkg/config"
	"github.com/framesmith/framesmith-backend/pkg/db"
	"github.com/framesmith/framesmith-backend/pkg/db/models"
	"github.com/framesmith/framesmith-backend/pkg/enums"
	pkgerrors "github.com/framesmith/framesmith-backend/pkg/errors"
	"github.com/framesmith/framesmith-backend/pkg/metrics"
)

type txRunner interface {
	WithTxOptions(ctx context.Context, opts *sql.TxOptions, fn func(tx *gorm.DB) error) error
}

// allowedTransitions is the canonical order status graph. Anything absent
// here is rejected.
var allowedTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:    {enums.OrderStatusConfirmed, enums.OrderStatusCancelled},
	enums.OrderStatusConfirmed:  {enums.OrderStatusProcessing, enums.OrderStatusCancelled},
	enums.OrderStatusProcessing: {enums.OrderStatusShipped, enums.OrderStatusCompleted, enums.OrderStatusCancelled},
	enums.OrderStatusShipped:    {enums.OrderStatusDelivered},
	enums.OrderStatusDelivered:  {enums.OrderStatusCompleted},
}

// CanTransition reports whether the status graph allows from -> to.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// Service drives order status transitions and customer cancellation.
type Service interface {
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*OrderDTO, error)
	CancelMyOrder(ctx context.Context, input CancelInput) (*OrderDTO, error)
}

// UpdateStatusInput carries a staff-driven transition request.
type UpdateStatusInput struct {
	OrderID   uuid.UUID
	ActorID   uuid.UUID
	NewStatus enums.OrderStatus
	Note      *string
	Shipment  *ShipmentInput
}

// ShipmentInput is the payload required when transitioning to shipped.
type ShipmentInput struct {
	Carrier      string
	TrackingCode string
	TrackingURL  *string
}

// CancelInput carries a customer self-service cancellation request.
type CancelInput struct {
	OrderID    uuid.UUID
	CustomerID uuid.UUID
	Reason     *string
}

type service struct {
	repo    Repository
	tx      txRunner
	cfg     config.OrdersConfig
	metrics *metrics.OrderMetrics
}

// NewService builds the order lifecycle service.
func NewService(repo Repository, tx txRunner, cfg config.OrdersConfig, m *metrics.OrderMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx, cfg: cfg, metrics: m}, nil
}

// UpdateStatus applies one transition of the status graph together with its
// stock and shipment side effects, all inside a repeatable-read transaction
// holding row locks on the order's stock rows. Transitions are not retried:
// a resubmitted request that lost its connection after commit would observe
// the already-updated status and fail the graph check instead of repeating
// side effects.
func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*OrderDTO, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}
	if !input.NewStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown order status %q", input.NewStatus))
	}

	err := s.tx.WithTxOptions(ctx, db.RepeatableRead(), func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			return err
		}
		if !CanTransition(order.Status, input.NewStatus) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf(
				"cannot transition order from %s to %s", order.Status, input.NewStatus))
		}

		switch input.NewStatus {
		case enums.OrderStatusCancelled:
			if err := releaseReservedStock(ctx, tx, order); err != nil {
				return err
			}
		case enums.OrderStatusCompleted:
			if err := consumeReservedStock(ctx, tx, order); err != nil {
				return err
			}
		case enums.OrderStatusShipped:
			if err := s.createShipment(ctx, repo, order, input.Shipment); err != nil {
				return err
			}
		}

		return s.commitTransition(ctx, repo, order, input.NewStatus, &input.ActorID, input.Note)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncTransition(input.NewStatus.String())

	// Response projection runs outside the transaction; a failure here must
	// not re-run the transition.
	order, err := s.repo.FindByID(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	return ProjectOrder(order), nil
}

// CancelMyOrder cancels a customer-owned order, subject to the deadline
// policy and the same status guard and stock release as a staff transition
// to cancelled.
func (s *service) CancelMyOrder(ctx context.Context, input CancelInput) (*OrderDTO, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}

	err := s.tx.WithTxOptions(ctx, db.RepeatableRead(), func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindOwnedByCustomer(ctx, input.OrderID, input.CustomerID)
		if err != nil {
			return err
		}
		if order.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order already %s", order.Status))
		}
		if !CanTransition(order.Status, enums.OrderStatusCancelled) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf(
				"cannot cancel an order in status %s", order.Status))
		}
		if order.CancellationDeadline != nil && time.Now().UTC().After(*order.CancellationDeadline) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cancellation window has passed")
		}

		if err := releaseReservedStock(ctx, tx, order); err != nil {
			return err
		}

		reason := s.cfg.DefaultCancelReason
		if input.Reason != nil && *input.Reason != "" {
			reason = *input.Reason
		}
		return s.commitTransition(ctx, repo, order, enums.OrderStatusCancelled, &input.CustomerID, &reason)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncCancellation()

	order, err := s.repo.FindByID(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	return ProjectOrder(order), nil
}

// commitTransition performs the status write plus its history append. Callers
// run it inside the same transaction as the side effect for the target state.
func (s *service) commitTransition(ctx context.Context, repo Repository, order *models.Order, to enums.OrderStatus, actorID *uuid.UUID, note *string) error {
	if err := repo.UpdateStatus(ctx, order.ID, to); err != nil {
		return err
	}
	from := order.Status
	return repo.AppendHistory(ctx, &models.OrderStatusHistory{
		ID:         uuid.New(),
		OrderID:    order.ID,
		FromStatus: &from,
		ToStatus:   to,
		ActorID:    actorID,
		Note:       note,
	})
}

func (s *service) createShipment(ctx context.Context, repo Repository, order *models.Order, input *ShipmentInput) error {
	if input == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipment info required to mark order shipped")
	}
	carrier, err := enums.ParseCarrier(input.Carrier)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}
	if input.TrackingCode == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "tracking code required")
	}

	exists, err := repo.HasShipment(ctx, order.ID)
	if err != nil {
		return err
	}
	if exists {
		return pkgerrors.New(pkgerrors.CodeConflict, "shipment already exists for order")
	}

	return repo.CreateShipment(ctx, &models.ShipmentInfo{
		ID:           uuid.New(),
		OrderID:      order.ID,
		Carrier:      carrier,
		TrackingCode: input.TrackingCode,
		TrackingURL:  input.TrackingURL,
		ShippedAt:    time.Now().UTC(),
	})
}

// releaseReservedStock returns the order's reserved units to the sellable
// pool. Only immediate-fulfillment order types hold reservations.
func releaseReservedStock(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	if !order.Type.ReservesStock() || len(order.Items) == 0 {
		return nil
	}
	locked, err := stock.LockForUpdate(ctx, tx, variantIDs(order.Items))
	if err != nil {
		return err
	}
	for _, item := range order.Items {
		if err := stock.Release(ctx, tx, locked, item.VariantID, item.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// consumeReservedStock turns the order's reservation into a permanent
// on-hand decrement when the order completes.
func consumeReservedStock(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	if !order.Type.ReservesStock() || len(order.Items) == 0 {
		return nil
	}
	locked, err := stock.LockForUpdate(ctx, tx, variantIDs(order.Items))
	if err != nil {
		return err
	}
	for _, item := range order.Items {
		if err := stock.Consume(ctx, tx, locked, item.VariantID, item.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func variantIDs(items []models.OrderItem) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.VariantID)
	}
	return ids
}
