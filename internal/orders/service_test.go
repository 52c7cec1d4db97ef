package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/framesmith/framesmith-backend/pkg/config"
	"github.com/framesmith/framesmith-backend/pkg/db"
	"github.com/framesmith/framesmith-backend/pkg/db/models"
	"github.com/framesmith/framesmith-backend/pkg/enums"
	pkgerrors "github.com/framesmith/framesmith-backend/pkg/errors"
)

type fixture struct {
	conn *gorm.DB
	svc  Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
		&models.Prescription{},
		&models.PrescriptionDetail{},
		&models.Stock{},
		&models.OrderStatusHistory{},
		&models.ShipmentInfo{},
	))

	client := db.FromConn(conn, config.DBConfig{TxMaxRetries: 2, TxRetryBackoff: time.Millisecond}, nil)
	svc, err := NewService(
		NewRepository(conn),
		client,
		config.OrdersConfig{PrescriptionCancelWindow: 24 * time.Hour, DefaultCancelReason: "cancelled by customer"},
		nil,
	)
	require.NoError(t, err)
	return &fixture{conn: conn, svc: svc}
}

type seedOpts struct {
	status     enums.OrderStatus
	orderType  enums.OrderType
	customerID *uuid.UUID
	quantity   int
	onHand     int
	reserved   int
	deadline   *time.Time
}

func (f *fixture) seedOrder(t *testing.T, opts seedOpts) (orderID, variantID uuid.UUID) {
	t.Helper()
	if opts.orderType == "" {
		opts.orderType = enums.OrderTypeReadyStock
	}
	if opts.quantity == 0 {
		opts.quantity = 2
	}

	variantID = uuid.New()
	require.NoError(t, f.conn.Create(&models.Stock{
		VariantID:        variantID,
		QuantityOnHand:   opts.onHand,
		QuantityReserved: opts.reserved,
	}).Error)

	orderID, err := uuid.NewV7()
	require.NoError(t, err)
	order := models.Order{
		ID:                   orderID,
		CustomerID:           opts.customerID,
		Source:               enums.OrderSourceOnline,
		Type:                 opts.orderType,
		Status:               opts.status,
		Amount:               decimal.RequireFromString("100.00"),
		ShippingFee:          decimal.Zero,
		CancellationDeadline: opts.deadline,
		Items: []models.OrderItem{{
			ID:        uuid.New(),
			VariantID: variantID,
			Quantity:  opts.quantity,
			UnitPrice: decimal.RequireFromString("50.00"),
		}},
	}
	require.NoError(t, f.conn.Create(&order).Error)
	return orderID, variantID
}

func (f *fixture) stockRow(t *testing.T, variantID uuid.UUID) models.Stock {
	t.Helper()
	var row models.Stock
	require.NoError(t, f.conn.First(&row, "variant_id = ?", variantID).Error)
	return row
}

func (f *fixture) historyCount(t *testing.T, orderID uuid.UUID) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.conn.Model(&models.OrderStatusHistory{}).
		Where("order_id = ?", orderID).Count(&count).Error)
	return count
}

func TestUpdateStatusConfirmAppendsHistory(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	orderID, _ := f.seedOrder(t, seedOpts{status: enums.OrderStatusPending, onHand: 10, reserved: 2})

	dto, err := f.svc.UpdateStatus(context.Background(), UpdateStatusInput{
		OrderID:   orderID,
		ActorID:   uuid.New(),
		NewStatus: enums.OrderStatusConfirmed,
	})
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusConfirmed, dto.Status)
	require.Len(t, dto.StatusHistory, 1)
	require.NotNil(t, dto.StatusHistory[0].FromStatus)
	require.Equal(t, enums.OrderStatusPending, *dto.StatusHistory[0].FromStatus)
	require.Equal(t, enums.OrderStatusConfirmed, dto.StatusHistory[0].ToStatus)
}

func TestUpdateStatusRejectsIllegalTransition(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	orderID, _ := f.seedOrder(t, seedOpts{status: enums.OrderStatusPending, onHand: 10, reserved: 2})

	_, err := f.svc.UpdateStatus(context.Background(), UpdateStatusInput{
		OrderID:   orderID,
		ActorID:   uuid.New(),
		NewStatus: enums.OrderStatusShipped,
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeStateConflict, typed.Code())

	var order models.Order
	require.NoError(t, f.conn.First(&order, "id = ?", orderID).Error)
	require.Equal(t, enums.OrderStatusPending, order.Status)
	require.Zero(t, f.historyCount(t, orderID))
}

func TestUpdateStatusCancelledReleasesReservedStock(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	orderID, variantID := f.seedOrder(t, seedOpts{status: enums.OrderStatusConfirmed, quantity: 3, onHand: 10, reserved: 5})

	dto, err := f.svc.UpdateStatus(context.Background(), UpdateStatusInput{
		OrderID:   orderID,
		ActorID:   uuid.New(),
		NewStatus: enums.OrderStatusCancelled,
	})
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusCancelled, dto.Status)

	row := f.stockRow(t, variantID)
	require.Equal(t, 10, row.QuantityOnHand)
	require.Equal(t, 2, row.QuantityReserved)
}

func TestUpdateStatusCompletedConsumesReservedStock(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	orderID, variantID := f.seedOrder(t, seedOpts{status: enums.OrderStatusProcessing, quantity: 3, onHand: 10, reserved: 3})

	dto, err := f.svc.UpdateStatus(context.Background(), UpdateStatusInput{
		OrderID:   orderID,
		ActorID:   uuid.New(),
		NewStatus: enums.OrderStatusCompleted,
	})
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusCompleted, dto.Status)

	row := f.stockRow(t, variantID)
	require.Equal(t, 7, row.QuantityOnHand)
	require.Zero(t, row.QuantityReserved)
}

func TestUpdateStatusShippedCreatesShipment(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	orderID, _ := f.seedOrder(t, seedOpts{status: enums.OrderStatusProcessing, onHand: 10, reserved: 2})

	dto, err := f.svc.UpdateStatus(context.Background(), UpdateStatusInput{
		OrderID:   orderID,
		ActorID:   uuid.New(),
		NewStatus: enums.OrderStatusShipped,
		Shipment:  &ShipmentInput{Carrier: "dhl", TrackingCode: "DHL123456"},
	})
	require.NoError(t, err)
	require.NotNil(t, dto.Shipment)
	require.Equal(t, enums.CarrierDHL, dto.Shipment.Carrier)
	require.Equal(t, "DHL123456", dto.Shipment.TrackingCode)
}

func TestUpdateStatusShippedRejectsUnknownCarrier(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	orderID, _ := f.seedOrder(t, seedOpts{status: enums.OrderStatusProcessing, onHand: 10, reserved: 2})

	_, err := f.svc.UpdateStatus(context.Background(), UpdateStatusInput{
		OrderID:   orderID,
		ActorID:   uuid.New(),
		NewStatus: enums.OrderStatusShipped,
		Shipment:  &ShipmentInput{Carrier: "pigeon", TrackingCode: "X"},
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestUpdateStatusShippedRejectsSecondShipment(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	orderID, _ := f.seedOrder(t, seedOpts{status: enums.OrderStatusProcessing, onHand: 10, reserved: 2})
	require.NoError(t, f.conn.Create(&models.ShipmentInfo{
		ID:           uuid.New(),
		OrderID:      orderID,
		Carrier:      enums.CarrierUPS,
		TrackingCode: "UPS1",
		ShippedAt:    time.Now().UTC(),
	}).Error)

	_, err := f.svc.UpdateStatus(context.Background(), UpdateStatusInput{
		OrderID:   orderID,
		ActorID:   uuid.New(),
		NewStatus: enums.OrderStatusShipped,
		Shipment:  &ShipmentInput{Carrier: "ups", TrackingCode: "UPS2"},
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeConflict, typed.Code())
}

func TestFullLifecycleLeavesCompleteAuditTrail(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	orderID, variantID := f.seedOrder(t, seedOpts{status: enums.OrderStatusPending, quantity: 2, onHand: 10, reserved: 2})
	actor := uuid.New()

	for _, status := range []enums.OrderStatus{
		enums.OrderStatusConfirmed,
		enums.OrderStatusProcessing,
		enums.OrderStatusCompleted,
	} {
		_, err := f.svc.UpdateStatus(ctx, UpdateStatusInput{OrderID: orderID, ActorID: actor, NewStatus: status})
		require.NoError(t, err, "transition to %s", status)
	}

	require.EqualValues(t, 3, f.historyCount(t, orderID))
	row := f.stockRow(t, variantID)
	require.Equal(t, 8, row.QuantityOnHand)
	require.Zero(t, row.QuantityReserved)
}

func TestCancelMyOrderReleasesStockAndRecordsReason(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	customerID := uuid.New()
	orderID, variantID := f.seedOrder(t, seedOpts{
		status:     enums.OrderStatusPending,
		customerID: &customerID,
		quantity:   2,
		onHand:     10,
		reserved:   2,
	})

	dto, err := f.svc.CancelMyOrder(context.Background(), CancelInput{
		OrderID:    orderID,
		CustomerID: customerID,
	})
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusCancelled, dto.Status)
	require.Len(t, dto.StatusHistory, 1)
	require.NotNil(t, dto.StatusHistory[0].Note)
	require.Equal(t, "cancelled by customer", *dto.StatusHistory[0].Note)

	row := f.stockRow(t, variantID)
	require.Zero(t, row.QuantityReserved)
}

func TestCancelMyOrderHidesOtherCustomersOrders(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	owner := uuid.New()
	orderID, _ := f.seedOrder(t, seedOpts{status: enums.OrderStatusPending, customerID: &owner, onHand: 5, reserved: 2})

	_, err := f.svc.CancelMyOrder(context.Background(), CancelInput{
		OrderID:    orderID,
		CustomerID: uuid.New(),
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestCancelMyOrderAfterDeadlineRejected(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	customerID := uuid.New()
	passed := time.Now().UTC().Add(-time.Hour)
	orderID, _ := f.seedOrder(t, seedOpts{
		status:     enums.OrderStatusPending,
		orderType:  enums.OrderTypePrescription,
		customerID: &customerID,
		onHand:     5,
		reserved:   0,
		deadline:   &passed,
	})

	_, err := f.svc.CancelMyOrder(context.Background(), CancelInput{
		OrderID:    orderID,
		CustomerID: customerID,
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeStateConflict, typed.Code())

	var order models.Order
	require.NoError(t, f.conn.First(&order, "id = ?", orderID).Error)
	require.Equal(t, enums.OrderStatusPending, order.Status)
}

func TestCancelMyOrderTerminalStatusRejected(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	customerID := uuid.New()
	orderID, _ := f.seedOrder(t, seedOpts{status: enums.OrderStatusCompleted, customerID: &customerID, onHand: 5})

	_, err := f.svc.CancelMyOrder(context.Background(), CancelInput{
		OrderID:    orderID,
		CustomerID: customerID,
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestCanTransitionGraph(t *testing.T) {
	t.Parallel()

	require.True(t, CanTransition(enums.OrderStatusPending, enums.OrderStatusConfirmed))
	require.True(t, CanTransition(enums.OrderStatusShipped, enums.OrderStatusDelivered))
	require.True(t, CanTransition(enums.OrderStatusDelivered, enums.OrderStatusCompleted))
	require.False(t, CanTransition(enums.OrderStatusShipped, enums.OrderStatusCancelled))
	require.False(t, CanTransition(enums.OrderStatusDelivered, enums.OrderStatusProcessing))
	require.False(t, CanTransition(enums.OrderStatusCompleted, enums.OrderStatusPending))
	require.False(t, CanTransition(enums.OrderStatusCancelled, enums.OrderStatusConfirmed))
}
