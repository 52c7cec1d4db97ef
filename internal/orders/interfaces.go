package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/framesmith/framesmith-backend/pkg/db/models"
	"github.com/framesmith/framesmith-backend/pkg/enums"
)

// Repository persists orders and their satellite rows. All writes are
// expected to run inside a caller-owned transaction via WithTx.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, order *models.Order) error
	CreateItems(ctx context.Context, items []models.OrderItem) error
	CreatePayment(ctx context.Context, payment *models.Payment) error
	CreatePrescription(ctx context.Context, prescription *models.Prescription) error
	AppendHistory(ctx context.Context, entry *models.OrderStatusHistory) error
	CreateShipment(ctx context.Context, shipment *models.ShipmentInfo) error
	HasShipment(ctx context.Context, orderID uuid.UUID) (bool, error)

	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindOwnedByCustomer(ctx context.Context, id, customerID uuid.UUID) (*models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) error
}
