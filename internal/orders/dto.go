package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/framesmith/framesmith-backend/pkg/db/models"
	"github.com/framesmith/framesmith-backend/pkg/enums"
)

// OrderDTO is the projection returned to the request-handling layer.
type OrderDTO struct {
	ID                   uuid.UUID           `json:"id"`
	CustomerID           *uuid.UUID          `json:"customer_id,omitempty"`
	StaffID              *uuid.UUID          `json:"staff_id,omitempty"`
	Source               enums.OrderSource   `json:"source"`
	Type                 enums.OrderType     `json:"type"`
	Status               enums.OrderStatus   `json:"status"`
	Amount               decimal.Decimal     `json:"amount"`
	ShippingFee          decimal.Decimal     `json:"shipping_fee"`
	ShippingAddressID    *uuid.UUID          `json:"shipping_address_id,omitempty"`
	WalkInName           *string             `json:"walk_in_name,omitempty"`
	WalkInPhone          *string             `json:"walk_in_phone,omitempty"`
	PromoCode            *string             `json:"promo_code,omitempty"`
	CancellationDeadline *time.Time          `json:"cancellation_deadline,omitempty"`
	Items                []OrderItemDTO      `json:"items"`
	Payment              *PaymentDTO         `json:"payment,omitempty"`
	Shipment             *ShipmentDTO        `json:"shipment,omitempty"`
	StatusHistory        []StatusHistoryDTO  `json:"status_history"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
}

// OrderItemDTO is one merged order line.
type OrderItemDTO struct {
	VariantID uuid.UUID       `json:"variant_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// PaymentDTO reports the order's payment state.
type PaymentDTO struct {
	Method enums.PaymentMethod `json:"method"`
	Status enums.PaymentStatus `json:"status"`
	Amount decimal.Decimal     `json:"amount"`
}

// ShipmentDTO reports carrier and tracking details.
type ShipmentDTO struct {
	Carrier      enums.Carrier `json:"carrier"`
	TrackingCode string        `json:"tracking_code"`
	TrackingURL  *string       `json:"tracking_url,omitempty"`
	ShippedAt    time.Time     `json:"shipped_at"`
}

// StatusHistoryDTO is one audit-trail entry.
type StatusHistoryDTO struct {
	FromStatus *enums.OrderStatus `json:"from_status,omitempty"`
	ToStatus   enums.OrderStatus  `json:"to_status"`
	ActorID    *uuid.UUID         `json:"actor_id,omitempty"`
	Note       *string            `json:"note,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
}

// ProjectOrder maps a loaded order aggregate onto its DTO.
func ProjectOrder(order *models.Order) *OrderDTO {
	if order == nil {
		return nil
	}

	dto := &OrderDTO{
		ID:                   order.ID,
		CustomerID:           order.CustomerID,
		StaffID:              order.StaffID,
		Source:               order.Source,
		Type:                 order.Type,
		Status:               order.Status,
		Amount:               order.Amount,
		ShippingFee:          order.ShippingFee,
		ShippingAddressID:    order.ShippingAddressID,
		WalkInName:           order.WalkInName,
		WalkInPhone:          order.WalkInPhone,
		PromoCode:            order.PromoCode,
		CancellationDeadline: order.CancellationDeadline,
		Items:                make([]OrderItemDTO, 0, len(order.Items)),
		StatusHistory:        make([]StatusHistoryDTO, 0, len(order.StatusHistory)),
		CreatedAt:            order.CreatedAt,
		UpdatedAt:            order.UpdatedAt,
	}

	for _, item := range order.Items {
		dto.Items = append(dto.Items, OrderItemDTO{
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	if order.Payment != nil {
		dto.Payment = &PaymentDTO{
			Method: order.Payment.Method,
			Status: order.Payment.Status,
			Amount: order.Payment.Amount,
		}
	}
	if order.Shipment != nil {
		dto.Shipment = &ShipmentDTO{
			Carrier:      order.Shipment.Carrier,
			TrackingCode: order.Shipment.TrackingCode,
			TrackingURL:  order.Shipment.TrackingURL,
			ShippedAt:    order.Shipment.ShippedAt,
		}
	}
	for _, entry := range order.StatusHistory {
		dto.StatusHistory = append(dto.StatusHistory, StatusHistoryDTO{
			FromStatus: entry.FromStatus,
			ToStatus:   entry.ToStatus,
			ActorID:    entry.ActorID,
			Note:       entry.Note,
			CreatedAt:  entry.CreatedAt,
		})
	}
	return dto
}
