package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/framesmith/framesmith-backend/api/middleware"
	"github.com/framesmith/framesmith-backend/api/responses"
	"github.com/framesmith/framesmith-backend/api/validators"
	"github.com/framesmith/framesmith-backend/internal/orders"
	"github.com/framesmith/framesmith-backend/pkg/enums"
	pkgerrors "github.com/framesmith/framesmith-backend/pkg/errors"
	"github.com/framesmith/framesmith-backend/pkg/logger"
)

type updateStatusRequest struct {
	Status   string           `json:"status" validate:"required"`
	Note     *string          `json:"note"`
	Shipment *shipmentRequest `json:"shipment"`
}

type shipmentRequest struct {
	Carrier      string  `json:"carrier" validate:"required"`
	TrackingCode string  `json:"tracking_code" validate:"required"`
	TrackingURL  *string `json:"tracking_url"`
}

type cancelOrderRequest struct {
	Reason *string `json:"reason"`
}

func orderIDParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order id")
	}
	return id, nil
}

// UpdateOrderStatus applies one transition of the order status graph.
func UpdateOrderStatus(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		staffID := middleware.StaffIDFromContext(ctx)
		if staffID == uuid.Nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "staff identity missing"))
			return
		}

		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req updateStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		status, err := enums.ParseOrderStatus(req.Status)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, err.Error()))
			return
		}

		input := orders.UpdateStatusInput{
			OrderID:   orderID,
			ActorID:   staffID,
			NewStatus: status,
			Note:      req.Note,
		}
		if req.Shipment != nil {
			input.Shipment = &orders.ShipmentInput{
				Carrier:      req.Shipment.Carrier,
				TrackingCode: req.Shipment.TrackingCode,
				TrackingURL:  req.Shipment.TrackingURL,
			}
		}

		dto, err := svc.UpdateStatus(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// CancelOrder lets a customer cancel their own order.
func CancelOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		customerID := middleware.CustomerIDFromContext(ctx)
		if customerID == uuid.Nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing"))
			return
		}

		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req cancelOrderRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
		}

		dto, err := svc.CancelMyOrder(ctx, orders.CancelInput{
			OrderID:    orderID,
			CustomerID: customerID,
			Reason:     req.Reason,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// GetOrder returns the full order projection. Staff see any order; customers
// only their own.
func GetOrder(repo orders.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		staffID := middleware.StaffIDFromContext(ctx)
		customerID := middleware.CustomerIDFromContext(ctx)

		switch {
		case staffID != uuid.Nil:
			record, err := repo.FindByID(ctx, orderID)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			responses.WriteSuccess(w, orders.ProjectOrder(record))
		case customerID != uuid.Nil:
			record, err := repo.FindOwnedByCustomer(ctx, orderID, customerID)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			responses.WriteSuccess(w, orders.ProjectOrder(record))
		default:
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "caller identity missing"))
		}
	}
}
