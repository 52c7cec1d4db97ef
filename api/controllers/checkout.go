package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/framesmith/framesmith-backend/api/middleware"
	"github.com/framesmith/framesmith-backend/api/responses"
	"github.com/framesmith/framesmith-backend/api/validators"
	"github.com/framesmith/framesmith-backend/internal/checkout"
	"github.com/framesmith/framesmith-backend/pkg/enums"
	pkgerrors "github.com/framesmith/framesmith-backend/pkg/errors"
	"github.com/framesmith/framesmith-backend/pkg/logger"
)

type checkoutRequest struct {
	OrderID           *uuid.UUID           `json:"order_id"`
	CartItemIDs       []uuid.UUID          `json:"cart_item_ids" validate:"required,min=1"`
	ShippingAddressID uuid.UUID            `json:"shipping_address_id" validate:"required"`
	OrderType         string               `json:"order_type" validate:"required"`
	PaymentMethod     string               `json:"payment_method" validate:"required"`
	ShippingFee       decimal.Decimal      `json:"shipping_fee"`
	PromoCode         *string              `json:"promo_code"`
	Prescription      *prescriptionRequest `json:"prescription"`
}

type prescriptionRequest struct {
	PD    decimal.Decimal `json:"pd" validate:"required"`
	Notes *string         `json:"notes"`
	Eyes  []eyeRequest    `json:"eyes" validate:"required,min=1,max=2"`
}

type eyeRequest struct {
	Eye      string          `json:"eye" validate:"required"`
	Sphere   decimal.Decimal `json:"sphere"`
	Cylinder decimal.Decimal `json:"cylinder"`
	Axis     int             `json:"axis" validate:"min=0,max=180"`
}

func (p *prescriptionRequest) toInput() *checkout.PrescriptionInput {
	if p == nil {
		return nil
	}
	input := &checkout.PrescriptionInput{PD: p.PD, Notes: p.Notes}
	for _, eye := range p.Eyes {
		input.Eyes = append(input.Eyes, checkout.EyeInput{
			Eye:      eye.Eye,
			Sphere:   eye.Sphere,
			Cylinder: eye.Cylinder,
			Axis:     eye.Axis,
		})
	}
	return input
}

// Checkout converts the caller's active cart into an order.
func Checkout(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		customerID := middleware.CustomerIDFromContext(ctx)
		if customerID == uuid.Nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing"))
			return
		}

		var req checkoutRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		orderType, err := enums.ParseOrderType(req.OrderType)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, err.Error()))
			return
		}
		method, err := enums.ParsePaymentMethod(req.PaymentMethod)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, err.Error()))
			return
		}

		input := checkout.CheckoutInput{
			CartItemIDs:       req.CartItemIDs,
			ShippingAddressID: req.ShippingAddressID,
			OrderType:         orderType,
			PaymentMethod:     method,
			ShippingFee:       req.ShippingFee,
			PromoCode:         req.PromoCode,
			Prescription:      req.Prescription.toInput(),
		}
		if req.OrderID != nil {
			input.OrderID = *req.OrderID
		}

		dto, err := svc.Checkout(ctx, customerID, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}
