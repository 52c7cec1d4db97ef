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

type staffOrderRequest struct {
	OrderID           *uuid.UUID           `json:"order_id"`
	Source            string               `json:"source" validate:"required"`
	CustomerID        *uuid.UUID           `json:"customer_id"`
	WalkInName        *string              `json:"walk_in_name"`
	WalkInPhone       *string              `json:"walk_in_phone"`
	Items             []staffItemRequest   `json:"items" validate:"required,min=1,dive"`
	ShippingAddressID *uuid.UUID           `json:"shipping_address_id"`
	OrderType         string               `json:"order_type" validate:"required"`
	PaymentMethod     string               `json:"payment_method" validate:"required"`
	ShippingFee       decimal.Decimal      `json:"shipping_fee"`
	PromoCode         *string              `json:"promo_code"`
	Prescription      *prescriptionRequest `json:"prescription"`
}

type staffItemRequest struct {
	VariantID uuid.UUID `json:"variant_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
}

// StaffCreateOrder records an order entered by staff for a customer or walk-in.
func StaffCreateOrder(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		staffID := middleware.StaffIDFromContext(ctx)
		if staffID == uuid.Nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "staff identity missing"))
			return
		}

		var req staffOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		source, err := enums.ParseOrderSource(req.Source)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, err.Error()))
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

		items := make([]checkout.StaffItemInput, 0, len(req.Items))
		for _, item := range req.Items {
			items = append(items, checkout.StaffItemInput{VariantID: item.VariantID, Quantity: item.Quantity})
		}

		input := checkout.StaffOrderInput{
			Source:            source,
			CustomerID:        req.CustomerID,
			WalkInName:        req.WalkInName,
			WalkInPhone:       req.WalkInPhone,
			Items:             items,
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

		dto, err := svc.CreateStaffOrder(ctx, staffID, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}
