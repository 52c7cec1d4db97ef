package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/framesmith/framesmith-backend/api/middleware"
	"github.com/framesmith/framesmith-backend/internal/checkout"
	internalorders "github.com/framesmith/framesmith-backend/internal/orders"
	"github.com/framesmith/framesmith-backend/pkg/db/models"
	"github.com/framesmith/framesmith-backend/pkg/enums"
	pkgerrors "github.com/framesmith/framesmith-backend/pkg/errors"
)

type stubCheckoutService struct {
	checkout   func(ctx context.Context, customerID uuid.UUID, input checkout.CheckoutInput) (*internalorders.OrderDTO, error)
	staffOrder func(ctx context.Context, staffID uuid.UUID, input checkout.StaffOrderInput) (*internalorders.OrderDTO, error)
}

func (s *stubCheckoutService) Checkout(ctx context.Context, customerID uuid.UUID, input checkout.CheckoutInput) (*internalorders.OrderDTO, error) {
	if s.checkout != nil {
		return s.checkout(ctx, customerID, input)
	}
	panic("not implemented")
}

func (s *stubCheckoutService) CreateStaffOrder(ctx context.Context, staffID uuid.UUID, input checkout.StaffOrderInput) (*internalorders.OrderDTO, error) {
	if s.staffOrder != nil {
		return s.staffOrder(ctx, staffID, input)
	}
	panic("not implemented")
}

type stubOrdersService struct {
	updateStatus func(ctx context.Context, input internalorders.UpdateStatusInput) (*internalorders.OrderDTO, error)
	cancel       func(ctx context.Context, input internalorders.CancelInput) (*internalorders.OrderDTO, error)
}

func (s *stubOrdersService) UpdateStatus(ctx context.Context, input internalorders.UpdateStatusInput) (*internalorders.OrderDTO, error) {
	if s.updateStatus != nil {
		return s.updateStatus(ctx, input)
	}
	panic("not implemented")
}

func (s *stubOrdersService) CancelMyOrder(ctx context.Context, input internalorders.CancelInput) (*internalorders.OrderDTO, error) {
	if s.cancel != nil {
		return s.cancel(ctx, input)
	}
	panic("not implemented")
}

type stubOrdersRepo struct {
	findByID  func(ctx context.Context, id uuid.UUID) (*models.Order, error)
	findOwned func(ctx context.Context, id, customerID uuid.UUID) (*models.Order, error)
}

func (s *stubOrdersRepo) WithTx(tx *gorm.DB) internalorders.Repository { return s }

func (s *stubOrdersRepo) Create(ctx context.Context, order *models.Order) error {
	panic("not implemented")
}

func (s *stubOrdersRepo) CreateItems(ctx context.Context, items []models.OrderItem) error {
	panic("not implemented")
}

func (s *stubOrdersRepo) CreatePayment(ctx context.Context, payment *models.Payment) error {
	panic("not implemented")
}

func (s *stubOrdersRepo) CreatePrescription(ctx context.Context, prescription *models.Prescription) error {
	panic("not implemented")
}

func (s *stubOrdersRepo) AppendHistory(ctx context.Context, entry *models.OrderStatusHistory) error {
	panic("not implemented")
}

func (s *stubOrdersRepo) CreateShipment(ctx context.Context, shipment *models.ShipmentInfo) error {
	panic("not implemented")
}

func (s *stubOrdersRepo) HasShipment(ctx context.Context, orderID uuid.UUID) (bool, error) {
	panic("not implemented")
}

func (s *stubOrdersRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if s.findByID != nil {
		return s.findByID(ctx, id)
	}
	panic("not implemented")
}

func (s *stubOrdersRepo) FindOwnedByCustomer(ctx context.Context, id, customerID uuid.UUID) (*models.Order, error) {
	if s.findOwned != nil {
		return s.findOwned(ctx, id, customerID)
	}
	panic("not implemented")
}

func (s *stubOrdersRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) error {
	panic("not implemented")
}

func newTestRouter(checkoutSvc checkout.Service, ordersSvc internalorders.Service, repo internalorders.Repository) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Identity())
	r.Post("/checkout", Checkout(checkoutSvc, nil))
	r.Post("/staff/orders", StaffCreateOrder(checkoutSvc, nil))
	r.Route("/orders/{id}", func(r chi.Router) {
		r.Get("/", GetOrder(repo, nil))
		r.Patch("/status", UpdateOrderStatus(ordersSvc, nil))
		r.Post("/cancel", CancelOrder(ordersSvc, nil))
	})
	return r
}

func decodeEnvelope(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return payload
}

func TestCheckoutRequiresCustomerIdentity(t *testing.T) {
	t.Parallel()

	router := newTestRouter(&stubCheckoutService{}, &stubOrdersService{}, &stubOrdersRepo{})
	req := httptest.NewRequest(http.MethodPost, "/checkout", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCheckoutHappyPathReturnsCreated(t *testing.T) {
	t.Parallel()

	customerID := uuid.New()
	orderID := uuid.New()
	svc := &stubCheckoutService{
		checkout: func(ctx context.Context, gotCustomer uuid.UUID, input checkout.CheckoutInput) (*internalorders.OrderDTO, error) {
			if gotCustomer != customerID {
				t.Fatalf("unexpected customer id %s", gotCustomer)
			}
			if input.OrderType != enums.OrderTypeReadyStock {
				t.Fatalf("unexpected order type %s", input.OrderType)
			}
			return &internalorders.OrderDTO{ID: orderID, Status: enums.OrderStatusPending}, nil
		},
	}
	router := newTestRouter(svc, &stubOrdersService{}, &stubOrdersRepo{})

	body := `{
		"cart_item_ids": ["` + uuid.NewString() + `"],
		"shipping_address_id": "` + uuid.NewString() + `",
		"order_type": "ready_stock",
		"payment_method": "card"
	}`
	req := httptest.NewRequest(http.MethodPost, "/checkout", strings.NewReader(body))
	req.Header.Set("X-Customer-Id", customerID.String())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	payload := decodeEnvelope(t, rec.Body.Bytes())
	data, ok := payload["data"].(map[string]any)
	if !ok || data["id"] != orderID.String() {
		t.Fatalf("unexpected payload: %s", rec.Body.String())
	}
}

func TestCheckoutRejectsUnknownOrderType(t *testing.T) {
	t.Parallel()

	router := newTestRouter(&stubCheckoutService{}, &stubOrdersService{}, &stubOrdersRepo{})
	body := `{
		"cart_item_ids": ["` + uuid.NewString() + `"],
		"shipping_address_id": "` + uuid.NewString() + `",
		"order_type": "bespoke",
		"payment_method": "card"
	}`
	req := httptest.NewRequest(http.MethodPost, "/checkout", strings.NewReader(body))
	req.Header.Set("X-Customer-Id", uuid.NewString())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestUpdateStatusMapsStateConflict(t *testing.T) {
	t.Parallel()

	svc := &stubOrdersService{
		updateStatus: func(ctx context.Context, input internalorders.UpdateStatusInput) (*internalorders.OrderDTO, error) {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cannot transition order from pending to shipped")
		},
	}
	router := newTestRouter(&stubCheckoutService{}, svc, &stubOrdersRepo{})

	req := httptest.NewRequest(http.MethodPatch, "/orders/"+uuid.NewString()+"/status",
		strings.NewReader(`{"status": "shipped"}`))
	req.Header.Set("X-Staff-Id", uuid.NewString())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
	payload := decodeEnvelope(t, rec.Body.Bytes())
	errObj, ok := payload["error"].(map[string]any)
	if !ok || errObj["code"] != string(pkgerrors.CodeStateConflict) {
		t.Fatalf("unexpected payload: %s", rec.Body.String())
	}
}

func TestCancelOrderPassesReasonThrough(t *testing.T) {
	t.Parallel()

	customerID := uuid.New()
	orderID := uuid.New()
	var gotReason *string
	svc := &stubOrdersService{
		cancel: func(ctx context.Context, input internalorders.CancelInput) (*internalorders.OrderDTO, error) {
			gotReason = input.Reason
			return &internalorders.OrderDTO{ID: orderID, Status: enums.OrderStatusCancelled}, nil
		},
	}
	router := newTestRouter(&stubCheckoutService{}, svc, &stubOrdersRepo{})

	req := httptest.NewRequest(http.MethodPost, "/orders/"+orderID.String()+"/cancel",
		strings.NewReader(`{"reason": "wrong size"}`))
	req.Header.Set("X-Customer-Id", customerID.String())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotReason == nil || *gotReason != "wrong size" {
		t.Fatalf("reason not forwarded: %v", gotReason)
	}
}

func TestGetOrderScopesByIdentity(t *testing.T) {
	t.Parallel()

	orderID := uuid.New()
	customerID := uuid.New()
	repo := &stubOrdersRepo{
		findByID: func(ctx context.Context, id uuid.UUID) (*models.Order, error) {
			return &models.Order{ID: id, Status: enums.OrderStatusPending}, nil
		},
		findOwned: func(ctx context.Context, id, gotCustomer uuid.UUID) (*models.Order, error) {
			if gotCustomer != customerID {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return &models.Order{ID: id, Status: enums.OrderStatusPending}, nil
		},
	}
	router := newTestRouter(&stubCheckoutService{}, &stubOrdersService{}, repo)

	req := httptest.NewRequest(http.MethodGet, "/orders/"+orderID.String(), nil)
	req.Header.Set("X-Staff-Id", uuid.NewString())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("staff lookup: expected 200, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/orders/"+orderID.String(), nil)
	req.Header.Set("X-Customer-Id", uuid.NewString())
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("foreign customer: expected 404, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/orders/"+orderID.String(), nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: expected 401, got %d", rec.Code)
	}
}
