package orders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	internalorders "github.com/mdobrescu/courierhub-backend/internal/orders"
	"github.com/mdobrescu/courierhub-backend/pkg/db/models"
	"github.com/mdobrescu/courierhub-backend/pkg/enums"
	pkgerrors "github.com/mdobrescu/courierhub-backend/pkg/errors"
)

type stubOrdersService struct {
	get          func(ctx context.Context, internalID string) (*models.DeliveryOrder, error)
	list         func(ctx context.Context, filters internalorders.ListFilters) ([]models.DeliveryOrder, error)
	assign       func(ctx context.Context, internalID string, driverID int64) (*models.DeliveryOrder, error)
	startTransit func(ctx context.Context, internalID string, etaMinutes int) (*models.DeliveryOrder, error)
	confirm      func(ctx context.Context, internalID, providedOTP string) (*models.DeliveryOrder, error)
	cancel       func(ctx context.Context, internalID, reason string) (*models.DeliveryOrder, error)
	updateStatus func(ctx context.Context, internalID string, status enums.OrderStatus, notes string) (*models.DeliveryOrder, error)
}

func (s *stubOrdersService) GetOrder(ctx context.Context, internalID string) (*models.DeliveryOrder, error) {
	if s.get != nil {
		return s.get(ctx, internalID)
	}
	return nil, nil
}

func (s *stubOrdersService) ListOrders(ctx context.Context, filters internalorders.ListFilters) ([]models.DeliveryOrder, error) {
	if s.list != nil {
		return s.list(ctx, filters)
	}
	return nil, nil
}

func (s *stubOrdersService) Assign(ctx context.Context, internalID string, driverID int64) (*models.DeliveryOrder, error) {
	if s.assign != nil {
		return s.assign(ctx, internalID, driverID)
	}
	return nil, nil
}

func (s *stubOrdersService) StartTransit(ctx context.Context, internalID string, etaMinutes int) (*models.DeliveryOrder, error) {
	if s.startTransit != nil {
		return s.startTransit(ctx, internalID, etaMinutes)
	}
	return nil, nil
}

func (s *stubOrdersService) ConfirmDelivery(ctx context.Context, internalID, providedOTP string) (*models.DeliveryOrder, error) {
	if s.confirm != nil {
		return s.confirm(ctx, internalID, providedOTP)
	}
	return nil, nil
}

func (s *stubOrdersService) Cancel(ctx context.Context, internalID, reason string) (*models.DeliveryOrder, error) {
	if s.cancel != nil {
		return s.cancel(ctx, internalID, reason)
	}
	return nil, nil
}

func (s *stubOrdersService) UpdateStatus(ctx context.Context, internalID string, status enums.OrderStatus, notes string) (*models.DeliveryOrder, error) {
	if s.updateStatus != nil {
		return s.updateStatus(ctx, internalID, status, notes)
	}
	return nil, nil
}

func newOrdersTestRouter(svc internalorders.Service) http.Handler {
	r := chi.NewRouter()
	r.Get("/orders", List(svc, nil))
	r.Get("/orders/{orderId}", Detail(svc, nil))
	r.Post("/orders/{orderId}/assign", Assign(svc, nil))
	r.Post("/orders/{orderId}/transit", StartTransit(svc, nil))
	r.Post("/orders/{orderId}/confirm", ConfirmDelivery(svc, nil))
	r.Post("/orders/{orderId}/cancel", Cancel(svc, nil))
	r.Post("/orders/{orderId}/status", UpdateStatus(svc, nil))
	return r
}

func TestListParsesFilters(t *testing.T) {
	svc := &stubOrdersService{
		list: func(ctx context.Context, filters internalorders.ListFilters) ([]models.DeliveryOrder, error) {
			if filters.Status != enums.OrderStatusAssigned {
				t.Fatalf("status filter not parsed, got %q", filters.Status)
			}
			if filters.Source != enums.SourceTransferro {
				t.Fatalf("source filter not parsed, got %q", filters.Source)
			}
			if filters.DriverID == nil || *filters.DriverID != 7 {
				t.Fatalf("driver filter not parsed")
			}
			if filters.IsOverflow == nil || !*filters.IsOverflow {
				t.Fatalf("overflow filter not parsed")
			}
			if filters.Limit != 10 || filters.Offset != 20 {
				t.Fatalf("pagination not parsed: limit=%d offset=%d", filters.Limit, filters.Offset)
			}
			return []models.DeliveryOrder{{InternalID: "CH-20260205-AAAABBBB"}}, nil
		},
	}

	handler := newOrdersTestRouter(svc)
	req := httptest.NewRequest(http.MethodGet, "/orders?status=assigned&source=transferro&driver_id=7&is_overflow=true&limit=10&offset=20", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data []models.DeliveryOrder `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data) != 1 || envelope.Data[0].InternalID != "CH-20260205-AAAABBBB" {
		t.Fatalf("unexpected orders in response")
	}
}

func TestListRejectsBadStatusFilter(t *testing.T) {
	handler := newOrdersTestRouter(&stubOrdersService{})
	req := httptest.NewRequest(http.MethodGet, "/orders?status=flying", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAssignPassesDriverID(t *testing.T) {
	svc := &stubOrdersService{
		assign: func(ctx context.Context, internalID string, driverID int64) (*models.DeliveryOrder, error) {
			if internalID != "CH-20260205-AAAABBBB" {
				t.Fatalf("unexpected order id %q", internalID)
			}
			if driverID != 12 {
				t.Fatalf("unexpected driver id %d", driverID)
			}
			return &models.DeliveryOrder{InternalID: internalID, Status: enums.OrderStatusAssigned}, nil
		},
	}

	handler := newOrdersTestRouter(svc)
	req := httptest.NewRequest(http.MethodPost, "/orders/CH-20260205-AAAABBBB/assign", strings.NewReader(`{"driver_id":12}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestAssignRejectsMissingDriver(t *testing.T) {
	handler := newOrdersTestRouter(&stubOrdersService{
		assign: func(ctx context.Context, internalID string, driverID int64) (*models.DeliveryOrder, error) {
			t.Fatal("service should not be called on invalid body")
			return nil, nil
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/orders/CH-20260205-AAAABBBB/assign", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestConfirmDeliveryMismatchMapsTo422(t *testing.T) {
	svc := &stubOrdersService{
		confirm: func(ctx context.Context, internalID, providedOTP string) (*models.DeliveryOrder, error) {
			if providedOTP != "A2B3C4" {
				t.Fatalf("unexpected code %q", providedOTP)
			}
			return nil, pkgerrors.New(pkgerrors.CodeOtpMismatch, "delivery code does not match")
		},
	}

	handler := newOrdersTestRouter(svc)
	req := httptest.NewRequest(http.MethodPost, "/orders/CH-20260205-AAAABBBB/confirm", strings.NewReader(`{"delivery_code":"A2B3C4"}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}

	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeOtpMismatch) {
		t.Fatalf("unexpected error code %q", envelope.Error.Code)
	}
}

func TestDetailNotFoundMapsTo404(t *testing.T) {
	svc := &stubOrdersService{
		get: func(ctx context.Context, internalID string) (*models.DeliveryOrder, error) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		},
	}

	handler := newOrdersTestRouter(svc)
	req := httptest.NewRequest(http.MethodGet, "/orders/CH-20260205-MISSING1", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestCancelForwardsReason(t *testing.T) {
	svc := &stubOrdersService{
		cancel: func(ctx context.Context, internalID, reason string) (*models.DeliveryOrder, error) {
			if reason != "recipient moved" {
				t.Fatalf("unexpected reason %q", reason)
			}
			return &models.DeliveryOrder{InternalID: internalID, Status: enums.OrderStatusCancelled}, nil
		},
	}

	handler := newOrdersTestRouter(svc)
	req := httptest.NewRequest(http.MethodPost, "/orders/CH-20260205-AAAABBBB/cancel", strings.NewReader(`{"reason":"recipient moved"}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestUpdateStatusRejectsUnknownValue(t *testing.T) {
	handler := newOrdersTestRouter(&stubOrdersService{
		updateStatus: func(ctx context.Context, internalID string, status enums.OrderStatus, notes string) (*models.DeliveryOrder, error) {
			t.Fatal("service should not be called for an unknown status")
			return nil, nil
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/orders/CH-20260205-AAAABBBB/status", strings.NewReader(`{"status":"teleported"}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestUpdateStatusStateConflictMapsTo422(t *testing.T) {
	svc := &stubOrdersService{
		updateStatus: func(ctx context.Context, internalID string, status enums.OrderStatus, notes string) (*models.DeliveryOrder, error) {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "delivered requires delivery confirmation with the recipient code")
		},
	}

	handler := newOrdersTestRouter(svc)
	req := httptest.NewRequest(http.MethodPost, "/orders/CH-20260205-AAAABBBB/status", strings.NewReader(`{"status":"delivered"}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
}
