package webhooks

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mdobrescu/courierhub-backend/pkg/db/models"
	"github.com/mdobrescu/courierhub-backend/pkg/enums"
	pkgerrors "github.com/mdobrescu/courierhub-backend/pkg/errors"
)

type stubIngestService struct {
	normalize func(ctx context.Context, sourceTag string, headers http.Header, payload []byte) (*models.DeliveryOrder, error)
	ingest    func(ctx context.Context, sourceTag string, headers http.Header, payload []byte) (*models.DeliveryOrder, bool, error)
}

func (s *stubIngestService) NormalizeOrder(ctx context.Context, sourceTag string, headers http.Header, payload []byte) (*models.DeliveryOrder, error) {
	if s.normalize != nil {
		return s.normalize(ctx, sourceTag, headers, payload)
	}
	return nil, nil
}

func (s *stubIngestService) IngestOrder(ctx context.Context, sourceTag string, headers http.Header, payload []byte) (*models.DeliveryOrder, bool, error) {
	if s.ingest != nil {
		return s.ingest(ctx, sourceTag, headers, payload)
	}
	return nil, false, nil
}

func TestOrderWebhookCreatedReturns201(t *testing.T) {
	svc := &stubIngestService{
		ingest: func(ctx context.Context, sourceTag string, headers http.Header, payload []byte) (*models.DeliveryOrder, bool, error) {
			if sourceTag != "packwise" {
				t.Fatalf("unexpected source tag %q", sourceTag)
			}
			if headers.Get("X-Custom") != "yes" {
				t.Fatalf("headers not forwarded")
			}
			if !strings.Contains(string(payload), "PW-8842") {
				t.Fatalf("payload not forwarded")
			}
			return &models.DeliveryOrder{
				InternalID: "CH-20260205-AAAABBBB",
				Source:     enums.SourcePackwise,
				Status:     enums.OrderStatusPending,
			}, true, nil
		},
	}

	handler := OrderWebhook(svc, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/orders?source=packwise", strings.NewReader(`{"order_ref":"PW-8842"}`))
	req.Header.Set("X-Custom", "yes")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data models.DeliveryOrder `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.InternalID != "CH-20260205-AAAABBBB" {
		t.Fatalf("unexpected order in response: %+v", envelope.Data)
	}
}

func TestOrderWebhookReadsSourceHeader(t *testing.T) {
	svc := &stubIngestService{
		ingest: func(ctx context.Context, sourceTag string, headers http.Header, payload []byte) (*models.DeliveryOrder, bool, error) {
			if sourceTag != "shipio" {
				t.Fatalf("expected source tag from X-Source header, got %q", sourceTag)
			}
			return &models.DeliveryOrder{InternalID: "CH-20260205-EEEEFFFF"}, true, nil
		},
	}

	handler := OrderWebhook(svc, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/orders", strings.NewReader(`{"shipment":{}}`))
	req.Header.Set("X-Source", "shipio")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
}

func TestOrderWebhookReplayReturns200(t *testing.T) {
	svc := &stubIngestService{
		ingest: func(ctx context.Context, sourceTag string, headers http.Header, payload []byte) (*models.DeliveryOrder, bool, error) {
			return &models.DeliveryOrder{InternalID: "CH-20260205-AAAABBBB"}, false, nil
		},
	}

	handler := OrderWebhook(svc, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/orders", strings.NewReader(`{"order_ref":"PW-8842"}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestOrderWebhookEmptyBodyRejected(t *testing.T) {
	handler := OrderWebhook(&stubIngestService{
		ingest: func(ctx context.Context, sourceTag string, headers http.Header, payload []byte) (*models.DeliveryOrder, bool, error) {
			t.Fatal("service should not be called for an empty body")
			return nil, false, nil
		},
	}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/orders", strings.NewReader(""))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestOrderWebhookUnknownSourceMapsTo400(t *testing.T) {
	svc := &stubIngestService{
		ingest: func(ctx context.Context, sourceTag string, headers http.Header, payload []byte) (*models.DeliveryOrder, bool, error) {
			return nil, false, pkgerrors.New(pkgerrors.CodeUnknownSource, "payload matches no known source")
		},
	}

	handler := OrderWebhook(svc, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/orders", strings.NewReader(`{"mystery":true}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}

	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeUnknownSource) {
		t.Fatalf("unexpected error code %q", envelope.Error.Code)
	}
}
