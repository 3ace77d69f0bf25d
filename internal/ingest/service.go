package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mdobrescu/courierhub-backend/internal/notifications"
	"github.com/mdobrescu/courierhub-backend/internal/orders"
	"github.com/mdobrescu/courierhub-backend/pkg/db/models"
	"github.com/mdobrescu/courierhub-backend/pkg/enums"
	pkgerrors "github.com/mdobrescu/courierhub-backend/pkg/errors"
	"github.com/mdobrescu/courierhub-backend/pkg/logger"
	"github.com/mdobrescu/courierhub-backend/pkg/metrics"
)

const defaultCODCurrency = "RON"

// Service normalizes inbound webhook payloads into canonical orders and
// persists them idempotently.
type Service interface {
	NormalizeOrder(ctx context.Context, sourceTag string, headers http.Header, payload []byte) (*models.DeliveryOrder, error)
	IngestOrder(ctx context.Context, sourceTag string, headers http.Header, payload []byte) (*models.DeliveryOrder, bool, error)
}

type service struct {
	adapters  map[enums.Source]Adapter
	detectors []detector
	repo      orders.Repository
	logg      *logger.Logger
	metrics   *metrics.DeliveryMetrics
	notifier  notifications.Dispatcher
	nowFn     func() time.Time
}

// ServiceParams groups the dependencies for NewService.
type ServiceParams struct {
	Repo     orders.Repository
	Logger   *logger.Logger
	Metrics  *metrics.DeliveryMetrics
	Notifier notifications.Dispatcher
}

// NewService builds the normalization service over the registered adapters.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	notifier := params.Notifier
	if notifier == nil {
		notifier = notifications.NoopDispatcher{}
	}
	return &service{
		adapters:  registeredAdapters(),
		detectors: registeredDetectors(),
		repo:      params.Repo,
		logg:      params.Logger,
		metrics:   params.Metrics,
		notifier:  notifier,
		nowFn:     time.Now,
	}, nil
}

// NormalizeOrder resolves the source, runs its adapter and validates the
// canonical result. It has no side effects: persistence belongs to
// IngestOrder.
func (s *service) NormalizeOrder(ctx context.Context, sourceTag string, headers http.Header, payload []byte) (*models.DeliveryOrder, error) {
	var body map[string]any
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "payload is not a JSON object")
	}

	source, err := s.resolveSource(sourceTag, headers, body)
	if err != nil {
		s.metrics.IncIngested("unknown", "unknown_source")
		return nil, err
	}

	fields := s.adapters[source].Normalize(body)
	if missing := missingRequiredFields(fields); len(missing) > 0 {
		s.metrics.IncIngested(source.String(), "invalid")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payload is missing required fields").
			WithDetails(map[string]any{"missing_fields": missing})
	}

	return s.buildOrder(source, fields), nil
}

// IngestOrder normalizes and stores the payload. Replaying a webhook for an
// already-known (external id, source) pair returns the stored record
// unchanged; the second return value reports whether a new order was created.
func (s *service) IngestOrder(ctx context.Context, sourceTag string, headers http.Header, payload []byte) (*models.DeliveryOrder, bool, error) {
	start := s.nowFn()

	order, err := s.NormalizeOrder(ctx, sourceTag, headers, payload)
	if err != nil {
		return nil, false, err
	}

	stored, created, err := s.repo.Create(ctx, order)
	if err != nil {
		s.metrics.IncIngested(order.Source.String(), "error")
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "storing order")
	}

	lctx := s.logg.WithOrderID(s.logg.WithSource(ctx, stored.Source.String()), stored.InternalID)
	if created {
		s.logg.Info(lctx, "order ingested")
		s.metrics.IncIngested(stored.Source.String(), "created")
		s.notifier.DispatchOrderEvent(lctx, notifications.KindOrderCreated, stored)
	} else {
		s.logg.Info(lctx, "duplicate webhook resolved to existing order")
		s.metrics.IncIngested(stored.Source.String(), "duplicate")
	}
	s.metrics.ObserveIngestDuration(stored.Source.String(), s.nowFn().Sub(start))

	return stored, created, nil
}

// resolveSource honors an explicit tag first, then header markers, then
// payload shape. An unrecognized payload is rejected rather than guessed.
func (s *service) resolveSource(sourceTag string, headers http.Header, body map[string]any) (enums.Source, error) {
	if sourceTag != "" {
		source, err := enums.ParseSource(sourceTag)
		if err != nil {
			return "", pkgerrors.New(pkgerrors.CodeUnknownSource, "unrecognized source tag").
				WithDetails(map[string]any{"source": sourceTag})
		}
		return source, nil
	}

	for _, d := range s.detectors {
		if headers.Get(d.headerKey) != "" {
			return d.source, nil
		}
	}
	for _, d := range s.detectors {
		if d.matchesBody(body) {
			return d.source, nil
		}
	}

	return "", pkgerrors.New(pkgerrors.CodeUnknownSource, "payload matches no known source")
}

func missingRequiredFields(fields Fields) []string {
	var missing []string
	if fields.ExternalID == "" {
		missing = append(missing, "external_order_id")
	}
	if fields.RecipientName == "" {
		missing = append(missing, "recipient_name")
	}
	if fields.DeliveryAddress == "" {
		missing = append(missing, "delivery_address")
	}
	return missing
}

func (s *service) buildOrder(source enums.Source, fields Fields) *models.DeliveryOrder {
	order := &models.DeliveryOrder{
		InternalID:         NewInternalID(s.nowFn()),
		ExternalID:         fields.ExternalID,
		Source:             source,
		ServiceLevel:       fields.ServiceLevel,
		Status:             enums.OrderStatusPending,
		CODStatus:          enums.CODStatusNone,
		CODAmount:          fields.CODAmount,
		CODCurrency:        fields.CODCurrency,
		PickupAddress:      fields.PickupAddress,
		DeliveryAddress:    fields.DeliveryAddress,
		DeliveryCity:       fields.DeliveryCity,
		DeliveryCounty:     fields.DeliveryCounty,
		DeliveryPostalCode: fields.DeliveryPostalCode,
		DeliveryCountry:    fields.DeliveryCountry,
		RecipientName:      fields.RecipientName,
		RecipientPhone:     fields.RecipientPhone,
		RecipientEmail:     fields.RecipientEmail,
		IsOverflow:         fields.IsOverflow,
		TotalWeight:        fields.TotalWeight,
		Notes:              fields.Notes,
	}

	if fields.MerchantID != "" {
		merchantID := fields.MerchantID
		order.MerchantID = &merchantID
	}
	if fields.ParentCarrierID != "" {
		carrierID := fields.ParentCarrierID
		order.ParentCarrierID = &carrierID
	}
	if order.ServiceLevel == "" {
		order.ServiceLevel = "standard"
	}
	if order.CODAmount.IsPositive() {
		order.CODStatus = enums.CODStatusPending
		if order.CODCurrency == "" {
			order.CODCurrency = defaultCODCurrency
		}
	} else {
		order.CODAmount = decimal.Zero
		order.CODCurrency = defaultCODCurrency
	}

	return order
}
