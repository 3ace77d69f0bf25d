package notifications

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mdobrescu/courierhub-backend/pkg/db/models"
	"github.com/mdobrescu/courierhub-backend/pkg/logger"
	"github.com/mdobrescu/courierhub-backend/pkg/metrics"
	"github.com/mdobrescu/courierhub-backend/pkg/pubsub"
)

// Event is the payload published for every notification.
type Event struct {
	Kind            Kind      `json:"kind"`
	InternalOrderID string    `json:"internal_order_id,omitempty"`
	SettlementID    string    `json:"settlement_id,omitempty"`
	RecipientPhone  string    `json:"recipient_phone,omitempty"`
	RecipientEmail  string    `json:"recipient_email,omitempty"`
	DriverID        *int64    `json:"driver_id,omitempty"`
	Message         string    `json:"message"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// Dispatcher delivers a notification event. Implementations must not block
// the caller's request path; publishing happens on a detached context.
type Dispatcher interface {
	DispatchOrderEvent(ctx context.Context, kind Kind, order *models.DeliveryOrder)
	DispatchSettlementEvent(ctx context.Context, kind Kind, settlement *models.CODSettlement)
}

// NoopDispatcher drops every event. Used when notifications are disabled.
type NoopDispatcher struct{}

func (NoopDispatcher) DispatchOrderEvent(context.Context, Kind, *models.DeliveryOrder) {}

func (NoopDispatcher) DispatchSettlementEvent(context.Context, Kind, *models.CODSettlement) {}

type publisher interface {
	Publish(ctx context.Context, topic string, data []byte, attrs map[string]string) (string, error)
}

// PubSubDispatcher publishes notification events to the notification topic.
type PubSubDispatcher struct {
	pub     publisher
	topic   string
	logg    *logger.Logger
	metrics *metrics.DeliveryMetrics
	timeout time.Duration
}

// PubSubDispatcherParams groups the dependencies for NewPubSubDispatcher.
type PubSubDispatcherParams struct {
	Client  *pubsub.Client
	Topic   string
	Logger  *logger.Logger
	Metrics *metrics.DeliveryMetrics
}

func NewPubSubDispatcher(params PubSubDispatcherParams) *PubSubDispatcher {
	return &PubSubDispatcher{
		pub:     params.Client,
		topic:   params.Topic,
		logg:    params.Logger,
		metrics: params.Metrics,
		timeout: 10 * time.Second,
	}
}

// DispatchOrderEvent renders the message for kind and publishes it without
// blocking the caller. Publish failures are logged and counted, never
// returned: a missed notification must not fail an order operation.
func (d *PubSubDispatcher) DispatchOrderEvent(ctx context.Context, kind Kind, order *models.DeliveryOrder) {
	if d == nil || d.pub == nil || order == nil {
		return
	}

	event := Event{
		Kind:            kind,
		InternalOrderID: order.InternalID,
		RecipientPhone:  order.RecipientPhone,
		RecipientEmail:  order.RecipientEmail,
		DriverID:        order.DriverID,
		Message:         RenderOrderMessage(kind, order),
		OccurredAt:      time.Now().UTC(),
	}
	attrs := map[string]string{
		"kind":     kind.String(),
		"order_id": order.InternalID,
	}
	d.publishDetached(d.logg.WithOrderID(ctx, order.InternalID), kind, event, attrs)
}

// DispatchSettlementEvent publishes a settlement protocol event for the
// back-office channel, with the same fire-and-forget semantics.
func (d *PubSubDispatcher) DispatchSettlementEvent(ctx context.Context, kind Kind, settlement *models.CODSettlement) {
	if d == nil || d.pub == nil || settlement == nil {
		return
	}

	driverID := settlement.DriverID
	event := Event{
		Kind:         kind,
		SettlementID: settlement.SettlementID,
		DriverID:     &driverID,
		Message:      RenderSettlementMessage(kind, settlement),
		OccurredAt:   time.Now().UTC(),
	}
	attrs := map[string]string{
		"kind":          kind.String(),
		"settlement_id": settlement.SettlementID,
	}
	d.publishDetached(d.logg.WithSettlementID(ctx, settlement.SettlementID), kind, event, attrs)
}

func (d *PubSubDispatcher) publishDetached(ctx context.Context, kind Kind, event Event, attrs map[string]string) {
	data, err := json.Marshal(event)
	if err != nil {
		d.logg.Error(ctx, "marshaling notification event", err)
		d.metrics.IncNotification(kind.String(), "error")
		return
	}

	// Detach from the request context so an HTTP cancellation does not
	// drop the notification mid-publish.
	lctx := context.WithoutCancel(ctx)
	go func() {
		pctx, cancel := context.WithTimeout(lctx, d.timeout)
		defer cancel()

		if _, err := d.pub.Publish(pctx, d.topic, data, attrs); err != nil {
			d.logg.Error(pctx, "publishing notification event", err)
			d.metrics.IncNotification(kind.String(), "error")
			return
		}
		d.metrics.IncNotification(kind.String(), "ok")
	}()
}
