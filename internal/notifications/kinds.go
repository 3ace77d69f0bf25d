package notifications

import "github.com/mdobrescu/courierhub-backend/pkg/enums"

// Kind identifies the customer-facing notification template to render.
type Kind string

const (
	KindOrderCreated          Kind = "order_created"
	KindOrderAssigned         Kind = "order_assigned"
	KindOrderInTransit        Kind = "order_in_transit"
	KindOrderDelivered        Kind = "order_delivered"
	KindOrderCancelled        Kind = "order_cancelled"
	KindSettlementVerified    Kind = "settlement_verified"
	KindSettlementTransferred Kind = "settlement_transferred"
)

func (k Kind) String() string {
	return string(k)
}

// KindForStatus maps an order status transition to its notification kind.
// Not every status change notifies; the second return reports whether one
// should be sent.
func KindForStatus(status enums.OrderStatus) (Kind, bool) {
	switch status {
	case enums.OrderStatusAssigned:
		return KindOrderAssigned, true
	case enums.OrderStatusInTransit:
		return KindOrderInTransit, true
	case enums.OrderStatusDelivered:
		return KindOrderDelivered, true
	case enums.OrderStatusCancelled:
		return KindOrderCancelled, true
	default:
		return "", false
	}
}
