package notifications

import (
	"fmt"

	"github.com/mdobrescu/courierhub-backend/pkg/db/models"
)

// RenderOrderMessage produces the customer-facing text for an order
// notification. Messages are short because the downstream channel is SMS.
func RenderOrderMessage(kind Kind, order *models.DeliveryOrder) string {
	if order == nil {
		return ""
	}
	switch kind {
	case KindOrderCreated:
		return fmt.Sprintf("Hi %s, your order %s has been registered and will be dispatched soon.",
			order.RecipientName, order.InternalID)
	case KindOrderAssigned:
		msg := fmt.Sprintf("Your order %s has been assigned to a courier.", order.InternalID)
		if order.OTPCode != nil {
			msg += fmt.Sprintf(" Your delivery code is %s. Share it only with the courier at handover.", *order.OTPCode)
		}
		return msg
	case KindOrderInTransit:
		return fmt.Sprintf("Your order %s is on its way.", order.InternalID)
	case KindOrderDelivered:
		if order.HasCOD() {
			return fmt.Sprintf("Your order %s has been delivered. Cash payment of %s %s was received. Thank you!",
				order.InternalID, order.CODAmount.StringFixed(2), order.CODCurrency)
		}
		return fmt.Sprintf("Your order %s has been delivered. Thank you!", order.InternalID)
	case KindOrderCancelled:
		return fmt.Sprintf("Your order %s has been cancelled. Contact the seller for details.", order.InternalID)
	default:
		return ""
	}
}

// RenderSettlementMessage produces the back-office text for a settlement
// protocol event.
func RenderSettlementMessage(kind Kind, settlement *models.CODSettlement) string {
	if settlement == nil {
		return ""
	}
	switch kind {
	case KindSettlementVerified:
		return fmt.Sprintf("Settlement %s (driver %d, %s %s) has been verified.",
			settlement.SettlementID, settlement.DriverID,
			settlement.TotalCODAmount.StringFixed(2), settlement.Currency)
	case KindSettlementTransferred:
		return fmt.Sprintf("Settlement %s has been transferred to the merchant (%s %s).",
			settlement.SettlementID,
			settlement.TotalCODAmount.StringFixed(2), settlement.Currency)
	default:
		return ""
	}
}
