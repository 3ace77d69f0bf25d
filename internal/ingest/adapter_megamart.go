package ingest

import (
	"strings"

	"github.com/mdobrescu/courierhub-backend/pkg/enums"
)

// megamartAdapter handles marketplace payloads of the shape:
//
//	{"id": 991, "buyer_name": "...", "delivery": {...}, "seller_id": "...",
//	 "payment": {"type": "cash_on_delivery"|"prepaid", "amount_due": 49.90},
//	 "products": [{"quantity": 2, "unit_weight": 0.4}]}
type megamartAdapter struct{}

func (megamartAdapter) Source() enums.Source {
	return enums.SourceMegamart
}

func (megamartAdapter) Normalize(payload map[string]any) Fields {
	delivery := getMap(payload, "delivery")
	payment := getMap(payload, "payment")

	fields := Fields{
		ExternalID:         getString(payload, "id"),
		MerchantID:         getString(payload, "seller_id"),
		ServiceLevel:       "standard",
		RecipientName:      getString(payload, "buyer_name"),
		RecipientPhone:     normalizePhone(getString(payload, "buyer_phone")),
		RecipientEmail:     getString(payload, "buyer_email"),
		DeliveryAddress:    joinAddress(getString(delivery, "line1"), getString(delivery, "line2")),
		DeliveryCity:       getString(delivery, "city"),
		DeliveryCounty:     getString(delivery, "county"),
		DeliveryPostalCode: getString(delivery, "postcode"),
		DeliveryCountry:    getString(delivery, "country"),
		Notes:              getString(payload, "observations"),
	}

	if strings.ToLower(getString(payment, "type")) == "cash_on_delivery" {
		fields.CODAmount = getDecimal(payment, "amount_due")
		fields.CODCurrency = getString(payment, "currency")
	}

	for _, raw := range getSlice(payload, "products") {
		product, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		qty := getFloat(product, "quantity")
		if qty <= 0 {
			qty = 1
		}
		fields.TotalWeight += getFloat(product, "unit_weight") * qty
	}

	return fields
}
