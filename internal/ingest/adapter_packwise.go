package ingest

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mdobrescu/courierhub-backend/pkg/enums"
)

// packwiseAdapter handles aggregator payloads of the shape:
//
//	{"order_id": "...", "customer": {...}, "address": {...},
//	 "payment_method": "cod"|"card", "total": 150.0, "items": [...]}
type packwiseAdapter struct{}

func (packwiseAdapter) Source() enums.Source {
	return enums.SourcePackwise
}

func (packwiseAdapter) Normalize(payload map[string]any) Fields {
	customer := getMap(payload, "customer")
	address := getMap(payload, "address")

	fields := Fields{
		ExternalID:         getString(payload, "order_id"),
		MerchantID:         getString(payload, "store_id"),
		ServiceLevel:       "standard",
		RecipientName:      getString(customer, "name"),
		RecipientPhone:     normalizePhone(getString(customer, "phone")),
		RecipientEmail:     getString(customer, "email"),
		PickupAddress:      getString(payload, "pickup_address"),
		DeliveryAddress:    joinAddress(getString(address, "street"), getString(address, "block")),
		DeliveryCity:       getString(address, "city"),
		DeliveryCounty:     getString(address, "county"),
		DeliveryPostalCode: getString(address, "zip"),
		DeliveryCountry:    getString(address, "country"),
		CODCurrency:        getString(payload, "currency"),
		Notes:              getString(payload, "comments"),
	}

	// Cash changes hands only for explicit cash payment markers.
	method := strings.ToLower(getString(payload, "payment_method"))
	if method == "cod" || method == "cash" {
		fields.CODAmount = getDecimal(payload, "total")
	} else {
		fields.CODAmount = decimal.Zero
	}

	for _, raw := range getSlice(payload, "items") {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		qty := getFloat(item, "qty")
		if qty <= 0 {
			qty = 1
		}
		fields.TotalWeight += getFloat(item, "weight") * qty
	}

	return fields
}
