package ingest

import (
	"github.com/mdobrescu/courierhub-backend/pkg/enums"
)

// shipioAdapter handles aggregator payloads of the shape:
//
//	{"reference": "...", "recipient": {...}, "shipping": {...},
//	 "cash_on_delivery": {"amount": "75.50", "currency": "RON"},
//	 "parcels": [{"weight_kg": 1.2}]}
type shipioAdapter struct{}

func (shipioAdapter) Source() enums.Source {
	return enums.SourceShipio
}

func (shipioAdapter) Normalize(payload map[string]any) Fields {
	recipient := getMap(payload, "recipient")
	shipping := getMap(payload, "shipping")
	cod := getMap(payload, "cash_on_delivery")

	fields := Fields{
		ExternalID:         getString(payload, "reference"),
		MerchantID:         getString(payload, "shop_id"),
		ServiceLevel:       getString(payload, "service_level"),
		RecipientName:      getString(recipient, "full_name"),
		RecipientPhone:     normalizePhone(getString(recipient, "phone_number")),
		RecipientEmail:     getString(recipient, "email"),
		DeliveryAddress:    joinAddress(getString(shipping, "address_1"), getString(shipping, "address_2")),
		DeliveryCity:       getString(shipping, "city"),
		DeliveryCounty:     getString(shipping, "region"),
		DeliveryPostalCode: getString(shipping, "postal_code"),
		DeliveryCountry:    getString(shipping, "country_code"),
		Notes:              getString(payload, "note"),
	}
	if fields.ServiceLevel == "" {
		fields.ServiceLevel = "standard"
	}

	// A cash_on_delivery block is the payment marker for this source.
	if cod != nil {
		fields.CODAmount = getDecimal(cod, "amount")
		fields.CODCurrency = getString(cod, "currency")
	}

	for _, raw := range getSlice(payload, "parcels") {
		parcel, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		fields.TotalWeight += getFloat(parcel, "weight_kg")
	}

	return fields
}
