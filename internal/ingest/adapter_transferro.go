package ingest

import (
	"github.com/mdobrescu/courierhub-backend/pkg/enums"
)

// transferroAdapter handles overflow shipments forwarded by a partner
// carrier:
//
//	{"awb": "TR-...", "carrier_id": "...", "consignee": {...},
//	 "destination": {...}, "cod_value": 120, "weight_kg": 3.5}
type transferroAdapter struct{}

func (transferroAdapter) Source() enums.Source {
	return enums.SourceTransferro
}

func (transferroAdapter) Normalize(payload map[string]any) Fields {
	consignee := getMap(payload, "consignee")
	destination := getMap(payload, "destination")

	fields := Fields{
		ExternalID:         getString(payload, "awb"),
		ServiceLevel:       getString(payload, "service"),
		RecipientName:      getString(consignee, "name"),
		RecipientPhone:     normalizePhone(getString(consignee, "phone")),
		RecipientEmail:     getString(consignee, "email"),
		DeliveryAddress:    getString(destination, "address"),
		DeliveryCity:       getString(destination, "city"),
		DeliveryCounty:     getString(destination, "county"),
		DeliveryPostalCode: getString(destination, "zip"),
		DeliveryCountry:    getString(destination, "country"),
		CODAmount:          getDecimal(payload, "cod_value"),
		CODCurrency:        getString(payload, "cod_currency"),
		TotalWeight:        getFloat(payload, "weight_kg"),
		Notes:              getString(payload, "remarks"),
		IsOverflow:         true,
		ParentCarrierID:    getString(payload, "carrier_id"),
	}
	if fields.ServiceLevel == "" {
		fields.ServiceLevel = "standard"
	}
	return fields
}
