package ingest

import (
	"github.com/shopspring/decimal"

	"github.com/mdobrescu/courierhub-backend/pkg/enums"
)

// Fields is the source-independent shape every adapter maps its payload into.
// Adapters are pure and total: unknown or missing payload fields map to zero
// values, never to an error.
type Fields struct {
	ExternalID         string
	MerchantID         string
	ServiceLevel       string
	RecipientName      string
	RecipientPhone     string
	RecipientEmail     string
	PickupAddress      string
	DeliveryAddress    string
	DeliveryCity       string
	DeliveryCounty     string
	DeliveryPostalCode string
	DeliveryCountry    string
	CODAmount          decimal.Decimal
	CODCurrency        string
	TotalWeight        float64
	Notes              string
	IsOverflow         bool
	ParentCarrierID    string
}

// Adapter converts one external source's payload into canonical fields.
type Adapter interface {
	Source() enums.Source
	Normalize(payload map[string]any) Fields
}

// detector pairs a source with its recognition heuristics. Header markers are
// checked before payload shape, in registration order.
type detector struct {
	source      enums.Source
	headerKey   string
	matchesBody func(payload map[string]any) bool
}

func registeredAdapters() map[enums.Source]Adapter {
	return map[enums.Source]Adapter{
		enums.SourcePackwise:   packwiseAdapter{},
		enums.SourceShipio:     shipioAdapter{},
		enums.SourceMegamart:   megamartAdapter{},
		enums.SourceTransferro: transferroAdapter{},
	}
}

func registeredDetectors() []detector {
	return []detector{
		{
			source:    enums.SourcePackwise,
			headerKey: "X-Packwise-Event",
			matchesBody: func(p map[string]any) bool {
				return hasKey(p, "payment_method") && hasKey(p, "customer")
			},
		},
		{
			source:    enums.SourceShipio,
			headerKey: "X-Shipio-Signature",
			matchesBody: func(p map[string]any) bool {
				return hasKey(p, "recipient") && hasKey(p, "shipping")
			},
		},
		{
			source:    enums.SourceMegamart,
			headerKey: "X-Megamart-Hook",
			matchesBody: func(p map[string]any) bool {
				return hasKey(p, "buyer_name") && hasKey(p, "payment")
			},
		},
		{
			source:    enums.SourceTransferro,
			headerKey: "X-Transferro-Partner",
			matchesBody: func(p map[string]any) bool {
				return hasKey(p, "awb") && hasKey(p, "consignee")
			},
		},
	}
}

func hasKey(payload map[string]any, key string) bool {
	_, ok := payload[key]
	return ok
}
