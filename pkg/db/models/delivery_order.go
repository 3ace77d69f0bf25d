package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mdobrescu/courierhub-backend/pkg/enums"
)

// DeliveryOrder is the canonical record every source payload normalizes into.
// ExternalID+Source form the natural key used for idempotent ingestion; the
// internal id encodes the creation date for sortability.
type DeliveryOrder struct {
	InternalID         string            `gorm:"column:internal_order_id;primaryKey" json:"internal_order_id"`
	ExternalID         string            `gorm:"column:external_order_id;not null;uniqueIndex:uq_delivery_orders_external_source" json:"external_order_id"`
	Source             enums.Source      `gorm:"column:aggregator_source;type:text;not null;uniqueIndex:uq_delivery_orders_external_source" json:"aggregator_source"`
	MerchantID         *string           `gorm:"column:merchant_id" json:"merchant_id,omitempty"`
	ServiceLevel       string            `gorm:"column:service_level;not null;default:'standard'" json:"service_level"`
	Status             enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending'" json:"status"`
	CODStatus          enums.CODStatus   `gorm:"column:cod_status;type:text;not null;default:'none'" json:"cod_status"`
	CODAmount          decimal.Decimal   `gorm:"column:cod_amount;type:numeric(12,2);not null" json:"cod_amount"`
	CODCurrency        string            `gorm:"column:cod_currency;not null;default:'RON'" json:"cod_currency"`
	PickupAddress      string            `gorm:"column:pickup_address" json:"pickup_address"`
	DeliveryAddress    string            `gorm:"column:delivery_address;not null" json:"delivery_address"`
	DeliveryCity       string            `gorm:"column:delivery_city" json:"delivery_city"`
	DeliveryCounty     string            `gorm:"column:delivery_county" json:"delivery_county"`
	DeliveryPostalCode string            `gorm:"column:delivery_postal_code" json:"delivery_postal_code"`
	DeliveryCountry    string            `gorm:"column:delivery_country" json:"delivery_country"`
	RecipientName      string            `gorm:"column:recipient_name;not null" json:"recipient_name"`
	RecipientPhone     string            `gorm:"column:recipient_phone" json:"recipient_phone"`
	RecipientEmail     string            `gorm:"column:recipient_email" json:"recipient_email"`
	IsOverflow         bool              `gorm:"column:is_overflow;not null;default:false" json:"is_overflow"`
	ParentCarrierID    *string           `gorm:"column:parent_carrier_id" json:"parent_carrier_id,omitempty"`
	TotalWeight        float64           `gorm:"column:total_weight;not null;default:0" json:"total_weight"`
	Notes              string            `gorm:"column:notes" json:"notes"`
	OTPCode            *string           `gorm:"column:otp_code" json:"otp_code,omitempty"`
	DeliveredAt        *time.Time        `gorm:"column:delivered_at" json:"delivered_at,omitempty"`
	DriverID           *int64            `gorm:"column:driver_id" json:"driver_id,omitempty"`
	SettlementID       *string           `gorm:"column:settlement_id" json:"settlement_id,omitempty"`
	CreatedAt          time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time         `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName implements the gorm table naming convention.
func (DeliveryOrder) TableName() string {
	return "delivery_orders"
}

// HasCOD reports whether cash is expected from the recipient.
func (o *DeliveryOrder) HasCOD() bool {
	return o.CODAmount.IsPositive()
}
