package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mdobrescu/courierhub-backend/pkg/enums"
)

// CODSettlement batches the cash one driver hands over for one date.
// TotalOrders and TotalCODAmount snapshot what was declared at submission
// time and are never recomputed afterwards.
type CODSettlement struct {
	SettlementID      string                 `gorm:"column:settlement_id;primaryKey" json:"settlement_id"`
	DriverID          int64                  `gorm:"column:driver_id;not null;index" json:"driver_id"`
	SettlementDate    string                 `gorm:"column:settlement_date;not null;index" json:"settlement_date"`
	TotalOrders       int                    `gorm:"column:total_orders;not null" json:"total_orders"`
	TotalCODAmount    decimal.Decimal        `gorm:"column:total_cod_amount;type:numeric(12,2);not null" json:"total_cod_amount"`
	Currency          string                 `gorm:"column:currency;not null;default:'RON'" json:"currency"`
	Status            enums.SettlementStatus `gorm:"column:status;type:text;not null;default:'submitted'" json:"status"`
	SubmittedAt       time.Time              `gorm:"column:submitted_at;not null" json:"submitted_at"`
	VerifiedAt        *time.Time             `gorm:"column:verified_at" json:"verified_at,omitempty"`
	VerifiedBy        *string                `gorm:"column:verified_by" json:"verified_by,omitempty"`
	TransferredAt     *time.Time             `gorm:"column:transferred_at" json:"transferred_at,omitempty"`
	TransferReference *string                `gorm:"column:transfer_reference" json:"transfer_reference,omitempty"`
	Notes             string                 `gorm:"column:notes" json:"notes"`
	CreatedAt         time.Time              `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time              `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName implements the gorm table naming convention.
func (CODSettlement) TableName() string {
	return "cod_settlements"
}
