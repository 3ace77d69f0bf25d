package settlements

import (
	"github.com/shopspring/decimal"

	"github.com/mdobrescu/courierhub-backend/pkg/db/models"
	"github.com/mdobrescu/courierhub-backend/pkg/enums"
)

// CreateSettlementInput carries a driver's cash submission for one date.
type CreateSettlementInput struct {
	DriverID       int64
	SettlementDate string // YYYY-MM-DD
	OrderIDs       []string
	Notes          string
}

// CreateSettlementResult reports the created settlement plus how many of the
// requested orders were actually pulled in, so a partial match is visible to
// the caller.
type CreateSettlementResult struct {
	Settlement      *models.CODSettlement `json:"settlement"`
	RequestedOrders int                   `json:"requested_orders"`
	SubmittedOrders int                   `json:"submitted_orders"`
}

// BucketTotals aggregates order count and COD amount for one custody state.
type BucketTotals struct {
	Orders int             `json:"orders"`
	Amount decimal.Decimal `json:"amount"`
}

// DriverReconciliation is one driver's row in the daily report.
type DriverReconciliation struct {
	DriverID    int64                           `json:"driver_id"`
	Buckets     map[enums.CODStatus]BucketTotals `json:"buckets"`
	TotalOrders int                             `json:"total_orders"`
	TotalAmount decimal.Decimal                 `json:"total_amount"`
}

// ReconciliationReport buckets every COD order delivered on one date by its
// live custody state, per driver.
type ReconciliationReport struct {
	Date        string                 `json:"date"`
	Drivers     []DriverReconciliation `json:"drivers"`
	TotalOrders int                    `json:"total_orders"`
	TotalAmount decimal.Decimal        `json:"total_amount"`
}

// CODStats aggregates all delivered COD orders with no date filter.
type CODStats struct {
	Buckets     map[enums.CODStatus]BucketTotals `json:"buckets"`
	TotalOrders int                             `json:"total_orders"`
	TotalAmount decimal.Decimal                 `json:"total_amount"`
}
