package settlements

import (
	"context"

	"gorm.io/gorm"

	"github.com/mdobrescu/courierhub-backend/pkg/db/models"
	"github.com/mdobrescu/courierhub-backend/pkg/enums"
)

// Repository defines persistence operations for the cash custody chain.
//
// The order mutations are guarded bulk updates: each one constrains the rows
// it may touch by the custody state they must currently be in and reports the
// affected-row count, which is how concurrent double-submission is detected.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateSettlement(ctx context.Context, settlement *models.CODSettlement) (*models.CODSettlement, error)
	FindSettlementByID(ctx context.Context, settlementID string) (*models.CODSettlement, error)
	UpdateSettlementStatus(ctx context.Context, settlementID string, from enums.SettlementStatus, updates map[string]any) (int64, error)

	// FindSubmittableOrders returns, from the named set, the delivered
	// positive-COD orders still awaiting submission for this driver.
	FindSubmittableOrders(ctx context.Context, driverID int64, orderIDs []string) ([]models.DeliveryOrder, error)
	MarkOrdersCollected(ctx context.Context, orderIDs []string) (int64, error)
	AttachOrdersToSettlement(ctx context.Context, settlementID string, orderIDs []string) (int64, error)
	SettleOrders(ctx context.Context, settlementID string) (int64, error)

	FindOrdersDeliveredOn(ctx context.Context, date string) ([]models.DeliveryOrder, error)
	FindDeliveredCODOrders(ctx context.Context) ([]models.DeliveryOrder, error)
}
