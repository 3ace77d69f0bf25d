package settlements

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/mdobrescu/courierhub-backend/pkg/db/models"
	"github.com/mdobrescu/courierhub-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a settlements repository bound to the provided DB.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateSettlement(ctx context.Context, settlement *models.CODSettlement) (*models.CODSettlement, error) {
	if err := r.db.WithContext(ctx).Create(settlement).Error; err != nil {
		return nil, err
	}
	return settlement, nil
}

func (r *repository) FindSettlementByID(ctx context.Context, settlementID string) (*models.CODSettlement, error) {
	var settlement models.CODSettlement
	err := r.db.WithContext(ctx).
		Where("settlement_id = ?", settlementID).
		First(&settlement).Error
	if err != nil {
		return nil, err
	}
	return &settlement, nil
}

func (r *repository) UpdateSettlementStatus(ctx context.Context, settlementID string, from enums.SettlementStatus, updates map[string]any) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.CODSettlement{}).
		Where("settlement_id = ? AND status = ?", settlementID, from).
		Updates(updates)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repository) FindSubmittableOrders(ctx context.Context, driverID int64, orderIDs []string) ([]models.DeliveryOrder, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}
	var results []models.DeliveryOrder
	err := r.db.WithContext(ctx).
		Where("internal_order_id IN ?", orderIDs).
		Where("driver_id = ?", driverID).
		Where("status = ?", enums.OrderStatusDelivered).
		Where("cod_amount > 0").
		Where("cod_status IN ?", []enums.CODStatus{enums.CODStatusPending, enums.CODStatusCollected}).
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// MarkOrdersCollected is a pure precondition filter: rows not matching the
// delivered/positive-COD/pending constraints are skipped silently.
func (r *repository) MarkOrdersCollected(ctx context.Context, orderIDs []string) (int64, error) {
	if len(orderIDs) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.DeliveryOrder{}).
		Where("internal_order_id IN ?", orderIDs).
		Where("status = ?", enums.OrderStatusDelivered).
		Where("cod_amount > 0").
		Where("cod_status = ?", enums.CODStatusPending).
		Update("cod_status", enums.CODStatusCollected)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// AttachOrdersToSettlement flips the named orders to submitted and stamps the
// settlement back-link. The custody guard means an order already pulled into
// another settlement is left untouched, surfacing as a short row count.
func (r *repository) AttachOrdersToSettlement(ctx context.Context, settlementID string, orderIDs []string) (int64, error) {
	if len(orderIDs) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.DeliveryOrder{}).
		Where("internal_order_id IN ?", orderIDs).
		Where("cod_status IN ?", []enums.CODStatus{enums.CODStatusPending, enums.CODStatusCollected}).
		Updates(map[string]any{
			"cod_status":    enums.CODStatusSubmitted,
			"settlement_id": settlementID,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repository) SettleOrders(ctx context.Context, settlementID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.DeliveryOrder{}).
		Where("settlement_id = ?", settlementID).
		Where("cod_status = ?", enums.CODStatusSubmitted).
		Update("cod_status", enums.CODStatusSettled)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repository) FindOrdersDeliveredOn(ctx context.Context, date string) ([]models.DeliveryOrder, error) {
	dayStart, err := time.ParseInLocation("2006-01-02", date, time.UTC)
	if err != nil {
		return nil, err
	}
	dayEnd := dayStart.Add(24 * time.Hour)

	var results []models.DeliveryOrder
	err = r.db.WithContext(ctx).
		Where("status = ?", enums.OrderStatusDelivered).
		Where("cod_amount > 0").
		Where("delivered_at >= ? AND delivered_at < ?", dayStart, dayEnd).
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (r *repository) FindDeliveredCODOrders(ctx context.Context) ([]models.DeliveryOrder, error) {
	var results []models.DeliveryOrder
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.OrderStatusDelivered).
		Where("cod_amount > 0").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
