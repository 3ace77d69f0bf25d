package orders

import (
	"context"

	"gorm.io/gorm"

	"github.com/mdobrescu/courierhub-backend/pkg/db"
	"github.com/mdobrescu/courierhub-backend/pkg/db/models"
	"github.com/mdobrescu/courierhub-backend/pkg/enums"
)

const externalSourceConstraint = "uq_delivery_orders_external_source"

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create inserts the order, relying on the unique index over
// (external_order_id, aggregator_source) to resolve the duplicate-webhook
// race: when the insert loses, the winner's record is fetched and returned.
func (r *repository) Create(ctx context.Context, order *models.DeliveryOrder) (*models.DeliveryOrder, bool, error) {
	err := r.db.WithContext(ctx).Create(order).Error
	if err == nil {
		return order, true, nil
	}
	if !db.IsUniqueViolation(err, externalSourceConstraint) {
		return nil, false, err
	}

	existing, findErr := r.FindByExternal(ctx, order.ExternalID, order.Source)
	if findErr != nil {
		return nil, false, findErr
	}
	return existing, false, nil
}

func (r *repository) FindByID(ctx context.Context, internalID string) (*models.DeliveryOrder, error) {
	var order models.DeliveryOrder
	err := r.db.WithContext(ctx).
		Where("internal_order_id = ?", internalID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByExternal(ctx context.Context, externalID string, source enums.Source) (*models.DeliveryOrder, error) {
	var order models.DeliveryOrder
	err := r.db.WithContext(ctx).
		Where("external_order_id = ? AND aggregator_source = ?", externalID, source).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindAll(ctx context.Context, filters ListFilters) ([]models.DeliveryOrder, error) {
	query := r.db.WithContext(ctx).Model(&models.DeliveryOrder{})

	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}
	if filters.CODStatus != "" {
		query = query.Where("cod_status = ?", filters.CODStatus)
	}
	if filters.Source != "" {
		query = query.Where("aggregator_source = ?", filters.Source)
	}
	if filters.DriverID != nil {
		query = query.Where("driver_id = ?", *filters.DriverID)
	}
	if filters.IsOverflow != nil {
		query = query.Where("is_overflow = ?", *filters.IsOverflow)
	}
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var results []models.DeliveryOrder
	if err := query.Order("created_at DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *repository) UpdateWhereStatus(ctx context.Context, internalID string, allowedFrom []enums.OrderStatus, updates map[string]any) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.DeliveryOrder{}).
		Where("internal_order_id = ?", internalID)
	if len(allowedFrom) > 0 {
		query = query.Where("status IN ?", allowedFrom)
	}

	result := query.Updates(updates)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
