package orders

import (
	"context"

	"gorm.io/gorm"

	"github.com/mdobrescu/courierhub-backend/pkg/db/models"
	"github.com/mdobrescu/courierhub-backend/pkg/enums"
)

// ListFilters narrows FindAll results. Zero values mean "no filter".
type ListFilters struct {
	Status     enums.OrderStatus
	CODStatus  enums.CODStatus
	Source     enums.Source
	DriverID   *int64
	IsOverflow *bool
	Limit      int
	Offset     int
}

// Repository defines persistence operations for delivery orders.
//
// Create is idempotent over the (external id, source) natural key: replaying
// a webhook returns the already-stored record unchanged, reported by the
// second return value being false.
//
// UpdateWhereStatus applies updates only while the order's status is one of
// allowedFrom and returns the number of rows changed, so callers can detect
// a transition lost to a concurrent writer.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.DeliveryOrder) (*models.DeliveryOrder, bool, error)
	FindByID(ctx context.Context, internalID string) (*models.DeliveryOrder, error)
	FindByExternal(ctx context.Context, externalID string, source enums.Source) (*models.DeliveryOrder, error)
	FindAll(ctx context.Context, filters ListFilters) ([]models.DeliveryOrder, error)
	UpdateWhereStatus(ctx context.Context, internalID string, allowedFrom []enums.OrderStatus, updates map[string]any) (int64, error)
}
