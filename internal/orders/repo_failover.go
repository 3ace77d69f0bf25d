package orders

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/mdobrescu/courierhub-backend/pkg/db/models"
	"github.com/mdobrescu/courierhub-backend/pkg/enums"
	pkgerrors "github.com/mdobrescu/courierhub-backend/pkg/errors"
	"github.com/mdobrescu/courierhub-backend/pkg/logger"
)

// failoverRepository serves from the durable store and degrades to the
// volatile one when the durable store errors out. Degradation is logged and
// invisible to callers: they never see a storage outage as a failure, at the
// cost of orders written while degraded living only for the process
// lifetime.
type failoverRepository struct {
	primary  Repository
	fallback Repository
	logg     *logger.Logger
}

// NewFailoverRepository wraps primary with a volatile fallback.
func NewFailoverRepository(primary Repository, fallback *MemoryRepository, logg *logger.Logger) Repository {
	return &failoverRepository{
		primary:  primary,
		fallback: fallback,
		logg:     logg,
	}
}

func (f *failoverRepository) WithTx(tx *gorm.DB) Repository {
	return &failoverRepository{
		primary:  f.primary.WithTx(tx),
		fallback: f.fallback,
		logg:     f.logg,
	}
}

// isStorageFailure separates infrastructure errors from expected outcomes
// like a missing record, which must surface unchanged.
func isStorageFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false
	}
	return pkgerrors.As(err) == nil
}

func (f *failoverRepository) degrade(ctx context.Context, op string, err error) {
	f.logg.Error(ctx, "durable order store unavailable, serving from memory: "+op, err)
}

func (f *failoverRepository) Create(ctx context.Context, order *models.DeliveryOrder) (*models.DeliveryOrder, bool, error) {
	created, fresh, err := f.primary.Create(ctx, order)
	if !isStorageFailure(err) {
		return created, fresh, err
	}
	f.degrade(ctx, "create", err)
	return f.fallback.Create(ctx, order)
}

func (f *failoverRepository) FindByID(ctx context.Context, internalID string) (*models.DeliveryOrder, error) {
	order, err := f.primary.FindByID(ctx, internalID)
	if !isStorageFailure(err) {
		return order, err
	}
	f.degrade(ctx, "find by id", err)
	return f.fallback.FindByID(ctx, internalID)
}

func (f *failoverRepository) FindByExternal(ctx context.Context, externalID string, source enums.Source) (*models.DeliveryOrder, error) {
	order, err := f.primary.FindByExternal(ctx, externalID, source)
	if !isStorageFailure(err) {
		return order, err
	}
	f.degrade(ctx, "find by external", err)
	return f.fallback.FindByExternal(ctx, externalID, source)
}

func (f *failoverRepository) FindAll(ctx context.Context, filters ListFilters) ([]models.DeliveryOrder, error) {
	results, err := f.primary.FindAll(ctx, filters)
	if !isStorageFailure(err) {
		return results, err
	}
	f.degrade(ctx, "find all", err)
	return f.fallback.FindAll(ctx, filters)
}

func (f *failoverRepository) UpdateWhereStatus(ctx context.Context, internalID string, allowedFrom []enums.OrderStatus, updates map[string]any) (int64, error) {
	affected, err := f.primary.UpdateWhereStatus(ctx, internalID, allowedFrom, updates)
	if !isStorageFailure(err) {
		return affected, err
	}
	f.degrade(ctx, "update", err)
	return f.fallback.UpdateWhereStatus(ctx, internalID, allowedFrom, updates)
}
