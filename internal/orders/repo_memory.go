package orders

import (
	"context"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/mdobrescu/courierhub-backend/pkg/db/models"
	"github.com/mdobrescu/courierhub-backend/pkg/enums"
)

// MemoryRepository is a process-lifetime, volatile implementation of
// Repository with the same external contract as the durable one. It backs
// degraded-mode operation when the database is unreachable and the unit
// tests of the lifecycle service.
type MemoryRepository struct {
	mu    sync.RWMutex
	byID  map[string]*models.DeliveryOrder
	byNat map[string]string // (external id, source) -> internal id
	nowFn func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:  make(map[string]*models.DeliveryOrder),
		byNat: make(map[string]string),
		nowFn: time.Now,
	}
}

func naturalKey(externalID string, source enums.Source) string {
	return externalID + "|" + string(source)
}

// WithTx is a no-op: the memory store has no transactions. It satisfies the
// Repository contract so callers stay storage-agnostic.
func (m *MemoryRepository) WithTx(*gorm.DB) Repository {
	return m
}

func (m *MemoryRepository) Create(_ context.Context, order *models.DeliveryOrder) (*models.DeliveryOrder, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := naturalKey(order.ExternalID, order.Source)
	if existingID, ok := m.byNat[key]; ok {
		return cloneOrder(m.byID[existingID]), false, nil
	}

	now := m.nowFn()
	stored := cloneOrder(order)
	stored.CreatedAt = now
	stored.UpdatedAt = now
	m.byID[stored.InternalID] = stored
	m.byNat[key] = stored.InternalID

	return cloneOrder(stored), true, nil
}

func (m *MemoryRepository) FindByID(_ context.Context, internalID string) (*models.DeliveryOrder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	order, ok := m.byID[internalID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return cloneOrder(order), nil
}

func (m *MemoryRepository) FindByExternal(_ context.Context, externalID string, source enums.Source) (*models.DeliveryOrder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	internalID, ok := m.byNat[naturalKey(externalID, source)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return cloneOrder(m.byID[internalID]), nil
}

func (m *MemoryRepository) FindAll(_ context.Context, filters ListFilters) ([]models.DeliveryOrder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*models.DeliveryOrder
	for _, order := range m.byID {
		if matchesFilters(order, filters) {
			matched = append(matched, order)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if filters.Offset > 0 {
		if filters.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[filters.Offset:]
	}
	if filters.Limit > 0 && len(matched) > filters.Limit {
		matched = matched[:filters.Limit]
	}

	out := make([]models.DeliveryOrder, 0, len(matched))
	for _, order := range matched {
		out = append(out, *cloneOrder(order))
	}
	return out, nil
}

func (m *MemoryRepository) UpdateWhereStatus(_ context.Context, internalID string, allowedFrom []enums.OrderStatus, updates map[string]any) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.byID[internalID]
	if !ok {
		return 0, nil
	}
	if len(allowedFrom) > 0 && !containsStatus(allowedFrom, order.Status) {
		return 0, nil
	}

	applyColumnUpdates(order, updates)
	order.UpdatedAt = m.nowFn()
	return 1, nil
}

func matchesFilters(order *models.DeliveryOrder, filters ListFilters) bool {
	if filters.Status != "" && order.Status != filters.Status {
		return false
	}
	if filters.CODStatus != "" && order.CODStatus != filters.CODStatus {
		return false
	}
	if filters.Source != "" && order.Source != filters.Source {
		return false
	}
	if filters.DriverID != nil {
		if order.DriverID == nil || *order.DriverID != *filters.DriverID {
			return false
		}
	}
	if filters.IsOverflow != nil && order.IsOverflow != *filters.IsOverflow {
		return false
	}
	return true
}

func containsStatus(haystack []enums.OrderStatus, needle enums.OrderStatus) bool {
	for _, status := range haystack {
		if status == needle {
			return true
		}
	}
	return false
}

// applyColumnUpdates mirrors the durable store's column-keyed update maps so
// both implementations accept the same mutation shape.
func applyColumnUpdates(order *models.DeliveryOrder, updates map[string]any) {
	for column, value := range updates {
		switch column {
		case "status":
			if status, ok := value.(enums.OrderStatus); ok {
				order.Status = status
			}
		case "cod_status":
			if status, ok := value.(enums.CODStatus); ok {
				order.CODStatus = status
			}
		case "driver_id":
			switch v := value.(type) {
			case int64:
				order.DriverID = &v
			case *int64:
				order.DriverID = v
			}
		case "otp_code":
			switch v := value.(type) {
			case string:
				order.OTPCode = &v
			case *string:
				order.OTPCode = v
			}
		case "settlement_id":
			switch v := value.(type) {
			case string:
				order.SettlementID = &v
			case *string:
				order.SettlementID = v
			}
		case "delivered_at":
			switch v := value.(type) {
			case time.Time:
				order.DeliveredAt = &v
			case *time.Time:
				order.DeliveredAt = v
			}
		case "notes":
			if notes, ok := value.(string); ok {
				order.Notes = notes
			}
		}
	}
}

func cloneOrder(order *models.DeliveryOrder) *models.DeliveryOrder {
	if order == nil {
		return nil
	}
	clone := *order
	if order.MerchantID != nil {
		v := *order.MerchantID
		clone.MerchantID = &v
	}
	if order.ParentCarrierID != nil {
		v := *order.ParentCarrierID
		clone.ParentCarrierID = &v
	}
	if order.OTPCode != nil {
		v := *order.OTPCode
		clone.OTPCode = &v
	}
	if order.DeliveredAt != nil {
		v := *order.DeliveredAt
		clone.DeliveredAt = &v
	}
	if order.DriverID != nil {
		v := *order.DriverID
		clone.DriverID = &v
	}
	if order.SettlementID != nil {
		v := *order.SettlementID
		clone.SettlementID = &v
	}
	return &clone
}
