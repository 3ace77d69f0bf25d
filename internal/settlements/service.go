package settlements

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mdobrescu/courierhub-backend/internal/notifications"
	"github.com/mdobrescu/courierhub-backend/pkg/db/models"
	"github.com/mdobrescu/courierhub-backend/pkg/enums"
	pkgerrors "github.com/mdobrescu/courierhub-backend/pkg/errors"
	"github.com/mdobrescu/courierhub-backend/pkg/logger"
	"github.com/mdobrescu/courierhub-backend/pkg/metrics"
)

const settlementDateLayout = "2006-01-02"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service drives the cash custody chain: collection, settlement submission,
// verification, transfer, and the read-only reconciliation views.
type Service interface {
	MarkOrdersCollected(ctx context.Context, orderIDs []string) (int64, error)
	CreateSettlement(ctx context.Context, input CreateSettlementInput) (*CreateSettlementResult, error)
	VerifySettlement(ctx context.Context, settlementID, verifiedBy, notes string) (*models.CODSettlement, error)
	MarkSettlementTransferred(ctx context.Context, settlementID, transferReference string) (*models.CODSettlement, error)
	GetSettlement(ctx context.Context, settlementID string) (*models.CODSettlement, error)
	GetDailyReconciliationReport(ctx context.Context, date string) (*ReconciliationReport, error)
	GetCODStats(ctx context.Context) (*CODStats, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	logg     *logger.Logger
	metrics  *metrics.DeliveryMetrics
	notifier notifications.Dispatcher
	nowFn    func() time.Time
}

// ServiceParams groups the dependencies for NewService.
type ServiceParams struct {
	Repo     Repository
	Tx       txRunner
	Logger   *logger.Logger
	Metrics  *metrics.DeliveryMetrics
	Notifier notifications.Dispatcher
}

// NewService builds the settlement service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("settlements repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	notifier := params.Notifier
	if notifier == nil {
		notifier = notifications.NoopDispatcher{}
	}
	return &service{
		repo:     params.Repo,
		tx:       params.Tx,
		logg:     params.Logger,
		metrics:  params.Metrics,
		notifier: notifier,
		nowFn:    time.Now,
	}, nil
}

// MarkOrdersCollected flips pending cash to collected for delivered COD
// orders in the given set. Non-matching orders are skipped; the affected-row
// count is the only feedback.
func (s *service) MarkOrdersCollected(ctx context.Context, orderIDs []string) (int64, error) {
	if len(orderIDs) == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "order ids required")
	}

	affected, err := s.repo.MarkOrdersCollected(ctx, orderIDs)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marking orders collected")
	}
	s.metrics.IncSettlementAction("collect")
	return affected, nil
}

// CreateSettlement snapshots the eligible orders' count and COD sum, inserts
// the settlement as submitted, and atomically pulls every eligible order into
// it. The snapshot is final: later corrections to an order's amount do not
// reach back into a closed settlement.
func (s *service) CreateSettlement(ctx context.Context, input CreateSettlementInput) (*CreateSettlementResult, error) {
	if input.DriverID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "driver id required")
	}
	if len(input.OrderIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order ids required")
	}
	if _, err := time.Parse(settlementDateLayout, input.SettlementDate); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "settlement date must be YYYY-MM-DD").
			WithDetails(map[string]any{"settlement_date": input.SettlementDate})
	}

	var result *CreateSettlementResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		eligible, err := repo.FindSubmittableOrders(ctx, input.DriverID, input.OrderIDs)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading submittable orders")
		}
		if len(eligible) == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "no orders eligible for settlement").
				WithDetails(map[string]any{"requested_orders": len(input.OrderIDs)})
		}

		total := decimal.Zero
		currency := "RON"
		ids := make([]string, 0, len(eligible))
		for i, order := range eligible {
			total = total.Add(order.CODAmount)
			ids = append(ids, order.InternalID)
			if i == 0 && order.CODCurrency != "" {
				currency = order.CODCurrency
			}
		}

		settlement := &models.CODSettlement{
			SettlementID:   NewSettlementID(input.DriverID, input.SettlementDate),
			DriverID:       input.DriverID,
			SettlementDate: input.SettlementDate,
			TotalOrders:    len(eligible),
			TotalCODAmount: total,
			Currency:       currency,
			Status:         enums.SettlementStatusSubmitted,
			SubmittedAt:    s.nowFn(),
			Notes:          input.Notes,
		}
		if _, err := repo.CreateSettlement(ctx, settlement); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating settlement")
		}

		affected, err := repo.AttachOrdersToSettlement(ctx, settlement.SettlementID, ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "attaching orders to settlement")
		}
		if affected != int64(len(ids)) {
			// A concurrent submission claimed part of the set; abort so no
			// order is double-submitted.
			return pkgerrors.New(pkgerrors.CodeConflict, "orders were claimed by a concurrent settlement").
				WithDetails(map[string]any{"expected": len(ids), "affected": affected})
		}

		result = &CreateSettlementResult{
			Settlement:      settlement,
			RequestedOrders: len(input.OrderIDs),
			SubmittedOrders: len(ids),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	lctx := s.logg.WithSettlementID(s.logg.WithDriverID(ctx, input.DriverID), result.Settlement.SettlementID)
	s.logg.Info(lctx, "settlement submitted")
	s.metrics.IncSettlementAction("create")

	return result, nil
}

// VerifySettlement advances submitted to verified and cascades every member
// order's custody state to settled, in one transaction.
func (s *service) VerifySettlement(ctx context.Context, settlementID, verifiedBy, notes string) (*models.CODSettlement, error) {
	if verifiedBy == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "verified_by required")
	}

	var verified *models.CODSettlement
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		settlement, err := s.loadSettlement(ctx, repo, settlementID)
		if err != nil {
			return err
		}
		if settlement.Status != enums.SettlementStatusSubmitted {
			return settlementStateConflict(settlement.Status, enums.SettlementStatusSubmitted)
		}

		now := s.nowFn()
		updates := map[string]any{
			"status":      enums.SettlementStatusVerified,
			"verified_at": now,
			"verified_by": verifiedBy,
		}
		if notes != "" {
			updates["notes"] = appendNote(settlement.Notes, notes)
		}
		affected, err := repo.UpdateSettlementStatus(ctx, settlementID, enums.SettlementStatusSubmitted, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verifying settlement")
		}
		if affected == 0 {
			return settlementStateConflict(settlement.Status, enums.SettlementStatusSubmitted)
		}

		if _, err := repo.SettleOrders(ctx, settlementID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "settling member orders")
		}

		verified, err = repo.FindSettlementByID(ctx, settlementID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reloading settlement")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	lctx := s.logg.WithSettlementID(ctx, settlementID)
	s.logg.Info(lctx, "settlement verified")
	s.metrics.IncSettlementAction("verify")
	s.notifier.DispatchSettlementEvent(lctx, notifications.KindSettlementVerified, verified)

	return verified, nil
}

// MarkSettlementTransferred closes the chain: the cash has left the business
// toward the merchant.
func (s *service) MarkSettlementTransferred(ctx context.Context, settlementID, transferReference string) (*models.CODSettlement, error) {
	if transferReference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transfer reference required")
	}

	var transferred *models.CODSettlement
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		settlement, err := s.loadSettlement(ctx, repo, settlementID)
		if err != nil {
			return err
		}
		if settlement.Status != enums.SettlementStatusVerified {
			return settlementStateConflict(settlement.Status, enums.SettlementStatusVerified)
		}

		updates := map[string]any{
			"status":             enums.SettlementStatusTransferred,
			"transferred_at":     s.nowFn(),
			"transfer_reference": transferReference,
		}
		affected, err := repo.UpdateSettlementStatus(ctx, settlementID, enums.SettlementStatusVerified, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "transferring settlement")
		}
		if affected == 0 {
			return settlementStateConflict(settlement.Status, enums.SettlementStatusVerified)
		}

		transferred, err = repo.FindSettlementByID(ctx, settlementID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reloading settlement")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	lctx := s.logg.WithSettlementID(ctx, settlementID)
	s.logg.Info(lctx, "settlement transferred")
	s.metrics.IncSettlementAction("transfer")
	s.notifier.DispatchSettlementEvent(lctx, notifications.KindSettlementTransferred, transferred)

	return transferred, nil
}

func (s *service) GetSettlement(ctx context.Context, settlementID string) (*models.CODSettlement, error) {
	return s.loadSettlement(ctx, s.repo, settlementID)
}

// GetDailyReconciliationReport buckets every COD order delivered on the
// given date by its live custody state. This reads current cod_status, never
// settlement-time snapshots.
func (s *service) GetDailyReconciliationReport(ctx context.Context, date string) (*ReconciliationReport, error) {
	if _, err := time.Parse(settlementDateLayout, date); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "date must be YYYY-MM-DD").
			WithDetails(map[string]any{"date": date})
	}

	deliveredOrders, err := s.repo.FindOrdersDeliveredOn(ctx, date)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading delivered orders")
	}

	perDriver := make(map[int64]*DriverReconciliation)
	report := &ReconciliationReport{Date: date, TotalAmount: decimal.Zero}
	for _, order := range deliveredOrders {
		driverID := int64(0)
		if order.DriverID != nil {
			driverID = *order.DriverID
		}
		row, ok := perDriver[driverID]
		if !ok {
			row = &DriverReconciliation{
				DriverID:    driverID,
				Buckets:     make(map[enums.CODStatus]BucketTotals),
				TotalAmount: decimal.Zero,
			}
			perDriver[driverID] = row
		}

		bucket := row.Buckets[order.CODStatus]
		bucket.Orders++
		bucket.Amount = bucket.Amount.Add(order.CODAmount)
		row.Buckets[order.CODStatus] = bucket

		row.TotalOrders++
		row.TotalAmount = row.TotalAmount.Add(order.CODAmount)
		report.TotalOrders++
		report.TotalAmount = report.TotalAmount.Add(order.CODAmount)
	}

	report.Drivers = make([]DriverReconciliation, 0, len(perDriver))
	for _, row := range perDriver {
		report.Drivers = append(report.Drivers, *row)
	}
	sort.Slice(report.Drivers, func(i, j int) bool {
		return report.Drivers[i].DriverID < report.Drivers[j].DriverID
	})

	return report, nil
}

// GetCODStats aggregates all delivered COD orders with no date filter.
func (s *service) GetCODStats(ctx context.Context) (*CODStats, error) {
	deliveredOrders, err := s.repo.FindDeliveredCODOrders(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading delivered orders")
	}

	stats := &CODStats{
		Buckets:     make(map[enums.CODStatus]BucketTotals),
		TotalAmount: decimal.Zero,
	}
	for _, order := range deliveredOrders {
		bucket := stats.Buckets[order.CODStatus]
		bucket.Orders++
		bucket.Amount = bucket.Amount.Add(order.CODAmount)
		stats.Buckets[order.CODStatus] = bucket

		stats.TotalOrders++
		stats.TotalAmount = stats.TotalAmount.Add(order.CODAmount)
	}
	return stats, nil
}

func (s *service) loadSettlement(ctx context.Context, repo Repository, settlementID string) (*models.CODSettlement, error) {
	if settlementID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "settlement id required")
	}
	settlement, err := repo.FindSettlementByID(ctx, settlementID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "settlement not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading settlement")
	}
	return settlement, nil
}

func settlementStateConflict(current, expected enums.SettlementStatus) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "settlement is not in the required state").
		WithDetails(map[string]any{
			"current_status":  current,
			"expected_status": expected,
		})
}

func appendNote(existing, line string) string {
	if existing == "" {
		return line
	}
	return existing + "\n" + line
}
