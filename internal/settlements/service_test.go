package settlements

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mdobrescu/courierhub-backend/internal/notifications"
	"github.com/mdobrescu/courierhub-backend/pkg/db/models"
	"github.com/mdobrescu/courierhub-backend/pkg/enums"
	pkgerrors "github.com/mdobrescu/courierhub-backend/pkg/errors"
	"github.com/mdobrescu/courierhub-backend/pkg/logger"
)

func setupSettlementsDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
CREATE TABLE IF NOT EXISTS delivery_orders (
  internal_order_id TEXT PRIMARY KEY,
  external_order_id TEXT NOT NULL,
  aggregator_source TEXT NOT NULL,
  merchant_id TEXT,
  service_level TEXT NOT NULL DEFAULT 'standard',
  status TEXT NOT NULL DEFAULT 'pending',
  cod_status TEXT NOT NULL DEFAULT 'none',
  cod_amount NUMERIC NOT NULL DEFAULT 0,
  cod_currency TEXT NOT NULL DEFAULT 'RON',
  pickup_address TEXT,
  delivery_address TEXT NOT NULL,
  delivery_city TEXT,
  delivery_county TEXT,
  delivery_postal_code TEXT,
  delivery_country TEXT,
  recipient_name TEXT NOT NULL,
  recipient_phone TEXT,
  recipient_email TEXT,
  is_overflow INTEGER NOT NULL DEFAULT 0,
  parent_carrier_id TEXT,
  total_weight REAL NOT NULL DEFAULT 0,
  notes TEXT,
  otp_code TEXT,
  delivered_at DATETIME,
  driver_id INTEGER,
  settlement_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE UNIQUE INDEX IF NOT EXISTS uq_delivery_orders_external_source
  ON delivery_orders (external_order_id, aggregator_source);
CREATE TABLE IF NOT EXISTS cod_settlements (
  settlement_id TEXT PRIMARY KEY,
  driver_id INTEGER NOT NULL,
  settlement_date TEXT NOT NULL,
  total_orders INTEGER NOT NULL,
  total_cod_amount NUMERIC NOT NULL,
  currency TEXT NOT NULL DEFAULT 'RON',
  status TEXT NOT NULL DEFAULT 'submitted',
  submitted_at DATETIME NOT NULL,
  verified_at DATETIME,
  verified_by TEXT,
  transferred_at DATETIME,
  transfer_reference TEXT,
  notes TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, conn.Exec(ddl).Error)

	return conn
}

// gormTx runs the closure in a real transaction, matching the production
// runner's contract.
type gormTx struct {
	db *gorm.DB
}

func (g gormTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return g.db.WithContext(ctx).Transaction(fn)
}

type settlementEvent struct {
	kind notifications.Kind
	id   string
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []settlementEvent
}

func (r *recordingDispatcher) DispatchOrderEvent(_ context.Context, kind notifications.Kind, order *models.DeliveryOrder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, settlementEvent{kind: kind, id: order.InternalID})
}

func (r *recordingDispatcher) DispatchSettlementEvent(_ context.Context, kind notifications.Kind, settlement *models.CODSettlement) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, settlementEvent{kind: kind, id: settlement.SettlementID})
}

func newTestSettlements(t *testing.T) (Service, Repository, *gorm.DB, *recordingDispatcher) {
	t.Helper()

	conn := setupSettlementsDB(t)
	repo := NewRepository(conn)
	dispatcher := &recordingDispatcher{}
	svc, err := NewService(ServiceParams{
		Repo:     repo,
		Tx:       gormTx{db: conn},
		Logger:   logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Notifier: dispatcher,
	})
	require.NoError(t, err)
	return svc, repo, conn, dispatcher
}

func seedOrder(t *testing.T, conn *gorm.DB, internalID string, driverID int64, amount string, status enums.OrderStatus, codStatus enums.CODStatus, deliveredAt *time.Time) {
	t.Helper()

	order := &models.DeliveryOrder{
		InternalID:      internalID,
		ExternalID:      "EXT-" + internalID,
		Source:          enums.SourcePackwise,
		ServiceLevel:    "standard",
		Status:          status,
		CODStatus:       codStatus,
		CODAmount:       decimal.RequireFromString(amount),
		CODCurrency:     "RON",
		DeliveryAddress: "Str. Lunga 10, Brasov",
		RecipientName:   "Ana Pop",
		DriverID:        &driverID,
		DeliveredAt:     deliveredAt,
	}
	require.NoError(t, conn.Create(order).Error)
}

func deliveredAtOn(date string) *time.Time {
	day, _ := time.ParseInLocation("2006-01-02", date, time.UTC)
	at := day.Add(14 * time.Hour)
	return &at
}

func orderCODStatus(t *testing.T, conn *gorm.DB, internalID string) enums.CODStatus {
	t.Helper()
	var order models.DeliveryOrder
	require.NoError(t, conn.Where("internal_order_id = ?", internalID).First(&order).Error)
	return order.CODStatus
}

func TestFullSettlementCycle(t *testing.T) {
	svc, _, conn, dispatcher := newTestSettlements(t)
	ctx := context.Background()

	seedOrder(t, conn, "CH-20260205-ORD10001", 3, "50.00", enums.OrderStatusDelivered, enums.CODStatusPending, deliveredAtOn("2026-02-05"))
	seedOrder(t, conn, "CH-20260205-ORD10002", 3, "75.00", enums.OrderStatusDelivered, enums.CODStatusPending, deliveredAtOn("2026-02-05"))

	collected, err := svc.MarkOrdersCollected(ctx, []string{"CH-20260205-ORD10001", "CH-20260205-ORD10002"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), collected)

	result, err := svc.CreateSettlement(ctx, CreateSettlementInput{
		DriverID:       3,
		SettlementDate: "2026-02-05",
		OrderIDs:       []string{"CH-20260205-ORD10001", "CH-20260205-ORD10002"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Settlement.TotalOrders)
	assert.Equal(t, "125.00", result.Settlement.TotalCODAmount.StringFixed(2))
	assert.Equal(t, enums.SettlementStatusSubmitted, result.Settlement.Status)
	assert.Equal(t, 2, result.SubmittedOrders)

	assert.Equal(t, enums.CODStatusSubmitted, orderCODStatus(t, conn, "CH-20260205-ORD10001"))
	assert.Equal(t, enums.CODStatusSubmitted, orderCODStatus(t, conn, "CH-20260205-ORD10002"))

	verified, err := svc.VerifySettlement(ctx, result.Settlement.SettlementID, "dispatcher-ana", "cash counted")
	require.NoError(t, err)
	assert.Equal(t, enums.SettlementStatusVerified, verified.Status)
	require.NotNil(t, verified.VerifiedAt)
	require.NotNil(t, verified.VerifiedBy)
	assert.Equal(t, "dispatcher-ana", *verified.VerifiedBy)

	assert.Equal(t, enums.CODStatusSettled, orderCODStatus(t, conn, "CH-20260205-ORD10001"))
	assert.Equal(t, enums.CODStatusSettled, orderCODStatus(t, conn, "CH-20260205-ORD10002"))

	transferred, err := svc.MarkSettlementTransferred(ctx, result.Settlement.SettlementID, "BT-2026-0099")
	require.NoError(t, err)
	assert.Equal(t, enums.SettlementStatusTransferred, transferred.Status)
	require.NotNil(t, transferred.TransferReference)
	assert.Equal(t, "BT-2026-0099", *transferred.TransferReference)

	require.Len(t, dispatcher.events, 2)
	assert.Equal(t, notifications.KindSettlementVerified, dispatcher.events[0].kind)
	assert.Equal(t, notifications.KindSettlementTransferred, dispatcher.events[1].kind)
}

func TestMarkOrdersCollectedSkipsNonMatching(t *testing.T) {
	svc, _, conn, _ := newTestSettlements(t)
	ctx := context.Background()

	seedOrder(t, conn, "CH-20260206-ORD20001", 5, "40.00", enums.OrderStatusDelivered, enums.CODStatusPending, deliveredAtOn("2026-02-06"))
	seedOrder(t, conn, "CH-20260206-ORD20002", 5, "40.00", enums.OrderStatusInTransit, enums.CODStatusPending, nil)
	seedOrder(t, conn, "CH-20260206-ORD20003", 5, "0.00", enums.OrderStatusDelivered, enums.CODStatusNone, deliveredAtOn("2026-02-06"))

	affected, err := svc.MarkOrdersCollected(ctx, []string{"CH-20260206-ORD20001", "CH-20260206-ORD20002", "CH-20260206-ORD20003"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	assert.Equal(t, enums.CODStatusCollected, orderCODStatus(t, conn, "CH-20260206-ORD20001"))
	assert.Equal(t, enums.CODStatusPending, orderCODStatus(t, conn, "CH-20260206-ORD20002"))
	assert.Equal(t, enums.CODStatusNone, orderCODStatus(t, conn, "CH-20260206-ORD20003"))
}

func TestTransferBeforeVerifyRejected(t *testing.T) {
	svc, repo, conn, _ := newTestSettlements(t)
	ctx := context.Background()

	seedOrder(t, conn, "CH-20260207-ORD30001", 4, "60.00", enums.OrderStatusDelivered, enums.CODStatusPending, deliveredAtOn("2026-02-07"))

	result, err := svc.CreateSettlement(ctx, CreateSettlementInput{
		DriverID:       4,
		SettlementDate: "2026-02-07",
		OrderIDs:       []string{"CH-20260207-ORD30001"},
	})
	require.NoError(t, err)

	_, err = svc.MarkSettlementTransferred(ctx, result.Settlement.SettlementID, "BT-1")
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict), "err = %v", err)

	current, err := repo.FindSettlementByID(ctx, result.Settlement.SettlementID)
	require.NoError(t, err)
	assert.Equal(t, enums.SettlementStatusSubmitted, current.Status)
}

func TestVerifyMissingSettlement(t *testing.T) {
	svc, _, _, _ := newTestSettlements(t)

	_, err := svc.VerifySettlement(context.Background(), "SET-9-20260101-XXXX", "dispatcher-ana", "")
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound), "err = %v", err)
}

func TestVerifyTwiceRejected(t *testing.T) {
	svc, _, conn, _ := newTestSettlements(t)
	ctx := context.Background()

	seedOrder(t, conn, "CH-20260208-ORD40001", 6, "30.00", enums.OrderStatusDelivered, enums.CODStatusPending, deliveredAtOn("2026-02-08"))

	result, err := svc.CreateSettlement(ctx, CreateSettlementInput{
		DriverID:       6,
		SettlementDate: "2026-02-08",
		OrderIDs:       []string{"CH-20260208-ORD40001"},
	})
	require.NoError(t, err)

	_, err = svc.VerifySettlement(ctx, result.Settlement.SettlementID, "dispatcher-ana", "")
	require.NoError(t, err)

	_, err = svc.VerifySettlement(ctx, result.Settlement.SettlementID, "dispatcher-dan", "")
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict), "err = %v", err)
}

func TestSettlementSnapshotIsImmutable(t *testing.T) {
	svc, repo, conn, _ := newTestSettlements(t)
	ctx := context.Background()

	seedOrder(t, conn, "CH-20260209-ORD50001", 2, "80.00", enums.OrderStatusDelivered, enums.CODStatusPending, deliveredAtOn("2026-02-09"))

	result, err := svc.CreateSettlement(ctx, CreateSettlementInput{
		DriverID:       2,
		SettlementDate: "2026-02-09",
		OrderIDs:       []string{"CH-20260209-ORD50001"},
	})
	require.NoError(t, err)

	// A later correction to the order's amount must not reach back into the
	// closed settlement.
	require.NoError(t, conn.Model(&models.DeliveryOrder{}).
		Where("internal_order_id = ?", "CH-20260209-ORD50001").
		Update("cod_amount", decimal.RequireFromString("999.99")).Error)

	current, err := repo.FindSettlementByID(ctx, result.Settlement.SettlementID)
	require.NoError(t, err)
	assert.Equal(t, "80.00", current.TotalCODAmount.StringFixed(2))
}

func TestCreateSettlementSkipsIneligibleOrders(t *testing.T) {
	svc, _, conn, _ := newTestSettlements(t)
	ctx := context.Background()

	seedOrder(t, conn, "CH-20260210-ORD60001", 8, "45.00", enums.OrderStatusDelivered, enums.CODStatusPending, deliveredAtOn("2026-02-10"))
	seedOrder(t, conn, "CH-20260210-ORD60002", 8, "45.00", enums.OrderStatusInTransit, enums.CODStatusPending, nil)

	result, err := svc.CreateSettlement(ctx, CreateSettlementInput{
		DriverID:       8,
		SettlementDate: "2026-02-10",
		OrderIDs:       []string{"CH-20260210-ORD60001", "CH-20260210-ORD60002"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.RequestedOrders)
	assert.Equal(t, 1, result.SubmittedOrders)
	assert.Equal(t, "45.00", result.Settlement.TotalCODAmount.StringFixed(2))

	assert.Equal(t, enums.CODStatusPending, orderCODStatus(t, conn, "CH-20260210-ORD60002"))
}

func TestCreateSettlementWithNoEligibleOrders(t *testing.T) {
	svc, _, conn, _ := newTestSettlements(t)
	ctx := context.Background()

	seedOrder(t, conn, "CH-20260211-ORD70001", 9, "45.00", enums.OrderStatusInTransit, enums.CODStatusPending, nil)

	_, err := svc.CreateSettlement(ctx, CreateSettlementInput{
		DriverID:       9,
		SettlementDate: "2026-02-11",
		OrderIDs:       []string{"CH-20260211-ORD70001"},
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict), "err = %v", err)
}

func TestDailyReconciliationPartitionsOnce(t *testing.T) {
	svc, _, conn, _ := newTestSettlements(t)
	ctx := context.Background()

	// Driver 1: one pending, one collected. Driver 2: one left pending.
	seedOrder(t, conn, "CH-20260212-ORD80001", 1, "10.00", enums.OrderStatusDelivered, enums.CODStatusPending, deliveredAtOn("2026-02-12"))
	seedOrder(t, conn, "CH-20260212-ORD80002", 1, "20.00", enums.OrderStatusDelivered, enums.CODStatusCollected, deliveredAtOn("2026-02-12"))
	seedOrder(t, conn, "CH-20260212-ORD80003", 2, "40.00", enums.OrderStatusDelivered, enums.CODStatusPending, deliveredAtOn("2026-02-12"))
	// Delivered on another day: excluded.
	seedOrder(t, conn, "CH-20260213-ORD80004", 1, "99.00", enums.OrderStatusDelivered, enums.CODStatusPending, deliveredAtOn("2026-02-13"))

	report, err := svc.GetDailyReconciliationReport(ctx, "2026-02-12")
	require.NoError(t, err)

	assert.Equal(t, 3, report.TotalOrders)
	assert.Equal(t, "70.00", report.TotalAmount.StringFixed(2))
	require.Len(t, report.Drivers, 2)

	driver1 := report.Drivers[0]
	assert.Equal(t, int64(1), driver1.DriverID)
	assert.Equal(t, "30.00", driver1.TotalAmount.StringFixed(2))
	assert.Equal(t, 1, driver1.Buckets[enums.CODStatusPending].Orders)
	assert.Equal(t, "20.00", driver1.Buckets[enums.CODStatusCollected].Amount.StringFixed(2))

	// The bucket sums partition the day's total exactly once.
	partitioned := decimal.Zero
	for _, driver := range report.Drivers {
		for _, bucket := range driver.Buckets {
			partitioned = partitioned.Add(bucket.Amount)
		}
	}
	assert.True(t, partitioned.Equal(report.TotalAmount),
		"bucket sum %s != report total %s", partitioned, report.TotalAmount)
}

func TestGetCODStatsHasNoDateFilter(t *testing.T) {
	svc, _, conn, _ := newTestSettlements(t)
	ctx := context.Background()

	seedOrder(t, conn, "CH-20260214-ORD90001", 1, "15.00", enums.OrderStatusDelivered, enums.CODStatusPending, deliveredAtOn("2026-02-14"))
	seedOrder(t, conn, "CH-20260215-ORD90002", 2, "25.00", enums.OrderStatusDelivered, enums.CODStatusSettled, deliveredAtOn("2026-02-15"))
	seedOrder(t, conn, "CH-20260215-ORD90003", 2, "35.00", enums.OrderStatusInTransit, enums.CODStatusPending, nil)

	stats, err := svc.GetCODStats(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TotalOrders)
	assert.Equal(t, "40.00", stats.TotalAmount.StringFixed(2))
	assert.Equal(t, 1, stats.Buckets[enums.CODStatusPending].Orders)
	assert.Equal(t, 1, stats.Buckets[enums.CODStatusSettled].Orders)
}
