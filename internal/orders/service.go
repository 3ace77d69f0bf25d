package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mdobrescu/courierhub-backend/internal/notifications"
	"github.com/mdobrescu/courierhub-backend/pkg/db/models"
	"github.com/mdobrescu/courierhub-backend/pkg/enums"
	pkgerrors "github.com/mdobrescu/courierhub-backend/pkg/errors"
	"github.com/mdobrescu/courierhub-backend/pkg/keylock"
	"github.com/mdobrescu/courierhub-backend/pkg/logger"
	"github.com/mdobrescu/courierhub-backend/pkg/metrics"
)

// nonTerminalStatuses gates conditional updates: a transition only lands
// while the order has not already reached delivered or cancelled.
var nonTerminalStatuses = []enums.OrderStatus{
	enums.OrderStatusPending,
	enums.OrderStatusAssigned,
	enums.OrderStatusInTransit,
}

// Service drives the delivery lifecycle state machine.
type Service interface {
	GetOrder(ctx context.Context, internalID string) (*models.DeliveryOrder, error)
	ListOrders(ctx context.Context, filters ListFilters) ([]models.DeliveryOrder, error)
	Assign(ctx context.Context, internalID string, driverID int64) (*models.DeliveryOrder, error)
	StartTransit(ctx context.Context, internalID string, etaMinutes int) (*models.DeliveryOrder, error)
	ConfirmDelivery(ctx context.Context, internalID, providedOTP string) (*models.DeliveryOrder, error)
	Cancel(ctx context.Context, internalID, reason string) (*models.DeliveryOrder, error)
	UpdateStatus(ctx context.Context, internalID string, status enums.OrderStatus, notes string) (*models.DeliveryOrder, error)
}

type service struct {
	repo     Repository
	locks    *keylock.Locker
	logg     *logger.Logger
	metrics  *metrics.DeliveryMetrics
	notifier notifications.Dispatcher
	nowFn    func() time.Time
}

// ServiceParams groups the dependencies for NewService.
type ServiceParams struct {
	Repo     Repository
	Locks    *keylock.Locker
	Logger   *logger.Logger
	Metrics  *metrics.DeliveryMetrics
	Notifier notifications.Dispatcher
}

// NewService builds the lifecycle service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Locks == nil {
		return nil, fmt.Errorf("key locker required")
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
		locks:    params.Locks,
		logg:     params.Logger,
		metrics:  params.Metrics,
		notifier: notifier,
		nowFn:    time.Now,
	}, nil
}

func (s *service) GetOrder(ctx context.Context, internalID string) (*models.DeliveryOrder, error) {
	return s.fetch(ctx, internalID)
}

func (s *service) ListOrders(ctx context.Context, filters ListFilters) ([]models.DeliveryOrder, error) {
	results, err := s.repo.FindAll(ctx, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing orders")
	}
	return results, nil
}

// Assign hands the order to a driver and mints the delivery confirmation
// code. Re-assignment before a terminal state replaces both driver and code.
func (s *service) Assign(ctx context.Context, internalID string, driverID int64) (*models.DeliveryOrder, error) {
	if driverID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "driver id required")
	}

	unlock := s.locks.Lock(internalID)
	defer unlock()

	order, err := s.fetch(ctx, internalID)
	if err != nil {
		return nil, err
	}
	if order.Status.IsTerminal() {
		return nil, stateConflict("assign", order.Status)
	}

	updates := map[string]any{
		"status":    enums.OrderStatusAssigned,
		"driver_id": driverID,
		"otp_code":  GenerateOTP(),
	}
	return s.transition(ctx, internalID, enums.OrderStatusAssigned, nonTerminalStatuses, updates)
}

// StartTransit moves an assigned order onto the road. A positive ETA is
// recorded in the notes for the recipient-facing message.
func (s *service) StartTransit(ctx context.Context, internalID string, etaMinutes int) (*models.DeliveryOrder, error) {
	unlock := s.locks.Lock(internalID)
	defer unlock()

	order, err := s.fetch(ctx, internalID)
	if err != nil {
		return nil, err
	}
	if order.Status != enums.OrderStatusAssigned {
		return nil, stateConflict("start transit", order.Status)
	}

	updates := map[string]any{"status": enums.OrderStatusInTransit}
	if etaMinutes > 0 {
		updates["notes"] = appendNote(order.Notes, fmt.Sprintf("In transit, estimated arrival in %d minutes.", etaMinutes))
	}
	return s.transition(ctx, internalID, enums.OrderStatusInTransit, []enums.OrderStatus{enums.OrderStatusAssigned}, updates)
}

// ConfirmDelivery is the single gate that may set status=delivered. The
// provided code must match the one issued at assignment, case-insensitively;
// the code is retained afterwards for audit. Re-confirming an already
// delivered order with the correct code is a no-op.
func (s *service) ConfirmDelivery(ctx context.Context, internalID, providedOTP string) (*models.DeliveryOrder, error) {
	unlock := s.locks.Lock(internalID)
	defer unlock()

	order, err := s.fetch(ctx, internalID)
	if err != nil {
		return nil, err
	}

	if order.Status == enums.OrderStatusDelivered {
		if MatchesOTP(order.OTPCode, providedOTP) {
			return order, nil
		}
		return nil, pkgerrors.New(pkgerrors.CodeOtpMismatch, "delivery code does not match")
	}
	if order.Status == enums.OrderStatusCancelled {
		return nil, stateConflict("confirm delivery", order.Status)
	}
	if !MatchesOTP(order.OTPCode, providedOTP) {
		return nil, pkgerrors.New(pkgerrors.CodeOtpMismatch, "delivery code does not match")
	}

	now := s.nowFn()
	updates := map[string]any{
		"status":       enums.OrderStatusDelivered,
		"delivered_at": now,
		"notes":        appendNote(order.Notes, fmt.Sprintf("Delivered on %s, confirmed with delivery code.", now.Format("2006-01-02 15:04"))),
	}
	return s.transition(ctx, internalID, enums.OrderStatusDelivered, nonTerminalStatuses, updates)
}

// Cancel soft-terminates the order from any non-terminal state. Repeating a
// cancel is a no-op.
func (s *service) Cancel(ctx context.Context, internalID, reason string) (*models.DeliveryOrder, error) {
	unlock := s.locks.Lock(internalID)
	defer unlock()

	order, err := s.fetch(ctx, internalID)
	if err != nil {
		return nil, err
	}
	if order.Status == enums.OrderStatusCancelled {
		return order, nil
	}
	if order.Status == enums.OrderStatusDelivered {
		return nil, stateConflict("cancel", order.Status)
	}

	updates := map[string]any{
		"status": enums.OrderStatusCancelled,
		"notes":  appendNote(order.Notes, "Cancelled: "+reason),
	}
	return s.transition(ctx, internalID, enums.OrderStatusCancelled, nonTerminalStatuses, updates)
}

// UpdateStatus is the administrative correction path. It refuses delivered:
// closing out a delivery without the confirmation code would bypass the only
// recipient-verification gate in the system.
func (s *service) UpdateStatus(ctx context.Context, internalID string, status enums.OrderStatus, notes string) (*models.DeliveryOrder, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status").
			WithDetails(map[string]any{"status": status})
	}
	if status == enums.OrderStatusDelivered {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "delivered requires delivery confirmation with the recipient code")
	}

	unlock := s.locks.Lock(internalID)
	defer unlock()

	order, err := s.fetch(ctx, internalID)
	if err != nil {
		return nil, err
	}
	if order.Status.IsTerminal() {
		if order.Status == status {
			return order, nil
		}
		return nil, stateConflict("update status", order.Status)
	}

	updates := map[string]any{"status": status}
	if notes != "" {
		updates["notes"] = appendNote(order.Notes, notes)
	}
	return s.transition(ctx, internalID, status, nonTerminalStatuses, updates)
}

func (s *service) fetch(ctx context.Context, internalID string) (*models.DeliveryOrder, error) {
	if internalID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, internalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	return order, nil
}

// transition applies the conditional update, reloads the order, and emits
// the side effects every successful transition carries. A zero affected-row
// count means a concurrent writer reached a terminal state first.
func (s *service) transition(ctx context.Context, internalID string, newStatus enums.OrderStatus, allowedFrom []enums.OrderStatus, updates map[string]any) (*models.DeliveryOrder, error) {
	affected, err := s.repo.UpdateWhereStatus(ctx, internalID, allowedFrom, updates)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating order")
	}
	if affected == 0 {
		current, fetchErr := s.fetch(ctx, internalID)
		if fetchErr != nil {
			return nil, fetchErr
		}
		return nil, stateConflict("transition", current.Status)
	}

	updated, err := s.fetch(ctx, internalID)
	if err != nil {
		return nil, err
	}

	lctx := s.logg.WithOrderID(ctx, internalID)
	s.logg.Info(lctx, "order transitioned to "+newStatus.String())
	s.metrics.IncTransition(newStatus.String())

	if kind, ok := notifications.KindForStatus(newStatus); ok {
		s.notifier.DispatchOrderEvent(lctx, kind, updated)
	}
	return updated, nil
}

func stateConflict(action string, current enums.OrderStatus) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "cannot "+action+" in current state").
		WithDetails(map[string]any{"current_status": current})
}

func appendNote(existing, line string) string {
	if existing == "" {
		return line
	}
	return existing + "\n" + line
}
