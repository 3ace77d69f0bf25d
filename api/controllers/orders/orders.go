package orders

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mdobrescu/courierhub-backend/api/responses"
	"github.com/mdobrescu/courierhub-backend/api/validators"
	internalorders "github.com/mdobrescu/courierhub-backend/internal/orders"
	"github.com/mdobrescu/courierhub-backend/pkg/enums"
	pkgerrors "github.com/mdobrescu/courierhub-backend/pkg/errors"
	"github.com/mdobrescu/courierhub-backend/pkg/logger"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type assignRequest struct {
	DriverID int64 `json:"driver_id" validate:"required,gt=0"`
}

type transitRequest struct {
	ETAMinutes int `json:"eta_minutes" validate:"min=0,max=1440"`
}

type confirmRequest struct {
	DeliveryCode string `json:"delivery_code" validate:"required"`
}

type cancelRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
	Notes  string `json:"notes" validate:"max=500"`
}

// List returns orders filtered by the supported query parameters.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		filters, err := buildListFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListOrders(r.Context(), filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// Detail returns a single order by its internal id.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// Assign assigns a driver to the order and issues its delivery code.
func Assign(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req assignRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Assign(r.Context(), orderID, req.DriverID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// StartTransit marks an assigned order as out for delivery.
func StartTransit(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req transitRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.StartTransit(r.Context(), orderID, req.ETAMinutes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// ConfirmDelivery completes the order after checking the recipient's code.
func ConfirmDelivery(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req confirmRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.ConfirmDelivery(r.Context(), orderID, req.DeliveryCode)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// Cancel cancels the order unless it has already been delivered.
func Cancel(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req cancelRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Cancel(r.Context(), orderID, req.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// UpdateStatus applies an operator status correction. Delivered is rejected
// here; that transition only happens through delivery confirmation.
func UpdateStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req statusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParseOrderStatus(req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status").WithDetails(map[string]any{"status": req.Status}))
			return
		}

		order, err := svc.UpdateStatus(r.Context(), orderID, status, req.Notes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func parseOrderID(r *http.Request) (string, error) {
	orderID := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if orderID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	return orderID, nil
}

func buildListFilters(r *http.Request) (internalorders.ListFilters, error) {
	var filters internalorders.ListFilters

	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := enums.ParseOrderStatus(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		filters.Status = status
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("cod_status")); raw != "" {
		codStatus, err := enums.ParseCODStatus(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cod_status filter")
		}
		filters.CODStatus = codStatus
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("source")); raw != "" {
		source, err := enums.ParseSource(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid source filter")
		}
		filters.Source = source
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("driver_id")); raw != "" {
		driverID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || driverID <= 0 {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "driver_id must be a positive integer")
		}
		filters.DriverID = &driverID
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("is_overflow")); raw != "" {
		overflow, err := strconv.ParseBool(raw)
		if err != nil {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "is_overflow must be a boolean")
		}
		filters.IsOverflow = &overflow
	}

	limit, err := validators.ParseQueryInt(r, "limit", defaultListLimit, 1, maxListLimit)
	if err != nil {
		return filters, err
	}
	filters.Limit = limit

	offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 1_000_000)
	if err != nil {
		return filters, err
	}
	filters.Offset = offset

	return filters, nil
}
