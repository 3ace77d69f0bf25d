package settlements

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mdobrescu/courierhub-backend/api/responses"
	"github.com/mdobrescu/courierhub-backend/api/validators"
	internalsettlements "github.com/mdobrescu/courierhub-backend/internal/settlements"
	pkgerrors "github.com/mdobrescu/courierhub-backend/pkg/errors"
	"github.com/mdobrescu/courierhub-backend/pkg/logger"
)

type collectRequest struct {
	OrderIDs []string `json:"order_ids" validate:"required,min=1,max=500,dive,required"`
}

type createRequest struct {
	DriverID       int64    `json:"driver_id" validate:"required,gt=0"`
	SettlementDate string   `json:"settlement_date" validate:"required,datetime=2006-01-02"`
	OrderIDs       []string `json:"order_ids" validate:"required,min=1,max=500,dive,required"`
	Notes          string   `json:"notes" validate:"max=500"`
}

type verifyRequest struct {
	VerifiedBy string `json:"verified_by" validate:"required,max=120"`
	Notes      string `json:"notes" validate:"max=500"`
}

type transferRequest struct {
	TransferReference string `json:"transfer_reference" validate:"max=120"`
}

// Collect marks delivered COD orders as cash-collected by the driver.
func Collect(svc internalsettlements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlements service unavailable"))
			return
		}

		var req collectRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.MarkOrdersCollected(r.Context(), req.OrderIDs)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"requested": len(req.OrderIDs),
			"collected": updated,
		})
	}
}

// Create opens a settlement batch for a driver's collected COD orders.
func Create(svc internalsettlements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlements service unavailable"))
			return
		}

		var req createRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreateSettlement(r.Context(), internalsettlements.CreateSettlementInput{
			DriverID:       req.DriverID,
			SettlementDate: req.SettlementDate,
			OrderIDs:       req.OrderIDs,
			Notes:          req.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// Verify confirms the counted cash matches the settlement total.
func Verify(svc internalsettlements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlements service unavailable"))
			return
		}

		settlementID, err := parseSettlementID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req verifyRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		settlement, err := svc.VerifySettlement(r.Context(), settlementID, req.VerifiedBy, req.Notes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, settlement)
	}
}

// Transfer records the bank transfer closing out a verified settlement.
func Transfer(svc internalsettlements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlements service unavailable"))
			return
		}

		settlementID, err := parseSettlementID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req transferRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		settlement, err := svc.MarkSettlementTransferred(r.Context(), settlementID, req.TransferReference)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, settlement)
	}
}

// Detail returns a settlement by id.
func Detail(svc internalsettlements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlements service unavailable"))
			return
		}

		settlementID, err := parseSettlementID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		settlement, err := svc.GetSettlement(r.Context(), settlementID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, settlement)
	}
}

func parseSettlementID(r *http.Request) (string, error) {
	settlementID := strings.TrimSpace(chi.URLParam(r, "settlementId"))
	if settlementID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "settlement id is required")
	}
	return settlementID, nil
}
