package controllers

import (
	"net/http"
	"time"

	"github.com/mdobrescu/courierhub-backend/api/responses"
	"github.com/mdobrescu/courierhub-backend/api/validators"
	"github.com/mdobrescu/courierhub-backend/internal/settlements"
	pkgerrors "github.com/mdobrescu/courierhub-backend/pkg/errors"
	"github.com/mdobrescu/courierhub-backend/pkg/logger"
)

// ReconciliationReport returns the per-driver COD breakdown for one delivery
// day. Without a ?date= parameter it reports on yesterday (UTC).
func ReconciliationReport(svc settlements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlements service unavailable"))
			return
		}

		yesterday := time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
		date, err := validators.ParseQueryDate(r, "date", yesterday)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		report, err := svc.GetDailyReconciliationReport(r.Context(), date)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

// CODStats returns the global COD pipeline totals across all delivered orders.
func CODStats(svc settlements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlements service unavailable"))
			return
		}

		stats, err := svc.GetCODStats(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}
