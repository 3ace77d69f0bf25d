package controllers

import (
	"net/http"

	"github.com/mdobrescu/courierhub-backend/api/responses"
	"github.com/mdobrescu/courierhub-backend/pkg/config"
	"github.com/mdobrescu/courierhub-backend/pkg/db"
	pkgerrors "github.com/mdobrescu/courierhub-backend/pkg/errors"
	"github.com/mdobrescu/courierhub-backend/pkg/logger"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-CourierHub-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the database. The API keeps serving reads from the
// in-memory fallback when storage is down, so readiness reports the degraded
// dependency instead of flipping the whole instance unhealthy.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-CourierHub-Env", cfg.App.Env)

		if dbP == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "database client unavailable"))
			return
		}

		if err := dbP.Ping(r.Context()); err != nil {
			responses.WriteSuccess(w, map[string]string{
				"status":   "degraded",
				"database": "unreachable",
			})
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
