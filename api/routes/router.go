package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mdobrescu/courierhub-backend/api/controllers"
	ordercontrollers "github.com/mdobrescu/courierhub-backend/api/controllers/orders"
	settlementcontrollers "github.com/mdobrescu/courierhub-backend/api/controllers/settlements"
	webhookcontrollers "github.com/mdobrescu/courierhub-backend/api/controllers/webhooks"
	"github.com/mdobrescu/courierhub-backend/api/middleware"
	"github.com/mdobrescu/courierhub-backend/internal/ingest"
	"github.com/mdobrescu/courierhub-backend/internal/orders"
	"github.com/mdobrescu/courierhub-backend/internal/settlements"
	"github.com/mdobrescu/courierhub-backend/pkg/config"
	"github.com/mdobrescu/courierhub-backend/pkg/db"
	"github.com/mdobrescu/courierhub-backend/pkg/logger"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	ingestService ingest.Service,
	ordersService orders.Service,
	settlementsService settlements.Service,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP))
	})
	r.Get("/healthz", controllers.HealthReady(cfg, logg, dbP))

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/orders", webhookcontrollers.OrderWebhook(ingestService, logg))
	})

	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Get("/", ordercontrollers.List(ordersService, logg))
		r.Get("/{orderId}", ordercontrollers.Detail(ordersService, logg))
		r.Post("/{orderId}/assign", ordercontrollers.Assign(ordersService, logg))
		r.Post("/{orderId}/transit", ordercontrollers.StartTransit(ordersService, logg))
		r.Post("/{orderId}/confirm", ordercontrollers.ConfirmDelivery(ordersService, logg))
		r.Post("/{orderId}/cancel", ordercontrollers.Cancel(ordersService, logg))
		r.Post("/{orderId}/status", ordercontrollers.UpdateStatus(ordersService, logg))
	})

	r.Route("/api/v1/settlements", func(r chi.Router) {
		r.Post("/collect", settlementcontrollers.Collect(settlementsService, logg))
		r.Post("/", settlementcontrollers.Create(settlementsService, logg))
		r.Get("/{settlementId}", settlementcontrollers.Detail(settlementsService, logg))
		r.Post("/{settlementId}/verify", settlementcontrollers.Verify(settlementsService, logg))
		r.Post("/{settlementId}/transfer", settlementcontrollers.Transfer(settlementsService, logg))
	})

	r.Route("/api/v1/reports", func(r chi.Router) {
		r.Get("/reconciliation", controllers.ReconciliationReport(settlementsService, logg))
		r.Get("/cod-stats", controllers.CODStats(settlementsService, logg))
	})

	return r
}
