package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/mdobrescu/courierhub-backend/api/routes"
	"github.com/mdobrescu/courierhub-backend/internal/ingest"
	"github.com/mdobrescu/courierhub-backend/internal/notifications"
	"github.com/mdobrescu/courierhub-backend/internal/orders"
	"github.com/mdobrescu/courierhub-backend/internal/settlements"
	"github.com/mdobrescu/courierhub-backend/pkg/config"
	"github.com/mdobrescu/courierhub-backend/pkg/db"
	"github.com/mdobrescu/courierhub-backend/pkg/keylock"
	"github.com/mdobrescu/courierhub-backend/pkg/logger"
	"github.com/mdobrescu/courierhub-backend/pkg/metrics"
	"github.com/mdobrescu/courierhub-backend/pkg/migrate"
	"github.com/mdobrescu/courierhub-backend/pkg/pubsub"
)

const shutdownGrace = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}

	var closers []io.Closer
	closers = append(closers, dbClient)
	defer func() {
		var closeErr error
		for _, c := range closers {
			closeErr = multierr.Append(closeErr, c.Close())
		}
		if closeErr != nil {
			logg.Error(context.Background(), "error closing resources", closeErr)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	deliveryMetrics := metrics.NewDeliveryMetrics(prometheus.DefaultRegisterer)

	var notifier notifications.Dispatcher = notifications.NoopDispatcher{}
	if cfg.Notifications.Enabled && cfg.GCP.ProjectID != "" {
		pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		closers = append(closers, pubsubClient)
		notifier = notifications.NewPubSubDispatcher(notifications.PubSubDispatcherParams{
			Client:  pubsubClient,
			Topic:   cfg.PubSub.NotificationTopic,
			Logger:  logg,
			Metrics: deliveryMetrics,
		})
	} else {
		logg.Warn(context.Background(), "notifications disabled, events will not be published")
	}

	// Orders keep flowing from the in-memory fallback while the durable
	// store is unreachable.
	ordersRepo := orders.NewFailoverRepository(
		orders.NewRepository(dbClient.DB()),
		orders.NewMemoryRepository(),
		logg,
	)

	ingestService, err := ingest.NewService(ingest.ServiceParams{
		Repo:     ordersRepo,
		Logger:   logg,
		Metrics:  deliveryMetrics,
		Notifier: notifier,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create ingest service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:     ordersRepo,
		Locks:    keylock.New(),
		Logger:   logg,
		Metrics:  deliveryMetrics,
		Notifier: notifier,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	settlementsService, err := settlements.NewService(settlements.ServiceParams{
		Repo:     settlements.NewRepository(dbClient.DB()),
		Tx:       dbClient,
		Logger:   logg,
		Metrics:  deliveryMetrics,
		Notifier: notifier,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create settlements service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, ingestService, ordersService, settlementsService),
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
			os.Exit(1)
		}
		logg.Info(ctx, "api server shut down gracefully")
	}
}
