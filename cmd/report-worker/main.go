package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mdobrescu/courierhub-backend/internal/cron"
	"github.com/mdobrescu/courierhub-backend/internal/settlements"
	"github.com/mdobrescu/courierhub-backend/pkg/config"
	"github.com/mdobrescu/courierhub-backend/pkg/db"
	"github.com/mdobrescu/courierhub-backend/pkg/logger"
	"github.com/mdobrescu/courierhub-backend/pkg/metrics"
	"github.com/mdobrescu/courierhub-backend/pkg/migrate"
	"github.com/mdobrescu/courierhub-backend/pkg/pubsub"
	"github.com/mdobrescu/courierhub-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "report-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "report-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	settlementsService, err := settlements.NewService(settlements.ServiceParams{
		Repo:   settlements.NewRepository(dbClient.DB()),
		Tx:     dbClient,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create settlements service", err)
		os.Exit(1)
	}

	jobParams := cron.ReconciliationJobParams{
		Logger:      logg,
		Settlements: settlementsService,
	}
	if cfg.GCP.ProjectID != "" {
		pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}()
		jobParams.Publisher = pubsubClient
		jobParams.Topic = cfg.PubSub.NotificationTopic
	}

	reconciliationJob, err := cron.NewReconciliationJob(jobParams)
	if err != nil {
		logg.Error(context.Background(), "failed to create reconciliation job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(cfg.Report.LockKey), cfg.Report.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create report lock", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry()
	registry.Register(reconciliationJob)

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Report.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create report worker", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env})
	logg.Info(ctx, "starting report worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "report worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "report worker shutting down gracefully")
}
