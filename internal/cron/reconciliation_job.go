package cron

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mdobrescu/courierhub-backend/internal/settlements"
	"github.com/mdobrescu/courierhub-backend/pkg/logger"
)

const reportDateLayout = "2006-01-02"

type reportSource interface {
	GetDailyReconciliationReport(ctx context.Context, date string) (*settlements.ReconciliationReport, error)
}

type reportPublisher interface {
	Publish(ctx context.Context, topic string, data []byte, attrs map[string]string) (string, error)
}

// ReconciliationJobParams configure the daily snapshot job.
type ReconciliationJobParams struct {
	Logger      *logger.Logger
	Settlements reportSource
	Publisher   reportPublisher
	Topic       string
}

// NewReconciliationJob builds the job emitting the previous day's COD
// reconciliation report. The publisher is optional; without one the report
// is only logged.
func NewReconciliationJob(params ReconciliationJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Settlements == nil {
		return nil, fmt.Errorf("settlements service required")
	}
	return &reconciliationJob{
		logg:        params.Logger,
		settlements: params.Settlements,
		publisher:   params.Publisher,
		topic:       params.Topic,
		now:         time.Now,
	}, nil
}

type reconciliationJob struct {
	logg        *logger.Logger
	settlements reportSource
	publisher   reportPublisher
	topic       string
	now         func() time.Time
}

func (j *reconciliationJob) Name() string { return "daily-reconciliation" }

func (j *reconciliationJob) Run(ctx context.Context) error {
	date := j.now().UTC().AddDate(0, 0, -1).Format(reportDateLayout)

	report, err := j.settlements.GetDailyReconciliationReport(ctx, date)
	if err != nil {
		return fmt.Errorf("daily reconciliation for %s: %w", date, err)
	}

	lctx := j.logg.WithFields(ctx, map[string]any{
		"date":         report.Date,
		"total_orders": report.TotalOrders,
		"total_amount": report.TotalAmount.StringFixed(2),
		"drivers":      len(report.Drivers),
	})
	j.logg.Info(lctx, "daily reconciliation report ready")

	if j.publisher == nil || j.topic == "" {
		return nil
	}

	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshaling reconciliation report: %w", err)
	}
	attrs := map[string]string{
		"kind": "daily_reconciliation",
		"date": report.Date,
	}
	if _, err := j.publisher.Publish(ctx, j.topic, data, attrs); err != nil {
		return fmt.Errorf("publishing reconciliation report: %w", err)
	}
	return nil
}
