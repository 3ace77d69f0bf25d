package cron

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mdobrescu/courierhub-backend/internal/settlements"
)

type fakeReportSource struct {
	report *settlements.ReconciliationReport
	err    error
	dates  []string
}

func (f *fakeReportSource) GetDailyReconciliationReport(_ context.Context, date string) (*settlements.ReconciliationReport, error) {
	f.dates = append(f.dates, date)
	if f.err != nil {
		return nil, f.err
	}
	return f.report, nil
}

type fakeReportPublisher struct {
	topic string
	data  []byte
	attrs map[string]string
	err   error
}

func (f *fakeReportPublisher) Publish(_ context.Context, topic string, data []byte, attrs map[string]string) (string, error) {
	f.topic = topic
	f.data = data
	f.attrs = attrs
	return "msg-1", f.err
}

func TestReconciliationJobPublishesYesterday(t *testing.T) {
	source := &fakeReportSource{report: &settlements.ReconciliationReport{
		Date:        "2026-02-04",
		TotalOrders: 2,
		TotalAmount: decimal.RequireFromString("125.00"),
	}}
	publisher := &fakeReportPublisher{}

	job, err := NewReconciliationJob(ReconciliationJobParams{
		Logger:      testLogger(),
		Settlements: source,
		Publisher:   publisher,
		Topic:       "reconciliation-reports",
	})
	if err != nil {
		t.Fatalf("NewReconciliationJob: %v", err)
	}
	job.(*reconciliationJob).now = func() time.Time {
		return time.Date(2026, 2, 5, 6, 0, 0, 0, time.UTC)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(source.dates) != 1 || source.dates[0] != "2026-02-04" {
		t.Fatalf("queried dates %v, want the previous day", source.dates)
	}
	if publisher.topic != "reconciliation-reports" {
		t.Errorf("topic = %q", publisher.topic)
	}
	if publisher.attrs["date"] != "2026-02-04" || publisher.attrs["kind"] != "daily_reconciliation" {
		t.Errorf("attrs = %v", publisher.attrs)
	}

	var published settlements.ReconciliationReport
	if err := json.Unmarshal(publisher.data, &published); err != nil {
		t.Fatalf("unmarshal published report: %v", err)
	}
	if published.TotalOrders != 2 {
		t.Errorf("published total orders = %d, want 2", published.TotalOrders)
	}
}

func TestReconciliationJobSurfacesSourceError(t *testing.T) {
	source := &fakeReportSource{err: errors.New("db down")}

	job, err := NewReconciliationJob(ReconciliationJobParams{
		Logger:      testLogger(),
		Settlements: source,
	})
	if err != nil {
		t.Fatalf("NewReconciliationJob: %v", err)
	}

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected the source error to propagate")
	}
}

func TestReconciliationJobWithoutPublisherOnlyLogs(t *testing.T) {
	source := &fakeReportSource{report: &settlements.ReconciliationReport{
		Date:        "2026-02-04",
		TotalAmount: decimal.Zero,
	}}

	job, err := NewReconciliationJob(ReconciliationJobParams{
		Logger:      testLogger(),
		Settlements: source,
	})
	if err != nil {
		t.Fatalf("NewReconciliationJob: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run without publisher: %v", err)
	}
}
