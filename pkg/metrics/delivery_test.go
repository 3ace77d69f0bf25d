package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestDeliveryMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewDeliveryMetrics(reg)

	metrics.IncIngested("packwise", "created")
	metrics.IncIngested("packwise", "duplicate")
	metrics.IncTransition("assigned")
	metrics.IncNotification("order_delivered", "ok")
	metrics.IncSettlementAction("verify")
	metrics.ObserveIngestDuration("packwise", 40*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "orders_ingested_total", "source", "packwise"); err != nil {
		t.Fatalf("fetch ingested: %v", err)
	} else if got != 1 {
		t.Fatalf("expected ingested created=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "order_transitions_total", "status", "assigned"); err != nil {
		t.Fatalf("fetch transitions: %v", err)
	} else if got != 1 {
		t.Fatalf("expected transitions=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "settlement_actions_total", "action", "verify"); err != nil {
		t.Fatalf("fetch settlement actions: %v", err)
	} else if got != 1 {
		t.Fatalf("expected settlement actions=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "order_ingest_duration_seconds", "source", "packwise"); err != nil {
		t.Fatalf("fetch ingest duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestDeliveryMetricsNilReceiverIsSafe(t *testing.T) {
	var metrics *DeliveryMetrics
	metrics.IncIngested("packwise", "created")
	metrics.IncTransition("assigned")
	metrics.IncNotification("order_created", "ok")
	metrics.IncSettlementAction("create")
	metrics.ObserveIngestDuration("packwise", time.Millisecond)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
