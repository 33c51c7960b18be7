package metrics

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestRealtimeMetricsExportsGaugeAndCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewRealtimeMetrics(reg)

	metrics.ConnOpened()
	metrics.ConnOpened()
	metrics.ConnClosed()
	metrics.IncSent("notification")
	metrics.IncSent("notification")
	metrics.IncDropped("notification")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchGaugeValue(mfs, "realtime_open_connections"); err != nil {
		t.Fatalf("fetch gauge: %v", err)
	} else if got != 1 {
		t.Fatalf("expected open connections=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "realtime_pushes_sent", "event", "notification"); err != nil {
		t.Fatalf("fetch sent: %v", err)
	} else if got != 2 {
		t.Fatalf("expected sent=2, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "realtime_pushes_dropped", "event", "notification"); err != nil {
		t.Fatalf("fetch dropped: %v", err)
	} else if got != 1 {
		t.Fatalf("expected dropped=1, got %f", got)
	}
}

func TestRealtimeMetricsNilRegistererIsNoop(t *testing.T) {
	metrics := NewRealtimeMetrics(nil)
	metrics.ConnOpened()
	metrics.ConnClosed()
	metrics.IncSent("notification")
	metrics.IncDropped("")
}

func fetchGaugeValue(mfs []*dto.MetricFamily, name string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	metrics := mf.GetMetric()
	if len(metrics) == 0 {
		return 0, fmt.Errorf("metric %q has no samples", name)
	}
	return metrics[0].GetGauge().GetValue(), nil
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
