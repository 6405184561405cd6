package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCheckoutMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCheckoutMetrics(reg)
	m.IncSubmission("success")
	m.IncSubmission("failure")
	m.IncSubmission("failure")
	m.IncPixSession("created")
	m.IncDistanceLookup("")
	m.ObserveUpstream("storeapi", nil, 250*time.Millisecond)
	m.ObserveUpstream("maps", errors.New("timeout"), time.Second)
	m.SetActiveSessions(3)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "checkout_submissions_total", "result", "failure"); err != nil {
		t.Fatalf("fetch failures: %v", err)
	} else if got != 2 {
		t.Fatalf("expected failure=2, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "checkout_pix_sessions_total", "event", "created"); err != nil || got != 1 {
		t.Fatalf("expected created=1, got %f err %v", got, err)
	}

	if got, err := fetchCounterValue(mfs, "delivery_distance_lookups_total", "outcome", "unknown"); err != nil || got != 1 {
		t.Fatalf("expected empty outcome to be labelled unknown, got %f err %v", got, err)
	}

	if got, err := fetchHistogramSum(mfs, "upstream_request_duration_seconds", "result", "error"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got != 1 {
		t.Fatalf("expected error duration sum 1, got %f", got)
	}

	mf := findMetricFamily(mfs, "checkout_active_sessions")
	if mf == nil || mf.GetMetric()[0].GetGauge().GetValue() != 3 {
		t.Fatalf("expected active sessions gauge 3")
	}
}

func TestNilCheckoutMetricsIsSafe(t *testing.T) {
	var m *CheckoutMetrics
	m.IncSubmission("success")
	m.IncPixSession("created")
	m.IncDistanceLookup("ready")
	m.ObserveUpstream("maps", nil, time.Second)
	m.SetActiveSessions(1)

	NewCheckoutMetrics(nil).IncSubmission("success")
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
