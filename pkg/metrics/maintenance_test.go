package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestMaintenanceMetricsSplitsResults(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMaintenanceMetrics(reg)

	m.ObserveRun("storage-purge", nil, 2*time.Second)
	m.ObserveRun("storage-purge", errors.New("boom"), time.Second)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	failures, err := fetchCounterValue(mfs, "maintenance_job_runs_total", "result", "failure")
	if err != nil {
		t.Fatalf("failure counter: %v", err)
	}
	if failures != 1 {
		t.Fatalf("expected 1 failure, got %v", failures)
	}
	sum, err := fetchHistogramSum(mfs, "maintenance_job_duration_seconds", "job", "storage-purge")
	if err != nil {
		t.Fatalf("duration histogram: %v", err)
	}
	if sum != 3 {
		t.Fatalf("expected 3s observed, got %v", sum)
	}

	var nilMetrics *MaintenanceMetrics
	nilMetrics.ObserveRun("x", nil, time.Second)
}
