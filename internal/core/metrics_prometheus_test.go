package core

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestPrometheusMetricsRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	recorder, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	recorder.Observe(context.Background(), "create_sheet", true, 20*time.Millisecond)
	recorder.Observe(context.Background(), "create_sheet", false, 5*time.Millisecond)
	recorder.Observe(context.Background(), "", true, time.Millisecond)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	var sawCounter, sawHistogram bool
	for _, family := range families {
		switch family.GetName() {
		case "notations_operations_total":
			sawCounter = true
			var total float64
			for _, metric := range family.GetMetric() {
				total += metric.GetCounter().GetValue()
			}
			if total != 2 {
				t.Errorf("operations_total = %v, want 2", total)
			}
		case "notations_operation_duration_seconds":
			sawHistogram = true
			for _, metric := range family.GetMetric() {
				if metric.GetHistogram().GetSampleCount() != 2 {
					t.Errorf("histogram samples = %d, want 2", metric.GetHistogram().GetSampleCount())
				}
			}
		}
	}
	if !sawCounter || !sawHistogram {
		t.Fatalf("missing collectors: counter=%v histogram=%v", sawCounter, sawHistogram)
	}
}

func TestPrometheusMetricsRecorderDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPrometheusMetricsRecorder(reg); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if _, err := NewPrometheusMetricsRecorder(reg); err == nil {
		t.Fatal("second registration on the same registry must fail")
	}
}
