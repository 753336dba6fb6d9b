package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestIngestBatchIncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m.IngestBatch(7)
	m.IngestBatch(3)

	got := testutil.ToFloat64(m.ingested)
	if got != 10 {
		t.Fatalf("expected 10 ingested packets, got %v", got)
	}
}

func TestObserveValidationLabelsByResult(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m.ObserveValidation("Valid", 5*time.Millisecond)
	m.ObserveValidation("Invalid", 2*time.Millisecond)
	m.ObserveValidation("Valid", 1*time.Millisecond)

	if got := testutil.ToFloat64(m.validations.WithLabelValues("Valid")); got != 2 {
		t.Fatalf("expected 2 Valid outcomes, got %v", got)
	}
	if got := testutil.ToFloat64(m.validations.WithLabelValues("Invalid")); got != 1 {
		t.Fatalf("expected 1 Invalid outcome, got %v", got)
	}
}

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *Metrics
	m.IngestBatch(5)
	m.ObserveValidation("Valid", time.Second)
	m.ObserveDecodePath("peel")
}

func TestDoubleRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := New(reg); err != nil {
		t.Fatalf("first New: %v", err)
	}
	if _, err := New(reg); err == nil {
		t.Fatalf("expected a duplicate-registration error on the second New")
	}
}
