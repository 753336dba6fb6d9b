// Package telemetry exposes the Prometheus counters and histograms that
// let an operator watch the router/verifier pair live: ingestion rate,
// validation latency, and which decode path each validation took.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the instruments the router and verifier both draw from.
// A nil *Metrics is safe to call methods on — every method is a no-op in
// that case, so telemetry can be wired in optionally without a sprinkling
// of nil-checks at every call site.
type Metrics struct {
	ingested         prometheus.Counter
	validations      *prometheus.CounterVec
	validateDuration prometheus.Histogram
	decodePath       *prometheus.CounterVec
}

// New registers the telemetry instruments against reg and returns a
// Metrics handle. Pass prometheus.NewRegistry() for isolated tests, or
// prometheus.DefaultRegisterer in production.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		ingested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quack_packets_ingested_total",
			Help: "Total packets folded into the router's accumulator.",
		}),
		validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quack_validations_total",
			Help: "Validation outcomes by result.",
		}, []string{"result"}),
		validateDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "quack_validate_duration_seconds",
			Help:    "Wall-clock time spent in Accumulator.Validate.",
			Buckets: prometheus.DefBuckets,
		}),
		decodePath: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quack_decode_path_total",
			Help: "Which decode path a validation took (peel-only vs peel+ILP).",
		}, []string{"path"}),
	}
	for _, c := range []prometheus.Collector{m.ingested, m.validations, m.validateDuration, m.decodePath} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// IngestBatch records count freshly ingested packets.
func (m *Metrics) IngestBatch(count int) {
	if m == nil {
		return
	}
	m.ingested.Add(float64(count))
}

// ObserveValidation records a validation outcome and how long it took.
func (m *Metrics) ObserveValidation(result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.validations.WithLabelValues(result).Inc()
	m.validateDuration.Observe(elapsed.Seconds())
}

// ObserveDecodePath records which decode path (e.g. "peel", "peel+ilp",
// "roots", "roots+collision") a validation resolved through.
func (m *Metrics) ObserveDecodePath(path string) {
	if m == nil {
		return
	}
	m.decodePath.WithLabelValues(path).Inc()
}
