package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the scan verification pipeline. All
// methods are nil-safe so tests can pass a nil *Metrics.
type Metrics struct {
	// Scan outcomes by credential strategy
	ScansTotal *prometheus.CounterVec

	// Rejections by the check that failed
	RejectionsTotal *prometheus.CounterVec

	// Full pipeline latency, claim through commit
	VerifyLatency prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		ScansTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "checkpoint_scans_total",
			Help: "Total scan submissions by strategy and outcome",
		}, []string{"strategy", "outcome"}), // outcome: "accepted", "rejected"

		RejectionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "checkpoint_scan_rejections_total",
			Help: "Scan rejections by the pipeline check that failed",
		}, []string{"check"}), // check: "claim", "policy", "biometric", "geofence", "network", "commit"

		VerifyLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "checkpoint_scan_verify_duration_seconds",
			Help:    "Duration of full scan verification including commit",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

// ObserveScan records one submission outcome.
func (m *Metrics) ObserveScan(strategy, outcome string) {
	if m != nil {
		m.ScansTotal.WithLabelValues(strategy, outcome).Inc()
	}
}

// IncrementRejection records which check failed.
func (m *Metrics) IncrementRejection(check string) {
	if m != nil {
		m.RejectionsTotal.WithLabelValues(check).Inc()
	}
}

// ObserveLatency records the full pipeline duration.
func (m *Metrics) ObserveLatency(d time.Duration) {
	if m != nil {
		m.VerifyLatency.Observe(d.Seconds())
	}
}
