package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the assessment module.
type Metrics struct {
	// Verdict outcomes by outcome and reason code
	VerdictOutcome *prometheus.CounterVec

	// Overall evaluation latency
	EvaluateLatency prometheus.Histogram

	// Final percentage distribution across evaluations
	ScorePercentage prometheus.Histogram
}

// New creates a Metrics instance with all assessment module metrics registered.
func New() *Metrics {
	return &Metrics{
		VerdictOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veripass_verdict_outcomes_total",
			Help: "Total verdicts by outcome and reason code",
		}, []string{"outcome", "reason"}),

		EvaluateLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "veripass_evaluate_duration_seconds",
			Help:    "Duration of full assessment evaluation including persistence",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),

		ScorePercentage: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "veripass_final_percentage",
			Help:    "Distribution of final compliance percentages",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
	}
}

// IncrementOutcome records a verdict outcome.
func (m *Metrics) IncrementOutcome(outcome, reason string) {
	if m != nil {
		m.VerdictOutcome.WithLabelValues(outcome, reason).Inc()
	}
}

// ObserveEvaluateLatency records the total evaluation duration.
func (m *Metrics) ObserveEvaluateLatency(d time.Duration) {
	if m != nil {
		m.EvaluateLatency.Observe(d.Seconds())
	}
}

// ObserveScore records a final percentage.
func (m *Metrics) ObserveScore(p float64) {
	if m != nil {
		m.ScorePercentage.Observe(p)
	}
}
