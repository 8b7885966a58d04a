package verifier

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the public verification surface.
type Metrics struct {
	Checks  *prometheus.CounterVec
	Sources *prometheus.CounterVec
}

// NewMetrics creates a Metrics instance with all verifier metrics registered.
func NewMetrics() *Metrics {
	return &Metrics{
		Checks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veripass_verification_checks_total",
			Help: "Total public verification checks by result (VALID, EXPIRED, unknown)",
		}, []string{"result"}),
		Sources: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veripass_verification_lookups_total",
			Help: "Total verification lookups by source (cache, store)",
		}, []string{"source"}),
	}
}

// IncrementCheck records a verification check result.
func (m *Metrics) IncrementCheck(result string) {
	if m != nil {
		m.Checks.WithLabelValues(result).Inc()
	}
}

// IncrementSource records where a verification lookup was served from.
func (m *Metrics) IncrementSource(source string) {
	if m != nil {
		m.Sources.WithLabelValues(source).Inc()
	}
}
