package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the manifest module.
type Metrics struct {
	ManifestsPublished prometheus.Counter
	ManifestLookups    *prometheus.CounterVec
}

// New creates a Metrics instance with all manifest module metrics registered.
func New() *Metrics {
	return &Metrics{
		ManifestsPublished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veripass_manifests_published_total",
			Help: "Total number of rule manifests published",
		}),
		ManifestLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veripass_manifest_lookups_total",
			Help: "Total manifest lookups by kind (active, version) and result",
		}, []string{"kind", "result"}),
	}
}

// IncrementPublished records a successful manifest publication.
func (m *Metrics) IncrementPublished() {
	if m != nil {
		m.ManifestsPublished.Inc()
	}
}

// IncrementLookup records a manifest lookup outcome.
func (m *Metrics) IncrementLookup(kind, result string) {
	if m != nil {
		m.ManifestLookups.WithLabelValues(kind, result).Inc()
	}
}
