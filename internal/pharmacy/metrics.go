package pharmacy

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for pharmacy data access.
type Metrics struct {
	fetchFailures *prometheus.CounterVec
}

var (
	defaultMetricsOnce sync.Once
	defaultMetrics     *Metrics
)

// NewMetrics registers the pharmacy collectors. A nil registerer uses the
// default Prometheus registerer once.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultMetricsOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer)
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "medconnect_pharmacy_fetch_failures_total",
		Help: "Record store fetches that failed and were served as empty collections.",
	}, []string{"collection"})
	registerer.MustRegister(failures)
	return &Metrics{fetchFailures: failures}
}

// FetchFailed counts a swallowed fetch failure for the collection.
func (m *Metrics) FetchFailed(kind Kind) {
	if m == nil {
		return
	}
	m.fetchFailures.WithLabelValues(string(kind)).Inc()
}
