package prometheus

import (
	"github.com/marmos91/gopherd/pkg/cache"
	"github.com/marmos91/gopherd/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// cacheMetrics is the Prometheus implementation of cache.Metrics.
type cacheMetrics struct {
	lookups *prometheus.CounterVec
	entries *prometheus.GaugeVec
}

// NewCacheMetrics creates a new Prometheus-backed cache.Metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called), which
// makes cache.Instrument return the store unwrapped.
func NewCacheMetrics() cache.Metrics {
	if !metrics.IsEnabled() {
		return nil
	}
	return newCacheMetrics(metrics.GetRegistry())
}

func newCacheMetrics(reg prometheus.Registerer) *cacheMetrics {
	return &cacheMetrics{
		lookups: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "gopherd_cache_lookups_total",
				Help: "Total number of cache lookups by cache and result",
			},
			[]string{"cache", "result"}, // result: hit or miss
		),
		entries: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gopherd_cache_entries",
				Help: "Current number of entries per cache",
			},
			[]string{"cache"},
		),
	}
}

func (m *cacheMetrics) RecordHit(name string) {
	m.lookups.WithLabelValues(name, "hit").Inc()
}

func (m *cacheMetrics) RecordMiss(name string) {
	m.lookups.WithLabelValues(name, "miss").Inc()
}

func (m *cacheMetrics) SetEntries(name string, n int) {
	m.entries.WithLabelValues(name).Set(float64(n))
}
