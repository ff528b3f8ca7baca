package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// LookupMetrics tracks vehicle searches and the lookup cache.
type LookupMetrics struct {
	Duration    *prometheus.HistogramVec
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
	Errors      prometheus.Counter
}

// NewLookupMetrics creates and registers the lookup collectors.
func NewLookupMetrics(registry prometheus.Registerer) (*LookupMetrics, error) {
	m := &LookupMetrics{
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "platewatch_lookup_duration_seconds",
			Help:    "Time taken by registry queries, partitioned by result",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount10),
		}, []string{"result"}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "platewatch_lookup_cache_hits_total",
			Help: "Plate lookups answered from the cache",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "platewatch_lookup_cache_misses_total",
			Help: "Plate lookups that queried the registry",
		}),
		Errors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "platewatch_lookup_errors_total",
			Help: "Registry queries that failed with an error other than not found",
		}),
	}

	for _, c := range []prometheus.Collector{m.Duration, m.CacheHits, m.CacheMisses, m.Errors} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register lookup metrics: %w", err)
		}
	}
	return m, nil
}

// RecordQuery records one registry query.
func (m *LookupMetrics) RecordQuery(result string, seconds float64) {
	m.Duration.WithLabelValues(result).Observe(seconds)
}
