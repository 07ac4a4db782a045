package observability

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// CacheMetrics counts cache hits and misses per named cache.
type CacheMetrics struct {
	hits   *prometheus.CounterVec
	misses *prometheus.CounterVec
}

// NewCacheMetrics registers the cache counters on reg, reusing collectors
// that are already registered.
func NewCacheMetrics(reg prometheus.Registerer) (*CacheMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	hits, err := registerCounter(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "peopledesk_cache_hits_total",
		Help: "Cache reads served from Redis.",
	}, []string{"cache"}))
	if err != nil {
		return nil, err
	}
	misses, err := registerCounter(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "peopledesk_cache_misses_total",
		Help: "Cache reads that fell through to the database.",
	}, []string{"cache"}))
	if err != nil {
		return nil, err
	}
	return &CacheMetrics{hits: hits, misses: misses}, nil
}

// Hit counts a read served from cache.
func (m *CacheMetrics) Hit(cache string) {
	if m != nil {
		m.hits.WithLabelValues(cache).Inc()
	}
}

// Miss counts a read that had to load.
func (m *CacheMetrics) Miss(cache string) {
	if m != nil {
		m.misses.WithLabelValues(cache).Inc()
	}
}

func registerCounter(reg prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return c, nil
}
