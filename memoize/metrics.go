package memoize

import (
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts memoization outcomes. A nil *Metrics records nothing.
type Metrics struct {
	Hits          *prometheus.CounterVec
	Misses        *prometheus.CounterVec
	StoreFailures *prometheus.CounterVec
	FetchFailures *prometheus.CounterVec
	ChunksWritten prometheus.Counter
}

// NewMetrics creates the collectors under namespace. They are not registered;
// call Register.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		Hits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "memoize",
				Name:      "hits_total",
				Help:      "Total number of memoized values served from the cache",
			},
			[]string{"path"},
		),
		Misses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "memoize",
				Name:      "misses_total",
				Help:      "Total number of lookups that found no usable cached value",
			},
			[]string{"path"},
		),
		StoreFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "memoize",
				Name:      "store_failures_total",
				Help:      "Total number of computed values that could not be cached",
			},
			[]string{"path"},
		),
		FetchFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "memoize",
				Name:      "fetch_failures_total",
				Help:      "Total number of cached values that could not be read back",
			},
			[]string{"reason"},
		),
		ChunksWritten: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "memoize",
				Name:      "chunks_written_total",
				Help:      "Total number of chunks written for large values",
			},
		),
	}
}

// Collectors returns every collector in m.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.Hits, m.Misses, m.StoreFailures, m.FetchFailures, m.ChunksWritten}
}

// Register registers every collector with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return errors.Wrap(err, "memoize: register metrics")
		}
	}
	return nil
}

func (m *Metrics) hit(path string) {
	if m != nil {
		m.Hits.WithLabelValues(path).Inc()
	}
}

func (m *Metrics) miss(path string) {
	if m != nil {
		m.Misses.WithLabelValues(path).Inc()
	}
}

func (m *Metrics) storeFailure(path string) {
	if m != nil {
		m.StoreFailures.WithLabelValues(path).Inc()
	}
}

func (m *Metrics) fetchFailure(reason string) {
	if m != nil {
		m.FetchFailures.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) chunksWritten(n int) {
	if m != nil {
		m.ChunksWritten.Add(float64(n))
	}
}
