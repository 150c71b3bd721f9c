package pinata

import "github.com/prometheus/client_golang/prometheus"

// Metrics tracks upload activity. A nil *Metrics records nothing.
type Metrics struct {
	Pinned    *prometheus.CounterVec
	Failed    *prometheus.CounterVec
	CacheHits prometheus.Counter
}

// NewMetrics creates upload metrics and registers them with reg when reg is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Pinned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nftctl",
			Subsystem: "pinata",
			Name:      "pinned_total",
			Help:      "Successful pin requests by kind (file or json).",
		}, []string{"kind"}),
		Failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nftctl",
			Subsystem: "pinata",
			Name:      "failed_total",
			Help:      "Failed pin requests by kind (file or json).",
		}, []string{"kind"}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nftctl",
			Subsystem: "pinata",
			Name:      "cache_hits_total",
			Help:      "Uploads skipped because the content was pinned before.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Collectors()...)
	}
	return m
}

// Collectors returns every collector for registration.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.Pinned, m.Failed, m.CacheHits}
}

func (m *Metrics) pinned(kind string) {
	if m != nil {
		m.Pinned.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) failed(kind string) {
	if m != nil {
		m.Failed.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) cacheHit() {
	if m != nil {
		m.CacheHits.Inc()
	}
}
