package vrf

import "github.com/prometheus/client_golang/prometheus"

// Metrics tracks registry activity. A nil *Metrics records nothing.
type Metrics struct {
	Pending   prometheus.Gauge
	Fulfilled prometheus.Counter
	Unknown   prometheus.Counter
	Expired   prometheus.Counter
	Cancelled prometheus.Counter
}

// NewMetrics creates registry metrics and registers them with reg when reg
// is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "nftctl",
			Subsystem: "vrf",
			Name:      "pending_requests",
			Help:      "Randomness requests awaiting fulfillment.",
		}),
		Fulfilled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nftctl",
			Subsystem: "vrf",
			Name:      "fulfilled_total",
			Help:      "Randomness requests fulfilled.",
		}),
		Unknown: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nftctl",
			Subsystem: "vrf",
			Name:      "unknown_fulfillments_total",
			Help:      "Fulfillments for ids with no pending request.",
		}),
		Expired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nftctl",
			Subsystem: "vrf",
			Name:      "expired_total",
			Help:      "Requests dropped after exceeding the observation window.",
		}),
		Cancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nftctl",
			Subsystem: "vrf",
			Name:      "cancelled_total",
			Help:      "Requests cancelled by their caller.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Collectors()...)
	}
	return m
}

// Collectors returns every collector for registration.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.Pending,
		m.Fulfilled,
		m.Unknown,
		m.Expired,
		m.Cancelled,
	}
}

func (m *Metrics) pending(n int) {
	if m != nil {
		m.Pending.Set(float64(n))
	}
}

func (m *Metrics) count(c prometheus.Counter) {
	if c != nil {
		c.Inc()
	}
}

func (m *Metrics) unknownCounter() prometheus.Counter {
	if m == nil {
		return nil
	}
	return m.Unknown
}

func (m *Metrics) fulfilledCounter() prometheus.Counter {
	if m == nil {
		return nil
	}
	return m.Fulfilled
}

func (m *Metrics) expiredCounter() prometheus.Counter {
	if m == nil {
		return nil
	}
	return m.Expired
}

func (m *Metrics) cancelledCounter() prometheus.Counter {
	if m == nil {
		return nil
	}
	return m.Cancelled
}
