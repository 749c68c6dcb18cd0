package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RateLimitDecisions     *prometheus.CounterVec
	RateLimitEvictions     prometheus.Counter
	RateLimitTrackedClient prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RateLimitDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "flight_agent_ratelimit_decisions_total",
			Help: "Total number of rate limit decisions by outcome",
		}, []string{"outcome"}),
		RateLimitEvictions: factory.NewCounter(prometheus.CounterOpts{
			Name: "flight_agent_ratelimit_evictions_total",
			Help: "Total number of idle client windows evicted",
		}),
		RateLimitTrackedClient: factory.NewGauge(prometheus.GaugeOpts{
			Name: "flight_agent_ratelimit_tracked_clients",
			Help: "Current number of clients with rate limit state",
		}),
	}
}

func (m *Metrics) IncrementAllowed() {
	if m == nil {
		return
	}
	m.RateLimitDecisions.WithLabelValues("allowed").Inc()
}

func (m *Metrics) IncrementRejected() {
	if m == nil {
		return
	}
	m.RateLimitDecisions.WithLabelValues("rejected").Inc()
}

func (m *Metrics) AddEvicted(n int) {
	if m == nil {
		return
	}
	m.RateLimitEvictions.Add(float64(n))
}

func (m *Metrics) SetTrackedClients(n int) {
	if m == nil {
		return
	}
	m.RateLimitTrackedClient.Set(float64(n))
}
