package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline outcomes.
const (
	OutcomeCacheHit      = "cache_hit"
	OutcomeGenerated     = "generated"
	OutcomeMock          = "mock"
	OutcomeUpstreamError = "upstream_error"
	OutcomeUnprocessable = "unprocessable_plan"
	OutcomeInternalError = "internal_error"
)

// Metrics covers the agent pipeline: cache, upstream calls and outcomes.
type Metrics struct {
	Requests      *prometheus.CounterVec
	CacheHits     prometheus.Counter
	CacheMisses   prometheus.Counter
	CacheEvicted  prometheus.Counter
	CacheEntries  prometheus.Gauge
	LLMCalls      *prometheus.CounterVec
	LLMLatency    prometheus.Histogram
	PlanSteps     prometheus.Histogram
	CoalescedMiss prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "flight_agent_agent_requests_total",
			Help: "Total number of agent requests by pipeline outcome",
		}, []string{"outcome"}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "flight_agent_cache_hits_total",
			Help: "Total number of response cache hits",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "flight_agent_cache_misses_total",
			Help: "Total number of response cache misses",
		}),
		CacheEvicted: factory.NewCounter(prometheus.CounterOpts{
			Name: "flight_agent_cache_evictions_total",
			Help: "Total number of expired cache records removed",
		}),
		CacheEntries: factory.NewGauge(prometheus.GaugeOpts{
			Name: "flight_agent_cache_entries",
			Help: "Current number of cached responses",
		}),
		LLMCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "flight_agent_llm_calls_total",
			Help: "Total number of upstream LLM calls by outcome",
		}, []string{"outcome"}),
		LLMLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "flight_agent_llm_call_duration_seconds",
			Help:    "Upstream LLM call latency",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}),
		PlanSteps: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "flight_agent_plan_steps",
			Help:    "Number of steps in generated plans",
			Buckets: prometheus.LinearBuckets(0, 2, 8),
		}),
		CoalescedMiss: factory.NewCounter(prometheus.CounterOpts{
			Name: "flight_agent_coalesced_misses_total",
			Help: "Total number of cache misses served by another in-flight request",
		}),
	}
}

func (m *Metrics) IncrementRequests(outcome string) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementHits() {
	if m == nil {
		return
	}
	m.CacheHits.Inc()
}

func (m *Metrics) IncrementMisses() {
	if m == nil {
		return
	}
	m.CacheMisses.Inc()
}

func (m *Metrics) AddEvictions(n int) {
	if m == nil {
		return
	}
	m.CacheEvicted.Add(float64(n))
}

func (m *Metrics) SetEntries(n int) {
	if m == nil {
		return
	}
	m.CacheEntries.Set(float64(n))
}

func (m *Metrics) ObserveCall(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.LLMCalls.WithLabelValues(outcome).Inc()
	m.LLMLatency.Observe(elapsed.Seconds())
}

func (m *Metrics) ObservePlanSteps(n int) {
	if m == nil {
		return
	}
	m.PlanSteps.Observe(float64(n))
}

func (m *Metrics) IncrementCoalesced() {
	if m == nil {
		return
	}
	m.CoalescedMiss.Inc()
}
