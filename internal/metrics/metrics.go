package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tinylink"

// Link sources for LinksCreated
const (
	SourceCustom    = "custom"
	SourceGenerated = "generated"
)

// Resolve outcomes for Resolves
const (
	ResultHit  = "hit"
	ResultMiss = "miss"
)

// Metrics holds the service collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	linksCreated       *prometheus.CounterVec
	createConflicts    prometheus.Counter
	generationRetries  prometheus.Counter
	generationExhausts prometheus.Counter
	resolves           *prometheus.CounterVec
	linksDeleted       prometheus.Counter
	clickFlushes       *prometheus.CounterVec
	pendingClicks      prometheus.Gauge
	requestDuration    *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		linksCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "links_created_total",
			Help:      "Links created, by code source.",
		}, []string{"source"}),
		createConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "create_conflicts_total",
			Help:      "Create requests rejected because the custom code was taken.",
		}),
		generationRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_retries_total",
			Help:      "Generated codes that collided and were retried.",
		}),
		generationExhausts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_exhausted_total",
			Help:      "Create requests that ran out of generation attempts.",
		}),
		resolves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolves_total",
			Help:      "Resolve calls, by result.",
		}, []string{"result"}),
		linksDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "links_deleted_total",
			Help:      "Links deleted.",
		}),
		clickFlushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "click_flushes_total",
			Help:      "Buffered click flushes, by result.",
		}, []string{"result"}),
		pendingClicks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_clicks",
			Help:      "Codes with clicks waiting to be flushed.",
		}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.linksCreated,
			m.createConflicts,
			m.generationRetries,
			m.generationExhausts,
			m.resolves,
			m.linksDeleted,
			m.clickFlushes,
			m.pendingClicks,
			m.requestDuration,
		)
	}

	return m
}

// LinkCreated counts a successful create
func (m *Metrics) LinkCreated(source string) {
	if m == nil {
		return
	}
	m.linksCreated.WithLabelValues(source).Inc()
}

// CreateConflict counts a custom code that was already live
func (m *Metrics) CreateConflict() {
	if m == nil {
		return
	}
	m.createConflicts.Inc()
}

// GenerationRetry counts one colliding generated code
func (m *Metrics) GenerationRetry() {
	if m == nil {
		return
	}
	m.generationRetries.Inc()
}

// GenerationExhausted counts a create that gave up
func (m *Metrics) GenerationExhausted() {
	if m == nil {
		return
	}
	m.generationExhausts.Inc()
}

// Resolved counts a resolve by outcome
func (m *Metrics) Resolved(result string) {
	if m == nil {
		return
	}
	m.resolves.WithLabelValues(result).Inc()
}

// LinkDeleted counts a successful delete
func (m *Metrics) LinkDeleted() {
	if m == nil {
		return
	}
	m.linksDeleted.Inc()
}

// ClickFlush counts a buffered click flush
func (m *Metrics) ClickFlush(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.clickFlushes.WithLabelValues(result).Inc()
}

// SetPendingClicks reports the number of codes waiting to be flushed
func (m *Metrics) SetPendingClicks(n int) {
	if m == nil {
		return
	}
	m.pendingClicks.Set(float64(n))
}

// ObserveRequest records one HTTP request
func (m *Metrics) ObserveRequest(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, route, status).Observe(seconds)
}
