package infra

import (
	"sync/atomic"
	"time"

	"risk_market/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// risk_market_orders_submitted_total
	//
	// counter of accepted order submissions, labelled by outcome and category
	OrdersSubmittedMetricName = "risk_market_orders_submitted_total"

	// risk_market_matches_total
	//
	// counter of match records, labelled by kind (direct, minting, merge)
	MatchesMetricName = "risk_market_matches_total"

	// risk_market_orders_cancelled_total
	OrdersCancelledMetricName = "risk_market_orders_cancelled_total"

	// risk_market_orders_rejected_total
	//
	// counter of submissions rejected by validation
	OrdersRejectedMetricName = "risk_market_orders_rejected_total"

	// risk_market_events_dropped_total
	//
	// counter of events dropped because the dispatcher inbox was full
	EventsDroppedMetricName = "risk_market_events_dropped_total"

	// risk_market_errors_total
	ErrorsMetricName = "risk_market_errors_total"
)

// Metrics keeps atomic counters for Snapshot and mirrors them into prometheus collectors.
// All methods are safe on a nil receiver.
type Metrics struct {
	// Counters
	ordersSubmitted atomic.Uint64
	ordersCancelled atomic.Uint64
	ordersRejected  atomic.Uint64
	matchesDirect   atomic.Uint64
	matchesMinting  atomic.Uint64
	matchesMerge    atomic.Uint64
	eventsDropped   atomic.Uint64
	errorsTotal     atomic.Uint64

	// Latency tracking
	latencySumNs atomic.Int64
	latencyCount atomic.Uint64

	// Gauges
	activeConnections atomic.Int32

	submittedCounter *prometheus.CounterVec
	matchCounter     *prometheus.CounterVec
	cancelledCounter prometheus.Counter
	rejectedCounter  prometheus.Counter
	droppedCounter   prometheus.Counter
	errorCounter     prometheus.Counter
	latencyHistogram prometheus.Histogram
}

// NewMetrics creates metrics registered on reg. A nil reg keeps the collectors unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		submittedCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: OrdersSubmittedMetricName,
			Help: "counter of accepted order submissions",
		}, []string{"outcome", "category"}),
		matchCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MatchesMetricName,
			Help: "counter of match records by kind",
		}, []string{"kind"}),
		cancelledCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Name: OrdersCancelledMetricName,
			Help: "counter of successful cancellations",
		}),
		rejectedCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Name: OrdersRejectedMetricName,
			Help: "counter of submissions rejected by validation",
		}),
		droppedCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Name: EventsDroppedMetricName,
			Help: "counter of events dropped because the dispatcher inbox was full",
		}),
		errorCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Name: ErrorsMetricName,
			Help: "counter of failed requests",
		}),
		latencyHistogram: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "risk_market_submit_duration_seconds",
			Help:    "time spent persisting and matching one submission",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.submittedCounter,
			m.matchCounter,
			m.cancelledCounter,
			m.rejectedCounter,
			m.droppedCounter,
			m.errorCounter,
			m.latencyHistogram,
		)
	}
	return m
}

// RecordSubmit records an accepted order with its persist+match latency.
func (m *Metrics) RecordSubmit(order *domain.Order, latency time.Duration) {
	if m == nil {
		return
	}
	m.ordersSubmitted.Add(1)
	m.latencySumNs.Add(latency.Nanoseconds())
	m.latencyCount.Add(1)
	m.submittedCounter.WithLabelValues(string(order.Outcome), string(order.Category)).Inc()
	m.latencyHistogram.Observe(latency.Seconds())
}

// RecordMatch records one match record of the given kind.
func (m *Metrics) RecordMatch(kind domain.MatchKind) {
	if m == nil {
		return
	}
	switch kind {
	case domain.MatchDirect:
		m.matchesDirect.Add(1)
	case domain.MatchMinting:
		m.matchesMinting.Add(1)
	case domain.MatchMerge:
		m.matchesMerge.Add(1)
	}
	m.matchCounter.WithLabelValues(string(kind)).Inc()
}

// RecordCancel records a successful cancellation.
func (m *Metrics) RecordCancel() {
	if m == nil {
		return
	}
	m.ordersCancelled.Add(1)
	m.cancelledCounter.Inc()
}

// RecordRejected records a submission rejected by validation.
func (m *Metrics) RecordRejected() {
	if m == nil {
		return
	}
	m.ordersRejected.Add(1)
	m.rejectedCounter.Inc()
}

// RecordDropped records an event dropped by the dispatcher.
func (m *Metrics) RecordDropped() {
	if m == nil {
		return
	}
	m.eventsDropped.Add(1)
	m.droppedCounter.Inc()
}

// RecordError records an error occurrence.
func (m *Metrics) RecordError() {
	if m == nil {
		return
	}
	m.errorsTotal.Add(1)
	m.errorCounter.Inc()
}

// IncrementConnections increments active connections by 1.
func (m *Metrics) IncrementConnections() {
	if m == nil {
		return
	}
	m.activeConnections.Add(1)
}

// DecrementConnections decrements active connections by 1.
func (m *Metrics) DecrementConnections() {
	if m == nil {
		return
	}
	m.activeConnections.Add(-1)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	OrdersSubmitted   uint64    `json:"ordersSubmitted"`
	OrdersCancelled   uint64    `json:"ordersCancelled"`
	OrdersRejected    uint64    `json:"ordersRejected"`
	MatchesDirect     uint64    `json:"matchesDirect"`
	MatchesMinting    uint64    `json:"matchesMinting"`
	MatchesMerge      uint64    `json:"matchesMerge"`
	EventsDropped     uint64    `json:"eventsDropped"`
	ErrorsTotal       uint64    `json:"errorsTotal"`
	AvgLatencyNs      int64     `json:"avgLatencyNs"`
	ActiveConnections int32     `json:"activeConnections"`
	Timestamp         time.Time `json:"timestamp"`
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{Timestamp: time.Now()}
	}

	var avgLatency int64
	count := m.latencyCount.Load()
	if count > 0 {
		avgLatency = m.latencySumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		OrdersSubmitted:   m.ordersSubmitted.Load(),
		OrdersCancelled:   m.ordersCancelled.Load(),
		OrdersRejected:    m.ordersRejected.Load(),
		MatchesDirect:     m.matchesDirect.Load(),
		MatchesMinting:    m.matchesMinting.Load(),
		MatchesMerge:      m.matchesMerge.Load(),
		EventsDropped:     m.eventsDropped.Load(),
		ErrorsTotal:       m.errorsTotal.Load(),
		AvgLatencyNs:      avgLatency,
		ActiveConnections: m.activeConnections.Load(),
		Timestamp:         time.Now(),
	}
}
