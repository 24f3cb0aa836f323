// Package metrics exposes ledger and HTTP instrumentation to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rpggio/tranche/internal/domain/vesting"
)

const namespace = "tranche"

// Ledger counts committed ledger events. It implements vesting.Observer.
type Ledger struct {
	events    *prometheus.CounterVec
	settled   prometheus.Counter
	rescued   prometheus.Counter
	paused    prometheus.Gauge
	toolCalls *prometheus.CounterVec
	toolTime  *prometheus.HistogramVec
}

// NewLedger registers the ledger collectors with reg.
func NewLedger(reg prometheus.Registerer) (*Ledger, error) {
	m := &Ledger{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_events_total",
			Help:      "Committed ledger events by type.",
		}, []string{"type"}),
		settled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "claimed_base_units_total",
			Help:      "Base units paid out by claims (float approximation).",
		}),
		rescued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rescued_base_units_total",
			Help:      "Base units swept to the rescuer (float approximation).",
		}),
		paused: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ledger_paused",
			Help:      "1 while the ledger is paused.",
		}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "MCP tool calls by tool and outcome.",
		}, []string{"tool", "outcome"}),
		toolTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_call_duration_seconds",
			Help:      "MCP tool call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tool"}),
	}

	for _, c := range []prometheus.Collector{m.events, m.settled, m.rescued, m.paused, m.toolCalls, m.toolTime} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Observe records a committed event.
func (m *Ledger) Observe(ev vesting.Event) {
	m.events.WithLabelValues(string(ev.Type())).Inc()
	switch e := ev.(type) {
	case vesting.Claimed:
		m.settled.Add(e.Amount.Float64())
	case vesting.Rescued:
		m.rescued.Add(e.Amount.Float64())
	case vesting.Paused:
		m.paused.Set(1)
	case vesting.Unpaused:
		m.paused.Set(0)
	}
}

// SetPaused seeds the pause gauge from stored state at startup.
func (m *Ledger) SetPaused(paused bool) {
	if paused {
		m.paused.Set(1)
		return
	}
	m.paused.Set(0)
}

// ObserveTool records one MCP tool call. outcome is "ok" or an error code.
func (m *Ledger) ObserveTool(tool, outcome string, elapsed time.Duration) {
	m.toolCalls.WithLabelValues(tool, outcome).Inc()
	m.toolTime.WithLabelValues(tool).Observe(elapsed.Seconds())
}

// HTTP instruments HTTP handlers.
type HTTP struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inflight prometheus.Gauge
}

// NewHTTP registers the HTTP collectors with reg.
func NewHTTP(reg prometheus.Registerer) (*HTTP, error) {
	m := &HTTP{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_inflight",
			Help:      "HTTP requests currently being served.",
		}),
	}

	for _, c := range []prometheus.Collector{m.requests, m.duration, m.inflight} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Wrap instruments handler.
func (m *HTTP) Wrap(handler http.Handler) http.Handler {
	return promhttp.InstrumentHandlerInFlight(m.inflight,
		promhttp.InstrumentHandlerDuration(m.duration,
			promhttp.InstrumentHandlerCounter(m.requests, handler)))
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
