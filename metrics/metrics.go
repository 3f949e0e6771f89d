// Package metrics exposes Prometheus counters for the room broker.
//
// All recording methods are safe to call on a nil *Metrics, so components
// can run without instrumentation in tests.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "roombroker"

// Metrics holds the broker's collectors and their private registry
type Metrics struct {
	registry  *prometheus.Registry
	received  *prometheus.CounterVec
	delivered *prometheus.CounterVec
	failed    *prometheus.CounterVec
	rejected  *prometheus.CounterVec
	reaped    prometheus.Counter
}

// New creates the collectors on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		received: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_received_total",
			Help:      "Inbound protocol events by name.",
		}, []string{"event"}),
		delivered: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_delivered_total",
			Help:      "Outbound events handed to the transport, by name.",
		}, []string{"event"}),
		failed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_failures_total",
			Help:      "Outbound events the transport could not accept, by name.",
		}, []string{"event"}),
		rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_rejected_total",
			Help:      "Requests answered with a -ko reply, by reason.",
		}, []string{"reason"}),
		reaped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rooms_reaped_total",
			Help:      "Rooms deleted after their last occupant left.",
		}),
	}
}

// TrackGauges registers gauges that sample the live identity and room counts
func (m *Metrics) TrackGauges(identities, rooms func() int) {
	if m == nil {
		return
	}
	factory := promauto.With(m.registry)
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "identities",
		Help:      "Connections that completed hello.",
	}, func() float64 { return float64(identities()) })
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "rooms",
		Help:      "Rooms currently registered.",
	}, func() float64 { return float64(rooms()) })
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) EventReceived(event string) {
	if m != nil {
		m.received.WithLabelValues(event).Inc()
	}
}

func (m *Metrics) EventDelivered(event string) {
	if m != nil {
		m.delivered.WithLabelValues(event).Inc()
	}
}

func (m *Metrics) DeliveryFailed(event string) {
	if m != nil {
		m.failed.WithLabelValues(event).Inc()
	}
}

func (m *Metrics) RequestRejected(reason string) {
	if m != nil {
		m.rejected.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) RoomReaped() {
	if m != nil {
		m.reaped.Inc()
	}
}
