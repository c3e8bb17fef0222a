package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the gateway's prometheus collectors. Construct one per
// process (or per test) with its own Registerer to avoid duplicate
// registration panics.
type Metrics struct {
	ConnectionsActive   prometheus.Gauge
	ConnectionsTotal    prometheus.Counter
	AuthFailuresTotal   prometheus.Counter
	BroadcastsTotal     *prometheus.CounterVec
	DeliveriesTotal     prometheus.Counter
	DroppedSendsTotal   prometheus.Counter
	PresenceEventsTotal prometheus.Counter
	EventsConsumedTotal *prometheus.CounterVec
	EventsDroppedTotal  *prometheus.CounterVec
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPDuration        *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gateway_connections_active",
			Help: "Number of currently connected websocket clients.",
		}),
		ConnectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateway_connections_total",
			Help: "Total accepted websocket connections.",
		}),
		AuthFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateway_auth_failures_total",
			Help: "Connection attempts rejected during authentication.",
		}),
		BroadcastsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_broadcasts_total",
			Help: "Broadcasts issued, by outbound event name.",
		}, []string{"event"}),
		DeliveriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateway_deliveries_total",
			Help: "Per-connection message deliveries.",
		}),
		DroppedSendsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateway_dropped_sends_total",
			Help: "Sends dropped because a client's outbound buffer was full.",
		}),
		PresenceEventsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateway_presence_events_total",
			Help: "Presence notifications emitted to tenant rooms.",
		}),
		EventsConsumedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_events_consumed_total",
			Help: "Domain events consumed from the event source, by event name.",
		}, []string{"event"}),
		EventsDroppedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_events_dropped_total",
			Help: "Domain events dropped, by event name and reason.",
		}, []string{"event", "reason"}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_http_requests_total",
			Help: "HTTP requests served, by method, path and status.",
		}, []string{"method", "path", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gateway_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}

	reg.MustRegister(
		m.ConnectionsActive,
		m.ConnectionsTotal,
		m.AuthFailuresTotal,
		m.BroadcastsTotal,
		m.DeliveriesTotal,
		m.DroppedSendsTotal,
		m.PresenceEventsTotal,
		m.EventsConsumedTotal,
		m.EventsDroppedTotal,
		m.HTTPRequestsTotal,
		m.HTTPDuration,
	)

	return m
}

// NewForTest returns a Metrics backed by a throwaway registry.
func NewForTest() *Metrics {
	return New(prometheus.NewRegistry())
}
