// Package metrics exposes the supervisor and cache's internal counters as
// Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry wraps the Prometheus collectors for one stream connection.
type Registry struct {
	ConnectionState   prometheus.Gauge
	Reconnects        prometheus.Counter
	AuthFailures      prometheus.Counter
	HeartbeatsSent    prometheus.Counter
	MessagesReceived  *prometheus.CounterVec
	CachedMarkets     prometheus.Gauge
	CachedOrderBooks  prometheus.Gauge
	StreamLatencyMs   prometheus.Histogram
}

// NewRegistry creates the stream client's Prometheus collectors.
func NewRegistry() *Registry {
	return &Registry{
		ConnectionState: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "bfstream_connection_state",
			Help: "Current supervisor connection state (0=disconnected, 1=connected, 2=authenticated)",
		}),
		Reconnects: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bfstream_reconnects_total",
			Help: "Total number of reconnect attempts made by the supervisor",
		}),
		AuthFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bfstream_auth_failures_total",
			Help: "Total number of authentication handshake failures",
		}),
		HeartbeatsSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bfstream_heartbeats_sent_total",
			Help: "Total number of heartbeat requests sent to the server",
		}),
		MessagesReceived: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bfstream_messages_received_total",
			Help: "Total number of decoded response messages, by operation",
		}, []string{"op"}),
		CachedMarkets: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "bfstream_cached_markets",
			Help: "Number of market books currently held in the tracker",
		}),
		CachedOrderBooks: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "bfstream_cached_order_books",
			Help: "Number of order books currently held in the tracker",
		}),
		StreamLatencyMs: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "bfstream_message_latency_ms",
			Help:    "Observed latency between a message's publish time and its arrival",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}
}

// ObserveEvent updates ConnectionState/Reconnects/AuthFailures from a
// supervisor.Event. Takes an int rather than supervisor.Event; the local
// constants below follow supervisor.Event's declaration order.
func (r *Registry) ObserveEvent(event int) {
	const (
		eventTCPConnected = iota
		eventAuthenticated
		eventFailedToConnect
		eventFailedToAuthenticate
		eventDisconnected
	)

	switch event {
	case eventTCPConnected:
		r.ConnectionState.Set(1)
	case eventAuthenticated:
		r.ConnectionState.Set(2)
	case eventFailedToConnect:
		r.ConnectionState.Set(0)
	case eventFailedToAuthenticate:
		r.AuthFailures.Inc()
		r.ConnectionState.Set(0)
	case eventDisconnected:
		r.Reconnects.Inc()
		r.ConnectionState.Set(0)
	}
}

// Handler returns an HTTP handler exposing metrics in the Prometheus
// exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.Handler()
}
