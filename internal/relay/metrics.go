package relay

import "github.com/prometheus/client_golang/prometheus"

// Delivery kinds used as the "kind" label on relay_deliveries_total.
const (
	deliveryWelcome   = "welcome"
	deliveryEcho      = "echo"
	deliveryBroadcast = "broadcast"
)

// Metrics holds the relay's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	connections  prometheus.Gauge
	received     *prometheus.CounterVec
	deliveries   *prometheus.CounterVec
	sendFailures *prometheus.CounterVec
	evictions    prometheus.Counter
}

// NewMetrics creates the relay collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "relay",
			Name:      "connections",
			Help:      "Number of connections currently in the registry.",
		}),
		received: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relay",
			Name:      "messages_received_total",
			Help:      "Messages received from clients, by frame kind.",
		}, []string{"kind"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relay",
			Name:      "deliveries_total",
			Help:      "Messages queued to clients, by delivery kind.",
		}, []string{"kind"}),
		sendFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relay",
			Name:      "send_failures_total",
			Help:      "Failed sends, by delivery kind.",
		}, []string{"kind"}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "relay",
			Name:      "evictions_total",
			Help:      "Connections removed because a send to them failed.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.connections, m.received, m.deliveries, m.sendFailures, m.evictions)
	}
	return m
}

func (m *Metrics) setConnections(n int) {
	if m == nil {
		return
	}
	m.connections.Set(float64(n))
}

func (m *Metrics) messageReceived(k Kind) {
	if m == nil {
		return
	}
	m.received.WithLabelValues(k.String()).Inc()
}

func (m *Metrics) delivered(kind string) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(kind).Inc()
}

func (m *Metrics) sendFailed(kind string) {
	if m == nil {
		return
	}
	m.sendFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) evicted() {
	if m == nil {
		return
	}
	m.evictions.Inc()
}
