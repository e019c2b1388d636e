package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "watch_together"

// Delivery results for the deliveries counter.
const (
	DeliverySent    = "sent"
	DeliveryDropped = "dropped"
	DeliveryClosed  = "closed"
)

// Metrics groups the collectors of the relay. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	peers      prometheus.Gauge
	inbound    *prometheus.CounterVec
	deliveries *prometheus.CounterVec
	rooms      *prometheus.CounterVec
}

func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		Registry: reg,
		peers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connected_peers",
			Help:      "Number of open client connections.",
		}),
		inbound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inbound_messages_total",
			Help:      "Inbound client messages by type and handling result.",
		}, []string{"type", "result"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Outbound frames queued to peers by result.",
		}, []string{"result"}),
		rooms: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "room_events_total",
			Help:      "Room lifecycle events.",
		}, []string{"event"}),
	}
	reg.MustRegister(m.peers, m.inbound, m.deliveries, m.rooms)
	return m
}

// RoomCount exposes a live room gauge backed by fn.
func (m *Metrics) RoomCount(fn func() int) {
	if m == nil {
		return
	}
	m.Registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "rooms",
		Help:      "Number of live rooms.",
	}, func() float64 { return float64(fn()) }))
}

func (m *Metrics) PeerConnected() {
	if m == nil {
		return
	}
	m.peers.Inc()
}

func (m *Metrics) PeerDisconnected() {
	if m == nil {
		return
	}
	m.peers.Dec()
}

func (m *Metrics) Inbound(kind, result string) {
	if m == nil {
		return
	}
	m.inbound.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) Delivery(result string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.deliveries.WithLabelValues(result).Add(float64(n))
}

func (m *Metrics) RoomEvent(event string) {
	if m == nil {
		return
	}
	m.rooms.WithLabelValues(event).Inc()
}
