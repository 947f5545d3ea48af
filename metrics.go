package gortp

import (
	"github.com/prometheus/client_golang/prometheus"
)

// metric label values.
const (
	directionIn  = "incoming"
	directionOut = "outgoing"

	protocolRTP  = "rtp"
	protocolRTCP = "rtcp"
)

// reasons of dropped packets.
const (
	dropReasonMalformed = "malformed"
	dropReasonBuffer    = "buffer"
	dropReasonConflict  = "conflict"
	dropReasonRegistry  = "registry"
)

// Metrics exports statistics of one or more sessions to Prometheus.
type Metrics struct {
	// Registerer used to register collectors.
	// It defaults to prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer

	// Namespace of metrics.
	// It defaults to "gortp".
	Namespace string

	packets      *prometheus.CounterVec
	bytes        *prometheus.CounterVec
	dropped      *prometheus.CounterVec
	frames       prometheus.Counter
	conflicts    prometheus.Counter
	participants prometheus.Gauge
}

// Initialize initializes Metrics and registers collectors.
func (m *Metrics) Initialize() error {
	if m.Registerer == nil {
		m.Registerer = prometheus.DefaultRegisterer
	}
	if m.Namespace == "" {
		m.Namespace = "gortp"
	}

	m.packets = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.Namespace,
		Subsystem: "packet",
		Name:      "total",
	}, []string{"protocol", "direction"})
	m.bytes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.Namespace,
		Subsystem: "packet",
		Name:      "bytes",
	}, []string{"protocol", "direction"})
	m.dropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.Namespace,
		Subsystem: "packet",
		Name:      "dropped_total",
	}, []string{"protocol", "reason"})
	m.frames = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: m.Namespace,
		Subsystem: "frame",
		Name:      "delivered_total",
	})
	m.conflicts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: m.Namespace,
		Subsystem: "ssrc",
		Name:      "conflicts_total",
	})
	m.participants = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: m.Namespace,
		Subsystem: "session",
		Name:      "participants",
	})

	for _, c := range []prometheus.Collector{
		m.packets,
		m.bytes,
		m.dropped,
		m.frames,
		m.conflicts,
		m.participants,
	} {
		err := m.Registerer.Register(c)
		if err != nil {
			return err
		}
	}

	return nil
}

func (m *Metrics) packet(protocol string, direction string, size int) {
	if m == nil {
		return
	}
	m.packets.WithLabelValues(protocol, direction).Inc()
	m.bytes.WithLabelValues(protocol, direction).Add(float64(size))
}

func (m *Metrics) drop(protocol string, reason string) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(protocol, reason).Inc()
}

func (m *Metrics) frame() {
	if m == nil {
		return
	}
	m.frames.Inc()
}

func (m *Metrics) conflict() {
	if m == nil {
		return
	}
	m.conflicts.Inc()
}

func (m *Metrics) setParticipants(n int) {
	if m == nil {
		return
	}
	m.participants.Set(float64(n))
}
