package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ddp_client"

// Metrics holds the session collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	connectionState *prometheus.GaugeVec
	reconnects      *prometheus.CounterVec
	queueDepth      *prometheus.GaugeVec
	replayed        *prometheus.CounterVec
	framesSent      *prometheus.CounterVec
	framesReceived  *prometheus.CounterVec
	sendErrors      *prometheus.CounterVec
	calls           *prometheus.CounterVec
	callDuration    *prometheus.HistogramVec
	subscriptions   prometheus.Gauge
	queries         prometheus.Gauge
}

// New creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		connectionState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "connection",
			Name:      "state",
			Help:      "Connection state per socket (0 disconnected, 1 connecting, 2 connected).",
		}, []string{"socket"}),
		reconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "connection",
			Name:      "reconnects_total",
			Help:      "Reconnect attempts after an unexpected transport close.",
		}, []string{"socket"}),
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "connection",
			Name:      "queue_depth",
			Help:      "Intents waiting for the socket to connect.",
		}, []string{"socket"}),
		replayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "connection",
			Name:      "replayed_total",
			Help:      "Queued intents sent after a connect.",
		}, []string{"socket"}),
		framesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "frames_sent_total",
			Help:      "Frames written to the transport by kind.",
		}, []string{"kind"}),
		framesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "frames_received_total",
			Help:      "Frames decoded from the transport by kind.",
		}, []string{"kind"}),
		sendErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "send_errors_total",
			Help:      "Frames the transport failed to write.",
		}, []string{"socket"}),
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "methods",
			Name:      "calls_total",
			Help:      "Completed method calls by outcome.",
		}, []string{"method", "outcome"}),
		callDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "methods",
			Name:      "call_duration_seconds",
			Help:      "Time from call to result.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		subscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "subscriptions",
			Name:      "active",
			Help:      "Subscriptions currently tracked.",
		}),
		queries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "queries",
			Name:      "active",
			Help:      "Queries currently tracked.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.connectionState, m.reconnects, m.queueDepth, m.replayed,
			m.framesSent, m.framesReceived, m.sendErrors,
			m.calls, m.callDuration, m.subscriptions, m.queries,
		)
	}
	return m
}

// ConnectionState records the numeric state of a socket.
func (m *Metrics) ConnectionState(socket string, state int) {
	if m == nil {
		return
	}
	m.connectionState.WithLabelValues(socket).Set(float64(state))
}

// ForgetSocket drops the per-socket series of a closed socket.
func (m *Metrics) ForgetSocket(socket string) {
	if m == nil {
		return
	}
	m.connectionState.DeleteLabelValues(socket)
	m.queueDepth.DeleteLabelValues(socket)
}

// Reconnect counts a reconnect attempt.
func (m *Metrics) Reconnect(socket string) {
	if m == nil {
		return
	}
	m.reconnects.WithLabelValues(socket).Inc()
}

// QueueDepth records how many intents are waiting on a socket.
func (m *Metrics) QueueDepth(socket string, n int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(socket).Set(float64(n))
}

// Replayed counts intents sent from the queue after connecting.
func (m *Metrics) Replayed(socket string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.replayed.WithLabelValues(socket).Add(float64(n))
}

// FrameSent counts an outbound frame.
func (m *Metrics) FrameSent(kind string) {
	if m == nil {
		return
	}
	m.framesSent.WithLabelValues(kind).Inc()
}

// FrameReceived counts an inbound frame.
func (m *Metrics) FrameReceived(kind string) {
	if m == nil {
		return
	}
	m.framesReceived.WithLabelValues(kind).Inc()
}

// SendError counts a failed transport write.
func (m *Metrics) SendError(socket string) {
	if m == nil {
		return
	}
	m.sendErrors.WithLabelValues(socket).Inc()
}

// CallCompleted records a method result.
func (m *Metrics) CallCompleted(method string, failed bool, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if failed {
		outcome = "error"
	}
	m.calls.WithLabelValues(method, outcome).Inc()
	m.callDuration.WithLabelValues(method).Observe(d.Seconds())
}

// Subscriptions records the number of tracked subscriptions.
func (m *Metrics) Subscriptions(n int) {
	if m == nil {
		return
	}
	m.subscriptions.Set(float64(n))
}

// Queries records the number of tracked queries.
func (m *Metrics) Queries(n int) {
	if m == nil {
		return
	}
	m.queries.Set(float64(n))
}
