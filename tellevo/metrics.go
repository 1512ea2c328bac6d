package tellevo

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for the stream client.
type Metrics struct {
	framesReceived    *prometheus.CounterVec
	reconnectAttempts prometheus.Counter
	connectionErrors  *prometheus.CounterVec
	heartbeatsSent    prometheus.Counter
	connectionState   prometheus.Gauge
}

// newMetrics creates and registers client metrics. A nil registerer yields
// nil metrics; every method is safe on a nil receiver.
func newMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		return nil, nil
	}

	m := &Metrics{
		framesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tellevo",
			Subsystem: "ventas_stream",
			Name:      "frames_received_total",
			Help:      "Inbound frames by outcome (delivered, malformed, invalid)",
		}, []string{"result"}),

		reconnectAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tellevo",
			Subsystem: "ventas_stream",
			Name:      "reconnect_attempts_total",
			Help:      "Automatic reconnect attempts scheduled",
		}),

		connectionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tellevo",
			Subsystem: "ventas_stream",
			Name:      "connection_errors_total",
			Help:      "Transport errors by code",
		}, []string{"code"}),

		heartbeatsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tellevo",
			Subsystem: "ventas_stream",
			Name:      "heartbeats_sent_total",
			Help:      "Keepalive frames written",
		}),

		connectionState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tellevo",
			Subsystem: "ventas_stream",
			Name:      "connection_state",
			Help:      "Current state (0 idle, 1 connecting, 2 connected, 3 disconnected)",
		}),
	}

	var err error
	if m.framesReceived, err = register(reg, m.framesReceived); err != nil {
		return nil, err
	}
	if m.reconnectAttempts, err = register(reg, m.reconnectAttempts); err != nil {
		return nil, err
	}
	if m.connectionErrors, err = register(reg, m.connectionErrors); err != nil {
		return nil, err
	}
	if m.heartbeatsSent, err = register(reg, m.heartbeatsSent); err != nil {
		return nil, err
	}
	if m.connectionState, err = register(reg, m.connectionState); err != nil {
		return nil, err
	}
	return m, nil
}

// register adds c to reg, reusing the collector already registered under the
// same name so several clients can share one registry.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *Metrics) recordFrame(result string) {
	if m == nil {
		return
	}
	m.framesReceived.WithLabelValues(result).Inc()
}

func (m *Metrics) recordReconnect() {
	if m == nil {
		return
	}
	m.reconnectAttempts.Inc()
}

func (m *Metrics) recordError(err error) {
	if m == nil {
		return
	}
	code := ErrorUnknown
	var se *StreamError
	if errors.As(err, &se) {
		code = se.Code
	}
	m.connectionErrors.WithLabelValues(code.String()).Inc()
}

func (m *Metrics) recordHeartbeat() {
	if m == nil {
		return
	}
	m.heartbeatsSent.Inc()
}

func (m *Metrics) recordState(s ConnectionState) {
	if m == nil {
		return
	}
	m.connectionState.Set(float64(s))
}
