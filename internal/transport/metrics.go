package transport

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Result label values.
const (
	resultOK            = "ok"
	resultError         = "error"
	resultNoSubscribers = "no_subscribers"
)

// Metrics contains transport metrics. A nil *Metrics records nothing.
type Metrics struct {
	emittedTotal  *prometheus.CounterVec
	sanitizeTotal *prometheus.CounterVec
	clients       prometheus.Gauge
}

// NewMetrics creates transport metrics and registers them with registerer,
// ignoring duplicates. A nil registerer means prometheus.DefaultRegisterer.
func NewMetrics(namespace string, registerer prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "sanitizr"
	}
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		emittedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "transport",
				Name:      "emitted_total",
				Help:      "Total number of broadcast payloads by channel and result",
			},
			[]string{"channel", "result"},
		),
		sanitizeTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "transport",
				Name:      "sanitize_total",
				Help:      "Total number of pre-processed payloads by type, user class and result",
			},
			[]string{"type", "user_class", "result"},
		),
		clients: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "transport",
				Name:      "websocket_clients",
				Help:      "Number of connected websocket clients",
			},
		),
	}

	for _, c := range []prometheus.Collector{m.emittedTotal, m.sanitizeTotal, m.clients} {
		_ = registerer.Register(c)
	}
	return m
}

// RecordEmit records one broadcast attempt.
func (m *Metrics) RecordEmit(channel, result string) {
	if m == nil {
		return
	}
	m.emittedTotal.WithLabelValues(channel, result).Inc()
}

// RecordSanitize records one pre-processing run.
func (m *Metrics) RecordSanitize(typeName, userClass, result string) {
	if m == nil {
		return
	}
	m.sanitizeTotal.WithLabelValues(typeName, userClass, result).Inc()
}

// SetClients sets the connected client gauge.
func (m *Metrics) SetClients(n int) {
	if m == nil {
		return
	}
	m.clients.Set(float64(n))
}
