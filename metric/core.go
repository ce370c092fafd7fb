package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains all engine-level metrics (not bot-specific)
type Metrics struct {
	// Endpoint metrics
	EndpointStatus  *prometheus.GaugeVec
	FramesReceived  *prometheus.CounterVec
	FramesSent      *prometheus.CounterVec
	DispatchLatency *prometheus.HistogramVec
	ErrorsTotal     *prometheus.CounterVec

	// Connection metrics
	ConnectAttempts *prometheus.CounterVec
	Reconnects      *prometheus.CounterVec

	// Derived-state metrics
	RosterSize *prometheus.GaugeVec
	LogSize    *prometheus.GaugeVec

	// Supervisor metrics
	EndpointsLive prometheus.Gauge
	RespawnsTotal prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all engine metrics
func NewMetrics() *Metrics {
	return &Metrics{
		EndpointStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "basebot",
				Subsystem: "endpoint",
				Name:      "status",
				Help:      "Endpoint connection status (0=disconnected, 1=connecting, 2=connected, 3=reconnecting)",
			},
			[]string{"room"},
		),

		FramesReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "basebot",
				Subsystem: "frames",
				Name:      "received_total",
				Help:      "Total number of frames received",
			},
			[]string{"room", "type"},
		),

		FramesSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "basebot",
				Subsystem: "frames",
				Name:      "sent_total",
				Help:      "Total number of frames sent",
			},
			[]string{"room", "type"},
		),

		DispatchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "basebot",
				Subsystem: "dispatch",
				Name:      "duration_seconds",
				Help:      "Frame dispatch duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"room", "type"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "basebot",
				Subsystem: "errors",
				Name:      "total",
				Help:      "Total number of errors",
			},
			[]string{"room", "type"},
		),

		ConnectAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "basebot",
				Subsystem: "connection",
				Name:      "attempts_total",
				Help:      "Total number of connect attempts",
			},
			[]string{"room", "outcome"},
		),

		Reconnects: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "basebot",
				Subsystem: "connection",
				Name:      "reconnects_total",
				Help:      "Total number of reconnections",
			},
			[]string{"room", "cause"},
		),

		RosterSize: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "basebot",
				Subsystem: "roster",
				Name:      "size",
				Help:      "Current number of sessions in the roster",
			},
			[]string{"room"},
		),

		LogSize: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "basebot",
				Subsystem: "log",
				Name:      "size",
				Help:      "Current number of messages in the log",
			},
			[]string{"room"},
		),

		EndpointsLive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "basebot",
				Subsystem: "supervisor",
				Name:      "endpoints_live",
				Help:      "Current number of endpoints held by the supervisor",
			},
		),

		RespawnsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "basebot",
				Subsystem: "supervisor",
				Name:      "respawns_total",
				Help:      "Total number of endpoint respawns",
			},
		),
	}
}

// RecordEndpointStatus updates the endpoint connection status metric
func (c *Metrics) RecordEndpointStatus(room string, status int) {
	c.EndpointStatus.WithLabelValues(room).Set(float64(status))
}

// RecordFrameReceived increments the received frame counter
func (c *Metrics) RecordFrameReceived(room, frameType string) {
	c.FramesReceived.WithLabelValues(room, frameType).Inc()
}

// RecordFrameSent increments the sent frame counter
func (c *Metrics) RecordFrameSent(room, frameType string) {
	c.FramesSent.WithLabelValues(room, frameType).Inc()
}

// RecordDispatchLatency records the time spent dispatching one frame
func (c *Metrics) RecordDispatchLatency(room, frameType string, duration time.Duration) {
	c.DispatchLatency.WithLabelValues(room, frameType).Observe(duration.Seconds())
}

// RecordError increments the error counter
func (c *Metrics) RecordError(room, errorType string) {
	c.ErrorsTotal.WithLabelValues(room, errorType).Inc()
}

// RecordConnectAttempt increments the connect attempt counter
func (c *Metrics) RecordConnectAttempt(room, outcome string) {
	c.ConnectAttempts.WithLabelValues(room, outcome).Inc()
}

// RecordReconnect increments the reconnection counter
func (c *Metrics) RecordReconnect(room, cause string) {
	c.Reconnects.WithLabelValues(room, cause).Inc()
}

// RecordRosterSize updates the roster size gauge
func (c *Metrics) RecordRosterSize(room string, size int) {
	c.RosterSize.WithLabelValues(room).Set(float64(size))
}

// RecordLogSize updates the message log size gauge
func (c *Metrics) RecordLogSize(room string, size int) {
	c.LogSize.WithLabelValues(room).Set(float64(size))
}

// RecordEndpointsLive updates the live endpoint gauge
func (c *Metrics) RecordEndpointsLive(count int) {
	c.EndpointsLive.Set(float64(count))
}

// RecordRespawn increments the respawn counter
func (c *Metrics) RecordRespawn() {
	c.RespawnsTotal.Inc()
}
