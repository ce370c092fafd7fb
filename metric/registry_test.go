package metric

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	baseerrors "github.com/SarahisCode/basebot/errors"
)

// gatheredNames returns the set of metric family names visible through the
// registry's Prometheus gatherer.
func gatheredNames(t *testing.T, registry *MetricsRegistry) map[string]bool {
	t.Helper()

	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	return names
}

func TestNewMetricsRegistry(t *testing.T) {
	registry := NewMetricsRegistry()

	assert.NotNil(t, registry)
	assert.NotNil(t, registry.PrometheusRegistry())
	assert.NotNil(t, registry.CoreMetrics())
}

func TestMetricsRegistry_RegisterKinds(t *testing.T) {
	tests := []struct {
		kind     string
		series   string
		register func(r *MetricsRegistry) error
	}{
		{
			kind: "counter", series: "roster_joins",
			register: func(r *MetricsRegistry) error {
				c := prometheus.NewCounter(prometheus.CounterOpts{Name: "roster_joins", Help: "joins"})
				c.Inc()
				return r.RegisterCounter("roster", "roster_joins", c)
			},
		},
		{
			kind: "gauge", series: "roster_size",
			register: func(r *MetricsRegistry) error {
				g := prometheus.NewGauge(prometheus.GaugeOpts{Name: "roster_size", Help: "size"})
				g.Set(42)
				return r.RegisterGauge("roster", "roster_size", g)
			},
		},
		{
			kind: "histogram", series: "dial_seconds",
			register: func(r *MetricsRegistry) error {
				h := prometheus.NewHistogram(prometheus.HistogramOpts{Name: "dial_seconds", Help: "dial"})
				h.Observe(0.2)
				return r.RegisterHistogram("transport", "dial_seconds", h)
			},
		},
		{
			kind: "counter vec", series: "frames_total",
			register: func(r *MetricsRegistry) error {
				cv := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "frames_total", Help: "frames"}, []string{"type"})
				cv.WithLabelValues("ping").Inc()
				return r.RegisterCounterVec("transport", "frames_total", cv)
			},
		},
		{
			kind: "gauge vec", series: "endpoint_state",
			register: func(r *MetricsRegistry) error {
				gv := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "endpoint_state", Help: "state"}, []string{"room"})
				gv.WithLabelValues("bots").Set(2)
				return r.RegisterGaugeVec("supervisor", "endpoint_state", gv)
			},
		},
		{
			kind: "histogram vec", series: "reply_seconds",
			register: func(r *MetricsRegistry) error {
				hv := prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: "reply_seconds", Help: "replies"}, []string{"type"})
				hv.WithLabelValues("send").Observe(0.01)
				return r.RegisterHistogramVec("client", "reply_seconds", hv)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			registry := NewMetricsRegistry()
			require.NoError(t, tt.register(registry))
			assert.True(t, gatheredNames(t, registry)[tt.series],
				"series %s should be gathered after registration", tt.series)
		})
	}
}

func TestMetricsRegistry_DuplicateKeyRejected(t *testing.T) {
	registry := NewMetricsRegistry()

	first := prometheus.NewCounter(prometheus.CounterOpts{Name: "dup_total", Help: "dup"})
	second := prometheus.NewCounter(prometheus.CounterOpts{Name: "dup_total", Help: "dup"})

	require.NoError(t, registry.RegisterCounter("svc", "dup_total", first))

	err := registry.RegisterCounter("svc", "dup_total", second)
	require.Error(t, err)
	assert.True(t, baseerrors.IsInvalid(err), "duplicate registration should classify as invalid")
}

func TestMetricsRegistry_Unregister(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "removable_total", Help: "rm"})
	require.NoError(t, registry.RegisterCounter("svc", "removable_total", counter))

	assert.True(t, registry.Unregister("svc", "removable_total"))
	assert.False(t, registry.Unregister("svc", "removable_total"),
		"second unregister should report missing metric")

	// The key is free again after unregistering.
	assert.NoError(t, registry.RegisterCounter("svc", "removable_total", counter))
}

func TestMetricsRegistry_ConcurrentRegistration(t *testing.T) {
	registry := NewMetricsRegistry()

	const goroutines = 10

	var wg sync.WaitGroup
	errs := make([]error, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			name := fmt.Sprintf("concurrent_total_%d", n)
			counter := prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: "concurrent"})
			errs[n] = registry.RegisterCounter("svc", name, counter)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "registration %d failed", i)
	}
}

func TestCoreMetrics_Record(t *testing.T) {
	registry := NewMetricsRegistry()
	core := registry.CoreMetrics()

	// Exercise all recorders; Gather must see the series without panics.
	core.RecordEndpointStatus("testroom", 2)
	core.RecordFrameReceived("testroom", "send-event")
	core.RecordFrameSent("testroom", "nick")
	core.RecordDispatchLatency("testroom", "send-event", 5*time.Millisecond)
	core.RecordError("testroom", "transport")
	core.RecordConnectAttempt("testroom", "success")
	core.RecordReconnect("testroom", "forced")
	core.RecordRosterSize("testroom", 12)
	core.RecordLogSize("testroom", 100)
	core.RecordEndpointsLive(3)
	core.RecordRespawn()

	names := gatheredNames(t, registry)

	expected := []string{
		"basebot_endpoint_status",
		"basebot_frames_received_total",
		"basebot_frames_sent_total",
		"basebot_dispatch_duration_seconds",
		"basebot_errors_total",
		"basebot_connection_attempts_total",
		"basebot_connection_reconnects_total",
		"basebot_roster_size",
		"basebot_log_size",
		"basebot_supervisor_endpoints_live",
		"basebot_supervisor_respawns_total",
	}
	for _, name := range expected {
		assert.True(t, names[name], "expected metric %s to be gathered", name)
	}
}
