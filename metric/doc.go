// Package metric provides Prometheus-based metrics collection and an HTTP
// server for monitoring a running bot process.
//
// The package offers a centralized metrics registry managing both core engine
// metrics (endpoint status, frame traffic, reconnects, roster/log sizes,
// supervisor population) and custom component metrics. It includes an HTTP
// server exposing metrics in Prometheus format.
//
// # Architecture
//
// The package follows a three-layer design:
//
//  1. Core Metrics: engine-level metrics automatically registered (Metrics type)
//  2. Component Registry: extensible registration for component-specific metrics (MetricsRegistrar interface)
//  3. HTTP Server: metrics endpoint with a health check (Server type)
//
// # Basic Usage
//
// Setting up metrics collection and the HTTP server:
//
//	registry := metric.NewMetricsRegistry()
//	server := metric.NewServer(":9090", "/metrics", registry)
//
//	go func() {
//	    if err := server.Start(); err != nil {
//	        log.Printf("metrics server error: %v", err)
//	    }
//	}()
//
//	core := registry.CoreMetrics()
//	core.RecordEndpointStatus("myroom", 2) // 2 = connected
//	core.RecordFrameReceived("myroom", "send-event")
//	core.RecordReconnect("myroom", "forced")
//
// Metrics are exposed at http://localhost:9090/metrics and a health check at
// http://localhost:9090/health.
//
// # Core Metrics
//
// All series carry the "basebot" namespace:
//
//   - basebot_endpoint_status{room} (0=disconnected, 1=connecting, 2=connected, 3=reconnecting)
//   - basebot_frames_received_total{room,type} / basebot_frames_sent_total{room,type}
//   - basebot_dispatch_duration_seconds{room,type}
//   - basebot_errors_total{room,type}
//   - basebot_connection_attempts_total{room,outcome} / basebot_connection_reconnects_total{room,cause}
//   - basebot_roster_size{room} / basebot_log_size{room}
//   - basebot_supervisor_endpoints_live / basebot_supervisor_respawns_total
//
// # Component Metrics
//
// Components register their own collectors through MetricsRegistrar; keys are
// namespaced per service name, duplicate registration is rejected, and
// prometheus.AlreadyRegisteredError conflicts are surfaced as invalid rather
// than fatal so a restart-in-place can continue.
//
// # Thread Safety
//
// The registry guards its bookkeeping with a mutex and Prometheus collectors
// are safe for concurrent use, so all recording helpers may be called from
// any goroutine.
package metric
