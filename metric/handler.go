package metric

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/SarahisCode/basebot/errors"
)

// Defaults for the operational listener.
const (
	DefaultListenAddr  = ":9090"
	DefaultMetricsPath = "/metrics"
)

// Server is the engine's operational HTTP listener: the Prometheus gather
// endpoint, a liveness route and a small index page. One Server runs per
// process regardless of how many endpoints it hosts.
type Server struct {
	addr     string
	path     string
	registry *MetricsRegistry

	mu     sync.Mutex
	server *http.Server
}

// NewServer builds a listener for the registry. Empty addr or path fall
// back to the package defaults.
func NewServer(addr, path string, registry *MetricsRegistry) *Server {
	if addr == "" {
		addr = DefaultListenAddr
	}
	if path == "" {
		path = DefaultMetricsPath
	}
	return &Server{addr: addr, path: path, registry: registry}
}

// Start serves until Stop is called, then returns nil. Starting an
// already-running server is an error, as is starting without a registry.
func (s *Server) Start() error {
	srv, err := s.arm()
	if err != nil {
		return err
	}
	if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return errors.WrapFatal(err, "Server", "Start",
			fmt.Sprintf("failed to serve on %s", s.addr))
	}
	return nil
}

// arm transitions the server into its running state and hands the caller
// the http.Server to block on.
func (s *Server) arm() (*http.Server, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("server already running"),
			"Server", "Start", "cannot start server that is already running")
	}
	if s.registry == nil {
		return nil, errors.WrapFatal(
			fmt.Errorf("nil registry"),
			"Server", "Start", "metrics registry not provided")
	}

	s.server = &http.Server{
		Addr:    s.addr,
		Handler: s.routes(),
	}
	return s.server, nil
}

// routes assembles the listener's mux: the gather endpoint, /health and
// an index page linking both.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.Handle(s.path, promhttp.HandlerFor(
		s.registry.PrometheusRegistry(),
		promhttp.HandlerOpts{EnableOpenMetrics: true},
	))

	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = fmt.Fprintf(w, `<html>
<head><title>Basebot Metrics</title></head>
<body>
<h1>Basebot Metrics Server</h1>
<p><a href="%s">Metrics</a></p>
<p><a href="/health">Health</a></p>
</body>
</html>`, s.path)
	})

	return mux
}

// Stop closes the listener. The server may be started again afterwards;
// stopping a stopped server is a no-op.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		return nil
	}
	err := s.server.Close()
	s.server = nil
	if err != nil {
		return errors.WrapTransient(err, "Server", "Stop",
			"failed to stop HTTP server")
	}
	return nil
}

// Address returns the gather endpoint's URL.
func (s *Server) Address() string {
	return fmt.Sprintf("http://%s%s", s.addr, s.path)
}
