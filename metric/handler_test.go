package metric

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// getAvailablePort asks the kernel for a free port to avoid test collisions.
func getAvailablePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = l.Close() }()
	return l.Addr().(*net.TCPAddr).Port
}

func TestServer_ServesMetrics(t *testing.T) {
	registry := NewMetricsRegistry()
	registry.CoreMetrics().RecordEndpointStatus("testroom", 2)

	addr := fmt.Sprintf("127.0.0.1:%d", getAvailablePort(t))
	server := NewServer(addr, "/metrics", registry)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()
	defer func() { _ = server.Stop() }()

	// Wait for the listener to come up.
	var resp *http.Response
	var err error
	for i := 0; i < 50; i++ {
		resp, err = http.Get("http://" + addr + "/metrics")
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "basebot_endpoint_status"),
		"metrics output should contain core endpoint status series")

	healthResp, err := http.Get("http://" + addr + "/health")
	require.NoError(t, err)
	defer func() { _ = healthResp.Body.Close() }()
	assert.Equal(t, http.StatusOK, healthResp.StatusCode)

	require.NoError(t, server.Stop())
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServer_Address(t *testing.T) {
	server := NewServer("127.0.0.1:9321", "", nil)
	assert.Equal(t, "http://127.0.0.1:9321/metrics", server.Address())
}
