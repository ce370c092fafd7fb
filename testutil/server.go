package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// Frame is one JSON document captured off a test connection.
type Frame struct {
	ID   string          `json:"id,omitempty"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
	Raw  []byte          `json:"-"`
}

// NewServer starts a WebSocket server whose connections are handed to
// handler, and returns its ws:// URL. The handler runs once per accepted
// connection; returning from it closes the connection. The server is
// torn down with the test.
func NewServer(t *testing.T, handler func(conn *websocket.Conn)) string {
	t.Helper()

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))
	t.Cleanup(server.Close)

	return "ws" + strings.TrimPrefix(server.URL, "http")
}

// NewCaptureServer starts a server that records every frame its clients
// send. Frames from all connections arrive on the returned channel in
// receive order; the server never speaks first.
func NewCaptureServer(t *testing.T) (string, <-chan Frame) {
	t.Helper()

	frames := make(chan Frame, 64)
	url := NewServer(t, func(conn *websocket.Conn) {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var f Frame
			if err := json.Unmarshal(data, &f); err != nil {
				t.Logf("capture: malformed frame %q: %v", data, err)
				continue
			}
			f.Raw = data
			frames <- f
		}
	})
	return url, frames
}

// WaitFrame receives one captured frame or fails the test after two
// seconds.
func WaitFrame(t *testing.T, frames <-chan Frame) Frame {
	t.Helper()
	select {
	case f := <-frames:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a frame")
		return Frame{}
	}
}

// ExpectNoFrame fails the test if a frame arrives within the grace
// period.
func ExpectNoFrame(t *testing.T, frames <-chan Frame) {
	t.Helper()
	select {
	case f := <-frames:
		t.Fatalf("unexpected frame: %s", f.Raw)
	case <-time.After(150 * time.Millisecond):
	}
}
