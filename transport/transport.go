// Package transport provides the WebSocket framing layer of the engine: one
// JSON document per frame, decoded into proto.Packet values on the way in
// and encoded from them on the way out.
//
// A Conn serializes reads and writes independently, so a sender never blocks
// a concurrent receiver. Faults are classified into two conditions the
// connection manager reacts to: errors.ErrConnectionClosed when the channel
// is gone, and errors.ErrTransport for every other I/O fault.
package transport

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/SarahisCode/basebot/errors"
	"github.com/SarahisCode/basebot/proto"
)

// DefaultHandshakeTimeout bounds the WebSocket handshake when the caller
// does not configure an operation timeout.
const DefaultHandshakeTimeout = 45 * time.Second

// Conn is a single WebSocket connection to a room.
//
// Reads are serialized against each other, writes likewise, and the two
// directions never contend. Close is idempotent; every read or write after
// it fails with errors.ErrConnectionClosed.
type Conn struct {
	ws      *websocket.Conn
	timeout time.Duration

	readMu  sync.Mutex
	writeMu sync.Mutex

	closed    atomic.Bool
	closeOnce sync.Once

	framesSent     atomic.Int64
	framesReceived atomic.Int64
	bytesSent      atomic.Int64
	bytesReceived  atomic.Int64
}

// Stats is a snapshot of a connection's traffic counters.
type Stats struct {
	FramesSent     int64
	FramesReceived int64
	BytesSent      int64
	BytesReceived  int64
}

// Stats returns the frames and bytes carried in each direction so far.
func (c *Conn) Stats() Stats {
	return Stats{
		FramesSent:     c.framesSent.Load(),
		FramesReceived: c.framesReceived.Load(),
		BytesSent:      c.bytesSent.Load(),
		BytesReceived:  c.bytesReceived.Load(),
	}
}

// Dial connects to url and performs the WebSocket handshake. The timeout
// bounds the handshake and every subsequent read and write on the returned
// Conn; zero means no operation deadline and the default handshake bound.
func Dial(ctx context.Context, url string, timeout time.Duration) (*Conn, error) {
	handshake := timeout
	if handshake <= 0 {
		handshake = DefaultHandshakeTimeout
	}
	dialer := &websocket.Dialer{HandshakeTimeout: handshake}

	ws, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			err = fmt.Errorf("%w (status %s)", err, resp.Status)
		}
		return nil, errors.WrapTransient(
			fmt.Errorf("%w: %v", errors.ErrTransport, err),
			"transport", "Dial", fmt.Sprintf("connect to %s", url))
	}

	return &Conn{ws: ws, timeout: timeout}, nil
}

// Receive blocks until one frame arrives and returns its decoded packet.
//
// A malformed frame still yields a packet together with an error wrapping
// errors.ErrMalformedFrame, so the caller can dispatch it untyped. A closed
// channel yields errors.ErrConnectionClosed; any other fault yields
// errors.ErrTransport.
func (c *Conn) Receive() (*proto.Packet, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	if c.closed.Load() {
		return nil, c.closedErr("Receive")
	}
	if c.timeout > 0 {
		_ = c.ws.SetReadDeadline(time.Now().Add(c.timeout))
	}

	_, frame, err := c.ws.ReadMessage()
	if err != nil {
		return nil, c.mapError(err, "Receive", "read frame")
	}
	c.framesReceived.Add(1)
	c.bytesReceived.Add(int64(len(frame)))
	return proto.DecodePacket(frame)
}

// Send encodes the packet as JSON and writes it as one frame.
func (c *Conn) Send(p *proto.Packet) error {
	frame, err := p.Encode()
	if err != nil {
		return err
	}
	return c.SendRaw(frame)
}

// SendRaw writes one pre-encoded frame.
func (c *Conn) SendRaw(frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.closed.Load() {
		return c.closedErr("Send")
	}
	if c.timeout > 0 {
		_ = c.ws.SetWriteDeadline(time.Now().Add(c.timeout))
	}

	if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
		return c.mapError(err, "Send", "write frame")
	}
	c.framesSent.Add(1)
	c.bytesSent.Add(int64(len(frame)))
	return nil
}

// Close tears the connection down. Repeated calls after the first succeed
// with no effect.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		_ = c.ws.Close()
	})
	return nil
}

// mapError classifies a websocket fault into the two transport conditions.
func (c *Conn) mapError(err error, method, action string) error {
	if c.closed.Load() || isClosedError(err) {
		return errors.WrapTransient(
			fmt.Errorf("%w: %v", errors.ErrConnectionClosed, err),
			"transport", method, action)
	}
	var ne net.Error
	if stderrors.As(err, &ne) && ne.Timeout() {
		return errors.WrapTransient(
			fmt.Errorf("%w: %v", errors.ErrConnectionTimeout, err),
			"transport", method, action)
	}
	return errors.WrapTransient(
		fmt.Errorf("%w: %v", errors.ErrTransport, err),
		"transport", method, action)
}

func (c *Conn) closedErr(method string) error {
	return errors.WrapTransient(errors.ErrConnectionClosed, "transport", method,
		"use closed connection")
}

func isClosedError(err error) bool {
	var closeErr *websocket.CloseError
	if stderrors.As(err, &closeErr) {
		return true
	}
	return stderrors.Is(err, net.ErrClosed) || stderrors.Is(err, websocket.ErrCloseSent)
}
