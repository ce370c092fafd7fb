package client

import (
	"context"
	stderrors "errors"
	"strconv"

	"golang.org/x/time/rate"

	"github.com/SarahisCode/basebot/errors"
	"github.com/SarahisCode/basebot/pkg/retry"
	"github.com/SarahisCode/basebot/proto"
)

// minSendRate is the floor the outbound limiter is tightened to after
// repeated server throttles.
const minSendRate = 0.1

// pendingCommand tracks an outbound command until its reply arrives. The
// original packet is kept so a throttled reply can be re-sent once.
type pendingCommand struct {
	cb     HandlerFunc
	pkt    *proto.Packet
	resent bool
}

// withReconnect runs op under the endpoint retry budget, forcing a fresh
// connection before every retry. Failures other than a straight
// connection-closed are logged before the next attempt; the last failure
// is returned as-is.
func (c *Client) withReconnect(ctx context.Context, method string, op func() error) error {
	c.mu.Lock()
	budget := errors.FixedRetryConfig(c.cfg.RetryCount, c.cfg.RetryDelay)
	c.mu.Unlock()

	attempts := budget.MaxRetries + 1
	attempt := 0
	return retry.Do(ctx, budget.ToRetryConfig(), func() error {
		attempt++
		if attempt > 1 {
			if err := c.reconnectBroken(ctx); err != nil {
				return err
			}
		}
		err := op()
		if err != nil && attempt < attempts && !stderrors.Is(err, errors.ErrConnectionClosed) {
			c.logger.Warn("Operation failed; will re-connect",
				"op", method, "attempt", attempt, "error", err)
		}
		return err
	})
}

// sendOnce transmits one packet over the currently installed transport.
func (c *Client) sendOnce(ctx context.Context, p *proto.Packet, limit bool) error {
	if limit {
		if err := c.limiter.Wait(ctx); err != nil {
			return errors.Wrap(err, "Client", "Send", "wait for send rate")
		}
	}
	conn := c.getConn()
	if conn == nil {
		return errors.Wrap(errors.ErrNoConnection, "Client", "Send", "transmit packet")
	}
	if err := conn.Send(p); err != nil {
		c.recordError(frameLabel(p))
		return err
	}
	c.recordFrameSent(frameLabel(p))
	return nil
}

// Send transmits the packet, retrying with forced reconnects on failure up
// to the configured retry budget.
func (c *Client) Send(ctx context.Context, p *proto.Packet) error {
	return c.withReconnect(ctx, "send", func() error {
		return c.sendOnce(ctx, p, true)
	})
}

// SendNoRetry transmits the packet over the current connection only. A
// missing connection or transport fault is returned immediately.
func (c *Client) SendNoRetry(ctx context.Context, p *proto.Packet) error {
	return c.sendOnce(ctx, p, true)
}

// Receive blocks until the next inbound packet arrives, retrying with
// forced reconnects on transport failure. A malformed frame does not count
// as a failure: it is returned as an untyped packet together with an error
// wrapping errors.ErrMalformedFrame so the caller can still dispatch it.
func (c *Client) Receive(ctx context.Context) (*proto.Packet, error) {
	var pkt *proto.Packet
	var decodeErr error
	err := c.withReconnect(ctx, "receive", func() error {
		conn := c.getConn()
		if conn == nil {
			return errors.Wrap(errors.ErrNoConnection, "Client", "Receive", "await packet")
		}
		p, rerr := conn.Receive()
		if rerr != nil && stderrors.Is(rerr, errors.ErrMalformedFrame) {
			pkt, decodeErr = p, rerr
			return nil
		}
		pkt = p
		return rerr
	})
	if err != nil {
		return nil, err
	}
	c.recordFrameReceived(frameLabel(pkt))
	return pkt, decodeErr
}

// nextID reserves the next correlation id and, when cb or pkt are given,
// registers the command in the pending table under it.
func (c *Client) nextID(cb HandlerFunc, pkt *proto.Packet) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := strconv.FormatUint(c.cmdID, 10)
	c.cmdID++
	if cb != nil || pkt != nil {
		c.pending[id] = &pendingCommand{cb: cb, pkt: pkt}
	}
	return id
}

func (c *Client) takePending(id string) *pendingCommand {
	c.mu.Lock()
	defer c.mu.Unlock()
	pc := c.pending[id]
	delete(c.pending, id)
	return pc
}

func (c *Client) dropPending(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// SendCommand builds a command packet of the given type, assigns it the
// next correlation id, and transmits it with retries. A non-nil callback
// is invoked exactly once, from the dispatch chain, when the matching
// reply arrives; it is dropped unseen if the connection epoch ends first.
// The assigned id is returned.
func (c *Client) SendCommand(ctx context.Context, packetType proto.PacketType, payload any, cb HandlerFunc) (string, error) {
	pkt, err := proto.MakeCommand("", packetType, payload)
	if err != nil {
		return "", err
	}
	id := c.nextID(cb, pkt)
	pkt.ID = id

	if err := c.Send(ctx, pkt); err != nil {
		c.dropPending(id)
		return "", err
	}
	return id, nil
}

// SetCallback registers cb as the one-shot reply callback for a pending
// command id, replacing any previous one. A nil cb removes the
// registration.
func (c *Client) SetCallback(id string, cb HandlerFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cb == nil {
		if pc := c.pending[id]; pc != nil {
			pc.cb = nil
		}
		return
	}
	if pc := c.pending[id]; pc != nil {
		pc.cb = cb
		return
	}
	c.pending[id] = &pendingCommand{cb: cb}
}

// SendChat posts a chat message to the room. parent threads the message
// under an existing one; "" starts a new top-level thread.
func (c *Client) SendChat(ctx context.Context, content, parent string, cb HandlerFunc) (string, error) {
	c.logger.Info("Sending message", "content", content)
	return c.SendCommand(ctx, proto.SendType, proto.SendCommand{Content: content, Parent: parent}, cb)
}

// Authenticate presents the configured passcode to a locked room. When no
// passcode is configured or no connection is installed nothing is sent and
// the returned id is "".
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	c.mu.Lock()
	passcode := c.cfg.Passcode
	c.mu.Unlock()
	if passcode == "" || c.getConn() == nil {
		return "", nil
	}
	return c.SendCommand(ctx, proto.AuthType, proto.AuthCommand{
		Type:     proto.AuthPasscode,
		Passcode: passcode,
	}, nil)
}

// announceNick sends the configured nick when one is set and a connection
// is installed. The returned id is "" when nothing was sent.
func (c *Client) announceNick(ctx context.Context) (string, error) {
	c.mu.Lock()
	nick := c.cfg.Nick
	c.mu.Unlock()
	if nick == "" || c.getConn() == nil {
		return "", nil
	}
	return c.SendCommand(ctx, proto.NickType, proto.NickCommand{Name: nick}, nil)
}

// Who asks the server for the current presence listing.
func (c *Client) Who(ctx context.Context, cb HandlerFunc) (string, error) {
	return c.SendCommand(ctx, proto.WhoType, proto.WhoCommand{}, cb)
}

// RequestLog asks the server for up to n past messages; before pages
// further back from a known message id.
func (c *Client) RequestLog(ctx context.Context, n int, before string, cb HandlerFunc) (string, error) {
	return c.SendCommand(ctx, proto.LogType, proto.LogCommand{N: n, Before: before}, cb)
}

// RefreshUsers empties the tracked roster and asks for a fresh listing.
// The roster fills back in asynchronously as the who reply arrives.
func (c *Client) RefreshUsers(ctx context.Context) (string, error) {
	c.tracker.Users().Clear()
	return c.Who(ctx, nil)
}

// RefreshLog empties the tracked message log and asks the server to replay
// the most recent n messages; n <= 0 uses the configured log depth. The
// log fills back in asynchronously as the reply arrives.
func (c *Client) RefreshLog(ctx context.Context, n int) (string, error) {
	if n <= 0 {
		c.mu.Lock()
		n = c.cfg.LogDepth
		c.mu.Unlock()
	}
	c.tracker.Messages().Clear()
	return c.RequestLog(ctx, n, "", nil)
}

// pong answers a server ping. The reply bypasses the outbound rate limiter
// so keepalives cannot be starved by chat traffic.
func (c *Client) pong(ctx context.Context, t proto.Time) error {
	pkt, err := proto.MakeCommand(c.nextID(nil, nil), proto.PingReplyType, proto.PingReply{UnixTime: t})
	if err != nil {
		return err
	}
	return c.withReconnect(ctx, "pong", func() error {
		return c.sendOnce(ctx, pkt, false)
	})
}

// handleThrottled re-queues a command the server bounced for rate reasons:
// the limiter is tightened and the packet re-sent once under a fresh id. A
// second bounce, or a bounce of a command whose packet is gone, is handed
// to the caller's callback as-is.
func (c *Client) handleThrottled(ctx context.Context, reply *proto.Packet, pc *pendingCommand) {
	c.logger.Warn("Command throttled; re-sending",
		"reason", reply.ThrottledReason, "type", pc.pkt.Type)
	c.tightenLimiter()
	c.recordError("throttled")

	c.mu.Lock()
	id := strconv.FormatUint(c.cmdID, 10)
	c.cmdID++
	resend := *pc.pkt
	resend.ID = id
	c.pending[id] = &pendingCommand{cb: pc.cb, pkt: &resend, resent: true}
	c.mu.Unlock()

	// The re-send waits on the tightened limiter, so it must not run on
	// the dispatch goroutine.
	go func() {
		if err := c.Send(ctx, &resend); err != nil {
			c.logger.Warn("Throttled re-send failed", "id", id, "error", err)
			c.dropPending(id)
		}
	}()
}

// tightenLimiter halves the outbound send rate, with a floor so the client
// keeps making progress.
func (c *Client) tightenLimiter() {
	next := c.limiter.Limit() / 2
	if next < minSendRate {
		next = rate.Limit(minSendRate)
	}
	c.limiter.SetLimit(next)
}

func frameLabel(p *proto.Packet) string {
	if p == nil || p.Type == "" {
		return "unknown"
	}
	return string(p.Type)
}
