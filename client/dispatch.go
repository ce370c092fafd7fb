package client

import (
	"context"
	"time"

	"github.com/SarahisCode/basebot/proto"
)

// AnyType registers a handler for every packet regardless of type.
const AnyType proto.PacketType = "*"

// HandlerFunc is a packet handler. Handlers run serially on the dispatch
// chain; a blocking handler holds up the endpoint's receive loop.
type HandlerFunc func(ctx context.Context, c *Client, p *proto.Packet)

// Module is a packet-processing extension attached to a Client.
// HandleEarly runs before anything else sees a packet and HandleFinal
// after every other handler has; HandleClose is invoked whenever a
// connection epoch ends, with the same flags as the close callback.
type Module interface {
	HandleEarly(ctx context.Context, c *Client, p *proto.Packet)
	HandleFinal(ctx context.Context, c *Client, p *proto.Packet)
	HandleClose(c *Client, clean, final bool)
}

type registration struct {
	id uint64
	fn HandlerFunc
}

// Handle registers fn for packets of the given type, or for every packet
// when the type is AnyType. Wildcard handlers run before type handlers.
// The returned function removes the registration.
func (c *Client) Handle(packetType proto.PacketType, fn HandlerFunc) func() {
	c.mu.Lock()
	c.handlerSeq++
	id := c.handlerSeq
	c.handlers[packetType] = append(c.handlers[packetType], registration{id: id, fn: fn})
	c.mu.Unlock()
	return func() { c.removeHandler(packetType, id) }
}

func (c *Client) removeHandler(packetType proto.PacketType, id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	regs := c.handlers[packetType]
	for i, r := range regs {
		if r.id == id {
			// Copy on removal so a dispatch iterating a snapshot of the
			// old slice is unaffected.
			c.handlers[packetType] = append(regs[:i:i], regs[i+1:]...)
			return
		}
	}
}

// Use attaches a module to the end of the dispatch chain.
func (c *Client) Use(m Module) {
	c.mu.Lock()
	c.modules = append(c.modules, m)
	c.mu.Unlock()
}

func (c *Client) snapshotModules() []Module {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.modules
}

func (c *Client) snapshotHandlers(packetType proto.PacketType) []registration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handlers[packetType]
}

// HandlePacket runs one packet through the dispatch chain: module early
// passes, the built-in lifecycle handler for the packet's type, wildcard
// handlers, type handlers, the pending one-shot reply callback, and module
// final passes, in that order. A packet without a recognized type skips
// the type-specific steps but traverses everything else. Chains for
// different packets never interleave.
func (c *Client) HandlePacket(ctx context.Context, p *proto.Packet) {
	start := time.Now()
	c.dispatchMu.Lock()
	defer c.dispatchMu.Unlock()

	for _, m := range c.snapshotModules() {
		m.HandleEarly(ctx, c, p)
	}
	c.handleBuiltin(ctx, p)
	for _, r := range c.snapshotHandlers(AnyType) {
		r.fn(ctx, c, p)
	}
	if p.Type != "" && p.Type != AnyType {
		for _, r := range c.snapshotHandlers(p.Type) {
			r.fn(ctx, c, p)
		}
	}
	if p.ID != "" {
		if pc := c.takePending(p.ID); pc != nil {
			if p.Throttled && !pc.resent && pc.pkt != nil {
				c.handleThrottled(ctx, p, pc)
			} else if pc.cb != nil {
				pc.cb(ctx, c, p)
			}
		}
	}
	for _, m := range c.snapshotModules() {
		m.HandleFinal(ctx, c, p)
	}

	if c.metrics != nil {
		c.metrics.RecordDispatchLatency(c.metricsRoom(), frameLabel(p), time.Since(start))
	}
}

// handleBuiltin performs the engine's own lifecycle reaction to a packet
// before user handlers see it.
func (c *Client) handleBuiltin(ctx context.Context, p *proto.Packet) {
	switch p.Type {
	case proto.BounceEventType:
		c.onBounce(ctx, p)
	case proto.DisconnectEventType:
		c.onDisconnect(ctx, p)
	case proto.HelloEventType:
		c.onHello(p)
	case proto.PingEventType:
		c.onPing(ctx, p)
	case proto.SnapshotEventType:
		c.onSnapshot(ctx, p)
	}
	if p.Type.IsReply() {
		c.onReply(p)
	}
}

// onBounce answers the room's authentication challenge with the configured
// passcode.
func (c *Client) onBounce(ctx context.Context, p *proto.Packet) {
	c.mu.Lock()
	passcode := c.cfg.Passcode
	c.mu.Unlock()
	if passcode == "" {
		reason := ""
		if ev, ok := p.Payload().(*proto.BounceEvent); ok {
			reason = ev.Reason
		}
		c.logger.Warn("Bounced with no passcode to present", "reason", reason)
		return
	}
	if _, err := c.Authenticate(ctx); err != nil {
		c.logger.Error("Authentication failed", "error", err)
	}
}

// onDisconnect reconnects when the server drops the session because its
// credentials changed; any other reason is left to the transport to
// surface.
func (c *Client) onDisconnect(ctx context.Context, p *proto.Packet) {
	ev, ok := p.Payload().(*proto.DisconnectEvent)
	if !ok || ev.Reason != proto.DisconnectReasonAuthChanged {
		return
	}
	c.logger.Info("Authentication changed; reconnecting")
	if err := c.reconnect(ctx, "auth-changed"); err != nil {
		c.logger.Error("Reconnect after auth change failed", "error", err)
	}
}

// onHello records the server-assigned id of this session.
func (c *Client) onHello(p *proto.Packet) {
	ev, ok := p.Payload().(*proto.HelloEvent)
	if !ok || ev.Session == nil {
		return
	}
	c.mu.Lock()
	c.sessionID = ev.Session.SessionID
	c.mu.Unlock()
}

// onPing answers the server keepalive immediately, echoing its timestamp.
func (c *Client) onPing(ctx context.Context, p *proto.Packet) {
	ev, ok := p.Payload().(*proto.PingEvent)
	if !ok {
		return
	}
	if err := c.pong(ctx, ev.UnixTime); err != nil {
		c.logger.Warn("Ping reply failed", "error", err)
	}
}

// onSnapshot marks the session established and requests the configured
// nick.
func (c *Client) onSnapshot(ctx context.Context, p *proto.Packet) {
	if _, ok := p.Payload().(*proto.SnapshotEvent); !ok {
		return
	}
	c.logger.Info("Session established")
	c.mu.Lock()
	c.established = true
	c.mu.Unlock()
	if c.onSessionStart != nil {
		c.onSessionStart()
	}
	if _, err := c.announceNick(ctx); err != nil {
		c.logger.Warn("Nick announcement failed", "error", err)
	}
}

// onReply tracks nick confirmations and failed commands. The first
// confirmed nick of an epoch fires the nick callback.
func (c *Client) onReply(p *proto.Packet) {
	if p.Error != "" {
		c.recordError(frameLabel(p))
	}
	if p.Type != proto.NickReplyType {
		return
	}
	rep, ok := p.Payload().(*proto.NickReply)
	if !ok {
		return
	}
	c.mu.Lock()
	c.effNick = rep.To
	first := !c.nickSet
	c.nickSet = true
	c.mu.Unlock()
	if first && c.onNickSet != nil {
		c.onNickSet(rep.To)
	}
}
