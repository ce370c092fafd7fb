package client

import (
	"context"
	"strings"
	"sync"

	"github.com/SarahisCode/basebot/chatlog"
	"github.com/SarahisCode/basebot/proto"
	"github.com/SarahisCode/basebot/roster"
)

// ChatMeta qualifies a chat message handed to a ChatHandler.
type ChatMeta struct {
	// Own marks a message authored by this client: the echo reply to its
	// own send or edit, or a fetched message sent from its own session.
	Own bool
	// Edit marks a message that arrived through an edit rather than a
	// fresh send.
	Edit bool
	// Long marks a message fetched in full via get-message; it may carry
	// content the live stream would have truncated.
	Long bool
	// Live marks a fresh message from the room, the kind a conversational
	// bot usually wants to answer. Equivalent to !Own && !Edit && !Long.
	Live bool
	// Packet is the frame the message arrived in.
	Packet *proto.Packet
}

// ChatHandler receives every chat message the endpoint sees, with metadata
// describing where it came from.
type ChatHandler func(ctx context.Context, c *Client, msg *proto.Message, meta ChatMeta)

// LogHandler receives batches of past messages; snapshot distinguishes the
// slice of log attached to a room snapshot from an explicit log reply.
type LogHandler func(ctx context.Context, c *Client, msgs []*proto.Message, snapshot bool)

type chatRegistration struct {
	id uint64
	fn ChatHandler
}

type logRegistration struct {
	id uint64
	fn LogHandler
}

// Tracker maintains the room roster and message log from the packet
// stream and fans chat messages out to registered handlers. Every Client
// installs one as its first dispatch module; the tracking flags control
// only whether the roster and log are kept filled, not whether handlers
// run.
type Tracker struct {
	trackUsers    bool
	trackMessages bool
	users         *roster.UserList
	msgs          *chatlog.Tree

	mu           sync.Mutex
	seq          uint64
	chatHandlers []chatRegistration
	logHandlers  []logRegistration
}

func newTracker(trackUsers, trackMessages bool) *Tracker {
	return &Tracker{
		trackUsers:    trackUsers,
		trackMessages: trackMessages,
		users:         roster.New(),
		msgs:          chatlog.New(),
	}
}

// Users exposes the tracked roster. It stays empty when user tracking is
// disabled.
func (t *Tracker) Users() *roster.UserList { return t.users }

// Messages exposes the tracked message log. It stays empty when message
// tracking is disabled.
func (t *Tracker) Messages() *chatlog.Tree { return t.msgs }

// HandleChat registers fn for every chat message and returns a function
// that removes the registration.
func (t *Tracker) HandleChat(fn ChatHandler) func() {
	t.mu.Lock()
	t.seq++
	id := t.seq
	t.chatHandlers = append(t.chatHandlers, chatRegistration{id: id, fn: fn})
	t.mu.Unlock()
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		for i, r := range t.chatHandlers {
			if r.id == id {
				t.chatHandlers = append(t.chatHandlers[:i:i], t.chatHandlers[i+1:]...)
				return
			}
		}
	}
}

// HandleLogs registers fn for every batch of past messages and returns a
// function that removes the registration.
func (t *Tracker) HandleLogs(fn LogHandler) func() {
	t.mu.Lock()
	t.seq++
	id := t.seq
	t.logHandlers = append(t.logHandlers, logRegistration{id: id, fn: fn})
	t.mu.Unlock()
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		for i, r := range t.logHandlers {
			if r.id == id {
				t.logHandlers = append(t.logHandlers[:i:i], t.logHandlers[i+1:]...)
				return
			}
		}
	}
}

// HandleEarly applies roster and log upkeep before any other handler sees
// the packet, so handlers always observe state that already includes it.
func (t *Tracker) HandleEarly(_ context.Context, c *Client, p *proto.Packet) {
	if t.trackUsers {
		t.updateUsers(c, p)
	}
	if t.trackMessages {
		t.updateMessages(c, p)
	}
}

func (t *Tracker) updateUsers(c *Client, p *proto.Packet) {
	switch p.Type {
	case proto.WhoReplyType:
		if rep, ok := p.Payload().(*proto.WhoReply); ok {
			t.users.Add(*rep...)
		}
	case proto.SnapshotEventType:
		if ev, ok := p.Payload().(*proto.SnapshotEvent); ok {
			t.users.Add(ev.Listing...)
		}
	case proto.NetworkEventType:
		ev, ok := p.Payload().(*proto.NetworkEvent)
		if ok && ev.Type == proto.NetworkPartition {
			t.users.Partition(ev.ServerID, ev.ServerEra)
		}
	case proto.NickEventType:
		if ev, ok := p.Payload().(*proto.NickEvent); ok {
			t.users.Rename(ev.SessionID, ev.To)
		}
	case proto.JoinEventType:
		if v, ok := p.Payload().(*proto.SessionView); ok {
			t.users.Add(v)
		}
	case proto.PartEventType:
		if v, ok := p.Payload().(*proto.SessionView); ok {
			t.users.Remove(v)
		}
	default:
		return
	}
	c.recordRosterSize(t.users.Len())
}

func (t *Tracker) updateMessages(c *Client, p *proto.Packet) {
	switch p.Type {
	case proto.SendEventType, proto.SendReplyType,
		proto.EditMessageEventType, proto.EditMessageReplyType,
		proto.GetMessageReplyType:
		if m, ok := p.Payload().(*proto.Message); ok {
			t.msgs.Add(m)
		}
	case proto.LogReplyType:
		if rep, ok := p.Payload().(*proto.LogReply); ok {
			t.msgs.Add(rep.Log...)
		}
	case proto.SnapshotEventType:
		if ev, ok := p.Payload().(*proto.SnapshotEvent); ok {
			t.msgs.Add(ev.Log...)
		}
	default:
		return
	}
	c.recordLogSize(t.msgs.Len())
}

// HandleFinal fans message-bearing packets out to the chat and log
// handlers after the rest of the chain has run.
func (t *Tracker) HandleFinal(ctx context.Context, c *Client, p *proto.Packet) {
	switch p.Type {
	case proto.SendEventType, proto.SendReplyType,
		proto.EditMessageEventType, proto.EditMessageReplyType:
		m, ok := p.Payload().(*proto.Message)
		if !ok {
			return
		}
		t.runChatHandlers(ctx, c, m, ChatMeta{
			Own:    p.Type.IsReply(),
			Edit:   strings.HasPrefix(string(p.Type), "edit-"),
			Live:   p.Type == proto.SendEventType,
			Packet: p,
		})
	case proto.GetMessageReplyType:
		m, ok := p.Payload().(*proto.Message)
		if !ok {
			return
		}
		own := m.Sender != nil && m.Sender.SessionID == c.SessionID()
		t.runChatHandlers(ctx, c, m, ChatMeta{Own: own, Long: true, Packet: p})
	case proto.LogReplyType:
		if rep, ok := p.Payload().(*proto.LogReply); ok {
			t.runLogHandlers(ctx, c, rep.Log, false)
		}
	case proto.SnapshotEventType:
		if ev, ok := p.Payload().(*proto.SnapshotEvent); ok {
			t.runLogHandlers(ctx, c, ev.Log, true)
		}
	}
}

// HandleClose empties both indexes; their contents describe a session that
// no longer exists.
func (t *Tracker) HandleClose(c *Client, _, _ bool) {
	t.users.Clear()
	t.msgs.Clear()
	c.recordRosterSize(0)
	c.recordLogSize(0)
}

func (t *Tracker) runChatHandlers(ctx context.Context, c *Client, m *proto.Message, meta ChatMeta) {
	t.mu.Lock()
	regs := t.chatHandlers
	t.mu.Unlock()
	for _, r := range regs {
		r.fn(ctx, c, m, meta)
	}
}

func (t *Tracker) runLogHandlers(ctx context.Context, c *Client, msgs []*proto.Message, snapshot bool) {
	t.mu.Lock()
	regs := t.logHandlers
	t.mu.Unlock()
	for _, r := range regs {
		r.fn(ctx, c, msgs, snapshot)
	}
}
