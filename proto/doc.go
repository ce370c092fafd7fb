// Package proto defines the wire-level data model for the chat protocol:
// packets, session views, messages, and the payload structures carried by
// every event, command, and reply the engine understands.
//
// # Wire model
//
// The protocol exchanges one self-contained JSON document per WebSocket
// frame. Every document is a Packet: an envelope holding a type tag, an
// optional correlation id, and a type-specific payload under "data".
// Commands sent by a client carry sequential ids; replies echo the id of
// the command that caused them; events arrive unsolicited and usually
// without an id.
//
// DecodePacket turns a raw frame into a Packet and promotes the nested
// structures the payload carries (SessionView, Message) into their typed
// forms exactly once, before any handler sees the packet:
//
//	pkt, err := proto.DecodePacket(frame)
//	if err != nil {
//	    // pkt is still usable as an opaque envelope
//	}
//	switch ev := pkt.Payload().(type) {
//	case *proto.Message:
//	    fmt.Println(ev.Sender.Name, ev.Content)
//	case *proto.PingEvent:
//	    // reply immediately, the server drops silent clients
//	}
//
// A frame that is not valid JSON, or that lacks a type tag, still yields a
// Packet so catch-all handlers can observe it; the error returned alongside
// wraps errors.ErrMalformedFrame.
//
// # Identity
//
// Sessions are described by SessionView records. The ID field is prefix
// tagged ("account:", "agent:", "bot:") and UserID exposes the kind checks.
// Names are free-form; NormalizeNick produces the canonical form used for
// comparing names and matching @-mentions, so the two can never disagree.
//
// # Messages and mentions
//
// Message is a node in a room's log. Mentions and MentionSet lazily scan
// the content for @-mentions and cache the result; the cache is tied to the
// content it was computed from, so mutating the content through SetContent
// invalidates it atomically and readers never observe a mention list
// belonging to an older content value.
package proto
