package proto

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/SarahisCode/basebot/errors"
)

// PacketType tags a packet with the kind of command, reply, or event it
// carries. The tag namespace is flat: commands are bare words ("send"),
// their replies append "-reply", and server-initiated packets append
// "-event".
type PacketType string

// Inbound event types the engine recognizes.
const (
	BounceEventType      PacketType = "bounce-event"
	DisconnectEventType  PacketType = "disconnect-event"
	EditMessageEventType PacketType = "edit-message-event"
	HelloEventType       PacketType = "hello-event"
	JoinEventType        PacketType = "join-event"
	LoginEventType       PacketType = "login-event"
	LogoutEventType      PacketType = "logout-event"
	NetworkEventType     PacketType = "network-event"
	NickEventType        PacketType = "nick-event"
	PartEventType        PacketType = "part-event"
	PingEventType        PacketType = "ping-event"
	SendEventType        PacketType = "send-event"
	SnapshotEventType    PacketType = "snapshot-event"
)

// Command types the engine issues, and the replies they produce.
const (
	AuthType      PacketType = "auth"
	AuthReplyType PacketType = "auth-reply"

	LogType      PacketType = "log"
	LogReplyType PacketType = "log-reply"

	NickType      PacketType = "nick"
	NickReplyType PacketType = "nick-reply"

	PingReplyType PacketType = "ping-reply"

	SendType      PacketType = "send"
	SendReplyType PacketType = "send-reply"

	WhoType      PacketType = "who"
	WhoReplyType PacketType = "who-reply"

	GetMessageReplyType  PacketType = "get-message-reply"
	EditMessageReplyType PacketType = "edit-message-reply"
)

// IsReply reports whether the type names a command reply.
func (t PacketType) IsReply() bool { return strings.HasSuffix(string(t), "-reply") }

// IsEvent reports whether the type names a server-initiated event.
func (t PacketType) IsEvent() bool { return strings.HasSuffix(string(t), "-event") }

// String returns the wire tag.
func (t PacketType) String() string { return string(t) }

// Time is an instant in the wire representation the server uses: a Unix
// timestamp in seconds.
type Time int64

// Now returns the current instant as a wire timestamp.
func Now() Time { return Time(time.Now().Unix()) }

// TimeFromStd converts a time.Time to the wire representation.
func TimeFromStd(t time.Time) Time { return Time(t.Unix()) }

// StdTime converts the wire timestamp back to a time.Time in UTC.
func (t Time) StdTime() time.Time { return time.Unix(int64(t), 0).UTC() }

// Packet is the envelope around every frame exchanged with the server.
//
// A Packet is constructed once per frame by DecodePacket and is immutable
// afterwards: handlers may read it concurrently without coordination. The
// decoded payload, when the type is one the engine knows, is attached at
// construction and reachable through Payload.
type Packet struct {
	// ID correlates a reply with the command that caused it. Commands
	// carry sequential ids assigned per connection; events usually have
	// none.
	ID string `json:"id,omitempty"`

	// Type identifies the payload kind.
	Type PacketType `json:"type"`

	// Data is the raw type-specific payload.
	Data json.RawMessage `json:"data,omitempty"`

	// Error describes a command failure reported by the server.
	Error string `json:"error,omitempty"`

	// Throttled indicates the server is applying back-pressure to this
	// client; ThrottledReason says why.
	Throttled       bool   `json:"throttled,omitempty"`
	ThrottledReason string `json:"throttled_reason,omitempty"`

	payload any
}

// Payload returns the typed payload decoded from Data, or nil when the
// packet's type is unknown to the engine or the payload failed to decode.
// The concrete type is determined by Type: for example a SendEventType
// packet yields *Message and a SnapshotEventType packet *SnapshotEvent.
func (p *Packet) Payload() any { return p.payload }

// Encode marshals the packet for transmission.
func (p *Packet) Encode() ([]byte, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Packet", "Encode", "failed to marshal packet")
	}
	return raw, nil
}

// MakeCommand builds an outbound command packet: the payload is marshalled
// into Data and the given correlation id attached.
func MakeCommand(id string, packetType PacketType, payload any) (*Packet, error) {
	p := &Packet{ID: id, Type: packetType}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, errors.WrapInvalid(err, "Packet", "MakeCommand",
				fmt.Sprintf("failed to marshal %s payload", packetType))
		}
		p.Data = data
	}
	return p, nil
}

// DecodePacket parses a raw frame into a Packet and promotes the nested
// session-view and message structures of known payload types into their
// typed forms. Promotion happens exactly once, here, so every handler the
// packet is later dispatched to observes the same decoded value.
//
// A frame that is not a JSON object, lacks a type tag, or carries a payload
// that does not match its type is still returned as an (untyped) Packet,
// together with an error wrapping errors.ErrMalformedFrame. Callers can
// dispatch such packets through catch-all handlers while skipping the
// type-specific steps.
func DecodePacket(frame []byte) (*Packet, error) {
	p := &Packet{}
	if err := json.Unmarshal(frame, p); err != nil {
		return p, errors.WrapInvalid(errors.ErrMalformedFrame, "Packet", "DecodePacket",
			fmt.Sprintf("failed to parse frame: %v", err))
	}
	if p.Type == "" {
		return p, errors.WrapInvalid(errors.ErrMalformedFrame, "Packet", "DecodePacket",
			"frame has no type tag")
	}
	payload, err := decodePayload(p.Type, p.Data)
	if err != nil {
		return p, errors.WrapInvalid(errors.ErrMalformedFrame, "Packet", "DecodePacket",
			fmt.Sprintf("failed to decode %s payload: %v", p.Type, err))
	}
	p.payload = payload
	return p, nil
}

// decodePayload unmarshals Data into the payload type registered for the
// packet type. Unknown types decode to nil without error; the raw Data
// stays available on the packet.
func decodePayload(packetType PacketType, data json.RawMessage) (any, error) {
	var payload any
	switch packetType {
	case SendEventType, SendReplyType, EditMessageEventType, EditMessageReplyType, GetMessageReplyType:
		payload = &Message{}
	case JoinEventType, PartEventType:
		payload = &SessionView{}
	case HelloEventType:
		payload = &HelloEvent{}
	case SnapshotEventType:
		payload = &SnapshotEvent{}
	case BounceEventType:
		payload = &BounceEvent{}
	case DisconnectEventType:
		payload = &DisconnectEvent{}
	case NetworkEventType:
		payload = &NetworkEvent{}
	case NickEventType:
		payload = &NickEvent{}
	case NickReplyType:
		payload = &NickReply{}
	case PingEventType:
		payload = &PingEvent{}
	case LoginEventType:
		payload = &LoginEvent{}
	case LogoutEventType:
		payload = &LogoutEvent{}
	case AuthReplyType:
		payload = &AuthReply{}
	case WhoReplyType:
		payload = &WhoReply{}
	case LogReplyType:
		payload = &LogReply{}
	default:
		return nil, nil
	}
	if len(data) == 0 {
		// Payload omitted entirely; keep the zero value so handlers
		// can still type-switch on it.
		return payload, nil
	}
	if err := json.Unmarshal(data, payload); err != nil {
		return nil, err
	}
	return payload, nil
}
