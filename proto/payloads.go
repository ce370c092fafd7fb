package proto

// HelloEvent is the first packet the server sends on a fresh connection,
// before the room snapshot. It tells the client who it is.
type HelloEvent struct {
	ID                   UserID               `json:"id"`
	Account              *PersonalAccountView `json:"account,omitempty"`
	Session              *SessionView         `json:"session"`
	AccountHasAccess     bool                 `json:"account_has_access,omitempty"`
	AccountEmailVerified bool                 `json:"account_email_verified,omitempty"`
	RoomIsPrivate        bool                 `json:"room_is_private"`
	Version              string               `json:"version"`
}

// SnapshotEvent marks the session as fully joined to the room. It carries
// the current presence listing and the most recent slice of the log.
type SnapshotEvent struct {
	Identity  UserID         `json:"identity"`
	SessionID string         `json:"session_id"`
	Version   string         `json:"version"`
	Listing   []*SessionView `json:"listing"`
	Log       []*Message     `json:"log"`
	Nick      string         `json:"nick,omitempty"`
}

// BounceEvent tells the client it may not join the room without
// authenticating first.
type BounceEvent struct {
	Reason      string   `json:"reason,omitempty"`
	AuthOptions []string `json:"auth_options,omitempty"`
}

// DisconnectEvent tells the client the server is about to drop the
// connection. A reason of "authentication changed" asks the client to
// reconnect and authenticate again.
type DisconnectEvent struct {
	Reason string `json:"reason"`
}

// DisconnectReasonAuthChanged is the DisconnectEvent reason sent when the
// room's credentials changed under an authenticated session.
const DisconnectReasonAuthChanged = "authentication changed"

// NetworkEvent announces a server-side network change. A "partition" type
// means every session on the named server/era pair is gone.
type NetworkEvent struct {
	Type      string `json:"type"`
	ServerID  string `json:"server_id"`
	ServerEra string `json:"server_era"`
}

// NetworkPartition is the NetworkEvent type for a server partition.
const NetworkPartition = "partition"

// NickEvent announces that another session changed its name.
type NickEvent struct {
	SessionID string `json:"session_id"`
	ID        UserID `json:"id"`
	From      string `json:"from"`
	To        string `json:"to"`
}

// NickReply confirms the client's own nick change and reports the name the
// server actually assigned.
type NickReply NickEvent

// PingEvent is the server's keepalive probe. Clients must answer with a
// PingReply echoing Time without delay; silent clients are dropped.
type PingEvent struct {
	UnixTime Time `json:"time"`
	Next     Time `json:"next"`
}

// LoginEvent reports that the session logged into an account (from
// another tab or client sharing the agent).
type LoginEvent struct {
	AccountID UserID `json:"account_id"`
}

// LogoutEvent reports that the session logged out of its account.
type LogoutEvent struct{}

// AuthReply reports the outcome of an auth command.
type AuthReply struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason,omitempty"`
}

// WhoReply lists every session currently joined to the room.
type WhoReply []*SessionView

// LogReply carries a slice of the room log, most recent last.
type LogReply struct {
	Log    []*Message `json:"log"`
	Before string     `json:"before,omitempty"`
}

// SendCommand posts a message to the room. Parent makes the message a
// child of an existing one; empty starts a new top-level thread.
type SendCommand struct {
	Content string `json:"content"`
	Parent  string `json:"parent,omitempty"`
}

// NickCommand sets or changes the client's name in the room.
type NickCommand struct {
	Name string `json:"name"`
}

// AuthCommand authenticates the session to a private room.
type AuthCommand struct {
	Type     string `json:"type"`
	Passcode string `json:"passcode,omitempty"`
}

// AuthPasscode is the AuthCommand type for passcode authentication.
const AuthPasscode = "passcode"

// WhoCommand requests the current presence listing.
type WhoCommand struct{}

// LogCommand requests the N most recent log messages, or the N messages
// preceding Before when paging further back.
type LogCommand struct {
	N      int    `json:"n"`
	Before string `json:"before,omitempty"`
}

// PingReply answers a PingEvent, echoing the probe's timestamp.
type PingReply struct {
	UnixTime Time `json:"time,omitempty"`
}
