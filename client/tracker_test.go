package client

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SarahisCode/basebot/config"
	"github.com/SarahisCode/basebot/proto"
)

func sessionJSON(id, name, serverID, serverEra, sessionID string) string {
	return fmt.Sprintf(`{"id":%q,"name":%q,"server_id":%q,"server_era":%q,"session_id":%q}`,
		id, name, serverID, serverEra, sessionID)
}

func messageJSON(id, parent, content, senderSession string) string {
	sender := sessionJSON("agent:a", "alice", "s1", "e1", senderSession)
	return fmt.Sprintf(`{"id":%q,"parent":%q,"time":1,"sender":%s,"content":%q}`,
		id, parent, sender, content)
}

func trackingClient(t *testing.T, users, messages bool) *Client {
	t.Helper()
	c, err := New(config.EndpointConfig{
		Room:          "testroom",
		TrackUsers:    users,
		TrackMessages: messages,
	})
	require.NoError(t, err)
	return c
}

func TestTracker_RosterFollowsPresence(t *testing.T) {
	c := trackingClient(t, true, false)
	ctx := context.Background()

	alice := sessionJSON("agent:a", "alice", "s1", "e1", "sess-a")
	bob := sessionJSON("agent:b", "bob", "s2", "e2", "sess-b")
	c.HandlePacket(ctx, mustDecode(t, fmt.Sprintf(
		`{"type":"snapshot-event","data":{"identity":"bot:me","session_id":"sess-me","version":"1","listing":[%s,%s],"log":[]}}`,
		alice, bob)))
	assert.Equal(t, 2, c.Users().Len())

	carol := sessionJSON("agent:c", "carol", "s1", "e1", "sess-c")
	c.HandlePacket(ctx, mustDecode(t, fmt.Sprintf(`{"type":"join-event","data":%s}`, carol)))
	assert.Equal(t, 3, c.Users().Len())

	c.HandlePacket(ctx, mustDecode(t,
		`{"type":"nick-event","data":{"session_id":"sess-b","id":"agent:b","from":"bob","to":"robert"}}`))
	renamed, ok := c.Users().ForSession("sess-b")
	require.True(t, ok)
	assert.Equal(t, "robert", renamed.Name)

	c.HandlePacket(ctx, mustDecode(t, fmt.Sprintf(`{"type":"part-event","data":%s}`, carol)))
	assert.Equal(t, 2, c.Users().Len())

	// A partition takes out every session on the lost server at once.
	c.HandlePacket(ctx, mustDecode(t,
		`{"type":"network-event","data":{"type":"partition","server_id":"s2","server_era":"e2"}}`))
	assert.Equal(t, 1, c.Users().Len())
	_, ok = c.Users().ForSession("sess-b")
	assert.False(t, ok)

	dave := sessionJSON("agent:d", "dave", "s1", "e1", "sess-d")
	c.HandlePacket(ctx, mustDecode(t, fmt.Sprintf(`{"id":"4","type":"who-reply","data":[%s]}`, dave)))
	assert.Equal(t, 2, c.Users().Len())
}

func TestTracker_LogFollowsMessages(t *testing.T) {
	c := trackingClient(t, false, true)
	ctx := context.Background()

	c.HandlePacket(ctx, mustDecode(t, fmt.Sprintf(
		`{"type":"send-event","data":%s}`, messageJSON("m2", "", "fresh", "sess-a"))))
	assert.Equal(t, 1, c.Messages().Len())

	c.HandlePacket(ctx, mustDecode(t, fmt.Sprintf(
		`{"id":"1","type":"log-reply","data":{"log":[%s,%s]}}`,
		messageJSON("m0", "", "oldest", "sess-a"),
		messageJSON("m1", "m0", "older", "sess-a"))))
	assert.Equal(t, 3, c.Messages().Len())

	c.HandlePacket(ctx, mustDecode(t, fmt.Sprintf(
		`{"type":"edit-message-event","data":%s}`, messageJSON("m1", "m0", "older, edited", "sess-a"))))
	assert.Equal(t, 3, c.Messages().Len(), "an edit replaces, not appends")
	edited, ok := c.Messages().Get("m1")
	require.True(t, ok)
	assert.Equal(t, "older, edited", edited.Content)

	c.HandlePacket(ctx, mustDecode(t, fmt.Sprintf(
		`{"id":"2","type":"get-message-reply","data":%s}`, messageJSON("m3", "", "long form", "sess-a"))))
	c.HandlePacket(ctx, mustDecode(t, fmt.Sprintf(
		`{"type":"snapshot-event","data":{"identity":"bot:me","session_id":"sess-me","version":"1","listing":[],"log":[%s]}}`,
		messageJSON("m4", "", "from snapshot", "sess-a"))))
	assert.Equal(t, 5, c.Messages().Len())
	assert.Equal(t, "m0", c.Messages().Earliest().ID)
	assert.Equal(t, "m4", c.Messages().Latest().ID)
}

func TestTracker_ChatMetaDescribesOrigin(t *testing.T) {
	// Tracking flags gate only the indexes; handlers see chat regardless.
	c := trackingClient(t, false, false)
	ctx := context.Background()

	type seen struct {
		content string
		meta    ChatMeta
	}
	var got []seen
	c.HandleChat(func(_ context.Context, _ *Client, m *proto.Message, meta ChatMeta) {
		got = append(got, seen{content: m.Content, meta: meta})
	})

	c.HandlePacket(ctx, mustDecode(t, fmt.Sprintf(
		`{"type":"hello-event","data":{"id":"bot:me","session":%s,"room_is_private":false,"version":"1"}}`,
		sessionJSON("bot:me", "TestBot", "s1", "e1", "sess-me"))))

	c.HandlePacket(ctx, mustDecode(t, fmt.Sprintf(
		`{"type":"send-event","data":%s}`, messageJSON("m1", "", "live", "sess-a"))))
	c.HandlePacket(ctx, mustDecode(t, fmt.Sprintf(
		`{"id":"0","type":"send-reply","data":%s}`, messageJSON("m2", "", "echo", "sess-me"))))
	c.HandlePacket(ctx, mustDecode(t, fmt.Sprintf(
		`{"type":"edit-message-event","data":%s}`, messageJSON("m1", "", "live, edited", "sess-a"))))
	c.HandlePacket(ctx, mustDecode(t, fmt.Sprintf(
		`{"id":"1","type":"edit-message-reply","data":%s}`, messageJSON("m2", "", "echo, edited", "sess-me"))))
	c.HandlePacket(ctx, mustDecode(t, fmt.Sprintf(
		`{"id":"2","type":"get-message-reply","data":%s}`, messageJSON("m2", "", "mine in full", "sess-me"))))
	c.HandlePacket(ctx, mustDecode(t, fmt.Sprintf(
		`{"id":"3","type":"get-message-reply","data":%s}`, messageJSON("m1", "", "theirs in full", "sess-a"))))

	require.Len(t, got, 6)
	for i := range got {
		require.NotNil(t, got[i].meta.Packet, "message %d carries its packet", i)
	}
	assert.Equal(t, ChatMeta{Live: true, Packet: got[0].meta.Packet}, got[0].meta, "send-event")
	assert.Equal(t, ChatMeta{Own: true, Packet: got[1].meta.Packet}, got[1].meta, "send-reply")
	assert.Equal(t, ChatMeta{Edit: true, Packet: got[2].meta.Packet}, got[2].meta, "edit-message-event")
	assert.Equal(t, ChatMeta{Own: true, Edit: true, Packet: got[3].meta.Packet}, got[3].meta, "edit-message-reply")
	assert.Equal(t, ChatMeta{Own: true, Long: true, Packet: got[4].meta.Packet}, got[4].meta, "own get-message-reply")
	assert.Equal(t, ChatMeta{Long: true, Packet: got[5].meta.Packet}, got[5].meta, "foreign get-message-reply")

	assert.Zero(t, c.Users().Len())
	assert.Zero(t, c.Messages().Len())
}

func TestTracker_ChatHandlerRemoval(t *testing.T) {
	c := trackingClient(t, false, false)
	ctx := context.Background()

	calls := 0
	remove := c.HandleChat(func(context.Context, *Client, *proto.Message, ChatMeta) { calls++ })

	frame := fmt.Sprintf(`{"type":"send-event","data":%s}`, messageJSON("m1", "", "one", "sess-a"))
	c.HandlePacket(ctx, mustDecode(t, frame))
	remove()
	c.HandlePacket(ctx, mustDecode(t, frame))
	assert.Equal(t, 1, calls)
}

func TestTracker_LogHandlerBatches(t *testing.T) {
	c := trackingClient(t, false, false)
	ctx := context.Background()

	type batch struct {
		n        int
		snapshot bool
	}
	var got []batch
	c.HandleLogs(func(_ context.Context, _ *Client, msgs []*proto.Message, snapshot bool) {
		got = append(got, batch{n: len(msgs), snapshot: snapshot})
	})

	c.HandlePacket(ctx, mustDecode(t, fmt.Sprintf(
		`{"id":"1","type":"log-reply","data":{"log":[%s,%s]}}`,
		messageJSON("m0", "", "a", "sess-a"),
		messageJSON("m1", "", "b", "sess-a"))))
	c.HandlePacket(ctx, mustDecode(t, fmt.Sprintf(
		`{"type":"snapshot-event","data":{"identity":"bot:me","session_id":"sess-me","version":"1","listing":[],"log":[%s]}}`,
		messageJSON("m2", "", "c", "sess-a"))))

	assert.Equal(t, []batch{{n: 2, snapshot: false}, {n: 1, snapshot: true}}, got)
}

func TestTracker_ClearsOnClose(t *testing.T) {
	c := trackingClient(t, true, true)
	ctx := context.Background()

	c.HandlePacket(ctx, mustDecode(t, fmt.Sprintf(
		`{"type":"snapshot-event","data":{"identity":"bot:me","session_id":"sess-me","version":"1","listing":[%s],"log":[%s]}}`,
		sessionJSON("agent:a", "alice", "s1", "e1", "sess-a"),
		messageJSON("m0", "", "hello", "sess-a"))))
	require.Equal(t, 1, c.Users().Len())
	require.Equal(t, 1, c.Messages().Len())

	require.NoError(t, c.Close())
	assert.Zero(t, c.Users().Len())
	assert.Zero(t, c.Messages().Len())
}
