package client

import (
	"context"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SarahisCode/basebot/config"
	"github.com/SarahisCode/basebot/proto"
)

// chainModule reports its dispatch passes through a shared recorder.
type chainModule struct {
	add func(string)
}

func (m chainModule) HandleEarly(context.Context, *Client, *proto.Packet) { m.add("early") }
func (m chainModule) HandleFinal(context.Context, *Client, *proto.Packet) { m.add("final") }
func (m chainModule) HandleClose(*Client, bool, bool)                     {}

func TestDispatch_ChainOrder(t *testing.T) {
	c, err := New(config.EndpointConfig{Room: "testroom"})
	require.NoError(t, err)

	var order []string
	add := func(s string) { order = append(order, s) }
	c.Use(chainModule{add: add})
	c.Handle(AnyType, func(context.Context, *Client, *proto.Packet) { add("any") })
	removeTyped := c.Handle(proto.SendReplyType, func(context.Context, *Client, *proto.Packet) { add("typed") })
	c.SetCallback("7", func(context.Context, *Client, *proto.Packet) { add("reply") })

	reply := mustDecode(t, `{"id":"7","type":"send-reply","data":{"id":"m1","parent":"","time":1,"sender":{"id":"agent:a","name":"alice","server_id":"s1","server_era":"e1","session_id":"sess-a"},"content":"hi"}}`)
	c.HandlePacket(context.Background(), reply)
	assert.Equal(t, []string{"early", "any", "typed", "reply", "final"}, order)

	// The reply callback is one-shot; a second packet under the same id
	// reaches only the persistent handlers.
	order = nil
	c.HandlePacket(context.Background(), reply)
	assert.Equal(t, []string{"early", "any", "typed", "final"}, order)

	removeTyped()
	order = nil
	c.HandlePacket(context.Background(), reply)
	assert.Equal(t, []string{"early", "any", "final"}, order)
}

func TestDispatch_UntypedFrameSkipsTypedHandlers(t *testing.T) {
	c, err := New(config.EndpointConfig{Room: "testroom"})
	require.NoError(t, err)

	var got []string
	c.Handle(AnyType, func(_ context.Context, _ *Client, p *proto.Packet) {
		got = append(got, "any:"+p.ID)
	})
	c.Handle(proto.SendEventType, func(context.Context, *Client, *proto.Packet) {
		got = append(got, "typed")
	})

	pkt, err := proto.DecodePacket([]byte(`{"id":"3"}`))
	require.Error(t, err)
	c.HandlePacket(context.Background(), pkt)
	assert.Equal(t, []string{"any:3"}, got)
}

func TestDispatch_SetCallbackReplacesAndClears(t *testing.T) {
	c, err := New(config.EndpointConfig{Room: "testroom"})
	require.NoError(t, err)

	var got []string
	c.SetCallback("1", func(context.Context, *Client, *proto.Packet) { got = append(got, "a") })
	c.SetCallback("1", func(context.Context, *Client, *proto.Packet) { got = append(got, "b") })
	c.SetCallback("2", func(context.Context, *Client, *proto.Packet) { got = append(got, "c") })
	c.SetCallback("2", nil)

	c.HandlePacket(context.Background(), mustDecode(t, `{"id":"1","type":"who-reply","data":[]}`))
	c.HandlePacket(context.Background(), mustDecode(t, `{"id":"2","type":"who-reply","data":[]}`))
	assert.Equal(t, []string{"b"}, got)
}

func TestDispatch_HelloRecordsSessionID(t *testing.T) {
	c, err := New(config.EndpointConfig{Room: "testroom"})
	require.NoError(t, err)

	c.HandlePacket(context.Background(), mustDecode(t,
		`{"type":"hello-event","data":{"id":"bot:b1","session":{"id":"bot:b1","name":"","server_id":"s1","server_era":"e1","session_id":"sess-me"},"room_is_private":false,"version":"1"}}`))
	assert.Equal(t, "sess-me", c.SessionID())
}

func TestDispatch_SnapshotEstablishesSession(t *testing.T) {
	started := 0
	c, err := New(config.EndpointConfig{Room: "testroom"},
		WithSessionStartCallback(func() { started++ }))
	require.NoError(t, err)

	assert.False(t, c.Established())
	c.HandlePacket(context.Background(), mustDecode(t,
		`{"type":"snapshot-event","data":{"identity":"bot:b1","session_id":"sess-me","version":"1","listing":[],"log":[]}}`))
	assert.True(t, c.Established())
	assert.Equal(t, 1, started)
}

func TestDispatch_NickReplyUpdatesEffectiveNick(t *testing.T) {
	var names []string
	c, err := New(config.EndpointConfig{Room: "testroom"},
		WithNickCallback(func(name string) { names = append(names, name) }))
	require.NoError(t, err)

	c.HandlePacket(context.Background(), mustDecode(t,
		`{"id":"0","type":"nick-reply","data":{"session_id":"sess-me","id":"bot:b1","from":"","to":"Shiny"}}`))
	assert.Equal(t, "Shiny", c.EffectiveNick())

	c.HandlePacket(context.Background(), mustDecode(t,
		`{"id":"1","type":"nick-reply","data":{"session_id":"sess-me","id":"bot:b1","from":"Shiny","to":"Shinier"}}`))
	assert.Equal(t, "Shinier", c.EffectiveNick())

	// Only the first confirmation of the epoch announces the nick.
	assert.Equal(t, []string{"Shiny"}, names)
}

func TestDispatch_BounceSendsPasscode(t *testing.T) {
	frames := make(chan wireFrame, 1)
	url := newTestServer(t, func(conn *websocket.Conn) {
		f, err := readWire(conn)
		if err != nil {
			return
		}
		frames <- f
		_, _, _ = conn.ReadMessage()
	})

	cfg := testConfig(url)
	cfg.Passcode = "hunter2"
	c, err := New(cfg)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Connect(context.Background()))
	c.HandlePacket(context.Background(), mustDecode(t,
		`{"type":"bounce-event","data":{"reason":"authentication required"}}`))

	select {
	case f := <-frames:
		assert.Equal(t, "auth", f.Type)
		assert.JSONEq(t, `{"type": "passcode", "passcode": "hunter2"}`, string(f.Data))
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for auth command")
	}
}

func TestDispatch_ThrottledCommandResentOnce(t *testing.T) {
	frames := make(chan wireFrame, 2)
	url := newTestServer(t, func(conn *websocket.Conn) {
		for {
			f, err := readWire(conn)
			if err != nil {
				return
			}
			frames <- f
		}
	})

	c, err := New(testConfig(url))
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Connect(ctx))

	var replies []*proto.Packet
	id, err := c.SendChat(ctx, "hello room", "", func(_ context.Context, _ *Client, p *proto.Packet) {
		replies = append(replies, p)
	})
	require.NoError(t, err)
	require.Equal(t, "0", id)

	var first wireFrame
	select {
	case first = <-frames:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for send command")
	}

	// The server pushes back; the client re-sends the same payload under a
	// fresh id without involving the caller.
	c.HandlePacket(ctx, mustDecode(t, `{"id":"0","type":"send-reply","throttled":true,"throttled_reason":"rate limited"}`))

	select {
	case second := <-frames:
		assert.Equal(t, "1", second.ID)
		assert.Equal(t, first.Type, second.Type)
		assert.JSONEq(t, string(first.Data), string(second.Data))
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for re-sent command")
	}
	assert.Empty(t, replies)

	// The reply to the re-send reaches the original callback.
	c.HandlePacket(ctx, mustDecode(t, `{"id":"1","type":"send-reply","data":{"id":"m9","parent":"","time":9,"sender":{"id":"bot:b1","name":"TestBot","server_id":"s1","server_era":"e1","session_id":"sess-me"},"content":"hello room"}}`))
	require.Len(t, replies, 1)
	assert.Equal(t, "1", replies[0].ID)
	assert.False(t, replies[0].Throttled)
}

func TestDispatch_SecondThrottleReachesCallback(t *testing.T) {
	frames := make(chan wireFrame, 2)
	url := newTestServer(t, func(conn *websocket.Conn) {
		for {
			f, err := readWire(conn)
			if err != nil {
				return
			}
			frames <- f
		}
	})

	c, err := New(testConfig(url))
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	var replies []*proto.Packet
	require.NoError(t, c.Connect(ctx))
	_, err = c.SendChat(ctx, "hello again", "", func(_ context.Context, _ *Client, p *proto.Packet) {
		replies = append(replies, p)
	})
	require.NoError(t, err)
	<-frames

	c.HandlePacket(ctx, mustDecode(t, `{"id":"0","type":"send-reply","throttled":true,"throttled_reason":"rate limited"}`))
	select {
	case <-frames:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for re-sent command")
	}

	c.HandlePacket(ctx, mustDecode(t, `{"id":"1","type":"send-reply","throttled":true,"throttled_reason":"rate limited"}`))
	require.Len(t, replies, 1)
	assert.True(t, replies[0].Throttled, "a command throttled twice is handed to its callback")
}

func TestDispatch_PendingCallbacksDropOnClose(t *testing.T) {
	url := newTestServer(t, func(conn *websocket.Conn) {
		for {
			if _, err := readWire(conn); err != nil {
				return
			}
		}
	})

	c, err := New(testConfig(url))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, c.Connect(ctx))

	fired := false
	id, err := c.SendChat(ctx, "anyone there?", "", func(context.Context, *Client, *proto.Packet) {
		fired = true
	})
	require.NoError(t, err)
	require.NoError(t, c.Close())

	c.HandlePacket(ctx, mustDecode(t, `{"id":"`+id+`","type":"send-reply","data":{"id":"m1","parent":"","time":1,"sender":null,"content":"anyone there?"}}`))
	assert.False(t, fired, "callbacks do not survive the connection that registered them")
}
