package handlers

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ws "github.com/Godfather59/score-app/internal/websocket"
)

func nextMessage(t *testing.T, c *ws.Client) ws.Message {
	t.Helper()
	select {
	case raw, ok := <-c.Send:
		require.True(t, ok, "send channel closed")
		var msg ws.Message
		require.NoError(t, json.Unmarshal(raw, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for reply")
		return ws.Message{}
	}
}

func TestWebSocketHandler_RepliesToPingAndUnknownActions(t *testing.T) {
	hub := ws.NewHub()
	go hub.Run()
	defer hub.Stop()

	h := NewWebSocketHandler(hub, nil, nil)
	client := ws.NewClient(hub, nil, "m1")
	require.True(t, hub.Subscribe(client))

	h.handleIncomingWSMessage(client, []byte(`{"action":"ping"}`))
	assert.Equal(t, "pong", nextMessage(t, client).Action)

	h.handleIncomingWSMessage(client, []byte(`{"action":"dance"}`))
	assert.Equal(t, "error", nextMessage(t, client).Action)

	h.handleIncomingWSMessage(client, []byte(`not json`))
	assert.Equal(t, "error", nextMessage(t, client).Action)
}

func TestWebSocketHandler_MessageFromDroppedClientDoesNotPanic(t *testing.T) {
	hub := ws.NewHub()
	go hub.Run()
	defer hub.Stop()

	h := NewWebSocketHandler(hub, nil, nil)
	client := ws.NewClient(hub, nil, "m1")
	require.True(t, hub.Subscribe(client))

	// Nobody drains Send, so the hub drops the client and closes the channel.
	for i := 0; i <= cap(client.Send); i++ {
		hub.BroadcastTo("m1", []byte(`{"action":"match_updated"}`))
	}
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)

	assert.NotPanics(t, func() {
		h.handleIncomingWSMessage(client, []byte(`{"action":"ping"}`))
		h.handleIncomingWSMessage(client, []byte(`{"action":"dance"}`))
	})

	// The hub keeps serving other clients.
	other := ws.NewClient(hub, nil, "m1")
	require.True(t, hub.Subscribe(other))
	hub.BroadcastTo("m1", []byte(`{"action":"match_updated"}`))
	assert.Equal(t, "match_updated", nextMessage(t, other).Action)
}
