package events

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-staking-ledger/internal/domain"
)

func dial(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHub_Broadcast(t *testing.T) {
	hub := NewHub()
	server := httptest.NewServer(hub)
	defer server.Close()
	defer hub.Close()

	all := dial(t, server, "")
	pool2 := dial(t, server, "?pool=pool2")
	require.Eventually(t, func() bool { return hub.Subscribers() == 2 }, 2*time.Second, 10*time.Millisecond)

	events := append(testEvents(), &domain.LedgerEvent{
		EventID: "e3", Kind: domain.EventUnstaked, Pool: "pool2", Owner: "bob", Amount: 7, Sequence: 1,
	})
	require.NoError(t, hub.Deliver(context.Background(), events))

	for _, want := range []string{"e1", "e2", "e3"} {
		msg := readMessage(t, all)
		assert.Equal(t, want, msg.EventID)
	}

	msg := readMessage(t, pool2)
	assert.Equal(t, "e3", msg.EventID)
	assert.Equal(t, uint64(7), msg.Amount)
}

func TestHub_WireFormat(t *testing.T) {
	hub := NewHub()
	server := httptest.NewServer(hub)
	defer server.Close()
	defer hub.Close()

	conn := dial(t, server, "")
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Deliver(context.Background(), testEvents()[:1]))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"amount":"100"`)
}

func TestHub_DropsSlowSubscriber(t *testing.T) {
	hub := NewHub(WithSendBuffer(1))
	sub := &subscriber{send: make(chan Message, 1)}
	hub.add(sub)

	require.NoError(t, hub.Deliver(context.Background(), testEvents()))
	assert.Zero(t, hub.Subscribers())

	// the queued message is still readable, then the channel is closed
	_, ok := <-sub.send
	assert.True(t, ok)
	_, ok = <-sub.send
	assert.False(t, ok)
}

func TestHub_Unsubscribe(t *testing.T) {
	hub := NewHub()
	server := httptest.NewServer(hub)
	defer server.Close()

	conn := dial(t, server, "")
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.Subscribers() == 0 }, 2*time.Second, 10*time.Millisecond)
}
