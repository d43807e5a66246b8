package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serveHub upgrades every request and registers the connection under the
// interview named in the query string.
func serveHub(t *testing.T, hub *Hub, handler func(*Client, Frame)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := hub.RegisterClient(conn, "user-1", r.URL.Query().Get("interview"))
		client.MessageHandler = handler
		go client.WritePump()
		client.ReadPump()
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, interview string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/?interview="+interview, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub, cancel
}

func TestBroadcastReachesOnlyMatchingInterview(t *testing.T) {
	hub, _ := startHub(t)
	srv := serveHub(t, hub, nil)

	a := dial(t, srv, "iv-1")
	b := dial(t, srv, "iv-1")
	c := dial(t, srv, "iv-2")
	require.Eventually(t, func() bool {
		return hub.ClientCount("iv-1") == 2 && hub.ClientCount("iv-2") == 1
	}, 2*time.Second, 10*time.Millisecond)

	hub.Broadcast("iv-1", Event{Type: "session", Session: map[string]string{"id": "s1"}})

	for _, conn := range []*websocket.Conn{a, b} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var ev Event
		require.NoError(t, conn.ReadJSON(&ev))
		assert.Equal(t, "session", ev.Type)
	}

	require.NoError(t, c.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := c.ReadMessage()
	assert.Error(t, err, "iv-2 must not receive iv-1 events")
}

func TestFramesAreHandledInOrder(t *testing.T) {
	hub, _ := startHub(t)

	var mu sync.Mutex
	var got []string
	srv := serveHub(t, hub, func(c *Client, f Frame) {
		mu.Lock()
		got = append(got, f.Type)
		mu.Unlock()
		c.SendEvent(Event{Type: "ack"})
	})

	conn := dial(t, srv, "iv-1")
	for _, typ := range []string{"message", "metrics", "end"} {
		require.NoError(t, conn.WriteJSON(Frame{Type: typ}))
	}
	for range 3 {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var ev Event
		require.NoError(t, conn.ReadJSON(&ev))
		assert.Equal(t, "ack", ev.Type)
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"message", "metrics", "end"}, got)
}

func TestMalformedFrameGetsErrorEvent(t *testing.T) {
	hub, _ := startHub(t)
	called := false
	srv := serveHub(t, hub, func(*Client, Frame) { called = true })

	conn := dial(t, srv, "iv-1")
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "error", ev.Type)
	assert.Equal(t, "invalid_input", ev.Code)
	assert.False(t, called)
}

func TestHubShutdownClosesClients(t *testing.T) {
	hub, cancel := startHub(t)
	srv := serveHub(t, hub, nil)
	conn := dial(t, srv, "iv-1")
	require.Eventually(t, func() bool { return hub.ClientCount("iv-1") == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
	assert.Zero(t, hub.ClientCount("iv-1"))

	// registering after shutdown yields a closed client
	client := hub.RegisterClient(nil, "user-2", "iv-1")
	_, open := <-client.Send
	assert.False(t, open)
	assert.Zero(t, hub.ClientCount("iv-1"))
}
