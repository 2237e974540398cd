package ordercontroller

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseDeliveryDate(t *testing.T) {
	d, err := parseDeliveryDate("2026-12-24")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 12, 24, 0, 0, 0, 0, time.UTC), d)

	d, err = parseDeliveryDate("2026-12-24T15:00:00+03:00")
	require.NoError(t, err)
	assert.Equal(t, 12, d.UTC().Hour())

	for _, bad := range []string{"", "  ", "24/12/2026", "tomorrow"} {
		_, err := parseDeliveryDate(bad)
		assert.Error(t, err, bad)
	}
}

func startHub(t *testing.T, origins []string) (*Hub, string) {
	gin.SetMode(gin.TestMode)
	hub := NewHub(zap.NewNop())
	r := gin.New()
	r.GET("/ws", ServeWS(hub, origins))
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	require.Eventually(t, func() bool { return hub.Len() == n }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_BroadcastReachesClients(t *testing.T) {
	hub, url := startHub(t, []string{"http://localhost:5173"})

	header := http.Header{"Origin": []string{"http://localhost:5173"}}
	first, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	defer first.Close()
	second, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer second.Close()
	waitForClients(t, hub, 2)

	hub.Broadcast(map[string]string{"type": "order.created", "order_number": "ORD-20260101-001"})

	for _, conn := range []*websocket.Conn{first, second} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var frame map[string]string
		require.NoError(t, conn.ReadJSON(&frame))
		assert.Equal(t, "order.created", frame["type"])
		assert.Equal(t, "ORD-20260101-001", frame["order_number"])
	}
}

func TestHub_DropsClosedClients(t *testing.T) {
	hub, url := startHub(t, nil)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	waitForClients(t, hub, 1)

	require.NoError(t, conn.Close())
	waitForClients(t, hub, 0)
	hub.Broadcast(gin.H{"type": "noop"})
}

func TestHub_BroadcastSkipsStalledClient(t *testing.T) {
	hub, url := startHub(t, nil)

	live, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer live.Close()
	waitForClients(t, hub, 1)

	// A client whose writer is stuck with a full queue.
	stalled := &client{send: make(chan []byte, 1)}
	stalled.send <- []byte(`{}`)
	hub.mu.Lock()
	hub.clients[stalled] = struct{}{}
	hub.mu.Unlock()

	done := make(chan struct{})
	go func() {
		hub.Broadcast(gin.H{"type": "order.status_changed"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked on a stalled client")
	}

	assert.Equal(t, 1, hub.Len())
	<-stalled.send
	_, open := <-stalled.send
	assert.False(t, open)

	require.NoError(t, live.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame map[string]string
	require.NoError(t, live.ReadJSON(&frame))
	assert.Equal(t, "order.status_changed", frame["type"])
}

func TestServeWS_RejectsUnknownOrigin(t *testing.T) {
	_, url := startHub(t, []string{"http://localhost:5173"})

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{"https://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
