package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/courier/internal/common"
	"github.com/ternarybob/courier/internal/interfaces"
	"github.com/ternarybob/courier/internal/services/events"
)

func dialTestSocket(t *testing.T, handler *WebSocketHandler) *websocket.Conn {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(handler.HandleWebSocket))
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func TestWebSocketSendsConnectedMessage(t *testing.T) {
	handler := NewWebSocketHandler(nil, common.GetLogger(), &common.WebSocketConfig{})
	conn := dialTestSocket(t, handler)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "connected", msg.Type)

	payload, ok := msg.Payload.(map[string]interface{})
	require.True(t, ok)
	assert.NotEmpty(t, payload["serverInstanceId"])
}

func TestWebSocketBroadcastsBusEvents(t *testing.T) {
	bus := events.NewService(common.GetLogger())
	defer bus.Close()

	handler := NewWebSocketHandler(bus, common.GetLogger(), &common.WebSocketConfig{})
	conn := dialTestSocket(t, handler)

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))

	// Drain the connected message first
	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, "connected", msg.Type)

	require.NoError(t, bus.PublishSync(context.Background(), interfaces.Event{
		Type:    interfaces.EventStatus,
		Payload: "Queue processing started",
	}))

	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "status", msg.Type)
	assert.Equal(t, "Queue processing started", msg.Payload)
}

func TestWebSocketThrottlesProgressEvents(t *testing.T) {
	bus := events.NewService(common.GetLogger())
	defer bus.Close()

	handler := NewWebSocketHandler(bus, common.GetLogger(), &common.WebSocketConfig{
		ProgressThrottle: common.Duration(time.Hour),
	})
	conn := dialTestSocket(t, handler)

	var msg WSMessage
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, "connected", msg.Type)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, bus.PublishSync(ctx, interfaces.Event{
			Type:    interfaces.EventProgress,
			Payload: map[string]interface{}{"percent": i * 20},
		}))
	}
	// Terminal events bypass the throttler
	require.NoError(t, bus.PublishSync(ctx, interfaces.Event{
		Type:    interfaces.EventComplete,
		Payload: "done",
	}))

	// Exactly one progress message gets through, then the complete
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "progress", msg.Type)

	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "complete", msg.Type)
}

func TestWebSocketClientCount(t *testing.T) {
	handler := NewWebSocketHandler(nil, common.GetLogger(), &common.WebSocketConfig{})

	conn1 := dialTestSocket(t, handler)
	conn2 := dialTestSocket(t, handler)

	waitForClients := func(want int) {
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			if handler.ClientCount() == want {
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
		t.Fatalf("expected %d clients, got %d", want, handler.ClientCount())
	}

	waitForClients(2)

	conn1.Close()
	waitForClients(1)

	conn2.Close()
	waitForClients(0)
}
