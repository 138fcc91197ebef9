package realtime_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/realtime"
)

type received struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func startHub(t *testing.T) (*realtime.Hub, string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := realtime.NewHub(zerolog.Nop(), realtime.Options{})
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		greeting := realtime.Event{Name: realtime.EventSnapshot, Data: map[string]int{"devices": 0}}
		_ = hub.Serve(w, r, 42, &greeting)
	}))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func next(t *testing.T, conn *websocket.Conn) received {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg received
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestGreetingAndBroadcast(t *testing.T) {
	hub, url := startHub(t)
	a := dial(t, url)
	b := dial(t, url)

	assert.Equal(t, realtime.EventSnapshot, next(t, a).Event)
	assert.Equal(t, realtime.EventSnapshot, next(t, b).Event)
	assert.Eventually(t, func() bool { return hub.ConnectedClients() == 2 }, time.Second, 10*time.Millisecond)

	hub.Publish(context.Background(), realtime.Event{Name: realtime.EventDeviceUpdate, Data: map[string]string{"status": "ON"}})
	for _, conn := range []*websocket.Conn{a, b} {
		msg := next(t, conn)
		assert.Equal(t, realtime.EventDeviceUpdate, msg.Event)
		assert.JSONEq(t, `{"status":"ON"}`, string(msg.Data))
	}
}

func TestRoomScopedDelivery(t *testing.T) {
	hub, url := startHub(t)
	member := dial(t, url)
	outsider := dial(t, url)
	next(t, member)
	next(t, outsider)

	require.NoError(t, member.WriteJSON(map[string]any{"event": "join", "data": realtime.UserRoom(42)}))
	joined := next(t, member)
	require.Equal(t, realtime.EventJoined, joined.Event)

	require.NoError(t, outsider.WriteJSON(map[string]any{"event": "join", "data": map[string]string{"room": "user:7"}}))
	assert.Equal(t, realtime.EventError, next(t, outsider).Event)

	hub.Publish(context.Background(), realtime.Event{Name: realtime.EventSensorUpdate, Data: 1, Room: realtime.UserRoom(42)})
	hub.Publish(context.Background(), realtime.Event{Name: realtime.EventSensorBatch, Data: 2})

	assert.Equal(t, realtime.EventSensorUpdate, next(t, member).Event)
	assert.Equal(t, realtime.EventSensorBatch, next(t, member).Event)
	assert.Equal(t, realtime.EventSensorBatch, next(t, outsider).Event, "room events skip non-members")
}

func TestClientEchoAndErrors(t *testing.T) {
	_, url := startHub(t)
	conn := dial(t, url)
	next(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]any{"event": realtime.EventDeviceControl, "data": map[string]any{"id": 3}}))
	msg := next(t, conn)
	assert.Equal(t, realtime.EventDeviceControl, msg.Event)
	assert.JSONEq(t, `{"id":3}`, string(msg.Data))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	assert.Equal(t, realtime.EventError, next(t, conn).Event)
}

func TestDisconnectUnregisters(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url)
	next(t, conn)
	require.Eventually(t, func() bool { return hub.ConnectedClients() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.ConnectedClients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestPublishDropsWhenBacklogFull(t *testing.T) {
	hub := realtime.NewHub(zerolog.Nop(), realtime.Options{})
	for i := 0; i < 300; i++ {
		hub.Publish(context.Background(), realtime.Event{Name: realtime.EventSensorUpdate, Data: i})
	}
	assert.EqualValues(t, 300-256, hub.Dropped())
}

func TestDiscardPublisher(t *testing.T) {
	var p realtime.Publisher = realtime.Discard{}
	assert.NotPanics(t, func() { p.Publish(context.Background(), realtime.Event{Name: "x"}) })
}
