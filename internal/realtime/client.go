package realtime

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const maxMessageSize = 64 << 10

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID int64

	mu    sync.RWMutex
	rooms map[string]struct{}
}

func newClient(h *Hub, conn *websocket.Conn, userID int64) *Client {
	return &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, h.opts.SendBuffer),
		userID: userID,
		rooms:  make(map[string]struct{}),
	}
}

func (c *Client) inRoom(room string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.rooms[room]
	return ok
}

func (c *Client) join(room string) bool {
	if room != "global" && room != UserRoom(c.userID) {
		return false
	}
	if strings.HasPrefix(room, "user:") && c.userID == 0 {
		return false
	}
	c.mu.Lock()
	c.rooms[room] = struct{}{}
	c.mu.Unlock()
	return true
}

func (c *Client) leaveRoom(room string) {
	c.mu.Lock()
	delete(c.rooms, room)
	c.mu.Unlock()
}

type inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func (c *Client) readPump() {
	defer func() {
		c.hub.leave(c)
		c.conn.Close()
	}()

	pongWait := c.hub.opts.PingInterval * 2
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Debug().Err(err).Msg("socket closed unexpectedly")
			}
			return
		}
		c.handle(raw)
	}
}

func (c *Client) handle(raw []byte) {
	var msg inbound
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.hub.sendTo(c, Event{Name: EventError, Data: map[string]string{"message": "malformed message"}})
		return
	}

	switch msg.Event {
	case "join", "leave":
		room := roomName(msg.Data)
		if msg.Event == "leave" {
			c.leaveRoom(room)
			return
		}
		if !c.join(room) {
			c.hub.sendTo(c, Event{Name: EventError, Data: map[string]string{"message": "cannot join room " + room}})
			return
		}
		c.hub.sendTo(c, Event{Name: EventJoined, Data: map[string]string{"room": room}})
	case EventSensorData, EventDeviceControl:
		c.hub.sendTo(c, Event{Name: msg.Event, Data: msg.Data})
	default:
		c.hub.sendTo(c, Event{Name: EventError, Data: map[string]string{"message": "unsupported event " + msg.Event}})
	}
}

// roomName accepts either "room" or {"room": "room"}.
func roomName(data json.RawMessage) string {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		return name
	}
	var obj struct {
		Room string `json:"room"`
	}
	_ = json.Unmarshal(data, &obj)
	return obj.Room
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.hub.opts.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.opts.WriteTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.opts.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
