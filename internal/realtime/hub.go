package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

type Options struct {
	SendBuffer   int
	WriteTimeout time.Duration
	PingInterval time.Duration
	CheckOrigin  func(r *http.Request) bool
}

type directMessage struct {
	client  *Client
	payload []byte
}

// Hub owns the set of connected socket clients. Only the Run goroutine touches the set
// and closes client send channels.
type Hub struct {
	log      zerolog.Logger
	opts     Options
	upgrader websocket.Upgrader

	register   chan *Client
	unregister chan *Client
	events     chan Event
	direct     chan directMessage
	done       chan struct{}

	clients   map[*Client]struct{}
	connected atomic.Int64
	dropped   atomic.Int64
}

func NewHub(log zerolog.Logger, opts Options) *Hub {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 64
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = 30 * time.Second
	}
	checkOrigin := opts.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}

	return &Hub{
		log:  log.With().Str("component", "realtime").Logger(),
		opts: opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan Event, 256),
		direct:     make(chan directMessage, 64),
		done:       make(chan struct{}),
		clients:    make(map[*Client]struct{}),
	}
}

// Run processes registrations and deliveries until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.connected.Store(0)
			return
		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.connected.Store(int64(len(h.clients)))
			h.log.Debug().Int64("user_id", c.userID).Int("clients", len(h.clients)).Msg("client connected")
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				h.connected.Store(int64(len(h.clients)))
				h.log.Debug().Int("clients", len(h.clients)).Msg("client disconnected")
			}
		case msg := <-h.direct:
			if _, ok := h.clients[msg.client]; ok {
				h.offer(msg.client, msg.payload)
			}
		case evt := <-h.events:
			h.deliver(evt)
		}
	}
}

// Publish queues evt for delivery. When the hub backlog is full the event is dropped.
func (h *Hub) Publish(ctx context.Context, evt Event) {
	select {
	case h.events <- evt:
	case <-h.done:
	default:
		h.dropped.Add(1)
		h.log.Warn().Str("event", evt.Name).Msg("hub backlog full, event dropped")
	}
}

// ConnectedClients reports the current number of open sockets.
func (h *Hub) ConnectedClients() int {
	return int(h.connected.Load())
}

// Dropped reports how many deliveries were skipped because a buffer was full.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// Serve upgrades the request and blocks until the client disconnects. The greeting, when
// non-nil, is the first message the client receives.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID int64, greeting *Event) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := newClient(h, conn, userID)
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return errors.New("hub stopped")
	}

	if greeting != nil {
		h.sendTo(c, *greeting)
	}

	go c.writePump()
	c.readPump()
	return nil
}

func (h *Hub) sendTo(c *Client, evt Event) {
	payload, err := json.Marshal(evt)
	if err != nil {
		h.log.Error().Err(err).Str("event", evt.Name).Msg("encode event failed")
		return
	}
	select {
	case h.direct <- directMessage{client: c, payload: payload}:
	case <-h.done:
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) deliver(evt Event) {
	payload, err := json.Marshal(evt)
	if err != nil {
		h.log.Error().Err(err).Str("event", evt.Name).Msg("encode event failed")
		return
	}
	for c := range h.clients {
		if evt.Room != "" && !c.inRoom(evt.Room) {
			continue
		}
		h.offer(c, payload)
	}
}

func (h *Hub) offer(c *Client, payload []byte) {
	select {
	case c.send <- payload:
	default:
		h.dropped.Add(1)
		h.log.Debug().Int64("user_id", c.userID).Msg("client buffer full, event dropped")
	}
}
