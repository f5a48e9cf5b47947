// Package statusws exposes the controller state over a websocket endpoint:
// clients get a snapshot on connect and a JSON event per state change.
package statusws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kimifish/soundmaster/internal/control"
)

const (
	sendBuf      = 32
	broadcastBuf = 128

	writeWait  = 5 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 20 * time.Second
)

// Hub tracks connected clients and fans serialized frames out to them.
// Each client has its own write pump so one slow client never blocks the
// rest; a client whose queue fills is disconnected.
type Hub struct {
	logger *slog.Logger

	// snapshot supplies the state_init payload on connect.
	snapshot func() control.Snapshot

	broadcast  chan []byte
	register   chan *client
	unregister chan *client

	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewHub creates a hub. snapshot must be safe to call from any goroutine.
func NewHub(snapshot func() control.Snapshot, logger *slog.Logger) *Hub {
	return &Hub{
		logger:     logger,
		snapshot:   snapshot,
		broadcast:  make(chan []byte, broadcastBuf),
		register:   make(chan *client, 16),
		unregister: make(chan *client, 16),
		clients:    make(map[*client]struct{}),
	}
}

// Run processes hub events until ctx is cancelled, then disconnects all
// clients.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return ctx.Err()

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("ws client connected", "remote_addr", c.remoteAddr, "clients", n)

		case c := <-h.unregister:
			h.remove(c, "disconnect")

		case msg := <-h.broadcast:
			var slow []*client
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					slow = append(slow, c)
				}
			}
			h.mu.Unlock()
			for _, c := range slow {
				h.remove(c, "slow_client")
			}
		}
	}
}

// Handler returns the HTTP handler that upgrades connections.
func (h *Hub) Handler() http.Handler {
	return http.HandlerFunc(h.serve)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (h *Hub) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "error", err)
		return
	}

	c := &client{
		hub:        h,
		conn:       conn,
		send:       make(chan []byte, sendBuf),
		remoteAddr: r.RemoteAddr,
		logger:     h.logger,
	}
	h.register <- c

	// The pumps deliberately outlive the request context: net/http cancels
	// it when the handler returns, which would kill the connection.
	go c.writePump()
	go c.readPump()

	msg, err := marshalEnvelope("state_init", h.snapshot())
	if err != nil {
		h.logger.Warn("ws snapshot marshal failed", "error", err)
		return
	}
	select {
	case c.send <- msg:
	default:
		h.unregister <- c
	}
}

// Broadcast enqueues a frame for every client without blocking; a full
// hub queue drops the frame.
func (h *Hub) Broadcast(msg []byte) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("ws broadcast queue full, dropping message", "bytes", len(msg))
	}
}

func (h *Hub) remove(c *client, reason string) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		c.conn.Close()
		c.closeSend()
		h.logger.Info("ws client removed", "remote_addr", c.remoteAddr, "reason", reason, "clients", n)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.conn.Close()
		c.closeSend()
		delete(h.clients, c)
	}
}

type client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	remoteAddr string
	logger     *slog.Logger

	closeOnce sync.Once
}

func (c *client) closeSend() {
	c.closeOnce.Do(func() { close(c.send) })
}

// writePump drains the send queue to the socket and keeps the connection
// alive with pings. It exits on write error or when send closes.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					c.logger.Debug("ws write failed", "remote_addr", c.remoteAddr, "error", err)
				}
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound frames; it exists to service control frames
// and notice disconnects.
func (c *client) readPump() {
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			c.hub.unregister <- c
			return
		}
	}
}

// envelope is the wire format: {type, ts, data}.
type envelope struct {
	Type string    `json:"type"`
	Ts   time.Time `json:"ts"`
	Data any       `json:"data,omitempty"`
}

func marshalEnvelope(typ string, data any) ([]byte, error) {
	return json.Marshal(envelope{Type: typ, Ts: time.Now().UTC(), Data: data})
}
